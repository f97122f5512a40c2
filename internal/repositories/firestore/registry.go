package firestore

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	pfirestore "github.com/sicommerce/storefront/internal/platform/firestore"
	"github.com/sicommerce/storefront/internal/repositories"
)

const (
	categoryCollection = "categories"
	productCollection  = "products"
	reviewCollection   = "reviews"
	userCollection     = "users"
	orderCollection    = "orders"
)

// Registry wires Firestore-backed repositories around a shared provider.
type Registry struct {
	provider   *pfirestore.Provider
	categories *CategoryRepository
	products   *ProductRepository
	reviews    *ReviewRepository
	users      *UserRepository
	orders     *OrderRepository
}

var _ repositories.Registry = (*Registry)(nil)

// NewRegistry constructs every repository against provider.
func NewRegistry(provider *pfirestore.Provider) (*Registry, error) {
	if provider == nil {
		return nil, errors.New("firestore registry: provider is required")
	}
	clock := func() time.Time { return time.Now().UTC() }
	newID := func() string { return strings.ToLower(ulid.Make().String()) }
	return &Registry{
		provider:   provider,
		categories: &CategoryRepository{base: pfirestore.NewBaseRepository[categoryDocument](provider, categoryCollection), now: clock, newID: newID},
		products:   &ProductRepository{base: pfirestore.NewBaseRepository[productDocument](provider, productCollection), now: clock},
		reviews:    &ReviewRepository{base: pfirestore.NewBaseRepository[reviewDocument](provider, reviewCollection), now: clock, newID: newID},
		users:      &UserRepository{base: pfirestore.NewBaseRepository[userDocument](provider, userCollection), now: clock, newID: newID},
		orders:     &OrderRepository{base: pfirestore.NewBaseRepository[orderDocument](provider, orderCollection), now: clock},
	}, nil
}

func (r *Registry) Close(ctx context.Context) error { return r.provider.Close(ctx) }
func (r *Registry) Ping(ctx context.Context) error  { return r.provider.Ping(ctx) }

func (r *Registry) Categories() repositories.CategoryRepository { return r.categories }
func (r *Registry) Products() repositories.ProductRepository    { return r.products }
func (r *Registry) Reviews() repositories.ReviewRepository      { return r.reviews }
func (r *Registry) Users() repositories.UserRepository          { return r.users }
func (r *Registry) Orders() repositories.OrderRepository        { return r.orders }

func isNotFound(err error) bool {
	var repoErr repositories.RepositoryError
	return errors.As(err, &repoErr) && repoErr.IsNotFound()
}
