package repositories

import (
	"context"

	"github.com/sicommerce/storefront/internal/domain"
)

// Registry exposes typed repository accessors and lifecycle hooks for dependency injection.
type Registry interface {
	Close(ctx context.Context) error

	Categories() CategoryRepository
	Products() ProductRepository
	Reviews() ReviewRepository
	Users() UserRepository
	Orders() OrderRepository
	// Ping reports whether the backing store is reachable.
	Ping(ctx context.Context) error
}

// RepositoryError wraps low-level persistence failures with categorisation used by services.
type RepositoryError interface {
	error
	IsNotFound() bool
	IsConflict() bool
	IsUnavailable() bool
}

// CategoryRepository stores browsing categories keyed by slug.
type CategoryRepository interface {
	List(ctx context.Context) ([]domain.Category, error)
	FindBySlug(ctx context.Context, slug string) (domain.Category, error)
	FindByID(ctx context.Context, id string) (domain.Category, error)
	// Upsert creates or replaces the category with the same slug, keeping its existing ID.
	Upsert(ctx context.Context, category domain.Category) (domain.Category, error)
}

// ProductFilter narrows product listings. Zero values match everything.
type ProductFilter struct {
	CategoryID string
	Status     domain.ProductStatus
	Limit      int
}

// ProductRepository stores catalog products keyed by ID, with unique slugs.
type ProductRepository interface {
	// List returns products in catalog order (ascending ID).
	List(ctx context.Context, filter ProductFilter) ([]domain.Product, error)
	FindByID(ctx context.Context, id string) (domain.Product, error)
	FindBySlug(ctx context.Context, slug string) (domain.Product, error)
	Upsert(ctx context.Context, product domain.Product) (domain.Product, error)
	Count(ctx context.Context) (int, error)
}

// ReviewRepository stores product reviews and their rating aggregates.
type ReviewRepository interface {
	// ListByProduct returns reviews newest first.
	ListByProduct(ctx context.Context, productID string) ([]domain.Review, error)
	// Summaries returns average rating and count per product; products without reviews are omitted.
	Summaries(ctx context.Context, productIDs []string) (map[string]domain.RatingSummary, error)
	// Insert stores a new review and reports a conflict when the ID already exists.
	Insert(ctx context.Context, review domain.Review) (domain.Review, error)
	Upsert(ctx context.Context, review domain.Review) (domain.Review, error)
}

// UserRepository stores registered users keyed by email.
type UserRepository interface {
	FindByID(ctx context.Context, id string) (domain.User, error)
	// Upsert creates or replaces the user with the same email, keeping its existing ID.
	Upsert(ctx context.Context, user domain.User) (domain.User, error)
	Count(ctx context.Context) (int, error)
}

// OrderRepository exposes recorded orders. Checkout submissions are never written here.
type OrderRepository interface {
	// List returns orders newest first.
	List(ctx context.Context) ([]domain.Order, error)
	// Upsert creates or replaces the order with the same order number.
	Upsert(ctx context.Context, order domain.Order) (domain.Order, error)
}

// HealthRepository collects dependency status for readiness probes.
type HealthRepository interface {
	Collect(ctx context.Context) (domain.SystemHealthReport, error)
}
