// Package memory keeps catalog data in process memory. It backs local development and tests; data is
// lost on restart.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/sicommerce/storefront/internal/domain"
	"github.com/sicommerce/storefront/internal/repositories"
)

// Registry is a repositories.Registry whose repositories share one lock.
type Registry struct {
	mu         sync.RWMutex
	now        func() time.Time
	newID      func() string
	categories map[string]domain.Category // by id
	products   map[string]domain.Product  // by id
	reviews    map[string]domain.Review   // by id
	users      map[string]domain.User     // by id
	orders     map[string]domain.Order    // by order number
}

var _ repositories.Registry = (*Registry)(nil)

// Option customises the in-memory registry.
type Option func(*Registry)

// WithClock injects the clock used for CreatedAt/UpdatedAt stamps.
func WithClock(clock func() time.Time) Option {
	return func(r *Registry) {
		if clock != nil {
			r.now = clock
		}
	}
}

// WithIDGenerator injects the ID generator used when records arrive without an ID.
func WithIDGenerator(gen func() string) Option {
	return func(r *Registry) {
		if gen != nil {
			r.newID = gen
		}
	}
}

// NewRegistry returns an empty in-memory registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		now:        time.Now,
		newID:      func() string { return strings.ToLower(ulid.Make().String()) },
		categories: make(map[string]domain.Category),
		products:   make(map[string]domain.Product),
		reviews:    make(map[string]domain.Review),
		users:      make(map[string]domain.User),
		orders:     make(map[string]domain.Order),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

func (r *Registry) Close(context.Context) error { return nil }
func (r *Registry) Ping(context.Context) error  { return nil }

func (r *Registry) Categories() repositories.CategoryRepository { return categoryRepository{r} }
func (r *Registry) Products() repositories.ProductRepository    { return productRepository{r} }
func (r *Registry) Reviews() repositories.ReviewRepository      { return reviewRepository{r} }
func (r *Registry) Users() repositories.UserRepository          { return userRepository{r} }
func (r *Registry) Orders() repositories.OrderRepository        { return orderRepository{r} }

type categoryRepository struct{ r *Registry }

func (c categoryRepository) List(context.Context) ([]domain.Category, error) {
	c.r.mu.RLock()
	defer c.r.mu.RUnlock()
	out := make([]domain.Category, 0, len(c.r.categories))
	for _, category := range c.r.categories {
		out = append(out, category)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].Slug < out[j].Slug
	})
	return out, nil
}

func (c categoryRepository) FindBySlug(_ context.Context, slug string) (domain.Category, error) {
	c.r.mu.RLock()
	defer c.r.mu.RUnlock()
	for _, category := range c.r.categories {
		if category.Slug == slug {
			return category, nil
		}
	}
	return domain.Category{}, notFound("categories.find_by_slug", slug)
}

func (c categoryRepository) FindByID(_ context.Context, id string) (domain.Category, error) {
	c.r.mu.RLock()
	defer c.r.mu.RUnlock()
	category, ok := c.r.categories[id]
	if !ok {
		return domain.Category{}, notFound("categories.find_by_id", id)
	}
	return category, nil
}

func (c categoryRepository) Upsert(_ context.Context, category domain.Category) (domain.Category, error) {
	c.r.mu.Lock()
	defer c.r.mu.Unlock()

	now := c.r.now()
	for id, existing := range c.r.categories {
		if existing.Slug == category.Slug {
			category.ID = id
			category.CreatedAt = existing.CreatedAt
			category.UpdatedAt = now
			c.r.categories[id] = category
			return category, nil
		}
	}
	if category.ID == "" {
		category.ID = c.r.newID()
	}
	category.CreatedAt, category.UpdatedAt = now, now
	c.r.categories[category.ID] = category
	return category, nil
}

type productRepository struct{ r *Registry }

func (p productRepository) List(_ context.Context, filter repositories.ProductFilter) ([]domain.Product, error) {
	p.r.mu.RLock()
	defer p.r.mu.RUnlock()
	out := make([]domain.Product, 0, len(p.r.products))
	for _, product := range p.r.products {
		if filter.CategoryID != "" && product.CategoryID != filter.CategoryID {
			continue
		}
		if filter.Status != "" && product.Status != filter.Status {
			continue
		}
		out = append(out, cloneProduct(product))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (p productRepository) FindByID(_ context.Context, id string) (domain.Product, error) {
	p.r.mu.RLock()
	defer p.r.mu.RUnlock()
	product, ok := p.r.products[id]
	if !ok {
		return domain.Product{}, notFound("products.find_by_id", id)
	}
	return cloneProduct(product), nil
}

func (p productRepository) FindBySlug(_ context.Context, slug string) (domain.Product, error) {
	p.r.mu.RLock()
	defer p.r.mu.RUnlock()
	for _, product := range p.r.products {
		if product.Slug == slug {
			return cloneProduct(product), nil
		}
	}
	return domain.Product{}, notFound("products.find_by_slug", slug)
}

func (p productRepository) Upsert(_ context.Context, product domain.Product) (domain.Product, error) {
	p.r.mu.Lock()
	defer p.r.mu.Unlock()

	if product.ID == "" {
		product.ID = p.r.newID()
	}
	for id, existing := range p.r.products {
		if id != product.ID && existing.Slug == product.Slug {
			return domain.Product{}, conflict("products.upsert", "slug "+product.Slug)
		}
	}
	now := p.r.now()
	if existing, ok := p.r.products[product.ID]; ok {
		product.CreatedAt = existing.CreatedAt
	} else {
		product.CreatedAt = now
	}
	product.UpdatedAt = now
	product = cloneProduct(product)
	p.r.products[product.ID] = product
	return cloneProduct(product), nil
}

func (p productRepository) Count(context.Context) (int, error) {
	p.r.mu.RLock()
	defer p.r.mu.RUnlock()
	return len(p.r.products), nil
}

func cloneProduct(p domain.Product) domain.Product {
	p.Images = append([]string(nil), p.Images...)
	if p.SalePrice != nil {
		sale := *p.SalePrice
		p.SalePrice = &sale
	}
	return p
}

type reviewRepository struct{ r *Registry }

func (rv reviewRepository) ListByProduct(_ context.Context, productID string) ([]domain.Review, error) {
	rv.r.mu.RLock()
	defer rv.r.mu.RUnlock()
	var out []domain.Review
	for _, review := range rv.r.reviews {
		if review.ProductID == productID {
			out = append(out, review)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (rv reviewRepository) Summaries(_ context.Context, productIDs []string) (map[string]domain.RatingSummary, error) {
	wanted := make(map[string]struct{}, len(productIDs))
	for _, id := range productIDs {
		wanted[id] = struct{}{}
	}

	rv.r.mu.RLock()
	defer rv.r.mu.RUnlock()
	sums := make(map[string]int)
	counts := make(map[string]int)
	for _, review := range rv.r.reviews {
		if _, ok := wanted[review.ProductID]; !ok {
			continue
		}
		sums[review.ProductID] += review.Rating
		counts[review.ProductID]++
	}
	out := make(map[string]domain.RatingSummary, len(counts))
	for id, count := range counts {
		out[id] = domain.RatingSummary{Average: float64(sums[id]) / float64(count), Count: count}
	}
	return out, nil
}

func (rv reviewRepository) Insert(_ context.Context, review domain.Review) (domain.Review, error) {
	rv.r.mu.Lock()
	defer rv.r.mu.Unlock()
	if review.ID == "" {
		review.ID = rv.r.newID()
	}
	if _, exists := rv.r.reviews[review.ID]; exists {
		return domain.Review{}, conflict("reviews.insert", review.ID)
	}
	if review.CreatedAt.IsZero() {
		review.CreatedAt = rv.r.now()
	}
	rv.r.reviews[review.ID] = review
	return review, nil
}

func (rv reviewRepository) Upsert(_ context.Context, review domain.Review) (domain.Review, error) {
	rv.r.mu.Lock()
	defer rv.r.mu.Unlock()
	if review.ID == "" {
		review.ID = rv.r.newID()
	}
	if existing, ok := rv.r.reviews[review.ID]; ok && review.CreatedAt.IsZero() {
		review.CreatedAt = existing.CreatedAt
	}
	if review.CreatedAt.IsZero() {
		review.CreatedAt = rv.r.now()
	}
	rv.r.reviews[review.ID] = review
	return review, nil
}

type userRepository struct{ r *Registry }

func (u userRepository) FindByID(_ context.Context, id string) (domain.User, error) {
	u.r.mu.RLock()
	defer u.r.mu.RUnlock()
	user, ok := u.r.users[id]
	if !ok {
		return domain.User{}, notFound("users.find_by_id", id)
	}
	return user, nil
}

func (u userRepository) Upsert(_ context.Context, user domain.User) (domain.User, error) {
	u.r.mu.Lock()
	defer u.r.mu.Unlock()

	email := strings.ToLower(strings.TrimSpace(user.Email))
	user.Email = email
	for id, existing := range u.r.users {
		if strings.EqualFold(existing.Email, email) {
			user.ID = id
			user.CreatedAt = existing.CreatedAt
			u.r.users[id] = user
			return user, nil
		}
	}
	if user.ID == "" {
		user.ID = u.r.newID()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = u.r.now()
	}
	u.r.users[user.ID] = user
	return user, nil
}

func (u userRepository) Count(context.Context) (int, error) {
	u.r.mu.RLock()
	defer u.r.mu.RUnlock()
	return len(u.r.users), nil
}

type orderRepository struct{ r *Registry }

func (o orderRepository) List(context.Context) ([]domain.Order, error) {
	o.r.mu.RLock()
	defer o.r.mu.RUnlock()
	out := make([]domain.Order, 0, len(o.r.orders))
	for _, order := range o.r.orders {
		order.Items = append([]domain.OrderItem(nil), order.Items...)
		out = append(out, order)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].OrderNumber > out[j].OrderNumber
	})
	return out, nil
}

func (o orderRepository) Upsert(_ context.Context, order domain.Order) (domain.Order, error) {
	o.r.mu.Lock()
	defer o.r.mu.Unlock()
	if strings.TrimSpace(order.OrderNumber) == "" {
		return domain.Order{}, conflict("orders.upsert", "empty order number")
	}
	if existing, ok := o.r.orders[order.OrderNumber]; ok {
		order.ID = existing.ID
	} else if order.ID == "" {
		order.ID = o.r.newID()
	}
	if order.CreatedAt.IsZero() {
		order.CreatedAt = o.r.now()
	}
	order.Items = append([]domain.OrderItem(nil), order.Items...)
	o.r.orders[order.OrderNumber] = order
	return order, nil
}
