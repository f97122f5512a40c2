package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/sicommerce/storefront/internal/domain"
	"github.com/sicommerce/storefront/internal/platform/cache"
	"github.com/sicommerce/storefront/internal/repositories"
	"github.com/sicommerce/storefront/internal/repositories/memory"
)

type catalogFixture struct {
	registry    *memory.Registry
	electronics domain.Category
	fashion     domain.Category
	hidden      domain.Category
}

func newCatalogFixture(t *testing.T) catalogFixture {
	t.Helper()
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	tick := 0
	registry := memory.NewRegistry(memory.WithClock(func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}))

	upsertCategory := func(c domain.Category) domain.Category {
		created, err := registry.Categories().Upsert(ctx, c)
		if err != nil {
			t.Fatalf("upsert category %s: %v", c.Slug, err)
		}
		return created
	}
	f := catalogFixture{
		registry:    registry,
		electronics: upsertCategory(domain.Category{ID: "cat-electronics", Name: "전자제품", Slug: "electronics", IsActive: true}),
		fashion:     upsertCategory(domain.Category{ID: "cat-fashion", Name: "패션", Slug: "fashion", IsActive: true}),
		hidden:      upsertCategory(domain.Category{ID: "cat-hidden", Name: "숨김", Slug: "hidden", IsActive: false}),
	}

	products := []domain.Product{
		{ID: "p1", CategoryID: f.electronics.ID, Name: "스마트폰 Pro Max", Slug: "smartphone-pro-max", Price: 1490000, SalePrice: int64Ptr(1290000), Stock: 50, Status: domain.ProductStatusActive, Images: []string{"/p1.png"}, Description: "**최신** 스마트폰\n<script>alert(1)</script>"},
		{ID: "p2", CategoryID: f.electronics.ID, Name: "노트북 Ultra", Slug: "laptop-ultra", Price: 2000000, Stock: 2, Status: domain.ProductStatusActive},
		{ID: "p3", CategoryID: f.electronics.ID, Name: "무선 이어폰", Slug: "wireless-earbuds", Price: 450000, SalePrice: int64Ptr(400000), Stock: 0, Status: domain.ProductStatusOutOfStock},
		{ID: "p4", CategoryID: f.fashion.ID, Name: "가죽 가방", Slug: "leather-bag", Price: 600000, Stock: 10, Status: domain.ProductStatusActive},
		{ID: "p5", CategoryID: f.fashion.ID, Name: "단종 셔츠", Slug: "old-shirt", Price: 30000, Stock: 10, Status: domain.ProductStatusInactive},
	}
	for _, p := range products {
		if _, err := registry.Products().Upsert(ctx, p); err != nil {
			t.Fatalf("upsert product %s: %v", p.ID, err)
		}
	}

	for i, r := range []domain.Review{
		{ProductID: "p1", Author: "김철수", Rating: 5, Content: "최고"},
		{ProductID: "p1", Author: "이영희", Rating: 4, Content: "좋아요"},
		{ProductID: "p2", Author: "박민수", Rating: 3, Content: "보통"},
	} {
		r.ID = fmt.Sprintf("rev-%d", i+1)
		if _, err := registry.Reviews().Insert(ctx, r); err != nil {
			t.Fatalf("insert review: %v", err)
		}
	}
	return f
}

// unavailableError satisfies repositories.RepositoryError for outage paths.
type unavailableError struct{}

func (unavailableError) Error() string       { return "backend unavailable" }
func (unavailableError) IsNotFound() bool    { return false }
func (unavailableError) IsConflict() bool    { return false }
func (unavailableError) IsUnavailable() bool { return true }

type failingProducts struct {
	repositories.ProductRepository
}

func (failingProducts) FindByID(context.Context, string) (domain.Product, error) {
	return domain.Product{}, unavailableError{}
}

func (failingProducts) List(context.Context, repositories.ProductFilter) ([]domain.Product, error) {
	return nil, unavailableError{}
}

// stubCache is an in-process ListingCache.
type stubCache struct {
	entries     map[string][]ProductListing
	sets        int
	invalidated []string
	getErr      error
}

func newStubCache() *stubCache {
	return &stubCache{entries: make(map[string][]ProductListing)}
}

func (c *stubCache) Get(_ context.Context, slug string) ([]ProductListing, error) {
	if c.getErr != nil {
		return nil, c.getErr
	}
	listings, ok := c.entries[slug]
	if !ok {
		return nil, cache.ErrCacheMiss
	}
	return append([]ProductListing(nil), listings...), nil
}

func (c *stubCache) Set(_ context.Context, slug string, listings []ProductListing) error {
	c.sets++
	c.entries[slug] = append([]ProductListing(nil), listings...)
	return nil
}

func (c *stubCache) Invalidate(_ context.Context, slug string) error {
	c.invalidated = append(c.invalidated, slug)
	delete(c.entries, slug)
	return nil
}
