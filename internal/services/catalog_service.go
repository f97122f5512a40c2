package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/sicommerce/storefront/internal/domain"
	"github.com/sicommerce/storefront/internal/platform/cache"
	"github.com/sicommerce/storefront/internal/platform/observability"
	"github.com/sicommerce/storefront/internal/repositories"
)

var (
	// ErrCatalogNotFound indicates a missing or inactive category or product.
	ErrCatalogNotFound = errors.New("catalog: not found")
	// ErrCatalogUnavailable indicates the catalog store could not be reached.
	ErrCatalogUnavailable = errors.New("catalog: unavailable")
)

// CatalogServiceDeps bundles collaborators required to construct a CatalogService.
type CatalogServiceDeps struct {
	Categories repositories.CategoryRepository
	Products   repositories.ProductRepository
	Reviews    repositories.ReviewRepository
	Cache      ListingCache
	Metrics    Metrics
	Logger     *zap.Logger
}

type catalogService struct {
	categories repositories.CategoryRepository
	products   repositories.ProductRepository
	reviews    repositories.ReviewRepository
	cache      ListingCache
	metrics    Metrics
	logger     *zap.Logger
	loads      singleflight.Group
	markdown   goldmark.Markdown
	policy     *bluemonday.Policy
}

var _ CatalogService = (*catalogService)(nil)

// NewCatalogService constructs the catalog read service. A nil cache disables listing caching.
func NewCatalogService(deps CatalogServiceDeps) (CatalogService, error) {
	if deps.Categories == nil {
		return nil, errors.New("catalog service: category repository is required")
	}
	if deps.Products == nil {
		return nil, errors.New("catalog service: product repository is required")
	}
	if deps.Reviews == nil {
		return nil, errors.New("catalog service: review repository is required")
	}
	listingCache := deps.Cache
	if listingCache == nil {
		listingCache = cache.Noop{}
	}
	metrics := deps.Metrics
	if metrics == nil {
		metrics = noopMetrics{}
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &catalogService{
		categories: deps.Categories,
		products:   deps.Products,
		reviews:    deps.Reviews,
		cache:      listingCache,
		metrics:    metrics,
		logger:     logger,
		markdown: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithRendererOptions(html.WithHardWraps()),
		),
		policy: newDescriptionPolicy(),
	}, nil
}

func newDescriptionPolicy() *bluemonday.Policy {
	policy := bluemonday.UGCPolicy()
	policy.RequireNoFollowOnLinks(true)
	policy.AddTargetBlankToFullyQualifiedLinks(true)
	return policy
}

func (s *catalogService) ListCategories(ctx context.Context) ([]CategorySummary, error) {
	categories, err := s.categories.List(ctx)
	if err != nil {
		return nil, s.mapError(err)
	}
	products, err := s.products.List(ctx, repositories.ProductFilter{Status: domain.ProductStatusActive})
	if err != nil {
		return nil, s.mapError(err)
	}
	counts := make(map[string]int, len(categories))
	for _, product := range products {
		counts[product.CategoryID]++
	}

	out := make([]CategorySummary, 0, len(categories))
	for _, category := range categories {
		if !category.IsActive {
			continue
		}
		out = append(out, CategorySummary{Category: category, ProductCount: counts[category.ID]})
	}
	return out, nil
}

func (s *catalogService) CategoryListing(ctx context.Context, slug string, query ListingQuery) (CategoryListing, error) {
	ctx, span := observability.StartSpan(ctx, "CatalogService.CategoryListing",
		attribute.String("category.slug", slug),
		attribute.String("listing.sort", string(query.SortBy)),
	)
	defer span.End()

	if err := query.Validate(); err != nil {
		return CategoryListing{}, err
	}

	category, err := s.activeCategory(ctx, slug)
	if err != nil {
		return CategoryListing{}, err
	}
	listings, err := s.categoryListings(ctx, category)
	if err != nil {
		return CategoryListing{}, err
	}

	return CategoryListing{
		Category: category,
		Query:    query,
		Total:    len(listings),
		Products: ApplyListing(listings, query),
	}, nil
}

func (s *catalogService) ProductDetail(ctx context.Context, slug string) (ProductDetail, error) {
	ctx, span := observability.StartSpan(ctx, "CatalogService.ProductDetail", attribute.String("product.slug", slug))
	defer span.End()

	product, err := s.products.FindBySlug(ctx, strings.TrimSpace(slug))
	if err != nil {
		return ProductDetail{}, s.mapError(err)
	}

	var category Category
	if product.CategoryID != "" {
		category, err = s.categories.FindByID(ctx, product.CategoryID)
		if err != nil && !isRepoNotFound(err) {
			return ProductDetail{}, s.mapError(err)
		}
	}

	reviews, err := s.reviews.ListByProduct(ctx, product.ID)
	if err != nil {
		return ProductDetail{}, s.mapError(err)
	}

	return ProductDetail{
		Product:         product,
		Category:        category,
		EffectivePrice:  product.EffectivePrice(),
		DiscountPercent: product.DiscountPercent(),
		PrimaryImage:    product.PrimaryImage(),
		DescriptionHTML: s.renderDescription(product.Description),
		Rating:          summarizeReviews(reviews),
		Reviews:         reviews,
		MaxQuantity:     product.Stock,
	}, nil
}

func (s *catalogService) Featured(ctx context.Context, limit int) ([]ProductListing, error) {
	if limit <= 0 {
		return []ProductListing{}, nil
	}
	products, err := s.products.List(ctx, repositories.ProductFilter{Status: domain.ProductStatusActive, Limit: limit})
	if err != nil {
		return nil, s.mapError(err)
	}
	return s.project(ctx, products)
}

// categoryListings returns the unfiltered projection of a category, read through the listing cache.
// Concurrent misses for one category share a single load.
func (s *catalogService) categoryListings(ctx context.Context, category Category) ([]ProductListing, error) {
	cached, err := s.cache.Get(ctx, category.Slug)
	if err == nil {
		s.metrics.ListingCacheLookup(true)
		return cached, nil
	}
	s.metrics.ListingCacheLookup(false)
	if !errors.Is(err, cache.ErrCacheMiss) {
		s.logger.Warn("listing cache read failed", zap.String("category", category.Slug), zap.Error(err))
	}

	value, err, _ := s.loads.Do(category.Slug, func() (any, error) {
		products, err := s.products.List(ctx, repositories.ProductFilter{CategoryID: category.ID, Status: domain.ProductStatusActive})
		if err != nil {
			return nil, s.mapError(err)
		}
		listings, err := s.project(ctx, products)
		if err != nil {
			return nil, err
		}
		if err := s.cache.Set(ctx, category.Slug, listings); err != nil {
			s.logger.Warn("listing cache write failed", zap.String("category", category.Slug), zap.Error(err))
		}
		return listings, nil
	})
	if err != nil {
		return nil, err
	}
	return append([]ProductListing(nil), value.([]ProductListing)...), nil
}

func (s *catalogService) project(ctx context.Context, products []Product) ([]ProductListing, error) {
	ids := make([]string, 0, len(products))
	for _, product := range products {
		ids = append(ids, product.ID)
	}
	summaries := map[string]RatingSummary{}
	if len(ids) > 0 {
		var err error
		summaries, err = s.reviews.Summaries(ctx, ids)
		if err != nil {
			return nil, s.mapError(err)
		}
	}

	out := make([]ProductListing, 0, len(products))
	for _, product := range products {
		summary := summaries[product.ID]
		out = append(out, ProductListing{
			ID:          product.ID,
			Slug:        product.Slug,
			Name:        product.Name,
			Price:       product.Price,
			SalePrice:   product.SalePrice,
			Image:       product.PrimaryImage(),
			Rating:      summary.Average,
			ReviewCount: summary.Count,
			Stock:       product.Stock,
			Status:      product.Status,
		})
	}
	return out, nil
}

func (s *catalogService) activeCategory(ctx context.Context, slug string) (Category, error) {
	category, err := s.categories.FindBySlug(ctx, strings.TrimSpace(slug))
	if err != nil {
		return Category{}, s.mapError(err)
	}
	if !category.IsActive {
		return Category{}, fmt.Errorf("%w: category %s is inactive", ErrCatalogNotFound, slug)
	}
	return category, nil
}

func (s *catalogService) renderDescription(description string) string {
	if strings.TrimSpace(description) == "" {
		return ""
	}
	var buf bytes.Buffer
	if err := s.markdown.Convert([]byte(description), &buf); err != nil {
		s.logger.Warn("product description render failed", zap.Error(err))
		return s.policy.Sanitize(description)
	}
	return strings.TrimSpace(string(s.policy.SanitizeBytes(buf.Bytes())))
}

func (s *catalogService) mapError(err error) error {
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		switch {
		case repoErr.IsNotFound():
			return fmt.Errorf("%w: %v", ErrCatalogNotFound, err)
		case repoErr.IsUnavailable():
			return fmt.Errorf("%w: %v", ErrCatalogUnavailable, err)
		}
	}
	return err
}

func summarizeReviews(reviews []Review) RatingSummary {
	if len(reviews) == 0 {
		return RatingSummary{}
	}
	total := 0
	for _, review := range reviews {
		total += review.Rating
	}
	return RatingSummary{Average: float64(total) / float64(len(reviews)), Count: len(reviews)}
}

func isRepoNotFound(err error) bool {
	var repoErr repositories.RepositoryError
	return errors.As(err, &repoErr) && repoErr.IsNotFound()
}
