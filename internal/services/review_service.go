package services

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/sicommerce/storefront/internal/repositories"
)

const (
	reviewIDPrefix   = "rev_"
	minReviewRating  = 1
	maxReviewRating  = 5
	maxReviewImages  = 5
	maxReviewContent = 2000
)

var (
	// ErrReviewInvalidInput indicates validation failures for review submissions.
	ErrReviewInvalidInput = errors.New("review: invalid input")
	// ErrReviewProductNotFound indicates the reviewed product does not exist.
	ErrReviewProductNotFound = errors.New("review: product not found")
	// ErrReviewConflict signals a duplicate review ID.
	ErrReviewConflict = errors.New("review: conflict")
	// ErrReviewUnavailable indicates the review store could not be reached.
	ErrReviewUnavailable = errors.New("review: unavailable")
)

// ReviewServiceDeps bundles collaborators required to construct a ReviewService.
type ReviewServiceDeps struct {
	Reviews     repositories.ReviewRepository
	Products    repositories.ProductRepository
	Categories  repositories.CategoryRepository
	Cache       ListingCache
	Clock       func() time.Time
	IDGenerator func() string
	Logger      *zap.Logger
}

type reviewService struct {
	reviews    repositories.ReviewRepository
	products   repositories.ProductRepository
	categories repositories.CategoryRepository
	cache      ListingCache
	clock      func() time.Time
	newID      func() string
	logger     *zap.Logger
	policy     *bluemonday.Policy
}

var _ ReviewService = (*reviewService)(nil)

// NewReviewService wires dependencies into a concrete ReviewService implementation.
func NewReviewService(deps ReviewServiceDeps) (ReviewService, error) {
	if deps.Reviews == nil {
		return nil, errors.New("review service: review repository is required")
	}
	if deps.Products == nil {
		return nil, errors.New("review service: product repository is required")
	}
	if deps.Categories == nil {
		return nil, errors.New("review service: category repository is required")
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = func() string {
			return reviewIDPrefix + ulid.Make().String()
		}
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &reviewService{
		reviews:    deps.Reviews,
		products:   deps.Products,
		categories: deps.Categories,
		cache:      deps.Cache,
		clock: func() time.Time {
			return clock().UTC()
		},
		newID:  idGen,
		logger: logger,
		policy: bluemonday.StrictPolicy(),
	}, nil
}

func (s *reviewService) Create(ctx context.Context, input ReviewInput) (Review, error) {
	input, err := s.normalize(input)
	if err != nil {
		return Review{}, err
	}

	product, err := s.products.FindBySlug(ctx, input.ProductSlug)
	if err != nil {
		return Review{}, s.mapProductError(err)
	}

	created, err := s.reviews.Insert(ctx, Review{
		ID:        s.newID(),
		ProductID: product.ID,
		Author:    input.Author,
		Rating:    input.Rating,
		Title:     input.Title,
		Content:   input.Content,
		Images:    input.Images,
		CreatedAt: s.clock(),
	})
	if err != nil {
		return Review{}, s.mapReviewError(err)
	}

	s.invalidateListing(ctx, product.CategoryID)
	return created, nil
}

func (s *reviewService) ListByProduct(ctx context.Context, productSlug string) ([]Review, error) {
	product, err := s.products.FindBySlug(ctx, strings.TrimSpace(productSlug))
	if err != nil {
		return nil, s.mapProductError(err)
	}
	reviews, err := s.reviews.ListByProduct(ctx, product.ID)
	if err != nil {
		return nil, s.mapReviewError(err)
	}
	if reviews == nil {
		reviews = []Review{}
	}
	return reviews, nil
}

func (s *reviewService) normalize(input ReviewInput) (ReviewInput, error) {
	input.ProductSlug = strings.TrimSpace(input.ProductSlug)
	input.Author = s.sanitize(input.Author)
	input.Title = s.sanitize(input.Title)
	input.Content = s.sanitize(input.Content)

	switch {
	case input.ProductSlug == "":
		return ReviewInput{}, fmt.Errorf("%w: product is required", ErrReviewInvalidInput)
	case input.Author == "":
		return ReviewInput{}, fmt.Errorf("%w: author is required", ErrReviewInvalidInput)
	case input.Rating < minReviewRating || input.Rating > maxReviewRating:
		return ReviewInput{}, fmt.Errorf("%w: rating must be between %d and %d", ErrReviewInvalidInput, minReviewRating, maxReviewRating)
	case input.Content == "":
		return ReviewInput{}, fmt.Errorf("%w: content is required", ErrReviewInvalidInput)
	case len([]rune(input.Content)) > maxReviewContent:
		return ReviewInput{}, fmt.Errorf("%w: content must be at most %d characters", ErrReviewInvalidInput, maxReviewContent)
	case len(input.Images) > maxReviewImages:
		return ReviewInput{}, fmt.Errorf("%w: at most %d images are allowed", ErrReviewInvalidInput, maxReviewImages)
	}

	images := make([]string, 0, len(input.Images))
	for _, image := range input.Images {
		if image = strings.TrimSpace(image); image != "" {
			images = append(images, image)
		}
	}
	input.Images = images
	return input, nil
}

// sanitize strips all markup and stores plain text. The policy escapes the text it keeps, so the
// entities are decoded again before persisting.
func (s *reviewService) sanitize(value string) string {
	return strings.TrimSpace(html.UnescapeString(s.policy.Sanitize(strings.TrimSpace(value))))
}

func (s *reviewService) invalidateListing(ctx context.Context, categoryID string) {
	if s.cache == nil || categoryID == "" {
		return
	}
	category, err := s.categories.FindByID(ctx, categoryID)
	if err != nil {
		s.logger.Warn("listing cache invalidation skipped", zap.String("category_id", categoryID), zap.Error(err))
		return
	}
	if err := s.cache.Invalidate(ctx, category.Slug); err != nil {
		s.logger.Warn("listing cache invalidation failed", zap.String("category", category.Slug), zap.Error(err))
	}
}

func (s *reviewService) mapProductError(err error) error {
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		switch {
		case repoErr.IsNotFound():
			return ErrReviewProductNotFound
		case repoErr.IsUnavailable():
			return fmt.Errorf("%w: %v", ErrReviewUnavailable, err)
		}
	}
	return err
}

func (s *reviewService) mapReviewError(err error) error {
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		switch {
		case repoErr.IsConflict():
			return ErrReviewConflict
		case repoErr.IsUnavailable():
			return fmt.Errorf("%w: %v", ErrReviewUnavailable, err)
		}
	}
	return err
}
