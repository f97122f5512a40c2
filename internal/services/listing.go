package services

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/sicommerce/storefront/internal/domain"
)

// PriceRange names an effective-price band of the category filter.
type PriceRange string

const (
	PriceRangeAny       PriceRange = ""
	PriceRangeUnder500K PriceRange = "under-500000"
	PriceRange500KTo1M  PriceRange = "500000-1000000"
	PriceRange1MTo2M    PriceRange = "1000000-2000000"
	PriceRangeOver2M    PriceRange = "over-2000000"
)

const maxListingRating = 5.0

// ListingSort names one of the listing comparators.
type ListingSort string

const (
	SortRecommended ListingSort = "recommended"
	SortPriceLow    ListingSort = "price-low"
	SortPriceHigh   ListingSort = "price-high"
	SortRating      ListingSort = "rating"
	SortPopular     ListingSort = "popular"
	// SortNewest orders by name until products expose a creation timestamp in the listing projection.
	SortNewest ListingSort = "newest"
)

// ErrListingInvalidQuery indicates an unrecognised price band, sort key or rating bound.
var ErrListingInvalidQuery = errors.New("listing: invalid query")

// ListingQuery configures the filter/sort pipeline.
type ListingQuery struct {
	PriceRange PriceRange
	MinRating  float64
	SortBy     ListingSort
}

// Validate rejects values the pipeline does not recognise. ApplyListing itself tolerates them.
func (q ListingQuery) Validate() error {
	switch q.PriceRange {
	case PriceRangeAny, PriceRangeUnder500K, PriceRange500KTo1M, PriceRange1MTo2M, PriceRangeOver2M:
	default:
		return fmt.Errorf("%w: unknown price range %q", ErrListingInvalidQuery, q.PriceRange)
	}
	switch q.SortBy {
	case "", SortRecommended, SortPriceLow, SortPriceHigh, SortRating, SortPopular, SortNewest:
	default:
		return fmt.Errorf("%w: unknown sort %q", ErrListingInvalidQuery, q.SortBy)
	}
	if math.IsNaN(q.MinRating) || q.MinRating < 0 || q.MinRating > maxListingRating {
		return fmt.Errorf("%w: minRating must be between 0 and 5", ErrListingInvalidQuery)
	}
	return nil
}

// ApplyListing filters products by price band and minimum rating, then sorts the survivors. It never
// mutates the input, and equal elements keep their input order.
func ApplyListing(products []domain.ProductListing, q ListingQuery) []domain.ProductListing {
	out := make([]domain.ProductListing, 0, len(products))
	for _, p := range products {
		if inPriceRange(p.EffectivePrice(), q.PriceRange) && meetsRating(p.Rating, q.MinRating) {
			out = append(out, p)
		}
	}

	var less func(a, b domain.ProductListing) bool
	switch q.SortBy {
	case SortPriceLow:
		less = func(a, b domain.ProductListing) bool { return a.EffectivePrice() < b.EffectivePrice() }
	case SortPriceHigh:
		less = func(a, b domain.ProductListing) bool { return a.EffectivePrice() > b.EffectivePrice() }
	case SortRating:
		less = func(a, b domain.ProductListing) bool { return a.Rating > b.Rating }
	case SortPopular:
		less = func(a, b domain.ProductListing) bool { return a.ReviewCount > b.ReviewCount }
	case SortNewest:
		less = func(a, b domain.ProductListing) bool { return a.Name < b.Name }
	default:
		return out
	}
	sort.SliceStable(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}

func inPriceRange(price int64, band PriceRange) bool {
	switch band {
	case PriceRangeUnder500K:
		return price < 500000
	case PriceRange500KTo1M:
		return price >= 500000 && price < 1000000
	case PriceRange1MTo2M:
		return price >= 1000000 && price < 2000000
	case PriceRangeOver2M:
		return price >= 2000000
	default:
		return true
	}
}

func meetsRating(rating, minRating float64) bool {
	if minRating <= 0 {
		return true
	}
	return rating >= minRating
}
