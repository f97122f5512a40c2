package services

import (
	"errors"
	"math"
	"reflect"
	"testing"

	"github.com/sicommerce/storefront/internal/domain"
)

func int64Ptr(v int64) *int64 { return &v }

func listingFixture() []domain.ProductListing {
	return []domain.ProductListing{
		{ID: "p1", Name: "스마트폰", Price: 1490000, SalePrice: int64Ptr(1290000), Rating: 4.5, ReviewCount: 2},
		{ID: "p2", Name: "노트북", Price: 2000000, Rating: 0, ReviewCount: 0},
		{ID: "p3", Name: "이어폰", Price: 450000, SalePrice: int64Ptr(400000), Rating: 4.0, ReviewCount: 5},
		{ID: "p4", Name: "가방", Price: 600000, Rating: 3.5, ReviewCount: 1},
		{ID: "p5", Name: "책", Price: 25000, Rating: 5.0, ReviewCount: 2},
	}
}

func ids(listings []domain.ProductListing) []string {
	out := make([]string, 0, len(listings))
	for _, l := range listings {
		out = append(out, l.ID)
	}
	return out
}

func TestApplyListingPriceBandsUseEffectivePrice(t *testing.T) {
	tests := []struct {
		band PriceRange
		want []string
	}{
		{band: PriceRangeUnder500K, want: []string{"p3", "p5"}},
		{band: PriceRange500KTo1M, want: []string{"p4"}},
		{band: PriceRange1MTo2M, want: []string{"p1"}},
		{band: PriceRangeOver2M, want: []string{"p2"}},
		{band: PriceRangeAny, want: []string{"p1", "p2", "p3", "p4", "p5"}},
		{band: "unknown-band", want: []string{"p1", "p2", "p3", "p4", "p5"}},
	}
	for _, tc := range tests {
		t.Run(string(tc.band), func(t *testing.T) {
			got := ids(ApplyListing(listingFixture(), ListingQuery{PriceRange: tc.band}))
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("band %q: expected %v, got %v", tc.band, tc.want, got)
			}
		})
	}
}

func TestApplyListingMinRating(t *testing.T) {
	got := ids(ApplyListing(listingFixture(), ListingQuery{MinRating: 4}))
	want := []string{"p1", "p3", "p5"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}

	if got := ApplyListing(listingFixture(), ListingQuery{MinRating: 0}); len(got) != 5 {
		t.Fatalf("expected zero min rating to keep unrated products, got %d", len(got))
	}
}

func TestApplyListingSorts(t *testing.T) {
	tests := []struct {
		sort ListingSort
		want []string
	}{
		{sort: SortRecommended, want: []string{"p1", "p2", "p3", "p4", "p5"}},
		{sort: SortPriceLow, want: []string{"p5", "p3", "p4", "p1", "p2"}},
		{sort: SortPriceHigh, want: []string{"p2", "p1", "p4", "p3", "p5"}},
		{sort: SortRating, want: []string{"p5", "p1", "p3", "p4", "p2"}},
		{sort: SortPopular, want: []string{"p3", "p1", "p5", "p4", "p2"}},
		{sort: SortNewest, want: []string{"p4", "p2", "p1", "p3", "p5"}},
		{sort: "bogus", want: []string{"p1", "p2", "p3", "p4", "p5"}},
	}
	for _, tc := range tests {
		t.Run(string(tc.sort), func(t *testing.T) {
			got := ids(ApplyListing(listingFixture(), ListingQuery{SortBy: tc.sort}))
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("sort %q: expected %v, got %v", tc.sort, tc.want, got)
			}
		})
	}
}

func TestApplyListingPriceHighIsReverseOfPriceLowForDistinctPrices(t *testing.T) {
	low := ids(ApplyListing(listingFixture(), ListingQuery{SortBy: SortPriceLow}))
	high := ids(ApplyListing(listingFixture(), ListingQuery{SortBy: SortPriceHigh}))
	for i := range low {
		if low[i] != high[len(high)-1-i] {
			t.Fatalf("expected price-high %v to reverse price-low %v", high, low)
		}
	}
}

func TestApplyListingStableForTies(t *testing.T) {
	products := []domain.ProductListing{
		{ID: "a", Price: 1000, Rating: 4},
		{ID: "b", Price: 1000, Rating: 4},
		{ID: "c", Price: 500, Rating: 4},
	}
	if got := ids(ApplyListing(products, ListingQuery{SortBy: SortPriceLow})); !reflect.DeepEqual(got, []string{"c", "a", "b"}) {
		t.Fatalf("expected ties to keep input order, got %v", got)
	}
	if got := ids(ApplyListing(products, ListingQuery{SortBy: SortRating})); !reflect.DeepEqual(got, []string{"a", "b", "c"}) {
		t.Fatalf("expected equal ratings to keep input order, got %v", got)
	}
}

func TestApplyListingIsIdempotentAndPure(t *testing.T) {
	input := listingFixture()
	before := listingFixture()
	query := ListingQuery{PriceRange: PriceRangeUnder500K, MinRating: 4, SortBy: SortPriceHigh}

	once := ApplyListing(input, query)
	twice := ApplyListing(once, query)
	if !reflect.DeepEqual(ids(once), ids(twice)) {
		t.Fatalf("expected filtering to be idempotent: %v vs %v", ids(once), ids(twice))
	}
	if !reflect.DeepEqual(input, before) {
		t.Fatalf("expected input slice to be left untouched")
	}
}

func TestApplyListingEmptyInput(t *testing.T) {
	got := ApplyListing(nil, ListingQuery{SortBy: SortPriceLow})
	if got == nil || len(got) != 0 {
		t.Fatalf("expected an empty non-nil slice, got %#v", got)
	}
}

func TestListingQueryValidate(t *testing.T) {
	valid := []ListingQuery{
		{},
		{PriceRange: PriceRangeOver2M, MinRating: 5, SortBy: SortNewest},
		{SortBy: SortRecommended},
	}
	for _, q := range valid {
		if err := q.Validate(); err != nil {
			t.Fatalf("expected %+v to be valid, got %v", q, err)
		}
	}

	invalid := []ListingQuery{
		{PriceRange: "cheap"},
		{SortBy: "random"},
		{MinRating: -1},
		{MinRating: 5.5},
		{MinRating: math.NaN()},
		{MinRating: math.Inf(1)},
	}
	for _, q := range invalid {
		if err := q.Validate(); !errors.Is(err, ErrListingInvalidQuery) {
			t.Fatalf("expected %+v to be rejected, got %v", q, err)
		}
	}
}
