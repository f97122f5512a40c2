package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func newTestReviewService(t *testing.T, f catalogFixture, cache ListingCache, idGen func() string) ReviewService {
	t.Helper()
	svc, err := NewReviewService(ReviewServiceDeps{
		Reviews:     f.registry.Reviews(),
		Products:    f.registry.Products(),
		Categories:  f.registry.Categories(),
		Cache:       cache,
		Clock:       func() time.Time { return time.Date(2024, 6, 1, 9, 0, 0, 0, time.FixedZone("KST", 9*3600)) },
		IDGenerator: idGen,
	})
	if err != nil {
		t.Fatalf("new review service: %v", err)
	}
	return svc
}

func TestReviewServiceCreateSanitisesAndInvalidatesListing(t *testing.T) {
	f := newCatalogFixture(t)
	cache := newStubCache()
	cache.entries["electronics"] = []ProductListing{{ID: "stale"}}
	svc := newTestReviewService(t, f, cache, func() string { return "rev_new" })
	ctx := context.Background()

	created, err := svc.Create(ctx, ReviewInput{
		ProductSlug: " laptop-ultra ",
		Author:      "<i>최</i>고객",
		Rating:      5,
		Title:       " 만족 ",
		Content:     "<b>훌륭</b>해요",
		Images:      []string{" /r1.png ", ""},
	})
	if err != nil {
		t.Fatalf("create review: %v", err)
	}
	if created.ID != "rev_new" || created.ProductID != "p2" {
		t.Fatalf("unexpected review identity %+v", created)
	}
	if created.Author != "최고객" || created.Title != "만족" || created.Content != "훌륭해요" {
		t.Fatalf("expected markup to be stripped, got %+v", created)
	}
	if len(created.Images) != 1 || created.Images[0] != "/r1.png" {
		t.Fatalf("unexpected images %v", created.Images)
	}
	if created.CreatedAt.Location() != time.UTC {
		t.Fatalf("expected UTC timestamp, got %v", created.CreatedAt)
	}
	if len(cache.invalidated) != 1 || cache.invalidated[0] != "electronics" {
		t.Fatalf("expected electronics listing to be invalidated, got %v", cache.invalidated)
	}

	reviews, err := svc.ListByProduct(ctx, "laptop-ultra")
	if err != nil {
		t.Fatalf("list reviews: %v", err)
	}
	if len(reviews) != 2 {
		t.Fatalf("expected the new review alongside the seeded one, got %+v", reviews)
	}
}

func TestReviewServiceCreateKeepsPlainTextUnescaped(t *testing.T) {
	f := newCatalogFixture(t)
	svc := newTestReviewService(t, f, nil, func() string { return "rev_plain" })

	created, err := svc.Create(context.Background(), ReviewInput{
		ProductSlug: "laptop-ultra",
		Author:      "Tom & Jerry",
		Rating:      4,
		Content:     `don't say "5 > 4"`,
	})
	if err != nil {
		t.Fatalf("create review: %v", err)
	}
	if created.Author != "Tom & Jerry" {
		t.Fatalf("expected author to round-trip, got %q", created.Author)
	}
	if created.Content != `don't say "5 > 4"` {
		t.Fatalf("expected content to round-trip, got %q", created.Content)
	}
}

func TestReviewServiceCreateValidation(t *testing.T) {
	f := newCatalogFixture(t)
	svc := newTestReviewService(t, f, nil, nil)
	valid := ReviewInput{ProductSlug: "laptop-ultra", Author: "작성자", Rating: 4, Content: "좋아요"}

	tests := []struct {
		name   string
		mutate func(*ReviewInput)
	}{
		{name: "missing product", mutate: func(in *ReviewInput) { in.ProductSlug = "" }},
		{name: "missing author", mutate: func(in *ReviewInput) { in.Author = "  " }},
		{name: "markup only author", mutate: func(in *ReviewInput) { in.Author = "<b></b>" }},
		{name: "rating too low", mutate: func(in *ReviewInput) { in.Rating = 0 }},
		{name: "rating too high", mutate: func(in *ReviewInput) { in.Rating = 6 }},
		{name: "missing content", mutate: func(in *ReviewInput) { in.Content = "" }},
		{name: "content too long", mutate: func(in *ReviewInput) { in.Content = strings.Repeat("가", maxReviewContent+1) }},
		{name: "too many images", mutate: func(in *ReviewInput) { in.Images = []string{"1", "2", "3", "4", "5", "6"} }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			input := valid
			tc.mutate(&input)
			if _, err := svc.Create(context.Background(), input); !errors.Is(err, ErrReviewInvalidInput) {
				t.Fatalf("expected ErrReviewInvalidInput, got %v", err)
			}
		})
	}
}

func TestReviewServiceCreateUnknownProduct(t *testing.T) {
	f := newCatalogFixture(t)
	svc := newTestReviewService(t, f, nil, nil)

	_, err := svc.Create(context.Background(), ReviewInput{ProductSlug: "missing", Author: "a", Rating: 3, Content: "c"})
	if !errors.Is(err, ErrReviewProductNotFound) {
		t.Fatalf("expected ErrReviewProductNotFound, got %v", err)
	}
	if _, err := svc.ListByProduct(context.Background(), "missing"); !errors.Is(err, ErrReviewProductNotFound) {
		t.Fatalf("expected ErrReviewProductNotFound from list, got %v", err)
	}
}

func TestReviewServiceDuplicateIDConflicts(t *testing.T) {
	f := newCatalogFixture(t)
	svc := newTestReviewService(t, f, nil, func() string { return "rev_dup" })
	input := ReviewInput{ProductSlug: "leather-bag", Author: "a", Rating: 3, Content: "c"}

	if _, err := svc.Create(context.Background(), input); err != nil {
		t.Fatalf("first create: %v", err)
	}
	if _, err := svc.Create(context.Background(), input); !errors.Is(err, ErrReviewConflict) {
		t.Fatalf("expected ErrReviewConflict, got %v", err)
	}
}

func TestReviewServiceDefaultIDsArePrefixed(t *testing.T) {
	f := newCatalogFixture(t)
	svc := newTestReviewService(t, f, nil, nil)

	created, err := svc.Create(context.Background(), ReviewInput{ProductSlug: "leather-bag", Author: "a", Rating: 2, Content: "c"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !strings.HasPrefix(created.ID, reviewIDPrefix) {
		t.Fatalf("expected %q prefix, got %q", reviewIDPrefix, created.ID)
	}

	reviews, err := svc.ListByProduct(context.Background(), "old-shirt")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if reviews == nil || len(reviews) != 0 {
		t.Fatalf("expected an empty non-nil slice, got %#v", reviews)
	}
}
