package firestore

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"

	"github.com/sicommerce/storefront/internal/domain"
	pfirestore "github.com/sicommerce/storefront/internal/platform/firestore"
)

// Firestore caps "in" filters at 30 values.
const maxInFilterValues = 30

type reviewDocument struct {
	ProductID  string    `firestore:"productId"`
	UserID     string    `firestore:"userId,omitempty"`
	Author     string    `firestore:"author"`
	Rating     int       `firestore:"rating"`
	Title      string    `firestore:"title,omitempty"`
	Content    string    `firestore:"content"`
	Images     []string  `firestore:"images,omitempty"`
	IsVerified bool      `firestore:"isVerified"`
	CreatedAt  time.Time `firestore:"createdAt"`
}

// ReviewRepository persists product reviews.
type ReviewRepository struct {
	base  *pfirestore.BaseRepository[reviewDocument]
	now   func() time.Time
	newID func() string
}

func (r *ReviewRepository) ListByProduct(ctx context.Context, productID string) ([]domain.Review, error) {
	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		return q.Where("productId", "==", productID).OrderBy("createdAt", firestore.Desc)
	})
	if err != nil {
		return nil, err
	}
	out := make([]domain.Review, 0, len(docs))
	for _, doc := range docs {
		out = append(out, reviewFromDocument(doc))
	}
	return out, nil
}

func (r *ReviewRepository) Summaries(ctx context.Context, productIDs []string) (map[string]domain.RatingSummary, error) {
	sums := make(map[string]int)
	counts := make(map[string]int)
	for start := 0; start < len(productIDs); start += maxInFilterValues {
		end := start + maxInFilterValues
		if end > len(productIDs) {
			end = len(productIDs)
		}
		batch := productIDs[start:end]
		docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
			return q.Where("productId", "in", batch).Select("productId", "rating")
		})
		if err != nil {
			return nil, err
		}
		for _, doc := range docs {
			sums[doc.Data.ProductID] += doc.Data.Rating
			counts[doc.Data.ProductID]++
		}
	}

	out := make(map[string]domain.RatingSummary, len(counts))
	for id, count := range counts {
		out[id] = domain.RatingSummary{Average: float64(sums[id]) / float64(count), Count: count}
	}
	return out, nil
}

func (r *ReviewRepository) Insert(ctx context.Context, review domain.Review) (domain.Review, error) {
	review = r.prepare(review)
	if err := r.base.Create(ctx, review.ID, reviewToDocument(review)); err != nil {
		return domain.Review{}, err
	}
	return review, nil
}

func (r *ReviewRepository) Upsert(ctx context.Context, review domain.Review) (domain.Review, error) {
	review = r.prepare(review)
	if err := r.base.Set(ctx, review.ID, reviewToDocument(review)); err != nil {
		return domain.Review{}, err
	}
	return review, nil
}

func (r *ReviewRepository) prepare(review domain.Review) domain.Review {
	if review.ID == "" {
		review.ID = r.newID()
	}
	if review.CreatedAt.IsZero() {
		review.CreatedAt = r.now()
	}
	return review
}

func reviewToDocument(review domain.Review) reviewDocument {
	return reviewDocument{
		ProductID:  review.ProductID,
		UserID:     review.UserID,
		Author:     review.Author,
		Rating:     review.Rating,
		Title:      review.Title,
		Content:    review.Content,
		Images:     review.Images,
		IsVerified: review.IsVerified,
		CreatedAt:  review.CreatedAt,
	}
}

func reviewFromDocument(doc pfirestore.Document[reviewDocument]) domain.Review {
	return domain.Review{
		ID:         doc.ID,
		ProductID:  doc.Data.ProductID,
		UserID:     doc.Data.UserID,
		Author:     doc.Data.Author,
		Rating:     doc.Data.Rating,
		Title:      doc.Data.Title,
		Content:    doc.Data.Content,
		Images:     doc.Data.Images,
		IsVerified: doc.Data.IsVerified,
		CreatedAt:  doc.Data.CreatedAt,
	}
}
