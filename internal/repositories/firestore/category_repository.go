package firestore

import (
	"context"
	"strings"
	"time"

	"cloud.google.com/go/firestore"

	"github.com/sicommerce/storefront/internal/domain"
	pfirestore "github.com/sicommerce/storefront/internal/platform/firestore"
)

type categoryDocument struct {
	Name        string    `firestore:"name"`
	Description string    `firestore:"description"`
	Slug        string    `firestore:"slug"`
	Image       string    `firestore:"image,omitempty"`
	IsActive    bool      `firestore:"isActive"`
	CreatedAt   time.Time `firestore:"createdAt"`
	UpdatedAt   time.Time `firestore:"updatedAt"`
}

// CategoryRepository persists categories; slugs are unique.
type CategoryRepository struct {
	base  *pfirestore.BaseRepository[categoryDocument]
	now   func() time.Time
	newID func() string
}

func (r *CategoryRepository) List(ctx context.Context) ([]domain.Category, error) {
	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		return q.OrderBy("createdAt", firestore.Asc)
	})
	if err != nil {
		return nil, err
	}
	out := make([]domain.Category, 0, len(docs))
	for _, doc := range docs {
		out = append(out, categoryFromDocument(doc))
	}
	return out, nil
}

func (r *CategoryRepository) FindBySlug(ctx context.Context, slug string) (domain.Category, error) {
	doc, err := r.base.First(ctx, "category "+slug, func(q firestore.Query) firestore.Query {
		return q.Where("slug", "==", strings.TrimSpace(slug))
	})
	if err != nil {
		return domain.Category{}, err
	}
	return categoryFromDocument(doc), nil
}

func (r *CategoryRepository) FindByID(ctx context.Context, id string) (domain.Category, error) {
	doc, err := r.base.Get(ctx, id)
	if err != nil {
		return domain.Category{}, err
	}
	return categoryFromDocument(doc), nil
}

func (r *CategoryRepository) Upsert(ctx context.Context, category domain.Category) (domain.Category, error) {
	now := r.now()
	existing, err := r.FindBySlug(ctx, category.Slug)
	switch {
	case err == nil:
		category.ID = existing.ID
		category.CreatedAt = existing.CreatedAt
	case isNotFound(err):
		if category.ID == "" {
			category.ID = r.newID()
		}
		category.CreatedAt = now
	default:
		return domain.Category{}, err
	}
	category.UpdatedAt = now

	doc := categoryDocument{
		Name:        category.Name,
		Description: category.Description,
		Slug:        category.Slug,
		Image:       category.Image,
		IsActive:    category.IsActive,
		CreatedAt:   category.CreatedAt,
		UpdatedAt:   category.UpdatedAt,
	}
	if err := r.base.Set(ctx, category.ID, doc); err != nil {
		return domain.Category{}, err
	}
	return category, nil
}

func categoryFromDocument(doc pfirestore.Document[categoryDocument]) domain.Category {
	return domain.Category{
		ID:          doc.ID,
		Name:        doc.Data.Name,
		Description: doc.Data.Description,
		Slug:        doc.Data.Slug,
		Image:       doc.Data.Image,
		IsActive:    doc.Data.IsActive,
		CreatedAt:   doc.Data.CreatedAt,
		UpdatedAt:   doc.Data.UpdatedAt,
	}
}
