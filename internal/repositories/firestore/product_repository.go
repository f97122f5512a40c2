package firestore

import (
	"context"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/firestore"

	"github.com/sicommerce/storefront/internal/domain"
	pfirestore "github.com/sicommerce/storefront/internal/platform/firestore"
	"github.com/sicommerce/storefront/internal/repositories"
)

type productDocument struct {
	CategoryID  string    `firestore:"categoryId"`
	Name        string    `firestore:"name"`
	Description string    `firestore:"description"`
	Slug        string    `firestore:"slug"`
	SKU         string    `firestore:"sku"`
	Price       int64     `firestore:"price"`
	SalePrice   *int64    `firestore:"salePrice"`
	Stock       int       `firestore:"stock"`
	Status      string    `firestore:"status"`
	Images      []string  `firestore:"images"`
	Weight      float64   `firestore:"weight"`
	Dimensions  string    `firestore:"dimensions"`
	IsDigital   bool      `firestore:"isDigital"`
	CreatedAt   time.Time `firestore:"createdAt"`
	UpdatedAt   time.Time `firestore:"updatedAt"`
}

// ProductRepository persists products keyed by product ID.
type ProductRepository struct {
	base *pfirestore.BaseRepository[productDocument]
	now  func() time.Time
}

func (r *ProductRepository) List(ctx context.Context, filter repositories.ProductFilter) ([]domain.Product, error) {
	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		if filter.CategoryID != "" {
			q = q.Where("categoryId", "==", filter.CategoryID)
		}
		if filter.Status != "" {
			q = q.Where("status", "==", string(filter.Status))
		}
		q = q.OrderBy(firestore.DocumentID, firestore.Asc)
		if filter.Limit > 0 {
			q = q.Limit(filter.Limit)
		}
		return q
	})
	if err != nil {
		return nil, err
	}
	out := make([]domain.Product, 0, len(docs))
	for _, doc := range docs {
		out = append(out, productFromDocument(doc))
	}
	return out, nil
}

func (r *ProductRepository) FindByID(ctx context.Context, id string) (domain.Product, error) {
	doc, err := r.base.Get(ctx, id)
	if err != nil {
		return domain.Product{}, err
	}
	return productFromDocument(doc), nil
}

func (r *ProductRepository) FindBySlug(ctx context.Context, slug string) (domain.Product, error) {
	doc, err := r.base.First(ctx, "product "+slug, func(q firestore.Query) firestore.Query {
		return q.Where("slug", "==", strings.TrimSpace(slug))
	})
	if err != nil {
		return domain.Product{}, err
	}
	return productFromDocument(doc), nil
}

func (r *ProductRepository) Upsert(ctx context.Context, product domain.Product) (domain.Product, error) {
	if strings.TrimSpace(product.ID) == "" {
		return domain.Product{}, fmt.Errorf("products.upsert: product id is required")
	}
	if other, err := r.FindBySlug(ctx, product.Slug); err == nil && other.ID != product.ID {
		return domain.Product{}, &slugConflictError{slug: product.Slug}
	} else if err != nil && !isNotFound(err) {
		return domain.Product{}, err
	}

	now := r.now()
	product.CreatedAt = now
	if existing, err := r.FindByID(ctx, product.ID); err == nil {
		product.CreatedAt = existing.CreatedAt
	} else if !isNotFound(err) {
		return domain.Product{}, err
	}
	product.UpdatedAt = now

	doc := productDocument{
		CategoryID:  product.CategoryID,
		Name:        product.Name,
		Description: product.Description,
		Slug:        product.Slug,
		SKU:         product.SKU,
		Price:       product.Price,
		SalePrice:   product.SalePrice,
		Stock:       product.Stock,
		Status:      string(product.Status),
		Images:      product.Images,
		Weight:      product.Weight,
		Dimensions:  product.Dimensions,
		IsDigital:   product.IsDigital,
		CreatedAt:   product.CreatedAt,
		UpdatedAt:   product.UpdatedAt,
	}
	if err := r.base.Set(ctx, product.ID, doc); err != nil {
		return domain.Product{}, err
	}
	return product, nil
}

func (r *ProductRepository) Count(ctx context.Context) (int, error) {
	return r.base.Count(ctx)
}

func productFromDocument(doc pfirestore.Document[productDocument]) domain.Product {
	return domain.Product{
		ID:          doc.ID,
		CategoryID:  doc.Data.CategoryID,
		Name:        doc.Data.Name,
		Description: doc.Data.Description,
		Slug:        doc.Data.Slug,
		SKU:         doc.Data.SKU,
		Price:       doc.Data.Price,
		SalePrice:   doc.Data.SalePrice,
		Stock:       doc.Data.Stock,
		Status:      domain.ProductStatus(doc.Data.Status),
		Images:      doc.Data.Images,
		Weight:      doc.Data.Weight,
		Dimensions:  doc.Data.Dimensions,
		IsDigital:   doc.Data.IsDigital,
		CreatedAt:   doc.Data.CreatedAt,
		UpdatedAt:   doc.Data.UpdatedAt,
	}
}

type slugConflictError struct{ slug string }

func (e *slugConflictError) Error() string {
	return "products.upsert: slug " + e.slug + " already taken"
}

func (e *slugConflictError) IsNotFound() bool    { return false }
func (e *slugConflictError) IsConflict() bool    { return true }
func (e *slugConflictError) IsUnavailable() bool { return false }
