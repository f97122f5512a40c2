package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/sicommerce/storefront/internal/domain"
	"github.com/sicommerce/storefront/internal/format"
	"github.com/sicommerce/storefront/internal/platform/httpx"
	"github.com/sicommerce/storefront/internal/services"
)

const (
	defaultFeaturedLimit = 8
	checkoutPath         = "/checkout"
)

// CatalogHandlers exposes the browsing endpoints: home, categories, listings, product detail and buy-now.
type CatalogHandlers struct {
	catalog       services.CatalogService
	featuredLimit int
}

// CatalogOption customises CatalogHandlers.
type CatalogOption func(*CatalogHandlers)

// WithFeaturedLimit overrides how many products the home page features.
func WithFeaturedLimit(limit int) CatalogOption {
	return func(h *CatalogHandlers) {
		if limit > 0 {
			h.featuredLimit = limit
		}
	}
}

// NewCatalogHandlers constructs catalog handlers.
func NewCatalogHandlers(catalog services.CatalogService, opts ...CatalogOption) *CatalogHandlers {
	h := &CatalogHandlers{catalog: catalog, featuredLimit: defaultFeaturedLimit}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	return h
}

// Routes wires the browsing endpoints onto the provided router.
func (h *CatalogHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/", h.home)
	r.Get("/categories", h.listCategories)
	r.Get("/categories/{slug}/products", h.categoryListing)
	r.Get("/products/{slug}", h.productDetail)
	r.Get("/products/{slug}/buy-now", h.buyNow)
}

type categoryPayload struct {
	ID           string `json:"id"`
	Slug         string `json:"slug"`
	Name         string `json:"name"`
	Description  string `json:"description,omitempty"`
	Image        string `json:"image,omitempty"`
	ProductCount *int   `json:"productCount,omitempty"`
}

type productListingPayload struct {
	ID                     string  `json:"id"`
	Slug                   string  `json:"slug"`
	Name                   string  `json:"name"`
	Price                  int64   `json:"price"`
	SalePrice              *int64  `json:"salePrice,omitempty"`
	EffectivePrice         int64   `json:"effectivePrice"`
	FormattedPrice         string  `json:"formattedPrice"`
	FormattedOriginalPrice string  `json:"formattedOriginalPrice,omitempty"`
	Image                  string  `json:"image"`
	Rating                 float64 `json:"rating"`
	ReviewCount            int     `json:"reviewCount"`
	Stock                  int     `json:"stock"`
	Status                 string  `json:"status"`
}

type homeResponse struct {
	Categories []categoryPayload       `json:"categories"`
	Featured   []productListingPayload `json:"featured"`
}

type categoriesResponse struct {
	Categories []categoryPayload `json:"categories"`
}

type listingQueryPayload struct {
	PriceRange string  `json:"priceRange,omitempty"`
	MinRating  float64 `json:"minRating"`
	Sort       string  `json:"sort"`
}

type categoryListingResponse struct {
	Category categoryPayload         `json:"category"`
	Query    listingQueryPayload     `json:"query"`
	Total    int                     `json:"total"`
	Count    int                     `json:"count"`
	Products []productListingPayload `json:"products"`
}

type reviewPayload struct {
	ID         string   `json:"id"`
	Author     string   `json:"author"`
	Rating     int      `json:"rating"`
	Title      string   `json:"title,omitempty"`
	Content    string   `json:"content"`
	Images     []string `json:"images,omitempty"`
	IsVerified bool     `json:"isVerified"`
	CreatedAt  string   `json:"createdAt"`
}

type productDetailPayload struct {
	ID                     string          `json:"id"`
	Slug                   string          `json:"slug"`
	SKU                    string          `json:"sku"`
	Name                   string          `json:"name"`
	Description            string          `json:"description"`
	DescriptionHTML        string          `json:"descriptionHtml"`
	Price                  int64           `json:"price"`
	SalePrice              *int64          `json:"salePrice,omitempty"`
	EffectivePrice         int64           `json:"effectivePrice"`
	DiscountPercent        int             `json:"discountPercent"`
	FormattedPrice         string          `json:"formattedPrice"`
	FormattedOriginalPrice string          `json:"formattedOriginalPrice,omitempty"`
	Images                 []string        `json:"images"`
	PrimaryImage           string          `json:"primaryImage"`
	Stock                  int             `json:"stock"`
	MaxQuantity            int             `json:"maxQuantity"`
	Status                 string          `json:"status"`
	Purchasable            bool            `json:"purchasable"`
	Weight                 float64         `json:"weight,omitempty"`
	Dimensions             string          `json:"dimensions,omitempty"`
	Category               categoryPayload `json:"category"`
	Rating                 float64         `json:"rating"`
	ReviewCount            int             `json:"reviewCount"`
	Reviews                []reviewPayload `json:"reviews"`
}

type buyNowItem struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
	Price     int64  `json:"price"`
	Name      string `json:"name"`
	Image     string `json:"image"`
}

type buyNowResponse struct {
	Items       []buyNowItem `json:"items"`
	CheckoutURL string       `json:"checkoutUrl"`
}

func (h *CatalogHandlers) home(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		httpx.WriteError(ctx, w, httpx.NewError("catalog_unavailable", "catalog service is unavailable", http.StatusServiceUnavailable))
		return
	}
	categories, err := h.catalog.ListCategories(ctx)
	if err != nil {
		writeCatalogError(ctx, w, err, "category_not_found")
		return
	}
	featured, err := h.catalog.Featured(ctx, h.featuredLimit)
	if err != nil {
		writeCatalogError(ctx, w, err, "product_not_found")
		return
	}
	writeJSONResponse(w, http.StatusOK, homeResponse{
		Categories: buildCategorySummaries(categories),
		Featured:   buildListingPayloads(featured),
	})
}

func (h *CatalogHandlers) listCategories(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		httpx.WriteError(ctx, w, httpx.NewError("catalog_unavailable", "catalog service is unavailable", http.StatusServiceUnavailable))
		return
	}
	categories, err := h.catalog.ListCategories(ctx)
	if err != nil {
		writeCatalogError(ctx, w, err, "category_not_found")
		return
	}
	writeJSONResponse(w, http.StatusOK, categoriesResponse{Categories: buildCategorySummaries(categories)})
}

func (h *CatalogHandlers) categoryListing(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		httpx.WriteError(ctx, w, httpx.NewError("catalog_unavailable", "catalog service is unavailable", http.StatusServiceUnavailable))
		return
	}
	query, err := parseListingQuery(r.URL.Query())
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_listing_query", err.Error(), http.StatusBadRequest))
		return
	}

	listing, err := h.catalog.CategoryListing(ctx, strings.TrimSpace(chi.URLParam(r, "slug")), query)
	if err != nil {
		writeCatalogError(ctx, w, err, "category_not_found")
		return
	}

	sortKey := listing.Query.SortBy
	if sortKey == "" {
		sortKey = services.SortRecommended
	}
	writeJSONResponse(w, http.StatusOK, categoryListingResponse{
		Category: buildCategoryPayload(listing.Category),
		Query: listingQueryPayload{
			PriceRange: string(listing.Query.PriceRange),
			MinRating:  listing.Query.MinRating,
			Sort:       string(sortKey),
		},
		Total:    listing.Total,
		Count:    len(listing.Products),
		Products: buildListingPayloads(listing.Products),
	})
}

func (h *CatalogHandlers) productDetail(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		httpx.WriteError(ctx, w, httpx.NewError("catalog_unavailable", "catalog service is unavailable", http.StatusServiceUnavailable))
		return
	}
	detail, err := h.catalog.ProductDetail(ctx, strings.TrimSpace(chi.URLParam(r, "slug")))
	if err != nil {
		writeCatalogError(ctx, w, err, "product_not_found")
		return
	}
	writeJSONResponse(w, http.StatusOK, buildProductDetailPayload(detail))
}

// buyNow builds the single-item checkout payload for a product and the URL that carries it.
func (h *CatalogHandlers) buyNow(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		httpx.WriteError(ctx, w, httpx.NewError("catalog_unavailable", "catalog service is unavailable", http.StatusServiceUnavailable))
		return
	}

	quantity := 1
	if raw := strings.TrimSpace(r.URL.Query().Get("quantity")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "quantity must be an integer", http.StatusBadRequest))
			return
		}
		quantity = parsed
	}

	detail, err := h.catalog.ProductDetail(ctx, strings.TrimSpace(chi.URLParam(r, "slug")))
	if err != nil {
		writeCatalogError(ctx, w, err, "product_not_found")
		return
	}
	product := detail.Product
	if !product.Purchasable() {
		httpx.WriteError(ctx, w, httpx.NewError("product_unavailable", "product is not available for purchase", http.StatusConflict))
		return
	}

	if quantity < 1 {
		quantity = 1
	}
	if quantity > product.Stock {
		quantity = product.Stock
	}

	items := []buyNowItem{{
		ProductID: product.ID,
		Quantity:  quantity,
		Price:     detail.EffectivePrice,
		Name:      product.Name,
		Image:     detail.PrimaryImage,
	}}
	encoded, err := json.Marshal(items)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("internal_server_error", "failed to encode checkout items", http.StatusInternalServerError))
		return
	}

	writeJSONResponse(w, http.StatusOK, buyNowResponse{
		Items:       items,
		CheckoutURL: checkoutPath + "?" + url.Values{"items": {string(encoded)}}.Encode(),
	})
}

func parseListingQuery(values url.Values) (services.ListingQuery, error) {
	query := services.ListingQuery{
		PriceRange: services.PriceRange(strings.TrimSpace(values.Get("priceRange"))),
		SortBy:     services.ListingSort(strings.TrimSpace(values.Get("sort"))),
	}
	if raw := strings.TrimSpace(values.Get("minRating")); raw != "" {
		rating, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return services.ListingQuery{}, errors.New("minRating must be a number")
		}
		query.MinRating = rating
	}
	if err := query.Validate(); err != nil {
		return services.ListingQuery{}, err
	}
	return query, nil
}

func writeCatalogError(ctx context.Context, w http.ResponseWriter, err error, notFoundCode string) {
	switch {
	case errors.Is(err, services.ErrListingInvalidQuery):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_listing_query", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrCatalogNotFound):
		message := "category not found"
		if notFoundCode == "product_not_found" {
			message = "product not found"
		}
		httpx.WriteError(ctx, w, httpx.NewError(notFoundCode, message, http.StatusNotFound))
	case errors.Is(err, services.ErrCatalogUnavailable):
		httpx.WriteError(ctx, w, httpx.NewError("catalog_unavailable", "catalog is temporarily unavailable", http.StatusServiceUnavailable))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("internal_server_error", "failed to load catalog", http.StatusInternalServerError))
	}
}

func buildCategoryPayload(category domain.Category) categoryPayload {
	return categoryPayload{
		ID:          category.ID,
		Slug:        category.Slug,
		Name:        category.Name,
		Description: category.Description,
		Image:       category.Image,
	}
}

func buildCategorySummaries(summaries []services.CategorySummary) []categoryPayload {
	out := make([]categoryPayload, 0, len(summaries))
	for _, summary := range summaries {
		payload := buildCategoryPayload(summary.Category)
		count := summary.ProductCount
		payload.ProductCount = &count
		out = append(out, payload)
	}
	return out
}

func buildListingPayloads(listings []domain.ProductListing) []productListingPayload {
	out := make([]productListingPayload, 0, len(listings))
	for _, listing := range listings {
		payload := productListingPayload{
			ID:             listing.ID,
			Slug:           listing.Slug,
			Name:           listing.Name,
			Price:          listing.Price,
			SalePrice:      listing.SalePrice,
			EffectivePrice: listing.EffectivePrice(),
			FormattedPrice: format.KRW(listing.EffectivePrice()),
			Image:          listing.Image,
			Rating:         listing.Rating,
			ReviewCount:    listing.ReviewCount,
			Stock:          listing.Stock,
			Status:         string(listing.Status),
		}
		if listing.EffectivePrice() < listing.Price {
			payload.FormattedOriginalPrice = format.KRW(listing.Price)
		}
		out = append(out, payload)
	}
	return out
}

func buildReviewPayloads(reviews []domain.Review) []reviewPayload {
	out := make([]reviewPayload, 0, len(reviews))
	for _, review := range reviews {
		out = append(out, reviewPayload{
			ID:         review.ID,
			Author:     review.Author,
			Rating:     review.Rating,
			Title:      review.Title,
			Content:    review.Content,
			Images:     review.Images,
			IsVerified: review.IsVerified,
			CreatedAt:  review.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	return out
}

func buildProductDetailPayload(detail services.ProductDetail) productDetailPayload {
	product := detail.Product
	images := product.Images
	if images == nil {
		images = []string{}
	}
	payload := productDetailPayload{
		ID:              product.ID,
		Slug:            product.Slug,
		SKU:             product.SKU,
		Name:            product.Name,
		Description:     product.Description,
		DescriptionHTML: detail.DescriptionHTML,
		Price:           product.Price,
		SalePrice:       product.SalePrice,
		EffectivePrice:  detail.EffectivePrice,
		DiscountPercent: detail.DiscountPercent,
		FormattedPrice:  format.KRW(detail.EffectivePrice),
		Images:          images,
		PrimaryImage:    detail.PrimaryImage,
		Stock:           product.Stock,
		MaxQuantity:     detail.MaxQuantity,
		Status:          string(product.Status),
		Purchasable:     product.Purchasable(),
		Weight:          product.Weight,
		Dimensions:      product.Dimensions,
		Category:        buildCategoryPayload(detail.Category),
		Rating:          detail.Rating.Average,
		ReviewCount:     detail.Rating.Count,
		Reviews:         buildReviewPayloads(detail.Reviews),
	}
	if product.HasDiscount() {
		payload.FormattedOriginalPrice = format.KRW(product.Price)
	}
	return payload
}
