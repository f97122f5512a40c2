package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/sicommerce/storefront/internal/platform/httpx"
	"github.com/sicommerce/storefront/internal/services"
)

const maxReviewBodySize = 32 * 1024

// ReviewHandlers exposes product review endpoints.
type ReviewHandlers struct {
	reviews services.ReviewService
}

// NewReviewHandlers constructs review handlers.
func NewReviewHandlers(reviews services.ReviewService) *ReviewHandlers {
	return &ReviewHandlers{reviews: reviews}
}

// Routes wires the review endpoints onto the provided router.
func (h *ReviewHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/products/{slug}/reviews", h.listReviews)
	r.Post("/products/{slug}/reviews", h.createReview)
}

type createReviewRequest struct {
	Author  string   `json:"author"`
	Rating  int      `json:"rating"`
	Title   string   `json:"title"`
	Content string   `json:"content"`
	Images  []string `json:"images"`
}

type reviewListResponse struct {
	Reviews []reviewPayload `json:"reviews"`
}

func (h *ReviewHandlers) listReviews(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.reviews == nil {
		httpx.WriteError(ctx, w, httpx.NewError("review_unavailable", "review service is unavailable", http.StatusServiceUnavailable))
		return
	}
	reviews, err := h.reviews.ListByProduct(ctx, strings.TrimSpace(chi.URLParam(r, "slug")))
	if err != nil {
		writeReviewError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, reviewListResponse{Reviews: buildReviewPayloads(reviews)})
}

func (h *ReviewHandlers) createReview(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.reviews == nil {
		httpx.WriteError(ctx, w, httpx.NewError("review_unavailable", "review service is unavailable", http.StatusServiceUnavailable))
		return
	}

	var req createReviewRequest
	if !decodeJSONBody(w, r, maxReviewBodySize, &req) {
		return
	}

	review, err := h.reviews.Create(ctx, services.ReviewInput{
		ProductSlug: strings.TrimSpace(chi.URLParam(r, "slug")),
		Author:      req.Author,
		Rating:      req.Rating,
		Title:       req.Title,
		Content:     req.Content,
		Images:      req.Images,
	})
	if err != nil {
		writeReviewError(ctx, w, err)
		return
	}

	payload := buildReviewPayloads([]services.Review{review})
	w.Header().Set("Location", "/products/"+chi.URLParam(r, "slug")+"/reviews")
	writeJSONResponse(w, http.StatusCreated, payload[0])
}

func writeReviewError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrReviewInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_review", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrReviewProductNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("product_not_found", "product not found", http.StatusNotFound))
	case errors.Is(err, services.ErrReviewConflict):
		httpx.WriteError(ctx, w, httpx.NewError("review_conflict", "review already exists", http.StatusConflict))
	case errors.Is(err, services.ErrReviewUnavailable):
		httpx.WriteError(ctx, w, httpx.NewError("review_unavailable", "reviews are temporarily unavailable", http.StatusServiceUnavailable))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("internal_server_error", "failed to process review request", http.StatusInternalServerError))
	}
}
