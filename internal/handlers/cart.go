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

const maxCartBodySize = 16 * 1024

// SessionCookieClearer expires the browsing session cookie.
type SessionCookieClearer interface {
	Clear(w http.ResponseWriter)
}

// CartHandlers exposes the session cart endpoints.
type CartHandlers struct {
	carts   services.CartService
	cookies SessionCookieClearer
}

// NewCartHandlers constructs cart handlers. cookies may be nil, in which case ending a session leaves
// the cookie in place.
func NewCartHandlers(carts services.CartService, cookies SessionCookieClearer) *CartHandlers {
	return &CartHandlers{
		carts:   carts,
		cookies: cookies,
	}
}

// Routes wires the /cart endpoints onto the provided router.
func (h *CartHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/", h.getCart)
	r.Delete("/", h.clearCart)
	r.Post("/items", h.addItem)
	r.Put("/items/{productId}", h.updateItem)
	r.Delete("/items/{productId}", h.removeItem)
}

// SessionRoutes wires the /session endpoints onto the provided router.
func (h *CartHandlers) SessionRoutes(r chi.Router) {
	if r == nil {
		return
	}
	r.Delete("/", h.endSession)
}

type cartResponse struct {
	Items     []cartLinePayload `json:"items"`
	ItemCount int               `json:"itemCount"`
	amountsPayload
}

type addCartItemRequest struct {
	ProductID string `json:"productId"`
	Quantity  *int   `json:"quantity"`
}

type updateCartItemRequest struct {
	Quantity *int `json:"quantity"`
}

func (h *CartHandlers) getCart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sessionID, ok := h.begin(ctx, w)
	if !ok {
		return
	}
	view, err := h.carts.View(ctx, sessionID)
	if err != nil {
		writeCartError(ctx, w, err)
		return
	}
	writeCartResponse(w, http.StatusOK, view)
}

func (h *CartHandlers) addItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sessionID, ok := h.begin(ctx, w)
	if !ok {
		return
	}

	var req addCartItemRequest
	if !decodeJSONBody(w, r, maxCartBodySize, &req) {
		return
	}
	quantity := 1
	if req.Quantity != nil {
		quantity = *req.Quantity
	}

	view, err := h.carts.AddItem(ctx, sessionID, services.AddCartItemCommand{
		ProductID: strings.TrimSpace(req.ProductID),
		Quantity:  quantity,
	})
	if err != nil {
		writeCartError(ctx, w, err)
		return
	}
	writeCartResponse(w, http.StatusOK, view)
}

func (h *CartHandlers) updateItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sessionID, ok := h.begin(ctx, w)
	if !ok {
		return
	}

	var req updateCartItemRequest
	if !decodeJSONBody(w, r, maxCartBodySize, &req) {
		return
	}
	if req.Quantity == nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_cart_item", "quantity is required", http.StatusBadRequest))
		return
	}

	view, err := h.carts.UpdateQuantity(ctx, sessionID, chi.URLParam(r, "productId"), *req.Quantity)
	if err != nil {
		writeCartError(ctx, w, err)
		return
	}
	writeCartResponse(w, http.StatusOK, view)
}

func (h *CartHandlers) removeItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sessionID, ok := h.begin(ctx, w)
	if !ok {
		return
	}
	view, err := h.carts.RemoveItem(ctx, sessionID, chi.URLParam(r, "productId"))
	if err != nil {
		writeCartError(ctx, w, err)
		return
	}
	writeCartResponse(w, http.StatusOK, view)
}

func (h *CartHandlers) clearCart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sessionID, ok := h.begin(ctx, w)
	if !ok {
		return
	}
	view, err := h.carts.Clear(ctx, sessionID)
	if err != nil {
		writeCartError(ctx, w, err)
		return
	}
	writeCartResponse(w, http.StatusOK, view)
}

func (h *CartHandlers) endSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sessionID, ok := h.begin(ctx, w)
	if !ok {
		return
	}
	h.carts.EndSession(ctx, sessionID)
	if h.cookies != nil {
		h.cookies.Clear(w)
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *CartHandlers) begin(ctx context.Context, w http.ResponseWriter) (string, bool) {
	if h.carts == nil {
		httpx.WriteError(ctx, w, httpx.NewError("cart_unavailable", "cart service is unavailable", http.StatusServiceUnavailable))
		return "", false
	}
	setNoStore(w)
	return requireSession(ctx, w)
}

func writeCartResponse(w http.ResponseWriter, status int, view services.CartView) {
	writeJSONResponse(w, status, cartResponse{
		Items:          buildCartLines(view.Items),
		ItemCount:      view.ItemCount,
		amountsPayload: buildAmounts(view.TotalPrice, view.Shipping, view.Total),
	})
}

func writeCartError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrCartInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_cart_item", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrCartProductNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("product_not_found", "product not found", http.StatusNotFound))
	case errors.Is(err, services.ErrCartProductUnavailable):
		httpx.WriteError(ctx, w, httpx.NewError("product_unavailable", "product is not available for purchase", http.StatusConflict))
	case errors.Is(err, services.ErrCartUnavailable):
		httpx.WriteError(ctx, w, httpx.NewError("cart_unavailable", "cart is temporarily unavailable", http.StatusServiceUnavailable))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("internal_server_error", "failed to process cart request", http.StatusInternalServerError))
	}
}
