package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sicommerce/storefront/internal/domain"
	"github.com/sicommerce/storefront/internal/platform/httpx"
	"github.com/sicommerce/storefront/internal/services"
)

const maxOrderBodySize = 32 * 1024

// CheckoutHandlers previews order drafts and accepts checkout submissions. The items query parameter
// selects a direct purchase; without it the session cart is used.
type CheckoutHandlers struct {
	carts  services.CartService
	orders services.OrderService
}

// NewCheckoutHandlers constructs checkout handlers.
func NewCheckoutHandlers(carts services.CartService, orders services.OrderService) *CheckoutHandlers {
	return &CheckoutHandlers{
		carts:  carts,
		orders: orders,
	}
}

// Routes wires GET /checkout onto the provided router.
func (h *CheckoutHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/", h.previewDraft)
}

// OrderRoutes wires POST /orders onto the provided router.
func (h *CheckoutHandlers) OrderRoutes(r chi.Router) {
	if r == nil {
		return
	}
	r.Post("/", h.submitOrder)
}

type paymentMethodPayload struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

var paymentMethods = []paymentMethodPayload{
	{Value: string(domain.PaymentMethodCard), Label: "신용카드"},
	{Value: string(domain.PaymentMethodBank), Label: "무통장입금"},
	{Value: string(domain.PaymentMethodKakaoPay), Label: "카카오페이"},
}

type draftPayload struct {
	Source string            `json:"source"`
	Items  []cartLinePayload `json:"items"`
	Empty  bool              `json:"empty"`
	amountsPayload
}

type checkoutResponse struct {
	Draft          draftPayload           `json:"draft"`
	PaymentMethods []paymentMethodPayload `json:"paymentMethods"`
	Message        string                 `json:"message,omitempty"`
}

type submitOrderRequest struct {
	Name            string `json:"name"`
	Phone           string `json:"phone"`
	Email           string `json:"email"`
	Address         string `json:"address"`
	DetailAddress   string `json:"detailAddress"`
	ZipCode         string `json:"zipCode"`
	PaymentMethod   string `json:"paymentMethod"`
	DeliveryMessage string `json:"deliveryMessage"`
	AgreeTerms      bool   `json:"agreeTerms"`
}

type orderAcknowledgementResponse struct {
	OrderID    string       `json:"orderId"`
	Source     string       `json:"source"`
	Message    string       `json:"message"`
	RedirectTo string       `json:"redirectTo"`
	Draft      draftPayload `json:"draft"`
}

func (h *CheckoutHandlers) previewDraft(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	source, _, ok := h.resolve(ctx, w, r)
	if !ok {
		return
	}
	draft := h.orders.BuildDraft(source)
	resp := checkoutResponse{
		Draft:          buildDraftPayload(draft),
		PaymentMethods: paymentMethods,
	}
	if draft.Empty() {
		resp.Message = services.OrderEmptyMessage
	}
	writeJSONResponse(w, http.StatusOK, resp)
}

func (h *CheckoutHandlers) submitOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	source, cart, ok := h.resolve(ctx, w, r)
	if !ok {
		return
	}

	var req submitOrderRequest
	if !decodeJSONBody(w, r, maxOrderBodySize, &req) {
		return
	}

	ack, err := h.orders.Submit(ctx, services.OrderSubmission{
		Source: source,
		Customer: domain.CustomerForm{
			Name:            req.Name,
			Phone:           req.Phone,
			Email:           req.Email,
			Address:         req.Address,
			DetailAddress:   req.DetailAddress,
			ZipCode:         req.ZipCode,
			PaymentMethod:   domain.PaymentMethod(req.PaymentMethod),
			DeliveryMessage: req.DeliveryMessage,
			AgreeTerms:      req.AgreeTerms,
		},
		Cart: cart,
	})
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusCreated, orderAcknowledgementResponse{
		OrderID:    ack.ID,
		Source:     string(ack.Source),
		Message:    ack.Message,
		RedirectTo: ack.RedirectTo,
		Draft:      buildDraftPayload(ack.Draft),
	})
}

// resolve picks the draft source for the request, snapshotting the session cart when no direct
// purchase payload is present. The cart is returned so a cart checkout can clear it.
func (h *CheckoutHandlers) resolve(ctx context.Context, w http.ResponseWriter, r *http.Request) (services.OrderSource, *services.CartStore, bool) {
	if h.carts == nil || h.orders == nil {
		httpx.WriteError(ctx, w, httpx.NewError("checkout_unavailable", "checkout service is unavailable", http.StatusServiceUnavailable))
		return nil, nil, false
	}
	setNoStore(w)
	sessionID, ok := requireSession(ctx, w)
	if !ok {
		return nil, nil, false
	}
	store, err := h.carts.Store(ctx, sessionID)
	if err != nil {
		writeCartError(ctx, w, err)
		return nil, nil, false
	}
	return h.orders.ResolveSource(ctx, r.URL.Query().Get("items"), store), store, true
}

func buildDraftPayload(draft services.OrderDraft) draftPayload {
	return draftPayload{
		Source:         string(draft.Source),
		Items:          buildCartLines(draft.Items),
		Empty:          draft.Empty(),
		amountsPayload: buildAmounts(draft.Subtotal, draft.Shipping, draft.Total),
	}
}

func writeOrderError(ctx context.Context, w http.ResponseWriter, err error) {
	var validation *services.OrderValidationError
	switch {
	case errors.Is(err, services.ErrOrderEmpty):
		httpx.WriteError(ctx, w, httpx.NewError("order_empty", services.OrderEmptyMessage, http.StatusUnprocessableEntity))
	case errors.As(err, &validation):
		fields := make(map[string]any, len(validation.Fields))
		for name, reason := range validation.Fields {
			fields[name] = reason
		}
		httpx.WriteError(ctx, w, httpx.NewError("invalid_order", "order form is invalid", http.StatusBadRequest).
			WithDetails(map[string]any{"fields": fields}))
	case errors.Is(err, services.ErrOrderInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_order", err.Error(), http.StatusBadRequest))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("internal_server_error", "failed to submit order", http.StatusInternalServerError))
	}
}
