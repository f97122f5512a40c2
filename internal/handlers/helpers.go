package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/sicommerce/storefront/internal/format"
	"github.com/sicommerce/storefront/internal/platform/httpx"
	"github.com/sicommerce/storefront/internal/platform/requestctx"
	"github.com/sicommerce/storefront/internal/services"
)

const defaultMaxBodySize = 64 * 1024

var (
	errEmptyBody    = errors.New("request body is required")
	errBodyTooLarge = errors.New("request body too large")
)

func readLimitedBody(r *http.Request, limit int64) ([]byte, error) {
	if r == nil || r.Body == nil {
		return nil, errEmptyBody
	}
	if limit <= 0 {
		limit = defaultMaxBodySize
	}
	reader := io.LimitReader(r.Body, limit+1)
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, err
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, errEmptyBody
	}
	if int64(len(data)) > limit {
		return nil, errBodyTooLarge
	}
	return data, nil
}

// decodeJSONBody reads and unmarshals a bounded JSON body, writing the 400 envelope on failure.
func decodeJSONBody(w http.ResponseWriter, r *http.Request, limit int64, dst any) bool {
	ctx := r.Context()
	body, err := readLimitedBody(r, limit)
	if err != nil {
		switch {
		case errors.Is(err, errEmptyBody):
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "request body is required", http.StatusBadRequest))
		case errors.Is(err, errBodyTooLarge):
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "request body exceeds allowed size", http.StatusBadRequest))
		default:
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		}
		return false
	}
	if err := json.Unmarshal(body, dst); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "invalid JSON payload", http.StatusBadRequest))
		return false
	}
	return true
}

func writeJSONResponse(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func setNoStore(w http.ResponseWriter) {
	w.Header().Set("Cache-Control", "no-store, no-cache, max-age=0, must-revalidate")
	w.Header().Set("Pragma", "no-cache")
}

// requireSession returns the cart session bound by the session middleware.
func requireSession(ctx context.Context, w http.ResponseWriter) (string, bool) {
	id := strings.TrimSpace(requestctx.SessionID(ctx))
	if id == "" {
		httpx.WriteError(ctx, w, httpx.NewError("session_required", "cart session is missing", http.StatusBadRequest))
		return "", false
	}
	return id, true
}

type cartLinePayload struct {
	ID             string `json:"id"`
	ProductID      string `json:"productId"`
	Name           string `json:"name"`
	Image          string `json:"image"`
	Price          int64  `json:"price"`
	FormattedPrice string `json:"formattedPrice"`
	Quantity       int    `json:"quantity"`
	LineTotal      int64  `json:"lineTotal"`
	FormattedTotal string `json:"formattedLineTotal"`
}

func buildCartLines(items []services.CartLineItem) []cartLinePayload {
	lines := make([]cartLinePayload, 0, len(items))
	for _, item := range items {
		lines = append(lines, cartLinePayload{
			ID:             item.ID,
			ProductID:      item.ProductID,
			Name:           item.Name,
			Image:          item.Image,
			Price:          item.Price,
			FormattedPrice: format.KRW(item.Price),
			Quantity:       item.Quantity,
			LineTotal:      item.LineTotal(),
			FormattedTotal: format.KRW(item.LineTotal()),
		})
	}
	return lines
}

type amountsPayload struct {
	Subtotal          int64  `json:"subtotal"`
	Shipping          int64  `json:"shipping"`
	Total             int64  `json:"total"`
	FormattedSubtotal string `json:"formattedSubtotal"`
	FormattedShipping string `json:"formattedShipping"`
	FormattedTotal    string `json:"formattedTotal"`
}

func buildAmounts(subtotal, shipping, total int64) amountsPayload {
	return amountsPayload{
		Subtotal:          subtotal,
		Shipping:          shipping,
		Total:             total,
		FormattedSubtotal: format.KRW(subtotal),
		FormattedShipping: format.KRW(shipping),
		FormattedTotal:    format.KRW(total),
	}
}
