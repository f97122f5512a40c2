package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/sicommerce/storefront/internal/format"
	"github.com/sicommerce/storefront/internal/platform/httpx"
	"github.com/sicommerce/storefront/internal/services"
)

// AdminHandlers exposes the read-only admin dashboard.
type AdminHandlers struct {
	dashboard services.DashboardService
}

// NewAdminHandlers constructs admin handlers.
func NewAdminHandlers(dashboard services.DashboardService) *AdminHandlers {
	return &AdminHandlers{dashboard: dashboard}
}

// Routes wires the /admin endpoints onto the provided router.
func (h *AdminHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/dashboard", h.overview)
	r.Get("/products", h.listProducts)
	r.Get("/orders", h.listOrders)
}

type dashboardStatsPayload struct {
	TotalUsers            int    `json:"totalUsers"`
	TotalProducts         int    `json:"totalProducts"`
	TotalOrders           int    `json:"totalOrders"`
	TotalRevenue          int64  `json:"totalRevenue"`
	FormattedTotalRevenue string `json:"formattedTotalRevenue"`
}

type adminProductPayload struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Category       string `json:"category"`
	Price          int64  `json:"price"`
	FormattedPrice string `json:"formattedPrice"`
	Stock          int    `json:"stock"`
	Status         string `json:"status"`
	StatusLabel    string `json:"statusLabel"`
}

type adminOrderPayload struct {
	ID             string `json:"id"`
	OrderNumber    string `json:"orderNumber"`
	Customer       string `json:"customer"`
	Date           string `json:"date"`
	CreatedAt      string `json:"createdAt"`
	Total          int64  `json:"total"`
	FormattedTotal string `json:"formattedTotal"`
	Status         string `json:"status"`
	StatusLabel    string `json:"statusLabel"`
}

type dashboardResponse struct {
	Stats    dashboardStatsPayload `json:"stats"`
	Products []adminProductPayload `json:"products"`
	Orders   []adminOrderPayload   `json:"orders"`
}

type adminProductsResponse struct {
	Products []adminProductPayload `json:"products"`
}

type adminOrdersResponse struct {
	Orders []adminOrderPayload `json:"orders"`
}

func (h *AdminHandlers) overview(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !h.ready(ctx, w) {
		return
	}
	overview, err := h.dashboard.Overview(ctx)
	if err != nil {
		writeDashboardError(ctx, w, err)
		return
	}
	revenue := overview.FormattedStats.TotalRevenue
	if revenue == "" {
		revenue = format.KRW(overview.Stats.TotalRevenue)
	}
	writeJSONResponse(w, http.StatusOK, dashboardResponse{
		Stats: dashboardStatsPayload{
			TotalUsers:            overview.Stats.TotalUsers,
			TotalProducts:         overview.Stats.TotalProducts,
			TotalOrders:           overview.Stats.TotalOrders,
			TotalRevenue:          overview.Stats.TotalRevenue,
			FormattedTotalRevenue: revenue,
		},
		Products: buildAdminProducts(overview.Products),
		Orders:   buildAdminOrders(overview.Orders),
	})
}

func (h *AdminHandlers) listProducts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !h.ready(ctx, w) {
		return
	}
	rows, err := h.dashboard.Products(ctx)
	if err != nil {
		writeDashboardError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, adminProductsResponse{Products: buildAdminProducts(rows)})
}

func (h *AdminHandlers) listOrders(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !h.ready(ctx, w) {
		return
	}
	rows, err := h.dashboard.Orders(ctx)
	if err != nil {
		writeDashboardError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, adminOrdersResponse{Orders: buildAdminOrders(rows)})
}

func (h *AdminHandlers) ready(ctx context.Context, w http.ResponseWriter) bool {
	if h.dashboard == nil {
		httpx.WriteError(ctx, w, httpx.NewError("dashboard_unavailable", "dashboard service is unavailable", http.StatusServiceUnavailable))
		return false
	}
	setNoStore(w)
	return true
}

func buildAdminProducts(rows []services.DashboardProductRow) []adminProductPayload {
	out := make([]adminProductPayload, 0, len(rows))
	for _, row := range rows {
		out = append(out, adminProductPayload{
			ID:             row.ID,
			Name:           row.Name,
			Category:       row.CategoryName,
			Price:          row.Price,
			FormattedPrice: row.FormattedPrice,
			Stock:          row.Stock,
			Status:         string(row.Status),
			StatusLabel:    row.StatusLabel,
		})
	}
	return out
}

func buildAdminOrders(rows []services.DashboardOrderRow) []adminOrderPayload {
	out := make([]adminOrderPayload, 0, len(rows))
	for _, row := range rows {
		out = append(out, adminOrderPayload{
			ID:             row.ID,
			OrderNumber:    row.OrderNumber,
			Customer:       row.CustomerName,
			Date:           row.Date,
			CreatedAt:      row.CreatedAt.UTC().Format(time.RFC3339),
			Total:          row.Total,
			FormattedTotal: row.FormattedTotal,
			Status:         string(row.Status),
			StatusLabel:    row.StatusLabel,
		})
	}
	return out
}

func writeDashboardError(ctx context.Context, w http.ResponseWriter, err error) {
	if errors.Is(err, services.ErrDashboardUnavailable) {
		httpx.WriteError(ctx, w, httpx.NewError("dashboard_unavailable", "dashboard is temporarily unavailable", http.StatusServiceUnavailable))
		return
	}
	httpx.WriteError(ctx, w, httpx.NewError("internal_server_error", "failed to load dashboard", http.StatusInternalServerError))
}
