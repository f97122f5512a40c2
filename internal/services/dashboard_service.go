package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sicommerce/storefront/internal/domain"
	"github.com/sicommerce/storefront/internal/format"
	"github.com/sicommerce/storefront/internal/repositories"
)

// ErrDashboardUnavailable indicates the admin overview could not be assembled from the store.
var ErrDashboardUnavailable = errors.New("dashboard: unavailable")

const dashboardDateLayout = "2006-01-02"

var statusLabels = map[string]string{
	string(domain.ProductStatusActive):     "활성",
	string(domain.ProductStatusInactive):   "비활성",
	string(domain.ProductStatusOutOfStock): "품절",
	string(domain.OrderStatusPending):      "대기중",
	string(domain.OrderStatusProcessing):   "처리중",
	string(domain.OrderStatusShipped):      "배송중",
	string(domain.OrderStatusDelivered):    "배송완료",
	string(domain.OrderStatusCancelled):    "취소됨",
}

// StatusLabel returns the Korean display label of a product or order status, or the raw value when
// the status is unknown.
func StatusLabel(status string) string {
	if label, ok := statusLabels[status]; ok {
		return label
	}
	return status
}

// DashboardServiceDeps bundles collaborators required to construct a DashboardService.
type DashboardServiceDeps struct {
	Users      repositories.UserRepository
	Products   repositories.ProductRepository
	Categories repositories.CategoryRepository
	Orders     repositories.OrderRepository
	// Location renders order dates; defaults to Asia/Seoul (UTC+9).
	Location *time.Location
}

type dashboardService struct {
	users      repositories.UserRepository
	products   repositories.ProductRepository
	categories repositories.CategoryRepository
	orders     repositories.OrderRepository
	location   *time.Location
}

var _ DashboardService = (*dashboardService)(nil)

// NewDashboardService constructs the admin overview service.
func NewDashboardService(deps DashboardServiceDeps) (DashboardService, error) {
	if deps.Users == nil || deps.Products == nil || deps.Categories == nil || deps.Orders == nil {
		return nil, errors.New("dashboard service: user, product, category and order repositories are required")
	}
	location := deps.Location
	if location == nil {
		location = time.FixedZone("KST", 9*60*60)
	}
	return &dashboardService{
		users:      deps.Users,
		products:   deps.Products,
		categories: deps.Categories,
		orders:     deps.Orders,
		location:   location,
	}, nil
}

func (s *dashboardService) Overview(ctx context.Context) (DashboardOverview, error) {
	totalUsers, err := s.users.Count(ctx)
	if err != nil {
		return DashboardOverview{}, wrapDashboardError(err)
	}
	totalProducts, err := s.products.Count(ctx)
	if err != nil {
		return DashboardOverview{}, wrapDashboardError(err)
	}
	products, err := s.Products(ctx)
	if err != nil {
		return DashboardOverview{}, err
	}
	orders, err := s.orderRows(ctx)
	if err != nil {
		return DashboardOverview{}, err
	}

	var revenue int64
	for _, order := range orders {
		if order.Status != domain.OrderStatusCancelled {
			revenue += order.Total
		}
	}

	return DashboardOverview{
		Stats: domain.DashboardStats{
			TotalUsers:    totalUsers,
			TotalProducts: totalProducts,
			TotalOrders:   len(orders),
			TotalRevenue:  revenue,
		},
		FormattedStats: DashboardFormattedStats{TotalRevenue: format.KRW(revenue)},
		Products:       products,
		Orders:         orders,
	}, nil
}

func (s *dashboardService) Products(ctx context.Context) ([]DashboardProductRow, error) {
	categories, err := s.categories.List(ctx)
	if err != nil {
		return nil, wrapDashboardError(err)
	}
	names := make(map[string]string, len(categories))
	for _, category := range categories {
		names[category.ID] = category.Name
	}

	products, err := s.products.List(ctx, repositories.ProductFilter{})
	if err != nil {
		return nil, wrapDashboardError(err)
	}
	rows := make([]DashboardProductRow, 0, len(products))
	for _, product := range products {
		rows = append(rows, DashboardProductRow{
			ID:             product.ID,
			Name:           product.Name,
			CategoryName:   names[product.CategoryID],
			Price:          product.Price,
			FormattedPrice: format.KRW(product.Price),
			Stock:          product.Stock,
			Status:         product.Status,
			StatusLabel:    StatusLabel(string(product.Status)),
		})
	}
	return rows, nil
}

func (s *dashboardService) Orders(ctx context.Context) ([]DashboardOrderRow, error) {
	return s.orderRows(ctx)
}

func (s *dashboardService) orderRows(ctx context.Context) ([]DashboardOrderRow, error) {
	orders, err := s.orders.List(ctx)
	if err != nil {
		return nil, wrapDashboardError(err)
	}
	rows := make([]DashboardOrderRow, 0, len(orders))
	for _, order := range orders {
		rows = append(rows, DashboardOrderRow{
			ID:             order.ID,
			OrderNumber:    order.OrderNumber,
			CustomerName:   order.CustomerName,
			CreatedAt:      order.CreatedAt,
			Date:           order.CreatedAt.In(s.location).Format(dashboardDateLayout),
			Total:          order.TotalAmount,
			FormattedTotal: format.KRW(order.TotalAmount),
			Status:         order.Status,
			StatusLabel:    StatusLabel(string(order.Status)),
		})
	}
	return rows, nil
}

func wrapDashboardError(err error) error {
	return fmt.Errorf("%w: %v", ErrDashboardUnavailable, err)
}
