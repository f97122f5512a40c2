package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sicommerce/storefront/internal/domain"
	"github.com/sicommerce/storefront/internal/repositories"
)

func TestDashboardOverview(t *testing.T) {
	f := newCatalogFixture(t)
	ctx := context.Background()

	for _, email := range []string{"admin@sicommerce.com", "user@example.com"} {
		if _, err := f.registry.Users().Upsert(ctx, domain.User{Email: email}); err != nil {
			t.Fatalf("upsert user: %v", err)
		}
	}
	orders := []domain.Order{
		{OrderNumber: "ORD-001", CustomerName: "김철수", Status: domain.OrderStatusDelivered, TotalAmount: 1290000, CreatedAt: time.Date(2024, 3, 1, 16, 0, 0, 0, time.UTC)},
		{OrderNumber: "ORD-002", CustomerName: "이영희", Status: domain.OrderStatusCancelled, TotalAmount: 400000, CreatedAt: time.Date(2024, 3, 2, 1, 0, 0, 0, time.UTC)},
		{OrderNumber: "ORD-003", CustomerName: "박민수", Status: domain.OrderStatusPending, TotalAmount: 53000, CreatedAt: time.Date(2024, 3, 3, 1, 0, 0, 0, time.UTC)},
	}
	for _, order := range orders {
		if _, err := f.registry.Orders().Upsert(ctx, order); err != nil {
			t.Fatalf("upsert order: %v", err)
		}
	}

	svc, err := NewDashboardService(DashboardServiceDeps{
		Users:      f.registry.Users(),
		Products:   f.registry.Products(),
		Categories: f.registry.Categories(),
		Orders:     f.registry.Orders(),
	})
	if err != nil {
		t.Fatalf("new dashboard service: %v", err)
	}

	overview, err := svc.Overview(ctx)
	if err != nil {
		t.Fatalf("overview: %v", err)
	}
	want := domain.DashboardStats{TotalUsers: 2, TotalProducts: 5, TotalOrders: 3, TotalRevenue: 1343000}
	if overview.Stats != want {
		t.Fatalf("expected stats %+v, got %+v", want, overview.Stats)
	}
	if overview.FormattedStats.TotalRevenue != "₩1,343,000" {
		t.Fatalf("unexpected formatted revenue %q", overview.FormattedStats.TotalRevenue)
	}

	if len(overview.Orders) != 3 || overview.Orders[0].OrderNumber != "ORD-003" {
		t.Fatalf("expected newest order first, got %+v", overview.Orders)
	}
	oldest := overview.Orders[2]
	if oldest.Date != "2024-03-02" || oldest.StatusLabel != "배송완료" || oldest.FormattedTotal != "₩1,290,000" {
		t.Fatalf("unexpected order row %+v", oldest)
	}

	if len(overview.Products) != 5 {
		t.Fatalf("expected every product regardless of status, got %d", len(overview.Products))
	}
	p3 := overview.Products[2]
	if p3.ID != "p3" || p3.CategoryName != "전자제품" || p3.StatusLabel != "품절" || p3.FormattedPrice != "₩450,000" {
		t.Fatalf("unexpected product row %+v", p3)
	}
}

func TestStatusLabel(t *testing.T) {
	tests := map[string]string{
		"ACTIVE":     "활성",
		"INACTIVE":   "비활성",
		"PENDING":    "대기중",
		"PROCESSING": "처리중",
		"SHIPPED":    "배송중",
		"CANCELLED":  "취소됨",
		"REFUNDED":   "REFUNDED",
	}
	for status, want := range tests {
		if got := StatusLabel(status); got != want {
			t.Fatalf("StatusLabel(%q) = %q, want %q", status, got, want)
		}
	}
}

type failingOrders struct {
	repositories.OrderRepository
}

func (failingOrders) List(context.Context) ([]domain.Order, error) {
	return nil, unavailableError{}
}

func TestDashboardOrdersUnavailable(t *testing.T) {
	f := newCatalogFixture(t)
	svc, err := NewDashboardService(DashboardServiceDeps{
		Users:      f.registry.Users(),
		Products:   f.registry.Products(),
		Categories: f.registry.Categories(),
		Orders:     failingOrders{},
	})
	if err != nil {
		t.Fatalf("new dashboard service: %v", err)
	}
	if _, err := svc.Orders(context.Background()); !errors.Is(err, ErrDashboardUnavailable) {
		t.Fatalf("expected ErrDashboardUnavailable, got %v", err)
	}
	if _, err := svc.Overview(context.Background()); !errors.Is(err, ErrDashboardUnavailable) {
		t.Fatalf("expected overview to fail, got %v", err)
	}
}

func TestNewDashboardServiceRequiresRepositories(t *testing.T) {
	if _, err := NewDashboardService(DashboardServiceDeps{}); err == nil {
		t.Fatalf("expected missing repositories to be rejected")
	}
}
