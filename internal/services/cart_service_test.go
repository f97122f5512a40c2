package services

import (
	"context"
	"errors"
	"reflect"
	"testing"
)

func newTestCartService(t *testing.T, f catalogFixture, metrics Metrics) CartService {
	t.Helper()
	svc, err := NewCartService(CartServiceDeps{
		Sessions: NewCartSessions(CartSessionsDeps{IDGenerator: sequentialIDs()}),
		Products: f.registry.Products(),
		Metrics:  metrics,
	})
	if err != nil {
		t.Fatalf("new cart service: %v", err)
	}
	return svc
}

func TestCartServiceAddItemSnapshotsProduct(t *testing.T) {
	f := newCatalogFixture(t)
	svc := newTestCartService(t, f, nil)
	ctx := context.Background()

	view, err := svc.AddItem(ctx, "sess", AddCartItemCommand{ProductID: "p1", Quantity: 2})
	if err != nil {
		t.Fatalf("add item: %v", err)
	}
	if len(view.Items) != 1 {
		t.Fatalf("expected one line, got %+v", view.Items)
	}
	line := view.Items[0]
	if line.Price != 1290000 || line.Name != "스마트폰 Pro Max" || line.Image != "/p1.png" || line.Quantity != 2 {
		t.Fatalf("unexpected snapshot %+v", line)
	}
	if view.ItemCount != 2 || view.TotalPrice != 2580000 || view.Shipping != 0 || view.Total != 2580000 {
		t.Fatalf("unexpected totals %+v", view)
	}
}

func TestCartServiceAddItemClampsToStock(t *testing.T) {
	f := newCatalogFixture(t)
	svc := newTestCartService(t, f, nil)

	view, err := svc.AddItem(context.Background(), "sess", AddCartItemCommand{ProductID: "p2", Quantity: 9})
	if err != nil {
		t.Fatalf("add item: %v", err)
	}
	if view.Items[0].Quantity != 2 {
		t.Fatalf("expected quantity clamped to stock 2, got %d", view.Items[0].Quantity)
	}
}

func TestCartServiceAddItemErrors(t *testing.T) {
	f := newCatalogFixture(t)
	svc := newTestCartService(t, f, nil)
	ctx := context.Background()

	tests := []struct {
		name string
		cmd  AddCartItemCommand
		want error
	}{
		{name: "blank product", cmd: AddCartItemCommand{ProductID: " ", Quantity: 1}, want: ErrCartInvalidInput},
		{name: "zero quantity", cmd: AddCartItemCommand{ProductID: "p1", Quantity: 0}, want: ErrCartInvalidInput},
		{name: "out of stock", cmd: AddCartItemCommand{ProductID: "p3", Quantity: 1}, want: ErrCartProductUnavailable},
		{name: "inactive", cmd: AddCartItemCommand{ProductID: "p5", Quantity: 1}, want: ErrCartProductUnavailable},
		{name: "unknown", cmd: AddCartItemCommand{ProductID: "nope", Quantity: 1}, want: ErrCartProductNotFound},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.AddItem(ctx, "sess", tc.cmd); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}

	view, err := svc.View(ctx, "sess")
	if err != nil {
		t.Fatalf("view: %v", err)
	}
	if len(view.Items) != 0 {
		t.Fatalf("expected rejected adds to leave the cart empty, got %+v", view.Items)
	}
}

func TestCartServiceAddItemUnavailableStore(t *testing.T) {
	svc, err := NewCartService(CartServiceDeps{
		Sessions: NewCartSessions(CartSessionsDeps{}),
		Products: failingProducts{},
	})
	if err != nil {
		t.Fatalf("new cart service: %v", err)
	}
	if _, err := svc.AddItem(context.Background(), "sess", AddCartItemCommand{ProductID: "p1", Quantity: 1}); !errors.Is(err, ErrCartUnavailable) {
		t.Fatalf("expected ErrCartUnavailable, got %v", err)
	}
}

func TestCartServiceMutationsAndShipping(t *testing.T) {
	f := newCatalogFixture(t)
	metrics := &recordingMetrics{}
	svc := newTestCartService(t, f, metrics)
	ctx := context.Background()

	if _, err := svc.AddItem(ctx, "sess", AddCartItemCommand{ProductID: "p4", Quantity: 1}); err != nil {
		t.Fatalf("add p4: %v", err)
	}
	view, err := svc.UpdateQuantity(ctx, "sess", "p4", 3)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if view.TotalPrice != 1800000 || view.ItemCount != 3 {
		t.Fatalf("unexpected view after update %+v", view)
	}

	view, err = svc.RemoveItem(ctx, "sess", "p4")
	if err != nil {
		t.Fatalf("remove: %v", err)
	}
	if len(view.Items) != 0 || view.Shipping != 0 || view.Total != 0 {
		t.Fatalf("expected an empty cart without shipping, got %+v", view)
	}

	if _, err := svc.Clear(ctx, "sess"); err != nil {
		t.Fatalf("clear: %v", err)
	}
	want := []string{CartOpAdd, CartOpUpdate, CartOpRemove, CartOpClear}
	if !reflect.DeepEqual(metrics.cartOps, want) {
		t.Fatalf("expected ops %v, got %v", want, metrics.cartOps)
	}
}

func TestCartServiceShippingBelowThreshold(t *testing.T) {
	f := newCatalogFixture(t)
	svc, err := NewCartService(CartServiceDeps{
		Sessions: NewCartSessions(CartSessionsDeps{}),
		Products: f.registry.Products(),
		Shipping: ShippingPolicy{FreeThreshold: 10_000_000, FlatFee: 3000},
	})
	if err != nil {
		t.Fatalf("new cart service: %v", err)
	}
	view, err := svc.AddItem(context.Background(), "sess", AddCartItemCommand{ProductID: "p4", Quantity: 1})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if view.Shipping != 3000 || view.Total != 603000 {
		t.Fatalf("expected flat fee below the threshold, got %+v", view)
	}
}

func TestCartServiceEndSession(t *testing.T) {
	f := newCatalogFixture(t)
	svc := newTestCartService(t, f, nil)
	ctx := context.Background()

	if _, err := svc.AddItem(ctx, "sess", AddCartItemCommand{ProductID: "p1", Quantity: 1}); err != nil {
		t.Fatalf("add: %v", err)
	}
	svc.EndSession(ctx, "sess")
	view, err := svc.View(ctx, "sess")
	if err != nil {
		t.Fatalf("view: %v", err)
	}
	if view.ItemCount != 0 {
		t.Fatalf("expected the session cart to be discarded, got %+v", view)
	}
}

func TestNewCartServiceRequiresDependencies(t *testing.T) {
	if _, err := NewCartService(CartServiceDeps{}); err == nil {
		t.Fatalf("expected missing sessions to be rejected")
	}
	if _, err := NewCartService(CartServiceDeps{Sessions: NewCartSessions(CartSessionsDeps{})}); err == nil {
		t.Fatalf("expected missing products to be rejected")
	}
}
