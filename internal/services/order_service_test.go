package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sicommerce/storefront/internal/domain"
)

type recordingNotifier struct {
	mu     sync.Mutex
	events []OrderSubmittedEvent
	err    error
}

func (n *recordingNotifier) NotifyOrderSubmitted(_ context.Context, event OrderSubmittedEvent) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
	return n.err
}

type recordingMetrics struct {
	mu        sync.Mutex
	cartOps   []string
	submitted []domain.OrderSourceKind
	rejected  []string
	hits      int
	misses    int
}

func (m *recordingMetrics) CartMutation(op string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cartOps = append(m.cartOps, op)
}

func (m *recordingMetrics) OrderSubmitted(source domain.OrderSourceKind) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.submitted = append(m.submitted, source)
}

func (m *recordingMetrics) OrderRejected(reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rejected = append(m.rejected, reason)
}

func (m *recordingMetrics) ListingCacheLookup(hit bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if hit {
		m.hits++
	} else {
		m.misses++
	}
}

func validCustomer() CustomerForm {
	return CustomerForm{
		Name:          "홍길동",
		Phone:         "010-1234-5678",
		Email:         "hong@example.com",
		Address:       "서울시 강남구 테헤란로 123",
		DetailAddress: "101호",
		ZipCode:       "06234",
		AgreeTerms:    true,
	}
}

func newTestOrderService(t *testing.T, notifier OrderNotifier, metrics Metrics) OrderService {
	t.Helper()
	svc, err := NewOrderService(OrderServiceDeps{
		Notifier:    notifier,
		Metrics:     metrics,
		Clock:       func() time.Time { return time.Date(2024, 7, 4, 10, 0, 0, 0, time.UTC) },
		IDGenerator: func() string { return "ord_test" },
	})
	if err != nil {
		t.Fatalf("new order service: %v", err)
	}
	return svc
}

func TestShippingPolicyBoundary(t *testing.T) {
	policy := DefaultShippingPolicy()
	tests := []struct {
		subtotal int64
		shipping int64
	}{
		{subtotal: 0, shipping: 3000},
		{subtotal: 49000, shipping: 3000},
		{subtotal: 49999, shipping: 3000},
		{subtotal: 50000, shipping: 0},
		{subtotal: 1490000, shipping: 0},
	}
	for _, tc := range tests {
		if got := policy.Quote(tc.subtotal); got != tc.shipping {
			t.Fatalf("subtotal %d: expected shipping %d, got %d", tc.subtotal, tc.shipping, got)
		}
	}
}

func TestBuildOrderDraftTotals(t *testing.T) {
	under := BuildOrderDraft(domain.CartCheckout{Items: []CartLineItem{
		{ProductID: "A", Price: 24500, Quantity: 2},
	}}, DefaultShippingPolicy())
	if under.Subtotal != 49000 || under.Shipping != 3000 || under.Total != 52000 {
		t.Fatalf("unexpected draft below threshold: %+v", under)
	}

	at := BuildOrderDraft(domain.DirectPurchase{Items: []CartLineItem{
		{ProductID: "A", Price: 25000, Quantity: 2},
	}}, DefaultShippingPolicy())
	if at.Subtotal != 50000 || at.Shipping != 0 || at.Total != 50000 {
		t.Fatalf("unexpected draft at threshold: %+v", at)
	}
	if at.Source != domain.OrderSourceDirectPurchase {
		t.Fatalf("expected direct purchase source, got %s", at.Source)
	}

	empty := BuildOrderDraft(nil, DefaultShippingPolicy())
	if !empty.Empty() || empty.Source != domain.OrderSourceCartCheckout {
		t.Fatalf("expected nil source to draft an empty cart checkout, got %+v", empty)
	}
}

func TestResolveOrderSource(t *testing.T) {
	cart := NewCartStore(sequentialIDs())
	mustAdd(t, cart, "cart-item", 1, 1000)
	newID := sequentialIDs()

	tests := []struct {
		name      string
		param     string
		wantKind  domain.OrderSourceKind
		wantItems []string
		wantErr   bool
	}{
		{name: "absent", param: "", wantKind: domain.OrderSourceCartCheckout, wantItems: []string{"cart-item"}},
		{name: "valid", param: `[{"productId":"p1","quantity":2,"price":1290000,"name":"스마트폰","image":"/p1.png"}]`, wantKind: domain.OrderSourceDirectPurchase, wantItems: []string{"p1"}},
		{name: "empty array", param: `[]`, wantKind: domain.OrderSourceDirectPurchase},
		{name: "invalid json", param: `{not json`, wantKind: domain.OrderSourceCartCheckout, wantItems: []string{"cart-item"}, wantErr: true},
		{name: "object", param: `{"productId":"p1"}`, wantKind: domain.OrderSourceCartCheckout, wantItems: []string{"cart-item"}, wantErr: true},
		{name: "null", param: `null`, wantKind: domain.OrderSourceCartCheckout, wantItems: []string{"cart-item"}, wantErr: true},
		{name: "zero quantity", param: `[{"productId":"p1","quantity":0,"price":1000}]`, wantKind: domain.OrderSourceCartCheckout, wantItems: []string{"cart-item"}, wantErr: true},
		{name: "missing product", param: `[{"quantity":1,"price":1000}]`, wantKind: domain.OrderSourceCartCheckout, wantItems: []string{"cart-item"}, wantErr: true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			source, err := ResolveOrderSource(tc.param, cart, newID)
			if (err != nil) != tc.wantErr {
				t.Fatalf("expected error %v, got %v", tc.wantErr, err)
			}
			if source.Kind() != tc.wantKind {
				t.Fatalf("expected kind %s, got %s", tc.wantKind, source.Kind())
			}
			lines := source.Lines()
			if len(lines) != len(tc.wantItems) {
				t.Fatalf("expected %d lines, got %+v", len(tc.wantItems), lines)
			}
			for i, id := range tc.wantItems {
				if lines[i].ProductID != id {
					t.Fatalf("expected line %d to be %s, got %s", i, id, lines[i].ProductID)
				}
			}
		})
	}
}

func TestResolveSourceSnapshotsCart(t *testing.T) {
	svc := newTestOrderService(t, nil, nil)
	cart := NewCartStore(sequentialIDs())
	mustAdd(t, cart, "A", 1, 1000)

	source := svc.ResolveSource(context.Background(), "", cart)
	mustAdd(t, cart, "B", 1, 2000)

	if len(source.Lines()) != 1 {
		t.Fatalf("expected the source to hold a snapshot of the cart, got %+v", source.Lines())
	}
}

func TestSubmitCartCheckoutClearsCart(t *testing.T) {
	notifier := &recordingNotifier{}
	metrics := &recordingMetrics{}
	svc := newTestOrderService(t, notifier, metrics)

	cart := NewCartStore(sequentialIDs())
	mustAdd(t, cart, "A", 2, 24500)
	source := svc.ResolveSource(context.Background(), "", cart)

	ack, err := svc.Submit(context.Background(), OrderSubmission{Source: source, Customer: validCustomer(), Cart: cart})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if ack.ID != "ord_test" || ack.Message != "주문이 완료되었습니다!" || ack.RedirectTo != "/" {
		t.Fatalf("unexpected acknowledgement %+v", ack)
	}
	if ack.Draft.Total != 52000 || ack.Source != domain.OrderSourceCartCheckout {
		t.Fatalf("unexpected draft %+v", ack.Draft)
	}
	if cart.ItemCount() != 0 {
		t.Fatalf("expected cart checkout to clear the cart")
	}

	if len(notifier.events) != 1 {
		t.Fatalf("expected one notification, got %d", len(notifier.events))
	}
	event := notifier.events[0]
	if event.OrderID != "ord_test" || event.PaymentMethod != domain.PaymentMethodCard || event.Total != 52000 {
		t.Fatalf("unexpected event %+v", event)
	}
	if len(event.Items) != 1 || event.Items[0].Quantity != 2 {
		t.Fatalf("unexpected event items %+v", event.Items)
	}
	if len(metrics.submitted) != 1 || metrics.submitted[0] != domain.OrderSourceCartCheckout {
		t.Fatalf("expected submission metric, got %+v", metrics.submitted)
	}
}

func TestSubmitDirectPurchaseLeavesCartUntouched(t *testing.T) {
	svc := newTestOrderService(t, nil, nil)
	cart := NewCartStore(sequentialIDs())
	mustAdd(t, cart, "A", 1, 1000)

	source := svc.ResolveSource(context.Background(), `[{"productId":"p1","quantity":1,"price":1290000,"name":"스마트폰"}]`, cart)
	ack, err := svc.Submit(context.Background(), OrderSubmission{Source: source, Customer: validCustomer(), Cart: cart})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if ack.Source != domain.OrderSourceDirectPurchase || ack.Draft.Shipping != 0 {
		t.Fatalf("unexpected acknowledgement %+v", ack)
	}
	if cart.ItemCount() != 1 {
		t.Fatalf("expected direct purchase to leave the cart untouched")
	}
}

func TestSubmitEmptyDraftIsRejected(t *testing.T) {
	metrics := &recordingMetrics{}
	notifier := &recordingNotifier{}
	svc := newTestOrderService(t, notifier, metrics)
	cart := NewCartStore(nil)

	_, err := svc.Submit(context.Background(), OrderSubmission{Source: domain.CartCheckout{}, Customer: validCustomer(), Cart: cart})
	if !errors.Is(err, ErrOrderEmpty) {
		t.Fatalf("expected ErrOrderEmpty, got %v", err)
	}
	if OrderEmptyMessage != "주문할 상품이 없습니다." {
		t.Fatalf("unexpected empty order message %q", OrderEmptyMessage)
	}
	if len(notifier.events) != 0 {
		t.Fatalf("expected no notification for an empty order")
	}
	if len(metrics.rejected) != 1 || metrics.rejected[0] != "empty" {
		t.Fatalf("expected rejection metric, got %+v", metrics.rejected)
	}

	_, err = svc.Submit(context.Background(), OrderSubmission{Source: domain.DirectPurchase{}, Customer: validCustomer()})
	if !errors.Is(err, ErrOrderEmpty) {
		t.Fatalf("expected empty direct purchase to be rejected, got %v", err)
	}
}

func TestSubmitValidatesCustomerForm(t *testing.T) {
	svc := newTestOrderService(t, nil, nil)
	cart := NewCartStore(sequentialIDs())
	mustAdd(t, cart, "A", 1, 1000)

	form := validCustomer()
	form.Name = " "
	form.Email = "not-an-email"
	form.PaymentMethod = "bitcoin"
	form.AgreeTerms = false

	_, err := svc.Submit(context.Background(), OrderSubmission{Source: domain.CartCheckout{Items: cart.Items()}, Customer: form, Cart: cart})
	if !errors.Is(err, ErrOrderInvalidInput) {
		t.Fatalf("expected ErrOrderInvalidInput, got %v", err)
	}
	var validation *OrderValidationError
	if !errors.As(err, &validation) {
		t.Fatalf("expected OrderValidationError, got %T", err)
	}
	for _, field := range []string{"name", "email", "paymentMethod", "agreeTerms"} {
		if _, ok := validation.Fields[field]; !ok {
			t.Fatalf("expected field %s to be reported, got %+v", field, validation.Fields)
		}
	}
	if cart.ItemCount() != 1 {
		t.Fatalf("expected a rejected submission to leave the cart untouched")
	}
}

func TestSubmitNotifierFailureDoesNotFailOrder(t *testing.T) {
	notifier := &recordingNotifier{err: errors.New("pubsub down")}
	svc := newTestOrderService(t, notifier, nil)

	source := domain.DirectPurchase{Items: []CartLineItem{{ProductID: "p1", Price: 1000, Quantity: 1}}}
	if _, err := svc.Submit(context.Background(), OrderSubmission{Source: source, Customer: validCustomer()}); err != nil {
		t.Fatalf("expected notifier failure to be logged only, got %v", err)
	}
}

func TestNewOrderServiceRejectsNegativePolicy(t *testing.T) {
	if _, err := NewOrderService(OrderServiceDeps{Shipping: ShippingPolicy{FreeThreshold: -1, FlatFee: 3000}}); err == nil {
		t.Fatalf("expected negative policy to be rejected")
	}
}
