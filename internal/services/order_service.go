package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/mail"
	"sort"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/sicommerce/storefront/internal/domain"
	"github.com/sicommerce/storefront/internal/platform/observability"
	"github.com/sicommerce/storefront/internal/platform/requestctx"
)

const (
	orderIDPrefix = "ord_"

	// OrderEmptyMessage is shown when a checkout has nothing to purchase.
	OrderEmptyMessage = "주문할 상품이 없습니다."
	// OrderCompletedMessage is shown after an accepted checkout.
	OrderCompletedMessage = "주문이 완료되었습니다!"
	orderRedirectTo       = "/"
)

var (
	// ErrOrderEmpty indicates a submission whose draft has no items.
	ErrOrderEmpty = errors.New("order: empty")
	// ErrOrderInvalidInput indicates a customer form that failed validation.
	ErrOrderInvalidInput = errors.New("order: invalid input")
)

// OrderValidationError lists the customer form fields that failed validation.
type OrderValidationError struct {
	Fields map[string]string
}

func (e *OrderValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return fmt.Sprintf("%s: %s", ErrOrderInvalidInput.Error(), strings.Join(names, ", "))
}

func (e *OrderValidationError) Unwrap() error { return ErrOrderInvalidInput }

// ShippingPolicy charges a flat fee below the free-shipping threshold.
type ShippingPolicy struct {
	FreeThreshold int64
	FlatFee       int64
}

// DefaultShippingPolicy is free shipping from 50,000 won, otherwise 3,000 won.
func DefaultShippingPolicy() ShippingPolicy {
	return ShippingPolicy{FreeThreshold: 50000, FlatFee: 3000}
}

// Quote returns the shipping fee for subtotal.
func (p ShippingPolicy) Quote(subtotal int64) int64 {
	if subtotal >= p.FreeThreshold {
		return 0
	}
	return p.FlatFee
}

type directPurchaseItem struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
	Price     int64  `json:"price"`
	Name      string `json:"name"`
	Image     string `json:"image"`
}

// ParseDirectPurchase decodes the checkout items parameter. Every item needs a product ID, a quantity
// of at least one and a non-negative price.
func ParseDirectPurchase(itemsParam string, newID func() string) ([]CartLineItem, error) {
	var raw []directPurchaseItem
	if err := json.Unmarshal([]byte(itemsParam), &raw); err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, errors.New("items must be a JSON array")
	}
	lines := make([]CartLineItem, 0, len(raw))
	for i, item := range raw {
		productID := strings.TrimSpace(item.ProductID)
		if productID == "" {
			return nil, fmt.Errorf("item %d: productId is required", i)
		}
		if item.Quantity < 1 {
			return nil, fmt.Errorf("item %d: quantity must be at least 1", i)
		}
		if item.Price < 0 {
			return nil, fmt.Errorf("item %d: price must not be negative", i)
		}
		lines = append(lines, CartLineItem{
			ID:        newID(),
			ProductID: productID,
			Name:      item.Name,
			Image:     item.Image,
			Price:     item.Price,
			Quantity:  item.Quantity,
		})
	}
	return lines, nil
}

// ResolveOrderSource picks the draft origin: a parseable items parameter is a direct purchase,
// anything else falls back to a snapshot of the cart. The parse error, if any, is returned for
// logging only.
func ResolveOrderSource(itemsParam string, cart *CartStore, newID func() string) (OrderSource, error) {
	if strings.TrimSpace(itemsParam) != "" {
		lines, err := ParseDirectPurchase(itemsParam, newID)
		if err == nil {
			return domain.DirectPurchase{Items: lines}, nil
		}
		return cartCheckout(cart), err
	}
	return cartCheckout(cart), nil
}

func cartCheckout(cart *CartStore) domain.CartCheckout {
	if cart == nil {
		return domain.CartCheckout{}
	}
	return domain.CartCheckout{Items: cart.Items()}
}

// BuildOrderDraft totals the source lines and applies policy.
func BuildOrderDraft(source OrderSource, policy ShippingPolicy) OrderDraft {
	if source == nil {
		source = domain.CartCheckout{}
	}
	items := append([]CartLineItem(nil), source.Lines()...)
	var subtotal int64
	for _, item := range items {
		subtotal += item.LineTotal()
	}
	shipping := policy.Quote(subtotal)
	return OrderDraft{
		Source:   source.Kind(),
		Items:    items,
		Subtotal: subtotal,
		Shipping: shipping,
		Total:    subtotal + shipping,
	}
}

// OrderServiceDeps bundles collaborators required to construct an OrderService.
type OrderServiceDeps struct {
	Shipping    ShippingPolicy
	Notifier    OrderNotifier
	Metrics     Metrics
	Logger      *zap.Logger
	Clock       func() time.Time
	IDGenerator func() string
}

type orderService struct {
	shipping ShippingPolicy
	notifier OrderNotifier
	metrics  Metrics
	logger   *zap.Logger
	clock    func() time.Time
	newID    func() string
	lineID   func() string
}

var _ OrderService = (*orderService)(nil)

// NewOrderService constructs the checkout service. Submitted orders are acknowledged and announced
// but never persisted.
func NewOrderService(deps OrderServiceDeps) (OrderService, error) {
	shipping := deps.Shipping
	if shipping == (ShippingPolicy{}) {
		shipping = DefaultShippingPolicy()
	}
	if shipping.FreeThreshold < 0 || shipping.FlatFee < 0 {
		return nil, errors.New("order service: shipping policy must not be negative")
	}
	metrics := deps.Metrics
	if metrics == nil {
		metrics = noopMetrics{}
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = func() string { return orderIDPrefix + ulid.Make().String() }
	}
	return &orderService{
		shipping: shipping,
		notifier: deps.Notifier,
		metrics:  metrics,
		logger:   logger,
		clock: func() time.Time {
			return clock().UTC()
		},
		newID:  idGen,
		lineID: func() string { return ulid.Make().String() },
	}, nil
}

func (s *orderService) ResolveSource(ctx context.Context, itemsParam string, cart *CartStore) OrderSource {
	source, err := ResolveOrderSource(itemsParam, cart, s.lineID)
	if err != nil {
		s.logger.Debug("checkout items parameter ignored; using cart",
			zap.Error(err),
			zap.String("session", observability.SanitizeSessionID(requestctx.SessionID(ctx))),
		)
	}
	return source
}

func (s *orderService) BuildDraft(source OrderSource) OrderDraft {
	return BuildOrderDraft(source, s.shipping)
}

func (s *orderService) Submit(ctx context.Context, submission OrderSubmission) (OrderAcknowledgement, error) {
	ctx, span := observability.StartSpan(ctx, "OrderService.Submit")
	defer span.End()

	draft := s.BuildDraft(submission.Source)
	span.SetAttributes(attribute.String("order.source", string(draft.Source)), attribute.Int("order.items", len(draft.Items)))
	if draft.Empty() {
		s.metrics.OrderRejected("empty")
		return OrderAcknowledgement{}, ErrOrderEmpty
	}

	customer, err := normalizeCustomerForm(submission.Customer)
	if err != nil {
		s.metrics.OrderRejected("invalid_form")
		return OrderAcknowledgement{}, err
	}

	ack := OrderAcknowledgement{
		ID:         s.newID(),
		Source:     draft.Source,
		Draft:      draft,
		Message:    OrderCompletedMessage,
		RedirectTo: orderRedirectTo,
	}

	s.logger.Info("order submitted",
		zap.String("order_id", ack.ID),
		zap.String("source", string(draft.Source)),
		zap.Int("items", len(draft.Items)),
		zap.Int64("subtotal", draft.Subtotal),
		zap.Int64("shipping", draft.Shipping),
		zap.Int64("total", draft.Total),
		zap.String("payment_method", string(customer.PaymentMethod)),
	)

	if s.notifier != nil {
		if err := s.notifier.NotifyOrderSubmitted(ctx, s.event(ack, customer)); err != nil {
			s.logger.Warn("order notification failed", zap.String("order_id", ack.ID), zap.Error(err))
		}
	}

	if draft.Source == domain.OrderSourceCartCheckout && submission.Cart != nil {
		submission.Cart.Clear()
	}
	s.metrics.OrderSubmitted(draft.Source)
	return ack, nil
}

func (s *orderService) event(ack OrderAcknowledgement, customer CustomerForm) OrderSubmittedEvent {
	items := make([]OrderEventItem, 0, len(ack.Draft.Items))
	for _, item := range ack.Draft.Items {
		items = append(items, OrderEventItem{
			ProductID: item.ProductID,
			Name:      item.Name,
			Price:     item.Price,
			Quantity:  item.Quantity,
		})
	}
	return OrderSubmittedEvent{
		OrderID:       ack.ID,
		Source:        ack.Source,
		Items:         items,
		Subtotal:      ack.Draft.Subtotal,
		Shipping:      ack.Draft.Shipping,
		Total:         ack.Draft.Total,
		CustomerName:  customer.Name,
		CustomerEmail: customer.Email,
		PaymentMethod: customer.PaymentMethod,
		SubmittedAt:   s.clock(),
	}
}

func normalizeCustomerForm(form CustomerForm) (CustomerForm, error) {
	form.Name = strings.TrimSpace(form.Name)
	form.Phone = strings.TrimSpace(form.Phone)
	form.Email = strings.TrimSpace(form.Email)
	form.Address = strings.TrimSpace(form.Address)
	form.DetailAddress = strings.TrimSpace(form.DetailAddress)
	form.ZipCode = strings.TrimSpace(form.ZipCode)
	form.DeliveryMessage = strings.TrimSpace(form.DeliveryMessage)
	if form.PaymentMethod == "" {
		form.PaymentMethod = domain.PaymentMethodCard
	}

	fields := make(map[string]string)
	required := map[string]string{
		"name":    form.Name,
		"phone":   form.Phone,
		"email":   form.Email,
		"address": form.Address,
		"zipCode": form.ZipCode,
	}
	for field, value := range required {
		if value == "" {
			fields[field] = "required"
		}
	}
	if form.Email != "" {
		if addr, err := mail.ParseAddress(form.Email); err != nil || addr.Address != form.Email {
			fields["email"] = "invalid"
		}
	}
	switch form.PaymentMethod {
	case domain.PaymentMethodCard, domain.PaymentMethodBank, domain.PaymentMethodKakaoPay:
	default:
		fields["paymentMethod"] = "unsupported"
	}
	if !form.AgreeTerms {
		fields["agreeTerms"] = "required"
	}
	if len(fields) > 0 {
		return CustomerForm{}, &OrderValidationError{Fields: fields}
	}
	return form, nil
}
