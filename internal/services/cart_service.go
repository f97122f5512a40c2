package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/sicommerce/storefront/internal/repositories"
)

// Cart mutation names recorded by Metrics.CartMutation.
const (
	CartOpAdd    = "add"
	CartOpUpdate = "update"
	CartOpRemove = "remove"
	CartOpClear  = "clear"
)

// CartServiceDeps bundles collaborators required to construct a CartService.
type CartServiceDeps struct {
	Sessions *CartSessions
	Products repositories.ProductRepository
	Shipping ShippingPolicy
	Metrics  Metrics
	Logger   *zap.Logger
}

type cartService struct {
	sessions *CartSessions
	products repositories.ProductRepository
	shipping ShippingPolicy
	metrics  Metrics
	logger   *zap.Logger
}

var _ CartService = (*cartService)(nil)

// NewCartService constructs the session cart service.
func NewCartService(deps CartServiceDeps) (CartService, error) {
	if deps.Sessions == nil {
		return nil, errors.New("cart service: sessions registry is required")
	}
	if deps.Products == nil {
		return nil, errors.New("cart service: product repository is required")
	}
	shipping := deps.Shipping
	if shipping == (ShippingPolicy{}) {
		shipping = DefaultShippingPolicy()
	}
	metrics := deps.Metrics
	if metrics == nil {
		metrics = noopMetrics{}
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &cartService{
		sessions: deps.Sessions,
		products: deps.Products,
		shipping: shipping,
		metrics:  metrics,
		logger:   logger,
	}, nil
}

func (s *cartService) Store(_ context.Context, sessionID string) (*CartStore, error) {
	return s.sessions.Open(sessionID)
}

func (s *cartService) View(ctx context.Context, sessionID string) (CartView, error) {
	store, err := s.Store(ctx, sessionID)
	if err != nil {
		return CartView{}, err
	}
	return s.view(store), nil
}

// AddItem snapshots the product's effective price, name and primary image into the cart. The
// requested quantity is capped at the current stock.
func (s *cartService) AddItem(ctx context.Context, sessionID string, cmd AddCartItemCommand) (CartView, error) {
	productID := strings.TrimSpace(cmd.ProductID)
	if productID == "" {
		return CartView{}, fmt.Errorf("%w: productId is required", ErrCartInvalidInput)
	}
	if cmd.Quantity < 1 {
		return CartView{}, fmt.Errorf("%w: quantity must be at least 1", ErrCartInvalidInput)
	}
	store, err := s.Store(ctx, sessionID)
	if err != nil {
		return CartView{}, err
	}

	product, err := s.products.FindByID(ctx, productID)
	if err != nil {
		return CartView{}, s.mapProductError(err)
	}
	if !product.Purchasable() {
		return CartView{}, ErrCartProductUnavailable
	}

	quantity := cmd.Quantity
	if quantity > product.Stock {
		quantity = product.Stock
	}
	if _, err := store.AddItem(product.ID, quantity, product.EffectivePrice(), product.Name, product.PrimaryImage()); err != nil {
		return CartView{}, err
	}
	s.metrics.CartMutation(CartOpAdd)
	return s.view(store), nil
}

func (s *cartService) UpdateQuantity(ctx context.Context, sessionID string, productID string, quantity int) (CartView, error) {
	store, err := s.Store(ctx, sessionID)
	if err != nil {
		return CartView{}, err
	}
	store.UpdateQuantity(strings.TrimSpace(productID), quantity)
	s.metrics.CartMutation(CartOpUpdate)
	return s.view(store), nil
}

func (s *cartService) RemoveItem(ctx context.Context, sessionID string, productID string) (CartView, error) {
	store, err := s.Store(ctx, sessionID)
	if err != nil {
		return CartView{}, err
	}
	store.RemoveItem(strings.TrimSpace(productID))
	s.metrics.CartMutation(CartOpRemove)
	return s.view(store), nil
}

func (s *cartService) Clear(ctx context.Context, sessionID string) (CartView, error) {
	store, err := s.Store(ctx, sessionID)
	if err != nil {
		return CartView{}, err
	}
	store.Clear()
	s.metrics.CartMutation(CartOpClear)
	return s.view(store), nil
}

func (s *cartService) EndSession(_ context.Context, sessionID string) {
	s.sessions.End(sessionID)
}

func (s *cartService) view(store *CartStore) CartView {
	items := store.Items()
	count := 0
	var subtotal int64
	for _, item := range items {
		count += item.Quantity
		subtotal += item.LineTotal()
	}
	var shipping int64
	if len(items) > 0 {
		shipping = s.shipping.Quote(subtotal)
	}
	return CartView{
		Items:      items,
		ItemCount:  count,
		TotalPrice: subtotal,
		Shipping:   shipping,
		Total:      subtotal + shipping,
	}
}

func (s *cartService) mapProductError(err error) error {
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		switch {
		case repoErr.IsNotFound():
			return ErrCartProductNotFound
		case repoErr.IsUnavailable():
			return fmt.Errorf("%w: %v", ErrCartUnavailable, err)
		}
	}
	s.logger.Error("cart product lookup failed", zap.Error(err))
	return fmt.Errorf("%w: %v", ErrCartUnavailable, err)
}
