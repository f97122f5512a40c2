package services

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/oklog/ulid/v2"

	"github.com/sicommerce/storefront/internal/domain"
)

var (
	// ErrCartInvalidInput indicates a cart mutation with a missing product or a non-positive quantity.
	ErrCartInvalidInput = errors.New("cart: invalid input")
	// ErrCartProductUnavailable indicates the product cannot be purchased right now.
	ErrCartProductUnavailable = errors.New("cart: product unavailable")
	// ErrCartProductNotFound indicates the referenced product does not exist.
	ErrCartProductNotFound = errors.New("cart: product not found")
	// ErrCartUnavailable indicates the catalog backing the cart is unreachable.
	ErrCartUnavailable = errors.New("cart: unavailable")
)

// CartStore holds the line items of one browsing session. Lines are kept in insertion order and at
// most one line exists per product.
type CartStore struct {
	mu    sync.Mutex
	items []domain.CartLineItem
	newID func() string
}

// NewCartStore returns an empty store. A nil idGen falls back to ULIDs.
func NewCartStore(idGen func() string) *CartStore {
	if idGen == nil {
		idGen = func() string { return ulid.Make().String() }
	}
	return &CartStore{newID: idGen}
}

// AddItem appends a line for productID or, when one exists, adds quantity to it. The snapshot fields
// of an existing line are left unchanged. Stock is not checked here.
func (s *CartStore) AddItem(productID string, quantity int, price int64, name, image string) (domain.CartLineItem, error) {
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return domain.CartLineItem{}, fmt.Errorf("%w: product id is required", ErrCartInvalidInput)
	}
	if quantity < 1 {
		return domain.CartLineItem{}, fmt.Errorf("%w: quantity must be at least 1", ErrCartInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if idx := s.indexOf(productID); idx >= 0 {
		s.items[idx].Quantity += quantity
		return s.items[idx], nil
	}

	line := domain.CartLineItem{
		ID:        s.newID(),
		ProductID: productID,
		Name:      name,
		Image:     image,
		Price:     price,
		Quantity:  quantity,
	}
	s.items = append(s.items, line)
	return line, nil
}

// RemoveItem deletes the line for productID. Absent products are ignored.
func (s *CartStore) RemoveItem(productID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removeLocked(productID)
}

// UpdateQuantity replaces the quantity of an existing line. A quantity of zero or less removes the
// line; absent products are ignored.
func (s *CartStore) UpdateQuantity(productID string, quantity int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if quantity <= 0 {
		s.removeLocked(productID)
		return
	}
	if idx := s.indexOf(productID); idx >= 0 {
		s.items[idx].Quantity = quantity
	}
}

// Clear empties the store.
func (s *CartStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = nil
}

// Items returns a copy of the lines in insertion order.
func (s *CartStore) Items() []domain.CartLineItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.CartLineItem, len(s.items))
	copy(out, s.items)
	return out
}

// Line returns the line for productID.
func (s *CartStore) Line(productID string) (domain.CartLineItem, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if idx := s.indexOf(productID); idx >= 0 {
		return s.items[idx], true
	}
	return domain.CartLineItem{}, false
}

// ItemCount sums the quantities of all lines.
func (s *CartStore) ItemCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, item := range s.items {
		count += item.Quantity
	}
	return count
}

// TotalPrice sums price times quantity over all lines.
func (s *CartStore) TotalPrice() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	var total int64
	for _, item := range s.items {
		total += item.LineTotal()
	}
	return total
}

func (s *CartStore) indexOf(productID string) int {
	for i := range s.items {
		if s.items[i].ProductID == productID {
			return i
		}
	}
	return -1
}

func (s *CartStore) removeLocked(productID string) {
	idx := s.indexOf(productID)
	if idx < 0 {
		return
	}
	s.items = append(s.items[:idx], s.items[idx+1:]...)
}
