package domain

// OrderSourceKind names the origin of the items in an order draft.
type OrderSourceKind string

const (
	// OrderSourceCartCheckout drafts are built from the session cart, which is cleared on submit.
	OrderSourceCartCheckout OrderSourceKind = "cart_checkout"
	// OrderSourceDirectPurchase drafts carry a one-off "buy now" payload and leave the cart untouched.
	OrderSourceDirectPurchase OrderSourceKind = "direct_purchase"
)

// OrderSource is a closed set of draft origins: CartCheckout or DirectPurchase.
type OrderSource interface {
	Kind() OrderSourceKind
	Lines() []CartLineItem
	isOrderSource()
}

// CartCheckout drafts the full contents of the session cart.
type CartCheckout struct {
	Items []CartLineItem
}

func (CartCheckout) Kind() OrderSourceKind   { return OrderSourceCartCheckout }
func (c CartCheckout) Lines() []CartLineItem { return c.Items }
func (CartCheckout) isOrderSource()          {}

// DirectPurchase drafts items passed through the checkout query instead of the cart.
type DirectPurchase struct {
	Items []CartLineItem
}

func (DirectPurchase) Kind() OrderSourceKind   { return OrderSourceDirectPurchase }
func (d DirectPurchase) Lines() []CartLineItem { return d.Items }
func (DirectPurchase) isOrderSource()          {}

// OrderDraft is the unpersisted summary of items to purchase and the payable amounts.
type OrderDraft struct {
	Source   OrderSourceKind
	Items    []CartLineItem
	Subtotal int64
	Shipping int64
	Total    int64
}

// Empty reports whether the draft has nothing to purchase.
func (d OrderDraft) Empty() bool {
	return len(d.Items) == 0
}

// PaymentMethod enumerates the checkout payment choices.
type PaymentMethod string

const (
	PaymentMethodCard     PaymentMethod = "card"
	PaymentMethodBank     PaymentMethod = "bank"
	PaymentMethodKakaoPay PaymentMethod = "kakaopay"
)

// CustomerForm carries the checkout form fields.
type CustomerForm struct {
	Name            string
	Phone           string
	Email           string
	Address         string
	DetailAddress   string
	ZipCode         string
	PaymentMethod   PaymentMethod
	DeliveryMessage string
	AgreeTerms      bool
}
