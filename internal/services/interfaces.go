package services

import (
	"context"
	"time"

	"github.com/sicommerce/storefront/internal/domain"
)

type (
	Category           = domain.Category
	Product            = domain.Product
	ProductListing     = domain.ProductListing
	RatingSummary      = domain.RatingSummary
	Review             = domain.Review
	Order              = domain.Order
	CartLineItem       = domain.CartLineItem
	OrderDraft         = domain.OrderDraft
	OrderSource        = domain.OrderSource
	CustomerForm       = domain.CustomerForm
	SystemHealthReport = domain.SystemHealthReport
)

// CatalogService serves the browsing surfaces: category navigation, category listings, product detail
// and the home page feature list.
type CatalogService interface {
	ListCategories(ctx context.Context) ([]CategorySummary, error)
	CategoryListing(ctx context.Context, slug string, query ListingQuery) (CategoryListing, error)
	ProductDetail(ctx context.Context, slug string) (ProductDetail, error)
	Featured(ctx context.Context, limit int) ([]ProductListing, error)
}

// CartService applies cart mutations to the store bound to a browsing session.
type CartService interface {
	View(ctx context.Context, sessionID string) (CartView, error)
	AddItem(ctx context.Context, sessionID string, cmd AddCartItemCommand) (CartView, error)
	UpdateQuantity(ctx context.Context, sessionID string, productID string, quantity int) (CartView, error)
	RemoveItem(ctx context.Context, sessionID string, productID string) (CartView, error)
	Clear(ctx context.Context, sessionID string) (CartView, error)
	// Store returns the session's cart store, creating it when the session is new.
	Store(ctx context.Context, sessionID string) (*CartStore, error)
	EndSession(ctx context.Context, sessionID string)
}

// OrderService assembles order drafts and acknowledges checkout submissions.
type OrderService interface {
	ResolveSource(ctx context.Context, itemsParam string, cart *CartStore) OrderSource
	BuildDraft(source OrderSource) OrderDraft
	Submit(ctx context.Context, submission OrderSubmission) (OrderAcknowledgement, error)
}

// ReviewService records and lists product reviews.
type ReviewService interface {
	Create(ctx context.Context, input ReviewInput) (Review, error)
	ListByProduct(ctx context.Context, productSlug string) ([]Review, error)
}

// DashboardService builds the read-only admin overview.
type DashboardService interface {
	Overview(ctx context.Context) (DashboardOverview, error)
	Products(ctx context.Context) ([]DashboardProductRow, error)
	Orders(ctx context.Context) ([]DashboardOrderRow, error)
}

// SystemService exposes health and build metadata.
type SystemService interface {
	HealthReport(ctx context.Context) (SystemHealthReport, error)
}

// ListingCache stores the unfiltered listing projection of a category.
type ListingCache interface {
	Get(ctx context.Context, categorySlug string) ([]ProductListing, error)
	Set(ctx context.Context, categorySlug string, listings []ProductListing) error
	Invalidate(ctx context.Context, categorySlug string) error
}

// OrderNotifier receives acknowledged checkout submissions.
type OrderNotifier interface {
	NotifyOrderSubmitted(ctx context.Context, event OrderSubmittedEvent) error
}

// Metrics records business counters. Implementations must be safe for concurrent use.
type Metrics interface {
	CartMutation(op string)
	OrderSubmitted(source domain.OrderSourceKind)
	OrderRejected(reason string)
	ListingCacheLookup(hit bool)
}

type noopMetrics struct{}

func (noopMetrics) CartMutation(string)                   {}
func (noopMetrics) OrderSubmitted(domain.OrderSourceKind) {}
func (noopMetrics) OrderRejected(string)                  {}
func (noopMetrics) ListingCacheLookup(bool)               {}

// CategorySummary pairs a category with the number of its ACTIVE products.
type CategorySummary struct {
	Category
	ProductCount int
}

// CategoryListing is a filtered and sorted category page.
type CategoryListing struct {
	Category Category
	Query    ListingQuery
	// Total counts the category's products before filtering.
	Total    int
	Products []ProductListing
}

// ProductDetail is the product page projection.
type ProductDetail struct {
	Product         Product
	Category        Category
	EffectivePrice  int64
	DiscountPercent int
	PrimaryImage    string
	DescriptionHTML string
	Rating          RatingSummary
	Reviews         []Review
	MaxQuantity     int
}

// AddCartItemCommand requests quantity units of a product.
type AddCartItemCommand struct {
	ProductID string
	Quantity  int
}

// CartView is a read of a cart with derived totals.
type CartView struct {
	Items      []CartLineItem
	ItemCount  int
	TotalPrice int64
	Shipping   int64
	Total      int64
}

// OrderSubmission is a checkout attempt. Cart is cleared only when Source is a cart checkout.
type OrderSubmission struct {
	Source   OrderSource
	Customer CustomerForm
	Cart     *CartStore
}

// OrderAcknowledgement is returned for an accepted checkout.
type OrderAcknowledgement struct {
	ID         string
	Source     domain.OrderSourceKind
	Draft      OrderDraft
	Message    string
	RedirectTo string
}

// OrderSubmittedEvent is published for every accepted checkout.
type OrderSubmittedEvent struct {
	OrderID       string                 `json:"orderId"`
	Source        domain.OrderSourceKind `json:"source"`
	Items         []OrderEventItem       `json:"items"`
	Subtotal      int64                  `json:"subtotal"`
	Shipping      int64                  `json:"shipping"`
	Total         int64                  `json:"total"`
	CustomerName  string                 `json:"customerName"`
	CustomerEmail string                 `json:"customerEmail"`
	PaymentMethod domain.PaymentMethod   `json:"paymentMethod"`
	SubmittedAt   time.Time              `json:"submittedAt"`
}

// OrderEventItem is one line of an OrderSubmittedEvent.
type OrderEventItem struct {
	ProductID string `json:"productId"`
	Name      string `json:"name"`
	Price     int64  `json:"price"`
	Quantity  int    `json:"quantity"`
}

// ReviewInput carries a review submission for the product identified by slug.
type ReviewInput struct {
	ProductSlug string
	Author      string
	Rating      int
	Title       string
	Content     string
	Images      []string
}

// DashboardOverview is the admin landing page.
type DashboardOverview struct {
	Stats          domain.DashboardStats
	FormattedStats DashboardFormattedStats
	Products       []DashboardProductRow
	Orders         []DashboardOrderRow
}

// DashboardFormattedStats holds display strings for monetary stats.
type DashboardFormattedStats struct {
	TotalRevenue string
}

// DashboardProductRow is one row of the admin product table.
type DashboardProductRow struct {
	ID             string
	Name           string
	CategoryName   string
	Price          int64
	FormattedPrice string
	Stock          int
	Status         domain.ProductStatus
	StatusLabel    string
}

// DashboardOrderRow is one row of the admin order table.
type DashboardOrderRow struct {
	ID             string
	OrderNumber    string
	CustomerName   string
	CreatedAt      time.Time
	Date           string
	Total          int64
	FormattedTotal string
	Status         domain.OrderStatus
	StatusLabel    string
}
