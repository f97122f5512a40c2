package domain

import (
	"math"
	"time"
)

// PlaceholderProductImage is shown when a product carries no images.
const PlaceholderProductImage = "/placeholder-product.svg"

// ProductStatus captures the sellable state of a product.
type ProductStatus string

const (
	// ProductStatusActive marks products visible in listings.
	ProductStatusActive ProductStatus = "ACTIVE"
	// ProductStatusInactive hides the product from listings.
	ProductStatusInactive ProductStatus = "INACTIVE"
	// ProductStatusOutOfStock marks products that cannot currently be purchased.
	ProductStatusOutOfStock ProductStatus = "OUT_OF_STOCK"
)

// UserRole distinguishes shoppers from administrators.
type UserRole string

const (
	UserRoleUser  UserRole = "USER"
	UserRoleAdmin UserRole = "ADMIN"
)

// OrderStatus enumerates the lifecycle states of a recorded order.
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "PENDING"
	OrderStatusProcessing OrderStatus = "PROCESSING"
	OrderStatusShipped    OrderStatus = "SHIPPED"
	OrderStatusDelivered  OrderStatus = "DELIVERED"
	OrderStatusCancelled  OrderStatus = "CANCELLED"
)

// PaymentStatus tracks settlement of a recorded order.
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "PENDING"
	PaymentStatusCompleted PaymentStatus = "COMPLETED"
	PaymentStatusFailed    PaymentStatus = "FAILED"
)

// Category groups products for browsing.
type Category struct {
	ID          string
	Name        string
	Description string
	Slug        string
	Image       string
	IsActive    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Product is the catalog record for a sellable item. Prices are whole won.
type Product struct {
	ID          string
	CategoryID  string
	Name        string
	Description string
	Slug        string
	SKU         string
	Price       int64
	SalePrice   *int64
	Stock       int
	Status      ProductStatus
	Images      []string
	Weight      float64
	Dimensions  string
	IsDigital   bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// HasDiscount reports whether a sale price below the list price applies.
func (p Product) HasDiscount() bool {
	return hasDiscount(p.Price, p.SalePrice)
}

// EffectivePrice returns the sale price when discounted, otherwise the list price.
func (p Product) EffectivePrice() int64 {
	return effectivePrice(p.Price, p.SalePrice)
}

// DiscountPercent returns the rounded discount percentage, or 0 without a discount.
func (p Product) DiscountPercent() int {
	if !p.HasDiscount() || p.Price <= 0 {
		return 0
	}
	return int(math.Round(float64(p.Price-*p.SalePrice) / float64(p.Price) * 100))
}

// PrimaryImage returns the first image or the placeholder.
func (p Product) PrimaryImage() string {
	if len(p.Images) == 0 || p.Images[0] == "" {
		return PlaceholderProductImage
	}
	return p.Images[0]
}

// Purchasable reports whether the product may be added to a cart.
func (p Product) Purchasable() bool {
	return p.Status == ProductStatusActive && p.Stock > 0
}

// ProductListing is the read projection consumed by the listing pipeline.
type ProductListing struct {
	ID          string
	Slug        string
	Name        string
	Price       int64
	SalePrice   *int64
	Image       string
	Rating      float64
	ReviewCount int
	Stock       int
	Status      ProductStatus
}

// EffectivePrice returns the sale price when discounted, otherwise the list price.
func (l ProductListing) EffectivePrice() int64 {
	return effectivePrice(l.Price, l.SalePrice)
}

func hasDiscount(price int64, sale *int64) bool {
	return sale != nil && *sale < price
}

func effectivePrice(price int64, sale *int64) int64 {
	if hasDiscount(price, sale) {
		return *sale
	}
	return price
}

// RatingSummary aggregates review scores for a product.
type RatingSummary struct {
	Average float64
	Count   int
}

// User is a registered customer or administrator.
type User struct {
	ID        string
	Name      string
	Email     string
	Role      UserRole
	Phone     string
	CreatedAt time.Time
}

// Review captures customer feedback for a product.
type Review struct {
	ID         string
	ProductID  string
	UserID     string
	Author     string
	Rating     int
	Title      string
	Content    string
	Images     []string
	IsVerified bool
	CreatedAt  time.Time
}

// Address is the postal destination attached to recorded orders.
type Address struct {
	FirstName  string
	LastName   string
	Address1   string
	Address2   string
	City       string
	State      string
	PostalCode string
	Country    string
	Phone      string
}

// OrderItem is a product line of a recorded order.
type OrderItem struct {
	ProductID string
	Quantity  int
	Price     int64
	Total     int64
}

// Order is a recorded order shown on the admin dashboard.
type Order struct {
	ID              string
	OrderNumber     string
	UserID          string
	CustomerName    string
	Status          OrderStatus
	PaymentStatus   PaymentStatus
	PaymentMethod   string
	TotalAmount     int64
	ShippingAmount  int64
	TaxAmount       int64
	DiscountAmount  int64
	ShippingAddress Address
	Notes           string
	Items           []OrderItem
	CreatedAt       time.Time
}

// CartLineItem is one product entry of a session cart. Name, Image and Price are snapshots taken when
// the line was first added.
type CartLineItem struct {
	ID        string
	ProductID string
	Name      string
	Image     string
	Price     int64
	Quantity  int
}

// LineTotal returns price multiplied by quantity.
func (i CartLineItem) LineTotal() int64 {
	return i.Price * int64(i.Quantity)
}

// DashboardStats summarises store-wide counters for administrators.
type DashboardStats struct {
	TotalUsers    int
	TotalProducts int
	TotalOrders   int
	TotalRevenue  int64
}

const (
	// HealthStatusOK indicates all dependencies are healthy.
	HealthStatusOK = "ok"
	// HealthStatusDegraded indicates at least one dependency is degraded but service remains running.
	HealthStatusDegraded = "degraded"
	// HealthStatusError indicates the service or a critical dependency is unavailable.
	HealthStatusError = "error"
)

// SystemHealthCheck describes the outcome of an individual dependency probe.
type SystemHealthCheck struct {
	Status    string
	Detail    string
	Error     string
	Latency   time.Duration
	CheckedAt time.Time
}

// SystemHealthReport aggregates dependency status for health endpoints.
type SystemHealthReport struct {
	Status      string
	Checks      map[string]SystemHealthCheck
	Version     string
	CommitSHA   string
	Environment string
	Uptime      time.Duration
	GeneratedAt time.Time
}
