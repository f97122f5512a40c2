package firestore

import (
	"context"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/firestore"

	"github.com/sicommerce/storefront/internal/domain"
	pfirestore "github.com/sicommerce/storefront/internal/platform/firestore"
)

type addressDocument struct {
	FirstName  string `firestore:"firstName"`
	LastName   string `firestore:"lastName"`
	Address1   string `firestore:"address1"`
	Address2   string `firestore:"address2,omitempty"`
	City       string `firestore:"city"`
	State      string `firestore:"state"`
	PostalCode string `firestore:"postalCode"`
	Country    string `firestore:"country"`
	Phone      string `firestore:"phone"`
}

type orderItemDocument struct {
	ProductID string `firestore:"productId"`
	Quantity  int    `firestore:"quantity"`
	Price     int64  `firestore:"price"`
	Total     int64  `firestore:"total"`
}

type orderDocument struct {
	OrderNumber     string              `firestore:"orderNumber"`
	UserID          string              `firestore:"userId"`
	CustomerName    string              `firestore:"customerName"`
	Status          string              `firestore:"status"`
	PaymentStatus   string              `firestore:"paymentStatus"`
	PaymentMethod   string              `firestore:"paymentMethod"`
	TotalAmount     int64               `firestore:"totalAmount"`
	ShippingAmount  int64               `firestore:"shippingAmount"`
	TaxAmount       int64               `firestore:"taxAmount"`
	DiscountAmount  int64               `firestore:"discountAmount"`
	ShippingAddress addressDocument     `firestore:"shippingAddress"`
	Notes           string              `firestore:"notes,omitempty"`
	Items           []orderItemDocument `firestore:"items"`
	CreatedAt       time.Time           `firestore:"createdAt"`
}

// OrderRepository exposes recorded orders. The order number doubles as the document ID.
type OrderRepository struct {
	base *pfirestore.BaseRepository[orderDocument]
	now  func() time.Time
}

func (r *OrderRepository) List(ctx context.Context) ([]domain.Order, error) {
	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		return q.OrderBy("createdAt", firestore.Desc)
	})
	if err != nil {
		return nil, err
	}
	out := make([]domain.Order, 0, len(docs))
	for _, doc := range docs {
		out = append(out, orderFromDocument(doc))
	}
	return out, nil
}

func (r *OrderRepository) Upsert(ctx context.Context, order domain.Order) (domain.Order, error) {
	number := strings.TrimSpace(order.OrderNumber)
	if number == "" {
		return domain.Order{}, fmt.Errorf("orders.upsert: order number is required")
	}
	order.ID = number
	if order.CreatedAt.IsZero() {
		order.CreatedAt = r.now()
	}

	items := make([]orderItemDocument, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, orderItemDocument(item))
	}
	addr := order.ShippingAddress
	doc := orderDocument{
		OrderNumber:     number,
		UserID:          order.UserID,
		CustomerName:    order.CustomerName,
		Status:          string(order.Status),
		PaymentStatus:   string(order.PaymentStatus),
		PaymentMethod:   order.PaymentMethod,
		TotalAmount:     order.TotalAmount,
		ShippingAmount:  order.ShippingAmount,
		TaxAmount:       order.TaxAmount,
		DiscountAmount:  order.DiscountAmount,
		ShippingAddress: addressDocument(addr),
		Notes:           order.Notes,
		Items:           items,
		CreatedAt:       order.CreatedAt,
	}
	if err := r.base.Set(ctx, number, doc); err != nil {
		return domain.Order{}, err
	}
	return order, nil
}

func orderFromDocument(doc pfirestore.Document[orderDocument]) domain.Order {
	items := make([]domain.OrderItem, 0, len(doc.Data.Items))
	for _, item := range doc.Data.Items {
		items = append(items, domain.OrderItem(item))
	}
	return domain.Order{
		ID:              doc.ID,
		OrderNumber:     doc.Data.OrderNumber,
		UserID:          doc.Data.UserID,
		CustomerName:    doc.Data.CustomerName,
		Status:          domain.OrderStatus(doc.Data.Status),
		PaymentStatus:   domain.PaymentStatus(doc.Data.PaymentStatus),
		PaymentMethod:   doc.Data.PaymentMethod,
		TotalAmount:     doc.Data.TotalAmount,
		ShippingAmount:  doc.Data.ShippingAmount,
		TaxAmount:       doc.Data.TaxAmount,
		DiscountAmount:  doc.Data.DiscountAmount,
		ShippingAddress: domain.Address(doc.Data.ShippingAddress),
		Notes:           doc.Data.Notes,
		Items:           items,
		CreatedAt:       doc.Data.CreatedAt,
	}
}
