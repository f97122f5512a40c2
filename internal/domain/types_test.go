package domain

import "testing"

func salePtr(v int64) *int64 { return &v }

func TestProductPricing(t *testing.T) {
	tests := []struct {
		name     string
		product  Product
		price    int64
		discount int
	}{
		{name: "no sale", product: Product{Price: 600000}, price: 600000, discount: 0},
		{name: "discounted", product: Product{Price: 1490000, SalePrice: salePtr(1290000)}, price: 1290000, discount: 13},
		{name: "sale equal to price", product: Product{Price: 30000, SalePrice: salePtr(30000)}, price: 30000, discount: 0},
		{name: "sale above price", product: Product{Price: 30000, SalePrice: salePtr(35000)}, price: 30000, discount: 0},
		{name: "free sale", product: Product{Price: 10000, SalePrice: salePtr(0)}, price: 0, discount: 100},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.product.EffectivePrice(); got != tc.price {
				t.Fatalf("effective price: expected %d, got %d", tc.price, got)
			}
			if got := tc.product.DiscountPercent(); got != tc.discount {
				t.Fatalf("discount: expected %d, got %d", tc.discount, got)
			}
		})
	}
}

func TestProductPrimaryImageAndPurchasable(t *testing.T) {
	p := Product{Status: ProductStatusActive, Stock: 1}
	if p.PrimaryImage() != PlaceholderProductImage {
		t.Fatalf("expected placeholder, got %q", p.PrimaryImage())
	}
	p.Images = []string{"/a.png", "/b.png"}
	if p.PrimaryImage() != "/a.png" {
		t.Fatalf("expected first image, got %q", p.PrimaryImage())
	}
	if !p.Purchasable() {
		t.Fatalf("expected active product with stock to be purchasable")
	}
	p.Stock = 0
	if p.Purchasable() {
		t.Fatalf("expected product without stock to be unavailable")
	}
}

func TestOrderSources(t *testing.T) {
	items := []CartLineItem{{ProductID: "A", Price: 1000, Quantity: 2}}
	var source OrderSource = DirectPurchase{Items: items}
	if source.Kind() != OrderSourceDirectPurchase || len(source.Lines()) != 1 {
		t.Fatalf("unexpected direct purchase source %+v", source)
	}
	source = CartCheckout{}
	if source.Kind() != OrderSourceCartCheckout || len(source.Lines()) != 0 {
		t.Fatalf("unexpected cart checkout source %+v", source)
	}
	if !(OrderDraft{}).Empty() {
		t.Fatalf("expected zero draft to be empty")
	}
	if items[0].LineTotal() != 2000 {
		t.Fatalf("unexpected line total %d", items[0].LineTotal())
	}
}
