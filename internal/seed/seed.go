package seed

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/sicommerce/storefront/internal/domain"
	"github.com/sicommerce/storefront/internal/repositories"
)

//go:embed catalog.yaml
var catalogYAML []byte

// Catalog is the decoded seed data set.
type Catalog struct {
	Categories []CategoryRecord `yaml:"categories"`
	Products   []ProductRecord  `yaml:"products"`
	Users      []UserRecord     `yaml:"users"`
	Reviews    []ReviewRecord   `yaml:"reviews"`
	Orders     []OrderRecord    `yaml:"orders"`
}

type CategoryRecord struct {
	Slug        string `yaml:"slug"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Image       string `yaml:"image"`
	Active      bool   `yaml:"active"`
}

type ProductRecord struct {
	ID          string   `yaml:"id"`
	Category    string   `yaml:"category"`
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	Slug        string   `yaml:"slug"`
	SKU         string   `yaml:"sku"`
	Price       int64    `yaml:"price"`
	SalePrice   *int64   `yaml:"sale_price"`
	Stock       int      `yaml:"stock"`
	Status      string   `yaml:"status"`
	Images      []string `yaml:"images"`
	Weight      float64  `yaml:"weight"`
	Dimensions  string   `yaml:"dimensions"`
	Digital     bool     `yaml:"digital"`
}

type UserRecord struct {
	Email string `yaml:"email"`
	Name  string `yaml:"name"`
	Role  string `yaml:"role"`
	Phone string `yaml:"phone"`
}

type ReviewRecord struct {
	ID        string    `yaml:"id"`
	Product   string    `yaml:"product"`
	User      string    `yaml:"user"`
	Rating    int       `yaml:"rating"`
	Title     string    `yaml:"title"`
	Content   string    `yaml:"content"`
	Images    []string  `yaml:"images"`
	Verified  bool      `yaml:"verified"`
	CreatedAt time.Time `yaml:"created_at"`
}

type OrderRecord struct {
	Number        string          `yaml:"number"`
	User          string          `yaml:"user"`
	Status        string          `yaml:"status"`
	PaymentStatus string          `yaml:"payment_status"`
	PaymentMethod string          `yaml:"payment_method"`
	Total         int64           `yaml:"total"`
	Shipping      int64           `yaml:"shipping"`
	Tax           int64           `yaml:"tax"`
	Discount      int64           `yaml:"discount"`
	Notes         string          `yaml:"notes"`
	CreatedAt     time.Time       `yaml:"created_at"`
	Address       AddressRecord   `yaml:"address"`
	Items         []OrderItemLine `yaml:"items"`
}

type AddressRecord struct {
	FirstName  string `yaml:"first_name"`
	LastName   string `yaml:"last_name"`
	Address1   string `yaml:"address1"`
	Address2   string `yaml:"address2"`
	City       string `yaml:"city"`
	State      string `yaml:"state"`
	PostalCode string `yaml:"postal_code"`
	Country    string `yaml:"country"`
	Phone      string `yaml:"phone"`
}

type OrderItemLine struct {
	Product  string `yaml:"product"`
	Quantity int    `yaml:"quantity"`
	Price    int64  `yaml:"price"`
}

// Load decodes the embedded seed catalog.
func Load() (Catalog, error) {
	return Decode(catalogYAML)
}

// Decode parses a seed catalog document. Unknown keys are rejected.
func Decode(data []byte) (Catalog, error) {
	var catalog Catalog
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&catalog); err != nil {
		return Catalog{}, fmt.Errorf("seed: decode catalog: %w", err)
	}
	if err := catalog.validate(); err != nil {
		return Catalog{}, err
	}
	return catalog, nil
}

func (c Catalog) validate() error {
	categories := make(map[string]struct{}, len(c.Categories))
	for _, category := range c.Categories {
		if strings.TrimSpace(category.Slug) == "" {
			return errors.New("seed: category slug is required")
		}
		categories[category.Slug] = struct{}{}
	}
	products := make(map[string]struct{}, len(c.Products))
	for _, product := range c.Products {
		if strings.TrimSpace(product.ID) == "" {
			return errors.New("seed: product id is required")
		}
		if _, ok := categories[product.Category]; !ok {
			return fmt.Errorf("seed: product %s references unknown category %q", product.ID, product.Category)
		}
		products[product.ID] = struct{}{}
	}
	users := make(map[string]struct{}, len(c.Users))
	for _, user := range c.Users {
		users[strings.ToLower(user.Email)] = struct{}{}
	}
	for _, review := range c.Reviews {
		if _, ok := products[review.Product]; !ok {
			return fmt.Errorf("seed: review %s references unknown product %q", review.ID, review.Product)
		}
		if _, ok := users[strings.ToLower(review.User)]; !ok {
			return fmt.Errorf("seed: review %s references unknown user %q", review.ID, review.User)
		}
	}
	for _, order := range c.Orders {
		if _, ok := users[strings.ToLower(order.User)]; !ok {
			return fmt.Errorf("seed: order %s references unknown user %q", order.Number, order.User)
		}
		for _, item := range order.Items {
			if _, ok := products[item.Product]; !ok {
				return fmt.Errorf("seed: order %s references unknown product %q", order.Number, item.Product)
			}
		}
	}
	return nil
}

// Result counts the records written by a seeding run.
type Result struct {
	Categories int
	Products   int
	Users      int
	Reviews    int
	Orders     int
}

// Seeder upserts a Catalog into a repository registry.
type Seeder struct {
	registry repositories.Registry
	catalog  Catalog
	logger   *zap.Logger
}

// NewSeeder constructs a Seeder for the catalog.
func NewSeeder(registry repositories.Registry, catalog Catalog, logger *zap.Logger) (*Seeder, error) {
	if registry == nil {
		return nil, errors.New("seed: repository registry is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Seeder{registry: registry, catalog: catalog, logger: logger}, nil
}

// Run upserts every record by its natural key, so repeated runs leave the store unchanged.
func (s *Seeder) Run(ctx context.Context) (Result, error) {
	var result Result

	categoryIDs := make(map[string]string, len(s.catalog.Categories))
	for _, record := range s.catalog.Categories {
		category, err := s.registry.Categories().Upsert(ctx, domain.Category{
			Name:        record.Name,
			Description: record.Description,
			Slug:        record.Slug,
			Image:       record.Image,
			IsActive:    record.Active,
		})
		if err != nil {
			return result, fmt.Errorf("seed category %s: %w", record.Slug, err)
		}
		categoryIDs[record.Slug] = category.ID
		result.Categories++
	}

	for _, record := range s.catalog.Products {
		_, err := s.registry.Products().Upsert(ctx, domain.Product{
			ID:          record.ID,
			CategoryID:  categoryIDs[record.Category],
			Name:        record.Name,
			Description: record.Description,
			Slug:        record.Slug,
			SKU:         record.SKU,
			Price:       record.Price,
			SalePrice:   record.SalePrice,
			Stock:       record.Stock,
			Status:      domain.ProductStatus(record.Status),
			Images:      record.Images,
			Weight:      record.Weight,
			Dimensions:  record.Dimensions,
			IsDigital:   record.Digital,
		})
		if err != nil {
			return result, fmt.Errorf("seed product %s: %w", record.ID, err)
		}
		result.Products++
	}

	users := make(map[string]domain.User, len(s.catalog.Users))
	for _, record := range s.catalog.Users {
		user, err := s.registry.Users().Upsert(ctx, domain.User{
			Name:  record.Name,
			Email: record.Email,
			Role:  domain.UserRole(record.Role),
			Phone: record.Phone,
		})
		if err != nil {
			return result, fmt.Errorf("seed user %s: %w", record.Email, err)
		}
		users[strings.ToLower(record.Email)] = user
		result.Users++
	}

	for _, record := range s.catalog.Reviews {
		user := users[strings.ToLower(record.User)]
		_, err := s.registry.Reviews().Upsert(ctx, domain.Review{
			ID:         record.ID,
			ProductID:  record.Product,
			UserID:     user.ID,
			Author:     user.Name,
			Rating:     record.Rating,
			Title:      record.Title,
			Content:    record.Content,
			Images:     record.Images,
			IsVerified: record.Verified,
			CreatedAt:  record.CreatedAt.UTC(),
		})
		if err != nil {
			return result, fmt.Errorf("seed review %s: %w", record.ID, err)
		}
		result.Reviews++
	}

	for _, record := range s.catalog.Orders {
		user := users[strings.ToLower(record.User)]
		items := make([]domain.OrderItem, 0, len(record.Items))
		for _, line := range record.Items {
			items = append(items, domain.OrderItem{
				ProductID: line.Product,
				Quantity:  line.Quantity,
				Price:     line.Price,
				Total:     line.Price * int64(line.Quantity),
			})
		}
		_, err := s.registry.Orders().Upsert(ctx, domain.Order{
			OrderNumber:    record.Number,
			UserID:         user.ID,
			CustomerName:   user.Name,
			Status:         domain.OrderStatus(record.Status),
			PaymentStatus:  domain.PaymentStatus(record.PaymentStatus),
			PaymentMethod:  record.PaymentMethod,
			TotalAmount:    record.Total,
			ShippingAmount: record.Shipping,
			TaxAmount:      record.Tax,
			DiscountAmount: record.Discount,
			Notes:          record.Notes,
			Items:          items,
			CreatedAt:      record.CreatedAt.UTC(),
			ShippingAddress: domain.Address{
				FirstName:  record.Address.FirstName,
				LastName:   record.Address.LastName,
				Address1:   record.Address.Address1,
				Address2:   record.Address.Address2,
				City:       record.Address.City,
				State:      record.Address.State,
				PostalCode: record.Address.PostalCode,
				Country:    record.Address.Country,
				Phone:      record.Address.Phone,
			},
		})
		if err != nil {
			return result, fmt.Errorf("seed order %s: %w", record.Number, err)
		}
		result.Orders++
	}

	s.logger.Info("seed catalog applied",
		zap.Int("categories", result.Categories),
		zap.Int("products", result.Products),
		zap.Int("users", result.Users),
		zap.Int("reviews", result.Reviews),
		zap.Int("orders", result.Orders),
	)
	return result, nil
}
