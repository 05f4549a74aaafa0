package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/cases"

	"github.com/Lixing-Zhang/smart-checkout/backend/internal/models"
)

var (
	ErrProductNotFound = errors.New("product not found")
	ErrDuplicateLabel  = errors.New("duplicate product label")
	ErrInvalidProduct  = errors.New("invalid product definition")
)

// ProductRepository defines the interface for product data access
type ProductRepository interface {
	GetAll(ctx context.Context) ([]models.Product, error)
	GetByLabel(ctx context.Context, label string) (*models.Product, error)
	GetByBarcode(ctx context.Context, barcode string) (*models.Product, error)
}

// InMemoryProductRepository is the process catalog. It is built once and
// never mutated, so concurrent readers need no locking.
type InMemoryProductRepository struct {
	products  []models.Product
	byLabel   map[string]int
	byBarcode map[string]int
}

// NewInMemoryProductRepository builds a catalog from products, preserving their order.
// Labels are compared after case folding and must be unique.
func NewInMemoryProductRepository(products []models.Product) (*InMemoryProductRepository, error) {
	r := &InMemoryProductRepository{
		products:  make([]models.Product, 0, len(products)),
		byLabel:   make(map[string]int, len(products)),
		byBarcode: make(map[string]int, len(products)),
	}

	for _, p := range products {
		if err := validateProduct(p); err != nil {
			return nil, err
		}
		key := FoldLabel(p.Label)
		if _, exists := r.byLabel[key]; exists {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateLabel, p.Label)
		}
		r.byLabel[key] = len(r.products)
		if p.Barcode != "" {
			r.byBarcode[p.Barcode] = len(r.products)
		}
		r.products = append(r.products, p)
	}

	return r, nil
}

// NewDefaultProductRepository returns the catalog seeded with DefaultProducts.
func NewDefaultProductRepository() *InMemoryProductRepository {
	r, err := NewInMemoryProductRepository(DefaultProducts())
	if err != nil {
		panic(fmt.Sprintf("default catalog is invalid: %v", err))
	}
	return r
}

// FoldLabel normalizes a product label for comparison.
func FoldLabel(label string) string {
	// A Caser is stateful, so each call gets its own.
	return cases.Fold().String(strings.TrimSpace(label))
}

func validateProduct(p models.Product) error {
	if FoldLabel(p.Label) == "" {
		return fmt.Errorf("%w: empty label", ErrInvalidProduct)
	}
	if p.Price.IsNegative() {
		return fmt.Errorf("%w: %q has negative price", ErrInvalidProduct, p.Label)
	}
	if !p.Category.Valid() {
		return fmt.Errorf("%w: %q has unknown category %q", ErrInvalidProduct, p.Label, p.Category)
	}
	if !p.Unit.Valid() {
		return fmt.Errorf("%w: %q has unknown unit %q", ErrInvalidProduct, p.Label, p.Unit)
	}
	return nil
}

// Lookup returns the product for label, ignoring case. Absence is not an error.
func (r *InMemoryProductRepository) Lookup(label string) (models.Product, bool) {
	idx, ok := r.byLabel[FoldLabel(label)]
	if !ok {
		return models.Product{}, false
	}
	return r.products[idx], true
}

// LookupBarcode returns the product with the exact barcode.
func (r *InMemoryProductRepository) LookupBarcode(barcode string) (models.Product, bool) {
	idx, ok := r.byBarcode[strings.TrimSpace(barcode)]
	if !ok {
		return models.Product{}, false
	}
	return r.products[idx], true
}

// List returns every product in construction order.
func (r *InMemoryProductRepository) List() []models.Product {
	return append([]models.Product(nil), r.products...)
}

// Len returns the number of products.
func (r *InMemoryProductRepository) Len() int {
	return len(r.products)
}

// GetAll returns all products
func (r *InMemoryProductRepository) GetAll(ctx context.Context) ([]models.Product, error) {
	return r.List(), nil
}

// GetByLabel returns a product by its label
func (r *InMemoryProductRepository) GetByLabel(ctx context.Context, label string) (*models.Product, error) {
	product, exists := r.Lookup(label)
	if !exists {
		return nil, ErrProductNotFound
	}
	return &product, nil
}

// GetByBarcode returns a product by its barcode
func (r *InMemoryProductRepository) GetByBarcode(ctx context.Context, barcode string) (*models.Product, error) {
	product, exists := r.LookupBarcode(barcode)
	if !exists {
		return nil, ErrProductNotFound
	}
	return &product, nil
}
