package service

import (
	"context"

	"github.com/Lixing-Zhang/smart-checkout/backend/internal/models"
	"github.com/Lixing-Zhang/smart-checkout/backend/internal/repository"
)

// ProductService handles business logic for products
type ProductService struct {
	repo repository.ProductRepository
}

// NewProductService creates a new product service
func NewProductService(repo repository.ProductRepository) *ProductService {
	return &ProductService{
		repo: repo,
	}
}

// ListProducts returns all available products in catalog order
func (s *ProductService) ListProducts(ctx context.Context) ([]models.Product, error) {
	return s.repo.GetAll(ctx)
}

// GetProduct returns a product by label, ignoring case.
// repository.ErrProductNotFound signals absence.
func (s *ProductService) GetProduct(ctx context.Context, label string) (*models.Product, error) {
	return s.repo.GetByLabel(ctx, label)
}

// GetProductByBarcode returns a product by its catalog barcode
func (s *ProductService) GetProductByBarcode(ctx context.Context, barcode string) (*models.Product, error) {
	return s.repo.GetByBarcode(ctx, barcode)
}

// CountProducts returns the catalog size
func (s *ProductService) CountProducts(ctx context.Context) (int, error) {
	products, err := s.repo.GetAll(ctx)
	if err != nil {
		return 0, err
	}
	return len(products), nil
}
