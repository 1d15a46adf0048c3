package service

import (
	"context"
	"fmt"

	"bazaar/internal/domain"
	"bazaar/internal/repository"

	"github.com/google/uuid"
)

// CatalogService defines the read-oriented browse/search operations
type CatalogService interface {
	ListAll(ctx context.Context) ([]*domain.Product, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Product, error)
	RelatedTo(ctx context.Context, product *domain.Product) ([]*domain.Product, error)
	SearchUnsold(ctx context.Context, query string) ([]*domain.Product, error)
	Categories(ctx context.Context) ([]*domain.Category, error)
}

type catalogService struct {
	productRepo  repository.ProductRepository
	categoryRepo repository.CategoryRepository
}

// NewCatalogService creates a new instance of CatalogService
func NewCatalogService(productRepo repository.ProductRepository, categoryRepo repository.CategoryRepository) CatalogService {
	return &catalogService{
		productRepo:  productRepo,
		categoryRepo: categoryRepo,
	}
}

// ListAll returns every product for the home listing
func (s *catalogService) ListAll(ctx context.Context) ([]*domain.Product, error) {
	products, err := s.productRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	return products, nil
}

// GetByID returns a single product or repository.ErrProductNotFound
func (s *catalogService) GetByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	return s.productRepo.FindByID(ctx, id)
}

// RelatedTo returns the other products sharing the given product's category.
// Sold listings are included, matching the detail page's behavior.
func (s *catalogService) RelatedTo(ctx context.Context, product *domain.Product) ([]*domain.Product, error) {
	related, err := s.productRepo.FindByCategoryExcluding(ctx, product.CategoryID, product.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load related products: %w", err)
	}
	return related, nil
}

// SearchUnsold returns unsold products matching the query by name or
// description, case-insensitively. An empty query returns all unsold products.
func (s *catalogService) SearchUnsold(ctx context.Context, query string) ([]*domain.Product, error) {
	products, err := s.productRepo.SearchUnsold(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to search products: %w", err)
	}
	return products, nil
}

// Categories returns all categories for navigation and the listing form
func (s *catalogService) Categories(ctx context.Context) ([]*domain.Category, error) {
	categories, err := s.categoryRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	return categories, nil
}
