package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bazaar/internal/domain"
	"bazaar/internal/repository"

	"github.com/google/uuid"
)

var (
	ErrInvalidCategory = errors.New("category does not exist")
)

// ListingInput carries the validated fields of a listing form. The owner is
// never part of the input: it is always the acting user.
type ListingInput struct {
	CategoryID  uuid.UUID
	Name        string
	Description string
	Price       float64
	Stock       int
	IsSold      bool
	ImageURL    string
}

// ListingService defines the owner-scoped create/update/delete operations.
// Every call takes the acting user's ID explicitly; there is no ambient
// current-user state at this layer.
type ListingService interface {
	Create(ctx context.Context, actorID uuid.UUID, input ListingInput) (*domain.Product, error)
	GetForEdit(ctx context.Context, actorID, productID uuid.UUID) (*domain.Product, error)
	Update(ctx context.Context, actorID, productID uuid.UUID, input ListingInput) (*domain.Product, error)
	Delete(ctx context.Context, actorID, productID uuid.UUID) error
	ListOwnedBy(ctx context.Context, actorID uuid.UUID) ([]*domain.Product, error)
}

type listingService struct {
	productRepo  repository.ProductRepository
	categoryRepo repository.CategoryRepository
}

// NewListingService creates a new instance of ListingService
func NewListingService(productRepo repository.ProductRepository, categoryRepo repository.CategoryRepository) ListingService {
	return &listingService{
		productRepo:  productRepo,
		categoryRepo: categoryRepo,
	}
}

// Create persists a new listing owned by the actor
func (s *listingService) Create(ctx context.Context, actorID uuid.UUID, input ListingInput) (*domain.Product, error) {
	if err := s.checkCategory(ctx, input.CategoryID); err != nil {
		return nil, err
	}

	now := time.Now()
	product := &domain.Product{
		ID:          uuid.New(),
		CategoryID:  input.CategoryID,
		OwnerID:     actorID,
		Name:        input.Name,
		Description: input.Description,
		Price:       input.Price,
		Stock:       input.Stock,
		IsSold:      input.IsSold,
		ImageURL:    input.ImageURL,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.productRepo.Create(ctx, product); err != nil {
		return nil, fmt.Errorf("failed to create listing: %w", err)
	}

	return product, nil
}

// GetForEdit loads a listing for its owner's edit form. Non-owners get
// repository.ErrProductNotFound, same as a missing ID.
func (s *listingService) GetForEdit(ctx context.Context, actorID, productID uuid.UUID) (*domain.Product, error) {
	return s.productRepo.FindOwned(ctx, productID, actorID)
}

// Update applies the input to an existing listing owned by the actor. The
// owner field is left untouched.
func (s *listingService) Update(ctx context.Context, actorID, productID uuid.UUID, input ListingInput) (*domain.Product, error) {
	if err := s.checkCategory(ctx, input.CategoryID); err != nil {
		return nil, err
	}

	product, err := s.productRepo.FindOwned(ctx, productID, actorID)
	if err != nil {
		return nil, err
	}

	product.CategoryID = input.CategoryID
	product.Name = input.Name
	product.Description = input.Description
	product.Price = input.Price
	product.Stock = input.Stock
	product.IsSold = input.IsSold
	product.ImageURL = input.ImageURL
	product.UpdatedAt = time.Now()

	if err := s.productRepo.UpdateOwned(ctx, product, actorID); err != nil {
		return nil, err
	}

	return product, nil
}

// Delete removes a listing owned by the actor. A repeated delete on the same
// ID yields repository.ErrProductNotFound.
func (s *listingService) Delete(ctx context.Context, actorID, productID uuid.UUID) error {
	return s.productRepo.DeleteOwned(ctx, productID, actorID)
}

// ListOwnedBy returns the actor's own listings for the dashboard
func (s *listingService) ListOwnedBy(ctx context.Context, actorID uuid.UUID) ([]*domain.Product, error) {
	products, err := s.productRepo.ListByOwner(ctx, actorID)
	if err != nil {
		return nil, fmt.Errorf("failed to list own products: %w", err)
	}
	return products, nil
}

func (s *listingService) checkCategory(ctx context.Context, categoryID uuid.UUID) error {
	_, err := s.categoryRepo.FindByID(ctx, categoryID)
	if err != nil {
		if err == repository.ErrCategoryNotFound {
			return ErrInvalidCategory
		}
		return fmt.Errorf("failed to check category: %w", err)
	}
	return nil
}
