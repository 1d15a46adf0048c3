package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"bazaar/internal/domain"

	"github.com/google/uuid"
)

var (
	ErrProductNotFound = errors.New("product not found")
)

const productColumns = `id, category_id, owner_id, name, description, price, stock, is_sold, image_url, created_at, updated_at`

// ProductRepository defines the interface for product data access.
//
// Ownership-scoped mutations (UpdateOwned, DeleteOwned, FindOwned) fold the
// owner check into the row lookup: a row that exists but belongs to someone
// else is indistinguishable from a missing row, so non-owners cannot probe
// for listing existence.
type ProductRepository interface {
	Create(ctx context.Context, product *domain.Product) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Product, error)
	FindOwned(ctx context.Context, id, ownerID uuid.UUID) (*domain.Product, error)
	List(ctx context.Context) ([]*domain.Product, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*domain.Product, error)
	FindByCategoryExcluding(ctx context.Context, categoryID, excludeID uuid.UUID) ([]*domain.Product, error)
	SearchUnsold(ctx context.Context, query string) ([]*domain.Product, error)
	UpdateOwned(ctx context.Context, product *domain.Product, ownerID uuid.UUID) error
	DeleteOwned(ctx context.Context, id, ownerID uuid.UUID) error
}

type productRepository struct {
	db *sql.DB
}

// NewProductRepository creates a new instance of ProductRepository
func NewProductRepository(db *sql.DB) ProductRepository {
	return &productRepository{db: db}
}

// Create inserts a new product into the database using parameterized queries
func (r *productRepository) Create(ctx context.Context, product *domain.Product) error {
	query := `
		INSERT INTO products (id, category_id, owner_id, name, description, price, stock, is_sold, image_url, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := r.db.ExecContext(
		ctx,
		query,
		product.ID,
		product.CategoryID,
		product.OwnerID,
		product.Name,
		product.Description,
		product.Price,
		product.Stock,
		product.IsSold,
		product.ImageURL,
		product.CreatedAt,
		product.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create product: %w", err)
	}

	return nil
}

// FindByID retrieves a product by ID using parameterized queries
func (r *productRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	query := fmt.Sprintf(`SELECT %s FROM products WHERE id = $1`, productColumns)

	product := &domain.Product{}
	err := scanProduct(r.db.QueryRowContext(ctx, query, id), product)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to find product by ID: %w", err)
	}

	return product, nil
}

// FindOwned retrieves a product by ID scoped to its owner. A row owned by a
// different user yields ErrProductNotFound.
func (r *productRepository) FindOwned(ctx context.Context, id, ownerID uuid.UUID) (*domain.Product, error) {
	query := fmt.Sprintf(`SELECT %s FROM products WHERE id = $1 AND owner_id = $2`, productColumns)

	product := &domain.Product{}
	err := scanProduct(r.db.QueryRowContext(ctx, query, id, ownerID), product)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to find owned product: %w", err)
	}

	return product, nil
}

// List retrieves all products in insertion order
func (r *productRepository) List(ctx context.Context) ([]*domain.Product, error) {
	query := fmt.Sprintf(`SELECT %s FROM products ORDER BY created_at ASC, id ASC`, productColumns)

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}

	return collectProducts(rows)
}

// ListByOwner retrieves all products created by the given user
func (r *productRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*domain.Product, error) {
	query := fmt.Sprintf(`SELECT %s FROM products WHERE owner_id = $1 ORDER BY created_at ASC, id ASC`, productColumns)

	rows, err := r.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list products by owner: %w", err)
	}

	return collectProducts(rows)
}

// FindByCategoryExcluding retrieves all products in a category except one,
// used to surface related items on a detail page.
func (r *productRepository) FindByCategoryExcluding(ctx context.Context, categoryID, excludeID uuid.UUID) ([]*domain.Product, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM products
		WHERE category_id = $1 AND id <> $2
		ORDER BY created_at ASC, id ASC
	`, productColumns)

	rows, err := r.db.QueryContext(ctx, query, categoryID, excludeID)
	if err != nil {
		return nil, fmt.Errorf("failed to find related products: %w", err)
	}

	return collectProducts(rows)
}

// SearchUnsold retrieves unsold products whose name or description contains
// the query, case-insensitively. An empty or whitespace query returns every
// unsold product.
func (r *productRepository) SearchUnsold(ctx context.Context, query string) ([]*domain.Product, error) {
	if strings.TrimSpace(query) == "" {
		listQuery := fmt.Sprintf(`SELECT %s FROM products WHERE is_sold = FALSE ORDER BY created_at ASC, id ASC`, productColumns)

		rows, err := r.db.QueryContext(ctx, listQuery)
		if err != nil {
			return nil, fmt.Errorf("failed to list unsold products: %w", err)
		}
		return collectProducts(rows)
	}

	// ILIKE gives case-insensitive substring containment; no ranking. The
	// query's %, _, and \ are quoted so they match literally instead of as
	// pattern metacharacters.
	searchPattern := "%" + likeEscaper.Replace(query) + "%"
	searchQuery := fmt.Sprintf(`
		SELECT %s FROM products
		WHERE is_sold = FALSE AND (name ILIKE $1 OR description ILIKE $1)
		ORDER BY created_at ASC, id ASC
	`, productColumns)

	rows, err := r.db.QueryContext(ctx, searchQuery, searchPattern)
	if err != nil {
		return nil, fmt.Errorf("failed to search products: %w", err)
	}

	return collectProducts(rows)
}

// UpdateOwned updates an existing product scoped to its owner. The owner_id
// column is never part of the SET clause.
func (r *productRepository) UpdateOwned(ctx context.Context, product *domain.Product, ownerID uuid.UUID) error {
	query := `
		UPDATE products
		SET category_id = $3, name = $4, description = $5, price = $6,
		    stock = $7, is_sold = $8, image_url = $9, updated_at = $10
		WHERE id = $1 AND owner_id = $2
	`

	result, err := r.db.ExecContext(
		ctx,
		query,
		product.ID,
		ownerID,
		product.CategoryID,
		product.Name,
		product.Description,
		product.Price,
		product.Stock,
		product.IsSold,
		product.ImageURL,
		product.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to update product: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrProductNotFound
	}

	return nil
}

// DeleteOwned removes a product scoped to its owner using parameterized queries
func (r *productRepository) DeleteOwned(ctx context.Context, id, ownerID uuid.UUID) error {
	query := `DELETE FROM products WHERE id = $1 AND owner_id = $2`

	result, err := r.db.ExecContext(ctx, query, id, ownerID)
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrProductNotFound
	}

	return nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner, product *domain.Product) error {
	return row.Scan(
		&product.ID,
		&product.CategoryID,
		&product.OwnerID,
		&product.Name,
		&product.Description,
		&product.Price,
		&product.Stock,
		&product.IsSold,
		&product.ImageURL,
		&product.CreatedAt,
		&product.UpdatedAt,
	)
}

func collectProducts(rows *sql.Rows) ([]*domain.Product, error) {
	defer rows.Close()

	products := []*domain.Product{}
	for rows.Next() {
		product := &domain.Product{}
		if err := scanProduct(rows, product); err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, product)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating products: %w", err)
	}

	return products, nil
}
