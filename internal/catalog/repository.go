package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/vasiliy-maslov/grocery-shop/internal/db"
)

var (
	ErrProductNotFound = errors.New("product not found")

	// ErrStockConflict signals that a reservation could not be satisfied:
	// not enough stock, or the product is missing or inactive. Expected and
	// recoverable, the caller decides what to do with it.
	ErrStockConflict = errors.New("insufficient stock")
)

// StockConflictError names the product that caused a reservation to fail.
type StockConflictError struct {
	ProductID uuid.UUID
}

func (e *StockConflictError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s", e.ProductID)
}

func (e *StockConflictError) Unwrap() error {
	return ErrStockConflict
}

type Repository interface {
	ListCategories(ctx context.Context) ([]Category, error)
	ListActiveProducts(ctx context.Context) ([]Product, error)
	ListProductsByCategory(ctx context.Context, categoryID uuid.UUID) ([]Product, error)
	GetActiveProduct(ctx context.Context, id uuid.UUID) (*Product, error)
	ReserveStock(ctx context.Context, q db.Querier, productID uuid.UUID, quantity int) (decimal.Decimal, error)
}

type postgresRepository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &postgresRepository{pool: pool}
}

const productColumns = `id, category_id, name, description, price, unit, stock, is_active, created_at, updated_at`

func (r *postgresRepository) ListCategories(ctx context.Context) ([]Category, error) {
	query := `
		SELECT id, name, created_at, updated_at
		FROM categories
		ORDER BY name
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query categories: %w", err)
	}
	defer rows.Close()

	categories := make([]Category, 0)
	for rows.Next() {
		var category Category
		if err := rows.Scan(&category.ID, &category.Name, &category.CreatedAt, &category.UpdatedAt); err != nil {
			return nil, fmt.Errorf("repository: failed to scan category: %w", err)
		}
		categories = append(categories, category)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating categories: %w", err)
	}

	return categories, nil
}

func (r *postgresRepository) ListActiveProducts(ctx context.Context) ([]Product, error) {
	query := `
		SELECT ` + productColumns + `
		FROM products
		WHERE is_active
		ORDER BY name
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query active products: %w", err)
	}
	defer rows.Close()

	return scanProducts(rows)
}

func (r *postgresRepository) ListProductsByCategory(ctx context.Context, categoryID uuid.UUID) ([]Product, error) {
	query := `
		SELECT ` + productColumns + `
		FROM products
		WHERE is_active AND category_id = $1
		ORDER BY name
	`

	rows, err := r.pool.Query(ctx, query, categoryID)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query products for category %s: %w", categoryID, err)
	}
	defer rows.Close()

	return scanProducts(rows)
}

func (r *postgresRepository) GetActiveProduct(ctx context.Context, id uuid.UUID) (*Product, error) {
	query := `
		SELECT ` + productColumns + `
		FROM products
		WHERE id = $1 AND is_active
	`

	var product Product
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&product.ID,
		&product.CategoryID,
		&product.Name,
		&product.Description,
		&product.Price,
		&product.Unit,
		&product.Stock,
		&product.IsActive,
		&product.CreatedAt,
		&product.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("repository: failed to select product by id %s: %w", id, err)
	}

	return &product, nil
}

// ReserveStock decrements a product's stock by quantity only if enough stock
// remains and the product is active. The compare-and-decrement is a single
// conditional UPDATE, so concurrent reservations against the same product
// serialize on the row and stock can never go negative. Returns the product's
// current price, which the caller snapshots into the order line.
func (r *postgresRepository) ReserveStock(ctx context.Context, q db.Querier, productID uuid.UUID, quantity int) (decimal.Decimal, error) {
	query := `
		UPDATE products
		SET stock = stock - $2, updated_at = $3
		WHERE id = $1 AND is_active AND stock >= $2
		RETURNING price
	`

	var price decimal.Decimal
	err := q.QueryRow(ctx, query, productID, quantity, time.Now().UTC()).Scan(&price)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return decimal.Decimal{}, &StockConflictError{ProductID: productID}
		}
		return decimal.Decimal{}, fmt.Errorf("repository: failed to reserve stock for product %s: %w", productID, err)
	}

	return price, nil
}

func scanProducts(rows pgx.Rows) ([]Product, error) {
	products := make([]Product, 0)
	for rows.Next() {
		var product Product
		err := rows.Scan(
			&product.ID,
			&product.CategoryID,
			&product.Name,
			&product.Description,
			&product.Price,
			&product.Unit,
			&product.Stock,
			&product.IsActive,
			&product.CreatedAt,
			&product.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("repository: failed to scan product: %w", err)
		}
		products = append(products, product)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating products: %w", err)
	}

	return products, nil
}
