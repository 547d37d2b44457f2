package repository

import (
	"context"
	"database/sql"

	"github.com/marketbay/marketbay-backend/internal/inventory/domain"
	"github.com/marketbay/marketbay-backend/pkg/database"
	"github.com/marketbay/marketbay-backend/pkg/errors"
)

// ProductRepository implements domain.StockLedger over the products table.
// The products table itself belongs to the catalog service; this repository
// only ever reads the stock view and applies atomic stock mutations.
type ProductRepository struct {
	db *database.DB
}

// NewProductRepository creates a new product repository
func NewProductRepository(db *database.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

// GetProduct gets the stock view of a product
func (r *ProductRepository) GetProduct(ctx context.Context, productID string) (*domain.Product, error) {
	var p domain.Product
	query := `
		SELECT id, seller_id, stock, low_stock_threshold, price_cents
		FROM products WHERE id = $1 AND deleted_at IS NULL
	`
	err := r.db.GetContext(ctx, &p, query, productID)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("product")
	}
	if err != nil {
		return nil, errors.UpstreamUnavailable(err, "product store")
	}

	return &p, nil
}

// ListActiveBySeller lists a seller's active products
func (r *ProductRepository) ListActiveBySeller(ctx context.Context, sellerID string) ([]*domain.Product, error) {
	var products []*domain.Product
	query := `
		SELECT id, seller_id, stock, low_stock_threshold, price_cents
		FROM products
		WHERE seller_id = $1 AND is_active = TRUE AND deleted_at IS NULL
		ORDER BY id
	`
	if err := r.db.SelectContext(ctx, &products, query, sellerID); err != nil {
		return nil, errors.UpstreamUnavailable(err, "product store")
	}

	return products, nil
}

// IncrementStock adds quantity to stock and returns the new value
func (r *ProductRepository) IncrementStock(ctx context.Context, productID string, quantity int) (int, error) {
	var newStock int
	query := `
		UPDATE products SET stock = stock + $2, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
		RETURNING stock
	`
	err := r.db.QueryRowxContext(ctx, query, productID, quantity).Scan(&newStock)
	if err == sql.ErrNoRows {
		return 0, errors.NotFound("product")
	}
	if err != nil {
		return 0, errors.UpstreamUnavailable(err, "product store")
	}

	return newStock, nil
}

// DecrementStock subtracts quantity as a single conditional update. The
// stock >= quantity guard is what makes concurrent confirms oversell-proof
// even across multiple service instances.
func (r *ProductRepository) DecrementStock(ctx context.Context, productID string, quantity int) (int, error) {
	var newStock int
	query := `
		UPDATE products SET stock = stock - $2, updated_at = NOW()
		WHERE id = $1 AND stock >= $2 AND deleted_at IS NULL
		RETURNING stock
	`
	err := r.db.QueryRowxContext(ctx, query, productID, quantity).Scan(&newStock)
	if err == sql.ErrNoRows {
		// Guard failed: distinguish a missing product from insufficient stock
		if _, getErr := r.GetProduct(ctx, productID); getErr != nil {
			return 0, getErr
		}
		return 0, errors.InsufficientStock(productID)
	}
	if err != nil {
		return 0, errors.UpstreamUnavailable(err, "product store")
	}

	return newStock, nil
}

// SetStock overwrites stock with the given value
func (r *ProductRepository) SetStock(ctx context.Context, productID string, quantity int) (int, error) {
	if quantity < 0 {
		return 0, errors.BadRequest("stock cannot be negative")
	}

	var newStock int
	query := `
		UPDATE products SET stock = $2, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
		RETURNING stock
	`
	err := r.db.QueryRowxContext(ctx, query, productID, quantity).Scan(&newStock)
	if err == sql.ErrNoRows {
		return 0, errors.NotFound("product")
	}
	if err != nil {
		return 0, errors.UpstreamUnavailable(err, "product store")
	}

	return newStock, nil
}
