package repository

import (
	"context"
	"time"

	"github.com/marketbay/marketbay-backend/internal/inventory/domain"
	"github.com/marketbay/marketbay-backend/pkg/database"
	"github.com/marketbay/marketbay-backend/pkg/errors"
)

// SalesRepository implements domain.SalesHistory over confirmed order lines
type SalesRepository struct {
	db *database.DB
}

// NewSalesRepository creates a new sales repository
func NewSalesRepository(db *database.DB) *SalesRepository {
	return &SalesRepository{db: db}
}

// ListConfirmedOrderLines returns daily-aggregated confirmed sales for a
// product since the given date, oldest first. Days with no sales produce no
// rows; the forecast engine zero-fills the gaps.
func (r *SalesRepository) ListConfirmedOrderLines(ctx context.Context, productID string, since time.Time) ([]domain.OrderLine, error) {
	var lines []domain.OrderLine
	query := `
		SELECT date_trunc('day', o.confirmed_at) AS date,
		       SUM(oi.quantity) AS quantity,
		       SUM(oi.total_price_cents) / 100.0 AS total_price
		FROM order_items oi
		JOIN orders o ON o.id = oi.order_id
		WHERE oi.product_id = $1
		  AND o.status = 'confirmed'
		  AND o.confirmed_at >= $2
		GROUP BY 1
		ORDER BY 1
	`
	if err := r.db.SelectContext(ctx, &lines, query, productID, since); err != nil {
		return nil, errors.UpstreamUnavailable(err, "order store")
	}

	return lines, nil
}
