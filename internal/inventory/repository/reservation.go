package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/marketbay/marketbay-backend/internal/inventory/domain"
	"github.com/marketbay/marketbay-backend/pkg/database"
	"github.com/marketbay/marketbay-backend/pkg/errors"
)

// ReservationRepository is the persistent implementation of
// domain.ReservationRepository, for deployments running more than one
// service instance. Status transitions use conditional updates so the
// database arbitrates races between instances.
type ReservationRepository struct {
	db *database.DB
}

// NewReservationRepository creates a new postgres-backed reservation repository
func NewReservationRepository(db *database.DB) *ReservationRepository {
	return &ReservationRepository{db: db}
}

// Create inserts a new reservation
func (r *ReservationRepository) Create(ctx context.Context, res *domain.Reservation) error {
	query := `
		INSERT INTO stock_reservations (id, product_id, quantity, order_id, user_id, expires_at, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at
	`
	err := r.db.QueryRowxContext(ctx, query,
		res.ID, res.ProductID, res.Quantity, res.OrderID, res.UserID, res.ExpiresAt, res.Status,
	).Scan(&res.CreatedAt)
	if err != nil {
		return errors.UpstreamUnavailable(err, "reservation store")
	}

	return nil
}

// Get gets a reservation by ID
func (r *ReservationRepository) Get(ctx context.Context, id string) (*domain.Reservation, error) {
	var res domain.Reservation
	query := `
		SELECT id, product_id, quantity, order_id, user_id, expires_at, status, created_at
		FROM stock_reservations WHERE id = $1
	`
	err := r.db.GetContext(ctx, &res, query, id)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("reservation")
	}
	if err != nil {
		return nil, errors.UpstreamUnavailable(err, "reservation store")
	}

	return &res, nil
}

// UpdateStatus transitions a reservation conditionally on its current status.
// Returns false without error when another writer already moved it.
func (r *ReservationRepository) UpdateStatus(ctx context.Context, id string, from, to domain.ReservationStatus) (bool, error) {
	query := `
		UPDATE stock_reservations SET status = $3, updated_at = NOW()
		WHERE id = $1 AND status = $2
	`
	result, err := r.db.ExecContext(ctx, query, id, from, to)
	if err != nil {
		return false, errors.UpstreamUnavailable(err, "reservation store")
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, errors.UpstreamUnavailable(err, "reservation store")
	}

	return rows > 0, nil
}

// ListPendingByProduct lists pending reservations for a product
func (r *ReservationRepository) ListPendingByProduct(ctx context.Context, productID string) ([]*domain.Reservation, error) {
	var result []*domain.Reservation
	query := `
		SELECT id, product_id, quantity, order_id, user_id, expires_at, status, created_at
		FROM stock_reservations
		WHERE product_id = $1 AND status = 'pending'
	`
	if err := r.db.SelectContext(ctx, &result, query, productID); err != nil {
		return nil, errors.UpstreamUnavailable(err, "reservation store")
	}

	return result, nil
}

// ListExpiredPending lists pending reservations past their TTL
func (r *ReservationRepository) ListExpiredPending(ctx context.Context, now time.Time) ([]*domain.Reservation, error) {
	var result []*domain.Reservation
	query := `
		SELECT id, product_id, quantity, order_id, user_id, expires_at, status, created_at
		FROM stock_reservations
		WHERE status = 'pending' AND expires_at <= $1
	`
	if err := r.db.SelectContext(ctx, &result, query, now); err != nil {
		return nil, errors.UpstreamUnavailable(err, "reservation store")
	}

	return result, nil
}
