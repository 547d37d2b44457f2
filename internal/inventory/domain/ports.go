package domain

import (
	"context"
	"time"
)

// StockLedger is the contract over persistent product stock. Implementations
// must make DecrementStock a single atomic conditional update so that two
// concurrent decrements can never drive stock negative.
type StockLedger interface {
	// GetProduct returns the product view, or errors.ErrNotFound
	GetProduct(ctx context.Context, productID string) (*Product, error)

	// ListActiveBySeller returns a seller's active products
	ListActiveBySeller(ctx context.Context, sellerID string) ([]*Product, error)

	// IncrementStock adds quantity to stock and returns the new value
	IncrementStock(ctx context.Context, productID string, quantity int) (int, error)

	// DecrementStock subtracts quantity only if stock >= quantity, returning
	// the new value. Returns errors.ErrInsufficientStock when the guard fails.
	DecrementStock(ctx context.Context, productID string, quantity int) (int, error)

	// SetStock overwrites stock with the given value
	SetStock(ctx context.Context, productID string, quantity int) (int, error)
}

// ReservationRepository holds reservation records. The in-memory adapter is
// the single-node reference implementation; a persistent adapter backs
// multi-instance deployments.
type ReservationRepository interface {
	Create(ctx context.Context, r *Reservation) error

	// Get returns the reservation, or errors.ErrNotFound
	Get(ctx context.Context, id string) (*Reservation, error)

	// UpdateStatus transitions a reservation from one status to another.
	// It returns false when the reservation is not currently in the expected
	// status, making one-way lifecycle transitions race-safe.
	UpdateStatus(ctx context.Context, id string, from, to ReservationStatus) (bool, error)

	// ListPendingByProduct returns all pending reservations for a product,
	// including any whose TTL has lapsed (callers expire lazily)
	ListPendingByProduct(ctx context.Context, productID string) ([]*Reservation, error)

	// ListExpiredPending returns pending reservations whose ExpiresAt has
	// passed, for the housekeeping sweep
	ListExpiredPending(ctx context.Context, now time.Time) ([]*Reservation, error)
}

// SalesHistory is the historical order-line source used by forecasting
type SalesHistory interface {
	ListConfirmedOrderLines(ctx context.Context, productID string, since time.Time) ([]OrderLine, error)
}

// Cache memoizes forecast results. Values are JSON-encoded.
type Cache interface {
	// Get unmarshals the cached value into v, reporting whether the key was
	// present and unexpired
	Get(ctx context.Context, key string, v any) (bool, error)

	Set(ctx context.Context, key string, v any, ttl time.Duration) error

	Delete(ctx context.Context, keys ...string) error

	// DeletePrefix removes every key with the given prefix, used to
	// invalidate all cached views of a product on stock writes
	DeletePrefix(ctx context.Context, prefix string) error
}

// EventPort announces stock changes and alerts to the outside world.
// Emission is fire-and-forget: the core never awaits delivery and
// implementations log rather than return publish failures.
type EventPort interface {
	Emit(ctx context.Context, eventType string, payload any, audienceID string)
}
