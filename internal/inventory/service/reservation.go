package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/marketbay/marketbay-backend/internal/inventory/domain"
	"github.com/marketbay/marketbay-backend/pkg/errors"
	"github.com/marketbay/marketbay-backend/pkg/logger"
	"github.com/marketbay/marketbay-backend/pkg/messaging"
)

// DefaultReservationTTL applies when a reserve call does not specify a hold duration
const DefaultReservationTTL = 15 * time.Minute

// ReservationManager orchestrates stock holds against the ledger and the
// reservation store. Expected outcomes under concurrent load - insufficient
// stock, already-finalized, expired - come back as a nil reservation or a
// false flag with a nil error; a non-nil error always means an upstream
// failure, never ordinary contention.
//
// Expiry is lazy-on-read: every path that touches a pending reservation
// checks its TTL first, so correctness never depends on in-memory timers
// surviving a restart. A periodic sweep handles housekeeping for holds
// nobody reads again.
type ReservationManager struct {
	ledger       domain.StockLedger
	reservations domain.ReservationRepository
	cache        domain.Cache
	events       domain.EventPort
	alerts       *AlertEngine
	logger       *logger.Logger
	defaultTTL   time.Duration
	locks        *productLocks
	newID        func() string
}

// NewReservationManager creates a new reservation manager
func NewReservationManager(
	ledger domain.StockLedger,
	reservations domain.ReservationRepository,
	cache domain.Cache,
	events domain.EventPort,
	alerts *AlertEngine,
	defaultTTL time.Duration,
	log *logger.Logger,
) *ReservationManager {
	if defaultTTL <= 0 {
		defaultTTL = DefaultReservationTTL
	}
	return &ReservationManager{
		ledger:       ledger,
		reservations: reservations,
		cache:        cache,
		events:       events,
		alerts:       alerts,
		logger:       log.WithComponent("reservation-manager"),
		defaultTTL:   defaultTTL,
		locks:        newProductLocks(),
		newID:        newReservationID,
	}
}

// Reserve places a time-bounded hold on product quantity. Returns nil with a
// nil error when the product is unknown or available stock is short - checkout
// code treats that as ordinary control flow, not a fault.
func (m *ReservationManager) Reserve(ctx context.Context, productID string, quantity int, orderID, userID *string, ttl time.Duration) (*domain.Reservation, error) {
	if quantity <= 0 {
		m.logger.Warn().Str("product_id", productID).Int("quantity", quantity).Msg("reserve rejected: non-positive quantity")
		return nil, nil
	}
	if ttl <= 0 {
		ttl = m.defaultTTL
	}

	unlock := m.locks.Lock(productID)
	defer unlock()

	product, available, err := m.availableLocked(ctx, productID)
	if err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			m.logger.Warn().Str("product_id", productID).Msg("reserve rejected: product not found")
			return nil, nil
		}
		return nil, err
	}

	if available < quantity {
		m.logger.Debug().
			Str("product_id", productID).
			Int("requested", quantity).
			Int("available", available).
			Msg("reserve rejected: insufficient stock")
		return nil, nil
	}

	now := time.Now().UTC()
	reservation := &domain.Reservation{
		ID:        m.newID(),
		ProductID: productID,
		Quantity:  quantity,
		OrderID:   orderID,
		UserID:    userID,
		ExpiresAt: now.Add(ttl),
		Status:    domain.ReservationPending,
		CreatedAt: now,
	}

	if err := m.reservations.Create(ctx, reservation); err != nil {
		return nil, err
	}

	m.invalidateForecast(ctx, productID)
	m.events.Emit(ctx, messaging.EventReservationCreated, reservationPayload(reservation), product.SellerID)

	return reservation, nil
}

// ConfirmReservation finalizes a pending hold, decrementing ledger stock by
// its quantity exactly once. A second confirm on the same ID, a lapsed TTL,
// or a cancelled hold all return false without touching stock.
func (m *ReservationManager) ConfirmReservation(ctx context.Context, id string) (bool, error) {
	reservation, err := m.reservations.Get(ctx, id)
	if err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			m.logger.Warn().Str("reservation_id", id).Msg("confirm rejected: reservation not found")
			return false, nil
		}
		return false, err
	}

	unlock := m.locks.Lock(reservation.ProductID)
	defer unlock()

	// Re-read under the product lock: status may have moved while we waited
	reservation, err = m.reservations.Get(ctx, id)
	if err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			return false, nil
		}
		return false, err
	}

	if reservation.Status != domain.ReservationPending {
		m.logger.Debug().
			Str("reservation_id", id).
			Str("status", string(reservation.Status)).
			Msg("confirm rejected: reservation not pending")
		return false, nil
	}

	product, err := m.ledger.GetProduct(ctx, reservation.ProductID)
	if err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			m.logger.Warn().Str("reservation_id", id).Str("product_id", reservation.ProductID).Msg("confirm rejected: product not found")
			return false, nil
		}
		return false, err
	}

	if reservation.IsExpired(time.Now().UTC()) {
		m.expireLocked(ctx, reservation, product.SellerID)
		m.logger.Debug().Str("reservation_id", id).Msg("confirm rejected: reservation expired")
		return false, nil
	}

	newStock, err := m.ledger.DecrementStock(ctx, reservation.ProductID, reservation.Quantity)
	if err != nil {
		if errors.Is(err, errors.ErrInsufficientStock) {
			// Should not happen while the availability invariant holds;
			// the conditional update caught ledger drift before overselling
			m.logger.Error().
				Str("reservation_id", id).
				Str("product_id", reservation.ProductID).
				Msg("confirm rejected: ledger stock below pending reservation")
			return false, nil
		}
		if errors.Is(err, errors.ErrNotFound) {
			return false, nil
		}
		// Reservation untouched, so the caller may retry the confirm
		return false, err
	}

	ok, err := m.reservations.UpdateStatus(ctx, id, domain.ReservationPending, domain.ReservationConfirmed)
	if err != nil || !ok {
		// Roll the decrement back so the confirm is all-or-nothing
		if _, incErr := m.ledger.IncrementStock(ctx, reservation.ProductID, reservation.Quantity); incErr != nil {
			m.logger.Error().Err(incErr).
				Str("reservation_id", id).
				Str("product_id", reservation.ProductID).
				Msg("failed to roll back stock decrement after confirm failure")
		}
		return false, err
	}

	m.invalidateForecast(ctx, reservation.ProductID)
	reservation.Status = domain.ReservationConfirmed
	m.events.Emit(ctx, messaging.EventReservationConfirmed, reservationPayload(reservation), product.SellerID)
	m.emitStockUpdated(ctx, product, newStock, "reservation_confirmed", "")
	m.checkAlerts(ctx, product, newStock)

	return true, nil
}

// GetReservation looks up a reservation by ID. Returns nil with a nil error
// when no such reservation exists.
func (m *ReservationManager) GetReservation(ctx context.Context, id string) (*domain.Reservation, error) {
	reservation, err := m.reservations.Get(ctx, id)
	if err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return reservation, nil
}

// CancelReservation releases a pending hold, restoring its quantity to
// available stock immediately. No stock mutation occurs.
func (m *ReservationManager) CancelReservation(ctx context.Context, id string) (bool, error) {
	reservation, err := m.reservations.Get(ctx, id)
	if err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			m.logger.Warn().Str("reservation_id", id).Msg("cancel rejected: reservation not found")
			return false, nil
		}
		return false, err
	}

	unlock := m.locks.Lock(reservation.ProductID)
	defer unlock()

	sellerID := ""
	if product, err := m.ledger.GetProduct(ctx, reservation.ProductID); err == nil {
		sellerID = product.SellerID
	}

	if reservation.Status == domain.ReservationPending && reservation.IsExpired(time.Now().UTC()) {
		m.expireLocked(ctx, reservation, sellerID)
		return false, nil
	}

	ok, err := m.reservations.UpdateStatus(ctx, id, domain.ReservationPending, domain.ReservationCancelled)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}

	m.invalidateForecast(ctx, reservation.ProductID)
	reservation.Status = domain.ReservationCancelled
	m.events.Emit(ctx, messaging.EventReservationCancelled, reservationPayload(reservation), sellerID)

	return true, nil
}

// GetAvailableStock returns ledger stock minus all currently pending
// reservation quantities for the product, never negative
func (m *ReservationManager) GetAvailableStock(ctx context.Context, productID string) (int, error) {
	unlock := m.locks.Lock(productID)
	defer unlock()

	_, available, err := m.availableLocked(ctx, productID)
	if err != nil {
		return 0, err
	}
	return available, nil
}

// UpdateProductStock applies a direct administrative adjustment (restock,
// correction), bypassing reservations. Returns false with a nil error for a
// missing product or a decrement below zero.
func (m *ReservationManager) UpdateProductStock(ctx context.Context, productID string, quantity int, op domain.StockOperation, reason string) (bool, error) {
	if quantity < 0 {
		m.logger.Warn().Str("product_id", productID).Int("quantity", quantity).Msg("stock update rejected: negative quantity")
		return false, nil
	}

	unlock := m.locks.Lock(productID)
	defer unlock()

	product, err := m.ledger.GetProduct(ctx, productID)
	if err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			m.logger.Warn().Str("product_id", productID).Msg("stock update rejected: product not found")
			return false, nil
		}
		return false, err
	}

	var newStock int
	switch op {
	case domain.OpIncrement:
		newStock, err = m.ledger.IncrementStock(ctx, productID, quantity)
	case domain.OpDecrement:
		newStock, err = m.ledger.DecrementStock(ctx, productID, quantity)
	case domain.OpSet:
		newStock, err = m.ledger.SetStock(ctx, productID, quantity)
	default:
		m.logger.Warn().Str("product_id", productID).Str("operation", string(op)).Msg("stock update rejected: unknown operation")
		return false, nil
	}

	if err != nil {
		if errors.Is(err, errors.ErrInsufficientStock) {
			m.logger.Debug().Str("product_id", productID).Int("quantity", quantity).Msg("stock update rejected: insufficient stock")
			return false, nil
		}
		if errors.Is(err, errors.ErrNotFound) {
			return false, nil
		}
		return false, err
	}

	m.invalidateForecast(ctx, productID)
	m.emitStockUpdated(ctx, product, newStock, string(op), reason)
	m.checkAlerts(ctx, product, newStock)

	return true, nil
}

// SweepExpired transitions every pending reservation past its TTL to
// expired. Invoked periodically by the sweeper; returns the count swept.
func (m *ReservationManager) SweepExpired(ctx context.Context) int {
	expired, err := m.reservations.ListExpiredPending(ctx, time.Now().UTC())
	if err != nil {
		m.logger.Error().Err(err).Msg("expiry sweep failed to list reservations")
		return 0
	}

	swept := 0
	for _, reservation := range expired {
		unlock := m.locks.Lock(reservation.ProductID)

		sellerID := ""
		if product, err := m.ledger.GetProduct(ctx, reservation.ProductID); err == nil {
			sellerID = product.SellerID
		}
		if m.expireLocked(ctx, reservation, sellerID) {
			swept++
		}

		unlock()
	}

	return swept
}

// availableLocked computes available stock under the product lock, lazily
// expiring any pending reservation whose TTL has lapsed
func (m *ReservationManager) availableLocked(ctx context.Context, productID string) (*domain.Product, int, error) {
	product, err := m.ledger.GetProduct(ctx, productID)
	if err != nil {
		return nil, 0, err
	}

	pending, err := m.reservations.ListPendingByProduct(ctx, productID)
	if err != nil {
		return nil, 0, err
	}

	now := time.Now().UTC()
	reserved := 0
	for _, r := range pending {
		if r.IsExpired(now) {
			m.expireLocked(ctx, r, product.SellerID)
			continue
		}
		reserved += r.Quantity
	}

	available := product.Stock - reserved
	if available < 0 {
		available = 0
	}

	return product, available, nil
}

// expireLocked transitions pending -> expired, emitting the expiry event when
// this call wins the transition. Idempotent: a lost race is a no-op.
func (m *ReservationManager) expireLocked(ctx context.Context, r *domain.Reservation, sellerID string) bool {
	ok, err := m.reservations.UpdateStatus(ctx, r.ID, domain.ReservationPending, domain.ReservationExpired)
	if err != nil {
		m.logger.Error().Err(err).Str("reservation_id", r.ID).Msg("failed to expire reservation")
		return false
	}
	if !ok {
		return false
	}

	m.invalidateForecast(ctx, r.ProductID)
	expired := *r
	expired.Status = domain.ReservationExpired
	m.events.Emit(ctx, messaging.EventReservationExpired, reservationPayload(&expired), sellerID)

	return true
}

func (m *ReservationManager) invalidateForecast(ctx context.Context, productID string) {
	if m.cache == nil {
		return
	}
	if err := m.cache.DeletePrefix(ctx, ForecastCachePrefix(productID)); err != nil {
		m.logger.Warn().Err(err).Str("product_id", productID).Msg("failed to invalidate forecast cache")
	}
}

func (m *ReservationManager) emitStockUpdated(ctx context.Context, product *domain.Product, newStock int, operation, reason string) {
	m.events.Emit(ctx, messaging.EventStockUpdated, messaging.StockUpdatedEvent{
		ProductID: product.ID,
		SellerID:  product.SellerID,
		NewStock:  newStock,
		Operation: operation,
		Reason:    reason,
	}, product.SellerID)
}

// checkAlerts evaluates the product at its post-mutation stock level and
// emits an event per active alert. The forecast is omitted here; overstock
// detection happens on the seller-facing alert query instead.
func (m *ReservationManager) checkAlerts(ctx context.Context, product *domain.Product, newStock int) {
	snapshot := *product
	snapshot.Stock = newStock

	for _, alert := range m.alerts.EvaluateProduct(&snapshot, nil) {
		m.events.Emit(ctx, messaging.EventAlertGenerated, messaging.AlertGeneratedEvent{
			ProductID:    alert.ProductID,
			SellerID:     product.SellerID,
			AlertType:    string(alert.AlertType),
			Severity:     string(alert.Severity),
			CurrentStock: alert.CurrentStock,
			Message:      alert.Message,
		}, product.SellerID)
	}
}

func newReservationID() string {
	return uuid.New().String()
}

func reservationPayload(r *domain.Reservation) messaging.ReservationEvent {
	payload := messaging.ReservationEvent{
		ReservationID: r.ID,
		ProductID:     r.ProductID,
		Quantity:      r.Quantity,
		Status:        string(r.Status),
	}
	if r.OrderID != nil {
		payload.OrderID = *r.OrderID
	}
	if r.UserID != nil {
		payload.UserID = *r.UserID
	}
	return payload
}
