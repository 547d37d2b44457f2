package repository

import (
	"context"
	"sync"
	"time"

	"github.com/marketbay/marketbay-backend/internal/inventory/domain"
	"github.com/marketbay/marketbay-backend/pkg/errors"
)

// MemoryReservationRepository is the single-node reference implementation of
// domain.ReservationRepository. Reservations are volatile: a process restart
// releases all pending holds, which is safe (capacity is refunded, never
// oversold) but loses in-flight carts. Multi-instance deployments use the
// postgres adapter instead.
type MemoryReservationRepository struct {
	mu        sync.RWMutex
	byID      map[string]*domain.Reservation
	byProduct map[string]map[string]struct{}
}

// NewMemoryReservationRepository creates an empty in-memory reservation store
func NewMemoryReservationRepository() *MemoryReservationRepository {
	return &MemoryReservationRepository{
		byID:      make(map[string]*domain.Reservation),
		byProduct: make(map[string]map[string]struct{}),
	}
}

// Create stores a new reservation
func (s *MemoryReservationRepository) Create(_ context.Context, r *domain.Reservation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byID[r.ID]; exists {
		return errors.Conflict("reservation already exists")
	}

	cp := *r
	s.byID[r.ID] = &cp

	if s.byProduct[r.ProductID] == nil {
		s.byProduct[r.ProductID] = make(map[string]struct{})
	}
	s.byProduct[r.ProductID][r.ID] = struct{}{}

	return nil
}

// Get returns a copy of the reservation
func (s *MemoryReservationRepository) Get(_ context.Context, id string) (*domain.Reservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.byID[id]
	if !ok {
		return nil, errors.NotFound("reservation")
	}

	cp := *r
	return &cp, nil
}

// UpdateStatus transitions the reservation from one status to another.
// The compare step under the write lock serializes confirm/cancel/expire
// races on the same reservation: exactly one transition out of pending wins.
func (s *MemoryReservationRepository) UpdateStatus(_ context.Context, id string, from, to domain.ReservationStatus) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.byID[id]
	if !ok {
		return false, errors.NotFound("reservation")
	}
	if r.Status != from {
		return false, nil
	}

	r.Status = to

	// Keep the product index pending-only
	if to != domain.ReservationPending {
		if ids := s.byProduct[r.ProductID]; ids != nil {
			delete(ids, id)
			if len(ids) == 0 {
				delete(s.byProduct, r.ProductID)
			}
		}
	}

	return true, nil
}

// ListPendingByProduct returns copies of all pending reservations for a product
func (s *MemoryReservationRepository) ListPendingByProduct(_ context.Context, productID string) ([]*domain.Reservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.byProduct[productID]
	result := make([]*domain.Reservation, 0, len(ids))
	for id := range ids {
		if r := s.byID[id]; r != nil && r.Status == domain.ReservationPending {
			cp := *r
			result = append(result, &cp)
		}
	}

	return result, nil
}

// ListExpiredPending returns copies of pending reservations past their TTL
func (s *MemoryReservationRepository) ListExpiredPending(_ context.Context, now time.Time) ([]*domain.Reservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Reservation
	for _, ids := range s.byProduct {
		for id := range ids {
			if r := s.byID[id]; r != nil && r.Status == domain.ReservationPending && r.IsExpired(now) {
				cp := *r
				result = append(result, &cp)
			}
		}
	}

	return result, nil
}
