package service

import (
	"context"
	"time"

	"github.com/marketbay/marketbay-backend/pkg/logger"
)

// ReservationSweeper periodically expires pending reservations whose TTL has
// passed. Expiry is also enforced lazily on every read, so the sweep only
// bounds how long a stale hold can linger without traffic on its product.
type ReservationSweeper struct {
	manager  *ReservationManager
	interval time.Duration
	logger   *logger.Logger
	cancel   context.CancelFunc
}

// NewReservationSweeper creates a sweeper over the given manager
func NewReservationSweeper(manager *ReservationManager, interval time.Duration, log *logger.Logger) *ReservationSweeper {
	return &ReservationSweeper{
		manager:  manager,
		interval: interval,
		logger:   log.WithComponent("reservation-sweeper"),
	}
}

// Start starts the sweeper in a background goroutine
func (s *ReservationSweeper) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)

	go func() {
		s.logger.Info().Dur("interval", s.interval).Msg("reservation sweeper started")

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				s.logger.Info().Msg("reservation sweeper stopped")
				return
			case <-ticker.C:
				s.runSweep(ctx)
			}
		}
	}()
}

// Stop stops the sweeper goroutine
func (s *ReservationSweeper) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
}

func (s *ReservationSweeper) runSweep(ctx context.Context) {
	start := time.Now()

	swept := s.manager.SweepExpired(ctx)
	if swept > 0 {
		s.logger.Info().
			Int("expired_count", swept).
			Dur("duration", time.Since(start)).
			Msg("expired reservations released")
	}
}
