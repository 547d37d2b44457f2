package service_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/marketbay/marketbay-backend/internal/inventory/cache"
	"github.com/marketbay/marketbay-backend/internal/inventory/domain"
	"github.com/marketbay/marketbay-backend/internal/inventory/repository"
	"github.com/marketbay/marketbay-backend/internal/inventory/service"
	"github.com/marketbay/marketbay-backend/pkg/config"
	"github.com/marketbay/marketbay-backend/pkg/errors"
	"github.com/marketbay/marketbay-backend/pkg/logger"
)

// fakeLedger is an in-memory StockLedger for service tests
type fakeLedger struct {
	mu       sync.Mutex
	products map[string]*domain.Product
}

func newFakeLedger(products ...*domain.Product) *fakeLedger {
	l := &fakeLedger{products: make(map[string]*domain.Product)}
	for _, p := range products {
		copied := *p
		l.products[p.ID] = &copied
	}
	return l
}

func (l *fakeLedger) GetProduct(_ context.Context, productID string) (*domain.Product, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	p, ok := l.products[productID]
	if !ok {
		return nil, errors.NotFound("product")
	}
	copied := *p
	return &copied, nil
}

func (l *fakeLedger) ListActiveBySeller(_ context.Context, sellerID string) ([]*domain.Product, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var products []*domain.Product
	for _, p := range l.products {
		if p.SellerID == sellerID {
			copied := *p
			products = append(products, &copied)
		}
	}
	return products, nil
}

func (l *fakeLedger) IncrementStock(_ context.Context, productID string, quantity int) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	p, ok := l.products[productID]
	if !ok {
		return 0, errors.NotFound("product")
	}
	p.Stock += quantity
	return p.Stock, nil
}

func (l *fakeLedger) DecrementStock(_ context.Context, productID string, quantity int) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	p, ok := l.products[productID]
	if !ok {
		return 0, errors.NotFound("product")
	}
	if p.Stock < quantity {
		return 0, errors.InsufficientStock(productID)
	}
	p.Stock -= quantity
	return p.Stock, nil
}

func (l *fakeLedger) SetStock(_ context.Context, productID string, quantity int) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	p, ok := l.products[productID]
	if !ok {
		return 0, errors.NotFound("product")
	}
	p.Stock = quantity
	return p.Stock, nil
}

func (l *fakeLedger) stock(productID string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.products[productID].Stock
}

// fakeSales serves canned order-line history per product
type fakeSales struct {
	lines map[string][]domain.OrderLine
}

func newFakeSales() *fakeSales {
	return &fakeSales{lines: make(map[string][]domain.OrderLine)}
}

func (s *fakeSales) ListConfirmedOrderLines(_ context.Context, productID string, since time.Time) ([]domain.OrderLine, error) {
	var out []domain.OrderLine
	for _, line := range s.lines[productID] {
		if !line.Date.Before(since) {
			out = append(out, line)
		}
	}
	return out, nil
}

// eventRecorder captures emitted events for assertions
type eventRecorder struct {
	mu     sync.Mutex
	events []recordedEvent
}

type recordedEvent struct {
	Type       string
	AudienceID string
}

func (r *eventRecorder) Emit(_ context.Context, eventType string, _ any, audienceID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, recordedEvent{Type: eventType, AudienceID: audienceID})
}

func (r *eventRecorder) countByType(eventType string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, e := range r.events {
		if e.Type == eventType {
			count++
		}
	}
	return count
}

func testForecastConfig() config.ForecastConfig {
	return config.ForecastConfig{
		LookbackDays:          90,
		WindowDays:            30,
		DefaultForecastDays:   30,
		LeadTimeDays:          7,
		SafetyStockMultiplier: 1.5,
		OverstockMultiplier:   3.0,
		OrderBufferMultiplier: 1.2,
		CacheTTL:              time.Hour,
	}
}

func newTestManager(t *testing.T, ledger *fakeLedger, ttl time.Duration) (*service.ReservationManager, *eventRecorder) {
	t.Helper()
	recorder := &eventRecorder{}
	log := logger.New("test", "test")
	manager := service.NewReservationManager(
		ledger,
		repository.NewMemoryReservationRepository(),
		cache.NewMemory(),
		recorder,
		service.NewAlertEngine(3.0),
		ttl,
		log,
	)
	return manager, recorder
}

func newTestForecastService(t *testing.T, ledger *fakeLedger, sales *fakeSales) (*service.ForecastService, *eventRecorder) {
	t.Helper()
	recorder := &eventRecorder{}
	log := logger.New("test", "test")
	svc := service.NewForecastService(
		ledger,
		sales,
		cache.NewMemory(),
		service.NewAlertEngine(3.0),
		recorder,
		testForecastConfig(),
		log,
	)
	return svc, recorder
}

func strPtr(s string) *string {
	return &s
}

// day returns midnight UTC offset days from today (negative = past)
func day(offset int) time.Time {
	now := time.Now().UTC()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return midnight.AddDate(0, 0, offset)
}
