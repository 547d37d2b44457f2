package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/marketbay/marketbay-backend/internal/inventory/cache"
	"github.com/marketbay/marketbay-backend/internal/inventory/domain"
	"github.com/marketbay/marketbay-backend/internal/inventory/handler"
	"github.com/marketbay/marketbay-backend/internal/inventory/repository"
	"github.com/marketbay/marketbay-backend/internal/inventory/service"
	"github.com/marketbay/marketbay-backend/pkg/errors"
	"github.com/marketbay/marketbay-backend/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// staticLedger is a fixed product table for handler tests
type staticLedger struct {
	mu       sync.Mutex
	products map[string]*domain.Product
}

func (l *staticLedger) GetProduct(_ context.Context, productID string) (*domain.Product, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	p, ok := l.products[productID]
	if !ok {
		return nil, errors.NotFound("product")
	}
	cp := *p
	return &cp, nil
}

func (l *staticLedger) ListActiveBySeller(_ context.Context, sellerID string) ([]*domain.Product, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []*domain.Product
	for _, p := range l.products {
		if p.SellerID == sellerID {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (l *staticLedger) IncrementStock(_ context.Context, productID string, quantity int) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	p, ok := l.products[productID]
	if !ok {
		return 0, errors.NotFound("product")
	}
	p.Stock += quantity
	return p.Stock, nil
}

func (l *staticLedger) DecrementStock(_ context.Context, productID string, quantity int) (int, error) {
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

func (l *staticLedger) SetStock(_ context.Context, productID string, quantity int) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	p, ok := l.products[productID]
	if !ok {
		return 0, errors.NotFound("product")
	}
	p.Stock = quantity
	return p.Stock, nil
}

type noopEvents struct{}

func (noopEvents) Emit(context.Context, string, any, string) {}

func newTestRouter(t *testing.T, products ...*domain.Product) *chi.Mux {
	t.Helper()
	router, _ := newTestEnv(t, products...)
	return router
}

// newTestEnv exposes the manager alongside the router so tests can seed
// reservations with a custom TTL
func newTestEnv(t *testing.T, products ...*domain.Product) (*chi.Mux, *service.ReservationManager) {
	t.Helper()

	ledger := &staticLedger{products: make(map[string]*domain.Product)}
	for _, p := range products {
		cp := *p
		ledger.products[p.ID] = &cp
	}

	log := logger.New("test", "test")
	manager := service.NewReservationManager(
		ledger,
		repository.NewMemoryReservationRepository(),
		cache.NewMemory(),
		noopEvents{},
		service.NewAlertEngine(3.0),
		time.Minute,
		log,
	)
	h := handler.NewReservationHandler(manager, log)

	r := chi.NewRouter()
	r.Route("/reservations", func(r chi.Router) {
		r.Post("/", h.Reserve)
		r.Post("/{id}/confirm", h.Confirm)
		r.Post("/{id}/cancel", h.Cancel)
	})
	r.Route("/products/{productId}", func(r chi.Router) {
		r.Get("/available", h.AvailableStock)
		r.Put("/stock", h.UpdateStock)
	})
	return r, manager
}

func doJSON(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()

	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.NoError(t, json.Unmarshal(envelope.Data, v))
}

func TestReserveEndpoint_Created(t *testing.T) {
	router := newTestRouter(t, &domain.Product{ID: "p1", SellerID: "s1", Stock: 10})

	rec := doJSON(t, router, http.MethodPost, "/reservations", handler.ReserveRequest{
		ProductID: "p1",
		Quantity:  3,
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var reservation domain.Reservation
	decodeData(t, rec, &reservation)
	assert.NotEmpty(t, reservation.ID)
	assert.Equal(t, "p1", reservation.ProductID)
	assert.Equal(t, domain.ReservationPending, reservation.Status)
}

func TestReserveEndpoint_InsufficientStock(t *testing.T) {
	router := newTestRouter(t, &domain.Product{ID: "p1", SellerID: "s1", Stock: 2})

	rec := doJSON(t, router, http.MethodPost, "/reservations", handler.ReserveRequest{
		ProductID: "p1",
		Quantity:  3,
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "INSUFFICIENT_STOCK")
}

func TestReserveEndpoint_ValidationFailure(t *testing.T) {
	router := newTestRouter(t, &domain.Product{ID: "p1", SellerID: "s1", Stock: 10})

	rec := doJSON(t, router, http.MethodPost, "/reservations", map[string]any{
		"product_id": "p1",
		"quantity":   0,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestConfirmEndpoint_FullFlow(t *testing.T) {
	router := newTestRouter(t, &domain.Product{ID: "p1", SellerID: "s1", Stock: 10})

	rec := doJSON(t, router, http.MethodPost, "/reservations", handler.ReserveRequest{
		ProductID: "p1",
		Quantity:  4,
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var reservation domain.Reservation
	decodeData(t, rec, &reservation)

	rec = doJSON(t, router, http.MethodPost, "/reservations/"+reservation.ID+"/confirm", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	// Second confirm conflicts rather than double-decrementing, and the code
	// says the hold is finalized, not lapsed
	rec = doJSON(t, router, http.MethodPost, "/reservations/"+reservation.ID+"/confirm", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "ALREADY_FINALIZED")

	rec = doJSON(t, router, http.MethodGet, "/products/p1/available", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var available handler.AvailableStockResponse
	decodeData(t, rec, &available)
	assert.Equal(t, 6, available.AvailableStock)
}

func TestConfirmEndpoint_UnknownReservation(t *testing.T) {
	router := newTestRouter(t, &domain.Product{ID: "p1", SellerID: "s1", Stock: 10})

	rec := doJSON(t, router, http.MethodPost, "/reservations/no-such-id/confirm", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "NOT_FOUND")
}

func TestConfirmEndpoint_ExpiredReservation(t *testing.T) {
	router, manager := newTestEnv(t, &domain.Product{ID: "p1", SellerID: "s1", Stock: 10})

	reservation, err := manager.Reserve(context.Background(), "p1", 2, nil, nil, 30*time.Millisecond)
	require.NoError(t, err)
	require.NotNil(t, reservation)

	time.Sleep(50 * time.Millisecond)

	rec := doJSON(t, router, http.MethodPost, "/reservations/"+reservation.ID+"/confirm", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "RESERVATION_EXPIRED")
}

func TestCancelEndpoint(t *testing.T) {
	router := newTestRouter(t, &domain.Product{ID: "p1", SellerID: "s1", Stock: 10})

	rec := doJSON(t, router, http.MethodPost, "/reservations", handler.ReserveRequest{
		ProductID: "p1",
		Quantity:  4,
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var reservation domain.Reservation
	decodeData(t, rec, &reservation)

	rec = doJSON(t, router, http.MethodPost, "/reservations/"+reservation.ID+"/cancel", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/products/p1/available", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var available handler.AvailableStockResponse
	decodeData(t, rec, &available)
	assert.Equal(t, 10, available.AvailableStock)
}

func TestCancelEndpoint_UnknownReservation(t *testing.T) {
	router := newTestRouter(t, &domain.Product{ID: "p1", SellerID: "s1", Stock: 10})

	rec := doJSON(t, router, http.MethodPost, "/reservations/no-such-id/cancel", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "NOT_FOUND")
}

func TestUpdateStockEndpoint(t *testing.T) {
	router := newTestRouter(t, &domain.Product{ID: "p1", SellerID: "s1", Stock: 10})

	rec := doJSON(t, router, http.MethodPut, "/products/p1/stock", handler.UpdateStockRequest{
		Quantity:  25,
		Operation: "set",
		Reason:    "recount",
	})
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/products/p1/available", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var available handler.AvailableStockResponse
	decodeData(t, rec, &available)
	assert.Equal(t, 25, available.AvailableStock)
}

func TestUpdateStockEndpoint_InvalidOperation(t *testing.T) {
	router := newTestRouter(t, &domain.Product{ID: "p1", SellerID: "s1", Stock: 10})

	rec := doJSON(t, router, http.MethodPut, "/products/p1/stock", map[string]any{
		"quantity":  5,
		"operation": "multiply",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
