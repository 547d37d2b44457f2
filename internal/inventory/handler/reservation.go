package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/marketbay/marketbay-backend/internal/inventory/domain"
	"github.com/marketbay/marketbay-backend/internal/inventory/service"
	"github.com/marketbay/marketbay-backend/pkg/errors"
	"github.com/marketbay/marketbay-backend/pkg/httputil"
	"github.com/marketbay/marketbay-backend/pkg/logger"
)

// ReservationHandler handles reservation and stock endpoints
type ReservationHandler struct {
	manager *service.ReservationManager
	logger  *logger.Logger
}

// NewReservationHandler creates a new reservation handler
func NewReservationHandler(manager *service.ReservationManager, log *logger.Logger) *ReservationHandler {
	return &ReservationHandler{
		manager: manager,
		logger:  log,
	}
}

// ReserveRequest is the payload for creating a stock hold
type ReserveRequest struct {
	ProductID  string  `json:"product_id" validate:"required"`
	Quantity   int     `json:"quantity" validate:"required,gt=0"`
	OrderID    *string `json:"order_id,omitempty"`
	UserID     *string `json:"user_id,omitempty"`
	TTLSeconds int     `json:"ttl_seconds,omitempty" validate:"omitempty,gt=0"`
}

// UpdateStockRequest is the payload for a direct stock adjustment
type UpdateStockRequest struct {
	Quantity  int    `json:"quantity" validate:"min=0"`
	Operation string `json:"operation" validate:"required,oneof=increment decrement set"`
	Reason    string `json:"reason,omitempty"`
}

// AvailableStockResponse reports sellable stock for a product
type AvailableStockResponse struct {
	ProductID      string `json:"product_id"`
	AvailableStock int    `json:"available_stock"`
}

// Reserve creates a pending hold on product stock
func (h *ReservationHandler) Reserve(w http.ResponseWriter, r *http.Request) {
	var req ReserveRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(req); err != nil {
		httputil.Error(w, err)
		return
	}

	ttl := time.Duration(req.TTLSeconds) * time.Second

	reservation, err := h.manager.Reserve(r.Context(), req.ProductID, req.Quantity, req.OrderID, req.UserID, ttl)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	if reservation == nil {
		httputil.Error(w, errors.InsufficientStock(req.ProductID))
		return
	}

	httputil.Created(w, reservation)
}

// Confirm finalizes a pending reservation, decrementing ledger stock
func (h *ReservationHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	ok, err := h.manager.ConfirmReservation(r.Context(), id)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	if !ok {
		httputil.Error(w, h.rejectionError(r.Context(), id))
		return
	}

	httputil.JSON(w, http.StatusOK, map[string]any{"reservation_id": id, "status": domain.ReservationConfirmed})
}

// Cancel releases a pending reservation back to available stock
func (h *ReservationHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	ok, err := h.manager.CancelReservation(r.Context(), id)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	if !ok {
		httputil.Error(w, h.rejectionError(r.Context(), id))
		return
	}

	httputil.JSON(w, http.StatusOK, map[string]any{"reservation_id": id, "status": domain.ReservationCancelled})
}

// rejectionError maps a rejected confirm or cancel to the error the caller
// can act on. Only a hold that actually lapsed invites a re-reserve; an
// unknown ID or an already-finalized hold does not.
func (h *ReservationHandler) rejectionError(ctx context.Context, id string) error {
	reservation, err := h.manager.GetReservation(ctx, id)
	if err != nil {
		return err
	}
	if reservation == nil {
		return errors.NotFound("reservation")
	}
	switch reservation.Status {
	case domain.ReservationConfirmed, domain.ReservationCancelled:
		return errors.AlreadyFinalized(id)
	case domain.ReservationPending:
		if reservation.IsExpired(time.Now().UTC()) {
			return errors.Expired(id)
		}
		return errors.Conflict("reservation state changed, retry")
	default:
		return errors.Expired(id)
	}
}

// AvailableStock returns ledger stock minus pending holds for a product
func (h *ReservationHandler) AvailableStock(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "productId")

	available, err := h.manager.GetAvailableStock(r.Context(), productID)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, AvailableStockResponse{
		ProductID:      productID,
		AvailableStock: available,
	})
}

// UpdateStock applies a direct administrative stock adjustment
func (h *ReservationHandler) UpdateStock(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "productId")

	var req UpdateStockRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(req); err != nil {
		httputil.Error(w, err)
		return
	}

	ok, err := h.manager.UpdateProductStock(r.Context(), productID, req.Quantity, domain.StockOperation(req.Operation), req.Reason)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	if !ok {
		httputil.Error(w, errors.Conflict("stock update rejected"))
		return
	}

	httputil.NoContent(w)
}
