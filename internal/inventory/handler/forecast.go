package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/marketbay/marketbay-backend/internal/inventory/service"
	"github.com/marketbay/marketbay-backend/pkg/errors"
	"github.com/marketbay/marketbay-backend/pkg/httputil"
	"github.com/marketbay/marketbay-backend/pkg/logger"
)

const maxForecastDays = 365

// ForecastHandler handles forecasting, alert, and restock endpoints
type ForecastHandler struct {
	service *service.ForecastService
	logger  *logger.Logger
}

// NewForecastHandler creates a new forecast handler
func NewForecastHandler(svc *service.ForecastService, log *logger.Logger) *ForecastHandler {
	return &ForecastHandler{
		service: svc,
		logger:  log,
	}
}

// Forecast returns the demand forecast for a product
func (h *ForecastHandler) Forecast(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "productId")

	days := 0
	if raw := r.URL.Query().Get("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > maxForecastDays {
			httputil.Error(w, errors.BadRequest("days must be an integer between 1 and 365"))
			return
		}
		days = parsed
	}

	forecast, err := h.service.GenerateForecast(r.Context(), productID, days)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	if forecast == nil {
		httputil.Error(w, errors.NotFound("product"))
		return
	}

	httputil.JSON(w, http.StatusOK, forecast)
}

// Alerts returns all active inventory alerts for a seller, most urgent first
func (h *ForecastHandler) Alerts(w http.ResponseWriter, r *http.Request) {
	sellerID := chi.URLParam(r, "sellerId")

	alerts, err := h.service.GetInventoryAlerts(r.Context(), sellerID)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, alerts)
}

// RestockRecommendations returns reorder suggestions for a seller
func (h *ForecastHandler) RestockRecommendations(w http.ResponseWriter, r *http.Request) {
	sellerID := chi.URLParam(r, "sellerId")

	recommendations, err := h.service.GetRestockRecommendations(r.Context(), sellerID)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, recommendations)
}

// BulkForecast returns forecasts for every active product of a seller
func (h *ForecastHandler) BulkForecast(w http.ResponseWriter, r *http.Request) {
	sellerID := chi.URLParam(r, "sellerId")

	forecasts, err := h.service.BulkForecast(r.Context(), sellerID)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, forecasts)
}
