package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/marketbay/marketbay-backend/internal/inventory/domain"
	"github.com/marketbay/marketbay-backend/pkg/config"
	"github.com/marketbay/marketbay-backend/pkg/errors"
	"github.com/marketbay/marketbay-backend/pkg/logger"
	"github.com/marketbay/marketbay-backend/pkg/messaging"
)

// confidenceZ is the z-score for a 95% prediction interval
const confidenceZ = 1.96

// Per-day confidence decays linearly with horizon down to a floor
const (
	dailyConfidenceStart = 100
	dailyConfidenceDecay = 2
	dailyConfidenceFloor = 50
)

// ForecastService turns historical sales into per-product demand predictions,
// reorder points, and risk classification. Computation is a pure function
// over snapshots; the only shared state is the result cache.
type ForecastService struct {
	ledger domain.StockLedger
	sales  domain.SalesHistory
	cache  domain.Cache
	alerts *AlertEngine
	events domain.EventPort
	logger *logger.Logger
	cfg    config.ForecastConfig
}

// NewForecastService creates a forecast service. Zero-valued config fields
// fall back to the conventional defaults (90-day lookback, 30-day window,
// 7-day lead time, 1.5 safety stock, 1.2 order buffer, 1h cache TTL).
func NewForecastService(
	ledger domain.StockLedger,
	sales domain.SalesHistory,
	cache domain.Cache,
	alerts *AlertEngine,
	events domain.EventPort,
	cfg config.ForecastConfig,
	log *logger.Logger,
) *ForecastService {
	if cfg.LookbackDays <= 0 {
		cfg.LookbackDays = 90
	}
	if cfg.WindowDays <= 0 {
		cfg.WindowDays = 30
	}
	if cfg.DefaultForecastDays <= 0 {
		cfg.DefaultForecastDays = 30
	}
	if cfg.LeadTimeDays <= 0 {
		cfg.LeadTimeDays = 7
	}
	if cfg.SafetyStockMultiplier <= 0 {
		cfg.SafetyStockMultiplier = 1.5
	}
	if cfg.OrderBufferMultiplier <= 0 {
		cfg.OrderBufferMultiplier = 1.2
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = time.Hour
	}

	return &ForecastService{
		ledger: ledger,
		sales:  sales,
		cache:  cache,
		alerts: alerts,
		events: events,
		logger: log.WithComponent("forecast-engine"),
		cfg:    cfg,
	}
}

// ForecastCachePrefix is the cache key prefix for all of a product's
// forecast views; stock writes invalidate by this prefix
func ForecastCachePrefix(productID string) string {
	return "forecast:" + productID + ":"
}

func forecastCacheKey(productID string, forecastDays int) string {
	return fmt.Sprintf("%s%d", ForecastCachePrefix(productID), forecastDays)
}

// GenerateForecast produces a demand forecast for the given horizon.
// Returns nil with a nil error for an unknown product so that batch callers
// tolerate missing products without aborting.
func (s *ForecastService) GenerateForecast(ctx context.Context, productID string, forecastDays int) (*domain.ForecastResult, error) {
	if forecastDays <= 0 {
		forecastDays = s.cfg.DefaultForecastDays
	}

	cacheKey := forecastCacheKey(productID, forecastDays)
	if s.cache != nil {
		var cached domain.ForecastResult
		ok, err := s.cache.Get(ctx, cacheKey, &cached)
		if err != nil {
			s.logger.Warn().Err(err).Str("product_id", productID).Msg("forecast cache read failed")
		} else if ok {
			return &cached, nil
		}
	}

	product, err := s.ledger.GetProduct(ctx, productID)
	if err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			s.logger.Debug().Str("product_id", productID).Msg("forecast skipped: product not found")
			return nil, nil
		}
		return nil, err
	}

	now := time.Now().UTC()
	today := truncateDay(now)
	since := today.AddDate(0, 0, -(s.cfg.LookbackDays - 1))

	lines, err := s.sales.ListConfirmedOrderLines(ctx, productID, since)
	if err != nil {
		return nil, err
	}

	series := buildDailySeries(lines, since, s.cfg.LookbackDays)
	historyDays := historyLength(lines, today, s.cfg.LookbackDays)

	window := lastQuantities(series, s.cfg.WindowDays)
	avg, stdDev := meanStdDev(window)
	slope := olsSlope(window)
	multipliers := weekdayMultipliers(series)

	margin := stdDev * confidenceZ
	predictions := make([]domain.DailyPrediction, 0, forecastDays)
	for i := 1; i <= forecastDays; i++ {
		date := today.AddDate(0, 0, i)

		base := avg + slope*float64(i)
		if base < 0 {
			base = 0
		}
		demand := int(math.Round(base * multipliers[date.Weekday()]))

		lower := float64(demand) - margin
		if lower < 0 {
			lower = 0
		}

		confidence := dailyConfidenceStart - dailyConfidenceDecay*i
		if confidence < dailyConfidenceFloor {
			confidence = dailyConfidenceFloor
		}

		predictions = append(predictions, domain.DailyPrediction{
			Date:            date,
			PredictedDemand: demand,
			LowerBound:      lower,
			UpperBound:      float64(demand) + margin,
			Confidence:      confidence,
		})
	}

	result := &domain.ForecastResult{
		ProductID:       productID,
		CurrentStock:    product.Stock,
		Predictions:     predictions,
		WeeklyForecast:  sumDemand(predictions, 7),
		MonthlyForecast: sumDemand(predictions, 30),
		AvgDailyDemand:  avg,
		ReorderPoint:    int(math.Ceil(avg * float64(s.cfg.LeadTimeDays) * s.cfg.SafetyStockMultiplier)),
		StockoutRisk:    s.classifyRisk(product.Stock, avg),
		SeasonalTrend:   seasonalTrend(series, historyDays),
		Confidence:      overallConfidence(historyDays),
		GeneratedAt:     now,
	}
	result.RecommendedOrderQuantity = int(math.Ceil(float64(result.MonthlyForecast) * s.cfg.OrderBufferMultiplier))

	if avg > 0 {
		days := int(math.Floor(float64(product.Stock) / avg))
		result.DaysUntilStockout = &days
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, result, s.cfg.CacheTTL); err != nil {
			s.logger.Warn().Err(err).Str("product_id", productID).Msg("forecast cache write failed")
		}
	}

	return result, nil
}

// GetInventoryAlerts returns the union of alerts over a seller's active
// products, most urgent first. Products whose forecast fails degrade to
// stock-only alerts instead of aborting the batch.
func (s *ForecastService) GetInventoryAlerts(ctx context.Context, sellerID string) ([]domain.InventoryAlert, error) {
	products, err := s.ledger.ListActiveBySeller(ctx, sellerID)
	if err != nil {
		return nil, err
	}

	alerts := make([]domain.InventoryAlert, 0)
	for _, product := range products {
		forecast, err := s.GenerateForecast(ctx, product.ID, s.cfg.DefaultForecastDays)
		if err != nil {
			s.logger.Warn().Err(err).Str("product_id", product.ID).Msg("forecast unavailable for alert check")
			forecast = nil
		}

		productAlerts := s.alerts.EvaluateProduct(product, forecast)
		for _, alert := range productAlerts {
			s.events.Emit(ctx, messaging.EventAlertGenerated, messaging.AlertGeneratedEvent{
				ProductID:    alert.ProductID,
				SellerID:     sellerID,
				AlertType:    string(alert.AlertType),
				Severity:     string(alert.Severity),
				CurrentStock: alert.CurrentStock,
				Message:      alert.Message,
			}, sellerID)
		}
		alerts = append(alerts, productAlerts...)
	}

	SortAlerts(alerts)
	return alerts, nil
}

// GetRestockRecommendations returns reorder suggestions for a seller's
// products at medium or higher stockout risk, most urgent first
func (s *ForecastService) GetRestockRecommendations(ctx context.Context, sellerID string) ([]domain.RestockRecommendation, error) {
	products, err := s.ledger.ListActiveBySeller(ctx, sellerID)
	if err != nil {
		return nil, err
	}

	recommendations := make([]domain.RestockRecommendation, 0)
	for _, product := range products {
		forecast, err := s.GenerateForecast(ctx, product.ID, s.cfg.DefaultForecastDays)
		if err != nil || forecast == nil {
			if err != nil {
				s.logger.Warn().Err(err).Str("product_id", product.ID).Msg("forecast unavailable for restock check")
			}
			continue
		}

		var urgency domain.Urgency
		switch {
		case forecast.StockoutRisk == domain.RiskHigh && product.Stock == 0:
			urgency = domain.UrgencyCritical
		case forecast.StockoutRisk == domain.RiskHigh:
			urgency = domain.UrgencyHigh
		case forecast.StockoutRisk == domain.RiskMedium:
			urgency = domain.UrgencyMedium
		default:
			continue
		}

		rec := domain.RestockRecommendation{
			ProductID:           product.ID,
			CurrentStock:        product.Stock,
			RecommendedQuantity: forecast.RecommendedOrderQuantity,
			Urgency:             urgency,
			LeadTimeDays:        s.cfg.LeadTimeDays,
		}
		if product.PriceCents > 0 {
			cost := product.PriceCents * forecast.RecommendedOrderQuantity
			rec.EstimatedCostCents = &cost
		}
		recommendations = append(recommendations, rec)
	}

	sortRecommendations(recommendations)
	return recommendations, nil
}

// BulkForecast computes forecasts for all of a seller's active products,
// skipping products whose forecast fails
func (s *ForecastService) BulkForecast(ctx context.Context, sellerID string) (map[string]*domain.ForecastResult, error) {
	products, err := s.ledger.ListActiveBySeller(ctx, sellerID)
	if err != nil {
		return nil, err
	}

	results := make(map[string]*domain.ForecastResult, len(products))
	for _, product := range products {
		forecast, err := s.GenerateForecast(ctx, product.ID, s.cfg.DefaultForecastDays)
		if err != nil {
			s.logger.Warn().Err(err).Str("product_id", product.ID).Msg("bulk forecast: product skipped")
			continue
		}
		if forecast != nil {
			results[product.ID] = forecast
		}
	}

	return results, nil
}

// classifyRisk compares days of stock on hand against the lead-time demand
// horizon scaled by the safety stock multiplier
func (s *ForecastService) classifyRisk(currentStock int, avgDailyDemand float64) domain.StockoutRisk {
	if avgDailyDemand == 0 {
		return domain.RiskLow
	}

	daysOfStock := float64(currentStock) / avgDailyDemand
	riskThreshold := float64(s.cfg.LeadTimeDays) * s.cfg.SafetyStockMultiplier

	switch {
	case daysOfStock > 2*riskThreshold:
		return domain.RiskLow
	case daysOfStock > riskThreshold:
		return domain.RiskMedium
	default:
		return domain.RiskHigh
	}
}
