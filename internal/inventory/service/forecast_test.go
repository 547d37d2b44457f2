package service_test

import (
	"context"
	"testing"

	"github.com/marketbay/marketbay-backend/internal/inventory/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// steadySales fills the full lookback with a constant daily quantity
func steadySales(sales *fakeSales, productID string, perDay int) {
	for offset := -89; offset <= 0; offset++ {
		sales.lines[productID] = append(sales.lines[productID], domain.OrderLine{
			Date:       day(offset),
			Quantity:   perDay,
			TotalPrice: float64(perDay) * 10,
		})
	}
}

func TestGenerateForecast_SteadyDemand(t *testing.T) {
	ctx := context.Background()
	ledger := newFakeLedger(&domain.Product{ID: "p1", SellerID: "s1", Stock: 100})
	sales := newFakeSales()
	steadySales(sales, "p1", 4)
	svc, _ := newTestForecastService(t, ledger, sales)

	forecast, err := svc.GenerateForecast(ctx, "p1", 30)
	require.NoError(t, err)
	require.NotNil(t, forecast)

	require.Len(t, forecast.Predictions, 30)
	for i, p := range forecast.Predictions {
		// Constant demand: zero variance, zero slope, neutral weekday factors
		assert.Equal(t, 4, p.PredictedDemand, "day %d", i+1)
		assert.InDelta(t, 4, p.LowerBound, 1e-9)
		assert.InDelta(t, 4, p.UpperBound, 1e-9)
		assert.GreaterOrEqual(t, p.Confidence, 50)
		assert.LessOrEqual(t, p.Confidence, 100)
	}

	assert.Equal(t, 28, forecast.WeeklyForecast)
	assert.Equal(t, 120, forecast.MonthlyForecast)
	assert.InDelta(t, 4.0, forecast.AvgDailyDemand, 1e-9)

	// ceil(4 * 7 * 1.5) and ceil(120 * 1.2)
	assert.Equal(t, 42, forecast.ReorderPoint)
	assert.Equal(t, 144, forecast.RecommendedOrderQuantity)

	// 100/4 = 25 days of stock, risk threshold 10.5, 2x = 21 -> low
	require.NotNil(t, forecast.DaysUntilStockout)
	assert.Equal(t, 25, *forecast.DaysUntilStockout)
	assert.Equal(t, domain.RiskLow, forecast.StockoutRisk)
	assert.Equal(t, domain.TrendStable, forecast.SeasonalTrend)
	assert.Equal(t, 95, forecast.Confidence)
}

func TestGenerateForecast_NoHistory(t *testing.T) {
	ctx := context.Background()
	ledger := newFakeLedger(&domain.Product{ID: "p1", SellerID: "s1", Stock: 50})
	svc, _ := newTestForecastService(t, ledger, newFakeSales())

	forecast, err := svc.GenerateForecast(ctx, "p1", 30)
	require.NoError(t, err)
	require.NotNil(t, forecast)

	for _, p := range forecast.Predictions {
		assert.Equal(t, 0, p.PredictedDemand)
		assert.Zero(t, p.LowerBound)
		assert.Zero(t, p.UpperBound)
	}
	assert.Equal(t, 0, forecast.WeeklyForecast)
	assert.Equal(t, 0, forecast.MonthlyForecast)
	assert.Equal(t, domain.RiskLow, forecast.StockoutRisk)
	assert.Equal(t, domain.TrendStable, forecast.SeasonalTrend)
	assert.Nil(t, forecast.DaysUntilStockout)
	assert.Equal(t, 50, forecast.Confidence)
}

func TestGenerateForecast_GrowingDemand(t *testing.T) {
	ctx := context.Background()
	ledger := newFakeLedger(&domain.Product{ID: "p1", SellerID: "s1", Stock: 40})
	sales := newFakeSales()
	// Demand grows by 10 units every day for the last three weeks
	for i := 0; i < 21; i++ {
		offset := -20 + i
		sales.lines["p1"] = append(sales.lines["p1"], domain.OrderLine{
			Date:     day(offset),
			Quantity: (i + 1) * 10,
		})
	}
	svc, _ := newTestForecastService(t, ledger, sales)

	forecast, err := svc.GenerateForecast(ctx, "p1", 30)
	require.NoError(t, err)
	require.NotNil(t, forecast)

	assert.Equal(t, domain.TrendIncreasing, forecast.SeasonalTrend)
	assert.Greater(t, forecast.AvgDailyDemand, 0.0)

	// Stock covers well under a lead time of recent demand
	assert.Equal(t, domain.RiskHigh, forecast.StockoutRisk)
	require.NotNil(t, forecast.DaysUntilStockout)
}

func TestGenerateForecast_BoundsOrdering(t *testing.T) {
	ctx := context.Background()
	ledger := newFakeLedger(&domain.Product{ID: "p1", SellerID: "s1", Stock: 100})
	sales := newFakeSales()
	// Alternate 2 and 8 units so the series has real variance
	for offset := -89; offset <= 0; offset++ {
		quantity := 2
		if offset%2 == 0 {
			quantity = 8
		}
		sales.lines["p1"] = append(sales.lines["p1"], domain.OrderLine{Date: day(offset), Quantity: quantity})
	}
	svc, _ := newTestForecastService(t, ledger, sales)

	forecast, err := svc.GenerateForecast(ctx, "p1", 14)
	require.NoError(t, err)
	require.NotNil(t, forecast)

	require.Len(t, forecast.Predictions, 14)
	for _, p := range forecast.Predictions {
		assert.GreaterOrEqual(t, p.LowerBound, 0.0)
		assert.LessOrEqual(t, p.LowerBound, float64(p.PredictedDemand))
		assert.GreaterOrEqual(t, p.UpperBound, float64(p.PredictedDemand))
		assert.GreaterOrEqual(t, p.PredictedDemand, 0)
	}
}

func TestGenerateForecast_ZeroStockHighRisk(t *testing.T) {
	ctx := context.Background()
	ledger := newFakeLedger(&domain.Product{ID: "p1", SellerID: "s1", Stock: 0})
	sales := newFakeSales()
	steadySales(sales, "p1", 5)
	svc, _ := newTestForecastService(t, ledger, sales)

	forecast, err := svc.GenerateForecast(ctx, "p1", 30)
	require.NoError(t, err)
	require.NotNil(t, forecast)

	assert.Equal(t, domain.RiskHigh, forecast.StockoutRisk)
	require.NotNil(t, forecast.DaysUntilStockout)
	assert.Equal(t, 0, *forecast.DaysUntilStockout)
}

func TestGenerateForecast_UnknownProduct(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestForecastService(t, newFakeLedger(), newFakeSales())

	forecast, err := svc.GenerateForecast(ctx, "missing", 30)
	require.NoError(t, err)
	assert.Nil(t, forecast)
}

func TestGenerateForecast_CachesResult(t *testing.T) {
	ctx := context.Background()
	ledger := newFakeLedger(&domain.Product{ID: "p1", SellerID: "s1", Stock: 100})
	sales := newFakeSales()
	steadySales(sales, "p1", 4)
	svc, _ := newTestForecastService(t, ledger, sales)

	first, err := svc.GenerateForecast(ctx, "p1", 30)
	require.NoError(t, err)
	require.NotNil(t, first)

	second, err := svc.GenerateForecast(ctx, "p1", 30)
	require.NoError(t, err)
	require.NotNil(t, second)

	assert.True(t, second.GeneratedAt.Equal(first.GeneratedAt), "second call should come from cache")

	// A different horizon is a different cache entry
	other, err := svc.GenerateForecast(ctx, "p1", 7)
	require.NoError(t, err)
	require.NotNil(t, other)
	assert.Len(t, other.Predictions, 7)
}

func TestGetInventoryAlerts_SortedBySeverity(t *testing.T) {
	ctx := context.Background()
	ledger := newFakeLedger(
		&domain.Product{ID: "out", SellerID: "s1", Stock: 0, LowStockThreshold: 10},
		&domain.Product{ID: "low", SellerID: "s1", Stock: 3, LowStockThreshold: 10},
		&domain.Product{ID: "fine", SellerID: "s1", Stock: 500, LowStockThreshold: 10},
		&domain.Product{ID: "other-seller", SellerID: "s2", Stock: 0},
	)
	sales := newFakeSales()
	steadySales(sales, "fine", 5)
	svc, recorder := newTestForecastService(t, ledger, sales)

	alerts, err := svc.GetInventoryAlerts(ctx, "s1")
	require.NoError(t, err)

	// stockout (critical), low_stock (warning), overstock (info): 500 > 150*3
	require.Len(t, alerts, 3)
	assert.Equal(t, domain.AlertStockout, alerts[0].AlertType)
	assert.Equal(t, domain.SeverityCritical, alerts[0].Severity)
	assert.Equal(t, domain.AlertLowStock, alerts[1].AlertType)
	assert.Equal(t, domain.SeverityWarning, alerts[1].Severity)
	assert.Equal(t, domain.AlertOverstock, alerts[2].AlertType)
	assert.Equal(t, domain.SeverityInfo, alerts[2].Severity)

	// One event per alert, none for the other seller's product
	assert.Equal(t, 3, recorder.countByType("inventory.alert.generated"))
}

func TestGetRestockRecommendations_UrgencyMapping(t *testing.T) {
	ctx := context.Background()
	ledger := newFakeLedger(
		&domain.Product{ID: "empty", SellerID: "s1", Stock: 0, PriceCents: 500},
		&domain.Product{ID: "short", SellerID: "s1", Stock: 20},
		&domain.Product{ID: "plenty", SellerID: "s1", Stock: 1000},
	)
	sales := newFakeSales()
	steadySales(sales, "empty", 5)
	steadySales(sales, "short", 5)
	steadySales(sales, "plenty", 5)
	svc, _ := newTestForecastService(t, ledger, sales)

	recs, err := svc.GetRestockRecommendations(ctx, "s1")
	require.NoError(t, err)

	// empty: high risk at zero stock -> critical; short: 4 days of stock -> high;
	// plenty: 200 days of stock -> omitted
	require.Len(t, recs, 2)
	assert.Equal(t, "empty", recs[0].ProductID)
	assert.Equal(t, domain.UrgencyCritical, recs[0].Urgency)
	require.NotNil(t, recs[0].EstimatedCostCents)
	assert.Equal(t, recs[0].RecommendedQuantity*500, *recs[0].EstimatedCostCents)

	assert.Equal(t, "short", recs[1].ProductID)
	assert.Equal(t, domain.UrgencyHigh, recs[1].Urgency)
	assert.Nil(t, recs[1].EstimatedCostCents)
}

func TestBulkForecast(t *testing.T) {
	ctx := context.Background()
	ledger := newFakeLedger(
		&domain.Product{ID: "p1", SellerID: "s1", Stock: 10},
		&domain.Product{ID: "p2", SellerID: "s1", Stock: 20},
		&domain.Product{ID: "p3", SellerID: "s2", Stock: 30},
	)
	svc, _ := newTestForecastService(t, ledger, newFakeSales())

	forecasts, err := svc.BulkForecast(ctx, "s1")
	require.NoError(t, err)

	require.Len(t, forecasts, 2)
	assert.Contains(t, forecasts, "p1")
	assert.Contains(t, forecasts, "p2")
	assert.Equal(t, 10, forecasts["p1"].CurrentStock)
}
