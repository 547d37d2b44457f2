package service

import (
	"fmt"
	"sort"

	"github.com/marketbay/marketbay-backend/internal/inventory/domain"
)

// AlertEngine derives stock alerts from a product snapshot and an optional
// forecast. Evaluation is a pure function over its inputs: no I/O, no locks.
type AlertEngine struct {
	overstockMultiplier float64
}

// NewAlertEngine creates an alert engine. The overstock multiplier is the
// factor of monthly forecast demand above which stock counts as excess.
func NewAlertEngine(overstockMultiplier float64) *AlertEngine {
	if overstockMultiplier <= 0 {
		overstockMultiplier = 3.0
	}
	return &AlertEngine{overstockMultiplier: overstockMultiplier}
}

// EvaluateProduct returns the alerts active for a single product. The
// forecast may be nil, in which case the overstock check is skipped.
func (e *AlertEngine) EvaluateProduct(p *domain.Product, f *domain.ForecastResult) []domain.InventoryAlert {
	threshold := p.Threshold()
	var alerts []domain.InventoryAlert

	switch {
	case p.Stock == 0:
		alerts = append(alerts, domain.InventoryAlert{
			ProductID:         p.ID,
			AlertType:         domain.AlertStockout,
			Severity:          domain.SeverityCritical,
			CurrentStock:      0,
			Threshold:         &threshold,
			Message:           fmt.Sprintf("product %s is out of stock", p.ID),
			RecommendedAction: "restock immediately",
		})
	case p.Stock <= threshold:
		// threshold/2 truncates: odd thresholds round the warning boundary down
		severity := domain.SeverityInfo
		if p.Stock <= threshold/2 {
			severity = domain.SeverityWarning
		}
		alerts = append(alerts, domain.InventoryAlert{
			ProductID:         p.ID,
			AlertType:         domain.AlertLowStock,
			Severity:          severity,
			CurrentStock:      p.Stock,
			Threshold:         &threshold,
			Message:           fmt.Sprintf("product %s is low on stock (%d/%d)", p.ID, p.Stock, threshold),
			RecommendedAction: "schedule restock",
		})
	}

	if f != nil && p.Stock > 0 {
		if f.MonthlyForecast > 0 && float64(p.Stock) > float64(f.MonthlyForecast)*e.overstockMultiplier {
			alerts = append(alerts, domain.InventoryAlert{
				ProductID:         p.ID,
				AlertType:         domain.AlertOverstock,
				Severity:          domain.SeverityInfo,
				CurrentStock:      p.Stock,
				Message:           fmt.Sprintf("product %s holds %d units against a monthly forecast of %d", p.ID, p.Stock, f.MonthlyForecast),
				RecommendedAction: "consider promotions to reduce excess stock",
			})
		} else if f.MonthlyForecast == 0 && p.Stock > threshold {
			alerts = append(alerts, domain.InventoryAlert{
				ProductID:         p.ID,
				AlertType:         domain.AlertSlowMoving,
				Severity:          domain.SeverityInfo,
				CurrentStock:      p.Stock,
				Message:           fmt.Sprintf("product %s has stock on hand but no forecast demand", p.ID),
				RecommendedAction: "review listing or consider delisting",
			})
		}
	}

	return alerts
}

// SortAlerts orders alerts most urgent first, keeping insertion order within
// the same severity
func SortAlerts(alerts []domain.InventoryAlert) {
	sort.SliceStable(alerts, func(i, j int) bool {
		return domain.SeverityRank(alerts[i].Severity) < domain.SeverityRank(alerts[j].Severity)
	})
}
