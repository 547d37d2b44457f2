package domain

import "time"

// ReservationStatus is the lifecycle state of a stock reservation
type ReservationStatus string

const (
	ReservationPending   ReservationStatus = "pending"
	ReservationConfirmed ReservationStatus = "confirmed"
	ReservationExpired   ReservationStatus = "expired"
	ReservationCancelled ReservationStatus = "cancelled"
)

// Reservation is a time-bounded claim on product quantity that has not yet
// been fulfilled. Only pending reservations count against available stock.
type Reservation struct {
	ID        string            `db:"id" json:"id"`
	ProductID string            `db:"product_id" json:"product_id"`
	Quantity  int               `db:"quantity" json:"quantity"`
	OrderID   *string           `db:"order_id" json:"order_id,omitempty"`
	UserID    *string           `db:"user_id" json:"user_id,omitempty"`
	ExpiresAt time.Time         `db:"expires_at" json:"expires_at"`
	Status    ReservationStatus `db:"status" json:"status"`
	CreatedAt time.Time         `db:"created_at" json:"created_at"`
}

// IsExpired reports whether the hold has passed its TTL at the given instant
func (r *Reservation) IsExpired(now time.Time) bool {
	return now.After(r.ExpiresAt)
}

// DefaultLowStockThreshold applies when a product has no explicit threshold
const DefaultLowStockThreshold = 10

// Product is the read view of a product as the inventory core sees it.
// Stock is mutated exclusively through the StockLedger port.
type Product struct {
	ID                string `db:"id" json:"id"`
	SellerID          string `db:"seller_id" json:"seller_id"`
	Stock             int    `db:"stock" json:"stock"`
	LowStockThreshold int    `db:"low_stock_threshold" json:"low_stock_threshold"`
	PriceCents        int    `db:"price_cents" json:"price_cents"`
}

// Threshold returns the effective low-stock threshold
func (p *Product) Threshold() int {
	if p.LowStockThreshold > 0 {
		return p.LowStockThreshold
	}
	return DefaultLowStockThreshold
}

// StockOperation is a direct administrative stock adjustment mode
type StockOperation string

const (
	OpIncrement StockOperation = "increment"
	OpDecrement StockOperation = "decrement"
	OpSet       StockOperation = "set"
)

// SalesDataPoint is one calendar day of aggregated sales, zero-filled for
// days with no orders
type SalesDataPoint struct {
	Date     time.Time `json:"date"`
	Quantity int       `json:"quantity"`
	Revenue  float64   `json:"revenue"`
}

// StockoutRisk classifies how soon current stock runs out relative to lead time
type StockoutRisk string

const (
	RiskLow    StockoutRisk = "low"
	RiskMedium StockoutRisk = "medium"
	RiskHigh   StockoutRisk = "high"
)

// SeasonalTrend is the short-horizon week-over-week demand direction
type SeasonalTrend string

const (
	TrendIncreasing SeasonalTrend = "increasing"
	TrendStable     SeasonalTrend = "stable"
	TrendDecreasing SeasonalTrend = "decreasing"
)

// DailyPrediction is one future day of forecast demand
type DailyPrediction struct {
	Date            time.Time `json:"date"`
	PredictedDemand int       `json:"predicted_demand"`
	LowerBound      float64   `json:"lower_bound"`
	UpperBound      float64   `json:"upper_bound"`
	Confidence      int       `json:"confidence"`
}

// ForecastResult is the full demand forecast for one product. Recomputed on
// demand and cacheable with a short TTL; never persisted as source of truth.
type ForecastResult struct {
	ProductID                string            `json:"product_id"`
	CurrentStock             int               `json:"current_stock"`
	Predictions              []DailyPrediction `json:"predictions"`
	WeeklyForecast           int               `json:"weekly_forecast"`
	MonthlyForecast          int               `json:"monthly_forecast"`
	AvgDailyDemand           float64           `json:"avg_daily_demand"`
	ReorderPoint             int               `json:"reorder_point"`
	RecommendedOrderQuantity int               `json:"recommended_order_quantity"`
	StockoutRisk             StockoutRisk      `json:"stockout_risk"`
	DaysUntilStockout        *int              `json:"days_until_stockout,omitempty"`
	SeasonalTrend            SeasonalTrend     `json:"seasonal_trend"`
	Confidence               int               `json:"confidence"`
	GeneratedAt              time.Time         `json:"generated_at"`
}

// AlertType is the category of an inventory alert
type AlertType string

const (
	AlertLowStock   AlertType = "low_stock"
	AlertStockout   AlertType = "stockout"
	AlertOverstock  AlertType = "overstock"
	AlertSlowMoving AlertType = "slow_moving"
	AlertExpiring   AlertType = "expiring"
)

// Severity is the urgency of an inventory alert
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityWarning  Severity = "warning"
	SeverityInfo     Severity = "info"
)

// SeverityRank maps severities to sort order, most urgent first
func SeverityRank(s Severity) int {
	switch s {
	case SeverityCritical:
		return 0
	case SeverityWarning:
		return 1
	default:
		return 2
	}
}

// InventoryAlert is an ephemeral stock signal, generated per query
type InventoryAlert struct {
	ProductID         string    `json:"product_id"`
	AlertType         AlertType `json:"alert_type"`
	Severity          Severity  `json:"severity"`
	CurrentStock      int       `json:"current_stock"`
	Threshold         *int      `json:"threshold,omitempty"`
	Message           string    `json:"message"`
	RecommendedAction string    `json:"recommended_action"`
}

// Urgency classifies how soon a restock order should be placed
type Urgency string

const (
	UrgencyLow      Urgency = "low"
	UrgencyMedium   Urgency = "medium"
	UrgencyHigh     Urgency = "high"
	UrgencyCritical Urgency = "critical"
)

// UrgencyRank maps urgencies to sort order, most urgent first
func UrgencyRank(u Urgency) int {
	switch u {
	case UrgencyCritical:
		return 0
	case UrgencyHigh:
		return 1
	case UrgencyMedium:
		return 2
	default:
		return 3
	}
}

// RestockRecommendation is an ephemeral reorder suggestion
type RestockRecommendation struct {
	ProductID           string  `json:"product_id"`
	CurrentStock        int     `json:"current_stock"`
	RecommendedQuantity int     `json:"recommended_quantity"`
	Urgency             Urgency `json:"urgency"`
	EstimatedCostCents  *int    `json:"estimated_cost_cents,omitempty"`
	LeadTimeDays        int     `json:"lead_time_days"`
}

// OrderLine is one historical confirmed order line used as forecasting input
type OrderLine struct {
	Date       time.Time `db:"date" json:"date"`
	Quantity   int       `db:"quantity" json:"quantity"`
	TotalPrice float64   `db:"total_price" json:"total_price"`
}
