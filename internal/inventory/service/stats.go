package service

import (
	"math"
	"sort"
	"time"

	"github.com/marketbay/marketbay-backend/internal/inventory/domain"
)

// Overall forecast confidence tiers by length of sales history
const (
	confidenceMinimalHistory = 50
	confidenceShortHistory   = 70
	confidenceMediumHistory  = 85
	confidenceLongHistory    = 95
)

// seasonalTrendMinHistoryDays is the minimum history needed before a
// week-over-week trend is reported instead of "stable"
const seasonalTrendMinHistoryDays = 14

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// buildDailySeries aggregates order lines to one point per calendar day and
// zero-fills the lookback window, so days without sales count as zero demand
// rather than being absent. Multiple lines on the same day sum; the series
// must not depend on the history source pre-aggregating.
func buildDailySeries(lines []domain.OrderLine, since time.Time, days int) []domain.SalesDataPoint {
	byDay := make(map[time.Time]domain.SalesDataPoint, len(lines))
	for _, line := range lines {
		d := truncateDay(line.Date)
		point := byDay[d]
		point.Quantity += line.Quantity
		point.Revenue += line.TotalPrice
		byDay[d] = point
	}

	series := make([]domain.SalesDataPoint, days)
	for i := 0; i < days; i++ {
		date := since.AddDate(0, 0, i)
		point := domain.SalesDataPoint{Date: date}
		if agg, ok := byDay[date]; ok {
			point.Quantity = agg.Quantity
			point.Revenue = agg.Revenue
		}
		series[i] = point
	}
	return series
}

// historyLength is the number of days of usable history, counted from the
// earliest order line through today and capped at the lookback window
func historyLength(lines []domain.OrderLine, today time.Time, lookbackDays int) int {
	if len(lines) == 0 {
		return 0
	}

	earliest := truncateDay(lines[0].Date)
	for _, line := range lines[1:] {
		if d := truncateDay(line.Date); d.Before(earliest) {
			earliest = d
		}
	}

	days := int(today.Sub(earliest).Hours()/24) + 1
	if days > lookbackDays {
		days = lookbackDays
	}
	if days < 0 {
		days = 0
	}
	return days
}

func lastQuantities(series []domain.SalesDataPoint, n int) []float64 {
	if n > len(series) {
		n = len(series)
	}
	window := make([]float64, 0, n)
	for _, point := range series[len(series)-n:] {
		window = append(window, float64(point.Quantity))
	}
	return window
}

// meanStdDev returns the mean and population standard deviation
func meanStdDev(values []float64) (float64, float64) {
	if len(values) == 0 {
		return 0, 0
	}

	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))

	var variance float64
	for _, v := range values {
		d := v - mean
		variance += d * d
	}
	variance /= float64(len(values))

	return mean, math.Sqrt(variance)
}

// olsSlope fits a least-squares line through the values indexed 0..n-1 and
// returns its slope in units per day
func olsSlope(values []float64) float64 {
	n := float64(len(values))
	if n < 2 {
		return 0
	}

	var sumX, sumY, sumXY, sumXX float64
	for i, v := range values {
		x := float64(i)
		sumX += x
		sumY += v
		sumXY += x * v
		sumXX += x * x
	}

	denom := n*sumXX - sumX*sumX
	if denom == 0 {
		return 0
	}
	return (n*sumXY - sumX*sumY) / denom
}

// weekdayMultipliers captures day-of-week seasonality as each weekday's
// average demand relative to the mean across all seven weekday averages.
// Weekdays without data keep a neutral multiplier of 1.
func weekdayMultipliers(series []domain.SalesDataPoint) [7]float64 {
	var totals, counts [7]float64
	for _, point := range series {
		wd := point.Date.Weekday()
		totals[wd] += float64(point.Quantity)
		counts[wd]++
	}

	var averages [7]float64
	var sum float64
	var present int
	for wd := range averages {
		if counts[wd] > 0 {
			averages[wd] = totals[wd] / counts[wd]
			sum += averages[wd]
			present++
		}
	}

	multipliers := [7]float64{1, 1, 1, 1, 1, 1, 1}
	if present == 0 || sum == 0 {
		return multipliers
	}

	overall := sum / float64(present)
	for wd := range multipliers {
		if counts[wd] > 0 {
			multipliers[wd] = averages[wd] / overall
		}
	}
	return multipliers
}

func sumDemand(predictions []domain.DailyPrediction, days int) int {
	if days > len(predictions) {
		days = len(predictions)
	}
	var total int
	for _, p := range predictions[:days] {
		total += p.PredictedDemand
	}
	return total
}

// seasonalTrend compares the most recent week of demand against the week
// before it; a swing beyond ten percent either way is reported as a trend
func seasonalTrend(series []domain.SalesDataPoint, historyDays int) domain.SeasonalTrend {
	if historyDays < seasonalTrendMinHistoryDays || len(series) < 14 {
		return domain.TrendStable
	}

	var recent, previous float64
	for _, p := range series[len(series)-7:] {
		recent += float64(p.Quantity)
	}
	for _, p := range series[len(series)-14 : len(series)-7] {
		previous += float64(p.Quantity)
	}

	if previous == 0 {
		if recent > 0 {
			return domain.TrendIncreasing
		}
		return domain.TrendStable
	}

	change := (recent - previous) / previous
	switch {
	case change > 0.10:
		return domain.TrendIncreasing
	case change < -0.10:
		return domain.TrendDecreasing
	default:
		return domain.TrendStable
	}
}

func overallConfidence(historyDays int) int {
	switch {
	case historyDays >= 90:
		return confidenceLongHistory
	case historyDays >= 30:
		return confidenceMediumHistory
	case historyDays >= 7:
		return confidenceShortHistory
	default:
		return confidenceMinimalHistory
	}
}

func sortRecommendations(recs []domain.RestockRecommendation) {
	sort.SliceStable(recs, func(i, j int) bool {
		return domain.UrgencyRank(recs[i].Urgency) < domain.UrgencyRank(recs[j].Urgency)
	})
}
