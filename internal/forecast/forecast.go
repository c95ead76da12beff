// Package forecast turns a prediction response into what the dashboard
// draws: the dated prediction point, the merged chart series and the
// current-versus-predicted metrics.
package forecast

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"predictboard/internal/domain"
)

// ErrNoHistory is returned when metrics are requested for an empty history.
var ErrNoHistory = errors.New("forecast: empty history")

var hundred = decimal.NewFromInt(100)

// TargetDate returns today shifted by offsetDays calendar days, formatted as
// YYYY-MM-DD in today's location. Weekends and holidays are not skipped.
func TargetDate(today time.Time, offsetDays int) string {
	return today.AddDate(0, 0, offsetDays).Format(domain.DateLayout)
}

// NewPredictionPoint dates the service's predicted value at TargetDate.
func NewPredictionPoint(today time.Time, offsetDays int, value decimal.Decimal) domain.PricePoint {
	return domain.PricePoint{Date: TargetDate(today, offsetDays), Close: value}
}

// ChartPoint is one plotted point. Predicted marks the appended prediction.
type ChartPoint struct {
	Date      string          `json:"date"`
	Close     decimal.Decimal `json:"close"`
	Predicted bool            `json:"predicted"`
}

// Merge appends the prediction point to history. A point is flagged as the
// prediction when its date equals the prediction's date.
func Merge(history []domain.PricePoint, pred domain.PricePoint) []ChartPoint {
	out := make([]ChartPoint, 0, len(history)+1)
	for _, p := range history {
		out = append(out, ChartPoint{Date: p.Date, Close: p.Close, Predicted: p.Date == pred.Date})
	}
	return append(out, ChartPoint{Date: pred.Date, Close: pred.Close, Predicted: true})
}

// Metrics compares the last historical close with the prediction.
type Metrics struct {
	Current   domain.PricePoint
	Predicted domain.PricePoint
	Delta     decimal.Decimal
	// Percent is only meaningful when PercentValid; a zero current close
	// leaves it unset.
	Percent      decimal.Decimal
	PercentValid bool
	Direction    domain.Direction
}

// Compute derives the metrics for history and pred.
func Compute(history []domain.PricePoint, pred domain.PricePoint) (Metrics, error) {
	if len(history) == 0 {
		return Metrics{}, ErrNoHistory
	}
	cur := history[len(history)-1]
	m := Metrics{
		Current:   cur,
		Predicted: pred,
		Delta:     pred.Close.Sub(cur.Close),
	}
	m.Direction = domain.DirectionOf(m.Delta)
	if !cur.Close.IsZero() {
		m.Percent = m.Delta.Div(cur.Close).Mul(hundred)
		m.PercentValid = true
	}
	return m, nil
}

// Trend is up only when the series closed strictly higher than it opened.
func Trend(points []ChartPoint) domain.Direction {
	if len(points) > 1 && points[len(points)-1].Close.GreaterThan(points[0].Close) {
		return domain.DirectionUp
	}
	return domain.DirectionDown
}

// Bounds returns the lowest and highest close in points.
func Bounds(points []ChartPoint) (lo, hi decimal.Decimal) {
	for i, p := range points {
		if i == 0 || p.Close.LessThan(lo) {
			lo = p.Close
		}
		if i == 0 || p.Close.GreaterThan(hi) {
			hi = p.Close
		}
	}
	return lo, hi
}
