// Package domain holds the data model shared by the prediction client, the
// dashboard state store and the presentation layer.
package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the wire and display-key format of every PricePoint date.
const DateLayout = "2006-01-02"

// PricePoint is one dated closing price. Histories are chronological.
type PricePoint struct {
	Date  string          `json:"date"`
	Close decimal.Decimal `json:"close"`
}

// Time parses Date in loc.
func (p PricePoint) Time(loc *time.Location) (time.Time, error) {
	return time.ParseInLocation(DateLayout, p.Date, loc)
}

// Quote is a live price snapshot for one ticker. Change is absolute
// currency and Percent is already multiplied by 100.
type Quote struct {
	Ticker  string          `json:"ticker"`
	Price   decimal.Decimal `json:"price"`
	Change  decimal.Decimal `json:"change"`
	Percent decimal.Decimal `json:"percent"`
}

// Direction of a price move. Zero counts as up.
type Direction string

const (
	DirectionUp   Direction = "up"
	DirectionDown Direction = "down"
)

// DirectionOf returns up for d >= 0 and down otherwise.
func DirectionOf(d decimal.Decimal) Direction {
	if d.IsNegative() {
		return DirectionDown
	}
	return DirectionUp
}

// PredictionResponse is the prediction service's reply to /api/predict.
type PredictionResponse struct {
	Ticker     string          `json:"ticker,omitempty"`
	History    []PricePoint    `json:"history"`
	Prediction decimal.Decimal `json:"prediction"`
}

// PredictRequest is the body of POST /api/predict.
type PredictRequest struct {
	Ticker string `json:"ticker"`
	Window int    `json:"window"`
}

// QuotesRequest is the body of POST /api/quotes.
type QuotesRequest struct {
	Tickers []string `json:"tickers"`
}

// maxTickerLen bounds user-entered symbols.
const maxTickerLen = 10

// NormalizeTicker trims and uppercases raw user input. Empty input and
// characters outside [A-Z0-9.^-] yield a *ValidationError.
func NormalizeTicker(raw string) (string, error) {
	t := strings.ToUpper(strings.TrimSpace(raw))
	if t == "" {
		return "", &ValidationError{Field: "ticker", Reason: "must not be empty"}
	}
	if len(t) > maxTickerLen {
		return "", &ValidationError{Field: "ticker", Reason: "too long"}
	}
	for _, r := range t {
		switch {
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '^':
		default:
			return "", &ValidationError{Field: "ticker", Reason: "contains " + string(r)}
		}
	}
	return t, nil
}
