// Package store defines the optional persistence behind the dashboard: a
// journal of applied predictions and a daily tape of applied quote
// snapshots. Neither is on the display path; failures are logged by callers.
package store

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"predictboard/internal/domain"
)

// PredictionRecord is one applied prediction.
type PredictionRecord struct {
	Ticker     string          `json:"ticker"`
	AppliedAt  time.Time       `json:"applied_at"`
	Window     int             `json:"window"`
	LastDate   string          `json:"last_date"`
	LastClose  decimal.Decimal `json:"last_close"`
	TargetDate string          `json:"target_date"`
	Predicted  decimal.Decimal `json:"predicted"`
}

// QuoteSnapshot is one applied quote board refresh.
type QuoteSnapshot struct {
	At     time.Time      `json:"at"`
	Quotes []domain.Quote `json:"quotes"`
}

// PredictionStore persists and retrieves applied predictions.
type PredictionStore interface {
	// SavePrediction appends rec to the journal.
	SavePrediction(ctx context.Context, rec PredictionRecord) error

	// ListPredictions returns up to limit records for ticker, newest first.
	ListPredictions(ctx context.Context, ticker string, limit int) ([]PredictionRecord, error)

	// Prune deletes records applied before cutoff.
	Prune(ctx context.Context, cutoff time.Time) error
}

// QuoteStore persists and retrieves quote board snapshots.
type QuoteStore interface {
	// WriteQuotes appends a snapshot taken at at.
	WriteQuotes(ctx context.Context, at time.Time, quotes []domain.Quote) error

	// ReadQuotes returns the snapshots recorded on date (YYYY-MM-DD), oldest first.
	ReadQuotes(ctx context.Context, date string) ([]QuoteSnapshot, error)

	// Prune deletes snapshots taken before cutoff.
	Prune(ctx context.Context, cutoff time.Time) error
}

// Pruner is anything the retention job can prune.
type Pruner interface {
	Prune(ctx context.Context, cutoff time.Time) error
}
