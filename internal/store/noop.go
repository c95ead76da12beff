package store

import (
	"context"
	"time"

	"predictboard/internal/domain"
)

var (
	_ PredictionStore = NoopStore{}
	_ QuoteStore      = NoopStore{}
)

// NoopStore is used when storage is not configured.
type NoopStore struct{}

func (NoopStore) SavePrediction(context.Context, PredictionRecord) error { return nil }
func (NoopStore) ListPredictions(context.Context, string, int) ([]PredictionRecord, error) {
	return nil, nil
}
func (NoopStore) WriteQuotes(context.Context, time.Time, []domain.Quote) error { return nil }
func (NoopStore) ReadQuotes(context.Context, string) ([]QuoteSnapshot, error)  { return nil, nil }
func (NoopStore) Prune(context.Context, time.Time) error                       { return nil }
