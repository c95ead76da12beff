package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/parquet-go/parquet-go"
	"github.com/shopspring/decimal"

	"predictboard/internal/domain"
)

// Compile-time interface checks.
var _ QuoteStore = (*ParquetStore)(nil)

// ParquetStore implements QuoteStore using one Parquet file per day.
type ParquetStore struct {
	DataDir string

	mu sync.Mutex
}

// NewParquetStore creates a new ParquetStore rooted at the given data directory.
func NewParquetStore(dataDir string) *ParquetStore {
	return &ParquetStore{DataDir: dataDir}
}

// ---------------------------------------------------------------------------
// Parquet record types (on-disk schema)
// ---------------------------------------------------------------------------

// QuoteRecord is the Parquet schema for one quote within a snapshot. Seq is
// the quote's position in the service's reply.
type QuoteRecord struct {
	Timestamp int64   `parquet:"timestamp,timestamp(millisecond)"` // Unix ms
	Seq       int32   `parquet:"seq"`
	Ticker    string  `parquet:"ticker"`
	Price     float64 `parquet:"price"`
	Change    float64 `parquet:"change"`
	Percent   float64 `parquet:"percent"`
}

// ---------------------------------------------------------------------------
// QuoteStore implementation
// ---------------------------------------------------------------------------

// WriteQuotes merges the snapshot into the day file for at:
//
//	<DataDir>/quotes/<YYYY-MM-DD>.parquet
func (s *ParquetStore) WriteQuotes(_ context.Context, at time.Time, quotes []domain.Quote) error {
	if len(quotes) == 0 {
		return nil
	}

	records := make([]QuoteRecord, len(quotes))
	for i, q := range quotes {
		records[i] = QuoteRecord{
			Timestamp: at.UnixMilli(),
			Seq:       int32(i),
			Ticker:    strings.ToUpper(q.Ticker),
			Price:     q.Price.InexactFloat64(),
			Change:    q.Change.InexactFloat64(),
			Percent:   q.Percent.InexactFloat64(),
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.quotePath(at.Format(domain.DateLayout))
	existing, err := readParquetFile[QuoteRecord](path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	merged := mergeQuoteRecords(existing, records)

	if err := writeParquetFile(path, merged); err != nil {
		return fmt.Errorf("writing quotes for %s: %w", at.Format(domain.DateLayout), err)
	}
	return nil
}

// ReadQuotes returns the snapshots stored for date, oldest first. A day
// with no file yields no snapshots and no error.
func (s *ParquetStore) ReadQuotes(_ context.Context, date string) ([]QuoteSnapshot, error) {
	if _, err := time.Parse(domain.DateLayout, date); err != nil {
		return nil, &domain.ValidationError{Field: "date", Reason: "want YYYY-MM-DD"}
	}

	s.mu.Lock()
	records, err := readParquetFile[QuoteRecord](s.quotePath(date))
	s.mu.Unlock()
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	var out []QuoteSnapshot
	for _, r := range records {
		if len(out) == 0 || out[len(out)-1].At.UnixMilli() != r.Timestamp {
			out = append(out, QuoteSnapshot{At: time.UnixMilli(r.Timestamp)})
		}
		snap := &out[len(out)-1]
		snap.Quotes = append(snap.Quotes, domain.Quote{
			Ticker:  r.Ticker,
			Price:   decimal.NewFromFloat(r.Price),
			Change:  decimal.NewFromFloat(r.Change),
			Percent: decimal.NewFromFloat(r.Percent),
		})
	}
	return out, nil
}

// Prune removes day files dated before cutoff's date.
func (s *ParquetStore) Prune(_ context.Context, cutoff time.Time) error {
	dir := filepath.Join(s.DataDir, "quotes")
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	limit := cutoff.Format(domain.DateLayout)

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range entries {
		date, ok := strings.CutSuffix(e.Name(), ".parquet")
		if e.IsDir() || !ok {
			continue
		}
		if _, err := time.Parse(domain.DateLayout, date); err != nil {
			continue
		}
		// ISO dates compare correctly as strings.
		if date < limit {
			if err := os.Remove(filepath.Join(dir, e.Name())); err != nil {
				return fmt.Errorf("removing %s: %w", e.Name(), err)
			}
		}
	}
	return nil
}

// quotePath returns the filesystem path for a day's quote tape.
// Layout: <dataDir>/quotes/<YYYY-MM-DD>.parquet
func (s *ParquetStore) quotePath(date string) string {
	return filepath.Join(s.DataDir, "quotes", date+".parquet")
}

// ---------------------------------------------------------------------------
// Parquet file helpers
// ---------------------------------------------------------------------------

func writeParquetFile[T any](path string, records []T) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return parquet.WriteFile(path, records)
}

func readParquetFile[T any](path string) ([]T, error) {
	rows, err := parquet.ReadFile[T](path)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// mergeQuoteRecords deduplicates quote records by (timestamp, ticker),
// preferring new records over existing ones. Results are sorted by
// timestamp and then reply position.
func mergeQuoteRecords(existing, incoming []QuoteRecord) []QuoteRecord {
	type key struct {
		ts     int64
		ticker string
	}
	seen := make(map[key]QuoteRecord, len(existing)+len(incoming))
	for _, r := range existing {
		seen[key{r.Timestamp, r.Ticker}] = r
	}
	for _, r := range incoming {
		seen[key{r.Timestamp, r.Ticker}] = r
	}

	merged := make([]QuoteRecord, 0, len(seen))
	for _, r := range seen {
		merged = append(merged, r)
	}
	sort.Slice(merged, func(i, j int) bool {
		if merged[i].Timestamp != merged[j].Timestamp {
			return merged[i].Timestamp < merged[j].Timestamp
		}
		return merged[i].Seq < merged[j].Seq
	})
	return merged
}
