package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver.
)

// Compile-time interface checks.
var _ PredictionStore = (*SQLiteStore)(nil)

// SQLiteStore implements PredictionStore backed by a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath and runs
// migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One writer; modernc serialises anyway and this avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS predictions (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			ticker      TEXT    NOT NULL,
			applied_at  INTEGER NOT NULL,
			window_len  INTEGER NOT NULL,
			last_date   TEXT    NOT NULL,
			last_close  TEXT    NOT NULL,
			target_date TEXT    NOT NULL,
			predicted   TEXT    NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_predictions_ticker ON predictions(ticker, applied_at)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SavePrediction inserts rec. Decimals are stored as text to keep them exact.
func (s *SQLiteStore) SavePrediction(ctx context.Context, rec PredictionRecord) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO predictions (ticker, applied_at, window_len, last_date, last_close, target_date, predicted)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		strings.ToUpper(rec.Ticker), rec.AppliedAt.UnixMilli(), rec.Window,
		rec.LastDate, rec.LastClose.String(), rec.TargetDate, rec.Predicted.String())
	if err != nil {
		return fmt.Errorf("insert prediction for %s: %w", rec.Ticker, err)
	}
	return nil
}

// ListPredictions returns up to limit records for ticker, newest first.
// A non-positive limit returns everything.
func (s *SQLiteStore) ListPredictions(ctx context.Context, ticker string, limit int) ([]PredictionRecord, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT ticker, applied_at, window_len, last_date, last_close, target_date, predicted
		 FROM predictions WHERE ticker = ? ORDER BY applied_at DESC, id DESC LIMIT ?`,
		strings.ToUpper(ticker), limit)
	if err != nil {
		return nil, fmt.Errorf("query predictions: %w", err)
	}
	defer rows.Close()

	var out []PredictionRecord
	for rows.Next() {
		var (
			rec                  PredictionRecord
			appliedAt            int64
			lastClose, predicted string
		)
		if err := rows.Scan(&rec.Ticker, &appliedAt, &rec.Window, &rec.LastDate, &lastClose, &rec.TargetDate, &predicted); err != nil {
			return nil, fmt.Errorf("scan prediction: %w", err)
		}
		rec.AppliedAt = time.UnixMilli(appliedAt)
		if rec.LastClose, err = decimal.NewFromString(lastClose); err != nil {
			return nil, fmt.Errorf("parse last_close %q: %w", lastClose, err)
		}
		if rec.Predicted, err = decimal.NewFromString(predicted); err != nil {
			return nil, fmt.Errorf("parse predicted %q: %w", predicted, err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Prune deletes records applied before cutoff.
func (s *SQLiteStore) Prune(ctx context.Context, cutoff time.Time) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM predictions WHERE applied_at < ?`, cutoff.UnixMilli()); err != nil {
		return fmt.Errorf("prune predictions: %w", err)
	}
	return nil
}
