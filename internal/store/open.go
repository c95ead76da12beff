package store

import "fmt"

// Stores is the configured journal and quote tape. Unconfigured stores are
// NoopStore.
type Stores struct {
	Predictions PredictionStore
	Quotes      QuoteStore

	sqlite *SQLiteStore
}

// Open opens the journal at sqlitePath and the tape under dataDir. An empty
// path leaves that store disabled.
func Open(dataDir, sqlitePath string) (*Stores, error) {
	s := &Stores{Predictions: NoopStore{}, Quotes: NoopStore{}}

	if sqlitePath != "" {
		db, err := NewSQLiteStore(sqlitePath)
		if err != nil {
			return nil, fmt.Errorf("opening journal: %w", err)
		}
		s.sqlite = db
		s.Predictions = db
	}
	if dataDir != "" {
		s.Quotes = NewParquetStore(dataDir)
	}
	return s, nil
}

// Pruners returns the enabled stores for the retention job.
func (s *Stores) Pruners() []Pruner {
	var out []Pruner
	if _, ok := s.Predictions.(NoopStore); !ok {
		out = append(out, s.Predictions)
	}
	if _, ok := s.Quotes.(NoopStore); !ok {
		out = append(out, s.Quotes)
	}
	return out
}

// Close releases the journal database.
func (s *Stores) Close() error {
	if s.sqlite == nil {
		return nil
	}
	err := s.sqlite.Close()
	s.sqlite = nil
	return err
}
