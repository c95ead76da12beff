package board

import (
	"time"

	"predictboard/internal/domain"
)

// Theme is the in-memory colour scheme.
type Theme string

const (
	ThemeDark  Theme = "dark"
	ThemeLight Theme = "light"
)

// Toggle returns the other theme.
func (t Theme) Toggle() Theme {
	if t == ThemeLight {
		return ThemeDark
	}
	return ThemeLight
}

// Valid reports whether t is a known theme.
func (t Theme) Valid() bool {
	return t == ThemeDark || t == ThemeLight
}

// State is a snapshot of everything the dashboard displays. Version grows
// by one on every change.
type State struct {
	Version uint64

	// Prediction slot.
	Ticker      string
	History     []domain.PricePoint
	Prediction  *domain.PricePoint
	Loading     bool
	Error       string
	PredictedAt time.Time
	OffsetDays  int

	// Quote board slot.
	Tickers       []string
	Quotes        []domain.Quote
	QuotesLoading bool
	QuotesError   string
	QuotesAt      time.Time

	Theme Theme
}

// HasPrediction reports whether there is a chart to draw.
func (s State) HasPrediction() bool {
	return s.Prediction != nil && len(s.History) > 0
}

// ---------------------------------------------------------------------------
// Observers
// ---------------------------------------------------------------------------

// Subscribe registers an observer. The channel always holds the latest
// state; a slow observer skips intermediate states but never misses the
// last one. The current state is delivered immediately.
func (b *Board) Subscribe() (id int, ch <-chan State) {
	b.subsMu.Lock()
	defer b.subsMu.Unlock()

	id = b.nextSubID
	b.nextSubID++
	c := make(chan State, 1)

	b.mu.RLock()
	closed := b.closed
	c <- b.state
	b.mu.RUnlock()

	if closed {
		close(c)
		return id, c
	}
	b.subs[id] = c
	return id, c
}

// Unsubscribe removes an observer and closes its channel.
func (b *Board) Unsubscribe(id int) {
	b.subsMu.Lock()
	defer b.subsMu.Unlock()
	if ch, ok := b.subs[id]; ok {
		close(ch)
		delete(b.subs, id)
	}
}

// publish replaces each observer's pending state with the current one.
// The snapshot is taken under subsMu so deliveries never go backwards.
func (b *Board) publish() {
	b.subsMu.Lock()
	defer b.subsMu.Unlock()

	s := b.Snapshot()
	for _, ch := range b.subs {
		select {
		case ch <- s:
			continue
		default:
		}
		// Drop the stale pending state, then deliver.
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- s:
		default:
		}
	}
}
