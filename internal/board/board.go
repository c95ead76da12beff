// Package board is the single owner of what the dashboard displays. It
// turns ticker submissions into polling subscriptions, applies their results
// and fans state snapshots out to observers.
package board

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"predictboard/internal/domain"
	"predictboard/internal/forecast"
	"predictboard/internal/poll"
	"predictboard/internal/store"
)

var (
	// ErrBusy is returned by Submit while a submitted prediction is loading.
	ErrBusy = errors.New("board: a prediction request is already in progress")
	// ErrClosed is returned by Submit after Close.
	ErrClosed = errors.New("board: closed")
)

// Fetcher is the remote service as the board uses it.
type Fetcher interface {
	FetchPrediction(ctx context.Context, ticker string, window int) (domain.PredictionResponse, error)
	FetchQuotes(ctx context.Context, tickers []string) ([]domain.Quote, error)
}

// Options configures a Board. Zero values fall back to the dashboard
// defaults.
type Options struct {
	Tickers         []string
	Window          int
	PredictInterval time.Duration
	QuotesInterval  time.Duration
	OffsetDays      int
	Location        *time.Location
	Theme           Theme

	Predictions store.PredictionStore
	Quotes      store.QuoteStore

	Logger *slog.Logger
	// Now is the board clock. It decides the prediction target date.
	Now func() time.Time
}

// Board holds dashboard state. All mutation goes through its methods.
type Board struct {
	fetcher Fetcher
	ctrl    *poll.Controller
	opts    Options
	log     *slog.Logger

	// submitMu serialises Submit so slot replacement is atomic.
	submitMu sync.Mutex

	mu            sync.RWMutex
	state         State
	predictHandle *poll.Handle
	quotesHandle  *poll.Handle
	ctx           context.Context
	closed        bool

	subsMu    sync.Mutex
	nextSubID int
	subs      map[int]chan State
}

// New creates a board. Polling starts with Start and Submit.
func New(fetcher Fetcher, ctrl *poll.Controller, opts Options) *Board {
	if len(opts.Tickers) == 0 {
		opts.Tickers = []string{"AAPL", "MSFT", "GOOGL", "TSLA", "AMZN", "NVDA"}
	}
	if opts.Window <= 0 {
		opts.Window = 60
	}
	if opts.PredictInterval <= 0 {
		opts.PredictInterval = time.Minute
	}
	if opts.QuotesInterval <= 0 {
		opts.QuotesInterval = time.Minute
	}
	if opts.OffsetDays <= 0 {
		opts.OffsetDays = 2
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Theme == "" {
		opts.Theme = ThemeDark
	}
	if opts.Predictions == nil {
		opts.Predictions = store.NoopStore{}
	}
	if opts.Quotes == nil {
		opts.Quotes = store.NoopStore{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Board{
		fetcher: fetcher,
		ctrl:    ctrl,
		opts:    opts,
		log:     opts.Logger,
		state: State{
			Tickers:    append([]string(nil), opts.Tickers...),
			OffsetDays: opts.OffsetDays,
			Theme:      opts.Theme,
		},
		ctx:  context.Background(),
		subs: make(map[int]chan State),
	}
}

// Tickers returns the quote board's ticker set.
func (b *Board) Tickers() []string {
	return append([]string(nil), b.opts.Tickers...)
}

// Start subscribes the always-on quote board. ctx bounds journal writes.
func (b *Board) Start(ctx context.Context) {
	b.mu.Lock()
	if b.closed || b.quotesHandle != nil {
		b.mu.Unlock()
		return
	}
	b.ctx = ctx
	b.state.QuotesLoading = true
	b.state.Version++
	b.mu.Unlock()
	b.publish()

	tickers := b.Tickers()
	key := "quotes:" + strings.Join(tickers, ",")
	h := poll.Subscribe(b.ctrl, key, b.opts.QuotesInterval,
		func(ctx context.Context) ([]domain.Quote, error) {
			return b.fetcher.FetchQuotes(ctx, tickers)
		},
		b.applyQuotes,
		b.quotesFailed)

	b.mu.Lock()
	b.quotesHandle = h
	b.mu.Unlock()

	b.log.Info("quote board started", "tickers", tickers, "interval", b.opts.QuotesInterval)
}

// Submit normalises raw, then replaces the prediction subscription with one
// for the new ticker. Invalid input is rejected before any request.
func (b *Board) Submit(raw string) (string, error) {
	ticker, err := domain.NormalizeTicker(raw)
	if err != nil {
		return "", err
	}

	b.submitMu.Lock()
	defer b.submitMu.Unlock()

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return "", ErrClosed
	}
	if b.state.Loading {
		b.mu.Unlock()
		return "", ErrBusy
	}
	old := b.predictHandle
	b.predictHandle = nil
	b.state.Ticker = ticker
	b.state.Loading = true
	b.state.Error = ""
	b.state.Version++
	b.mu.Unlock()
	b.publish()

	// The old slot must be gone before the new one starts.
	b.ctrl.Unsubscribe(old)

	window := b.opts.Window
	h := poll.Subscribe(b.ctrl, "predict:"+ticker, b.opts.PredictInterval,
		func(ctx context.Context) (domain.PredictionResponse, error) {
			return b.fetcher.FetchPrediction(ctx, ticker, window)
		},
		func(resp domain.PredictionResponse) { b.applyPrediction(ticker, resp) },
		func(err error) { b.predictionFailed(ticker, err) })

	b.mu.Lock()
	b.predictHandle = h
	b.mu.Unlock()

	b.log.Info("prediction subscribed", "ticker", ticker, "window", window, "interval", b.opts.PredictInterval)
	return ticker, nil
}

// DismissError clears the prediction and quote error messages.
func (b *Board) DismissError() {
	b.update(func(s *State) {
		s.Error = ""
		s.QuotesError = ""
	})
}

// ToggleTheme flips between dark and light and returns the new theme.
func (b *Board) ToggleTheme() Theme {
	var t Theme
	b.update(func(s *State) {
		s.Theme = s.Theme.Toggle()
		t = s.Theme
	})
	return t
}

// SetTheme sets the theme. Unknown values are ignored.
func (b *Board) SetTheme(t Theme) bool {
	if !t.Valid() {
		return false
	}
	b.update(func(s *State) { s.Theme = t })
	return true
}

// Snapshot returns the current state. Slices in the snapshot are shared and
// must not be modified.
func (b *Board) Snapshot() State {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.state
}

// Close stops both subscriptions and closes every observer channel.
func (b *Board) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	ph, qh := b.predictHandle, b.quotesHandle
	b.predictHandle, b.quotesHandle = nil, nil
	b.mu.Unlock()

	b.ctrl.Unsubscribe(ph)
	b.ctrl.Unsubscribe(qh)

	b.subsMu.Lock()
	for id, ch := range b.subs {
		close(ch)
		delete(b.subs, id)
	}
	b.subsMu.Unlock()
}

// ---------------------------------------------------------------------------
// Result application
// ---------------------------------------------------------------------------

func (b *Board) applyPrediction(ticker string, resp domain.PredictionResponse) {
	now := b.opts.Now().In(b.opts.Location)
	point := forecast.NewPredictionPoint(now, b.opts.OffsetDays, resp.Prediction)

	b.mu.Lock()
	if b.state.Ticker != ticker {
		b.mu.Unlock()
		return
	}
	b.state.History = resp.History
	b.state.Prediction = &point
	b.state.Loading = false
	b.state.Error = ""
	b.state.PredictedAt = now
	b.state.Version++
	ctx := b.ctx
	b.mu.Unlock()
	b.publish()

	b.log.Debug("prediction applied", "ticker", ticker, "points", len(resp.History),
		"prediction", resp.Prediction.String(), "target", point.Date)

	if len(resp.History) == 0 {
		return
	}
	last := resp.History[len(resp.History)-1]
	rec := store.PredictionRecord{
		Ticker:     ticker,
		AppliedAt:  now,
		Window:     b.opts.Window,
		LastDate:   last.Date,
		LastClose:  last.Close,
		TargetDate: point.Date,
		Predicted:  point.Close,
	}
	if err := b.opts.Predictions.SavePrediction(ctx, rec); err != nil {
		b.log.Warn("journal prediction failed", "ticker", ticker, "error", err)
	}
}

func (b *Board) predictionFailed(ticker string, err error) {
	msg := describePredictionError(err)

	b.mu.Lock()
	if b.state.Ticker != ticker {
		b.mu.Unlock()
		return
	}
	b.state.Loading = false
	b.state.Error = msg
	b.state.Version++
	b.mu.Unlock()
	b.publish()

	b.log.Warn("prediction failed", "ticker", ticker, "error", err)
}

func (b *Board) applyQuotes(quotes []domain.Quote) {
	now := b.opts.Now()

	b.mu.Lock()
	b.state.Quotes = quotes
	b.state.QuotesLoading = false
	b.state.QuotesError = ""
	b.state.QuotesAt = now
	b.state.Version++
	ctx := b.ctx
	b.mu.Unlock()
	b.publish()

	if err := b.opts.Quotes.WriteQuotes(ctx, now, quotes); err != nil {
		b.log.Warn("quote tape write failed", "error", err)
	}
}

func (b *Board) quotesFailed(err error) {
	b.update(func(s *State) {
		s.QuotesLoading = false
		s.QuotesError = describeQuotesError(err)
	})
	b.log.Warn("quotes failed", "error", err)
}

// update applies fn under the state lock, bumps the version and publishes.
func (b *Board) update(fn func(*State)) {
	b.mu.Lock()
	fn(&b.state)
	b.state.Version++
	b.mu.Unlock()
	b.publish()
}

// ---------------------------------------------------------------------------
// Error messages
// ---------------------------------------------------------------------------

const (
	predictFailedMsg = "Failed to fetch prediction. Please try again."
	quotesFailedMsg  = "Failed to refresh live prices."
)

func describePredictionError(err error) string {
	var se *domain.ServiceError
	if errors.As(err, &se) && se.Message != "" && se.Status < 500 {
		return "Failed to fetch prediction: " + se.Message
	}
	var ne *domain.NetworkError
	if errors.As(err, &ne) {
		return "Prediction service unreachable. Please try again."
	}
	return predictFailedMsg
}

func describeQuotesError(err error) string {
	var ne *domain.NetworkError
	if errors.As(err, &ne) {
		return quotesFailedMsg + " Service unreachable."
	}
	return quotesFailedMsg
}
