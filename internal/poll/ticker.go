package poll

import (
	"sync"
	"time"
)

// Ticker is the slice of time.Ticker the controller uses.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

type timeTicker struct{ t *time.Ticker }

func (t timeTicker) C() <-chan time.Time { return t.t.C }
func (t timeTicker) Stop()               { t.t.Stop() }

// NewTimeTicker wraps time.NewTicker.
func NewTimeTicker(d time.Duration) Ticker {
	return timeTicker{t: time.NewTicker(d)}
}

// ManualTicker fires only when Tick is called.
type ManualTicker struct {
	Interval time.Duration

	ch       chan time.Time
	stopped  chan struct{}
	stopOnce sync.Once
}

func (m *ManualTicker) C() <-chan time.Time { return m.ch }

func (m *ManualTicker) Stop() {
	m.stopOnce.Do(func() { close(m.stopped) })
}

// Tick blocks until the subscription loop receives the tick. It returns
// false if the ticker was stopped first.
func (m *ManualTicker) Tick() bool {
	select {
	case m.ch <- time.Now():
		return true
	case <-m.stopped:
		return false
	}
}

// Stopped reports whether Stop has been called.
func (m *ManualTicker) Stopped() bool {
	select {
	case <-m.stopped:
		return true
	default:
		return false
	}
}

// ManualTickers is a ticker factory that hands out ManualTickers in
// creation order.
type ManualTickers struct {
	mu      sync.Mutex
	tickers []*ManualTicker
}

// New satisfies Options.NewTicker.
func (f *ManualTickers) New(d time.Duration) Ticker {
	t := &ManualTicker{Interval: d, ch: make(chan time.Time), stopped: make(chan struct{})}
	f.mu.Lock()
	f.tickers = append(f.tickers, t)
	f.mu.Unlock()
	return t
}

// Len returns how many tickers have been created.
func (f *ManualTickers) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.tickers)
}

// Get returns the i-th created ticker, or nil.
func (f *ManualTickers) Get(i int) *ManualTicker {
	f.mu.Lock()
	defer f.mu.Unlock()
	if i < 0 || i >= len(f.tickers) {
		return nil
	}
	return f.tickers[i]
}
