// Package poll runs keyed, fixed-cadence background fetches. Each key has at
// most one live subscription; a subscription fetches once immediately and
// then once per tick, whether or not the previous fetch has finished.
package poll

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Policy decides which completed fetch wins when fetches overlap.
type Policy int

const (
	// LastIssued applies a completion only if it was issued after the last
	// applied one, so a slow older response never overwrites newer data.
	LastIssued Policy = iota
	// LastCompleted applies every completion in arrival order.
	LastCompleted
)

func (p Policy) String() string {
	switch p {
	case LastIssued:
		return "last_issued"
	case LastCompleted:
		return "last_completed"
	default:
		return fmt.Sprintf("Policy(%d)", int(p))
	}
}

// ParsePolicy maps the config names "last_issued" and "last_completed".
func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "", "last_issued":
		return LastIssued, nil
	case "last_completed":
		return LastCompleted, nil
	}
	return LastIssued, fmt.Errorf("unknown ordering policy %q", s)
}

// FetchFunc performs one fetch. It runs on its own goroutine.
type FetchFunc func(ctx context.Context) (any, error)

// Options configures a Controller. Zero values pick LastIssued, the default
// slog logger and real time.Tickers.
type Options struct {
	Policy    Policy
	Logger    *slog.Logger
	NewTicker func(time.Duration) Ticker
}

// Controller owns every subscription and its ticker.
type Controller struct {
	ctx       context.Context
	policy    Policy
	log       *slog.Logger
	newTicker func(time.Duration) Ticker

	mu      sync.Mutex
	handles map[string]*Handle
	nextID  uint64
	closed  bool

	loops sync.WaitGroup
}

// NewController creates a controller. Fetches receive ctx, so cancelling it
// aborts in-flight requests and stops all tickers.
func NewController(ctx context.Context, opts Options) *Controller {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.NewTicker == nil {
		opts.NewTicker = NewTimeTicker
	}
	return &Controller{
		ctx:       ctx,
		policy:    opts.Policy,
		log:       opts.Logger,
		newTicker: opts.NewTicker,
		handles:   make(map[string]*Handle),
	}
}

// Policy returns the ordering policy in force.
func (c *Controller) Policy() Policy { return c.policy }

// Handle identifies one subscription.
type Handle struct {
	id       uint64
	key      string
	interval time.Duration

	fetch    FetchFunc
	onResult func(any)
	onError  func(error)

	active   atomic.Bool
	stop     chan struct{}
	stopOnce sync.Once

	issued atomic.Uint64

	// applyMu serialises result application; applied is the generation of
	// the last accepted completion.
	applyMu sync.Mutex
	applied uint64
}

// Key returns the subscription key.
func (h *Handle) Key() string { return h.key }

// Active reports whether results are still being applied.
func (h *Handle) Active() bool { return h != nil && h.active.Load() }

// Issued returns how many fetches this handle has started.
func (h *Handle) Issued() uint64 { return h.issued.Load() }

func (h *Handle) deactivate() {
	h.active.Store(false)
	h.stopOnce.Do(func() { close(h.stop) })
}

// Subscribe starts polling key: one fetch now, then one per interval. A
// non-positive interval fetches once and never ticks. An existing handle
// for key is unsubscribed first. onError may be nil.
func (c *Controller) Subscribe(key string, interval time.Duration, fetch FetchFunc, onResult func(any), onError func(error)) *Handle {
	h := &Handle{
		key:      key,
		interval: interval,
		fetch:    fetch,
		onResult: onResult,
		onError:  onError,
		stop:     make(chan struct{}),
	}
	h.active.Store(true)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		h.deactivate()
		return h
	}
	if old := c.handles[key]; old != nil {
		old.deactivate()
		c.log.Debug("poll: replaced subscription", "key", key, "old_id", old.id)
	}
	c.nextID++
	h.id = c.nextID
	c.handles[key] = h
	c.mu.Unlock()

	c.log.Debug("poll: subscribed", "key", key, "id", h.id, "interval", interval)

	c.issue(h)

	if interval > 0 {
		t := c.newTicker(interval)
		c.loops.Add(1)
		go c.loop(h, t)
	}
	return h
}

// Subscribe is the typed form of Controller.Subscribe.
func Subscribe[T any](c *Controller, key string, interval time.Duration, fetch func(context.Context) (T, error), onResult func(T), onError func(error)) *Handle {
	return c.Subscribe(key, interval,
		func(ctx context.Context) (any, error) { return fetch(ctx) },
		func(v any) {
			t, _ := v.(T)
			onResult(t)
		},
		onError)
}

// Unsubscribe stops h's ticker and discards any results still in flight.
// It is safe to call more than once and with a nil handle.
func (c *Controller) Unsubscribe(h *Handle) {
	if h == nil {
		return
	}
	c.mu.Lock()
	if c.handles[h.key] == h {
		delete(c.handles, h.key)
	}
	c.mu.Unlock()

	if h.active.Load() {
		c.log.Debug("poll: unsubscribed", "key", h.key, "id", h.id)
	}
	h.deactivate()
}

// Active reports whether key has a live subscription.
func (c *Controller) Active(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	h := c.handles[key]
	return h != nil && h.active.Load()
}

// Len returns the number of live subscriptions.
func (c *Controller) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.handles)
}

// Close unsubscribes everything and waits for the tick loops to exit.
// Later Subscribe calls return inactive handles.
func (c *Controller) Close() {
	c.mu.Lock()
	c.closed = true
	handles := c.handles
	c.handles = make(map[string]*Handle)
	c.mu.Unlock()

	for _, h := range handles {
		h.deactivate()
	}
	c.loops.Wait()
}

func (c *Controller) loop(h *Handle, t Ticker) {
	defer c.loops.Done()
	defer t.Stop()

	for {
		select {
		case <-h.stop:
			return
		case <-c.ctx.Done():
			return
		case <-t.C():
			if !h.active.Load() {
				return
			}
			c.issue(h)
		}
	}
}

// issue starts one fetch tagged with the next generation number.
func (c *Controller) issue(h *Handle) {
	gen := h.issued.Add(1)
	go func() {
		v, err := h.fetch(c.ctx)
		c.complete(h, gen, v, err)
	}()
}

func (c *Controller) complete(h *Handle, gen uint64, v any, err error) {
	h.applyMu.Lock()
	defer h.applyMu.Unlock()

	if !h.active.Load() {
		c.log.Debug("poll: discarded result of inactive subscription", "key", h.key, "gen", gen)
		return
	}
	if c.policy == LastIssued {
		if gen <= h.applied {
			c.log.Debug("poll: discarded stale result", "key", h.key, "gen", gen, "applied", h.applied)
			return
		}
		h.applied = gen
	}

	if err != nil {
		c.log.Warn("poll: fetch failed", "key", h.key, "gen", gen, "error", err)
		if h.onError != nil {
			h.onError(err)
		}
		return
	}
	h.onResult(v)
}
