package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Retention prunes the journal and quote tape on a cron schedule.
type Retention struct {
	Cron    *cron.Cron
	Keep    time.Duration
	Targets []Pruner

	ctx context.Context
	now func() time.Time
	log *slog.Logger
}

// NewRetention creates a retention job that keeps keepDays of history in
// every target. The cron parser accepts a leading seconds field.
func NewRetention(ctx context.Context, keepDays int, log *slog.Logger, targets ...Pruner) *Retention {
	if log == nil {
		log = slog.Default()
	}
	return &Retention{
		Cron:    cron.New(cron.WithSeconds()),
		Keep:    time.Duration(keepDays) * 24 * time.Hour,
		Targets: targets,
		ctx:     ctx,
		now:     time.Now,
		log:     log,
	}
}

// Register schedules RunNow on a cron schedule with a seconds field.
func (r *Retention) Register(schedule string) error {
	if _, err := r.Cron.AddFunc(schedule, func() {
		if err := r.RunNow(); err != nil {
			r.log.Warn("retention: prune failed", "error", err)
		}
	}); err != nil {
		return fmt.Errorf("register retention %q: %w", schedule, err)
	}
	return nil
}

// RunNow prunes every target once. All targets are attempted; their errors
// are joined.
func (r *Retention) RunNow() error {
	cutoff := r.now().Add(-r.Keep)
	var errs []error
	for _, t := range r.Targets {
		if err := t.Prune(r.ctx, cutoff); err != nil {
			errs = append(errs, err)
		}
	}
	r.log.Info("retention: pruned", "cutoff", cutoff.Format(time.DateOnly), "targets", len(r.Targets), "errors", len(errs))
	return errors.Join(errs...)
}

// Start starts the cron scheduler.
func (r *Retention) Start() {
	r.Cron.Start()
}

// Stop stops the scheduler and waits for a running prune to finish.
func (r *Retention) Stop() {
	<-r.Cron.Stop().Done()
}
