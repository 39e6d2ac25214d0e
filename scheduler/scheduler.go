// Package scheduler polls enabled stores on an interval, crawls each one
// with its own exclusive browser capability, persists the outcome, and
// dispatches notifications when the observed state changed.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/scriptnet/manuwatch/storage"
	"github.com/scriptnet/manuwatch/tracker"
)

// Crawler produces a state snapshot for one store.
type Crawler interface {
	Crawl(ctx context.Context, store *tracker.Store) (tracker.State, error)
}

// Notifier dispatches a store's current state to its listeners.
type Notifier interface {
	Notify(ctx context.Context, store *tracker.Store) error
}

// Config configures the scheduler.
type Config struct {
	// Interval is how often every enabled store is checked. Default: 15m.
	Interval time.Duration
}

func (c *Config) defaults() {
	if c.Interval <= 0 {
		c.Interval = 15 * time.Minute
	}
}

// Scheduler runs the check loop.
type Scheduler struct {
	db       *storage.DB
	crawler  Crawler
	notifier Notifier
	cfg      Config
	logger   *slog.Logger
}

// New creates a Scheduler.
func New(db *storage.DB, crawler Crawler, notifier Notifier, cfg Config, logger *slog.Logger) *Scheduler {
	cfg.defaults()
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{db: db, crawler: crawler, notifier: notifier, cfg: cfg, logger: logger}
}

// Run checks all enabled stores on a ticker. Blocks until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	// Run once immediately on start.
	s.CheckAll(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.CheckAll(ctx)
		}
	}
}

// CheckAll crawls every enabled store sequentially. Each store is an
// independent unit: one store's failure does not stop the sweep.
func (s *Scheduler) CheckAll(ctx context.Context) {
	stores, err := s.db.ListEnabled(ctx)
	if err != nil {
		s.logger.Error("scheduler: list stores", "error", err)
		return
	}

	for _, store := range stores {
		if ctx.Err() != nil {
			return
		}
		s.Check(ctx, store)
	}
}

// Check crawls one store, saves the refreshed session cookies whatever the
// outcome, and on success replaces the stored state, notifying listeners
// only when it changed.
func (s *Scheduler) Check(ctx context.Context, store *tracker.Store) {
	state, crawlErr := s.crawler.Crawl(ctx, store)

	// The crawl replaced store.Cookies wholesale even when it failed.
	if err := s.db.SaveCookies(ctx, store.ID, store.Cookies); err != nil {
		s.logger.Warn("scheduler: save cookies", "store", store.ID, "error", err)
	}

	if crawlErr != nil {
		s.logger.Error("scheduler: crawl failed", "store", store.ID, "error", crawlErr)
		return
	}

	changed := store.State == nil || *store.State != state
	store.State = &state

	if err := s.db.SaveState(ctx, store.ID, store.State); err != nil {
		s.logger.Warn("scheduler: save state", "store", store.ID, "error", err)
	}

	if !changed {
		s.logger.Debug("scheduler: no change", "store", store.ID, "ref", state.Ref)
		return
	}

	s.logger.Info("scheduler: state changed", "store", store.ID,
		"ref", state.Ref, "status", state.Status)
	if err := s.notifier.Notify(ctx, store); err != nil {
		s.logger.Error("scheduler: notify failed", "store", store.ID, "error", err)
	}
}
