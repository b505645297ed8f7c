package database

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"orphanfinder/internal/logging"
	"orphanfinder/internal/model"
	"orphanfinder/internal/panel"
)

const defaultPollInterval = 15 * time.Minute

// Refresher runs a full overview refresh.
type Refresher interface {
	Refresh(ctx context.Context, progress func(panel.Progress)) (panel.State, error)
}

// StalenessSource reports whether the persisted overview needs a refresh.
type StalenessSource interface {
	IsStale(ctx context.Context, maxAge time.Duration, snap *model.Snapshot) bool
}

// SyncWorker keeps the persisted overview fresh for long-running consumers:
// on every tick it refreshes through the controller when the cached entry is
// missing or older than maxAge.
type SyncWorker struct {
	refresher Refresher
	cache     StalenessSource
	maxAge    time.Duration
	interval  time.Duration
	log       logging.Logger

	mu        sync.Mutex
	cancel    context.CancelFunc
	running   bool
	wg        sync.WaitGroup
	lastRun   time.Time
	lastErr   error
	refreshes int
}

// NewSyncWorker creates a new worker instance.
func NewSyncWorker(r Refresher, c StalenessSource, maxAge, interval time.Duration, log logging.Logger) (*SyncWorker, error) {
	if r == nil || c == nil {
		return nil, errors.New("refresher and cache are required")
	}
	if interval <= 0 {
		interval = defaultPollInterval
	}
	if log == nil {
		log = logging.Discard()
	}
	return &SyncWorker{
		refresher: r,
		cache:     c,
		maxAge:    maxAge,
		interval:  interval,
		log:       log.With("worker", "sync"),
	}, nil
}

// Start begins the periodic staleness check loop.
func (w *SyncWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return errors.New("worker already running")
	}
	ctx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.running = true
	w.wg.Add(1)
	w.mu.Unlock()

	go w.loop(ctx)
	return nil
}

// Stop gracefully stops the worker and waits for a running refresh.
func (w *SyncWorker) Stop() {
	w.mu.Lock()
	cancel := w.cancel
	w.cancel = nil
	w.running = false
	w.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	w.wg.Wait()
}

// PullOnce executes a single check immediately. refreshed reports whether a
// refresh ran.
func (w *SyncWorker) PullOnce(ctx context.Context) (refreshed bool, err error) {
	return w.execute(ctx)
}

// Stats returns the time and error of the last executed refresh and the
// number of refreshes so far.
func (w *SyncWorker) Stats() (lastRun time.Time, lastErr error, refreshes int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastRun, w.lastErr, w.refreshes
}

func (w *SyncWorker) loop(ctx context.Context) {
	defer w.wg.Done()
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := w.execute(ctx); err != nil && ctx.Err() == nil {
				w.log.Warn(ctx, "sync failed", "error", err)
			}
		}
	}
}

func (w *SyncWorker) execute(ctx context.Context) (bool, error) {
	if !w.cache.IsStale(ctx, w.maxAge, nil) {
		return false, nil
	}

	start := time.Now()
	_, err := w.refresher.Refresh(ctx, nil)

	w.mu.Lock()
	w.lastRun = start
	w.lastErr = err
	if err == nil {
		w.refreshes++
	}
	w.mu.Unlock()

	if err != nil {
		return true, fmt.Errorf("refresh overview: %w", err)
	}
	w.log.Info(ctx, "overview refreshed", "duration", time.Since(start))
	return true, nil
}
