// Package overview runs the stepwise entity storage overview against the
// backend and assembles the resulting snapshot.
package overview

import (
	"context"
	"fmt"
	"time"

	"orphanfinder/internal/api"
	"orphanfinder/internal/logging"
	"orphanfinder/internal/model"
)

// DefaultStepTimeout bounds a single step round trip.
const DefaultStepTimeout = 60 * time.Second

// StepLabels describe what the backend does during steps 1..8.
var StepLabels = [api.TotalSteps]string{
	"Reading entity registry",
	"Reading state machine",
	"Scanning states_meta table",
	"Scanning states table",
	"Scanning statistics_meta table",
	"Scanning statistics tables",
	"Calculating entity summaries",
	"Fetching database statistics",
}

// StepLabel returns the label of step (1-based), or "" when out of range.
func StepLabel(step int) string {
	if step < 1 || step > len(StepLabels) {
		return ""
	}
	return StepLabels[step-1]
}

// StepRunner executes one overview step.
type StepRunner interface {
	OverviewStep(ctx context.Context, step int, sessionID string) (api.StepResult, error)
}

// ProgressFunc receives (completedStep, totalSteps) after every step but the last.
type ProgressFunc func(completed, total int)

// Loader drives steps 0..8 strictly in order. A Loader holds no session state
// between runs; every Run starts a fresh session.
type Loader struct {
	runner      StepRunner
	stepTimeout time.Duration
	log         logging.Logger
	now         func() time.Time
}

// Option configures a Loader.
type Option func(*Loader)

// WithStepTimeout sets the per-step timeout. Zero or negative disables it.
func WithStepTimeout(d time.Duration) Option {
	return func(l *Loader) { l.stepTimeout = d }
}

// WithLogger sets the loader logger.
func WithLogger(log logging.Logger) Option {
	return func(l *Loader) {
		if log != nil {
			l.log = log
		}
	}
}

// WithClock overrides the capture timestamp source.
func WithClock(now func() time.Time) Option {
	return func(l *Loader) { l.now = now }
}

// NewLoader creates a loader on top of runner.
func NewLoader(runner StepRunner, opts ...Option) *Loader {
	l := &Loader{
		runner:      runner,
		stepTimeout: DefaultStepTimeout,
		log:         logging.Discard(),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Run executes the whole sequence and returns the new snapshot. Any failure
// aborts the run; nothing from earlier steps is returned. The snapshot carries
// no database size, the caller attaches the one it fetched separately.
func (l *Loader) Run(ctx context.Context, progress ProgressFunc) (*model.Snapshot, error) {
	started := l.now()

	// 1. Open the session
	res, err := l.step(ctx, api.FirstStep, "")
	if err != nil {
		return nil, err
	}
	session, ok := res.(api.SessionStarted)
	if !ok {
		return nil, unexpected(api.FirstStep, res)
	}
	total := session.TotalSteps
	if total != api.TotalSteps {
		l.log.Warn(ctx, "backend reported unexpected step count", "total_steps", total)
		total = api.TotalSteps
	}
	l.log.Debug(ctx, "overview session started", "session", shortID(session.SessionID))

	report(progress, api.FirstStep, total)

	// 2. Intermediate steps, progress only
	for step := api.FirstStep + 1; step < api.LastStep; step++ {
		res, err := l.step(ctx, step, session.SessionID)
		if err != nil {
			return nil, err
		}
		if _, ok := res.(api.StepCompleted); !ok {
			return nil, unexpected(step, res)
		}
		report(progress, step, total)
	}

	// 3. Final payload
	res, err = l.step(ctx, api.LastStep, session.SessionID)
	if err != nil {
		return nil, err
	}
	ready, ok := res.(api.OverviewReady)
	if !ok {
		return nil, unexpected(api.LastStep, res)
	}

	snap := model.NewSnapshot(ready.Entities, ready.Summary, nil, l.now())
	l.log.Info(ctx, "overview loaded",
		"entities", snap.Len(),
		"duration", l.now().Sub(started),
	)
	return snap, nil
}

func (l *Loader) step(ctx context.Context, step int, sessionID string) (api.StepResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, &api.StepError{Step: step, Err: err}
	}
	stepCtx := ctx
	if l.stepTimeout > 0 {
		var cancel context.CancelFunc
		stepCtx, cancel = context.WithTimeout(ctx, l.stepTimeout)
		defer cancel()
	}
	res, err := l.runner.OverviewStep(stepCtx, step, sessionID)
	if err != nil {
		l.log.Warn(ctx, "overview step failed", "step", step, "error", err)
		return nil, err
	}
	return res, nil
}

func report(progress ProgressFunc, completed, total int) {
	if progress != nil {
		progress(completed, total)
	}
}

func unexpected(step int, res api.StepResult) error {
	return &api.StepError{Step: step, Err: fmt.Errorf("unexpected payload %T", res)}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
