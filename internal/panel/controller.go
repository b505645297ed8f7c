// Package panel is the controller behind every front end: it decides when to
// read the local cache or run the stepwise overview, owns the current
// snapshot, query state and selection, and generates delete SQL in bulk.
package panel

import (
	"context"
	"errors"
	"sync"
	"time"

	"orphanfinder/internal/api"
	"orphanfinder/internal/flagger"
	"orphanfinder/internal/logging"
	"orphanfinder/internal/model"
	"orphanfinder/internal/overview"
	"orphanfinder/internal/query"
)

// DefaultStaleAfter is the cache age past which the stale banner shows.
const DefaultStaleAfter = 12 * time.Hour

var (
	// ErrNoData is reported when recovery found neither memory nor cache data.
	ErrNoData = errors.New("no data loaded, please refresh")
	// ErrSuperseded is returned by a refresh replaced by a newer one.
	ErrSuperseded = errors.New("refresh superseded by a newer request")
	// ErrNothingSelected is returned by bulk SQL generation with no input.
	ErrNothingSelected = errors.New("no entities selected")
)

// Source tells where the displayed snapshot came from.
type Source string

const (
	SourceNone    Source = "none"
	SourceCache   Source = "cache"
	SourceNetwork Source = "network"
)

// Phase is the controller state machine position.
type Phase string

const (
	PhaseIdle               Phase = "idle"
	PhaseLoadingFromCache   Phase = "loading_cache"
	PhaseLoadingFromNetwork Phase = "loading_network"
	PhaseError              Phase = "error"
)

// SnapshotCache persists the last good snapshot.
type SnapshotCache interface {
	Save(ctx context.Context, snap *model.Snapshot) bool
	Load(ctx context.Context) *model.Snapshot
	Age(ctx context.Context, snap *model.Snapshot) (time.Duration, bool)
}

// OverviewRunner produces a fresh snapshot.
type OverviewRunner interface {
	Run(ctx context.Context, progress overview.ProgressFunc) (*model.Snapshot, error)
}

// Progress is the determinate progress of a running refresh.
type Progress struct {
	Completed int
	Total     int
	Label     string
}

// Fraction is Completed/Total in [0,1].
func (p Progress) Fraction() float64 {
	if p.Total <= 0 {
		return 0
	}
	return float64(p.Completed) / float64(p.Total)
}

// State is a read-only projection of the controller for front ends.
type State struct {
	Phase        Phase
	Source       Source
	Snapshot     *model.Snapshot
	DatabaseSize *model.DatabaseSize
	Query        query.State
	View         *query.View
	Selected     int
	Breakdown    query.Breakdown
	Progress     Progress
	Err          error
	ErrMessage   string
	StaleBanner  bool
	Age          time.Duration
	AgeKnown     bool
}

// Loading reports whether a load of either kind is running.
func (s State) Loading() bool {
	return s.Phase == PhaseLoadingFromCache || s.Phase == PhaseLoadingFromNetwork
}

// Deps are the collaborators of a Controller.
type Deps struct {
	Backend api.Backend
	Loader  OverviewRunner
	Cache   SnapshotCache
	Flagger *flagger.FlaggerService
}

// Option configures a Controller.
type Option func(*Controller)

func WithLogger(log logging.Logger) Option {
	return func(c *Controller) {
		if log != nil {
			c.log = log
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// WithStaleAfter sets the cache age that raises the stale banner.
func WithStaleAfter(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.staleAfter = d
		}
	}
}

// WithHistogramHours sets the default histogram window.
func WithHistogramHours(h int) Option {
	return func(c *Controller) {
		if api.ValidHours(h) {
			c.histogramHours = h
		}
	}
}

// Controller is safe for concurrent use. Front ends call it from command
// goroutines and read State from their render loop.
type Controller struct {
	backend api.Backend
	loader  OverviewRunner
	cache   SnapshotCache
	flagger *flagger.FlaggerService
	engine  *query.Engine
	log     logging.Logger
	now     func() time.Time

	staleAfter     time.Duration
	histogramHours int

	// saveMu orders cache writes between overlapping refreshes.
	saveMu sync.Mutex

	mu             sync.RWMutex
	phase          Phase
	source         Source
	snap           *model.Snapshot
	dbSize         *model.DatabaseSize
	query          query.State
	selection      *query.SelectionSet
	progress       Progress
	lastErr        error
	staleBanner    bool
	staleDismissed bool
	refreshToken   uint64
	cancelRefresh  context.CancelFunc
	histToken      uint64
	histogram      *Histogram
}

// NewController wires a controller. A nil Loader falls back to the stepwise
// loader over Backend.
func NewController(deps Deps, opts ...Option) *Controller {
	c := &Controller{
		backend:        deps.Backend,
		loader:         deps.Loader,
		cache:          deps.Cache,
		flagger:        deps.Flagger,
		engine:         query.NewEngine(),
		log:            logging.Discard(),
		now:            time.Now,
		staleAfter:     DefaultStaleAfter,
		histogramHours: 24,
		phase:          PhaseIdle,
		source:         SourceNone,
		query:          query.NewState(),
		selection:      query.NewSelectionSet(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.flagger == nil {
		c.flagger = flagger.NewFlaggerService(flagger.DefaultConfig())
	}
	if c.loader == nil && c.backend != nil {
		c.loader = overview.NewLoader(c.backend, overview.WithLogger(c.log))
	}
	return c
}

// Flagger returns the classifier used by the controller.
func (c *Controller) Flagger() *flagger.FlaggerService {
	return c.flagger
}

// Activate shows cached data as fast as possible and refreshes the database
// size header. It never runs the stepwise overview; that takes Refresh.
// A refresh already in flight keeps its phase.
func (c *Controller) Activate(ctx context.Context) State {
	c.mu.Lock()
	if c.phase == PhaseIdle {
		c.phase = PhaseLoadingFromCache
	}
	c.mu.Unlock()

	var snap *model.Snapshot
	if c.cache != nil {
		snap = c.cache.Load(ctx)
	}

	c.mu.Lock()
	if snap != nil && c.snap == nil {
		c.installLocked(snap, SourceCache)
		c.evaluateStaleLocked(ctx)
		c.log.Info(ctx, "showing cached overview", "entities", snap.Len(), "stale", c.staleBanner)
	}
	if c.phase == PhaseLoadingFromCache {
		c.phase = PhaseIdle
	}
	c.mu.Unlock()

	c.FetchDatabaseSize(ctx)
	return c.State()
}

// FetchDatabaseSize refreshes the header metadata. Failures are logged and
// leave the previous value.
func (c *Controller) FetchDatabaseSize(ctx context.Context) (*model.DatabaseSize, error) {
	if c.backend == nil {
		return nil, api.ErrConnectionUnavailable
	}
	size, err := c.backend.DatabaseSize(ctx)
	if err != nil {
		c.log.Warn(ctx, "database size unavailable", "error", err)
		return nil, err
	}
	c.mu.Lock()
	c.dbSize = size
	c.mu.Unlock()
	return size, nil
}

// Refresh runs the full stepwise overview. On success the snapshot replaces
// the current one, is written to the cache and banners clear. On failure the
// last good snapshot stays and the error is recorded. A newer Refresh
// cancels an older one, whose result is then discarded with ErrSuperseded.
func (c *Controller) Refresh(ctx context.Context, progress func(Progress)) (State, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	c.mu.Lock()
	if c.cancelRefresh != nil {
		c.cancelRefresh()
	}
	c.refreshToken++
	token := c.refreshToken
	c.cancelRefresh = cancel
	c.phase = PhaseLoadingFromNetwork
	c.lastErr = nil
	c.progress = Progress{Completed: 0, Total: api.TotalSteps, Label: overview.StepLabel(1)}
	c.mu.Unlock()

	if c.loader == nil {
		return c.failRefresh(ctx, token, api.ErrConnectionUnavailable)
	}

	snap, err := c.loader.Run(ctx, func(done, total int) {
		p := Progress{Completed: done, Total: total, Label: overview.StepLabel(done + 1)}
		c.mu.Lock()
		current := token == c.refreshToken
		if current {
			c.progress = p
		}
		c.mu.Unlock()
		if current && progress != nil {
			progress(p)
		}
	})
	if err != nil {
		return c.failRefresh(ctx, token, err)
	}

	// The database size is fetched last, as its own request.
	size, sizeErr := c.FetchDatabaseSize(ctx)
	if sizeErr != nil {
		c.mu.RLock()
		size = c.dbSize
		if size == nil && c.snap != nil {
			size = c.snap.DatabaseSize
		}
		c.mu.RUnlock()
	}
	snap = snap.WithDatabaseSize(size)

	c.mu.Lock()
	if token != c.refreshToken {
		c.mu.Unlock()
		return c.State(), ErrSuperseded
	}
	c.installLocked(snap, SourceNetwork)
	c.staleBanner = false
	c.lastErr = nil
	c.phase = PhaseIdle
	c.progress = Progress{}
	c.cancelRefresh = nil
	c.mu.Unlock()

	c.save(ctx, snap)
	return c.State(), nil
}

// save persists snap unless a newer snapshot was installed meanwhile.
func (c *Controller) save(ctx context.Context, snap *model.Snapshot) {
	if c.cache == nil {
		return
	}
	c.saveMu.Lock()
	defer c.saveMu.Unlock()

	c.mu.RLock()
	current := c.snap == snap
	c.mu.RUnlock()
	if !current {
		c.log.Debug(ctx, "skipping cache write for replaced overview")
		return
	}
	if !c.cache.Save(ctx, snap) {
		c.log.Warn(ctx, "overview not cached")
	}
}

func (c *Controller) failRefresh(ctx context.Context, token uint64, err error) (State, error) {
	c.mu.Lock()
	if token != c.refreshToken {
		c.mu.Unlock()
		return c.State(), ErrSuperseded
	}
	c.lastErr = err
	c.phase = PhaseError
	c.progress = Progress{}
	c.cancelRefresh = nil
	c.mu.Unlock()

	c.log.Error(ctx, "overview refresh failed", "error", err)
	return c.State(), err
}

// Recover reloads from the cache when the controller holds no data while
// idle and error free. It reports whether data is available afterwards; when
// nothing could be recovered ErrNoData is recorded.
func (c *Controller) Recover(ctx context.Context) bool {
	c.mu.RLock()
	needed := c.snap.Len() == 0 && c.phase == PhaseIdle && c.lastErr == nil
	hasData := c.snap.Len() > 0
	c.mu.RUnlock()
	if !needed {
		return hasData
	}

	var snap *model.Snapshot
	if c.cache != nil {
		snap = c.cache.Load(ctx)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.snap.Len() > 0 {
		return true
	}
	if snap.Len() == 0 {
		c.lastErr = ErrNoData
		c.phase = PhaseError
		return false
	}
	c.installLocked(snap, SourceCache)
	c.evaluateStaleLocked(ctx)
	c.log.Info(ctx, "recovered overview from cache", "entities", snap.Len())
	return true
}

// DismissStale hides the stale banner for the lifetime of the controller.
func (c *Controller) DismissStale() {
	c.mu.Lock()
	c.staleBanner = false
	c.staleDismissed = true
	c.mu.Unlock()
}

// ClearError drops the recorded error and returns to idle.
func (c *Controller) ClearError() {
	c.mu.Lock()
	c.lastErr = nil
	if c.phase == PhaseError {
		c.phase = PhaseIdle
	}
	c.mu.Unlock()
}

// installLocked swaps in snap and prunes the selection against it.
func (c *Controller) installLocked(snap *model.Snapshot, src Source) {
	c.snap = snap
	c.source = src
	if snap.DatabaseSize != nil && c.dbSize == nil {
		c.dbSize = snap.DatabaseSize
	}
	c.selection.Prune(snap)
}

func (c *Controller) evaluateStaleLocked(ctx context.Context) {
	if c.staleDismissed || c.cache == nil {
		return
	}
	age, ok := c.cache.Age(ctx, c.snap)
	c.staleBanner = !ok || age > c.staleAfter
}

// State returns the current projection. The view is evaluated lazily and
// memoized, so repeated calls without changes return the same *query.View.
func (c *Controller) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()

	s := State{
		Phase:        c.phase,
		Source:       c.source,
		Snapshot:     c.snap,
		DatabaseSize: c.dbSize,
		Query:        c.query.Clone(),
		View:         c.engine.Evaluate(c.snap, c.query),
		Selected:     c.selection.Len(),
		Breakdown:    c.selection.Breakdown(c.snap),
		Progress:     c.progress,
		Err:          c.lastErr,
		ErrMessage:   api.UserMessage(c.lastErr),
		StaleBanner:  c.staleBanner,
	}
	if c.snap != nil && !c.snap.CapturedAt.IsZero() {
		s.Age = c.now().Sub(c.snap.CapturedAt)
		s.AgeKnown = true
	}
	return s
}
