// Package bootstrap wires the components shared by the panel and the MCP
// server from a loaded configuration.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io"

	"orphanfinder/internal/api"
	"orphanfinder/internal/cache"
	"orphanfinder/internal/config"
	"orphanfinder/internal/database/relational"
	"orphanfinder/internal/logging"
	"orphanfinder/internal/overview"
	"orphanfinder/internal/panel"
)

// Runtime holds the wired components. Close releases them in reverse order.
type Runtime struct {
	Config     *config.Config
	Log        logging.Logger
	DB         *relational.DuckDBClient
	Cache      *cache.Cache
	Client     *api.Client
	Controller *panel.Controller

	closers []func() error
}

// New opens the log sink and the cache database and builds the controller.
// defaultLog receives log output when cfg.Log.File is empty.
func New(ctx context.Context, cfg *config.Config, defaultLog io.Writer) (*Runtime, error) {
	rt := &Runtime{Config: cfg}

	w, closeLog, err := logging.Open(cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	rt.closers = append(rt.closers, closeLog)
	if cfg.Log.File == "" && defaultLog != nil {
		w = defaultLog
	}
	rt.Log = logging.NewSlogLogger(logging.New(cfg.Log, w))

	db, err := relational.NewFileDB(cfg.Cache.Path)
	if err != nil {
		rt.Close()
		return nil, fmt.Errorf("open cache database: %w", err)
	}
	rt.DB = db
	rt.closers = append(rt.closers, db.Close)

	repo := relational.NewRepo(db.DB())
	if err := repo.Migrate(ctx); err != nil {
		rt.Close()
		return nil, fmt.Errorf("migrate cache database: %w", err)
	}

	opts := []cache.Option{
		cache.WithKey(cfg.Cache.Key),
		cache.WithMaxBytes(cfg.Cache.MaxBytes),
		cache.WithLogger(rt.Log.With("component", "cache")),
	}
	if !db.InMemory() {
		opts = append(opts, cache.WithDiskQuota(cfg.Cache.Path, cfg.Cache.MinFreeBytes))
	}
	rt.Cache, err = cache.New(repo, opts...)
	if err != nil {
		rt.Close()
		return nil, fmt.Errorf("create cache: %w", err)
	}

	rt.Client = api.NewClient(cfg.Backend.BaseURL, cfg.Backend.Token,
		rt.Log.With("component", "api"),
		api.WithTimeout(cfg.Backend.RequestTimeout),
	)

	loader := overview.NewLoader(rt.Client,
		overview.WithStepTimeout(cfg.Backend.StepTimeout),
		overview.WithLogger(rt.Log.With("component", "overview")),
	)

	rt.Controller = panel.NewController(
		panel.Deps{Backend: rt.Client, Loader: loader, Cache: rt.Cache},
		panel.WithLogger(rt.Log.With("component", "panel")),
		panel.WithStaleAfter(cfg.Cache.MaxAge),
		panel.WithHistogramHours(cfg.UI.HistogramHours),
	)

	rt.Log.Debug(ctx, "runtime ready", "cache", cfg.Cache.Path, "backend", cfg.Backend.BaseURL)
	return rt, nil
}

// Close releases the database and the log file.
func (rt *Runtime) Close() error {
	var errs []error
	for i := len(rt.closers) - 1; i >= 0; i-- {
		if err := rt.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	rt.closers = nil
	return errors.Join(errs...)
}
