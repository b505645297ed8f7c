package state

import (
	"time"

	"orphanfinder/internal/engine"
	"orphanfinder/internal/output"
	"orphanfinder/internal/panel"
)

type Page int

const (
	PageMenu     Page = iota
	PageOverview      // "Storage Overview"
	PageEntities      // "Entity Browser"
	PageSQL           // "Generated SQL"
)

// AppState is the view-side projection of the panel controller.
type AppState struct {
	Panel     panel.State
	Results   []engine.CheckResult
	Dashboard output.DashboardView
	Selected  map[string]bool

	Histogram *panel.Histogram
	Bulk      *panel.BulkResult
	BulkErr   error
	// BulkDone and BulkTotal track a running SQL generation.
	BulkDone   int
	BulkTotal  int
	Generating bool

	Notice      string
	LastUpdate  time.Time
	CurrentPage Page
}

// Refreshing reports whether a network load is running.
func (s AppState) Refreshing() bool {
	return s.Panel.Phase == panel.PhaseLoadingFromNetwork
}
