package mcpserver

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"orphanfinder/internal/api"
	"orphanfinder/internal/database"
	"orphanfinder/internal/engine"
	"orphanfinder/internal/logging"
	"orphanfinder/internal/model"
	"orphanfinder/internal/output"
	"orphanfinder/internal/panel"
	"orphanfinder/internal/query"
)

const (
	defaultQueryLimit = 50
	maxQueryLimit     = 500
)

// Server wraps the MCP server with orphan finder capabilities.
type Server struct {
	mcpServer *mcp.Server
	ctrl      *panel.Controller
	engine    *query.Engine
	worker    *database.SyncWorker
	log       logging.Logger
}

// Config holds configuration for the MCP server.
type Config struct {
	ServerName    string
	ServerVersion string
	// MaxAge is the cache age that triggers a background refresh.
	MaxAge          time.Duration
	RefreshInterval time.Duration
}

// NewServer creates a new MCP server instance over ctrl. staleness is the
// persisted cache the background worker watches; nil disables the worker.
func NewServer(cfg Config, ctrl *panel.Controller, staleness database.StalenessSource, log logging.Logger) (*Server, error) {
	if ctrl == nil {
		return nil, errors.New("controller is required")
	}
	if log == nil {
		log = logging.Discard()
	}

	impl := &mcp.Implementation{
		Name:    cfg.ServerName,
		Version: cfg.ServerVersion,
	}

	s := &Server{
		mcpServer: mcp.NewServer(impl, nil),
		ctrl:      ctrl,
		engine:    query.NewEngine(),
		log:       log.With("component", "mcp"),
	}

	if staleness != nil {
		worker, err := database.NewSyncWorker(ctrl, staleness, cfg.MaxAge, cfg.RefreshInterval, log)
		if err != nil {
			return nil, fmt.Errorf("failed to create sync worker: %w", err)
		}
		s.worker = worker
	}

	s.registerTools()
	return s, nil
}

// OverviewArgs takes no input.
type OverviewArgs struct{}

// HealthAction is one prioritized storage finding.
type HealthAction struct {
	Name   string  `json:"name" jsonschema:"finding name"`
	Status string  `json:"status" jsonschema:"OK, WARN or CRIT"`
	Text   string  `json:"text" jsonschema:"human readable summary"`
	Value  float64 `json:"value" jsonschema:"affected entity count"`
	Action string  `json:"action,omitempty" jsonschema:"filter preset to pass to query_entities"`
}

// OverviewResult summarizes the loaded overview.
type OverviewResult struct {
	Source        string                `json:"source" jsonschema:"where the data came from: cache or network"`
	Age           string                `json:"age" jsonschema:"age of the data"`
	Status        string                `json:"status" jsonschema:"worst health status"`
	TotalEntities int                   `json:"total_entities"`
	DatabaseBytes int64                 `json:"database_bytes"`
	Summary       model.SummaryCounters `json:"summary"`
	DatabaseSize  *model.DatabaseSize   `json:"database_size,omitempty"`
	Actions       []HealthAction        `json:"actions"`
}

// SortArg is one sort stack entry.
type SortArg struct {
	Column    string `json:"column" jsonschema:"column name, e.g. entity_id or states_count"`
	Direction string `json:"direction,omitempty" jsonschema:"asc or desc"`
}

// QueryArgs defines the input for query_entities tool.
type QueryArgs struct {
	Search     string    `json:"search,omitempty" jsonschema:"case-insensitive substring of the entity id"`
	Action     string    `json:"action,omitempty" jsonschema:"health action preset applied before the filters below"`
	Basic      string    `json:"basic,omitempty" jsonschema:"in_registry, in_state, deleted or numeric_sensors_no_stats"`
	Registry   string    `json:"registry,omitempty" jsonschema:"Enabled, Disabled or Not in Registry"`
	State      string    `json:"state,omitempty" jsonschema:"Available, Unavailable or Not Present"`
	Advanced   string    `json:"advanced,omitempty" jsonschema:"only_states or only_stats"`
	States     string    `json:"states,omitempty" jsonschema:"in_states or not_in_states"`
	Statistics string    `json:"statistics,omitempty" jsonschema:"in_statistics or not_in_statistics"`
	Sort       []SortArg `json:"sort,omitempty" jsonschema:"sort stack, primary first"`
	Limit      int       `json:"limit,omitempty" jsonschema:"maximum rows to return"`
}

// EntityRow is one entity in a query result.
type EntityRow struct {
	EntityID       string       `json:"entity_id"`
	RegistryStatus string       `json:"registry_status"`
	StateStatus    string       `json:"state_status"`
	StatesCount    int64        `json:"states_count"`
	StatsShort     int64        `json:"stats_short_count"`
	StatsLong      int64        `json:"stats_long_count"`
	UpdateInterval string       `json:"update_interval,omitempty"`
	Origin         model.Origin `json:"origin,omitempty"`
	Eligible       bool         `json:"eligible" jsonschema:"whether delete SQL can be generated"`
	Severity       string       `json:"severity"`
	Explanation    string       `json:"explanation,omitempty"`
}

// QueryResult wraps the matching rows.
type QueryResult struct {
	Total    int         `json:"total" jsonschema:"number of matching entities"`
	Eligible int         `json:"eligible" jsonschema:"matching entities eligible for deletion"`
	Rows     []EntityRow `json:"rows"`
}

// RefreshArgs takes no input.
type RefreshArgs struct{}

// RefreshResult reports a finished refresh.
type RefreshResult struct {
	Entities   int    `json:"entities"`
	DurationMs int64  `json:"duration_ms"`
	Source     string `json:"source"`
}

// DeleteSQLArgs defines the input for generate_delete_sql tool.
type DeleteSQLArgs struct {
	EntityIDs []string `json:"entity_ids" jsonschema:"entities to generate delete statements for"`
}

// DeleteSQLResult wraps the combined statements.
type DeleteSQLResult struct {
	Status            string `json:"status" jsonschema:"success, partial or error"`
	SuccessCount      int    `json:"success_count"`
	ErrorCount        int    `json:"error_count"`
	TotalStorageSaved int64  `json:"total_storage_saved_bytes"`
	SQL               string `json:"sql"`
}

// HistogramArgs defines the input for get_message_histogram tool.
type HistogramArgs struct {
	EntityID string `json:"entity_id" jsonschema:"entity to inspect"`
	Hours    int    `json:"hours,omitempty" jsonschema:"window: 24, 48 or 168"`
}

// HistogramResult wraps the hourly counts.
type HistogramResult struct {
	EntityID      string `json:"entity_id"`
	Hours         int    `json:"hours"`
	HourlyCounts  []int  `json:"hourly_counts"`
	TotalMessages int    `json:"total_messages"`
}

// registerTools registers all available MCP tools.
func (s *Server) registerTools() {
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "get_overview",
		Description: "Summarize the recorder storage overview: entity counts, database size and prioritized health actions. Use this first; the action names can be passed to query_entities.",
	}, s.handleGetOverview)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "query_entities",
		Description: "List entities matching search text, a health action preset and filters, sorted by a sort stack. Eligible rows are deleted or disabled entities that still have stored data.",
	}, s.handleQueryEntities)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "refresh_overview",
		Description: "Run the full stepwise storage scan against the backend. Takes up to a few minutes on large databases; the result replaces the cached overview.",
	}, s.handleRefreshOverview)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "generate_delete_sql",
		Description: "Generate SQL that removes all recorder rows of the given entities. Statements are returned, never executed.",
	}, s.handleGenerateDeleteSQL)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "get_message_histogram",
		Description: "Get hourly state change counts for one entity over the last 24, 48 or 168 hours.",
	}, s.handleGetMessageHistogram)
}

// snapshot returns the loaded snapshot, recovering from the cache first.
func (s *Server) snapshot(ctx context.Context) (panel.State, error) {
	st := s.ctrl.State()
	if st.Snapshot.Len() > 0 {
		return st, nil
	}
	if s.ctrl.Recover(ctx) {
		return s.ctrl.State(), nil
	}
	return st, errors.New("no overview loaded, call refresh_overview first")
}

func (s *Server) handleGetOverview(ctx context.Context, _ *mcp.CallToolRequest, _ OverviewArgs) (*mcp.CallToolResult, OverviewResult, error) {
	st, err := s.snapshot(ctx)
	if err != nil {
		return nil, OverviewResult{}, err
	}

	results := engine.Evaluate(st.Snapshot, s.ctrl.Flagger())
	view := output.BuildDashboard(results, st.Snapshot, output.Meta{
		Source:   string(st.Source),
		Age:      st.Age,
		AgeKnown: st.AgeKnown,
	})

	res := OverviewResult{
		Source:        view.Source,
		Age:           view.Age,
		Status:        view.Status,
		TotalEntities: view.TotalEntities,
		DatabaseBytes: view.DatabaseBytes,
		Summary:       st.Snapshot.Summary,
		DatabaseSize:  st.Snapshot.DatabaseSize,
		Actions:       make([]HealthAction, 0, len(results)),
	}
	if res.DatabaseSize == nil {
		res.DatabaseSize = st.DatabaseSize
	}
	for _, r := range results {
		res.Actions = append(res.Actions, HealthAction{
			Name:   r.Name,
			Status: r.Status,
			Text:   r.Text,
			Value:  r.Value,
			Action: r.Action,
		})
	}
	return nil, res, nil
}

func (s *Server) handleQueryEntities(ctx context.Context, _ *mcp.CallToolRequest, args QueryArgs) (*mcp.CallToolResult, QueryResult, error) {
	st, err := s.snapshot(ctx)
	if err != nil {
		return nil, QueryResult{}, err
	}
	q, err := stateFromArgs(args)
	if err != nil {
		return nil, QueryResult{}, err
	}

	limit := args.Limit
	if limit < 0 {
		return nil, QueryResult{}, fmt.Errorf("limit must not be negative: %d", limit)
	}
	if limit == 0 {
		limit = defaultQueryLimit
	}
	if limit > maxQueryLimit {
		limit = maxQueryLimit
	}

	// Agent queries run on their own engine and leave the panel's query
	// state and memoized view alone.
	view := s.engine.Evaluate(st.Snapshot, q)
	fs := s.ctrl.Flagger()

	res := QueryResult{Total: view.Len(), Eligible: len(view.Eligible)}
	for _, e := range view.Records[:min(limit, view.Len())] {
		flags := fs.Flag(e)
		res.Rows = append(res.Rows, EntityRow{
			EntityID:       e.EntityID,
			RegistryStatus: string(e.RegistryStatus),
			StateStatus:    string(e.StateStatus),
			StatesCount:    e.StatesCount,
			StatsShort:     e.StatsShortCount,
			StatsLong:      e.StatsLongCount,
			UpdateInterval: e.UpdateInterval,
			Origin:         flags.Origin,
			Eligible:       e.Eligible(),
			Severity:       severityName(flags.SeverityLevel),
			Explanation:    flags.Explanation,
		})
	}
	return nil, res, nil
}

func severityName(level int) string {
	switch {
	case level >= 3:
		return engine.StatusCritical
	case level >= 2:
		return engine.StatusWarning
	}
	return engine.StatusHealthy
}

// stateFromArgs builds a query state, rejecting unknown filter values.
func stateFromArgs(args QueryArgs) (query.State, error) {
	q := query.NewState().WithSearch(args.Search)
	if args.Action != "" {
		var ok bool
		if q, ok = q.ApplyHealthAction(args.Action); !ok {
			return q, fmt.Errorf("unknown action: %s", args.Action)
		}
	}

	filters := []struct {
		group   query.FilterGroup
		value   string
		allowed []string
	}{
		{query.GroupBasic, args.Basic, []string{
			string(query.BasicInRegistry), string(query.BasicInState),
			string(query.BasicDeleted), string(query.BasicNumericSensorsNoStats)}},
		{query.GroupRegistry, args.Registry, []string{
			string(model.RegistryEnabled), string(model.RegistryDisabled), string(model.RegistryNotInRegistry)}},
		{query.GroupState, args.State, []string{
			string(model.StateAvailable), string(model.StateUnavailable), string(model.StateNotPresent)}},
		{query.GroupAdvanced, args.Advanced, []string{
			string(query.AdvancedOnlyStates), string(query.AdvancedOnlyStats)}},
		{query.GroupStates, args.States, []string{
			string(query.StatesIn), string(query.StatesNotIn)}},
		{query.GroupStatistics, args.Statistics, []string{
			string(query.StatisticsIn), string(query.StatisticsNotIn)}},
	}
	for _, f := range filters {
		if f.value == "" {
			continue
		}
		if !slices.Contains(f.allowed, f.value) {
			return q, fmt.Errorf("invalid %s filter: %q", f.group, f.value)
		}
		q = q.Set(f.group, f.value)
	}

	if len(args.Sort) > 0 {
		q.Sort = q.Sort[:0]
		for _, k := range args.Sort {
			dir := query.Direction(k.Direction)
			switch dir {
			case "":
				dir = query.Asc
			case query.Asc, query.Desc:
			default:
				return q, fmt.Errorf("invalid sort direction: %q", k.Direction)
			}
			q.Sort = append(q.Sort, query.SortKey{Column: k.Column, Direction: dir})
		}
	}
	return q, nil
}

func (s *Server) handleRefreshOverview(ctx context.Context, _ *mcp.CallToolRequest, _ RefreshArgs) (*mcp.CallToolResult, RefreshResult, error) {
	start := time.Now()
	st, err := s.ctrl.Refresh(ctx, nil)
	if err != nil {
		return nil, RefreshResult{}, fmt.Errorf("refresh failed: %s", api.UserMessage(err))
	}
	return nil, RefreshResult{
		Entities:   st.Snapshot.Len(),
		DurationMs: time.Since(start).Milliseconds(),
		Source:     string(st.Source),
	}, nil
}

func (s *Server) handleGenerateDeleteSQL(ctx context.Context, _ *mcp.CallToolRequest, args DeleteSQLArgs) (*mcp.CallToolResult, DeleteSQLResult, error) {
	if len(args.EntityIDs) == 0 {
		return nil, DeleteSQLResult{}, errors.New("entity_ids must not be empty")
	}
	if _, err := s.snapshot(ctx); err != nil {
		return nil, DeleteSQLResult{}, err
	}

	res, err := s.ctrl.GenerateSQL(ctx, args.EntityIDs, nil)
	if err != nil {
		return nil, DeleteSQLResult{}, fmt.Errorf("failed to generate sql: %w", err)
	}
	return nil, DeleteSQLResult{
		Status:            string(res.Status),
		SuccessCount:      res.SuccessCount,
		ErrorCount:        res.ErrorCount,
		TotalStorageSaved: res.TotalStorageSaved,
		SQL:               res.Combined(),
	}, nil
}

func (s *Server) handleGetMessageHistogram(ctx context.Context, _ *mcp.CallToolRequest, args HistogramArgs) (*mcp.CallToolResult, HistogramResult, error) {
	if args.EntityID == "" {
		return nil, HistogramResult{}, errors.New("entity_id is required")
	}
	if args.Hours != 0 && !api.ValidHours(args.Hours) {
		return nil, HistogramResult{}, fmt.Errorf("invalid hours: %d (must be 24, 48 or 168)", args.Hours)
	}

	h, _ := s.ctrl.Histogram(ctx, args.EntityID, args.Hours)
	if h.Err != nil {
		return nil, HistogramResult{}, fmt.Errorf("failed to get histogram: %s", api.UserMessage(h.Err))
	}
	if h.Data == nil {
		return nil, HistogramResult{}, errors.New("backend returned no histogram")
	}
	return nil, HistogramResult{
		EntityID:      h.EntityID,
		Hours:         h.Hours,
		HourlyCounts:  h.Data.HourlyCounts,
		TotalMessages: h.Data.TotalMessages,
	}, nil
}

// Start loads cached data, starts the background refresh worker and serves
// MCP on stdio until ctx is done.
func (s *Server) Start(ctx context.Context) error {
	st := s.ctrl.Activate(ctx)
	s.log.Info(ctx, "mcp server starting", "entities", st.Snapshot.Len(), "source", st.Source)

	if s.worker != nil {
		if err := s.worker.Start(ctx); err != nil {
			return fmt.Errorf("start sync worker: %w", err)
		}
	}

	transport := &mcp.StdioTransport{}
	return s.mcpServer.Run(ctx, transport)
}

// Close stops the background worker.
func (s *Server) Close() error {
	if s.worker != nil {
		s.worker.Stop()
	}
	return nil
}
