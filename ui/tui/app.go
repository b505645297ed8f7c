package tui

import (
	"context"
	"errors"
	"fmt"
	"time"

	"orphanfinder/internal/api"
	"orphanfinder/internal/config"
	"orphanfinder/internal/engine"
	"orphanfinder/internal/model"
	"orphanfinder/internal/output"
	"orphanfinder/internal/panel"
	"orphanfinder/internal/query"
	"orphanfinder/ui/tui/components"
	"orphanfinder/ui/tui/state"
	"orphanfinder/ui/tui/views"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/harmonica"
	"github.com/charmbracelet/lipgloss"
	zone "github.com/lrstanley/bubblezone"
)

const (
	menuRefresh   = 3
	tableChrome   = 10
	chartHeight   = 6
	minTableRows  = 5
	defaultRowsUI = 20
)

var histogramWindows = []int{24, 48, 168}

var basicCycle = []query.BasicFilter{
	query.BasicNone,
	query.BasicInRegistry,
	query.BasicInState,
	query.BasicDeleted,
	query.BasicNumericSensorsNoStats,
}

// MainModel is the Bubble Tea Model acting as the Controller
type MainModel struct {
	ctx       context.Context
	ctrl      *panel.Controller
	cfg       config.UIConfig
	state     state.AppState
	spinner   spinner.Model
	progress  progress.Model
	search    textinput.Model
	sqlView   viewport.Model
	histogram *components.HistogramWidget

	menuCursor int
	animCursor float64
	velocity   float64 // Physics velocity
	spring     harmonica.Spring

	rowCursor   int
	rowOffset   int
	animRow     float64
	rowVelocity float64

	searchSeq      int
	progressCh     chan panel.Progress
	bulkCh         chan [2]int
	histEntity     string
	histogramHours int

	mouseX   int
	mouseY   int
	quitting bool
	width    int
	height   int
}

// Messages
type AnimateMsg time.Time

type ActivatedMsg struct {
	State panel.State
}

type RefreshProgressMsg struct {
	Progress panel.Progress
	ch       chan panel.Progress
}

type RefreshDoneMsg struct {
	State panel.State
	Err   error
}

type RecoveredMsg struct {
	OK bool
}

type searchDebounceMsg struct {
	Seq  int
	Text string
}

type HistogramMsg struct {
	Histogram panel.Histogram
	Current   bool
}

type BulkProgressMsg struct {
	Done, Total int
	ch          chan [2]int
}

type SQLGeneratedMsg struct {
	Result *panel.BulkResult
	Err    error
}

func InitialModel(ctx context.Context, ctrl *panel.Controller, cfg config.UIConfig) MainModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	ti := textinput.New()
	ti.Placeholder = "search entity id"
	ti.Prompt = "/ "
	ti.CharLimit = 128
	ti.Width = 30

	if cfg.SearchDebounce <= 0 {
		cfg.SearchDebounce = 300 * time.Millisecond
	}
	hours := cfg.HistogramHours
	if !api.ValidHours(hours) {
		hours = histogramWindows[0]
	}

	// Increased frequency (12.0) for faster response and damping (0.9) to prevent overshoot
	spring := harmonica.NewSpring(harmonica.FPS(60), 12.0, 0.9)

	return MainModel{
		ctx:            ctx,
		ctrl:           ctrl,
		cfg:            cfg,
		spinner:        s,
		progress:       progress.New(progress.WithDefaultGradient(), progress.WithWidth(30)),
		search:         ti,
		sqlView:        viewport.New(80, 20),
		histogram:      components.NewHistogramWidget(60, chartHeight),
		spring:         spring,
		histogramHours: hours,
		state: state.AppState{
			Panel:       ctrl.State(),
			Selected:    map[string]bool{},
			CurrentPage: state.PageMenu,
		},
	}
}

func (m *MainModel) Init() tea.Cmd {
	zone.NewGlobal()
	return tea.Batch(
		m.spinner.Tick,
		animateCmd(),
		activateCmd(m.ctx, m.ctrl),
	)
}

// Commands
func animateCmd() tea.Cmd {
	return tea.Tick(time.Millisecond*16, func(t time.Time) tea.Msg {
		return AnimateMsg(t)
	})
}

func activateCmd(ctx context.Context, ctrl *panel.Controller) tea.Cmd {
	return func() tea.Msg {
		return ActivatedMsg{State: ctrl.Activate(ctx)}
	}
}

func recoverCmd(ctx context.Context, ctrl *panel.Controller) tea.Cmd {
	return func() tea.Msg {
		return RecoveredMsg{OK: ctrl.Recover(ctx)}
	}
}

func listenProgress(ch chan panel.Progress) tea.Cmd {
	return func() tea.Msg {
		p, ok := <-ch
		if !ok {
			return nil
		}
		return RefreshProgressMsg{Progress: p, ch: ch}
	}
}

func listenBulk(ch chan [2]int) tea.Cmd {
	return func() tea.Msg {
		p, ok := <-ch
		if !ok {
			return nil
		}
		return BulkProgressMsg{Done: p[0], Total: p[1], ch: ch}
	}
}

// refreshCmd runs the stepwise overview. Progress travels over a channel
// owned by this run; messages from an older run's channel are ignored.
func (m *MainModel) refreshCmd() tea.Cmd {
	ch := make(chan panel.Progress, api.TotalSteps+1)
	m.progressCh = ch
	m.state.Notice = ""

	ctx, ctrl := m.ctx, m.ctrl
	run := func() tea.Msg {
		st, err := ctrl.Refresh(ctx, func(p panel.Progress) {
			select {
			case ch <- p:
			default:
			}
		})
		close(ch)
		return RefreshDoneMsg{State: st, Err: err}
	}
	return tea.Batch(run, listenProgress(ch))
}

func (m *MainModel) generateCmd() tea.Cmd {
	if m.state.Generating {
		return nil
	}
	ch := make(chan [2]int, 1)
	m.bulkCh = ch
	m.state.Generating = true
	m.state.BulkDone, m.state.BulkTotal = 0, m.state.Panel.Selected
	m.state.CurrentPage = state.PageSQL

	ctx, ctrl := m.ctx, m.ctrl
	run := func() tea.Msg {
		res, err := ctrl.GenerateSQL(ctx, nil, func(done, total int) {
			select {
			case ch <- [2]int{done, total}:
			default:
			}
		})
		close(ch)
		return SQLGeneratedMsg{Result: res, Err: err}
	}
	return tea.Batch(run, listenBulk(ch))
}

// histogramCmd fetches the histogram of the highlighted row. Each request
// takes a fresh token so a slow answer for a previous row is dropped.
func (m *MainModel) histogramCmd(force bool) tea.Cmd {
	rec := m.currentRecord()
	if rec == nil {
		return nil
	}
	if !force && rec.EntityID == m.histEntity {
		return nil
	}
	m.histEntity = rec.EntityID

	token := m.ctrl.RequestHistogram()
	ctx, ctrl, id, hours := m.ctx, m.ctrl, rec.EntityID, m.histogramHours
	return func() tea.Msg {
		h, current := ctrl.FetchHistogram(ctx, token, id, hours)
		return HistogramMsg{Histogram: h, Current: current}
	}
}

func (m *MainModel) debounceCmd() tea.Cmd {
	m.searchSeq++
	seq, text := m.searchSeq, m.search.Value()
	return tea.Tick(m.cfg.SearchDebounce, func(time.Time) tea.Msg {
		return searchDebounceMsg{Seq: seq, Text: text}
	})
}

func (m *MainModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyMsg(msg)

	case AnimateMsg:
		return m.handleAnimateMsg(msg)

	case tea.WindowSizeMsg:
		return m.handleWindowSizeMsg(msg)

	case tea.FocusMsg:
		return m, recoverCmd(m.ctx, m.ctrl)

	case ActivatedMsg, RecoveredMsg:
		m.sync()
		return m, m.histogramCmd(false)

	case RefreshProgressMsg:
		if msg.ch != m.progressCh {
			return m, nil
		}
		m.sync()
		return m, listenProgress(msg.ch)

	case RefreshDoneMsg:
		return m.handleRefreshDone(msg)

	case searchDebounceMsg:
		if msg.Seq != m.searchSeq {
			return m, nil
		}
		m.ctrl.SetSearch(msg.Text)
		m.resetRows()
		m.sync()
		return m, m.histogramCmd(false)

	case HistogramMsg:
		if msg.Current {
			h := msg.Histogram
			m.state.Histogram = &h
			m.updateChart()
		}
		return m, nil

	case BulkProgressMsg:
		if msg.ch != m.bulkCh {
			return m, nil
		}
		m.state.BulkDone, m.state.BulkTotal = msg.Done, msg.Total
		return m, listenBulk(msg.ch)

	case SQLGeneratedMsg:
		return m.handleSQLGenerated(msg)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.MouseMsg:
		return m.handleMouseMsg(msg)
	}

	return m, nil
}

func (m *MainModel) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.search.Focused() {
		return m.handleSearchKey(msg)
	}

	switch {
	case key.Matches(msg, keys.Quit):
		m.quitting = true
		return m, tea.Quit
	case key.Matches(msg, keys.Refresh):
		m.sync()
		return m, m.refreshCmd()
	case key.Matches(msg, keys.Dismiss):
		m.ctrl.DismissStale()
		m.sync()
		return m, nil
	}

	switch m.state.CurrentPage {
	case state.PageMenu:
		switch {
		case key.Matches(msg, keys.Up):
			if m.menuCursor > 0 {
				m.menuCursor--
			}
		case key.Matches(msg, keys.Down):
			if m.menuCursor < len(views.MenuOptions)-1 {
				m.menuCursor++
			}
		case key.Matches(msg, keys.Enter):
			return m, m.navigateTo(m.menuCursor)
		}
		return m, nil

	case state.PageOverview:
		if key.Matches(msg, keys.Entities) {
			m.state.CurrentPage = state.PageEntities
			return m, m.histogramCmd(false)
		}
		if n, ok := digit(msg); ok {
			return m, m.applyActionIndex(n - 1)
		}

	case state.PageEntities:
		if cmd, handled := m.handleEntitiesKey(msg); handled {
			return m, cmd
		}

	case state.PageSQL:
		if !key.Matches(msg, keys.Back) {
			var cmd tea.Cmd
			m.sqlView, cmd = m.sqlView.Update(msg)
			return m, cmd
		}
	}

	if key.Matches(msg, keys.Back) {
		m.state.CurrentPage = state.PageMenu
		return m, nil
	}

	return m, nil
}

func (m *MainModel) handleSearchKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.search.Blur()
		return m, nil
	case tea.KeyEnter:
		// Apply immediately; bumping the sequence drops the pending tick.
		m.search.Blur()
		m.searchSeq++
		m.ctrl.SetSearch(m.search.Value())
		m.resetRows()
		m.sync()
		return m, m.histogramCmd(false)
	case tea.KeyCtrlC:
		m.quitting = true
		return m, tea.Quit
	}

	before := m.search.Value()
	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	if m.search.Value() == before {
		return m, cmd
	}
	return m, tea.Batch(cmd, m.debounceCmd())
}

func (m *MainModel) handleEntitiesKey(msg tea.KeyMsg) (tea.Cmd, bool) {
	switch {
	case key.Matches(msg, keys.Search):
		return m.search.Focus(), true
	case key.Matches(msg, keys.Up):
		m.moveCursor(-1)
	case key.Matches(msg, keys.Down):
		m.moveCursor(1)
	case key.Matches(msg, keys.PageUp):
		m.moveCursor(-m.visibleRows())
	case key.Matches(msg, keys.PageDown):
		m.moveCursor(m.visibleRows())
	case key.Matches(msg, keys.Toggle):
		if rec := m.currentRecord(); rec != nil {
			m.ctrl.ToggleSelection(rec.EntityID)
			m.sync()
		}
		return nil, true
	case key.Matches(msg, keys.SelectAll):
		n := m.ctrl.SelectAll()
		m.state.Notice = fmt.Sprintf("%d entities selected", n)
		m.sync()
		return nil, true
	case key.Matches(msg, keys.DeselectAll):
		m.ctrl.DeselectAll()
		m.state.Notice = ""
		m.sync()
		return nil, true
	case key.Matches(msg, keys.Category):
		m.cycleBasic()
		return m.histogramCmd(false), true
	case key.Matches(msg, keys.Clear):
		m.search.SetValue("")
		m.searchSeq++
		m.ctrl.ClearFilters()
		m.resetRows()
		m.sync()
		return m.histogramCmd(false), true
	case key.Matches(msg, keys.ClearSort):
		m.ctrl.ClearSort()
		m.sync()
		return m.histogramCmd(false), true
	case key.Matches(msg, keys.Generate):
		if m.state.Panel.Selected == 0 {
			m.state.Notice = "Select eligible entities first (space or 'a')."
			return nil, true
		}
		return m.generateCmd(), true
	case key.Matches(msg, keys.Hours):
		m.nextHours()
		return m.histogramCmd(true), true
	default:
		if n, ok := digit(msg); ok && n <= len(views.TableColumns) {
			column := views.TableColumns[n-1].Key
			if msg.Alt {
				m.ctrl.ThenBy(column)
			} else {
				m.ctrl.ClickColumn(column)
			}
			m.sync()
			return m.histogramCmd(false), true
		}
		return nil, false
	}
	return m.histogramCmd(false), true
}

func digit(msg tea.KeyMsg) (int, bool) {
	if msg.Type != tea.KeyRunes || len(msg.Runes) != 1 {
		return 0, false
	}
	r := msg.Runes[0]
	if r < '1' || r > '9' {
		return 0, false
	}
	return int(r - '0'), true
}

func (m *MainModel) navigateTo(cursor int) tea.Cmd {
	switch cursor {
	case 0:
		m.state.CurrentPage = state.PageOverview
	case 1:
		m.state.CurrentPage = state.PageEntities
		return m.histogramCmd(false)
	case 2:
		m.state.CurrentPage = state.PageSQL
	case menuRefresh:
		m.state.CurrentPage = state.PageOverview
		return m.refreshCmd()
	}
	return nil
}

// applyActionIndex applies the i-th actionable health result and opens the
// entity browser on it.
func (m *MainModel) applyActionIndex(i int) tea.Cmd {
	var actions []string
	for _, r := range m.state.Results {
		if r.Actionable() {
			actions = append(actions, r.Action)
		}
	}
	if i < 0 || i >= len(actions) {
		return nil
	}
	return m.applyAction(actions[i])
}

func (m *MainModel) applyAction(action string) tea.Cmd {
	if _, ok := m.ctrl.ApplyHealthAction(action); !ok {
		return nil
	}
	m.resetRows()
	m.sync()
	m.state.CurrentPage = state.PageEntities
	return m.histogramCmd(false)
}

func (m *MainModel) cycleBasic() {
	q := m.ctrl.State().Query
	next := basicCycle[0]
	for i, b := range basicCycle {
		if b == q.Basic {
			next = basicCycle[(i+1)%len(basicCycle)]
			break
		}
	}
	m.ctrl.SetQuery(q.Set(query.GroupBasic, string(next)))
	m.resetRows()
	m.sync()
}

func (m *MainModel) nextHours() {
	for i, h := range histogramWindows {
		if h == m.histogramHours {
			m.histogramHours = histogramWindows[(i+1)%len(histogramWindows)]
			return
		}
	}
	m.histogramHours = histogramWindows[0]
}

func (m *MainModel) handleAnimateMsg(msg AnimateMsg) (tea.Model, tea.Cmd) {
	m.animCursor, m.velocity = m.spring.Update(m.animCursor, float64(m.menuCursor), m.velocity)
	m.animRow, m.rowVelocity = m.spring.Update(m.animRow, float64(m.rowCursor), m.rowVelocity)
	return m, animateCmd()
}

func (m *MainModel) handleWindowSizeMsg(msg tea.WindowSizeMsg) (tea.Model, tea.Cmd) {
	m.width = msg.Width
	m.height = msg.Height
	if w := msg.Width - 8; w > 10 {
		m.histogram.Resize(w, chartHeight)
		m.updateChart()
	}
	m.sqlView.Width = max(msg.Width-6, 10)
	m.sqlView.Height = max(msg.Height-10, 3)
	m.clampRows()
	return m, nil
}

func (m *MainModel) handleRefreshDone(msg RefreshDoneMsg) (tea.Model, tea.Cmd) {
	if errors.Is(msg.Err, panel.ErrSuperseded) {
		return m, nil
	}
	m.progressCh = nil
	m.sync()
	if msg.Err == nil {
		m.state.Notice = fmt.Sprintf("Loaded %d entities", msg.State.Snapshot.Len())
	}
	m.histEntity = ""
	return m, m.histogramCmd(false)
}

func (m *MainModel) handleSQLGenerated(msg SQLGeneratedMsg) (tea.Model, tea.Cmd) {
	m.bulkCh = nil
	m.state.Generating = false
	m.state.Bulk = msg.Result
	m.state.BulkErr = msg.Err
	if msg.Result != nil {
		m.sqlView.SetContent(msg.Result.Combined())
		m.sqlView.GotoTop()
	}
	m.sync()
	return m, nil
}

func (m *MainModel) handleMouseMsg(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	m.mouseX = msg.X
	m.mouseY = msg.Y

	if m.state.CurrentPage == state.PageEntities {
		switch msg.Button {
		case tea.MouseButtonWheelUp:
			m.moveCursor(-1)
			return m, m.histogramCmd(false)
		case tea.MouseButtonWheelDown:
			m.moveCursor(1)
			return m, m.histogramCmd(false)
		}
	}

	if msg.Action != tea.MouseActionRelease {
		return m, nil
	}

	switch m.state.CurrentPage {
	case state.PageMenu:
		for i := range views.MenuOptions {
			if zone.Get(views.MenuZone(i)).InBounds(msg) {
				m.menuCursor = i
				return m, m.navigateTo(i)
			}
		}

	case state.PageOverview:
		for _, r := range m.state.Results {
			if r.Actionable() && zone.Get(views.ActionZone(r.Action)).InBounds(msg) {
				return m, m.applyAction(r.Action)
			}
		}

	case state.PageEntities:
		for _, c := range views.TableColumns {
			if zone.Get(views.HeaderZone(c.Key)).InBounds(msg) {
				if msg.Shift {
					m.ctrl.ThenBy(c.Key)
				} else {
					m.ctrl.ClickColumn(c.Key)
				}
				m.sync()
				return m, m.histogramCmd(false)
			}
		}
		end := min(m.rowOffset+m.visibleRows(), m.state.Panel.View.Len())
		for i := m.rowOffset; i < end; i++ {
			if zone.Get(views.RowZone(i)).InBounds(msg) {
				m.rowCursor = i
				if rec := m.currentRecord(); rec != nil {
					m.ctrl.ToggleSelection(rec.EntityID)
				}
				m.sync()
				return m, m.histogramCmd(false)
			}
		}
	}
	return m, nil
}

// sync pulls the controller state into the view projection.
func (m *MainModel) sync() {
	st := m.ctrl.State()
	m.state.Panel = st
	m.state.Results = engine.Evaluate(st.Snapshot, m.ctrl.Flagger())
	m.state.Dashboard = output.BuildDashboard(m.state.Results, st.Snapshot, output.Meta{
		Source:   string(st.Source),
		Age:      st.Age,
		AgeKnown: st.AgeKnown,
	})

	clear(m.state.Selected)
	for _, id := range m.ctrl.SelectedIDs() {
		m.state.Selected[id] = true
	}
	m.state.LastUpdate = time.Now()
	m.clampRows()
}

func (m *MainModel) currentRecord() *model.EntityRecord {
	v := m.state.Panel.View
	if v.Len() == 0 || m.rowCursor >= v.Len() {
		return nil
	}
	return v.Records[m.rowCursor]
}

func (m *MainModel) visibleRows() int {
	if m.height == 0 {
		return defaultRowsUI
	}
	return max(m.height-tableChrome-chartHeight-4, minTableRows)
}

func (m *MainModel) moveCursor(delta int) {
	m.rowCursor += delta
	m.clampRows()
}

func (m *MainModel) resetRows() {
	m.rowCursor, m.rowOffset = 0, 0
	m.animRow, m.rowVelocity = 0, 0
}

// clampRows keeps the cursor inside the view and the cursor row visible.
func (m *MainModel) clampRows() {
	n := m.state.Panel.View.Len()
	m.rowCursor = max(min(m.rowCursor, n-1), 0)

	rows := m.visibleRows()
	if m.rowCursor < m.rowOffset {
		m.rowOffset = m.rowCursor
	}
	if m.rowCursor >= m.rowOffset+rows {
		m.rowOffset = m.rowCursor - rows + 1
	}
	m.rowOffset = max(min(m.rowOffset, n-rows), 0)
}

func (m *MainModel) updateChart() {
	h := m.state.Histogram
	if h == nil {
		return
	}
	switch {
	case h.Err != nil:
		m.histogram.Set(fmt.Sprintf("%s • %s", h.EntityID, api.UserMessage(h.Err)), nil)
	case h.Data != nil:
		m.histogram.Set(fmt.Sprintf("%s • %d messages in %dh", h.EntityID, h.Data.TotalMessages, h.Hours), h.Data.HourlyCounts)
	}
}

func (m *MainModel) View() string {
	if m.quitting {
		return "Bye!\n"
	}

	progressView := m.progress.ViewAs(m.state.Panel.Progress.Fraction())

	switch m.state.CurrentPage {
	case state.PageMenu:
		return views.RenderMenu(m.state, m.width, m.height, m.menuCursor, m.animCursor, m.mouseX, m.mouseY, m.spinner.View(), progressView)
	case state.PageOverview:
		return views.RenderDashboard(m.state, m.spinner.View(), progressView)
	case state.PageEntities:
		chart := ""
		if m.state.Histogram != nil {
			chart = m.histogram.View()
		}
		return views.RenderEntities(m.state, views.ViewProps{
			Width:        m.width,
			Height:       m.height,
			MouseX:       m.mouseX,
			MouseY:       m.mouseY,
			SpinnerView:  m.spinner.View(),
			ProgressView: progressView,
			SearchView:   m.search.View(),
			ChartView:    chart,
			RowCursor:    m.rowCursor,
			RowOffset:    m.rowOffset,
			VisibleRows:  m.visibleRows(),
			AnimRow:      m.animRow,
		})
	case state.PageSQL:
		return views.RenderSQL(m.state, m.width, m.height, m.spinner.View(), m.sqlView.View())
	default:
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center,
			lipgloss.NewStyle().Bold(true).Render("Unknown page\n\nPress 'b' to go back"),
		)
	}
}

// Start runs the panel until the operator quits or ctx is cancelled.
func Start(ctx context.Context, ctrl *panel.Controller, cfg config.UIConfig) error {
	m := InitialModel(ctx, ctrl, cfg)
	p := tea.NewProgram(
		&m,
		tea.WithContext(ctx),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
		tea.WithReportFocus(),
	)
	_, err := p.Run()
	return err
}
