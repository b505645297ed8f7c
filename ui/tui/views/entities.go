package views

import (
	"fmt"
	"strings"

	"orphanfinder/internal/format"
	"orphanfinder/internal/model"
	"orphanfinder/internal/query"
	"orphanfinder/ui/tui/state"
	"orphanfinder/ui/tui/styles"

	"github.com/charmbracelet/lipgloss"
	zone "github.com/lrstanley/bubblezone"
)

// Column is one entity table column.
type Column struct {
	Key   string
	Title string
	Width int
}

// TableColumns are the sortable columns in display order.
var TableColumns = []Column{
	{query.ColumnEntityID, "Entity", 40},
	{query.ColumnRegistryStatus, "Registry", 16},
	{query.ColumnStateStatus, "State", 12},
	{query.ColumnStatesCount, "States", 10},
	{query.ColumnStatsShortCount, "Short", 9},
	{query.ColumnStatsLongCount, "Long", 9},
	{query.ColumnUpdateInterval, "Interval", 10},
	{query.ColumnLastStateUpdate, "Last state", 20},
}

// HeaderZone is the bubblezone id of a column header.
func HeaderZone(column string) string {
	return "col_" + column
}

// RowZone is the bubblezone id of the i-th visible row.
func RowZone(i int) string {
	return fmt.Sprintf("row_%d", i)
}

type EntitiesView struct{}

func (v EntitiesView) Render(s state.AppState, props ViewProps) string {
	view := s.Panel.View
	q := s.Panel.Query

	title := fmt.Sprintf("Entity Browser • %d of %d", view.Len(), s.Panel.Snapshot.Len())
	header := lipgloss.JoinHorizontal(lipgloss.Left,
		props.SpinnerView,
		styles.TitleStyle.Render(title),
		fmt.Sprintf(" Selected: %d (deleted %d, disabled %d)", s.Panel.Selected, s.Panel.Breakdown.Deleted, s.Panel.Breakdown.Disabled),
	)

	parts := []string{header}
	if b := RenderBanners(s, props); b != "" {
		parts = append(parts, b)
	}
	parts = append(parts,
		lipgloss.JoinHorizontal(lipgloss.Left, props.SearchView, "  ", renderFilters(q)),
		renderHeader(q),
	)

	if view.Len() == 0 {
		parts = append(parts, lipgloss.NewStyle().Foreground(styles.Subtle).Padding(1, 2).Render("No entities match."))
	} else {
		end := min(props.RowOffset+props.VisibleRows, view.Len())
		for i := props.RowOffset; i < end; i++ {
			parts = append(parts, zone.Mark(RowZone(i), renderRow(view.Records[i], s.Selected[view.Records[i].EntityID], i, props)))
		}
	}

	if props.ChartView != "" {
		parts = append(parts, props.ChartView)
	}

	parts = append(parts, styles.HelpStyle.Render(
		"[/] Search • [space] Select • [a/A] Select/clear all • [1-8] Sort • [f] Category • [c] Clear filters • [g] SQL • [h] Hours • [b] Back"))

	return zone.Scan(lipgloss.JoinVertical(lipgloss.Left, parts...))
}

func renderFilters(q query.State) string {
	var active []string
	add := func(name, v string) {
		if v != "" {
			active = append(active, name+"="+v)
		}
	}
	add("basic", string(q.Basic))
	add("registry", string(q.Registry))
	add("state", string(q.State))
	add("advanced", string(q.Advanced))
	add("states", string(q.States))
	add("statistics", string(q.Statistics))
	if len(active) == 0 {
		return lipgloss.NewStyle().Foreground(styles.Subtle).Render("no filters")
	}
	return lipgloss.NewStyle().Foreground(BrandColor).Render(strings.Join(active, " • "))
}

func renderHeader(q query.State) string {
	cells := []string{"    "}
	for _, c := range TableColumns {
		title := c.Title
		for i, k := range q.Sort {
			if k.Column != c.Key {
				continue
			}
			arrow := "↑"
			if k.Direction == query.Desc {
				arrow = "↓"
			}
			if i > 0 {
				arrow += fmt.Sprint(i + 1)
			}
			title += " " + arrow
		}
		cells = append(cells, zone.Mark(HeaderZone(c.Key), styles.HeaderCellStyle.Width(c.Width).Render(fit(title, c.Width))))
	}
	return lipgloss.JoinHorizontal(lipgloss.Left, cells...)
}

func renderRow(e *model.EntityRecord, selected bool, i int, props ViewProps) string {
	mark := "    "
	if e.Eligible() {
		mark = "[ ] "
		if selected {
			mark = "[x] "
		}
	}

	interval := ""
	if e.UpdateIntervalSeconds != nil {
		interval = format.Interval(*e.UpdateIntervalSeconds)
	}
	last := ""
	if e.LastStateUpdate != nil {
		last = format.Date(e.LastStateUpdate.Time)
	}

	values := []string{
		e.EntityID,
		string(e.RegistryStatus),
		string(e.StateStatus),
		format.Number(e.StatesCount),
		format.Number(e.StatsShortCount),
		format.Number(e.StatsLongCount),
		interval,
		last,
	}

	var b strings.Builder
	b.WriteString(mark)
	for j, c := range TableColumns {
		b.WriteString(lipgloss.NewStyle().Width(c.Width).Render(fit(values[j], c.Width)))
	}
	line := b.String()

	// The highlight follows the animated cursor so it glides between rows.
	if int(props.AnimRow+0.5) == i {
		return styles.CursorRowStyle.Render(line)
	}
	if e.IsDeleted() {
		return lipgloss.NewStyle().Foreground(styles.Danger).Render(line)
	}
	if e.IsDisabledWithData() {
		return lipgloss.NewStyle().Foreground(styles.Warning).Render(line)
	}
	return line
}

// fit truncates s to width cells, keeping one cell of padding.
func fit(s string, width int) string {
	if width <= 1 {
		return ""
	}
	r := []rune(s)
	if len(r) < width {
		return s
	}
	return string(r[:width-2]) + "…"
}
