package views

import (
	"fmt"
	"strings"

	"orphanfinder/internal/format"
	"orphanfinder/internal/output"
	"orphanfinder/ui/tui/state"
	"orphanfinder/ui/tui/styles"

	"github.com/charmbracelet/lipgloss"
	zone "github.com/lrstanley/bubblezone"
)

// ActionZone is the bubblezone id of a clickable health action.
func ActionZone(action string) string {
	return "action_" + action
}

type DashboardView struct{}

func (v DashboardView) Render(s state.AppState, props ViewProps) string {
	dashboard := s.Dashboard

	dbStr := ""
	if s.Panel.DatabaseSize != nil {
		dbStr = " • DB " + format.Bytes(s.Panel.DatabaseSize.TotalBytes())
	}
	header := lipgloss.JoinHorizontal(lipgloss.Left,
		props.SpinnerView,
		styles.TitleStyle.Render("Storage Overview"),
		fmt.Sprintf(" Source: %s • Updated %s%s", s.Panel.Source, dashboard.Age, dbStr),
	)

	parts := []string{header}
	if b := RenderBanners(s, props); b != "" {
		parts = append(parts, b)
	}

	if s.Panel.Snapshot.Len() == 0 {
		parts = append(parts,
			styles.CardStyle.Render("No overview loaded. Press 'r' to scan the recorder database."),
			lipgloss.NewStyle().Foreground(styles.Subtle).Render("Press 'b' to go back"),
		)
		return zone.Scan(lipgloss.JoinVertical(lipgloss.Left, parts...))
	}

	var healthCol string
	if sec := dashboard.SectionByID(output.SectionHealth); sec != nil {
		var lines []string
		for _, item := range sec.Items {
			line := ColorForStatus(item.Status).Render(fmt.Sprintf("[%s]", item.Status)) + " " + item.Display
			if item.Action != "" {
				line += " " + lipgloss.NewStyle().Foreground(BrandColor).Render("› "+item.Note)
				line = zone.Mark(ActionZone(item.Action), line)
			}
			lines = append(lines, line)
		}
		healthCol = styles.CardStyle.Render(lipgloss.JoinVertical(lipgloss.Left,
			lipgloss.NewStyle().Bold(true).Render(sec.Title),
			strings.Join(lines, "\n"),
		))
	}

	renderSection := func(sec *output.Section) string {
		if sec == nil || len(sec.Items) == 0 {
			return ""
		}
		content := ""
		for _, item := range sec.Items {
			val := item.Display
			if item.Note != "" {
				if val != "" {
					val += "  "
				}
				val += lipgloss.NewStyle().Foreground(lipgloss.Color("#888")).Render(item.Note)
			}
			content += fmt.Sprintf("%-24s : %s\n", item.Label, val)
		}
		return styles.CardStyle.Render(lipgloss.JoinVertical(lipgloss.Left,
			lipgloss.NewStyle().Bold(true).Render(sec.Title),
			strings.TrimRight(content, "\n"),
		))
	}

	row := lipgloss.JoinHorizontal(lipgloss.Top,
		renderSection(dashboard.SectionByID(output.SectionRegistry)),
		renderSection(dashboard.SectionByID(output.SectionStorage)),
		renderSection(dashboard.SectionByID(output.SectionDatabase)),
	)

	parts = append(parts,
		healthCol,
		row,
		lipgloss.NewStyle().Foreground(styles.Subtle).Render("[Click/1-5] Apply action • [E] Entities • [R] Refresh • [B] Back • [Q] Quit"),
	)
	return zone.Scan(lipgloss.JoinVertical(lipgloss.Left, parts...))
}
