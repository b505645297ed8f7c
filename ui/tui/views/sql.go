package views

import (
	"fmt"

	"orphanfinder/internal/api"
	"orphanfinder/internal/format"
	"orphanfinder/ui/tui/state"
	"orphanfinder/ui/tui/styles"

	"github.com/charmbracelet/lipgloss"
)

type SQLView struct{}

func (v SQLView) Render(s state.AppState, props ViewProps) string {
	header := MenuHeaderStyle.Width(props.Width).Render("Generated Delete SQL")

	var status string
	switch {
	case s.Generating:
		status = fmt.Sprintf("%s Generating %d/%d…", props.SpinnerView, s.BulkDone, s.BulkTotal)
	case s.BulkErr != nil:
		status = styles.ErrorStyle.Render(api.UserMessage(s.BulkErr))
	case s.Bulk == nil:
		status = lipgloss.NewStyle().Foreground(styles.Subtle).Render("Select entities in the browser and press 'g'.")
	default:
		r := s.Bulk
		status = ColorForStatus(bulkColor(string(r.Status))).Render(string(r.Status)) +
			fmt.Sprintf(" • %d ok • %d failed • %s MB saved", r.SuccessCount, r.ErrorCount, format.MB(r.TotalStorageSaved))
	}

	box := lipgloss.NewStyle().
		Padding(0, 1).
		Render(props.SQLView)

	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		lipgloss.NewStyle().Padding(1, 2).Render(status),
		box,
		lipgloss.NewStyle().PaddingLeft(2).Foreground(lipgloss.Color("#555")).Render("↑/↓ scroll • Press 'b' to go back"),
	)
}

func bulkColor(status string) string {
	switch status {
	case "partial":
		return "WARN"
	case "error":
		return "CRIT"
	}
	return "OK"
}
