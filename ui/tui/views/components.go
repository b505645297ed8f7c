package views

import (
	"orphanfinder/internal/api"
	"orphanfinder/internal/format"
	"orphanfinder/ui/tui/state"
	"orphanfinder/ui/tui/styles"

	"github.com/charmbracelet/lipgloss"
)

func ColorForStatus(status string) lipgloss.Style {
	sStyle := styles.StatusStyle
	if status == "WARN" {
		return sStyle.Foreground(lipgloss.Color("220")) // Gold
	} else if status == "CRIT" {
		return sStyle.Foreground(lipgloss.Color("196")) // Red
	}
	return sStyle.Foreground(lipgloss.Color("46")) // Green
}

// RenderBanners renders the loading, stale and error notices shared by every
// data page. It returns "" when there is nothing to say.
func RenderBanners(s state.AppState, props ViewProps) string {
	var parts []string

	if s.Refreshing() {
		p := s.Panel.Progress
		label := p.Label
		if label == "" {
			label = "Starting"
		}
		parts = append(parts, lipgloss.JoinHorizontal(lipgloss.Left,
			props.SpinnerView, " ", props.ProgressView, " ",
			lipgloss.NewStyle().Foreground(styles.Subtle).Render(label),
		))
	}

	if s.Panel.StaleBanner {
		parts = append(parts, styles.BannerStyle.Render(
			"Cached data is "+format.Age(s.Panel.Age, s.Panel.AgeKnown)+". Press 'r' to refresh or 'x' to dismiss."))
	}

	if s.Panel.Err != nil && !s.Refreshing() {
		msg := s.Panel.ErrMessage
		if msg == "" {
			msg = api.UserMessage(s.Panel.Err)
		}
		parts = append(parts, styles.ErrorStyle.Render(msg+"\nPress 'r' to retry."))
	}

	if s.Notice != "" {
		parts = append(parts, lipgloss.NewStyle().Foreground(styles.Special).Render(s.Notice))
	}

	if len(parts) == 0 {
		return ""
	}
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}
