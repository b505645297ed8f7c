package views

import (
	"fmt"
	"math"

	"orphanfinder/internal/format"
	"orphanfinder/ui/tui/state"

	"github.com/charmbracelet/lipgloss"
	zone "github.com/lrstanley/bubblezone"
)

type menuEntry struct {
	title    string
	describe func(s state.AppState) string
}

var menuEntries = []menuEntry{
	{"Storage Overview", func(s state.AppState) string {
		n := 0
		for _, r := range s.Results {
			if r.Actionable() {
				n++
			}
		}
		if s.Panel.Snapshot == nil {
			return "health findings and database size"
		}
		return fmt.Sprintf("%d finding(s) need attention", n)
	}},
	{"Entity Browser", func(s state.AppState) string {
		if s.Panel.Snapshot == nil {
			return "filter and select entities"
		}
		return fmt.Sprintf("%s shown, %d selected", format.Number(int64(s.Panel.View.Len())), s.Panel.Selected)
	}},
	{"Generated SQL", func(s state.AppState) string {
		switch {
		case s.Generating:
			return fmt.Sprintf("generating %d/%d", s.BulkDone, s.BulkTotal)
		case s.Bulk != nil:
			return fmt.Sprintf("%d statement(s), %s saved", s.Bulk.SuccessCount, format.Bytes(s.Bulk.TotalStorageSaved))
		}
		return "delete statements for the selection"
	}},
	{"Refresh From Backend", func(s state.AppState) string {
		if s.Refreshing() {
			return s.Panel.Progress.Label
		}
		if s.Panel.AgeKnown {
			return "loaded " + format.Age(s.Panel.Age, true)
		}
		return "run the stepwise overview"
	}},
}

// MenuOptions are the entry titles, in cursor order.
var MenuOptions = func() []string {
	out := make([]string, len(menuEntries))
	for i, e := range menuEntries {
		out[i] = e.title
	}
	return out
}()

// MenuZone is the bubblezone id of menu entry i.
func MenuZone(i int) string {
	return fmt.Sprintf("menu_%d", i)
}

type MenuView struct{}

func (v MenuView) Render(s state.AppState, props ViewProps) string {
	header := MenuHeaderStyle.Width(props.Width).Render("ORPHAN FINDER // RECORDER STORAGE")

	const listTop, entryHeight = 6, 4
	items := make([]string, 0, len(menuEntries))
	for i, entry := range menuEntries {
		// Spring cursor: strength falls off linearly within one entry.
		strength := math.Max(0, 1-math.Abs(float64(i)-props.AnimCursor))

		hovered := props.MouseY >= listTop+i*entryHeight && props.MouseY < listTop+(i+1)*entryHeight
		border := BaseColor
		switch {
		case strength > 0.1 || i == props.MenuCursor:
			border = BrandColor
		case hovered:
			border = lipgloss.Color("#aaa")
		}

		box := lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(border).
			Padding(0, 1).
			MarginLeft(2 + int(strength*2)).
			Width(46)

		title := lipgloss.NewStyle().Foreground(lipgloss.Color("#AAA"))
		if i == props.MenuCursor {
			title = title.Bold(true).Foreground(lipgloss.Color("#FFF"))
		}

		body := lipgloss.JoinVertical(lipgloss.Left,
			title.Render(fmt.Sprintf("%02d. %s", i+1, entry.title)),
			MenuHintStyle.Render(entry.describe(s)),
		)
		items = append(items, zone.Mark(MenuZone(i), box.Render(body)))
	}

	subtitle := "No overview loaded yet. Refresh to scan the recorder database."
	if n := s.Panel.Snapshot.Len(); n > 0 {
		subtitle = fmt.Sprintf("%s entities loaded from %s.", format.Number(int64(n)), s.Panel.Source)
	}

	menu := MenuBoxStyle.Render(lipgloss.JoinVertical(lipgloss.Left,
		lipgloss.NewStyle().Bold(true).PaddingLeft(2).Foreground(BrandColor).Render("STATISTICS ORPHAN FINDER"),
		CopyStyle.Render(subtitle),
		lipgloss.JoinVertical(lipgloss.Left, items...),
	))

	footer := lipgloss.NewStyle().PaddingLeft(2).Foreground(lipgloss.Color("#333")).
		Render("\n[↑/↓] Navigate • [Enter] Select • [r] Refresh • [x] Dismiss • [q] Quit")

	parts := []string{header}
	if b := RenderBanners(s, props); b != "" {
		parts = append(parts, lipgloss.NewStyle().PaddingLeft(2).Render(b))
	}
	parts = append(parts, menu, footer)

	return zone.Scan(lipgloss.JoinVertical(lipgloss.Left, parts...))
}

var (
	BrandColor = lipgloss.Color("#f27b24")
	BaseColor  = lipgloss.Color("#444")

	MenuHeaderStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(BrandColor).
			Padding(1, 2)

	MenuBoxStyle = lipgloss.NewStyle().
			Padding(1, 0).
			MarginTop(1)

	MenuHintStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666"))

	CopyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888")).
			Italic(true).
			MarginBottom(1).
			PaddingLeft(2)
)
