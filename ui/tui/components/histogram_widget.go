package components

import (
	"fmt"

	"orphanfinder/ui/tui/styles"

	"github.com/NimbleMarkets/ntcharts/barchart"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// HistogramWidget draws the hourly message counts of one entity.
type HistogramWidget struct {
	Chart  barchart.Model
	Counts []int
	Title  string
	Width  int
	Height int
}

func NewHistogramWidget(width, height int) *HistogramWidget {
	return &HistogramWidget{
		Chart:  barchart.New(width, height),
		Width:  width,
		Height: height,
	}
}

func (h *HistogramWidget) Init() tea.Cmd {
	return nil
}

func (h *HistogramWidget) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	return h, nil
}

// Set replaces the plotted counts.
func (h *HistogramWidget) Set(title string, counts []int) {
	h.Title = title
	h.Counts = counts
}

func (h *HistogramWidget) Resize(w, hgt int) {
	h.Width = w
	h.Height = hgt
	h.Chart.Resize(w, hgt)
}

// Buckets folds counts into at most n bars, summing neighbouring hours.
func Buckets(counts []int, n int) []int {
	if n <= 0 || len(counts) <= n {
		return counts
	}
	size := (len(counts) + n - 1) / n
	out := make([]int, 0, n)
	for i := 0; i < len(counts); i += size {
		sum := 0
		for _, c := range counts[i:min(i+size, len(counts))] {
			sum += c
		}
		out = append(out, sum)
	}
	return out
}

func (h *HistogramWidget) View() string {
	h.Chart.Clear()

	bar := lipgloss.NewStyle().Foreground(styles.Highlight)
	bars := Buckets(h.Counts, h.Width)
	data := make([]barchart.BarData, 0, len(bars))
	for i, c := range bars {
		data = append(data, barchart.BarData{
			Label: "",
			Values: []barchart.BarValue{
				{Name: fmt.Sprintf("%d", i), Value: float64(c), Style: bar},
			},
		})
	}
	h.Chart.PushAll(data)
	h.Chart.Draw()

	return styles.CardStyle.Render(
		lipgloss.JoinVertical(lipgloss.Left,
			lipgloss.NewStyle().Bold(true).Render(h.Title),
			h.Chart.View(),
		),
	)
}
