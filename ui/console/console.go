package console

import (
	"fmt"
	"io"
	"strings"

	"orphanfinder/internal/format"
	"orphanfinder/internal/output"
)

const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
)

const labelWidth = 24

// Print renders the dashboard view to the writer in a compact format.
func Print(w io.Writer, view output.DashboardView) {
	fmt.Fprintf(w, "%s%s %s%s\n", colorCyan, "■", "STATISTICS ORPHAN REPORT", colorReset)

	for _, sec := range view.Sections {
		if len(sec.Items) == 0 {
			continue
		}
		fmt.Fprintf(w, "%s%s%s\n", colorCyan, "─ "+sec.Title, colorReset)

		for _, it := range sec.Items {
			if sec.ID == output.SectionHealth {
				printAction(w, it)
				continue
			}

			label := it.Label
			if len(label) > labelWidth-2 {
				label = label[:labelWidth-5] + "..."
			}
			dots := strings.Repeat("·", labelWidth-len(label))

			valStr := it.Display
			if valStr == "" {
				valStr = it.Note
			} else if it.Note != "" {
				valStr += " (" + it.Note + ")"
			}

			// Format: "  Label·········· Value"
			fmt.Fprintf(w, "  %s%s %s\n", label, colorCyan+dots+colorReset, valStr)
		}
	}

	// Single-line Summary
	dbStr := ""
	if view.DatabaseBytes > 0 {
		dbStr = " | Database: " + format.Bytes(view.DatabaseBytes)
	}
	srcStr := ""
	if view.Source != "" {
		srcStr = fmt.Sprintf(" | Source: %s (%s)", view.Source, view.Age)
	}
	fmt.Fprintf(w, "%s─ Summary%s: Entities: %s%s%s\n\n", colorCyan, colorReset, format.Number(int64(view.TotalEntities)), dbStr, srcStr)
}

// printAction writes one health finding: marker, text and the preset hint.
func printAction(w io.Writer, it output.Item) {
	color := colorFor(it.Status)
	fmt.Fprintf(w, "  %s%s%s %s", color, marker(it.Status), colorReset, it.Display)
	if it.Action != "" {
		fmt.Fprintf(w, " %s[%s]%s", colorCyan, it.Action, colorReset)
	}
	fmt.Fprintln(w)
}

func marker(status string) string {
	switch status {
	case "WARN":
		return "!"
	case "CRIT":
		return "X"
	default:
		return "✓"
	}
}

func colorFor(status string) string {
	switch status {
	case "WARN":
		return colorYellow
	case "CRIT":
		return colorRed
	default:
		return colorGreen
	}
}
