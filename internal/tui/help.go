package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

type binding struct {
	key, desc string
}

var (
	shortHelp = []binding{
		{"←↑↓→", "move"}, {"e", "edit"}, {"+/-", "rows"}, {"m", "mode"}, {"?", "help"}, {"q", "quit"},
	}
	editHelp = []binding{
		{"0-9 . -", "type"}, {"enter", "save"}, {"esc", "cancel"},
	}
	fullHelp = []binding{
		{"←↑↓→ hjkl", "move the selection"},
		{"t", "jump to today"},
		{"e / enter", "edit the selected day"},
		{"x", "clear the selected day"},
		{"+ / -", "more / fewer rows per column"},
		{"m", "cycle avg, median, max, min"},
		{"b", "line or bar chart"},
		{"g H o D", "graph, heatmap, month lines, dark mode"},
		{"[ / ]", "heatmap hue"},
		{"c", "heatmap dataset"},
		{"1-9", "show / hide dataset"},
		{"T", "next theme"},
		{"r / R", "reload data / reset settings"},
		{"q", "quit"},
	}
)

// helpLine is the one-line key hint shown in the footer.
func helpLine(editing bool) string {
	list := shortHelp
	if editing {
		list = editHelp
	}
	parts := make([]string, 0, len(list))
	for _, b := range list {
		parts = append(parts, helpKeyStyle.Render(b.key)+" "+helpTextStyle.Render(b.desc))
	}
	return strings.Join(parts, dimStyle.Render(" · "))
}

// renderHelp lists every binding in height lines, replacing the chart.
func renderHelp(height int) string {
	if height <= 0 {
		return ""
	}
	keyCol := lipgloss.NewStyle().Width(12)
	lines := make([]string, 0, height)
	for _, b := range fullHelp {
		if len(lines) == height {
			break
		}
		lines = append(lines, "  "+helpKeyStyle.Inherit(keyCol).Render(b.key)+" "+helpTextStyle.Render(b.desc))
	}
	for len(lines) < height {
		lines = append(lines, "")
	}
	return strings.Join(lines, "\n")
}
