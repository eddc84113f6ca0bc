package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/janekbaraniewski/calgrid/internal/core"
)

// ─── Color Palette (replaced by applyTheme) ─────────────────────────────────

var (
	colorBase     lipgloss.Color // background
	colorSurface0 lipgloss.Color // bars
	colorSurface1 lipgloss.Color // padding cells
	colorText     lipgloss.Color
	colorSubtext  lipgloss.Color
	colorDim      lipgloss.Color // axes, muted labels
	colorAccent   lipgloss.Color
	colorBlue     lipgloss.Color
	colorGreen    lipgloss.Color
	colorYellow   lipgloss.Color
	colorRed      lipgloss.Color // Sundays, errors
)

// ─── Reusable Styles ────────────────────────────────────────────────────────

var (
	titleBarStyle   lipgloss.Style
	brandStyle      lipgloss.Style
	dimStyle        lipgloss.Style
	labelStyle      lipgloss.Style
	axisStyle       lipgloss.Style
	monthLabelStyle lipgloss.Style
	helpKeyStyle    lipgloss.Style
	helpTextStyle   lipgloss.Style
	valueStyle      lipgloss.Style
	editStyle       lipgloss.Style
	padCellStyle    lipgloss.Style
	errorStyle      lipgloss.Style
)

func applyTheme(t Theme) {
	colorBase = t.Base
	colorSurface0 = t.Surface0
	colorSurface1 = t.Surface1
	colorText = t.Text
	colorSubtext = t.Subtext
	colorDim = t.Dim
	colorAccent = t.Accent
	colorBlue = t.Blue
	colorGreen = t.Green
	colorYellow = t.Yellow
	colorRed = t.Red

	titleBarStyle = lipgloss.NewStyle().Foreground(colorText).Background(colorSurface0)
	brandStyle = lipgloss.NewStyle().Bold(true).Foreground(colorAccent).Background(colorSurface0)
	dimStyle = lipgloss.NewStyle().Foreground(colorDim)
	labelStyle = lipgloss.NewStyle().Foreground(colorSubtext)
	axisStyle = lipgloss.NewStyle().Foreground(colorDim)
	monthLabelStyle = lipgloss.NewStyle().Bold(true).Foreground(colorBlue)
	helpKeyStyle = lipgloss.NewStyle().Bold(true).Foreground(colorAccent)
	helpTextStyle = lipgloss.NewStyle().Foreground(colorSubtext)
	valueStyle = lipgloss.NewStyle().Bold(true).Foreground(colorText)
	editStyle = lipgloss.NewStyle().Bold(true).Foreground(colorBase).Background(colorYellow)
	padCellStyle = lipgloss.NewStyle().Background(colorSurface1)
	errorStyle = lipgloss.NewStyle().Foreground(colorRed)
}

// StatusColor maps a sync status to its indicator color.
func StatusColor(s core.SyncStatus) lipgloss.Color {
	switch s {
	case core.SyncWorking:
		return colorYellow
	case core.SyncError:
		return colorRed
	default:
		return colorGreen
	}
}

func StatusIcon(s core.SyncStatus) string {
	switch s {
	case core.SyncWorking:
		return "◐"
	case core.SyncError:
		return "✗"
	default:
		return "●"
	}
}

func StatusPill(s core.SyncStatus) string {
	return lipgloss.NewStyle().
		Foreground(StatusColor(s)).
		Background(colorSurface0).
		Render(StatusIcon(s) + " " + string(s))
}

// seriesStyle colors a dataset's line or bars; datasets without a color
// fall back to the theme accent.
func seriesStyle(color string) lipgloss.Style {
	if color == "" {
		return lipgloss.NewStyle().Foreground(colorAccent)
	}
	return lipgloss.NewStyle().Foreground(lipgloss.Color(color))
}
