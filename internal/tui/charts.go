package tui

import (
	"fmt"
	"math"
	"strings"

	"github.com/NimbleMarkets/ntcharts/canvas"
	"github.com/NimbleMarkets/ntcharts/linechart"
	"github.com/charmbracelet/lipgloss"

	"github.com/janekbaraniewski/calgrid/internal/core"
	"github.com/janekbaraniewski/calgrid/internal/viewstate"
)

const (
	cellWidth   = 3 // characters per grid column
	labelWidth  = 5 // Y axis labels, right aligned
	gutterWidth = labelWidth + 1
	barRune     = '█'
)

// renderChart draws cols columns of every visible series starting at
// column start. Columns without data sit on the axis minimum, matching
// Frame.ColumnY.
func renderChart(f viewstate.Frame, start, cols, height int) string {
	if cols <= 0 || height < 3 {
		return ""
	}
	axis := f.Axis
	lc := linechart.New(gutterWidth+cols*cellWidth, height, 0, float64(cols), axis.Min, axis.Max,
		linechart.WithXYSteps(0, 2),
		linechart.WithStyles(axisStyle, labelStyle, lipgloss.NewStyle()),
		linechart.WithYLabelFormatter(func(_ int, v float64) string {
			return fmt.Sprintf("%*s", labelWidth, formatAxisValue(v))
		}),
	)
	lc.DrawXYAxisAndLabel()

	for _, s := range f.Series {
		window := columnWindow(s.Columns, start, cols)
		style := seriesStyle(s.Color)
		if s.Kind == core.GraphBar {
			drawBars(&lc, window, axis, style)
			continue
		}
		drawLine(&lc, window, axis, style)
	}
	return lc.View()
}

func drawLine(lc *linechart.Model, window []core.ColumnStat, axis viewstate.Range, style lipgloss.Style) {
	var prev canvas.Float64Point
	for i, c := range window {
		p := canvas.Float64Point{X: float64(i) + 0.5, Y: plotValue(c, axis)}
		if i == 0 {
			prev = p
		}
		lc.DrawBrailleLineWithStyle(prev, p, style)
		prev = p
	}
}

func drawBars(lc *linechart.Model, window []core.ColumnStat, axis viewstate.Range, style lipgloss.Style) {
	for i, c := range window {
		if !c.HasData {
			continue
		}
		x := float64(i) + 0.5
		lc.DrawRuneLineWithStyle(
			canvas.Float64Point{X: x, Y: axis.Min},
			canvas.Float64Point{X: x, Y: plotValue(c, axis)},
			barRune, style)
	}
}

// plotValue clamps a column value into the axis range.
func plotValue(c core.ColumnStat, axis viewstate.Range) float64 {
	if !c.HasData || math.IsNaN(c.Value) {
		return axis.Min
	}
	return max(axis.Min, min(axis.Max, c.Value))
}

// columnWindow returns columns[start:start+n], padded with no-data columns
// where the series is shorter.
func columnWindow(columns []core.ColumnStat, start, n int) []core.ColumnStat {
	out := make([]core.ColumnStat, n)
	for i := range out {
		if j := start + i; j >= 0 && j < len(columns) {
			out[i] = columns[j]
		}
	}
	return out
}

func formatAxisValue(v float64) string {
	a := math.Abs(v)
	switch {
	case a >= 1e6:
		return trimZero(fmt.Sprintf("%.1f", v/1e6)) + "M"
	case a >= 1e4:
		return fmt.Sprintf("%.0fk", v/1e3)
	case a >= 1e3:
		return trimZero(fmt.Sprintf("%.1f", v/1e3)) + "k"
	case a >= 10 || a == 0:
		return fmt.Sprintf("%.0f", v)
	default:
		return trimZero(fmt.Sprintf("%.1f", v))
	}
}

func trimZero(s string) string {
	if strings.Contains(s, ".") {
		s = strings.TrimRight(strings.TrimRight(s, "0"), ".")
	}
	return s
}
