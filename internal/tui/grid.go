package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/janekbaraniewski/calgrid/internal/config"
	"github.com/janekbaraniewski/calgrid/internal/layout"
	"github.com/janekbaraniewski/calgrid/internal/palette"
	"github.com/janekbaraniewski/calgrid/internal/viewstate"
)

const blankCell = "   "

// renderGrid draws rows x cols day cells, columns start..start+cols-1 in
// visual coordinates.
func renderGrid(f viewstate.Frame, start, cols int) string {
	rows := f.State.Rows
	lines := make([]string, 0, rows)
	gutter := strings.Repeat(" ", gutterWidth)
	for row := 0; row < rows; row++ {
		var b strings.Builder
		b.WriteString(gutter)
		for col := start; col < start+cols; col++ {
			b.WriteString(renderCell(f, layout.IndexAt(col, row, rows, len(f.Cells), f.Layout)))
		}
		lines = append(lines, b.String())
	}
	return strings.Join(lines, "\n")
}

func renderCell(f viewstate.Frame, i int) string {
	if i < 0 {
		return blankCell
	}
	cell := f.Cells[i]
	if !cell.IsReal() {
		return padCellStyle.Render(blankCell)
	}

	bg := cellBackground(f, i)
	fg := lipgloss.Color(palette.Foreground(bg))
	if cell.IsSunday {
		fg = colorRed
	}
	style := lipgloss.NewStyle().
		Background(lipgloss.Color(bg)).
		Foreground(fg).
		Underline(cell.IsToday).
		Reverse(i == f.State.Selected)
	return style.Render(fmt.Sprintf("%2d ", cell.Day))
}

// cellBackground picks the heat color of the cell. Month-line mode tints
// cells that carry no heat value with their month color.
func cellBackground(f viewstate.Frame, i int) string {
	st := f.State
	var value *float64
	if i < len(f.HeatCells) {
		value = f.HeatCells[i].Value
	}

	bg := palette.LightEmpty
	if st.DarkMode {
		bg = palette.DarkEmpty
	}
	if st.ShowHeatmap && value != nil {
		return palette.Heatmap(value, f.Heat.Min, f.Heat.Max, st.DarkMode, st.HeatmapHue)
	}
	if st.ShowMonthLines {
		tint := palette.MonthBackground(f.Cells[i].MonthIndex)
		if st.DarkMode {
			return palette.Blend(bg, tint, 0.2)
		}
		return tint
	}
	return bg
}

// renderMonthLabels writes each month's short name above its first full
// column inside the window.
func renderMonthLabels(f viewstate.Frame, grid config.Grid, start, cols int) string {
	line := []rune(strings.Repeat(" ", gutterWidth+cols*cellWidth))
	lastYear := 0
	for _, b := range f.Layout.MonthBounds {
		col := b.StartCol
		if b.StartRow > 0 {
			col++
		}
		col = max(col, start)
		if col > b.EndCol || col >= start+cols {
			continue
		}
		name := []rune(grid.MonthName(b.MonthIndex))
		if len(name) > 3 {
			name = name[:3]
		}
		label := string(name)
		if b.Year != lastYear {
			label += fmt.Sprintf(" %d", b.Year)
			lastYear = b.Year
		}
		at := gutterWidth + (col-start)*cellWidth
		for j, r := range []rune(label) {
			if at+j >= len(line) {
				break
			}
			line[at+j] = r
		}
	}
	return monthLabelStyle.Render(strings.TrimRight(string(line), " "))
}
