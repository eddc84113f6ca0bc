// Package layout computes grid geometry and month outlines for a dense
// calendar sequence. It is unit-agnostic: the dashboard feeds it terminal
// cells, the SVG exporter feeds it pixels.
package layout

import (
	"math"

	"github.com/janekbaraniewski/calgrid/internal/core"
	"github.com/janekbaraniewski/calgrid/internal/geometry"
)

// Metrics are the fixed sizes the grid is laid out with.
type Metrics struct {
	CellSize       float64 `json:"cellSize"`
	Stride         float64 `json:"stride"`
	Radius         float64 `json:"radius"`
	FooterHeight   float64 `json:"footerHeight"`
	TitleBarHeight float64 `json:"titleBarHeight"`
}

// Compute derives the layout for cells arranged rows per column inside a
// viewport of viewportW x viewportH. Statistics are not computed here; see
// stats.Columns.
func Compute(cells []core.CalendarCell, rows int, viewportW, viewportH float64, m Metrics) core.LayoutResult {
	gridH := float64(max(rows, 0)) * m.Stride
	res := core.LayoutResult{
		GridHeight:   gridH,
		ChartHeight:  viewportH - gridH - m.FooterHeight - m.TitleBarHeight,
		CenterOffset: (viewportW - m.Stride) / 2,
		MonthBounds:  []core.MonthBound{},
	}
	if rows <= 0 || len(cells) == 0 {
		return res
	}

	if first := core.FirstRealIndex(cells); first >= 0 {
		res.HiddenColumns = first / rows
	}
	res.XShift = float64(res.HiddenColumns) * m.Stride
	res.TotalColumns = int(math.Ceil(float64(len(cells)) / float64(rows)))
	res.TotalWidth = float64(res.TotalColumns-res.HiddenColumns) * m.Stride

	index := make(map[string]int)
	for i, c := range cells {
		if !c.IsReal() {
			continue
		}
		col := i/rows - res.HiddenColumns
		row := i % rows
		key := c.MonthKey()
		if at, ok := index[key]; ok {
			res.MonthBounds[at].EndCol = col
			res.MonthBounds[at].EndRow = row
			continue
		}
		index[key] = len(res.MonthBounds)
		res.MonthBounds = append(res.MonthBounds, core.MonthBound{
			StartCol:   col,
			StartRow:   row,
			EndCol:     col,
			EndRow:     row,
			Year:       c.Year,
			MonthIndex: c.MonthIndex,
		})
	}

	grid := geometry.Grid{
		Stride: m.Stride,
		Radius: m.Radius,
		Top:    res.ChartHeight,
		Bottom: res.ChartHeight + gridH + m.FooterHeight,
		Rows:   rows,
	}
	for i := range res.MonthBounds {
		b := &res.MonthBounds[i]
		b.PathData = geometry.MonthOutline(geometry.Region{
			StartCol: b.StartCol,
			StartRow: b.StartRow,
			EndCol:   b.EndCol,
			EndRow:   b.EndRow,
		}, grid)
	}
	return res
}

// ColumnOf returns the visual column and row of flat index i.
func ColumnOf(i, rows int, res core.LayoutResult) (col, row int) {
	if rows <= 0 {
		return 0, 0
	}
	return i/rows - res.HiddenColumns, i % rows
}

// IndexAt is the inverse of ColumnOf. It returns -1 when the position falls
// outside cells.
func IndexAt(col, row, rows, n int, res core.LayoutResult) int {
	if rows <= 0 || row < 0 || row >= rows || col < 0 {
		return -1
	}
	i := (col+res.HiddenColumns)*rows + row
	if i >= n {
		return -1
	}
	return i
}
