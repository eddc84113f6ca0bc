// Package export renders a laid-out calendar frame as a standalone SVG.
package export

import (
	"context"
	"fmt"
	"io"
	"math"
	"strconv"

	svg "github.com/ajstarks/svgo"

	"github.com/janekbaraniewski/calgrid/internal/calendar"
	"github.com/janekbaraniewski/calgrid/internal/config"
	"github.com/janekbaraniewski/calgrid/internal/core"
	"github.com/janekbaraniewski/calgrid/internal/layout"
	"github.com/janekbaraniewski/calgrid/internal/palette"
	"github.com/janekbaraniewski/calgrid/internal/settings"
	"github.com/janekbaraniewski/calgrid/internal/store"
	"github.com/janekbaraniewski/calgrid/internal/viewstate"
)

const (
	sundayColor  = "#d93025"
	outlineColor = "#9aa0a6"
	todayStroke  = "#202124"
)

// Snapshot fetches every record from src and lays them out for a canvas of
// width x height pixels under prefs. cal may carry extra datasets; nil
// starts from an empty model.
func Snapshot(ctx context.Context, src store.Source, grid config.Grid, prefs settings.Settings, width, height float64, cal *calendar.Model) (viewstate.Frame, error) {
	coord := viewstate.NewCoordinator(src, cal, grid)
	coord.ApplySettings(prefs)
	coord.SetViewport(width, height)
	if err := coord.Load(ctx); err != nil {
		return viewstate.Frame{}, fmt.Errorf("export: snapshot: %w", err)
	}
	return coord.Frame(), nil
}

// SVG writes f as an SVG document. The canvas is as wide as the visible
// grid columns and as tall as the frame's viewport.
func SVG(w io.Writer, f viewstate.Frame, grid config.Grid) error {
	ew := &errWriter{w: w}
	canvas := svg.New(ew)

	m := f.Metrics
	width := px(max(f.Layout.TotalWidth, m.Stride))
	height := px(f.State.ViewportH)
	canvas.Start(width, height)
	canvas.Title("calgrid")

	bg := palette.LightEmpty
	text := "#202124"
	if f.State.DarkMode {
		bg, text = palette.DarkEmpty, "#cdd6f4"
	}
	canvas.Rect(0, 0, width, height, "fill:"+bg)

	canvas.Text(8, px(m.TitleBarHeight/2)+5, title(f), "font-family:sans-serif;font-size:14px;fill:"+text)

	canvas.Translate(0, px(m.TitleBarHeight))
	if f.State.ShowMonthLines {
		drawMonthOutlines(canvas, f)
	}
	drawCells(canvas, f, text)
	if f.State.ShowGraph && f.Layout.ChartHeight > 0 {
		drawSeries(canvas, f)
	}
	drawMonthLabels(canvas, f, grid, text)
	canvas.Gend()

	canvas.End()
	return ew.err
}

func title(f viewstate.Frame) string {
	return fmt.Sprintf("%s · %d rows · axis %s..%s", f.State.GraphMode.Label(), f.State.Rows,
		core.FormatValue(&f.Axis.Min), core.FormatValue(&f.Axis.Max))
}

func drawMonthOutlines(canvas *svg.SVG, f viewstate.Frame) {
	for _, b := range f.Layout.MonthBounds {
		fill := palette.MonthBackground(b.MonthIndex)
		if f.State.DarkMode {
			fill = palette.Blend(palette.DarkEmpty, fill, 0.2)
		}
		canvas.Path(b.PathData, "fill:"+fill+";stroke:"+outlineColor+";stroke-width:1")
	}
}

func drawCells(canvas *svg.SVG, f viewstate.Frame, text string) {
	m := f.Metrics
	rows := f.State.Rows
	inset := (m.Stride - m.CellSize) / 2
	size := px(m.CellSize)
	radius := px(min(m.Radius, m.CellSize/2))

	for i, cell := range f.Cells {
		if !cell.IsReal() {
			continue
		}
		col, row := layout.ColumnOf(i, rows, f.Layout)
		if col < 0 {
			continue
		}
		x := px(float64(col)*m.Stride + inset)
		y := px(f.Layout.ChartHeight + float64(row)*m.Stride + inset)

		fill := "none"
		var heat *float64
		if i < len(f.HeatCells) {
			heat = f.HeatCells[i].Value
		}
		if f.State.ShowHeatmap && heat != nil {
			fill = palette.Heatmap(heat, f.Heat.Min, f.Heat.Max, f.State.DarkMode, f.State.HeatmapHue)
		}
		style := "fill:" + fill
		if cell.IsToday {
			style += ";stroke:" + todayStroke + ";stroke-width:2"
		}
		if i == f.State.Selected {
			style += ";stroke:" + outlineColor + ";stroke-dasharray:2"
		}
		canvas.Roundrect(x, y, size, size, radius, radius, style)

		color := text
		if fill != "none" {
			color = palette.Foreground(fill)
		}
		if cell.IsSunday {
			color = sundayColor
		}
		canvas.Text(x+size/2, y+size/2+4, strconv.Itoa(cell.Day),
			"font-family:sans-serif;font-size:10px;text-anchor:middle;fill:"+color)
	}
}

// drawSeries plots each visible series over the chart area, one point per
// visible column. Columns without data sit on the baseline.
func drawSeries(canvas *svg.SVG, f viewstate.Frame) {
	m := f.Metrics
	hidden := f.Layout.HiddenColumns
	baseline := px(f.Y(nil))
	barW := max(2, px(m.Stride*0.6))

	for _, s := range f.Series {
		color := s.Color
		if color == "" {
			color = palette.Heatmap(core.Float(1), 0, 1, false, palette.DefaultHue)
		}
		if s.Kind == core.GraphBar {
			for j, c := range s.Columns {
				if j < hidden || !c.HasData {
					continue
				}
				x := px(float64(j-hidden)*m.Stride + m.Stride/2)
				y := px(f.ColumnY(c))
				canvas.Rect(x-barW/2, min(y, baseline), barW, absInt(baseline-y), "fill:"+color+";fill-opacity:0.8")
			}
			continue
		}

		var xs, ys []int
		for j, c := range s.Columns {
			if j < hidden {
				continue
			}
			xs = append(xs, px(float64(j-hidden)*m.Stride+m.Stride/2))
			ys = append(ys, px(f.ColumnY(c)))
		}
		if len(xs) > 0 {
			canvas.Polyline(xs, ys, "fill:none;stroke-linejoin:round;stroke:"+color+";stroke-width:2")
		}
	}
}

func drawMonthLabels(canvas *svg.SVG, f viewstate.Frame, grid config.Grid, text string) {
	m := f.Metrics
	y := px(f.Layout.ChartHeight + f.Layout.GridHeight + m.FooterHeight/2 + 4)
	for _, b := range f.Layout.MonthBounds {
		col := b.StartCol
		if b.StartRow > 0 && col < b.EndCol {
			col++
		}
		canvas.Text(px(float64(col)*m.Stride+2), y, grid.MonthName(b.MonthIndex),
			"font-family:sans-serif;font-size:11px;fill:"+text)
	}
}

func px(v float64) int {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return int(math.Round(v))
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// errWriter keeps the first write error; svgo does not report them.
type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) Write(p []byte) (int, error) {
	if e.err != nil {
		return 0, e.err
	}
	n, err := e.w.Write(p)
	if err != nil {
		e.err = err
	}
	return n, err
}
