// Package viewstate owns the view configuration of one calendar grid and
// recomputes layout, per-dataset column statistics and axis scaling
// whenever any input changes.
package viewstate

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"sync"

	"github.com/janekbaraniewski/calgrid/internal/calendar"
	"github.com/janekbaraniewski/calgrid/internal/config"
	"github.com/janekbaraniewski/calgrid/internal/core"
	"github.com/janekbaraniewski/calgrid/internal/layout"
	"github.com/janekbaraniewski/calgrid/internal/settings"
	"github.com/janekbaraniewski/calgrid/internal/stats"
	"github.com/janekbaraniewski/calgrid/internal/store"
)

var ErrUpsertRejected = errors.New("upsert rejected")

// State is the user-controlled view configuration.
type State struct {
	Rows             int
	Selected         int // -1 when nothing is selected
	ManualMin        *float64
	ManualMax        *float64
	ViewportW        float64
	ViewportH        float64
	ShowGraph        bool
	ShowHeatmap      bool
	ShowMonthLines   bool
	DarkMode         bool
	GraphMode        core.AggregateMode
	GraphType        core.GraphType
	HeatmapHue       float64
	HeatmapDatasetID string
}

// Series is one visible dataset with its column statistics.
type Series struct {
	Dataset core.Dataset       `json:"-"`
	ID      string             `json:"id"`
	Name    string             `json:"name"`
	Color   string             `json:"color"`
	Mode    core.AggregateMode `json:"mode"`
	Kind    core.GraphType     `json:"kind"`
	Columns []core.ColumnStat  `json:"columns"`
}

// Frame is everything a renderer needs for one paint.
type Frame struct {
	State      State
	Layout     core.LayoutResult
	Metrics    layout.Metrics
	Padding    Padding
	Cells      []core.CalendarCell // primary dataset
	HeatCells  []core.CalendarCell // dataset coloring the grid
	TodayIndex int
	Series     []Series
	Datasets   []core.Dataset
	Data       Range
	Axis       Range
	Heat       Range
	HeatOK     bool
	Status     core.SyncStatus
	Loading    bool
	LastError  string
}

// Y maps a value to the frame's chart pixel axis.
func (f Frame) Y(value *float64) float64 {
	return MapValueToPixel(value, f.Axis.Min, f.Axis.Max, f.Layout.ChartHeight, f.Padding)
}

// ColumnY maps a column statistic; columns without data sit on the baseline.
func (f Frame) ColumnY(c core.ColumnStat) float64 {
	return f.Y(columnValue(c))
}

// Coordinator is the single owner of a grid's view state. Every mutating
// method recomputes the frame synchronously and then notifies subscribers
// outside the lock.
type Coordinator struct {
	mu      sync.Mutex
	src     store.Source
	model   *calendar.Model
	grid    config.Grid
	metrics layout.Metrics
	pad     Padding

	state   State
	status  core.SyncStatus
	loading bool
	lastErr error
	frame   Frame

	subs    map[int]func(Frame)
	nextSub int
}

func NewCoordinator(src store.Source, model *calendar.Model, cfg config.Grid) *Coordinator {
	return NewCoordinatorWithMetrics(src, model, cfg, layout.Metrics{
		CellSize:       cfg.CellSize,
		Stride:         cfg.Stride,
		Radius:         cfg.Radius,
		FooterHeight:   cfg.FooterHeight,
		TitleBarHeight: cfg.TitleBarHeight,
	})
}

// NewCoordinatorWithMetrics lays the grid out in units other than the
// configured pixel sizes, e.g. terminal cells.
func NewCoordinatorWithMetrics(src store.Source, model *calendar.Model, cfg config.Grid, m layout.Metrics) *Coordinator {
	if model == nil {
		model = calendar.NewModel(nil)
	}
	c := &Coordinator{
		src:     src,
		model:   model,
		grid:    cfg,
		metrics: m,
		pad:     Padding{Top: cfg.GraphPaddingTop, Bottom: cfg.GraphPaddingBottom},
		status:  core.SyncIdle,
		subs:    make(map[int]func(Frame)),
	}
	c.state = stateFromSettings(settings.DefaultSettings(), State{Selected: -1, ViewportW: 400, ViewportH: 800})
	c.state.Rows = c.clampRows(float64(c.state.Rows))
	c.recompute()
	return c
}

// SetPadding overrides the graph padding taken from the grid config.
func (c *Coordinator) SetPadding(p Padding) {
	c.update(func() { c.pad = p })
}

// Subscribe registers fn for every recomputed frame. The returned func
// unregisters it.
func (c *Coordinator) Subscribe(fn func(Frame)) func() {
	c.mu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn
	c.mu.Unlock()
	return func() {
		c.mu.Lock()
		delete(c.subs, id)
		c.mu.Unlock()
	}
}

func (c *Coordinator) Frame() Frame {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.frame
}

func (c *Coordinator) Status() core.SyncStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

func (c *Coordinator) LastError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// Load fetches every record and replaces the primary dataset. On failure the
// previous data is kept and status becomes error.
func (c *Coordinator) Load(ctx context.Context) error {
	c.update(func() { c.loading = true })

	records, err := c.src.FetchAll(ctx)

	c.update(func() {
		c.loading = false
		if err != nil {
			c.status = core.SyncError
			c.lastErr = fmt.Errorf("viewstate: load: %w", err)
			return
		}
		selectedKey := selectedDateKey(c.model.Primary().Cells, c.state.Selected)
		c.model.Load(records)
		c.state.Selected = indexOfDateKey(c.model.Primary().Cells, selectedKey)
		c.status = core.SyncIdle
		c.lastErr = nil
	})
	if err != nil {
		log.Printf("viewstate level=warn event=load_failed err=%v", err)
		return c.LastError()
	}
	return nil
}

// Save applies value to cell idx, then persists it. The local edit is kept
// even if the upsert fails.
func (c *Coordinator) Save(ctx context.Context, idx int, value *float64) error {
	key, err := c.BeginSave(idx, value)
	if err != nil {
		return err
	}
	res, err := c.src.Upsert(ctx, key, value)
	if err == nil && !res.OK() {
		err = fmt.Errorf("%w: %s", ErrUpsertRejected, res.Message)
	}
	c.FinishSave(err)
	return c.LastError()
}

// BeginSave performs the optimistic local edit and marks the coordinator as
// working. The caller must run the upsert and report it with FinishSave.
func (c *Coordinator) BeginSave(idx int, value *float64) (string, error) {
	var (
		key string
		err error
	)
	c.update(func() {
		key, err = c.model.SetValue(idx, value)
		if err != nil {
			return
		}
		c.status = core.SyncWorking
	})
	return key, err
}

func (c *Coordinator) FinishSave(err error) {
	c.update(func() {
		if err != nil {
			c.status = core.SyncError
			c.lastErr = fmt.Errorf("viewstate: save: %w", err)
			return
		}
		c.status = core.SyncIdle
		c.lastErr = nil
	})
	if err != nil {
		log.Printf("viewstate level=warn event=save_failed err=%v", err)
	}
}

// SetRows rounds and clamps v to the configured row bounds.
func (c *Coordinator) SetRows(v float64) {
	c.update(func() { c.state.Rows = c.clampRows(v) })
}

func (c *Coordinator) SetViewport(w, h float64) {
	c.update(func() {
		c.state.ViewportW = w
		c.state.ViewportH = h
	})
}

func (c *Coordinator) ToggleDataset(id string) error {
	var err error
	c.update(func() { _, err = c.model.Toggle(id) })
	return err
}

// SetAxisOverride sets or clears (nil) each manual axis bound.
func (c *Coordinator) SetAxisOverride(minV, maxV *float64) {
	c.update(func() {
		c.state.ManualMin = copyFloat(minV)
		c.state.ManualMax = copyFloat(maxV)
	})
}

// Select marks cell idx as selected. Indexes outside the sequence or on
// padding clear the selection.
func (c *Coordinator) Select(idx int) {
	c.update(func() {
		cells := c.model.Primary().Cells
		if idx < 0 || idx >= len(cells) || !cells[idx].IsReal() {
			c.state.Selected = -1
			return
		}
		c.state.Selected = idx
	})
}

func (c *Coordinator) SetGraphMode(m core.AggregateMode) {
	c.update(func() { c.state.GraphMode = core.ParseAggregateMode(string(m)) })
}

func (c *Coordinator) SetGraphType(t core.GraphType) {
	c.update(func() { c.state.GraphType = core.ParseGraphType(string(t)) })
}

func (c *Coordinator) ToggleGraph() {
	c.update(func() { c.state.ShowGraph = !c.state.ShowGraph })
}

func (c *Coordinator) ToggleHeatmap() {
	c.update(func() { c.state.ShowHeatmap = !c.state.ShowHeatmap })
}

func (c *Coordinator) ToggleMonthLines() {
	c.update(func() { c.state.ShowMonthLines = !c.state.ShowMonthLines })
}

func (c *Coordinator) ToggleDarkMode() {
	c.update(func() { c.state.DarkMode = !c.state.DarkMode })
}

// SetHeatmapHue wraps h into [0,360).
func (c *Coordinator) SetHeatmapHue(h float64) {
	h = math.Mod(h, 360)
	if h < 0 {
		h += 360
	}
	c.update(func() { c.state.HeatmapHue = h })
}

// SetHeatmapDataset picks the dataset whose cells color the grid; "" means
// the primary dataset.
func (c *Coordinator) SetHeatmapDataset(id string) error {
	if id != "" {
		if _, ok := c.dataset(id); !ok {
			return fmt.Errorf("viewstate: heatmap dataset %q: %w", id, calendar.ErrUnknownDataset)
		}
	}
	c.update(func() { c.state.HeatmapDatasetID = id })
	return nil
}

func (c *Coordinator) ApplySettings(s settings.Settings) {
	c.update(func() {
		c.state = stateFromSettings(s.Normalize(), c.state)
		c.state.Rows = c.clampRows(float64(c.state.Rows))
		if c.state.HeatmapDatasetID != "" {
			if _, ok := c.model.Dataset(c.state.HeatmapDatasetID); !ok {
				c.state.HeatmapDatasetID = ""
			}
		}
	})
}

func (c *Coordinator) Settings() settings.Settings {
	c.mu.Lock()
	defer c.mu.Unlock()
	return settingsFromState(c.state)
}

// ResetSettings restores default preferences. Selection and viewport are
// kept.
func (c *Coordinator) ResetSettings() {
	c.ApplySettings(settings.DefaultSettings())
}

// HeatmapRange returns the min and max raw value of the heatmap dataset.
func (c *Coordinator) HeatmapRange() (minV, maxV float64, ok bool) {
	f := c.Frame()
	return f.Heat.Min, f.Heat.Max, f.HeatOK
}

// Model exposes the dataset model. Callers must not mutate it concurrently
// with the coordinator.
func (c *Coordinator) Model() *calendar.Model {
	return c.model
}

func (c *Coordinator) update(mutate func()) {
	c.mu.Lock()
	mutate()
	c.recompute()
	frame := c.frame
	subs := make([]func(Frame), 0, len(c.subs))
	for _, fn := range c.subs {
		subs = append(subs, fn)
	}
	c.mu.Unlock()

	for _, fn := range subs {
		fn(frame)
	}
}

func (c *Coordinator) dataset(id string) (core.Dataset, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.model.Dataset(id)
}

// recompute must be called with mu held.
func (c *Coordinator) recompute() {
	st := c.state
	primary := c.model.Primary()

	heat := primary
	if st.HeatmapDatasetID != "" {
		if ds, ok := c.model.Dataset(st.HeatmapDatasetID); ok {
			heat = ds
		}
	}

	f := Frame{
		State:      st,
		Layout:     layout.Compute(primary.Cells, st.Rows, st.ViewportW, st.ViewportH, c.metrics),
		Metrics:    c.metrics,
		Padding:    c.pad,
		Cells:      primary.Cells,
		HeatCells:  heat.Cells,
		TodayIndex: c.model.TodayIndex(),
		Datasets:   c.model.Datasets(),
		Status:     c.status,
		Loading:    c.loading,
	}
	if c.lastErr != nil {
		f.LastError = c.lastErr.Error()
	}

	for _, ds := range c.model.Visible() {
		mode, kind := st.GraphMode, st.GraphType
		if ds.Style.Mode != "" {
			mode = ds.Style.Mode
		}
		if ds.Style.Kind != "" {
			kind = ds.Style.Kind
		}
		f.Series = append(f.Series, Series{
			Dataset: ds,
			ID:      ds.ID,
			Name:    ds.Name,
			Color:   ds.Style.Color,
			Mode:    mode,
			Kind:    kind,
			Columns: stats.Columns(ds.Cells, st.Rows, mode),
		})
	}

	f.Data = DataRange(f.Series)
	f.Axis = AxisRange(f.Data, st.ManualMin, st.ManualMax)
	f.Heat, f.HeatOK = cellRange(heat.Cells)
	c.frame = f
}

func (c *Coordinator) clampRows(v float64) int {
	return ClampRows(v, c.grid.MinRows, c.grid.MaxRows)
}

func selectedDateKey(cells []core.CalendarCell, idx int) string {
	if idx < 0 || idx >= len(cells) || !cells[idx].IsReal() {
		return ""
	}
	return cells[idx].DateKey
}

// indexOfDateKey finds the real cell for key after a reload, or -1.
func indexOfDateKey(cells []core.CalendarCell, key string) int {
	if key == "" {
		return -1
	}
	for i, cell := range cells {
		if cell.IsReal() && cell.DateKey == key {
			return i
		}
	}
	return -1
}

func cellRange(cells []core.CalendarCell) (Range, bool) {
	r := Range{}
	ok := false
	for _, cell := range cells {
		if !cell.IsReal() || cell.Value == nil {
			continue
		}
		v := *cell.Value
		if !ok {
			r, ok = Range{Min: v, Max: v}, true
			continue
		}
		r.Min = min(r.Min, v)
		r.Max = max(r.Max, v)
	}
	return r, ok
}

func stateFromSettings(s settings.Settings, base State) State {
	base.Rows = s.Rows
	base.GraphMode = s.GraphMode
	base.GraphType = s.GraphType
	base.ShowGraph = s.ShowGraph
	base.ShowHeatmap = s.ShowHeatmap
	base.ShowMonthLines = s.ShowMonthLines
	base.DarkMode = s.DarkMode
	base.HeatmapHue = s.HeatmapHue
	base.HeatmapDatasetID = s.HeatmapDatasetID
	base.ManualMin = copyFloat(s.ManualMin)
	base.ManualMax = copyFloat(s.ManualMax)
	return base
}

func settingsFromState(st State) settings.Settings {
	return settings.Settings{
		Rows:             st.Rows,
		GraphMode:        st.GraphMode,
		GraphType:        st.GraphType,
		ShowGraph:        st.ShowGraph,
		ShowHeatmap:      st.ShowHeatmap,
		ShowMonthLines:   st.ShowMonthLines,
		DarkMode:         st.DarkMode,
		HeatmapHue:       st.HeatmapHue,
		HeatmapDatasetID: st.HeatmapDatasetID,
		ManualMin:        copyFloat(st.ManualMin),
		ManualMax:        copyFloat(st.ManualMax),
	}
}

func copyFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	return core.Float(*v)
}
