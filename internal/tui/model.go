// Package tui is the bubbletea calendar dashboard.
package tui

import (
	"context"
	"fmt"
	"log"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/ansi"

	"github.com/janekbaraniewski/calgrid/internal/calendar"
	"github.com/janekbaraniewski/calgrid/internal/config"
	"github.com/janekbaraniewski/calgrid/internal/core"
	"github.com/janekbaraniewski/calgrid/internal/layout"
	"github.com/janekbaraniewski/calgrid/internal/settings"
	"github.com/janekbaraniewski/calgrid/internal/store"
	"github.com/janekbaraniewski/calgrid/internal/viewstate"
)

const (
	fetchTimeout = 15 * time.Second
	saveTimeout  = 10 * time.Second
	hueStep      = 15
)

// terminalMetrics lay the grid out in character cells: one row per line,
// a title bar line and two footer lines.
var terminalMetrics = layout.Metrics{
	CellSize:       1,
	Stride:         1,
	Radius:         0,
	FooterHeight:   2,
	TitleBarHeight: 1,
}

// SettingsChangedMsg carries a settings file reload from settings.Watch.
type SettingsChangedMsg struct {
	Settings settings.Settings
	Err      error
}

type loadedMsg struct{ err error }

type savedMsg struct {
	key string
	err error
}

type settingsPersistedMsg struct{ err error }

type themePersistedMsg struct{ err error }

// Options configure NewModel. Calendar may be nil; a fresh model is created.
type Options struct {
	Source       store.Source
	Grid         config.Grid
	Calendar     *calendar.Model
	Settings     settings.Settings
	SettingsPath string // empty disables persistence
	PersistTheme bool
}

type Model struct {
	coord        *viewstate.Coordinator
	src          store.Source
	grid         config.Grid
	writer       *settingsWriter
	persistTheme bool

	width  int
	height int
	start  int // first visible column; clamped on render

	editing  bool
	input    string
	showHelp bool
	message  string
}

func NewModel(opts Options) Model {
	coord := viewstate.NewCoordinatorWithMetrics(opts.Source, opts.Calendar, opts.Grid, terminalMetrics)
	coord.SetPadding(viewstate.Padding{})
	coord.ApplySettings(opts.Settings)
	return Model{
		coord:        coord,
		src:          opts.Source,
		grid:         opts.Grid,
		writer:       newSettingsWriter(opts.SettingsPath),
		persistTheme: opts.PersistTheme,
		start:        math.MaxInt32,
	}
}

// Coordinator exposes the view state, mainly for tests and the CLI.
func (m Model) Coordinator() *viewstate.Coordinator { return m.coord }

func (m Model) Init() tea.Cmd { return m.loadCmd() }

func (m Model) loadCmd() tea.Cmd {
	coord := m.coord
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
		defer cancel()
		return loadedMsg{err: coord.Load(ctx)}
	}
}

// saveCmd applies the edit locally right away and runs the upsert in the
// background. The edit stays even if the upsert fails.
func (m *Model) saveCmd(idx int, value *float64) tea.Cmd {
	key, err := m.coord.BeginSave(idx, value)
	if err != nil {
		m.message = err.Error()
		return nil
	}
	src := m.src
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
		defer cancel()
		res, err := src.Upsert(ctx, key, value)
		if err == nil && !res.OK() {
			err = fmt.Errorf("%w: %s", viewstate.ErrUpsertRejected, res.Message)
		}
		return savedMsg{key: key, err: err}
	}
}

// persistSettingsCmd snapshots the settings now and writes them in the
// background. Writes finishing out of order never leave an older blob on disk.
func (m Model) persistSettingsCmd() tea.Cmd {
	if m.writer == nil {
		return nil
	}
	w, s := m.writer, m.coord.Settings()
	seq := w.enqueue(s)
	return func() tea.Msg {
		skipped, err := w.write(seq, s)
		if err != nil {
			log.Printf("tui level=warn event=settings_persist_failed err=%v", err)
		} else if skipped {
			log.Printf("tui level=info event=settings_persist_superseded seq=%d", seq)
		}
		return settingsPersistedMsg{err: err}
	}
}

func (m Model) persistThemeCmd(themeName string) tea.Cmd {
	if !m.persistTheme {
		return nil
	}
	return func() tea.Msg {
		err := config.SaveTheme(themeName)
		if err != nil {
			log.Printf("tui level=warn event=theme_persist_failed err=%v", err)
		}
		return themePersistedMsg{err: err}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.coord.SetViewport(float64(m.visibleColumns()), float64(msg.Height))
		m.followSelection()
		return m, nil

	case loadedMsg:
		if msg.err != nil {
			m.message = "load failed"
		} else {
			m.message = ""
		}
		return m, nil

	case savedMsg:
		m.coord.FinishSave(msg.err)
		if msg.err != nil {
			m.message = "save failed: " + msg.key
		} else {
			m.message = "saved " + msg.key
		}
		return m, nil

	case SettingsChangedMsg:
		if msg.Err != nil {
			log.Printf("tui level=warn event=settings_reload_failed err=%v", msg.Err)
			return m, nil
		}
		if m.writer.isOwn(msg.Settings) {
			return m, nil
		}
		m.coord.ApplySettings(msg.Settings)
		return m, nil

	case settingsPersistedMsg:
		if msg.err != nil {
			m.message = "settings save failed"
		}
		return m, nil

	case themePersistedMsg:
		if msg.err != nil {
			m.message = "theme save failed"
		}
		return m, nil

	case tea.KeyMsg:
		if m.editing {
			return m.handleEditKey(msg)
		}
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	f := m.coord.Frame()
	rows := f.State.Rows

	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "?":
		m.showHelp = !m.showHelp
		return m, nil
	case "left", "h":
		m.moveSelection(-rows)
	case "right", "l":
		m.moveSelection(rows)
	case "up", "k":
		m.moveSelection(-1)
	case "down", "j":
		m.moveSelection(1)
	case "t":
		if f.TodayIndex >= 0 {
			m.coord.Select(f.TodayIndex)
			m.followSelection()
		}
	case "+", "=":
		m.coord.SetRows(float64(rows + 1))
		m.followSelection()
		return m, m.persistSettingsCmd()
	case "-", "_":
		m.coord.SetRows(float64(rows - 1))
		m.followSelection()
		return m, m.persistSettingsCmd()
	case "m":
		m.coord.SetGraphMode(f.State.GraphMode.Next())
		return m, m.persistSettingsCmd()
	case "b":
		next := core.GraphBar
		if f.State.GraphType == core.GraphBar {
			next = core.GraphLine
		}
		m.coord.SetGraphType(next)
		return m, m.persistSettingsCmd()
	case "g":
		m.coord.ToggleGraph()
		return m, m.persistSettingsCmd()
	case "H":
		m.coord.ToggleHeatmap()
		return m, m.persistSettingsCmd()
	case "o":
		m.coord.ToggleMonthLines()
		return m, m.persistSettingsCmd()
	case "D":
		m.coord.ToggleDarkMode()
		return m, m.persistSettingsCmd()
	case "[":
		m.coord.SetHeatmapHue(f.State.HeatmapHue - hueStep)
		return m, m.persistSettingsCmd()
	case "]":
		m.coord.SetHeatmapHue(f.State.HeatmapHue + hueStep)
		return m, m.persistSettingsCmd()
	case "c":
		m.cycleHeatmapDataset(f)
		return m, m.persistSettingsCmd()
	case "T":
		th := CycleTheme()
		if m.coord.Frame().State.DarkMode != th.Dark {
			m.coord.ToggleDarkMode()
		}
		m.coord.SetHeatmapHue(th.HeatmapHue)
		return m, tea.Batch(m.persistThemeCmd(th.Name), m.persistSettingsCmd())
	case "R":
		m.coord.ResetSettings()
		m.followSelection()
		return m, m.persistSettingsCmd()
	case "r":
		m.message = "loading..."
		return m, m.loadCmd()
	case "e", "enter":
		if f.State.Selected >= 0 {
			m.editing = true
			m.input = core.FormatValue(f.Cells[f.State.Selected].Value)
		}
	case "x":
		if f.State.Selected >= 0 {
			return m, m.saveCmd(f.State.Selected, nil)
		}
	default:
		if n, ok := datasetKey(msg.String()); ok && n <= len(f.Datasets) {
			if err := m.coord.ToggleDataset(f.Datasets[n-1].ID); err != nil {
				m.message = err.Error()
			}
		}
	}
	return m, nil
}

func (m Model) handleEditKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.editing = false
		m.input = ""
		return m, nil
	case tea.KeyBackspace:
		if r := []rune(m.input); len(r) > 0 {
			m.input = string(r[:len(r)-1])
		}
		return m, nil
	case tea.KeyEnter:
		value, err := core.ParseValue(m.input)
		if err != nil {
			m.message = "not a number: " + m.input
			return m, nil
		}
		m.editing = false
		m.input = ""
		idx := m.coord.Frame().State.Selected
		if idx < 0 {
			return m, nil
		}
		return m, m.saveCmd(idx, value)
	case tea.KeyRunes:
		for _, r := range msg.Runes {
			if (r >= '0' && r <= '9') || r == '.' || r == '-' {
				m.input += string(r)
			}
		}
	}
	return m, nil
}

// moveSelection shifts the selection by delta cells. With nothing selected
// it starts at today, or at the last day. Moves onto padding or past the
// sequence are ignored.
func (m *Model) moveSelection(delta int) {
	f := m.coord.Frame()
	idx := f.State.Selected
	if idx < 0 {
		idx = f.TodayIndex
		if idx < 0 {
			idx = len(f.Cells) - 1
		}
		m.coord.Select(idx)
		m.followSelection()
		return
	}
	next := idx + delta
	if next < 0 || next >= len(f.Cells) || !f.Cells[next].IsReal() {
		return
	}
	m.coord.Select(next)
	m.followSelection()
}

// followSelection scrolls the column window so the selection is visible.
func (m *Model) followSelection() {
	f := m.coord.Frame()
	if f.State.Selected < 0 {
		return
	}
	cols := m.visibleColumns()
	col, _ := layout.ColumnOf(f.State.Selected, f.State.Rows, f.Layout)
	start := m.windowStart(f)
	switch {
	case col < start:
		m.start = col
	case col >= start+cols:
		m.start = col - cols + 1
	default:
		m.start = start
	}
}

func (m Model) cycleHeatmapDataset(f viewstate.Frame) {
	ids := make([]string, 0, len(f.Datasets))
	for _, ds := range f.Datasets {
		ids = append(ids, ds.ID)
	}
	current := f.State.HeatmapDatasetID
	if current == "" {
		current = calendar.PrimaryID
	}
	for i, id := range ids {
		if id == current {
			next := ids[(i+1)%len(ids)]
			if next == calendar.PrimaryID {
				next = ""
			}
			_ = m.coord.SetHeatmapDataset(next)
			return
		}
	}
}

func datasetKey(s string) (int, bool) {
	if len(s) != 1 || s[0] < '1' || s[0] > '9' {
		return 0, false
	}
	return int(s[0] - '0'), true
}

func (m Model) visibleColumns() int {
	return max(1, (m.width-gutterWidth)/cellWidth)
}

// windowStart clamps the scroll position to the visible grid columns.
func (m Model) windowStart(f viewstate.Frame) int {
	total := f.Layout.VisibleColumns()
	return max(0, min(m.start, total-m.visibleColumns()))
}

func (m Model) View() string {
	if m.width <= 0 || m.height <= 0 {
		return "loading..."
	}
	f := m.coord.Frame()
	start := m.windowStart(f)
	cols := m.visibleColumns()

	sections := []string{m.renderTitle(f)}
	chartH := int(f.Layout.ChartHeight)
	switch {
	case m.showHelp:
		sections = append(sections, renderHelp(chartH))
	case f.State.ShowGraph && chartH >= 3:
		sections = append(sections, renderChart(f, start+f.Layout.HiddenColumns, cols, chartH))
	case chartH > 0:
		sections = append(sections, strings.Repeat("\n", chartH-1))
	}
	sections = append(sections,
		renderGrid(f, start, cols),
		renderMonthLabels(f, m.grid, start, cols),
		m.renderFooter(f),
	)
	return strings.Join(sections, "\n")
}

func (m Model) renderTitle(f viewstate.Frame) string {
	status := f.Status
	text := " " + brandStyle.Render("calgrid") + titleBarStyle.Render("  "+ThemeName()+"  ") + StatusPill(status)
	if f.Loading {
		text += titleBarStyle.Render("  loading...")
	}
	if m.message != "" {
		text += titleBarStyle.Render("  " + m.message)
	}
	return ansi.Truncate(text, m.width, "…")
}

func (m Model) renderFooter(f viewstate.Frame) string {
	var parts []string
	if idx := f.State.Selected; idx >= 0 && idx < len(f.Cells) {
		cell := f.Cells[idx]
		if m.editing {
			parts = append(parts, editStyle.Render(" "+cell.DateKey+" = "+m.input+"▏"))
		} else {
			value := core.FormatValue(cell.Value)
			if value == "" {
				value = "–"
			}
			parts = append(parts, labelStyle.Render(cell.DateKey)+" "+valueStyle.Render(value))
		}
	}
	parts = append(parts,
		labelStyle.Render(f.State.GraphMode.Label()),
		dimStyle.Render(fmt.Sprintf("axis %s..%s", formatAxisValue(f.Axis.Min), formatAxisValue(f.Axis.Max))),
		dimStyle.Render(fmt.Sprintf("rows %d", f.State.Rows)),
	)
	if f.LastError != "" {
		parts = append(parts, errorStyle.Render(f.LastError))
	}
	parts = append(parts, helpLine(m.editing))
	return ansi.Truncate(strings.Join(parts, "  "), m.width, "…")
}
