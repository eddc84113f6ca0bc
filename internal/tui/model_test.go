package tui

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/janekbaraniewski/calgrid/internal/calendar"
	"github.com/janekbaraniewski/calgrid/internal/config"
	"github.com/janekbaraniewski/calgrid/internal/core"
	"github.com/janekbaraniewski/calgrid/internal/settings"
	"github.com/janekbaraniewski/calgrid/internal/store"
)

var testNow = time.Date(2025, time.April, 16, 9, 0, 0, 0, time.UTC)

func fixedNow() time.Time { return testNow }

func seededStore(t *testing.T) *store.MemoryStore {
	t.Helper()
	mem := store.NewMemory(fixedNow)
	for key, v := range map[string]float64{"2025-03-03": 4, "2025-03-20": 9, "2025-04-10": 42} {
		if _, err := mem.Upsert(context.Background(), key, core.Float(v)); err != nil {
			t.Fatalf("seed %s: %v", key, err)
		}
	}
	return mem
}

func newTestModel(t *testing.T, src store.Source, settingsPath string) Model {
	t.Helper()
	m := NewModel(Options{
		Source:       src,
		Grid:         config.DefaultGrid(),
		Calendar:     calendar.NewModel(fixedNow),
		Settings:     settings.DefaultSettings(),
		SettingsPath: settingsPath,
	})
	m = update(t, m, tea.WindowSizeMsg{Width: 120, Height: 30})
	return update(t, m, m.loadCmd()())
}

func update(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	return next.(Model)
}

func keyMsg(key string) tea.KeyMsg {
	switch key {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "backspace":
		return tea.KeyMsg{Type: tea.KeyBackspace}
	case "left":
		return tea.KeyMsg{Type: tea.KeyLeft}
	case "right":
		return tea.KeyMsg{Type: tea.KeyRight}
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(key)}
}

// press sends keys in order and returns the command of the last one.
func press(t *testing.T, m Model, keys ...string) (Model, tea.Cmd) {
	t.Helper()
	var cmd tea.Cmd
	for _, k := range keys {
		var next tea.Model
		next, cmd = m.Update(keyMsg(k))
		m = next.(Model)
	}
	return m, cmd
}

func TestModel_LoadPopulatesFrame(t *testing.T) {
	m := newTestModel(t, seededStore(t), "")
	f := m.coord.Frame()

	if f.Status != core.SyncIdle {
		t.Fatalf("status = %s, want idle", f.Status)
	}
	if f.TodayIndex < 0 || !f.Cells[f.TodayIndex].IsToday {
		t.Fatalf("today index = %d, want today's cell", f.TodayIndex)
	}
	if len(f.Series) != 1 || f.Axis.Max <= f.Axis.Min {
		t.Fatalf("series=%d axis=%+v", len(f.Series), f.Axis)
	}
	if f.State.ViewportW != float64((120-gutterWidth)/cellWidth) {
		t.Fatalf("viewport width = %v columns", f.State.ViewportW)
	}
}

func TestModel_RowsKeysClampAndPersist(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	m := newTestModel(t, seededStore(t), path)

	m, cmd := press(t, m, "+")
	if got := m.coord.Frame().State.Rows; got != 8 {
		t.Fatalf("rows after + = %d, want 8", got)
	}
	if cmd == nil {
		t.Fatal("expected a persist command")
	}
	if msg, ok := cmd().(settingsPersistedMsg); !ok || msg.err != nil {
		t.Fatalf("persist msg = %#v", msg)
	}
	saved, err := settings.LoadFrom(path)
	if err != nil || saved.Rows != 8 {
		t.Fatalf("saved rows = %d (err %v), want 8", saved.Rows, err)
	}

	for i := 0; i < 40; i++ {
		m, _ = press(t, m, "+")
	}
	if got := m.coord.Frame().State.Rows; got != config.DefaultGrid().MaxRows {
		t.Fatalf("rows = %d, want clamp at %d", got, config.DefaultGrid().MaxRows)
	}
	for i := 0; i < 40; i++ {
		m, _ = press(t, m, "-")
	}
	if got := m.coord.Frame().State.Rows; got != config.DefaultGrid().MinRows {
		t.Fatalf("rows = %d, want clamp at %d", got, config.DefaultGrid().MinRows)
	}
}

func TestModel_ModeAndDisplayToggles(t *testing.T) {
	m := newTestModel(t, seededStore(t), "")

	m, _ = press(t, m, "m", "b", "g", "H", "o", "D")
	st := m.coord.Frame().State
	if st.GraphMode != core.AggregateMedian {
		t.Errorf("mode = %s, want median", st.GraphMode)
	}
	if st.GraphType != core.GraphBar {
		t.Errorf("graph type = %s, want bar", st.GraphType)
	}
	if st.ShowGraph || st.ShowHeatmap || st.ShowMonthLines || !st.DarkMode {
		t.Errorf("toggles not applied: %+v", st)
	}

	m, _ = press(t, m, "R")
	st = m.coord.Frame().State
	if st.GraphMode != core.AggregateAvg || !st.ShowGraph || st.DarkMode {
		t.Errorf("reset did not restore defaults: %+v", st)
	}
}

func TestModel_EditSavesOptimistically(t *testing.T) {
	mem := seededStore(t)
	m := newTestModel(t, mem, "")

	m, _ = press(t, m, "t", "e", "1", "2", ".", "5")
	if !m.editing || m.input != "12.5" {
		t.Fatalf("editing=%v input=%q", m.editing, m.input)
	}
	m, cmd := press(t, m, "enter")
	if cmd == nil {
		t.Fatal("expected save command")
	}

	f := m.coord.Frame()
	if f.Status != core.SyncWorking {
		t.Fatalf("status = %s, want working while saving", f.Status)
	}
	if v := f.Cells[f.TodayIndex].Value; v == nil || *v != 12.5 {
		t.Fatalf("today value = %v, want optimistic 12.5", v)
	}

	m = update(t, m, cmd())
	if got := m.coord.Frame().Status; got != core.SyncIdle {
		t.Fatalf("status = %s, want idle", got)
	}
	records, _ := mem.FetchAll(context.Background())
	found := false
	for _, r := range records {
		if r.Day == 16 && r.MonthIndex == 3 && r.Value != nil && *r.Value == 12.5 {
			found = true
		}
	}
	if !found {
		t.Fatalf("store records %+v missing today's value", records)
	}
}

func TestModel_EditEscapeAndBackspace(t *testing.T) {
	m := newTestModel(t, seededStore(t), "")

	m, _ = press(t, m, "t", "e", "7", "a", "8", "backspace")
	if m.input != "7" {
		t.Fatalf("input = %q, want 7", m.input)
	}
	m, cmd := press(t, m, "esc")
	if m.editing || cmd != nil {
		t.Fatalf("escape should cancel without a command")
	}
	f := m.coord.Frame()
	if f.Cells[f.TodayIndex].Value != nil {
		t.Fatal("cancelled edit changed the cell")
	}
}

type rejectingSource struct{ *store.MemoryStore }

func (rejectingSource) Upsert(context.Context, string, *float64) (core.UpsertResult, error) {
	return core.UpsertResult{}, errors.New("offline")
}

func TestModel_FailedSaveKeepsEdit(t *testing.T) {
	m := newTestModel(t, rejectingSource{seededStore(t)}, "")

	m, _ = press(t, m, "t", "e", "3")
	m, cmd := press(t, m, "enter")
	m = update(t, m, cmd())

	f := m.coord.Frame()
	if f.Status != core.SyncError || f.LastError == "" {
		t.Fatalf("status=%s lastError=%q, want error", f.Status, f.LastError)
	}
	if v := f.Cells[f.TodayIndex].Value; v == nil || *v != 3 {
		t.Fatalf("value = %v, edit should not be rolled back", v)
	}
}

func TestModel_ClearValue(t *testing.T) {
	mem := seededStore(t)
	m := newTestModel(t, mem, "")

	m, _ = press(t, m, "t")
	for i := 0; i < 6; i++ {
		m, _ = press(t, m, "up")
	}
	f := m.coord.Frame()
	if got := f.Cells[f.State.Selected].DateKey; got != "2025-04-10" {
		t.Fatalf("selected %s, want 2025-04-10", got)
	}
	m, cmd := press(t, m, "x")
	update(t, m, cmd())

	records, _ := mem.FetchAll(context.Background())
	for _, r := range records {
		if r.Day == 10 && r.MonthIndex == 3 && r.Value != nil {
			t.Fatalf("2025-04-10 still holds %v", *r.Value)
		}
	}
}

func TestModel_SelectionMovesByColumnAndSkipsPadding(t *testing.T) {
	m := newTestModel(t, seededStore(t), "")
	rows := m.coord.Frame().State.Rows

	m, _ = press(t, m, "t")
	today := m.coord.Frame().State.Selected
	m, _ = press(t, m, "left")
	if got := m.coord.Frame().State.Selected; got != today-rows {
		t.Fatalf("left moved to %d, want %d", got, today-rows)
	}

	first := core.FirstRealIndex(m.coord.Frame().Cells)
	m.coord.Select(first)
	m, _ = press(t, m, "up")
	if got := m.coord.Frame().State.Selected; got != first {
		t.Fatalf("moving onto padding changed selection to %d", got)
	}
}

func TestModel_DatasetKeysToggleSeries(t *testing.T) {
	cal := calendar.NewModel(fixedNow)
	if err := cal.AddDemoOverlay(); err != nil {
		t.Fatal(err)
	}
	m := NewModel(Options{Source: seededStore(t), Grid: config.DefaultGrid(), Calendar: cal, Settings: settings.DefaultSettings()})
	m = update(t, m, m.loadCmd()())

	if n := len(m.coord.Frame().Series); n != 1 {
		t.Fatalf("series = %d, want 1 with the overlay hidden", n)
	}
	m, _ = press(t, m, "2")
	if n := len(m.coord.Frame().Series); n != 2 {
		t.Fatalf("series = %d, want 2 after toggling the overlay", n)
	}
	m, _ = press(t, m, "c")
	if got := m.coord.Frame().State.HeatmapDatasetID; got != calendar.DemoID {
		t.Fatalf("heatmap dataset = %q, want demo", got)
	}
	m, _ = press(t, m, "c")
	if got := m.coord.Frame().State.HeatmapDatasetID; got != "" {
		t.Fatalf("heatmap dataset = %q, want primary", got)
	}
}

func TestModel_SettingsChangedMsgApplies(t *testing.T) {
	m := newTestModel(t, seededStore(t), "")

	s := settings.DefaultSettings()
	s.Rows = 5
	s.HeatmapHue = 90
	m = update(t, m, SettingsChangedMsg{Settings: s})
	st := m.coord.Frame().State
	if st.Rows != 5 || st.HeatmapHue != 90 {
		t.Fatalf("state = %+v, want rows 5 hue 90", st)
	}

	m = update(t, m, SettingsChangedMsg{Err: errors.New("bad json")})
	if m.coord.Frame().State.Rows != 5 {
		t.Fatal("a failed reload must not change the state")
	}
}

func TestModel_OwnSettingsWritesDoNotRevertState(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	m := newTestModel(t, seededStore(t), path)

	m, first := press(t, m, "+")
	m, second := press(t, m, "+")
	if got := m.coord.Frame().State.Rows; got != 9 {
		t.Fatalf("rows = %d, want 9", got)
	}

	// the older write finishes last
	second()
	first()
	onDisk, err := settings.LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if onDisk.Rows != 9 {
		t.Fatalf("rows on disk = %d, want 9", onDisk.Rows)
	}

	m = update(t, m, SettingsChangedMsg{Settings: onDisk})
	stale := onDisk
	stale.Rows = 8
	m = update(t, m, SettingsChangedMsg{Settings: stale})
	if got := m.coord.Frame().State.Rows; got != 9 {
		t.Fatalf("rows after echo of an earlier write = %d, want 9", got)
	}

	external := onDisk
	external.Rows = 4
	m = update(t, m, SettingsChangedMsg{Settings: external})
	if got := m.coord.Frame().State.Rows; got != 4 {
		t.Fatalf("rows after external edit = %d, want 4", got)
	}
}

func TestModel_CycleThemeAppliesGridPreferences(t *testing.T) {
	savedThemes, savedIdx := snapshotThemeState()
	defer restoreThemeState(savedThemes, savedIdx)
	SetThemeByName(lightThemeName)

	path := filepath.Join(t.TempDir(), "settings.json")
	m := newTestModel(t, seededStore(t), path)
	m, cmd := press(t, m, "T")

	th := ActiveTheme()
	if th.Name != "Gruvbox" {
		t.Fatalf("active theme = %q, want Gruvbox", th.Name)
	}
	st := m.coord.Frame().State
	if !st.DarkMode || st.HeatmapHue != th.HeatmapHue {
		t.Fatalf("state dark=%v hue=%v, want dark hue %v", st.DarkMode, st.HeatmapHue, th.HeatmapHue)
	}
	if cmd == nil {
		t.Fatal("expected settings to be persisted")
	}

	m, _ = press(t, m, "T", "T", "T")
	if ActiveTheme().Name != lightThemeName || m.coord.Frame().State.DarkMode {
		t.Fatal("cycling back to Light should leave dark mode")
	}
}

func TestModel_ViewFitsTerminal(t *testing.T) {
	m := newTestModel(t, seededStore(t), "")
	m, _ = press(t, m, "t")

	view := m.View()
	if !strings.Contains(view, "calgrid") {
		t.Fatal("view missing brand")
	}
	if !strings.Contains(view, "Apr") || !strings.Contains(view, "Mar 2025") {
		t.Fatalf("view missing month labels:\n%s", view)
	}
	if !strings.Contains(view, "2025-04-16") {
		t.Fatal("footer should show the selected date")
	}
	if lines := strings.Count(view, "\n") + 1; lines > 30 {
		t.Fatalf("view has %d lines, terminal has 30", lines)
	}

	m, _ = press(t, m, "?")
	if !strings.Contains(m.View(), "jump to today") {
		t.Fatal("help should replace the chart")
	}
}

func TestModel_ViewBeforeSize(t *testing.T) {
	m := NewModel(Options{Source: store.NewMemory(fixedNow), Grid: config.DefaultGrid()})
	if got := m.View(); got != "loading..." {
		t.Fatalf("View() = %q", got)
	}
}
