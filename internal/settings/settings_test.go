package settings

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/janekbaraniewski/calgrid/internal/core"
)

func TestDefaultSettings(t *testing.T) {
	s := DefaultSettings()
	if s.Rows != 7 || s.GraphMode != core.AggregateAvg || s.GraphType != core.GraphLine {
		t.Errorf("unexpected defaults: %+v", s)
	}
	if !s.ShowGraph || !s.ShowHeatmap || !s.ShowMonthLines || s.DarkMode {
		t.Errorf("unexpected toggles: %+v", s)
	}
	if s.HeatmapHue != 205 {
		t.Errorf("expected hue 205, got %v", s.HeatmapHue)
	}
	if s.ManualMin != nil || s.ManualMax != nil {
		t.Error("expected no axis overrides by default")
	}
}

func TestLoadFrom_MissingFile(t *testing.T) {
	s, err := LoadFrom(filepath.Join(t.TempDir(), "nonexistent.json"))
	if err != nil {
		t.Fatalf("expected no error for missing file, got: %v", err)
	}
	if s.Rows != 7 {
		t.Errorf("expected default rows, got %d", s.Rows)
	}
}

func TestLoadFrom_ValidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")

	data := []byte(`{"rows":12,"graphMode":"median","graphType":"bar","showGraph":false,"darkMode":true,"heatmapHue":35,"heatmapDatasetId":"demo","manualMin":-5,"manualMax":null}`)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	s, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Rows != 12 || s.GraphMode != core.AggregateMedian || s.GraphType != core.GraphBar {
		t.Errorf("unexpected values: %+v", s)
	}
	if s.ShowGraph || !s.DarkMode || s.HeatmapHue != 35 || s.HeatmapDatasetID != "demo" {
		t.Errorf("unexpected toggles: %+v", s)
	}
	if !s.ShowHeatmap || !s.ShowMonthLines {
		t.Error("missing keys should keep their defaults")
	}
	if s.ManualMin == nil || *s.ManualMin != -5 || s.ManualMax != nil {
		t.Errorf("unexpected overrides: %v %v", s.ManualMin, s.ManualMax)
	}
}

func TestLoadFrom_InvalidJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")

	if err := os.WriteFile(path, []byte(`{not json`), 0o644); err != nil {
		t.Fatal(err)
	}

	s, err := LoadFrom(path)
	if err == nil {
		t.Fatal("expected error for invalid JSON")
	}
	if s != DefaultSettings() {
		t.Errorf("expected defaults on error, got %+v", s)
	}
}

func TestLoadFrom_InvalidEnumsFallBackToDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")

	data := []byte(`{"rows":0,"graphMode":"p99","graphType":"pie","heatmapHue":720,"unknownKey":1}`)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	s, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Rows != 7 || s.GraphMode != core.AggregateAvg || s.GraphType != core.GraphLine || s.HeatmapHue != 205 {
		t.Errorf("expected defaults for invalid values, got %+v", s)
	}
}

func TestSaveAndLoad_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "settings.json")

	original := DefaultSettings()
	original.Rows = 3
	original.GraphMode = core.AggregateMax
	original.ManualMax = core.Float(250)

	if err := SaveTo(path, original); err != nil {
		t.Fatalf("save error: %v", err)
	}

	loaded, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("load error: %v", err)
	}
	if loaded.Rows != 3 || loaded.GraphMode != core.AggregateMax {
		t.Errorf("round trip mismatch: %+v", loaded)
	}
	if loaded.ManualMax == nil || *loaded.ManualMax != 250 {
		t.Errorf("manualMax = %v", loaded.ManualMax)
	}
}

func TestRemove(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	if err := SaveTo(path, DefaultSettings()); err != nil {
		t.Fatal(err)
	}
	if err := Remove(path); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := Remove(path); err != nil {
		t.Fatalf("second remove should be a no-op: %v", err)
	}
}

func TestWatch_ReloadsOnWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	if err := SaveTo(path, DefaultSettings()); err != nil {
		t.Fatal(err)
	}
	waitForReload(t, path)
}

func TestWatch_CreatesMissingConfigDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fresh", "calgrid", "settings.json")
	waitForReload(t, path)
}

// waitForReload starts Watch on path and rewrites the file until the
// watcher reports the new rows value.
func waitForReload(t *testing.T, path string) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan Settings, 8)
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, path, func(s Settings, err error) {
			if err != nil {
				return
			}
			select {
			case got <- s:
			default:
			}
		})
	}()

	deadline := time.After(5 * time.Second)
	updated := DefaultSettings()
	updated.Rows = 11
	for {
		select {
		case err := <-done:
			t.Fatalf("Watch returned early: %v", err)
		case s := <-got:
			if s.Rows == 11 {
				cancel()
				if err := <-done; err != nil {
					t.Fatalf("Watch returned %v", err)
				}
				return
			}
		case <-time.After(50 * time.Millisecond):
			// re-write until the watcher is registered
			if err := SaveTo(path, updated); err != nil {
				t.Fatal(err)
			}
		case <-deadline:
			t.Fatal("timed out waiting for settings reload")
		}
	}
}

func TestEqualComparesBoundsByValue(t *testing.T) {
	a := DefaultSettings()
	b := DefaultSettings()
	lo1, lo2 := 5.0, 5.0
	a.ManualMin, b.ManualMin = &lo1, &lo2
	if !a.Equal(b) {
		t.Fatal("settings with equal bounds behind different pointers should be equal")
	}
	b.ManualMin = nil
	if a.Equal(b) {
		t.Fatal("nil and set bound should differ")
	}
	b.ManualMin = &lo2
	b.Rows = 9
	if a.Equal(b) {
		t.Fatal("different rows should differ")
	}
}
