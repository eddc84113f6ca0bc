package settings

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/janekbaraniewski/calgrid/internal/config"
	"github.com/janekbaraniewski/calgrid/internal/core"
)

// Settings is the persisted view preference blob.
type Settings struct {
	Rows             int                `json:"rows"`
	GraphMode        core.AggregateMode `json:"graphMode"`
	GraphType        core.GraphType     `json:"graphType"`
	ShowGraph        bool               `json:"showGraph"`
	ShowHeatmap      bool               `json:"showHeatmap"`
	ShowMonthLines   bool               `json:"showMonthLines"`
	DarkMode         bool               `json:"darkMode"`
	HeatmapHue       float64            `json:"heatmapHue"`
	HeatmapDatasetID string             `json:"heatmapDatasetId,omitempty"`
	ManualMin        *float64           `json:"manualMin"`
	ManualMax        *float64           `json:"manualMax"`
}

func DefaultSettings() Settings {
	return Settings{
		Rows:           7,
		GraphMode:      core.AggregateAvg,
		GraphType:      core.GraphLine,
		ShowGraph:      true,
		ShowHeatmap:    true,
		ShowMonthLines: true,
		DarkMode:       false,
		HeatmapHue:     205,
	}
}

func Path() string {
	return filepath.Join(config.ConfigDir(), "settings.json")
}

func Load() (Settings, error) {
	return LoadFrom(Path())
}

func LoadFrom(path string) (Settings, error) {
	s := DefaultSettings()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return s, fmt.Errorf("reading settings: %w", err)
	}

	if err := json.Unmarshal(data, &s); err != nil {
		return DefaultSettings(), fmt.Errorf("parsing settings %s: %w", path, err)
	}

	return s.Normalize(), nil
}

// Normalize resets invalid fields to their defaults.
func (s Settings) Normalize() Settings {
	def := DefaultSettings()
	if s.Rows <= 0 {
		s.Rows = def.Rows
	}
	if core.ParseAggregateMode(string(s.GraphMode)) != s.GraphMode {
		s.GraphMode = def.GraphMode
	}
	if core.ParseGraphType(string(s.GraphType)) != s.GraphType {
		s.GraphType = def.GraphType
	}
	if s.HeatmapHue < 0 || s.HeatmapHue >= 360 {
		s.HeatmapHue = def.HeatmapHue
	}
	return s
}

// Equal compares by value, including the manual axis bounds.
func (s Settings) Equal(o Settings) bool {
	sameBound := func(a, b *float64) bool {
		if a == nil || b == nil {
			return a == b
		}
		return *a == *b
	}
	if !sameBound(s.ManualMin, o.ManualMin) || !sameBound(s.ManualMax, o.ManualMax) {
		return false
	}
	s.ManualMin, s.ManualMax, o.ManualMin, o.ManualMax = nil, nil, nil, nil
	return s == o
}

func Save(s Settings) error {
	return SaveTo(Path(), s)
}

func SaveTo(path string, s Settings) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating settings dir: %w", err)
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling settings: %w", err)
	}
	data = append(data, '\n')

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing settings: %w", err)
	}

	return nil
}

// Remove deletes the settings file. A missing file is not an error.
func Remove(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing settings: %w", err)
	}
	return nil
}
