package tui

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/lucasb-eyer/go-colorful"
)

// Theme colors the dashboard chrome and carries the grid preferences that
// come with it: whether cells use the dark heatmap ramp and which hue.
//
// Theme files live in <config dir>/themes/*.json. Only "name" is required;
// unset colors are taken from Light, or from Catppuccin Mocha when "dark" is
// true. Example: {"name":"Forest","dark":true,"heatmap_hue":120,"accent":"#8FBC8F"}.
type Theme struct {
	Name       string  `json:"name"`
	Icon       string  `json:"icon"`
	Dark       bool    `json:"dark"`
	HeatmapHue float64 `json:"heatmap_hue"`

	Base     lipgloss.Color `json:"base"`
	Surface0 lipgloss.Color `json:"surface0"`
	Surface1 lipgloss.Color `json:"surface1"`

	Text    lipgloss.Color `json:"text"`
	Subtext lipgloss.Color `json:"subtext"`
	Dim     lipgloss.Color `json:"dim"`

	Accent lipgloss.Color `json:"accent"`
	Blue   lipgloss.Color `json:"blue"`
	Green  lipgloss.Color `json:"green"`
	Yellow lipgloss.Color `json:"yellow"`
	Red    lipgloss.Color `json:"red"`
}

const (
	lightThemeName = "Light"
	darkThemeName  = "Catppuccin Mocha"
)

var (
	themeMu        sync.RWMutex
	themes         []Theme
	activeThemeIdx int
)

func init() {
	themes = builtinThemes()
	activeThemeIdx = indexOfTheme(themes, lightThemeName)
	applyTheme(themes[activeThemeIdx])
}

func builtinThemes() []Theme {
	return []Theme{
		{
			Name: lightThemeName, Icon: "☀", HeatmapHue: 205,
			Base: "#FFFFFF", Surface0: "#F2F2F2", Surface1: "#E0E0E0",
			Text: "#202124", Subtext: "#5F6368", Dim: "#9AA0A6",
			Accent: "#00639B", Blue: "#1A73E8", Green: "#188038",
			Yellow: "#B06000", Red: "#D93025",
		},
		{
			Name: "Gruvbox", Icon: "🌻", Dark: true, HeatmapHue: 40,
			Base: "#282828", Surface0: "#3C3836", Surface1: "#504945",
			Text: "#EBDBB2", Subtext: "#D5C4A1", Dim: "#665C54",
			Accent: "#D3869B", Blue: "#83A598", Green: "#B8BB26",
			Yellow: "#FABD2F", Red: "#FB4934",
		},
		{
			Name: darkThemeName, Icon: "🐱", Dark: true, HeatmapHue: 267,
			Base: "#1E1E2E", Surface0: "#313244", Surface1: "#45475A",
			Text: "#CDD6F4", Subtext: "#A6ADC8", Dim: "#585B70",
			Accent: "#CBA6F7", Blue: "#89B4FA", Green: "#A6E3A1",
			Yellow: "#F9E2AF", Red: "#F38BA8",
		},
		{
			Name: "Nord", Icon: "❄", Dark: true, HeatmapHue: 210,
			Base: "#2E3440", Surface0: "#3B4252", Surface1: "#434C5E",
			Text: "#ECEFF4", Subtext: "#D8DEE9", Dim: "#4C566A",
			Accent: "#B48EAD", Blue: "#81A1C1", Green: "#A3BE8C",
			Yellow: "#EBCB8B", Red: "#BF616A",
		},
	}
}

// indexOfTheme matches names case-insensitively and falls back to 0.
func indexOfTheme(all []Theme, name string) int {
	needle := strings.TrimSpace(name)
	if i := slices.IndexFunc(all, func(t Theme) bool { return strings.EqualFold(t.Name, needle) }); i >= 0 {
		return i
	}
	return 0
}

// colorTokens lists every chrome color of t by its JSON name.
func (t *Theme) colorTokens() []struct {
	name string
	c    *lipgloss.Color
} {
	return []struct {
		name string
		c    *lipgloss.Color
	}{
		{"base", &t.Base}, {"surface0", &t.Surface0}, {"surface1", &t.Surface1},
		{"text", &t.Text}, {"subtext", &t.Subtext}, {"dim", &t.Dim},
		{"accent", &t.Accent}, {"blue", &t.Blue}, {"green", &t.Green},
		{"yellow", &t.Yellow}, {"red", &t.Red},
	}
}

// inherit fills unset colors and hue from parent and checks that every
// color parses as hex.
func (t Theme) inherit(parent Theme) (Theme, error) {
	t.Name = strings.TrimSpace(t.Name)
	if t.Name == "" {
		return t, errors.New("missing name")
	}
	if t.Icon = strings.TrimSpace(t.Icon); t.Icon == "" {
		t.Icon = "🎨"
	}
	if t.HeatmapHue <= 0 || t.HeatmapHue >= 360 {
		t.HeatmapHue = parent.HeatmapHue
	}

	fallback := parent.colorTokens()
	var bad []string
	for i, tok := range t.colorTokens() {
		*tok.c = lipgloss.Color(strings.TrimSpace(string(*tok.c)))
		if *tok.c == "" {
			*tok.c = *fallback[i].c
			continue
		}
		if _, err := colorful.Hex(string(*tok.c)); err != nil {
			bad = append(bad, tok.name)
		}
	}
	if len(bad) > 0 {
		return t, fmt.Errorf("invalid hex colors: %s", strings.Join(bad, ", "))
	}
	return t, nil
}

// readThemeFiles loads <dir>/*.json in name order. A missing dir yields no
// themes; broken files are skipped and reported together.
func readThemeFiles(dir string, builtins []Theme) ([]Theme, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return nil, fmt.Errorf("tui: list themes in %s: %w", dir, err)
	}
	slices.SortFunc(paths, func(a, b string) int {
		return strings.Compare(strings.ToLower(a), strings.ToLower(b))
	})

	light := builtins[indexOfTheme(builtins, lightThemeName)]
	dark := builtins[indexOfTheme(builtins, darkThemeName)]

	var (
		out  []Theme
		errs []error
	)
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			errs = append(errs, fmt.Errorf("tui: read theme %s: %w", path, err))
			continue
		}
		var t Theme
		if err := json.Unmarshal(data, &t); err != nil {
			errs = append(errs, fmt.Errorf("tui: parse theme %s: %w", path, err))
			continue
		}
		parent := light
		if t.Dark {
			parent = dark
		}
		if t, err = t.inherit(parent); err != nil {
			errs = append(errs, fmt.Errorf("tui: theme %s: %w", path, err))
			continue
		}
		out = append(out, t)
	}
	return out, errors.Join(errs...)
}

// mergeThemes appends extra to base; a theme named like an existing one
// replaces it in place.
func mergeThemes(base, extra []Theme) []Theme {
	merged := slices.Clone(base)
	for _, t := range extra {
		if i := slices.IndexFunc(merged, func(b Theme) bool { return strings.EqualFold(b.Name, t.Name) }); i >= 0 {
			merged[i] = t
			continue
		}
		merged = append(merged, t)
	}
	return merged
}

// LoadThemes rebuilds the catalog from the built-ins plus theme files in
// <configDir>/themes, keeping the active theme when it still exists.
func LoadThemes(configDir string) error {
	builtins := builtinThemes()
	var (
		extra []Theme
		err   error
	)
	if strings.TrimSpace(configDir) != "" {
		extra, err = readThemeFiles(filepath.Join(configDir, "themes"), builtins)
	}

	themeMu.Lock()
	defer themeMu.Unlock()
	current := themes[activeThemeIdx].Name
	themes = mergeThemes(builtins, extra)
	activeThemeIdx = indexOfTheme(themes, current)
	applyTheme(themes[activeThemeIdx])
	return err
}

func AvailableThemes() []Theme {
	themeMu.RLock()
	defer themeMu.RUnlock()
	return slices.Clone(themes)
}

func ActiveTheme() Theme {
	themeMu.RLock()
	defer themeMu.RUnlock()
	return themes[activeThemeIdx]
}

// CycleTheme activates the next theme and returns it.
func CycleTheme() Theme {
	themeMu.Lock()
	defer themeMu.Unlock()
	activeThemeIdx = (activeThemeIdx + 1) % len(themes)
	applyTheme(themes[activeThemeIdx])
	return themes[activeThemeIdx]
}

func ThemeName() string {
	t := ActiveTheme()
	return t.Icon + " " + t.Name
}

// SetThemeByName activates name, ignoring case. It reports false and keeps
// the current theme when no theme matches.
func SetThemeByName(name string) bool {
	themeMu.Lock()
	defer themeMu.Unlock()
	needle := strings.TrimSpace(name)
	i := slices.IndexFunc(themes, func(t Theme) bool { return strings.EqualFold(t.Name, needle) })
	if i < 0 {
		return false
	}
	activeThemeIdx = i
	applyTheme(themes[i])
	return true
}
