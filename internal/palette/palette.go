// Package palette maps day values and months to display colors.
package palette

import (
	"github.com/lucasb-eyer/go-colorful"
)

const (
	LightEmpty = "#ffffff"
	DarkEmpty  = "#1e1e2e"

	DefaultHue = 205
)

// Normalize maps v into [0,1] relative to [minV,maxV]. A degenerate range
// yields 1 for values at or above maxV and 0 otherwise.
func Normalize(v, minV, maxV float64) float64 {
	if maxV <= minV {
		if v >= maxV {
			return 1
		}
		return 0
	}
	n := (v - minV) / (maxV - minV)
	return max(0, min(1, n))
}

// Heatmap returns the hex color of a cell holding value. Higher values
// become more saturated and darker in light mode, brighter in dark mode.
func Heatmap(value *float64, minV, maxV float64, dark bool, hue float64) string {
	if value == nil {
		if dark {
			return DarkEmpty
		}
		return LightEmpty
	}
	n := Normalize(*value, minV, maxV)
	lightness := 1 - n*0.6
	if dark {
		lightness = 0.15 + n*0.45
	}
	return colorful.Hsl(hue, n, lightness).Clamped().Hex()
}

// MonthBackground is the pastel tint of a zero-based month.
func MonthBackground(monthIndex int) string {
	return colorful.Hsl(float64(monthIndex*30), 0.4, 0.95).Hex()
}

// Blend mixes two hex colors in Lab space; t=0 gives a, t=1 gives b.
// Unparseable input returns a unchanged.
func Blend(a, b string, t float64) string {
	ca, err := colorful.Hex(a)
	if err != nil {
		return a
	}
	cb, err := colorful.Hex(b)
	if err != nil {
		return a
	}
	return ca.BlendLab(cb, max(0, min(1, t))).Clamped().Hex()
}

// Foreground picks black or white text for legibility on bg.
func Foreground(bg string) string {
	c, err := colorful.Hex(bg)
	if err != nil {
		return "#000000"
	}
	_, _, l := c.Hsl()
	if l > 0.55 {
		return "#000000"
	}
	return "#ffffff"
}
