// Package stats reduces day values into per-column summary statistics.
package stats

import (
	"math"
	"slices"

	"github.com/samber/lo"

	"github.com/janekbaraniewski/calgrid/internal/core"
)

// Aggregate reduces samples to one value under mode. NaN marks a missing
// sample. It returns false when no samples remain after filtering, which
// means "no data" and is distinct from a zero result. Unrecognized modes
// behave as avg. The input slice is never modified.
func Aggregate(samples []float64, mode core.AggregateMode) (float64, bool) {
	valid := lo.Filter(samples, func(v float64, _ int) bool {
		return !math.IsNaN(v)
	})
	if len(valid) == 0 {
		return 0, false
	}

	switch mode {
	case core.AggregateMax:
		return lo.Max(valid), true
	case core.AggregateMin:
		return lo.Min(valid), true
	case core.AggregateMedian:
		return median(valid), true
	default:
		return lo.Sum(valid) / float64(len(valid)), true
	}
}

// AggregateOptional is Aggregate over nullable samples.
func AggregateOptional(samples []*float64, mode core.AggregateMode) (float64, bool) {
	return Aggregate(toSamples(samples), mode)
}

func median(valid []float64) float64 {
	sorted := slices.Clone(valid)
	slices.Sort(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 != 0 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}

func toSamples(values []*float64) []float64 {
	return lo.Map(values, func(v *float64, _ int) float64 {
		if v == nil {
			return math.NaN()
		}
		return *v
	})
}
