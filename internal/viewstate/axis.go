package viewstate

import (
	"math"

	"github.com/janekbaraniewski/calgrid/internal/core"
	"github.com/janekbaraniewski/calgrid/internal/stats"
)

// Padding is the vertical inset of the graph inside the chart area.
type Padding struct {
	Top    float64 `json:"top"`
	Bottom float64 `json:"bottom"`
}

// Range is a closed numeric interval.
type Range struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// DataRange spans the HasData column values of every series, or [0,100]
// when there are none.
func DataRange(series []Series) Range {
	r := Range{}
	ok := false
	for _, s := range series {
		lo, hi, has := stats.Range(s.Columns)
		if !has {
			continue
		}
		if !ok {
			r, ok = Range{Min: lo, Max: hi}, true
			continue
		}
		r.Min = min(r.Min, lo)
		r.Max = max(r.Max, hi)
	}
	if !ok {
		return Range{Min: 0, Max: 100}
	}
	return r
}

// AxisRange resolves the drawn Y range. Each manual bound overrides its side
// independently; a flat data range is widened by 10 on both sides.
func AxisRange(data Range, manualMin, manualMax *float64) Range {
	axis := data
	if data.Min == data.Max {
		axis = Range{Min: data.Min - 10, Max: data.Max + 10}
	}
	if manualMin != nil {
		axis.Min = *manualMin
	}
	if manualMax != nil {
		axis.Max = *manualMax
	}
	return axis
}

// MapValueToPixel maps value onto the chart's vertical pixel axis, where
// y grows downward. The result is clamped to [pad.Top, chartHeight-pad.Bottom].
// A nil value or an empty axis maps to the baseline.
func MapValueToPixel(value *float64, axisMin, axisMax, chartHeight float64, pad Padding) float64 {
	baseline := chartHeight - pad.Bottom
	span := axisMax - axisMin
	if value == nil || span <= 0 || math.IsNaN(*value) {
		return baseline
	}
	usable := chartHeight - pad.Top - pad.Bottom
	y := baseline - (*value-axisMin)/span*usable
	if usable <= 0 {
		return baseline
	}
	return max(pad.Top, min(baseline, y))
}

// ClampRows rounds v to the nearest integer within [minRows, maxRows].
func ClampRows(v float64, minRows, maxRows int) int {
	if math.IsNaN(v) {
		return minRows
	}
	r := int(math.Round(max(float64(minRows), min(float64(maxRows), v))))
	return max(minRows, min(maxRows, r))
}

func columnValue(c core.ColumnStat) *float64 {
	if !c.HasData {
		return nil
	}
	return core.Float(c.Value)
}
