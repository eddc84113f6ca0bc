package stats

import "github.com/janekbaraniewski/calgrid/internal/core"

// Columns buckets cells into columns of rows cells each and aggregates every
// column's non-null real values. A column that collects nothing yields
// {0, false}. The final column may be partial.
func Columns(cells []core.CalendarCell, rows int, mode core.AggregateMode) []core.ColumnStat {
	if rows <= 0 || len(cells) == 0 {
		return nil
	}

	out := make([]core.ColumnStat, 0, (len(cells)+rows-1)/rows)
	acc := make([]float64, 0, rows)
	for i, c := range cells {
		if c.IsReal() && c.Value != nil {
			acc = append(acc, *c.Value)
		}
		if (i+1)%rows == 0 || i == len(cells)-1 {
			v, ok := Aggregate(acc, mode)
			out = append(out, core.ColumnStat{Value: v, HasData: ok})
			acc = acc[:0]
		}
	}
	return out
}

// Range returns the min and max over columns that have data.
func Range(columns []core.ColumnStat) (minV, maxV float64, ok bool) {
	for _, c := range columns {
		if !c.HasData {
			continue
		}
		if !ok {
			minV, maxV, ok = c.Value, c.Value, true
			continue
		}
		minV = min(minV, c.Value)
		maxV = max(maxV, c.Value)
	}
	return minV, maxV, ok
}
