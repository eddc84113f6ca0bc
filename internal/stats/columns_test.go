package stats

import (
	"testing"

	"github.com/janekbaraniewski/calgrid/internal/core"
)

func day(v *float64) core.CalendarCell {
	return core.CalendarCell{Day: 1, Value: v, Year: 2025}
}

func pad() core.CalendarCell {
	return core.CalendarCell{IsDisabled: true, Value: core.Float(99)}
}

func TestColumns_BucketsAndPartialLastColumn(t *testing.T) {
	cells := []core.CalendarCell{
		pad(), day(core.Float(2)), day(core.Float(4)),
		day(nil), day(nil), day(nil),
		day(core.Float(10)),
	}

	got := Columns(cells, 3, core.AggregateAvg)
	if len(got) != 3 {
		t.Fatalf("len(columns) = %d, want 3", len(got))
	}
	if !got[0].HasData || got[0].Value != 3 {
		t.Errorf("column 0 = %+v, want {3 true}; padding values must be ignored", got[0])
	}
	if got[1].HasData || got[1].Value != 0 {
		t.Errorf("column 1 = %+v, want {0 false}", got[1])
	}
	if !got[2].HasData || got[2].Value != 10 {
		t.Errorf("column 2 = %+v, want {10 true}", got[2])
	}
}

func TestColumns_DegenerateInputs(t *testing.T) {
	if got := Columns(nil, 7, core.AggregateAvg); got != nil {
		t.Fatalf("Columns(nil) = %v, want nil", got)
	}
	if got := Columns([]core.CalendarCell{day(core.Float(1))}, 0, core.AggregateAvg); got != nil {
		t.Fatalf("Columns(rows=0) = %v, want nil", got)
	}
}

func TestRange(t *testing.T) {
	cols := []core.ColumnStat{{Value: 0}, {Value: 5, HasData: true}, {Value: -2, HasData: true}}
	lo, hi, ok := Range(cols)
	if !ok || lo != -2 || hi != 5 {
		t.Fatalf("Range = (%v, %v, %v), want (-2, 5, true)", lo, hi, ok)
	}
	if _, _, ok := Range([]core.ColumnStat{{Value: 0}}); ok {
		t.Fatal("Range over no-data columns should report false")
	}
}
