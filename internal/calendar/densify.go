// Package calendar turns sparse date-keyed records into dense calendar
// sequences and manages the datasets drawn over the grid.
package calendar

import (
	"slices"
	"time"

	"github.com/janekbaraniewski/calgrid/internal/core"
)

// Sequence is a dense calendar: leading padding cells, then one cell per day.
type Sequence struct {
	Cells      []core.CalendarCell
	TodayIndex int // -1 when today falls outside the span
}

// Densify expands records into a sequence spanning whole months from the
// earliest record's month to the latest record's month. Weeks start on
// Monday. Records are not reordered; for duplicate dates the last one wins.
// Records naming a date that does not exist, such as February 30th, are
// skipped.
func Densify(records []core.Record, now time.Time) Sequence {
	today := dateOf(now)

	records = slices.DeleteFunc(slices.Clone(records), func(r core.Record) bool {
		return !realDate(r)
	})
	if len(records) == 0 {
		return Sequence{
			Cells:      []core.CalendarCell{dayCell(today, core.Float(0), true)},
			TodayIndex: 0,
		}
	}

	values := make(map[string]*float64, len(records))
	for _, r := range records {
		values[r.Key()] = r.Value
	}

	slices.SortStableFunc(records, func(a, b core.Record) int {
		return a.Date().Compare(b.Date())
	})
	first, last := records[0].Date(), records[len(records)-1].Date()

	start := time.Date(first.Year(), first.Month(), 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(last.Year(), last.Month()+1, 0, 0, 0, 0, 0, time.UTC)
	days := int(end.Sub(start).Hours()/24) + 1
	pad := (int(start.Weekday()) + 6) % 7

	seq := Sequence{
		Cells:      make([]core.CalendarCell, 0, pad+days),
		TodayIndex: -1,
	}
	for range pad {
		seq.Cells = append(seq.Cells, core.CalendarCell{IsDisabled: true})
	}
	for i := range days {
		d := start.AddDate(0, 0, i)
		isToday := d.Equal(today)
		if isToday {
			seq.TodayIndex = len(seq.Cells)
		}
		key := core.Record{Year: d.Year(), MonthIndex: int(d.Month()) - 1, Day: d.Day()}.Key()
		seq.Cells = append(seq.Cells, dayCell(d, values[key], isToday))
	}
	return seq
}

// realDate reports whether r's fields survive normalization by time.Date.
func realDate(r core.Record) bool {
	d := r.Date()
	return d.Year() == r.Year && int(d.Month())-1 == r.MonthIndex && d.Day() == r.Day
}

func dayCell(d time.Time, value *float64, isToday bool) core.CalendarCell {
	return core.CalendarCell{
		Day:        d.Day(),
		Value:      value,
		IsToday:    isToday,
		IsSunday:   d.Weekday() == time.Sunday,
		MonthIndex: int(d.Month()) - 1,
		Year:       d.Year(),
		DateKey:    d.Format(core.DateKeyLayout),
	}
}

// dateOf returns now's calendar date (in now's location) as midnight UTC.
func dateOf(now time.Time) time.Time {
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}
