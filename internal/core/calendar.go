package core

import "time"

// Record is one stored day value as returned by a fetch-all call.
// MonthIndex is zero-based (January = 0).
type Record struct {
	Year       int      `json:"year"`
	MonthIndex int      `json:"monthIndex"`
	Day        int      `json:"day"`
	Value      *float64 `json:"value"`
	IsToday    bool     `json:"isToday"`
}

// Date returns the record's calendar date at midnight UTC.
func (r Record) Date() time.Time {
	return time.Date(r.Year, time.Month(r.MonthIndex+1), r.Day, 0, 0, 0, 0, time.UTC)
}

// Key returns the lookup key used when densifying ("year-monthIndex-day").
func (r Record) Key() string {
	return lookupKey(r.Year, r.MonthIndex, r.Day)
}

// CalendarCell is one slot of a dense calendar sequence. Leading padding
// cells have IsDisabled set and carry no date identity (Day == 0, DateKey == "").
type CalendarCell struct {
	Day        int      `json:"day,omitempty"`
	Value      *float64 `json:"value"`
	IsToday    bool     `json:"isToday"`
	IsDisabled bool     `json:"isDisabled"`
	IsSunday   bool     `json:"isSunday"`
	MonthIndex int      `json:"monthIndex"`
	Year       int      `json:"year"`
	DateKey    string   `json:"dateKey,omitempty"`
}

// IsReal reports whether the cell belongs to an actual calendar day.
func (c CalendarCell) IsReal() bool {
	return !c.IsDisabled && c.Day > 0
}

// MonthKey identifies the calendar month the cell belongs to.
func (c CalendarCell) MonthKey() string {
	return lookupKey(c.Year, c.MonthIndex, 0)
}

// ColumnStat is the aggregate of one grid column for one dataset. When
// HasData is false Value is 0 and must not be trusted.
type ColumnStat struct {
	Value   float64 `json:"value"`
	HasData bool    `json:"hasData"`
}

// MonthBound is the occupied-cell region of one calendar month, in visual
// grid coordinates, plus its outline path.
type MonthBound struct {
	StartCol   int    `json:"startCol"`
	StartRow   int    `json:"startRow"`
	EndCol     int    `json:"endCol"`
	EndRow     int    `json:"endRow"`
	Year       int    `json:"year"`
	MonthIndex int    `json:"monthIndex"`
	PathData   string `json:"pathData"`
}

// LayoutResult is the geometry computed for one grid configuration.
// ChartHeight may be negative when the viewport is smaller than the fixed
// chrome; renderers clamp it before use.
type LayoutResult struct {
	GridHeight    float64      `json:"gridHeight"`
	ChartHeight   float64      `json:"chartHeight"`
	CenterOffset  float64      `json:"centerOffset"`
	HiddenColumns int          `json:"hiddenColumns"`
	XShift        float64      `json:"xShift"`
	TotalColumns  int          `json:"totalColumns"`
	TotalWidth    float64      `json:"totalWidth"`
	MonthBounds   []MonthBound `json:"monthBounds"`
}

// VisibleColumns is the number of columns drawn after hidden leading
// columns are dropped.
func (l LayoutResult) VisibleColumns() int {
	n := l.TotalColumns - l.HiddenColumns
	if n < 0 {
		return 0
	}
	return n
}

// DatasetStyle holds the visual configuration of a dataset.
type DatasetStyle struct {
	Color       string        `json:"color"`
	Hue         float64       `json:"hue"`
	StrokeWidth float64       `json:"strokeWidth"`
	Mode        AggregateMode `json:"mode,omitempty"` // empty: use the view's graph mode
	Kind        GraphType     `json:"kind,omitempty"` // empty: use the view's graph type
	Markers     bool          `json:"markers"`
}

// Dataset is a named overlay series over the shared calendar grid.
type Dataset struct {
	ID      string         `json:"id"`
	Name    string         `json:"name"`
	Style   DatasetStyle   `json:"style"`
	Visible bool           `json:"visible"`
	Cells   []CalendarCell `json:"cells"`
}

// FirstRealIndex returns the flat index of the first non-padding cell, or -1.
func FirstRealIndex(cells []CalendarCell) int {
	for i, c := range cells {
		if c.IsReal() {
			return i
		}
	}
	return -1
}
