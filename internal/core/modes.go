package core

// AggregateMode selects how a column's samples collapse into one value.
type AggregateMode string

const (
	AggregateAvg    AggregateMode = "avg"
	AggregateMedian AggregateMode = "median"
	AggregateMax    AggregateMode = "max"
	AggregateMin    AggregateMode = "min"
)

var ValidAggregateModes = []AggregateMode{
	AggregateAvg,
	AggregateMedian,
	AggregateMax,
	AggregateMin,
}

func (m AggregateMode) Label() string {
	switch m {
	case AggregateMedian:
		return "Median"
	case AggregateMax:
		return "Max"
	case AggregateMin:
		return "Min"
	default:
		return "Average"
	}
}

// Next cycles through the valid modes in declaration order.
func (m AggregateMode) Next() AggregateMode {
	for i, v := range ValidAggregateModes {
		if v == m {
			return ValidAggregateModes[(i+1)%len(ValidAggregateModes)]
		}
	}
	return AggregateAvg
}

// ParseAggregateMode falls back to avg for anything unrecognized.
func ParseAggregateMode(s string) AggregateMode {
	for _, m := range ValidAggregateModes {
		if string(m) == s {
			return m
		}
	}
	return AggregateAvg
}

// GraphType selects how column statistics are drawn.
type GraphType string

const (
	GraphLine GraphType = "line"
	GraphBar  GraphType = "bar"
)

func ParseGraphType(s string) GraphType {
	if GraphType(s) == GraphBar {
		return GraphBar
	}
	return GraphLine
}

// SyncStatus tracks the last interaction with the record source.
type SyncStatus string

const (
	SyncIdle    SyncStatus = "idle"
	SyncWorking SyncStatus = "working"
	SyncError   SyncStatus = "error"
)
