package core

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DateKeyLayout is the wire format for date keys ("yyyy-MM-dd").
const DateKeyLayout = "2006-01-02"

var ErrInvalidDateKey = errors.New("invalid date key")

// DateKey formats a zero-based month date as "yyyy-MM-dd".
func DateKey(year, monthIndex, day int) string {
	return fmt.Sprintf("%04d-%02d-%02d", year, monthIndex+1, day)
}

// ParseDateKey parses a "yyyy-MM-dd" key into a midnight UTC time.
func ParseDateKey(key string) (time.Time, error) {
	t, err := time.Parse(DateKeyLayout, strings.TrimSpace(key))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w %q", ErrInvalidDateKey, key)
	}
	return t, nil
}

// RecordFromDateKey builds a record for the given key, flagging it as today
// when it matches today's date key.
func RecordFromDateKey(key string, value *float64, today string) (Record, error) {
	t, err := ParseDateKey(key)
	if err != nil {
		return Record{}, err
	}
	return Record{
		Year:       t.Year(),
		MonthIndex: int(t.Month()) - 1,
		Day:        t.Day(),
		Value:      value,
		IsToday:    strings.TrimSpace(key) == today,
	}, nil
}

// TodayKey returns the date key of now in now's location.
func TodayKey(now time.Time) string {
	return DateKey(now.Year(), int(now.Month())-1, now.Day())
}

// FormatValue renders an optional value the way stores persist it:
// "" for null, otherwise the shortest decimal form.
func FormatValue(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

// ParseValue is the inverse of FormatValue.
func ParseValue(s string) (*float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, fmt.Errorf("parse value %q: %w", s, err)
	}
	return &f, nil
}

// Float returns a pointer to v.
func Float(v float64) *float64 {
	return &v
}

func lookupKey(year, monthIndex, day int) string {
	return strconv.Itoa(year) + "-" + strconv.Itoa(monthIndex) + "-" + strconv.Itoa(day)
}
