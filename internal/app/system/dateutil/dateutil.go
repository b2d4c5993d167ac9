// Package dateutil converts between calendar dates in the program time zone
// and the UTC instants stored in Mongo.
//
// A calendar day is stored as the UTC instant of its local midnight, plus a
// "YYYY-MM-DD" key computed in the program zone. Keys are what queries and
// unique indexes use; the instant is kept for sorting and range scans.
package dateutil

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	KeyLayout   = "2006-01-02"
	MonthLayout = "2006-01"
)

// InputLayouts are the date formats accepted in CSV imports and query params.
var InputLayouts = []string{"2006-01-02", "02/01/2006", "02.01.2006"}

var (
	ErrBadDate  = errors.New("date must be YYYY-MM-DD, DD/MM/YYYY or DD.MM.YYYY")
	ErrBadMonth = errors.New("month must be YYYY-MM")
	ErrBadClock = errors.New("time of day must be HH:MM")
)

// LoadLocation loads name, treating "" as UTC.
func LoadLocation(name string) (*time.Location, error) {
	if strings.TrimSpace(name) == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(strings.TrimSpace(name))
}

// ParseDate parses s in any InputLayouts format and returns local midnight in loc.
// Single-digit days and months ("5/3/2024") are accepted.
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, ErrBadDate
	}
	for _, layout := range []string{"2006-01-02", "2/1/2006", "2.1.2006"} {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrBadDate, s)
}

// ParseKey parses a "YYYY-MM-DD" key into local midnight in loc.
func ParseKey(key string, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation(KeyLayout, strings.TrimSpace(key), loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrBadDate, key)
	}
	return t, nil
}

// Key formats t as a date key in loc.
func Key(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(KeyLayout)
}

// MonthKey formats t as a month key in loc.
func MonthKey(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(MonthLayout)
}

// Midnight returns local midnight in loc of the day containing t.
func Midnight(t time.Time, loc *time.Location) time.Time {
	l := t.In(loc)
	return time.Date(l.Year(), l.Month(), l.Day(), 0, 0, 0, 0, loc)
}

// IsMidnight reports whether t is exactly local midnight in loc.
func IsMidnight(t time.Time, loc *time.Location) bool {
	return Midnight(t, loc).Equal(t)
}

// MonthRange parses "YYYY-MM" and returns [first day, first day of next month)
// as local midnights in loc.
func MonthRange(month string, loc *time.Location) (from, to time.Time, err error) {
	start, err := time.ParseInLocation(MonthLayout, strings.TrimSpace(month), loc)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: %q", ErrBadMonth, month)
	}
	return start, start.AddDate(0, 1, 0), nil
}

// AddDays moves a local midnight by n calendar days, staying on midnight
// across DST changes.
func AddDays(day time.Time, n int, loc *time.Location) time.Time {
	l := day.In(loc)
	return time.Date(l.Year(), l.Month(), l.Day()+n, 0, 0, 0, 0, loc)
}

// NormalizeShifted maps a stored instant to the calendar day it was meant to
// represent. Instants at or after 12:00 local are a previous-midnight that
// drifted backwards through a zone offset and are rounded forward to the
// next day; earlier instants belong to their own day.
func NormalizeShifted(t time.Time, loc *time.Location) (key string, midnight time.Time) {
	day := Midnight(t, loc)
	if t.In(loc).Hour() >= 12 {
		day = AddDays(day, 1, loc)
	}
	return day.Format(KeyLayout), day
}

// Clock is a time of day.
type Clock struct {
	Hour, Minute int
}

// ParseClock parses "HH:MM" (24-hour).
func ParseClock(s string) (Clock, error) {
	h, m, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return Clock{}, fmt.Errorf("%w: %q", ErrBadClock, s)
	}
	hh, err1 := strconv.Atoi(h)
	mm, err2 := strconv.Atoi(m)
	if err1 != nil || err2 != nil || hh < 0 || hh > 23 || mm < 0 || mm > 59 || len(m) != 2 {
		return Clock{}, fmt.Errorf("%w: %q", ErrBadClock, s)
	}
	return Clock{Hour: hh, Minute: mm}, nil
}

// On returns the instant of c on the local day containing day.
func (c Clock) On(day time.Time, loc *time.Location) time.Time {
	l := day.In(loc)
	return time.Date(l.Year(), l.Month(), l.Day(), c.Hour, c.Minute, 0, 0, loc)
}

func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}
