// Package utils holds small helpers shared across layers.  clock.go contains
// the calendar arithmetic used by the booking rules: weekday detection,
// "HH:MM" parsing and same-day comparisons.  Calendar dates are represented
// as midnight UTC of the booked day so that weekday and day equality never
// depend on the zone the server runs in.
package utils

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrMalformedTime is matched by every MalformedTimeError.
var ErrMalformedTime = errors.New("malformed time of day")

// MalformedTimeError reports a time-of-day string that is not "HH:MM".
type MalformedTimeError struct {
	Value string
}

func (e *MalformedTimeError) Error() string {
	return fmt.Sprintf("malformed time of day %q, expected HH:MM", e.Value)
}

func (e *MalformedTimeError) Unwrap() error { return ErrMalformedTime }

// Clock abstracts the current instant so rules that depend on "now" can be
// tested deterministically.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock in the restaurant's location.
type SystemClock struct {
	Location *time.Location
}

// Now returns the current time in the configured location (UTC when unset).
func (c SystemClock) Now() time.Time {
	if c.Location == nil {
		return time.Now().UTC()
	}
	return time.Now().In(c.Location)
}

// FixedClock always returns the same instant.
type FixedClock struct {
	T time.Time
}

func (c FixedClock) Now() time.Time { return c.T }

// CalendarDay reduces t to midnight UTC of the year/month/day t shows in its
// own location.
func CalendarDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseCalendarDate accepts "2006-01-02" or an RFC3339 timestamp and returns
// the calendar day it names.
func ParseCalendarDate(raw string) (time.Time, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, errors.New("date is empty")
	}
	if d, err := time.Parse("2006-01-02", s); err == nil {
		return d, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", raw)
	}
	return CalendarDay(t), nil
}

// WeekdayOf returns the day of the week of a calendar date.
func WeekdayOf(date time.Time) time.Weekday {
	return CalendarDay(date).Weekday()
}

// IsWeekend reports whether date falls on Saturday or Sunday.
func IsWeekend(date time.Time) bool {
	switch WeekdayOf(date) {
	case time.Saturday, time.Sunday:
		return true
	}
	return false
}

// MinutesSinceMidnight converts "HH:MM" into minutes in [0,1439].
func MinutesSinceMidnight(hhmm string) (int, error) {
	s := strings.TrimSpace(hhmm)
	if len(s) != 5 || s[2] != ':' {
		return 0, &MalformedTimeError{Value: hhmm}
	}
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, &MalformedTimeError{Value: hhmm}
	}
	return t.Hour()*60 + t.Minute(), nil
}

// FormatMinutes renders minutes since midnight as "HH:MM".
func FormatMinutes(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// IsSameCalendarDay ignores the time of day and compares year, month and day.
func IsSameCalendarDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// NowMinutesSinceMidnight returns the clock's current time of day in minutes.
func NowMinutesSinceMidnight(clock Clock) int {
	now := clock.Now()
	return now.Hour()*60 + now.Minute()
}
