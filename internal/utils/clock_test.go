package utils

import (
	"errors"
	"testing"
	"time"
)

func TestMinutesSinceMidnight(t *testing.T) {
	cases := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"00:00", 0, false},
		{"12:00", 720, false},
		{"13:15", 795, false},
		{"23:59", 1439, false},
		{" 18:30 ", 1110, false},
		{"24:00", 0, true},
		{"12:60", 0, true},
		{"1:30", 0, true},
		{"12h30", 0, true},
		{"", 0, true},
		{"ab:cd", 0, true},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			got, err := MinutesSinceMidnight(tc.in)
			if tc.wantErr {
				if !errors.Is(err, ErrMalformedTime) {
					t.Fatalf("expected ErrMalformedTime, got %v", err)
				}
				var mte *MalformedTimeError
				if !errors.As(err, &mte) || mte.Value != tc.in {
					t.Fatalf("expected MalformedTimeError carrying %q, got %v", tc.in, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Fatalf("got %d want %d", got, tc.want)
			}
		})
	}
}

func TestFormatMinutes(t *testing.T) {
	for in, want := range map[int]string{0: "00:00", 795: "13:15", 1380: "23:00", 65: "01:05"} {
		if got := FormatMinutes(in); got != want {
			t.Errorf("FormatMinutes(%d) = %q want %q", in, got, want)
		}
	}
}

func TestIsWeekend(t *testing.T) {
	cases := map[string]bool{
		"2030-01-05": true,  // Saturday
		"2030-01-06": true,  // Sunday
		"2030-01-07": false, // Monday
		"2030-01-11": false, // Friday
	}
	for raw, want := range cases {
		d, err := ParseCalendarDate(raw)
		if err != nil {
			t.Fatalf("parse %s: %v", raw, err)
		}
		if got := IsWeekend(d); got != want {
			t.Errorf("IsWeekend(%s) = %v want %v", raw, got, want)
		}
	}
}

func TestCalendarDayKeepsLocalDate(t *testing.T) {
	// 23:30 on the 5th in UTC+4 is already the 5th locally but 19:30 UTC.
	loc := time.FixedZone("UTC+4", 4*3600)
	late := time.Date(2030, 1, 5, 23, 30, 0, 0, loc)
	got := CalendarDay(late)
	want := time.Date(2030, 1, 5, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("got %v want %v", got, want)
	}
	if WeekdayOf(late) != time.Saturday {
		t.Fatalf("weekday should follow the local calendar")
	}
}

func TestParseCalendarDate(t *testing.T) {
	d, err := ParseCalendarDate("2030-01-07")
	if err != nil {
		t.Fatal(err)
	}
	if d.Location() != time.UTC || d.Hour() != 0 || d.Day() != 7 {
		t.Fatalf("unexpected value %v", d)
	}

	ts, err := ParseCalendarDate("2030-01-07T22:00:00+04:00")
	if err != nil {
		t.Fatal(err)
	}
	if !ts.Equal(d) {
		t.Fatalf("RFC3339 input should reduce to its calendar day, got %v", ts)
	}

	for _, bad := range []string{"", "07/01/2030", "2030-13-01"} {
		if _, err := ParseCalendarDate(bad); err == nil {
			t.Errorf("expected error for %q", bad)
		}
	}
}

func TestIsSameCalendarDay(t *testing.T) {
	a := time.Date(2030, 1, 7, 0, 0, 0, 0, time.UTC)
	b := time.Date(2030, 1, 7, 23, 59, 0, 0, time.UTC)
	c := time.Date(2030, 1, 8, 0, 0, 0, 0, time.UTC)
	if !IsSameCalendarDay(a, b) {
		t.Fatal("same day reported as different")
	}
	if IsSameCalendarDay(a, c) {
		t.Fatal("different days reported as same")
	}
}

func TestNowMinutesSinceMidnight(t *testing.T) {
	clock := FixedClock{T: time.Date(2030, 1, 7, 14, 5, 30, 0, time.UTC)}
	if got := NowMinutesSinceMidnight(clock); got != 845 {
		t.Fatalf("got %d want 845", got)
	}
}
