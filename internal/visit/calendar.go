package visit

import (
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/civil"
)

const (
	// DateLayout is the canonical wire and storage form of a visit date.
	DateLayout = "2006-01-02"
	// TimeLayout is the canonical storage form of a time of day.
	TimeLayout = "15:04:05"
)

// ParseDate parses a YYYY-MM-DD calendar date. Impossible dates like
// 2025-02-30 are rejected.
func ParseDate(s string) (civil.Date, error) {
	d, err := civil.ParseDate(strings.TrimSpace(s))
	if err != nil {
		return civil.Date{}, fmt.Errorf("invalid date %q (use YYYY-MM-DD)", s)
	}
	return d, nil
}

// ParseTimeOfDay parses HH:MM or HH:MM:SS. Fractional seconds are not
// accepted.
func ParseTimeOfDay(s string) (civil.Time, error) {
	s = strings.TrimSpace(s)
	if len(s) == len("15:04") {
		s += ":00"
	}
	if len(s) != len(TimeLayout) {
		return civil.Time{}, fmt.Errorf("invalid time %q (use HH:MM or HH:MM:SS)", s)
	}
	t, err := civil.ParseTime(s)
	if err != nil {
		return civil.Time{}, fmt.Errorf("invalid time %q (use HH:MM or HH:MM:SS)", s)
	}
	return t, nil
}

// FormatTime renders a time of day in the canonical HH:MM:SS form.
func FormatTime(t civil.Time) string {
	return fmt.Sprintf("%02d:%02d:%02d", t.Hour, t.Minute, t.Second)
}

// secondsOf returns the offset of t from midnight in seconds.
func secondsOf(t civil.Time) int {
	return t.Hour*3600 + t.Minute*60 + t.Second
}

// TimeBefore reports whether a is strictly earlier than b.
func TimeBefore(a, b civil.Time) bool {
	return secondsOf(a) < secondsOf(b)
}

// Overlaps reports whether the half-open intervals [aStart, aEnd) and
// [bStart, bEnd) intersect. Intervals that only touch do not overlap.
func Overlaps(aStart, aEnd, bStart, bEnd civil.Time) bool {
	return secondsOf(aStart) < secondsOf(bEnd) && secondsOf(aEnd) > secondsOf(bStart)
}

// Today returns the calendar date of now in its own location.
func Today(now time.Time) civil.Date {
	return civil.DateOf(now)
}
