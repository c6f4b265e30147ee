package calendar

import (
	"strings"
	"time"
)

// DateLayout is the wire layout for naive calendar dates.
const DateLayout = "2006-01-02"

// TimeLayout is the wire layout for slot times.
const TimeLayout = "15:04"

var datetimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04",
}

var clockLayouts = []string{
	"15:04:05.999999999",
	"15:04",
}

// ParseDate normalises a wire date into a naive calendar date at midnight UTC.
//
// Both "YYYY-MM-DD" and ISO datetimes are accepted. For datetimes only the
// written date portion is kept, so "2024-03-05T00:00:00Z" and "2024-03-05"
// yield the same value regardless of the offset carried by the string.
func ParseDate(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if len(value) < len(DateLayout) {
		return time.Time{}, false
	}
	if len(value) == len(DateLayout) {
		parsed, err := time.Parse(DateLayout, value)
		if err != nil {
			return time.Time{}, false
		}
		return parsed, true
	}
	parsed, ok := parseDateTime(value)
	if !ok {
		return time.Time{}, false
	}
	return DateOf(parsed), true
}

// NormalizeTime reduces "HH:MM", "HH:MM:SS" or an ISO datetime to "HH:MM".
func NormalizeTime(value string) (string, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", false
	}
	if len(value) > len(DateLayout) && strings.Count(value[:len(DateLayout)], "-") == 2 {
		parsed, ok := parseDateTime(value)
		if !ok {
			return "", false
		}
		return parsed.Format(TimeLayout), true
	}
	for _, layout := range clockLayouts {
		if parsed, err := time.Parse(layout, value); err == nil {
			return parsed.Format(TimeLayout), true
		}
	}
	return "", false
}

func parseDateTime(value string) (time.Time, bool) {
	for _, layout := range datetimeLayouts {
		if parsed, err := time.Parse(layout, value); err == nil {
			return parsed, true
		}
	}
	return time.Time{}, false
}

// DateOf strips the time of day, keeping the calendar date as written in t's location.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DateKey formats a date for map lookups and wire output.
func DateKey(t time.Time) string {
	return t.Format(DateLayout)
}

// StartOfWeek returns the Monday on or before t.
func StartOfWeek(t time.Time) time.Time {
	start := DateOf(t)
	// Monday == 1, Sunday == 0.
	offset := (int(start.Weekday()) + 6) % 7
	return start.AddDate(0, 0, -offset)
}

// StartOfMonth returns the first day of t's month.
func StartOfMonth(t time.Time) time.Time {
	y, m, _ := t.Date()
	return time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
}

// WeekRange returns the inclusive first and last day of the week containing t.
func WeekRange(t time.Time) (time.Time, time.Time) {
	start := StartOfWeek(t)
	return start, start.AddDate(0, 0, 6)
}

// MonthGridRange returns the inclusive first and last day shown by the month grid for t.
func MonthGridRange(t time.Time) (time.Time, time.Time) {
	start := StartOfWeek(StartOfMonth(t))
	return start, start.AddDate(0, 0, MonthGridCells-1)
}

// MondayIndex maps a weekday onto 0 (Monday) .. 6 (Sunday).
func MondayIndex(day time.Weekday) int {
	return (int(day) + 6) % 7
}
