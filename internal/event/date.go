package event

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Layouts seen on listing and detail pages, most specific first.
var dateLayouts = []string{
	"Mon, 2 Jan 2006",
	"Mon, 02 Jan 2006",
	"Mon 2 Jan 2006",
	"2 Jan 2006",
	"02 Jan 2006",
	"Jan 2 2006",
	"Jan 2, 2006",
	"2006-01-02",
}

// Layouts without a year; the current year is assumed.
var shortDateLayouts = []string{
	"Mon, 2 Jan",
	"Mon 2 Jan",
	"2 Jan",
	"Jan 2",
}

var timePattern = regexp.MustCompile(`(?i)(\d{1,2})(?:[:.](\d{2}))?\s*(am|pm)?`)

// ParseDate attempts to parse the date text of a Record.
// Returns time.Time{} (zero value) if parsing fails.
// Supports formats: "Sat, 14 Feb 2026", "14 Feb 2026", "Feb 14 2026", "Sat, 14 Feb"
func ParseDate(dateText string) time.Time {
	dateText = strings.Join(strings.Fields(dateText), " ")
	if dateText == "" {
		return time.Time{}
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, dateText); err == nil {
			return t
		}
	}

	for _, layout := range shortDateLayouts {
		if t, err := time.Parse(layout, dateText); err == nil {
			now := time.Now()
			return time.Date(now.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
		}
	}

	return time.Time{}
}

// ParseStartTime extracts the opening time from text like "22:00 - 04:00" or "9pm".
// ok is false when no plausible hour is found.
func ParseStartTime(timeText string) (hour, minute int, ok bool) {
	m := timePattern.FindStringSubmatch(timeText)
	if m == nil {
		return 0, 0, false
	}

	hour, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, 0, false
	}
	if m[2] != "" {
		minute, _ = strconv.Atoi(m[2])
	}

	switch strings.ToLower(m[3]) {
	case "pm":
		if hour < 12 {
			hour += 12
		}
	case "am":
		if hour == 12 {
			hour = 0
		}
	}

	if hour > 23 || minute > 59 {
		return 0, 0, false
	}
	return hour, minute, true
}

// StartsAt combines the parsed date and start time of a record.
// Returns the zero time if the date cannot be parsed; an unparseable
// time leaves the result at midnight.
func (r *Record) StartsAt() time.Time {
	day := ParseDate(r.Date)
	if day.IsZero() {
		return time.Time{}
	}
	hour, minute, ok := ParseStartTime(r.Time)
	if !ok {
		return day
	}
	return time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, time.UTC)
}

// IsUpcoming checks if an event is in the future.
// Returns true if the date cannot be parsed (safer default).
func (r *Record) IsUpcoming() bool {
	start := r.StartsAt()
	if start.IsZero() {
		return true
	}
	return start.After(time.Now())
}
