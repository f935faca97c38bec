package calendar

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/pfrederiksen/promoter-events/internal/event"
)

// ErrNoDate is returned when the record's date text cannot be parsed.
var ErrNoDate = errors.New("event date not parseable")

// DefaultDuration is used when the time text has no end time.
const DefaultDuration = 4 * time.Hour

// GenerateICS generates an iCalendar (.ics) document for one event.
// Times on the site are venue-local, so DTSTART/DTEND are written as floating
// times. A record without a parseable time becomes an all-day event.
func GenerateICS(rec *event.Record, uid string) (string, error) {
	day := event.ParseDate(rec.Date)
	if day.IsZero() {
		return "", fmt.Errorf("generating calendar for %q: %w", rec.Title, ErrNoDate)
	}

	var ics strings.Builder

	writeLine(&ics, "BEGIN:VCALENDAR")
	writeLine(&ics, "VERSION:2.0")
	writeLine(&ics, "PRODID:-//Promoter Events//promoter-events//EN")
	writeLine(&ics, "CALSCALE:GREGORIAN")
	writeLine(&ics, "METHOD:PUBLISH")
	writeLine(&ics, "BEGIN:VEVENT")

	writeLine(&ics, fmt.Sprintf("UID:%s", uid))
	writeLine(&ics, fmt.Sprintf("DTSTAMP:%s", formatICSTime(time.Now())))

	start, end, timed := eventSpan(day, rec.Time)
	if timed {
		writeLine(&ics, fmt.Sprintf("DTSTART:%s", formatLocalTime(start)))
		writeLine(&ics, fmt.Sprintf("DTEND:%s", formatLocalTime(end)))
	} else {
		writeLine(&ics, fmt.Sprintf("DTSTART;VALUE=DATE:%s", start.Format("20060102")))
		writeLine(&ics, fmt.Sprintf("DTEND;VALUE=DATE:%s", end.Format("20060102")))
	}

	title := rec.Title
	if title == "" {
		title = "Untitled event"
	}
	writeLine(&ics, fmt.Sprintf("SUMMARY:%s", escapeICS(title)))

	var desc []string
	if rec.Date != "" {
		desc = append(desc, "Date: "+rec.Date)
	}
	if rec.Time != "" {
		desc = append(desc, "Time: "+rec.Time)
	}
	if rec.SourceURL != "" {
		desc = append(desc, "Tickets: "+rec.SourceURL)
	}
	if len(desc) > 0 {
		writeLine(&ics, fmt.Sprintf("DESCRIPTION:%s", escapeICS(strings.Join(desc, "\n"))))
	}

	location := rec.VenueName
	if rec.VenueLocation != "" {
		if location != "" {
			location += ", "
		}
		location += rec.VenueLocation
	}
	if location != "" {
		writeLine(&ics, fmt.Sprintf("LOCATION:%s", escapeICS(location)))
	}

	if rec.SourceURL != "" {
		writeLine(&ics, fmt.Sprintf("URL:%s", rec.SourceURL))
	}

	writeLine(&ics, "STATUS:CONFIRMED")
	writeLine(&ics, "SEQUENCE:0")
	writeLine(&ics, "TRANSP:OPAQUE")

	writeLine(&ics, "END:VEVENT")
	writeLine(&ics, "END:VCALENDAR")

	return ics.String(), nil
}

// eventSpan derives start and end from the date and time text. Time text such
// as "22:00 - 04:00" yields an end on the following day.
func eventSpan(day time.Time, timeText string) (start, end time.Time, timed bool) {
	hour, minute, ok := event.ParseStartTime(timeText)
	if !ok {
		return day, day.AddDate(0, 0, 1), false
	}
	start = time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, time.UTC)
	end = start.Add(DefaultDuration)

	parts := strings.SplitN(strings.ReplaceAll(timeText, "–", "-"), "-", 2)
	if len(parts) == 2 {
		if eh, em, ok := event.ParseStartTime(parts[1]); ok {
			end = time.Date(day.Year(), day.Month(), day.Day(), eh, em, 0, 0, time.UTC)
			if !end.After(start) {
				end = end.AddDate(0, 0, 1)
			}
		}
	}
	return start, end, true
}

// maxLineOctets is the content line limit before folding (RFC 5545 3.1).
const maxLineOctets = 75

// writeLine writes one content line, folding it into CRLF + space
// continuations so no physical line exceeds maxLineOctets. Folds never split
// a UTF-8 sequence.
func writeLine(b *strings.Builder, line string) {
	limit := maxLineOctets
	for len(line) > limit {
		cut := limit
		for cut > 0 && !utf8.RuneStart(line[cut]) {
			cut--
		}
		b.WriteString(line[:cut])
		b.WriteString("\r\n ")
		line = line[cut:]
		// the leading space counts toward the continuation line
		limit = maxLineOctets - 1
	}
	b.WriteString(line)
	b.WriteString("\r\n")
}

// formatICSTime formats a time.Time as an iCalendar UTC datetime string
func formatICSTime(t time.Time) string {
	return t.UTC().Format("20060102T150405Z")
}

// formatLocalTime formats a floating (zone-less) iCalendar datetime
func formatLocalTime(t time.Time) string {
	return t.Format("20060102T150405")
}

// escapeICS escapes special characters for iCalendar format
func escapeICS(s string) string {
	// Replace special characters according to RFC 5545
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, ",", "\\,")
	s = strings.ReplaceAll(s, ";", "\\;")
	s = strings.ReplaceAll(s, "\n", "\\n")
	return s
}
