package telegram

import (
	"fmt"
	"html"
	"strings"
	"unicode/utf8"

	"github.com/pfrederiksen/promoter-events/internal/event"
)

// maxFieldRunes clips each event field before escaping so one entry always
// fits in a message alongside the header.
const maxFieldRunes = 150

// FormatDigest formats events as one or more messages, each within
// MaxMessageLength. An event entry is never split across messages.
func FormatDigest(events []*event.Record) []string {
	if len(events) == 0 {
		return []string{"No upcoming events."}
	}

	header := fmt.Sprintf("📬 <b>Upcoming events</b> • %d event%s\n\n", len(events), pluralize(len(events)))

	var messages []string
	var msg strings.Builder
	msg.WriteString(header)
	entries := 0
	for _, rec := range events {
		entry := formatEntry(rec)
		if msg.Len()+len(entry) > MaxMessageLength && entries > 0 {
			messages = append(messages, strings.TrimRight(msg.String(), "\n"))
			msg.Reset()
			entries = 0
		}
		msg.WriteString(entry)
		entries++
	}
	messages = append(messages, strings.TrimRight(msg.String(), "\n"))
	return messages
}

func formatEntry(rec *event.Record) string {
	var b strings.Builder

	title := clip(rec.Title)
	if title == "" {
		title = "Untitled event"
	}
	// a clipped URL would be a broken link
	if rec.SourceURL != "" && utf8.RuneCountInString(rec.SourceURL) <= maxFieldRunes {
		b.WriteString(fmt.Sprintf("🎶 <a href=\"%s\">%s</a>\n", html.EscapeString(rec.SourceURL), html.EscapeString(title)))
	} else {
		b.WriteString(fmt.Sprintf("🎶 <b>%s</b>\n", html.EscapeString(title)))
	}

	if when := clip(strings.TrimSpace(rec.Date + " " + rec.Time)); when != "" {
		b.WriteString(fmt.Sprintf("   📅 %s\n", html.EscapeString(when)))
	}
	if venue := clip(strings.Trim(rec.VenueName+", "+rec.VenueLocation, ", ")); venue != "" {
		b.WriteString(fmt.Sprintf("   📍 %s\n", html.EscapeString(venue)))
	}
	b.WriteString("\n")

	return b.String()
}

func clip(s string) string {
	if utf8.RuneCountInString(s) <= maxFieldRunes {
		return s
	}
	runes := []rune(s)
	return string(runes[:maxFieldRunes-1]) + "…"
}

func pluralize(count int) string {
	if count == 1 {
		return ""
	}
	return "s"
}
