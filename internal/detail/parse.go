package detail

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/pfrederiksen/promoter-events/internal/event"
)

// ParseDetails builds a Record from a parsed detail page and the inner HTML of
// its date/time fragment. Fields whose element is missing are left empty.
// The poster URL is resolved against base.
func ParseDetails(doc *goquery.Document, dateTimeHTML string, sel Selectors, base string) (*event.Record, error) {
	rec := &event.Record{
		Title: firstText(doc.Selection, sel.Title),
	}

	if strings.TrimSpace(dateTimeHTML) != "" {
		fragment, err := goquery.NewDocumentFromReader(strings.NewReader(dateTimeHTML))
		if err != nil {
			return nil, fmt.Errorf("parsing date/time fragment: %w", err)
		}
		rec.Date = firstText(fragment.Selection, sel.Date)
		rec.Time = firstText(fragment.Selection, sel.Time)
	}

	if sel.Venue != "" {
		venue := doc.Find(sel.Venue).First()
		rec.VenueName = firstText(venue, sel.VenueName)
		rec.VenueLocation = firstText(venue, sel.VenueLocation)
	}

	if sel.Poster != "" {
		if src, ok := doc.Find(sel.Poster).First().Attr("src"); ok {
			rec.PosterURL = resolve(base, src)
		}
	}

	return rec, nil
}

func firstText(s *goquery.Selection, selector string) string {
	if selector == "" {
		return ""
	}
	return strings.TrimSpace(s.Find(selector).First().Text())
}

func resolve(base, ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ""
	}
	r, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	b, err := url.Parse(base)
	if err != nil {
		return r.String()
	}
	return b.ResolveReference(r).String()
}
