package event

import "fmt"

// Record holds the fields scraped from one event-detail page.
// Any field may be empty when the page did not render the matching element.
type Record struct {
	Title         string `json:"title"`
	Date          string `json:"date"`
	Time          string `json:"time"`
	VenueName     string `json:"venue_name"`
	VenueLocation string `json:"venue_location"`
	PosterURL     string `json:"poster_url,omitempty"`
	SourceURL     string `json:"source_url"`
}

// Text renders the record in the event_details.txt layout. Missing fields
// keep their label with an empty value; the venue spans two lines.
func (r *Record) Text() string {
	return fmt.Sprintf("Title: %s\nDate: %s\nTime: %s\nVenue: %s\n%s",
		r.Title, r.Date, r.Time, r.VenueName, r.VenueLocation)
}

// IsEmpty reports whether no descriptive field was extracted.
// SourceURL is ignored since it is known before scraping.
func (r *Record) IsEmpty() bool {
	return r.Title == "" && r.Date == "" && r.Time == "" &&
		r.VenueName == "" && r.VenueLocation == "" && r.PosterURL == ""
}

// Venue joins name and location the way they appear in the details file.
func (r *Record) Venue() string {
	return r.VenueName + "\n" + r.VenueLocation
}
