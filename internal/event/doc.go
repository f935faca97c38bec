// Package event defines the record scraped from an event-detail page.
//
// A Record is created per scrape and rendered to the fixed "Title:/Date:/Time:/Venue:"
// text layout written into each event directory. The package also parses the
// site's free-form date and time strings for calendar export.
package event
