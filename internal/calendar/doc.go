// Package calendar renders scraped events as iCalendar (RFC 5545) documents
// so they can be imported into calendar applications.
package calendar
