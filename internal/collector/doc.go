// Package collector gathers event-detail links from a promoter's listing page.
//
// The listing is rendered in a browser session (see package browser), parsed
// with goquery, and every element matching the configured heading selector is
// turned into an absolute URL. An optional guard aborts immediately when the
// site serves a bot challenge instead of the listing.
package collector
