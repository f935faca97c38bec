// Package cli implements the command-line interface for promoter-events.
//
// The root command loads configuration, applies flag overrides, wires the
// browser, link collector, detail scraper and notifier together and runs one
// scrape. The run summary is printed as text or JSON; logs go to stderr.
package cli
