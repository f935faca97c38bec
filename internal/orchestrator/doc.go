// Package orchestrator sequences one scraping run.
//
// A run collects event links from every configured listing page first. When
// no listing yields a link the run fails without touching the output tree.
// Otherwise every partition directory is wiped and recreated, and each link
// is scraped in order, one at a time, into its own numbered directory.
package orchestrator
