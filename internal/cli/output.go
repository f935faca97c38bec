package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/pfrederiksen/promoter-events/internal/orchestrator"
)

// OutputFormat specifies the output format
type OutputFormat string

const (
	FormatText OutputFormat = "text"
	FormatJSON OutputFormat = "json"
)

// WriteOutput writes the run summary in the specified format
func WriteOutput(w io.Writer, summary *orchestrator.Summary, format OutputFormat, verbose bool) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, summary)
	case FormatText:
		return writeText(w, summary, verbose)
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}

// writeJSON outputs the summary as JSON
func writeJSON(w io.Writer, summary *orchestrator.Summary) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(summary)
}

// writeText outputs the summary as human-readable text
func writeText(w io.Writer, summary *orchestrator.Summary, verbose bool) error {
	events, failed := summary.Totals()
	if events == 0 {
		fmt.Fprintln(w, "No event links found.")
		return nil
	}

	for _, p := range summary.Partitions {
		fmt.Fprintf(w, "\n%s (%d links):\n", p.Name, p.Links)
		for _, e := range p.Events {
			status := e.Title
			if status == "" {
				status = "(no title)"
			}
			if !e.OK() {
				status = "FAILED"
			}

			var extras []string
			if e.PosterSaved {
				extras = append(extras, "poster")
			}
			if e.CalendarWritten {
				extras = append(extras, "ics")
			}
			if len(extras) > 0 {
				fmt.Fprintf(w, "  event%d: %s %v\n", e.Index, status, extras)
			} else {
				fmt.Fprintf(w, "  event%d: %s\n", e.Index, status)
			}

			if verbose {
				fmt.Fprintf(w, "       URL: %s\n", e.URL)
				fmt.Fprintf(w, "       Dir: %s\n", e.Dir)
				if e.Error != "" {
					fmt.Fprintf(w, "       Error: %s\n", e.Error)
				}
				if e.PosterError != "" {
					fmt.Fprintf(w, "       Poster error: %s\n", e.PosterError)
				}
			}
		}
	}

	fmt.Fprintf(w, "\nTotal: %d events, %d failed (%s)\n", events, failed, summary.Duration().Round(time.Millisecond))
	if summary.Announced > 0 {
		fmt.Fprintf(w, "Announced: %d\n", summary.Announced)
	}
	if summary.AnnounceError != "" {
		fmt.Fprintf(w, "Announcement failed: %s\n", summary.AnnounceError)
	}
	if verbose {
		fmt.Fprintf(w, "Run ID: %s\n", summary.RunID)
	}

	return nil
}
