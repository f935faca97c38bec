package orchestrator

import "time"

// EventSummary reports the outcome for one event directory.
type EventSummary struct {
	Index           int    `json:"index"`
	URL             string `json:"url"`
	Dir             string `json:"dir"`
	Title           string `json:"title,omitempty"`
	Error           string `json:"error,omitempty"`
	PosterSaved     bool   `json:"poster_saved"`
	PosterError     string `json:"poster_error,omitempty"`
	CalendarWritten bool   `json:"calendar_written,omitempty"`
}

// OK reports whether details were scraped without exhausting retries.
func (e EventSummary) OK() bool {
	return e.Error == ""
}

// PartitionSummary reports one listing and the events scraped from it.
type PartitionSummary struct {
	Name       string         `json:"name"`
	ListingURL string         `json:"listing_url"`
	Links      int            `json:"links"`
	Events     []EventSummary `json:"events"`
}

// Summary describes a whole run.
type Summary struct {
	RunID         string                 `json:"run_id"`
	StartedAt     time.Time              `json:"started_at"`
	FinishedAt    time.Time              `json:"finished_at"`
	OutputDir     string                 `json:"output_dir"`
	Partitions    []PartitionSummary     `json:"partitions"`
	Announced     int                    `json:"announced,omitempty"`
	AnnounceError string                 `json:"announce_error,omitempty"`
	Metrics       map[string]interface{} `json:"metrics,omitempty"`
}

// Totals returns the number of events written and how many of them failed.
func (s *Summary) Totals() (events, failed int) {
	for _, p := range s.Partitions {
		for _, e := range p.Events {
			events++
			if !e.OK() {
				failed++
			}
		}
	}
	return events, failed
}

// Duration returns how long the run took.
func (s *Summary) Duration() time.Duration {
	if s.FinishedAt.IsZero() {
		return 0
	}
	return s.FinishedAt.Sub(s.StartedAt)
}
