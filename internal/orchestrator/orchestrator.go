package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pfrederiksen/promoter-events/internal/calendar"
	"github.com/pfrederiksen/promoter-events/internal/detail"
	"github.com/pfrederiksen/promoter-events/internal/event"
	"github.com/pfrederiksen/promoter-events/internal/logger"
	"github.com/pfrederiksen/promoter-events/internal/notifier"
	"github.com/pfrederiksen/promoter-events/internal/storage"
)

// ErrNoLinks is returned when no listing produced a single event link.
var ErrNoLinks = errors.New("no event links found on any listing")

const (
	UpcomingPartition = "upcoming_events"
	PastPartition     = "past_events"
)

// Partition is one listing page and the output directory it fills.
type Partition struct {
	Name       string `json:"name"`
	ListingURL string `json:"listing_url"`
	// Announce sends this partition's events through the notifier.
	Announce bool `json:"announce"`
}

// Config controls a run.
type Config struct {
	Partitions    []Partition
	OutputDir     string
	WriteCalendar bool
	WriteSummary  bool
}

// DefaultPartitions returns the upcoming and past listings of a promoter page.
func DefaultPartitions(upcomingURL, pastURL string) []Partition {
	return []Partition{
		{Name: UpcomingPartition, ListingURL: upcomingURL, Announce: true},
		{Name: PastPartition, ListingURL: pastURL},
	}
}

// LinkCollector returns the event links on a listing page, empty on failure.
type LinkCollector interface {
	Collect(ctx context.Context, listingURL string) []string
}

// DetailScraper scrapes one event into an existing directory.
type DetailScraper interface {
	Scrape(ctx context.Context, eventURL, dir string) detail.Result
}

// Orchestrator runs the collection and scraping phases.
type Orchestrator struct {
	cfg      Config
	store    *storage.Storage
	links    LinkCollector
	details  DetailScraper
	notifier notifier.Notifier
}

// New creates an Orchestrator. n may be nil to disable announcements.
func New(cfg Config, links LinkCollector, details DetailScraper, n notifier.Notifier) (*Orchestrator, error) {
	if len(cfg.Partitions) == 0 {
		return nil, errors.New("no partitions configured")
	}
	store, err := storage.New(cfg.OutputDir)
	if err != nil {
		return nil, fmt.Errorf("initializing storage: %w", err)
	}
	return &Orchestrator{
		cfg:      cfg,
		store:    store,
		links:    links,
		details:  details,
		notifier: n,
	}, nil
}

// Run performs one full run. The returned summary is non-nil even on error.
func (o *Orchestrator) Run(ctx context.Context) (*Summary, error) {
	summary := &Summary{
		RunID:     uuid.NewString(),
		StartedAt: time.Now().UTC(),
		OutputDir: o.store.Root(),
	}
	defer func() {
		summary.FinishedAt = time.Now().UTC()
	}()

	logger.Info("Starting run", logger.Fields{
		"run_id":     summary.RunID,
		"output_dir": summary.OutputDir,
	})

	// Collect everything before touching the output tree.
	collected := make([][]string, len(o.cfg.Partitions))
	total := 0
	for i, p := range o.cfg.Partitions {
		links := o.links.Collect(ctx, p.ListingURL)
		collected[i] = links
		total += len(links)
		logger.SetGauge("links."+p.Name, float64(len(links)))
		summary.Partitions = append(summary.Partitions, PartitionSummary{
			Name:       p.Name,
			ListingURL: p.ListingURL,
			Links:      len(links),
			Events:     []EventSummary{},
		})
	}

	if total == 0 {
		logger.Error("Scrape failed", logger.Fields{"run_id": summary.RunID}, ErrNoLinks)
		return summary, ErrNoLinks
	}

	names := make([]string, len(o.cfg.Partitions))
	for i, p := range o.cfg.Partitions {
		names[i] = p.Name
	}
	if err := o.store.ResetPartitions(names...); err != nil {
		return summary, fmt.Errorf("resetting output directories: %w", err)
	}

	var announce []*event.Record
	for i, p := range o.cfg.Partitions {
		for j, link := range collected[i] {
			if err := ctx.Err(); err != nil {
				return summary, fmt.Errorf("run interrupted: %w", err)
			}

			es, rec, err := o.scrapeEvent(ctx, summary.RunID, p.Name, j+1, link)
			if err != nil {
				return summary, err
			}
			summary.Partitions[i].Events = append(summary.Partitions[i].Events, es)

			if p.Announce && es.OK() && !rec.IsEmpty() {
				announce = append(announce, rec)
			}
		}
	}

	if o.notifier != nil && len(announce) > 0 {
		event.SortByStart(announce)
		if err := o.notifier.Notify(ctx, announce); err != nil {
			summary.AnnounceError = err.Error()
			logger.Error("Announcing events failed", logger.Fields{"events": len(announce)}, err)
		} else {
			summary.Announced = len(announce)
		}
	}

	events, failed := summary.Totals()
	logger.Info("Scraping completed", logger.Fields{
		"run_id": summary.RunID,
		"events": events,
		"failed": failed,
	})

	if o.cfg.WriteSummary {
		summary.FinishedAt = time.Now().UTC()
		summary.Metrics = logger.GetMetricsSnapshot()
		if err := o.store.SaveSummary(summary); err != nil {
			logger.Error("Could not save run summary", nil, err)
		}
	}

	return summary, nil
}

func (o *Orchestrator) scrapeEvent(ctx context.Context, runID, partition string, n int, link string) (EventSummary, *event.Record, error) {
	dir, err := o.store.EventDir(partition, n)
	if err != nil {
		return EventSummary{}, nil, fmt.Errorf("preparing event directory: %w", err)
	}

	res := o.details.Scrape(ctx, link, dir)
	es := EventSummary{
		Index:       n,
		URL:         link,
		Dir:         dir,
		PosterSaved: res.PosterSaved,
	}
	if res.Err != nil {
		es.Error = res.Err.Error()
	}
	if res.PosterErr != nil {
		es.PosterError = res.PosterErr.Error()
	}

	rec := res.Record
	if rec == nil {
		rec = &event.Record{SourceURL: link}
	}
	es.Title = rec.Title

	if o.cfg.WriteCalendar && !rec.IsEmpty() {
		uid := fmt.Sprintf("%s-%s-%d@promoter-events", runID, partition, n)
		ics, err := calendar.GenerateICS(rec, uid)
		if err == nil {
			err = storage.WriteCalendar(dir, ics)
		}
		if err != nil {
			logger.Warn("Calendar entry skipped", logger.Fields{
				"dir":   dir,
				"error": err.Error(),
			})
		} else {
			es.CalendarWritten = true
		}
	}

	return es, rec, nil
}
