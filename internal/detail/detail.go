package detail

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/pfrederiksen/promoter-events/internal/browser"
	"github.com/pfrederiksen/promoter-events/internal/event"
	"github.com/pfrederiksen/promoter-events/internal/logger"
	"github.com/pfrederiksen/promoter-events/internal/storage"
)

// Result describes the outcome of scraping one event.
type Result struct {
	URL    string
	Dir    string
	Record *event.Record
	// Err is set when every attempt failed; an empty record was written instead.
	Err         error
	PosterSaved bool
	PosterErr   error
}

// Scraper extracts event details and writes them to disk.
type Scraper struct {
	opener     browser.Opener
	opts       browser.Options
	sel        Selectors
	downloader *Downloader
}

// New creates a Scraper. downloader may be nil to skip posters.
func New(opener browser.Opener, opts browser.Options, sel Selectors, downloader *Downloader) *Scraper {
	return &Scraper{
		opener:     opener,
		opts:       opts,
		sel:        sel,
		downloader: downloader,
	}
}

// Scrape loads eventURL, extracts its details and writes event_details.txt
// into dir, which must exist. Extraction and the write are retried together.
// When all attempts fail the details file is still written with empty fields.
// A poster is downloaded only if one was found.
func (s *Scraper) Scrape(ctx context.Context, eventURL, dir string) Result {
	start := time.Now()
	defer func() {
		logger.RecordTiming("scrape.event", time.Since(start))
	}()

	res := Result{URL: eventURL, Dir: dir}

	rec, err := browser.Run(ctx, s.opener, s.opts, eventURL,
		func(ctx context.Context, page browser.Page) (*event.Record, error) {
			rec, err := s.extract(page, eventURL)
			if err != nil {
				return nil, err
			}
			if err := storage.WriteDetails(dir, rec); err != nil {
				return nil, err
			}
			return rec, nil
		})
	if err != nil {
		res.Err = err
		rec = &event.Record{SourceURL: eventURL}
		if werr := storage.WriteDetails(dir, rec); werr != nil {
			logger.Error("Could not write empty event details", logger.Fields{"dir": dir}, werr)
			res.Err = errors.Join(err, werr)
		}
	} else {
		logger.Info("Event details saved", logger.Fields{
			"path": filepath.Join(dir, storage.DetailsFile),
			"url":  eventURL,
		})
	}
	res.Record = rec

	if rec.PosterURL != "" && s.downloader != nil {
		dest := filepath.Join(dir, storage.PosterFile)
		n, err := s.downloader.Download(ctx, rec.PosterURL, dest)
		if err != nil {
			res.PosterErr = err
			logger.Error("Poster download failed", logger.Fields{
				"url":    rec.PosterURL,
				"event":  eventURL,
				"folder": dir,
			}, err)
		} else {
			res.PosterSaved = true
			logger.IncrCounter("poster.downloads")
			logger.Info("Event details and image saved", logger.Fields{
				"folder": dir,
				"bytes":  n,
			})
		}
	}

	return res
}

func (s *Scraper) extract(page browser.Page, eventURL string) (*event.Record, error) {
	html, err := page.HTML()
	if err != nil {
		return nil, fmt.Errorf("reading page HTML: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parsing HTML: %w", err)
	}

	var fragment string
	if s.sel.DateTimeXPath != "" {
		fragment, err = page.InnerHTMLX(s.sel.DateTimeXPath)
		if err != nil {
			return nil, fmt.Errorf("locating date/time fragment: %w", err)
		}
	}

	base := page.URL()
	if base == "" {
		base = eventURL
	}

	rec, err := ParseDetails(doc, fragment, s.sel, base)
	if err != nil {
		return nil, err
	}
	rec.SourceURL = eventURL
	return rec, nil
}
