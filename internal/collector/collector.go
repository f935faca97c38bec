package collector

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/pfrederiksen/promoter-events/internal/browser"
	"github.com/pfrederiksen/promoter-events/internal/logger"
	"github.com/pfrederiksen/promoter-events/internal/retry"
)

const (
	DefaultLinkSelector      = `[data-test-id="event-listing-heading"]`
	DefaultChallengeSelector = ".g-recaptcha"
)

// ErrChallenge means the listing page showed a bot challenge.
var ErrChallenge = errors.New("bot challenge detected")

// Config holds the listing-page selectors.
type Config struct {
	LinkSelector      string `json:"link_selector"`
	ChallengeSelector string `json:"challenge_selector"`
	// ChallengeGuard aborts without retrying when ChallengeSelector matches.
	ChallengeGuard bool `json:"challenge_guard"`
}

// DefaultConfig returns the selectors for the current listing markup with the guard on.
func DefaultConfig() Config {
	return Config{
		LinkSelector:      DefaultLinkSelector,
		ChallengeSelector: DefaultChallengeSelector,
		ChallengeGuard:    true,
	}
}

// Collector extracts event links from listing pages
type Collector struct {
	opener browser.Opener
	opts   browser.Options
	cfg    Config
}

// New creates a Collector
func New(opener browser.Opener, opts browser.Options, cfg Config) *Collector {
	return &Collector{
		opener: opener,
		opts:   opts,
		cfg:    cfg,
	}
}

// Collect returns the event links on listingURL in page order. Duplicates are kept.
// The result is empty, never nil, when nothing was found, the guard fired or
// every attempt failed.
func (c *Collector) Collect(ctx context.Context, listingURL string) []string {
	links, err := browser.Run(ctx, c.opener, c.opts, listingURL, c.extractor(listingURL))
	if errors.Is(err, ErrChallenge) {
		logger.Warn("CAPTCHA found, manual intervention required", logger.Fields{"url": listingURL})
		return []string{}
	}

	if len(links) == 0 {
		logger.Warn("No event links found", logger.Fields{"url": listingURL})
		return []string{}
	}

	logger.Info("Collected event links", logger.Fields{
		"url":   listingURL,
		"count": len(links),
	})
	return links
}

// extractor falls back to listingURL when the page cannot report its location.
func (c *Collector) extractor(listingURL string) browser.Extractor[[]string] {
	return func(ctx context.Context, page browser.Page) ([]string, error) {
		base := page.URL()
		if base == "" {
			base = listingURL
		}
		return c.extract(page, base)
	}
}

func (c *Collector) extract(page browser.Page, base string) ([]string, error) {
	html, err := page.HTML()
	if err != nil {
		return nil, fmt.Errorf("reading page HTML: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parsing HTML: %w", err)
	}

	if c.cfg.ChallengeGuard && c.cfg.ChallengeSelector != "" &&
		doc.Find(c.cfg.ChallengeSelector).Length() > 0 {
		return nil, retry.Permanent(ErrChallenge)
	}

	return ExtractLinks(doc, c.cfg.LinkSelector, base), nil
}

// ExtractLinks resolves the href of each element matching selector against base.
// An element without its own href contributes its first descendant link instead;
// elements with neither are skipped.
func ExtractLinks(doc *goquery.Document, selector, base string) []string {
	baseURL, err := url.Parse(base)
	if err != nil {
		baseURL = &url.URL{}
	}

	links := make([]string, 0)
	doc.Find(selector).Each(func(i int, sel *goquery.Selection) {
		href, ok := sel.Attr("href")
		if !ok || strings.TrimSpace(href) == "" {
			href, ok = sel.Find("a[href]").First().Attr("href")
		}
		href = strings.TrimSpace(href)
		if !ok || href == "" {
			return
		}

		ref, err := url.Parse(href)
		if err != nil {
			return
		}
		links = append(links, baseURL.ResolveReference(ref).String())
	})

	return links
}
