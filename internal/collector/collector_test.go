package collector

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/go-cmp/cmp"
	"github.com/pfrederiksen/promoter-events/internal/browser"
	"github.com/pfrederiksen/promoter-events/internal/browser/browsertest"
	"github.com/pfrederiksen/promoter-events/internal/retry"
)

const listingURL = "https://ra.co/promoters/105908/events"

const listingHTML = `
<html><body>
  <ul>
    <li><span data-test-id="event-listing-heading"><a href="/events/1900001">Show X</a></span></li>
    <li><a data-test-id="event-listing-heading" href="https://ra.co/events/1900002">Show Y</a></li>
    <li><span data-test-id="event-listing-heading">No link here</span></li>
    <li><span data-test-id="event-listing-heading"><a href="/events/1900001">Show X again</a></span></li>
  </ul>
</body></html>`

func fastOptions() browser.Options {
	return browser.Options{
		Policy: retry.Policy{MaxAttempts: 3, Backoff: time.Millisecond},
	}
}

func TestCollect(t *testing.T) {
	tests := []struct {
		name            string
		cfg             Config
		responses       []browsertest.Response
		want            []string
		wantNavigations int
	}{
		{
			name:      "links resolved in page order without dedupe",
			cfg:       DefaultConfig(),
			responses: []browsertest.Response{{HTML: listingHTML}},
			want: []string{
				"https://ra.co/events/1900001",
				"https://ra.co/events/1900002",
				"https://ra.co/events/1900001",
			},
			wantNavigations: 1,
		},
		{
			name:            "no headings yields empty result",
			cfg:             DefaultConfig(),
			responses:       []browsertest.Response{{HTML: "<html><body><p>No events</p></body></html>"}},
			want:            []string{},
			wantNavigations: 1,
		},
		{
			name: "challenge aborts without retrying",
			cfg:  DefaultConfig(),
			responses: []browsertest.Response{
				{HTML: `<div class="g-recaptcha"></div>` + listingHTML},
			},
			want:            []string{},
			wantNavigations: 1,
		},
		{
			name: "challenge ignored when guard is off",
			cfg: Config{
				LinkSelector:      DefaultLinkSelector,
				ChallengeSelector: DefaultChallengeSelector,
				ChallengeGuard:    false,
			},
			responses: []browsertest.Response{
				{HTML: `<div class="g-recaptcha"></div><a data-test-id="event-listing-heading" href="/events/7">E</a>`},
			},
			want:            []string{"https://ra.co/events/7"},
			wantNavigations: 1,
		},
		{
			name: "navigation failures are retried",
			cfg:  DefaultConfig(),
			responses: []browsertest.Response{
				{NavErr: errors.New("net::ERR_TIMED_OUT")},
				{HTML: listingHTML},
			},
			want: []string{
				"https://ra.co/events/1900001",
				"https://ra.co/events/1900002",
				"https://ra.co/events/1900001",
			},
			wantNavigations: 2,
		},
		{
			name: "exhausted retries degrade to empty",
			cfg:  DefaultConfig(),
			responses: []browsertest.Response{
				{HTMLErr: errors.New("execution context was destroyed")},
			},
			want:            []string{},
			wantNavigations: 3,
		},
		{
			name: "links resolve against the final location after redirects",
			cfg:  DefaultConfig(),
			responses: []browsertest.Response{
				{
					URL:  "https://de.ra.co/promoters/105908/events",
					HTML: `<a data-test-id="event-listing-heading" href="/events/3">E</a>`,
				},
			},
			want:            []string{"https://de.ra.co/events/3"},
			wantNavigations: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opener := browsertest.NewOpener(map[string][]browsertest.Response{listingURL: tt.responses})
			c := New(opener, fastOptions(), tt.cfg)

			got := c.Collect(context.Background(), listingURL)

			if got == nil {
				t.Fatal("Collect() returned nil, want empty slice")
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Collect() mismatch (-want +got):\n%s", diff)
			}
			if n := opener.Navigations(listingURL); n != tt.wantNavigations {
				t.Errorf("navigations = %d, want %d", n, tt.wantNavigations)
			}
			if opener.Closed() != 1 {
				t.Errorf("sessions closed = %d, want 1", opener.Closed())
			}
		})
	}
}

func TestCollect_OpenFailure(t *testing.T) {
	opener := browsertest.NewOpener(nil)
	opener.OpenErr = errors.New("chrome not installed")

	got := New(opener, fastOptions(), DefaultConfig()).Collect(context.Background(), listingURL)
	if len(got) != 0 {
		t.Errorf("Collect() = %v, want empty", got)
	}
}

func TestExtractLinks(t *testing.T) {
	tests := []struct {
		name     string
		html     string
		selector string
		base     string
		want     []string
	}{
		{
			name:     "relative and absolute",
			html:     `<a class="e" href="/events/1">1</a><a class="e" href="https://other.example/x">2</a>`,
			selector: "a.e",
			base:     "https://ra.co/promoters/1/events",
			want:     []string{"https://ra.co/events/1", "https://other.example/x"},
		},
		{
			name:     "relative path without leading slash",
			html:     `<a class="e" href="events/2">2</a>`,
			selector: "a.e",
			base:     "https://ra.co/promoters/1/",
			want:     []string{"https://ra.co/promoters/1/events/2"},
		},
		{
			name:     "blank href skipped",
			html:     `<a class="e" href="  ">x</a>`,
			selector: "a.e",
			base:     "https://ra.co/",
			want:     []string{},
		},
		{
			name:     "descendant anchor used",
			html:     `<h3 class="e"><span><a href="/events/9">9</a></span></h3>`,
			selector: "h3.e",
			base:     "https://ra.co/",
			want:     []string{"https://ra.co/events/9"},
		},
		{
			name:     "no matches",
			html:     `<p>nothing</p>`,
			selector: "a.e",
			base:     "https://ra.co/",
			want:     []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := goquery.NewDocumentFromReader(strings.NewReader(tt.html))
			if err != nil {
				t.Fatalf("parsing fixture: %v", err)
			}
			got := ExtractLinks(doc, tt.selector, tt.base)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("ExtractLinks() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
