package orchestrator

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/pfrederiksen/promoter-events/internal/browser"
	"github.com/pfrederiksen/promoter-events/internal/browser/browsertest"
	"github.com/pfrederiksen/promoter-events/internal/collector"
	"github.com/pfrederiksen/promoter-events/internal/detail"
	"github.com/pfrederiksen/promoter-events/internal/event"
	"github.com/pfrederiksen/promoter-events/internal/retry"
	"github.com/pfrederiksen/promoter-events/internal/storage"
)

const (
	upcomingURL = "https://ra.co/promoters/105908/events"
	pastURL     = "https://ra.co/promoters/105908/past-events"
	eventA      = "https://ra.co/events/1"
	eventB      = "https://ra.co/events/2"
	eventC      = "https://ra.co/events/3"
)

const emptyDetails = "Title: \nDate: \nTime: \nVenue: \n"

func fastOptions() browser.Options {
	return browser.Options{
		Policy: retry.Policy{MaxAttempts: 3, Backoff: time.Millisecond},
	}
}

func testSelectors() detail.Selectors {
	return detail.Selectors{
		Title:         "h1",
		DateTimeXPath: "//when",
		Date:          "span.date",
		Time:          "span.time",
		Venue:         "div.venue",
		VenueName:     "span.name",
		VenueLocation: "span.location",
		Poster:        "img.poster",
	}
}

func listing(paths ...string) browsertest.Response {
	var b strings.Builder
	b.WriteString("<html><body><ul>")
	for _, p := range paths {
		b.WriteString(`<li><span data-test-id="event-listing-heading"><a href="` + p + `">x</a></span></li>`)
	}
	b.WriteString("</ul></body></html>")
	return browsertest.Response{HTML: b.String()}
}

func detailPage(title, poster string) browsertest.Response {
	html := `<h1>` + title + `</h1><div class="venue"><span class="name">Club</span><span class="location">City</span></div>`
	if poster != "" {
		html += `<img class="poster" src="` + poster + `">`
	}
	return browsertest.Response{
		HTML:      html,
		Fragments: map[string]string{"//when": `<span class="date">Jan 1</span><span class="time">9pm</span>`},
	}
}

type fixture struct {
	opener *browsertest.Opener
	out    string
	orch   *Orchestrator
}

func newFixture(t *testing.T, pages map[string][]browsertest.Response, cfg Config) *fixture {
	t.Helper()
	opener := browsertest.NewOpener(pages)
	if cfg.OutputDir == "" {
		cfg.OutputDir = filepath.Join(t.TempDir(), "out")
	}
	if cfg.Partitions == nil {
		cfg.Partitions = DefaultPartitions(upcomingURL, pastURL)
	}

	links := collector.New(opener, fastOptions(), collector.DefaultConfig())
	details := detail.New(opener, fastOptions(), testSelectors(),
		detail.NewDownloader("", 5*time.Second, retry.Policy{MaxAttempts: 2, Backoff: time.Millisecond}))

	orch, err := New(cfg, links, details, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return &fixture{opener: opener, out: cfg.OutputDir, orch: orch}
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading %s: %v", path, err)
	}
	return string(data)
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func TestRun_PartialFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("jpeg"))
	}))
	defer server.Close()

	f := newFixture(t, map[string][]browsertest.Response{
		upcomingURL: {listing("/events/1", "/events/2")},
		pastURL:     {listing()},
		eventA:      {detailPage("Show X", server.URL+"/a.jpg")},
		eventB:      {{NavErr: errors.New("net::ERR_CONNECTION_RESET")}},
	}, Config{})

	summary, err := f.orch.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	event1 := filepath.Join(f.out, UpcomingPartition, "event1")
	event2 := filepath.Join(f.out, UpcomingPartition, "event2")

	if got, want := readFile(t, filepath.Join(event1, storage.DetailsFile)), "Title: Show X\nDate: Jan 1\nTime: 9pm\nVenue: Club\nCity"; got != want {
		t.Errorf("event1 details = %q, want %q", got, want)
	}
	if !exists(filepath.Join(event1, storage.PosterFile)) {
		t.Error("event1 poster missing")
	}
	if got := readFile(t, filepath.Join(event2, storage.DetailsFile)); got != emptyDetails {
		t.Errorf("event2 details = %q, want %q", got, emptyDetails)
	}
	if exists(filepath.Join(event2, storage.PosterFile)) {
		t.Error("event2 should have no poster")
	}

	if entries, err := os.ReadDir(filepath.Join(f.out, PastPartition)); err != nil || len(entries) != 0 {
		t.Errorf("past_events = %v entries (err %v), want empty directory", len(entries), err)
	}

	events, failed := summary.Totals()
	if events != 2 || failed != 1 {
		t.Errorf("Totals() = %d, %d, want 2, 1", events, failed)
	}
	if summary.RunID == "" {
		t.Error("RunID is empty")
	}
	if f.opener.Navigations(eventB) != 3 {
		t.Errorf("eventB navigations = %d, want 3", f.opener.Navigations(eventB))
	}
	if f.opener.Opened() != f.opener.Closed() {
		t.Errorf("sessions opened %d, closed %d", f.opener.Opened(), f.opener.Closed())
	}
}

func TestRun_NoLinks(t *testing.T) {
	f := newFixture(t, map[string][]browsertest.Response{
		upcomingURL: {listing()},
		pastURL:     {{NavErr: errors.New("net::ERR_NAME_NOT_RESOLVED")}},
	}, Config{WriteSummary: true})

	summary, err := f.orch.Run(context.Background())
	if !errors.Is(err, ErrNoLinks) {
		t.Fatalf("Run() error = %v, want ErrNoLinks", err)
	}
	if summary == nil || len(summary.Partitions) != 2 {
		t.Fatalf("summary = %+v, want two partitions", summary)
	}
	if exists(f.out) {
		t.Errorf("output directory %s was created", f.out)
	}
}

func TestRun_NoLinksKeepsPreviousOutput(t *testing.T) {
	out := t.TempDir()
	previous := filepath.Join(out, UpcomingPartition, "event1", storage.DetailsFile)
	if err := os.MkdirAll(filepath.Dir(previous), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(previous, []byte("old"), 0644); err != nil {
		t.Fatal(err)
	}

	f := newFixture(t, map[string][]browsertest.Response{
		upcomingURL: {listing()},
		pastURL:     {listing()},
	}, Config{OutputDir: out})

	if _, err := f.orch.Run(context.Background()); !errors.Is(err, ErrNoLinks) {
		t.Fatalf("Run() error = %v, want ErrNoLinks", err)
	}
	if got := readFile(t, previous); got != "old" {
		t.Errorf("previous output changed to %q", got)
	}
}

func TestRun_NoStaleData(t *testing.T) {
	out := filepath.Join(t.TempDir(), "out")
	pages := map[string][]browsertest.Response{
		upcomingURL: {listing("/events/1", "/events/2", "/events/3"), listing("/events/1")},
		pastURL:     {listing("/events/2"), listing()},
		eventA:      {detailPage("Show A", "")},
		eventB:      {detailPage("Show B", "")},
		eventC:      {detailPage("Show C", "")},
	}

	first := newFixture(t, pages, Config{OutputDir: out})
	if _, err := first.orch.Run(context.Background()); err != nil {
		t.Fatalf("first Run() error = %v", err)
	}
	if !exists(filepath.Join(out, UpcomingPartition, "event3")) {
		t.Fatal("first run did not write event3")
	}

	// The second run shares the opener so listings advance to their second response.
	second, err := New(Config{OutputDir: out, Partitions: DefaultPartitions(upcomingURL, pastURL)},
		collector.New(first.opener, fastOptions(), collector.DefaultConfig()),
		detail.New(first.opener, fastOptions(), testSelectors(), nil), nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := second.Run(context.Background()); err != nil {
		t.Fatalf("second Run() error = %v", err)
	}

	var got []string
	err = filepath.Walk(out, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, _ := filepath.Rel(out, path)
		if !info.IsDir() {
			got = append(got, filepath.ToSlash(rel))
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}

	want := []string{"upcoming_events/event1/event_details.txt"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("files after second run mismatch (-want +got):\n%s", diff)
	}
}

type recordingNotifier struct {
	got []*event.Record
	err error
}

func (n *recordingNotifier) Notify(ctx context.Context, events []*event.Record) error {
	n.got = append(n.got, events...)
	return n.err
}

func TestRun_CalendarAnnounceSummary(t *testing.T) {
	out := filepath.Join(t.TempDir(), "out")
	opener := browsertest.NewOpener(map[string][]browsertest.Response{
		upcomingURL: {listing("/events/1", "/events/2")},
		pastURL:     {listing("/events/3")},
		eventA:      {detailPage("Show A", "")},
		eventB:      {{NavErr: errors.New("timeout")}},
		eventC:      {detailPage("Show C", "")},
	})
	n := &recordingNotifier{}

	orch, err := New(Config{
		Partitions:    DefaultPartitions(upcomingURL, pastURL),
		OutputDir:     out,
		WriteCalendar: true,
		WriteSummary:  true,
	},
		collector.New(opener, fastOptions(), collector.DefaultConfig()),
		detail.New(opener, fastOptions(), testSelectors(), nil),
		n)
	if err != nil {
		t.Fatal(err)
	}

	summary, err := orch.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	// "Jan 1" has no year; the calendar assumes the current one.
	if !exists(filepath.Join(out, UpcomingPartition, "event1", storage.CalendarFile)) {
		t.Error("event1 calendar file missing")
	}
	if exists(filepath.Join(out, UpcomingPartition, "event2", storage.CalendarFile)) {
		t.Error("failed event should have no calendar file")
	}

	// Only successful upcoming events are announced.
	if len(n.got) != 1 || n.got[0].Title != "Show A" {
		t.Errorf("announced %+v, want only Show A", n.got)
	}
	if summary.Announced != 1 {
		t.Errorf("Announced = %d, want 1", summary.Announced)
	}

	var saved Summary
	s, _ := storage.New(out)
	if err := s.LoadSummary(&saved); err != nil {
		t.Fatalf("LoadSummary() error = %v", err)
	}
	if saved.RunID != summary.RunID {
		t.Errorf("saved RunID = %q, want %q", saved.RunID, summary.RunID)
	}
	if len(saved.Partitions) != 2 || len(saved.Partitions[0].Events) != 2 {
		t.Errorf("saved partitions = %+v", saved.Partitions)
	}
}

func TestRun_AnnounceFailureIsNotFatal(t *testing.T) {
	opener := browsertest.NewOpener(map[string][]browsertest.Response{
		upcomingURL: {listing("/events/1")},
		pastURL:     {listing()},
		eventA:      {detailPage("Show A", "")},
	})
	n := &recordingNotifier{err: errors.New("rate limited")}

	orch, err := New(Config{
		Partitions: DefaultPartitions(upcomingURL, pastURL),
		OutputDir:  t.TempDir(),
	},
		collector.New(opener, fastOptions(), collector.DefaultConfig()),
		detail.New(opener, fastOptions(), testSelectors(), nil),
		n)
	if err != nil {
		t.Fatal(err)
	}

	summary, err := orch.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if summary.AnnounceError == "" {
		t.Error("AnnounceError is empty")
	}
}

func TestRun_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	f := newFixture(t, map[string][]browsertest.Response{
		upcomingURL: {listing("/events/1")},
		pastURL:     {listing()},
		eventA:      {detailPage("Show A", "")},
	}, Config{})

	// Collect succeeds, then cancel before the event loop by cancelling
	// from a collector wrapper.
	f.orch.links = cancelAfterCollect{LinkCollector: f.orch.links, cancel: cancel}

	if _, err := f.orch.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Run() error = %v, want context.Canceled", err)
	}
}

type cancelAfterCollect struct {
	LinkCollector
	cancel context.CancelFunc
}

func (c cancelAfterCollect) Collect(ctx context.Context, url string) []string {
	links := c.LinkCollector.Collect(ctx, url)
	if url == pastURL {
		c.cancel()
	}
	return links
}

func TestNew_NoPartitions(t *testing.T) {
	if _, err := New(Config{OutputDir: t.TempDir()}, nil, nil, nil); err == nil {
		t.Error("New() without partitions expected error")
	}
}

func TestSummary_Duration(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s := &Summary{StartedAt: start}
	if s.Duration() != 0 {
		t.Errorf("Duration() before finish = %v, want 0", s.Duration())
	}
	s.FinishedAt = start.Add(90 * time.Second)
	if s.Duration() != 90*time.Second {
		t.Errorf("Duration() = %v, want 90s", s.Duration())
	}
}
