package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"dario.cat/mergo"
	"github.com/pfrederiksen/promoter-events/internal/browser"
	"github.com/pfrederiksen/promoter-events/internal/collector"
	"github.com/pfrederiksen/promoter-events/internal/detail"
	"github.com/pfrederiksen/promoter-events/internal/logger"
	"github.com/pfrederiksen/promoter-events/internal/orchestrator"
	"github.com/pfrederiksen/promoter-events/internal/retry"
	"github.com/titanous/json5"
)

const (
	DefaultUpcomingURL = "https://ra.co/promoters/105908/events"
	DefaultPastURL     = "https://ra.co/promoters/105908/past-events"
)

// Announcement targets.
const (
	AnnounceNone     = ""
	AnnounceDryRun   = "dry-run"
	AnnounceTwitter  = "twitter"
	AnnounceTelegram = "telegram"
)

// Config holds every setting of a run.
type Config struct {
	OutputDir   string `json:"output_dir"`
	UpcomingURL string `json:"upcoming_url"`
	PastURL     string `json:"past_url"`

	Browser   BrowserConfig    `json:"browser"`
	Retry     RetryConfig      `json:"retry"`
	Collector CollectorConfig  `json:"collector"`
	Selectors detail.Selectors `json:"selectors"`
	Poster    PosterConfig     `json:"poster"`

	// Calendar writes an event.ics next to each event_details.txt.
	Calendar *bool `json:"calendar"`
	// Summary writes run_summary.json into the output directory.
	Summary  *bool  `json:"summary"`
	Announce string `json:"announce"`
	LogLevel string `json:"log_level"`
}

// BrowserConfig configures the Chrome instance.
type BrowserConfig struct {
	// Headless is a pointer so a file can switch it off.
	Headless *bool  `json:"headless"`
	Bin      string `json:"bin"`
	// URL attaches to a running browser's DevTools endpoint instead of launching one.
	URL               string   `json:"url"`
	UserAgent         string   `json:"user_agent"`
	ViewportWidth     int      `json:"viewport_width"`
	ViewportHeight    int      `json:"viewport_height"`
	NavigationTimeout Duration `json:"navigation_timeout"`
	IdleWindow        Duration `json:"idle_window"`
}

// RetryConfig bounds the attempt loop around every page.
type RetryConfig struct {
	MaxAttempts   int      `json:"max_attempts"`
	Backoff       Duration `json:"backoff"`
	PostLoadDelay Duration `json:"post_load_delay"`
}

// CollectorConfig configures listing-page link collection.
type CollectorConfig struct {
	LinkSelector      string `json:"link_selector"`
	ChallengeSelector string `json:"challenge_selector"`
	ChallengeGuard    *bool  `json:"challenge_guard"`
}

// PosterConfig configures poster downloads.
type PosterConfig struct {
	Enabled *bool    `json:"enabled"`
	Timeout Duration `json:"timeout"`
}

// Bool returns a pointer to b.
func Bool(b bool) *bool {
	return &b
}

func isTrue(b *bool) bool {
	return b != nil && *b
}

// Default returns the built-in configuration.
func Default() Config {
	rod := browser.DefaultRodOptions()
	opts := browser.DefaultOptions()
	col := collector.DefaultConfig()

	return Config{
		OutputDir:   ".",
		UpcomingURL: DefaultUpcomingURL,
		PastURL:     DefaultPastURL,
		Browser: BrowserConfig{
			Headless:          Bool(rod.Headless),
			UserAgent:         rod.UserAgent,
			ViewportWidth:     rod.ViewportWidth,
			ViewportHeight:    rod.ViewportHeight,
			NavigationTimeout: Duration(rod.NavigationTimeout),
			IdleWindow:        Duration(rod.IdleWindow),
		},
		Retry: RetryConfig{
			MaxAttempts:   opts.Policy.MaxAttempts,
			Backoff:       Duration(opts.Policy.Backoff),
			PostLoadDelay: Duration(opts.PostLoadDelay),
		},
		Collector: CollectorConfig{
			LinkSelector:      col.LinkSelector,
			ChallengeSelector: col.ChallengeSelector,
			ChallengeGuard:    Bool(col.ChallengeGuard),
		},
		Selectors: detail.DefaultSelectors(),
		Poster: PosterConfig{
			Enabled: Bool(true),
			Timeout: Duration(detail.DefaultDownloadTimeout),
		},
		Calendar: Bool(false),
		Summary:  Bool(false),
		LogLevel: string(logger.LevelInfo),
	}
}

// Load returns Default overridden by the file at path and by its
// "<name>.local.<ext>" sibling when present. An empty path returns Default.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	found := false
	for _, p := range []string{path, localPath(path)} {
		var override Config
		ok, err := readFile(p, &override)
		if err != nil {
			return cfg, err
		}
		if !ok {
			continue
		}
		if err := mergo.Merge(&cfg, override, mergo.WithOverride, mergo.WithoutDereference); err != nil {
			return cfg, fmt.Errorf("merging config %s: %w", p, err)
		}
		found = true
		logger.Debug("Config loaded", logger.Fields{"path": p})
	}

	if !found {
		return cfg, fmt.Errorf("reading config: %w", os.ErrNotExist)
	}
	return cfg, nil
}

func readFile(path string, out *Config) (bool, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("reading config %s: %w", path, err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return false, nil
	}
	if err := json5.Unmarshal(data, out); err != nil {
		return false, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return true, nil
}

// localPath turns "dir/config.json5" into "dir/config.local.json5".
func localPath(path string) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + ".local" + ext
}

// Validate reports the first setting that cannot work.
func (c Config) Validate() error {
	for name, u := range map[string]string{"upcoming_url": c.UpcomingURL, "past_url": c.PastURL} {
		if err := validateURL(u); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	if c.Browser.URL != "" {
		if _, err := url.Parse(c.Browser.URL); err != nil {
			return fmt.Errorf("browser.url: %w", err)
		}
	}
	if c.Collector.LinkSelector == "" {
		return errors.New("collector.link_selector must not be empty")
	}
	if isTrue(c.Collector.ChallengeGuard) && c.Collector.ChallengeSelector == "" {
		return errors.New("collector.challenge_selector must not be empty while the guard is on")
	}
	if c.Retry.MaxAttempts < 1 {
		return fmt.Errorf("retry.max_attempts must be at least 1, got %d", c.Retry.MaxAttempts)
	}
	if c.Retry.Backoff < 0 || c.Retry.PostLoadDelay < 0 {
		return errors.New("retry durations must not be negative")
	}
	switch c.Announce {
	case AnnounceNone, AnnounceDryRun, AnnounceTwitter, AnnounceTelegram:
	default:
		return fmt.Errorf("announce must be %q, %q or %q, got %q", AnnounceDryRun, AnnounceTwitter, AnnounceTelegram, c.Announce)
	}
	return nil
}

func validateURL(raw string) error {
	if raw == "" {
		return errors.New("must not be empty")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return errors.New("missing host")
	}
	return nil
}

// RodOptions converts the browser section for browser.NewRodOpener.
func (c Config) RodOptions() browser.RodOptions {
	return browser.RodOptions{
		Headless:          isTrue(c.Browser.Headless),
		Bin:               c.Browser.Bin,
		BrowserURL:        c.Browser.URL,
		UserAgent:         c.Browser.UserAgent,
		ViewportWidth:     c.Browser.ViewportWidth,
		ViewportHeight:    c.Browser.ViewportHeight,
		NavigationTimeout: c.Browser.NavigationTimeout.Std(),
		IdleWindow:        c.Browser.IdleWindow.Std(),
	}
}

// BrowserOptions converts the retry section for browser.Run.
func (c Config) BrowserOptions() browser.Options {
	return browser.Options{
		Policy:        c.RetryPolicy(),
		PostLoadDelay: c.Retry.PostLoadDelay.Std(),
	}
}

// RetryPolicy returns the attempt policy shared by pages and downloads.
func (c Config) RetryPolicy() retry.Policy {
	return retry.Policy{
		MaxAttempts: c.Retry.MaxAttempts,
		Backoff:     c.Retry.Backoff.Std(),
	}
}

// CollectorConfig converts the collector section.
func (c Config) CollectorConfig() collector.Config {
	return collector.Config{
		LinkSelector:      c.Collector.LinkSelector,
		ChallengeSelector: c.Collector.ChallengeSelector,
		ChallengeGuard:    isTrue(c.Collector.ChallengeGuard),
	}
}

// PostersEnabled reports whether posters should be downloaded.
func (c Config) PostersEnabled() bool {
	return isTrue(c.Poster.Enabled)
}

// DownloadTimeout bounds a single poster transfer.
func (c Config) DownloadTimeout() time.Duration {
	return c.Poster.Timeout.Std()
}

// OrchestratorConfig converts the output settings.
func (c Config) OrchestratorConfig() orchestrator.Config {
	partitions := orchestrator.DefaultPartitions(c.UpcomingURL, c.PastURL)
	for i := range partitions {
		partitions[i].Announce = partitions[i].Announce && c.Announce != AnnounceNone
	}
	return orchestrator.Config{
		Partitions:    partitions,
		OutputDir:     c.OutputDir,
		WriteCalendar: isTrue(c.Calendar),
		WriteSummary:  isTrue(c.Summary),
	}
}
