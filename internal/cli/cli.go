package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/pfrederiksen/promoter-events/internal/browser"
	"github.com/pfrederiksen/promoter-events/internal/collector"
	"github.com/pfrederiksen/promoter-events/internal/config"
	"github.com/pfrederiksen/promoter-events/internal/detail"
	"github.com/pfrederiksen/promoter-events/internal/logger"
	"github.com/pfrederiksen/promoter-events/internal/notifier"
	"github.com/pfrederiksen/promoter-events/internal/orchestrator"
	"github.com/spf13/cobra"
)

const (
	ExitSuccess = 0
	ExitError   = 1
)

var version = "dev"

// newOpener is replaced in tests.
var newOpener = func(opts browser.RodOptions) browser.Opener {
	return browser.NewRodOpener(opts)
}

type flags struct {
	config            string
	out               string
	upcomingURL       string
	pastURL           string
	captchaGuard      bool
	headless          bool
	browserURL        string
	maxRetries        int
	navigationTimeout time.Duration
	posters           bool
	ics               bool
	summary           bool
	announce          string
	format            string
	verbose           bool
}

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	f := &flags{}
	def := config.Default()

	cmd := &cobra.Command{
		Use:   "promoter-events",
		Short: "Scrape a promoter's upcoming and past events",
		Long: `Drives a headless browser through a promoter's upcoming and past event
listings, visits every event page and saves its details and poster under
upcoming_events/event<N> and past_events/event<N>.

Both output directories are wiped at the start of every run that finds at
least one event link.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScrape(cmd, f)
		},
	}

	// Define flags
	cmd.Flags().StringVar(&f.config, "config", "", "Path to a JSON5 config file")
	cmd.Flags().StringVar(&f.out, "out", def.OutputDir, "Directory to write upcoming_events and past_events into")
	cmd.Flags().StringVar(&f.upcomingURL, "upcoming-url", def.UpcomingURL, "Listing page of upcoming events")
	cmd.Flags().StringVar(&f.pastURL, "past-url", def.PastURL, "Listing page of past events")
	cmd.Flags().BoolVar(&f.captchaGuard, "captcha-guard", true, "Abort a listing without retrying when a CAPTCHA is shown")
	cmd.Flags().BoolVar(&f.headless, "headless", true, "Run Chrome without a window")
	cmd.Flags().StringVar(&f.browserURL, "browser-url", "", "DevTools URL of a running Chrome to attach to")
	cmd.Flags().IntVar(&f.maxRetries, "max-retries", def.Retry.MaxAttempts, "Attempts per page before giving up")
	cmd.Flags().DurationVar(&f.navigationTimeout, "navigation-timeout", def.Browser.NavigationTimeout.Std(), "Limit for loading a page until the network is idle (0 waits forever)")
	cmd.Flags().BoolVar(&f.posters, "posters", true, "Download event posters")
	cmd.Flags().BoolVar(&f.ics, "ics", false, "Write an event.ics calendar file per event")
	cmd.Flags().BoolVar(&f.summary, "summary", false, "Write run_summary.json into the output directory")
	cmd.Flags().StringVar(&f.announce, "announce", "", "Announce upcoming events: dry-run, twitter or telegram")
	cmd.Flags().StringVar(&f.format, "format", "text", "Output format: text or json")
	cmd.Flags().BoolVar(&f.verbose, "verbose", false, "Enable verbose logging")

	return cmd
}

// applyFlags overrides cfg with every flag given on the command line.
func applyFlags(cmd *cobra.Command, f *flags, cfg *config.Config) {
	set := cmd.Flags().Changed

	if set("out") {
		cfg.OutputDir = f.out
	}
	if set("upcoming-url") {
		cfg.UpcomingURL = f.upcomingURL
	}
	if set("past-url") {
		cfg.PastURL = f.pastURL
	}
	if set("captcha-guard") {
		cfg.Collector.ChallengeGuard = config.Bool(f.captchaGuard)
	}
	if set("headless") {
		cfg.Browser.Headless = config.Bool(f.headless)
	}
	if set("browser-url") {
		cfg.Browser.URL = f.browserURL
	}
	if set("max-retries") {
		cfg.Retry.MaxAttempts = f.maxRetries
	}
	if set("navigation-timeout") {
		cfg.Browser.NavigationTimeout = config.Duration(f.navigationTimeout)
	}
	if set("posters") {
		cfg.Poster.Enabled = config.Bool(f.posters)
	}
	if set("ics") {
		cfg.Calendar = config.Bool(f.ics)
	}
	if set("summary") {
		cfg.Summary = config.Bool(f.summary)
	}
	if set("announce") {
		cfg.Announce = strings.ToLower(strings.TrimSpace(f.announce))
	}
	if f.verbose {
		cfg.LogLevel = string(logger.LevelDebug)
	}
}

// runScrape is the main command logic
func runScrape(cmd *cobra.Command, f *flags) error {
	// Validate format
	format := OutputFormat(strings.ToLower(f.format))
	if format != FormatText && format != FormatJSON {
		return fmt.Errorf("invalid format: %s (must be 'text' or 'json')", f.format)
	}

	cfg, err := config.Load(f.config)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	applyFlags(cmd, f, &cfg)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger.SetDefault(logger.New(logger.ParseLevel(cfg.LogLevel), cmd.ErrOrStderr()))

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Dry-run posts would corrupt JSON on stdout.
	announceOut := cmd.OutOrStdout()
	if format == FormatJSON {
		announceOut = cmd.ErrOrStderr()
	}
	n, err := newNotifier(cfg.Announce, announceOut)
	if err != nil {
		return err
	}

	opener := newOpener(cfg.RodOptions())
	opts := cfg.BrowserOptions()

	var downloader *detail.Downloader
	if cfg.PostersEnabled() {
		downloader = detail.NewDownloader(cfg.Browser.UserAgent, cfg.DownloadTimeout(), cfg.RetryPolicy())
	}

	orch, err := orchestrator.New(
		cfg.OrchestratorConfig(),
		collector.New(opener, opts, cfg.CollectorConfig()),
		detail.New(opener, opts, cfg.Selectors, downloader),
		n,
	)
	if err != nil {
		return fmt.Errorf("initializing run: %w", err)
	}

	summary, runErr := orch.Run(ctx)
	if summary != nil {
		if summary.Metrics == nil {
			summary.Metrics = logger.GetMetricsSnapshot()
		}
		if err := WriteOutput(cmd.OutOrStdout(), summary, format, f.verbose); err != nil {
			return fmt.Errorf("writing output: %w", err)
		}
	}
	if runErr != nil {
		if errors.Is(runErr, orchestrator.ErrNoLinks) {
			return fmt.Errorf("scrape failed: %w", runErr)
		}
		return runErr
	}
	return nil
}

func newNotifier(target string, out io.Writer) (notifier.Notifier, error) {
	switch target {
	case config.AnnounceNone:
		return nil, nil
	case config.AnnounceDryRun:
		return notifier.NewDryRunNotifier(out), nil
	case config.AnnounceTwitter:
		tw, err := notifier.NewTwitterNotifier()
		if err != nil {
			return nil, fmt.Errorf("initializing Twitter client: %w", err)
		}
		return tw, nil
	case config.AnnounceTelegram:
		tg, err := notifier.NewTelegramNotifier()
		if err != nil {
			return nil, fmt.Errorf("initializing Telegram client: %w", err)
		}
		return tg, nil
	default:
		return nil, fmt.Errorf("unknown announce target: %s", target)
	}
}

// Execute runs the CLI
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(ExitError)
	}
	os.Exit(ExitSuccess)
}
