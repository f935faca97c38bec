package browser

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pfrederiksen/promoter-events/internal/logger"
	"github.com/pfrederiksen/promoter-events/internal/retry"
)

const DefaultPostLoadDelay = 2 * time.Second

// Page is the rendered view of one loaded URL.
type Page interface {
	// Navigate loads url and returns once the page is considered settled.
	Navigate(ctx context.Context, url string) error
	// HTML returns the current serialized DOM.
	HTML() (string, error)
	// InnerHTMLX returns the inner HTML of the first node matching xpath,
	// or "" when nothing matches.
	InnerHTMLX(xpath string) (string, error)
	// URL returns the page's current location, "" if unknown.
	URL() string
}

// Session is a Page that owns browser resources.
type Session interface {
	Page
	Close() error
}

// Opener starts browser sessions.
type Opener interface {
	Open(ctx context.Context) (Session, error)
}

// Options controls the attempt loop of Run.
type Options struct {
	Policy        retry.Policy  `json:"policy"`
	PostLoadDelay time.Duration `json:"post_load_delay"`
}

// DefaultOptions returns 3 attempts, a 3s pause between them and a 2s settle delay.
func DefaultOptions() Options {
	return Options{
		Policy:        retry.DefaultPolicy(),
		PostLoadDelay: DefaultPostLoadDelay,
	}
}

// Extractor pulls a result out of a loaded page.
type Extractor[T any] func(ctx context.Context, page Page) (T, error)

// Run loads url in a fresh session and applies extract, retrying the whole
// navigate-settle-extract sequence per Options. On success it returns the
// extracted value. Otherwise it returns the zero T together with the reason;
// callers are expected to degrade rather than abort.
func Run[T any](ctx context.Context, opener Opener, opts Options, url string, extract Extractor[T]) (T, error) {
	var zero T

	session, err := opener.Open(ctx)
	if err != nil {
		logger.Error("Could not open browser session", logger.Fields{"url": url}, err)
		return zero, fmt.Errorf("opening browser session: %w", err)
	}
	defer func() {
		if cerr := session.Close(); cerr != nil {
			logger.Warn("Closing browser session failed", logger.Fields{
				"url":   url,
				"error": cerr.Error(),
			})
		}
	}()

	attemptFn := func(ctx context.Context, attempt int) (T, error) {
		logger.IncrCounter("scrape.attempts")
		return runAttempt(ctx, session, opts, url, attempt, extract)
	}

	notify := func(err error, attempt, remaining int) {
		logger.IncrCounter("scrape.failures")
		logger.Warn("Scrape attempt failed", logger.Fields{
			"url":               url,
			"attempt":           attempt,
			"retries_remaining": remaining,
			"error":             err.Error(),
		})
	}

	res, attempts, err := retry.Do(ctx, opts.Policy, attemptFn, notify)
	if err != nil {
		if errors.Is(err, retry.ErrExhausted) {
			logger.Error("Giving up on page", logger.Fields{
				"url":      url,
				"attempts": attempts,
			}, err)
		}
		return zero, err
	}

	logger.Debug("Page extracted", logger.Fields{"url": url, "attempts": attempts})
	return res, nil
}

func runAttempt[T any](ctx context.Context, page Page, opts Options, url string, attempt int, extract Extractor[T]) (res T, err error) {
	defer func() {
		if r := recover(); r != nil {
			var zero T
			res, err = zero, fmt.Errorf("extraction panicked: %v", r)
		}
	}()

	logger.Debug("Navigating", logger.Fields{"url": url, "attempt": attempt})
	if err := page.Navigate(ctx, url); err != nil {
		return res, fmt.Errorf("navigating to %s: %w", url, err)
	}

	if err := sleep(ctx, opts.PostLoadDelay); err != nil {
		return res, err
	}

	return extract(ctx, page)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
