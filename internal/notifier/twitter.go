package notifier

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/dghubble/go-twitter/twitter" //nolint:staticcheck // Using stable v1.1 API
	"github.com/dghubble/oauth1"
	"github.com/pfrederiksen/promoter-events/internal/event"
	"github.com/pfrederiksen/promoter-events/internal/logger"
)

// MaxPostLength is the Twitter character limit
const MaxPostLength = 280

// DefaultPostInterval spaces consecutive posts.
const DefaultPostInterval = 2 * time.Second

// TwitterNotifier posts events to Twitter
type TwitterNotifier struct {
	httpClient *http.Client
	interval   time.Duration
}

// NewTwitterNotifier creates a new Twitter notifier using environment variables
// Required environment variables:
// - TWITTER_API_KEY
// - TWITTER_API_SECRET
// - TWITTER_ACCESS_TOKEN
// - TWITTER_ACCESS_SECRET
func NewTwitterNotifier() (*TwitterNotifier, error) {
	apiKey := os.Getenv("TWITTER_API_KEY")
	apiSecret := os.Getenv("TWITTER_API_SECRET")
	accessToken := os.Getenv("TWITTER_ACCESS_TOKEN")
	accessSecret := os.Getenv("TWITTER_ACCESS_SECRET")

	if apiKey == "" || apiSecret == "" || accessToken == "" || accessSecret == "" {
		return nil, fmt.Errorf("missing required Twitter credentials in environment variables")
	}

	config := oauth1.NewConfig(apiKey, apiSecret)
	token := oauth1.NewToken(accessToken, accessSecret)
	httpClient := config.Client(oauth1.NoContext, token)

	return newTwitterNotifier(httpClient, DefaultPostInterval), nil
}

func newTwitterNotifier(httpClient *http.Client, interval time.Duration) *TwitterNotifier {
	return &TwitterNotifier{
		httpClient: httpClient,
		interval:   interval,
	}
}

// contextTransport attaches ctx to every request, since the Twitter client
// builds its requests without one.
type contextTransport struct {
	ctx  context.Context
	base http.RoundTripper
}

func (t contextTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	return t.base.RoundTrip(req.WithContext(t.ctx))
}

func (n *TwitterNotifier) clientFor(ctx context.Context) *twitter.Client {
	base := n.httpClient.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	return twitter.NewClient(&http.Client{
		Transport: contextTransport{ctx: ctx, base: base},
		Timeout:   n.httpClient.Timeout,
	})
}

// Notify posts one tweet per event, stopping at the first failure
func (n *TwitterNotifier) Notify(ctx context.Context, events []*event.Record) error {
	client := n.clientFor(ctx)
	for i, rec := range events {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("announcing interrupted: %w", err)
		}
		post := formatPost(rec)

		tweet, _, err := client.Statuses.Update(post, nil)
		if err != nil {
			return fmt.Errorf("posting announcement for %s: %w", rec.SourceURL, err)
		}
		logger.Info("Announcement posted", logger.Fields{
			"event":    rec.SourceURL,
			"tweet_id": tweet.IDStr,
		})

		// Rate limiting: wait between tweets
		if i < len(events)-1 && n.interval > 0 {
			timer := time.NewTimer(n.interval)
			select {
			case <-ctx.Done():
				timer.Stop()
				return fmt.Errorf("announcing interrupted: %w", ctx.Err())
			case <-timer.C:
			}
		}
	}

	return nil
}

// formatPost formats an event announcement
func formatPost(rec *event.Record) string {
	var b strings.Builder

	title := rec.Title
	if title == "" {
		title = "New event"
	}
	b.WriteString(fmt.Sprintf("🎶 %s\n", title))

	when := strings.TrimSpace(strings.Join([]string{rec.Date, rec.Time}, " "))
	if when != "" {
		b.WriteString(fmt.Sprintf("📅 %s\n", when))
	}

	if venue := strings.Trim(rec.VenueName+", "+rec.VenueLocation, ", "); venue != "" {
		b.WriteString(fmt.Sprintf("📍 %s\n", venue))
	}

	if rec.SourceURL != "" {
		b.WriteString(fmt.Sprintf("\n🎟️ %s", rec.SourceURL))
	}

	return truncate(strings.TrimRight(b.String(), "\n"), MaxPostLength)
}

// truncate shortens s to at most max runes, ending with an ellipsis.
func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-3]) + "..."
}
