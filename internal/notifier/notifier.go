package notifier

import (
	"context"

	"github.com/pfrederiksen/promoter-events/internal/event"
)

// Notifier defines the interface for announcing scraped events
type Notifier interface {
	// Notify posts the announcements, giving up once ctx is done
	Notify(ctx context.Context, events []*event.Record) error
}
