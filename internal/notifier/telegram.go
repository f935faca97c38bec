package notifier

import (
	"context"
	"fmt"
	"os"

	"github.com/pfrederiksen/promoter-events/internal/event"
	"github.com/pfrederiksen/promoter-events/internal/telegram"
)

// messageSender is the part of telegram.Client used for announcements.
type messageSender interface {
	SendMessage(ctx context.Context, text string) error
}

// TelegramNotifier posts a digest of events to a Telegram chat
type TelegramNotifier struct {
	client messageSender
}

// NewTelegramNotifier creates a Telegram notifier using environment variables
// Required environment variables:
// - TELEGRAM_BOT_TOKEN
// - TELEGRAM_CHAT_ID
func NewTelegramNotifier() (*TelegramNotifier, error) {
	client, err := telegram.NewClient(os.Getenv("TELEGRAM_BOT_TOKEN"), os.Getenv("TELEGRAM_CHAT_ID"))
	if err != nil {
		return nil, fmt.Errorf("creating Telegram client: %w", err)
	}
	return &TelegramNotifier{client: client}, nil
}

// Notify sends the events as one digest, split over several messages if long
func (n *TelegramNotifier) Notify(ctx context.Context, events []*event.Record) error {
	for i, msg := range telegram.FormatDigest(events) {
		if err := n.client.SendMessage(ctx, msg); err != nil {
			return fmt.Errorf("sending digest part %d: %w", i+1, err)
		}
	}
	return nil
}
