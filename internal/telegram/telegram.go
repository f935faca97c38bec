package telegram

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
)

const (
	apiBaseURL = "https://api.telegram.org"
	timeout    = 10 * time.Second

	// MaxMessageLength is the Bot API limit for one message.
	MaxMessageLength = 4096
)

// Client represents a Telegram Bot API client
type Client struct {
	botToken string
	chatID   string
	http     *resty.Client
}

// NewClient creates a new Telegram client
func NewClient(botToken, chatID string) (*Client, error) {
	return newClient(apiBaseURL, botToken, chatID)
}

func newClient(baseURL, botToken, chatID string) (*Client, error) {
	if botToken == "" {
		return nil, fmt.Errorf("bot token is required")
	}
	if chatID == "" {
		return nil, fmt.Errorf("chat ID is required")
	}

	return &Client{
		botToken: botToken,
		chatID:   chatID,
		http: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(timeout),
	}, nil
}

type sendMessageRequest struct {
	ChatID                string `json:"chat_id"`
	Text                  string `json:"text"`
	ParseMode             string `json:"parse_mode"`
	DisableWebPagePreview bool   `json:"disable_web_page_preview"`
}

type apiResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

// SendMessage sends a text message to the configured chat
func (c *Client) SendMessage(ctx context.Context, text string) error {
	if text == "" {
		return fmt.Errorf("message text is required")
	}

	var result apiResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("token", c.botToken).
		SetBody(sendMessageRequest{
			ChatID:                c.chatID,
			Text:                  text,
			ParseMode:             "HTML",
			DisableWebPagePreview: true,
		}).
		SetResult(&result).
		SetError(&result).
		Post("/bot{token}/sendMessage")
	if err != nil {
		return fmt.Errorf("sending request: %w", err)
	}

	if resp.StatusCode() != http.StatusOK {
		return fmt.Errorf("telegram API error (status %d): %s", resp.StatusCode(), result.Description)
	}
	if !result.OK {
		return fmt.Errorf("telegram API error: %s", result.Description)
	}

	return nil
}
