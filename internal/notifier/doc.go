// Package notifier announces newly scraped upcoming events.
//
// The Twitter notifier authenticates with OAuth1 credentials taken from the
// environment and spaces its posts to stay clear of rate limits. The Telegram
// notifier sends one digest to a chat. The dry-run notifier only prints the
// posts.
package notifier
