// Package telegram sends event digests through the Telegram Bot API.
//
// Authentication requires a bot token (from @BotFather) and a chat ID.
// Messages use Telegram's HTML parse mode, so every scraped value is escaped.
package telegram
