// Package telegram adapts Telegram bot updates to the bridge's
// platform-neutral event interface. Long-polling, reconnects, and rate
// limits stay behind the telegram-bot-api client.
package telegram
