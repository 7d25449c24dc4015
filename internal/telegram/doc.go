// Package telegram provides a minimal Telegram Bot API client and the HTML
// message formatting for device change notifications.
package telegram
