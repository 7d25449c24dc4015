package notify

import (
	"fmt"
	"os"
	"time"

	"github.com/pababhi7/device-checker/internal/device"
	"github.com/pababhi7/device-checker/internal/logger"
	"github.com/pababhi7/device-checker/internal/telegram"
)

// DefaultMaxMessages caps per-change messages in one run so a source layout
// change cannot flood the chat.
const DefaultMaxMessages = 25

// DefaultMessagePause spaces consecutive sends to stay under the Telegram
// bot rate limit.
const DefaultMessagePause = time.Second

// sender is the part of the Telegram client the notifier uses.
type sender interface {
	SendMessage(text string) error
}

// TelegramNotifier delivers changes as Telegram messages, one per change up
// to a cap, followed by an overflow trailer when the cap was hit.
type TelegramNotifier struct {
	client      sender
	maxMessages int
	pause       time.Duration
}

// NewTelegramNotifier creates a notifier from environment credentials.
// Required environment variables:
//   - TELEGRAM_BOT_TOKEN
//   - TELEGRAM_CHAT_ID
func NewTelegramNotifier() (*TelegramNotifier, error) {
	botToken := os.Getenv("TELEGRAM_BOT_TOKEN")
	chatID := os.Getenv("TELEGRAM_CHAT_ID")
	if botToken == "" || chatID == "" {
		return nil, fmt.Errorf("missing required Telegram credentials in environment variables")
	}

	client, err := telegram.NewClient(botToken, chatID)
	if err != nil {
		return nil, err
	}

	return &TelegramNotifier{
		client:      client,
		maxMessages: DefaultMaxMessages,
		pause:       DefaultMessagePause,
	}, nil
}

// SetMaxMessages overrides the per-run message cap.
func (n *TelegramNotifier) SetMaxMessages(max int) {
	if max > 0 {
		n.maxMessages = max
	}
}

// SetMessagePause overrides the delay between consecutive sends.
func (n *TelegramNotifier) SetMessagePause(d time.Duration) {
	n.pause = d
}

// Notify sends one message per change. A failed send is logged and the
// remaining messages are still attempted; a NotifyError summarizing the
// failures is returned at the end.
func (n *TelegramNotifier) Notify(changes []*device.Change) error {
	if len(changes) == 0 {
		return nil
	}

	send := changes
	skipped := 0
	if len(send) > n.maxMessages {
		skipped = len(send) - n.maxMessages
		send = send[:n.maxMessages]
	}

	failed := 0
	var lastErr error
	for i, change := range send {
		if err := n.client.SendMessage(telegram.FormatChange(change)); err != nil {
			failed++
			lastErr = err
			logger.Error("Telegram delivery failed", logger.Fields{
				"key":  change.Key,
				"type": string(change.Type),
			}, err)
		}
		if i < len(send)-1 && n.pause > 0 {
			time.Sleep(n.pause)
		}
	}

	if skipped > 0 {
		if err := n.client.SendMessage(telegram.FormatOverflow(skipped)); err != nil {
			logger.Error("Telegram overflow message failed", nil, err)
		}
	}

	if failed > 0 {
		return &NotifyError{Failed: failed, Total: len(send), Err: lastErr}
	}
	return nil
}

// Announce sends a single standalone message.
func (n *TelegramNotifier) Announce(text string) error {
	if err := n.client.SendMessage(text); err != nil {
		return &NotifyError{Failed: 1, Total: 1, Err: err}
	}
	return nil
}
