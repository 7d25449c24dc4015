package notify

import (
	"fmt"
	"os"
	"time"

	"github.com/dghubble/go-twitter/twitter" //nolint:staticcheck // Using stable v1.1 API
	"github.com/dghubble/oauth1"

	"github.com/pababhi7/device-checker/internal/device"
	"github.com/pababhi7/device-checker/internal/logger"
)

// TwitterNotifier posts changes as tweets. It is the alternate channel for
// deployments without a Telegram bot.
type TwitterNotifier struct {
	client *twitter.Client
}

// NewTwitterNotifier creates a Twitter notifier from environment credentials.
// Required environment variables:
//   - TWITTER_API_KEY
//   - TWITTER_API_SECRET
//   - TWITTER_ACCESS_TOKEN
//   - TWITTER_ACCESS_SECRET
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

	return &TwitterNotifier{client: twitter.NewClient(httpClient)}, nil
}

// Notify posts one tweet per change, continuing past individual failures.
func (n *TwitterNotifier) Notify(changes []*device.Change) error {
	if len(changes) == 0 {
		return nil
	}

	failed := 0
	var lastErr error
	for i, change := range changes {
		if _, _, err := n.client.Statuses.Update(formatTweet(change), nil); err != nil {
			failed++
			lastErr = err
			logger.Error("tweet delivery failed", logger.Fields{"key": change.Key}, err)
		}

		// Rate limiting: wait between tweets.
		if i < len(changes)-1 {
			time.Sleep(2 * time.Second)
		}
	}

	if failed > 0 {
		return &NotifyError{Failed: failed, Total: len(changes), Err: lastErr}
	}
	return nil
}

// Announce posts a standalone tweet.
func (n *TwitterNotifier) Announce(text string) error {
	if len(text) > 280 {
		text = text[:277] + "..."
	}
	if _, _, err := n.client.Statuses.Update(text, nil); err != nil {
		return &NotifyError{Failed: 1, Total: 1, Err: err}
	}
	return nil
}

// formatTweet renders a change within the tweet length limit.
func formatTweet(c *device.Change) string {
	var tweet string
	switch c.Type {
	case device.ChangeNew:
		tweet = fmt.Sprintf("🆕 New device in %s list!\n\n%s\nStatus: %s", c.Source, c.Title, c.New)
	case device.ChangeStatus:
		tweet = fmt.Sprintf("🔄 Status change (%s)\n\n%s\n%s → %s", c.Source, c.Title, c.Old, c.New)
	case device.ChangeRemoved:
		tweet = fmt.Sprintf("❌ Removed from %s list\n\n%s", c.Source, c.Title)
	default:
		tweet = c.Title
	}

	// Twitter limit is 280 characters.
	if len(tweet) > 280 {
		tweet = tweet[:277] + "..."
	}
	return tweet
}
