package slackclient

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/amacrae2/parrot-bot/internal/retryutil"
)

const postMessageAttempts = 3

// PostMessage sends text to a channel, retrying rate limits and server
// errors.
func (c *Client) PostMessage(ctx context.Context, channelID, text string) error {
	if c == nil || c.token == "" {
		return fmt.Errorf("slack token is required")
	}
	channelID = strings.TrimSpace(channelID)
	text = strings.TrimSpace(text)
	if channelID == "" {
		return fmt.Errorf("%w: channel_id is required", ErrInvalidRequest)
	}
	if text == "" {
		return fmt.Errorf("%w: text is required", ErrInvalidRequest)
	}
	params := url.Values{}
	params.Set("channel", channelID)
	params.Set("text", text)

	var lastErr error
	for attempt := 1; attempt <= postMessageAttempts; attempt++ {
		status, headers, err := c.Call(ctx, "chat.postMessage", params, nil)
		if err == nil {
			return nil
		}
		lastErr = err
		if attempt >= postMessageAttempts {
			break
		}
		if status == 0 {
			status = http.StatusBadGateway
		}
		wait, retryable := retryutil.HTTPDelay(status, headers, attempt)
		if !retryable {
			break
		}
		if err := retryutil.Sleep(ctx, wait); err != nil {
			return err
		}
	}
	return lastErr
}
