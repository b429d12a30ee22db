package slackclient

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// EmojiList returns the workspace's custom emoji names, sorted.
func (c *Client) EmojiList(ctx context.Context) ([]string, error) {
	var out struct {
		Emoji map[string]string `json:"emoji"`
	}
	if _, _, err := c.Call(ctx, "emoji.list", nil, &out); err != nil {
		return nil, err
	}
	names := make([]string, 0, len(out.Emoji))
	for name := range out.Emoji {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (c *Client) AddReaction(ctx context.Context, channelID, name, ts string) error {
	channelID = strings.TrimSpace(channelID)
	name = strings.Trim(strings.TrimSpace(name), ":")
	ts = strings.TrimSpace(ts)
	if channelID == "" || name == "" || ts == "" {
		return fmt.Errorf("%w: channel, name and timestamp are required", ErrInvalidRequest)
	}
	params := url.Values{}
	params.Set("channel", channelID)
	params.Set("name", name)
	params.Set("timestamp", ts)
	_, _, err := c.Call(ctx, "reactions.add", params, nil)
	return err
}
