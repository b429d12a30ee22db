package slackclient

import (
	"context"
	"fmt"
	"net/url"
	"strings"
)

type Conversation struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	// User is the other member of a direct message.
	User       string `json:"user,omitempty"`
	IsIM       bool   `json:"is_im"`
	IsMPIM     bool   `json:"is_mpim"`
	IsArchived bool   `json:"is_archived"`
}

// ListConversations walks conversations.list for the comma separated types
// (public_channel, im, mpim, ...), skipping archived ones.
func (c *Client) ListConversations(ctx context.Context, types string) ([]Conversation, error) {
	var convs []Conversation
	cursor := ""
	for {
		params := url.Values{}
		params.Set("limit", listPageLimit)
		params.Set("exclude_archived", "true")
		if strings.TrimSpace(types) != "" {
			params.Set("types", types)
		}
		if cursor != "" {
			params.Set("cursor", cursor)
		}
		var out struct {
			Channels []Conversation   `json:"channels"`
			Metadata responseMetadata `json:"response_metadata"`
		}
		if _, _, err := c.Call(ctx, "conversations.list", params, &out); err != nil {
			return nil, err
		}
		convs = append(convs, out.Channels...)
		cursor = strings.TrimSpace(out.Metadata.NextCursor)
		if cursor == "" {
			return convs, nil
		}
	}
}

func (c *Client) ConversationInfo(ctx context.Context, channelID string) (Conversation, error) {
	channelID = strings.TrimSpace(channelID)
	if channelID == "" {
		return Conversation{}, fmt.Errorf("%w: channel id is required", ErrInvalidRequest)
	}
	params := url.Values{}
	params.Set("channel", channelID)
	var out struct {
		Channel *Conversation `json:"channel"`
	}
	if _, _, err := c.Call(ctx, "conversations.info", params, &out); err != nil {
		return Conversation{}, err
	}
	if out.Channel == nil {
		return Conversation{}, fmt.Errorf("%w: conversations.info: missing channel", ErrDecode)
	}
	return *out.Channel, nil
}
