package slackclient

import (
	"context"
	"fmt"
	"strings"
)

type RTMSession struct {
	URL    string
	SelfID string
	Self   string
	TeamID string
}

// RTMConnect asks for a websocket URL for the real time messaging API.
func (c *Client) RTMConnect(ctx context.Context) (RTMSession, error) {
	var out struct {
		URL  string `json:"url"`
		Self *struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		} `json:"self"`
		Team *struct {
			ID string `json:"id"`
		} `json:"team"`
	}
	if _, _, err := c.Call(ctx, "rtm.connect", nil, &out); err != nil {
		return RTMSession{}, err
	}
	s := RTMSession{URL: strings.TrimSpace(out.URL)}
	if s.URL == "" {
		return RTMSession{}, fmt.Errorf("%w: rtm.connect: missing url", ErrDecode)
	}
	if out.Self != nil {
		s.SelfID = out.Self.ID
		s.Self = out.Self.Name
	}
	if out.Team != nil {
		s.TeamID = out.Team.ID
	}
	return s, nil
}
