package slackclient

import (
	"context"
	"fmt"
	"net/url"
	"strings"
)

type User struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Deleted bool   `json:"deleted"`
	IsBot   bool   `json:"is_bot"`
}

const listPageLimit = "200"

// ListUsers walks users.list to the last cursor.
func (c *Client) ListUsers(ctx context.Context) ([]User, error) {
	var users []User
	cursor := ""
	for {
		params := url.Values{}
		params.Set("limit", listPageLimit)
		if cursor != "" {
			params.Set("cursor", cursor)
		}
		var out struct {
			Members  []User           `json:"members"`
			Metadata responseMetadata `json:"response_metadata"`
		}
		if _, _, err := c.Call(ctx, "users.list", params, &out); err != nil {
			return nil, err
		}
		users = append(users, out.Members...)
		cursor = strings.TrimSpace(out.Metadata.NextCursor)
		if cursor == "" {
			return users, nil
		}
	}
}

func (c *Client) UserInfo(ctx context.Context, userID string) (User, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return User{}, fmt.Errorf("%w: user id is required", ErrInvalidRequest)
	}
	params := url.Values{}
	params.Set("user", userID)
	var out struct {
		User *User `json:"user"`
	}
	if _, _, err := c.Call(ctx, "users.info", params, &out); err != nil {
		return User{}, err
	}
	if out.User == nil {
		return User{}, fmt.Errorf("%w: users.info: missing user", ErrDecode)
	}
	return *out.User, nil
}
