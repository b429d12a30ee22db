package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/amacrae2/parrot-bot/internal/channelruntime/slack"
	"github.com/amacrae2/parrot-bot/internal/corpus"
	"github.com/amacrae2/parrot-bot/internal/history"
	"github.com/amacrae2/parrot-bot/internal/parrot"
	"github.com/amacrae2/parrot-bot/internal/slackclient"
)

const slackbotUserID = "USLACKBOT"

// slackChat implements parrot.Chat on the Web API with the bot token.
type slackChat struct {
	api *slackclient.Client
}

func (c slackChat) SendMessage(ctx context.Context, channel, text string) error {
	return classifySlackError(c.api.PostMessage(ctx, channel, text))
}

func (c slackChat) AddReaction(ctx context.Context, channel, name, ts string) error {
	return classifySlackError(c.api.AddReaction(ctx, channel, name, ts))
}

func (c slackChat) ListEmoji(ctx context.Context) ([]string, error) {
	names, err := c.api.EmojiList(ctx)
	return names, classifySlackError(err)
}

func (c slackChat) ListUsers(ctx context.Context) ([]parrot.User, error) {
	users, err := c.api.ListUsers(ctx)
	if err != nil {
		return nil, classifySlackError(err)
	}
	out := make([]parrot.User, 0, len(users))
	for _, u := range users {
		if u.Deleted || u.IsBot || u.ID == slackbotUserID || strings.TrimSpace(u.Name) == "" {
			continue
		}
		out = append(out, parrot.User{ID: u.ID, Name: u.Name})
	}
	return out, nil
}

func (c slackChat) ListChannels(ctx context.Context) ([]string, error) {
	convs, err := c.api.ListConversations(ctx, "public_channel")
	if err != nil {
		return nil, classifySlackError(err)
	}
	names := make([]string, 0, len(convs))
	for _, conv := range convs {
		if name := strings.TrimSpace(conv.Name); name != "" {
			names = append(names, name)
		}
	}
	return names, nil
}

func (c slackChat) UserName(ctx context.Context, userID string) (string, error) {
	u, err := c.api.UserInfo(ctx, userID)
	if err != nil {
		return "", classifySlackError(err)
	}
	return u.Name, nil
}

func (c slackChat) ChannelName(ctx context.Context, channelID string) (string, error) {
	conv, err := c.api.ConversationInfo(ctx, channelID)
	if err != nil {
		return "", classifySlackError(err)
	}
	return conv.Name, nil
}

// classifySlackError marks API level failures recoverable and treats
// anything else as a lost connection.
func classifySlackError(err error) error {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var apiErr *slackclient.APIError
	if errors.As(err, &apiErr) || errors.Is(err, slackclient.ErrDecode) || errors.Is(err, slackclient.ErrInvalidRequest) {
		return slack.Recoverable(err)
	}
	return fmt.Errorf("%w: %w", slack.ErrDisconnected, err)
}

// slackSearcher runs history searches with the user token.
type slackSearcher struct {
	api *slackclient.Client
}

func (s slackSearcher) SearchMessages(ctx context.Context, query string, page, count int) (history.Page, error) {
	res, err := s.api.SearchMessages(ctx, query, page, count)
	if err != nil {
		return history.Page{}, mapSearchError(err)
	}
	out := history.Page{TotalPages: res.Pages}
	for _, m := range res.Matches {
		out.Matches = append(out.Matches, corpus.Entry{Key: m.Permalink, Text: m.Text})
	}
	return out, nil
}

func mapSearchError(err error) error {
	if errors.Is(err, slackclient.ErrDecode) {
		return fmt.Errorf("%w: %w", history.ErrTransientDecode, err)
	}
	return err
}
