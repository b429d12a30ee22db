package parrot

import "context"

type User struct {
	ID   string
	Name string
}

// Chat is what the bot needs from the chat platform.
type Chat interface {
	SendMessage(ctx context.Context, channel, text string) error
	AddReaction(ctx context.Context, channel, name, ts string) error
	ListEmoji(ctx context.Context) ([]string, error)
	// ListUsers returns the active human members of the workspace.
	ListUsers(ctx context.Context) ([]User, error)
	// ListChannels returns the names of the public channels, without '#'.
	ListChannels(ctx context.Context) ([]string, error)
	UserName(ctx context.Context, userID string) (string, error)
	ChannelName(ctx context.Context, channelID string) (string, error)
}
