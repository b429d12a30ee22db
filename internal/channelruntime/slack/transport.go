package slack

import "context"

// Transport is the chat connection the loop drives.
type Transport interface {
	Connect(ctx context.Context) error
	// ReadEvents returns whatever events are buffered without blocking. It
	// returns ErrDisconnected once the connection has dropped.
	ReadEvents(ctx context.Context) ([]Event, error)
	SendMessage(ctx context.Context, channel, text string) error
}

// Handler processes one dispatchable message to completion.
type Handler interface {
	HandleMessage(ctx context.Context, msg MessageEvent) error
}

type HandlerFunc func(ctx context.Context, msg MessageEvent) error

func (f HandlerFunc) HandleMessage(ctx context.Context, msg MessageEvent) error {
	return f(ctx, msg)
}
