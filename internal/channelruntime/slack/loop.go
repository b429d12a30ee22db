// Package slack runs the bot's event loop over a Slack transport: it polls
// for events, hands messages to a handler and applies the retry, reconnect
// and shutdown policy.
package slack

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/amacrae2/parrot-bot/internal/retryutil"
)

const (
	DefaultPollInterval   = 500 * time.Millisecond
	DefaultRetryCycles    = 25
	DefaultReconnectDelay = 2 * time.Second

	StartupNotice     = "waking up... _(type `parrot commands` to see list of commands)_"
	RecoverableNotice = "uh oh, something went wrong - try again..."
	ShutdownNotice    = "going to sleep..."
)

type Dependencies struct {
	Logger    func() (*slog.Logger, error)
	Transport Transport
	Handler   Handler
}

type LoopOptions struct {
	// HomeChannel receives the shutdown notice.
	HomeChannel string
	// StartupChannel receives the startup notice. Empty skips it.
	StartupChannel string
	PollInterval   time.Duration
	// RetryCycles is how many caught errors the loop survives.
	RetryCycles    int
	ReconnectDelay time.Duration
	// SelfID is the bot's own user id; its messages are skipped. When empty
	// and the transport reports one, the transport's id is used.
	SelfID string
}

func (o LoopOptions) withDefaults() LoopOptions {
	if o.PollInterval <= 0 {
		o.PollInterval = DefaultPollInterval
	}
	if o.RetryCycles <= 0 {
		o.RetryCycles = DefaultRetryCycles
	}
	if o.ReconnectDelay <= 0 {
		o.ReconnectDelay = DefaultReconnectDelay
	}
	o.HomeChannel = strings.TrimSpace(o.HomeChannel)
	o.StartupChannel = strings.TrimSpace(o.StartupChannel)
	return o
}

// eventError ties a handler failure to the channel of the event.
type eventError struct {
	channel string
	err     error
}

func (e *eventError) Error() string { return e.err.Error() }
func (e *eventError) Unwrap() error { return e.err }

type loop struct {
	transport Transport
	handler   Handler
	opts      LoopOptions
	logger    *slog.Logger
}

// Run connects and processes events until ctx is done (returns nil), the
// retry cycles are used up (returns nil) or a fatal error occurs (returns
// it).
func Run(ctx context.Context, d Dependencies, opts LoopOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	logger, err := loggerFromDeps(d)
	if err != nil {
		return err
	}
	if d.Transport == nil {
		return fmt.Errorf("Transport dependency missing")
	}
	if d.Handler == nil {
		return fmt.Errorf("Handler dependency missing")
	}
	l := &loop{transport: d.Transport, handler: d.Handler, opts: opts.withDefaults(), logger: logger}
	return l.run(ctx)
}

func loggerFromDeps(d Dependencies) (*slog.Logger, error) {
	if d.Logger == nil {
		return nil, fmt.Errorf("Logger dependency missing")
	}
	return d.Logger()
}

func (l *loop) run(ctx context.Context) error {
	if err := l.transport.Connect(ctx); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("slack connect: %w", err)
	}
	if l.opts.StartupChannel != "" {
		l.send(ctx, l.opts.StartupChannel, StartupNotice)
	}
	l.logger.Info("slack_start",
		"home_channel", l.opts.HomeChannel,
		"poll_interval", l.opts.PollInterval.String(),
		"retry_cycles", l.opts.RetryCycles,
	)

	remaining := l.opts.RetryCycles
	for {
		err := l.process(ctx)
		if ctx.Err() != nil {
			l.logger.Info("slack_stop", "reason", "context_canceled")
			return nil
		}
		remaining--
		switch {
		case errors.Is(err, ErrDisconnected):
			l.logger.Warn("slack_disconnected", "retries_left", remaining)
			if remaining > 0 && !l.reconnect(ctx, &remaining) && ctx.Err() != nil {
				l.logger.Info("slack_stop", "reason", "context_canceled")
				return nil
			}
		case errors.Is(err, ErrRecoverable):
			channel := ""
			var evErr *eventError
			if errors.As(err, &evErr) {
				channel = evErr.channel
			}
			l.logger.Warn("slack_recoverable_error", "channel", channel, "retries_left", remaining, "error", err.Error())
			if channel != "" {
				l.send(ctx, channel, RecoverableNotice)
			}
		default:
			l.logger.Error("slack_fatal_error", "error", err.Error())
			l.send(ctx, l.opts.HomeChannel, ShutdownNotice)
			return err
		}
		if remaining <= 0 {
			l.logger.Warn("slack_stop", "reason", "retries_exhausted", "retry_cycles", l.opts.RetryCycles)
			l.send(ctx, l.opts.HomeChannel, ShutdownNotice)
			return nil
		}
	}
}

// process polls and dispatches until an error or cancellation.
func (l *loop) process(ctx context.Context) error {
	for {
		events, err := l.transport.ReadEvents(ctx)
		if err != nil {
			return err
		}
		selfID := l.selfID()
		for i, ev := range events {
			if !ev.Dispatchable() {
				continue
			}
			msg := *ev.Message
			if selfID != "" && msg.User == selfID {
				continue
			}
			l.logger.Debug("slack_message", "channel", msg.Channel, "user", msg.User, "ts", msg.TS)
			if err := l.handler.HandleMessage(ctx, msg); err != nil {
				if rest := len(events) - i - 1; rest > 0 {
					l.logger.Warn("slack_events_dropped", "count", rest)
				}
				return &eventError{channel: msg.Channel, err: err}
			}
		}
		if err := retryutil.Sleep(ctx, l.opts.PollInterval); err != nil {
			return err
		}
	}
}

func (l *loop) selfID() string {
	if l.opts.SelfID != "" {
		return l.opts.SelfID
	}
	if s, ok := l.transport.(interface{ SelfID() string }); ok {
		return s.SelfID()
	}
	return ""
}

// reconnect retries Connect until it succeeds, ctx is done or the remaining
// retry cycles are used up. Each failed attempt costs one cycle.
func (l *loop) reconnect(ctx context.Context, remaining *int) bool {
	for {
		err := l.transport.Connect(ctx)
		if err == nil {
			l.logger.Info("slack_reconnected")
			return true
		}
		if ctx.Err() != nil {
			return false
		}
		*remaining--
		l.logger.Warn("slack_reconnect_error", "retries_left", *remaining, "error", err.Error())
		if *remaining <= 0 {
			return false
		}
		if err := retryutil.Sleep(ctx, l.opts.ReconnectDelay); err != nil {
			return false
		}
	}
}

func (l *loop) send(ctx context.Context, channel, text string) {
	if strings.TrimSpace(channel) == "" {
		l.logger.Warn("slack_notice_dropped", "text", text)
		return
	}
	if err := l.transport.SendMessage(ctx, channel, text); err != nil {
		l.logger.Warn("slack_send_error", "channel", channel, "error", err.Error())
	}
}
