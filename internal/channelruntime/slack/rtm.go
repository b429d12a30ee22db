package slack

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/amacrae2/parrot-bot/internal/slackclient"
	"github.com/gorilla/websocket"
)

const defaultEventBuffer = 256

// RTMAPI is the part of the Web API the RTM transport needs.
type RTMAPI interface {
	RTMConnect(ctx context.Context) (slackclient.RTMSession, error)
	PostMessage(ctx context.Context, channelID, text string) error
}

type RTMOptions struct {
	Dialer      *websocket.Dialer
	EventBuffer int
	Logger      *slog.Logger
}

// RTMTransport reads events from a real time messaging websocket and sends
// replies through chat.postMessage.
type RTMTransport struct {
	api    RTMAPI
	dialer *websocket.Dialer
	buffer int
	logger *slog.Logger

	mu     sync.Mutex
	conn   *websocket.Conn
	events chan Event
	done   chan struct{}
	stop   chan struct{}
	wg     sync.WaitGroup
	selfID string
}

func NewRTMTransport(api RTMAPI, opts RTMOptions) *RTMTransport {
	dialer := opts.Dialer
	if dialer == nil {
		d := *websocket.DefaultDialer
		dialer = &d
	}
	buffer := opts.EventBuffer
	if buffer <= 0 {
		buffer = defaultEventBuffer
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &RTMTransport{api: api, dialer: dialer, buffer: buffer, logger: logger}
}

// SelfID is the bot's own user id from the last successful connect.
func (t *RTMTransport) SelfID() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.selfID
}

func (t *RTMTransport) Connect(ctx context.Context) error {
	if t == nil || t.api == nil {
		return fmt.Errorf("rtm transport is not initialized")
	}
	t.Close()

	session, err := t.api.RTMConnect(ctx)
	if err != nil {
		return fmt.Errorf("slack rtm.connect: %w", err)
	}
	conn, _, err := t.dialer.DialContext(ctx, session.URL, nil)
	if err != nil {
		return fmt.Errorf("slack rtm dial: %w", err)
	}

	t.mu.Lock()
	t.conn = conn
	t.events = make(chan Event, t.buffer)
	t.done = make(chan struct{})
	t.stop = make(chan struct{})
	t.selfID = strings.TrimSpace(session.SelfID)
	events, done, stop := t.events, t.done, t.stop
	t.mu.Unlock()

	t.wg.Add(1)
	go t.readLoop(conn, events, done, stop)
	t.logger.Info("slack_rtm_connected", "self_id", session.SelfID, "self", session.Self, "team_id", session.TeamID)
	return nil
}

func (t *RTMTransport) readLoop(conn *websocket.Conn, events chan<- Event, done, stop chan struct{}) {
	defer t.wg.Done()
	defer close(done)
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-stop:
			default:
				t.logger.Warn("slack_rtm_read_error", "error", err.Error())
			}
			return
		}
		ev, err := DecodeEvent(data)
		if err != nil {
			t.logger.Warn("slack_rtm_decode_error", "error", err.Error())
			continue
		}
		if ev.Type == "" {
			continue
		}
		if ev.Type == EventTypeGoodbye {
			t.logger.Info("slack_rtm_goodbye")
		}
		select {
		case events <- ev:
		case <-stop:
			return
		}
	}
}

// ReadEvents drains buffered events. Once the reader has stopped and the
// buffer is empty it returns ErrDisconnected.
func (t *RTMTransport) ReadEvents(ctx context.Context) ([]Event, error) {
	t.mu.Lock()
	events, done := t.events, t.done
	t.mu.Unlock()
	if events == nil {
		return nil, ErrDisconnected
	}
	out := drain(events)
	if len(out) > 0 {
		return out, nil
	}
	select {
	case <-done:
		if out = drain(events); len(out) > 0 {
			return out, nil
		}
		return nil, ErrDisconnected
	default:
		return nil, ctx.Err()
	}
}

func drain(events <-chan Event) []Event {
	var out []Event
	for {
		select {
		case ev := <-events:
			out = append(out, ev)
		default:
			return out
		}
	}
}

func (t *RTMTransport) SendMessage(ctx context.Context, channel, text string) error {
	if t == nil || t.api == nil {
		return fmt.Errorf("rtm transport is not initialized")
	}
	return t.api.PostMessage(ctx, channel, text)
}

// Close drops the current connection and waits for its reader to exit.
func (t *RTMTransport) Close() {
	if t == nil {
		return
	}
	t.mu.Lock()
	conn, stop := t.conn, t.stop
	t.conn, t.events, t.done, t.stop = nil, nil, nil, nil
	t.mu.Unlock()
	if stop != nil {
		close(stop)
	}
	if conn != nil {
		_ = conn.Close()
	}
	t.wg.Wait()
}
