package slack

import (
	"encoding/json"
	"fmt"
	"strings"
)

const (
	EventTypeMessage = "message"
	EventTypeHello   = "hello"
	EventTypeGoodbye = "goodbye"
)

// MessageEvent is a chat message. Every field is trimmed; missing fields are
// empty.
type MessageEvent struct {
	Channel string
	User    string
	Text    string
	TS      string
	Subtype string
}

// Event is one decoded real time event. Message is set only for message
// events that carry a channel.
type Event struct {
	Type    string
	Message *MessageEvent
}

// Dispatchable reports whether the event is a message with both a sender and
// text.
func (e Event) Dispatchable() bool {
	return e.Type == EventTypeMessage && e.Message != nil &&
		e.Message.User != "" && strings.TrimSpace(e.Message.Text) != ""
}

type rawEvent struct {
	Type    *string `json:"type"`
	Channel *string `json:"channel"`
	User    *string `json:"user"`
	Text    *string `json:"text"`
	TS      *string `json:"ts"`
	Subtype *string `json:"subtype"`
}

// DecodeEvent decodes one frame from the event stream. Frames with no type
// (acks for sent messages, for one) decode to an Event with an empty Type.
func DecodeEvent(raw []byte) (Event, error) {
	var in rawEvent
	if err := json.Unmarshal(raw, &in); err != nil {
		return Event{}, fmt.Errorf("decode slack event: %w", err)
	}
	ev := Event{Type: value(in.Type)}
	if ev.Type != EventTypeMessage || in.Channel == nil {
		return ev, nil
	}
	ev.Message = &MessageEvent{
		Channel: value(in.Channel),
		User:    value(in.User),
		Text:    value(in.Text),
		TS:      value(in.TS),
		Subtype: value(in.Subtype),
	}
	return ev, nil
}

func value(p *string) string {
	if p == nil {
		return ""
	}
	return strings.TrimSpace(*p)
}
