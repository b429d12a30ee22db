package slack

import (
	"errors"
	"fmt"
)

var (
	// ErrDisconnected reports a transport whose connection is gone; the loop
	// reconnects and carries on.
	ErrDisconnected = errors.New("slack: transport disconnected")
	// ErrRecoverable marks an error caused by bad data in one event. The loop
	// reports it in the event's channel and carries on.
	ErrRecoverable = errors.New("slack: recoverable error")
)

type recoverableError struct {
	err error
}

func (e *recoverableError) Error() string {
	return fmt.Sprintf("recoverable: %v", e.err)
}

func (e *recoverableError) Unwrap() []error {
	return []error{ErrRecoverable, e.err}
}

// Recoverable wraps err so errors.Is(err, ErrRecoverable) holds. A nil err
// stays nil.
func Recoverable(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrRecoverable) {
		return err
	}
	return &recoverableError{err: err}
}
