package core

import (
	"errors"

	"github.com/dkeye/Stage/internal/domain"
)

// Frame is an encoded outbound payload.
type Frame []byte

type SinkID string

var (
	// ErrSinkClosed is the explicit "closed" result of Sink.Send.
	ErrSinkClosed = errors.New("sink closed")
	// ErrBackpressure means the sink is alive but its buffer is full.
	ErrBackpressure = errors.New("backpressure")
)

// Sink is one connected client's ability to receive pushed frames.
// Send must not block. Owned by the adapter; the adapter must Close() it.
type Sink interface {
	ID() SinkID
	UserID() domain.UserID
	Send(Frame) error
}

// Detachable is implemented by sinks bound to exactly one room, such as an
// SSE stream. The registry calls Detach, under the room lock, when it drops
// the sink because its owner left or the room was destroyed. Detach must
// not block.
type Detachable interface {
	Detach()
}
