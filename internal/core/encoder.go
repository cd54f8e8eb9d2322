package core

import "github.com/dkeye/Stage/internal/domain"

// Encoder is the serialization boundary: one method per outbound channel.
// It is injected at construction time; there is no fallback encoder.
type Encoder interface {
	EncodeRoomEvent(eventID domain.EventID, ev domain.RoomEvent) (Frame, error)
	EncodeInteraction(eventID domain.EventID, ev domain.InteractionEvent) (Frame, error)
	EncodeSignal(ev domain.SignalEvent) (Frame, error)
}
