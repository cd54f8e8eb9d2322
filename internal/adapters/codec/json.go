// Package codec is the wire encoding used by the WebSocket and SSE
// transports.
package codec

import (
	"github.com/dkeye/Stage/internal/core"
	"github.com/dkeye/Stage/internal/domain"
	json "github.com/goccy/go-json"
)

const (
	ChannelRoom        = "room"
	ChannelInteraction = "interaction"
	ChannelSignal      = "signal"
)

type eventFrame struct {
	Channel     string         `json:"channel"`
	EventID     domain.EventID `json:"eventId"`
	Type        string         `json:"type"`
	UserID      domain.UserID  `json:"userId,omitempty"`
	PayloadJSON string         `json:"payloadJson"`
}

type signalFrame struct {
	Channel string          `json:"channel"`
	Type    string          `json:"type"`
	EventID domain.EventID  `json:"eventId"`
	From    domain.UserID   `json:"from,omitempty"`
	Target  domain.UserID   `json:"target,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// JSON implements core.Encoder.
type JSON struct{}

var _ core.Encoder = JSON{}

func (JSON) EncodeRoomEvent(eventID domain.EventID, ev domain.RoomEvent) (core.Frame, error) {
	return json.Marshal(eventFrame{
		Channel:     ChannelRoom,
		EventID:     eventID,
		Type:        string(ev.Type),
		UserID:      ev.UserID,
		PayloadJSON: ev.Payload,
	})
}

func (JSON) EncodeInteraction(eventID domain.EventID, ev domain.InteractionEvent) (core.Frame, error) {
	return json.Marshal(eventFrame{
		Channel:     ChannelInteraction,
		EventID:     eventID,
		Type:        string(ev.Type),
		UserID:      ev.UserID,
		PayloadJSON: ev.Payload,
	})
}

// EncodeSignal embeds SDP/ICE payloads as-is when they are JSON and as a
// JSON string otherwise. The payload is never inspected beyond that.
func (JSON) EncodeSignal(ev domain.SignalEvent) (core.Frame, error) {
	f := signalFrame{
		Channel: ChannelSignal,
		Type:    string(ev.Type),
		EventID: ev.EventID,
		From:    ev.From,
		Target:  ev.Target,
	}
	if len(ev.Payload) > 0 {
		if json.Valid(ev.Payload) {
			f.Payload = json.RawMessage(ev.Payload)
		} else {
			quoted, err := json.Marshal(string(ev.Payload))
			if err != nil {
				return nil, err
			}
			f.Payload = quoted
		}
	}
	return json.Marshal(f)
}
