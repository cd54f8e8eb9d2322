package app

import (
	"errors"

	"github.com/dkeye/Stage/internal/core"
	"github.com/dkeye/Stage/internal/domain"
	json "github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
)

// PublishResult reports delivery stats for one frame.
type PublishResult struct {
	SendTo  int
	Dropped []core.SinkID
}

type sinkSet map[core.SinkID]core.Sink

// fanout delivers frames to a room's sink sets. It runs with the room lock
// held; sinks never block, so no I/O waits inside the critical section.
type fanout struct {
	enc    core.Encoder
	policy Policy
}

// deliver sends f to every sink in set accepted by match (nil matches all).
// A failed sink is removed from set and delivery continues with the rest.
func (f *fanout) deliver(eventID domain.EventID, set sinkSet, frame core.Frame, match func(core.Sink) bool) PublishResult {
	res := PublishResult{}
	for id, s := range set {
		if match != nil && !match(s) {
			continue
		}
		err := s.Send(frame)
		if err == nil {
			res.SendTo++
			continue
		}
		action := EvictSink
		if !errors.Is(err, core.ErrSinkClosed) && f.policy != nil {
			action = f.policy.OnSendError(eventID, s, err)
		}
		if action != EvictSink {
			continue
		}
		delete(set, id)
		res.Dropped = append(res.Dropped, id)
		log.Info().
			Err(err).
			Str("module", "app.fanout").
			Str("event_id", string(eventID)).
			Str("sink", string(id)).
			Str("user_id", string(s.UserID())).
			Msg("sink removed after failed send")
	}
	return res
}

// validInteractionPayload rejects empty or non-JSON payloads.
func validInteractionPayload(p string) bool {
	return p != "" && json.Valid([]byte(p))
}

func mustPayload(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		// Payload structs are plain bool/string records.
		panic(err)
	}
	return string(b)
}
