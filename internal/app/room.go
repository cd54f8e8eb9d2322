package app

import (
	"sort"
	"sync"
	"time"

	"github.com/dkeye/Stage/internal/core"
	"github.com/dkeye/Stage/internal/domain"
	"github.com/rs/zerolog/log"
)

// Room is the live state for one event. Every method assumes the caller
// holds the room through Registry.Do / Registry.DoOrCreate.
type Room struct {
	id        domain.EventID
	createdAt time.Time
	out       *fanout

	mu     sync.Mutex
	closed bool

	participants map[domain.UserID]*domain.Participant
	media        domain.MediaState
	subscribers  sinkSet
	interaction  sinkSet
	share        *domain.ScreenShareSession
}

func newRoom(id domain.EventID, out *fanout, now time.Time) *Room {
	return &Room{
		id:           id,
		createdAt:    now,
		out:          out,
		participants: make(map[domain.UserID]*domain.Participant),
		subscribers:  make(sinkSet),
		interaction:  make(sinkSet),
	}
}

func (r *Room) ID() domain.EventID { return r.id }

func (r *Room) ParticipantCount() int { return len(r.participants) }

func (r *Room) Participant(id domain.UserID) (domain.Participant, bool) {
	p, ok := r.participants[id]
	if !ok {
		return domain.Participant{}, false
	}
	return *p, true
}

// Participants returns a snapshot ordered by join time.
func (r *Room) Participants() []domain.Participant {
	out := make([]domain.Participant, 0, len(r.participants))
	for _, p := range r.participants {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].JoinedAt.Equal(out[j].JoinedAt) {
			return out[i].UserID < out[j].UserID
		}
		return out[i].JoinedAt.Before(out[j].JoinedAt)
	})
	return out
}

// Host returns the current host, if any.
func (r *Room) Host() (domain.UserID, bool) {
	for id, p := range r.participants {
		if p.IsHost {
			return id, true
		}
	}
	return "", false
}

func (r *Room) Media() domain.MediaState { return r.media }

func (r *Room) Share() *domain.ScreenShareSession { return r.share }

func (r *Room) SetShare(s *domain.ScreenShareSession) { r.share = s }

func (r *Room) SubscriberCount() int { return len(r.subscribers) }

func (r *Room) InteractionSubscriberCount() int { return len(r.interaction) }

// HasLiveSink reports whether the user still has a subscribed room sink.
func (r *Room) HasLiveSink(id domain.UserID) bool {
	for _, s := range r.subscribers {
		if s.UserID() == id {
			return true
		}
	}
	return false
}

func (r *Room) emit(ev domain.RoomEvent) PublishResult {
	if len(r.subscribers) == 0 {
		return PublishResult{}
	}
	frame, err := r.out.enc.EncodeRoomEvent(r.id, ev)
	if err != nil {
		log.Error().Err(err).Str("module", "app.fanout").Str("event_id", string(r.id)).Str("type", string(ev.Type)).Msg("encode room event")
		return PublishResult{}
	}
	return r.out.deliver(r.id, r.subscribers, frame, nil)
}

func (r *Room) emitInteraction(ev domain.InteractionEvent) PublishResult {
	if len(r.interaction) == 0 {
		return PublishResult{}
	}
	frame, err := r.out.enc.EncodeInteraction(r.id, ev)
	if err != nil {
		log.Error().Err(err).Str("module", "app.fanout").Str("event_id", string(r.id)).Str("type", string(ev.Type)).Msg("encode interaction")
		return PublishResult{}
	}
	return r.out.deliver(r.id, r.interaction, frame, nil)
}

// SendSignal delivers a signaling event to every room sink owned by ev.Target.
func (r *Room) SendSignal(ev domain.SignalEvent) (PublishResult, error) {
	frame, err := r.out.enc.EncodeSignal(ev)
	if err != nil {
		return PublishResult{}, err
	}
	return r.out.deliver(r.id, r.subscribers, frame, func(s core.Sink) bool {
		return s.UserID() == ev.Target
	}), nil
}

// BroadcastSignal delivers a signaling event to every room sink except
// those owned by exclude.
func (r *Room) BroadcastSignal(ev domain.SignalEvent, exclude domain.UserID) (PublishResult, error) {
	frame, err := r.out.enc.EncodeSignal(ev)
	if err != nil {
		return PublishResult{}, err
	}
	return r.out.deliver(r.id, r.subscribers, frame, func(s core.Sink) bool {
		return s.UserID() != exclude
	}), nil
}

// detach drops the Detachable sinks of userID, or all of them when userID
// is empty.
func (r *Room) detach(userID domain.UserID) {
	for _, set := range []sinkSet{r.subscribers, r.interaction} {
		for id, s := range set {
			d, ok := s.(core.Detachable)
			if !ok || (userID != "" && s.UserID() != userID) {
				continue
			}
			delete(set, id)
			d.Detach()
		}
	}
}

func (r *Room) destroy() {
	r.detach("")
	r.closed = true
	r.participants = nil
	r.subscribers = nil
	r.interaction = nil
	r.share = nil
}
