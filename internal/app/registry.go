package app

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/dkeye/Stage/internal/core"
	"github.com/dkeye/Stage/internal/domain"
	"github.com/rs/zerolog/log"
)

var (
	ErrNoEncoder     = errors.New("registry: encoder is required")
	ErrRoomNotFound  = fmt.Errorf("room: %w", core.ErrNotFound)
	ErrHostTaken     = fmt.Errorf("room already has a different host: %w", core.ErrInvalidState)
	ErrNilSink       = fmt.Errorf("sink is nil: %w", core.ErrInvalidInput)
	ErrEmptyInteract = fmt.Errorf("interaction payload: %w", core.ErrMalformedPayload)
)

// LeaveHook runs inside the room's critical section right after a
// participant is removed and before an empty room is destroyed.
type LeaveHook func(room *Room, userID domain.UserID, wasHost bool)

type RoomInfo struct {
	EventID      domain.EventID `json:"eventId"`
	Participants int            `json:"participants"`
	Subscribers  int            `json:"subscribers"`
	Sharing      bool           `json:"sharing"`
}

// Registry owns every room-scoped piece of mutable state. Each room is
// serialized by its own lock; different rooms never contend.
type Registry struct {
	mu    sync.RWMutex
	rooms map[domain.EventID]*Room

	out        *fanout
	now        func() time.Time
	leaveHooks []LeaveHook
}

type Option func(*Registry)

func WithPolicy(p Policy) Option { return func(r *Registry) { r.out.policy = p } }

func WithClock(now func() time.Time) Option { return func(r *Registry) { r.now = now } }

// NewRegistry fails fast when no encoder is configured.
func NewRegistry(enc core.Encoder, opts ...Option) (*Registry, error) {
	if enc == nil {
		return nil, ErrNoEncoder
	}
	r := &Registry{
		rooms: make(map[domain.EventID]*Room),
		out:   &fanout{enc: enc, policy: SimplePolicy{}},
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// AddLeaveHook must be called before the registry is shared.
func (r *Registry) AddLeaveHook(h LeaveHook) {
	r.leaveHooks = append(r.leaveHooks, h)
}

// acquire returns the room locked, or nil when absent and create is false.
func (r *Registry) acquire(id domain.EventID, create bool) *Room {
	for {
		r.mu.RLock()
		room := r.rooms[id]
		r.mu.RUnlock()

		if room == nil {
			if !create {
				return nil
			}
			r.mu.Lock()
			if room = r.rooms[id]; room == nil {
				room = newRoom(id, r.out, r.now())
				r.rooms[id] = room
				log.Debug().Str("module", "app.registry").Str("event_id", string(id)).Msg("room created")
			}
			r.mu.Unlock()
		}

		room.mu.Lock()
		if !room.closed {
			return room
		}
		// Destroyed between lookup and lock; its map entry is already gone.
		room.mu.Unlock()
		if !create {
			return nil
		}
	}
}

// destroyLocked must be called with room.mu held.
func (r *Registry) destroyLocked(room *Room) {
	room.destroy()
	r.mu.Lock()
	if r.rooms[room.id] == room {
		delete(r.rooms, room.id)
	}
	r.mu.Unlock()
	log.Info().Str("module", "app.registry").Str("event_id", string(room.id)).Msg("room destroyed")
}

// Do runs fn with the room held. Returns ErrRoomNotFound when absent.
func (r *Registry) Do(id domain.EventID, fn func(*Room) error) error {
	if err := id.Validate(); err != nil {
		return fmt.Errorf("%w: %w", core.ErrInvalidInput, err)
	}
	room := r.acquire(id, false)
	if room == nil {
		return ErrRoomNotFound
	}
	defer room.mu.Unlock()
	return fn(room)
}

// DoOrCreate is Do with getOrCreate semantics.
func (r *Registry) DoOrCreate(id domain.EventID, fn func(*Room) error) error {
	if err := id.Validate(); err != nil {
		return fmt.Errorf("%w: %w", core.ErrInvalidInput, err)
	}
	room := r.acquire(id, true)
	defer room.mu.Unlock()
	return fn(room)
}

func validate(eventID domain.EventID, userID domain.UserID) error {
	if err := eventID.Validate(); err != nil {
		return fmt.Errorf("%w: %w", core.ErrInvalidInput, err)
	}
	if err := userID.Validate(); err != nil {
		return fmt.Errorf("%w: %w", core.ErrInvalidInput, err)
	}
	return nil
}

// Join creates the room if absent and adds or refreshes the participant.
// A host claim against a different existing host fails with ErrHostTaken
// and leaves state untouched. A re-join never downgrades a host.
func (r *Registry) Join(eventID domain.EventID, userID domain.UserID, isHost bool) error {
	if err := validate(eventID, userID); err != nil {
		return err
	}
	return r.DoOrCreate(eventID, func(room *Room) error {
		return r.joinLocked(room, userID, isHost)
	})
}

// JoinAndSubscribe is Join followed by Subscribe under one room lock, so the
// room can not be destroyed between the two. The sink does not receive its
// own USER_JOINED.
func (r *Registry) JoinAndSubscribe(eventID domain.EventID, userID domain.UserID, isHost bool, s core.Sink) error {
	if err := validate(eventID, userID); err != nil {
		return err
	}
	if s == nil {
		return ErrNilSink
	}
	return r.DoOrCreate(eventID, func(room *Room) error {
		if err := r.joinLocked(room, userID, isHost); err != nil {
			return err
		}
		room.subscribers[s.ID()] = s
		return nil
	})
}

func (r *Registry) joinLocked(room *Room, userID domain.UserID, isHost bool) error {
	if isHost {
		if h, ok := room.Host(); ok && h != userID {
			log.Debug().Str("module", "app.registry").Str("event_id", string(room.id)).Str("user_id", string(userID)).Str("host", string(h)).Msg("host claim rejected")
			return ErrHostTaken
		}
	}
	p, ok := room.participants[userID]
	if !ok {
		p = &domain.Participant{UserID: userID, JoinedAt: r.now()}
		room.participants[userID] = p
	}
	p.IsHost = p.IsHost || isHost

	log.Info().Str("module", "app.registry").Str("event_id", string(room.id)).Str("user_id", string(userID)).Bool("host", p.IsHost).Msg("participant joined")
	room.emit(domain.RoomEvent{
		Type:    domain.UserJoined,
		UserID:  userID,
		Payload: mustPayload(struct {
			IsHost bool `json:"isHost"`
		}{p.IsHost}),
	})
	return nil
}

// Leave removes the participant and destroys the room when it empties.
// Unknown rooms and participants are a no-op.
func (r *Registry) Leave(eventID domain.EventID, userID domain.UserID) error {
	if err := validate(eventID, userID); err != nil {
		return err
	}
	err := r.Do(eventID, func(room *Room) error {
		p, ok := room.participants[userID]
		if !ok {
			return nil
		}
		delete(room.participants, userID)
		room.detach(userID)
		for _, h := range r.leaveHooks {
			h(room, userID, p.IsHost)
		}
		log.Info().Str("module", "app.registry").Str("event_id", string(eventID)).Str("user_id", string(userID)).Bool("was_host", p.IsHost).Msg("participant left")
		room.emit(domain.RoomEvent{
			Type:    domain.UserLeft,
			UserID:  userID,
			Payload: mustPayload(struct {
				WasHost bool `json:"wasHost"`
			}{p.IsHost}),
		})
		if len(room.participants) == 0 {
			r.destroyLocked(room)
		}
		return nil
	})
	if errors.Is(err, ErrRoomNotFound) {
		return nil
	}
	return err
}

// UpdateMediaState overwrites the host media flags. The room is created on
// demand so an update racing ahead of the host's join is not lost. Role
// checks are the caller's job.
func (r *Registry) UpdateMediaState(eventID domain.EventID, media domain.MediaState) error {
	return r.DoOrCreate(eventID, func(room *Room) error {
		room.media = media
		host, _ := room.Host()
		room.emit(domain.RoomEvent{
			Type:    domain.HostMediaUpdated,
			UserID:  host,
			Payload: mustPayload(media),
		})
		return nil
	})
}

// MediaState returns the recorded flags; zero value when the room is absent.
func (r *Registry) MediaState(eventID domain.EventID) domain.MediaState {
	var m domain.MediaState
	_ = r.Do(eventID, func(room *Room) error {
		m = room.media
		return nil
	})
	return m
}

// ListParticipants is a snapshot; empty when the room is absent.
func (r *Registry) ListParticipants(eventID domain.EventID) []domain.Participant {
	out := []domain.Participant{}
	_ = r.Do(eventID, func(room *Room) error {
		out = room.Participants()
		return nil
	})
	return out
}

func (r *Registry) IsParticipant(eventID domain.EventID, userID domain.UserID) bool {
	ok := false
	_ = r.Do(eventID, func(room *Room) error {
		_, ok = room.participants[userID]
		return nil
	})
	return ok
}

// HasLiveSink reports whether userID still owns a room-channel sink.
func (r *Registry) HasLiveSink(eventID domain.EventID, userID domain.UserID) bool {
	ok := false
	_ = r.Do(eventID, func(room *Room) error {
		ok = room.HasLiveSink(userID)
		return nil
	})
	return ok
}

func (r *Registry) Subscribe(eventID domain.EventID, s core.Sink) error {
	if s == nil {
		return ErrNilSink
	}
	return r.Do(eventID, func(room *Room) error {
		room.subscribers[s.ID()] = s
		log.Debug().Str("module", "app.registry").Str("event_id", string(eventID)).Str("sink", string(s.ID())).Msg("subscribed")
		return nil
	})
}

func (r *Registry) Unsubscribe(eventID domain.EventID, id core.SinkID) {
	_ = r.Do(eventID, func(room *Room) error {
		delete(room.subscribers, id)
		return nil
	})
}

func (r *Registry) SubscribeInteraction(eventID domain.EventID, s core.Sink) error {
	if s == nil {
		return ErrNilSink
	}
	return r.Do(eventID, func(room *Room) error {
		room.interaction[s.ID()] = s
		log.Debug().Str("module", "app.registry").Str("event_id", string(eventID)).Str("sink", string(s.ID())).Msg("subscribed to interactions")
		return nil
	})
}

func (r *Registry) UnsubscribeInteraction(eventID domain.EventID, id core.SinkID) {
	_ = r.Do(eventID, func(room *Room) error {
		delete(room.interaction, id)
		return nil
	})
}

// Emit fans a room event out to the room's subscribers. A room without
// subscribers (or without existence) is a silent no-op.
func (r *Registry) Emit(eventID domain.EventID, ev domain.RoomEvent) PublishResult {
	var res PublishResult
	_ = r.Do(eventID, func(room *Room) error {
		res = room.emit(ev)
		return nil
	})
	return res
}

// EmitInteraction validates the payload before fan-out. An invalid payload
// is dropped for every subscriber and logged.
func (r *Registry) EmitInteraction(eventID domain.EventID, ev domain.InteractionEvent) (PublishResult, error) {
	if !validInteractionPayload(ev.Payload) {
		log.Warn().Str("module", "app.fanout").Str("event_id", string(eventID)).Str("type", string(ev.Type)).Str("user_id", string(ev.UserID)).Msg("interaction dropped: malformed payload")
		return PublishResult{}, ErrEmptyInteract
	}
	var res PublishResult
	_ = r.Do(eventID, func(room *Room) error {
		res = room.emitInteraction(ev)
		return nil
	})
	return res, nil
}

func (r *Registry) List() []RoomInfo {
	r.mu.RLock()
	rooms := make([]*Room, 0, len(r.rooms))
	for _, room := range r.rooms {
		rooms = append(rooms, room)
	}
	r.mu.RUnlock()

	out := make([]RoomInfo, 0, len(rooms))
	for _, room := range rooms {
		room.mu.Lock()
		if !room.closed {
			out = append(out, RoomInfo{
				EventID:      room.id,
				Participants: len(room.participants),
				Subscribers:  len(room.subscribers),
				Sharing:      room.share != nil,
			})
		}
		room.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EventID < out[j].EventID })
	return out
}

// Sweep destroys participant-less rooms older than idle, e.g. rooms created
// by a media update whose host never joined.
func (r *Registry) Sweep(idle time.Duration) int {
	r.mu.RLock()
	rooms := make([]*Room, 0, len(r.rooms))
	for _, room := range r.rooms {
		rooms = append(rooms, room)
	}
	r.mu.RUnlock()

	threshold := r.now().Add(-idle)
	n := 0
	for _, room := range rooms {
		room.mu.Lock()
		if !room.closed && len(room.participants) == 0 && room.createdAt.Before(threshold) {
			r.destroyLocked(room)
			n++
		}
		room.mu.Unlock()
	}
	return n
}

// RunSweeper calls Sweep every period until ctx is done.
func (r *Registry) RunSweeper(ctx context.Context, period, idle time.Duration) {
	ticker := time.NewTicker(period)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "app.registry").Msg("sweeper stopped")
			return
		case <-ticker.C:
			if n := r.Sweep(idle); n > 0 {
				log.Info().Str("module", "app.registry").Int("rooms", n).Msg("swept idle rooms")
			}
		}
	}
}
