// Package relay brokers screen-share signaling between one host and the
// viewers of a room. It is a router plus a two-state machine (Idle,
// Sharing); SDP and ICE payloads pass through untouched.
package relay

import (
	"fmt"
	"time"

	"github.com/dkeye/Stage/internal/app"
	"github.com/dkeye/Stage/internal/core"
	"github.com/dkeye/Stage/internal/domain"
	json "github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
)

var (
	ErrAlreadySharing    = fmt.Errorf("screen share already active: %w", core.ErrInvalidState)
	ErrNotSharing        = fmt.Errorf("no active screen share: %w", core.ErrInvalidState)
	ErrNotHost           = fmt.Errorf("not the room host: %w", core.ErrInvalidState)
	ErrNotSharer         = fmt.Errorf("not the sharing host: %w", core.ErrInvalidState)
	ErrInvalidRoute      = fmt.Errorf("signal must travel between host and viewer: %w", core.ErrInvalidState)
	ErrNotParticipant    = fmt.Errorf("participant: %w", core.ErrNotFound)
	ErrUnknownViewer     = fmt.Errorf("viewer: %w", core.ErrNotFound)
	ErrTargetUnreachable = fmt.Errorf("target has no live sink: %w", core.ErrNotFound)
)

const (
	ReasonStopped     = "stopped"
	ReasonHostLeft    = "host_left"
	ReasonUnreachable = "host_unreachable"
)

// Relay keeps no state of its own: the share session lives in the room and
// every transition runs inside the registry's per-room critical section.
type Relay struct {
	reg *app.Registry
	now func() time.Time
}

func New(reg *app.Registry) *Relay {
	r := &Relay{reg: reg, now: time.Now}
	reg.AddLeaveHook(r.onLeave)
	return r
}

// StartShare moves Idle -> Sharing. Only the room's host may share, and a
// second share is rejected without touching the current one.
func (r *Relay) StartShare(eventID domain.EventID, host domain.UserID) error {
	return r.reg.Do(eventID, func(room *app.Room) error {
		p, ok := room.Participant(host)
		if !ok {
			return ErrNotParticipant
		}
		if !p.IsHost {
			return ErrNotHost
		}
		if room.Share() != nil {
			return ErrAlreadySharing
		}
		room.SetShare(domain.NewScreenShareSession(host, r.now()))

		started := domain.SignalEvent{Type: domain.ScreenShareStarted, EventID: eventID, From: host}
		res, err := room.BroadcastSignal(started, host)
		if err != nil {
			room.SetShare(nil)
			return err
		}
		// Viewers that were already present identify themselves.
		if _, err := room.BroadcastSignal(domain.SignalEvent{Type: domain.RequestViewers, EventID: eventID, From: host}, host); err != nil {
			log.Error().Err(err).Str("module", "relay").Str("event_id", string(eventID)).Msg("request-viewers")
		}
		log.Info().Str("module", "relay").Str("event_id", string(eventID)).Str("host", string(host)).Int("notified", res.SendTo).Msg("share started")
		return nil
	})
}

// StopShare moves Sharing -> Idle. From Idle it is a no-op and returns false.
func (r *Relay) StopShare(eventID domain.EventID) bool {
	stopped := false
	_ = r.reg.Do(eventID, func(room *app.Room) error {
		stopped = r.stopLocked(room, ReasonStopped)
		return nil
	})
	return stopped
}

// StopShareAs is StopShare on behalf of a caller, who must be the sharer.
func (r *Relay) StopShareAs(eventID domain.EventID, by domain.UserID) error {
	return r.reg.Do(eventID, func(room *app.Room) error {
		s := room.Share()
		if s == nil {
			return nil
		}
		if !s.IsHost(by) {
			return ErrNotSharer
		}
		r.stopLocked(room, ReasonStopped)
		return nil
	})
}

// Sharer reports who is sharing in the room.
func (r *Relay) Sharer(eventID domain.EventID) (domain.UserID, bool) {
	var host domain.UserID
	var ok bool
	_ = r.reg.Do(eventID, func(room *app.Room) error {
		if s := room.Share(); s != nil {
			host, ok = s.HostID, true
		}
		return nil
	})
	return host, ok
}

// Viewers returns the viewers with a pending or active peer connection.
func (r *Relay) Viewers(eventID domain.EventID) map[domain.UserID]domain.ViewerState {
	out := map[domain.UserID]domain.ViewerState{}
	_ = r.reg.Do(eventID, func(room *app.Room) error {
		if s := room.Share(); s != nil {
			for id, st := range s.Viewers {
				out[id] = st
			}
		}
		return nil
	})
	return out
}

// Disconnect handles a user's transport going away. A sharing host forces
// Sharing -> Idle; a viewer is dropped and the host told.
func (r *Relay) Disconnect(eventID domain.EventID, userID domain.UserID) {
	_ = r.reg.Do(eventID, func(room *app.Room) error {
		r.dropLocked(room, userID)
		return nil
	})
}

func (r *Relay) onLeave(room *app.Room, userID domain.UserID, _ bool) {
	r.dropLocked(room, userID)
}

func (r *Relay) dropLocked(room *app.Room, userID domain.UserID) {
	s := room.Share()
	if s == nil {
		return
	}
	if s.IsHost(userID) {
		r.stopLocked(room, ReasonHostLeft)
		return
	}
	if _, ok := s.Viewers[userID]; !ok {
		return
	}
	delete(s.Viewers, userID)
	r.sendToHostLocked(room, s, domain.SignalEvent{
		Type:    domain.ViewerLeft,
		EventID: room.ID(),
		From:    userID,
		Target:  s.HostID,
	})
}

func (r *Relay) stopLocked(room *app.Room, reason string) bool {
	s := room.Share()
	if s == nil {
		return false
	}
	room.SetShare(nil)
	payload, _ := json.Marshal(struct {
		Reason string `json:"reason"`
	}{reason})
	ev := domain.SignalEvent{Type: domain.ScreenShareStopped, EventID: room.ID(), From: s.HostID, Payload: payload}
	if _, err := room.BroadcastSignal(ev, ""); err != nil {
		log.Error().Err(err).Str("module", "relay").Str("event_id", string(room.ID())).Msg("screen-share-stopped")
	}
	log.Info().Str("module", "relay").Str("event_id", string(room.ID())).Str("host", string(s.HostID)).Str("reason", reason).Int("viewers", len(s.Viewers)).Msg("share stopped")
	return true
}

// sendToHostLocked routes ev to the host. A host without any live sink can
// not keep sharing, so the session is torn down.
func (r *Relay) sendToHostLocked(room *app.Room, s *domain.ScreenShareSession, ev domain.SignalEvent) error {
	res, err := room.SendSignal(ev)
	if err != nil {
		return err
	}
	if res.SendTo == 0 && !room.HasLiveSink(s.HostID) {
		r.stopLocked(room, ReasonUnreachable)
		return ErrNotSharing
	}
	return nil
}
