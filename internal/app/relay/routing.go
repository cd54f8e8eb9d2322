package relay

import (
	"github.com/dkeye/Stage/internal/app"
	"github.com/dkeye/Stage/internal/domain"
	"github.com/rs/zerolog/log"
)

// ViewerJoined registers a viewer and hands its identity to the host, who
// then creates an offer out of band.
func (r *Relay) ViewerJoined(eventID domain.EventID, viewer domain.UserID) error {
	return r.reg.Do(eventID, func(room *app.Room) error {
		s := room.Share()
		if s == nil {
			return ErrNotSharing
		}
		if s.IsHost(viewer) {
			return ErrInvalidRoute
		}
		if _, ok := room.Participant(viewer); !ok {
			return ErrNotParticipant
		}
		if _, ok := s.Viewers[viewer]; !ok {
			s.Viewers[viewer] = domain.ViewerPending
		}
		return r.sendToHostLocked(room, s, domain.SignalEvent{
			Type:    domain.ViewerJoined,
			EventID: eventID,
			From:    viewer,
			Target:  s.HostID,
		})
	})
}

// Offer routes the host's offer to the named viewer.
func (r *Relay) Offer(eventID domain.EventID, from, target domain.UserID, payload []byte) error {
	return r.reg.Do(eventID, func(room *app.Room) error {
		s := room.Share()
		if s == nil {
			return ErrNotSharing
		}
		if !s.IsHost(from) {
			return ErrNotSharer
		}
		if s.IsHost(target) {
			return ErrInvalidRoute
		}
		if _, ok := room.Participant(target); !ok {
			return ErrUnknownViewer
		}
		s.Viewers[target] = domain.ViewerOffered
		return r.sendToViewerLocked(room, s, domain.SignalEvent{
			Type:    domain.Offer,
			EventID: eventID,
			From:    from,
			Target:  target,
			Payload: payload,
		})
	})
}

// Answer routes a viewer's answer back to the host.
func (r *Relay) Answer(eventID domain.EventID, from, target domain.UserID, payload []byte) error {
	return r.reg.Do(eventID, func(room *app.Room) error {
		s := room.Share()
		if s == nil {
			return ErrNotSharing
		}
		if !s.IsHost(target) || s.IsHost(from) {
			return ErrInvalidRoute
		}
		if _, ok := s.Viewers[from]; !ok {
			return ErrUnknownViewer
		}
		s.Viewers[from] = domain.ViewerConnected
		return r.sendToHostLocked(room, s, domain.SignalEvent{
			Type:    domain.Answer,
			EventID: eventID,
			From:    from,
			Target:  target,
			Payload: payload,
		})
	})
}

// ICECandidate relays a candidate in either direction between the host and
// one of its viewers.
func (r *Relay) ICECandidate(eventID domain.EventID, from, target domain.UserID, payload []byte) error {
	return r.reg.Do(eventID, func(room *app.Room) error {
		s := room.Share()
		if s == nil {
			return ErrNotSharing
		}
		ev := domain.SignalEvent{
			Type:    domain.ICECandidate,
			EventID: eventID,
			From:    from,
			Target:  target,
			Payload: payload,
		}
		switch {
		case s.IsHost(from) && !s.IsHost(target):
			if _, ok := s.Viewers[target]; !ok {
				return ErrUnknownViewer
			}
			return r.sendToViewerLocked(room, s, ev)
		case s.IsHost(target) && !s.IsHost(from):
			if _, ok := s.Viewers[from]; !ok {
				return ErrUnknownViewer
			}
			return r.sendToHostLocked(room, s, ev)
		default:
			return ErrInvalidRoute
		}
	})
}

func (r *Relay) sendToViewerLocked(room *app.Room, s *domain.ScreenShareSession, ev domain.SignalEvent) error {
	res, err := room.SendSignal(ev)
	if err != nil {
		return err
	}
	if res.SendTo == 0 && !room.HasLiveSink(ev.Target) {
		delete(s.Viewers, ev.Target)
		log.Debug().Str("module", "relay").Str("event_id", string(ev.EventID)).Str("viewer", string(ev.Target)).Str("type", string(ev.Type)).Msg("viewer unreachable")
		return ErrTargetUnreachable
	}
	return nil
}
