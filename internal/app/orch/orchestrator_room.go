package orch

import (
	"github.com/dkeye/Stage/internal/core"
	"github.com/dkeye/Stage/internal/domain"
	"github.com/rs/zerolog/log"
)

// Join admits the caller. Only host-capable roles may claim the host seat.
func (o *Orchestrator) Join(id domain.Identity, eventID domain.EventID, asHost bool) error {
	if asHost && !id.Role.CanHost() {
		log.Debug().Str("module", "orch").Str("user_id", string(id.UserID)).Str("role", string(id.Role)).Msg("host join rejected")
		return ErrForbidden
	}
	return o.Registry.Join(eventID, id.UserID, asHost)
}

// Attach is Join for a transport connection: the sink is subscribed to the
// room channel in the same step, so a joined user is never left without one.
func (o *Orchestrator) Attach(id domain.Identity, eventID domain.EventID, asHost bool, sink core.Sink) error {
	if asHost && !id.Role.CanHost() {
		return ErrForbidden
	}
	return o.Registry.JoinAndSubscribe(eventID, id.UserID, asHost, sink)
}

func (o *Orchestrator) Leave(id domain.Identity, eventID domain.EventID) error {
	return o.Registry.Leave(eventID, id.UserID)
}

func (o *Orchestrator) UpdateMedia(id domain.Identity, eventID domain.EventID, media domain.MediaState) error {
	if !id.Role.CanHost() {
		return ErrForbidden
	}
	return o.Registry.UpdateMediaState(eventID, media)
}

func (o *Orchestrator) Participants(eventID domain.EventID) []domain.Participant {
	return o.Registry.ListParticipants(eventID)
}
