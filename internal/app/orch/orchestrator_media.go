package orch

import "github.com/dkeye/Stage/internal/domain"

// Screen-share signaling. The caller's identity is always the sender; a
// client can not speak for another user.

func (o *Orchestrator) StartShare(id domain.Identity, eventID domain.EventID) error {
	if !id.Role.CanHost() {
		return ErrForbidden
	}
	return o.Relay.StartShare(eventID, id.UserID)
}

func (o *Orchestrator) StopShare(id domain.Identity, eventID domain.EventID) error {
	return o.Relay.StopShareAs(eventID, id.UserID)
}

func (o *Orchestrator) ViewerJoined(id domain.Identity, eventID domain.EventID) error {
	return o.Relay.ViewerJoined(eventID, id.UserID)
}

func (o *Orchestrator) Offer(id domain.Identity, eventID domain.EventID, target domain.UserID, sdp []byte) error {
	return o.Relay.Offer(eventID, id.UserID, target, sdp)
}

func (o *Orchestrator) Answer(id domain.Identity, eventID domain.EventID, target domain.UserID, sdp []byte) error {
	return o.Relay.Answer(eventID, id.UserID, target, sdp)
}

func (o *Orchestrator) ICECandidate(id domain.Identity, eventID domain.EventID, target domain.UserID, candidate []byte) error {
	return o.Relay.ICECandidate(eventID, id.UserID, target, candidate)
}
