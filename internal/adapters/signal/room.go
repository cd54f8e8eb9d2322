package signal

import (
	"github.com/dkeye/Stage/internal/core"
	"github.com/dkeye/Stage/internal/domain"
	"github.com/rs/zerolog/log"
)

type joinedReply struct {
	Type         string               `json:"type"`
	EventID      domain.EventID       `json:"eventId"`
	Participants []domain.Participant `json:"participants"`
	Media        domain.MediaState    `json:"media"`
	Sharer       domain.UserID        `json:"sharer,omitempty"`
}

func (ctl *SignalWSController) handleJoin(c *WsSignalConn, msg inbound) {
	if err := ctl.Orch.Attach(c.user, msg.EventID, msg.AsHost, c); err != nil {
		ctl.sendError(c, msg.Type, err)
		return
	}
	c.rooms[msg.EventID] = struct{}{}
	log.Info().Str("module", "signal").Str("sink", string(c.id)).Str("event_id", string(msg.EventID)).Bool("host", msg.AsHost).Msg("join")

	resp := joinedReply{
		Type:         "joined",
		EventID:      msg.EventID,
		Participants: ctl.Orch.Participants(msg.EventID),
		Media:        ctl.Orch.Registry.MediaState(msg.EventID),
	}
	if host, ok := ctl.Orch.Relay.Sharer(msg.EventID); ok {
		resp.Sharer = host
	}
	ctl.sendJSON(c, resp)
}

// handleLeave leaves the room; the connection stays open.
func (ctl *SignalWSController) handleLeave(c *WsSignalConn, msg inbound) {
	if _, ok := c.rooms[msg.EventID]; !ok {
		ctl.sendError(c, msg.Type, core.ErrNotFound)
		return
	}
	delete(c.rooms, msg.EventID)
	ctl.Orch.Registry.Unsubscribe(msg.EventID, c.id)
	ctl.Orch.Registry.UnsubscribeInteraction(msg.EventID, c.id)
	if err := ctl.Orch.Leave(c.user, msg.EventID); err != nil {
		ctl.sendError(c, msg.Type, err)
		return
	}
	log.Info().Str("module", "signal").Str("sink", string(c.id)).Str("event_id", string(msg.EventID)).Msg("leave")
	ctl.sendJSON(c, map[string]any{
		"type":    "left",
		"eventId": msg.EventID,
	})
}

func (ctl *SignalWSController) handleMedia(c *WsSignalConn, msg inbound) {
	if msg.Media == nil {
		ctl.sendError(c, msg.Type, core.ErrMalformedPayload)
		return
	}
	if err := ctl.Orch.UpdateMedia(c.user, msg.EventID, *msg.Media); err != nil {
		ctl.sendError(c, msg.Type, err)
	}
}

func (ctl *SignalWSController) handleSubscribeInteractions(c *WsSignalConn, msg inbound) {
	if _, ok := c.rooms[msg.EventID]; !ok {
		ctl.sendError(c, msg.Type, core.ErrNotFound)
		return
	}
	if err := ctl.Orch.Registry.SubscribeInteraction(msg.EventID, c); err != nil {
		ctl.sendError(c, msg.Type, err)
		return
	}
	ctl.sendJSON(c, map[string]any{
		"type":    "subscribed",
		"eventId": msg.EventID,
	})
}
