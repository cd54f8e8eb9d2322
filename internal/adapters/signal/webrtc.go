package signal

import (
	"github.com/dkeye/Stage/internal/core"
	"github.com/dkeye/Stage/internal/domain"
	"github.com/rs/zerolog/log"
)

func (ctl *SignalWSController) handleStartShare(c *WsSignalConn, msg inbound) {
	if err := ctl.Orch.StartShare(c.user, msg.EventID); err != nil {
		ctl.sendError(c, msg.Type, err)
		return
	}
	ctl.sendJSON(c, map[string]any{
		"type":    "share_started",
		"eventId": msg.EventID,
	})
}

func (ctl *SignalWSController) handleStopShare(c *WsSignalConn, msg inbound) {
	if err := ctl.Orch.StopShare(c.user, msg.EventID); err != nil {
		ctl.sendError(c, msg.Type, err)
	}
}

func (ctl *SignalWSController) handleViewerJoined(c *WsSignalConn, msg inbound) {
	if err := ctl.Orch.ViewerJoined(c.user, msg.EventID); err != nil {
		ctl.sendError(c, msg.Type, err)
	}
}

// handleRoute forwards offer, answer and ice-candidate. The payload is
// passed through as raw bytes; only the target is looked at.
func (ctl *SignalWSController) handleRoute(c *WsSignalConn, msg inbound) {
	if msg.Target == "" {
		ctl.sendError(c, msg.Type, core.ErrInvalidInput)
		return
	}
	var err error
	switch domain.SignalType(msg.Type) {
	case domain.Offer:
		err = ctl.Orch.Offer(c.user, msg.EventID, msg.Target, msg.Payload)
	case domain.Answer:
		err = ctl.Orch.Answer(c.user, msg.EventID, msg.Target, msg.Payload)
	case domain.ICECandidate:
		err = ctl.Orch.ICECandidate(c.user, msg.EventID, msg.Target, msg.Payload)
	}
	if err != nil {
		log.Debug().Err(err).Str("module", "signal").Str("type", msg.Type).Str("from", string(c.user.UserID)).Str("target", string(msg.Target)).Msg("route rejected")
		ctl.sendError(c, msg.Type, err)
	}
}
