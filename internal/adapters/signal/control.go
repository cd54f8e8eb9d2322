package signal

import (
	"context"
	"fmt"

	"github.com/dkeye/Stage/internal/core"
	"github.com/dkeye/Stage/internal/domain"
	"github.com/rs/zerolog/log"
)

var ErrRateLimited = fmt.Errorf("too many messages: %w", core.ErrInvalidState)

func (ctl *SignalWSController) handlePing(c *WsSignalConn) {
	resp := struct {
		Type string `json:"type"`
	}{
		Type: "pong",
	}
	ctl.sendJSON(c, resp)
}

// throttled kinds are the ones a single user can spam.
func throttled(t domain.InteractionType) bool {
	switch t {
	case domain.ChatMessage, domain.QuestionAsked, domain.QuestionUpvoted, domain.Reaction:
		return true
	}
	return false
}

func (ctl *SignalWSController) handleInteract(c *WsSignalConn, msg inbound) {
	if throttled(msg.Kind) && ctl.Limiter != nil && !ctl.Limiter.Allow(msg.EventID, c.user.UserID) {
		log.Debug().Str("module", "signal").Str("user_id", string(c.user.UserID)).Msg("interaction rate limited")
		ctl.sendError(c, msg.Type, ErrRateLimited)
		return
	}
	if _, err := ctl.Orch.Interact(c.user, msg.EventID, msg.Kind, string(msg.Payload)); err != nil {
		ctl.sendError(c, msg.Type, err)
	}
}

func (ctl *SignalWSController) handleVote(ctx context.Context, c *WsSignalConn, msg inbound) {
	if msg.Option == nil || msg.BallotID == "" {
		ctl.sendError(c, msg.Type, core.ErrMalformedPayload)
		return
	}
	res, err := ctl.Orch.Vote(ctx, c.user, msg.BallotID, *msg.Option)
	if err != nil {
		ctl.sendError(c, msg.Type, err)
		return
	}
	ctl.sendJSON(c, struct {
		Type   string `json:"type"`
		Result any    `json:"result"`
	}{"vote_result", res})
}
