package signal

import (
	"context"
	"errors"
	"time"

	"github.com/dkeye/Stage/internal/app/vote"
	"github.com/dkeye/Stage/internal/core"
	"github.com/dkeye/Stage/internal/domain"
	json "github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// inbound is the union of every client message. Unused fields stay zero.
type inbound struct {
	Type     string                 `json:"type"`
	EventID  domain.EventID         `json:"eventId"`
	AsHost   bool                   `json:"asHost,omitempty"`
	Target   domain.UserID          `json:"target,omitempty"`
	Kind     domain.InteractionType `json:"kind,omitempty"`
	Payload  json.RawMessage        `json:"payload,omitempty"`
	Media    *domain.MediaState     `json:"media,omitempty"`
	BallotID string                 `json:"ballotId,omitempty"`
	Option   *int                   `json:"option,omitempty"`
}

func (ctl *SignalWSController) writePump(ctx context.Context, c *WsSignalConn) {
	ticker := time.NewTicker(ctl.opts.PingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Debug().Str("module", "signal").Str("sink", string(c.id)).Msg("writePump ctx done")
			return
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(ctl.opts.WriteWait)); err != nil {
				log.Debug().Err(err).Str("module", "signal").Str("sink", string(c.id)).Msg("writePump ping")
				return
			}
		case data, ok := <-c.send:
			if !ok {
				log.Debug().Str("module", "signal").Str("sink", string(c.id)).Msg("writePump channel closed")
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(ctl.opts.WriteWait)); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump set deadline")
				c.Close()
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Info().Err(err).Str("module", "signal").Str("sink", string(c.id)).Msg("writePump write error")
				c.Close()
				return
			}
		}
	}
}

func (ctl *SignalWSController) readPump(ctx context.Context, c *WsSignalConn) {
	defer func() {
		log.Info().Str("module", "signal").Str("sink", string(c.id)).Str("user_id", string(c.user.UserID)).Msg("readPump closing")
		c.Close()
		ctl.release(c)
	}()

	wait := ctl.opts.PingPeriod * 10 / 9
	_ = c.conn.SetReadDeadline(time.Now().Add(wait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(wait))
	})

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn().Err(err).Str("module", "signal").Str("sink", string(c.id)).Msg("readPump read error")
			}
			return
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(wait))
		ctl.handleSignal(ctx, c, data)
	}
}

func (ctl *SignalWSController) handleSignal(ctx context.Context, c *WsSignalConn, data []byte) {
	var msg inbound
	if err := json.Unmarshal(data, &msg); err != nil {
		log.Debug().Err(err).Str("module", "signal").Msg("bad json")
		ctl.sendError(c, "", core.ErrMalformedPayload)
		return
	}

	switch msg.Type {
	case "ping":
		ctl.handlePing(c)
	case "whoami":
		ctl.handleWhoAmI(c)
	case "join":
		ctl.handleJoin(c, msg)
	case "leave":
		ctl.handleLeave(c, msg)
	case "media":
		ctl.handleMedia(c, msg)
	case "subscribe_interactions":
		ctl.handleSubscribeInteractions(c, msg)
	case "interact":
		ctl.handleInteract(c, msg)
	case "vote":
		ctl.handleVote(ctx, c, msg)
	case "start_share":
		ctl.handleStartShare(c, msg)
	case "stop_share":
		ctl.handleStopShare(c, msg)
	case string(domain.ViewerJoined):
		ctl.handleViewerJoined(c, msg)
	case string(domain.Offer), string(domain.Answer), string(domain.ICECandidate):
		ctl.handleRoute(c, msg)
	default:
		log.Warn().Str("module", "signal").Str("type", msg.Type).Msg("unknown signal")
		ctl.sendError(c, msg.Type, core.ErrInvalidInput)
	}
}

func (ctl *SignalWSController) sendJSON(c *WsSignalConn, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("sendJSON marshal")
		return
	}
	if err := c.Send(b); err != nil {
		log.Debug().Err(err).Str("module", "signal").Str("sink", string(c.id)).Msg("reply dropped")
	}
}

type errorReply struct {
	Type         string `json:"type"`
	Op           string `json:"op,omitempty"`
	Code         string `json:"code"`
	Error        string `json:"error"`
	Prior        *int   `json:"prior,omitempty"`
	CorrectIndex *int   `json:"correctIndex,omitempty"`
}

// sendError reports a rejected operation with enough detail for the UI to
// explain it, e.g. the previous choice on a duplicate vote.
func (ctl *SignalWSController) sendError(c *WsSignalConn, op string, err error) {
	resp := errorReply{Type: "error", Op: op, Code: core.Code(err), Error: err.Error()}
	var already *vote.AlreadyRespondedError
	if errors.As(err, &already) {
		resp.Prior = &already.Prior
		if already.CorrectIndex != domain.NoCorrectAnswer {
			resp.CorrectIndex = &already.CorrectIndex
		}
	}
	ctl.sendJSON(c, resp)
}
