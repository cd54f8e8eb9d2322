// Package signal is the WebSocket transport. One connection is one sink on
// the room channel of every room the user joined through it.
package signal

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/dkeye/Stage/internal/app/orch"
	"github.com/dkeye/Stage/internal/core"
	"github.com/dkeye/Stage/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

type Options struct {
	ReadLimit  int64
	PingPeriod time.Duration
	WriteWait  time.Duration
	SendBuffer int
}

type SignalWSController struct {
	Orch    *orch.Orchestrator
	Limiter *RoomRateLimiter
	opts    Options
}

func NewSignalWSController(o *orch.Orchestrator, limiter *RoomRateLimiter, opts Options) *SignalWSController {
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = 64
	}
	if opts.WriteWait <= 0 {
		opts.WriteWait = 5 * time.Second
	}
	if opts.PingPeriod <= 0 {
		opts.PingPeriod = 54 * time.Second
	}
	return &SignalWSController{Orch: o, Limiter: limiter, opts: opts}
}

// WsSignalConn implements core.Sink.
type WsSignalConn struct {
	id   core.SinkID
	user domain.Identity
	conn *websocket.Conn
	send chan core.Frame

	mu     sync.RWMutex
	closed bool

	// rooms is owned by the read pump.
	rooms map[domain.EventID]struct{}
}

func newConn(ws *websocket.Conn, user domain.Identity, buffer int) *WsSignalConn {
	return &WsSignalConn{
		id:    core.SinkID(uuid.NewString()),
		user:  user,
		conn:  ws,
		send:  make(chan core.Frame, buffer),
		rooms: make(map[domain.EventID]struct{}),
	}
}

func (c *WsSignalConn) ID() core.SinkID { return c.id }

func (c *WsSignalConn) UserID() domain.UserID { return c.user.UserID }

// Send never blocks: a full buffer is reported as backpressure.
func (c *WsSignalConn) Send(f core.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return core.ErrSinkClosed
	}
	select {
	case c.send <- f:
		return nil
	default:
		return core.ErrBackpressure
	}
}

func (c *WsSignalConn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
	c.mu.Unlock()
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// HandleSignal upgrades an authenticated request.
func (ctl *SignalWSController) HandleSignal(ctx context.Context, c *gin.Context, user domain.Identity) {
	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("ws upgrade")
		return
	}
	if ctl.opts.ReadLimit > 0 {
		ws.SetReadLimit(ctl.opts.ReadLimit)
	}

	conn := newConn(ws, user, ctl.opts.SendBuffer)
	log.Info().Str("module", "signal").Str("sink", string(conn.id)).Str("user_id", string(user.UserID)).Msg("new WS connection")

	ctx, cancel := context.WithCancel(ctx)
	go ctl.writePump(ctx, conn)
	go func() {
		defer cancel()
		ctl.readPump(ctx, conn)
	}()
}

// release detaches the connection from every room it joined.
func (ctl *SignalWSController) release(c *WsSignalConn) {
	for eventID := range c.rooms {
		ctl.Orch.Disconnect(eventID, c.user.UserID, c.id)
		delete(c.rooms, eventID)
	}
}
