package http

import (
	"io"
	"net/http"
	"sync"

	"github.com/dkeye/Stage/internal/core"
	"github.com/dkeye/Stage/internal/domain"
	"github.com/gin-contrib/sse"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// sseSink is an interaction-channel sink backed by a buffered channel that
// the streaming handler drains.
type sseSink struct {
	id   core.SinkID
	user domain.UserID
	ch   chan core.Frame

	mu     sync.RWMutex
	closed bool
}

func newSSESink(user domain.UserID, buffer int) *sseSink {
	return &sseSink{
		id:   core.SinkID("sse-" + uuid.NewString()),
		user: user,
		ch:   make(chan core.Frame, buffer),
	}
}

func (s *sseSink) ID() core.SinkID { return s.id }

func (s *sseSink) UserID() domain.UserID { return s.user }

func (s *sseSink) Send(f core.Frame) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return core.ErrSinkClosed
	}
	select {
	case s.ch <- f:
		return nil
	default:
		return core.ErrBackpressure
	}
}

// Detach ends the stream when the user leaves or the room goes away.
func (s *sseSink) Detach() { s.Close() }

func (s *sseSink) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.ch)
	}
}

// streamInteractions serves GET /api/events/:id/interactions.
func (h *handlers) streamInteractions(c *gin.Context) {
	eventID := domain.EventID(c.Param("id"))
	user := identity(c)
	if !h.orch.Registry.IsParticipant(eventID, user.UserID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "join the room first"})
		return
	}

	sink := newSSESink(user.UserID, h.sendBuffer)
	if err := h.orch.Registry.SubscribeInteraction(eventID, sink); err != nil {
		writeError(c, err)
		return
	}
	defer func() {
		h.orch.Registry.UnsubscribeInteraction(eventID, sink.ID())
		sink.Close()
		log.Info().Str("module", "adapters.http").Str("event_id", string(eventID)).Str("sink", string(sink.ID())).Msg("sse stream closed")
	}()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache, no-transform")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	log.Info().Str("module", "adapters.http").Str("event_id", string(eventID)).Str("sink", string(sink.ID())).Msg("sse stream opened")

	ctx := c.Request.Context()
	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case f, ok := <-sink.ch:
			if !ok {
				return false
			}
			if err := sse.Encode(w, sse.Event{Event: "interaction", Data: string(f)}); err != nil {
				log.Debug().Err(err).Str("module", "adapters.http").Msg("sse write")
				return false
			}
			return true
		}
	})
}
