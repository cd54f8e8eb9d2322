// Package coretest provides test doubles for core interfaces.
package coretest

import (
	"sync"

	"github.com/dkeye/Stage/internal/core"
	"github.com/dkeye/Stage/internal/domain"
	json "github.com/goccy/go-json"
)

// Sink records every frame it accepts. SetErr makes subsequent sends fail.
type Sink struct {
	id   core.SinkID
	user domain.UserID

	mu     sync.Mutex
	frames []core.Frame
	err    error
}

func NewSink(id string, user domain.UserID) *Sink {
	return &Sink{id: core.SinkID(id), user: user}
}

func (s *Sink) ID() core.SinkID { return s.id }

func (s *Sink) UserID() domain.UserID { return s.user }

func (s *Sink) Send(f core.Frame) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.frames = append(s.frames, f)
	return nil
}

func (s *Sink) SetErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

func (s *Sink) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.frames)
}

// Messages decodes the recorded frames as JSON objects.
func (s *Sink) Messages() []map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]map[string]any, 0, len(s.frames))
	for _, f := range s.frames {
		m := map[string]any{}
		if err := json.Unmarshal(f, &m); err == nil {
			out = append(out, m)
		}
	}
	return out
}

// Types returns the "type" field of every recorded frame.
func (s *Sink) Types() []string {
	msgs := s.Messages()
	out := make([]string, 0, len(msgs))
	for _, m := range msgs {
		t, _ := m["type"].(string)
		out = append(out, t)
	}
	return out
}

func (s *Sink) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frames = nil
}
