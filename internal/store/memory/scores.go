package memory

import (
	"context"
	"sync"

	"github.com/dkeye/Stage/internal/domain"
)

type scoreKey struct {
	user  domain.UserID
	event domain.EventID
}

// Scoreboard accumulates quiz points per (user, event).
type Scoreboard struct {
	mu     sync.Mutex
	points map[scoreKey]int
}

func NewScoreboard() *Scoreboard {
	return &Scoreboard{points: make(map[scoreKey]int)}
}

func (s *Scoreboard) AddPoints(_ context.Context, userID domain.UserID, eventID domain.EventID, delta int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := scoreKey{userID, eventID}
	s.points[k] += delta
	return s.points[k], nil
}

func (s *Scoreboard) Score(_ context.Context, userID domain.UserID, eventID domain.EventID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.points[scoreKey{userID, eventID}], nil
}

func (s *Scoreboard) Close() error { return nil }

func (s *Scoreboard) Leaderboard(_ context.Context, eventID domain.EventID) (map[domain.UserID]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := map[domain.UserID]int{}
	for k, v := range s.points {
		if k.event == eventID {
			out[k.user] = v
		}
	}
	return out, nil
}
