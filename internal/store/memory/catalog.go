// Package memory provides in-memory implementations of the ballot catalog
// and the score board.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/dkeye/Stage/internal/app/vote"
	"github.com/dkeye/Stage/internal/domain"
)

// Catalog stores ballot definitions. Ballot returns copies, so callers can
// not mutate the stored definition.
type Catalog struct {
	mu      sync.RWMutex
	ballots map[string]*domain.Ballot
}

func NewCatalog() *Catalog {
	return &Catalog{ballots: make(map[string]*domain.Ballot)}
}

// Put stores a new definition. Ballot ids are never reused, so responses
// recorded against an id always belong to the same question.
func (c *Catalog) Put(_ context.Context, b *domain.Ballot) error {
	cp := clone(b)
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.ballots[b.ID]; ok {
		return fmt.Errorf("%w: %s", vote.ErrBallotExists, b.ID)
	}
	c.ballots[b.ID] = cp
	return nil
}

func (c *Catalog) Ballot(_ context.Context, id string) (*domain.Ballot, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	b, ok := c.ballots[id]
	if !ok {
		return nil, vote.ErrBallotNotFound
	}
	return clone(b), nil
}

func (c *Catalog) SetActive(_ context.Context, id string, active bool) (*domain.Ballot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.ballots[id]
	if !ok {
		return nil, vote.ErrBallotNotFound
	}
	b.IsActive = active
	return clone(b), nil
}

// ListByEvent returns the event's ballots, active or not.
func (c *Catalog) ListByEvent(_ context.Context, eventID domain.EventID) []*domain.Ballot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := []*domain.Ballot{}
	for _, b := range c.ballots {
		if b.EventID == eventID {
			out = append(out, clone(b))
		}
	}
	return out
}

func clone(b *domain.Ballot) *domain.Ballot {
	cp := *b
	cp.Options = append([]string(nil), b.Options...)
	return &cp
}
