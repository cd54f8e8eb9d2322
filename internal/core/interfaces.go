package core

import (
	"context"

	"github.com/dkeye/Stage/internal/domain"
)

// BallotProvider is the read-only source of poll and quiz definitions.
type BallotProvider interface {
	Ballot(ctx context.Context, id string) (*domain.Ballot, error)
}

// ScoreSink accumulates additive point deltas keyed by (user, event).
type ScoreSink interface {
	AddPoints(ctx context.Context, userID domain.UserID, eventID domain.EventID, delta int) (int, error)
	Score(ctx context.Context, userID domain.UserID, eventID domain.EventID) (int, error)
}
