// Package store selects the storage implementations named in the config.
package store

import (
	"context"
	"fmt"

	"github.com/dkeye/Stage/internal/config"
	"github.com/dkeye/Stage/internal/core"
	"github.com/dkeye/Stage/internal/domain"
	"github.com/dkeye/Stage/internal/store/memory"
	"github.com/dkeye/Stage/internal/store/redis"
)

// Scores is a score sink that can also list an event's standings.
type Scores interface {
	core.ScoreSink
	Leaderboard(ctx context.Context, eventID domain.EventID) (map[domain.UserID]int, error)
	Close() error
}

func NewScores(cfg config.ScoresConfig) (Scores, error) {
	switch cfg.Driver {
	case "", "memory":
		return memory.NewScoreboard(), nil
	case "redis":
		return redis.NewScoreboard(cfg.Redis)
	default:
		return nil, fmt.Errorf("store: unknown scores driver %q", cfg.Driver)
	}
}
