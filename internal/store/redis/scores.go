// Package redis keeps accumulated quiz scores in Redis so they survive a
// restart of the room server.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dkeye/Stage/internal/config"
	"github.com/dkeye/Stage/internal/core"
	"github.com/dkeye/Stage/internal/domain"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// Scoreboard stores one hash per event: field = user id, value = points.
type Scoreboard struct {
	client    *redis.Client
	keyPrefix string
}

func NewScoreboard(cfg config.RedisConfig) (*Scoreboard, error) {
	var opt *redis.Options
	if cfg.URI != "" {
		parsed, err := redis.ParseURL(cfg.URI)
		if err != nil {
			return nil, fmt.Errorf("parse redis uri: %w", err)
		}
		opt = parsed
		if opt.Password == "" {
			opt.Password = cfg.Password
		}
	} else {
		opt = &redis.Options{
			Addr:     cfg.Address,
			Password: cfg.Password,
			DB:       cfg.DB,
		}
	}
	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	log.Info().Str("module", "store.redis").Str("addr", opt.Addr).Msg("score board connected")
	return &Scoreboard{client: client, keyPrefix: cfg.KeyPrefix}, nil
}

func (s *Scoreboard) Close() error {
	return s.client.Close()
}

func (s *Scoreboard) key(eventID domain.EventID) string {
	return fmt.Sprintf("%sscores:%s", s.keyPrefix, eventID)
}

// AddPoints is a single HINCRBY, so concurrent awards never lose updates.
func (s *Scoreboard) AddPoints(ctx context.Context, userID domain.UserID, eventID domain.EventID, delta int) (int, error) {
	total, err := s.client.HIncrBy(ctx, s.key(eventID), string(userID), int64(delta)).Result()
	if err != nil {
		return 0, fmt.Errorf("add points: %w: %w", core.ErrTransportFailure, err)
	}
	return int(total), nil
}

func (s *Scoreboard) Score(ctx context.Context, userID domain.UserID, eventID domain.EventID) (int, error) {
	n, err := s.client.HGet(ctx, s.key(eventID), string(userID)).Int()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read score: %w: %w", core.ErrTransportFailure, err)
	}
	return n, nil
}

// Leaderboard returns every score recorded for the event.
func (s *Scoreboard) Leaderboard(ctx context.Context, eventID domain.EventID) (map[domain.UserID]int, error) {
	raw, err := s.client.HGetAll(ctx, s.key(eventID)).Result()
	if err != nil {
		return nil, fmt.Errorf("read leaderboard: %w: %w", core.ErrTransportFailure, err)
	}
	out := make(map[domain.UserID]int, len(raw))
	for user, v := range raw {
		var n int
		if _, err := fmt.Sscan(v, &n); err != nil {
			log.Warn().Err(err).Str("module", "store.redis").Str("user_id", user).Msg("skip non-numeric score")
			continue
		}
		out[domain.UserID(user)] = n
	}
	return out, nil
}
