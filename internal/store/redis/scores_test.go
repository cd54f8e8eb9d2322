package redis_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/dkeye/Stage/internal/config"
	"github.com/dkeye/Stage/internal/core"
	"github.com/dkeye/Stage/internal/domain"
	"github.com/dkeye/Stage/internal/store/redis"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*redis.Scoreboard, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	sb, err := redis.NewScoreboard(config.RedisConfig{
		Address:   mr.Addr(),
		KeyPrefix: "test:",
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = sb.Close() })
	return sb, mr
}

func TestConnectWithURI(t *testing.T) {
	mr := miniredis.RunT(t)
	sb, err := redis.NewScoreboard(config.RedisConfig{
		URI:       fmt.Sprintf("redis://%s/0", mr.Addr()),
		KeyPrefix: "test:",
	})
	require.NoError(t, err)
	defer sb.Close()

	total, err := sb.AddPoints(context.Background(), "u1", "evt1", 100)
	require.NoError(t, err)
	assert.Equal(t, 100, total)
}

func TestConnectFailure(t *testing.T) {
	_, err := redis.NewScoreboard(config.RedisConfig{URI: "::not a uri"})
	assert.Error(t, err)

	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()
	_, err = redis.NewScoreboard(config.RedisConfig{Address: addr})
	assert.Error(t, err)
}

func TestAddPointsAndScore(t *testing.T) {
	ctx := context.Background()
	sb, mr := setupTestRedis(t)

	score, err := sb.Score(ctx, "u1", "evt1")
	require.NoError(t, err)
	assert.Zero(t, score)

	_, err = sb.AddPoints(ctx, "u1", "evt1", 100)
	require.NoError(t, err)
	total, err := sb.AddPoints(ctx, "u1", "evt1", 100)
	require.NoError(t, err)
	assert.Equal(t, 200, total)

	score, err = sb.Score(ctx, "u1", "evt1")
	require.NoError(t, err)
	assert.Equal(t, 200, score)

	assert.Equal(t, "200", mr.HGet("test:scores:evt1", "u1"))
	other, err := sb.Score(ctx, "u1", "evt2")
	require.NoError(t, err)
	assert.Zero(t, other)
}

func TestLeaderboard(t *testing.T) {
	ctx := context.Background()
	sb, mr := setupTestRedis(t)

	_, _ = sb.AddPoints(ctx, "u1", "evt1", 100)
	_, _ = sb.AddPoints(ctx, "u2", "evt1", 300)
	_, _ = sb.AddPoints(ctx, "u3", "evt2", 100)
	mr.HSet("test:scores:evt1", "junk", "abc")

	board, err := sb.Leaderboard(ctx, "evt1")
	require.NoError(t, err)
	assert.Equal(t, map[domain.UserID]int{"u1": 100, "u2": 300}, board)

	empty, err := sb.Leaderboard(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestConcurrentAwards(t *testing.T) {
	ctx := context.Background()
	sb, _ := setupTestRedis(t)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := sb.AddPoints(ctx, "u1", "evt1", 10)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	score, err := sb.Score(ctx, "u1", "evt1")
	require.NoError(t, err)
	assert.Equal(t, 500, score)
}

func TestServerDownIsTransportFailure(t *testing.T) {
	ctx := context.Background()
	sb, mr := setupTestRedis(t)
	mr.Close()

	_, err := sb.AddPoints(ctx, "u1", "evt1", 100)
	assert.ErrorIs(t, err, core.ErrTransportFailure)
	_, err = sb.Score(ctx, "u1", "evt1")
	assert.ErrorIs(t, err, core.ErrTransportFailure)
}
