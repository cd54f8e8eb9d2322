package memory

import (
	"context"
	"testing"

	"github.com/dkeye/Stage/internal/app/vote"
	"github.com/dkeye/Stage/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalogReturnsCopies(t *testing.T) {
	ctx := context.Background()
	c := NewCatalog()
	b := &domain.Ballot{ID: "p1", EventID: "evt1", Kind: domain.BallotPoll, Options: []string{"a", "b"}, IsActive: true}
	require.NoError(t, c.Put(ctx, b))
	b.Options[0] = "changed"

	got, err := c.Ballot(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "a", got.Options[0])

	got.IsActive = false
	again, _ := c.Ballot(ctx, "p1")
	assert.True(t, again.IsActive)
}

func TestCatalogSetActive(t *testing.T) {
	ctx := context.Background()
	c := NewCatalog()
	require.NoError(t, c.Put(ctx, &domain.Ballot{ID: "q1", EventID: "evt1", Options: []string{"a", "b"}, IsActive: true}))
	require.NoError(t, c.Put(ctx, &domain.Ballot{ID: "q2", EventID: "evt2", Options: []string{"a", "b"}}))

	b, err := c.SetActive(ctx, "q1", false)
	require.NoError(t, err)
	assert.False(t, b.IsActive)

	_, err = c.SetActive(ctx, "missing", true)
	assert.ErrorIs(t, err, vote.ErrBallotNotFound)
	_, err = c.Ballot(ctx, "missing")
	assert.ErrorIs(t, err, vote.ErrBallotNotFound)

	list := c.ListByEvent(ctx, "evt1")
	require.Len(t, list, 1)
	assert.Equal(t, "q1", list[0].ID)
}

func TestScoreboard(t *testing.T) {
	ctx := context.Background()
	s := NewScoreboard()

	total, err := s.AddPoints(ctx, "u1", "evt1", 100)
	require.NoError(t, err)
	assert.Equal(t, 100, total)
	total, _ = s.AddPoints(ctx, "u1", "evt1", 50)
	assert.Equal(t, 150, total)
	_, _ = s.AddPoints(ctx, "u2", "evt1", 10)
	_, _ = s.AddPoints(ctx, "u1", "evt2", 10)

	score, err := s.Score(ctx, "u1", "evt1")
	require.NoError(t, err)
	assert.Equal(t, 150, score)

	board, err := s.Leaderboard(ctx, "evt1")
	require.NoError(t, err)
	assert.Equal(t, map[domain.UserID]int{"u1": 150, "u2": 10}, board)
	assert.NoError(t, s.Close())
}

func TestCatalogRejectsReusedID(t *testing.T) {
	ctx := context.Background()
	c := NewCatalog()
	require.NoError(t, c.Put(ctx, &domain.Ballot{ID: "b1", EventID: "evt1", Question: "first", Options: []string{"a", "b"}}))

	err := c.Put(ctx, &domain.Ballot{ID: "b1", EventID: "evt2", Question: "second", Options: []string{"x", "y"}})
	assert.ErrorIs(t, err, vote.ErrBallotExists)

	got, err := c.Ballot(ctx, "b1")
	require.NoError(t, err)
	assert.Equal(t, domain.EventID("evt1"), got.EventID)
	assert.Equal(t, "first", got.Question)
}
