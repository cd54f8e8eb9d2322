package vote_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/dkeye/Stage/internal/adapters/codec"
	"github.com/dkeye/Stage/internal/app"
	"github.com/dkeye/Stage/internal/app/vote"
	"github.com/dkeye/Stage/internal/core"
	"github.com/dkeye/Stage/internal/core/coretest"
	"github.com/dkeye/Stage/internal/domain"
	"github.com/dkeye/Stage/internal/store/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quiz(id string, event domain.EventID, correct int) *domain.Ballot {
	return &domain.Ballot{
		ID:                 id,
		EventID:            event,
		Kind:               domain.BallotQuiz,
		Question:           "2+2?",
		Options:            []string{"3", "4", "5"},
		IsActive:           true,
		CorrectAnswerIndex: correct,
	}
}

func poll(id string, event domain.EventID) *domain.Ballot {
	return &domain.Ballot{
		ID:                 id,
		EventID:            event,
		Kind:               domain.BallotPoll,
		Question:           "Lunch?",
		Options:            []string{"pizza", "sushi", "salad"},
		IsActive:           true,
		CorrectAnswerIndex: domain.NoCorrectAnswer,
	}
}

func setup(t *testing.T, ballots ...*domain.Ballot) (*vote.Aggregator, *memory.Catalog, *memory.Scoreboard) {
	t.Helper()
	ctx := context.Background()
	cat := memory.NewCatalog()
	for _, b := range ballots {
		require.NoError(t, cat.Put(ctx, b))
	}
	scores := memory.NewScoreboard()
	agg, err := vote.New(cat, scores)
	require.NoError(t, err)
	return agg, cat, scores
}

func TestNewRequiresCollaborators(t *testing.T) {
	_, err := vote.New(nil, memory.NewScoreboard())
	assert.Error(t, err)
	_, err = vote.New(memory.NewCatalog(), nil)
	assert.Error(t, err)
}

func TestQuizScenario(t *testing.T) {
	ctx := context.Background()
	agg, _, scores := setup(t, quiz("q1", "evt1", 1))

	res, err := agg.Submit(ctx, "q1", "u1", 1)
	require.NoError(t, err)
	assert.True(t, res.IsCorrect)
	assert.Equal(t, vote.DefaultPoints, res.ScoreDelta)
	assert.Equal(t, 100, res.Score)
	assert.Equal(t, []int{0, 1, 0}, res.Tally)

	_, err = agg.Submit(ctx, "q1", "u1", 0)
	var already *vote.AlreadyRespondedError
	require.ErrorAs(t, err, &already)
	assert.ErrorIs(t, err, core.ErrAlreadyDone)
	assert.Equal(t, 1, already.Prior)
	assert.Equal(t, 1, already.CorrectIndex)

	score, err := scores.Score(ctx, "u1", "evt1")
	require.NoError(t, err)
	assert.Equal(t, 100, score)
}

func TestIncorrectAnswerScoresNothing(t *testing.T) {
	ctx := context.Background()
	agg, _, scores := setup(t, quiz("q1", "evt1", 1))

	res, err := agg.Submit(ctx, "q1", "u1", 2)
	require.NoError(t, err)
	assert.False(t, res.IsCorrect)
	assert.Zero(t, res.ScoreDelta)
	assert.Equal(t, 1, res.CorrectIndex)

	score, _ := scores.Score(ctx, "u1", "evt1")
	assert.Zero(t, score)
}

func TestScoresAccumulatePerEvent(t *testing.T) {
	ctx := context.Background()
	agg, _, scores := setup(t, quiz("q1", "evt1", 0), quiz("q2", "evt1", 2), quiz("q3", "evt2", 0))

	for _, id := range []string{"q1", "q3"} {
		_, err := agg.Submit(ctx, id, "u1", 0)
		require.NoError(t, err)
	}
	res, err := agg.Submit(ctx, "q2", "u1", 2)
	require.NoError(t, err)
	assert.Equal(t, 200, res.Score)

	s1, _ := scores.Score(ctx, "u1", "evt1")
	s2, _ := scores.Score(ctx, "u1", "evt2")
	assert.Equal(t, 200, s1)
	assert.Equal(t, 100, s2)
}

func TestCustomPoints(t *testing.T) {
	ctx := context.Background()
	cat := memory.NewCatalog()
	require.NoError(t, cat.Put(ctx, quiz("q1", "evt1", 0)))
	agg, err := vote.New(cat, memory.NewScoreboard(), vote.WithPoints(250))
	require.NoError(t, err)

	res, err := agg.Submit(ctx, "q1", "u1", 0)
	require.NoError(t, err)
	assert.Equal(t, 250, res.Score)
}

func TestPollTallyAndDuplicate(t *testing.T) {
	ctx := context.Background()
	agg, _, _ := setup(t, poll("p1", "evt1"))

	for u, opt := range map[domain.UserID]int{"a": 0, "b": 0, "c": 1} {
		_, err := agg.Submit(ctx, "p1", u, opt)
		require.NoError(t, err)
	}
	tally, total, err := agg.Tally(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, []int{2, 1, 0}, tally)
	assert.Equal(t, 3, total)

	_, err = agg.Submit(ctx, "p1", "c", 2)
	var already *vote.AlreadyRespondedError
	require.ErrorAs(t, err, &already)
	assert.Equal(t, 1, already.Prior)
	assert.Equal(t, domain.NoCorrectAnswer, already.CorrectIndex)

	tally, total, err = agg.Tally(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, []int{2, 1, 0}, tally)
	assert.Equal(t, 3, total)
}

func TestInvalidOption(t *testing.T) {
	ctx := context.Background()
	agg, _, scores := setup(t, quiz("q1", "evt1", 0))

	for _, opt := range []int{-1, 3, 99} {
		t.Run(fmt.Sprint(opt), func(t *testing.T) {
			_, err := agg.Submit(ctx, "q1", "u1", opt)
			var invalid *vote.InvalidOptionError
			require.ErrorAs(t, err, &invalid)
			assert.ErrorIs(t, err, core.ErrInvalidInput)
			assert.Equal(t, opt, invalid.Index)
			assert.Equal(t, 3, invalid.Options)
		})
	}
	_, ok := agg.Response("q1", "u1")
	assert.False(t, ok)
	score, _ := scores.Score(ctx, "u1", "evt1")
	assert.Zero(t, score)

	// Rejections do not burn the user's one response.
	_, err := agg.Submit(ctx, "q1", "u1", 0)
	assert.NoError(t, err)
}

func TestInactiveAndUnknownBallot(t *testing.T) {
	ctx := context.Background()
	agg, cat, _ := setup(t, poll("p1", "evt1"))

	_, err := agg.Submit(ctx, "missing", "u1", 0)
	assert.ErrorIs(t, err, vote.ErrBallotNotFound)
	assert.ErrorIs(t, err, core.ErrNotFound)

	_, err = cat.SetActive(ctx, "p1", false)
	require.NoError(t, err)
	_, err = agg.Submit(ctx, "p1", "u1", 0)
	assert.ErrorIs(t, err, vote.ErrNotActive)
	assert.ErrorIs(t, err, core.ErrInvalidState)
}

func TestResetClearsResponses(t *testing.T) {
	ctx := context.Background()
	agg, cat, _ := setup(t, poll("p1", "evt1"))

	_, err := agg.Submit(ctx, "p1", "u1", 2)
	require.NoError(t, err)

	assert.Equal(t, []int{0, 0, 1}, agg.Reset("p1", 3))
	assert.Nil(t, agg.Reset("p1", 3))
	_, ok := agg.Response("p1", "u1")
	assert.False(t, ok)

	_, err = cat.SetActive(ctx, "p1", true)
	require.NoError(t, err)
	res, err := agg.Submit(ctx, "p1", "u1", 0)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 0, 0}, res.Tally)
}

func TestResultsArePublished(t *testing.T) {
	ctx := context.Background()
	reg, err := app.NewRegistry(codec.JSON{})
	require.NoError(t, err)
	require.NoError(t, reg.Join("evt1", "h1", true))
	sink := coretest.NewSink("s", "h1")
	require.NoError(t, reg.SubscribeInteraction("evt1", sink))

	cat := memory.NewCatalog()
	require.NoError(t, cat.Put(ctx, poll("p1", "evt1")))
	require.NoError(t, cat.Put(ctx, quiz("q1", "evt1", 1)))
	agg, err := vote.New(cat, memory.NewScoreboard(), vote.WithPublisher(reg))
	require.NoError(t, err)

	_, err = agg.Submit(ctx, "p1", "u1", 1)
	require.NoError(t, err)
	_, err = agg.Submit(ctx, "q1", "u1", 1)
	require.NoError(t, err)

	msgs := sink.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "POLL_RESULTS", msgs[0]["type"])
	assert.JSONEq(t, `{"ballotId":"p1","tally":[0,1,0],"responses":1}`, msgs[0]["payloadJson"].(string))
	assert.Equal(t, "QUIZ_ANSWERED", msgs[1]["type"])
	assert.Equal(t, "u1", msgs[1]["userId"])
}

type brokenScores struct{}

func (brokenScores) AddPoints(context.Context, domain.UserID, domain.EventID, int) (int, error) {
	return 0, errors.New("store down")
}

func (brokenScores) Score(context.Context, domain.UserID, domain.EventID) (int, error) {
	return 0, errors.New("store down")
}

func TestScoreStoreFailureKeepsResponse(t *testing.T) {
	ctx := context.Background()
	cat := memory.NewCatalog()
	require.NoError(t, cat.Put(ctx, quiz("q1", "evt1", 0)))
	agg, err := vote.New(cat, brokenScores{})
	require.NoError(t, err)

	res, err := agg.Submit(ctx, "q1", "u1", 0)
	require.NoError(t, err)
	assert.True(t, res.IsCorrect)
	assert.Zero(t, res.Score)

	prior, ok := agg.Response("q1", "u1")
	assert.True(t, ok)
	assert.Equal(t, 0, prior)
}

func TestConcurrentDuplicateSubmissions(t *testing.T) {
	ctx := context.Background()
	agg, _, scores := setup(t, quiz("q1", "evt1", 1))

	const n = 64
	var wg sync.WaitGroup
	var mu sync.Mutex
	accepted := 0
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := agg.Submit(ctx, "q1", "u1", 1); err == nil {
				mu.Lock()
				accepted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, accepted)
	score, _ := scores.Score(ctx, "u1", "evt1")
	assert.Equal(t, 100, score)
}

func TestConcurrentDistinctUsers(t *testing.T) {
	ctx := context.Background()
	agg, _, _ := setup(t, poll("p1", "evt1"))

	const n = 90
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := agg.Submit(ctx, "p1", domain.UserID(fmt.Sprintf("u%d", i)), i%3)
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	tally, total, err := agg.Tally(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, []int{30, 30, 30}, tally)
	assert.Equal(t, n, total)
}

// closingCatalog runs onRead once, after the definition has been read, to
// simulate the owner closing the ballot while a Submit is in flight.
type closingCatalog struct {
	*memory.Catalog
	onRead func()
}

func (c *closingCatalog) Ballot(ctx context.Context, id string) (*domain.Ballot, error) {
	b, err := c.Catalog.Ballot(ctx, id)
	if fn := c.onRead; fn != nil {
		c.onRead = nil
		fn()
	}
	return b, err
}

func TestSubmitRacingClose(t *testing.T) {
	tests := []struct {
		name      string
		earlyVote bool
	}{
		{"box already open", true},
		{"first response", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			cat := &closingCatalog{Catalog: memory.NewCatalog()}
			require.NoError(t, cat.Put(ctx, poll("p1", "evt1")))
			agg, err := vote.New(cat, memory.NewScoreboard())
			require.NoError(t, err)

			if tt.earlyVote {
				_, err = agg.Submit(ctx, "p1", "u1", 0)
				require.NoError(t, err)
			}
			cat.onRead = func() {
				_, err := cat.SetActive(ctx, "p1", false)
				require.NoError(t, err)
				agg.Reset("p1", 3)
			}

			_, err = agg.Submit(ctx, "p1", "u2", 1)
			assert.ErrorIs(t, err, vote.ErrNotActive)
			_, ok := agg.Response("p1", "u2")
			assert.False(t, ok)

			_, err = cat.SetActive(ctx, "p1", true)
			require.NoError(t, err)
			tally, n, err := agg.Tally(ctx, "p1")
			require.NoError(t, err)
			assert.Equal(t, []int{0, 0, 0}, tally)
			assert.Zero(t, n)

			res, err := agg.Submit(ctx, "p1", "u2", 1)
			require.NoError(t, err)
			assert.Equal(t, []int{0, 1, 0}, res.Tally)
		})
	}
}
