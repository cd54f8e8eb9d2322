// Package vote enforces one response per user per poll or quiz, derives
// tallies from the response set and awards quiz points.
package vote

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dkeye/Stage/internal/app"
	"github.com/dkeye/Stage/internal/core"
	"github.com/dkeye/Stage/internal/domain"
	json "github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
)

const DefaultPoints = 100

// Publisher receives result events after every accepted response.
type Publisher interface {
	EmitInteraction(eventID domain.EventID, ev domain.InteractionEvent) (app.PublishResult, error)
}

type Result struct {
	BallotID     string            `json:"ballotId"`
	EventID      domain.EventID    `json:"eventId"`
	Kind         domain.BallotKind `json:"kind"`
	UserID       domain.UserID     `json:"userId"`
	OptionIndex  int               `json:"optionIndex"`
	Tally        []int             `json:"tally"`
	Responses    int               `json:"responses"`
	IsCorrect    bool              `json:"isCorrect"`
	CorrectIndex int               `json:"correctIndex"`
	ScoreDelta   int               `json:"scoreDelta"`
	Score        int               `json:"score"`
}

type box struct {
	mu     sync.Mutex
	closed bool
	*ballotBox
}

type Aggregator struct {
	provider core.BallotProvider
	scores   core.ScoreSink
	pub      Publisher
	points   int

	mu    sync.Mutex
	boxes map[string]*box
}

type Option func(*Aggregator)

// WithPoints sets the fixed value of a correct quiz answer.
func WithPoints(n int) Option { return func(a *Aggregator) { a.points = n } }

func WithPublisher(p Publisher) Option { return func(a *Aggregator) { a.pub = p } }

func New(provider core.BallotProvider, scores core.ScoreSink, opts ...Option) (*Aggregator, error) {
	if provider == nil {
		return nil, errors.New("vote: ballot provider is required")
	}
	if scores == nil {
		return nil, errors.New("vote: score sink is required")
	}
	a := &Aggregator{
		provider: provider,
		scores:   scores,
		points:   DefaultPoints,
		boxes:    make(map[string]*box),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

func (a *Aggregator) boxFor(ballotID string, eventID domain.EventID) *box {
	a.mu.Lock()
	defer a.mu.Unlock()
	b, ok := a.boxes[ballotID]
	if !ok {
		b = &box{ballotBox: newBallotBox(eventID)}
		a.boxes[ballotID] = b
	}
	return b
}

func (a *Aggregator) lookup(ballotID string) (*box, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	b, ok := a.boxes[ballotID]
	return b, ok
}

// Submit records one response. Rejections are typed: ErrNotActive,
// *AlreadyRespondedError and *InvalidOptionError; none of them touch the
// response set or the user's score.
func (a *Aggregator) Submit(ctx context.Context, ballotID string, userID domain.UserID, option int) (*Result, error) {
	if ballotID == "" {
		return nil, fmt.Errorf("%w: empty ballot id", core.ErrInvalidInput)
	}
	if err := userID.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrInvalidInput, err)
	}
	def, err := a.provider.Ballot(ctx, ballotID)
	if err != nil {
		return nil, err
	}
	if !def.IsActive {
		return nil, ErrNotActive
	}
	correct := domain.NoCorrectAnswer
	if def.IsQuiz() {
		correct = def.CorrectAnswerIndex
	}

	bx := a.boxFor(ballotID, def.EventID)
	bx.mu.Lock()
	if bx.closed {
		// The ballot was closed after def was read. Only a reactivation
		// reopens the box.
		if def, err = a.provider.Ballot(ctx, ballotID); err != nil || !def.IsActive {
			bx.mu.Unlock()
			if err != nil {
				return nil, err
			}
			return nil, ErrNotActive
		}
		bx.closed = false
	}
	if prior, ok := bx.responses[userID]; ok {
		bx.mu.Unlock()
		return nil, &AlreadyRespondedError{BallotID: ballotID, UserID: userID, Prior: prior, CorrectIndex: correct}
	}
	if !def.ValidOption(option) {
		bx.mu.Unlock()
		return nil, &InvalidOptionError{BallotID: ballotID, Index: option, Options: len(def.Options)}
	}
	bx.responses[userID] = option
	tally := bx.tally(len(def.Options))
	responses := len(bx.responses)
	bx.mu.Unlock()

	res := &Result{
		BallotID:     ballotID,
		EventID:      def.EventID,
		Kind:         def.Kind,
		UserID:       userID,
		OptionIndex:  option,
		Tally:        tally,
		Responses:    responses,
		CorrectIndex: correct,
	}
	if def.IsQuiz() {
		a.score(ctx, res, option == correct)
	}
	log.Info().Str("module", "vote").Str("ballot", ballotID).Str("user_id", string(userID)).Int("option", option).Bool("correct", res.IsCorrect).Msg("response recorded")
	a.publish(def, res)
	return res, nil
}

// score applies the quiz point delta. The response is already recorded, so
// a score store failure is logged rather than undoing the vote.
func (a *Aggregator) score(ctx context.Context, res *Result, correct bool) {
	res.IsCorrect = correct
	if !correct {
		total, err := a.scores.Score(ctx, res.UserID, res.EventID)
		if err != nil {
			log.Error().Err(err).Str("module", "vote").Str("user_id", string(res.UserID)).Msg("read score")
		}
		res.Score = total
		return
	}
	res.ScoreDelta = a.points
	total, err := a.scores.AddPoints(ctx, res.UserID, res.EventID, a.points)
	if err != nil {
		log.Error().Err(err).Str("module", "vote").Str("user_id", string(res.UserID)).Str("event_id", string(res.EventID)).Msg("award points")
		return
	}
	res.Score = total
}

type resultsPayload struct {
	BallotID  string `json:"ballotId"`
	Tally     []int  `json:"tally"`
	Responses int    `json:"responses"`
}

func (a *Aggregator) publish(def *domain.Ballot, res *Result) {
	if a.pub == nil {
		return
	}
	typ := domain.PollResults
	if def.Kind == domain.BallotQuiz {
		typ = domain.QuizAnswered
	}
	payload, err := json.Marshal(resultsPayload{BallotID: res.BallotID, Tally: res.Tally, Responses: res.Responses})
	if err != nil {
		log.Error().Err(err).Str("module", "vote").Msg("encode results")
		return
	}
	if _, err := a.pub.EmitInteraction(def.EventID, domain.InteractionEvent{Type: typ, UserID: res.UserID, Payload: string(payload)}); err != nil {
		log.Error().Err(err).Str("module", "vote").Str("ballot", res.BallotID).Msg("publish results")
	}
}

// Tally recounts the current response set.
func (a *Aggregator) Tally(ctx context.Context, ballotID string) ([]int, int, error) {
	def, err := a.provider.Ballot(ctx, ballotID)
	if err != nil {
		return nil, 0, err
	}
	bx, ok := a.lookup(ballotID)
	if !ok {
		return make([]int, len(def.Options)), 0, nil
	}
	bx.mu.Lock()
	defer bx.mu.Unlock()
	return bx.tally(len(def.Options)), len(bx.responses), nil
}

// Response returns the user's recorded choice.
func (a *Aggregator) Response(ballotID string, userID domain.UserID) (int, bool) {
	bx, ok := a.lookup(ballotID)
	if !ok {
		return 0, false
	}
	bx.mu.Lock()
	defer bx.mu.Unlock()
	i, ok := bx.responses[userID]
	return i, ok
}

// Reset discards the response set when the owner deactivates the ballot.
// The box stays behind closed, so a Submit that read the definition before
// the close can not record into a fresh one. Reset returns the final tally,
// or nil when the ballot had no open box.
func (a *Aggregator) Reset(ballotID string, options int) []int {
	a.mu.Lock()
	bx, ok := a.boxes[ballotID]
	if !ok {
		bx = &box{ballotBox: newBallotBox("")}
		a.boxes[ballotID] = bx
	}
	a.mu.Unlock()

	bx.mu.Lock()
	defer bx.mu.Unlock()
	if bx.closed {
		return nil
	}
	bx.closed = true
	if !ok {
		return nil
	}
	final := bx.tally(options)
	log.Info().Str("module", "vote").Str("ballot", ballotID).Int("responses", len(bx.responses)).Msg("responses cleared")
	clear(bx.responses)
	return final
}
