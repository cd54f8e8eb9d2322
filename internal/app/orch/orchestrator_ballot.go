package orch

import (
	"context"
	"errors"
	"fmt"

	"github.com/dkeye/Stage/internal/app"
	"github.com/dkeye/Stage/internal/app/vote"
	"github.com/dkeye/Stage/internal/core"
	"github.com/dkeye/Stage/internal/domain"
	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

var (
	ErrBadBallot = fmt.Errorf("ballot definition: %w", core.ErrInvalidInput)
	ErrNotHost   = fmt.Errorf("caller is not the room host: %w", ErrForbidden)
)

type launchPayload struct {
	BallotID string            `json:"ballotId"`
	Kind     domain.BallotKind `json:"kind"`
	Question string            `json:"question"`
	Options  []string          `json:"options"`
}

type closePayload struct {
	BallotID     string `json:"ballotId"`
	Tally        []int  `json:"tally"`
	CorrectIndex *int   `json:"correctIndex,omitempty"`
}

// LaunchBallot stores an active poll or quiz and announces it to the room.
// Only the room's current host may launch; the caller becomes the owner.
// The announcement never carries the correct answer.
func (o *Orchestrator) LaunchBallot(ctx context.Context, id domain.Identity, b domain.Ballot) (*domain.Ballot, error) {
	if !id.Role.CanHost() {
		return nil, ErrForbidden
	}
	if err := b.EventID.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBadBallot, err)
	}
	if len(b.Options) < 2 {
		return nil, fmt.Errorf("%w: need at least two options", ErrBadBallot)
	}
	switch b.Kind {
	case domain.BallotPoll:
		b.CorrectAnswerIndex = domain.NoCorrectAnswer
	case domain.BallotQuiz:
		if !b.ValidOption(b.CorrectAnswerIndex) {
			return nil, fmt.Errorf("%w: correct answer %d out of range", ErrBadBallot, b.CorrectAnswerIndex)
		}
	default:
		return nil, fmt.Errorf("%w: unknown kind %q", ErrBadBallot, b.Kind)
	}
	if err := o.requireRoomHost(b.EventID, id.UserID); err != nil {
		return nil, err
	}
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	b.IsActive = true
	b.OwnerID = id.UserID
	if err := o.Ballots.Put(ctx, &b); err != nil {
		return nil, err
	}

	typ := domain.PollLaunched
	if b.Kind == domain.BallotQuiz {
		typ = domain.QuizLaunched
	}
	o.announce(b.EventID, typ, id.UserID, launchPayload{BallotID: b.ID, Kind: b.Kind, Question: b.Question, Options: b.Options})
	log.Info().Str("module", "orch").Str("event_id", string(b.EventID)).Str("ballot", b.ID).Str("kind", string(b.Kind)).Msg("ballot launched")
	return &b, nil
}

// CloseBallot deactivates the ballot, clears its responses and publishes
// the final tally. The owner or the room's current host may close it. For
// a quiz the correct answer is revealed here.
func (o *Orchestrator) CloseBallot(ctx context.Context, id domain.Identity, ballotID string) ([]int, error) {
	if !id.Role.CanHost() {
		return nil, ErrForbidden
	}
	def, err := o.Ballots.Ballot(ctx, ballotID)
	if err != nil {
		return nil, err
	}
	if def.OwnerID != id.UserID {
		if err := o.requireRoomHost(def.EventID, id.UserID); err != nil {
			log.Debug().Str("module", "orch").Str("ballot", ballotID).Str("user_id", string(id.UserID)).Msg("close rejected")
			return nil, err
		}
	}
	b, err := o.Ballots.SetActive(ctx, ballotID, false)
	if err != nil {
		return nil, err
	}
	final := o.Votes.Reset(ballotID, len(b.Options))
	if final == nil {
		final = make([]int, len(b.Options))
	}

	p := closePayload{BallotID: b.ID, Tally: final}
	typ := domain.PollClosed
	if b.IsQuiz() {
		typ = domain.QuizClosed
		correct := b.CorrectAnswerIndex
		p.CorrectIndex = &correct
	}
	o.announce(b.EventID, typ, id.UserID, p)
	return final, nil
}

// requireRoomHost fails unless userID is the isHost participant of the room.
func (o *Orchestrator) requireRoomHost(eventID domain.EventID, userID domain.UserID) error {
	err := o.Registry.Do(eventID, func(room *app.Room) error {
		if p, ok := room.Participant(userID); ok && p.IsHost {
			return nil
		}
		return ErrNotHost
	})
	if errors.Is(err, app.ErrRoomNotFound) {
		return ErrNotHost
	}
	return err
}

func (o *Orchestrator) Vote(ctx context.Context, id domain.Identity, ballotID string, option int) (*vote.Result, error) {
	return o.Votes.Submit(ctx, ballotID, id.UserID, option)
}

func (o *Orchestrator) announce(eventID domain.EventID, typ domain.InteractionType, by domain.UserID, v any) {
	payload, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "orch").Msg("encode announcement")
		return
	}
	if _, err := o.Registry.EmitInteraction(eventID, domain.InteractionEvent{Type: typ, UserID: by, Payload: string(payload)}); err != nil {
		log.Error().Err(err).Str("module", "orch").Str("event_id", string(eventID)).Str("type", string(typ)).Msg("announce")
	}
}
