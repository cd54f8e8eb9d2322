// Package orch binds verified identities to the room core. It is the only
// place where roles are checked; the registry, relay and aggregator trust
// their callers.
package orch

import (
	"context"
	"fmt"

	"github.com/dkeye/Stage/internal/app"
	"github.com/dkeye/Stage/internal/app/relay"
	"github.com/dkeye/Stage/internal/app/vote"
	"github.com/dkeye/Stage/internal/core"
	"github.com/dkeye/Stage/internal/domain"
	"github.com/rs/zerolog/log"
)

var (
	ErrForbidden      = fmt.Errorf("role does not allow this action: %w", core.ErrInvalidState)
	ErrNotParticipant = fmt.Errorf("caller is not in the room: %w", core.ErrNotFound)
	ErrReservedType   = fmt.Errorf("interaction type is reserved: %w", core.ErrInvalidInput)
)

// BallotStore is the catalog of poll and quiz definitions.
type BallotStore interface {
	core.BallotProvider
	Put(ctx context.Context, b *domain.Ballot) error
	SetActive(ctx context.Context, id string, active bool) (*domain.Ballot, error)
}

type Orchestrator struct {
	Registry *app.Registry
	Relay    *relay.Relay
	Votes    *vote.Aggregator
	Ballots  BallotStore
	Scores   core.ScoreSink
}

// Interact publishes a client-originated interaction. Launch and close
// announcements are host-only; result types are produced by the aggregator.
func (o *Orchestrator) Interact(id domain.Identity, eventID domain.EventID, typ domain.InteractionType, payload string) (app.PublishResult, error) {
	if !typ.ClientSettable() {
		return app.PublishResult{}, ErrReservedType
	}
	if hostOnly(typ) && !id.Role.CanHost() {
		return app.PublishResult{}, ErrForbidden
	}
	if !o.Registry.IsParticipant(eventID, id.UserID) {
		return app.PublishResult{}, ErrNotParticipant
	}
	return o.Registry.EmitInteraction(eventID, domain.InteractionEvent{Type: typ, UserID: id.UserID, Payload: payload})
}

func hostOnly(t domain.InteractionType) bool {
	switch t {
	case domain.PollLaunched, domain.PollClosed, domain.QuizLaunched, domain.QuizClosed, domain.QuestionAnswered:
		return true
	}
	return false
}

// Disconnect is called by a transport when one of the user's sinks goes
// away. The user leaves only once no other room sink remains.
func (o *Orchestrator) Disconnect(eventID domain.EventID, userID domain.UserID, sink core.SinkID) {
	o.Registry.Unsubscribe(eventID, sink)
	o.Registry.UnsubscribeInteraction(eventID, sink)
	if o.Registry.HasLiveSink(eventID, userID) {
		return
	}
	o.Relay.Disconnect(eventID, userID)
	if err := o.Registry.Leave(eventID, userID); err != nil {
		log.Error().Err(err).Str("module", "orch").Str("event_id", string(eventID)).Str("user_id", string(userID)).Msg("leave on disconnect")
	}
}

// Score returns the user's accumulated quiz points for the event.
func (o *Orchestrator) Score(ctx context.Context, userID domain.UserID, eventID domain.EventID) (int, error) {
	return o.Scores.Score(ctx, userID, eventID)
}
