package domain

// BallotKind distinguishes polls from quizzes; both share the response rules.
type BallotKind string

const (
	BallotPoll BallotKind = "poll"
	BallotQuiz BallotKind = "quiz"
)

// NoCorrectAnswer marks a poll, which has nothing to score.
const NoCorrectAnswer = -1

// Ballot is the externally owned, already validated poll or quiz definition.
type Ballot struct {
	ID                 string     `json:"id"`
	EventID            EventID    `json:"eventId"`
	Kind               BallotKind `json:"kind"`
	Question           string     `json:"question"`
	Options            []string   `json:"options"`
	IsActive           bool       `json:"isActive"`
	CorrectAnswerIndex int        `json:"correctAnswerIndex"`
	OwnerID            UserID     `json:"ownerId,omitempty"`
}

func (b *Ballot) IsQuiz() bool {
	return b.Kind == BallotQuiz && b.CorrectAnswerIndex >= 0
}

func (b *Ballot) ValidOption(i int) bool {
	return i >= 0 && i < len(b.Options)
}
