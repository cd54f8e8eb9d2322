package domain

// RoomEventType is the closed set of presence/media events.
type RoomEventType string

const (
	UserJoined       RoomEventType = "USER_JOINED"
	UserLeft         RoomEventType = "USER_LEFT"
	HostMediaUpdated RoomEventType = "HOST_MEDIA_UPDATED"
)

type RoomEvent struct {
	Type    RoomEventType
	UserID  UserID
	Payload string
}

// InteractionType covers the high-volume interaction channel.
type InteractionType string

const (
	ChatMessage      InteractionType = "CHAT_MESSAGE"
	QuestionAsked    InteractionType = "QUESTION_ASKED"
	QuestionAnswered InteractionType = "QUESTION_ANSWERED"
	QuestionUpvoted  InteractionType = "QUESTION_UPVOTED"
	Reaction         InteractionType = "REACTION"
	PollLaunched     InteractionType = "POLL_LAUNCHED"
	PollClosed       InteractionType = "POLL_CLOSED"
	PollResults      InteractionType = "POLL_RESULTS"
	QuizLaunched     InteractionType = "QUIZ_LAUNCHED"
	QuizClosed       InteractionType = "QUIZ_CLOSED"
	QuizAnswered     InteractionType = "QUIZ_ANSWERED"
)

var clientInteractions = map[InteractionType]struct{}{
	ChatMessage:      {},
	QuestionAsked:    {},
	QuestionAnswered: {},
	QuestionUpvoted:  {},
	Reaction:         {},
	PollLaunched:     {},
	PollClosed:       {},
	QuizLaunched:     {},
	QuizClosed:       {},
}

// ClientSettable reports whether a client may publish this type directly.
// Result events are produced by the vote aggregator only.
func (t InteractionType) ClientSettable() bool {
	_, ok := clientInteractions[t]
	return ok
}

type InteractionEvent struct {
	Type    InteractionType
	UserID  UserID
	Payload string
}

type SignalType string

const (
	ScreenShareStarted SignalType = "screen-share-started"
	ScreenShareStopped SignalType = "screen-share-stopped"
	RequestViewers     SignalType = "request-viewers"
	ViewerJoined       SignalType = "viewer-joined"
	ViewerLeft         SignalType = "viewer-left"
	Offer              SignalType = "offer"
	Answer             SignalType = "answer"
	ICECandidate       SignalType = "ice-candidate"
)

// SignalEvent is routed by (EventID, Target). Payload is opaque SDP/ICE data.
type SignalEvent struct {
	Type    SignalType
	EventID EventID
	From    UserID
	Target  UserID
	Payload []byte
}
