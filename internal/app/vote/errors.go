package vote

import (
	"fmt"

	"github.com/dkeye/Stage/internal/core"
	"github.com/dkeye/Stage/internal/domain"
)

var (
	ErrNotActive      = fmt.Errorf("ballot is not active: %w", core.ErrInvalidState)
	ErrBallotNotFound = fmt.Errorf("ballot: %w", core.ErrNotFound)
	ErrBallotExists   = fmt.Errorf("ballot id is taken: %w", core.ErrAlreadyDone)
)

// AlreadyRespondedError carries the user's original choice so the UI can
// show it instead of retrying. CorrectIndex is domain.NoCorrectAnswer for polls.
type AlreadyRespondedError struct {
	BallotID     string
	UserID       domain.UserID
	Prior        int
	CorrectIndex int
}

func (e *AlreadyRespondedError) Error() string {
	return fmt.Sprintf("user %s already responded to %s with option %d", e.UserID, e.BallotID, e.Prior)
}

func (e *AlreadyRespondedError) Unwrap() error { return core.ErrAlreadyDone }

type InvalidOptionError struct {
	BallotID string
	Index    int
	Options  int
}

func (e *InvalidOptionError) Error() string {
	return fmt.Sprintf("option %d out of range [0, %d) for %s", e.Index, e.Options, e.BallotID)
}

func (e *InvalidOptionError) Unwrap() error { return core.ErrInvalidInput }
