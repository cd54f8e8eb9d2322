package core

import "errors"

// Error kinds. Concrete errors wrap one of these so callers can match
// with errors.Is and map them onto user-facing feedback.
var (
	ErrInvalidState     = errors.New("invalid state")
	ErrNotFound         = errors.New("not found")
	ErrAlreadyDone      = errors.New("already done")
	ErrMalformedPayload = errors.New("malformed payload")
	ErrTransportFailure = errors.New("transport failure")
	ErrInvalidInput     = errors.New("invalid input")
)

// Code maps an error onto a stable wire code.
func Code(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, ErrAlreadyDone):
		return "already_done"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrInvalidState):
		return "invalid_state"
	case errors.Is(err, ErrMalformedPayload):
		return "bad_payload"
	case errors.Is(err, ErrTransportFailure):
		return "transport_failure"
	default:
		return "internal"
	}
}
