package booking

import (
	"errors"
	"fmt"
)

// Error kinds. Every engine failure wraps exactly one of these.
var (
	ErrNotFound       = errors.New("not found")
	ErrInvalidRequest = errors.New("invalid request")
	ErrInvalidState   = errors.New("invalid state")
	ErrConflict       = errors.New("conflict")
	ErrForbidden      = errors.New("forbidden")
)

const (
	ReasonCourtNotFound       = "court_not_found"
	ReasonUserNotFound        = "user_not_found"
	ReasonReservationNotFound = "reservation_not_found"
	ReasonCourtUnavailable    = "court_unavailable"
	ReasonInvalidInterval     = "invalid_interval"
	ReasonCourtSlotTaken      = "court_slot_taken"
	ReasonVenueSlotTaken      = "venue_slot_taken"
	ReasonDailyLimit          = "daily_limit"
	ReasonAlreadyCancelled    = "already_cancelled"
	ReasonNotOwner            = "not_owner"
)

// Error carries a kind, a stable machine-readable reason and a human message.
type Error struct {
	Kind    error
	Reason  string
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Kind
}

func newError(kind error, reason, message string) *Error {
	return &Error{Kind: kind, Reason: reason, Message: message}
}

// KindCode returns the snake_case code for err's kind, or "" when err is not
// a booking error.
func KindCode(err error) string {
	switch {
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrInvalidRequest):
		return "invalid_request"
	case errors.Is(err, ErrInvalidState):
		return "invalid_state"
	case errors.Is(err, ErrConflict):
		return "conflict"
	case errors.Is(err, ErrForbidden):
		return "forbidden"
	}
	return ""
}
