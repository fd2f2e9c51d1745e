package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound means a token or identifier did not resolve to an entity.
	ErrNotFound = errors.New("not found")

	// ErrForbidden means the actor lacks rights for the requested mutation.
	ErrForbidden = errors.New("forbidden")

	// ErrTokenExhausted means the gate token collision budget was exceeded.
	// This signals a pathological entropy or store failure and is surfaced
	// as an internal error, never retried further up.
	ErrTokenExhausted = errors.New("gate token space exhausted")
)

// ValidationError reports malformed input: a bad interval, an inactive lot,
// or a rate plan that does not belong to the reservation's lot.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string {
	return e.Msg
}

func Validation(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// InvalidTransitionError reports a state change that is illegal from the
// current status. The current status is included for caller diagnostics.
type InvalidTransitionError struct {
	From  ReservationStatus
	Event string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("%s not allowed from status %q", e.Event, e.From)
}
