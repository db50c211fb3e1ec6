package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound = errors.New("not found")

	ErrTokenNotFound       = errors.New("action token not found")
	ErrTokenActionMismatch = errors.New("action token used for wrong action")
	ErrTokenUsed           = errors.New("action token already used")
	ErrTokenExpired        = errors.New("action token expired")
)

// Validation error codes surfaced verbatim to the caller.
const (
	CodeMissingField     = "MissingField"
	CodeInvalidPartySize = "InvalidPartySize"
	CodeInvalidTime      = "InvalidTime"
	CodeInvalidDate      = "InvalidDate"
	CodeTimePassedToday  = "TimePassedToday"
)

type ValidationError struct {
	Code  string
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Msg, e.Field)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Msg)
}

func NewValidationError(code, field, msg string) *ValidationError {
	return &ValidationError{Code: code, Field: field, Msg: msg}
}

// StateConflictError is returned when a conditional status update lost its
// optimistic-lock race; Current is the status actually stored so the caller
// can reconcile instead of blindly retrying.
type StateConflictError struct {
	ReservationID int64
	Expected      ReservationStatus
	Current       ReservationStatus
}

func (e *StateConflictError) Error() string {
	return fmt.Sprintf("reservation %d is %q, expected %q", e.ReservationID, e.Current, e.Expected)
}

// AlreadyClosedError reports a transition attempt against a reservation that
// already reached a terminal state. It carries the current record so callers
// can show the final outcome rather than a dead-end.
type AlreadyClosedError struct {
	Reservation *Reservation
}

func (e *AlreadyClosedError) Error() string {
	return fmt.Sprintf("reservation %d already closed as %q", e.Reservation.ID, e.Reservation.Status)
}

func IsStateConflict(err error) bool {
	var sc *StateConflictError
	return errors.As(err, &sc)
}

func IsAlreadyClosed(err error) bool {
	var ac *AlreadyClosedError
	return errors.As(err, &ac)
}
