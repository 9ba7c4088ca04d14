package session

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNoSelection is returned by Submit when no option is selected.
	ErrNoSelection = errors.New("no option selected")

	// ErrAlreadySubmitted is returned when the current question was already answered.
	ErrAlreadySubmitted = errors.New("answer already submitted")

	// ErrNotSubmitted is returned by operations that need a submitted answer.
	ErrNotSubmitted = errors.New("answer not submitted yet")

	// ErrFollowUpPending is returned while a follow-up reply is outstanding.
	ErrFollowUpPending = errors.New("a follow-up question is already pending")

	// ErrFinished is returned once the session is complete or cancelled.
	ErrFinished = errors.New("session is finished")

	// ErrStale is returned when a result arrives for a session or follow-up
	// that has since been replaced. The result is discarded.
	ErrStale = errors.New("result is stale")
)

// ValidationError reports input rejected before any state changed.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// TimeoutError reports a network call that did not finish in time.
type TimeoutError struct {
	Op    string
	After time.Duration
	Err   error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s timed out after %s", e.Op, e.After)
}

func (e *TimeoutError) Unwrap() error { return e.Err }

// IsTimeout reports whether err is or wraps a *TimeoutError.
func IsTimeout(err error) bool {
	var te *TimeoutError
	return errors.As(err, &te)
}
