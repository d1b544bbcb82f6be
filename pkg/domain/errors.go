package domain

import (
	"errors"
	"fmt"
)

// ErrSessionNotFound is returned when a session ID cannot be found in the store.
var ErrSessionNotFound = errors.New("session not found")

// ErrExternalService is matched by every ExternalServiceError.
var ErrExternalService = errors.New("external model service failed")

// ErrInvalidState is matched by every InvalidStateError.
var ErrInvalidState = errors.New("invalid conversation state")

// ErrEmptyResponse is returned by generators when the model produced no text.
var ErrEmptyResponse = errors.New("model returned an empty response")

// ExternalServiceError reports a failed or unusable model call.
// The turn that produced it did not advance the state machine.
type ExternalServiceError struct {
	// Purpose names the request that failed (see PurposeFindMistakes, PurposeCorrect).
	Purpose string
	Err     error
}

func (e *ExternalServiceError) Error() string {
	return fmt.Sprintf("%s request: %v: %v", e.Purpose, ErrExternalService, e.Err)
}

func (e *ExternalServiceError) Unwrap() error { return e.Err }

func (e *ExternalServiceError) Is(target error) bool { return target == ErrExternalService }

// InvalidStateError reports a broken session invariant. It is a programming
// defect and must never be silently recovered.
type InvalidStateError struct {
	Reason string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("%v: %s", ErrInvalidState, e.Reason)
}

func (e *InvalidStateError) Is(target error) bool { return target == ErrInvalidState }
