package studio

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation marks a malformed generation request.
	ErrValidation = errors.New("studio: invalid request")
	// ErrBusy is returned while another generation is in flight.
	ErrBusy = errors.New("studio: a generation is already in progress")
	// ErrExhaustedRetries marks a generation that failed on every attempt.
	ErrExhaustedRetries = errors.New("studio: generation failed after all attempts")
	// ErrRunFinalized is returned when a session run is finished twice.
	ErrRunFinalized = errors.New("studio: session run already finalized")
	// ErrRunNotFound is returned for unknown session run ids.
	ErrRunNotFound = errors.New("studio: session run not found")
)

// ValidationError names the offending field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "studio: invalid request: " + e.Reason
	}
	return fmt.Sprintf("studio: invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// TransientGenerationError wraps a single failed attempt.
type TransientGenerationError struct {
	Attempt int
	Err     error
}

func (e *TransientGenerationError) Error() string {
	return fmt.Sprintf("studio: attempt %d failed: %v", e.Attempt, e.Err)
}

func (e *TransientGenerationError) Unwrap() error {
	return e.Err
}

// ExhaustedRetryError is returned after MaxAttempts failed attempts.
// errors.Is(err, ErrExhaustedRetries) holds and Unwrap yields the last cause.
type ExhaustedRetryError struct {
	Attempts int
	Last     error
}

func (e *ExhaustedRetryError) Error() string {
	return fmt.Sprintf("studio: generation failed after %d attempts: %v", e.Attempts, e.Last)
}

func (e *ExhaustedRetryError) Unwrap() error {
	return e.Last
}

func (e *ExhaustedRetryError) Is(target error) bool {
	return target == ErrExhaustedRetries
}

// PersistenceError reports a storage failure that did not fail the request.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("studio: %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
