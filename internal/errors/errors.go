// Package errors defines the sentinel errors shared by every pipeline stage.
//
// Repositories and use cases wrap one of these sentinels. The HTTP layer maps
// them to status codes and the ingestion orchestrator maps them to dead-letter
// decisions, so neither needs to know which store or transport failed.
package errors

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound means the person, event record or dead letter does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict means a uniqueness or optimistic version check failed.
	ErrConflict = errors.New("conflict")

	// ErrInvalidInput means a payload or query parameter was rejected.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnavailable means the broker, the source system or a store could not be reached.
	ErrUnavailable = errors.New("unavailable")

	// ErrInvalidTransition means an event lifecycle move the state machine forbids.
	ErrInvalidTransition = errors.New("invalid transition")
)

// New returns a plain error with message.
func New(message string) error {
	return errors.New(message)
}

// Wrap prefixes err with message, keeping err in the chain. A nil err stays nil.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf is Wrap with a formatted message.
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return Wrap(err, fmt.Sprintf(format, args...))
}

func Is(err, target error) bool {
	return errors.Is(err, target)
}

func As(err error, target any) bool {
	return errors.As(err, target)
}

func Join(errs ...error) error {
	return errors.Join(errs...)
}
