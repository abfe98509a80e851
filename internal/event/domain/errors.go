package domain

import (
	"fmt"

	"github.com/allisson/workforce-sync/internal/errors"
)

// ErrEventRecordNotFound indicates no processing record exists for an event id.
var ErrEventRecordNotFound = errors.Wrap(errors.ErrNotFound, "event record not found")

// InvalidTransitionError names both ends of a rejected lifecycle move.
type InvalidTransitionError struct {
	From EventStatus
	To   EventStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid transition from %s to %s", e.From, e.To)
}

// Unwrap lets errors.Is match errors.ErrInvalidTransition.
func (e *InvalidTransitionError) Unwrap() error {
	return errors.ErrInvalidTransition
}
