// Package usecase drives a delivered change event through validation and
// reconciliation, tracks it on its event record and turns every failure into
// a dead letter at the consumer boundary.
package usecase

import (
	"context"

	brokerDomain "github.com/allisson/workforce-sync/internal/broker/domain"
	deadLetterDomain "github.com/allisson/workforce-sync/internal/deadletter/domain"
	apperrors "github.com/allisson/workforce-sync/internal/errors"
	eventDomain "github.com/allisson/workforce-sync/internal/event/domain"
	personUsecase "github.com/allisson/workforce-sync/internal/person/usecase"
	"github.com/allisson/workforce-sync/internal/validation"
)

var (
	// ErrValidationRejected is returned by Replay when the payload fails validation.
	ErrValidationRejected = apperrors.Wrap(apperrors.ErrInvalidInput, "event failed validation")

	// ErrDuplicateEvent indicates an event id that was already reconciled.
	ErrDuplicateEvent = apperrors.Wrap(apperrors.ErrConflict, "event already processed")
)

// EventRecordRepository defines the interface for EventRecord persistence operations.
type EventRecordRepository interface {
	Create(ctx context.Context, rec *eventDomain.EventRecord) error
	Update(ctx context.Context, rec *eventDomain.EventRecord) error
	GetByEventID(ctx context.Context, eventID string) (*eventDomain.EventRecord, error)
}

// Validator runs the rule set for an event and stores its findings.
type Validator interface {
	Validate(ctx context.Context, evt *eventDomain.ChangeEvent, payload []byte) (*validation.Result, error)
}

// Reconciler applies a validated event to the target store.
type Reconciler interface {
	Apply(ctx context.Context, evt *eventDomain.ChangeEvent) (*personUsecase.Outcome, error)
}

// DeadLetterCapturer stores a failed message as a dead letter.
type DeadLetterCapturer interface {
	Capture(
		ctx context.Context,
		msg brokerDomain.Message,
		evt *eventDomain.ChangeEvent,
		cause error,
	) (*deadLetterDomain.DeadLetter, error)
}

// Result describes how far an event got through the pipeline.
type Result struct {
	Record     *eventDomain.EventRecord
	Validation *validation.Result
	Outcome    *personUsecase.Outcome
	// Rejected is set when validation found errors. Nothing was reconciled.
	Rejected bool
	// Skipped is set when the event was rejected by an earlier delivery.
	Skipped bool
}

// Pipeline runs one change event through validation and reconciliation.
type Pipeline interface {
	// Process validates evt and, when valid, reconciles it. A validation
	// rejection is reported through Result, not as an error. Any returned
	// error means the event was not applied.
	Process(ctx context.Context, evt *eventDomain.ChangeEvent, payload []byte) (*Result, error)

	// Replay decodes payload and processes it. Unlike Process, a validation
	// rejection is returned as ErrValidationRejected, and an event that was
	// already reconciled is a successful no-op.
	Replay(ctx context.Context, payload []byte, provenance eventDomain.Provenance) error
}
