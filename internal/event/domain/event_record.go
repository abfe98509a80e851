package domain

import (
	"time"

	"github.com/google/uuid"
)

// ValidationStatus summarizes the validation outcome stored on an EventRecord.
type ValidationStatus string

const (
	ValidationPending ValidationStatus = "PENDING"
	ValidationValid   ValidationStatus = "VALID"
	ValidationInvalid ValidationStatus = "INVALID"
)

// EventRecord tracks one delivered event through its lifecycle.
type EventRecord struct {
	ID            uuid.UUID
	EventID       string
	SourceID      string
	Kind          MutationKind
	Topic         string
	Partition     int
	Offset        int64
	CorrelationID uuid.UUID
	Status        EventStatus
	Payload       []byte

	ValidationStatus ValidationStatus
	ErrorCount       int
	WarningCount     int
	ValidatedAt      *time.Time

	ProcessingStartedAt  *time.Time
	ProcessingFinishedAt *time.Time
	ProcessingDuration   *time.Duration

	IntegrationOutcome *string
	RetryCount         int
	LastRetryAt        *time.Time
	NextRetryAt        *time.Time
	PersonID           *uuid.UUID
	ErrorMessage       *string

	ReceivedAt time.Time
	UpdatedAt  time.Time
}

// NewEventRecord starts a record in RECEIVED for a delivered event.
func NewEventRecord(evt ChangeEvent, payload []byte, now time.Time) *EventRecord {
	return &EventRecord{
		ID:               uuid.Must(uuid.NewV7()),
		EventID:          evt.EventID,
		SourceID:         evt.SourceID,
		Kind:             evt.Kind,
		Topic:            evt.Topic,
		Partition:        evt.Partition,
		Offset:           evt.Offset,
		CorrelationID:    evt.CorrelationID,
		Status:           StatusReceived,
		Payload:          payload,
		ValidationStatus: ValidationPending,
		ReceivedAt:       now,
		UpdatedAt:        now,
	}
}

// Transition moves the record to a new status, stamping the timing fields the
// target status implies. The record is left untouched when the move is rejected.
func (r *EventRecord) Transition(to EventStatus, now time.Time) error {
	if !CanTransition(r.Status, to) {
		return &InvalidTransitionError{From: r.Status, To: to}
	}

	switch to {
	case StatusProcessing:
		r.ProcessingStartedAt = &now
		r.ProcessingFinishedAt = nil
		r.ProcessingDuration = nil
	case StatusProcessed, StatusProcessingFailed:
		r.ProcessingFinishedAt = &now
		if r.ProcessingStartedAt != nil {
			d := now.Sub(*r.ProcessingStartedAt)
			r.ProcessingDuration = &d
		}
	}

	r.Status = to
	r.UpdatedAt = now
	return nil
}

// RecordValidation stores the validation summary on the record.
func (r *EventRecord) RecordValidation(valid bool, errorCount, warningCount int, now time.Time) {
	r.ValidationStatus = ValidationInvalid
	if valid {
		r.ValidationStatus = ValidationValid
	}
	r.ErrorCount = errorCount
	r.WarningCount = warningCount
	r.ValidatedAt = &now
}

// Fail records the error message that stopped processing.
func (r *EventRecord) Fail(message string) {
	r.ErrorMessage = &message
}
