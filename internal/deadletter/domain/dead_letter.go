// Package domain defines dead letters: events whose processing failed for a
// reason other than validation, kept with enough context to retry or replay them.
package domain

import (
	"time"

	"github.com/google/uuid"

	"github.com/allisson/workforce-sync/internal/errors"
)

// Status is the resolution state of a dead letter.
type Status string

const (
	StatusPending     Status = "PENDING"
	StatusRetried     Status = "RETRIED"
	StatusReprocessed Status = "REPROCESSED"
	StatusFailed      Status = "FAILED"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusRetried, StatusReprocessed, StatusFailed:
		return true
	}
	return false
}

// MaxStackTraceBytes caps the stack trace kept on a dead letter.
const MaxStackTraceBytes = 5000

// Dead letter error definitions.
var (
	// ErrDeadLetterNotFound indicates no dead letter exists for an id.
	ErrDeadLetterNotFound = errors.Wrap(errors.ErrNotFound, "dead letter not found")

	// ErrAlreadyReprocessed indicates a manual reprocess of a record that was already reprocessed.
	ErrAlreadyReprocessed = errors.Wrap(errors.ErrConflict, "dead letter already reprocessed")
)

// DeadLetter is a failed event with its payload, failure context and retry bookkeeping.
type DeadLetter struct {
	ID            uuid.UUID
	EventID       string
	Kind          string
	SourceID      string
	Payload       []byte
	ErrorMessage  string
	StackTrace    string
	RetryCount    int
	MaxRetries    int
	Status        Status
	Topic         string
	Partition     int
	Offset        int64
	CorrelationID uuid.UUID
	CreatedAt     time.Time
	LastRetryAt   *time.Time
	ResolvedAt    *time.Time
	ResolvedBy    *string
}

// New builds a PENDING dead letter with no retries spent.
func New(payload []byte, cause error, stack []byte, maxRetries int, now time.Time) *DeadLetter {
	if len(stack) > MaxStackTraceBytes {
		stack = stack[:MaxStackTraceBytes]
	}
	message := "unknown error"
	if cause != nil {
		message = cause.Error()
	}
	return &DeadLetter{
		ID:           uuid.Must(uuid.NewV7()),
		Payload:      payload,
		ErrorMessage: message,
		StackTrace:   string(stack),
		MaxRetries:   maxRetries,
		Status:       StatusPending,
		CreatedAt:    now,
	}
}

// Retryable reports whether the automatic retrier may still pick the record up.
func (d *DeadLetter) Retryable() bool {
	return d.Status == StatusPending && d.RetryCount < d.MaxRetries
}

// RecordFailure spends one retry and moves the record to FAILED once the bound is reached.
func (d *DeadLetter) RecordFailure(cause error, now time.Time) {
	d.RetryCount++
	d.LastRetryAt = &now
	if cause != nil {
		d.ErrorMessage = cause.Error()
	}
	if d.RetryCount >= d.MaxRetries {
		d.Status = StatusFailed
		d.resolve("retrier", now)
	}
}

// MarkRetried records a successful re-publish. The retry count is left unchanged.
func (d *DeadLetter) MarkRetried(now time.Time) {
	d.Status = StatusRetried
	d.LastRetryAt = &now
	d.resolve("retrier", now)
}

// MarkReprocessed records a successful manual reprocess.
func (d *DeadLetter) MarkReprocessed(actor string, now time.Time) error {
	if d.Status == StatusReprocessed {
		return ErrAlreadyReprocessed
	}
	d.RetryCount++
	d.LastRetryAt = &now
	d.Status = StatusReprocessed
	d.resolve(actor, now)
	return nil
}

func (d *DeadLetter) resolve(actor string, now time.Time) {
	d.ResolvedAt = &now
	d.ResolvedBy = &actor
}

// Filter narrows dead letter listings. Zero values match everything.
type Filter struct {
	Status  Status
	EventID string
}
