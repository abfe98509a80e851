package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	brokerDomain "github.com/allisson/workforce-sync/internal/broker/domain"
	deadLetterDomain "github.com/allisson/workforce-sync/internal/deadletter/domain"
	eventDomain "github.com/allisson/workforce-sync/internal/event/domain"
	"github.com/allisson/workforce-sync/internal/metrics"
)

// deadLetterUseCaseWithMetrics decorates DeadLetterUseCase with metrics instrumentation.
type deadLetterUseCaseWithMetrics struct {
	next    DeadLetterUseCase
	metrics metrics.BusinessMetrics
}

// NewDeadLetterUseCaseWithMetrics wraps a DeadLetterUseCase with metrics recording.
func NewDeadLetterUseCaseWithMetrics(useCase DeadLetterUseCase, m metrics.BusinessMetrics) DeadLetterUseCase {
	return &deadLetterUseCaseWithMetrics{
		next:    useCase,
		metrics: m,
	}
}

func (d *deadLetterUseCaseWithMetrics) Capture(
	ctx context.Context,
	msg brokerDomain.Message,
	evt *eventDomain.ChangeEvent,
	cause error,
) (*deadLetterDomain.DeadLetter, error) {
	start := time.Now()
	dl, err := d.next.Capture(ctx, msg, evt, cause)
	d.record(ctx, "capture", start, err)
	return dl, err
}

func (d *deadLetterUseCaseWithMetrics) Get(ctx context.Context, id uuid.UUID) (*deadLetterDomain.DeadLetter, error) {
	start := time.Now()
	dl, err := d.next.Get(ctx, id)
	d.record(ctx, "get", start, err)
	return dl, err
}

func (d *deadLetterUseCaseWithMetrics) List(
	ctx context.Context,
	filter deadLetterDomain.Filter,
	offset, limit int,
) ([]*deadLetterDomain.DeadLetter, error) {
	start := time.Now()
	deadLetters, err := d.next.List(ctx, filter, offset, limit)
	d.record(ctx, "list", start, err)
	return deadLetters, err
}

func (d *deadLetterUseCaseWithMetrics) Reprocess(
	ctx context.Context,
	id uuid.UUID,
	payload []byte,
) (*deadLetterDomain.DeadLetter, error) {
	start := time.Now()
	dl, err := d.next.Reprocess(ctx, id, payload)
	d.record(ctx, "reprocess", start, err)
	return dl, err
}

func (d *deadLetterUseCaseWithMetrics) record(ctx context.Context, operation string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	d.metrics.RecordOperation(ctx, "deadletter", operation, status)
	d.metrics.RecordDuration(ctx, "deadletter", operation, time.Since(start), status)
}
