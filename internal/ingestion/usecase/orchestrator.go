package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	brokerDomain "github.com/allisson/workforce-sync/internal/broker/domain"
	apperrors "github.com/allisson/workforce-sync/internal/errors"
	eventDomain "github.com/allisson/workforce-sync/internal/event/domain"
	"github.com/allisson/workforce-sync/internal/metrics"
)

// Orchestrator is the broker Handler of the consumer. Every failure of the
// pipeline is captured exactly once as a dead letter and the message is
// acknowledged; only a dead letter that cannot be stored is returned, which
// leaves the offset uncommitted for redelivery.
type Orchestrator struct {
	pipeline    Pipeline
	deadLetters DeadLetterCapturer
	metrics     metrics.BusinessMetrics
	logger      *slog.Logger
}

// NewOrchestrator creates an Orchestrator.
func NewOrchestrator(
	pipeline Pipeline,
	deadLetters DeadLetterCapturer,
	m metrics.BusinessMetrics,
	logger *slog.Logger,
) *Orchestrator {
	if m == nil {
		m = metrics.NewNoOpBusinessMetrics()
	}
	return &Orchestrator{
		pipeline:    pipeline,
		deadLetters: deadLetters,
		metrics:     m,
		logger:      logger,
	}
}

// Handle processes one delivered message.
func (o *Orchestrator) Handle(ctx context.Context, msg brokerDomain.Message) error {
	start := time.Now()
	status := "success"
	defer func() {
		o.metrics.RecordOperation(ctx, "ingestion", "handle", status)
		o.metrics.RecordDuration(ctx, "ingestion", "handle", time.Since(start), status)
	}()

	logger := o.logger.With(
		slog.String("topic", msg.Topic),
		slog.Int("partition", msg.Partition),
		slog.Int64("offset", msg.Offset),
		slog.String("key", msg.Key),
	)

	evt, result, cause := o.process(ctx, msg)
	if cause == nil {
		switch {
		case result.Skipped:
			status = "skipped"
			logger.Info("event already rejected, skipping", slog.String("event_id", evt.EventID))
		case result.Rejected:
			status = "rejected"
		}
		return nil
	}

	status = "dead_letter"
	dl, err := o.deadLetters.Capture(ctx, msg, evt, cause)
	if err != nil {
		status = "error"
		logger.Error("failed to capture dead letter, message will be redelivered",
			slog.Any("cause", cause),
			slog.Any("error", err),
		)
		return apperrors.Wrap(err, "failed to capture dead letter")
	}

	logger.Debug("message acknowledged after dead-lettering",
		slog.String("dead_letter_id", dl.ID.String()),
	)
	return nil
}

// process decodes the message and runs the pipeline. A panic anywhere below
// is turned into the returned error.
func (o *Orchestrator) process(
	ctx context.Context,
	msg brokerDomain.Message,
) (evt *eventDomain.ChangeEvent, result *Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic while processing message: %v", r)
			result = nil
		}
	}()

	decoded, err := eventDomain.DecodeChangeEvent(msg.Value)
	if err != nil {
		return nil, nil, err
	}
	decoded = decoded.WithProvenance(eventDomain.Provenance{
		Topic:     msg.Topic,
		Partition: msg.Partition,
		Offset:    msg.Offset,
	})
	decoded.CorrelationID = correlationID(msg, decoded.CorrelationID)
	evt = &decoded

	result, err = o.pipeline.Process(ctx, evt, msg.Value)
	if err != nil {
		return evt, nil, err
	}
	return evt, result, nil
}

// correlationID prefers the transport header, then the event body, and
// generates one when neither carries it.
func correlationID(msg brokerDomain.Message, fromBody uuid.UUID) uuid.UUID {
	if id, err := uuid.Parse(msg.Header(eventDomain.CorrelationHeader)); err == nil {
		return id
	}
	if fromBody != uuid.Nil {
		return fromBody
	}
	return uuid.Must(uuid.NewV7())
}
