package usecase

import (
	"context"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/google/uuid"

	brokerDomain "github.com/allisson/workforce-sync/internal/broker/domain"
	"github.com/allisson/workforce-sync/internal/database"
	deadLetterDomain "github.com/allisson/workforce-sync/internal/deadletter/domain"
	apperrors "github.com/allisson/workforce-sync/internal/errors"
	eventDomain "github.com/allisson/workforce-sync/internal/event/domain"
)

// ReprocessActor is recorded as resolved-by on manually reprocessed dead letters.
const ReprocessActor = "operator"

// deadLetterUseCase implements DeadLetterUseCase.
type deadLetterUseCase struct {
	txManager      database.TxManager
	deadLetterRepo DeadLetterRepository
	replayer       Replayer
	maxRetries     int
	logger         *slog.Logger
	clock          func() time.Time
}

// NewDeadLetterUseCase creates a DeadLetterUseCase. maxRetries bounds both
// automatic retries and manual reprocess attempts.
func NewDeadLetterUseCase(
	txManager database.TxManager,
	deadLetterRepo DeadLetterRepository,
	replayer Replayer,
	maxRetries int,
	logger *slog.Logger,
	clock func() time.Time,
) DeadLetterUseCase {
	if clock == nil {
		clock = time.Now
	}
	return &deadLetterUseCase{
		txManager:      txManager,
		deadLetterRepo: deadLetterRepo,
		replayer:       replayer,
		maxRetries:     maxRetries,
		logger:         logger,
		clock:          clock,
	}
}

func (d *deadLetterUseCase) Capture(
	ctx context.Context,
	msg brokerDomain.Message,
	evt *eventDomain.ChangeEvent,
	cause error,
) (*deadLetterDomain.DeadLetter, error) {
	dl := deadLetterDomain.New(msg.Value, cause, debug.Stack(), d.maxRetries, d.clock().UTC())
	dl.Topic = msg.Topic
	dl.Partition = msg.Partition
	dl.Offset = msg.Offset
	dl.SourceID = msg.Key
	if id, err := uuid.Parse(msg.Header(eventDomain.CorrelationHeader)); err == nil {
		dl.CorrelationID = id
	}
	if evt != nil {
		dl.EventID = evt.EventID
		dl.Kind = string(evt.Kind)
		dl.SourceID = evt.SourceID
		if evt.CorrelationID != uuid.Nil {
			dl.CorrelationID = evt.CorrelationID
		}
	}

	if err := d.deadLetterRepo.Create(ctx, dl); err != nil {
		return nil, err
	}

	d.logger.Warn("event dead-lettered",
		slog.String("dead_letter_id", dl.ID.String()),
		slog.String("event_id", dl.EventID),
		slog.String("source_id", dl.SourceID),
		slog.String("topic", dl.Topic),
		slog.Int64("offset", dl.Offset),
		slog.String("error", dl.ErrorMessage),
	)

	return dl, nil
}

func (d *deadLetterUseCase) Get(ctx context.Context, id uuid.UUID) (*deadLetterDomain.DeadLetter, error) {
	return d.deadLetterRepo.Get(ctx, id)
}

func (d *deadLetterUseCase) List(
	ctx context.Context,
	filter deadLetterDomain.Filter,
	offset, limit int,
) ([]*deadLetterDomain.DeadLetter, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, apperrors.Wrapf(apperrors.ErrInvalidInput, "unknown dead letter status %q", filter.Status)
	}
	return d.deadLetterRepo.List(ctx, filter, offset, limit)
}

// Reprocess holds the dead letter row lock while the payload is replayed so
// that concurrent reprocess requests for the same record serialize.
func (d *deadLetterUseCase) Reprocess(
	ctx context.Context,
	id uuid.UUID,
	payload []byte,
) (*deadLetterDomain.DeadLetter, error) {
	var dl *deadLetterDomain.DeadLetter
	var replayErr error

	err := d.txManager.WithTx(ctx, func(ctx context.Context) error {
		var err error
		dl, err = d.deadLetterRepo.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if dl.Status == deadLetterDomain.StatusReprocessed {
			return deadLetterDomain.ErrAlreadyReprocessed
		}

		if len(payload) > 0 {
			dl.Payload = payload
		}

		provenance := eventDomain.Provenance{Topic: dl.Topic, Partition: dl.Partition, Offset: dl.Offset}
		replayErr = d.replayer.Replay(ctx, dl.Payload, provenance)

		now := d.clock().UTC()
		if replayErr != nil {
			dl.RecordFailure(replayErr, now)
			d.logger.Warn("dead letter reprocess failed",
				slog.String("dead_letter_id", dl.ID.String()),
				slog.Int("retry_count", dl.RetryCount),
				slog.String("status", string(dl.Status)),
				slog.Any("error", replayErr),
			)
		} else {
			if err := dl.MarkReprocessed(ReprocessActor, now); err != nil {
				return err
			}
			d.logger.Info("dead letter reprocessed",
				slog.String("dead_letter_id", dl.ID.String()),
				slog.String("event_id", dl.EventID),
			)
		}

		if err := d.deadLetterRepo.Update(ctx, dl); err != nil {
			if replayErr == nil {
				// The replay committed on its own; a later reprocess finds the
				// event reconciled and resolves this dead letter.
				d.logger.Error("dead letter left unresolved after successful replay",
					slog.String("dead_letter_id", dl.ID.String()),
					slog.String("event_id", dl.EventID),
					slog.Any("error", err),
				)
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if replayErr != nil {
		return dl, apperrors.Wrap(replayErr, "reprocess failed")
	}
	return dl, nil
}
