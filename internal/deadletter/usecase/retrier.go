package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/allisson/workforce-sync/internal/database"
	deadLetterDomain "github.com/allisson/workforce-sync/internal/deadletter/domain"
	eventDomain "github.com/allisson/workforce-sync/internal/event/domain"
	"github.com/allisson/workforce-sync/internal/metrics"
)

// RetrierConfig holds dead letter retrier configuration.
type RetrierConfig struct {
	Interval       time.Duration
	BatchSize      int
	PublishTimeout time.Duration
	RatePerSec     float64
}

// Retrier periodically re-publishes PENDING dead letters to their original topic.
type Retrier struct {
	config         RetrierConfig
	txManager      database.TxManager
	deadLetterRepo DeadLetterRepository
	publisher      Publisher
	limiter        *rate.Limiter
	metrics        metrics.BusinessMetrics
	logger         *slog.Logger
	clock          func() time.Time
}

// NewRetrier creates a Retrier. A non-positive RatePerSec disables pacing.
func NewRetrier(
	config RetrierConfig,
	txManager database.TxManager,
	deadLetterRepo DeadLetterRepository,
	publisher Publisher,
	m metrics.BusinessMetrics,
	logger *slog.Logger,
) *Retrier {
	if m == nil {
		m = metrics.NewNoOpBusinessMetrics()
	}
	limit := rate.Inf
	if config.RatePerSec > 0 {
		limit = rate.Limit(config.RatePerSec)
	}
	return &Retrier{
		config:         config,
		txManager:      txManager,
		deadLetterRepo: deadLetterRepo,
		publisher:      publisher,
		limiter:        rate.NewLimiter(limit, 1),
		metrics:        m,
		logger:         logger,
		clock:          time.Now,
	}
}

// Start runs retry passes on a ticker until ctx is cancelled.
func (r *Retrier) Start(ctx context.Context) error {
	r.logger.Info("starting dead letter retrier",
		slog.Duration("interval", r.config.Interval),
		slog.Int("batch_size", r.config.BatchSize),
		slog.Duration("publish_timeout", r.config.PublishTimeout),
	)

	ticker := time.NewTicker(r.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("stopping dead letter retrier")
			return ctx.Err()
		case <-ticker.C:
			if _, err := r.RetryPending(ctx); err != nil {
				r.logger.Error("failed to retry dead letters", slog.Any("error", err))
			}
		}
	}
}

// RetryPending makes one attempt for each retryable dead letter and returns
// how many were attempted. Every record's bookkeeping commits in its own
// transaction, so a failure on one record does not undo the others.
func (r *Retrier) RetryPending(ctx context.Context) (int, error) {
	start := time.Now()
	status := "success"
	defer func() {
		r.metrics.RecordOperation(ctx, "deadletter", "retry_pending", status)
		r.metrics.RecordDuration(ctx, "deadletter", "retry_pending", time.Since(start), status)
	}()

	pending, err := r.deadLetterRepo.ListRetryable(ctx, r.config.BatchSize)
	if err != nil {
		status = "error"
		return 0, err
	}
	if len(pending) == 0 {
		return 0, nil
	}

	r.logger.Info("retrying dead letters", slog.Int("count", len(pending)))

	attempted := 0
	for _, dl := range pending {
		if err := r.limiter.Wait(ctx); err != nil {
			return attempted, err
		}
		if err := r.retryOne(ctx, dl.ID); err != nil {
			status = "error"
			r.logger.Error("failed to record dead letter retry",
				slog.String("dead_letter_id", dl.ID.String()),
				slog.Any("error", err),
			)
			continue
		}
		attempted++
	}

	return attempted, nil
}

func (r *Retrier) retryOne(ctx context.Context, id uuid.UUID) error {
	return r.txManager.WithTx(ctx, func(ctx context.Context) error {
		dl, err := r.deadLetterRepo.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		// Picked up by another retrier or reprocessed since the listing.
		if !dl.Retryable() {
			return nil
		}

		publishErr := r.publish(ctx, dl)
		now := r.clock().UTC()
		if publishErr != nil {
			dl.RecordFailure(publishErr, now)
			r.metrics.RecordOperation(ctx, "deadletter", "retry", "error")
			r.logger.Warn("dead letter retry failed",
				slog.String("dead_letter_id", dl.ID.String()),
				slog.Int("retry_count", dl.RetryCount),
				slog.Int("max_retries", dl.MaxRetries),
				slog.String("status", string(dl.Status)),
				slog.Any("error", publishErr),
			)
		} else {
			dl.MarkRetried(now)
			r.metrics.RecordOperation(ctx, "deadletter", "retry", "success")
		}

		return r.deadLetterRepo.Update(ctx, dl)
	})
}

// publish re-publishes synchronously. Exceeding the timeout counts as a failure.
func (r *Retrier) publish(ctx context.Context, dl *deadLetterDomain.DeadLetter) error {
	if r.config.PublishTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.config.PublishTimeout)
		defer cancel()
	}

	headers := map[string]string{DeadLetterHeader: dl.ID.String()}
	if dl.CorrelationID != uuid.Nil {
		headers[eventDomain.CorrelationHeader] = dl.CorrelationID.String()
	}

	_, err := r.publisher.Publish(ctx, dl.Topic, dl.SourceID, dl.Payload, headers)
	return err
}
