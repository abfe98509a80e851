package usecase

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	cdcDomain "github.com/allisson/workforce-sync/internal/cdc/domain"
	apperrors "github.com/allisson/workforce-sync/internal/errors"
	eventDomain "github.com/allisson/workforce-sync/internal/event/domain"
	"github.com/allisson/workforce-sync/internal/metrics"
)

// DetectorConfig holds change detector configuration.
type DetectorConfig struct {
	Interval     time.Duration
	Lookback     time.Duration
	Topics       map[eventDomain.MutationKind]string
	SourceSystem string
}

// Detector turns source rows modified since the watermark into change events.
type Detector struct {
	config     DetectorConfig
	source     SourceRepository
	checkpoint CheckpointStore
	publisher  Publisher
	metrics    metrics.BusinessMetrics
	logger     *slog.Logger
	clock      func() time.Time

	flight singleflight.Group

	mu          sync.Mutex
	watermark   cdcDomain.Watermark
	initialized bool
}

// NewDetector creates a Detector.
func NewDetector(
	config DetectorConfig,
	source SourceRepository,
	checkpoint CheckpointStore,
	publisher Publisher,
	m metrics.BusinessMetrics,
	logger *slog.Logger,
) *Detector {
	if m == nil {
		m = metrics.NewNoOpBusinessMetrics()
	}
	return &Detector{
		config:     config,
		source:     source,
		checkpoint: checkpoint,
		publisher:  publisher,
		metrics:    m,
		logger:     logger,
		clock:      time.Now,
	}
}

// Init loads the stored watermark, or starts the lookback window before now
// when nothing was stored yet. Calling it again reloads the checkpoint.
func (d *Detector) Init(ctx context.Context) (cdcDomain.Watermark, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.initLocked(ctx)
}

func (d *Detector) initLocked(ctx context.Context) (cdcDomain.Watermark, error) {
	at, ok, err := d.checkpoint.Load(ctx)
	if err != nil {
		return cdcDomain.Watermark{}, err
	}

	if ok {
		d.watermark = cdcDomain.Watermark{At: at.UTC()}
	} else {
		d.watermark = cdcDomain.InitialWatermark(d.clock(), d.config.Lookback)
	}
	d.initialized = true

	d.logger.Info("change detector watermark initialized",
		slog.Time("watermark", d.watermark.At),
		slog.Bool("from_checkpoint", ok),
	)
	return d.watermark, nil
}

// Watermark returns the current watermark.
func (d *Detector) Watermark() cdcDomain.Watermark {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.watermark
}

// Poll runs one detection cycle and returns how many events were published.
// Concurrent calls share a single in-flight cycle.
func (d *Detector) Poll(ctx context.Context) (int, error) {
	v, err, _ := d.flight.Do("poll", func() (any, error) {
		return d.poll(ctx)
	})
	published, _ := v.(int)
	return published, err
}

func (d *Detector) poll(ctx context.Context) (published int, err error) {
	start := d.clock().UTC()
	status := "success"
	defer func() {
		if err != nil {
			status = "error"
		}
		d.metrics.RecordOperation(ctx, "cdc", "poll", status)
		d.metrics.RecordDuration(ctx, "cdc", "poll", time.Since(start), status)
	}()

	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.initialized {
		if _, err := d.initLocked(ctx); err != nil {
			return 0, err
		}
	}

	rows, err := d.source.FindModifiedAfter(ctx, d.watermark.At)
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, nil
	}

	for _, row := range rows {
		if err := d.emit(ctx, row, start); err != nil {
			d.logger.Error("failed to publish change, watermark not advanced",
				slog.String("source_id", row.SourceID),
				slog.Time("watermark", d.watermark.At),
				slog.Int("published", published),
				slog.Any("error", err),
			)
			return published, err
		}
		published++
	}

	next := d.watermark.Advance(start)
	if err := d.checkpoint.Save(ctx, next.At); err != nil {
		return published, apperrors.Wrap(err, "failed to save watermark")
	}
	d.watermark = next

	d.logger.Info("published worker changes",
		slog.Int("count", published),
		slog.Time("watermark", next.At),
	)
	return published, nil
}

func (d *Detector) emit(ctx context.Context, row cdcDomain.SourceRow, now time.Time) error {
	kind := cdcDomain.Classify(row, now)
	topic, ok := d.config.Topics[kind]
	if !ok {
		return apperrors.Wrapf(apperrors.ErrInvalidInput, "no topic configured for %s", kind)
	}

	correlationID, err := uuid.NewV7()
	if err != nil {
		return apperrors.Wrap(err, "failed to generate correlation id")
	}

	evt := eventDomain.NewChangeEvent(kind, row.WorkerSnapshot, correlationID, now)
	evt.SourceSystem = d.config.SourceSystem

	payload, err := evt.Encode()
	if err != nil {
		return apperrors.Wrap(err, "failed to encode change event")
	}

	headers := map[string]string{eventDomain.CorrelationHeader: correlationID.String()}
	msg, err := d.publisher.Publish(ctx, topic, row.SourceID, payload, headers)
	if err != nil {
		return apperrors.Wrapf(err, "failed to publish %s for %s", kind, row.SourceID)
	}

	d.metrics.RecordOperation(ctx, "cdc", "emit_"+string(kind), "success")
	d.logger.Debug("change event published",
		slog.String("event_id", evt.EventID),
		slog.String("source_id", row.SourceID),
		slog.String("kind", string(kind)),
		slog.String("correlation_id", correlationID.String()),
		slog.String("topic", msg.Topic),
		slog.Int("partition", msg.Partition),
		slog.Int64("offset", msg.Offset),
	)
	return nil
}

// Start polls on a fixed interval until ctx is cancelled and returns ctx.Err().
// A tick that fires while a poll is still running joins that poll instead of
// starting another one.
func (d *Detector) Start(ctx context.Context) error {
	if _, err := d.Init(ctx); err != nil {
		return err
	}

	d.logger.Info("starting change detector",
		slog.Duration("interval", d.config.Interval),
		slog.String("source_system", d.config.SourceSystem),
	)

	ticker := time.NewTicker(d.config.Interval)
	defer ticker.Stop()

	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		select {
		case <-ctx.Done():
			d.logger.Info("stopping change detector")
			return ctx.Err()
		case <-ticker.C:
			wg.Go(func() {
				if _, err := d.Poll(ctx); err != nil && ctx.Err() == nil {
					d.logger.Error("change detection poll failed", slog.Any("error", err))
				}
			})
		}
	}
}
