package usecase

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/allisson/workforce-sync/internal/metrics"
)

// ConsumerConfig holds consumer configuration.
type ConsumerConfig struct {
	Group        string
	Topics       []string
	Partitions   int
	PollInterval time.Duration
	BatchSize    int
}

// Consumer delivers messages of every (topic, partition) to a Handler. Each
// partition is consumed by its own goroutine, sequentially and in offset order.
type Consumer struct {
	config      ConsumerConfig
	messageRepo MessageRepository
	handler     Handler
	metrics     metrics.BusinessMetrics
	logger      *slog.Logger
}

// NewConsumer creates a Consumer.
func NewConsumer(
	config ConsumerConfig,
	messageRepo MessageRepository,
	handler Handler,
	m metrics.BusinessMetrics,
	logger *slog.Logger,
) *Consumer {
	if m == nil {
		m = metrics.NewNoOpBusinessMetrics()
	}
	return &Consumer{
		config:      config,
		messageRepo: messageRepo,
		handler:     handler,
		metrics:     m,
		logger:      logger,
	}
}

// Start consumes until ctx is cancelled and returns ctx.Err().
func (c *Consumer) Start(ctx context.Context) error {
	for _, topic := range c.config.Topics {
		if err := c.messageRepo.EnsurePartitions(ctx, topic, c.config.Partitions); err != nil {
			return err
		}
	}

	if c.logger != nil {
		c.logger.Info("starting broker consumer",
			slog.String("group", c.config.Group),
			slog.Any("topics", c.config.Topics),
			slog.Int("partitions", c.config.Partitions),
			slog.Duration("poll_interval", c.config.PollInterval),
		)
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, topic := range c.config.Topics {
		for partition := 0; partition < c.config.Partitions; partition++ {
			g.Go(func() error {
				return c.consumePartition(gctx, topic, partition)
			})
		}
	}

	err := g.Wait()
	if c.logger != nil {
		c.logger.Info("stopping broker consumer", slog.String("group", c.config.Group))
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

func (c *Consumer) consumePartition(ctx context.Context, topic string, partition int) error {
	ticker := time.NewTicker(c.config.PollInterval)
	defer ticker.Stop()

	for {
		drained, err := c.Poll(ctx, topic, partition)
		if err != nil && c.logger != nil && !errors.Is(err, context.Canceled) {
			c.logger.Error("failed to consume partition",
				slog.String("topic", topic),
				slog.Int("partition", partition),
				slog.Any("error", err),
			)
		}

		if drained || err != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
			}
			continue
		}

		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

// Poll delivers at most one batch of a partition. The offset of each message
// is committed only after the handler accepted it; the first handler error
// stops the batch so that message is redelivered on the next poll. drained
// reports whether the batch was shorter than the batch size.
func (c *Consumer) Poll(ctx context.Context, topic string, partition int) (drained bool, err error) {
	committed, err := c.messageRepo.CommittedOffset(ctx, c.config.Group, topic, partition)
	if err != nil {
		return true, err
	}

	messages, err := c.messageRepo.Fetch(ctx, topic, partition, committed, c.config.BatchSize)
	if err != nil {
		return true, err
	}

	for _, msg := range messages {
		if err := ctx.Err(); err != nil {
			return true, err
		}

		c.metrics.RecordPayloadSize(ctx, topic, "consumed", len(msg.Value))

		if err := c.handler.Handle(ctx, msg); err != nil {
			return true, err
		}

		if err := c.messageRepo.Commit(ctx, c.config.Group, topic, partition, msg.Offset); err != nil {
			return true, err
		}
	}

	return len(messages) < c.config.BatchSize, nil
}
