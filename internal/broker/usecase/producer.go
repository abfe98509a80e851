package usecase

import (
	"context"
	"slices"
	"time"

	brokerDomain "github.com/allisson/workforce-sync/internal/broker/domain"
	"github.com/allisson/workforce-sync/internal/database"
	apperrors "github.com/allisson/workforce-sync/internal/errors"
	"github.com/allisson/workforce-sync/internal/metrics"
)

// ProducerConfig holds producer configuration.
type ProducerConfig struct {
	Topics     []string
	Partitions int
}

// Producer appends messages to the log, choosing the partition from the key.
type Producer struct {
	config      ProducerConfig
	txManager   database.TxManager
	messageRepo MessageRepository
	metrics     metrics.BusinessMetrics
}

// NewProducer creates a Producer.
func NewProducer(
	config ProducerConfig,
	txManager database.TxManager,
	messageRepo MessageRepository,
	m metrics.BusinessMetrics,
) *Producer {
	if m == nil {
		m = metrics.NewNoOpBusinessMetrics()
	}
	return &Producer{
		config:      config,
		txManager:   txManager,
		messageRepo: messageRepo,
		metrics:     m,
	}
}

// Publish appends the message in its own transaction and returns it with its
// assigned partition and offset. Publishing is synchronous: once Publish
// returns nil the message is durable.
func (p *Producer) Publish(
	ctx context.Context,
	topic, key string,
	value []byte,
	headers map[string]string,
) (*brokerDomain.Message, error) {
	if !slices.Contains(p.config.Topics, topic) {
		return nil, apperrors.Wrapf(brokerDomain.ErrUnknownTopic, "%s", topic)
	}

	msg := &brokerDomain.Message{
		Topic:     topic,
		Partition: brokerDomain.PartitionFor(key, p.config.Partitions),
		Key:       key,
		Value:     value,
		Headers:   headers,
		CreatedAt: time.Now().UTC(),
	}

	err := p.txManager.WithTx(ctx, func(ctx context.Context) error {
		return p.messageRepo.Append(ctx, msg)
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, apperrors.Wrap(apperrors.ErrUnavailable, ctx.Err().Error())
		}
		return nil, err
	}

	p.metrics.RecordPayloadSize(ctx, topic, "produced", len(value))
	return msg, nil
}

// EnsureTopics creates the partition rows of every configured topic.
func (p *Producer) EnsureTopics(ctx context.Context) error {
	for _, topic := range p.config.Topics {
		if err := p.messageRepo.EnsurePartitions(ctx, topic, p.config.Partitions); err != nil {
			return err
		}
	}
	return nil
}
