// Package usecase publishes to and consumes from the partitioned SQL log with
// at-least-once delivery and per-partition ordering.
package usecase

import (
	"context"

	brokerDomain "github.com/allisson/workforce-sync/internal/broker/domain"
)

// MessageRepository defines the broker log persistence operations.
type MessageRepository interface {
	EnsurePartitions(ctx context.Context, topic string, partitions int) error
	Append(ctx context.Context, msg *brokerDomain.Message) error
	Fetch(ctx context.Context, topic string, partition int, after int64, limit int) ([]brokerDomain.Message, error)
	CommittedOffset(ctx context.Context, group, topic string, partition int) (int64, error)
	Commit(ctx context.Context, group, topic string, partition int, offset int64) error
}

// Publisher appends a keyed message to a topic.
type Publisher interface {
	Publish(
		ctx context.Context,
		topic, key string,
		value []byte,
		headers map[string]string,
	) (*brokerDomain.Message, error)
}

// Handler processes one delivered message. Returning an error leaves the
// offset uncommitted so the message is delivered again.
type Handler interface {
	Handle(ctx context.Context, msg brokerDomain.Message) error
}

// HandlerFunc adapts a function into a Handler.
type HandlerFunc func(ctx context.Context, msg brokerDomain.Message) error

// Handle calls f.
func (f HandlerFunc) Handle(ctx context.Context, msg brokerDomain.Message) error {
	return f(ctx, msg)
}
