// Package usecase captures failed events as dead letters, retries them through
// the broker and replays them on operator request.
package usecase

import (
	"context"

	"github.com/google/uuid"

	brokerDomain "github.com/allisson/workforce-sync/internal/broker/domain"
	deadLetterDomain "github.com/allisson/workforce-sync/internal/deadletter/domain"
	eventDomain "github.com/allisson/workforce-sync/internal/event/domain"
)

// DeadLetterHeader names the dead letter a re-published message came from.
const DeadLetterHeader = "X-Dead-Letter-Id"

// DeadLetterRepository defines the interface for DeadLetter persistence operations.
type DeadLetterRepository interface {
	Create(ctx context.Context, dl *deadLetterDomain.DeadLetter) error
	Update(ctx context.Context, dl *deadLetterDomain.DeadLetter) error
	Get(ctx context.Context, id uuid.UUID) (*deadLetterDomain.DeadLetter, error)
	GetForUpdate(ctx context.Context, id uuid.UUID) (*deadLetterDomain.DeadLetter, error)
	ListRetryable(ctx context.Context, limit int) ([]*deadLetterDomain.DeadLetter, error)
	List(ctx context.Context, filter deadLetterDomain.Filter, offset, limit int) ([]*deadLetterDomain.DeadLetter, error)
}

// Publisher re-publishes a dead letter payload to the broker.
type Publisher interface {
	Publish(
		ctx context.Context,
		topic, key string,
		value []byte,
		headers map[string]string,
	) (*brokerDomain.Message, error)
}

// Replayer runs a payload through the ingestion path and reports failure
// without capturing a new dead letter.
type Replayer interface {
	Replay(ctx context.Context, payload []byte, provenance eventDomain.Provenance) error
}

// DeadLetterUseCase defines the interface for dead letter business logic.
type DeadLetterUseCase interface {
	// Capture stores a PENDING dead letter for a message whose processing failed.
	// evt is nil when the payload could not be decoded.
	Capture(
		ctx context.Context,
		msg brokerDomain.Message,
		evt *eventDomain.ChangeEvent,
		cause error,
	) (*deadLetterDomain.DeadLetter, error)
	Get(ctx context.Context, id uuid.UUID) (*deadLetterDomain.DeadLetter, error)
	List(
		ctx context.Context,
		filter deadLetterDomain.Filter,
		offset, limit int,
	) ([]*deadLetterDomain.DeadLetter, error)
	// Reprocess replays the dead letter, with payload replacing the stored one
	// when non-empty.
	Reprocess(ctx context.Context, id uuid.UUID, payload []byte) (*deadLetterDomain.DeadLetter, error)
}
