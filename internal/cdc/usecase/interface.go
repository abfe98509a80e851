// Package usecase polls the source store for modified workers and publishes
// one change event per modified row.
package usecase

import (
	"context"
	"time"

	brokerDomain "github.com/allisson/workforce-sync/internal/broker/domain"
	cdcDomain "github.com/allisson/workforce-sync/internal/cdc/domain"
)

// SourceRepository reads the source-of-record store.
type SourceRepository interface {
	FindModifiedAfter(ctx context.Context, after time.Time) ([]cdcDomain.SourceRow, error)
}

// CheckpointStore persists the detector's watermark between runs.
type CheckpointStore interface {
	Load(ctx context.Context) (at time.Time, ok bool, err error)
	Save(ctx context.Context, at time.Time) error
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
