// Package domain defines the messages carried by the partitioned SQL log.
package domain

import (
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/allisson/workforce-sync/internal/errors"
)

// ErrUnknownTopic is returned when publishing to or consuming from a topic that is not configured.
var ErrUnknownTopic = errors.Wrap(errors.ErrInvalidInput, "unknown topic")

// NoOffset is the committed offset of a group that never consumed a partition.
const NoOffset int64 = -1

// Message is one record appended to a topic partition.
type Message struct {
	Topic     string
	Partition int
	Offset    int64
	Key       string
	Value     []byte
	Headers   map[string]string
	CreatedAt time.Time
}

// Header returns the named header or "".
func (m Message) Header(name string) string {
	if m.Headers == nil {
		return ""
	}
	return m.Headers[name]
}

// PartitionFor maps key to a partition in [0, partitions). Messages sharing a
// key always land on the same partition, which preserves their order.
func PartitionFor(key string, partitions int) int {
	if partitions <= 1 {
		return 0
	}
	return int(xxhash.Sum64String(key) % uint64(partitions))
}
