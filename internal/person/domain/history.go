package domain

import (
	"time"

	"github.com/google/uuid"
)

// Operation is the mutation recorded by a history entry.
type Operation string

const (
	OperationInsert Operation = "INSERT"
	OperationUpdate Operation = "UPDATE"
	OperationDelete Operation = "DELETE"
)

// History is an immutable snapshot of a person written on every mutation.
type History struct {
	ID       uuid.UUID
	PersonID uuid.UUID
	Fields
	Version       int
	Operation     Operation
	ChangedAt     time.Time
	ChangedBy     string
	Offset        int64
	CorrelationID uuid.UUID
}

// NewHistory snapshots p as written by op.
func NewHistory(p Person, op Operation) History {
	return History{
		ID:            uuid.Must(uuid.NewV7()),
		PersonID:      p.ID,
		Fields:        p.Fields,
		Version:       p.Version,
		Operation:     op,
		ChangedAt:     p.UpdatedAt,
		ChangedBy:     p.UpdatedBy,
		Offset:        p.Offset,
		CorrelationID: p.CorrelationID,
	}
}
