// Package usecase reconciles validated change events into the target store.
package usecase

import (
	"context"

	eventDomain "github.com/allisson/workforce-sync/internal/event/domain"
	personDomain "github.com/allisson/workforce-sync/internal/person/domain"
)

// PersonRepository defines the interface for Person persistence operations.
type PersonRepository interface {
	Create(ctx context.Context, person *personDomain.Person) error
	Update(ctx context.Context, person *personDomain.Person) error
	GetBySourceID(ctx context.Context, sourceID string) (*personDomain.Person, error)
	CountByKeyExcluding(ctx context.Context, key personDomain.NaturalKey, value, sourceID string) (int64, error)
	AppendHistory(ctx context.Context, h *personDomain.History) error
	ListHistory(ctx context.Context, sourceID string) ([]personDomain.History, error)
}

// Outcome describes what Apply did to the target store.
type Outcome struct {
	Person     *personDomain.Person
	Operation  personDomain.Operation
	SelfHealed bool
	NoOp       bool
}

// ReconcileUseCase defines the interface for reconciliation business logic.
type ReconcileUseCase interface {
	// Apply mutates the person named by evt and appends the matching history
	// entry. It uses the transaction carried by ctx, so callers wrap it together
	// with their own bookkeeping in database.TxManager.WithTx.
	Apply(ctx context.Context, evt *eventDomain.ChangeEvent) (*Outcome, error)
	History(ctx context.Context, sourceID string) ([]personDomain.History, error)
}
