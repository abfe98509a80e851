// Package usecase runs the validation engine against change events and keeps
// every finding it produces queryable.
package usecase

import (
	"context"

	eventDomain "github.com/allisson/workforce-sync/internal/event/domain"
	"github.com/allisson/workforce-sync/internal/validation"
	validationDomain "github.com/allisson/workforce-sync/internal/validation/domain"
)

// FindingRepository defines the interface for Finding persistence operations.
type FindingRepository interface {
	CreateBatch(ctx context.Context, findings []validationDomain.Finding) error
	List(ctx context.Context, filter validationDomain.Filter, offset, limit int) ([]validationDomain.Finding, error)
	CountByRule(ctx context.Context) ([]validationDomain.RuleCount, error)
}

// ValidationUseCase defines the interface for validation business logic.
type ValidationUseCase interface {
	// Validate runs the rule set for the event kind and stores every ERROR and
	// WARNING finding, inside the transaction carried by ctx when there is one.
	// The returned error is only set when findings could not be stored.
	Validate(ctx context.Context, evt *eventDomain.ChangeEvent, payload []byte) (*validation.Result, error)
	List(ctx context.Context, filter validationDomain.Filter, offset, limit int) ([]validationDomain.Finding, error)
	Stats(ctx context.Context) ([]validationDomain.RuleCount, error)
}
