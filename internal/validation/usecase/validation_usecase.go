package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	eventDomain "github.com/allisson/workforce-sync/internal/event/domain"
	"github.com/allisson/workforce-sync/internal/validation"
	validationDomain "github.com/allisson/workforce-sync/internal/validation/domain"
)

type validationUseCase struct {
	engine      *validation.Engine
	findingRepo FindingRepository
	clock       validation.Clock
}

// NewValidationUseCase creates a ValidationUseCase. The same engine validates
// every mutation kind.
func NewValidationUseCase(
	engine *validation.Engine,
	findingRepo FindingRepository,
	clock validation.Clock,
) ValidationUseCase {
	if clock == nil {
		clock = time.Now
	}
	return &validationUseCase{
		engine:      engine,
		findingRepo: findingRepo,
		clock:       clock,
	}
}

func (v *validationUseCase) Validate(
	ctx context.Context,
	evt *eventDomain.ChangeEvent,
	payload []byte,
) (*validation.Result, error) {
	result := v.engine.Validate(ctx, evt)

	findings := result.Findings()
	if len(findings) == 0 {
		return result, nil
	}

	now := v.clock().UTC()
	for i := range findings {
		f := &findings[i]
		f.ID = uuid.Must(uuid.NewV7())
		f.EventID = evt.EventID
		f.SourceID = evt.SourceID
		f.Payload = payload
		f.Topic = evt.Topic
		f.Partition = evt.Partition
		f.Offset = evt.Offset
		f.CorrelationID = evt.CorrelationID
		f.CreatedAt = now
	}

	if err := v.findingRepo.CreateBatch(ctx, findings); err != nil {
		return result, err
	}

	return result, nil
}

func (v *validationUseCase) List(
	ctx context.Context,
	filter validationDomain.Filter,
	offset, limit int,
) ([]validationDomain.Finding, error) {
	return v.findingRepo.List(ctx, filter, offset, limit)
}

func (v *validationUseCase) Stats(ctx context.Context) ([]validationDomain.RuleCount, error) {
	return v.findingRepo.CountByRule(ctx)
}
