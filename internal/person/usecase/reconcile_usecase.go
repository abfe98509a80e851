package usecase

import (
	"context"
	"log/slog"
	"time"

	apperrors "github.com/allisson/workforce-sync/internal/errors"
	eventDomain "github.com/allisson/workforce-sync/internal/event/domain"
	personDomain "github.com/allisson/workforce-sync/internal/person/domain"
)

// Actor is stamped as CreatedBy/UpdatedBy on mutations made by the consumer.
const Actor = "consumer"

type reconcileUseCase struct {
	personRepo PersonRepository
	logger     *slog.Logger
	clock      func() time.Time
}

// NewReconcileUseCase creates a ReconcileUseCase.
func NewReconcileUseCase(personRepo PersonRepository, logger *slog.Logger, clock func() time.Time) ReconcileUseCase {
	if clock == nil {
		clock = time.Now
	}
	return &reconcileUseCase{
		personRepo: personRepo,
		logger:     logger,
		clock:      clock,
	}
}

func (r *reconcileUseCase) Apply(ctx context.Context, evt *eventDomain.ChangeEvent) (*Outcome, error) {
	switch evt.Kind {
	case eventDomain.KindCreate:
		return r.create(ctx, evt)
	case eventDomain.KindUpdate:
		return r.update(ctx, evt)
	case eventDomain.KindDelete:
		return r.delete(ctx, evt)
	}
	return nil, apperrors.Wrapf(eventDomain.ErrUnknownMutationKind, "event %s", evt.EventID)
}

func (r *reconcileUseCase) History(ctx context.Context, sourceID string) ([]personDomain.History, error) {
	return r.personRepo.ListHistory(ctx, sourceID)
}

func (r *reconcileUseCase) create(ctx context.Context, evt *eventDomain.ChangeEvent) (*Outcome, error) {
	existing, err := r.personRepo.GetBySourceID(ctx, evt.SourceID)
	if err != nil && !apperrors.Is(err, personDomain.ErrPersonNotFound) {
		return nil, err
	}
	if existing != nil {
		return nil, apperrors.Wrapf(personDomain.ErrDuplicateSourceID, "source id %s", evt.SourceID)
	}

	return r.insert(ctx, evt, false)
}

func (r *reconcileUseCase) insert(ctx context.Context, evt *eventDomain.ChangeEvent, selfHealed bool) (*Outcome, error) {
	if err := r.ensureNationalIDFree(ctx, evt); err != nil {
		return nil, err
	}

	person := personDomain.NewPerson(*evt, Actor, r.clock().UTC())
	if err := r.personRepo.Create(ctx, &person); err != nil {
		return nil, err
	}

	history := personDomain.NewHistory(person, personDomain.OperationInsert)
	if err := r.personRepo.AppendHistory(ctx, &history); err != nil {
		return nil, err
	}

	return &Outcome{Person: &person, Operation: personDomain.OperationInsert, SelfHealed: selfHealed}, nil
}

func (r *reconcileUseCase) update(ctx context.Context, evt *eventDomain.ChangeEvent) (*Outcome, error) {
	existing, err := r.personRepo.GetBySourceID(ctx, evt.SourceID)
	if err != nil {
		if !apperrors.Is(err, personDomain.ErrPersonNotFound) {
			return nil, err
		}
		if r.logger != nil {
			r.logger.Warn("update for unknown person, creating it",
				slog.String("source_id", evt.SourceID),
				slog.String("event_id", evt.EventID),
				slog.String("correlation_id", evt.CorrelationID.String()),
			)
		}
		return r.insert(ctx, evt, true)
	}

	if evt.NationalID != existing.NationalID {
		if err := r.ensureNationalIDFree(ctx, evt); err != nil {
			return nil, err
		}
	}

	next := existing.WithSnapshot(*evt, Actor, r.clock().UTC())
	return r.write(ctx, next, personDomain.OperationUpdate)
}

func (r *reconcileUseCase) delete(ctx context.Context, evt *eventDomain.ChangeEvent) (*Outcome, error) {
	existing, err := r.personRepo.GetBySourceID(ctx, evt.SourceID)
	if err != nil {
		return nil, err
	}

	if !existing.IsActive() {
		if r.logger != nil {
			r.logger.Warn("delete for inactive person ignored",
				slog.String("source_id", evt.SourceID),
				slog.String("event_id", evt.EventID),
				slog.Int("version", existing.Version),
			)
		}
		return &Outcome{Person: existing, Operation: personDomain.OperationDelete, NoOp: true}, nil
	}

	now := r.clock().UTC()
	on := eventDomain.DateOf(now)
	if evt.TerminationDate != nil {
		on = *evt.TerminationDate
	}

	next := existing.Terminated(on, *evt, Actor, now)
	return r.write(ctx, next, personDomain.OperationDelete)
}

func (r *reconcileUseCase) write(
	ctx context.Context,
	next personDomain.Person,
	op personDomain.Operation,
) (*Outcome, error) {
	if err := r.personRepo.Update(ctx, &next); err != nil {
		return nil, err
	}

	history := personDomain.NewHistory(next, op)
	if err := r.personRepo.AppendHistory(ctx, &history); err != nil {
		return nil, err
	}

	return &Outcome{Person: &next, Operation: op}, nil
}

func (r *reconcileUseCase) ensureNationalIDFree(ctx context.Context, evt *eventDomain.ChangeEvent) error {
	if evt.NationalID == "" {
		return nil
	}
	count, err := r.personRepo.CountByKeyExcluding(ctx, personDomain.KeyNationalID, evt.NationalID, evt.SourceID)
	if err != nil {
		return err
	}
	if count > 0 {
		return apperrors.Wrapf(personDomain.ErrNationalIDTaken, "source id %s", evt.SourceID)
	}
	return nil
}
