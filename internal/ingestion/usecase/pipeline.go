package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/allisson/workforce-sync/internal/database"
	apperrors "github.com/allisson/workforce-sync/internal/errors"
	eventDomain "github.com/allisson/workforce-sync/internal/event/domain"
	personUsecase "github.com/allisson/workforce-sync/internal/person/usecase"
	"github.com/allisson/workforce-sync/internal/validation"
)

type pipeline struct {
	txManager       database.TxManager
	eventRecordRepo EventRecordRepository
	validator       Validator
	reconciler      Reconciler
	logger          *slog.Logger
	clock           func() time.Time
}

// NewPipeline creates a Pipeline.
func NewPipeline(
	txManager database.TxManager,
	eventRecordRepo EventRecordRepository,
	validator Validator,
	reconciler Reconciler,
	logger *slog.Logger,
	clock func() time.Time,
) Pipeline {
	if clock == nil {
		clock = time.Now
	}
	return &pipeline{
		txManager:       txManager,
		eventRecordRepo: eventRecordRepo,
		validator:       validator,
		reconciler:      reconciler,
		logger:          logger,
		clock:           clock,
	}
}

func (p *pipeline) now() time.Time {
	return p.clock().UTC()
}

// Process commits validation and reconciliation in separate transactions, so
// findings and a VALIDATION_PASSED record survive a reconciliation failure.
// The person, its history entry and the PROCESSED record commit together.
func (p *pipeline) Process(
	ctx context.Context,
	evt *eventDomain.ChangeEvent,
	payload []byte,
) (*Result, error) {
	result, err := p.validate(ctx, evt, payload)
	if err != nil {
		return nil, p.reportTransition(evt, err)
	}
	if result.Rejected || result.Skipped {
		return result, nil
	}

	outcome, err := p.reconcile(ctx, result.Record, evt)
	if err != nil {
		err = p.reportTransition(evt, err)
		p.markFailed(ctx, result.Record, err)
		return nil, err
	}

	result.Outcome = outcome
	return result, nil
}

func (p *pipeline) Replay(ctx context.Context, payload []byte, provenance eventDomain.Provenance) error {
	evt, err := eventDomain.DecodeChangeEvent(payload)
	if err != nil {
		return err
	}
	evt = evt.WithProvenance(provenance)

	result, err := p.Process(ctx, &evt, payload)
	if apperrors.Is(err, ErrDuplicateEvent) {
		p.logger.Info("replayed event was already reconciled",
			slog.String("event_id", evt.EventID),
			slog.String("source_id", evt.SourceID),
		)
		return nil
	}
	if err != nil {
		return err
	}
	if result.Rejected || result.Skipped {
		return apperrors.Wrapf(ErrValidationRejected, "event %s has %d validation errors",
			evt.EventID, result.Record.ErrorCount)
	}
	return nil
}

// validate loads or creates the event record and runs the rule set when the
// record's status calls for it.
func (p *pipeline) validate(
	ctx context.Context,
	evt *eventDomain.ChangeEvent,
	payload []byte,
) (*Result, error) {
	var result *Result

	err := p.txManager.WithTx(ctx, func(ctx context.Context) error {
		rec, created, err := p.loadRecord(ctx, evt, payload)
		if err != nil {
			return err
		}

		switch rec.Status {
		case eventDomain.StatusReceived:
			if err := rec.Transition(eventDomain.StatusValidating, p.now()); err != nil {
				return err
			}
			result, err = p.runValidation(ctx, rec, evt, payload)
			if err != nil {
				return err
			}
			if created {
				return p.eventRecordRepo.Create(ctx, rec)
			}
			return p.eventRecordRepo.Update(ctx, rec)

		case eventDomain.StatusValidationPassed:
			result = &Result{Record: rec}
			return nil

		case eventDomain.StatusValidationFailed:
			result = &Result{Record: rec, Skipped: true}
			return nil

		case eventDomain.StatusError:
			// A retried or reprocessed event; its payload may have been edited.
			rec.Payload = payload
			rec.RetryCount++
			now := p.now()
			rec.LastRetryAt = &now
			result, err = p.revalidate(ctx, rec, evt, payload)
			if err != nil {
				return err
			}
			return p.eventRecordRepo.Update(ctx, rec)
		}

		if isPastProcessing(rec.Status) {
			return apperrors.Wrapf(ErrDuplicateEvent, "event %s is %s", rec.EventID, rec.Status)
		}
		return &eventDomain.InvalidTransitionError{From: rec.Status, To: eventDomain.StatusProcessing}
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (p *pipeline) loadRecord(
	ctx context.Context,
	evt *eventDomain.ChangeEvent,
	payload []byte,
) (*eventDomain.EventRecord, bool, error) {
	rec, err := p.eventRecordRepo.GetByEventID(ctx, evt.EventID)
	if err == nil {
		return rec, false, nil
	}
	if !apperrors.Is(err, eventDomain.ErrEventRecordNotFound) {
		return nil, false, err
	}
	return eventDomain.NewEventRecord(*evt, payload, p.now()), true, nil
}

func (p *pipeline) runValidation(
	ctx context.Context,
	rec *eventDomain.EventRecord,
	evt *eventDomain.ChangeEvent,
	payload []byte,
) (*Result, error) {
	vr, err := p.validator.Validate(ctx, evt, payload)
	if err != nil {
		return nil, err
	}

	now := p.now()
	rec.RecordValidation(vr.Valid(), len(vr.Errors()), len(vr.Warnings()), now)

	next := eventDomain.StatusValidationPassed
	if !vr.Valid() {
		next = eventDomain.StatusValidationFailed
	}
	if err := rec.Transition(next, now); err != nil {
		return nil, err
	}

	if !vr.Valid() {
		p.logRejection(rec, evt, vr)
	}
	return &Result{Record: rec, Validation: vr, Rejected: !vr.Valid()}, nil
}

// revalidate runs the rule set without moving the record. An ERROR record
// that fails revalidation stays in ERROR.
func (p *pipeline) revalidate(
	ctx context.Context,
	rec *eventDomain.EventRecord,
	evt *eventDomain.ChangeEvent,
	payload []byte,
) (*Result, error) {
	vr, err := p.validator.Validate(ctx, evt, payload)
	if err != nil {
		return nil, err
	}
	rec.RecordValidation(vr.Valid(), len(vr.Errors()), len(vr.Warnings()), p.now())
	if !vr.Valid() {
		p.logRejection(rec, evt, vr)
	}
	return &Result{Record: rec, Validation: vr, Rejected: !vr.Valid()}, nil
}

// reconcile moves the record through PROCESSING to PROCESSED together with
// the person mutation. rec is only updated once the transaction committed.
func (p *pipeline) reconcile(
	ctx context.Context,
	rec *eventDomain.EventRecord,
	evt *eventDomain.ChangeEvent,
) (*personUsecase.Outcome, error) {
	var outcome *personUsecase.Outcome
	work := *rec

	err := p.txManager.WithTx(ctx, func(ctx context.Context) (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("panic during reconciliation: %v", r)
			}
		}()

		if err := work.Transition(eventDomain.StatusProcessing, p.now()); err != nil {
			return err
		}

		outcome, err = p.reconciler.Apply(ctx, evt)
		if err != nil {
			return apperrors.Wrapf(err, "%s for %s", evt.Kind, evt.SourceID)
		}

		if err := work.Transition(eventDomain.StatusProcessed, p.now()); err != nil {
			return err
		}
		if outcome.Person != nil {
			id := outcome.Person.ID
			work.PersonID = &id
		}
		work.ErrorMessage = nil
		return p.eventRecordRepo.Update(ctx, &work)
	})
	if err != nil {
		return nil, err
	}

	*rec = work
	p.logger.Info("event processed",
		slog.String("event_id", evt.EventID),
		slog.String("source_id", evt.SourceID),
		slog.String("kind", string(evt.Kind)),
		slog.String("operation", string(outcome.Operation)),
		slog.Bool("self_healed", outcome.SelfHealed),
		slog.Bool("noop", outcome.NoOp),
		slog.String("correlation_id", evt.CorrelationID.String()),
	)
	return outcome, nil
}

// markFailed records the failure on the event record in its own transaction.
// It only logs when that bookkeeping fails: the dead letter still captures
// the original cause.
func (p *pipeline) markFailed(ctx context.Context, rec *eventDomain.EventRecord, cause error) {
	work := *rec

	err := p.txManager.WithTx(ctx, func(ctx context.Context) error {
		for _, next := range []eventDomain.EventStatus{
			eventDomain.StatusProcessing,
			eventDomain.StatusProcessingFailed,
			eventDomain.StatusError,
		} {
			if err := work.Transition(next, p.now()); err != nil {
				return err
			}
		}
		work.Fail(cause.Error())
		return p.eventRecordRepo.Update(ctx, &work)
	})
	if err != nil {
		p.logger.Error("failed to record processing failure",
			slog.String("event_id", rec.EventID),
			slog.String("status", string(rec.Status)),
			slog.Any("cause", cause),
			slog.Any("error", err),
		)
		return
	}
	*rec = work
}

// reportTransition logs lifecycle violations loudly with both states.
func (p *pipeline) reportTransition(evt *eventDomain.ChangeEvent, err error) error {
	var ite *eventDomain.InvalidTransitionError
	if errors.As(err, &ite) {
		p.logger.Error("invalid event transition",
			slog.String("event_id", evt.EventID),
			slog.String("source_id", evt.SourceID),
			slog.String("from", string(ite.From)),
			slog.String("to", string(ite.To)),
			slog.String("correlation_id", evt.CorrelationID.String()),
		)
	}
	return err
}

func (p *pipeline) logRejection(rec *eventDomain.EventRecord, evt *eventDomain.ChangeEvent, vr *validation.Result) {
	rules := make([]string, 0, len(vr.Errors()))
	for _, f := range vr.Errors() {
		rules = append(rules, f.RuleID)
	}
	p.logger.Warn("event failed validation",
		slog.String("event_id", evt.EventID),
		slog.String("source_id", evt.SourceID),
		slog.String("kind", string(evt.Kind)),
		slog.Int("errors", rec.ErrorCount),
		slog.Int("warnings", rec.WarningCount),
		slog.Any("rules", rules),
		slog.String("correlation_id", evt.CorrelationID.String()),
	)
}

// isPastProcessing reports whether status lies beyond PROCESSED.
func isPastProcessing(status eventDomain.EventStatus) bool {
	switch status {
	case eventDomain.StatusProcessed,
		eventDomain.StatusSendingToExternal,
		eventDomain.StatusSentToExternal,
		eventDomain.StatusExternalAccepted,
		eventDomain.StatusExternalRejected,
		eventDomain.StatusExternalProcessed,
		eventDomain.StatusArchived:
		return true
	}
	return false
}
