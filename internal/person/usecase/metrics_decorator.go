package usecase

import (
	"context"
	"strings"
	"time"

	eventDomain "github.com/allisson/workforce-sync/internal/event/domain"
	"github.com/allisson/workforce-sync/internal/metrics"
	personDomain "github.com/allisson/workforce-sync/internal/person/domain"
)

// reconcileUseCaseWithMetrics decorates ReconcileUseCase with metrics instrumentation.
type reconcileUseCaseWithMetrics struct {
	next    ReconcileUseCase
	metrics metrics.BusinessMetrics
}

// NewReconcileUseCaseWithMetrics wraps a ReconcileUseCase with metrics recording.
func NewReconcileUseCaseWithMetrics(useCase ReconcileUseCase, m metrics.BusinessMetrics) ReconcileUseCase {
	return &reconcileUseCaseWithMetrics{
		next:    useCase,
		metrics: m,
	}
}

// Apply records metrics per mutation kind, e.g. "apply_create".
func (r *reconcileUseCaseWithMetrics) Apply(
	ctx context.Context,
	evt *eventDomain.ChangeEvent,
) (*Outcome, error) {
	start := time.Now()
	outcome, err := r.next.Apply(ctx, evt)

	status := "success"
	switch {
	case err != nil:
		status = "error"
	case outcome != nil && outcome.NoOp:
		status = "noop"
	}

	operation := "apply_" + strings.ToLower(string(evt.Kind))
	r.metrics.RecordOperation(ctx, "reconciliation", operation, status)
	r.metrics.RecordDuration(ctx, "reconciliation", operation, time.Since(start), status)

	return outcome, err
}

// History records metrics for history lookups.
func (r *reconcileUseCaseWithMetrics) History(
	ctx context.Context,
	sourceID string,
) ([]personDomain.History, error) {
	start := time.Now()
	entries, err := r.next.History(ctx, sourceID)

	status := "success"
	if err != nil {
		status = "error"
	}

	r.metrics.RecordOperation(ctx, "reconciliation", "history_list", status)
	r.metrics.RecordDuration(ctx, "reconciliation", "history_list", time.Since(start), status)

	return entries, err
}
