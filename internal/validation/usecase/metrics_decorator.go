package usecase

import (
	"context"
	"time"

	eventDomain "github.com/allisson/workforce-sync/internal/event/domain"
	"github.com/allisson/workforce-sync/internal/metrics"
	"github.com/allisson/workforce-sync/internal/validation"
	validationDomain "github.com/allisson/workforce-sync/internal/validation/domain"
)

// validationUseCaseWithMetrics decorates ValidationUseCase with metrics instrumentation.
type validationUseCaseWithMetrics struct {
	next    ValidationUseCase
	metrics metrics.BusinessMetrics
}

// NewValidationUseCaseWithMetrics wraps a ValidationUseCase with metrics recording.
func NewValidationUseCaseWithMetrics(useCase ValidationUseCase, m metrics.BusinessMetrics) ValidationUseCase {
	return &validationUseCaseWithMetrics{
		next:    useCase,
		metrics: m,
	}
}

// Validate records "valid", "invalid" or "error" for each validated event.
func (v *validationUseCaseWithMetrics) Validate(
	ctx context.Context,
	evt *eventDomain.ChangeEvent,
	payload []byte,
) (*validation.Result, error) {
	start := time.Now()
	result, err := v.next.Validate(ctx, evt, payload)

	status := "valid"
	switch {
	case err != nil:
		status = "error"
	case result != nil && !result.Valid():
		status = "invalid"
	}

	v.metrics.RecordOperation(ctx, "validation", "validate", status)
	v.metrics.RecordDuration(ctx, "validation", "validate", time.Since(start), status)

	return result, err
}

// List records metrics for finding listing operations.
func (v *validationUseCaseWithMetrics) List(
	ctx context.Context,
	filter validationDomain.Filter,
	offset, limit int,
) ([]validationDomain.Finding, error) {
	start := time.Now()
	findings, err := v.next.List(ctx, filter, offset, limit)

	status := "success"
	if err != nil {
		status = "error"
	}

	v.metrics.RecordOperation(ctx, "validation", "finding_list", status)
	v.metrics.RecordDuration(ctx, "validation", "finding_list", time.Since(start), status)

	return findings, err
}

// Stats records metrics for finding aggregation operations.
func (v *validationUseCaseWithMetrics) Stats(ctx context.Context) ([]validationDomain.RuleCount, error) {
	start := time.Now()
	counts, err := v.next.Stats(ctx)

	status := "success"
	if err != nil {
		status = "error"
	}

	v.metrics.RecordOperation(ctx, "validation", "finding_stats", status)
	v.metrics.RecordDuration(ctx, "validation", "finding_stats", time.Since(start), status)

	return counts, err
}
