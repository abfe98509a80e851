package usecase

import (
	"context"
	"time"

	eventDomain "github.com/allisson/workforce-sync/internal/event/domain"
	"github.com/allisson/workforce-sync/internal/metrics"
)

// pipelineWithMetrics decorates Pipeline with metrics instrumentation.
type pipelineWithMetrics struct {
	next    Pipeline
	metrics metrics.BusinessMetrics
}

// NewPipelineWithMetrics wraps a Pipeline with metrics recording.
func NewPipelineWithMetrics(p Pipeline, m metrics.BusinessMetrics) Pipeline {
	return &pipelineWithMetrics{
		next:    p,
		metrics: m,
	}
}

// Process records metrics with "rejected" for validation rejections.
func (p *pipelineWithMetrics) Process(
	ctx context.Context,
	evt *eventDomain.ChangeEvent,
	payload []byte,
) (*Result, error) {
	start := time.Now()
	result, err := p.next.Process(ctx, evt, payload)

	status := "success"
	switch {
	case err != nil:
		status = "error"
	case result.Rejected || result.Skipped:
		status = "rejected"
	}

	p.metrics.RecordOperation(ctx, "ingestion", "process", status)
	p.metrics.RecordDuration(ctx, "ingestion", "process", time.Since(start), status)

	return result, err
}

// Replay records metrics for manual and retried replays.
func (p *pipelineWithMetrics) Replay(
	ctx context.Context,
	payload []byte,
	provenance eventDomain.Provenance,
) error {
	start := time.Now()
	err := p.next.Replay(ctx, payload, provenance)

	status := "success"
	if err != nil {
		status = "error"
	}

	p.metrics.RecordOperation(ctx, "ingestion", "replay", status)
	p.metrics.RecordDuration(ctx, "ingestion", "replay", time.Since(start), status)

	return err
}
