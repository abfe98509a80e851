package metrics

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// BusinessMetrics records what the pipeline stages do, as opposed to how the
// HTTP surface is used.
//
// The domain label names a stage (cdc, ingestion, validation, reconciliation,
// deadletter) and operation names a step inside it (poll, handle, validate,
// apply, retry_pending). Status is "success" or "error".
type BusinessMetrics interface {
	RecordOperation(ctx context.Context, domain, operation, status string)
	RecordDuration(ctx context.Context, domain, operation string, duration time.Duration, status string)

	// RecordPayloadSize records the encoded size of a change event on a topic.
	// Direction is "produced" or "consumed".
	RecordPayloadSize(ctx context.Context, topic, direction string, size int)
}

// payloadBuckets covers a bare delete event up to a record with every optional field set.
var payloadBuckets = []float64{256, 512, 1024, 2048, 4096, 8192, 16384, 65536}

type businessMetrics struct {
	operations metric.Int64Counter
	durations  metric.Float64Histogram
	payloads   metric.Int64Histogram
}

// NewBusinessMetrics registers the pipeline instruments under namespace, so the
// operation counter is exported as <namespace>_operations_total.
func NewBusinessMetrics(meterProvider metric.MeterProvider, namespace string) (BusinessMetrics, error) {
	meter := meterProvider.Meter(namespace)
	b := &businessMetrics{}

	var err error
	if b.operations, err = meter.Int64Counter(
		namespace+"_operations_total",
		metric.WithDescription("Total number of pipeline operations"),
		metric.WithUnit("{operation}"),
	); err != nil {
		return nil, fmt.Errorf("failed to create operation counter: %w", err)
	}

	if b.durations, err = meter.Float64Histogram(
		namespace+"_operation_duration_seconds",
		metric.WithDescription("Duration of pipeline operations in seconds"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, fmt.Errorf("failed to create duration histogram: %w", err)
	}

	if b.payloads, err = meter.Int64Histogram(
		namespace+"_event_payload_bytes",
		metric.WithDescription("Encoded size of change events crossing the broker"),
		metric.WithUnit("By"),
		metric.WithExplicitBucketBoundaries(payloadBuckets...),
	); err != nil {
		return nil, fmt.Errorf("failed to create payload histogram: %w", err)
	}

	return b, nil
}

func stageAttributes(domain, operation, status string) metric.MeasurementOption {
	return metric.WithAttributes(
		attribute.String("domain", domain),
		attribute.String("operation", operation),
		attribute.String("status", status),
	)
}

func (b *businessMetrics) RecordOperation(ctx context.Context, domain, operation, status string) {
	b.operations.Add(ctx, 1, stageAttributes(domain, operation, status))
}

func (b *businessMetrics) RecordDuration(
	ctx context.Context,
	domain, operation string,
	duration time.Duration,
	status string,
) {
	b.durations.Record(ctx, duration.Seconds(), stageAttributes(domain, operation, status))
}

func (b *businessMetrics) RecordPayloadSize(ctx context.Context, topic, direction string, size int) {
	b.payloads.Record(ctx, int64(size), metric.WithAttributes(
		attribute.String("topic", topic),
		attribute.String("direction", direction),
	))
}

// NoOpBusinessMetrics discards every measurement. It is used when metrics are disabled.
type NoOpBusinessMetrics struct{}

// NewNoOpBusinessMetrics returns a BusinessMetrics that records nothing.
func NewNoOpBusinessMetrics() BusinessMetrics {
	return &NoOpBusinessMetrics{}
}

func (n *NoOpBusinessMetrics) RecordOperation(context.Context, string, string, string) {}

func (n *NoOpBusinessMetrics) RecordDuration(context.Context, string, string, time.Duration, string) {}

func (n *NoOpBusinessMetrics) RecordPayloadSize(context.Context, string, string, int) {}
