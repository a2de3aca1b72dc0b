package metrics

import (
	"context"
	"time"

	model "github.com/tigerroll/swell/internal/core/domain/model"
)

// Span represents a single operation or unit of work in distributed tracing.
type Span interface {
	// End sets the end time of the current span and finishes the span.
	End()
}

// Tracer starts spans around batch execution phases.
// Implementations integrate with tracing backends (e.g., OpenTelemetry).
type Tracer interface {
	// StartSpan starts a span with the given name and returns a derived
	// context carrying the span.
	StartSpan(ctx context.Context, name string) (context.Context, Span)
}

// MetricRecorder is an abstract interface for recording metrics related to
// batch execution. It provides a standardized way to record execution-level
// and record-level events, facilitating integration with different metrics
// backends (e.g., Prometheus, OpenTelemetry Metrics).
type MetricRecorder interface {
	// RecordExecutionStart records the start of an Execution.
	RecordExecutionStart(ctx context.Context, execution *model.Execution)

	// RecordExecutionEnd records the end of an Execution.
	RecordExecutionEnd(ctx context.Context, execution *model.Execution)

	// RecordRecordProcessed records the outcome of a single record's
	// generation call. outcome is "success" or "error".
	RecordRecordProcessed(ctx context.Context, batchID string, outcome string)

	// RecordGenerationDuration records the latency of a single generation call.
	RecordGenerationDuration(ctx context.Context, provider string, duration time.Duration)

	// RecordDuration records the execution time of a named operation.
	RecordDuration(ctx context.Context, name string, duration time.Duration, tags map[string]string)
}
