package metrics

import (
	"context"
	"time"

	model "github.com/tigerroll/swell/internal/core/domain/model"
)

// NoopRecorder is a MetricRecorder implementation that does nothing.
// It is used when metrics collection is disabled.
type NoopRecorder struct{}

// NewNoopRecorder creates a new NoopRecorder instance.
func NewNoopRecorder() MetricRecorder {
	return &NoopRecorder{}
}

func (r *NoopRecorder) RecordExecutionStart(ctx context.Context, execution *model.Execution) {}
func (r *NoopRecorder) RecordExecutionEnd(ctx context.Context, execution *model.Execution)   {}
func (r *NoopRecorder) RecordRecordProcessed(ctx context.Context, batchID string, outcome string) {
}
func (r *NoopRecorder) RecordGenerationDuration(ctx context.Context, provider string, duration time.Duration) {
}
func (r *NoopRecorder) RecordDuration(ctx context.Context, name string, duration time.Duration, tags map[string]string) {
}

// noopSpan is a Span that does nothing.
type noopSpan struct{}

func (s noopSpan) End() {}

// NoopTracer is a Tracer implementation that does nothing.
type NoopTracer struct{}

// NewNoopTracer creates a new NoopTracer instance.
func NewNoopTracer() Tracer {
	return &NoopTracer{}
}

// StartSpan returns the context unchanged and a span that does nothing.
func (t *NoopTracer) StartSpan(ctx context.Context, name string) (context.Context, Span) {
	return ctx, noopSpan{}
}

var _ MetricRecorder = (*NoopRecorder)(nil)
var _ Tracer = (*NoopTracer)(nil)
