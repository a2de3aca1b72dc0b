package metrics

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"

	metrics "github.com/tigerroll/swell/internal/core/metrics"
	logger "github.com/tigerroll/swell/internal/support/logger"
)

// OtelTracer is an OpenTelemetry implementation of the metrics.Tracer interface.
// Spans are exported over OTLP/HTTP; the endpoint is taken from the standard
// OTEL_EXPORTER_OTLP_* environment variables.
type OtelTracer struct {
	provider *sdktrace.TracerProvider
	tracer   trace.Tracer
}

// NewOtelTracer creates a new OtelTracer with an OTLP/HTTP exporter.
func NewOtelTracer(ctx context.Context) (*OtelTracer, error) {
	exporter, err := otlptracehttp.New(ctx)
	if err != nil {
		return nil, err
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
	)
	otel.SetTracerProvider(provider)

	return &OtelTracer{
		provider: provider,
		tracer:   provider.Tracer("swell"),
	}, nil
}

// otelSpan wraps an OpenTelemetry span behind the metrics.Span interface.
type otelSpan struct {
	span trace.Span
}

func (s otelSpan) End() {
	s.span.End()
}

// StartSpan starts a span with the given name.
func (t *OtelTracer) StartSpan(ctx context.Context, name string) (context.Context, metrics.Span) {
	ctx, span := t.tracer.Start(ctx, name)
	return ctx, otelSpan{span: span}
}

// Shutdown flushes and stops the tracer provider.
func (t *OtelTracer) Shutdown(ctx context.Context) error {
	if err := t.provider.Shutdown(ctx); err != nil {
		logger.Warnf("Failed to shut down tracer provider: %v", err)
		return err
	}
	return nil
}

var _ metrics.Tracer = (*OtelTracer)(nil)
