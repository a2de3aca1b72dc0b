package metrics

import (
	"context"

	"go.uber.org/fx"

	coreMetrics "github.com/tigerroll/swell/internal/core/metrics"
	logger "github.com/tigerroll/swell/internal/support/logger"
)

// Module is an Fx module that provides the Prometheus recorder and the
// OpenTelemetry tracer as the application's metric backends.
var Module = fx.Options(
	fx.Provide(
		NewPrometheusRecorder,
		func(r *PrometheusRecorder) coreMetrics.MetricRecorder { return r },
	),
	fx.Provide(
		func(lc fx.Lifecycle) (coreMetrics.Tracer, error) {
			tracer, err := NewOtelTracer(context.Background())
			if err != nil {
				// Tracing is optional; fall back to the no-op tracer when the
				// exporter cannot be initialized.
				logger.Warnf("OTLP tracer unavailable, tracing disabled: %v", err)
				return coreMetrics.NewNoopTracer(), nil
			}
			lc.Append(fx.Hook{
				OnStop: func(ctx context.Context) error {
					return tracer.Shutdown(ctx)
				},
			})
			return tracer, nil
		},
	),
)
