package server

import (
	"context"

	"go.uber.org/fx"

	infraMetrics "github.com/tigerroll/swell/internal/infrastructure/metrics"
)

// Module is an Fx module that provides the HTTP handlers, router and server,
// and ties the server to the application lifecycle.
var Module = fx.Options(
	fx.Provide(
		NewBatchHandler,
		NewConfigHandler,
		NewExecutionHandler,
		NewAnalyticsHandler,
		func(
			batches *BatchHandler,
			configs *ConfigHandler,
			executions *ExecutionHandler,
			analyticsHandler *AnalyticsHandler,
			recorder *infraMetrics.PrometheusRecorder,
		) RouterParams {
			return RouterParams{
				Batches:    batches,
				Configs:    configs,
				Executions: executions,
				Analytics:  analyticsHandler,
				Recorder:   recorder,
			}
		},
		NewRouter,
		NewServer,
	),
	fx.Invoke(func(lc fx.Lifecycle, server *Server) {
		lc.Append(fx.Hook{
			OnStart: func(ctx context.Context) error {
				server.Start()
				return nil
			},
			OnStop: func(ctx context.Context) error {
				return server.Stop(ctx)
			},
		})
	}),
)
