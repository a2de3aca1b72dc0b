// Package app assembles the application with uber-fx: configuration,
// persistence, integrations, execution and the HTTP server.
package app

import (
	"context"

	"go.uber.org/fx"

	"github.com/tigerroll/swell/internal/adapter/database"
	storageBackends "github.com/tigerroll/swell/internal/adapter/storage/backends"
	config "github.com/tigerroll/swell/internal/core/config"
	"github.com/tigerroll/swell/internal/execution"
	infraMetrics "github.com/tigerroll/swell/internal/infrastructure/metrics"
	"github.com/tigerroll/swell/internal/infrastructure/repository/gormstore"
	"github.com/tigerroll/swell/internal/integration/analytics"
	"github.com/tigerroll/swell/internal/integration/llm"
	"github.com/tigerroll/swell/internal/server"
	"github.com/tigerroll/swell/internal/support/logger"
)

// RunApplication sets up and runs the service using uber-fx. It blocks until
// the application context is cancelled or the fx app is shut down.
func RunApplication(appCtx context.Context, envFilePath string, embeddedConfig config.EmbeddedConfig) {
	application := fx.New(
		fx.Supply(
			embeddedConfig,
			fx.Annotate(envFilePath, fx.ResultTags(`name:"envFilePath"`)),
		),

		logger.Module,
		config.Module,
		infraMetrics.Module,

		database.Module,
		gormstore.Module,
		storageBackends.Module,

		analytics.Module,
		llm.Module,

		execution.Module,
		server.Module,

		fx.Invoke(func(lc fx.Lifecycle, shutdowner fx.Shutdowner) {
			// Shut the fx app down when the application context is cancelled
			// (signal handling lives in main).
			go func() {
				<-appCtx.Done()
				if err := shutdowner.Shutdown(); err != nil {
					logger.Errorf("Failed to shutdown application: %v", err)
				}
			}()
		}),
	)

	application.Run()

	if application.Err() != nil {
		logger.Fatalf("Application run failed: %v", application.Err())
	}
}
