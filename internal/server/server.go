// Package server exposes the HTTP API: batch and configuration CRUD,
// execution control and progress, history, prompt tooling, dataset browsing
// and operational endpoints.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	config "github.com/tigerroll/swell/internal/core/config"
	repository "github.com/tigerroll/swell/internal/core/domain/repository"
	infraMetrics "github.com/tigerroll/swell/internal/infrastructure/metrics"
	"github.com/tigerroll/swell/internal/support/logger"
)

// Server wraps the HTTP server and its router.
type Server struct {
	httpServer *http.Server
}

// NewServer builds the HTTP server over the assembled router.
func NewServer(cfg *config.Config, router *gin.Engine) *Server {
	serverCfg := cfg.Swell.Server
	return &Server{
		httpServer: &http.Server{
			Addr:         serverCfg.Address,
			Handler:      router,
			ReadTimeout:  time.Duration(serverCfg.ReadTimeoutSeconds) * time.Second,
			WriteTimeout: time.Duration(serverCfg.WriteTimeoutSeconds) * time.Second,
		},
	}
}

// Start begins serving in a background goroutine.
func (s *Server) Start() {
	go func() {
		logger.Infof("HTTP server listening on %s", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Errorf("HTTP server error: %v", err)
		}
	}()
}

// Stop gracefully shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// RouterParams bundles the handlers the router mounts.
type RouterParams struct {
	Batches    *BatchHandler
	Configs    *ConfigHandler
	Executions *ExecutionHandler
	Analytics  *AnalyticsHandler
	Recorder   *infraMetrics.PrometheusRecorder
}

// NewRouter assembles the gin engine and mounts all routes.
func NewRouter(p RouterParams) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(p.Recorder.GetRegistry(), promhttp.HandlerOpts{})))

	api := router.Group("/api")
	{
		api.GET("/batches", p.Batches.List)
		api.POST("/batches", p.Batches.Create)
		api.GET("/batches/:id", p.Batches.Get)
		api.PUT("/batches/:id", p.Batches.Update)
		api.DELETE("/batches/:id", p.Batches.Delete)

		api.GET("/dataset-configs", p.Configs.ListDatasetConfigs)
		api.POST("/dataset-configs", p.Configs.CreateDatasetConfig)
		api.GET("/dataset-configs/:id", p.Configs.GetDatasetConfig)
		api.PUT("/dataset-configs/:id", p.Configs.UpdateDatasetConfig)
		api.DELETE("/dataset-configs/:id", p.Configs.DeleteDatasetConfig)

		api.GET("/batches/:id/prompt", p.Configs.GetPromptConfig)
		api.PUT("/batches/:id/prompt", p.Configs.SavePromptConfig)
		api.DELETE("/batches/:id/prompt", p.Configs.DeletePromptConfig)

		api.POST("/prompts/preview", p.Configs.PreviewPrompt)
		api.POST("/prompts/validate", p.Configs.ValidatePrompt)

		api.POST("/batches/:id/execute", p.Executions.Start)
		api.GET("/executions/:id/progress", p.Executions.Progress)
		api.GET("/executions/:id/csv", p.Executions.CSV)

		api.GET("/history", p.Executions.ListHistories)
		api.GET("/history/export", p.Executions.ExportHistories)
		api.GET("/history/:batchId", p.Executions.GetHistory)
		api.DELETE("/history/:batchId", p.Executions.DeleteHistory)

		api.GET("/datasets", p.Analytics.ListDatasets)
		api.GET("/datasets/:id/fields", p.Analytics.ListFields)
		api.POST("/llm/test", p.Analytics.TestLLMConnection)
		api.POST("/llm/generate-schema", p.Analytics.GenerateSchema)
	}

	return router
}

// notFound reports whether err maps to a missing resource.
func notFound(err error) bool {
	return errors.Is(err, repository.ErrBatchNotFound) ||
		errors.Is(err, repository.ErrDatasetConfigNotFound) ||
		errors.Is(err, repository.ErrPromptConfigNotFound) ||
		errors.Is(err, repository.ErrExecutionNotFound) ||
		errors.Is(err, repository.ErrHistoryNotFound)
}
