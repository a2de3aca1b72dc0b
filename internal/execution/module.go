package execution

import (
	"go.uber.org/fx"

	adapterStorage "github.com/tigerroll/swell/internal/adapter/storage"
	config "github.com/tigerroll/swell/internal/core/config"
	repository "github.com/tigerroll/swell/internal/core/domain/repository"
	metrics "github.com/tigerroll/swell/internal/core/metrics"
	"github.com/tigerroll/swell/internal/integration/analytics"
	"github.com/tigerroll/swell/internal/integration/llm"
	"github.com/tigerroll/swell/internal/prompt"
)

// Module is an Fx module that provides the execution tracker and the batch
// orchestrator.
var Module = fx.Options(
	fx.Provide(
		NewTracker,
		prompt.NewEngine,
		func(
			batches repository.BatchRepository,
			datasetConfigs repository.DatasetConfigRepository,
			prompts repository.PromptRepository,
			histories repository.HistoryRepository,
			tracker *Tracker,
			client analytics.Client,
			generator llm.Generator,
			engine *prompt.Engine,
			resolver adapterStorage.Resolver,
			recorder metrics.MetricRecorder,
			tracer metrics.Tracer,
			cfg *config.Config,
		) *Orchestrator {
			return NewOrchestrator(OrchestratorParams{
				Batches:        batches,
				DatasetConfigs: datasetConfigs,
				Prompts:        prompts,
				Histories:      histories,
				Tracker:        tracker,
				Analytics:      client,
				Generator:      generator,
				Engine:         engine,
				Storage:        resolver,
				Recorder:       recorder,
				Tracer:         tracer,
				Config:         cfg,
			})
		},
	),
)
