package execution

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	adapterStorage "github.com/tigerroll/swell/internal/adapter/storage"
	config "github.com/tigerroll/swell/internal/core/config"
	model "github.com/tigerroll/swell/internal/core/domain/model"
	repository "github.com/tigerroll/swell/internal/core/domain/repository"
	metrics "github.com/tigerroll/swell/internal/core/metrics"
	"github.com/tigerroll/swell/internal/export"
	"github.com/tigerroll/swell/internal/integration/analytics"
	"github.com/tigerroll/swell/internal/integration/llm"
	"github.com/tigerroll/swell/internal/jsonutil"
	"github.com/tigerroll/swell/internal/prompt"
	"github.com/tigerroll/swell/internal/support/exception"
	"github.com/tigerroll/swell/internal/support/logger"
)

const moduleName = "execution"

// ErrCSVNotReady is returned when a CSV is requested for an execution that
// has not finished successfully.
var ErrCSVNotReady = errors.New("execution has not produced a CSV yet")

// commonIDFields are candidate identifier fields added to every record query
// so a usable record ID is available even when none is configured.
var commonIDFields = []string{"Name", "Title", "Id", "RecordId", "ClaimNumber"}

// schemaInstruction is appended to prompts when a response schema is
// configured.
const schemaInstruction = "\n\nPlease respond ONLY with valid JSON matching this exact schema:\n%s\n\nDo not include any explanatory text, only the JSON object."

// Orchestrator drives batch runs: it pulls records, renders prompts, calls
// the generation backend, collects results into a CSV, persists history and
// uploads artifacts.
type Orchestrator struct {
	batches        repository.BatchRepository
	datasetConfigs repository.DatasetConfigRepository
	prompts        repository.PromptRepository
	histories      repository.HistoryRepository

	tracker   *Tracker
	analytics analytics.Client
	generator llm.Generator
	engine    *prompt.Engine
	storage   adapterStorage.Resolver
	recorder  metrics.MetricRecorder
	tracer    metrics.Tracer
	cfg       *config.Config
}

// OrchestratorParams bundles the orchestrator's dependencies.
type OrchestratorParams struct {
	Batches        repository.BatchRepository
	DatasetConfigs repository.DatasetConfigRepository
	Prompts        repository.PromptRepository
	Histories      repository.HistoryRepository
	Tracker        *Tracker
	Analytics      analytics.Client
	Generator      llm.Generator
	Engine         *prompt.Engine
	Storage        adapterStorage.Resolver
	Recorder       metrics.MetricRecorder
	Tracer         metrics.Tracer
	Config         *config.Config
}

// NewOrchestrator creates an Orchestrator.
func NewOrchestrator(p OrchestratorParams) *Orchestrator {
	return &Orchestrator{
		batches:        p.Batches,
		datasetConfigs: p.DatasetConfigs,
		prompts:        p.Prompts,
		histories:      p.Histories,
		tracker:        p.Tracker,
		analytics:      p.Analytics,
		generator:      p.Generator,
		engine:         p.Engine,
		storage:        p.Storage,
		recorder:       p.Recorder,
		tracer:         p.Tracer,
		cfg:            p.Config,
	}
}

// Start registers a new execution for the batch and launches the run in a
// background goroutine. An optional list of record IDs restricts the run to
// a subset of the dataset. It returns the execution ID immediately.
func (o *Orchestrator) Start(ctx context.Context, batchID string, recordIDs ...string) (string, error) {
	if _, err := o.batches.FindBatchByID(ctx, batchID); err != nil {
		return "", err
	}

	execution := model.NewExecution(batchID)
	o.tracker.Register(ctx, execution)
	o.recorder.RecordExecutionStart(ctx, execution)

	go o.run(context.Background(), execution, recordIDs)

	logger.Infof("Started execution %s for batch %s.", execution.ID, batchID)
	return execution.ID, nil
}

// Progress returns a copy of the execution's current state.
func (o *Orchestrator) Progress(ctx context.Context, executionID string) (*model.Execution, error) {
	return o.tracker.Get(ctx, executionID)
}

// CSV returns the CSV produced by a completed, successful execution.
func (o *Orchestrator) CSV(ctx context.Context, executionID string) (string, error) {
	execution, err := o.tracker.Get(ctx, executionID)
	if err != nil {
		return "", err
	}
	if !execution.Complete || !execution.Success {
		return "", ErrCSVNotReady
	}
	history, err := o.histories.FindHistoryByBatchID(ctx, execution.BatchID)
	if err != nil {
		return "", err
	}
	return history.CSVData, nil
}

// History returns the last-run history of a batch.
func (o *Orchestrator) History(ctx context.Context, batchID string) (*model.ExecutionHistory, error) {
	return o.histories.FindHistoryByBatchID(ctx, batchID)
}

// Histories returns the last-run history of every batch.
func (o *Orchestrator) Histories(ctx context.Context) ([]*model.ExecutionHistory, error) {
	return o.histories.ListHistories(ctx)
}

// DeleteHistory removes the last-run history of a batch.
func (o *Orchestrator) DeleteHistory(ctx context.Context, batchID string) error {
	return o.histories.DeleteHistory(ctx, batchID)
}

// run executes the batch end to end. It owns the execution's lifecycle: any
// error or panic marks the execution failed; nothing here returns an error
// to a caller.
func (o *Orchestrator) run(ctx context.Context, execution *model.Execution, recordIDs []string) {
	started := time.Now()
	ctx, span := o.tracer.StartSpan(ctx, "batch.run")
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("Execution %s panicked: %v", execution.ID, r)
			o.fail(ctx, execution, fmt.Errorf("panic: %v", r))
		}
	}()

	// 1. Load batch, prompt and dataset configuration.
	if err := execution.TransitionTo(model.PhaseLoadingConfig, "Initializing..."); err != nil {
		o.fail(ctx, execution, err)
		return
	}
	o.tracker.Update(ctx, execution, false)

	batch, err := o.batches.FindBatchByID(ctx, execution.BatchID)
	if err != nil {
		o.fail(ctx, execution, err)
		return
	}
	promptConfig, err := o.prompts.FindPromptConfigByBatchID(ctx, execution.BatchID)
	if err != nil {
		o.fail(ctx, execution, exception.NewBatchError(moduleName, fmt.Sprintf("no prompt configuration for batch %s", execution.BatchID), err, false, false))
		return
	}
	datasetConfig, err := o.datasetConfigs.FindDatasetConfigByID(ctx, batch.DatasetConfigID)
	if err != nil {
		o.fail(ctx, execution, exception.NewBatchError(moduleName, fmt.Sprintf("no dataset configuration for batch %s", execution.BatchID), err, false, false))
		return
	}

	// 2. Pull records.
	if err := execution.TransitionTo(model.PhaseLoadingRecords, "Loading dataset records..."); err != nil {
		o.fail(ctx, execution, err)
		return
	}
	o.tracker.Update(ctx, execution, true)

	records, err := o.loadRecords(ctx, datasetConfig, promptConfig, recordIDs)
	if err != nil {
		o.fail(ctx, execution, err)
		return
	}
	if len(records) == 0 {
		// An empty pull still completes with a header-only CSV.
		logger.Warnf("No records found in dataset %s for batch %s.", datasetConfig.DatasetName, batch.ID)
	}

	// 3. Process records.
	total := len(records)
	execution.Total = total
	if err := execution.TransitionTo(model.PhaseProcessing, fmt.Sprintf("Processing %d records...", total)); err != nil {
		o.fail(ctx, execution, err)
		return
	}
	o.tracker.Update(ctx, execution, true)

	results := o.processRecords(ctx, execution, promptConfig, datasetConfig, records)

	// 4. Generate the CSV.
	if err := execution.TransitionTo(model.PhaseGeneratingCSV, "Generating CSV..."); err != nil {
		o.fail(ctx, execution, err)
		return
	}
	o.tracker.Update(ctx, execution, false)

	csvData, err := export.BuildCSV(results, datasetConfig.RecordIDField)
	if err != nil {
		o.fail(ctx, execution, err)
		return
	}

	// 5. Persist history (last write wins).
	if err := execution.TransitionTo(model.PhaseSavingHistory, "Saving to history..."); err != nil {
		o.fail(ctx, execution, err)
		return
	}
	o.tracker.Update(ctx, execution, false)

	history := &model.ExecutionHistory{
		BatchID:       batch.ID,
		BatchName:     batch.Name,
		DatasetName:   datasetConfig.DatasetName,
		TotalRecords:  total,
		SuccessCount:  execution.SuccessCount,
		ErrorCount:    execution.ErrorCount,
		ExecutionTime: time.Since(started).Seconds(),
		CSVData:       csvData,
		ExecutedAt:    time.Now(),
	}
	if err := o.histories.ReplaceHistory(ctx, history); err != nil {
		o.fail(ctx, execution, err)
		return
	}

	// 6. Best-effort upload.
	if o.cfg.Swell.Upload.Enabled {
		if err := execution.TransitionTo(model.PhaseUploading, "Uploading results..."); err != nil {
			o.fail(ctx, execution, err)
			return
		}
		o.tracker.Update(ctx, execution, false)
		o.upload(ctx, execution, batch, csvData, results)
	}

	execution.MarkAsCompleted()
	o.tracker.Finish(ctx, execution)
	o.recorder.RecordExecutionEnd(ctx, execution)
	logger.Infof("Execution %s completed: %d records, %d succeeded, %d failed.",
		execution.ID, total, execution.SuccessCount, execution.ErrorCount)
}

// loadRecords queries the dataset for the resolved field list, passing the
// saved filter fragment through and applying the row ceiling. An explicit
// record ID subset is applied after the pull.
func (o *Orchestrator) loadRecords(ctx context.Context, datasetConfig *model.DatasetConfig, promptConfig *model.PromptConfig, recordIDs []string) ([]map[string]interface{}, error) {
	fields := o.resolveQueryFields(ctx, datasetConfig, promptConfig)

	maxRecords := o.cfg.Swell.Execution.MaxRecords
	if maxRecords <= 0 {
		maxRecords = 10000
	}

	records, err := o.analytics.Query(ctx, datasetConfig.DatasetID, fields, maxRecords, datasetConfig.Filter, nil)
	if err != nil {
		return nil, err
	}

	if len(recordIDs) > 0 {
		wanted := make(map[string]struct{}, len(recordIDs))
		for _, id := range recordIDs {
			wanted[id] = struct{}{}
		}
		filtered := records[:0]
		for i, record := range records {
			id := resolveRecordID(record, datasetConfig.RecordIDField, i)
			if _, ok := wanted[id]; ok {
				filtered = append(filtered, record)
			}
		}
		records = filtered
	}

	return records, nil
}

// resolveQueryFields derives the record query's field list: the prompt
// template's placeholders restricted to fields the dataset actually has, then
// the configured selection, the configured record ID field and the common
// identifier candidates, deduplicated in that order.
func (o *Orchestrator) resolveQueryFields(ctx context.Context, datasetConfig *model.DatasetConfig, promptConfig *model.PromptConfig) []string {
	available := make(map[string]struct{})
	datasetFields, err := o.analytics.ListFields(ctx, datasetConfig.DatasetID)
	if err != nil {
		logger.Warnf("Could not list fields for dataset %s, using template fields unchecked: %v", datasetConfig.DatasetID, err)
	}
	for _, f := range datasetFields {
		available[f.Name] = struct{}{}
	}

	var fields []string
	seen := make(map[string]struct{})
	add := func(name string) {
		if name == "" {
			return
		}
		if _, ok := seen[name]; ok {
			return
		}
		seen[name] = struct{}{}
		fields = append(fields, name)
	}

	for _, name := range o.engine.Variables(promptConfig.Template) {
		if len(available) > 0 {
			if _, ok := available[name]; !ok {
				continue
			}
		}
		add(name)
	}
	for _, f := range datasetConfig.SelectedFields {
		add(f)
	}
	add(datasetConfig.RecordIDField)
	for _, f := range commonIDFields {
		add(f)
	}
	return fields
}

// processRecords renders and sends one prompt per record, collecting results
// and updating counters as it goes.
func (o *Orchestrator) processRecords(ctx context.Context, execution *model.Execution, promptConfig *model.PromptConfig, datasetConfig *model.DatasetConfig, records []map[string]interface{}) []model.ResultRow {
	template := promptConfig.Template
	if promptConfig.ResponseSchema != "" {
		template += fmt.Sprintf(schemaInstruction, promptConfig.ResponseSchema)
	}

	opts := llm.Options{
		Provider:    promptConfig.Provider,
		Endpoint:    promptConfig.Endpoint,
		Model:       promptConfig.Model,
		Temperature: promptConfig.Temperature,
		MaxTokens:   promptConfig.MaxTokens,
		Timeout:     time.Duration(promptConfig.TimeoutSeconds) * time.Second,
	}

	total := len(records)
	results := make([]model.ResultRow, 0, total)
	for i, record := range records {
		recordID := resolveRecordID(record, datasetConfig.RecordIDField, i)

		rendered := o.engine.Render(template, record)

		generationStart := time.Now()
		raw, err := o.generator.Generate(ctx, rendered, opts)
		o.recorder.RecordGenerationDuration(ctx, opts.Provider, time.Since(generationStart))

		if err != nil {
			logger.Warnf("Generation failed for record %s: %v", recordID, err)
			execution.ErrorCount++
			o.recorder.RecordRecordProcessed(ctx, execution.BatchID, "error")
			results = append(results, model.ResultRow{
				RecordID: recordID,
				Error:    exception.ExtractErrorMessage(err),
			})
		} else if parsed, ok := parseResponse(raw); ok {
			execution.SuccessCount++
			o.recorder.RecordRecordProcessed(ctx, execution.BatchID, "success")
			results = append(results, model.ResultRow{
				RecordID: recordID,
				Response: parsed,
			})
		} else {
			// A response without a recoverable JSON object is an error, but
			// the full raw text is preserved in the output.
			logger.Warnf("Could not parse a JSON object from the response for record %s.", recordID)
			execution.ErrorCount++
			o.recorder.RecordRecordProcessed(ctx, execution.BatchID, "error")
			results = append(results, model.ResultRow{
				RecordID: recordID,
				Response: map[string]interface{}{"raw_response": raw},
			})
		}

		execution.Current = i + 1
		status := fmt.Sprintf("Processing record %d of %d", execution.Current, total)
		if err := execution.TransitionTo(model.PhaseProcessing, status); err != nil {
			logger.Warnf("Failed to update processing status: %v", err)
		}
		o.tracker.Update(ctx, execution, execution.Current%o.tracker.MirrorInterval() == 0)
	}

	return results
}

// upload pushes the CSV (and an optional parquet archive) to the configured
// storage backend. Upload failures are logged and never fail the run.
func (o *Orchestrator) upload(ctx context.Context, execution *model.Execution, batch *model.Batch, csvData string, results []model.ResultRow) {
	uploadCfg := o.cfg.Swell.Upload

	conn, err := o.storage.Resolve(ctx, uploadCfg.StorageRef)
	if err != nil {
		logger.Warnf("Skipping result upload for execution %s: %v", execution.ID, err)
		return
	}

	shortID := execution.ID
	if len(shortID) > 8 {
		shortID = shortID[:8]
	}
	baseName := fmt.Sprintf("batch_%s_%s", batch.Name, shortID)
	if uploadCfg.Prefix != "" {
		baseName = strings.TrimRight(uploadCfg.Prefix, "/") + "/" + baseName
	}

	if err := conn.Upload(ctx, uploadCfg.Bucket, baseName+".csv", strings.NewReader(csvData), "text/csv"); err != nil {
		logger.Warnf("Failed to upload CSV for execution %s: %v", execution.ID, err)
	} else {
		logger.Infof("Uploaded %s.csv to storage '%s'.", baseName, conn.Name())
	}

	if uploadCfg.ParquetArchive {
		data, err := export.BuildParquet(results)
		if err != nil {
			logger.Warnf("Failed to build parquet archive for execution %s: %v", execution.ID, err)
			return
		}
		if err := conn.Upload(ctx, uploadCfg.Bucket, baseName+".parquet", strings.NewReader(string(data)), "application/octet-stream"); err != nil {
			logger.Warnf("Failed to upload parquet archive for execution %s: %v", execution.ID, err)
		}
	}
}

// fail marks the execution failed and records its terminal state.
func (o *Orchestrator) fail(ctx context.Context, execution *model.Execution, err error) {
	message := exception.ExtractErrorMessage(err)
	logger.Errorf("Execution %s failed: %s", execution.ID, message)
	execution.MarkAsFailed(message)
	o.tracker.Finish(ctx, execution)
	o.recorder.RecordExecutionEnd(ctx, execution)
}

// parseResponse extracts and parses the JSON object from a raw generation
// response. ok is false when no JSON object could be recovered.
func parseResponse(raw string) (map[string]interface{}, bool) {
	extracted := jsonutil.Extract(raw)

	var parsed map[string]interface{}
	if err := json.Unmarshal([]byte(extracted), &parsed); err != nil {
		return nil, false
	}
	return parsed, true
}

// resolveRecordID picks the record's identifier: the configured field first,
// then common identifier fields, then a positional fallback.
func resolveRecordID(record map[string]interface{}, recordIDField string, index int) string {
	candidates := []string{recordIDField, "Id", "id", "Name", "name"}
	for _, field := range candidates {
		if field == "" {
			continue
		}
		if value, ok := record[field]; ok && value != nil {
			if s := fmt.Sprintf("%v", value); s != "" {
				return s
			}
		}
	}
	return fmt.Sprintf("Record_%d", index+1)
}
