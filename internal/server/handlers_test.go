package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	adapterStorage "github.com/tigerroll/swell/internal/adapter/storage"
	config "github.com/tigerroll/swell/internal/core/config"
	model "github.com/tigerroll/swell/internal/core/domain/model"
	repository "github.com/tigerroll/swell/internal/core/domain/repository"
	metrics "github.com/tigerroll/swell/internal/core/metrics"
	"github.com/tigerroll/swell/internal/execution"
	"github.com/tigerroll/swell/internal/integration/llm"
	"github.com/tigerroll/swell/internal/prompt"
)

// memoryStore is an in-memory implementation of every repository interface,
// used to exercise the handlers without a database.
type memoryStore struct {
	batches        map[string]*model.Batch
	datasetConfigs map[string]*model.DatasetConfig
	prompts        map[string]*model.PromptConfig
	executions     map[string]*model.Execution
	histories      map[string]*model.ExecutionHistory
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		batches:        make(map[string]*model.Batch),
		datasetConfigs: make(map[string]*model.DatasetConfig),
		prompts:        make(map[string]*model.PromptConfig),
		executions:     make(map[string]*model.Execution),
		histories:      make(map[string]*model.ExecutionHistory),
	}
}

func (s *memoryStore) SaveBatch(ctx context.Context, b *model.Batch) error {
	s.batches[b.ID] = b
	return nil
}

func (s *memoryStore) UpdateBatch(ctx context.Context, b *model.Batch) error {
	if _, ok := s.batches[b.ID]; !ok {
		return repository.ErrBatchNotFound
	}
	s.batches[b.ID] = b
	return nil
}

func (s *memoryStore) FindBatchByID(ctx context.Context, id string) (*model.Batch, error) {
	if b, ok := s.batches[id]; ok {
		return b, nil
	}
	return nil, repository.ErrBatchNotFound
}

func (s *memoryStore) ListBatches(ctx context.Context) ([]*model.Batch, error) {
	out := make([]*model.Batch, 0, len(s.batches))
	for _, b := range s.batches {
		out = append(out, b)
	}
	return out, nil
}

func (s *memoryStore) DeleteBatch(ctx context.Context, id string) error {
	if _, ok := s.batches[id]; !ok {
		return repository.ErrBatchNotFound
	}
	delete(s.batches, id)
	return nil
}

func (s *memoryStore) SaveDatasetConfig(ctx context.Context, c *model.DatasetConfig) error {
	s.datasetConfigs[c.ID] = c
	return nil
}

func (s *memoryStore) UpdateDatasetConfig(ctx context.Context, c *model.DatasetConfig) error {
	if _, ok := s.datasetConfigs[c.ID]; !ok {
		return repository.ErrDatasetConfigNotFound
	}
	s.datasetConfigs[c.ID] = c
	return nil
}

func (s *memoryStore) FindDatasetConfigByID(ctx context.Context, id string) (*model.DatasetConfig, error) {
	if c, ok := s.datasetConfigs[id]; ok {
		return c, nil
	}
	return nil, repository.ErrDatasetConfigNotFound
}

func (s *memoryStore) ListDatasetConfigs(ctx context.Context) ([]*model.DatasetConfig, error) {
	out := make([]*model.DatasetConfig, 0, len(s.datasetConfigs))
	for _, c := range s.datasetConfigs {
		out = append(out, c)
	}
	return out, nil
}

func (s *memoryStore) DeleteDatasetConfig(ctx context.Context, id string) error {
	if _, ok := s.datasetConfigs[id]; !ok {
		return repository.ErrDatasetConfigNotFound
	}
	delete(s.datasetConfigs, id)
	return nil
}

func (s *memoryStore) SavePromptConfig(ctx context.Context, c *model.PromptConfig) error {
	s.prompts[c.BatchID] = c
	return nil
}

func (s *memoryStore) FindPromptConfigByBatchID(ctx context.Context, batchID string) (*model.PromptConfig, error) {
	if c, ok := s.prompts[batchID]; ok {
		return c, nil
	}
	return nil, repository.ErrPromptConfigNotFound
}

func (s *memoryStore) DeletePromptConfig(ctx context.Context, batchID string) error {
	if _, ok := s.prompts[batchID]; !ok {
		return repository.ErrPromptConfigNotFound
	}
	delete(s.prompts, batchID)
	return nil
}

func (s *memoryStore) SaveExecution(ctx context.Context, e *model.Execution) error {
	s.executions[e.ID] = e.Clone()
	return nil
}

func (s *memoryStore) FindExecutionByID(ctx context.Context, id string) (*model.Execution, error) {
	if e, ok := s.executions[id]; ok {
		return e.Clone(), nil
	}
	return nil, repository.ErrExecutionNotFound
}

func (s *memoryStore) FindLatestExecutionByBatchID(ctx context.Context, batchID string) (*model.Execution, error) {
	for _, e := range s.executions {
		if e.BatchID == batchID {
			return e.Clone(), nil
		}
	}
	return nil, repository.ErrExecutionNotFound
}

func (s *memoryStore) DeleteExecution(ctx context.Context, id string) error {
	delete(s.executions, id)
	return nil
}

func (s *memoryStore) ReplaceHistory(ctx context.Context, h *model.ExecutionHistory) error {
	s.histories[h.BatchID] = h
	return nil
}

func (s *memoryStore) FindHistoryByBatchID(ctx context.Context, batchID string) (*model.ExecutionHistory, error) {
	if h, ok := s.histories[batchID]; ok {
		return h, nil
	}
	return nil, repository.ErrHistoryNotFound
}

func (s *memoryStore) ListHistories(ctx context.Context) ([]*model.ExecutionHistory, error) {
	out := make([]*model.ExecutionHistory, 0, len(s.histories))
	for _, h := range s.histories {
		out = append(out, h)
	}
	return out, nil
}

func (s *memoryStore) DeleteHistory(ctx context.Context, batchID string) error {
	if _, ok := s.histories[batchID]; !ok {
		return repository.ErrHistoryNotFound
	}
	delete(s.histories, batchID)
	return nil
}

type stubAnalytics struct {
	fields  []*model.DatasetField
	records []map[string]interface{}
}

func (c *stubAnalytics) ListDatasets(ctx context.Context) ([]*model.Dataset, error) {
	return []*model.Dataset{{ID: "0Fb01", Name: "Claims_DS"}}, nil
}

func (c *stubAnalytics) ListFields(ctx context.Context, datasetID string) ([]*model.DatasetField, error) {
	return c.fields, nil
}

func (c *stubAnalytics) Query(ctx context.Context, datasetID string, fields []string, limit int, savedFilter string, filters map[string]string) ([]map[string]interface{}, error) {
	return c.records, nil
}

type stubGenerator struct {
	response string
	testErr  error
}

func (g *stubGenerator) Generate(ctx context.Context, prompt string, opts llm.Options) (string, error) {
	return g.response, nil
}

func (g *stubGenerator) TestConnection(ctx context.Context, opts llm.Options) error {
	return g.testErr
}

type nilResolver struct{}

func (nilResolver) Resolve(ctx context.Context, name string) (adapterStorage.Connection, error) {
	return nil, errors.New("no storage configured")
}

func (nilResolver) CloseAll() error { return nil }

type testEnv struct {
	router    *gin.Engine
	store     *memoryStore
	generator *stubGenerator
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := newMemoryStore()
	cfg := config.NewConfig()
	engine := prompt.NewEngine()
	analyticsClient := &stubAnalytics{
		fields: []*model.DatasetField{
			{Name: "Name", Label: "Name", Type: "dimension", DataType: "Text"},
		},
		records: []map[string]interface{}{{"Id": "A", "Name": "one"}},
	}
	generator := &stubGenerator{response: `{"risk": "low"}`}

	orchestrator := execution.NewOrchestrator(execution.OrchestratorParams{
		Batches:        store,
		DatasetConfigs: store,
		Prompts:        store,
		Histories:      store,
		Tracker:        execution.NewTracker(cfg, store),
		Analytics:      analyticsClient,
		Generator:      generator,
		Engine:         engine,
		Storage:        nilResolver{},
		Recorder:       metrics.NewNoopRecorder(),
		Tracer:         metrics.NewNoopTracer(),
		Config:         cfg,
	})

	router := gin.New()
	api := router.Group("/api")

	batches := NewBatchHandler(store, store, store)
	configs := NewConfigHandler(store, store, analyticsClient, engine)
	executions := NewExecutionHandler(orchestrator)
	analyticsHandler := NewAnalyticsHandler(analyticsClient, generator, llm.NewSchemaGenerator(generator))

	api.GET("/batches", batches.List)
	api.POST("/batches", batches.Create)
	api.GET("/batches/:id", batches.Get)
	api.PUT("/batches/:id", batches.Update)
	api.DELETE("/batches/:id", batches.Delete)
	api.GET("/batches/:id/prompt", configs.GetPromptConfig)
	api.PUT("/batches/:id/prompt", configs.SavePromptConfig)
	api.POST("/prompts/preview", configs.PreviewPrompt)
	api.POST("/prompts/validate", configs.ValidatePrompt)
	api.POST("/batches/:id/execute", executions.Start)
	api.GET("/executions/:id/progress", executions.Progress)
	api.GET("/executions/:id/csv", executions.CSV)
	api.GET("/history/:batchId", executions.GetHistory)
	api.GET("/datasets", analyticsHandler.ListDatasets)
	api.POST("/llm/test", analyticsHandler.TestLLMConnection)
	api.POST("/llm/generate-schema", analyticsHandler.GenerateSchema)

	return &testEnv{router: router, store: store, generator: generator}
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) seedDatasetConfig() *model.DatasetConfig {
	cfg := &model.DatasetConfig{
		ID:            "dc1",
		Name:          "claims-source",
		DatasetID:     "0Fb01",
		DatasetName:   "Claims_DS",
		RecordIDField: "Id",
	}
	e.store.datasetConfigs[cfg.ID] = cfg
	return cfg
}

func TestCreateAndGetBatch(t *testing.T) {
	env := newTestEnv(t)
	env.seedDatasetConfig()

	w := env.do(t, http.MethodPost, "/api/batches", gin.H{
		"name":              "claims",
		"dataset_config_id": "dc1",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var created batchResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "Claims_DS", created.DatasetName)

	w = env.do(t, http.MethodGet, "/api/batches/"+created.ID, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCreateBatchUnknownDatasetConfig(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/batches", gin.H{
		"name":              "claims",
		"dataset_config_id": "missing",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetBatchNotFound(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/api/batches/nope", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPromptConfigLifecycle(t *testing.T) {
	env := newTestEnv(t)
	env.seedDatasetConfig()
	env.store.batches["b1"] = &model.Batch{ID: "b1", Name: "claims", DatasetConfigID: "dc1"}

	w := env.do(t, http.MethodPut, "/api/batches/b1/prompt", gin.H{
		"template": "Analyze {{Name}}",
	})
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodGet, "/api/batches/b1/prompt", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodGet, "/api/batches/b2/prompt", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPromptPreviewEndpoint(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/prompts/preview", gin.H{
		"template": "Hello {{Name}}",
		"record":   gin.H{"Name": "ACME"},
	})
	require.Equal(t, http.StatusOK, w.Code)

	var preview prompt.Preview
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &preview))
	assert.Equal(t, "Hello ACME", preview.CompletedPrompt)
}

func TestPromptValidateAgainstDataset(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/prompts/validate", gin.H{
		"template":   "{{Name}} {{Missing}}",
		"dataset_id": "0Fb01",
	})
	require.Equal(t, http.StatusOK, w.Code)

	var v prompt.Validation
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v))
	assert.False(t, v.Valid)
	assert.Equal(t, []string{"Missing"}, v.MissingFields)
}

func TestExecutionLifecycleOverHTTP(t *testing.T) {
	env := newTestEnv(t)
	env.seedDatasetConfig()
	env.store.batches["b1"] = &model.Batch{ID: "b1", Name: "claims", DatasetConfigID: "dc1"}
	env.store.prompts["b1"] = &model.PromptConfig{BatchID: "b1", Template: "Analyze {{Name}}"}

	w := env.do(t, http.MethodPost, "/api/batches/b1/execute", nil)
	require.Equal(t, http.StatusAccepted, w.Code)

	var started struct {
		ExecutionID string `json:"execution_id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &started))
	require.NotEmpty(t, started.ExecutionID)

	require.Eventually(t, func() bool {
		w := env.do(t, http.MethodGet, "/api/executions/"+started.ExecutionID+"/progress", nil)
		if w.Code != http.StatusOK {
			return false
		}
		var progress progressResponse
		if err := json.Unmarshal(w.Body.Bytes(), &progress); err != nil {
			return false
		}
		return progress.Complete && progress.Success
	}, 5*time.Second, 10*time.Millisecond)

	w = env.do(t, http.MethodGet, "/api/executions/"+started.ExecutionID+"/csv", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "risk")

	w = env.do(t, http.MethodGet, "/api/history/b1", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestExecutionStartUnknownBatch(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/batches/missing/execute", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestProgressUnknownExecution(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/api/executions/missing/progress", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCSVConflictWhileRunning(t *testing.T) {
	env := newTestEnv(t)

	// A known but unfinished execution must yield a conflict, not a 404.
	running := model.NewExecution("b1")
	env.store.executions[running.ID] = running

	w := env.do(t, http.MethodGet, "/api/executions/"+running.ID+"/csv", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestLLMTestEndpoint(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/llm/test", gin.H{"provider": "lm_studio"})
	require.Equal(t, http.StatusOK, w.Code)

	var result struct {
		Connected bool `json:"connected"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.True(t, result.Connected)
}

func TestGenerateSchemaEndpoint(t *testing.T) {
	env := newTestEnv(t)
	env.generator.response = "Here you go:\n```json\n" +
		`{"$schema": "http://json-schema.org/draft-07/schema#", "type": "object", "properties": {"risk": {"type": "string"}}, "required": ["risk"]}` +
		"\n```"

	w := env.do(t, http.MethodPost, "/api/llm/generate-schema", gin.H{
		"description": "risk level per claim",
	})
	require.Equal(t, http.StatusOK, w.Code)

	var result struct {
		Schema map[string]interface{} `json:"schema"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, "object", result.Schema["type"])
	assert.Contains(t, result.Schema, "properties")
}

func TestGenerateSchemaRequiresDescription(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/llm/generate-schema", gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListDatasetsEndpoint(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/api/datasets", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Claims_DS")
}
