package execution

import (
	"bytes"
	"context"
	"io"
	"sync"

	adapterStorage "github.com/tigerroll/swell/internal/adapter/storage"
	model "github.com/tigerroll/swell/internal/core/domain/model"
	repository "github.com/tigerroll/swell/internal/core/domain/repository"
	"github.com/tigerroll/swell/internal/integration/llm"
)

type fakeExecutionStore struct {
	mu        sync.Mutex
	saved     map[string]*model.Execution
	saveCount int
}

func newFakeExecutionStore() *fakeExecutionStore {
	return &fakeExecutionStore{saved: make(map[string]*model.Execution)}
}

func (s *fakeExecutionStore) SaveExecution(ctx context.Context, execution *model.Execution) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saved[execution.ID] = execution.Clone()
	s.saveCount++
	return nil
}

func (s *fakeExecutionStore) FindExecutionByID(ctx context.Context, id string) (*model.Execution, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.saved[id]; ok {
		return e.Clone(), nil
	}
	return nil, repository.ErrExecutionNotFound
}

func (s *fakeExecutionStore) FindLatestExecutionByBatchID(ctx context.Context, batchID string) (*model.Execution, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.saved {
		if e.BatchID == batchID {
			return e.Clone(), nil
		}
	}
	return nil, repository.ErrExecutionNotFound
}

func (s *fakeExecutionStore) DeleteExecution(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.saved, id)
	return nil
}

func (s *fakeExecutionStore) saves() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveCount
}

type fakeBatchRepo struct {
	batches map[string]*model.Batch
}

func (r *fakeBatchRepo) SaveBatch(ctx context.Context, b *model.Batch) error {
	r.batches[b.ID] = b
	return nil
}

func (r *fakeBatchRepo) UpdateBatch(ctx context.Context, b *model.Batch) error {
	r.batches[b.ID] = b
	return nil
}

func (r *fakeBatchRepo) FindBatchByID(ctx context.Context, id string) (*model.Batch, error) {
	if b, ok := r.batches[id]; ok {
		return b, nil
	}
	return nil, repository.ErrBatchNotFound
}

func (r *fakeBatchRepo) ListBatches(ctx context.Context) ([]*model.Batch, error) {
	out := make([]*model.Batch, 0, len(r.batches))
	for _, b := range r.batches {
		out = append(out, b)
	}
	return out, nil
}

func (r *fakeBatchRepo) DeleteBatch(ctx context.Context, id string) error {
	delete(r.batches, id)
	return nil
}

type fakeDatasetConfigRepo struct {
	configs map[string]*model.DatasetConfig
}

func (r *fakeDatasetConfigRepo) SaveDatasetConfig(ctx context.Context, c *model.DatasetConfig) error {
	r.configs[c.ID] = c
	return nil
}

func (r *fakeDatasetConfigRepo) UpdateDatasetConfig(ctx context.Context, c *model.DatasetConfig) error {
	r.configs[c.ID] = c
	return nil
}

func (r *fakeDatasetConfigRepo) FindDatasetConfigByID(ctx context.Context, id string) (*model.DatasetConfig, error) {
	if c, ok := r.configs[id]; ok {
		return c, nil
	}
	return nil, repository.ErrDatasetConfigNotFound
}

func (r *fakeDatasetConfigRepo) ListDatasetConfigs(ctx context.Context) ([]*model.DatasetConfig, error) {
	out := make([]*model.DatasetConfig, 0, len(r.configs))
	for _, c := range r.configs {
		out = append(out, c)
	}
	return out, nil
}

func (r *fakeDatasetConfigRepo) DeleteDatasetConfig(ctx context.Context, id string) error {
	delete(r.configs, id)
	return nil
}

type fakePromptRepo struct {
	configs map[string]*model.PromptConfig
}

func (r *fakePromptRepo) SavePromptConfig(ctx context.Context, c *model.PromptConfig) error {
	r.configs[c.BatchID] = c
	return nil
}

func (r *fakePromptRepo) FindPromptConfigByBatchID(ctx context.Context, batchID string) (*model.PromptConfig, error) {
	if c, ok := r.configs[batchID]; ok {
		return c, nil
	}
	return nil, repository.ErrPromptConfigNotFound
}

func (r *fakePromptRepo) DeletePromptConfig(ctx context.Context, batchID string) error {
	delete(r.configs, batchID)
	return nil
}

type fakeHistoryRepo struct {
	mu        sync.Mutex
	histories map[string]*model.ExecutionHistory
	replaces  int
}

func newFakeHistoryRepo() *fakeHistoryRepo {
	return &fakeHistoryRepo{histories: make(map[string]*model.ExecutionHistory)}
}

func (r *fakeHistoryRepo) ReplaceHistory(ctx context.Context, h *model.ExecutionHistory) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.histories[h.BatchID] = h
	r.replaces++
	return nil
}

func (r *fakeHistoryRepo) FindHistoryByBatchID(ctx context.Context, batchID string) (*model.ExecutionHistory, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if h, ok := r.histories[batchID]; ok {
		return h, nil
	}
	return nil, repository.ErrHistoryNotFound
}

func (r *fakeHistoryRepo) ListHistories(ctx context.Context) ([]*model.ExecutionHistory, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*model.ExecutionHistory, 0, len(r.histories))
	for _, h := range r.histories {
		out = append(out, h)
	}
	return out, nil
}

func (r *fakeHistoryRepo) DeleteHistory(ctx context.Context, batchID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.histories[batchID]; !ok {
		return repository.ErrHistoryNotFound
	}
	delete(r.histories, batchID)
	return nil
}

type fakeAnalyticsClient struct {
	fields    []*model.DatasetField
	fieldsErr error
	records   []map[string]interface{}
	err       error

	mu              sync.Mutex
	lastFields      []string
	lastSavedFilter string
	lastFilters     map[string]string
	lastLimit       int
}

func (c *fakeAnalyticsClient) ListDatasets(ctx context.Context) ([]*model.Dataset, error) {
	return nil, nil
}

func (c *fakeAnalyticsClient) ListFields(ctx context.Context, datasetID string) ([]*model.DatasetField, error) {
	if c.fieldsErr != nil {
		return nil, c.fieldsErr
	}
	return c.fields, nil
}

func (c *fakeAnalyticsClient) Query(ctx context.Context, datasetID string, fields []string, limit int, savedFilter string, filters map[string]string) ([]map[string]interface{}, error) {
	c.mu.Lock()
	c.lastFields = fields
	c.lastSavedFilter = savedFilter
	c.lastFilters = filters
	c.lastLimit = limit
	c.mu.Unlock()
	if c.err != nil {
		return nil, c.err
	}
	return c.records, nil
}

type fakeGenerator struct {
	generate func(prompt string) (string, error)
}

func (g *fakeGenerator) Generate(ctx context.Context, prompt string, opts llm.Options) (string, error) {
	return g.generate(prompt)
}

func (g *fakeGenerator) TestConnection(ctx context.Context, opts llm.Options) error {
	return nil
}

type fakeConnection struct {
	mu      sync.Mutex
	uploads map[string][]byte
}

func newFakeConnection() *fakeConnection {
	return &fakeConnection{uploads: make(map[string][]byte)}
}

func (c *fakeConnection) Upload(ctx context.Context, bucket, objectName string, data io.Reader, contentType string) error {
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(data); err != nil {
		return err
	}
	c.mu.Lock()
	c.uploads[objectName] = buf.Bytes()
	c.mu.Unlock()
	return nil
}

func (c *fakeConnection) Download(ctx context.Context, bucket, objectName string) (io.ReadCloser, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return io.NopCloser(bytes.NewReader(c.uploads[objectName])), nil
}

func (c *fakeConnection) Close() error { return nil }

func (c *fakeConnection) Type() string { return "fake" }

func (c *fakeConnection) Name() string { return "fake" }

type fakeResolver struct {
	conn adapterStorage.Connection
}

func (r *fakeResolver) Resolve(ctx context.Context, name string) (adapterStorage.Connection, error) {
	return r.conn, nil
}

func (r *fakeResolver) CloseAll() error { return nil }
