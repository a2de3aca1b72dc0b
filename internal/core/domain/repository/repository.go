// Package repository defines the persistence interfaces for Swell's domain
// models. Implementations live under internal/infrastructure/repository.
package repository

import (
	"context"
	"errors"

	"github.com/tigerroll/swell/internal/core/domain/model"
)

// ErrBatchNotFound is returned when the specified batch is not found.
var ErrBatchNotFound = errors.New("batch not found")

// ErrDatasetConfigNotFound is returned when the specified dataset configuration is not found.
var ErrDatasetConfigNotFound = errors.New("dataset config not found")

// ErrPromptConfigNotFound is returned when the specified prompt configuration is not found.
var ErrPromptConfigNotFound = errors.New("prompt config not found")

// ErrExecutionNotFound is returned when the specified execution is not found.
var ErrExecutionNotFound = errors.New("execution not found")

// ErrHistoryNotFound is returned when the specified execution history is not found.
var ErrHistoryNotFound = errors.New("execution history not found")

// BatchRepository manages persistence of batches.
type BatchRepository interface {
	SaveBatch(ctx context.Context, batch *model.Batch) error
	UpdateBatch(ctx context.Context, batch *model.Batch) error
	FindBatchByID(ctx context.Context, id string) (*model.Batch, error)
	ListBatches(ctx context.Context) ([]*model.Batch, error)
	DeleteBatch(ctx context.Context, id string) error
}

// DatasetConfigRepository manages persistence of dataset configurations.
type DatasetConfigRepository interface {
	SaveDatasetConfig(ctx context.Context, cfg *model.DatasetConfig) error
	UpdateDatasetConfig(ctx context.Context, cfg *model.DatasetConfig) error
	FindDatasetConfigByID(ctx context.Context, id string) (*model.DatasetConfig, error)
	ListDatasetConfigs(ctx context.Context) ([]*model.DatasetConfig, error)
	DeleteDatasetConfig(ctx context.Context, id string) error
}

// PromptRepository manages persistence of prompt configurations.
// A batch has at most one prompt configuration; Save is an upsert.
type PromptRepository interface {
	SavePromptConfig(ctx context.Context, cfg *model.PromptConfig) error
	FindPromptConfigByBatchID(ctx context.Context, batchID string) (*model.PromptConfig, error)
	DeletePromptConfig(ctx context.Context, batchID string) error
}

// ExecutionRepository mirrors in-flight execution progress to durable storage
// so progress survives a process restart. Save is an upsert.
type ExecutionRepository interface {
	SaveExecution(ctx context.Context, execution *model.Execution) error
	FindExecutionByID(ctx context.Context, id string) (*model.Execution, error)
	FindLatestExecutionByBatchID(ctx context.Context, batchID string) (*model.Execution, error)
	DeleteExecution(ctx context.Context, id string) error
}

// HistoryRepository manages last-run execution history.
// ReplaceHistory removes any prior row for the batch before inserting.
type HistoryRepository interface {
	ReplaceHistory(ctx context.Context, history *model.ExecutionHistory) error
	FindHistoryByBatchID(ctx context.Context, batchID string) (*model.ExecutionHistory, error)
	ListHistories(ctx context.Context) ([]*model.ExecutionHistory, error)
	DeleteHistory(ctx context.Context, batchID string) error
}
