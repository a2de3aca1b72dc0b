// Package gormstore implements the domain repository interfaces on top of
// GORM. A single Store backs all of them; schema management is handled by
// the embedded migrations in this package.
package gormstore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	model "github.com/tigerroll/swell/internal/core/domain/model"
	repository "github.com/tigerroll/swell/internal/core/domain/repository"
	"github.com/tigerroll/swell/internal/support/exception"
)

const moduleName = "gormstore"

// Store implements the domain repository interfaces using a GORM connection.
type Store struct {
	db *gorm.DB
}

var (
	_ repository.BatchRepository         = (*Store)(nil)
	_ repository.DatasetConfigRepository = (*Store)(nil)
	_ repository.PromptRepository        = (*Store)(nil)
	_ repository.ExecutionRepository     = (*Store)(nil)
	_ repository.HistoryRepository       = (*Store)(nil)
)

// NewStore creates a Store over an open GORM connection.
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// isTableNotExistError reports whether err indicates a missing table.
// These checks cover common SQL errors for table not found across different DBs.
func isTableNotExistError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return (strings.Contains(msg, "relation \"") && strings.Contains(msg, "\" does not exist")) || // PostgreSQL
		(strings.Contains(msg, "Error 1146") && strings.Contains(msg, "doesn't exist")) || // MySQL
		strings.Contains(msg, "no such table:") // SQLite
}

// mapLookupError converts a GORM lookup error into the domain sentinel.
// A missing table is treated the same as a missing row.
func mapLookupError(err error, sentinel error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) || isTableNotExistError(err) {
		return sentinel
	}
	return err
}

// --- BatchRepository implementation ---

func (s *Store) SaveBatch(ctx context.Context, batch *model.Batch) error {
	const op = "Store.SaveBatch"
	if err := s.db.WithContext(ctx).Create(fromDomainBatch(batch)).Error; err != nil {
		return exception.NewBatchError(op, fmt.Sprintf("failed to save batch (ID: %s)", batch.ID), err, false, false)
	}
	return nil
}

func (s *Store) UpdateBatch(ctx context.Context, batch *model.Batch) error {
	const op = "Store.UpdateBatch"
	result := s.db.WithContext(ctx).Model(&BatchEntity{}).
		Where("id = ?", batch.ID).
		Updates(fromDomainBatch(batch))
	if result.Error != nil {
		return exception.NewBatchError(op, fmt.Sprintf("failed to update batch (ID: %s)", batch.ID), result.Error, false, false)
	}
	if result.RowsAffected == 0 {
		return repository.ErrBatchNotFound
	}
	return nil
}

func (s *Store) FindBatchByID(ctx context.Context, id string) (*model.Batch, error) {
	var entity BatchEntity
	err := s.db.WithContext(ctx).First(&entity, "id = ?", id).Error
	if err != nil {
		return nil, mapLookupError(err, repository.ErrBatchNotFound)
	}
	return toDomainBatch(&entity), nil
}

func (s *Store) ListBatches(ctx context.Context) ([]*model.Batch, error) {
	var entities []BatchEntity
	err := s.db.WithContext(ctx).Order("created_at DESC").Find(&entities).Error
	if err != nil {
		if isTableNotExistError(err) {
			return nil, nil
		}
		return nil, exception.NewBatchError(moduleName, "failed to list batches", err, false, false)
	}
	batches := make([]*model.Batch, 0, len(entities))
	for i := range entities {
		batches = append(batches, toDomainBatch(&entities[i]))
	}
	return batches, nil
}

func (s *Store) DeleteBatch(ctx context.Context, id string) error {
	const op = "Store.DeleteBatch"
	result := s.db.WithContext(ctx).Delete(&BatchEntity{}, "id = ?", id)
	if result.Error != nil {
		return exception.NewBatchError(op, fmt.Sprintf("failed to delete batch (ID: %s)", id), result.Error, false, false)
	}
	if result.RowsAffected == 0 {
		return repository.ErrBatchNotFound
	}
	return nil
}

// --- DatasetConfigRepository implementation ---

func (s *Store) SaveDatasetConfig(ctx context.Context, cfg *model.DatasetConfig) error {
	const op = "Store.SaveDatasetConfig"
	if err := s.db.WithContext(ctx).Create(fromDomainDatasetConfig(cfg)).Error; err != nil {
		return exception.NewBatchError(op, fmt.Sprintf("failed to save dataset config (ID: %s)", cfg.ID), err, false, false)
	}
	return nil
}

func (s *Store) UpdateDatasetConfig(ctx context.Context, cfg *model.DatasetConfig) error {
	const op = "Store.UpdateDatasetConfig"
	result := s.db.WithContext(ctx).Model(&DatasetConfigEntity{}).
		Where("id = ?", cfg.ID).
		Updates(fromDomainDatasetConfig(cfg))
	if result.Error != nil {
		return exception.NewBatchError(op, fmt.Sprintf("failed to update dataset config (ID: %s)", cfg.ID), result.Error, false, false)
	}
	if result.RowsAffected == 0 {
		return repository.ErrDatasetConfigNotFound
	}
	return nil
}

func (s *Store) FindDatasetConfigByID(ctx context.Context, id string) (*model.DatasetConfig, error) {
	var entity DatasetConfigEntity
	err := s.db.WithContext(ctx).First(&entity, "id = ?", id).Error
	if err != nil {
		return nil, mapLookupError(err, repository.ErrDatasetConfigNotFound)
	}
	return toDomainDatasetConfig(&entity), nil
}

func (s *Store) ListDatasetConfigs(ctx context.Context) ([]*model.DatasetConfig, error) {
	var entities []DatasetConfigEntity
	err := s.db.WithContext(ctx).Order("created_at DESC").Find(&entities).Error
	if err != nil {
		if isTableNotExistError(err) {
			return nil, nil
		}
		return nil, exception.NewBatchError(moduleName, "failed to list dataset configs", err, false, false)
	}
	configs := make([]*model.DatasetConfig, 0, len(entities))
	for i := range entities {
		configs = append(configs, toDomainDatasetConfig(&entities[i]))
	}
	return configs, nil
}

func (s *Store) DeleteDatasetConfig(ctx context.Context, id string) error {
	const op = "Store.DeleteDatasetConfig"
	result := s.db.WithContext(ctx).Delete(&DatasetConfigEntity{}, "id = ?", id)
	if result.Error != nil {
		return exception.NewBatchError(op, fmt.Sprintf("failed to delete dataset config (ID: %s)", id), result.Error, false, false)
	}
	if result.RowsAffected == 0 {
		return repository.ErrDatasetConfigNotFound
	}
	return nil
}

// --- PromptRepository implementation ---

func (s *Store) SavePromptConfig(ctx context.Context, cfg *model.PromptConfig) error {
	const op = "Store.SavePromptConfig"
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "batch_id"}},
			UpdateAll: true,
		}).
		Create(fromDomainPromptConfig(cfg)).Error
	if err != nil {
		return exception.NewBatchError(op, fmt.Sprintf("failed to save prompt config (batch ID: %s)", cfg.BatchID), err, false, false)
	}
	return nil
}

func (s *Store) FindPromptConfigByBatchID(ctx context.Context, batchID string) (*model.PromptConfig, error) {
	var entity PromptConfigEntity
	err := s.db.WithContext(ctx).First(&entity, "batch_id = ?", batchID).Error
	if err != nil {
		return nil, mapLookupError(err, repository.ErrPromptConfigNotFound)
	}
	return toDomainPromptConfig(&entity), nil
}

func (s *Store) DeletePromptConfig(ctx context.Context, batchID string) error {
	const op = "Store.DeletePromptConfig"
	result := s.db.WithContext(ctx).Delete(&PromptConfigEntity{}, "batch_id = ?", batchID)
	if result.Error != nil {
		return exception.NewBatchError(op, fmt.Sprintf("failed to delete prompt config (batch ID: %s)", batchID), result.Error, false, false)
	}
	if result.RowsAffected == 0 {
		return repository.ErrPromptConfigNotFound
	}
	return nil
}

// --- ExecutionRepository implementation ---

// SaveExecution upserts the durable mirror of an in-flight execution.
// A missing table is ignored so progress mirroring never fails a run
// before migrations have been applied.
func (s *Store) SaveExecution(ctx context.Context, execution *model.Execution) error {
	const op = "Store.SaveExecution"
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).
		Create(fromDomainExecution(execution)).Error
	if err != nil {
		if isTableNotExistError(err) {
			return nil
		}
		return exception.NewBatchError(op, fmt.Sprintf("failed to save execution (ID: %s)", execution.ID), err, true, false)
	}
	return nil
}

func (s *Store) FindExecutionByID(ctx context.Context, id string) (*model.Execution, error) {
	var entity ExecutionEntity
	err := s.db.WithContext(ctx).First(&entity, "id = ?", id).Error
	if err != nil {
		return nil, mapLookupError(err, repository.ErrExecutionNotFound)
	}
	return toDomainExecution(&entity), nil
}

func (s *Store) FindLatestExecutionByBatchID(ctx context.Context, batchID string) (*model.Execution, error) {
	var entity ExecutionEntity
	err := s.db.WithContext(ctx).
		Where("batch_id = ?", batchID).
		Order("started_at DESC").
		First(&entity).Error
	if err != nil {
		return nil, mapLookupError(err, repository.ErrExecutionNotFound)
	}
	return toDomainExecution(&entity), nil
}

func (s *Store) DeleteExecution(ctx context.Context, id string) error {
	const op = "Store.DeleteExecution"
	result := s.db.WithContext(ctx).Delete(&ExecutionEntity{}, "id = ?", id)
	if result.Error != nil {
		if isTableNotExistError(result.Error) {
			return nil
		}
		return exception.NewBatchError(op, fmt.Sprintf("failed to delete execution (ID: %s)", id), result.Error, false, false)
	}
	return nil
}

// --- HistoryRepository implementation ---

// ReplaceHistory removes any prior history row for the batch and inserts the
// new one in a single transaction. Last write wins.
func (s *Store) ReplaceHistory(ctx context.Context, history *model.ExecutionHistory) error {
	const op = "Store.ReplaceHistory"
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&ExecutionHistoryEntity{}, "batch_id = ?", history.BatchID).Error; err != nil {
			return err
		}
		return tx.Create(fromDomainHistory(history)).Error
	})
	if err != nil {
		return exception.NewBatchError(op, fmt.Sprintf("failed to replace history (batch ID: %s)", history.BatchID), err, false, false)
	}
	return nil
}

func (s *Store) FindHistoryByBatchID(ctx context.Context, batchID string) (*model.ExecutionHistory, error) {
	var entity ExecutionHistoryEntity
	err := s.db.WithContext(ctx).First(&entity, "batch_id = ?", batchID).Error
	if err != nil {
		return nil, mapLookupError(err, repository.ErrHistoryNotFound)
	}
	return toDomainHistory(&entity), nil
}

func (s *Store) ListHistories(ctx context.Context) ([]*model.ExecutionHistory, error) {
	var entities []ExecutionHistoryEntity
	err := s.db.WithContext(ctx).Order("executed_at DESC").Find(&entities).Error
	if err != nil {
		if isTableNotExistError(err) {
			return nil, nil
		}
		return nil, exception.NewBatchError(moduleName, "failed to list execution histories", err, false, false)
	}
	histories := make([]*model.ExecutionHistory, 0, len(entities))
	for i := range entities {
		histories = append(histories, toDomainHistory(&entities[i]))
	}
	return histories, nil
}

func (s *Store) DeleteHistory(ctx context.Context, batchID string) error {
	const op = "Store.DeleteHistory"
	result := s.db.WithContext(ctx).Delete(&ExecutionHistoryEntity{}, "batch_id = ?", batchID)
	if result.Error != nil {
		return exception.NewBatchError(op, fmt.Sprintf("failed to delete history (batch ID: %s)", batchID), result.Error, false, false)
	}
	if result.RowsAffected == 0 {
		return repository.ErrHistoryNotFound
	}
	return nil
}
