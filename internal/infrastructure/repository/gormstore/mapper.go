package gormstore

import (
	model "github.com/tigerroll/swell/internal/core/domain/model"
)

func fromDomainBatch(b *model.Batch) *BatchEntity {
	return &BatchEntity{
		ID:              b.ID,
		Name:            b.Name,
		Description:     b.Description,
		DatasetConfigID: b.DatasetConfigID,
		DatasetID:       b.DatasetID,
		DatasetName:     b.DatasetName,
		Status:          b.Status,
		RecordCount:     b.RecordCount,
		CreatedAt:       b.CreatedAt,
		UpdatedAt:       b.UpdatedAt,
	}
}

func toDomainBatch(e *BatchEntity) *model.Batch {
	return &model.Batch{
		ID:              e.ID,
		Name:            e.Name,
		Description:     e.Description,
		DatasetConfigID: e.DatasetConfigID,
		DatasetID:       e.DatasetID,
		DatasetName:     e.DatasetName,
		Status:          e.Status,
		RecordCount:     e.RecordCount,
		CreatedAt:       e.CreatedAt,
		UpdatedAt:       e.UpdatedAt,
	}
}

func fromDomainDatasetConfig(c *model.DatasetConfig) *DatasetConfigEntity {
	return &DatasetConfigEntity{
		ID:             c.ID,
		Name:           c.Name,
		DatasetID:      c.DatasetID,
		DatasetName:    c.DatasetName,
		RecordIDField:  c.RecordIDField,
		Filter:         c.Filter,
		SelectedFields: c.SelectedFields,
		CreatedAt:      c.CreatedAt,
		UpdatedAt:      c.UpdatedAt,
	}
}

func toDomainDatasetConfig(e *DatasetConfigEntity) *model.DatasetConfig {
	return &model.DatasetConfig{
		ID:             e.ID,
		Name:           e.Name,
		DatasetID:      e.DatasetID,
		DatasetName:    e.DatasetName,
		RecordIDField:  e.RecordIDField,
		Filter:         e.Filter,
		SelectedFields: e.SelectedFields,
		CreatedAt:      e.CreatedAt,
		UpdatedAt:      e.UpdatedAt,
	}
}

func fromDomainPromptConfig(c *model.PromptConfig) *PromptConfigEntity {
	return &PromptConfigEntity{
		BatchID:           c.BatchID,
		Template:          c.Template,
		ResponseSchema:    c.ResponseSchema,
		SchemaDescription: c.SchemaDescription,
		Provider:          c.Provider,
		Endpoint:          c.Endpoint,
		Model:             c.Model,
		Temperature:       c.Temperature,
		MaxTokens:         c.MaxTokens,
		TimeoutSeconds:    c.TimeoutSeconds,
		CreatedAt:         c.CreatedAt,
		UpdatedAt:         c.UpdatedAt,
	}
}

func toDomainPromptConfig(e *PromptConfigEntity) *model.PromptConfig {
	return &model.PromptConfig{
		BatchID:           e.BatchID,
		Template:          e.Template,
		ResponseSchema:    e.ResponseSchema,
		SchemaDescription: e.SchemaDescription,
		Provider:          e.Provider,
		Endpoint:          e.Endpoint,
		Model:             e.Model,
		Temperature:       e.Temperature,
		MaxTokens:         e.MaxTokens,
		TimeoutSeconds:    e.TimeoutSeconds,
		CreatedAt:         e.CreatedAt,
		UpdatedAt:         e.UpdatedAt,
	}
}

func fromDomainExecution(x *model.Execution) *ExecutionEntity {
	return &ExecutionEntity{
		ID:           x.ID,
		BatchID:      x.BatchID,
		Phase:        x.Phase.String(),
		Status:       x.Status,
		Current:      x.Current,
		Total:        x.Total,
		SuccessCount: x.SuccessCount,
		ErrorCount:   x.ErrorCount,
		StartedAt:    x.StartedAt,
		UpdatedAt:    x.UpdatedAt,
		Complete:     x.Complete,
		Success:      x.Success,
		ErrorMessage: x.ErrorMessage,
	}
}

func toDomainExecution(e *ExecutionEntity) *model.Execution {
	return &model.Execution{
		ID:           e.ID,
		BatchID:      e.BatchID,
		Phase:        model.ExecutionPhase(e.Phase),
		Status:       e.Status,
		Current:      e.Current,
		Total:        e.Total,
		SuccessCount: e.SuccessCount,
		ErrorCount:   e.ErrorCount,
		StartedAt:    e.StartedAt,
		UpdatedAt:    e.UpdatedAt,
		Complete:     e.Complete,
		Success:      e.Success,
		ErrorMessage: e.ErrorMessage,
	}
}

func fromDomainHistory(h *model.ExecutionHistory) *ExecutionHistoryEntity {
	return &ExecutionHistoryEntity{
		BatchID:       h.BatchID,
		BatchName:     h.BatchName,
		DatasetName:   h.DatasetName,
		TotalRecords:  h.TotalRecords,
		SuccessCount:  h.SuccessCount,
		ErrorCount:    h.ErrorCount,
		ExecutionTime: h.ExecutionTime,
		CSVData:       h.CSVData,
		ExecutedAt:    h.ExecutedAt,
	}
}

func toDomainHistory(e *ExecutionHistoryEntity) *model.ExecutionHistory {
	return &model.ExecutionHistory{
		BatchID:       e.BatchID,
		BatchName:     e.BatchName,
		DatasetName:   e.DatasetName,
		TotalRecords:  e.TotalRecords,
		SuccessCount:  e.SuccessCount,
		ErrorCount:    e.ErrorCount,
		ExecutionTime: e.ExecutionTime,
		CSVData:       e.CSVData,
		ExecutedAt:    e.ExecutedAt,
	}
}
