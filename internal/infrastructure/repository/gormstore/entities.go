package gormstore

import (
	"time"

	model "github.com/tigerroll/swell/internal/core/domain/model"
)

// BatchEntity is a schema model used for persistence.
type BatchEntity struct {
	ID              string `gorm:"primaryKey"`
	Name            string
	Description     string
	DatasetConfigID string
	DatasetID       string
	DatasetName     string
	Status          string
	RecordCount     int
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (BatchEntity) TableName() string {
	return "swell_batch"
}

// DatasetConfigEntity is a schema model used for persistence.
type DatasetConfigEntity struct {
	ID             string `gorm:"primaryKey"`
	Name           string
	DatasetID      string
	DatasetName    string
	RecordIDField  string
	Filter         string
	SelectedFields model.StringList `gorm:"type:text"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (DatasetConfigEntity) TableName() string {
	return "swell_dataset_config"
}

// PromptConfigEntity is a schema model used for persistence.
// The batch ID is the primary key; a batch has at most one prompt config.
type PromptConfigEntity struct {
	BatchID           string `gorm:"primaryKey"`
	Template          string
	ResponseSchema    string
	SchemaDescription string
	Provider          string
	Endpoint          string
	Model             string
	Temperature       float64
	MaxTokens         int
	TimeoutSeconds    int
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

func (PromptConfigEntity) TableName() string {
	return "swell_prompt_config"
}

// ExecutionEntity is a schema model used for persistence. It mirrors
// in-flight execution progress so it survives a process restart.
type ExecutionEntity struct {
	ID           string `gorm:"primaryKey"`
	BatchID      string `gorm:"index"`
	Phase        string
	Status       string
	Current      int
	Total        int
	SuccessCount int
	ErrorCount   int
	StartedAt    time.Time
	UpdatedAt    time.Time
	Complete     bool
	Success      bool
	ErrorMessage string
}

func (ExecutionEntity) TableName() string {
	return "swell_execution"
}

// ExecutionHistoryEntity is a schema model used for persistence.
// The batch ID is the primary key; a new run replaces the prior row.
type ExecutionHistoryEntity struct {
	BatchID       string `gorm:"primaryKey"`
	BatchName     string
	DatasetName   string
	TotalRecords  int
	SuccessCount  int
	ErrorCount    int
	ExecutionTime float64
	CSVData       string `gorm:"column:csv_data;type:text"`
	ExecutedAt    time.Time
}

func (ExecutionHistoryEntity) TableName() string {
	return "swell_execution_history"
}
