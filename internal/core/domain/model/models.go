// Package model defines the core domain models for Swell:
// batches, dataset configurations, prompt configurations, executions and
// execution history.
package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// NewID generates a new unique ID (UUID).
func NewID() string {
	return uuid.NewString()
}

// ExecutionPhase represents the phase of a batch execution.
type ExecutionPhase string

const (
	PhaseStarting       ExecutionPhase = "STARTING"
	PhaseLoadingConfig  ExecutionPhase = "LOADING_CONFIG"
	PhaseLoadingRecords ExecutionPhase = "LOADING_RECORDS"
	PhaseProcessing     ExecutionPhase = "PROCESSING"
	PhaseGeneratingCSV  ExecutionPhase = "GENERATING_CSV"
	PhaseSavingHistory  ExecutionPhase = "SAVING_HISTORY"
	PhaseUploading      ExecutionPhase = "UPLOADING"
	PhaseComplete       ExecutionPhase = "COMPLETE"
	PhaseFailed         ExecutionPhase = "FAILED"
)

// String returns the string representation of the ExecutionPhase.
func (p ExecutionPhase) String() string {
	return string(p)
}

// IsFinished returns true if the phase is terminal.
func (p ExecutionPhase) IsFinished() bool {
	return p == PhaseComplete || p == PhaseFailed
}

// validPhaseTransitions defines the allowed phase transitions of an execution.
var validPhaseTransitions = map[ExecutionPhase][]ExecutionPhase{
	PhaseStarting:       {PhaseLoadingConfig, PhaseFailed},
	PhaseLoadingConfig:  {PhaseLoadingRecords, PhaseFailed},
	PhaseLoadingRecords: {PhaseProcessing, PhaseFailed},
	PhaseProcessing:     {PhaseProcessing, PhaseGeneratingCSV, PhaseFailed},
	PhaseGeneratingCSV:  {PhaseSavingHistory, PhaseFailed},
	PhaseSavingHistory:  {PhaseUploading, PhaseComplete, PhaseFailed},
	PhaseUploading:      {PhaseComplete, PhaseFailed},
	PhaseComplete:       {},
	PhaseFailed:         {},
}

// isValidPhaseTransition checks whether a transition between two phases is allowed.
func isValidPhaseTransition(from, to ExecutionPhase) bool {
	for _, allowed := range validPhaseTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// StringList is a list of strings persisted as a JSON TEXT column.
// It implements driver.Valuer and sql.Scanner.
type StringList []string

// Value serializes the StringList to JSON for database storage.
func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal(l)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal StringList: %w", err)
	}
	return string(b), nil
}

// Scan deserializes a JSON column value into the StringList.
func (l *StringList) Scan(value interface{}) error {
	if value == nil {
		*l = nil
		return nil
	}
	var b []byte
	switch v := value.(type) {
	case []byte:
		b = v
	case string:
		b = []byte(v)
	default:
		return fmt.Errorf("unsupported type for StringList: %T", value)
	}
	if len(b) == 0 {
		*l = nil
		return nil
	}
	return json.Unmarshal(b, l)
}

// Batch represents a configured prompt batch bound to a dataset configuration.
type Batch struct {
	ID              string
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

// DatasetConfig describes how records are pulled from a remote analytics dataset.
type DatasetConfig struct {
	ID             string
	Name           string
	DatasetID      string
	DatasetName    string
	RecordIDField  string
	Filter         string
	SelectedFields StringList
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// PromptConfig holds the prompt template and generation parameters for a batch.
// There is at most one PromptConfig per batch.
type PromptConfig struct {
	BatchID           string
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

// Execution tracks the progress of a single batch run.
type Execution struct {
	ID           string
	BatchID      string
	Phase        ExecutionPhase
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

// NewExecution creates a new Execution in the starting phase.
func NewExecution(batchID string) *Execution {
	now := time.Now()
	return &Execution{
		ID:        NewID(),
		BatchID:   batchID,
		Phase:     PhaseStarting,
		Status:    "Initializing...",
		StartedAt: now,
		UpdatedAt: now,
	}
}

// TransitionTo moves the execution to a new phase with a human-readable status.
// It returns an error if the transition is not allowed.
func (e *Execution) TransitionTo(phase ExecutionPhase, status string) error {
	if !isValidPhaseTransition(e.Phase, phase) {
		return fmt.Errorf("invalid execution phase transition from %s to %s", e.Phase, phase)
	}
	e.Phase = phase
	e.Status = status
	e.UpdatedAt = time.Now()
	return nil
}

// MarkAsCompleted marks the execution as successfully finished.
func (e *Execution) MarkAsCompleted() {
	e.Phase = PhaseComplete
	e.Status = "Complete"
	e.Complete = true
	e.Success = true
	e.UpdatedAt = time.Now()
}

// MarkAsFailed marks the execution as finished with an error.
func (e *Execution) MarkAsFailed(message string) {
	e.Phase = PhaseFailed
	e.Status = "Error: " + message
	e.Complete = true
	e.Success = false
	e.ErrorMessage = message
	e.UpdatedAt = time.Now()
}

// Clone returns a deep copy of the execution.
func (e *Execution) Clone() *Execution {
	c := *e
	return &c
}

// ExecutionHistory records the outcome of the most recent run of a batch.
// At most one history row exists per batch; a new run replaces the old row.
type ExecutionHistory struct {
	BatchID       string
	BatchName     string
	DatasetName   string
	TotalRecords  int
	SuccessCount  int
	ErrorCount    int
	ExecutionTime float64
	CSVData       string
	ExecutedAt    time.Time
}

// ResultRow holds the outcome of one record's generation call.
// Response carries the parsed JSON object, or the raw response text under
// a "raw_response" key when parsing failed.
type ResultRow struct {
	RecordID string
	Response map[string]interface{}
	Error    string
}

// Dataset describes a remote analytics dataset.
type Dataset struct {
	ID               string
	Name             string
	Label            string
	CurrentVersionID string
	RowCount         int64
	LastModifiedDate string
	CreatedBy        string
	Type             string
}

// DatasetField describes a single field of a remote analytics dataset.
type DatasetField struct {
	Name     string
	Label    string
	Type     string
	DataType string
}
