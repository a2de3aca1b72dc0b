package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	model "github.com/tigerroll/swell/internal/core/domain/model"
	"github.com/tigerroll/swell/internal/execution"
	"github.com/tigerroll/swell/internal/export"
	"github.com/tigerroll/swell/internal/support/logger"
)

// ExecutionHandler serves execution control, progress and history endpoints.
type ExecutionHandler struct {
	orchestrator *execution.Orchestrator
}

// NewExecutionHandler creates an ExecutionHandler.
func NewExecutionHandler(orchestrator *execution.Orchestrator) *ExecutionHandler {
	return &ExecutionHandler{orchestrator: orchestrator}
}

type startRequest struct {
	RecordIDs []string `json:"record_ids"`
}

// Start launches a batch run, optionally restricted to a record subset.
func (h *ExecutionHandler) Start(c *gin.Context) {
	batchID := c.Param("id")

	var req startRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
			return
		}
	}

	executionID, err := h.orchestrator.Start(c.Request.Context(), batchID, req.RecordIDs...)
	if err != nil {
		if notFound(err) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Batch not found"})
			return
		}
		logger.Errorf("Failed to start execution for batch %s: %v", batchID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to start execution"})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"execution_id": executionID})
}

type progressResponse struct {
	ExecutionID  string `json:"execution_id"`
	BatchID      string `json:"batch_id"`
	Phase        string `json:"phase"`
	Status       string `json:"status"`
	Current      int    `json:"current"`
	Total        int    `json:"total"`
	SuccessCount int    `json:"success_count"`
	ErrorCount   int    `json:"error_count"`
	Complete     bool   `json:"complete"`
	Success      bool   `json:"success"`
	ErrorMessage string `json:"error_message,omitempty"`
}

func toProgressResponse(e *model.Execution) progressResponse {
	return progressResponse{
		ExecutionID:  e.ID,
		BatchID:      e.BatchID,
		Phase:        e.Phase.String(),
		Status:       e.Status,
		Current:      e.Current,
		Total:        e.Total,
		SuccessCount: e.SuccessCount,
		ErrorCount:   e.ErrorCount,
		Complete:     e.Complete,
		Success:      e.Success,
		ErrorMessage: e.ErrorMessage,
	}
}

// Progress reports the current state of an execution.
func (h *ExecutionHandler) Progress(c *gin.Context) {
	id := c.Param("id")

	exec, err := h.orchestrator.Progress(c.Request.Context(), id)
	if err != nil {
		if notFound(err) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Execution not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to look up execution"})
		return
	}
	c.JSON(http.StatusOK, toProgressResponse(exec))
}

// CSV downloads the result CSV of a completed execution. An unknown
// execution is a 404; a known but unfinished one is a 409.
func (h *ExecutionHandler) CSV(c *gin.Context) {
	id := c.Param("id")

	csvData, err := h.orchestrator.CSV(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, execution.ErrCSVNotReady) {
			c.JSON(http.StatusConflict, gin.H{"error": "Execution has not completed successfully"})
			return
		}
		if notFound(err) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Execution not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve CSV"})
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=execution_%s.csv", id))
	c.Data(http.StatusOK, "text/csv", []byte(csvData))
}

// ListHistories returns the last-run history of every batch.
func (h *ExecutionHandler) ListHistories(c *gin.Context) {
	histories, err := h.orchestrator.Histories(c.Request.Context())
	if err != nil {
		logger.Errorf("Failed to list execution histories: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list histories"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"histories": histories, "count": len(histories)})
}

// GetHistory returns a batch's last-run history.
func (h *ExecutionHandler) GetHistory(c *gin.Context) {
	batchID := c.Param("batchId")

	history, err := h.orchestrator.History(c.Request.Context(), batchID)
	if err != nil {
		if notFound(err) {
			c.JSON(http.StatusNotFound, gin.H{"error": "History not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to look up history"})
		return
	}
	c.JSON(http.StatusOK, history)
}

// DeleteHistory removes a batch's last-run history.
func (h *ExecutionHandler) DeleteHistory(c *gin.Context) {
	batchID := c.Param("batchId")

	if err := h.orchestrator.DeleteHistory(c.Request.Context(), batchID); err != nil {
		if notFound(err) {
			c.JSON(http.StatusNotFound, gin.H{"error": "History not found"})
			return
		}
		logger.Errorf("Failed to delete history for batch %s: %v", batchID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete history"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": batchID})
}

// ExportHistories downloads a summary CSV over all batch histories.
func (h *ExecutionHandler) ExportHistories(c *gin.Context) {
	histories, err := h.orchestrator.Histories(c.Request.Context())
	if err != nil {
		logger.Errorf("Failed to list execution histories: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list histories"})
		return
	}

	csvData, err := export.BuildHistorySummaryCSV(histories)
	if err != nil {
		logger.Errorf("Failed to build history summary CSV: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to build CSV"})
		return
	}

	c.Header("Content-Disposition", "attachment; filename=execution_history.csv")
	c.Data(http.StatusOK, "text/csv", []byte(csvData))
}
