package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	model "github.com/tigerroll/swell/internal/core/domain/model"
	repository "github.com/tigerroll/swell/internal/core/domain/repository"
	"github.com/tigerroll/swell/internal/support/logger"
)

// BatchHandler serves batch CRUD endpoints.
type BatchHandler struct {
	batches        repository.BatchRepository
	datasetConfigs repository.DatasetConfigRepository
	prompts        repository.PromptRepository
}

// NewBatchHandler creates a BatchHandler.
func NewBatchHandler(
	batches repository.BatchRepository,
	datasetConfigs repository.DatasetConfigRepository,
	prompts repository.PromptRepository,
) *BatchHandler {
	return &BatchHandler{
		batches:        batches,
		datasetConfigs: datasetConfigs,
		prompts:        prompts,
	}
}

type batchRequest struct {
	Name            string `json:"name" binding:"required"`
	Description     string `json:"description"`
	DatasetConfigID string `json:"dataset_config_id" binding:"required"`
}

type batchResponse struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Description     string    `json:"description"`
	DatasetConfigID string    `json:"dataset_config_id"`
	DatasetID       string    `json:"dataset_id"`
	DatasetName     string    `json:"dataset_name"`
	Status          string    `json:"status"`
	RecordCount     int       `json:"record_count"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func toBatchResponse(b *model.Batch) batchResponse {
	return batchResponse{
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

func (h *BatchHandler) Create(c *gin.Context) {
	var req batchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	datasetConfig, err := h.datasetConfigs.FindDatasetConfigByID(c.Request.Context(), req.DatasetConfigID)
	if err != nil {
		if notFound(err) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown dataset config"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to look up dataset config"})
		return
	}

	now := time.Now()
	batch := &model.Batch{
		ID:              model.NewID(),
		Name:            req.Name,
		Description:     req.Description,
		DatasetConfigID: datasetConfig.ID,
		DatasetID:       datasetConfig.DatasetID,
		DatasetName:     datasetConfig.DatasetName,
		Status:          "created",
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := h.batches.SaveBatch(c.Request.Context(), batch); err != nil {
		logger.Errorf("Failed to create batch '%s': %v", req.Name, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create batch"})
		return
	}

	c.JSON(http.StatusCreated, toBatchResponse(batch))
}

func (h *BatchHandler) Get(c *gin.Context) {
	batch, err := h.batches.FindBatchByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		if notFound(err) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Batch not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to look up batch"})
		return
	}
	c.JSON(http.StatusOK, toBatchResponse(batch))
}

func (h *BatchHandler) List(c *gin.Context) {
	batches, err := h.batches.ListBatches(c.Request.Context())
	if err != nil {
		logger.Errorf("Failed to list batches: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list batches"})
		return
	}

	responses := make([]batchResponse, 0, len(batches))
	for _, b := range batches {
		responses = append(responses, toBatchResponse(b))
	}
	c.JSON(http.StatusOK, gin.H{"batches": responses, "count": len(responses)})
}

func (h *BatchHandler) Update(c *gin.Context) {
	id := c.Param("id")

	batch, err := h.batches.FindBatchByID(c.Request.Context(), id)
	if err != nil {
		if notFound(err) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Batch not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to look up batch"})
		return
	}

	var req batchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	if req.DatasetConfigID != batch.DatasetConfigID {
		datasetConfig, err := h.datasetConfigs.FindDatasetConfigByID(c.Request.Context(), req.DatasetConfigID)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown dataset config"})
			return
		}
		batch.DatasetConfigID = datasetConfig.ID
		batch.DatasetID = datasetConfig.DatasetID
		batch.DatasetName = datasetConfig.DatasetName
	}

	batch.Name = req.Name
	batch.Description = req.Description
	batch.UpdatedAt = time.Now()

	if err := h.batches.UpdateBatch(c.Request.Context(), batch); err != nil {
		logger.Errorf("Failed to update batch %s: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update batch"})
		return
	}
	c.JSON(http.StatusOK, toBatchResponse(batch))
}

func (h *BatchHandler) Delete(c *gin.Context) {
	id := c.Param("id")

	if err := h.batches.DeleteBatch(c.Request.Context(), id); err != nil {
		if notFound(err) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Batch not found"})
			return
		}
		logger.Errorf("Failed to delete batch %s: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete batch"})
		return
	}

	// The prompt config rides along with its batch.
	if err := h.prompts.DeletePromptConfig(c.Request.Context(), id); err != nil && !notFound(err) {
		logger.Warnf("Failed to delete prompt config for batch %s: %v", id, err)
	}

	c.JSON(http.StatusOK, gin.H{"deleted": id})
}
