package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	model "github.com/tigerroll/swell/internal/core/domain/model"
	repository "github.com/tigerroll/swell/internal/core/domain/repository"
	"github.com/tigerroll/swell/internal/integration/analytics"
	"github.com/tigerroll/swell/internal/prompt"
	"github.com/tigerroll/swell/internal/support/logger"
)

// ConfigHandler serves dataset config CRUD, prompt config CRUD and prompt
// tooling endpoints.
type ConfigHandler struct {
	datasetConfigs repository.DatasetConfigRepository
	prompts        repository.PromptRepository
	analytics      analytics.Client
	engine         *prompt.Engine
}

// NewConfigHandler creates a ConfigHandler.
func NewConfigHandler(
	datasetConfigs repository.DatasetConfigRepository,
	prompts repository.PromptRepository,
	client analytics.Client,
	engine *prompt.Engine,
) *ConfigHandler {
	return &ConfigHandler{
		datasetConfigs: datasetConfigs,
		prompts:        prompts,
		analytics:      client,
		engine:         engine,
	}
}

// --- Dataset configs ---

type datasetConfigRequest struct {
	Name           string   `json:"name" binding:"required"`
	DatasetID      string   `json:"dataset_id" binding:"required"`
	DatasetName    string   `json:"dataset_name"`
	RecordIDField  string   `json:"record_id_field"`
	Filter         string   `json:"filter"`
	SelectedFields []string `json:"selected_fields"`
}

func (h *ConfigHandler) CreateDatasetConfig(c *gin.Context) {
	var req datasetConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	now := time.Now()
	cfg := &model.DatasetConfig{
		ID:             model.NewID(),
		Name:           req.Name,
		DatasetID:      req.DatasetID,
		DatasetName:    req.DatasetName,
		RecordIDField:  req.RecordIDField,
		Filter:         req.Filter,
		SelectedFields: req.SelectedFields,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := h.datasetConfigs.SaveDatasetConfig(c.Request.Context(), cfg); err != nil {
		logger.Errorf("Failed to create dataset config '%s': %v", req.Name, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create dataset config"})
		return
	}
	c.JSON(http.StatusCreated, cfg)
}

func (h *ConfigHandler) GetDatasetConfig(c *gin.Context) {
	cfg, err := h.datasetConfigs.FindDatasetConfigByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		if notFound(err) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Dataset config not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to look up dataset config"})
		return
	}
	c.JSON(http.StatusOK, cfg)
}

func (h *ConfigHandler) ListDatasetConfigs(c *gin.Context) {
	configs, err := h.datasetConfigs.ListDatasetConfigs(c.Request.Context())
	if err != nil {
		logger.Errorf("Failed to list dataset configs: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list dataset configs"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"dataset_configs": configs, "count": len(configs)})
}

func (h *ConfigHandler) UpdateDatasetConfig(c *gin.Context) {
	id := c.Param("id")

	cfg, err := h.datasetConfigs.FindDatasetConfigByID(c.Request.Context(), id)
	if err != nil {
		if notFound(err) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Dataset config not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to look up dataset config"})
		return
	}

	var req datasetConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	cfg.Name = req.Name
	cfg.DatasetID = req.DatasetID
	cfg.DatasetName = req.DatasetName
	cfg.RecordIDField = req.RecordIDField
	cfg.Filter = req.Filter
	cfg.SelectedFields = req.SelectedFields
	cfg.UpdatedAt = time.Now()

	if err := h.datasetConfigs.UpdateDatasetConfig(c.Request.Context(), cfg); err != nil {
		logger.Errorf("Failed to update dataset config %s: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update dataset config"})
		return
	}
	c.JSON(http.StatusOK, cfg)
}

func (h *ConfigHandler) DeleteDatasetConfig(c *gin.Context) {
	id := c.Param("id")
	if err := h.datasetConfigs.DeleteDatasetConfig(c.Request.Context(), id); err != nil {
		if notFound(err) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Dataset config not found"})
			return
		}
		logger.Errorf("Failed to delete dataset config %s: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete dataset config"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": id})
}

// --- Prompt configs ---

type promptConfigRequest struct {
	Template          string  `json:"template" binding:"required"`
	ResponseSchema    string  `json:"response_schema"`
	SchemaDescription string  `json:"schema_description"`
	Provider          string  `json:"provider"`
	Endpoint          string  `json:"endpoint"`
	Model             string  `json:"model"`
	Temperature       float64 `json:"temperature"`
	MaxTokens         int     `json:"max_tokens"`
	TimeoutSeconds    int     `json:"timeout_seconds"`
}

func (h *ConfigHandler) SavePromptConfig(c *gin.Context) {
	batchID := c.Param("id")

	var req promptConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	now := time.Now()
	cfg := &model.PromptConfig{
		BatchID:           batchID,
		Template:          req.Template,
		ResponseSchema:    req.ResponseSchema,
		SchemaDescription: req.SchemaDescription,
		Provider:          req.Provider,
		Endpoint:          req.Endpoint,
		Model:             req.Model,
		Temperature:       req.Temperature,
		MaxTokens:         req.MaxTokens,
		TimeoutSeconds:    req.TimeoutSeconds,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	if existing, err := h.prompts.FindPromptConfigByBatchID(c.Request.Context(), batchID); err == nil {
		cfg.CreatedAt = existing.CreatedAt
	}

	if err := h.prompts.SavePromptConfig(c.Request.Context(), cfg); err != nil {
		logger.Errorf("Failed to save prompt config for batch %s: %v", batchID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save prompt config"})
		return
	}
	c.JSON(http.StatusOK, cfg)
}

func (h *ConfigHandler) GetPromptConfig(c *gin.Context) {
	cfg, err := h.prompts.FindPromptConfigByBatchID(c.Request.Context(), c.Param("id"))
	if err != nil {
		if notFound(err) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Prompt config not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to look up prompt config"})
		return
	}
	c.JSON(http.StatusOK, cfg)
}

func (h *ConfigHandler) DeletePromptConfig(c *gin.Context) {
	batchID := c.Param("id")
	if err := h.prompts.DeletePromptConfig(c.Request.Context(), batchID); err != nil {
		if notFound(err) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Prompt config not found"})
			return
		}
		logger.Errorf("Failed to delete prompt config for batch %s: %v", batchID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete prompt config"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": batchID})
}

// --- Prompt tooling ---

type previewRequest struct {
	Template string                 `json:"template" binding:"required"`
	Record   map[string]interface{} `json:"record"`
}

func (h *ConfigHandler) PreviewPrompt(c *gin.Context) {
	var req previewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, h.engine.PreviewPrompt(req.Template, req.Record))
}

type validateRequest struct {
	Template        string   `json:"template" binding:"required"`
	DatasetID       string   `json:"dataset_id"`
	AvailableFields []string `json:"available_fields"`
}

// ValidatePrompt checks the template's placeholders against an explicit
// field list, or against the dataset's fields when a dataset ID is given.
func (h *ConfigHandler) ValidatePrompt(c *gin.Context) {
	var req validateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	available := req.AvailableFields
	if req.DatasetID != "" {
		fields, err := h.analytics.ListFields(c.Request.Context(), req.DatasetID)
		if err != nil {
			logger.Errorf("Failed to list fields for dataset %s: %v", req.DatasetID, err)
			c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to list dataset fields"})
			return
		}
		for _, f := range fields {
			available = append(available, f.Name)
		}
	}

	c.JSON(http.StatusOK, h.engine.Validate(req.Template, available))
}
