package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tigerroll/swell/internal/integration/analytics"
	"github.com/tigerroll/swell/internal/integration/llm"
	"github.com/tigerroll/swell/internal/support/exception"
	"github.com/tigerroll/swell/internal/support/logger"
)

// AnalyticsHandler serves dataset browsing, backend connectivity and schema
// generation endpoints.
type AnalyticsHandler struct {
	analytics analytics.Client
	generator llm.Generator
	schemas   *llm.SchemaGenerator
}

// NewAnalyticsHandler creates an AnalyticsHandler.
func NewAnalyticsHandler(client analytics.Client, generator llm.Generator, schemas *llm.SchemaGenerator) *AnalyticsHandler {
	return &AnalyticsHandler{analytics: client, generator: generator, schemas: schemas}
}

// ListDatasets returns the datasets visible to the configured credentials.
func (h *AnalyticsHandler) ListDatasets(c *gin.Context) {
	datasets, err := h.analytics.ListDatasets(c.Request.Context())
	if err != nil {
		logger.Errorf("Failed to list datasets: %v", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to list datasets", "details": exception.ExtractErrorMessage(err)})
		return
	}
	c.JSON(http.StatusOK, gin.H{"datasets": datasets, "count": len(datasets)})
}

// ListFields returns the fields of a dataset.
func (h *AnalyticsHandler) ListFields(c *gin.Context) {
	datasetID := c.Param("id")

	fields, err := h.analytics.ListFields(c.Request.Context(), datasetID)
	if err != nil {
		logger.Errorf("Failed to list fields for dataset %s: %v", datasetID, err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to list dataset fields", "details": exception.ExtractErrorMessage(err)})
		return
	}
	c.JSON(http.StatusOK, gin.H{"fields": fields, "count": len(fields)})
}

type llmTestRequest struct {
	Provider       string `json:"provider"`
	Endpoint       string `json:"endpoint"`
	APIKey         string `json:"api_key"`
	Model          string `json:"model"`
	TimeoutSeconds int    `json:"timeout_seconds"`
}

// TestLLMConnection verifies the generation backend is reachable with the
// given (or configured) settings.
func (h *AnalyticsHandler) TestLLMConnection(c *gin.Context) {
	var req llmTestRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
			return
		}
	}

	opts := llm.Options{
		Provider: req.Provider,
		Endpoint: req.Endpoint,
		APIKey:   req.APIKey,
		Model:    req.Model,
		Timeout:  time.Duration(req.TimeoutSeconds) * time.Second,
	}

	if err := h.generator.TestConnection(c.Request.Context(), opts); err != nil {
		c.JSON(http.StatusOK, gin.H{"connected": false, "error": exception.ExtractErrorMessage(err)})
		return
	}
	c.JSON(http.StatusOK, gin.H{"connected": true})
}

type generateSchemaRequest struct {
	Description    string  `json:"description" binding:"required"`
	Provider       string  `json:"provider"`
	Endpoint       string  `json:"endpoint"`
	APIKey         string  `json:"api_key"`
	Model          string  `json:"model"`
	Temperature    float64 `json:"temperature"`
	MaxTokens      int     `json:"max_tokens"`
	TimeoutSeconds int     `json:"timeout_seconds"`
}

// GenerateSchema turns a natural-language description of the desired analysis
// output into a response JSON schema via the generation backend.
func (h *AnalyticsHandler) GenerateSchema(c *gin.Context) {
	var req generateSchemaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	opts := llm.Options{
		Provider:    req.Provider,
		Endpoint:    req.Endpoint,
		APIKey:      req.APIKey,
		Model:       req.Model,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
		Timeout:     time.Duration(req.TimeoutSeconds) * time.Second,
	}

	schema, err := h.schemas.GenerateSchema(c.Request.Context(), req.Description, opts)
	if err != nil {
		logger.Errorf("Failed to generate schema: %v", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to generate schema", "details": exception.ExtractErrorMessage(err)})
		return
	}
	c.JSON(http.StatusOK, gin.H{"schema": json.RawMessage(schema)})
}
