// Package llm implements the generation backend client. It supports a local
// completion server ("lm_studio") and chat-completion providers ("openai",
// "copilot") behind a single Generator interface.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	config "github.com/tigerroll/swell/internal/core/config"
	"github.com/tigerroll/swell/internal/support/exception"
	"github.com/tigerroll/swell/internal/support/logger"
)

const moduleName = "llm"

// Supported provider names.
const (
	ProviderLMStudio = "lm_studio"
	ProviderOpenAI   = "openai"
	ProviderCopilot  = "copilot"
)

// defaultOpenAIEndpoint is used for the openai provider when no endpoint is
// configured.
const defaultOpenAIEndpoint = "https://api.openai.com"

// Options holds per-call generation parameters. Zero values fall back to the
// configured defaults.
type Options struct {
	Provider    string
	Endpoint    string
	APIKey      string
	Model       string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
}

// Generator is the interface to a generation backend.
type Generator interface {
	// Generate sends a prompt and returns the raw response text.
	Generate(ctx context.Context, prompt string, opts Options) (string, error)
	// TestConnection verifies the backend is reachable.
	TestConnection(ctx context.Context, opts Options) error
}

// HTTPGenerator is the HTTP implementation of Generator.
type HTTPGenerator struct {
	defaults   config.LLMConfig
	httpClient *http.Client
}

var _ Generator = (*HTTPGenerator)(nil)

// NewHTTPGenerator creates an HTTPGenerator from the application configuration.
func NewHTTPGenerator(cfg *config.Config) *HTTPGenerator {
	return &HTTPGenerator{
		defaults:   cfg.Swell.LLM,
		httpClient: &http.Client{},
	}
}

// resolve merges per-call options over the configured defaults.
func (g *HTTPGenerator) resolve(opts Options) Options {
	if opts.Provider == "" {
		opts.Provider = g.defaults.Provider
	}
	if opts.Endpoint == "" {
		opts.Endpoint = g.defaults.Endpoint
	}
	if opts.APIKey == "" {
		opts.APIKey = g.defaults.APIKey
	}
	if opts.Model == "" {
		opts.Model = g.defaults.Model
	}
	if opts.Temperature == 0 {
		opts.Temperature = g.defaults.Temperature
	}
	if opts.MaxTokens == 0 {
		opts.MaxTokens = g.defaults.MaxTokens
	}
	if opts.Timeout == 0 {
		opts.Timeout = time.Duration(g.defaults.TimeoutSeconds) * time.Second
	}
	if opts.Provider == ProviderOpenAI && opts.Endpoint == "" {
		opts.Endpoint = defaultOpenAIEndpoint
	}
	return opts
}

// Generate sends a prompt to the configured provider and returns the raw
// response text.
func (g *HTTPGenerator) Generate(ctx context.Context, prompt string, opts Options) (string, error) {
	opts = g.resolve(opts)

	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	switch opts.Provider {
	case ProviderLMStudio:
		return g.generateCompletion(ctx, prompt, opts)
	case ProviderOpenAI, ProviderCopilot:
		return g.generateChat(ctx, prompt, opts)
	default:
		return "", exception.NewBatchErrorf(moduleName, "unsupported provider '%s'", opts.Provider)
	}
}

// generateCompletion calls the local completion endpoint (LM Studio style).
func (g *HTTPGenerator) generateCompletion(ctx context.Context, prompt string, opts Options) (string, error) {
	payload := map[string]interface{}{
		"prompt":      prompt,
		"temperature": opts.Temperature,
		"max_tokens":  opts.MaxTokens,
		"stop":        []string{},
	}

	var result struct {
		Choices []struct {
			Text string `json:"text"`
		} `json:"choices"`
	}
	url := strings.TrimRight(opts.Endpoint, "/") + "/v1/completions"
	if err := g.postJSON(ctx, url, "", payload, &result); err != nil {
		return "", err
	}

	if len(result.Choices) == 0 {
		return "", exception.NewBatchErrorf(moduleName, "completion response from %s contained no choices", url)
	}
	return result.Choices[0].Text, nil
}

// generateChat calls a chat-completions endpoint (OpenAI style).
func (g *HTTPGenerator) generateChat(ctx context.Context, prompt string, opts Options) (string, error) {
	payload := map[string]interface{}{
		"model": opts.Model,
		"messages": []map[string]string{
			{"role": "user", "content": prompt},
		},
		"temperature": opts.Temperature,
		"max_tokens":  opts.MaxTokens,
	}

	var result struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	url := strings.TrimRight(opts.Endpoint, "/") + "/v1/chat/completions"
	if err := g.postJSON(ctx, url, opts.APIKey, payload, &result); err != nil {
		return "", err
	}

	if len(result.Choices) == 0 {
		return "", exception.NewBatchErrorf(moduleName, "chat response from %s contained no choices", url)
	}
	return result.Choices[0].Message.Content, nil
}

// postJSON posts a JSON payload and decodes the JSON response into out.
func (g *HTTPGenerator) postJSON(ctx context.Context, url, apiKey string, payload interface{}, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return exception.NewBatchError(moduleName, "failed to marshal request payload", err, false, false)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return exception.NewBatchError(moduleName, fmt.Sprintf("failed to create request for %s", url), err, false, false)
	}
	req.Header.Set("Content-Type", "application/json")
	if apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+apiKey)
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return exception.NewBatchError(moduleName, fmt.Sprintf("request to %s failed", url), err, false, true)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		retryable := resp.StatusCode >= 500
		return exception.NewBatchErrorf(moduleName, "%s returned status %d: %s", url, resp.StatusCode, string(detail), false, retryable)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return exception.NewBatchError(moduleName, fmt.Sprintf("failed to decode response from %s", url), err, false, false)
	}
	return nil
}

// TestConnection verifies the backend is reachable by listing its models.
func (g *HTTPGenerator) TestConnection(ctx context.Context, opts Options) error {
	opts = g.resolve(opts)

	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	url := strings.TrimRight(opts.Endpoint, "/") + "/v1/models"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return exception.NewBatchError(moduleName, fmt.Sprintf("failed to create request for %s", url), err, false, false)
	}
	if opts.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+opts.APIKey)
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return exception.NewBatchError(moduleName, fmt.Sprintf("provider '%s' is unreachable at %s", opts.Provider, opts.Endpoint), err, false, true)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return exception.NewBatchErrorf(moduleName, "provider '%s' returned status %d from %s", opts.Provider, resp.StatusCode, url)
	}

	logger.Debugf("Provider '%s' is reachable at %s.", opts.Provider, opts.Endpoint)
	return nil
}
