package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	config "github.com/tigerroll/swell/internal/core/config"
)

func generatorConfig() *config.Config {
	return config.NewConfig()
}

func TestGenerateCompletionProvider(t *testing.T) {
	var gotBody map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/completions", r.URL.Path)
		assert.Empty(t, r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []map[string]string{{"text": `{"risk": "low"}`}},
		})
	}))
	defer server.Close()

	g := NewHTTPGenerator(generatorConfig())

	result, err := g.Generate(context.Background(), "analyze this", Options{
		Provider:    ProviderLMStudio,
		Endpoint:    server.URL,
		Temperature: 0.2,
		MaxTokens:   100,
	})
	require.NoError(t, err)
	assert.Equal(t, `{"risk": "low"}`, result)

	assert.Equal(t, "analyze this", gotBody["prompt"])
	assert.Equal(t, 0.2, gotBody["temperature"])
	assert.Equal(t, float64(100), gotBody["max_tokens"])
	assert.Equal(t, []interface{}{}, gotBody["stop"])
}

func TestGenerateChatProvider(t *testing.T) {
	var gotBody map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer key-1", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]string{"content": "chat says hi"}},
			},
		})
	}))
	defer server.Close()

	g := NewHTTPGenerator(generatorConfig())

	result, err := g.Generate(context.Background(), "hello", Options{
		Provider: ProviderOpenAI,
		Endpoint: server.URL,
		APIKey:   "key-1",
		Model:    "gpt-4",
	})
	require.NoError(t, err)
	assert.Equal(t, "chat says hi", result)

	assert.Equal(t, "gpt-4", gotBody["model"])
	messages, ok := gotBody["messages"].([]interface{})
	require.True(t, ok)
	require.Len(t, messages, 1)
	message := messages[0].(map[string]interface{})
	assert.Equal(t, "user", message["role"])
	assert.Equal(t, "hello", message["content"])
}

func TestGenerateDefaultsFromConfig(t *testing.T) {
	var gotBody map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []map[string]string{{"text": "ok"}},
		})
	}))
	defer server.Close()

	cfg := generatorConfig()
	cfg.Swell.LLM.Endpoint = server.URL
	g := NewHTTPGenerator(cfg)

	_, err := g.Generate(context.Background(), "p", Options{})
	require.NoError(t, err)

	// Configured defaults applied: lm_studio provider, temperature 0.7,
	// max_tokens 4000.
	assert.Equal(t, 0.7, gotBody["temperature"])
	assert.Equal(t, float64(4000), gotBody["max_tokens"])
}

func TestGenerateUnsupportedProvider(t *testing.T) {
	g := NewHTTPGenerator(generatorConfig())

	_, err := g.Generate(context.Background(), "p", Options{Provider: "mystery"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported provider")
}

func TestGenerateEmptyChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{"choices": []interface{}{}})
	}))
	defer server.Close()

	g := NewHTTPGenerator(generatorConfig())

	_, err := g.Generate(context.Background(), "p", Options{
		Provider: ProviderLMStudio,
		Endpoint: server.URL,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no choices")
}

func TestGenerateServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	g := NewHTTPGenerator(generatorConfig())

	_, err := g.Generate(context.Background(), "p", Options{
		Provider: ProviderLMStudio,
		Endpoint: server.URL,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}

func TestTestConnection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/models", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]interface{}{"data": []interface{}{}})
	}))
	defer server.Close()

	g := NewHTTPGenerator(generatorConfig())

	err := g.TestConnection(context.Background(), Options{
		Provider: ProviderLMStudio,
		Endpoint: server.URL,
	})
	assert.NoError(t, err)
}

func TestTestConnectionUnreachable(t *testing.T) {
	g := NewHTTPGenerator(generatorConfig())

	err := g.TestConnection(context.Background(), Options{
		Provider: ProviderLMStudio,
		Endpoint: "http://127.0.0.1:1",
	})
	assert.Error(t, err)
}
