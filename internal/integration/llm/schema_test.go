package llm

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scriptedGenerator struct {
	response   string
	err        error
	lastPrompt string
}

func (g *scriptedGenerator) Generate(ctx context.Context, prompt string, opts Options) (string, error) {
	g.lastPrompt = prompt
	return g.response, g.err
}

func (g *scriptedGenerator) TestConnection(ctx context.Context, opts Options) error {
	return nil
}

func TestGenerateSchemaExtractsFromProse(t *testing.T) {
	generator := &scriptedGenerator{
		response: "Here is the schema:\n```json\n" +
			`{"$schema": "http://json-schema.org/draft-07/schema#", "type": "object", "properties": {"risk": {"type": "string", "description": "risk level"}}, "required": ["risk"]}` +
			"\n```",
	}

	schemas := NewSchemaGenerator(generator)

	serialized, err := schemas.GenerateSchema(context.Background(), "risk per claim", Options{})
	require.NoError(t, err)

	var schema map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(serialized), &schema))
	assert.Equal(t, "object", schema["type"])
	assert.Contains(t, schema, "$schema")
	assert.Contains(t, schema, "properties")
	assert.Contains(t, schema, "required")

	assert.Contains(t, generator.lastPrompt, "risk per claim")
	assert.Contains(t, generator.lastPrompt, "JSON Schema")
}

func TestGenerateSchemaEmptyDescription(t *testing.T) {
	schemas := NewSchemaGenerator(&scriptedGenerator{response: "{}"})

	_, err := schemas.GenerateSchema(context.Background(), "  ", Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "description")
}

func TestGenerateSchemaInvalidResponse(t *testing.T) {
	schemas := NewSchemaGenerator(&scriptedGenerator{response: "sorry, I cannot do that"})

	_, err := schemas.GenerateSchema(context.Background(), "risk per claim", Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "valid JSON schema")
}

func TestGenerateSchemaBackendError(t *testing.T) {
	schemas := NewSchemaGenerator(&scriptedGenerator{err: errors.New("backend exploded")})

	_, err := schemas.GenerateSchema(context.Background(), "risk per claim", Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "backend exploded")
}
