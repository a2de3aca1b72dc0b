package llm

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/tigerroll/swell/internal/jsonutil"
	"github.com/tigerroll/swell/internal/support/exception"
)

// schemaPrompt instructs the backend to turn a natural-language description
// of the desired analysis output into a JSON schema.
const schemaPrompt = `Create a JSON Schema (draft-07) describing the structured output for the following analysis:

%DESCRIPTION%

Rules:
- Use only "object", "string", "number", "boolean" and "array" types.
- Every property needs a short "description".
- Respond ONLY with the JSON schema object, no explanatory text.`

// SchemaGenerator produces response JSON schemas from natural-language
// descriptions using the generation backend.
type SchemaGenerator struct {
	generator Generator
}

// NewSchemaGenerator creates a SchemaGenerator.
func NewSchemaGenerator(generator Generator) *SchemaGenerator {
	return &SchemaGenerator{generator: generator}
}

// GenerateSchema asks the backend for a JSON schema matching the description
// and returns it re-serialized. The description must not be empty; a response
// without a recoverable JSON object is an error.
func (s *SchemaGenerator) GenerateSchema(ctx context.Context, description string, opts Options) (string, error) {
	description = strings.TrimSpace(description)
	if description == "" {
		return "", exception.NewBatchErrorf(moduleName, "schema description must not be empty")
	}

	prompt := strings.Replace(schemaPrompt, "%DESCRIPTION%", description, 1)

	raw, err := s.generator.Generate(ctx, prompt, opts)
	if err != nil {
		return "", err
	}

	extracted := jsonutil.ExtractRaw(raw)
	var schema map[string]interface{}
	if err := json.Unmarshal([]byte(extracted), &schema); err != nil {
		return "", exception.NewBatchError(moduleName, "backend did not return a valid JSON schema", err, false, true)
	}

	serialized, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return "", exception.NewBatchError(moduleName, "failed to serialize generated schema", err, false, false)
	}
	return string(serialized), nil
}
