// Package prompt implements the prompt template engine: variable
// substitution from record field values, template validation and previews.
package prompt

import (
	"fmt"
	"regexp"
	"strings"
)

// variablePattern matches {{Field_Name}} placeholders.
var variablePattern = regexp.MustCompile(`\{\{([^}]+)\}\}`)

// Engine renders prompt templates against record field values.
type Engine struct{}

// NewEngine creates a new prompt Engine.
func NewEngine() *Engine {
	return &Engine{}
}

// Render builds a prompt by replacing {{name}} placeholders with record
// field values. Missing, nil or empty values render as "[name: not provided]".
func (e *Engine) Render(template string, record map[string]interface{}) string {
	return variablePattern.ReplaceAllStringFunc(template, func(match string) string {
		name := strings.TrimSpace(variablePattern.FindStringSubmatch(match)[1])

		value, ok := record[name]
		if !ok || value == nil {
			return fmt.Sprintf("[%s: not provided]", name)
		}
		s := stringify(value)
		if s == "" {
			return fmt.Sprintf("[%s: not provided]", name)
		}
		return s
	})
}

// Variables extracts all placeholder names from a template, in order of
// appearance.
func (e *Engine) Variables(template string) []string {
	matches := variablePattern.FindAllStringSubmatch(template, -1)
	names := make([]string, 0, len(matches))
	for _, m := range matches {
		names = append(names, strings.TrimSpace(m[1]))
	}
	return names
}

// Validation reports whether every placeholder in a template maps to an
// available field.
type Validation struct {
	Valid         bool     `json:"valid"`
	MissingFields []string `json:"missing_fields"`
	UsedFields    []string `json:"used_fields"`
}

// Validate checks that all placeholders in the template correspond to
// available field names.
func (e *Engine) Validate(template string, availableFields []string) Validation {
	available := make(map[string]struct{}, len(availableFields))
	for _, f := range availableFields {
		available[f] = struct{}{}
	}

	variables := e.Variables(template)
	missing := make([]string, 0)
	for _, v := range variables {
		if _, ok := available[v]; !ok {
			missing = append(missing, v)
		}
	}

	return Validation{
		Valid:         len(missing) == 0,
		MissingFields: missing,
		UsedFields:    variables,
	}
}

// Substitution describes how a single placeholder resolved during a preview.
type Substitution struct {
	Value   interface{} `json:"value"`
	Present bool        `json:"present"`
}

// Preview describes a rendered template with per-placeholder detail.
type Preview struct {
	Template        string                  `json:"template"`
	CompletedPrompt string                  `json:"completed_prompt"`
	Variables       []string                `json:"variables"`
	Substitutions   map[string]Substitution `json:"substitutions"`
}

// PreviewPrompt renders a template against a record and reports how each
// placeholder resolved.
func (e *Engine) PreviewPrompt(template string, record map[string]interface{}) Preview {
	variables := e.Variables(template)
	substitutions := make(map[string]Substitution, len(variables))

	for _, v := range variables {
		value, ok := record[v]
		present := ok && value != nil && stringify(value) != ""
		substitutions[v] = Substitution{Value: value, Present: present}
	}

	return Preview{
		Template:        template,
		CompletedPrompt: e.Render(template, record),
		Variables:       variables,
		Substitutions:   substitutions,
	}
}

// stringify converts a record field value to its prompt representation.
func stringify(value interface{}) string {
	if s, ok := value.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", value)
}
