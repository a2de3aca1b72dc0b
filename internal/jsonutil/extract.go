// Package jsonutil provides helpers for recovering JSON objects from raw
// generation responses and flattening nested objects for tabular export.
package jsonutil

import (
	"encoding/json"
	"strings"
)

// schemaMetadataKeys are JSON-Schema metadata keys that generation backends
// sometimes echo back; they are stripped from recovered objects and never
// become export columns.
var schemaMetadataKeys = map[string]struct{}{
	"$schema":              {},
	"type":                 {},
	"properties":           {},
	"required":             {},
	"title":                {},
	"description":          {},
	"definitions":          {},
	"additionalProperties": {},
	"$id":                  {},
	"$ref":                 {},
	"items":                {},
}

// IsSchemaMetadataKey reports whether key is a JSON-Schema metadata key.
func IsSchemaMetadataKey(key string) bool {
	_, ok := schemaMetadataKeys[key]
	return ok
}

// Extract recovers a JSON object from a raw generation response, tolerating
// markdown code fences, chat special tokens and explanatory text around the
// object. The last '}' is located and brace counting walks backwards to its
// matching '{'; the JSON object is assumed to be the last thing in the
// response. Top-level schema metadata keys are removed from the recovered
// object before re-serialization.
//
// Extract never fails: when no '}' exists the trimmed input is returned, and
// when the brace-matched slice does not parse it is returned unmodified.
func Extract(response string) string {
	jsonStr := ExtractRaw(response)

	var parsed map[string]interface{}
	if err := json.Unmarshal([]byte(jsonStr), &parsed); err != nil {
		return jsonStr
	}
	for key := range parsed {
		if IsSchemaMetadataKey(key) {
			delete(parsed, key)
		}
	}
	cleaned, err := json.Marshal(parsed)
	if err != nil {
		return jsonStr
	}
	return string(cleaned)
}

// ExtractRaw locates the last brace-matched JSON object in a raw response and
// returns it as written, with no key filtering. When no object can be located
// the trimmed input is returned. Used where metadata keys are payload, such
// as recovered JSON schemas.
func ExtractRaw(response string) string {
	lastBrace := strings.LastIndex(response, "}")
	if lastBrace == -1 {
		return strings.TrimSpace(response)
	}

	braceCount := 0
	for i := lastBrace; i >= 0; i-- {
		switch response[i] {
		case '}':
			braceCount++
		case '{':
			braceCount--
			if braceCount == 0 {
				return response[i : lastBrace+1]
			}
		}
	}

	return strings.TrimSpace(response)
}
