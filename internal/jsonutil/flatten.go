package jsonutil

import (
	"encoding/json"
	"fmt"
)

// Flatten converts a nested object into a single-level map with dot-joined
// keys. Example: {"a": {"b": 1}} becomes {"a.b": 1}. Lists cannot be
// usefully flattened and are serialized to JSON strings.
func Flatten(obj map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{})
	flattenInto(out, "", obj)
	return out
}

func flattenInto(out map[string]interface{}, parentKey string, obj map[string]interface{}) {
	for key, value := range obj {
		newKey := key
		if parentKey != "" {
			newKey = parentKey + "." + key
		}

		switch v := value.(type) {
		case map[string]interface{}:
			flattenInto(out, newKey, v)
		case []interface{}:
			b, err := json.Marshal(v)
			if err != nil {
				out[newKey] = fmt.Sprintf("%v", v)
				continue
			}
			out[newKey] = string(b)
		default:
			out[newKey] = value
		}
	}
}
