package jsonutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFlattenNestedObjects(t *testing.T) {
	input := map[string]interface{}{
		"top": "value",
		"surgeryRelatedDetails": map[string]interface{}{
			"primaryProcedure": "appendectomy",
			"details": map[string]interface{}{
				"anesthesia": "general",
			},
		},
	}

	flat := Flatten(input)

	assert.Equal(t, "value", flat["top"])
	assert.Equal(t, "appendectomy", flat["surgeryRelatedDetails.primaryProcedure"])
	assert.Equal(t, "general", flat["surgeryRelatedDetails.details.anesthesia"])
}

func TestFlattenSerializesLists(t *testing.T) {
	input := map[string]interface{}{
		"codes": []interface{}{"A1", "B2"},
	}

	flat := Flatten(input)

	assert.Equal(t, `["A1","B2"]`, flat["codes"])
}

func TestFlattenScalarsPassThrough(t *testing.T) {
	input := map[string]interface{}{
		"n":    float64(3),
		"b":    true,
		"none": nil,
	}

	flat := Flatten(input)

	assert.Equal(t, float64(3), flat["n"])
	assert.Equal(t, true, flat["b"])
	assert.Nil(t, flat["none"])
}
