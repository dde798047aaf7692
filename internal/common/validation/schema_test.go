package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSchema = map[string]interface{}{
	"type":     "object",
	"required": []interface{}{"serviceUrls"},
	"properties": map[string]interface{}{
		"serviceUrls": map[string]interface{}{
			"type":     "array",
			"minItems": 1,
			"items":    map[string]interface{}{"type": "string", "minLength": 1},
		},
		"maxFeatures": map[string]interface{}{"type": "integer", "minimum": 0},
		"bbox": map[string]interface{}{
			"type":     "object",
			"required": []interface{}{"minX"},
			"properties": map[string]interface{}{
				"minX": map[string]interface{}{"type": "number"},
			},
		},
	},
}

func TestValidateInput(t *testing.T) {
	tests := []struct {
		name      string
		input     map[string]interface{}
		wantValid bool
		wantField string
	}{
		{
			name:      "valid",
			input:     map[string]interface{}{"serviceUrls": []interface{}{"http://a.example.org/wfs"}, "maxFeatures": float64(10)},
			wantValid: true,
		},
		{
			name:      "missing required",
			input:     map[string]interface{}{},
			wantValid: false,
		},
		{
			name:      "nil input",
			input:     nil,
			wantValid: false,
		},
		{
			name:      "wrong type",
			input:     map[string]interface{}{"serviceUrls": "http://a.example.org/wfs"},
			wantValid: false,
			wantField: "serviceUrls",
		},
		{
			name:      "negative maxFeatures",
			input:     map[string]interface{}{"serviceUrls": []interface{}{"x"}, "maxFeatures": float64(-1)},
			wantValid: false,
			wantField: "maxFeatures",
		},
		{
			name:      "nested object",
			input:     map[string]interface{}{"serviceUrls": []interface{}{"x"}, "bbox": map[string]interface{}{"minX": "east"}},
			wantValid: false,
			wantField: "bbox.minX",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := ValidateInput(tt.input, testSchema)
			require.NoError(t, err)
			assert.Equal(t, tt.wantValid, result.Valid)
			if tt.wantField != "" {
				assert.True(t, result.HasErrors(tt.wantField), "errors: %v", result.GetErrorMessages())
			}
		})
	}
}

func TestValidateInput_RequiredMessage(t *testing.T) {
	result, err := ValidateInput(map[string]interface{}{}, testSchema)
	require.NoError(t, err)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "required", result.Errors[0].Code)
	assert.True(t, strings.Contains(strings.Join(result.GetErrorMessages(), ";"), "serviceUrls"))
}

func TestValidateInput_EmptySchemaAcceptsAnything(t *testing.T) {
	result, err := ValidateInput(map[string]interface{}{"x": 1}, nil)
	require.NoError(t, err)
	assert.True(t, result.Valid)
}

func TestCompileSchema(t *testing.T) {
	assert.NoError(t, CompileSchema(testSchema))
	assert.Error(t, CompileSchema(map[string]interface{}{"type": 42}))
}

func TestGetErrorsForField(t *testing.T) {
	vr := &ValidationResult{Errors: []ValidationError{
		{Field: "bbox.minX"}, {Field: "bbox"}, {Field: "bboxes"}, {Field: "maxFeatures"},
	}}
	assert.Len(t, vr.GetErrorsForField("bbox"), 2)
}
