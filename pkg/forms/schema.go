package forms

import (
	"fmt"
	"strings"

	"github.com/beeflow/beeflow/pkg/models"
	"github.com/xeipuuv/gojsonschema"
)

// DataError reports submitted data failing its form schema.
type DataError struct {
	Violations []string
}

func (e *DataError) Error() string {
	return "form data does not match schema: " + strings.Join(e.Violations, "; ")
}

// BuildJSONSchema derives a draft-07 JSON schema document from a form's
// fields. Submitted data is validated against it before an instance starts.
func BuildJSONSchema(form *models.Form) map[string]any {
	return objectSchema(form.Fields)
}

// ValidateData checks submitted form data against the form's derived schema.
// Violations are collected into one DataError rather than failing fast, so
// the submitter sees every problem at once.
func ValidateData(form *models.Form, data map[string]any) error {
	schemaLoader := gojsonschema.NewGoLoader(BuildJSONSchema(form))
	dataLoader := gojsonschema.NewGoLoader(data)

	result, err := gojsonschema.Validate(schemaLoader, dataLoader)
	if err != nil {
		return fmt.Errorf("failed to validate form data: %w", err)
	}

	if result.Valid() {
		return nil
	}

	violations := make([]string, 0, len(result.Errors()))
	for _, violation := range result.Errors() {
		violations = append(violations, violation.String())
	}

	return &DataError{Violations: violations}
}

func objectSchema(fields []models.FormField) map[string]any {
	properties := make(map[string]any, len(fields))
	required := make([]string, 0, len(fields))

	for _, field := range fields {
		properties[field.Name] = fieldSchema(field)

		if field.Required {
			required = append(required, field.Name)
		}
	}

	schema := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}

	return schema
}

func fieldSchema(field models.FormField) map[string]any {
	switch field.Type {
	case models.FieldTypeNumber, models.FieldTypeMoney:
		return map[string]any{"type": "number"}

	case models.FieldTypeSingleChoice:
		return map[string]any{"type": "string", "enum": toAnySlice(field.Options)}

	case models.FieldTypeMultiChoice:
		return map[string]any{
			"type":  "array",
			"items": map[string]any{"type": "string", "enum": toAnySlice(field.Options)},
		}

	case models.FieldTypeDateRange:
		return map[string]any{
			"type":     "array",
			"items":    map[string]any{"type": "string"},
			"minItems": 2,
			"maxItems": 2,
		}

	case models.FieldTypeDetail:
		return map[string]any{
			"type":  "array",
			"items": objectSchema(field.Details),
		}

	case models.FieldTypeAttachment, models.FieldTypePicture:
		return map[string]any{
			"type":  "array",
			"items": map[string]any{"type": "string"},
		}

	default:
		// Text, date, employee, and department values travel as strings.
		return map[string]any{"type": "string"}
	}
}

func toAnySlice(values []string) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}

	return out
}
