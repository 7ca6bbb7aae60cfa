// Package forms validates dynamic form schemas and the data submitted
// against them.
package forms

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/beeflow/beeflow/pkg/models"
)

var fieldNamePattern = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)

// Accepted date formats for DATE and DATE_RANGE fields.
var dateFormats = map[string]bool{
	"YYYY-MM-DD":       true,
	"YYYY-MM-DD HH:mm": true,
}

// FieldError reports a schema violation on one field.
type FieldError struct {
	FieldName string
	Reason    string
}

func (e *FieldError) Error() string {
	if e.FieldName == "" {
		return "invalid form schema: " + e.Reason
	}

	return fmt.Sprintf("invalid form schema: field %q: %s", e.FieldName, e.Reason)
}

// IsFieldError checks whether err is a form schema violation.
func IsFieldError(err error) bool {
	var target *FieldError

	return errors.As(err, &target)
}

// ValidateSchema checks a form's field list for structural violations. Field
// names must be unique at each nesting level; DETAIL fields recurse one level
// of sub-fields at a time.
func ValidateSchema(form *models.Form) error {
	if len(form.Fields) == 0 {
		return &FieldError{Reason: "form must have at least one field"}
	}

	return validateFields(form.Fields)
}

func validateFields(fields []models.FormField) error {
	seen := make(map[string]bool, len(fields))

	for _, field := range fields {
		if err := validateField(field); err != nil {
			return err
		}

		if seen[field.Name] {
			return &FieldError{FieldName: field.Name, Reason: "duplicate field name"}
		}

		seen[field.Name] = true
	}

	return nil
}

func validateField(field models.FormField) error {
	if field.Name == "" {
		return &FieldError{Reason: "field name is required"}
	}

	if !fieldNamePattern.MatchString(field.Name) {
		return &FieldError{FieldName: field.Name, Reason: "field name must be alphanumeric or underscore"}
	}

	if field.Label == "" {
		return &FieldError{FieldName: field.Name, Reason: "field label is required"}
	}

	if !field.Type.Valid() {
		return &FieldError{FieldName: field.Name, Reason: fmt.Sprintf("unknown field type %q", field.Type)}
	}

	switch field.Type {
	case models.FieldTypeSingleChoice, models.FieldTypeMultiChoice:
		if len(field.Options) == 0 {
			return &FieldError{FieldName: field.Name, Reason: "choice field must have options"}
		}

	case models.FieldTypeNumber, models.FieldTypeMoney:
		if len(field.Unit) > 8 {
			return &FieldError{FieldName: field.Name, Reason: "unit must be at most 8 characters"}
		}

	case models.FieldTypeDate, models.FieldTypeDateRange:
		if field.Format != "" && !dateFormats[field.Format] {
			return &FieldError{FieldName: field.Name, Reason: fmt.Sprintf("unsupported date format %q", field.Format)}
		}

	case models.FieldTypeDetail:
		if len(field.Details) == 0 {
			return &FieldError{FieldName: field.Name, Reason: "detail field must have sub-fields"}
		}

		for _, sub := range field.Details {
			if sub.Type == models.FieldTypeDetail {
				return &FieldError{FieldName: sub.Name, Reason: "detail fields cannot nest further detail fields"}
			}
		}

		if err := validateFields(field.Details); err != nil {
			return err
		}
	}

	return nil
}
