package models

import "time"

// FieldType enumerates the widget types a form field can take.
type FieldType string

const (
	FieldTypeSinglelineText FieldType = "SINGLELINE_TEXT"
	FieldTypeMultilineText  FieldType = "MULTILINE_TEXT"
	FieldTypeNumber         FieldType = "NUMBER"
	FieldTypeMoney          FieldType = "MONEY"
	FieldTypeSingleChoice   FieldType = "SINGLE_CHOICE"
	FieldTypeMultiChoice    FieldType = "MULTI_CHOICE"
	FieldTypeDate           FieldType = "DATE"
	FieldTypeDateRange      FieldType = "DATE_RANGE"
	FieldTypeDetail         FieldType = "DETAIL"
	FieldTypePicture        FieldType = "PICTURE"
	FieldTypeAttachment     FieldType = "ATTACHMENT"
	FieldTypeEmployee       FieldType = "EMPLOYEE"
	FieldTypeDepartment     FieldType = "DEPARTMENT"
)

// Valid reports whether t is a known field type.
func (t FieldType) Valid() bool {
	switch t {
	case FieldTypeSinglelineText, FieldTypeMultilineText, FieldTypeNumber, FieldTypeMoney,
		FieldTypeSingleChoice, FieldTypeMultiChoice, FieldTypeDate, FieldTypeDateRange,
		FieldTypeDetail, FieldTypePicture, FieldTypeAttachment, FieldTypeEmployee,
		FieldTypeDepartment:
		return true
	}

	return false
}

// FormField describes one field of a dynamic form schema. DETAIL fields nest
// sub-fields recursively.
type FormField struct {
	Name        string      `json:"name"  validate:"required"`
	Label       string      `json:"label" validate:"required"`
	Type        FieldType   `json:"type"  validate:"required"`
	Placeholder string      `json:"placeholder,omitempty"`
	Required    bool        `json:"required"`
	Options     []string    `json:"options,omitempty"` // Choice fields
	Unit        string      `json:"unit,omitempty"`    // Number/money fields
	Format      string      `json:"format,omitempty"`  // Date fields
	Details     []FormField `json:"details,omitempty"` // Detail sub-fields
}

// Form is a dynamic form schema attached to a workflow definition.
type Form struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"        validate:"required"`
	Description string      `json:"description,omitempty"`
	WorkflowID  string      `json:"workflow_id" validate:"required"`
	Fields      []FormField `json:"fields"      validate:"required,min=1"`
	Active      bool        `json:"active"`
	Version     int         `json:"version"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}
