package services

import (
	"context"
	"fmt"
	"time"

	"github.com/beeflow/beeflow/pkg/forms"
	"github.com/beeflow/beeflow/pkg/models"
	"github.com/beeflow/beeflow/pkg/persistence"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// ErrFormNotFound is returned when a form is not found.
var ErrFormNotFound = persistence.ErrFormNotFound

// Form manages the dynamic form schemas attached to workflow definitions.
type Form struct {
	persistence persistence.Persistence
	validate    *validator.Validate
}

// NewForm creates a new form service.
func NewForm(persistence persistence.Persistence) *Form {
	return &Form{
		persistence: persistence,
		validate:    validator.New(),
	}
}

// Create validates and persists a new form schema for a workflow.
func (f *Form) Create(ctx context.Context, form *models.Form) (*models.Form, error) {
	if err := f.validateForm(form); err != nil {
		return nil, err
	}

	// The referenced workflow must exist.
	if _, err := f.persistence.WorkflowRepository().GetByID(ctx, form.WorkflowID); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	form.ID = uuid.New().String()
	form.Version = 1
	form.Active = true
	form.CreatedAt = now
	form.UpdatedAt = now

	if err := f.persistence.FormRepository().Save(ctx, form); err != nil {
		return nil, fmt.Errorf("failed to create form: %w", err)
	}

	return form, nil
}

// Update writes the changed schema as a new version of the same form.
func (f *Form) Update(ctx context.Context, formID string, form *models.Form) (*models.Form, error) {
	existing, err := f.persistence.FormRepository().GetByID(ctx, formID)
	if err != nil {
		return nil, err
	}

	if err := f.validateForm(form); err != nil {
		return nil, err
	}

	form.ID = formID
	form.WorkflowID = existing.WorkflowID
	form.Version = existing.Version + 1
	form.Active = existing.Active
	form.CreatedAt = existing.CreatedAt
	form.UpdatedAt = time.Now().UTC()

	if err := f.persistence.FormRepository().Save(ctx, form); err != nil {
		return nil, fmt.Errorf("failed to update form: %w", err)
	}

	return form, nil
}

// FetchByID retrieves a form by its ID.
func (f *Form) FetchByID(ctx context.Context, id string) (*models.Form, error) {
	return f.persistence.FormRepository().GetByID(ctx, id)
}

// FetchByWorkflow retrieves the active form attached to a workflow.
func (f *Form) FetchByWorkflow(ctx context.Context, workflowID string) (*models.Form, error) {
	return f.persistence.FormRepository().GetByWorkflow(ctx, workflowID)
}

// Delete removes a form by its ID.
func (f *Form) Delete(ctx context.Context, formID string) error {
	if _, err := f.persistence.FormRepository().GetByID(ctx, formID); err != nil {
		return err
	}

	if err := f.persistence.FormRepository().Delete(ctx, formID); err != nil {
		return fmt.Errorf("failed to delete form: %w", err)
	}

	return nil
}

func (f *Form) validateForm(form *models.Form) error {
	if form == nil {
		return ErrInvalidRequest
	}

	if err := f.validate.Struct(form); err != nil {
		return NewValidationError("validateForm", "INVALID_FORM", err.Error(), ErrInvalidRequest)
	}

	return forms.ValidateSchema(form)
}
