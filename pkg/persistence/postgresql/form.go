package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/beeflow/beeflow/pkg/models"
	"github.com/beeflow/beeflow/pkg/persistence"
)

// FormRepository stores versioned form schemas.
type FormRepository struct {
	db *sql.DB
}

func NewFormRepository(db *sql.DB) *FormRepository {
	return &FormRepository{db: db}
}

func (r *FormRepository) Save(ctx context.Context, form *models.Form) error {
	data, err := json.Marshal(form)
	if err != nil {
		return persistence.NewStoreError("Save", "form", form.ID, err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO forms (id, version, workflow_id, active, data, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		form.ID, form.Version, form.WorkflowID, form.Active, data, form.CreatedAt)
	if err != nil {
		return persistence.NewStoreError("Save", "form", form.ID, err)
	}

	return nil
}

func (r *FormRepository) GetByID(ctx context.Context, id string) (*models.Form, error) {
	var data []byte

	err := r.db.QueryRowContext(ctx,
		`SELECT data FROM forms WHERE id = $1 ORDER BY version DESC LIMIT 1`, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, persistence.ErrFormNotFound
	}

	if err != nil {
		return nil, persistence.NewStoreError("GetByID", "form", id, err)
	}

	return unmarshalForm(data)
}

func (r *FormRepository) GetByWorkflow(ctx context.Context, workflowID string) (*models.Form, error) {
	var data []byte

	err := r.db.QueryRowContext(ctx, `
		SELECT data FROM forms
		WHERE workflow_id = $1 AND active
		ORDER BY version DESC LIMIT 1`, workflowID).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, persistence.ErrFormNotFound
	}

	if err != nil {
		return nil, persistence.NewStoreError("GetByWorkflow", "form", workflowID, err)
	}

	return unmarshalForm(data)
}

func (r *FormRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM forms WHERE id = $1`, id)
	if err != nil {
		return persistence.NewStoreError("Delete", "form", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return persistence.NewStoreError("Delete", "form", id, err)
	}

	if affected == 0 {
		return persistence.ErrFormNotFound
	}

	return nil
}

func unmarshalForm(data []byte) (*models.Form, error) {
	var form models.Form
	if err := json.Unmarshal(data, &form); err != nil {
		return nil, fmt.Errorf("failed to unmarshal form: %w", err)
	}

	return &form, nil
}
