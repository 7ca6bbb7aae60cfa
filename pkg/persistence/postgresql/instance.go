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

// InstanceRepository stores workflow instances with a conditional update on
// the entity version column.
type InstanceRepository struct {
	db *sql.DB
}

func NewInstanceRepository(db *sql.DB) *InstanceRepository {
	return &InstanceRepository{db: db}
}

func (r *InstanceRepository) Create(ctx context.Context, instance *models.WorkflowInstance) error {
	data, err := json.Marshal(instance)
	if err != nil {
		return persistence.NewStoreError("Create", "instance", instance.ID, err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO workflow_instances (id, workflow_id, initiator_id, status, entity_version, data, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		instance.ID, instance.WorkflowID, instance.InitiatorID, instance.Status,
		instance.EntityVersion, data, instance.CreatedAt)
	if err != nil {
		return persistence.NewStoreError("Create", "instance", instance.ID, err)
	}

	return nil
}

func (r *InstanceRepository) GetByID(ctx context.Context, id string) (*models.WorkflowInstance, error) {
	var data []byte

	err := r.db.QueryRowContext(ctx,
		`SELECT data FROM workflow_instances WHERE id = $1`, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, persistence.ErrInstanceNotFound
	}

	if err != nil {
		return nil, persistence.NewStoreError("GetByID", "instance", id, err)
	}

	return unmarshalInstance(data)
}

// Update is a compare-and-swap on the entity version: the row is written
// only when the stored version still matches, then both the column and the
// document carry the incremented version.
func (r *InstanceRepository) Update(ctx context.Context, instance *models.WorkflowInstance) error {
	expected := instance.EntityVersion
	instance.EntityVersion = expected + 1

	data, err := json.Marshal(instance)
	if err != nil {
		instance.EntityVersion = expected

		return persistence.NewStoreError("Update", "instance", instance.ID, err)
	}

	result, err := r.db.ExecContext(ctx, `
		UPDATE workflow_instances
		SET status = $1, entity_version = $2, data = $3
		WHERE id = $4 AND entity_version = $5`,
		instance.Status, instance.EntityVersion, data, instance.ID, expected)
	if err != nil {
		instance.EntityVersion = expected

		return persistence.NewStoreError("Update", "instance", instance.ID, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		instance.EntityVersion = expected

		return persistence.NewStoreError("Update", "instance", instance.ID, err)
	}

	if affected == 0 {
		instance.EntityVersion = expected

		if _, getErr := r.GetByID(ctx, instance.ID); errors.Is(getErr, persistence.ErrInstanceNotFound) {
			return persistence.ErrInstanceNotFound
		}

		return persistence.NewStoreError("Update", "instance", instance.ID, persistence.ErrVersionConflict)
	}

	return nil
}

func (r *InstanceRepository) ListByInitiator(ctx context.Context, initiatorID string) ([]*models.WorkflowInstance, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT data FROM workflow_instances
		WHERE initiator_id = $1
		ORDER BY created_at DESC`, initiatorID)
	if err != nil {
		return nil, fmt.Errorf("failed to list instances: %w", err)
	}
	defer rows.Close()

	instances := make([]*models.WorkflowInstance, 0)

	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}

		instance, err := unmarshalInstance(data)
		if err != nil {
			return nil, err
		}

		instances = append(instances, instance)
	}

	return instances, rows.Err()
}

func unmarshalInstance(data []byte) (*models.WorkflowInstance, error) {
	var instance models.WorkflowInstance
	if err := json.Unmarshal(data, &instance); err != nil {
		return nil, fmt.Errorf("failed to unmarshal instance: %w", err)
	}

	return &instance, nil
}
