package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/beeflow/beeflow/pkg/models"
	"github.com/beeflow/beeflow/pkg/persistence"
)

// TaskRepository stores tasks with the same conditional-update contract as
// InstanceRepository.
type TaskRepository struct {
	db *sql.DB
}

func NewTaskRepository(db *sql.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

func (r *TaskRepository) Create(ctx context.Context, task *models.Task) error {
	data, err := json.Marshal(task)
	if err != nil {
		return persistence.NewStoreError("Create", "task", task.ID, err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO tasks (id, workflow_instance_id, status, priority, due_date, entity_version, data, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		task.ID, task.WorkflowInstanceID, task.Status, task.Priority,
		task.DueDate, task.EntityVersion, data, task.CreatedAt)
	if err != nil {
		return persistence.NewStoreError("Create", "task", task.ID, err)
	}

	return nil
}

func (r *TaskRepository) GetByID(ctx context.Context, id string) (*models.Task, error) {
	var data []byte

	err := r.db.QueryRowContext(ctx, `SELECT data FROM tasks WHERE id = $1`, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, persistence.ErrTaskNotFound
	}

	if err != nil {
		return nil, persistence.NewStoreError("GetByID", "task", id, err)
	}

	return unmarshalTask(data)
}

// Update is a compare-and-swap on the entity version column.
func (r *TaskRepository) Update(ctx context.Context, task *models.Task) error {
	expected := task.EntityVersion
	task.EntityVersion = expected + 1

	data, err := json.Marshal(task)
	if err != nil {
		task.EntityVersion = expected

		return persistence.NewStoreError("Update", "task", task.ID, err)
	}

	result, err := r.db.ExecContext(ctx, `
		UPDATE tasks
		SET status = $1, entity_version = $2, data = $3
		WHERE id = $4 AND entity_version = $5`,
		task.Status, task.EntityVersion, data, task.ID, expected)
	if err != nil {
		task.EntityVersion = expected

		return persistence.NewStoreError("Update", "task", task.ID, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		task.EntityVersion = expected

		return persistence.NewStoreError("Update", "task", task.ID, err)
	}

	if affected == 0 {
		task.EntityVersion = expected

		if _, getErr := r.GetByID(ctx, task.ID); errors.Is(getErr, persistence.ErrTaskNotFound) {
			return persistence.ErrTaskNotFound
		}

		return persistence.NewStoreError("Update", "task", task.ID, persistence.ErrVersionConflict)
	}

	return nil
}

func (r *TaskRepository) ListByInstance(ctx context.Context, instanceID string) ([]*models.Task, error) {
	return r.list(ctx, `
		SELECT data FROM tasks
		WHERE workflow_instance_id = $1
		ORDER BY priority DESC, created_at ASC`, instanceID)
}

func (r *TaskRepository) ListPendingByInstance(ctx context.Context, instanceID string) ([]*models.Task, error) {
	return r.list(ctx, `
		SELECT data FROM tasks
		WHERE workflow_instance_id = $1 AND status = $2
		ORDER BY priority DESC, created_at ASC`, instanceID, models.TaskStatusPending)
}

// ListPendingByUser matches tasks whose assignee array contains a pending
// entry for the user, the cross-instance to-do view.
func (r *TaskRepository) ListPendingByUser(ctx context.Context, userID string) ([]*models.Task, error) {
	return r.list(ctx, `
		SELECT data FROM tasks
		WHERE status = $1
		AND data -> 'assignees' @> $2::jsonb
		ORDER BY priority DESC, created_at ASC`,
		models.TaskStatusPending,
		fmt.Sprintf(`[{"user_id": %q, "status": "PENDING"}]`, userID))
}

func (r *TaskRepository) ListOverdue(ctx context.Context, before time.Time) ([]*models.Task, error) {
	return r.list(ctx, `
		SELECT data FROM tasks
		WHERE status = $1 AND due_date IS NOT NULL AND due_date < $2
		ORDER BY due_date ASC`, models.TaskStatusPending, before)
}

func (r *TaskRepository) list(ctx context.Context, query string, args ...any) ([]*models.Task, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer rows.Close()

	tasks := make([]*models.Task, 0)

	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}

		task, err := unmarshalTask(data)
		if err != nil {
			return nil, err
		}

		tasks = append(tasks, task)
	}

	return tasks, rows.Err()
}

func unmarshalTask(data []byte) (*models.Task, error) {
	var task models.Task
	if err := json.Unmarshal(data, &task); err != nil {
		return nil, fmt.Errorf("failed to unmarshal task: %w", err)
	}

	return &task, nil
}
