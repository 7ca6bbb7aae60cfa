package file

import (
	"context"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/beeflow/beeflow/pkg/models"
	"github.com/beeflow/beeflow/pkg/persistence"
)

// TaskRepository stores tasks as <root>/tasks/<id>.json.
type TaskRepository struct {
	root string
	mu   sync.Mutex
}

func NewTaskRepository(root string) *TaskRepository {
	return &TaskRepository{root: root}
}

func (tr *TaskRepository) path(id string) string {
	return filepath.Join(tr.root, "tasks", id+".json")
}

func (tr *TaskRepository) Create(_ context.Context, task *models.Task) error {
	tr.mu.Lock()
	defer tr.mu.Unlock()

	return writeJSON(tr.path(task.ID), task)
}

func (tr *TaskRepository) GetByID(_ context.Context, id string) (*models.Task, error) {
	var task models.Task

	err := readJSON(tr.path(id), &task, persistence.ErrTaskNotFound)
	if err != nil {
		return nil, err
	}

	return &task, nil
}

// Update is the conditional write guarding concurrent decisions: it succeeds
// only when the stored entity version matches, then increments the token.
func (tr *TaskRepository) Update(ctx context.Context, task *models.Task) error {
	tr.mu.Lock()
	defer tr.mu.Unlock()

	stored, err := tr.GetByID(ctx, task.ID)
	if err != nil {
		return err
	}

	if stored.EntityVersion != task.EntityVersion {
		return persistence.NewStoreError("Update", "task", task.ID, persistence.ErrVersionConflict)
	}

	task.EntityVersion++

	return writeJSON(tr.path(task.ID), task)
}

func (tr *TaskRepository) ListByInstance(ctx context.Context, instanceID string) ([]*models.Task, error) {
	return tr.list(ctx, func(task *models.Task) bool {
		return task.WorkflowInstanceID == instanceID
	})
}

func (tr *TaskRepository) ListPendingByInstance(ctx context.Context, instanceID string) ([]*models.Task, error) {
	return tr.list(ctx, func(task *models.Task) bool {
		return task.WorkflowInstanceID == instanceID && task.Status == models.TaskStatusPending
	})
}

func (tr *TaskRepository) ListPendingByUser(ctx context.Context, userID string) ([]*models.Task, error) {
	return tr.list(ctx, func(task *models.Task) bool {
		if task.Status != models.TaskStatusPending {
			return false
		}

		assignee := task.AssigneeByUser(userID)

		return assignee != nil && assignee.Status == models.TaskStatusPending
	})
}

func (tr *TaskRepository) ListOverdue(ctx context.Context, before time.Time) ([]*models.Task, error) {
	return tr.list(ctx, func(task *models.Task) bool {
		return task.Status == models.TaskStatusPending &&
			task.DueDate != nil && task.DueDate.Before(before)
	})
}

func (tr *TaskRepository) list(ctx context.Context, keep func(*models.Task) bool) ([]*models.Task, error) {
	dir := filepath.Join(tr.root, "tasks")

	files, err := listJSONFiles(dir)
	if err != nil {
		return nil, err
	}

	tasks := make([]*models.Task, 0)

	for _, file := range files {
		task, err := tr.GetByID(ctx, strings.TrimSuffix(file, ".json"))
		if err != nil {
			return nil, err
		}

		if keep(task) {
			tasks = append(tasks, task)
		}
	}

	// Highest priority first, oldest first within a priority.
	sort.Slice(tasks, func(i, j int) bool {
		if tasks[i].Priority != tasks[j].Priority {
			return tasks[i].Priority > tasks[j].Priority
		}

		return tasks[i].CreatedAt.Before(tasks[j].CreatedAt)
	})

	return tasks, nil
}
