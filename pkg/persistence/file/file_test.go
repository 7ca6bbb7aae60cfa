package file

import (
	"testing"
	"time"

	"github.com/beeflow/beeflow/pkg/models"
	"github.com/beeflow/beeflow/pkg/persistence"
	"github.com/beeflow/beeflow/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkflowRepository_SaveRejectsDuplicateVersion(t *testing.T) {
	repo := NewPersistence(t.TempDir()).WorkflowRepository()

	workflow := testutil.CreateTestWorkflow(testutil.CreateTestNode())
	workflow.ID = "wf-1"

	require.NoError(t, repo.Save(t.Context(), workflow))

	err := repo.Save(t.Context(), workflow)
	assert.ErrorIs(t, err, persistence.ErrWorkflowVersionExists)
}

func TestWorkflowRepository_GetByIDReturnsLatestVersion(t *testing.T) {
	repo := NewPersistence(t.TempDir()).WorkflowRepository()

	v1 := testutil.CreateTestWorkflow(testutil.CreateTestNode())
	v1.ID = "wf-1"
	v1.Name = "first"
	require.NoError(t, repo.Save(t.Context(), v1))

	v2 := testutil.CreateTestWorkflow(testutil.CreateTestNode())
	v2.ID = "wf-1"
	v2.Name = "second"
	v2.Version = 2
	require.NoError(t, repo.Save(t.Context(), v2))

	latest, err := repo.GetByID(t.Context(), "wf-1")
	require.NoError(t, err)
	assert.Equal(t, 2, latest.Version)
	assert.Equal(t, "second", latest.Name)

	pinned, err := repo.GetVersion(t.Context(), "wf-1", 1)
	require.NoError(t, err)
	assert.Equal(t, "first", pinned.Name)
}

func TestWorkflowRepository_GetVersionMissing(t *testing.T) {
	repo := NewPersistence(t.TempDir()).WorkflowRepository()

	_, err := repo.GetVersion(t.Context(), "wf-1", 7)
	assert.ErrorIs(t, err, persistence.ErrWorkflowVersionNotFound)
}

func TestWorkflowRepository_DeleteMissing(t *testing.T) {
	repo := NewPersistence(t.TempDir()).WorkflowRepository()

	err := repo.Delete(t.Context(), "nope")
	assert.True(t, persistence.IsNotFound(err))
}

func TestInstanceRepository_UpdateDetectsConflict(t *testing.T) {
	repo := NewPersistence(t.TempDir()).InstanceRepository()

	instance := &models.WorkflowInstance{
		ID:          "inst-1",
		WorkflowID:  "wf-1",
		InitiatorID: "user-1",
		Status:      models.InstanceStatusRunning,
		CreatedAt:   time.Now().UTC(),
	}
	require.NoError(t, repo.Create(t.Context(), instance))

	// Two readers load the same version.
	first, err := repo.GetByID(t.Context(), "inst-1")
	require.NoError(t, err)

	second, err := repo.GetByID(t.Context(), "inst-1")
	require.NoError(t, err)

	first.Status = models.InstanceStatusCompleted
	require.NoError(t, repo.Update(t.Context(), first))
	assert.Equal(t, 1, first.EntityVersion)

	second.Status = models.InstanceStatusCanceled
	err = repo.Update(t.Context(), second)
	assert.True(t, persistence.IsVersionConflict(err))

	stored, err := repo.GetByID(t.Context(), "inst-1")
	require.NoError(t, err)
	assert.Equal(t, models.InstanceStatusCompleted, stored.Status)
}

func TestTaskRepository_ListOrdering(t *testing.T) {
	repo := NewPersistence(t.TempDir()).TaskRepository()

	base := time.Now().UTC()

	low := &models.Task{
		ID: "task-low", WorkflowInstanceID: "inst-1", Type: models.TaskTypeApproval,
		Status: models.TaskStatusPending, Priority: 0, CreatedAt: base,
	}
	high := &models.Task{
		ID: "task-high", WorkflowInstanceID: "inst-1", Type: models.TaskTypeApproval,
		Status: models.TaskStatusPending, Priority: 5, CreatedAt: base.Add(time.Minute),
	}

	require.NoError(t, repo.Create(t.Context(), low))
	require.NoError(t, repo.Create(t.Context(), high))

	tasks, err := repo.ListByInstance(t.Context(), "inst-1")
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	assert.Equal(t, "task-high", tasks[0].ID)
	assert.Equal(t, "task-low", tasks[1].ID)
}

func TestTaskRepository_ListPendingByUserRequiresPendingEntry(t *testing.T) {
	repo := NewPersistence(t.TempDir()).TaskRepository()

	task := &models.Task{
		ID: "task-1", WorkflowInstanceID: "inst-1", Type: models.TaskTypeApproval,
		Status: models.TaskStatusPending, CreatedAt: time.Now().UTC(),
		Assignees: []models.TaskAssignee{
			{UserID: "user-1", Status: models.TaskStatusApproved},
			{UserID: "user-2", Status: models.TaskStatusPending},
		},
	}
	require.NoError(t, repo.Create(t.Context(), task))

	// user-1 already decided, the task leaves their inbox.
	tasks, err := repo.ListPendingByUser(t.Context(), "user-1")
	require.NoError(t, err)
	assert.Empty(t, tasks)

	tasks, err = repo.ListPendingByUser(t.Context(), "user-2")
	require.NoError(t, err)
	assert.Len(t, tasks, 1)
}

func TestTaskRepository_ListOverdue(t *testing.T) {
	repo := NewPersistence(t.TempDir()).TaskRepository()

	now := time.Now().UTC()
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	overdue := &models.Task{
		ID: "task-overdue", WorkflowInstanceID: "inst-1", Type: models.TaskTypeApproval,
		Status: models.TaskStatusPending, DueDate: &past, CreatedAt: now,
	}
	onTime := &models.Task{
		ID: "task-ontime", WorkflowInstanceID: "inst-1", Type: models.TaskTypeApproval,
		Status: models.TaskStatusPending, DueDate: &future, CreatedAt: now,
	}
	resolved := &models.Task{
		ID: "task-done", WorkflowInstanceID: "inst-1", Type: models.TaskTypeApproval,
		Status: models.TaskStatusApproved, DueDate: &past, CreatedAt: now,
	}

	require.NoError(t, repo.Create(t.Context(), overdue))
	require.NoError(t, repo.Create(t.Context(), onTime))
	require.NoError(t, repo.Create(t.Context(), resolved))

	tasks, err := repo.ListOverdue(t.Context(), now)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "task-overdue", tasks[0].ID)
}

func TestFormRepository_GetByWorkflowReturnsLatestActive(t *testing.T) {
	repo := NewPersistence(t.TempDir()).FormRepository()

	v1 := &models.Form{ID: "form-1", WorkflowID: "wf-1", Name: "v1", Version: 1, Active: true}
	v2 := &models.Form{ID: "form-1", WorkflowID: "wf-1", Name: "v2", Version: 2, Active: true}

	require.NoError(t, repo.Save(t.Context(), v1))
	require.NoError(t, repo.Save(t.Context(), v2))

	form, err := repo.GetByWorkflow(t.Context(), "wf-1")
	require.NoError(t, err)
	assert.Equal(t, "v2", form.Name)
}

func TestFormRepository_GetByWorkflowMissing(t *testing.T) {
	repo := NewPersistence(t.TempDir()).FormRepository()

	_, err := repo.GetByWorkflow(t.Context(), "wf-1")
	assert.ErrorIs(t, err, persistence.ErrFormNotFound)
}
