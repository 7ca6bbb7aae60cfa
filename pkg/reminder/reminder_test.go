package reminder

import (
	"log/slog"
	"testing"
	"time"

	"github.com/beeflow/beeflow/pkg/models"
	"github.com/beeflow/beeflow/pkg/persistence/file"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestScanner(t *testing.T, config Config) (*Scanner, *file.Persistence) {
	t.Helper()

	store := file.NewPersistence(t.TempDir())

	scanner, err := NewScanner(store.TaskRepository(), config, slog.New(slog.DiscardHandler))
	require.NoError(t, err)

	return scanner, store
}

func TestNewScanner_DefaultsCronAndStream(t *testing.T) {
	scanner, _ := newTestScanner(t, Config{})

	assert.Equal(t, "*/5 * * * *", scanner.config.CronExpr)
	assert.Equal(t, "beeflow.reminders", scanner.config.Stream)
}

func TestNewScanner_RejectsInvalidCron(t *testing.T) {
	store := file.NewPersistence(t.TempDir())

	_, err := NewScanner(store.TaskRepository(), Config{CronExpr: "not a cron"}, slog.New(slog.DiscardHandler))
	assert.Error(t, err)
}

func TestScan_NoOverdueTasks(t *testing.T) {
	scanner, store := newTestScanner(t, Config{})

	due := time.Now().UTC().Add(time.Hour)
	task := &models.Task{
		ID:                 uuid.New().String(),
		WorkflowInstanceID: uuid.New().String(),
		Type:               models.TaskTypeApproval,
		Status:             models.TaskStatusPending,
		DueDate:            &due,
		CreatedAt:          time.Now().UTC(),
	}
	require.NoError(t, store.TaskRepository().Create(t.Context(), task))

	assert.NoError(t, scanner.Scan(t.Context()))
}

func TestScan_SkipsAlreadyNotifiedTasks(t *testing.T) {
	scanner, store := newTestScanner(t, Config{})

	due := time.Now().UTC().Add(-time.Hour)
	task := &models.Task{
		ID:                 uuid.New().String(),
		WorkflowInstanceID: uuid.New().String(),
		Type:               models.TaskTypeApproval,
		Status:             models.TaskStatusPending,
		DueDate:            &due,
		CreatedAt:          time.Now().UTC(),
	}
	require.NoError(t, store.TaskRepository().Create(t.Context(), task))

	// Marked notified beforehand, so the scan never touches Redis.
	scanner.markNotified(task.ID)

	assert.NoError(t, scanner.Scan(t.Context()))
	assert.True(t, scanner.alreadyNotified(task.ID))
}
