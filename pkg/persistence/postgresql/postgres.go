// Package postgresql provides PostgreSQL persistence for workflows,
// instances, tasks, and forms. Entities are stored as JSONB documents next
// to the indexed columns the query paths need; conditional updates compare
// the stored entity version inside the UPDATE statement.
package postgresql

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/beeflow/beeflow/pkg/persistence"
	"github.com/beeflow/beeflow/pkg/persistence/sqlbase"
	_ "github.com/lib/pq" // PostgreSQL driver
)

// Persistence implements the persistence layer for PostgreSQL.
type Persistence struct {
	db           *sql.DB
	logger       *slog.Logger
	workflowRepo *WorkflowRepository
	instanceRepo *InstanceRepository
	taskRepo     *TaskRepository
	formRepo     *FormRepository
}

// NewPersistence creates a new PostgreSQL persistence layer and runs pending
// migrations.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (*Persistence, error) {
	database, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL database: %w", err)
	}

	err = database.PingContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	migrationManager := sqlbase.NewMigrationManager(logger, database, migrations())

	postgres := &Persistence{
		db:           database,
		logger:       logger,
		workflowRepo: NewWorkflowRepository(database),
		instanceRepo: NewInstanceRepository(database),
		taskRepo:     NewTaskRepository(database),
		formRepo:     NewFormRepository(database),
	}

	err = migrationManager.RunMigrations(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return postgres, nil
}

func (p *Persistence) WorkflowRepository() persistence.WorkflowRepository {
	return p.workflowRepo
}

func (p *Persistence) InstanceRepository() persistence.InstanceRepository {
	return p.instanceRepo
}

func (p *Persistence) TaskRepository() persistence.TaskRepository {
	return p.taskRepo
}

func (p *Persistence) FormRepository() persistence.FormRepository {
	return p.formRepo
}

// HealthCheck verifies the database connection is healthy.
func (p *Persistence) HealthCheck(ctx context.Context) error {
	err := p.db.PingContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	return nil
}

// Close closes the database connection.
func (p *Persistence) Close(_ context.Context) error {
	if p.db != nil {
		err := p.db.Close()
		if err != nil {
			return fmt.Errorf("failed to close database connection: %w", err)
		}
	}

	return nil
}

func migrations() map[int]string {
	return map[int]string{
		1: `
			CREATE TABLE IF NOT EXISTS workflows (
				id TEXT NOT NULL,
				version INTEGER NOT NULL,
				data JSONB NOT NULL,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				PRIMARY KEY (id, version)
			);

			CREATE TABLE IF NOT EXISTS workflow_instances (
				id TEXT PRIMARY KEY,
				workflow_id TEXT NOT NULL,
				initiator_id TEXT NOT NULL,
				status TEXT NOT NULL,
				entity_version INTEGER NOT NULL DEFAULT 0,
				data JSONB NOT NULL,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			);

			CREATE INDEX IF NOT EXISTS idx_instances_initiator
				ON workflow_instances (initiator_id, created_at DESC);

			CREATE TABLE IF NOT EXISTS tasks (
				id TEXT PRIMARY KEY,
				workflow_instance_id TEXT NOT NULL,
				status TEXT NOT NULL,
				priority INTEGER NOT NULL DEFAULT 0,
				due_date TIMESTAMP WITH TIME ZONE,
				entity_version INTEGER NOT NULL DEFAULT 0,
				data JSONB NOT NULL,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			);

			CREATE INDEX IF NOT EXISTS idx_tasks_instance
				ON tasks (workflow_instance_id);
			CREATE INDEX IF NOT EXISTS idx_tasks_status_due
				ON tasks (status, due_date);
			CREATE INDEX IF NOT EXISTS idx_tasks_assignees
				ON tasks USING GIN ((data -> 'assignees'));

			CREATE TABLE IF NOT EXISTS forms (
				id TEXT NOT NULL,
				version INTEGER NOT NULL,
				workflow_id TEXT NOT NULL,
				active BOOLEAN NOT NULL DEFAULT TRUE,
				data JSONB NOT NULL,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				PRIMARY KEY (id, version)
			);

			CREATE INDEX IF NOT EXISTS idx_forms_workflow
				ON forms (workflow_id, version DESC);
		`,
	}
}
