// Package persistence provides the data storage abstraction for workflow
// definitions, instances, tasks, and forms.
package persistence

import (
	"context"
	"time"

	"github.com/beeflow/beeflow/pkg/models"
)

// Persistence bundles the entity repositories behind one storage backend.
type Persistence interface {
	WorkflowRepository() WorkflowRepository
	InstanceRepository() InstanceRepository
	TaskRepository() TaskRepository
	FormRepository() FormRepository

	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}

// WorkflowRepository stores versioned workflow definitions. Saved versions
// are immutable; Save always writes a new (id, version) pair.
type WorkflowRepository interface {
	// Save persists the definition under (workflow.ID, workflow.Version).
	// Writing an already-existing version fails with ErrWorkflowVersionExists.
	Save(ctx context.Context, workflow *models.Workflow) error

	// GetByID returns the highest version stored for the ID, or
	// ErrWorkflowNotFound.
	GetByID(ctx context.Context, id string) (*models.Workflow, error)

	// GetVersion returns one exact definition snapshot, or
	// ErrWorkflowVersionNotFound.
	GetVersion(ctx context.Context, id string, version int) (*models.Workflow, error)

	// List returns the latest version of every definition.
	List(ctx context.Context) ([]*models.Workflow, error)

	// Delete removes every version of the definition.
	Delete(ctx context.Context, id string) error
}

// InstanceRepository stores workflow instances. Update is a conditional
// write: it succeeds only when the stored EntityVersion equals the one on the
// passed instance, then increments it. A mismatch fails with
// ErrVersionConflict.
type InstanceRepository interface {
	Create(ctx context.Context, instance *models.WorkflowInstance) error
	GetByID(ctx context.Context, id string) (*models.WorkflowInstance, error)
	Update(ctx context.Context, instance *models.WorkflowInstance) error
	ListByInitiator(ctx context.Context, initiatorID string) ([]*models.WorkflowInstance, error)
}

// TaskRepository stores tasks. Update carries the same conditional-write
// contract as InstanceRepository.Update; it is the atomicity unit that keeps
// concurrent approve/reject/cancel from double-applying.
type TaskRepository interface {
	Create(ctx context.Context, task *models.Task) error
	GetByID(ctx context.Context, id string) (*models.Task, error)
	Update(ctx context.Context, task *models.Task) error
	ListByInstance(ctx context.Context, instanceID string) ([]*models.Task, error)
	ListPendingByInstance(ctx context.Context, instanceID string) ([]*models.Task, error)
	ListPendingByUser(ctx context.Context, userID string) ([]*models.Task, error)

	// ListOverdue returns PENDING tasks whose due date lies before the cutoff.
	ListOverdue(ctx context.Context, before time.Time) ([]*models.Task, error)
}

// FormRepository stores form schemas attached to workflow definitions.
type FormRepository interface {
	Save(ctx context.Context, form *models.Form) error
	GetByID(ctx context.Context, id string) (*models.Form, error)
	GetByWorkflow(ctx context.Context, workflowID string) (*models.Form, error)
	Delete(ctx context.Context, id string) error
}
