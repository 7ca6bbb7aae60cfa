package persistence

import (
	"errors"
	"fmt"
)

// Standard persistence error types that all implementations must use.
var (
	// ErrWorkflowNotFound indicates no definition exists for the given ID.
	ErrWorkflowNotFound = errors.New("workflow not found")

	// ErrWorkflowVersionNotFound indicates the exact (id, version) snapshot is absent.
	ErrWorkflowVersionNotFound = errors.New("workflow version not found")

	// ErrWorkflowVersionExists indicates an attempt to overwrite an immutable version.
	ErrWorkflowVersionExists = errors.New("workflow version already exists")

	// ErrInstanceNotFound indicates a workflow instance was not found.
	ErrInstanceNotFound = errors.New("workflow instance not found")

	// ErrTaskNotFound indicates a task was not found.
	ErrTaskNotFound = errors.New("task not found")

	// ErrFormNotFound indicates a form was not found.
	ErrFormNotFound = errors.New("form not found")

	// ErrVersionConflict indicates a conditional update lost against a
	// concurrent writer: the stored entity version no longer matches.
	ErrVersionConflict = errors.New("entity version conflict")
)

// StoreError wraps storage errors with operation context.
type StoreError struct {
	Op       string // Operation being performed (e.g. "GetByID", "Update")
	Entity   string // Entity kind ("workflow", "instance", "task", "form")
	EntityID string
	Err      error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s %s %s: %v", e.Op, e.Entity, e.EntityID, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

func (e *StoreError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewStoreError creates a storage error with context.
func NewStoreError(op, entity, entityID string, err error) *StoreError {
	return &StoreError{Op: op, Entity: entity, EntityID: entityID, Err: err}
}

// IsNotFound checks whether err indicates any missing entity.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrWorkflowNotFound) ||
		errors.Is(err, ErrWorkflowVersionNotFound) ||
		errors.Is(err, ErrInstanceNotFound) ||
		errors.Is(err, ErrTaskNotFound) ||
		errors.Is(err, ErrFormNotFound)
}

// IsVersionConflict checks whether err indicates a lost conditional update.
func IsVersionConflict(err error) bool {
	return errors.Is(err, ErrVersionConflict)
}
