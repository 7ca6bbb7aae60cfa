// Package workflow implements the approval engine: definition validation,
// assignee resolution, the instance state machine, and per-task decision
// aggregation.
package workflow

import (
	"errors"
	"fmt"

	"github.com/beeflow/beeflow/pkg/models"
)

var (
	// ErrNotAssignee is returned when a decision comes from a user who is not
	// among the task's assignee entries.
	ErrNotAssignee = errors.New("user is not an assignee of this task")

	// ErrAlreadyHandled is returned when a decision targets an assignee entry
	// or task that is no longer PENDING.
	ErrAlreadyHandled = errors.New("decision already handled")

	// ErrInvalidState is returned for actions against a terminal instance.
	ErrInvalidState = errors.New("instance is in a terminal state")

	// ErrNotPermitted is returned when the flow permission denies the initiator.
	ErrNotPermitted = errors.New("user is not permitted to start this workflow")

	// ErrNoRouteMatched is returned when no router branch condition matches
	// the instance's variables.
	ErrNoRouteMatched = errors.New("no router branch matched")
)

// ValidationError reports a structural invariant violation in a definition
// tree. Definitions failing validation are rejected at save time, never at
// execution time.
type ValidationError struct {
	NodeName string
	Reason   string
}

func (e *ValidationError) Error() string {
	if e.NodeName == "" {
		return "invalid workflow definition: " + e.Reason
	}

	return fmt.Sprintf("invalid workflow definition: node %q: %s", e.NodeName, e.Reason)
}

func newValidationError(nodeName, reason string) *ValidationError {
	return &ValidationError{NodeName: nodeName, Reason: reason}
}

// IsValidationError checks whether err is a definition validation failure.
func IsValidationError(err error) bool {
	var target *ValidationError

	return errors.As(err, &target)
}

// ResolutionError reports that an assignee descriptor could not be resolved
// to concrete users.
type ResolutionError struct {
	AssigneeType models.AssigneeType
	ReferenceID  string
	Reason       string
	Err          error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("cannot resolve %s assignee %q: %s", e.AssigneeType, e.ReferenceID, e.Reason)
}

func (e *ResolutionError) Unwrap() error {
	return e.Err
}

// IsResolutionError checks whether err is an assignee resolution failure.
func IsResolutionError(err error) bool {
	var target *ResolutionError

	return errors.As(err, &target)
}

// CorruptStateError reports a tree walk landing on a node name absent from
// the pinned definition version. It indicates the definition was mutated
// incompatibly with live instances; it is fatal and never retried.
type CorruptStateError struct {
	InstanceID string
	NodeName   string
}

func (e *CorruptStateError) Error() string {
	return fmt.Sprintf("instance %s references node %q which does not exist in its definition version", e.InstanceID, e.NodeName)
}

// IsCorruptStateError checks whether err is a data-integrity failure.
func IsCorruptStateError(err error) bool {
	var target *CorruptStateError

	return errors.As(err, &target)
}
