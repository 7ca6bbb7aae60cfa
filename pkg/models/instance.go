package models

import "time"

// InstanceStatus is the lifecycle state of a running workflow instance.
type InstanceStatus string

const (
	InstanceStatusRunning   InstanceStatus = "RUNNING"
	InstanceStatusCompleted InstanceStatus = "COMPLETED"
	InstanceStatusRejected  InstanceStatus = "REJECTED"
	InstanceStatusCanceled  InstanceStatus = "CANCELED"
)

// Terminal reports whether no further transitions are allowed from s.
func (s InstanceStatus) Terminal() bool {
	return s == InstanceStatusCompleted || s == InstanceStatusRejected || s == InstanceStatusCanceled
}

// NodeExecution is one append-only history entry recording a node visit.
type NodeExecution struct {
	NodeName    string     `json:"node_name"`
	Type        NodeType   `json:"type"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// WorkflowInstance is one running execution of a workflow definition.
// CurrentNodeName and Status are mutated only by the execution engine.
// EntityVersion is the optimistic-concurrency token checked by repository
// conditional updates.
type WorkflowInstance struct {
	ID              string          `json:"id"`
	WorkflowID      string          `json:"workflow_id"      validate:"required"`
	WorkflowVersion int             `json:"workflow_version"` // Pinned definition snapshot
	Title           string          `json:"title"`
	Status          InstanceStatus  `json:"status"`
	InitiatorID     string          `json:"initiator_id"     validate:"required"`
	CurrentNodeName string          `json:"current_node_name"`
	NodeHistory     []NodeExecution `json:"node_history,omitempty"`
	FormData        map[string]any  `json:"form_data"`
	Variables       map[string]any  `json:"variables,omitempty"`
	Priority        int             `json:"priority"`
	DueDate         *time.Time      `json:"due_date,omitempty"`
	EntityVersion   int             `json:"entity_version"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// EvaluationContext merges variables over form data for condition evaluation.
func (i *WorkflowInstance) EvaluationContext() map[string]any {
	vars := make(map[string]any, len(i.FormData)+len(i.Variables))

	for k, v := range i.FormData {
		vars[k] = v
	}

	for k, v := range i.Variables {
		vars[k] = v
	}

	return vars
}
