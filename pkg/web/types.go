package web

import (
	"time"

	"github.com/beeflow/beeflow/pkg/models"
)

// CreateWorkflowRequest represents the request body for creating a new workflow definition.
type CreateWorkflowRequest struct {
	Name        string                `json:"name"        validate:"required,min=3"`
	Description string                `json:"description"`
	Icon        string                `json:"icon,omitempty"`
	GroupID     string                `json:"group_id,omitempty"`
	RootNode    *models.Node          `json:"root_node"   validate:"required"`
	Permission  models.FlowPermission `json:"permission"`
	Cancelable  bool                  `json:"cancelable"`
	Active      bool                  `json:"active"`
}

// UpdateWorkflowRequest represents the request body for updating a definition.
// The whole tree is replaced; partial node edits are not supported because
// saved versions are immutable.
type UpdateWorkflowRequest struct {
	Name        string                `json:"name"        validate:"required,min=3"`
	Description string                `json:"description"`
	Icon        string                `json:"icon,omitempty"`
	GroupID     string                `json:"group_id,omitempty"`
	RootNode    *models.Node          `json:"root_node"   validate:"required"`
	Permission  models.FlowPermission `json:"permission"`
	Cancelable  bool                  `json:"cancelable"`
	Active      bool                  `json:"active"`
}

// CreateFormRequest represents the request body for attaching a form schema.
type CreateFormRequest struct {
	Name        string             `json:"name"        validate:"required"`
	Description string             `json:"description,omitempty"`
	WorkflowID  string             `json:"workflow_id" validate:"required"`
	Fields      []models.FormField `json:"fields"      validate:"required,min=1"`
}

// StartWorkflowRequest represents the request body for starting an instance.
type StartWorkflowRequest struct {
	InitiatorID string         `json:"initiator_id" validate:"required"`
	Title       string         `json:"title"`
	FormData    map[string]any `json:"form_data"`
	Variables   map[string]any `json:"variables,omitempty"`
	Priority    int            `json:"priority"`
	DueDate     *time.Time     `json:"due_date,omitempty"`
}

// DecisionRequest represents the request body for approving or rejecting a task.
type DecisionRequest struct {
	UserID  string `json:"user_id" validate:"required"`
	Comment string `json:"comment,omitempty"`
}

// CommentRequest represents the request body for commenting on a task.
type CommentRequest struct {
	UserID  string `json:"user_id" validate:"required"`
	Content string `json:"content" validate:"required"`
}

// ReassignRequest represents the request body for reassigning a task.
type ReassignRequest struct {
	UserID       string `json:"user_id"        validate:"required"` // Reassigning user
	NewAssignee  string `json:"new_assignee"   validate:"required"`
	Mode         string `json:"mode,omitempty" validate:"omitempty,oneof=append replace"`
}

// CancelRequest represents the request body for canceling an instance.
type CancelRequest struct {
	UserID string `json:"user_id" validate:"required"`
	Reason string `json:"reason,omitempty"`
}
