package models

import "time"

// TaskStatus is the state of a task or of one assignee entry within it.
type TaskStatus string

const (
	TaskStatusPending  TaskStatus = "PENDING"
	TaskStatusApproved TaskStatus = "APPROVED"
	TaskStatusRejected TaskStatus = "REJECTED"
	TaskStatusCanceled TaskStatus = "CANCELED"
)

// TaskType mirrors the node type that produced the task.
type TaskType string

const (
	TaskTypeApproval TaskType = "APPROVAL"
	TaskTypeCopy     TaskType = "COPY"
)

// Decision is an individual assignee's verdict.
type Decision string

const (
	DecisionApprove Decision = "APPROVE"
	DecisionReject  Decision = "REJECT"
)

// TaskAssignee is one resolved concrete user for a task's node. Entries are a
// frozen snapshot taken at task-creation time; later org changes do not
// alter them. Each entry transitions PENDING to APPROVED or REJECTED
// independently.
type TaskAssignee struct {
	UserID       string       `json:"user_id"`
	AssigneeType AssigneeType `json:"assignee_type"`
	Status       TaskStatus   `json:"status"`
	Comment      string       `json:"comment,omitempty"`
	HandledAt    *time.Time   `json:"handled_at,omitempty"`
}

// TaskComment is an append-only remark on a task.
type TaskComment struct {
	UserID    string    `json:"user_id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// Task is the work item created for one node visit of a running instance.
// The instance owns its tasks; the task owns its assignee entries and
// comments as embedded substructure. EntityVersion is the
// optimistic-concurrency token for the conditional update that finalizes the
// task's aggregate status.
type Task struct {
	ID                 string         `json:"id"`
	WorkflowID         string         `json:"workflow_id"`
	WorkflowInstanceID string         `json:"workflow_instance_id"`
	NodeName           string         `json:"node_name"`
	Type               TaskType       `json:"type"`
	Status             TaskStatus     `json:"status"`
	ApprovalMode       ApprovalMode   `json:"approval_mode,omitempty"`
	Title              string         `json:"title"`
	Assignees          []TaskAssignee `json:"assignees"`
	Comments           []TaskComment  `json:"comments,omitempty"`
	Priority           int            `json:"priority"`
	DueDate            *time.Time     `json:"due_date,omitempty"`
	EntityVersion      int            `json:"entity_version"`
	CreatedAt          time.Time      `json:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at"`
}

// AssigneeByUser returns a pointer into Assignees for the given user, or nil.
func (t *Task) AssigneeByUser(userID string) *TaskAssignee {
	for i := range t.Assignees {
		if t.Assignees[i].UserID == userID {
			return &t.Assignees[i]
		}
	}

	return nil
}

// EffectiveApprovalMode returns the task's approval mode, defaulting to ALL.
func (t *Task) EffectiveApprovalMode() ApprovalMode {
	if t.ApprovalMode == ApprovalModeAny {
		return ApprovalModeAny
	}

	return ApprovalModeAll
}

// AllAssigneesApproved reports whether every still-actionable assignee entry
// is APPROVED. Canceled entries (from reassignment) do not block resolution,
// but at least one approval is required.
func (t *Task) AllAssigneesApproved() bool {
	approved := 0

	for _, assignee := range t.Assignees {
		switch assignee.Status {
		case TaskStatusApproved:
			approved++
		case TaskStatusCanceled:
			// Not actionable, ignored.
		default:
			return false
		}
	}

	return approved > 0
}
