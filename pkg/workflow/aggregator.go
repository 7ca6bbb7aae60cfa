package workflow

import (
	"fmt"
	"time"

	"github.com/beeflow/beeflow/pkg/models"
)

// TaskOutcome is the aggregate result of applying one decision to a task.
type TaskOutcome string

const (
	// TaskOutcomePending means the task still waits on other assignees.
	TaskOutcomePending TaskOutcome = "PENDING"

	// TaskOutcomeApproved means the task resolved to APPROVED.
	TaskOutcomeApproved TaskOutcome = "RESOLVED_APPROVED"

	// TaskOutcomeRejected means the task resolved to REJECTED.
	TaskOutcomeRejected TaskOutcome = "RESOLVED_REJECTED"
)

// RecordDecision applies one assignee's verdict to the task in memory and
// returns the aggregate outcome. The caller persists the mutated task with a
// conditional update; a version conflict there means another decision won.
//
// A single REJECT resolves the task immediately regardless of approval mode.
// APPROVE resolves under ANY mode, or under ALL mode once every entry is
// APPROVED.
func RecordDecision(task *models.Task, userID string, decision models.Decision, comment string, now time.Time) (TaskOutcome, error) {
	if task.Status != models.TaskStatusPending {
		return "", ErrAlreadyHandled
	}

	entry := task.AssigneeByUser(userID)
	if entry == nil {
		return "", ErrNotAssignee
	}

	if entry.Status != models.TaskStatusPending {
		return "", ErrAlreadyHandled
	}

	entry.Comment = comment
	entry.HandledAt = &now

	switch decision {
	case models.DecisionReject:
		entry.Status = models.TaskStatusRejected
		task.Status = models.TaskStatusRejected
		task.UpdatedAt = now

		return TaskOutcomeRejected, nil

	case models.DecisionApprove:
		entry.Status = models.TaskStatusApproved

	default:
		return "", fmt.Errorf("unknown decision %q", decision)
	}

	resolved := task.EffectiveApprovalMode() == models.ApprovalModeAny || task.AllAssigneesApproved()
	if resolved {
		task.Status = models.TaskStatusApproved
		task.UpdatedAt = now

		return TaskOutcomeApproved, nil
	}

	task.UpdatedAt = now

	return TaskOutcomePending, nil
}

// AddAssignee appends a new pending assignee entry to an open task. It is a
// no-op error if the task is no longer pending or the user already has an
// entry.
func AddAssignee(task *models.Task, userID string, addedBy string, now time.Time) error {
	if task.Status != models.TaskStatusPending {
		return ErrAlreadyHandled
	}

	if task.AssigneeByUser(userID) != nil {
		return fmt.Errorf("user %s is already an assignee of task %s", userID, task.ID)
	}

	task.Assignees = append(task.Assignees, models.TaskAssignee{
		UserID:       userID,
		AssigneeType: models.AssigneeTypeSpecificUser,
		Status:       models.TaskStatusPending,
	})
	task.Comments = append(task.Comments, models.TaskComment{
		UserID:    addedBy,
		Content:   fmt.Sprintf("added %s as an assignee", userID),
		CreatedAt: now,
	})
	task.UpdatedAt = now

	return nil
}

// ReplaceAssignees cancels every still-pending assignee entry and appends a
// fresh pending entry for the replacement user. Handled entries keep their
// recorded verdicts.
func ReplaceAssignees(task *models.Task, userID string, replacedBy string, now time.Time) error {
	if task.Status != models.TaskStatusPending {
		return ErrAlreadyHandled
	}

	for i := range task.Assignees {
		if task.Assignees[i].Status == models.TaskStatusPending {
			task.Assignees[i].Status = models.TaskStatusCanceled
			task.Assignees[i].HandledAt = &now
		}
	}

	task.Assignees = append(task.Assignees, models.TaskAssignee{
		UserID:       userID,
		AssigneeType: models.AssigneeTypeSpecificUser,
		Status:       models.TaskStatusPending,
	})
	task.Comments = append(task.Comments, models.TaskComment{
		UserID:    replacedBy,
		Content:   fmt.Sprintf("reassigned task to %s", userID),
		CreatedAt: now,
	})
	task.UpdatedAt = now

	return nil
}

// AddComment appends a remark without touching the task's decision state.
// Comments are allowed on resolved tasks.
func AddComment(task *models.Task, userID, content string, now time.Time) {
	task.Comments = append(task.Comments, models.TaskComment{
		UserID:    userID,
		Content:   content,
		CreatedAt: now,
	})
	task.UpdatedAt = now
}
