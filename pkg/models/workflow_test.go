package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFlowPermission_ZeroValueAllowsEveryone(t *testing.T) {
	var permission FlowPermission

	assert.True(t, permission.Allows("anyone"))
}

func TestFlowPermission_Specific(t *testing.T) {
	permission := FlowPermission{
		Type:         FlowPermissionSpecific,
		InitiatorIDs: []string{"user-1", "user-2"},
	}

	assert.True(t, permission.Allows("user-1"))
	assert.False(t, permission.Allows("user-3"))
}

func TestFlowPermission_Nobody(t *testing.T) {
	permission := FlowPermission{Type: FlowPermissionNobody}

	assert.False(t, permission.Allows("user-1"))
}

func TestInstanceStatusTerminal(t *testing.T) {
	assert.False(t, InstanceStatusRunning.Terminal())
	assert.True(t, InstanceStatusCompleted.Terminal())
	assert.True(t, InstanceStatusRejected.Terminal())
	assert.True(t, InstanceStatusCanceled.Terminal())
}

func TestEvaluationContext_VariablesOverrideFormData(t *testing.T) {
	instance := &WorkflowInstance{
		FormData:  map[string]any{"amount": 100, "dept": "eng"},
		Variables: map[string]any{"amount": 200},
	}

	vars := instance.EvaluationContext()

	assert.Equal(t, 200, vars["amount"])
	assert.Equal(t, "eng", vars["dept"])
}

func TestTaskAllAssigneesApproved(t *testing.T) {
	task := &Task{Assignees: []TaskAssignee{
		{UserID: "a", Status: TaskStatusApproved},
		{UserID: "b", Status: TaskStatusPending},
	}}
	assert.False(t, task.AllAssigneesApproved())

	task.Assignees[1].Status = TaskStatusApproved
	assert.True(t, task.AllAssigneesApproved())
}

func TestTaskAllAssigneesApproved_IgnoresCanceledEntries(t *testing.T) {
	task := &Task{Assignees: []TaskAssignee{
		{UserID: "a", Status: TaskStatusCanceled},
		{UserID: "b", Status: TaskStatusApproved},
	}}

	assert.True(t, task.AllAssigneesApproved())
}

func TestTaskAllAssigneesApproved_RequiresAtLeastOneApproval(t *testing.T) {
	task := &Task{Assignees: []TaskAssignee{
		{UserID: "a", Status: TaskStatusCanceled},
	}}

	assert.False(t, task.AllAssigneesApproved())
}
