// Package testutil provides test data builders and utilities for testing.
package testutil

import (
	"github.com/beeflow/beeflow/pkg/directory"
	"github.com/beeflow/beeflow/pkg/models"
	"github.com/google/uuid"
)

// CreateTestNode creates a node with default values that can be overridden.
func CreateTestNode(overrides ...func(*models.Node)) *models.Node {
	node := &models.Node{
		Name: "node-" + uuid.New().String()[:8],
		Type: models.NodeTypeApproval,
		Assignees: []models.Assignee{
			{AssigneeType: models.AssigneeTypeSpecificUser, ReferenceID: "user-1"},
		},
	}

	for _, override := range overrides {
		override(node)
	}

	return node
}

// WithName sets the node name.
func WithName(name string) func(*models.Node) {
	return func(n *models.Node) {
		n.Name = name
	}
}

// WithType sets the node type and clears type-specific defaults.
func WithType(nodeType models.NodeType) func(*models.Node) {
	return func(n *models.Node) {
		n.Type = nodeType
		if nodeType != models.NodeTypeApproval {
			n.Assignees = nil
		}
	}
}

// WithChild sets the child node.
func WithChild(child *models.Node) func(*models.Node) {
	return func(n *models.Node) {
		n.ChildNode = child
	}
}

// WithAssignees sets the approval assignees.
func WithAssignees(assignees ...models.Assignee) func(*models.Node) {
	return func(n *models.Node) {
		n.Assignees = assignees
	}
}

// WithApprovalMode sets the approval mode.
func WithApprovalMode(mode models.ApprovalMode) func(*models.Node) {
	return func(n *models.Node) {
		n.ApprovalMode = mode
	}
}

// WithCCs sets the copy recipients.
func WithCCs(ccs ...models.Assignee) func(*models.Node) {
	return func(n *models.Node) {
		n.CCs = ccs
	}
}

// WithConditionGroups sets the condition groups.
func WithConditionGroups(groups ...models.ConditionGroup) func(*models.Node) {
	return func(n *models.Node) {
		n.ConditionGroups = groups
	}
}

// WithBranches sets the router branches.
func WithBranches(branches ...*models.Node) func(*models.Node) {
	return func(n *models.Node) {
		n.ConditionNodes = branches
	}
}

// WithPriority sets the branch priority level.
func WithPriority(level int) func(*models.Node) {
	return func(n *models.Node) {
		n.PriorityLevel = level
	}
}

// CreateTestWorkflow creates an active workflow whose tree is an initiator
// root with the given child chain.
func CreateTestWorkflow(child *models.Node, overrides ...func(*models.Workflow)) *models.Workflow {
	workflow := &models.Workflow{
		ID:   uuid.New().String(),
		Name: "Test Workflow",
		RootNode: CreateTestNode(
			WithName("start"),
			WithType(models.NodeTypeInitiator),
			WithChild(child),
		),
		Active:  true,
		Version: 1,
	}

	for _, override := range overrides {
		override(workflow)
	}

	return workflow
}

// WithPermission sets the flow permission.
func WithPermission(permission models.FlowPermission) func(*models.Workflow) {
	return func(w *models.Workflow) {
		w.Permission = permission
	}
}

// WithCancelable marks the workflow cancelable.
func WithCancelable() func(*models.Workflow) {
	return func(w *models.Workflow) {
		w.Cancelable = true
	}
}

// SingleUser is a convenience SPECIFIC_USER assignee.
func SingleUser(userID string) models.Assignee {
	return models.Assignee{
		AssigneeType: models.AssigneeTypeSpecificUser,
		ReferenceID:  userID,
	}
}

// EqualsCondition builds a one-condition group matching varName == value.
func EqualsCondition(varName string, value any) models.ConditionGroup {
	return models.ConditionGroup{
		Conditions: []models.Condition{
			{VarName: varName, Operator: models.OperatorEquals, Values: []any{value}},
		},
	}
}

// CreateTestDirectory builds an in-memory directory with a small org tree:
// user-1 and user-2 report to manager-1, who reports to manager-2. All four
// sit in dept-eng, whose leader is manager-1; dept-eng's parent is dept-root,
// whose leader is ceo. Role "finance" holds user-2 and manager-2.
func CreateTestDirectory() *directory.Memory {
	return directory.NewMemory(directory.Snapshot{
		Users: []*directory.User{
			{ID: "user-1", Name: "User One", DepartmentID: "dept-eng", ManagerID: "manager-1", Active: true},
			{ID: "user-2", Name: "User Two", DepartmentID: "dept-eng", ManagerID: "manager-1", Active: true},
			{ID: "manager-1", Name: "Manager One", DepartmentID: "dept-eng", ManagerID: "manager-2", Active: true},
			{ID: "manager-2", Name: "Manager Two", DepartmentID: "dept-root", ManagerID: "ceo", Active: true},
			{ID: "ceo", Name: "Chief", DepartmentID: "dept-root", Active: true},
			{ID: "inactive-1", Name: "Gone", DepartmentID: "dept-eng", Active: false},
		},
		Departments: []*directory.Department{
			{ID: "dept-root", Name: "Company", LeaderID: "ceo"},
			{ID: "dept-eng", Name: "Engineering", ParentID: "dept-root", LeaderID: "manager-1"},
		},
		Roles: map[string][]string{
			"finance": {"user-2", "manager-2"},
			"empty":   {"inactive-1"},
		},
	})
}
