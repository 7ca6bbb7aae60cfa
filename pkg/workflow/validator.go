package workflow

import (
	"fmt"

	"github.com/beeflow/beeflow/pkg/models"
)

// ValidateDefinition walks a definition tree and enforces every node type's
// structural invariants. It runs before a definition is created or updated;
// any failure aborts the write.
func ValidateDefinition(root *models.Node) error {
	if root == nil {
		return newValidationError("", "root node is required")
	}

	if root.Type != models.NodeTypeInitiator {
		return newValidationError(root.Name, "root node must be an initiator node")
	}

	return validateNode(root)
}

func validateNode(node *models.Node) error {
	if node.Name == "" {
		return newValidationError("", "node name is required")
	}

	if !node.Type.Valid() {
		return newValidationError(node.Name, fmt.Sprintf("unknown node type %q", node.Type))
	}

	switch node.Type {
	case models.NodeTypeInitiator:
		// No required fields beyond name.

	case models.NodeTypeApproval:
		if len(node.Assignees) == 0 {
			return newValidationError(node.Name, "approval node must have assignees")
		}

		for _, assignee := range node.Assignees {
			if err := validateAssignee(node.Name, assignee); err != nil {
				return err
			}
		}

	case models.NodeTypeCopy:
		if len(node.CCs) == 0 {
			return newValidationError(node.Name, "copy node must have cc recipients")
		}

		for _, cc := range node.CCs {
			if err := validateAssignee(node.Name, cc); err != nil {
				return err
			}
		}

	case models.NodeTypeCondition:
		if len(node.ConditionGroups) == 0 {
			return newValidationError(node.Name, "condition node must have condition groups")
		}

		for _, group := range node.ConditionGroups {
			if len(group.Conditions) == 0 {
				return newValidationError(node.Name, "condition group must have conditions")
			}

			for _, condition := range group.Conditions {
				if condition.VarName == "" {
					return newValidationError(node.Name, "condition variable name is required")
				}

				if !condition.Operator.Valid() {
					return newValidationError(node.Name, fmt.Sprintf("unknown condition operator %q", condition.Operator))
				}
			}
		}

	case models.NodeTypeRouter:
		if len(node.ConditionNodes) == 0 {
			return newValidationError(node.Name, "router node must have condition nodes")
		}

		// Duplicate priorities are rejected outright, never tie-broken.
		seen := make(map[int]bool, len(node.ConditionNodes))

		for _, branch := range node.ConditionNodes {
			if seen[branch.PriorityLevel] {
				return newValidationError(node.Name,
					fmt.Sprintf("condition nodes must have unique priority levels, %d is duplicated", branch.PriorityLevel))
			}

			seen[branch.PriorityLevel] = true
		}
	}

	if node.ChildNode != nil {
		if err := validateNode(node.ChildNode); err != nil {
			return err
		}
	}

	// Router branches are full subtrees, recursed into like any other node.
	for _, branch := range node.ConditionNodes {
		if err := validateNode(branch); err != nil {
			return err
		}
	}

	return nil
}

func validateAssignee(nodeName string, assignee models.Assignee) error {
	if !assignee.AssigneeType.Valid() {
		return newValidationError(nodeName, fmt.Sprintf("unknown assignee type %q", assignee.AssigneeType))
	}

	switch assignee.AssigneeType {
	case models.AssigneeTypeDepartmentLeader, models.AssigneeTypeSuperior:
		if assignee.Layer <= 0 {
			return newValidationError(nodeName, "layer is required for superior/leader assignees")
		}

		if assignee.LayerType != models.LayerTypeUp && assignee.LayerType != models.LayerTypeDown {
			return newValidationError(nodeName, "layer type is required for superior/leader assignees")
		}
	case models.AssigneeTypeSpecificUsers:
		if len(assignee.MemberIDs) == 0 {
			return newValidationError(nodeName, "specific users assignee must have a member list")
		}
	case models.AssigneeTypeSpecificUser, models.AssigneeTypeRole:
		if assignee.ReferenceID == "" {
			return newValidationError(nodeName, "assignee reference id is required")
		}
	}

	return nil
}
