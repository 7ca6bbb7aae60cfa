// Package models defines the core domain models for approval workflow definitions and execution.
package models

// NodeType identifies the behavior of a step in a workflow definition tree.
type NodeType string

const (
	NodeTypeInitiator NodeType = "INITIATOR" // Root node, holds no task
	NodeTypeApproval  NodeType = "APPROVAL"  // Human decision required
	NodeTypeCopy      NodeType = "COPY"      // Notify-only, never blocks
	NodeTypeCondition NodeType = "CONDITION" // Pass-through gate
	NodeTypeRouter    NodeType = "ROUTER"    // Picks one condition branch
)

// Valid reports whether t is one of the five known node types.
func (t NodeType) Valid() bool {
	switch t {
	case NodeTypeInitiator, NodeTypeApproval, NodeTypeCopy, NodeTypeCondition, NodeTypeRouter:
		return true
	}

	return false
}

// AssigneeType identifies how an assignee descriptor resolves to concrete users.
type AssigneeType string

const (
	AssigneeTypeSpecificUser     AssigneeType = "SPECIFIC_USER"
	AssigneeTypeSpecificUsers    AssigneeType = "SPECIFIC_USERS"
	AssigneeTypeDepartmentLeader AssigneeType = "DEPARTMENT_LEADER"
	AssigneeTypeSuperior         AssigneeType = "SUPERIOR"
	AssigneeTypeRole             AssigneeType = "ROLE"
)

// Valid reports whether t is a known assignee type.
func (t AssigneeType) Valid() bool {
	switch t {
	case AssigneeTypeSpecificUser, AssigneeTypeSpecificUsers, AssigneeTypeDepartmentLeader,
		AssigneeTypeSuperior, AssigneeTypeRole:
		return true
	}

	return false
}

// LayerType is the direction of a DEPARTMENT_LEADER/SUPERIOR hierarchy walk.
type LayerType string

const (
	LayerTypeUp   LayerType = "UP"
	LayerTypeDown LayerType = "DOWN"
)

// ApprovalMode is the rule for collapsing multiple assignee decisions into one task outcome.
type ApprovalMode string

const (
	ApprovalModeAll ApprovalMode = "ALL" // Unanimous, every assignee must approve
	ApprovalModeAny ApprovalMode = "ANY" // First approval resolves the task
)

// Assignee is an abstract descriptor of who should act on a node. It is
// resolved to concrete user IDs once, at task-creation time.
type Assignee struct {
	ReferenceID  string       `json:"reference_id,omitempty"` // User, department, or role id depending on type
	AssigneeType AssigneeType `json:"assignee_type"           validate:"required"`
	Layer        int          `json:"layer,omitempty"`
	LayerType    LayerType    `json:"layer_type,omitempty"`
	MemberIDs    []string     `json:"member_ids,omitempty"` // For SPECIFIC_USERS
}

// Node is one step in a workflow definition's control-flow tree. A node owns
// its ChildNode and, for routers, its ConditionNodes exclusively: the
// structure is a tree, never a DAG. Which fields are meaningful depends on
// Type; consumers dispatch on Type with exhaustive switches and the
// definition validator rejects trees whose typed invariants do not hold, so
// execution never checks field presence.
type Node struct {
	Name            string           `json:"name" validate:"required"`
	Type            NodeType         `json:"type" validate:"required"`
	ChildNode       *Node            `json:"child_node,omitempty"`
	Assignees       []Assignee       `json:"assignees,omitempty"`     // APPROVAL
	ApprovalMode    ApprovalMode     `json:"approval_mode,omitempty"` // APPROVAL, defaults to ALL
	CCs             []Assignee       `json:"ccs,omitempty"`           // COPY
	ConditionGroups []ConditionGroup `json:"condition_groups,omitempty"`
	ConditionNodes  []*Node          `json:"condition_nodes,omitempty"` // ROUTER branches
	PriorityLevel   int              `json:"priority_level,omitempty"`  // Branch ordering within a router
}

// FindByName returns the node with the given name in the subtree rooted at n,
// searching child chains and router branches, or nil when absent.
func (n *Node) FindByName(name string) *Node {
	if n == nil {
		return nil
	}

	if n.Name == name {
		return n
	}

	if found := n.ChildNode.FindByName(name); found != nil {
		return found
	}

	for _, branch := range n.ConditionNodes {
		if found := branch.FindByName(name); found != nil {
			return found
		}
	}

	return nil
}

// EffectiveApprovalMode returns the node's approval mode, defaulting to ALL.
func (n *Node) EffectiveApprovalMode() ApprovalMode {
	if n.ApprovalMode == ApprovalModeAny {
		return ApprovalModeAny
	}

	return ApprovalModeAll
}
