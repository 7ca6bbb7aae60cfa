package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildTree() *Node {
	return &Node{
		Name: "start",
		Type: NodeTypeInitiator,
		ChildNode: &Node{
			Name: "route",
			Type: NodeTypeRouter,
			ConditionNodes: []*Node{
				{
					Name:          "high-value",
					Type:          NodeTypeCondition,
					PriorityLevel: 1,
					ChildNode: &Node{
						Name:      "cfo-approval",
						Type:      NodeTypeApproval,
						Assignees: []Assignee{{AssigneeType: AssigneeTypeSpecificUser, ReferenceID: "cfo"}},
					},
				},
				{
					Name:          "low-value",
					Type:          NodeTypeCondition,
					PriorityLevel: 2,
				},
			},
		},
	}
}

func TestNode_JSONRoundTrip(t *testing.T) {
	root := &Node{
		Name: "start",
		Type: NodeTypeInitiator,
		ChildNode: &Node{
			Name: "notify-finance",
			Type: NodeTypeCopy,
			CCs:  []Assignee{{AssigneeType: AssigneeTypeRole, ReferenceID: "finance"}},
			ChildNode: &Node{
				Name: "route",
				Type: NodeTypeRouter,
				ConditionNodes: []*Node{
					{
						Name:          "high-value",
						Type:          NodeTypeCondition,
						PriorityLevel: 1,
						ConditionGroups: []ConditionGroup{{
							Conditions: []Condition{
								{VarName: "amount", Operator: OperatorGreater, Values: []any{float64(1000)}},
								{VarName: "currency", Operator: OperatorIn, Values: []any{"EUR", "USD"}},
							},
						}},
						ChildNode: &Node{
							Name:         "cfo-approval",
							Type:         NodeTypeApproval,
							ApprovalMode: ApprovalModeAny,
							Assignees: []Assignee{
								{AssigneeType: AssigneeTypeSuperior, Layer: 2, LayerType: LayerTypeUp},
								{AssigneeType: AssigneeTypeSpecificUsers, MemberIDs: []string{"cfo", "deputy-cfo"}},
							},
						},
					},
					{Name: "low-value", Type: NodeTypeCondition, PriorityLevel: 2},
				},
			},
		},
	}

	encoded, err := json.Marshal(root)
	require.NoError(t, err)

	var decoded Node
	require.NoError(t, json.Unmarshal(encoded, &decoded))
	assert.Equal(t, root, &decoded)
}

func TestFindByName_RootAndChildChain(t *testing.T) {
	root := buildTree()

	assert.Equal(t, root, root.FindByName("start"))
	assert.Equal(t, "route", root.FindByName("route").Name)
}

func TestFindByName_SearchesRouterBranches(t *testing.T) {
	root := buildTree()

	found := root.FindByName("cfo-approval")
	assert.NotNil(t, found)
	assert.Equal(t, NodeTypeApproval, found.Type)
}

func TestFindByName_MissingNode(t *testing.T) {
	root := buildTree()

	assert.Nil(t, root.FindByName("nonexistent"))
}

func TestFindByName_NilReceiver(t *testing.T) {
	var root *Node

	assert.Nil(t, root.FindByName("anything"))
}

func TestEffectiveApprovalMode_DefaultsToAll(t *testing.T) {
	node := &Node{Name: "approve", Type: NodeTypeApproval}

	assert.Equal(t, ApprovalModeAll, node.EffectiveApprovalMode())
}

func TestEffectiveApprovalMode_Any(t *testing.T) {
	node := &Node{Name: "approve", Type: NodeTypeApproval, ApprovalMode: ApprovalModeAny}

	assert.Equal(t, ApprovalModeAny, node.EffectiveApprovalMode())
}

func TestNodeTypeValid(t *testing.T) {
	assert.True(t, NodeTypeRouter.Valid())
	assert.False(t, NodeType("TIMER").Valid())
}

func TestAssigneeTypeValid(t *testing.T) {
	assert.True(t, AssigneeTypeSuperior.Valid())
	assert.False(t, AssigneeType("ROBOT").Valid())
}
