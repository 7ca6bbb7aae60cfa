package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConditionMatches_Equals(t *testing.T) {
	cond := Condition{VarName: "status", Operator: OperatorEquals, Values: []any{"approved"}}

	assert.True(t, cond.Matches(map[string]any{"status": "approved"}))
	assert.False(t, cond.Matches(map[string]any{"status": "draft"}))
}

func TestConditionMatches_NumericStringEquality(t *testing.T) {
	// Form data arrives as float64 via JSON, definitions may carry ints.
	cond := Condition{VarName: "amount", Operator: OperatorEquals, Values: []any{1000}}

	assert.True(t, cond.Matches(map[string]any{"amount": float64(1000)}))
	assert.True(t, cond.Matches(map[string]any{"amount": "1000"}))
}

func TestConditionMatches_MissingVariableNeverMatches(t *testing.T) {
	cond := Condition{VarName: "amount", Operator: OperatorNotEquals, Values: []any{5}}

	assert.False(t, cond.Matches(map[string]any{}))
}

func TestConditionMatches_Ordering(t *testing.T) {
	vars := map[string]any{"amount": float64(500)}

	assert.True(t, Condition{VarName: "amount", Operator: OperatorGreater, Values: []any{100}}.Matches(vars))
	assert.True(t, Condition{VarName: "amount", Operator: OperatorLessEqual, Values: []any{500}}.Matches(vars))
	assert.False(t, Condition{VarName: "amount", Operator: OperatorLess, Values: []any{500}}.Matches(vars))
}

func TestConditionMatches_OrderingRequiresNumbers(t *testing.T) {
	cond := Condition{VarName: "amount", Operator: OperatorGreater, Values: []any{100}}

	assert.False(t, cond.Matches(map[string]any{"amount": "lots"}))
}

func TestConditionMatches_In(t *testing.T) {
	cond := Condition{VarName: "dept", Operator: OperatorIn, Values: []any{"eng", "finance"}}

	assert.True(t, cond.Matches(map[string]any{"dept": "finance"}))
	assert.False(t, cond.Matches(map[string]any{"dept": "legal"}))
}

func TestConditionGroupMatches_AllMustHold(t *testing.T) {
	group := ConditionGroup{Conditions: []Condition{
		{VarName: "amount", Operator: OperatorGreater, Values: []any{100}},
		{VarName: "dept", Operator: OperatorEquals, Values: []any{"eng"}},
	}}

	assert.True(t, group.Matches(map[string]any{"amount": 200, "dept": "eng"}))
	assert.False(t, group.Matches(map[string]any{"amount": 50, "dept": "eng"}))
}

func TestConditionGroupMatches_EmptyGroupNeverMatches(t *testing.T) {
	assert.False(t, ConditionGroup{}.Matches(map[string]any{"amount": 1}))
}

func TestMatchesAnyGroup_OrAcrossGroups(t *testing.T) {
	groups := []ConditionGroup{
		{Conditions: []Condition{{VarName: "amount", Operator: OperatorGreater, Values: []any{1000}}}},
		{Conditions: []Condition{{VarName: "urgent", Operator: OperatorEquals, Values: []any{true}}}},
	}

	assert.True(t, MatchesAnyGroup(groups, map[string]any{"amount": 10, "urgent": true}))
	assert.False(t, MatchesAnyGroup(groups, map[string]any{"amount": 10, "urgent": false}))
}
