package models

import (
	"fmt"
	"strconv"
)

// ConditionOperator compares a workflow variable against operand values.
type ConditionOperator string

const (
	OperatorEquals       ConditionOperator = "eq"
	OperatorNotEquals    ConditionOperator = "neq"
	OperatorGreater      ConditionOperator = "gt"
	OperatorGreaterEqual ConditionOperator = "gte"
	OperatorLess         ConditionOperator = "lt"
	OperatorLessEqual    ConditionOperator = "lte"
	OperatorIn           ConditionOperator = "in"
)

// Valid reports whether op is a known operator.
func (op ConditionOperator) Valid() bool {
	switch op {
	case OperatorEquals, OperatorNotEquals, OperatorGreater, OperatorGreaterEqual,
		OperatorLess, OperatorLessEqual, OperatorIn:
		return true
	}

	return false
}

// Condition compares one variable against operand values.
type Condition struct {
	VarName  string            `json:"var_name" validate:"required"`
	Operator ConditionOperator `json:"operator" validate:"required"`
	Values   []any             `json:"values"`
}

// ConditionGroup is a conjunction: every condition in the group must match.
type ConditionGroup struct {
	Conditions []Condition `json:"conditions"`
}

// Matches evaluates the group against the given variables (AND semantics).
func (g ConditionGroup) Matches(vars map[string]any) bool {
	for _, cond := range g.Conditions {
		if !cond.Matches(vars) {
			return false
		}
	}

	return len(g.Conditions) > 0
}

// MatchesAnyGroup reports whether at least one group matches (OR across groups).
func MatchesAnyGroup(groups []ConditionGroup, vars map[string]any) bool {
	for _, group := range groups {
		if group.Matches(vars) {
			return true
		}
	}

	return false
}

// Matches evaluates one condition against the variables. Missing variables
// never match. Ordering operators require both sides to be numeric.
func (c Condition) Matches(vars map[string]any) bool {
	value, ok := vars[c.VarName]
	if !ok {
		return false
	}

	switch c.Operator {
	case OperatorEquals:
		return len(c.Values) > 0 && looseEquals(value, c.Values[0])
	case OperatorNotEquals:
		return len(c.Values) > 0 && !looseEquals(value, c.Values[0])
	case OperatorIn:
		for _, candidate := range c.Values {
			if looseEquals(value, candidate) {
				return true
			}
		}

		return false
	case OperatorGreater, OperatorGreaterEqual, OperatorLess, OperatorLessEqual:
		if len(c.Values) == 0 {
			return false
		}

		left, leftOK := toFloat(value)
		right, rightOK := toFloat(c.Values[0])

		if !leftOK || !rightOK {
			return false
		}

		switch c.Operator {
		case OperatorGreater:
			return left > right
		case OperatorGreaterEqual:
			return left >= right
		case OperatorLess:
			return left < right
		default:
			return left <= right
		}
	}

	return false
}

// looseEquals compares numerically when both sides are numbers, otherwise by
// string representation. Form data arrives via JSON, so ints and float64s
// must compare equal.
func looseEquals(a, b any) bool {
	af, aok := toFloat(a)
	bf, bok := toFloat(b)

	if aok && bok {
		return af == bf
	}

	return fmt.Sprintf("%v", a) == fmt.Sprintf("%v", b)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	case string:
		parsed, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return 0, false
		}

		return parsed, true
	default:
		return 0, false
	}
}
