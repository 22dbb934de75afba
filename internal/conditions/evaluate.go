// Package conditions decides whether an entity satisfies subject condition
// sets and turns matching subject mappings into entitlements.
package conditions

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/timgst1/policyd/internal/flattening"
	"github.com/timgst1/policyd/internal/policy"
)

var ErrUnsupportedOperator = errors.New("unsupported operator")

func EvaluateCondition(c policy.Condition, entity flattening.Flattened) (bool, error) {
	selected := flattening.GetFromFlattened(entity, c.SubjectExternalSelectorValue)

	switch c.Operator {
	case policy.OperatorIn:
		return anyMatch(selected, c.SubjectExternalValues, equals), nil
	case policy.OperatorNotIn:
		return !anyMatch(selected, c.SubjectExternalValues, equals), nil
	case policy.OperatorInContains:
		return anyMatch(selected, c.SubjectExternalValues, strings.Contains), nil
	default:
		return false, fmt.Errorf("%w: condition operator %q", ErrUnsupportedOperator, c.Operator)
	}
}

// EvaluateConditionGroup stops at the first condition that decides the group.
func EvaluateConditionGroup(g policy.ConditionGroup, entity flattening.Flattened) (bool, error) {
	var stopOn bool
	switch g.BooleanOperator {
	case policy.BooleanAnd:
		stopOn = false
	case policy.BooleanOr:
		stopOn = true
	default:
		return false, fmt.Errorf("%w: condition group operator %q", ErrUnsupportedOperator, g.BooleanOperator)
	}

	for _, c := range g.Conditions {
		ok, err := EvaluateCondition(c, entity)
		if err != nil {
			return false, err
		}
		if ok == stopOn {
			return stopOn, nil
		}
	}
	return !stopOn, nil
}

func EvaluateSubjectSet(s policy.SubjectSet, entity flattening.Flattened) (bool, error) {
	for _, g := range s.ConditionGroups {
		ok, err := EvaluateConditionGroup(g, entity)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

func EvaluateSubjectConditionSet(sets []policy.SubjectSet, entity flattening.Flattened) (bool, error) {
	for _, s := range sets {
		ok, err := EvaluateSubjectSet(s, entity)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

func anyMatch(selected []any, want []string, match func(got, want string) bool) bool {
	for _, v := range selected {
		got := stringify(v)
		for _, w := range want {
			if match(got, w) {
				return true
			}
		}
	}
	return false
}

func equals(a, b string) bool { return a == b }

func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	default:
		return fmt.Sprint(t)
	}
}

// actionKey tells standard and custom actions apart even when their display
// forms collide.
func actionKey(a policy.Action) string {
	if a.Standard != policy.StandardActionUnspecified {
		return "std:" + string(a.Standard)
	}
	return "custom:" + a.Custom
}

// sortedActions orders actions by actionKey: standard before custom.
func sortedActions(set map[string]policy.Action) []policy.Action {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	out := make([]policy.Action, 0, len(keys))
	for _, k := range keys {
		out = append(out, set[k])
	}
	return out
}
