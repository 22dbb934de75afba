package conditions

import (
	"fmt"
	"slices"

	"github.com/timgst1/policyd/internal/flattening"
	"github.com/timgst1/policyd/internal/policy"
)

type Options struct {
	// ComprehensiveHierarchy extends an entitlement on a HIERARCHY value to
	// every value ranked below it. Requires mappings whose AttributeValue
	// carries its Attribute with the full ordered value list.
	ComprehensiveHierarchy bool
}

// EvaluateSubjectMappings returns the actions entity is entitled to, keyed
// by attribute value FQN. Mappings without a condition set or value are
// skipped.
func EvaluateSubjectMappings(mappings []policy.SubjectMapping, entity flattening.Flattened, opts Options) (map[string][]policy.Action, error) {
	acc := map[string]map[string]policy.Action{}
	add := func(fqn string, actions []policy.Action) {
		set, ok := acc[fqn]
		if !ok {
			set = map[string]policy.Action{}
			acc[fqn] = set
		}
		for _, a := range actions {
			set[actionKey(a)] = a
		}
	}

	for _, sm := range mappings {
		if sm.SubjectConditionSet == nil || sm.AttributeValue == nil {
			continue
		}
		ok, err := EvaluateSubjectConditionSet(sm.SubjectConditionSet.SubjectSets, entity)
		if err != nil {
			return nil, fmt.Errorf("subject mapping %s: %w", sm.ID, err)
		}
		if !ok {
			continue
		}

		fqn := sm.AttributeValue.FQN
		add(fqn, sm.Actions)

		if opts.ComprehensiveHierarchy {
			for _, lower := range lowerHierarchyValues(sm.AttributeValue) {
				add(lower, sm.Actions)
			}
		}
	}

	out := make(map[string][]policy.Action, len(acc))
	for fqn, set := range acc {
		out[fqn] = sortedActions(set)
	}
	return out, nil
}

// lowerHierarchyValues lists the FQNs of the values after v in the order of
// its HIERARCHY attribute. Values are ranked highest first.
func lowerHierarchyValues(v *policy.Value) []string {
	attr := v.Attribute
	if attr == nil || attr.Rule != policy.RuleHierarchy {
		return nil
	}
	idx := slices.IndexFunc(attr.Values, func(other policy.Value) bool {
		return (v.ID != "" && other.ID == v.ID) || (other.FQN != "" && other.FQN == v.FQN)
	})
	if idx < 0 {
		return nil
	}
	var out []string
	for _, lower := range attr.Values[idx+1:] {
		if lower.FQN != "" {
			out = append(out, lower.FQN)
		}
	}
	return out
}
