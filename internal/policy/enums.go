package policy

import (
	"fmt"
	"strings"
)

// AttributeRule decides how the values of an attribute combine when data is
// tagged with more than one of them.
type AttributeRule string

const (
	RuleUnspecified AttributeRule = ""
	RuleAllOf       AttributeRule = "ALL_OF"
	RuleAnyOf       AttributeRule = "ANY_OF"
	RuleHierarchy   AttributeRule = "HIERARCHY"
)

func (r AttributeRule) Valid() bool {
	switch r {
	case RuleAllOf, RuleAnyOf, RuleHierarchy:
		return true
	}
	return false
}

func (r *AttributeRule) UnmarshalText(b []byte) error {
	v, err := parseEnum(string(b), "ATTRIBUTE_RULE_TYPE_ENUM_", RuleAllOf, RuleAnyOf, RuleHierarchy)
	if err != nil {
		return fmt.Errorf("attribute rule: %w", err)
	}
	*r = v
	return nil
}

// SubjectMappingOperator compares the values selected from a subject against
// the values listed in a condition.
type SubjectMappingOperator string

const (
	OperatorUnspecified SubjectMappingOperator = ""
	OperatorIn          SubjectMappingOperator = "IN"
	OperatorNotIn       SubjectMappingOperator = "NOT_IN"
	OperatorInContains  SubjectMappingOperator = "IN_CONTAINS"
)

func (o SubjectMappingOperator) Valid() bool {
	switch o {
	case OperatorIn, OperatorNotIn, OperatorInContains:
		return true
	}
	return false
}

func (o *SubjectMappingOperator) UnmarshalText(b []byte) error {
	v, err := parseEnum(string(b), "SUBJECT_MAPPING_OPERATOR_ENUM_", OperatorIn, OperatorNotIn, OperatorInContains)
	if err != nil {
		return fmt.Errorf("subject mapping operator: %w", err)
	}
	*o = v
	return nil
}

// ConditionBooleanType joins the conditions of one condition group.
type ConditionBooleanType string

const (
	BooleanUnspecified ConditionBooleanType = ""
	BooleanAnd         ConditionBooleanType = "AND"
	BooleanOr          ConditionBooleanType = "OR"
)

func (b ConditionBooleanType) Valid() bool {
	return b == BooleanAnd || b == BooleanOr
}

func (b *ConditionBooleanType) UnmarshalText(text []byte) error {
	v, err := parseEnum(string(text), "CONDITION_BOOLEAN_TYPE_ENUM_", BooleanAnd, BooleanOr)
	if err != nil {
		return fmt.Errorf("condition boolean operator: %w", err)
	}
	*b = v
	return nil
}

type StandardAction string

const (
	StandardActionUnspecified StandardAction = ""
	StandardActionDecrypt     StandardAction = "DECRYPT"
	StandardActionTransmit    StandardAction = "TRANSMIT"
)

func (a StandardAction) Valid() bool {
	return a == StandardActionDecrypt || a == StandardActionTransmit
}

func (a *StandardAction) UnmarshalText(b []byte) error {
	v, err := parseEnum(string(b), "STANDARD_ACTION_", StandardActionDecrypt, StandardActionTransmit)
	if err != nil {
		return fmt.Errorf("standard action: %w", err)
	}
	*a = v
	return nil
}

// ActiveState filters list operations by the active flag. The zero value
// behaves like ActiveStateActive.
type ActiveState string

const (
	ActiveStateUnspecified ActiveState = ""
	ActiveStateActive      ActiveState = "ACTIVE"
	ActiveStateInactive    ActiveState = "INACTIVE"
	ActiveStateAny         ActiveState = "ANY"
)

func (s *ActiveState) UnmarshalText(b []byte) error {
	v, err := parseEnum(string(b), "ACTIVE_STATE_ENUM_", ActiveStateActive, ActiveStateInactive, ActiveStateAny)
	if err != nil {
		return fmt.Errorf("active state: %w", err)
	}
	*s = v
	return nil
}

// Resolve maps the unspecified state onto ACTIVE.
func (s ActiveState) Resolve() ActiveState {
	if s == ActiveStateUnspecified {
		return ActiveStateActive
	}
	return s
}

// MetadataUpdateBehavior selects how labels in an update are applied.
type MetadataUpdateBehavior string

const (
	MetadataUpdateUnspecified MetadataUpdateBehavior = ""
	MetadataUpdateExtend      MetadataUpdateBehavior = "EXTEND"
	MetadataUpdateReplace     MetadataUpdateBehavior = "REPLACE"
)

func (m *MetadataUpdateBehavior) UnmarshalText(b []byte) error {
	v, err := parseEnum(string(b), "METADATA_UPDATE_ENUM_", MetadataUpdateExtend, MetadataUpdateReplace)
	if err != nil {
		return fmt.Errorf("metadata update behavior: %w", err)
	}
	*m = v
	return nil
}

// parseEnum accepts the short spelling ("ALL_OF") as well as the long
// proto-style one ("ATTRIBUTE_RULE_TYPE_ENUM_ALL_OF"), case-insensitively.
// "UNSPECIFIED" and the empty string decode to the zero value.
func parseEnum[T ~string](raw, longPrefix string, allowed ...T) (T, error) {
	var zero T
	s := strings.ToUpper(strings.TrimSpace(raw))
	s = strings.TrimPrefix(s, longPrefix)
	if s == "" || s == "UNSPECIFIED" {
		return zero, nil
	}
	for _, a := range allowed {
		if string(a) == s {
			return a, nil
		}
	}
	return zero, fmt.Errorf("%w: unknown value %q", ErrInvalid, raw)
}
