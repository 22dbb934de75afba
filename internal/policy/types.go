// Package policy holds the attribute based access control model served by
// policyd: namespaces, attribute definitions and their values, key access
// server grants, subject condition sets and the subject mappings that bind
// them to attribute values.
package policy

import (
	"strings"
	"time"
)

type Metadata struct {
	CreatedAt time.Time         `json:"created_at" yaml:"created_at"`
	UpdatedAt time.Time         `json:"updated_at" yaml:"updated_at"`
	Labels    map[string]string `json:"labels,omitempty" yaml:"labels,omitempty"`
}

// MetadataMutable is the caller-controlled part of Metadata.
type MetadataMutable struct {
	Labels map[string]string `json:"labels,omitempty" yaml:"labels,omitempty"`
}

type Namespace struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	FQN      string    `json:"fqn"`
	Active   bool      `json:"active"`
	Metadata *Metadata `json:"metadata,omitempty"`
}

type Attribute struct {
	ID        string            `json:"id"`
	Namespace *Namespace        `json:"namespace,omitempty"`
	Name      string            `json:"name"`
	Rule      AttributeRule     `json:"rule"`
	Values    []Value           `json:"values,omitempty"`
	Grants    []KeyAccessServer `json:"grants,omitempty"`
	FQN       string            `json:"fqn"`
	Active    bool              `json:"active"`
	Metadata  *Metadata         `json:"metadata,omitempty"`
}

// Value is one permissible value of an Attribute. Attribute is only set on
// values returned on their own; values nested in an Attribute leave it nil.
type Value struct {
	ID              string            `json:"id"`
	Attribute       *Attribute        `json:"attribute,omitempty"`
	Value           string            `json:"value"`
	Members         []Value           `json:"members,omitempty"`
	Grants          []KeyAccessServer `json:"grants,omitempty"`
	FQN             string            `json:"fqn"`
	Active          bool              `json:"active"`
	SubjectMappings []SubjectMapping  `json:"subject_mappings,omitempty"`
	Metadata        *Metadata         `json:"metadata,omitempty"`
}

type PublicKey struct {
	Remote string `json:"remote,omitempty" yaml:"remote,omitempty"`
	Local  string `json:"local,omitempty" yaml:"local,omitempty"`
}

type KeyAccessServer struct {
	ID        string    `json:"id"`
	URI       string    `json:"uri"`
	Name      string    `json:"name,omitempty"`
	PublicKey PublicKey `json:"public_key"`
	Metadata  *Metadata `json:"metadata,omitempty"`
}

// Action is either a standard action or a custom, free-form one.
type Action struct {
	Standard StandardAction `json:"standard,omitempty" yaml:"standard,omitempty" cbor:"1,keyasint,omitempty"`
	Custom   string         `json:"custom,omitempty" yaml:"custom,omitempty" cbor:"2,keyasint,omitempty"`
}

func (a Action) String() string {
	if a.Standard != StandardActionUnspecified {
		return strings.ToLower(string(a.Standard))
	}
	return a.Custom
}

type Condition struct {
	SubjectExternalSelectorValue string                 `json:"subject_external_selector_value" yaml:"subject_external_selector_value" cbor:"1,keyasint"`
	Operator                     SubjectMappingOperator `json:"operator" yaml:"operator" cbor:"2,keyasint"`
	SubjectExternalValues        []string               `json:"subject_external_values" yaml:"subject_external_values" cbor:"3,keyasint"`
}

type ConditionGroup struct {
	Conditions      []Condition          `json:"conditions" yaml:"conditions" cbor:"1,keyasint"`
	BooleanOperator ConditionBooleanType `json:"boolean_operator" yaml:"boolean_operator" cbor:"2,keyasint"`
}

type SubjectSet struct {
	ConditionGroups []ConditionGroup `json:"condition_groups" yaml:"condition_groups" cbor:"1,keyasint"`
}

// SubjectConditionSet is a reusable description of which subjects qualify
// for a mapping. Every subject set must hold for the whole set to hold.
type SubjectConditionSet struct {
	ID          string       `json:"id"`
	SubjectSets []SubjectSet `json:"subject_sets"`
	Metadata    *Metadata    `json:"metadata,omitempty"`
}

type SubjectMapping struct {
	ID                  string               `json:"id"`
	AttributeValue      *Value               `json:"attribute_value,omitempty"`
	SubjectConditionSet *SubjectConditionSet `json:"subject_condition_set,omitempty"`
	Actions             []Action             `json:"actions"`
	Metadata            *Metadata            `json:"metadata,omitempty"`
}

// SubjectProperty is one selector/value pair known about a subject, used to
// look up the subject mappings that mention it.
type SubjectProperty struct {
	ExternalSelectorValue string `json:"external_selector_value"`
	ExternalValue         string `json:"external_value"`
}
