package subjectmapping

import (
	"github.com/timgst1/policyd/internal/db"
	"github.com/timgst1/policyd/internal/policy"
)

type MatchSubjectMappingsRequest struct {
	SubjectProperties []policy.SubjectProperty `json:"subject_properties"`
}

type MatchSubjectMappingsResponse struct {
	SubjectMappings []policy.SubjectMapping `json:"subject_mappings"`
}

type ListSubjectMappingsRequest struct {
	Pagination policy.PageRequest `json:"pagination"`
}

type ListSubjectMappingsResponse struct {
	SubjectMappings []policy.SubjectMapping `json:"subject_mappings"`
	Pagination      policy.PageResponse     `json:"pagination"`
}

type GetSubjectMappingRequest struct {
	ID string `json:"id"`
}

type GetSubjectMappingResponse struct {
	SubjectMapping *policy.SubjectMapping `json:"subject_mapping"`
}

// CreateSubjectMappingRequest takes either an existing condition set id or
// a new condition set, never both.
type CreateSubjectMappingRequest struct {
	AttributeValueID              string                     `json:"attribute_value_id"`
	Actions                       []policy.Action            `json:"actions"`
	ExistingSubjectConditionSetID string                     `json:"existing_subject_condition_set_id,omitempty"`
	NewSubjectConditionSet        *db.NewSubjectConditionSet `json:"new_subject_condition_set,omitempty"`
	Metadata                      *policy.MetadataMutable    `json:"metadata,omitempty"`
}

type CreateSubjectMappingResponse struct {
	SubjectMapping *policy.SubjectMapping `json:"subject_mapping"`
}

type UpdateSubjectMappingRequest struct {
	ID                    string                        `json:"id"`
	SubjectConditionSetID string                        `json:"subject_condition_set_id,omitempty"`
	Actions               []policy.Action               `json:"actions,omitempty"`
	Metadata              *policy.MetadataMutable       `json:"metadata,omitempty"`
	MetadataBehavior      policy.MetadataUpdateBehavior `json:"metadata_update_behavior,omitempty"`
}

type UpdateSubjectMappingResponse struct {
	SubjectMapping *policy.SubjectMapping `json:"subject_mapping"`
}

type DeleteSubjectMappingRequest struct {
	ID string `json:"id"`
}

type DeleteSubjectMappingResponse struct {
	SubjectMapping *policy.SubjectMapping `json:"subject_mapping"`
}

type ListSubjectConditionSetsRequest struct {
	Pagination policy.PageRequest `json:"pagination"`
}

type ListSubjectConditionSetsResponse struct {
	SubjectConditionSets []policy.SubjectConditionSet `json:"subject_condition_sets"`
	Pagination           policy.PageResponse          `json:"pagination"`
}

type GetSubjectConditionSetRequest struct {
	ID string `json:"id"`
}

type GetSubjectConditionSetResponse struct {
	SubjectConditionSet       *policy.SubjectConditionSet `json:"subject_condition_set"`
	AssociatedSubjectMappings []policy.SubjectMapping     `json:"associated_subject_mappings"`
}

type CreateSubjectConditionSetRequest struct {
	SubjectConditionSet *db.NewSubjectConditionSet `json:"subject_condition_set"`
}

type CreateSubjectConditionSetResponse struct {
	SubjectConditionSet *policy.SubjectConditionSet `json:"subject_condition_set"`
}

type UpdateSubjectConditionSetRequest struct {
	ID string `json:"id"`
	// SubjectSets replaces the stored sets when non-empty.
	SubjectSets      []policy.SubjectSet           `json:"subject_sets,omitempty"`
	Metadata         *policy.MetadataMutable       `json:"metadata,omitempty"`
	MetadataBehavior policy.MetadataUpdateBehavior `json:"metadata_update_behavior,omitempty"`
}

type UpdateSubjectConditionSetResponse struct {
	SubjectConditionSet *policy.SubjectConditionSet `json:"subject_condition_set"`
}

type DeleteSubjectConditionSetRequest struct {
	ID string `json:"id"`
}

type DeleteSubjectConditionSetResponse struct {
	SubjectConditionSet *policy.SubjectConditionSet `json:"subject_condition_set"`
}

// ResolveEntitlementsRequest carries an entity document, typically the
// claims of a token, as decoded from JSON.
type ResolveEntitlementsRequest struct {
	Entity map[string]any `json:"entity"`
	// Scope limits the result to these attribute value FQNs when set.
	Scope                  []string `json:"scope,omitempty"`
	ComprehensiveHierarchy bool     `json:"comprehensive_hierarchy,omitempty"`
}

type Entitlement struct {
	AttributeValueFqn string          `json:"attribute_value_fqn"`
	Actions           []policy.Action `json:"actions"`
}

type ResolveEntitlementsResponse struct {
	Entitlements []Entitlement `json:"entitlements"`
}
