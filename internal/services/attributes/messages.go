package attributes

import (
	"github.com/timgst1/policyd/internal/db"
	"github.com/timgst1/policyd/internal/policy"
)

type ListAttributesRequest struct {
	State policy.ActiveState `json:"state,omitempty"`
	// Namespace is a namespace id or name.
	Namespace  string             `json:"namespace,omitempty"`
	Pagination policy.PageRequest `json:"pagination"`
}

type ListAttributesResponse struct {
	Attributes []policy.Attribute  `json:"attributes"`
	Pagination policy.PageResponse `json:"pagination"`
}

// GetAttributeRequest identifies the attribute by id or by FQN.
type GetAttributeRequest struct {
	ID  string `json:"id,omitempty"`
	Fqn string `json:"fqn,omitempty"`
}

type GetAttributeResponse struct {
	Attribute *policy.Attribute `json:"attribute"`
}

type GetAttributeValuesByFqnsRequest struct {
	Fqns []string `json:"fqns"`
}

type GetAttributeValuesByFqnsResponse struct {
	FqnAttributeValues map[string]db.AttributeAndValue `json:"fqn_attribute_values"`
}

type CreateAttributeRequest struct {
	NamespaceID string                  `json:"namespace_id"`
	Name        string                  `json:"name"`
	Rule        policy.AttributeRule    `json:"rule"`
	Values      []string                `json:"values,omitempty"`
	Metadata    *policy.MetadataMutable `json:"metadata,omitempty"`
}

type CreateAttributeResponse struct {
	Attribute *policy.Attribute `json:"attribute"`
}

type UpdateAttributeRequest struct {
	ID               string                        `json:"id"`
	Metadata         *policy.MetadataMutable       `json:"metadata,omitempty"`
	MetadataBehavior policy.MetadataUpdateBehavior `json:"metadata_update_behavior,omitempty"`
}

type UpdateAttributeResponse struct {
	Attribute *policy.Attribute `json:"attribute"`
}

type DeactivateAttributeRequest struct {
	ID string `json:"id"`
}

type DeactivateAttributeResponse struct {
	Attribute *policy.Attribute `json:"attribute"`
}

type GetAttributeValueRequest struct {
	ID string `json:"id"`
}

type GetAttributeValueResponse struct {
	Value *policy.Value `json:"value"`
}

type ListAttributeValuesRequest struct {
	AttributeID string             `json:"attribute_id"`
	State       policy.ActiveState `json:"state,omitempty"`
	Pagination  policy.PageRequest `json:"pagination"`
}

type ListAttributeValuesResponse struct {
	Values     []policy.Value      `json:"values"`
	Pagination policy.PageResponse `json:"pagination"`
}

type CreateAttributeValueRequest struct {
	AttributeID string                  `json:"attribute_id"`
	Value       string                  `json:"value"`
	Members     []string                `json:"members,omitempty"`
	Metadata    *policy.MetadataMutable `json:"metadata,omitempty"`
}

type CreateAttributeValueResponse struct {
	Value *policy.Value `json:"value"`
}

type UpdateAttributeValueRequest struct {
	ID string `json:"id"`
	// Members replaces the member list when present; null leaves it alone.
	Members          []string                      `json:"members"`
	Metadata         *policy.MetadataMutable       `json:"metadata,omitempty"`
	MetadataBehavior policy.MetadataUpdateBehavior `json:"metadata_update_behavior,omitempty"`
}

type UpdateAttributeValueResponse struct {
	Value *policy.Value `json:"value"`
}

type DeactivateAttributeValueRequest struct {
	ID string `json:"id"`
}

type DeactivateAttributeValueResponse struct {
	Value *policy.Value `json:"value"`
}

type AttributeKeyAccessServer struct {
	AttributeID       string `json:"attribute_id"`
	KeyAccessServerID string `json:"key_access_server_id"`
}

type ValueKeyAccessServer struct {
	ValueID           string `json:"value_id"`
	KeyAccessServerID string `json:"key_access_server_id"`
}

type AssignKeyAccessServerToAttributeRequest struct {
	AttributeKeyAccessServer *AttributeKeyAccessServer `json:"attribute_key_access_server"`
}

type AssignKeyAccessServerToAttributeResponse struct {
	AttributeKeyAccessServer *AttributeKeyAccessServer `json:"attribute_key_access_server"`
}

type RemoveKeyAccessServerFromAttributeRequest struct {
	AttributeKeyAccessServer *AttributeKeyAccessServer `json:"attribute_key_access_server"`
}

type RemoveKeyAccessServerFromAttributeResponse struct {
	AttributeKeyAccessServer *AttributeKeyAccessServer `json:"attribute_key_access_server"`
}

type AssignKeyAccessServerToValueRequest struct {
	ValueKeyAccessServer *ValueKeyAccessServer `json:"value_key_access_server"`
}

type AssignKeyAccessServerToValueResponse struct {
	ValueKeyAccessServer *ValueKeyAccessServer `json:"value_key_access_server"`
}

type RemoveKeyAccessServerFromValueRequest struct {
	ValueKeyAccessServer *ValueKeyAccessServer `json:"value_key_access_server"`
}

type RemoveKeyAccessServerFromValueResponse struct {
	ValueKeyAccessServer *ValueKeyAccessServer `json:"value_key_access_server"`
}
