package namespaces

import "github.com/timgst1/policyd/internal/policy"

type GetNamespaceRequest struct {
	ID string `json:"id"`
}

type GetNamespaceResponse struct {
	Namespace *policy.Namespace `json:"namespace"`
}

type ListNamespacesRequest struct {
	State      policy.ActiveState `json:"state,omitempty"`
	Pagination policy.PageRequest `json:"pagination"`
}

type ListNamespacesResponse struct {
	Namespaces []policy.Namespace   `json:"namespaces"`
	Pagination policy.PageResponse `json:"pagination"`
}

type CreateNamespaceRequest struct {
	Name     string                  `json:"name"`
	Metadata *policy.MetadataMutable `json:"metadata,omitempty"`
}

type CreateNamespaceResponse struct {
	Namespace *policy.Namespace `json:"namespace"`
}

type UpdateNamespaceRequest struct {
	ID               string                        `json:"id"`
	Metadata         *policy.MetadataMutable       `json:"metadata,omitempty"`
	MetadataBehavior policy.MetadataUpdateBehavior `json:"metadata_update_behavior,omitempty"`
}

type UpdateNamespaceResponse struct {
	Namespace *policy.Namespace `json:"namespace"`
}

type DeactivateNamespaceRequest struct {
	ID string `json:"id"`
}

type DeactivateNamespaceResponse struct {
	Namespace *policy.Namespace `json:"namespace"`
}
