package kasregistry

import "github.com/timgst1/policyd/internal/policy"

type GetKeyAccessServerRequest struct {
	ID string `json:"id"`
}

type GetKeyAccessServerResponse struct {
	KeyAccessServer *policy.KeyAccessServer `json:"key_access_server"`
}

type ListKeyAccessServersRequest struct {
	Pagination policy.PageRequest `json:"pagination"`
}

type ListKeyAccessServersResponse struct {
	KeyAccessServers []policy.KeyAccessServer `json:"key_access_servers"`
	Pagination       policy.PageResponse      `json:"pagination"`
}

type CreateKeyAccessServerRequest struct {
	URI       string                  `json:"uri"`
	Name      string                  `json:"name,omitempty"`
	PublicKey policy.PublicKey        `json:"public_key"`
	Metadata  *policy.MetadataMutable `json:"metadata,omitempty"`
}

type CreateKeyAccessServerResponse struct {
	KeyAccessServer *policy.KeyAccessServer `json:"key_access_server"`
}

type UpdateKeyAccessServerRequest struct {
	ID               string                        `json:"id"`
	URI              string                        `json:"uri,omitempty"`
	Name             string                        `json:"name,omitempty"`
	PublicKey        *policy.PublicKey             `json:"public_key,omitempty"`
	Metadata         *policy.MetadataMutable       `json:"metadata,omitempty"`
	MetadataBehavior policy.MetadataUpdateBehavior `json:"metadata_update_behavior,omitempty"`
}

type UpdateKeyAccessServerResponse struct {
	KeyAccessServer *policy.KeyAccessServer `json:"key_access_server"`
}

type DeleteKeyAccessServerRequest struct {
	ID string `json:"id"`
}

type DeleteKeyAccessServerResponse struct {
	KeyAccessServer *policy.KeyAccessServer `json:"key_access_server"`
}
