// Package attributes serves attributes.AttributesService: attribute
// definitions, their values and the key access server grants on both.
package attributes

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/timgst1/policyd/internal/db"
	"github.com/timgst1/policyd/internal/events"
	"github.com/timgst1/policyd/internal/policy"
)

// MaxFqnsPerRequest bounds GetAttributeValuesByFqns.
const MaxFqnsPerRequest = 250

type Service struct {
	UnimplementedAttributesServiceServer

	db     *db.Client
	events *events.Emitter
	log    *slog.Logger
}

func NewService(client *db.Client, em *events.Emitter, log *slog.Logger) *Service {
	return &Service{db: client, events: em, log: log}
}

func (s *Service) ListAttributes(ctx context.Context, req *ListAttributesRequest) (*ListAttributesResponse, error) {
	list, page, err := s.db.ListAttributes(ctx, db.ListAttributesParams{
		State:     req.State,
		Namespace: req.Namespace,
		Page:      req.Pagination,
	})
	if err != nil {
		return nil, err
	}
	return &ListAttributesResponse{Attributes: list, Pagination: page}, nil
}

func (s *Service) GetAttribute(ctx context.Context, req *GetAttributeRequest) (*GetAttributeResponse, error) {
	var (
		attr *policy.Attribute
		err  error
	)
	switch {
	case req.ID != "" && req.Fqn != "":
		return nil, fmt.Errorf("%w: set either id or fqn, not both", policy.ErrInvalid)
	case req.ID != "":
		attr, err = s.db.GetAttribute(ctx, req.ID)
	case req.Fqn != "":
		attr, err = s.db.GetAttributeByFQN(ctx, req.Fqn)
	default:
		return nil, policy.ErrRequired("id or fqn")
	}
	if err != nil {
		return nil, err
	}
	return &GetAttributeResponse{Attribute: attr}, nil
}

func (s *Service) GetAttributeValuesByFqns(ctx context.Context, req *GetAttributeValuesByFqnsRequest) (*GetAttributeValuesByFqnsResponse, error) {
	if n := len(req.Fqns); n == 0 || n > MaxFqnsPerRequest {
		return nil, fmt.Errorf("%w: between 1 and %d fqns are required, got %d", policy.ErrInvalid, MaxFqnsPerRequest, n)
	}
	resolved, err := s.db.GetAttributesByValueFqns(ctx, req.Fqns)
	if err != nil {
		return nil, err
	}
	return &GetAttributeValuesByFqnsResponse{FqnAttributeValues: resolved}, nil
}

func (s *Service) CreateAttribute(ctx context.Context, req *CreateAttributeRequest) (*CreateAttributeResponse, error) {
	if req.NamespaceID == "" {
		return nil, policy.ErrRequired("namespace_id")
	}
	attr, err := s.db.CreateAttribute(ctx, db.CreateAttributeParams{
		NamespaceID: req.NamespaceID,
		Name:        req.Name,
		Rule:        req.Rule,
		Values:      req.Values,
		Metadata:    req.Metadata,
	})
	if err != nil {
		return nil, err
	}
	s.events.Emit(ctx, events.AttributeCreated, attr.ID, map[string]string{"fqn": attr.FQN, "rule": string(attr.Rule)})
	for _, v := range attr.Values {
		s.events.Emit(ctx, events.ValueCreated, v.ID, map[string]string{"fqn": v.FQN, "attribute_id": attr.ID})
	}
	return &CreateAttributeResponse{Attribute: attr}, nil
}

func (s *Service) UpdateAttribute(ctx context.Context, req *UpdateAttributeRequest) (*UpdateAttributeResponse, error) {
	if req.ID == "" {
		return nil, policy.ErrRequired("id")
	}
	attr, err := s.db.UpdateAttribute(ctx, req.ID, req.Metadata, req.MetadataBehavior)
	if err != nil {
		return nil, err
	}
	s.events.Emit(ctx, events.AttributeUpdated, attr.ID, map[string]string{"fqn": attr.FQN})
	return &UpdateAttributeResponse{Attribute: attr}, nil
}

func (s *Service) DeactivateAttribute(ctx context.Context, req *DeactivateAttributeRequest) (*DeactivateAttributeResponse, error) {
	if req.ID == "" {
		return nil, policy.ErrRequired("id")
	}
	attr, err := s.db.DeactivateAttribute(ctx, req.ID)
	if err != nil {
		return nil, err
	}
	s.log.Info("attribute deactivated", "id", attr.ID, "fqn", attr.FQN)
	s.events.Emit(ctx, events.AttributeDeactivated, attr.ID, map[string]string{"fqn": attr.FQN})
	return &DeactivateAttributeResponse{Attribute: attr}, nil
}

func (s *Service) GetAttributeValue(ctx context.Context, req *GetAttributeValueRequest) (*GetAttributeValueResponse, error) {
	if req.ID == "" {
		return nil, policy.ErrRequired("id")
	}
	v, err := s.db.GetAttributeValue(ctx, req.ID)
	if err != nil {
		return nil, err
	}
	return &GetAttributeValueResponse{Value: v}, nil
}

func (s *Service) ListAttributeValues(ctx context.Context, req *ListAttributeValuesRequest) (*ListAttributeValuesResponse, error) {
	if req.AttributeID == "" {
		return nil, policy.ErrRequired("attribute_id")
	}
	list, page, err := s.db.ListAttributeValues(ctx, req.AttributeID, req.State, req.Pagination)
	if err != nil {
		return nil, err
	}
	return &ListAttributeValuesResponse{Values: list, Pagination: page}, nil
}

func (s *Service) CreateAttributeValue(ctx context.Context, req *CreateAttributeValueRequest) (*CreateAttributeValueResponse, error) {
	if req.AttributeID == "" {
		return nil, policy.ErrRequired("attribute_id")
	}
	v, err := s.db.CreateAttributeValue(ctx, db.CreateAttributeValueParams{
		AttributeID: req.AttributeID,
		Value:       req.Value,
		Members:     req.Members,
		Metadata:    req.Metadata,
	})
	if err != nil {
		return nil, err
	}
	s.events.Emit(ctx, events.ValueCreated, v.ID, map[string]string{"fqn": v.FQN, "attribute_id": req.AttributeID})
	return &CreateAttributeValueResponse{Value: v}, nil
}

func (s *Service) UpdateAttributeValue(ctx context.Context, req *UpdateAttributeValueRequest) (*UpdateAttributeValueResponse, error) {
	if req.ID == "" {
		return nil, policy.ErrRequired("id")
	}
	v, err := s.db.UpdateAttributeValue(ctx, db.UpdateAttributeValueParams{
		ID:               req.ID,
		Members:          req.Members,
		Metadata:         req.Metadata,
		MetadataBehavior: req.MetadataBehavior,
	})
	if err != nil {
		return nil, err
	}
	s.events.Emit(ctx, events.ValueUpdated, v.ID, map[string]string{"fqn": v.FQN})
	return &UpdateAttributeValueResponse{Value: v}, nil
}

func (s *Service) DeactivateAttributeValue(ctx context.Context, req *DeactivateAttributeValueRequest) (*DeactivateAttributeValueResponse, error) {
	if req.ID == "" {
		return nil, policy.ErrRequired("id")
	}
	v, err := s.db.DeactivateAttributeValue(ctx, req.ID)
	if err != nil {
		return nil, err
	}
	s.events.Emit(ctx, events.ValueDeactivated, v.ID, map[string]string{"fqn": v.FQN})
	return &DeactivateAttributeValueResponse{Value: v}, nil
}

func (s *Service) AssignKeyAccessServerToAttribute(ctx context.Context, req *AssignKeyAccessServerToAttributeRequest) (*AssignKeyAccessServerToAttributeResponse, error) {
	g, err := attributeGrant(req.AttributeKeyAccessServer)
	if err != nil {
		return nil, err
	}
	if _, err := s.db.AssignKeyAccessServerToAttribute(ctx, g); err != nil {
		return nil, err
	}
	s.events.Emit(ctx, events.GrantAttributeAssigned, g.TargetID, grantDetails(g))
	return &AssignKeyAccessServerToAttributeResponse{AttributeKeyAccessServer: req.AttributeKeyAccessServer}, nil
}

func (s *Service) RemoveKeyAccessServerFromAttribute(ctx context.Context, req *RemoveKeyAccessServerFromAttributeRequest) (*RemoveKeyAccessServerFromAttributeResponse, error) {
	g, err := attributeGrant(req.AttributeKeyAccessServer)
	if err != nil {
		return nil, err
	}
	if _, err := s.db.RemoveKeyAccessServerFromAttribute(ctx, g); err != nil {
		return nil, err
	}
	s.events.Emit(ctx, events.GrantAttributeRemoved, g.TargetID, grantDetails(g))
	return &RemoveKeyAccessServerFromAttributeResponse{AttributeKeyAccessServer: req.AttributeKeyAccessServer}, nil
}

func (s *Service) AssignKeyAccessServerToValue(ctx context.Context, req *AssignKeyAccessServerToValueRequest) (*AssignKeyAccessServerToValueResponse, error) {
	g, err := valueGrant(req.ValueKeyAccessServer)
	if err != nil {
		return nil, err
	}
	if _, err := s.db.AssignKeyAccessServerToValue(ctx, g); err != nil {
		return nil, err
	}
	s.events.Emit(ctx, events.GrantValueAssigned, g.TargetID, grantDetails(g))
	return &AssignKeyAccessServerToValueResponse{ValueKeyAccessServer: req.ValueKeyAccessServer}, nil
}

func (s *Service) RemoveKeyAccessServerFromValue(ctx context.Context, req *RemoveKeyAccessServerFromValueRequest) (*RemoveKeyAccessServerFromValueResponse, error) {
	g, err := valueGrant(req.ValueKeyAccessServer)
	if err != nil {
		return nil, err
	}
	if _, err := s.db.RemoveKeyAccessServerFromValue(ctx, g); err != nil {
		return nil, err
	}
	s.events.Emit(ctx, events.GrantValueRemoved, g.TargetID, grantDetails(g))
	return &RemoveKeyAccessServerFromValueResponse{ValueKeyAccessServer: req.ValueKeyAccessServer}, nil
}

func attributeGrant(in *AttributeKeyAccessServer) (db.Grant, error) {
	if in == nil || in.AttributeID == "" || in.KeyAccessServerID == "" {
		return db.Grant{}, policy.ErrRequired("attribute_key_access_server.attribute_id and key_access_server_id")
	}
	return db.Grant{TargetID: in.AttributeID, KeyAccessServerID: in.KeyAccessServerID}, nil
}

func valueGrant(in *ValueKeyAccessServer) (db.Grant, error) {
	if in == nil || in.ValueID == "" || in.KeyAccessServerID == "" {
		return db.Grant{}, policy.ErrRequired("value_key_access_server.value_id and key_access_server_id")
	}
	return db.Grant{TargetID: in.ValueID, KeyAccessServerID: in.KeyAccessServerID}, nil
}

// grantDetails tells downstream key access servers which grant changed.
func grantDetails(g db.Grant) map[string]string {
	return map[string]string{"target_id": g.TargetID, "key_access_server_id": g.KeyAccessServerID}
}
