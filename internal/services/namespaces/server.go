// Package namespaces serves policy.namespaces.NamespaceService. Namespaces
// are the root of every attribute FQN.
package namespaces

import (
	"context"
	"log/slog"

	"github.com/timgst1/policyd/internal/db"
	"github.com/timgst1/policyd/internal/events"
	"github.com/timgst1/policyd/internal/policy"
)

type Service struct {
	UnimplementedNamespaceServiceServer

	db     *db.Client
	events *events.Emitter
	log    *slog.Logger
}

func NewService(client *db.Client, em *events.Emitter, log *slog.Logger) *Service {
	return &Service{db: client, events: em, log: log}
}

func (s *Service) GetNamespace(ctx context.Context, req *GetNamespaceRequest) (*GetNamespaceResponse, error) {
	if req.ID == "" {
		return nil, policy.ErrRequired("id")
	}
	ns, err := s.db.GetNamespace(ctx, req.ID)
	if err != nil {
		return nil, err
	}
	return &GetNamespaceResponse{Namespace: ns}, nil
}

func (s *Service) ListNamespaces(ctx context.Context, req *ListNamespacesRequest) (*ListNamespacesResponse, error) {
	list, page, err := s.db.ListNamespaces(ctx, req.State, req.Pagination)
	if err != nil {
		return nil, err
	}
	return &ListNamespacesResponse{Namespaces: list, Pagination: page}, nil
}

func (s *Service) CreateNamespace(ctx context.Context, req *CreateNamespaceRequest) (*CreateNamespaceResponse, error) {
	ns, err := s.db.CreateNamespace(ctx, req.Name, req.Metadata)
	if err != nil {
		return nil, err
	}
	s.events.Emit(ctx, events.NamespaceCreated, ns.ID, map[string]string{"fqn": ns.FQN})
	return &CreateNamespaceResponse{Namespace: ns}, nil
}

func (s *Service) UpdateNamespace(ctx context.Context, req *UpdateNamespaceRequest) (*UpdateNamespaceResponse, error) {
	if req.ID == "" {
		return nil, policy.ErrRequired("id")
	}
	ns, err := s.db.UpdateNamespace(ctx, req.ID, req.Metadata, req.MetadataBehavior)
	if err != nil {
		return nil, err
	}
	s.events.Emit(ctx, events.NamespaceUpdated, ns.ID, nil)
	return &UpdateNamespaceResponse{Namespace: ns}, nil
}

func (s *Service) DeactivateNamespace(ctx context.Context, req *DeactivateNamespaceRequest) (*DeactivateNamespaceResponse, error) {
	if req.ID == "" {
		return nil, policy.ErrRequired("id")
	}
	ns, err := s.db.DeactivateNamespace(ctx, req.ID)
	if err != nil {
		return nil, err
	}
	s.log.Info("namespace deactivated", "id", ns.ID, "fqn", ns.FQN)
	s.events.Emit(ctx, events.NamespaceDeactivated, ns.ID, map[string]string{"fqn": ns.FQN})
	return &DeactivateNamespaceResponse{Namespace: ns}, nil
}
