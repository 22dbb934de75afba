// Package kasregistry serves the registry of key access servers that
// attributes and values can be granted to.
package kasregistry

import (
	"context"
	"log/slog"

	"github.com/timgst1/policyd/internal/db"
	"github.com/timgst1/policyd/internal/events"
	"github.com/timgst1/policyd/internal/policy"
)

type Service struct {
	UnimplementedKeyAccessServerRegistryServiceServer

	db     *db.Client
	events *events.Emitter
	log    *slog.Logger
}

func NewService(client *db.Client, em *events.Emitter, log *slog.Logger) *Service {
	return &Service{db: client, events: em, log: log}
}

func (s *Service) ListKeyAccessServers(ctx context.Context, req *ListKeyAccessServersRequest) (*ListKeyAccessServersResponse, error) {
	list, page, err := s.db.ListKeyAccessServers(ctx, req.Pagination)
	if err != nil {
		return nil, err
	}
	return &ListKeyAccessServersResponse{KeyAccessServers: list, Pagination: page}, nil
}

func (s *Service) GetKeyAccessServer(ctx context.Context, req *GetKeyAccessServerRequest) (*GetKeyAccessServerResponse, error) {
	if req.ID == "" {
		return nil, policy.ErrRequired("id")
	}
	kas, err := s.db.GetKeyAccessServer(ctx, req.ID)
	if err != nil {
		return nil, err
	}
	return &GetKeyAccessServerResponse{KeyAccessServer: kas}, nil
}

func (s *Service) CreateKeyAccessServer(ctx context.Context, req *CreateKeyAccessServerRequest) (*CreateKeyAccessServerResponse, error) {
	kas, err := s.db.CreateKeyAccessServer(ctx, db.CreateKeyAccessServerParams{
		URI:       req.URI,
		Name:      req.Name,
		PublicKey: req.PublicKey,
		Metadata:  req.Metadata,
	})
	if err != nil {
		return nil, err
	}
	s.events.Emit(ctx, events.KeyAccessServerCreated, kas.ID, map[string]string{"uri": kas.URI})
	return &CreateKeyAccessServerResponse{KeyAccessServer: kas}, nil
}

func (s *Service) UpdateKeyAccessServer(ctx context.Context, req *UpdateKeyAccessServerRequest) (*UpdateKeyAccessServerResponse, error) {
	if req.ID == "" {
		return nil, policy.ErrRequired("id")
	}
	kas, err := s.db.UpdateKeyAccessServer(ctx, db.UpdateKeyAccessServerParams{
		ID:               req.ID,
		URI:              req.URI,
		Name:             req.Name,
		PublicKey:        req.PublicKey,
		Metadata:         req.Metadata,
		MetadataBehavior: req.MetadataBehavior,
	})
	if err != nil {
		return nil, err
	}
	s.events.Emit(ctx, events.KeyAccessServerUpdated, kas.ID, map[string]string{"uri": kas.URI})
	return &UpdateKeyAccessServerResponse{KeyAccessServer: kas}, nil
}

func (s *Service) DeleteKeyAccessServer(ctx context.Context, req *DeleteKeyAccessServerRequest) (*DeleteKeyAccessServerResponse, error) {
	if req.ID == "" {
		return nil, policy.ErrRequired("id")
	}
	kas, err := s.db.DeleteKeyAccessServer(ctx, req.ID)
	if err != nil {
		return nil, err
	}
	s.log.Info("key access server deleted", "id", kas.ID, "uri", kas.URI)
	s.events.Emit(ctx, events.KeyAccessServerDeleted, kas.ID, map[string]string{"uri": kas.URI})
	return &DeleteKeyAccessServerResponse{KeyAccessServer: kas}, nil
}
