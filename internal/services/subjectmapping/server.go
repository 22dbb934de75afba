// Package subjectmapping serves policy.subjectmapping.SubjectMappingService:
// subject condition sets, the mappings that bind them to attribute values,
// and entitlement resolution for an entity.
package subjectmapping

import (
	"context"
	"log/slog"
	"sort"

	"go.opentelemetry.io/otel/attribute"

	"github.com/timgst1/policyd/internal/conditions"
	"github.com/timgst1/policyd/internal/db"
	"github.com/timgst1/policyd/internal/events"
	"github.com/timgst1/policyd/internal/flattening"
	"github.com/timgst1/policyd/internal/observability"
	"github.com/timgst1/policyd/internal/policy"
)

type Service struct {
	UnimplementedSubjectMappingServiceServer

	db     *db.Client
	events *events.Emitter
	log    *slog.Logger
}

func NewService(client *db.Client, em *events.Emitter, log *slog.Logger) *Service {
	return &Service{db: client, events: em, log: log}
}

func (s *Service) MatchSubjectMappings(ctx context.Context, req *MatchSubjectMappingsRequest) (*MatchSubjectMappingsResponse, error) {
	if len(req.SubjectProperties) == 0 {
		return nil, policy.ErrRequired("subject_properties")
	}
	for _, p := range req.SubjectProperties {
		if p.ExternalSelectorValue == "" {
			return nil, policy.ErrRequired("subject_properties.external_selector_value")
		}
	}
	list, err := s.db.MatchSubjectMappings(ctx, req.SubjectProperties)
	if err != nil {
		return nil, err
	}
	return &MatchSubjectMappingsResponse{SubjectMappings: list}, nil
}

func (s *Service) ListSubjectMappings(ctx context.Context, req *ListSubjectMappingsRequest) (*ListSubjectMappingsResponse, error) {
	list, page, err := s.db.ListSubjectMappings(ctx, req.Pagination)
	if err != nil {
		return nil, err
	}
	return &ListSubjectMappingsResponse{SubjectMappings: list, Pagination: page}, nil
}

func (s *Service) GetSubjectMapping(ctx context.Context, req *GetSubjectMappingRequest) (*GetSubjectMappingResponse, error) {
	if req.ID == "" {
		return nil, policy.ErrRequired("id")
	}
	sm, err := s.db.GetSubjectMapping(ctx, req.ID)
	if err != nil {
		return nil, err
	}
	return &GetSubjectMappingResponse{SubjectMapping: sm}, nil
}

func (s *Service) CreateSubjectMapping(ctx context.Context, req *CreateSubjectMappingRequest) (*CreateSubjectMappingResponse, error) {
	if req.AttributeValueID == "" {
		return nil, policy.ErrRequired("attribute_value_id")
	}
	sm, err := s.db.CreateSubjectMapping(ctx, db.CreateSubjectMappingParams{
		AttributeValueID:              req.AttributeValueID,
		Actions:                       req.Actions,
		ExistingSubjectConditionSetID: req.ExistingSubjectConditionSetID,
		NewSubjectConditionSet:        req.NewSubjectConditionSet,
		Metadata:                      req.Metadata,
	})
	if err != nil {
		return nil, err
	}
	if req.NewSubjectConditionSet != nil {
		s.events.Emit(ctx, events.SubjectConditionSetCreated, sm.SubjectConditionSet.ID, nil)
	}
	s.events.Emit(ctx, events.SubjectMappingCreated, sm.ID, mappingDetails(sm))
	return &CreateSubjectMappingResponse{SubjectMapping: sm}, nil
}

func (s *Service) UpdateSubjectMapping(ctx context.Context, req *UpdateSubjectMappingRequest) (*UpdateSubjectMappingResponse, error) {
	if req.ID == "" {
		return nil, policy.ErrRequired("id")
	}
	sm, err := s.db.UpdateSubjectMapping(ctx, db.UpdateSubjectMappingParams{
		ID:                    req.ID,
		SubjectConditionSetID: req.SubjectConditionSetID,
		Actions:               req.Actions,
		Metadata:              req.Metadata,
		MetadataBehavior:      req.MetadataBehavior,
	})
	if err != nil {
		return nil, err
	}
	s.events.Emit(ctx, events.SubjectMappingUpdated, sm.ID, mappingDetails(sm))
	return &UpdateSubjectMappingResponse{SubjectMapping: sm}, nil
}

func (s *Service) DeleteSubjectMapping(ctx context.Context, req *DeleteSubjectMappingRequest) (*DeleteSubjectMappingResponse, error) {
	if req.ID == "" {
		return nil, policy.ErrRequired("id")
	}
	sm, err := s.db.DeleteSubjectMapping(ctx, req.ID)
	if err != nil {
		return nil, err
	}
	s.events.Emit(ctx, events.SubjectMappingDeleted, sm.ID, mappingDetails(sm))
	return &DeleteSubjectMappingResponse{SubjectMapping: sm}, nil
}

func (s *Service) ListSubjectConditionSets(ctx context.Context, req *ListSubjectConditionSetsRequest) (*ListSubjectConditionSetsResponse, error) {
	list, page, err := s.db.ListSubjectConditionSets(ctx, req.Pagination)
	if err != nil {
		return nil, err
	}
	return &ListSubjectConditionSetsResponse{SubjectConditionSets: list, Pagination: page}, nil
}

func (s *Service) GetSubjectConditionSet(ctx context.Context, req *GetSubjectConditionSetRequest) (*GetSubjectConditionSetResponse, error) {
	if req.ID == "" {
		return nil, policy.ErrRequired("id")
	}
	scs, mappings, err := s.db.GetSubjectConditionSet(ctx, req.ID)
	if err != nil {
		return nil, err
	}
	return &GetSubjectConditionSetResponse{SubjectConditionSet: scs, AssociatedSubjectMappings: mappings}, nil
}

func (s *Service) CreateSubjectConditionSet(ctx context.Context, req *CreateSubjectConditionSetRequest) (*CreateSubjectConditionSetResponse, error) {
	if req.SubjectConditionSet == nil {
		return nil, policy.ErrRequired("subject_condition_set")
	}
	scs, err := s.db.CreateSubjectConditionSet(ctx, req.SubjectConditionSet.SubjectSets, req.SubjectConditionSet.Metadata)
	if err != nil {
		return nil, err
	}
	s.events.Emit(ctx, events.SubjectConditionSetCreated, scs.ID, nil)
	return &CreateSubjectConditionSetResponse{SubjectConditionSet: scs}, nil
}

func (s *Service) UpdateSubjectConditionSet(ctx context.Context, req *UpdateSubjectConditionSetRequest) (*UpdateSubjectConditionSetResponse, error) {
	if req.ID == "" {
		return nil, policy.ErrRequired("id")
	}
	scs, err := s.db.UpdateSubjectConditionSet(ctx, db.UpdateSubjectConditionSetParams{
		ID:               req.ID,
		SubjectSets:      req.SubjectSets,
		Metadata:         req.Metadata,
		MetadataBehavior: req.MetadataBehavior,
	})
	if err != nil {
		return nil, err
	}
	s.events.Emit(ctx, events.SubjectConditionSetUpdated, scs.ID, nil)
	return &UpdateSubjectConditionSetResponse{SubjectConditionSet: scs}, nil
}

func (s *Service) DeleteSubjectConditionSet(ctx context.Context, req *DeleteSubjectConditionSetRequest) (*DeleteSubjectConditionSetResponse, error) {
	if req.ID == "" {
		return nil, policy.ErrRequired("id")
	}
	scs, err := s.db.DeleteSubjectConditionSet(ctx, req.ID)
	if err != nil {
		return nil, err
	}
	s.events.Emit(ctx, events.SubjectConditionSetDeleted, scs.ID, nil)
	return &DeleteSubjectConditionSetResponse{SubjectConditionSet: scs}, nil
}

// ResolveEntitlements evaluates every active subject mapping against the
// entity. The scope filter runs after evaluation so that hierarchy
// expansion can still reach scoped values through a higher ranked one.
func (s *Service) ResolveEntitlements(ctx context.Context, req *ResolveEntitlementsRequest) (*ResolveEntitlementsResponse, error) {
	ctx, span := observability.StartSpan(ctx, "subjectmapping.ResolveEntitlements")
	defer span.End()

	scope, err := normalizeScope(req.Scope)
	if err != nil {
		return nil, err
	}
	entity, err := flattening.Flatten(req.Entity)
	if err != nil {
		return nil, err
	}
	mappings, err := s.db.SubjectMappingsForEntitlements(ctx)
	if err != nil {
		return nil, err
	}

	entitled, err := conditions.EvaluateSubjectMappings(mappings, entity, conditions.Options{
		ComprehensiveHierarchy: req.ComprehensiveHierarchy,
	})
	if err != nil {
		observability.EntitlementEvaluations.WithLabelValues("error").Inc()
		s.log.Warn("entitlement evaluation failed", "err", err)
		return nil, err
	}
	observability.EntitlementEvaluations.WithLabelValues("ok").Inc()

	out := make([]Entitlement, 0, len(entitled))
	for fqn, actions := range entitled {
		if scope != nil {
			if _, ok := scope[fqn]; !ok {
				continue
			}
		}
		out = append(out, Entitlement{AttributeValueFqn: fqn, Actions: actions})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AttributeValueFqn < out[j].AttributeValueFqn })

	span.SetAttributes(
		attribute.Int("policyd.mappings", len(mappings)),
		attribute.Int("policyd.entitlements", len(out)),
	)
	return &ResolveEntitlementsResponse{Entitlements: out}, nil
}

// normalizeScope returns nil when no scope was requested.
func normalizeScope(fqns []string) (map[string]struct{}, error) {
	if len(fqns) == 0 {
		return nil, nil
	}
	out := make(map[string]struct{}, len(fqns))
	for _, raw := range fqns {
		f, err := policy.ParseFQN(raw)
		if err != nil {
			return nil, err
		}
		out[f.String()] = struct{}{}
	}
	return out, nil
}

func mappingDetails(sm *policy.SubjectMapping) map[string]string {
	d := map[string]string{}
	if sm.AttributeValue != nil {
		d["attribute_value_id"] = sm.AttributeValue.ID
		d["attribute_value_fqn"] = sm.AttributeValue.FQN
	}
	if sm.SubjectConditionSet != nil {
		d["subject_condition_set_id"] = sm.SubjectConditionSet.ID
	}
	return d
}
