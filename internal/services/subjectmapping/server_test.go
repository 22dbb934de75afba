package subjectmapping_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/timgst1/policyd/internal/db"
	"github.com/timgst1/policyd/internal/events"
	"github.com/timgst1/policyd/internal/policy"
	"github.com/timgst1/policyd/internal/services/servicetest"
	"github.com/timgst1/policyd/internal/services/subjectmapping"
)

var decrypt = []policy.Action{{Standard: policy.StandardActionDecrypt}}

func condition(selector string, op policy.SubjectMappingOperator, values ...string) []policy.SubjectSet {
	return []policy.SubjectSet{{
		ConditionGroups: []policy.ConditionGroup{{
			BooleanOperator: policy.BooleanAnd,
			Conditions: []policy.Condition{{
				SubjectExternalSelectorValue: selector,
				Operator:                     op,
				SubjectExternalValues:        values,
			}},
		}},
	}}
}

type fixture struct {
	c     *subjectmapping.SubjectMappingServiceClient
	rec   *events.Recorder
	attr  *policy.Attribute
	store *db.Client
}

func setup(t *testing.T) fixture {
	t.Helper()
	ctx := context.Background()
	store := servicetest.NewClient(t)
	rec := &events.Recorder{}
	svc := subjectmapping.NewService(store, events.NewEmitter(rec, servicetest.Logger()), servicetest.Logger())
	conn := servicetest.Dial(t, subjectmapping.Rules, func(s *grpc.Server) {
		subjectmapping.RegisterSubjectMappingServiceServer(s, svc)
	})

	ns, err := store.CreateNamespace(ctx, "example.com", nil)
	require.NoError(t, err)
	attr, err := store.CreateAttribute(ctx, db.CreateAttributeParams{
		NamespaceID: ns.ID,
		Name:        "clearance",
		Rule:        policy.RuleHierarchy,
		Values:      []string{"top_secret", "secret", "public"},
	})
	require.NoError(t, err)
	return fixture{c: subjectmapping.NewSubjectMappingServiceClient(conn), rec: rec, attr: attr, store: store}
}

func TestSubjectMappingLifecycle(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	secret := f.attr.Values[1]

	created, err := f.c.CreateSubjectMapping(ctx, &subjectmapping.CreateSubjectMappingRequest{
		AttributeValueID:       secret.ID,
		Actions:                decrypt,
		NewSubjectConditionSet: &db.NewSubjectConditionSet{SubjectSets: condition(".clearance", policy.OperatorIn, "secret")},
	})
	require.NoError(t, err)
	sm := created.SubjectMapping
	require.Equal(t, secret.FQN, sm.AttributeValue.FQN)
	require.NotEmpty(t, sm.SubjectConditionSet.ID)

	got, err := f.c.GetSubjectConditionSet(ctx, &subjectmapping.GetSubjectConditionSetRequest{ID: sm.SubjectConditionSet.ID})
	require.NoError(t, err)
	require.Len(t, got.AssociatedSubjectMappings, 1)

	_, err = f.c.DeleteSubjectConditionSet(ctx, &subjectmapping.DeleteSubjectConditionSetRequest{ID: sm.SubjectConditionSet.ID})
	require.Equal(t, codes.FailedPrecondition, status.Code(err))

	updated, err := f.c.UpdateSubjectMapping(ctx, &subjectmapping.UpdateSubjectMappingRequest{
		ID:      sm.ID,
		Actions: []policy.Action{{Standard: policy.StandardActionDecrypt}, {Custom: "download"}},
	})
	require.NoError(t, err)
	require.Len(t, updated.SubjectMapping.Actions, 2)

	list, err := f.c.ListSubjectMappings(ctx, &subjectmapping.ListSubjectMappingsRequest{})
	require.NoError(t, err)
	require.Len(t, list.SubjectMappings, 1)

	_, err = f.c.DeleteSubjectMapping(ctx, &subjectmapping.DeleteSubjectMappingRequest{ID: sm.ID})
	require.NoError(t, err)
	_, err = f.c.DeleteSubjectConditionSet(ctx, &subjectmapping.DeleteSubjectConditionSetRequest{ID: sm.SubjectConditionSet.ID})
	require.NoError(t, err)

	require.Equal(t, []string{
		events.SubjectConditionSetCreated,
		events.SubjectMappingCreated,
		events.SubjectMappingUpdated,
		events.SubjectMappingDeleted,
		events.SubjectConditionSetDeleted,
	}, f.rec.Types())
}

func TestCreateSubjectMappingValidation(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	scs, err := f.c.CreateSubjectConditionSet(ctx, &subjectmapping.CreateSubjectConditionSetRequest{
		SubjectConditionSet: &db.NewSubjectConditionSet{SubjectSets: condition(".role", policy.OperatorIn, "admin")},
	})
	require.NoError(t, err)

	_, err = f.c.CreateSubjectMapping(ctx, &subjectmapping.CreateSubjectMappingRequest{
		AttributeValueID:              f.attr.Values[0].ID,
		Actions:                       decrypt,
		ExistingSubjectConditionSetID: scs.SubjectConditionSet.ID,
		NewSubjectConditionSet:        &db.NewSubjectConditionSet{SubjectSets: condition(".role", policy.OperatorIn, "x")},
	})
	require.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = f.c.CreateSubjectMapping(ctx, &subjectmapping.CreateSubjectMappingRequest{
		AttributeValueID:              f.attr.Values[0].ID,
		ExistingSubjectConditionSetID: scs.SubjectConditionSet.ID,
	})
	require.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = f.c.CreateSubjectMapping(ctx, &subjectmapping.CreateSubjectMappingRequest{
		AttributeValueID:              "missing",
		Actions:                       decrypt,
		ExistingSubjectConditionSetID: scs.SubjectConditionSet.ID,
	})
	require.Equal(t, codes.NotFound, status.Code(err))

	_, err = f.c.CreateSubjectConditionSet(ctx, &subjectmapping.CreateSubjectConditionSetRequest{
		SubjectConditionSet: &db.NewSubjectConditionSet{SubjectSets: condition(".role", policy.OperatorUnspecified, "admin")},
	})
	require.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestMatchSubjectMappings(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.c.CreateSubjectMapping(ctx, &subjectmapping.CreateSubjectMappingRequest{
		AttributeValueID:       f.attr.Values[2].ID,
		Actions:                decrypt,
		NewSubjectConditionSet: &db.NewSubjectConditionSet{SubjectSets: condition("department", policy.OperatorIn, "eng", "ops")},
	})
	require.NoError(t, err)

	hit, err := f.c.MatchSubjectMappings(ctx, &subjectmapping.MatchSubjectMappingsRequest{
		SubjectProperties: []policy.SubjectProperty{{ExternalSelectorValue: ".department", ExternalValue: "ops"}},
	})
	require.NoError(t, err)
	require.Len(t, hit.SubjectMappings, 1)

	miss, err := f.c.MatchSubjectMappings(ctx, &subjectmapping.MatchSubjectMappingsRequest{
		SubjectProperties: []policy.SubjectProperty{{ExternalSelectorValue: ".department", ExternalValue: "sales"}},
	})
	require.NoError(t, err)
	require.Empty(t, miss.SubjectMappings)

	_, err = f.c.MatchSubjectMappings(ctx, &subjectmapping.MatchSubjectMappingsRequest{})
	require.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestResolveEntitlements(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	topSecret, secret, public := f.attr.Values[0], f.attr.Values[1], f.attr.Values[2]

	_, err := f.c.CreateSubjectMapping(ctx, &subjectmapping.CreateSubjectMappingRequest{
		AttributeValueID:       secret.ID,
		Actions:                decrypt,
		NewSubjectConditionSet: &db.NewSubjectConditionSet{SubjectSets: condition(".groups[]", policy.OperatorIn, "analysts")},
	})
	require.NoError(t, err)
	_, err = f.c.CreateSubjectMapping(ctx, &subjectmapping.CreateSubjectMappingRequest{
		AttributeValueID:       topSecret.ID,
		Actions:                decrypt,
		NewSubjectConditionSet: &db.NewSubjectConditionSet{SubjectSets: condition(".groups[]", policy.OperatorIn, "directors")},
	})
	require.NoError(t, err)

	entity := map[string]any{"email": "ann@example.com", "groups": []any{"analysts", "staff"}}

	flat, err := f.c.ResolveEntitlements(ctx, &subjectmapping.ResolveEntitlementsRequest{Entity: entity})
	require.NoError(t, err)
	require.Len(t, flat.Entitlements, 1)
	require.Equal(t, secret.FQN, flat.Entitlements[0].AttributeValueFqn)
	require.Equal(t, decrypt, flat.Entitlements[0].Actions)

	deep, err := f.c.ResolveEntitlements(ctx, &subjectmapping.ResolveEntitlementsRequest{Entity: entity, ComprehensiveHierarchy: true})
	require.NoError(t, err)
	var fqns []string
	for _, e := range deep.Entitlements {
		fqns = append(fqns, e.AttributeValueFqn)
	}
	require.ElementsMatch(t, []string{secret.FQN, public.FQN}, fqns)

	scoped, err := f.c.ResolveEntitlements(ctx, &subjectmapping.ResolveEntitlementsRequest{
		Entity: entity, ComprehensiveHierarchy: true, Scope: []string{public.FQN},
	})
	require.NoError(t, err)
	require.Len(t, scoped.Entitlements, 1)
	require.Equal(t, public.FQN, scoped.Entitlements[0].AttributeValueFqn)

	_, err = f.c.ResolveEntitlements(ctx, &subjectmapping.ResolveEntitlementsRequest{Entity: entity, Scope: []string{"not-a-fqn"}})
	require.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = f.store.DeactivateAttributeValue(ctx, secret.ID)
	require.NoError(t, err)
	none, err := f.c.ResolveEntitlements(ctx, &subjectmapping.ResolveEntitlementsRequest{Entity: entity})
	require.NoError(t, err)
	require.Empty(t, none.Entitlements)
}

func TestResolveEntitlementsKeepsLargeIntegerClaims(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	secret := f.attr.Values[1]

	_, err := f.c.CreateSubjectMapping(ctx, &subjectmapping.CreateSubjectMappingRequest{
		AttributeValueID:       secret.ID,
		Actions:                decrypt,
		NewSubjectConditionSet: &db.NewSubjectConditionSet{SubjectSets: condition(".uid", policy.OperatorIn, "9007199254740993")},
	})
	require.NoError(t, err)

	resp, err := f.c.ResolveEntitlements(ctx, &subjectmapping.ResolveEntitlementsRequest{
		Entity: map[string]any{"uid": uint64(9007199254740993)},
	})
	require.NoError(t, err)
	require.Len(t, resp.Entitlements, 1)
	require.Equal(t, secret.FQN, resp.Entitlements[0].AttributeValueFqn)
}
