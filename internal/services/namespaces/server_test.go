package namespaces_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/timgst1/policyd/internal/events"
	"github.com/timgst1/policyd/internal/policy"
	"github.com/timgst1/policyd/internal/services/namespaces"
	"github.com/timgst1/policyd/internal/services/servicetest"
)

func setup(t *testing.T) (*namespaces.NamespaceServiceClient, *events.Recorder) {
	t.Helper()
	client := servicetest.NewClient(t)
	rec := &events.Recorder{}
	svc := namespaces.NewService(client, events.NewEmitter(rec, servicetest.Logger()), servicetest.Logger())
	conn := servicetest.Dial(t, namespaces.Rules, func(s *grpc.Server) {
		namespaces.RegisterNamespaceServiceServer(s, svc)
	})
	return namespaces.NewNamespaceServiceClient(conn), rec
}

func TestNamespaceLifecycle(t *testing.T) {
	c, rec := setup(t)
	ctx := context.Background()

	created, err := c.CreateNamespace(ctx, &namespaces.CreateNamespaceRequest{
		Name:     "Example.com",
		Metadata: &policy.MetadataMutable{Labels: map[string]string{"team": "sec"}},
	})
	require.NoError(t, err)
	require.Equal(t, "example.com", created.Namespace.Name)
	require.Equal(t, "https://example.com", created.Namespace.FQN)
	require.True(t, created.Namespace.Active)

	got, err := c.GetNamespace(ctx, &namespaces.GetNamespaceRequest{ID: created.Namespace.ID})
	require.NoError(t, err)
	require.Equal(t, "sec", got.Namespace.Metadata.Labels["team"])

	updated, err := c.UpdateNamespace(ctx, &namespaces.UpdateNamespaceRequest{
		ID:               created.Namespace.ID,
		Metadata:         &policy.MetadataMutable{Labels: map[string]string{"env": "prod"}},
		MetadataBehavior: policy.MetadataUpdateReplace,
	})
	require.NoError(t, err)
	require.Equal(t, map[string]string{"env": "prod"}, updated.Namespace.Metadata.Labels)

	_, err = c.DeactivateNamespace(ctx, &namespaces.DeactivateNamespaceRequest{ID: created.Namespace.ID})
	require.NoError(t, err)

	active, err := c.ListNamespaces(ctx, &namespaces.ListNamespacesRequest{})
	require.NoError(t, err)
	require.Empty(t, active.Namespaces)

	all, err := c.ListNamespaces(ctx, &namespaces.ListNamespacesRequest{State: policy.ActiveStateAny})
	require.NoError(t, err)
	require.Len(t, all.Namespaces, 1)
	require.EqualValues(t, 1, all.Pagination.Total)

	require.Equal(t, []string{events.NamespaceCreated, events.NamespaceUpdated, events.NamespaceDeactivated}, rec.Types())
}

func TestNamespaceErrors(t *testing.T) {
	c, _ := setup(t)
	ctx := context.Background()

	_, err := c.CreateNamespace(ctx, &namespaces.CreateNamespaceRequest{Name: "not a host"})
	require.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = c.CreateNamespace(ctx, &namespaces.CreateNamespaceRequest{Name: "example.org"})
	require.NoError(t, err)
	_, err = c.CreateNamespace(ctx, &namespaces.CreateNamespaceRequest{Name: "example.org"})
	require.Equal(t, codes.AlreadyExists, status.Code(err))

	_, err = c.GetNamespace(ctx, &namespaces.GetNamespaceRequest{ID: "00000000-0000-0000-0000-000000000000"})
	require.Equal(t, codes.NotFound, status.Code(err))

	_, err = c.GetNamespace(ctx, &namespaces.GetNamespaceRequest{})
	require.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestUnimplementedServer(t *testing.T) {
	conn := servicetest.Dial(t, namespaces.Rules, func(s *grpc.Server) {
		namespaces.RegisterNamespaceServiceServer(s, namespaces.UnimplementedNamespaceServiceServer{})
	})
	_, err := namespaces.NewNamespaceServiceClient(conn).ListNamespaces(context.Background(), &namespaces.ListNamespacesRequest{})
	require.Equal(t, codes.Unimplemented, status.Code(err))
}
