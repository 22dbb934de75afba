package kasregistry_test

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
	"github.com/timgst1/policyd/internal/services/kasregistry"
	"github.com/timgst1/policyd/internal/services/servicetest"
)

const pemKey = "-----BEGIN PUBLIC KEY-----\nMFkwEwYHKoZIzj0CAQYIKoZIzj0DAQcDQgAE\n-----END PUBLIC KEY-----\n"

func TestKeyAccessServerRegistry(t *testing.T) {
	ctx := context.Background()
	store := servicetest.NewClient(t)
	rec := &events.Recorder{}
	svc := kasregistry.NewService(store, events.NewEmitter(rec, servicetest.Logger()), servicetest.Logger())
	conn := servicetest.Dial(t, kasregistry.Rules, func(s *grpc.Server) {
		kasregistry.RegisterKeyAccessServerRegistryServiceServer(s, svc)
	})
	c := kasregistry.NewKeyAccessServerRegistryServiceClient(conn)

	created, err := c.CreateKeyAccessServer(ctx, &kasregistry.CreateKeyAccessServerRequest{
		URI:       "https://kas.example.com",
		Name:      "primary",
		PublicKey: policy.PublicKey{Remote: "https://kas.example.com/kas/v2/kas_public_key"},
	})
	require.NoError(t, err)
	id := created.KeyAccessServer.ID

	_, err = c.CreateKeyAccessServer(ctx, &kasregistry.CreateKeyAccessServerRequest{
		URI:       "https://kas.example.com",
		PublicKey: policy.PublicKey{Local: pemKey},
	})
	require.Equal(t, codes.AlreadyExists, status.Code(err))

	_, err = c.CreateKeyAccessServer(ctx, &kasregistry.CreateKeyAccessServerRequest{URI: "https://kas2.example.com"})
	require.Equal(t, codes.InvalidArgument, status.Code(err))

	updated, err := c.UpdateKeyAccessServer(ctx, &kasregistry.UpdateKeyAccessServerRequest{
		ID:        id,
		PublicKey: &policy.PublicKey{Local: pemKey},
	})
	require.NoError(t, err)
	require.Equal(t, "https://kas.example.com", updated.KeyAccessServer.URI)
	require.Empty(t, updated.KeyAccessServer.PublicKey.Remote)
	require.NotEmpty(t, updated.KeyAccessServer.PublicKey.Local)

	ns, err := store.CreateNamespace(ctx, "example.com", nil)
	require.NoError(t, err)
	attr, err := store.CreateAttribute(ctx, db.CreateAttributeParams{NamespaceID: ns.ID, Name: "level", Rule: policy.RuleAnyOf, Values: []string{"a"}})
	require.NoError(t, err)
	grant := db.Grant{TargetID: attr.ID, KeyAccessServerID: id}
	_, err = store.AssignKeyAccessServerToAttribute(ctx, grant)
	require.NoError(t, err)

	_, err = c.DeleteKeyAccessServer(ctx, &kasregistry.DeleteKeyAccessServerRequest{ID: id})
	require.Equal(t, codes.FailedPrecondition, status.Code(err))

	_, err = store.RemoveKeyAccessServerFromAttribute(ctx, grant)
	require.NoError(t, err)
	deleted, err := c.DeleteKeyAccessServer(ctx, &kasregistry.DeleteKeyAccessServerRequest{ID: id})
	require.NoError(t, err)
	require.Equal(t, id, deleted.KeyAccessServer.ID)

	list, err := c.ListKeyAccessServers(ctx, &kasregistry.ListKeyAccessServersRequest{})
	require.NoError(t, err)
	require.Empty(t, list.KeyAccessServers)

	require.Equal(t, []string{events.KeyAccessServerCreated, events.KeyAccessServerUpdated, events.KeyAccessServerDeleted}, rec.Types())
}
