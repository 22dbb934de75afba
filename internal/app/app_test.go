package app_test

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/timgst1/policyd/internal/app"
	"github.com/timgst1/policyd/internal/services/namespaces"
	"github.com/timgst1/policyd/internal/services/servicetest"
	"github.com/timgst1/policyd/internal/services/wellknown"
)

const rbacPolicy = `apiVersion: policyd.rbac/v1
kind: AccessPolicy
subjects:
  - name: ops
    match: {kind: bearer, name: ops}
roles:
  - name: admin
    permissions:
      - action: "*"
        keyPrefix: policy/
bindings:
  - subject: ops
    roles: [admin]
`

func newApp(t *testing.T) *app.App {
	t.Helper()
	dir := t.TempDir()
	write := func(name, content string) string {
		p := filepath.Join(dir, name)
		if err := os.WriteFile(p, []byte(content), 0o600); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
		return p
	}

	cfg := app.Config{
		HTTPAddr:          "127.0.0.1:0",
		GRPCAddr:          "127.0.0.1:0",
		LogLevel:          "info",
		LogFormat:         "json",
		ReadinessStrict:   true,
		SQLitePath:        filepath.Join(dir, "policy.db"),
		TokenFile:         write("tokens", "ops=ops-token\n"),
		RBACPolicyFile:    write("rbac.yaml", rbacPolicy),
		NATSSubjectPrefix: "policy",
		PlatformIssuer:    "https://idp.example.com",
	}
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	a, err := app.New(ctx, cfg, servicetest.Logger())
	if err != nil {
		t.Fatalf("app.New: %v", err)
	}
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func dial(t *testing.T, a *app.App) *grpc.ClientConn {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	srv := a.GRPCServer()
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestAppReady(t *testing.T) {
	a := newApp(t)
	if err := a.Ready(context.Background()); err != nil {
		t.Fatalf("Ready: %v", err)
	}

	srv := httptest.NewServer(a.HTTPHandler())
	defer srv.Close()
	resp, err := http.Get(srv.URL + "/readyz")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected %d, got %d", http.StatusOK, resp.StatusCode)
	}
}

func TestAppGRPCRequiresToken(t *testing.T) {
	a := newApp(t)
	c := namespaces.NewNamespaceServiceClient(dial(t, a))

	_, err := c.ListNamespaces(context.Background(), &namespaces.ListNamespacesRequest{})
	if status.Code(err) != codes.Unauthenticated {
		t.Fatalf("expected Unauthenticated, got %v", err)
	}

	ctx := metadata.AppendToOutgoingContext(context.Background(), "authorization", "Bearer ops-token")
	created, err := c.CreateNamespace(ctx, &namespaces.CreateNamespaceRequest{Name: "example.com"})
	if err != nil {
		t.Fatalf("CreateNamespace: %v", err)
	}
	if created.Namespace.FQN != "https://example.com" {
		t.Fatalf("unexpected fqn %q", created.Namespace.FQN)
	}
}

func TestAppWellKnownIsPublic(t *testing.T) {
	a := newApp(t)
	c := wellknown.NewWellKnownServiceClient(dial(t, a))

	resp, err := c.GetWellKnownConfiguration(context.Background(), &wellknown.GetWellKnownConfigurationRequest{})
	if err != nil {
		t.Fatalf("GetWellKnownConfiguration: %v", err)
	}
	if resp.Configuration["platform_issuer"] != "https://idp.example.com" {
		t.Fatalf("unexpected configuration %+v", resp.Configuration)
	}
	for _, k := range []string{"health", "grpc", "policy"} {
		if _, ok := resp.Configuration[k]; !ok {
			t.Fatalf("missing %q entry", k)
		}
	}
}
