// Package servicetest runs policyd services in-process for tests: a fresh
// SQLite store per test and a bufconn gRPC server with the production
// interceptor chain.
package servicetest

import (
	"context"
	"io"
	"log/slog"
	"net"
	"path/filepath"
	"testing"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/test/bufconn"

	"github.com/timgst1/policyd/internal/authn"
	"github.com/timgst1/policyd/internal/authz"
	"github.com/timgst1/policyd/internal/db"
	"github.com/timgst1/policyd/internal/rpc"
	"github.com/timgst1/policyd/internal/storage/sqlite"
)

func Logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// NewClient opens a migrated database under t.TempDir().
func NewClient(t testing.TB) *db.Client {
	t.Helper()
	sqlDB, err := sqlite.Open(filepath.Join(t.TempDir(), "policy.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })
	if err := sqlite.Migrate(sqlDB); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db.New(sqlDB, db.WithLogger(Logger()))
}

type Options struct {
	Authenticator authn.Authenticator
	Authorizer    authz.Authorizer
}

// Dial serves whatever register adds on a bufconn listener and returns a
// client connection to it. Authentication and authorization default to
// Noop and AllowAll.
func Dial(t testing.TB, rules rpc.Rules, register func(*grpc.Server), opts ...Options) *grpc.ClientConn {
	t.Helper()
	var o Options
	if len(opts) > 0 {
		o = opts[0]
	}
	if o.Authenticator == nil {
		o.Authenticator = authn.Noop{}
	}
	if o.Authorizer == nil {
		o.Authorizer = authz.AllowAll{}
	}

	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(rpc.Interceptors(Logger(), o.Authenticator, o.Authorizer, rules)...))
	register(srv)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("dial bufconn: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}
