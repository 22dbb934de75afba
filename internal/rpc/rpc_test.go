package rpc_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/timgst1/policyd/internal/authn"
	"github.com/timgst1/policyd/internal/authz"
	"github.com/timgst1/policyd/internal/db"
	"github.com/timgst1/policyd/internal/policy"
	"github.com/timgst1/policyd/internal/rpc"
)

type echoRequest struct {
	Text string `json:"text"`
}

type echoResponse struct {
	Text  string `json:"text"`
	Actor string `json:"actor"`
}

type echoServer interface {
	Echo(context.Context, *echoRequest) (*echoResponse, error)
	Fail(context.Context, *echoRequest) (*echoResponse, error)
	Info(context.Context, *echoRequest) (*echoResponse, error)
}

type echo struct{}

func (echo) Echo(ctx context.Context, in *echoRequest) (*echoResponse, error) {
	return &echoResponse{Text: in.Text, Actor: authn.ActorFromContext(ctx)}, nil
}

func (echo) Fail(_ context.Context, in *echoRequest) (*echoResponse, error) {
	return nil, fmt.Errorf("value %s: %w", in.Text, db.ErrNotFound)
}

func (echo) Info(context.Context, *echoRequest) (*echoResponse, error) {
	return &echoResponse{Text: "public"}, nil
}

const echoService = "test.EchoService"

var echoDesc = grpc.ServiceDesc{
	ServiceName: echoService,
	HandlerType: (*echoServer)(nil),
	Methods: []grpc.MethodDesc{
		rpc.Method("Echo", rpc.Unary(rpc.FullMethod(echoService, "Echo"), echoServer.Echo)),
		rpc.Method("Fail", rpc.Unary(rpc.FullMethod(echoService, "Fail"), echoServer.Fail)),
		rpc.Method("Info", rpc.Unary(rpc.FullMethod(echoService, "Info"), echoServer.Info)),
	},
}

type staticAuth struct{}

func (staticAuth) Authenticate(_ context.Context, header string) (authn.Subject, error) {
	if header != "Bearer good" {
		return authn.Subject{}, authn.ErrUnauthenticated
	}
	return authn.Subject{Kind: "token", Name: "alice"}, nil
}

type onlyRead struct{}

func (onlyRead) Evaluate(_ authn.Subject, action, _ string) authz.Decision {
	if action == authz.ActionRead {
		return authz.Allow("read")
	}
	return authz.Deny("read only")
}

func dial(t *testing.T) grpc.ClientConnInterface {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	rules := rpc.Rules{
		rpc.FullMethod(echoService, "Echo"): {Action: authz.ActionRead, Resource: "test"},
		rpc.FullMethod(echoService, "Fail"): {Action: authz.ActionRead, Resource: "test"},
		rpc.FullMethod(echoService, "Info"): {Public: true},
	}

	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(rpc.Interceptors(log, staticAuth{}, onlyRead{}, rules)...))
	srv.RegisterService(&echoDesc, echo{})
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func authed() context.Context {
	return metadata.AppendToOutgoingContext(context.Background(), "authorization", "Bearer good")
}

func TestUnaryRoundTrip(t *testing.T) {
	conn := dial(t)
	out, err := rpc.Invoke[echoResponse](authed(), conn, rpc.FullMethod(echoService, "Echo"), &echoRequest{Text: "hi"})
	require.NoError(t, err)
	require.Equal(t, "hi", out.Text)
	require.Equal(t, "token:alice", out.Actor)
}

func TestUnauthenticatedCall(t *testing.T) {
	conn := dial(t)
	_, err := rpc.Invoke[echoResponse](context.Background(), conn, rpc.FullMethod(echoService, "Echo"), &echoRequest{})
	require.Equal(t, codes.Unauthenticated, status.Code(err))
}

func TestPublicMethodSkipsAuthentication(t *testing.T) {
	conn := dial(t)
	out, err := rpc.Invoke[echoResponse](context.Background(), conn, rpc.FullMethod(echoService, "Info"), &echoRequest{})
	require.NoError(t, err)
	require.Equal(t, "public", out.Text)
}

func TestStoreErrorsAreMapped(t *testing.T) {
	conn := dial(t)
	_, err := rpc.Invoke[echoResponse](authed(), conn, rpc.FullMethod(echoService, "Fail"), &echoRequest{Text: "x"})
	require.Equal(t, codes.NotFound, status.Code(err))
}

func TestStatusFromError(t *testing.T) {
	tests := []struct {
		err  error
		want codes.Code
	}{
		{fmt.Errorf("x: %w", db.ErrNotFound), codes.NotFound},
		{fmt.Errorf("x: %w", db.ErrUniqueConstraintViolation), codes.AlreadyExists},
		{fmt.Errorf("x: %w", db.ErrForeignKeyViolation), codes.InvalidArgument},
		{fmt.Errorf("x: %w", db.ErrRestrictViolation), codes.FailedPrecondition},
		{fmt.Errorf("begin: %w", db.ErrBusy), codes.Unavailable},
		{fmt.Errorf("x: %w", db.ErrInactive), codes.FailedPrecondition},
		{fmt.Errorf("%w: bad name", policy.ErrInvalid), codes.InvalidArgument},
		{context.Canceled, codes.Canceled},
		{fmt.Errorf("query: %w", context.DeadlineExceeded), codes.DeadlineExceeded},
		{status.Error(codes.PermissionDenied, "no"), codes.PermissionDenied},
		{errors.New("disk on fire"), codes.Internal},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, rpc.StatusFromError(tt.err).Code(), tt.err.Error())
	}
	require.Equal(t, "internal error", rpc.StatusFromError(errors.New("secret detail")).Message())
	require.NoError(t, rpc.Error(nil))
}

func TestHTTPStatusFromCode(t *testing.T) {
	require.Equal(t, http.StatusNotFound, rpc.HTTPStatusFromCode(codes.NotFound))
	require.Equal(t, http.StatusConflict, rpc.HTTPStatusFromCode(codes.AlreadyExists))
	require.Equal(t, http.StatusUnauthorized, rpc.HTTPStatusFromCode(codes.Unauthenticated))
	require.Equal(t, http.StatusForbidden, rpc.HTTPStatusFromCode(codes.PermissionDenied))
	require.Equal(t, http.StatusBadRequest, rpc.HTTPStatusFromCode(codes.InvalidArgument))
	require.Equal(t, http.StatusInternalServerError, rpc.HTTPStatusFromCode(codes.Internal))
}

// rawCodec sends request bytes untouched under the json content-subtype.
type rawCodec struct{}

func (rawCodec) Marshal(v any) ([]byte, error)      { return v.([]byte), nil }
func (rawCodec) Unmarshal(data []byte, v any) error { return nil }
func (rawCodec) Name() string                       { return rpc.CodecName }

func TestMalformedRequestFailsBeforeHandler(t *testing.T) {
	conn := dial(t)
	var out echoResponse
	err := conn.Invoke(authed(), rpc.FullMethod(echoService, "Echo"), []byte(`{"text": `), &out, grpc.ForceCodec(rawCodec{}))
	require.Equal(t, codes.Internal, status.Code(err))
	require.Contains(t, status.Convert(err).Message(), "unmarshal")
	require.Empty(t, out.Text)
}
