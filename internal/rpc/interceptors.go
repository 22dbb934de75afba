package rpc

import (
	"context"
	"log/slog"
	"runtime/debug"
	"time"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc"
	grpccodes "google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/timgst1/policyd/internal/authn"
	"github.com/timgst1/policyd/internal/authz"
	"github.com/timgst1/policyd/internal/observability"
)

// Rules maps a full method name to its access rule.
type Rules map[string]*authz.Rule

// Merge returns a new table holding the entries of every argument.
func Merge(tables ...Rules) Rules {
	out := Rules{}
	for _, t := range tables {
		for k, v := range t {
			out[k] = v
		}
	}
	return out
}

// Interceptors returns the unary chain in the order it must run.
func Interceptors(log *slog.Logger, an authn.Authenticator, az authz.Authorizer, rules Rules) []grpc.UnaryServerInterceptor {
	return []grpc.UnaryServerInterceptor{
		Recovery(log),
		Tracing(),
		Observe(log),
		Authenticate(an, rules),
		Authorize(az, rules),
		MapErrors(log),
	}
}

func Recovery(log *slog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp any, err error) {
		defer func() {
			if r := recover(); r != nil {
				log.Error("panic in rpc handler", "method", info.FullMethod, "panic", r, "stack", string(debug.Stack()))
				err = status.Error(grpccodes.Internal, internalMessage)
			}
		}()
		return handler(ctx, req)
	}
}

func Tracing() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		ctx, span := observability.StartSpan(ctx, info.FullMethod,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(observability.AttrRPCMethod.String(info.FullMethod)),
		)
		defer span.End()

		resp, err := handler(ctx, req)
		code := status.Code(err)
		span.SetAttributes(observability.AttrRPCCode.Int(int(code)))
		if err != nil {
			span.SetStatus(codes.Error, code.String())
		}
		return resp, err
	}
}

// Observe logs every call and records the request metrics.
func Observe(log *slog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		elapsed := time.Since(start)

		code := status.Code(err)
		observability.RPCRequests.WithLabelValues(info.FullMethod, code.String()).Inc()
		observability.RPCDuration.WithLabelValues(info.FullMethod).Observe(elapsed.Seconds())

		level := slog.LevelInfo
		if code == grpccodes.Internal || code == grpccodes.Unknown {
			level = slog.LevelError
		}
		log.Log(ctx, level, "rpc",
			"method", info.FullMethod,
			"code", code.String(),
			"duration_ms", elapsed.Milliseconds(),
			"actor", authn.ActorFromContext(ctx),
		)
		return resp, err
	}
}

// Authenticate resolves the "authorization" metadata entry into a subject.
// Public methods pass through unauthenticated.
func Authenticate(an authn.Authenticator, rules Rules) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if rule := rules[info.FullMethod]; rule != nil && rule.Public {
			return handler(ctx, req)
		}
		var header string
		if md, ok := metadata.FromIncomingContext(ctx); ok {
			if v := md.Get("authorization"); len(v) > 0 {
				header = v[0]
			}
		}
		sub, err := an.Authenticate(ctx, header)
		if err != nil {
			return nil, status.Error(grpccodes.Unauthenticated, "unauthenticated")
		}
		trace.SpanFromContext(ctx).SetAttributes(observability.AttrSubject.String(sub.String()))
		return handler(authn.WithSubject(ctx, sub), req)
	}
}

// Authorize denies methods without a rule and methods the subject holds no
// permission for.
func Authorize(az authz.Authorizer, rules Rules) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		sub, _ := authn.SubjectFromContext(ctx)
		if d := authz.Check(az, sub, rules[info.FullMethod]); !d.Allowed {
			return nil, status.Error(grpccodes.PermissionDenied, "forbidden: "+d.Reason)
		}
		return handler(ctx, req)
	}
}

// MapErrors turns store errors returned by handlers into status errors and
// logs the ones that end up as Internal.
func MapErrors(log *slog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		resp, err := handler(ctx, req)
		if err == nil {
			return resp, nil
		}
		st := StatusFromError(err)
		if st.Code() == grpccodes.Internal {
			log.Error("rpc failed", "method", info.FullMethod, "err", err)
		}
		return nil, st.Err()
	}
}
