package rpc

import (
	"context"

	"google.golang.org/grpc"
)

// methodHandler is the signature of grpc.MethodDesc.Handler (exported as
// grpc.MethodHandler only in newer grpc releases).
type methodHandler = func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error)

// Unary builds the grpc.MethodHandler for one method of a hand written
// service descriptor. call is usually a method expression such as
// AttributesServer.GetAttribute.
func Unary[S, Req, Resp any](fullMethod string, call func(S, context.Context, *Req) (*Resp, error)) methodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(S), ctx, in)
		}
		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: fullMethod,
		}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(S), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// Method pairs a method name with its handler for a grpc.ServiceDesc.
func Method(name string, h methodHandler) grpc.MethodDesc {
	return grpc.MethodDesc{MethodName: name, Handler: h}
}

// FullMethod returns "/<service>/<method>".
func FullMethod(service, method string) string {
	return "/" + service + "/" + method
}
