package namespaces

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/timgst1/policyd/internal/authz"
	"github.com/timgst1/policyd/internal/rpc"
)

const ServiceName = "policy.namespaces.NamespaceService"

var (
	MethodGetNamespace        = rpc.FullMethod(ServiceName, "GetNamespace")
	MethodListNamespaces      = rpc.FullMethod(ServiceName, "ListNamespaces")
	MethodCreateNamespace     = rpc.FullMethod(ServiceName, "CreateNamespace")
	MethodUpdateNamespace     = rpc.FullMethod(ServiceName, "UpdateNamespace")
	MethodDeactivateNamespace = rpc.FullMethod(ServiceName, "DeactivateNamespace")
)

type NamespaceServiceServer interface {
	GetNamespace(context.Context, *GetNamespaceRequest) (*GetNamespaceResponse, error)
	ListNamespaces(context.Context, *ListNamespacesRequest) (*ListNamespacesResponse, error)
	CreateNamespace(context.Context, *CreateNamespaceRequest) (*CreateNamespaceResponse, error)
	UpdateNamespace(context.Context, *UpdateNamespaceRequest) (*UpdateNamespaceResponse, error)
	DeactivateNamespace(context.Context, *DeactivateNamespaceRequest) (*DeactivateNamespaceResponse, error)
}

// UnimplementedNamespaceServiceServer answers every method with
// codes.Unimplemented. Embed it to stay forward compatible.
type UnimplementedNamespaceServiceServer struct{}

func (UnimplementedNamespaceServiceServer) GetNamespace(context.Context, *GetNamespaceRequest) (*GetNamespaceResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method GetNamespace not implemented")
}

func (UnimplementedNamespaceServiceServer) ListNamespaces(context.Context, *ListNamespacesRequest) (*ListNamespacesResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method ListNamespaces not implemented")
}

func (UnimplementedNamespaceServiceServer) CreateNamespace(context.Context, *CreateNamespaceRequest) (*CreateNamespaceResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method CreateNamespace not implemented")
}

func (UnimplementedNamespaceServiceServer) UpdateNamespace(context.Context, *UpdateNamespaceRequest) (*UpdateNamespaceResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method UpdateNamespace not implemented")
}

func (UnimplementedNamespaceServiceServer) DeactivateNamespace(context.Context, *DeactivateNamespaceRequest) (*DeactivateNamespaceResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method DeactivateNamespace not implemented")
}

var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*NamespaceServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		rpc.Method("GetNamespace", rpc.Unary(MethodGetNamespace, NamespaceServiceServer.GetNamespace)),
		rpc.Method("ListNamespaces", rpc.Unary(MethodListNamespaces, NamespaceServiceServer.ListNamespaces)),
		rpc.Method("CreateNamespace", rpc.Unary(MethodCreateNamespace, NamespaceServiceServer.CreateNamespace)),
		rpc.Method("UpdateNamespace", rpc.Unary(MethodUpdateNamespace, NamespaceServiceServer.UpdateNamespace)),
		rpc.Method("DeactivateNamespace", rpc.Unary(MethodDeactivateNamespace, NamespaceServiceServer.DeactivateNamespace)),
	},
	Metadata: "policy/namespaces/namespaces.proto",
}

func RegisterNamespaceServiceServer(s grpc.ServiceRegistrar, srv NamespaceServiceServer) {
	s.RegisterService(&ServiceDesc, srv)
}

var Rules = rpc.Rules{
	MethodGetNamespace:        {Action: authz.ActionRead, Resource: authz.ResourceNamespaces},
	MethodListNamespaces:      {Action: authz.ActionList, Resource: authz.ResourceNamespaces},
	MethodCreateNamespace:     {Action: authz.ActionWrite, Resource: authz.ResourceNamespaces},
	MethodUpdateNamespace:     {Action: authz.ActionWrite, Resource: authz.ResourceNamespaces},
	MethodDeactivateNamespace: {Action: authz.ActionWrite, Resource: authz.ResourceNamespaces},
}

type NamespaceServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewNamespaceServiceClient(cc grpc.ClientConnInterface) *NamespaceServiceClient {
	return &NamespaceServiceClient{cc: cc}
}

func (c *NamespaceServiceClient) GetNamespace(ctx context.Context, in *GetNamespaceRequest, opts ...grpc.CallOption) (*GetNamespaceResponse, error) {
	return rpc.Invoke[GetNamespaceResponse](ctx, c.cc, MethodGetNamespace, in, opts...)
}

func (c *NamespaceServiceClient) ListNamespaces(ctx context.Context, in *ListNamespacesRequest, opts ...grpc.CallOption) (*ListNamespacesResponse, error) {
	return rpc.Invoke[ListNamespacesResponse](ctx, c.cc, MethodListNamespaces, in, opts...)
}

func (c *NamespaceServiceClient) CreateNamespace(ctx context.Context, in *CreateNamespaceRequest, opts ...grpc.CallOption) (*CreateNamespaceResponse, error) {
	return rpc.Invoke[CreateNamespaceResponse](ctx, c.cc, MethodCreateNamespace, in, opts...)
}

func (c *NamespaceServiceClient) UpdateNamespace(ctx context.Context, in *UpdateNamespaceRequest, opts ...grpc.CallOption) (*UpdateNamespaceResponse, error) {
	return rpc.Invoke[UpdateNamespaceResponse](ctx, c.cc, MethodUpdateNamespace, in, opts...)
}

func (c *NamespaceServiceClient) DeactivateNamespace(ctx context.Context, in *DeactivateNamespaceRequest, opts ...grpc.CallOption) (*DeactivateNamespaceResponse, error) {
	return rpc.Invoke[DeactivateNamespaceResponse](ctx, c.cc, MethodDeactivateNamespace, in, opts...)
}
