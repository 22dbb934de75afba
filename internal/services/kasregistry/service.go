package kasregistry

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/timgst1/policyd/internal/authz"
	"github.com/timgst1/policyd/internal/rpc"
)

const ServiceName = "policy.kasregistry.KeyAccessServerRegistryService"

var (
	MethodListKeyAccessServers  = rpc.FullMethod(ServiceName, "ListKeyAccessServers")
	MethodGetKeyAccessServer    = rpc.FullMethod(ServiceName, "GetKeyAccessServer")
	MethodCreateKeyAccessServer = rpc.FullMethod(ServiceName, "CreateKeyAccessServer")
	MethodUpdateKeyAccessServer = rpc.FullMethod(ServiceName, "UpdateKeyAccessServer")
	MethodDeleteKeyAccessServer = rpc.FullMethod(ServiceName, "DeleteKeyAccessServer")
)

type KeyAccessServerRegistryServiceServer interface {
	ListKeyAccessServers(context.Context, *ListKeyAccessServersRequest) (*ListKeyAccessServersResponse, error)
	GetKeyAccessServer(context.Context, *GetKeyAccessServerRequest) (*GetKeyAccessServerResponse, error)
	CreateKeyAccessServer(context.Context, *CreateKeyAccessServerRequest) (*CreateKeyAccessServerResponse, error)
	UpdateKeyAccessServer(context.Context, *UpdateKeyAccessServerRequest) (*UpdateKeyAccessServerResponse, error)
	DeleteKeyAccessServer(context.Context, *DeleteKeyAccessServerRequest) (*DeleteKeyAccessServerResponse, error)
}

type UnimplementedKeyAccessServerRegistryServiceServer struct{}

func (UnimplementedKeyAccessServerRegistryServiceServer) ListKeyAccessServers(context.Context, *ListKeyAccessServersRequest) (*ListKeyAccessServersResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method ListKeyAccessServers not implemented")
}

func (UnimplementedKeyAccessServerRegistryServiceServer) GetKeyAccessServer(context.Context, *GetKeyAccessServerRequest) (*GetKeyAccessServerResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method GetKeyAccessServer not implemented")
}

func (UnimplementedKeyAccessServerRegistryServiceServer) CreateKeyAccessServer(context.Context, *CreateKeyAccessServerRequest) (*CreateKeyAccessServerResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method CreateKeyAccessServer not implemented")
}

func (UnimplementedKeyAccessServerRegistryServiceServer) UpdateKeyAccessServer(context.Context, *UpdateKeyAccessServerRequest) (*UpdateKeyAccessServerResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method UpdateKeyAccessServer not implemented")
}

func (UnimplementedKeyAccessServerRegistryServiceServer) DeleteKeyAccessServer(context.Context, *DeleteKeyAccessServerRequest) (*DeleteKeyAccessServerResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method DeleteKeyAccessServer not implemented")
}

var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*KeyAccessServerRegistryServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		rpc.Method("ListKeyAccessServers", rpc.Unary(MethodListKeyAccessServers, KeyAccessServerRegistryServiceServer.ListKeyAccessServers)),
		rpc.Method("GetKeyAccessServer", rpc.Unary(MethodGetKeyAccessServer, KeyAccessServerRegistryServiceServer.GetKeyAccessServer)),
		rpc.Method("CreateKeyAccessServer", rpc.Unary(MethodCreateKeyAccessServer, KeyAccessServerRegistryServiceServer.CreateKeyAccessServer)),
		rpc.Method("UpdateKeyAccessServer", rpc.Unary(MethodUpdateKeyAccessServer, KeyAccessServerRegistryServiceServer.UpdateKeyAccessServer)),
		rpc.Method("DeleteKeyAccessServer", rpc.Unary(MethodDeleteKeyAccessServer, KeyAccessServerRegistryServiceServer.DeleteKeyAccessServer)),
	},
	Metadata: "policy/kasregistry/key_access_server_registry.proto",
}

func RegisterKeyAccessServerRegistryServiceServer(s grpc.ServiceRegistrar, srv KeyAccessServerRegistryServiceServer) {
	s.RegisterService(&ServiceDesc, srv)
}

var Rules = rpc.Rules{
	MethodListKeyAccessServers:  {Action: authz.ActionList, Resource: authz.ResourceKeyAccessServers},
	MethodGetKeyAccessServer:    {Action: authz.ActionRead, Resource: authz.ResourceKeyAccessServers},
	MethodCreateKeyAccessServer: {Action: authz.ActionWrite, Resource: authz.ResourceKeyAccessServers},
	MethodUpdateKeyAccessServer: {Action: authz.ActionWrite, Resource: authz.ResourceKeyAccessServers},
	MethodDeleteKeyAccessServer: {Action: authz.ActionWrite, Resource: authz.ResourceKeyAccessServers},
}

type KeyAccessServerRegistryServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewKeyAccessServerRegistryServiceClient(cc grpc.ClientConnInterface) *KeyAccessServerRegistryServiceClient {
	return &KeyAccessServerRegistryServiceClient{cc: cc}
}

func (c *KeyAccessServerRegistryServiceClient) ListKeyAccessServers(ctx context.Context, in *ListKeyAccessServersRequest, opts ...grpc.CallOption) (*ListKeyAccessServersResponse, error) {
	return rpc.Invoke[ListKeyAccessServersResponse](ctx, c.cc, MethodListKeyAccessServers, in, opts...)
}

func (c *KeyAccessServerRegistryServiceClient) GetKeyAccessServer(ctx context.Context, in *GetKeyAccessServerRequest, opts ...grpc.CallOption) (*GetKeyAccessServerResponse, error) {
	return rpc.Invoke[GetKeyAccessServerResponse](ctx, c.cc, MethodGetKeyAccessServer, in, opts...)
}

func (c *KeyAccessServerRegistryServiceClient) CreateKeyAccessServer(ctx context.Context, in *CreateKeyAccessServerRequest, opts ...grpc.CallOption) (*CreateKeyAccessServerResponse, error) {
	return rpc.Invoke[CreateKeyAccessServerResponse](ctx, c.cc, MethodCreateKeyAccessServer, in, opts...)
}

func (c *KeyAccessServerRegistryServiceClient) UpdateKeyAccessServer(ctx context.Context, in *UpdateKeyAccessServerRequest, opts ...grpc.CallOption) (*UpdateKeyAccessServerResponse, error) {
	return rpc.Invoke[UpdateKeyAccessServerResponse](ctx, c.cc, MethodUpdateKeyAccessServer, in, opts...)
}

func (c *KeyAccessServerRegistryServiceClient) DeleteKeyAccessServer(ctx context.Context, in *DeleteKeyAccessServerRequest, opts ...grpc.CallOption) (*DeleteKeyAccessServerResponse, error) {
	return rpc.Invoke[DeleteKeyAccessServerResponse](ctx, c.cc, MethodDeleteKeyAccessServer, in, opts...)
}
