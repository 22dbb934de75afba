// Package wellknown serves wellknown_configuration.WellKnownService, the
// unauthenticated discovery endpoint of the platform.
package wellknown

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/timgst1/policyd/internal/rpc"
	"github.com/timgst1/policyd/internal/wellknown"
)

const ServiceName = "wellknown_configuration.WellKnownService"

var MethodGetWellKnownConfiguration = rpc.FullMethod(ServiceName, "GetWellKnownConfiguration")

type GetWellKnownConfigurationRequest struct{}

type GetWellKnownConfigurationResponse struct {
	Configuration map[string]any `json:"configuration"`
	Fingerprint   string         `json:"fingerprint,omitempty"`
}

type WellKnownServiceServer interface {
	GetWellKnownConfiguration(context.Context, *GetWellKnownConfigurationRequest) (*GetWellKnownConfigurationResponse, error)
}

type UnimplementedWellKnownServiceServer struct{}

func (UnimplementedWellKnownServiceServer) GetWellKnownConfiguration(context.Context, *GetWellKnownConfigurationRequest) (*GetWellKnownConfigurationResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method GetWellKnownConfiguration not implemented")
}

var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*WellKnownServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		rpc.Method("GetWellKnownConfiguration", rpc.Unary(MethodGetWellKnownConfiguration, WellKnownServiceServer.GetWellKnownConfiguration)),
	},
	Metadata: "wellknownconfiguration/wellknown_configuration.proto",
}

func RegisterWellKnownServiceServer(s grpc.ServiceRegistrar, srv WellKnownServiceServer) {
	s.RegisterService(&ServiceDesc, srv)
}

var Rules = rpc.Rules{
	MethodGetWellKnownConfiguration: {Public: true},
}

type WellKnownServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewWellKnownServiceClient(cc grpc.ClientConnInterface) *WellKnownServiceClient {
	return &WellKnownServiceClient{cc: cc}
}

func (c *WellKnownServiceClient) GetWellKnownConfiguration(ctx context.Context, in *GetWellKnownConfigurationRequest, opts ...grpc.CallOption) (*GetWellKnownConfigurationResponse, error) {
	return rpc.Invoke[GetWellKnownConfigurationResponse](ctx, c.cc, MethodGetWellKnownConfiguration, in, opts...)
}

type Service struct {
	UnimplementedWellKnownServiceServer

	registry *wellknown.Registry
}

func NewService(registry *wellknown.Registry) *Service {
	return &Service{registry: registry}
}

func (s *Service) GetWellKnownConfiguration(context.Context, *GetWellKnownConfigurationRequest) (*GetWellKnownConfigurationResponse, error) {
	fp, err := s.registry.Fingerprint()
	if err != nil {
		return nil, err
	}
	return &GetWellKnownConfigurationResponse{
		Configuration: s.registry.Configuration(),
		Fingerprint:   fp,
	}, nil
}
