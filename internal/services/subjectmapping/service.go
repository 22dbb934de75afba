package subjectmapping

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/timgst1/policyd/internal/authz"
	"github.com/timgst1/policyd/internal/rpc"
)

const ServiceName = "policy.subjectmapping.SubjectMappingService"

var (
	MethodMatchSubjectMappings      = rpc.FullMethod(ServiceName, "MatchSubjectMappings")
	MethodListSubjectMappings       = rpc.FullMethod(ServiceName, "ListSubjectMappings")
	MethodGetSubjectMapping         = rpc.FullMethod(ServiceName, "GetSubjectMapping")
	MethodCreateSubjectMapping      = rpc.FullMethod(ServiceName, "CreateSubjectMapping")
	MethodUpdateSubjectMapping      = rpc.FullMethod(ServiceName, "UpdateSubjectMapping")
	MethodDeleteSubjectMapping      = rpc.FullMethod(ServiceName, "DeleteSubjectMapping")
	MethodListSubjectConditionSets  = rpc.FullMethod(ServiceName, "ListSubjectConditionSets")
	MethodGetSubjectConditionSet    = rpc.FullMethod(ServiceName, "GetSubjectConditionSet")
	MethodCreateSubjectConditionSet = rpc.FullMethod(ServiceName, "CreateSubjectConditionSet")
	MethodUpdateSubjectConditionSet = rpc.FullMethod(ServiceName, "UpdateSubjectConditionSet")
	MethodDeleteSubjectConditionSet = rpc.FullMethod(ServiceName, "DeleteSubjectConditionSet")
	MethodResolveEntitlements       = rpc.FullMethod(ServiceName, "ResolveEntitlements")
)

type SubjectMappingServiceServer interface {
	MatchSubjectMappings(context.Context, *MatchSubjectMappingsRequest) (*MatchSubjectMappingsResponse, error)
	ListSubjectMappings(context.Context, *ListSubjectMappingsRequest) (*ListSubjectMappingsResponse, error)
	GetSubjectMapping(context.Context, *GetSubjectMappingRequest) (*GetSubjectMappingResponse, error)
	CreateSubjectMapping(context.Context, *CreateSubjectMappingRequest) (*CreateSubjectMappingResponse, error)
	UpdateSubjectMapping(context.Context, *UpdateSubjectMappingRequest) (*UpdateSubjectMappingResponse, error)
	DeleteSubjectMapping(context.Context, *DeleteSubjectMappingRequest) (*DeleteSubjectMappingResponse, error)
	ListSubjectConditionSets(context.Context, *ListSubjectConditionSetsRequest) (*ListSubjectConditionSetsResponse, error)
	GetSubjectConditionSet(context.Context, *GetSubjectConditionSetRequest) (*GetSubjectConditionSetResponse, error)
	CreateSubjectConditionSet(context.Context, *CreateSubjectConditionSetRequest) (*CreateSubjectConditionSetResponse, error)
	UpdateSubjectConditionSet(context.Context, *UpdateSubjectConditionSetRequest) (*UpdateSubjectConditionSetResponse, error)
	DeleteSubjectConditionSet(context.Context, *DeleteSubjectConditionSetRequest) (*DeleteSubjectConditionSetResponse, error)
	ResolveEntitlements(context.Context, *ResolveEntitlementsRequest) (*ResolveEntitlementsResponse, error)
}

type UnimplementedSubjectMappingServiceServer struct{}

func (UnimplementedSubjectMappingServiceServer) MatchSubjectMappings(context.Context, *MatchSubjectMappingsRequest) (*MatchSubjectMappingsResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method MatchSubjectMappings not implemented")
}

func (UnimplementedSubjectMappingServiceServer) ListSubjectMappings(context.Context, *ListSubjectMappingsRequest) (*ListSubjectMappingsResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method ListSubjectMappings not implemented")
}

func (UnimplementedSubjectMappingServiceServer) GetSubjectMapping(context.Context, *GetSubjectMappingRequest) (*GetSubjectMappingResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method GetSubjectMapping not implemented")
}

func (UnimplementedSubjectMappingServiceServer) CreateSubjectMapping(context.Context, *CreateSubjectMappingRequest) (*CreateSubjectMappingResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method CreateSubjectMapping not implemented")
}

func (UnimplementedSubjectMappingServiceServer) UpdateSubjectMapping(context.Context, *UpdateSubjectMappingRequest) (*UpdateSubjectMappingResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method UpdateSubjectMapping not implemented")
}

func (UnimplementedSubjectMappingServiceServer) DeleteSubjectMapping(context.Context, *DeleteSubjectMappingRequest) (*DeleteSubjectMappingResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method DeleteSubjectMapping not implemented")
}

func (UnimplementedSubjectMappingServiceServer) ListSubjectConditionSets(context.Context, *ListSubjectConditionSetsRequest) (*ListSubjectConditionSetsResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method ListSubjectConditionSets not implemented")
}

func (UnimplementedSubjectMappingServiceServer) GetSubjectConditionSet(context.Context, *GetSubjectConditionSetRequest) (*GetSubjectConditionSetResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method GetSubjectConditionSet not implemented")
}

func (UnimplementedSubjectMappingServiceServer) CreateSubjectConditionSet(context.Context, *CreateSubjectConditionSetRequest) (*CreateSubjectConditionSetResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method CreateSubjectConditionSet not implemented")
}

func (UnimplementedSubjectMappingServiceServer) UpdateSubjectConditionSet(context.Context, *UpdateSubjectConditionSetRequest) (*UpdateSubjectConditionSetResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method UpdateSubjectConditionSet not implemented")
}

func (UnimplementedSubjectMappingServiceServer) DeleteSubjectConditionSet(context.Context, *DeleteSubjectConditionSetRequest) (*DeleteSubjectConditionSetResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method DeleteSubjectConditionSet not implemented")
}

func (UnimplementedSubjectMappingServiceServer) ResolveEntitlements(context.Context, *ResolveEntitlementsRequest) (*ResolveEntitlementsResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method ResolveEntitlements not implemented")
}

var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*SubjectMappingServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		rpc.Method("MatchSubjectMappings", rpc.Unary(MethodMatchSubjectMappings, SubjectMappingServiceServer.MatchSubjectMappings)),
		rpc.Method("ListSubjectMappings", rpc.Unary(MethodListSubjectMappings, SubjectMappingServiceServer.ListSubjectMappings)),
		rpc.Method("GetSubjectMapping", rpc.Unary(MethodGetSubjectMapping, SubjectMappingServiceServer.GetSubjectMapping)),
		rpc.Method("CreateSubjectMapping", rpc.Unary(MethodCreateSubjectMapping, SubjectMappingServiceServer.CreateSubjectMapping)),
		rpc.Method("UpdateSubjectMapping", rpc.Unary(MethodUpdateSubjectMapping, SubjectMappingServiceServer.UpdateSubjectMapping)),
		rpc.Method("DeleteSubjectMapping", rpc.Unary(MethodDeleteSubjectMapping, SubjectMappingServiceServer.DeleteSubjectMapping)),
		rpc.Method("ListSubjectConditionSets", rpc.Unary(MethodListSubjectConditionSets, SubjectMappingServiceServer.ListSubjectConditionSets)),
		rpc.Method("GetSubjectConditionSet", rpc.Unary(MethodGetSubjectConditionSet, SubjectMappingServiceServer.GetSubjectConditionSet)),
		rpc.Method("CreateSubjectConditionSet", rpc.Unary(MethodCreateSubjectConditionSet, SubjectMappingServiceServer.CreateSubjectConditionSet)),
		rpc.Method("UpdateSubjectConditionSet", rpc.Unary(MethodUpdateSubjectConditionSet, SubjectMappingServiceServer.UpdateSubjectConditionSet)),
		rpc.Method("DeleteSubjectConditionSet", rpc.Unary(MethodDeleteSubjectConditionSet, SubjectMappingServiceServer.DeleteSubjectConditionSet)),
		rpc.Method("ResolveEntitlements", rpc.Unary(MethodResolveEntitlements, SubjectMappingServiceServer.ResolveEntitlements)),
	},
	Metadata: "subjectmapping/subject_mapping.proto",
}

func RegisterSubjectMappingServiceServer(s grpc.ServiceRegistrar, srv SubjectMappingServiceServer) {
	s.RegisterService(&ServiceDesc, srv)
}

var Rules = rpc.Rules{
	MethodMatchSubjectMappings:      {Action: authz.ActionRead, Resource: authz.ResourceSubjectMappings},
	MethodListSubjectMappings:       {Action: authz.ActionList, Resource: authz.ResourceSubjectMappings},
	MethodGetSubjectMapping:         {Action: authz.ActionRead, Resource: authz.ResourceSubjectMappings},
	MethodCreateSubjectMapping:      {Action: authz.ActionWrite, Resource: authz.ResourceSubjectMappings},
	MethodUpdateSubjectMapping:      {Action: authz.ActionWrite, Resource: authz.ResourceSubjectMappings},
	MethodDeleteSubjectMapping:      {Action: authz.ActionWrite, Resource: authz.ResourceSubjectMappings},
	MethodListSubjectConditionSets:  {Action: authz.ActionList, Resource: authz.ResourceSubjectConditionSets},
	MethodGetSubjectConditionSet:    {Action: authz.ActionRead, Resource: authz.ResourceSubjectConditionSets},
	MethodCreateSubjectConditionSet: {Action: authz.ActionWrite, Resource: authz.ResourceSubjectConditionSets},
	MethodUpdateSubjectConditionSet: {Action: authz.ActionWrite, Resource: authz.ResourceSubjectConditionSets},
	MethodDeleteSubjectConditionSet: {Action: authz.ActionWrite, Resource: authz.ResourceSubjectConditionSets},
	MethodResolveEntitlements:       {Action: authz.ActionRead, Resource: authz.ResourceEntitlements},
}

type SubjectMappingServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewSubjectMappingServiceClient(cc grpc.ClientConnInterface) *SubjectMappingServiceClient {
	return &SubjectMappingServiceClient{cc: cc}
}

func (c *SubjectMappingServiceClient) MatchSubjectMappings(ctx context.Context, in *MatchSubjectMappingsRequest, opts ...grpc.CallOption) (*MatchSubjectMappingsResponse, error) {
	return rpc.Invoke[MatchSubjectMappingsResponse](ctx, c.cc, MethodMatchSubjectMappings, in, opts...)
}

func (c *SubjectMappingServiceClient) ListSubjectMappings(ctx context.Context, in *ListSubjectMappingsRequest, opts ...grpc.CallOption) (*ListSubjectMappingsResponse, error) {
	return rpc.Invoke[ListSubjectMappingsResponse](ctx, c.cc, MethodListSubjectMappings, in, opts...)
}

func (c *SubjectMappingServiceClient) GetSubjectMapping(ctx context.Context, in *GetSubjectMappingRequest, opts ...grpc.CallOption) (*GetSubjectMappingResponse, error) {
	return rpc.Invoke[GetSubjectMappingResponse](ctx, c.cc, MethodGetSubjectMapping, in, opts...)
}

func (c *SubjectMappingServiceClient) CreateSubjectMapping(ctx context.Context, in *CreateSubjectMappingRequest, opts ...grpc.CallOption) (*CreateSubjectMappingResponse, error) {
	return rpc.Invoke[CreateSubjectMappingResponse](ctx, c.cc, MethodCreateSubjectMapping, in, opts...)
}

func (c *SubjectMappingServiceClient) UpdateSubjectMapping(ctx context.Context, in *UpdateSubjectMappingRequest, opts ...grpc.CallOption) (*UpdateSubjectMappingResponse, error) {
	return rpc.Invoke[UpdateSubjectMappingResponse](ctx, c.cc, MethodUpdateSubjectMapping, in, opts...)
}

func (c *SubjectMappingServiceClient) DeleteSubjectMapping(ctx context.Context, in *DeleteSubjectMappingRequest, opts ...grpc.CallOption) (*DeleteSubjectMappingResponse, error) {
	return rpc.Invoke[DeleteSubjectMappingResponse](ctx, c.cc, MethodDeleteSubjectMapping, in, opts...)
}

func (c *SubjectMappingServiceClient) ListSubjectConditionSets(ctx context.Context, in *ListSubjectConditionSetsRequest, opts ...grpc.CallOption) (*ListSubjectConditionSetsResponse, error) {
	return rpc.Invoke[ListSubjectConditionSetsResponse](ctx, c.cc, MethodListSubjectConditionSets, in, opts...)
}

func (c *SubjectMappingServiceClient) GetSubjectConditionSet(ctx context.Context, in *GetSubjectConditionSetRequest, opts ...grpc.CallOption) (*GetSubjectConditionSetResponse, error) {
	return rpc.Invoke[GetSubjectConditionSetResponse](ctx, c.cc, MethodGetSubjectConditionSet, in, opts...)
}

func (c *SubjectMappingServiceClient) CreateSubjectConditionSet(ctx context.Context, in *CreateSubjectConditionSetRequest, opts ...grpc.CallOption) (*CreateSubjectConditionSetResponse, error) {
	return rpc.Invoke[CreateSubjectConditionSetResponse](ctx, c.cc, MethodCreateSubjectConditionSet, in, opts...)
}

func (c *SubjectMappingServiceClient) UpdateSubjectConditionSet(ctx context.Context, in *UpdateSubjectConditionSetRequest, opts ...grpc.CallOption) (*UpdateSubjectConditionSetResponse, error) {
	return rpc.Invoke[UpdateSubjectConditionSetResponse](ctx, c.cc, MethodUpdateSubjectConditionSet, in, opts...)
}

func (c *SubjectMappingServiceClient) DeleteSubjectConditionSet(ctx context.Context, in *DeleteSubjectConditionSetRequest, opts ...grpc.CallOption) (*DeleteSubjectConditionSetResponse, error) {
	return rpc.Invoke[DeleteSubjectConditionSetResponse](ctx, c.cc, MethodDeleteSubjectConditionSet, in, opts...)
}

func (c *SubjectMappingServiceClient) ResolveEntitlements(ctx context.Context, in *ResolveEntitlementsRequest, opts ...grpc.CallOption) (*ResolveEntitlementsResponse, error) {
	return rpc.Invoke[ResolveEntitlementsResponse](ctx, c.cc, MethodResolveEntitlements, in, opts...)
}
