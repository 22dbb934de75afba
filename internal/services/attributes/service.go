package attributes

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/timgst1/policyd/internal/authz"
	"github.com/timgst1/policyd/internal/rpc"
)

const ServiceName = "attributes.AttributesService"

var (
	MethodListAttributes                     = rpc.FullMethod(ServiceName, "ListAttributes")
	MethodGetAttribute                       = rpc.FullMethod(ServiceName, "GetAttribute")
	MethodGetAttributeValuesByFqns           = rpc.FullMethod(ServiceName, "GetAttributeValuesByFqns")
	MethodCreateAttribute                    = rpc.FullMethod(ServiceName, "CreateAttribute")
	MethodUpdateAttribute                    = rpc.FullMethod(ServiceName, "UpdateAttribute")
	MethodDeactivateAttribute                = rpc.FullMethod(ServiceName, "DeactivateAttribute")
	MethodGetAttributeValue                  = rpc.FullMethod(ServiceName, "GetAttributeValue")
	MethodListAttributeValues                = rpc.FullMethod(ServiceName, "ListAttributeValues")
	MethodCreateAttributeValue               = rpc.FullMethod(ServiceName, "CreateAttributeValue")
	MethodUpdateAttributeValue               = rpc.FullMethod(ServiceName, "UpdateAttributeValue")
	MethodDeactivateAttributeValue           = rpc.FullMethod(ServiceName, "DeactivateAttributeValue")
	MethodAssignKeyAccessServerToAttribute   = rpc.FullMethod(ServiceName, "AssignKeyAccessServerToAttribute")
	MethodRemoveKeyAccessServerFromAttribute = rpc.FullMethod(ServiceName, "RemoveKeyAccessServerFromAttribute")
	MethodAssignKeyAccessServerToValue       = rpc.FullMethod(ServiceName, "AssignKeyAccessServerToValue")
	MethodRemoveKeyAccessServerFromValue     = rpc.FullMethod(ServiceName, "RemoveKeyAccessServerFromValue")
)

type AttributesServiceServer interface {
	ListAttributes(context.Context, *ListAttributesRequest) (*ListAttributesResponse, error)
	GetAttribute(context.Context, *GetAttributeRequest) (*GetAttributeResponse, error)
	GetAttributeValuesByFqns(context.Context, *GetAttributeValuesByFqnsRequest) (*GetAttributeValuesByFqnsResponse, error)
	CreateAttribute(context.Context, *CreateAttributeRequest) (*CreateAttributeResponse, error)
	UpdateAttribute(context.Context, *UpdateAttributeRequest) (*UpdateAttributeResponse, error)
	DeactivateAttribute(context.Context, *DeactivateAttributeRequest) (*DeactivateAttributeResponse, error)
	GetAttributeValue(context.Context, *GetAttributeValueRequest) (*GetAttributeValueResponse, error)
	ListAttributeValues(context.Context, *ListAttributeValuesRequest) (*ListAttributeValuesResponse, error)
	CreateAttributeValue(context.Context, *CreateAttributeValueRequest) (*CreateAttributeValueResponse, error)
	UpdateAttributeValue(context.Context, *UpdateAttributeValueRequest) (*UpdateAttributeValueResponse, error)
	DeactivateAttributeValue(context.Context, *DeactivateAttributeValueRequest) (*DeactivateAttributeValueResponse, error)
	AssignKeyAccessServerToAttribute(context.Context, *AssignKeyAccessServerToAttributeRequest) (*AssignKeyAccessServerToAttributeResponse, error)
	RemoveKeyAccessServerFromAttribute(context.Context, *RemoveKeyAccessServerFromAttributeRequest) (*RemoveKeyAccessServerFromAttributeResponse, error)
	AssignKeyAccessServerToValue(context.Context, *AssignKeyAccessServerToValueRequest) (*AssignKeyAccessServerToValueResponse, error)
	RemoveKeyAccessServerFromValue(context.Context, *RemoveKeyAccessServerFromValueRequest) (*RemoveKeyAccessServerFromValueResponse, error)
}

// UnimplementedAttributesServiceServer answers every method with codes.Unimplemented.
type UnimplementedAttributesServiceServer struct{}

func (UnimplementedAttributesServiceServer) ListAttributes(context.Context, *ListAttributesRequest) (*ListAttributesResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method ListAttributes not implemented")
}

func (UnimplementedAttributesServiceServer) GetAttribute(context.Context, *GetAttributeRequest) (*GetAttributeResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method GetAttribute not implemented")
}

func (UnimplementedAttributesServiceServer) GetAttributeValuesByFqns(context.Context, *GetAttributeValuesByFqnsRequest) (*GetAttributeValuesByFqnsResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method GetAttributeValuesByFqns not implemented")
}

func (UnimplementedAttributesServiceServer) CreateAttribute(context.Context, *CreateAttributeRequest) (*CreateAttributeResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method CreateAttribute not implemented")
}

func (UnimplementedAttributesServiceServer) UpdateAttribute(context.Context, *UpdateAttributeRequest) (*UpdateAttributeResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method UpdateAttribute not implemented")
}

func (UnimplementedAttributesServiceServer) DeactivateAttribute(context.Context, *DeactivateAttributeRequest) (*DeactivateAttributeResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method DeactivateAttribute not implemented")
}

func (UnimplementedAttributesServiceServer) GetAttributeValue(context.Context, *GetAttributeValueRequest) (*GetAttributeValueResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method GetAttributeValue not implemented")
}

func (UnimplementedAttributesServiceServer) ListAttributeValues(context.Context, *ListAttributeValuesRequest) (*ListAttributeValuesResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method ListAttributeValues not implemented")
}

func (UnimplementedAttributesServiceServer) CreateAttributeValue(context.Context, *CreateAttributeValueRequest) (*CreateAttributeValueResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method CreateAttributeValue not implemented")
}

func (UnimplementedAttributesServiceServer) UpdateAttributeValue(context.Context, *UpdateAttributeValueRequest) (*UpdateAttributeValueResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method UpdateAttributeValue not implemented")
}

func (UnimplementedAttributesServiceServer) DeactivateAttributeValue(context.Context, *DeactivateAttributeValueRequest) (*DeactivateAttributeValueResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method DeactivateAttributeValue not implemented")
}

func (UnimplementedAttributesServiceServer) AssignKeyAccessServerToAttribute(context.Context, *AssignKeyAccessServerToAttributeRequest) (*AssignKeyAccessServerToAttributeResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method AssignKeyAccessServerToAttribute not implemented")
}

func (UnimplementedAttributesServiceServer) RemoveKeyAccessServerFromAttribute(context.Context, *RemoveKeyAccessServerFromAttributeRequest) (*RemoveKeyAccessServerFromAttributeResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method RemoveKeyAccessServerFromAttribute not implemented")
}

func (UnimplementedAttributesServiceServer) AssignKeyAccessServerToValue(context.Context, *AssignKeyAccessServerToValueRequest) (*AssignKeyAccessServerToValueResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method AssignKeyAccessServerToValue not implemented")
}

func (UnimplementedAttributesServiceServer) RemoveKeyAccessServerFromValue(context.Context, *RemoveKeyAccessServerFromValueRequest) (*RemoveKeyAccessServerFromValueResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method RemoveKeyAccessServerFromValue not implemented")
}

var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*AttributesServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		rpc.Method("ListAttributes", rpc.Unary(MethodListAttributes, AttributesServiceServer.ListAttributes)),
		rpc.Method("GetAttribute", rpc.Unary(MethodGetAttribute, AttributesServiceServer.GetAttribute)),
		rpc.Method("GetAttributeValuesByFqns", rpc.Unary(MethodGetAttributeValuesByFqns, AttributesServiceServer.GetAttributeValuesByFqns)),
		rpc.Method("CreateAttribute", rpc.Unary(MethodCreateAttribute, AttributesServiceServer.CreateAttribute)),
		rpc.Method("UpdateAttribute", rpc.Unary(MethodUpdateAttribute, AttributesServiceServer.UpdateAttribute)),
		rpc.Method("DeactivateAttribute", rpc.Unary(MethodDeactivateAttribute, AttributesServiceServer.DeactivateAttribute)),
		rpc.Method("GetAttributeValue", rpc.Unary(MethodGetAttributeValue, AttributesServiceServer.GetAttributeValue)),
		rpc.Method("ListAttributeValues", rpc.Unary(MethodListAttributeValues, AttributesServiceServer.ListAttributeValues)),
		rpc.Method("CreateAttributeValue", rpc.Unary(MethodCreateAttributeValue, AttributesServiceServer.CreateAttributeValue)),
		rpc.Method("UpdateAttributeValue", rpc.Unary(MethodUpdateAttributeValue, AttributesServiceServer.UpdateAttributeValue)),
		rpc.Method("DeactivateAttributeValue", rpc.Unary(MethodDeactivateAttributeValue, AttributesServiceServer.DeactivateAttributeValue)),
		rpc.Method("AssignKeyAccessServerToAttribute", rpc.Unary(MethodAssignKeyAccessServerToAttribute, AttributesServiceServer.AssignKeyAccessServerToAttribute)),
		rpc.Method("RemoveKeyAccessServerFromAttribute", rpc.Unary(MethodRemoveKeyAccessServerFromAttribute, AttributesServiceServer.RemoveKeyAccessServerFromAttribute)),
		rpc.Method("AssignKeyAccessServerToValue", rpc.Unary(MethodAssignKeyAccessServerToValue, AttributesServiceServer.AssignKeyAccessServerToValue)),
		rpc.Method("RemoveKeyAccessServerFromValue", rpc.Unary(MethodRemoveKeyAccessServerFromValue, AttributesServiceServer.RemoveKeyAccessServerFromValue)),
	},
	Metadata: "attributes/attributes.proto",
}

func RegisterAttributesServiceServer(s grpc.ServiceRegistrar, srv AttributesServiceServer) {
	s.RegisterService(&ServiceDesc, srv)
}

var Rules = rpc.Rules{
	MethodListAttributes:                     {Action: authz.ActionList, Resource: authz.ResourceAttributes},
	MethodGetAttribute:                       {Action: authz.ActionRead, Resource: authz.ResourceAttributes},
	MethodGetAttributeValuesByFqns:           {Action: authz.ActionRead, Resource: authz.ResourceAttributes},
	MethodCreateAttribute:                    {Action: authz.ActionWrite, Resource: authz.ResourceAttributes},
	MethodUpdateAttribute:                    {Action: authz.ActionWrite, Resource: authz.ResourceAttributes},
	MethodDeactivateAttribute:                {Action: authz.ActionWrite, Resource: authz.ResourceAttributes},
	MethodGetAttributeValue:                  {Action: authz.ActionRead, Resource: authz.ResourceAttributeValues},
	MethodListAttributeValues:                {Action: authz.ActionList, Resource: authz.ResourceAttributeValues},
	MethodCreateAttributeValue:               {Action: authz.ActionWrite, Resource: authz.ResourceAttributeValues},
	MethodUpdateAttributeValue:               {Action: authz.ActionWrite, Resource: authz.ResourceAttributeValues},
	MethodDeactivateAttributeValue:           {Action: authz.ActionWrite, Resource: authz.ResourceAttributeValues},
	MethodAssignKeyAccessServerToAttribute:   {Action: authz.ActionWrite, Resource: authz.ResourceAttributeGrants},
	MethodRemoveKeyAccessServerFromAttribute: {Action: authz.ActionWrite, Resource: authz.ResourceAttributeGrants},
	MethodAssignKeyAccessServerToValue:       {Action: authz.ActionWrite, Resource: authz.ResourceAttributeGrants},
	MethodRemoveKeyAccessServerFromValue:     {Action: authz.ActionWrite, Resource: authz.ResourceAttributeGrants},
}

type AttributesServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewAttributesServiceClient(cc grpc.ClientConnInterface) *AttributesServiceClient {
	return &AttributesServiceClient{cc: cc}
}

func (c *AttributesServiceClient) ListAttributes(ctx context.Context, in *ListAttributesRequest, opts ...grpc.CallOption) (*ListAttributesResponse, error) {
	return rpc.Invoke[ListAttributesResponse](ctx, c.cc, MethodListAttributes, in, opts...)
}

func (c *AttributesServiceClient) GetAttribute(ctx context.Context, in *GetAttributeRequest, opts ...grpc.CallOption) (*GetAttributeResponse, error) {
	return rpc.Invoke[GetAttributeResponse](ctx, c.cc, MethodGetAttribute, in, opts...)
}

func (c *AttributesServiceClient) GetAttributeValuesByFqns(ctx context.Context, in *GetAttributeValuesByFqnsRequest, opts ...grpc.CallOption) (*GetAttributeValuesByFqnsResponse, error) {
	return rpc.Invoke[GetAttributeValuesByFqnsResponse](ctx, c.cc, MethodGetAttributeValuesByFqns, in, opts...)
}

func (c *AttributesServiceClient) CreateAttribute(ctx context.Context, in *CreateAttributeRequest, opts ...grpc.CallOption) (*CreateAttributeResponse, error) {
	return rpc.Invoke[CreateAttributeResponse](ctx, c.cc, MethodCreateAttribute, in, opts...)
}

func (c *AttributesServiceClient) UpdateAttribute(ctx context.Context, in *UpdateAttributeRequest, opts ...grpc.CallOption) (*UpdateAttributeResponse, error) {
	return rpc.Invoke[UpdateAttributeResponse](ctx, c.cc, MethodUpdateAttribute, in, opts...)
}

func (c *AttributesServiceClient) DeactivateAttribute(ctx context.Context, in *DeactivateAttributeRequest, opts ...grpc.CallOption) (*DeactivateAttributeResponse, error) {
	return rpc.Invoke[DeactivateAttributeResponse](ctx, c.cc, MethodDeactivateAttribute, in, opts...)
}

func (c *AttributesServiceClient) GetAttributeValue(ctx context.Context, in *GetAttributeValueRequest, opts ...grpc.CallOption) (*GetAttributeValueResponse, error) {
	return rpc.Invoke[GetAttributeValueResponse](ctx, c.cc, MethodGetAttributeValue, in, opts...)
}

func (c *AttributesServiceClient) ListAttributeValues(ctx context.Context, in *ListAttributeValuesRequest, opts ...grpc.CallOption) (*ListAttributeValuesResponse, error) {
	return rpc.Invoke[ListAttributeValuesResponse](ctx, c.cc, MethodListAttributeValues, in, opts...)
}

func (c *AttributesServiceClient) CreateAttributeValue(ctx context.Context, in *CreateAttributeValueRequest, opts ...grpc.CallOption) (*CreateAttributeValueResponse, error) {
	return rpc.Invoke[CreateAttributeValueResponse](ctx, c.cc, MethodCreateAttributeValue, in, opts...)
}

func (c *AttributesServiceClient) UpdateAttributeValue(ctx context.Context, in *UpdateAttributeValueRequest, opts ...grpc.CallOption) (*UpdateAttributeValueResponse, error) {
	return rpc.Invoke[UpdateAttributeValueResponse](ctx, c.cc, MethodUpdateAttributeValue, in, opts...)
}

func (c *AttributesServiceClient) DeactivateAttributeValue(ctx context.Context, in *DeactivateAttributeValueRequest, opts ...grpc.CallOption) (*DeactivateAttributeValueResponse, error) {
	return rpc.Invoke[DeactivateAttributeValueResponse](ctx, c.cc, MethodDeactivateAttributeValue, in, opts...)
}

func (c *AttributesServiceClient) AssignKeyAccessServerToAttribute(ctx context.Context, in *AssignKeyAccessServerToAttributeRequest, opts ...grpc.CallOption) (*AssignKeyAccessServerToAttributeResponse, error) {
	return rpc.Invoke[AssignKeyAccessServerToAttributeResponse](ctx, c.cc, MethodAssignKeyAccessServerToAttribute, in, opts...)
}

func (c *AttributesServiceClient) RemoveKeyAccessServerFromAttribute(ctx context.Context, in *RemoveKeyAccessServerFromAttributeRequest, opts ...grpc.CallOption) (*RemoveKeyAccessServerFromAttributeResponse, error) {
	return rpc.Invoke[RemoveKeyAccessServerFromAttributeResponse](ctx, c.cc, MethodRemoveKeyAccessServerFromAttribute, in, opts...)
}

func (c *AttributesServiceClient) AssignKeyAccessServerToValue(ctx context.Context, in *AssignKeyAccessServerToValueRequest, opts ...grpc.CallOption) (*AssignKeyAccessServerToValueResponse, error) {
	return rpc.Invoke[AssignKeyAccessServerToValueResponse](ctx, c.cc, MethodAssignKeyAccessServerToValue, in, opts...)
}

func (c *AttributesServiceClient) RemoveKeyAccessServerFromValue(ctx context.Context, in *RemoveKeyAccessServerFromValueRequest, opts ...grpc.CallOption) (*RemoveKeyAccessServerFromValueResponse, error) {
	return rpc.Invoke[RemoveKeyAccessServerFromValueResponse](ctx, c.cc, MethodRemoveKeyAccessServerFromValue, in, opts...)
}
