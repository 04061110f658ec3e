package api

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

/*
 * Service descriptor for ordergate.evaluation.v1.EvaluationService.
 *
 * Requests and responses are google.protobuf.Struct documents, so the wire
 * contract is the JSON shape documented on each handler rather than a
 * generated message set. The descriptor below is what protoc-gen-go-grpc
 * would emit for:
 *
 *   service EvaluationService {
 *     rpc SelectCarrier(google.protobuf.Struct) returns (google.protobuf.Struct);
 *     rpc ValidateOrder(google.protobuf.Struct) returns (google.protobuf.Struct);
 *   }
 */

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "ordergate.evaluation.v1.EvaluationService"

// Full method names.
const (
	SelectCarrierMethod = "/" + ServiceName + "/SelectCarrier"
	ValidateOrderMethod = "/" + ServiceName + "/ValidateOrder"
)

// EvaluationServer is the server API for EvaluationService.
type EvaluationServer interface {
	SelectCarrier(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ValidateOrder(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// RegisterEvaluationServer registers srv on s.
func RegisterEvaluationServer(s grpc.ServiceRegistrar, srv EvaluationServer) {
	s.RegisterService(&EvaluationServiceDesc, srv)
}

// EvaluationServiceDesc is the grpc.ServiceDesc for EvaluationService.
var EvaluationServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*EvaluationServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "SelectCarrier", Handler: selectCarrierHandler},
		{MethodName: "ValidateOrder", Handler: validateOrderHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "ordergate/evaluation/v1/evaluation.proto",
}

func selectCarrierHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(EvaluationServer).SelectCarrier(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: SelectCarrierMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(EvaluationServer).SelectCarrier(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func validateOrderHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(EvaluationServer).ValidateOrder(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: ValidateOrderMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(EvaluationServer).ValidateOrder(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

// EvaluationClient calls EvaluationService.
type EvaluationClient struct {
	cc grpc.ClientConnInterface
}

// NewEvaluationClient creates a client over an existing connection.
func NewEvaluationClient(cc grpc.ClientConnInterface) *EvaluationClient {
	return &EvaluationClient{cc: cc}
}

// SelectCarrier calls EvaluationService.SelectCarrier.
func (c *EvaluationClient) SelectCarrier(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, SelectCarrierMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// ValidateOrder calls EvaluationService.ValidateOrder.
func (c *EvaluationClient) ValidateOrder(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, ValidateOrderMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
