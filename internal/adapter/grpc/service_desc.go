package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully-qualified gRPC service name
const ServiceName = "dealflow.v1.DealflowService"

// DealflowServiceServer is the server API for DealflowService.
// Every method takes and returns a google.protobuf.Struct.
type DealflowServiceServer interface {
	CreateDeal(context.Context, *structpb.Struct) (*structpb.Struct, error)
	TransitionStage(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SetDealStatus(context.Context, *structpb.Struct) (*structpb.Struct, error)
	UpdateDealFinancials(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SubmitVote(context.Context, *structpb.Struct) (*structpb.Struct, error)
	DeleteVote(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetDealSummary(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetDealReport(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetPortfolio(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetQuarterPacing(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetYearPacing(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetMonthlyActivity(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

var _ DealflowServiceServer = (*Server)(nil)

type unaryMethod func(DealflowServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

// DealflowServiceDesc describes DealflowService for grpc.ServiceRegistrar
var DealflowServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*DealflowServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		method("CreateDeal", DealflowServiceServer.CreateDeal),
		method("TransitionStage", DealflowServiceServer.TransitionStage),
		method("SetDealStatus", DealflowServiceServer.SetDealStatus),
		method("UpdateDealFinancials", DealflowServiceServer.UpdateDealFinancials),
		method("SubmitVote", DealflowServiceServer.SubmitVote),
		method("DeleteVote", DealflowServiceServer.DeleteVote),
		method("GetDealSummary", DealflowServiceServer.GetDealSummary),
		method("GetDealReport", DealflowServiceServer.GetDealReport),
		method("GetPortfolio", DealflowServiceServer.GetPortfolio),
		method("GetQuarterPacing", DealflowServiceServer.GetQuarterPacing),
		method("GetYearPacing", DealflowServiceServer.GetYearPacing),
		method("GetMonthlyActivity", DealflowServiceServer.GetMonthlyActivity),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "dealflow/v1/dealflow.proto",
}

// RegisterDealflowServiceServer registers srv on s
func RegisterDealflowServiceServer(s grpc.ServiceRegistrar, srv DealflowServiceServer) {
	s.RegisterService(&DealflowServiceDesc, srv)
}

// FullMethod returns the "/service/method" path used by clients and interceptors
func FullMethod(name string) string {
	return "/" + ServiceName + "/" + name
}

func method(name string, call unaryMethod) grpc.MethodDesc {
	fullMethod := FullMethod(name)
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(DealflowServiceServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{
				Server:     srv,
				FullMethod: fullMethod,
			}
			handler := func(ctx context.Context, req interface{}) (interface{}, error) {
				return call(srv.(DealflowServiceServer), ctx, req.(*structpb.Struct))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}
