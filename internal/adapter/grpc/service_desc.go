package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name
const ServiceName = "tradingbot.v1.TradingBotService"

// Full method names
const (
	RunTradingPassMethod      = "/" + ServiceName + "/RunTradingPass"
	GetProfitLossReportMethod = "/" + ServiceName + "/GetProfitLossReport"
	ListTradesMethod          = "/" + ServiceName + "/ListTrades"
)

// TradingBotServer is the server API for the TradingBotService.
// Requests are empty and responses are JSON-shaped Structs.
type TradingBotServer interface {
	RunTradingPass(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	GetProfitLossReport(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	ListTrades(context.Context, *emptypb.Empty) (*structpb.Struct, error)
}

// RegisterTradingBotServer registers srv on s
func RegisterTradingBotServer(s grpc.ServiceRegistrar, srv TradingBotServer) {
	s.RegisterService(&tradingBotServiceDesc, srv)
}

var tradingBotServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*TradingBotServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "RunTradingPass",
			Handler:    unaryHandler(RunTradingPassMethod, TradingBotServer.RunTradingPass),
		},
		{
			MethodName: "GetProfitLossReport",
			Handler:    unaryHandler(GetProfitLossReportMethod, TradingBotServer.GetProfitLossReport),
		},
		{
			MethodName: "ListTrades",
			Handler:    unaryHandler(ListTradesMethod, TradingBotServer.ListTrades),
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "tradingbot/v1/tradingbot.proto",
}

type unaryMethod func(TradingBotServer, context.Context, *emptypb.Empty) (*structpb.Struct, error)

// unaryHandler adapts a server method to a grpc.MethodDesc handler, running
// it through the configured interceptor chain
func unaryHandler(fullMethod string, method unaryMethod) func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	return func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
		in := new(emptypb.Empty)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return method(srv.(TradingBotServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: fullMethod,
		}
		handler := func(ctx context.Context, req interface{}) (interface{}, error) {
			return method(srv.(TradingBotServer), ctx, req.(*emptypb.Empty))
		}
		return interceptor(ctx, in, info, handler)
	}
}
