package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// 服務與方法名稱
const (
	ServiceName = "bank.v1.LedgerService"

	MethodAuthenticate = "/" + ServiceName + "/Authenticate"
	MethodTransfer     = "/" + ServiceName + "/Transfer"
	MethodGetBalance   = "/" + ServiceName + "/GetBalance"
)

// LedgerServer 以 google.protobuf.Struct 作為請求與回應的帳務服務
type LedgerServer interface {
	Authenticate(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	Transfer(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	GetBalance(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

// RegisterLedgerServer 將 srv 註冊到 gRPC server
func RegisterLedgerServer(s grpc.ServiceRegistrar, srv LedgerServer) {
	s.RegisterService(&ledgerServiceDesc, srv)
}

var ledgerServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*LedgerServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Authenticate", Handler: unaryHandler(MethodAuthenticate, LedgerServer.Authenticate)},
		{MethodName: "Transfer", Handler: unaryHandler(MethodTransfer, LedgerServer.Transfer)},
		{MethodName: "GetBalance", Handler: unaryHandler(MethodGetBalance, LedgerServer.GetBalance)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "bank/v1/ledger.proto",
}

type unaryMethod func(srv LedgerServer, ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)

// unaryHandler 等同 protoc-gen-go-grpc 產生的 _Handler
func unaryHandler(fullMethod string, call unaryMethod) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(LedgerServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: fullMethod,
		}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(LedgerServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}
