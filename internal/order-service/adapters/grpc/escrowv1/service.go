// Package escrowv1 describes the bookmarket.escrow.v1.OrderEngine gRPC
// service. Requests and responses are google.protobuf.Struct messages, so the
// default proto codec carries them without generated types.
package escrowv1

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

const ServiceName = "bookmarket.escrow.v1.OrderEngine"

const (
	MethodCreateOrder     = "CreateOrder"
	MethodMarkPaid        = "MarkPaid"
	MethodMarkShipped     = "MarkShipped"
	MethodConfirmDelivery = "ConfirmDelivery"
	MethodForceDelivered  = "ForceDelivered"
	MethodRaiseDispute    = "RaiseDispute"
	MethodResolveDispute  = "ResolveDispute"
	MethodCancelOrder     = "CancelOrder"
	MethodGetOrder        = "GetOrder"
	MethodListPurchases   = "ListPurchases"
	MethodListSales       = "ListSales"
	MethodGetAccount      = "GetAccount"
	MethodCheckout        = "Checkout"
	MethodGetCheckout     = "GetCheckout"
	MethodGetBook         = "GetBook"
	MethodAddBook         = "AddBook"
)

type OrderEngineServer interface {
	CreateOrder(context.Context, *structpb.Struct) (*structpb.Struct, error)
	MarkPaid(context.Context, *structpb.Struct) (*structpb.Struct, error)
	MarkShipped(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ConfirmDelivery(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ForceDelivered(context.Context, *structpb.Struct) (*structpb.Struct, error)
	RaiseDispute(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ResolveDispute(context.Context, *structpb.Struct) (*structpb.Struct, error)
	CancelOrder(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetOrder(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListPurchases(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListSales(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetAccount(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Checkout(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetCheckout(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetBook(context.Context, *structpb.Struct) (*structpb.Struct, error)
	AddBook(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type unaryMethod func(OrderEngineServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func methodDesc(name string, call unaryMethod) grpc.MethodDesc {
	fullMethod := "/" + ServiceName + "/" + name
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			s := srv.(OrderEngineServer)
			if interceptor == nil {
				return call(s, ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(s, ctx, req.(*structpb.Struct))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*OrderEngineServer)(nil),
	Methods: []grpc.MethodDesc{
		methodDesc(MethodCreateOrder, OrderEngineServer.CreateOrder),
		methodDesc(MethodMarkPaid, OrderEngineServer.MarkPaid),
		methodDesc(MethodMarkShipped, OrderEngineServer.MarkShipped),
		methodDesc(MethodConfirmDelivery, OrderEngineServer.ConfirmDelivery),
		methodDesc(MethodForceDelivered, OrderEngineServer.ForceDelivered),
		methodDesc(MethodRaiseDispute, OrderEngineServer.RaiseDispute),
		methodDesc(MethodResolveDispute, OrderEngineServer.ResolveDispute),
		methodDesc(MethodCancelOrder, OrderEngineServer.CancelOrder),
		methodDesc(MethodGetOrder, OrderEngineServer.GetOrder),
		methodDesc(MethodListPurchases, OrderEngineServer.ListPurchases),
		methodDesc(MethodListSales, OrderEngineServer.ListSales),
		methodDesc(MethodGetAccount, OrderEngineServer.GetAccount),
		methodDesc(MethodCheckout, OrderEngineServer.Checkout),
		methodDesc(MethodGetCheckout, OrderEngineServer.GetCheckout),
		methodDesc(MethodGetBook, OrderEngineServer.GetBook),
		methodDesc(MethodAddBook, OrderEngineServer.AddBook),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "bookmarket/escrow/v1/order_engine",
}

func RegisterOrderEngineServer(s grpc.ServiceRegistrar, srv OrderEngineServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// OrderEngineClient invokes OrderEngine methods by name.
type OrderEngineClient struct {
	cc grpc.ClientConnInterface
}

func NewOrderEngineClient(cc grpc.ClientConnInterface) *OrderEngineClient {
	return &OrderEngineClient{cc: cc}
}

func (c *OrderEngineClient) Call(ctx context.Context, method string, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/"+method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
