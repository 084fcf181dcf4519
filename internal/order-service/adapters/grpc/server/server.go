// Package server exposes the order engine, the book catalog and the checkout
// saga as the OrderEngine gRPC service.
package server

import (
	"context"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/jcmexdev/book-escrow/internal/coordinator/sagalog"
	"github.com/jcmexdev/book-escrow/internal/order-service/adapters/grpc/escrowv1"
	"github.com/jcmexdev/book-escrow/internal/order-service/adapters/grpc/mappers"
	"github.com/jcmexdev/book-escrow/internal/order-service/app"
	"github.com/jcmexdev/book-escrow/internal/order-service/domain"
	"github.com/jcmexdev/book-escrow/internal/pkg/interceptors"
	"github.com/jcmexdev/book-escrow/internal/pkg/interceptors/constants"
)

type Engine interface {
	CreateOrder(ctx context.Context, actor app.Actor, bookID string) (*domain.Order, error)
	MarkPaid(ctx context.Context, actor app.Actor, orderID string) (*domain.Order, error)
	MarkShipped(ctx context.Context, actor app.Actor, orderID, trackingNumber string) (*domain.Order, error)
	ConfirmDelivery(ctx context.Context, actor app.Actor, orderID string) (*domain.Order, error)
	ForceDelivered(ctx context.Context, actor app.Actor, orderID string) (*domain.Order, error)
	RaiseDispute(ctx context.Context, actor app.Actor, orderID string) (*domain.Order, error)
	ResolveDispute(ctx context.Context, actor app.Actor, orderID string, outcome domain.Resolution) (*domain.Order, error)
	CancelOrder(ctx context.Context, actor app.Actor, orderID, reason string) (*domain.Order, error)
	GetOrder(ctx context.Context, actor app.Actor, orderID string) (*domain.Order, error)
	ListOrdersForBuyer(ctx context.Context, actor app.Actor, userID string) ([]*domain.Order, error)
	ListOrdersForSeller(ctx context.Context, actor app.Actor, userID string) ([]*domain.Order, error)
	Account(ctx context.Context, actor app.Actor, userID string) (*domain.User, error)
}

type Checkout interface {
	Run(ctx context.Context, buyer app.Actor, bookID string) (string, *domain.Order, error)
	Status(ctx context.Context, sagaID string) (*sagalog.SagaLog, error)
}

type Catalog interface {
	GetBook(ctx context.Context, id string) (*domain.Book, error)
	AddBook(ctx context.Context, sellerID string, b domain.Book) (*domain.Book, error)
}

type Server struct {
	engine   Engine
	checkout Checkout
	catalog  Catalog
}

var _ escrowv1.OrderEngineServer = (*Server)(nil)

func New(engine Engine, checkout Checkout, catalog Catalog) *Server {
	return &Server{engine: engine, checkout: checkout, catalog: catalog}
}

// NewGRPCServer builds a grpc.Server with tracing, correlation logging, the
// OrderEngine service and the standard health service.
func NewGRPCServer(srv *Server, opts ...grpc.ServerOption) (*grpc.Server, *health.Server) {
	opts = append([]grpc.ServerOption{
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.UnaryInterceptor(interceptors.TraceServerInterceptor()),
	}, opts...)
	gs := grpc.NewServer(opts...)
	escrowv1.RegisterOrderEngineServer(gs, srv)

	hs := health.NewServer()
	healthpb.RegisterHealthServer(gs, hs)
	hs.SetServingStatus(escrowv1.ServiceName, healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	return gs, hs
}

func actorFrom(ctx context.Context) (app.Actor, error) {
	id := interceptors.GetMetadataValue(ctx, constants.HeaderXActorID)
	if id == "" {
		return app.Actor{}, status.Error(codes.Unauthenticated, "missing "+constants.HeaderXActorID)
	}
	switch role := interceptors.GetMetadataValue(ctx, constants.HeaderXActorRole); role {
	case "", string(app.RoleUser):
		return app.Actor{UserID: id, Role: app.RoleUser}, nil
	case string(app.RoleAdmin):
		return app.Actor{UserID: id, Role: app.RoleAdmin}, nil
	default:
		return app.Actor{}, status.Errorf(codes.PermissionDenied, "role %q cannot call the order engine", role)
	}
}

func required(in *structpb.Struct, key string) (string, error) {
	v := mappers.Field(in, key)
	if v == "" {
		return "", status.Errorf(codes.InvalidArgument, "%s is required", key)
	}
	return v, nil
}

type orderCall func(ctx context.Context, actor app.Actor, orderID string, in *structpb.Struct) (*domain.Order, error)

// orderOp handles every method shaped as "act on order_id, return the order".
func (s *Server) orderOp(ctx context.Context, in *structpb.Struct, call orderCall) (*structpb.Struct, error) {
	actor, err := actorFrom(ctx)
	if err != nil {
		return nil, err
	}
	orderID, err := required(in, "order_id")
	if err != nil {
		return nil, err
	}
	o, err := call(ctx, actor, orderID, in)
	if err != nil {
		return nil, escrowv1.ToStatus(err)
	}
	return encode(mappers.OrderToProto(o))
}

func encode(s *structpb.Struct, err error) (*structpb.Struct, error) {
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode response: %v", err)
	}
	return s, nil
}

func (s *Server) CreateOrder(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	actor, err := actorFrom(ctx)
	if err != nil {
		return nil, err
	}
	bookID, err := required(in, "book_id")
	if err != nil {
		return nil, err
	}
	o, err := s.engine.CreateOrder(ctx, actor, bookID)
	if err != nil {
		return nil, escrowv1.ToStatus(err)
	}
	return encode(mappers.OrderToProto(o))
}

func (s *Server) MarkPaid(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	return s.orderOp(ctx, in, func(ctx context.Context, a app.Actor, id string, _ *structpb.Struct) (*domain.Order, error) {
		return s.engine.MarkPaid(ctx, a, id)
	})
}

func (s *Server) MarkShipped(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	return s.orderOp(ctx, in, func(ctx context.Context, a app.Actor, id string, in *structpb.Struct) (*domain.Order, error) {
		return s.engine.MarkShipped(ctx, a, id, mappers.Field(in, "tracking_number"))
	})
}

func (s *Server) ConfirmDelivery(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	return s.orderOp(ctx, in, func(ctx context.Context, a app.Actor, id string, _ *structpb.Struct) (*domain.Order, error) {
		return s.engine.ConfirmDelivery(ctx, a, id)
	})
}

func (s *Server) ForceDelivered(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	return s.orderOp(ctx, in, func(ctx context.Context, a app.Actor, id string, _ *structpb.Struct) (*domain.Order, error) {
		return s.engine.ForceDelivered(ctx, a, id)
	})
}

func (s *Server) RaiseDispute(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	return s.orderOp(ctx, in, func(ctx context.Context, a app.Actor, id string, _ *structpb.Struct) (*domain.Order, error) {
		return s.engine.RaiseDispute(ctx, a, id)
	})
}

func (s *Server) ResolveDispute(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	return s.orderOp(ctx, in, func(ctx context.Context, a app.Actor, id string, in *structpb.Struct) (*domain.Order, error) {
		return s.engine.ResolveDispute(ctx, a, id, domain.Resolution(mappers.Field(in, "outcome")))
	})
}

func (s *Server) CancelOrder(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	return s.orderOp(ctx, in, func(ctx context.Context, a app.Actor, id string, in *structpb.Struct) (*domain.Order, error) {
		return s.engine.CancelOrder(ctx, a, id, mappers.Field(in, "reason"))
	})
}

func (s *Server) GetOrder(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	return s.orderOp(ctx, in, func(ctx context.Context, a app.Actor, id string, _ *structpb.Struct) (*domain.Order, error) {
		return s.engine.GetOrder(ctx, a, id)
	})
}

func (s *Server) ListPurchases(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	return s.list(ctx, in, s.engine.ListOrdersForBuyer)
}

func (s *Server) ListSales(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	return s.list(ctx, in, s.engine.ListOrdersForSeller)
}

// list defaults user_id to the calling actor.
func (s *Server) list(ctx context.Context, in *structpb.Struct, fetch func(context.Context, app.Actor, string) ([]*domain.Order, error)) (*structpb.Struct, error) {
	actor, err := actorFrom(ctx)
	if err != nil {
		return nil, err
	}
	userID := mappers.Field(in, "user_id")
	if userID == "" {
		userID = actor.UserID
	}
	orders, err := fetch(ctx, actor, userID)
	if err != nil {
		return nil, escrowv1.ToStatus(err)
	}
	return encode(mappers.OrdersToProto(orders))
}

func (s *Server) GetAccount(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	actor, err := actorFrom(ctx)
	if err != nil {
		return nil, err
	}
	userID := mappers.Field(in, "user_id")
	if userID == "" {
		userID = actor.UserID
	}
	u, err := s.engine.Account(ctx, actor, userID)
	if err != nil {
		return nil, escrowv1.ToStatus(err)
	}
	return encode(mappers.UserToProto(u))
}

func (s *Server) Checkout(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	actor, err := actorFrom(ctx)
	if err != nil {
		return nil, err
	}
	bookID, err := required(in, "book_id")
	if err != nil {
		return nil, err
	}
	sagaID, o, err := s.checkout.Run(ctx, actor, bookID)
	if err != nil {
		st := escrowv1.ToStatus(err)
		return nil, withSagaID(st, sagaID)
	}
	order, err := mappers.OrderToProto(o)
	if err != nil {
		return encode(nil, err)
	}
	return encode(structpb.NewStruct(map[string]any{
		"saga_id": sagaID,
		"order":   order.AsMap(),
	}))
}

// withSagaID prefixes the status message with the saga id so a failed
// checkout can still be looked up.
func withSagaID(err error, sagaID string) error {
	st, _ := status.FromError(err)
	p := st.Proto()
	p.Message = "saga " + sagaID + ": " + p.Message
	return status.FromProto(p).Err()
}

func (s *Server) GetCheckout(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	if _, err := actorFrom(ctx); err != nil {
		return nil, err
	}
	sagaID, err := required(in, "saga_id")
	if err != nil {
		return nil, err
	}
	l, err := s.checkout.Status(ctx, sagaID)
	if err != nil {
		return nil, escrowv1.ToStatus(err)
	}
	return encode(mappers.SagaLogToProto(l))
}

func (s *Server) GetBook(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	bookID, err := required(in, "book_id")
	if err != nil {
		return nil, err
	}
	b, err := s.catalog.GetBook(ctx, bookID)
	if err != nil {
		return nil, escrowv1.ToStatus(err)
	}
	return encode(mappers.BookToProto(b))
}

func (s *Server) AddBook(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	actor, err := actorFrom(ctx)
	if err != nil {
		return nil, err
	}
	b, err := mappers.BookFromProto(in)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	created, err := s.catalog.AddBook(ctx, actor.UserID, *b)
	if err != nil {
		return nil, escrowv1.ToStatus(err)
	}
	return encode(mappers.BookToProto(created))
}
