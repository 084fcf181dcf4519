package service

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/jcmexdev/book-escrow/internal/api-gateway/core/ports"
	"github.com/jcmexdev/book-escrow/internal/coordinator/sagalog"
	"github.com/jcmexdev/book-escrow/internal/order-service/adapters/grpc/escrowv1"
	"github.com/jcmexdev/book-escrow/internal/order-service/adapters/grpc/mappers"
	"github.com/jcmexdev/book-escrow/internal/order-service/app"
	"github.com/jcmexdev/book-escrow/internal/order-service/domain"
	"github.com/jcmexdev/book-escrow/internal/pkg/interceptors/constants"
)

var _ ports.Marketplace = (*GRPCMarketplace)(nil)

// GRPCMarketplace talks to the order-service over gRPC. The actor travels as
// x-actor-id / x-actor-role metadata; engine errors come back as the same
// domain sentinels.
type GRPCMarketplace struct {
	client *escrowv1.OrderEngineClient
}

func NewGRPCMarketplace(cc grpc.ClientConnInterface) *GRPCMarketplace {
	return &GRPCMarketplace{client: escrowv1.NewOrderEngineClient(cc)}
}

func (s *GRPCMarketplace) call(ctx context.Context, actor *app.Actor, method string, fields map[string]any) (*structpb.Struct, error) {
	in, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, fmt.Errorf("grpc %s: encode request: %w", method, err)
	}
	if actor != nil {
		ctx = metadata.AppendToOutgoingContext(ctx,
			constants.HeaderXActorID, actor.UserID,
			constants.HeaderXActorRole, string(actor.Role),
		)
	}
	out, err := s.client.Call(ctx, method, in)
	if err != nil {
		return nil, fmt.Errorf("grpc %s: %w", method, escrowv1.FromStatus(err))
	}
	return out, nil
}

func (s *GRPCMarketplace) order(ctx context.Context, actor app.Actor, method string, fields map[string]any) (*domain.Order, error) {
	out, err := s.call(ctx, &actor, method, fields)
	if err != nil {
		return nil, err
	}
	return mappers.OrderFromProto(out)
}

func (s *GRPCMarketplace) CreateOrder(ctx context.Context, actor app.Actor, bookID string) (*domain.Order, error) {
	return s.order(ctx, actor, escrowv1.MethodCreateOrder, map[string]any{"book_id": bookID})
}

func (s *GRPCMarketplace) MarkPaid(ctx context.Context, actor app.Actor, orderID string) (*domain.Order, error) {
	return s.order(ctx, actor, escrowv1.MethodMarkPaid, map[string]any{"order_id": orderID})
}

func (s *GRPCMarketplace) MarkShipped(ctx context.Context, actor app.Actor, orderID, trackingNumber string) (*domain.Order, error) {
	return s.order(ctx, actor, escrowv1.MethodMarkShipped, map[string]any{"order_id": orderID, "tracking_number": trackingNumber})
}

func (s *GRPCMarketplace) ConfirmDelivery(ctx context.Context, actor app.Actor, orderID string) (*domain.Order, error) {
	return s.order(ctx, actor, escrowv1.MethodConfirmDelivery, map[string]any{"order_id": orderID})
}

func (s *GRPCMarketplace) ForceDelivered(ctx context.Context, actor app.Actor, orderID string) (*domain.Order, error) {
	return s.order(ctx, actor, escrowv1.MethodForceDelivered, map[string]any{"order_id": orderID})
}

func (s *GRPCMarketplace) RaiseDispute(ctx context.Context, actor app.Actor, orderID string) (*domain.Order, error) {
	return s.order(ctx, actor, escrowv1.MethodRaiseDispute, map[string]any{"order_id": orderID})
}

func (s *GRPCMarketplace) ResolveDispute(ctx context.Context, actor app.Actor, orderID string, outcome domain.Resolution) (*domain.Order, error) {
	return s.order(ctx, actor, escrowv1.MethodResolveDispute, map[string]any{"order_id": orderID, "outcome": string(outcome)})
}

func (s *GRPCMarketplace) CancelOrder(ctx context.Context, actor app.Actor, orderID, reason string) (*domain.Order, error) {
	return s.order(ctx, actor, escrowv1.MethodCancelOrder, map[string]any{"order_id": orderID, "reason": reason})
}

func (s *GRPCMarketplace) GetOrder(ctx context.Context, actor app.Actor, orderID string) (*domain.Order, error) {
	return s.order(ctx, actor, escrowv1.MethodGetOrder, map[string]any{"order_id": orderID})
}

func (s *GRPCMarketplace) ListOrdersForBuyer(ctx context.Context, actor app.Actor, userID string) ([]*domain.Order, error) {
	out, err := s.call(ctx, &actor, escrowv1.MethodListPurchases, map[string]any{"user_id": userID})
	if err != nil {
		return nil, err
	}
	return mappers.OrdersFromProto(out)
}

func (s *GRPCMarketplace) ListOrdersForSeller(ctx context.Context, actor app.Actor, userID string) ([]*domain.Order, error) {
	out, err := s.call(ctx, &actor, escrowv1.MethodListSales, map[string]any{"user_id": userID})
	if err != nil {
		return nil, err
	}
	return mappers.OrdersFromProto(out)
}

func (s *GRPCMarketplace) Account(ctx context.Context, actor app.Actor, userID string) (*domain.User, error) {
	out, err := s.call(ctx, &actor, escrowv1.MethodGetAccount, map[string]any{"user_id": userID})
	if err != nil {
		return nil, err
	}
	return mappers.UserFromProto(out)
}

func (s *GRPCMarketplace) Checkout(ctx context.Context, actor app.Actor, bookID string) (string, *domain.Order, error) {
	out, err := s.call(ctx, &actor, escrowv1.MethodCheckout, map[string]any{"book_id": bookID})
	if err != nil {
		return sagaIDFromError(err), nil, err
	}
	o, err := mappers.OrderFromProto(out.GetFields()["order"].GetStructValue())
	if err != nil {
		return "", nil, err
	}
	return mappers.Field(out, "saga_id"), o, nil
}

// sagaIDFromError recovers the id the server prefixes as "saga <id>: ".
func sagaIDFromError(err error) string {
	msg := err.Error()
	i := strings.Index(msg, "saga ")
	if i < 0 {
		return ""
	}
	rest := msg[i+len("saga "):]
	if j := strings.Index(rest, ":"); j > 0 {
		return rest[:j]
	}
	return ""
}

func (s *GRPCMarketplace) CheckoutStatus(ctx context.Context, actor app.Actor, sagaID string) (*sagalog.SagaLog, error) {
	out, err := s.call(ctx, &actor, escrowv1.MethodGetCheckout, map[string]any{"saga_id": sagaID})
	if err != nil {
		return nil, err
	}
	return mappers.SagaLogFromProto(out)
}

func (s *GRPCMarketplace) GetBook(ctx context.Context, bookID string) (*domain.Book, error) {
	out, err := s.call(ctx, nil, escrowv1.MethodGetBook, map[string]any{"book_id": bookID})
	if err != nil {
		return nil, err
	}
	return mappers.BookFromProto(out)
}

func (s *GRPCMarketplace) AddBook(ctx context.Context, actor app.Actor, b domain.Book) (*domain.Book, error) {
	in, err := mappers.BookToProto(&b)
	if err != nil {
		return nil, err
	}
	out, err := s.call(ctx, &actor, escrowv1.MethodAddBook, in.AsMap())
	if err != nil {
		return nil, err
	}
	return mappers.BookFromProto(out)
}
