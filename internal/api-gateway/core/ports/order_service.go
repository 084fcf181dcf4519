package ports

import (
	"context"

	"github.com/jcmexdev/book-escrow/internal/coordinator/sagalog"
	"github.com/jcmexdev/book-escrow/internal/order-service/app"
	"github.com/jcmexdev/book-escrow/internal/order-service/domain"
)

// OrderService is the order engine as seen by the gateway.
type OrderService interface {
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

type CheckoutService interface {
	// Checkout returns the saga id even when the saga failed.
	Checkout(ctx context.Context, actor app.Actor, bookID string) (string, *domain.Order, error)
	CheckoutStatus(ctx context.Context, actor app.Actor, sagaID string) (*sagalog.SagaLog, error)
}

type CatalogService interface {
	GetBook(ctx context.Context, bookID string) (*domain.Book, error)
	AddBook(ctx context.Context, actor app.Actor, b domain.Book) (*domain.Book, error)
}

// Marketplace is everything the HTTP API serves.
type Marketplace interface {
	OrderService
	CheckoutService
	CatalogService
}
