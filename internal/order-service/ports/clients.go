package ports

import (
	"context"

	"github.com/jcmexdev/book-escrow/internal/order-service/domain"
)

type BookCatalog interface {
	GetBook(ctx context.Context, id string) (*domain.Book, error)
}

type UserDirectory interface {
	GetUser(ctx context.Context, id string) (*domain.User, error)
}

type CaptureRequest struct {
	OrderID string
	BuyerID string
	Amount  int64
	Method  domain.PaymentMethod
}

type CaptureResult struct {
	Approved  bool
	Reference string
	Reason    string
}

type RefundRequest struct {
	OrderID   string
	Reference string
	Amount    int64
}

// PaymentGateway captures and refunds buyer funds. Both calls must be
// idempotent per order id.
type PaymentGateway interface {
	Capture(ctx context.Context, req CaptureRequest) (CaptureResult, error)
	Refund(ctx context.Context, req RefundRequest) error
}
