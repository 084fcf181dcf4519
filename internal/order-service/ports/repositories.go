package ports

import (
	"context"
	"errors"
	"time"

	"github.com/jcmexdev/book-escrow/internal/order-service/domain"
)

// ErrDuplicateEntry is returned when a ledger entry for the same order and type already exists.
var ErrDuplicateEntry = errors.New("ledger entry already recorded")

// OrderRepository persists orders. Update is a compare-and-swap: the stored
// version must equal order.Version-1, otherwise domain.ErrConcurrentModification.
type OrderRepository interface {
	Create(ctx context.Context, order *domain.Order) error
	Get(ctx context.Context, id string) (*domain.Order, error)
	Update(ctx context.Context, order *domain.Order) error
	// ListByBuyer and ListBySeller return most recent orders first.
	ListByBuyer(ctx context.Context, buyerID string) ([]*domain.Order, error)
	ListBySeller(ctx context.Context, sellerID string) ([]*domain.Order, error)
	// ListByStatus returns up to limit orders in status, oldest first.
	ListByStatus(ctx context.Context, status domain.OrderStatus, limit int) ([]*domain.Order, error)
	// ListDueForSettlement returns up to limit delivered orders whose dispute
	// deadline is at or before now, earliest deadline first.
	ListDueForSettlement(ctx context.Context, now time.Time, limit int) ([]*domain.Order, error)
}

type LedgerRepository interface {
	Append(ctx context.Context, entry domain.LedgerEntry) error
	ListByOrder(ctx context.Context, orderID string) ([]domain.LedgerEntry, error)
	SumByUser(ctx context.Context, userID string, entryType domain.EntryType) (int64, error)
}
