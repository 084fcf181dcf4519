// Package memory holds mutex-guarded map implementations of the order-service
// repositories, used by tests and by the service when no database is configured.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/jcmexdev/book-escrow/internal/order-service/domain"
)

type OrderRepository struct {
	mu     sync.RWMutex
	orders map[string]*domain.Order
}

func NewOrderRepository() *OrderRepository {
	return &OrderRepository{orders: make(map[string]*domain.Order)}
}

func (r *OrderRepository) Create(_ context.Context, order *domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.orders[order.ID]; exists {
		return fmt.Errorf("order %s already exists: %w", order.ID, domain.ErrInvalidInput)
	}
	r.orders[order.ID] = order.Clone()
	return nil
}

func (r *OrderRepository) Get(_ context.Context, id string) (*domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	o, ok := r.orders[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return o.Clone(), nil
}

func (r *OrderRepository) Update(_ context.Context, order *domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.orders[order.ID]
	if !ok {
		return domain.ErrNotFound
	}
	if stored.Version != order.Version-1 {
		return fmt.Errorf("order %s at version %d: %w", order.ID, stored.Version, domain.ErrConcurrentModification)
	}
	r.orders[order.ID] = order.Clone()
	return nil
}

func (r *OrderRepository) ListByBuyer(_ context.Context, buyerID string) ([]*domain.Order, error) {
	return r.filter(func(o *domain.Order) bool { return o.BuyerID == buyerID }, newestFirst, 0), nil
}

func (r *OrderRepository) ListBySeller(_ context.Context, sellerID string) ([]*domain.Order, error) {
	return r.filter(func(o *domain.Order) bool { return o.SellerID == sellerID }, newestFirst, 0), nil
}

func (r *OrderRepository) ListByStatus(_ context.Context, status domain.OrderStatus, limit int) ([]*domain.Order, error) {
	return r.filter(func(o *domain.Order) bool { return o.Status == status }, oldestFirst, limit), nil
}

func (r *OrderRepository) ListDueForSettlement(_ context.Context, now time.Time, limit int) ([]*domain.Order, error) {
	return r.filter(func(o *domain.Order) bool { return o.SettlementDue(now) }, earliestDeadline, limit), nil
}

func newestFirst(a, b *domain.Order) bool {
	if a.CreatedAt.Equal(b.CreatedAt) {
		return a.ID > b.ID
	}
	return a.CreatedAt.After(b.CreatedAt)
}

func oldestFirst(a, b *domain.Order) bool {
	if a.CreatedAt.Equal(b.CreatedAt) {
		return a.ID < b.ID
	}
	return a.CreatedAt.Before(b.CreatedAt)
}

func earliestDeadline(a, b *domain.Order) bool {
	if a.DisputeDeadline.Equal(*b.DisputeDeadline) {
		return a.ID < b.ID
	}
	return a.DisputeDeadline.Before(*b.DisputeDeadline)
}

func (r *OrderRepository) filter(keep func(*domain.Order) bool, less func(a, b *domain.Order) bool, limit int) []*domain.Order {
	r.mu.RLock()
	out := make([]*domain.Order, 0)
	for _, o := range r.orders {
		if keep(o) {
			out = append(out, o.Clone())
		}
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return less(out[i], out[j]) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
