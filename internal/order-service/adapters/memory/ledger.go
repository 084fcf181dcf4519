package memory

import (
	"context"
	"sync"

	"github.com/jcmexdev/book-escrow/internal/order-service/domain"
	"github.com/jcmexdev/book-escrow/internal/order-service/ports"
)

type ledgerKey struct {
	orderID string
	typ     domain.EntryType
}

// LedgerRepository is an append-only escrow ledger.
type LedgerRepository struct {
	mu      sync.RWMutex
	entries []domain.LedgerEntry
	seen    map[ledgerKey]struct{}
}

func NewLedgerRepository() *LedgerRepository {
	return &LedgerRepository{seen: make(map[ledgerKey]struct{})}
}

func (r *LedgerRepository) Append(_ context.Context, entry domain.LedgerEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := ledgerKey{orderID: entry.OrderID, typ: entry.Type}
	if _, dup := r.seen[key]; dup {
		return ports.ErrDuplicateEntry
	}
	r.seen[key] = struct{}{}
	r.entries = append(r.entries, entry)
	return nil
}

func (r *LedgerRepository) ListByOrder(_ context.Context, orderID string) ([]domain.LedgerEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []domain.LedgerEntry
	for _, e := range r.entries {
		if e.OrderID == orderID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *LedgerRepository) SumByUser(_ context.Context, userID string, entryType domain.EntryType) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var sum int64
	for _, e := range r.entries {
		if e.UserID == userID && e.Type == entryType {
			sum += e.Amount
		}
	}
	return sum, nil
}
