package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jcmexdev/book-escrow/internal/order-service/domain"
	"github.com/jcmexdev/book-escrow/internal/order-service/ports"
)

type LedgerRepository struct {
	db *sql.DB
}

func NewLedgerRepository(db *sql.DB) *LedgerRepository {
	return &LedgerRepository{db: db}
}

// Append inserts entry, or returns ports.ErrDuplicateEntry when the order
// already has an entry of the same type.
func (r *LedgerRepository) Append(ctx context.Context, e domain.LedgerEntry) error {
	const q = `
		INSERT INTO escrow_ledger (entry_id, order_id, user_id, entry_type, amount, occurred_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (order_id, entry_type) DO NOTHING`

	res, err := r.db.ExecContext(ctx, q,
		e.EntryID, e.OrderID, e.UserID, string(e.Type), e.Amount, formatTime(e.OccurredAt))
	if err != nil {
		return fmt.Errorf("sqlite: append %s for order %q: %w", e.Type, e.OrderID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: append %s for order %q: %w", e.Type, e.OrderID, err)
	}
	if n == 0 {
		return ports.ErrDuplicateEntry
	}
	return nil
}

func (r *LedgerRepository) ListByOrder(ctx context.Context, orderID string) ([]domain.LedgerEntry, error) {
	const q = `
		SELECT entry_id, order_id, user_id, entry_type, amount, occurred_at
		FROM   escrow_ledger
		WHERE  order_id = ?
		ORDER  BY occurred_at, rowid`

	rows, err := r.db.QueryContext(ctx, q, orderID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list ledger for %q: %w", orderID, err)
	}
	defer rows.Close()

	var out []domain.LedgerEntry
	for rows.Next() {
		var (
			e       domain.LedgerEntry
			typ, at string
		)
		if err := rows.Scan(&e.EntryID, &e.OrderID, &e.UserID, &typ, &e.Amount, &at); err != nil {
			return nil, fmt.Errorf("sqlite: scan ledger entry: %w", err)
		}
		e.Type = domain.EntryType(typ)
		if e.OccurredAt, err = parseTime(at); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *LedgerRepository) SumByUser(ctx context.Context, userID string, entryType domain.EntryType) (int64, error) {
	const q = `SELECT COALESCE(SUM(amount), 0) FROM escrow_ledger WHERE user_id = ? AND entry_type = ?`

	var sum int64
	if err := r.db.QueryRowContext(ctx, q, userID, string(entryType)).Scan(&sum); err != nil {
		return 0, fmt.Errorf("sqlite: sum ledger for %q: %w", userID, err)
	}
	return sum, nil
}
