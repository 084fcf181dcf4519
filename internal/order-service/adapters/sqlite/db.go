// Package sqlite persists orders and the escrow ledger in a single SQLite
// database using the pure-Go modernc driver.
package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS orders (
    id                TEXT    PRIMARY KEY,
    book_id           TEXT    NOT NULL,
    buyer_id          TEXT    NOT NULL,
    seller_id         TEXT    NOT NULL,
    payment_method    TEXT    NOT NULL,
    donation          INTEGER NOT NULL DEFAULT 0,
    price             INTEGER NOT NULL,
    total_amount      INTEGER NOT NULL,
    shipping_fee      INTEGER NOT NULL,
    platform_fee      INTEGER NOT NULL,
    donation_amount   INTEGER NOT NULL DEFAULT 0,
    status            TEXT    NOT NULL,
    tracking_number   TEXT    NOT NULL DEFAULT '',
    payment_reference TEXT    NOT NULL DEFAULT '',
    cancel_reason     TEXT    NOT NULL DEFAULT '',
    resolution        TEXT    NOT NULL DEFAULT '',
    created_at        TEXT    NOT NULL,
    updated_at        TEXT    NOT NULL,
    paid_at           TEXT,
    delivered_at      TEXT,
    dispute_deadline  TEXT,
    completed_at      TEXT,
    version           INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_orders_buyer  ON orders(buyer_id, created_at);
CREATE INDEX IF NOT EXISTS idx_orders_seller ON orders(seller_id, created_at);
CREATE INDEX IF NOT EXISTS idx_orders_status ON orders(status, created_at);
CREATE INDEX IF NOT EXISTS idx_orders_settlement ON orders(status, dispute_deadline);

CREATE TABLE IF NOT EXISTS escrow_ledger (
    entry_id    TEXT    PRIMARY KEY,
    order_id    TEXT    NOT NULL,
    user_id     TEXT    NOT NULL,
    entry_type  TEXT    NOT NULL,
    amount      INTEGER NOT NULL,
    occurred_at TEXT    NOT NULL,
    UNIQUE (order_id, entry_type)
);

CREATE INDEX IF NOT EXISTS idx_escrow_ledger_user ON escrow_ledger(user_id, entry_type);
`

// Open opens (or creates) the database at path in WAL mode and applies the schema.
func Open(path string) (*sql.DB, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %q: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: apply schema: %w", err)
	}
	return db, nil
}

// Fixed-width so that TEXT ordering matches time ordering.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func formatTimePtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("sqlite: parse time %q: %w", s, err)
	}
	return t, nil
}

func parseTimePtr(ns sql.NullString) (*time.Time, error) {
	if !ns.Valid {
		return nil, nil
	}
	t, err := parseTime(ns.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
