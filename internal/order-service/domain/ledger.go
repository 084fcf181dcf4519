package domain

import "time"

type EntryType string

const (
	EntryHold    EntryType = "hold"
	EntryRelease EntryType = "release"
	EntryFee     EntryType = "fee"
	EntryRefund  EntryType = "refund"
)

// LedgerEntry is one escrow movement. Entries are unique per (OrderID, Type).
type LedgerEntry struct {
	EntryID    string
	OrderID    string
	UserID     string
	Type       EntryType
	Amount     int64
	OccurredAt time.Time
}
