package domain

import "time"

type OrderStatus string

const (
	StatusPending   OrderStatus = "pending"
	StatusPaid      OrderStatus = "paid"
	StatusShipped   OrderStatus = "shipped"
	StatusDelivered OrderStatus = "delivered"
	StatusDisputed  OrderStatus = "disputed"
	StatusCompleted OrderStatus = "completed"
	StatusCancelled OrderStatus = "cancelled"
	StatusRefunded  OrderStatus = "refunded"
)

// Terminal reports whether no further transition can leave the status.
func (s OrderStatus) Terminal() bool {
	switch s {
	case StatusCompleted, StatusCancelled, StatusRefunded:
		return true
	}
	return false
}

func (s OrderStatus) Valid() bool {
	switch s {
	case StatusPending, StatusPaid, StatusShipped, StatusDelivered,
		StatusDisputed, StatusCompleted, StatusCancelled, StatusRefunded:
		return true
	}
	return false
}

// DisputeWindow is how long a buyer may contest an order after delivery.
const DisputeWindow = 48 * time.Hour

type Resolution string

const (
	ResolutionRefund  Resolution = "refund"
	ResolutionRelease Resolution = "release"
)

func (r Resolution) Valid() bool {
	return r == ResolutionRefund || r == ResolutionRelease
}

type Order struct {
	ID               string
	BookID           string
	BuyerID          string
	SellerID         string
	PaymentMethod    PaymentMethod
	Donation         bool
	Price            int64
	TotalAmount      int64
	ShippingFee      int64
	PlatformFee      int64
	DonationAmount   int64
	Status           OrderStatus
	TrackingNumber   string
	PaymentReference string
	CancelReason     string
	Resolution       Resolution
	CreatedAt        time.Time
	UpdatedAt        time.Time
	PaidAt           *time.Time
	DeliveredAt      *time.Time
	DisputeDeadline  *time.Time
	CompletedAt      *time.Time
	Version          int
}

// SellerPayout is the amount released to the seller wallet on completion.
func (o *Order) SellerPayout() int64 {
	return o.Price - o.PlatformFee
}

// Escrowed reports whether buyer funds for the order are held by the platform.
func (o *Order) Escrowed() bool {
	return o.PaymentMethod == PaymentCard && o.TotalAmount > 0
}

// DisputeOpen reports whether a dispute can still be raised at now.
func (o *Order) DisputeOpen(now time.Time) bool {
	return o.DisputeDeadline != nil && now.Before(*o.DisputeDeadline)
}

// SettlementDue reports whether a delivered order's window has elapsed at now.
func (o *Order) SettlementDue(now time.Time) bool {
	return o.Status == StatusDelivered && o.DisputeDeadline != nil && !now.Before(*o.DisputeDeadline)
}

// Involves reports whether userID is the buyer or the seller of the order.
func (o *Order) Involves(userID string) bool {
	return userID != "" && (o.BuyerID == userID || o.SellerID == userID)
}

// Clone returns a deep copy so repositories never share mutable state with callers.
func (o *Order) Clone() *Order {
	if o == nil {
		return nil
	}
	cp := *o
	cp.PaidAt = cloneTime(o.PaidAt)
	cp.DeliveredAt = cloneTime(o.DeliveredAt)
	cp.DisputeDeadline = cloneTime(o.DisputeDeadline)
	cp.CompletedAt = cloneTime(o.CompletedAt)
	return &cp
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
