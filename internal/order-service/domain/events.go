package domain

import "time"

const (
	EventOrderCreated   = "order.created"
	EventOrderPaid      = "order.paid"
	EventOrderShipped   = "order.shipped"
	EventOrderDelivered = "order.delivered"
	EventOrderDisputed  = "order.disputed"
	EventOrderCompleted = "order.completed"
	EventOrderCancelled = "order.cancelled"
	EventOrderRefunded  = "order.refunded"
)

// EventForStatus names the event emitted when an order enters status.
func EventForStatus(s OrderStatus) string {
	switch s {
	case StatusPending:
		return EventOrderCreated
	case StatusPaid:
		return EventOrderPaid
	case StatusShipped:
		return EventOrderShipped
	case StatusDelivered:
		return EventOrderDelivered
	case StatusDisputed:
		return EventOrderDisputed
	case StatusCompleted:
		return EventOrderCompleted
	case StatusCancelled:
		return EventOrderCancelled
	case StatusRefunded:
		return EventOrderRefunded
	}
	return ""
}

type OrderEvent struct {
	EventID    string      `json:"event_id"`
	EventType  string      `json:"event_type"`
	OrderID    string      `json:"order_id"`
	BuyerID    string      `json:"buyer_id"`
	SellerID   string      `json:"seller_id"`
	Status     OrderStatus `json:"status"`
	ActorID    string      `json:"actor_id,omitempty"`
	OccurredAt time.Time   `json:"occurred_at"`
}
