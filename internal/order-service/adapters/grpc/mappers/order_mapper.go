// Package mappers converts between domain types and the google.protobuf.Struct
// messages carried by the OrderEngine gRPC service.
package mappers

import (
	"fmt"
	"time"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/jcmexdev/book-escrow/internal/order-service/domain"
)

func OrderToProto(o *domain.Order) (*structpb.Struct, error) {
	if o == nil {
		return nil, nil
	}
	m := map[string]any{
		"id":                o.ID,
		"book_id":           o.BookID,
		"buyer_id":          o.BuyerID,
		"seller_id":         o.SellerID,
		"payment_method":    string(o.PaymentMethod),
		"donation":          o.Donation,
		"price":             o.Price,
		"total_amount":      o.TotalAmount,
		"shipping_fee":      o.ShippingFee,
		"platform_fee":      o.PlatformFee,
		"donation_amount":   o.DonationAmount,
		"status":            string(o.Status),
		"tracking_number":   o.TrackingNumber,
		"payment_reference": o.PaymentReference,
		"cancel_reason":     o.CancelReason,
		"resolution":        string(o.Resolution),
		"created_at":        formatTime(o.CreatedAt),
		"updated_at":        formatTime(o.UpdatedAt),
		"version":           o.Version,
	}
	putTime(m, "paid_at", o.PaidAt)
	putTime(m, "delivered_at", o.DeliveredAt)
	putTime(m, "dispute_deadline", o.DisputeDeadline)
	putTime(m, "completed_at", o.CompletedAt)
	return structpb.NewStruct(m)
}

func OrderFromProto(s *structpb.Struct) (*domain.Order, error) {
	if s == nil {
		return nil, fmt.Errorf("mappers: empty order")
	}
	r := reader{s: s}
	o := &domain.Order{
		ID:               r.str("id"),
		BookID:           r.str("book_id"),
		BuyerID:          r.str("buyer_id"),
		SellerID:         r.str("seller_id"),
		PaymentMethod:    domain.PaymentMethod(r.str("payment_method")),
		Donation:         r.boolean("donation"),
		Price:            r.int("price"),
		TotalAmount:      r.int("total_amount"),
		ShippingFee:      r.int("shipping_fee"),
		PlatformFee:      r.int("platform_fee"),
		DonationAmount:   r.int("donation_amount"),
		Status:           domain.OrderStatus(r.str("status")),
		TrackingNumber:   r.str("tracking_number"),
		PaymentReference: r.str("payment_reference"),
		CancelReason:     r.str("cancel_reason"),
		Resolution:       domain.Resolution(r.str("resolution")),
		CreatedAt:        r.time("created_at"),
		UpdatedAt:        r.time("updated_at"),
		PaidAt:           r.timePtr("paid_at"),
		DeliveredAt:      r.timePtr("delivered_at"),
		DisputeDeadline:  r.timePtr("dispute_deadline"),
		CompletedAt:      r.timePtr("completed_at"),
		Version:          int(r.int("version")),
	}
	return o, r.err
}

// OrdersToProto wraps a list as {"orders": [...]}.
func OrdersToProto(orders []*domain.Order) (*structpb.Struct, error) {
	list := make([]any, 0, len(orders))
	for _, o := range orders {
		s, err := OrderToProto(o)
		if err != nil {
			return nil, err
		}
		list = append(list, s.AsMap())
	}
	return structpb.NewStruct(map[string]any{"orders": list})
}

func OrdersFromProto(s *structpb.Struct) ([]*domain.Order, error) {
	out := make([]*domain.Order, 0)
	for _, v := range s.GetFields()["orders"].GetListValue().GetValues() {
		o, err := OrderFromProto(v.GetStructValue())
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func putTime(m map[string]any, key string, t *time.Time) {
	if t != nil {
		m[key] = formatTime(*t)
	}
}
