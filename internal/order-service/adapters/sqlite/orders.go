package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jcmexdev/book-escrow/internal/order-service/domain"
)

const orderColumns = `id, book_id, buyer_id, seller_id, payment_method, donation,
	price, total_amount, shipping_fee, platform_fee, donation_amount,
	status, tracking_number, payment_reference, cancel_reason, resolution,
	created_at, updated_at, paid_at, delivered_at, dispute_deadline, completed_at, version`

type OrderRepository struct {
	db *sql.DB
}

func NewOrderRepository(db *sql.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

func (r *OrderRepository) Create(ctx context.Context, o *domain.Order) error {
	q := `INSERT INTO orders (` + orderColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, q,
		o.ID, o.BookID, o.BuyerID, o.SellerID, string(o.PaymentMethod), o.Donation,
		o.Price, o.TotalAmount, o.ShippingFee, o.PlatformFee, o.DonationAmount,
		string(o.Status), o.TrackingNumber, o.PaymentReference, o.CancelReason, string(o.Resolution),
		formatTime(o.CreatedAt), formatTime(o.UpdatedAt),
		formatTimePtr(o.PaidAt), formatTimePtr(o.DeliveredAt), formatTimePtr(o.DisputeDeadline), formatTimePtr(o.CompletedAt),
		o.Version,
	)
	if err != nil {
		return fmt.Errorf("sqlite: create order %q: %w", o.ID, err)
	}
	return nil
}

func (r *OrderRepository) Get(ctx context.Context, id string) (*domain.Order, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = ?`, id)
	o, err := scanOrder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: get order %q: %w", id, err)
	}
	return o, nil
}

// Update writes o only if the stored row is still at o.Version-1.
func (r *OrderRepository) Update(ctx context.Context, o *domain.Order) error {
	const q = `
		UPDATE orders SET
			status = ?, tracking_number = ?, payment_reference = ?, cancel_reason = ?, resolution = ?,
			updated_at = ?, paid_at = ?, delivered_at = ?, dispute_deadline = ?, completed_at = ?,
			version = ?
		WHERE id = ? AND version = ?`

	res, err := r.db.ExecContext(ctx, q,
		string(o.Status), o.TrackingNumber, o.PaymentReference, o.CancelReason, string(o.Resolution),
		formatTime(o.UpdatedAt), formatTimePtr(o.PaidAt), formatTimePtr(o.DeliveredAt),
		formatTimePtr(o.DisputeDeadline), formatTimePtr(o.CompletedAt),
		o.Version,
		o.ID, o.Version-1,
	)
	if err != nil {
		return fmt.Errorf("sqlite: update order %q: %w", o.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: update order %q: %w", o.ID, err)
	}
	if n == 1 {
		return nil
	}
	if _, err := r.Get(ctx, o.ID); err != nil {
		return err
	}
	return fmt.Errorf("sqlite: order %q moved past version %d: %w", o.ID, o.Version-1, domain.ErrConcurrentModification)
}

func (r *OrderRepository) ListByBuyer(ctx context.Context, buyerID string) ([]*domain.Order, error) {
	return r.list(ctx, `WHERE buyer_id = ? ORDER BY created_at DESC, id DESC`, buyerID)
}

func (r *OrderRepository) ListBySeller(ctx context.Context, sellerID string) ([]*domain.Order, error) {
	return r.list(ctx, `WHERE seller_id = ? ORDER BY created_at DESC, id DESC`, sellerID)
}

func (r *OrderRepository) ListByStatus(ctx context.Context, status domain.OrderStatus, limit int) ([]*domain.Order, error) {
	if limit <= 0 {
		limit = -1
	}
	return r.list(ctx, `WHERE status = ? ORDER BY created_at ASC, id ASC LIMIT ?`, string(status), limit)
}

func (r *OrderRepository) ListDueForSettlement(ctx context.Context, now time.Time, limit int) ([]*domain.Order, error) {
	if limit <= 0 {
		limit = -1
	}
	return r.list(ctx, `WHERE status = ? AND dispute_deadline IS NOT NULL AND dispute_deadline <= ?
		ORDER BY dispute_deadline ASC, id ASC LIMIT ?`,
		string(domain.StatusDelivered), formatTime(now), limit)
}

func (r *OrderRepository) list(ctx context.Context, where string, args ...any) ([]*domain.Order, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+orderColumns+` FROM orders `+where, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list orders: %w", err)
	}
	defer rows.Close()

	out := make([]*domain.Order, 0)
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scan order: %w", err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanOrder(s scanner) (*domain.Order, error) {
	var (
		o                                     domain.Order
		method, status, resolution            string
		createdAt, updatedAt                  string
		paidAt, deliveredAt, deadline, doneAt sql.NullString
	)
	err := s.Scan(
		&o.ID, &o.BookID, &o.BuyerID, &o.SellerID, &method, &o.Donation,
		&o.Price, &o.TotalAmount, &o.ShippingFee, &o.PlatformFee, &o.DonationAmount,
		&status, &o.TrackingNumber, &o.PaymentReference, &o.CancelReason, &resolution,
		&createdAt, &updatedAt, &paidAt, &deliveredAt, &deadline, &doneAt,
		&o.Version,
	)
	if err != nil {
		return nil, err
	}
	o.PaymentMethod = domain.PaymentMethod(method)
	o.Status = domain.OrderStatus(status)
	o.Resolution = domain.Resolution(resolution)

	if o.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if o.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	for _, f := range []struct {
		dst **time.Time
		src sql.NullString
	}{
		{&o.PaidAt, paidAt},
		{&o.DeliveredAt, deliveredAt},
		{&o.DisputeDeadline, deadline},
		{&o.CompletedAt, doneAt},
	} {
		if *f.dst, err = parseTimePtr(f.src); err != nil {
			return nil, err
		}
	}
	return &o, nil
}
