// Package app holds the order/escrow engine: the only component allowed to
// change an order's status, money fields or timing fields.
package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jcmexdev/book-escrow/internal/order-service/domain"
	"github.com/jcmexdev/book-escrow/internal/order-service/ports"
)

type Role string

const (
	RoleUser   Role = "user"
	RoleAdmin  Role = "admin"
	RoleSystem Role = "system"
)

// Actor is the identity on whose behalf an operation runs.
type Actor struct {
	UserID string
	Role   Role
}

// SystemActor is used by the sweep and by saga compensation.
var SystemActor = Actor{UserID: "system", Role: RoleSystem}

func (a Actor) privileged() bool {
	return a.Role == RoleAdmin || a.Role == RoleSystem
}

type Config struct {
	PaymentTimeout time.Duration
	PendingTTL     time.Duration
	SweepInterval  time.Duration
	SweepBatchSize int
}

type Dependencies struct {
	Config   Config
	Orders   ports.OrderRepository
	Ledger   ports.LedgerRepository
	Books    ports.BookCatalog
	Users    ports.UserDirectory
	Payments ports.PaymentGateway
	// Events may be nil; publishing is skipped then.
	Events ports.EventPublisher
	// Clock and Tracking default to wall-clock time and PE…RS numbers.
	Clock    func() time.Time
	Tracking func(now time.Time) string
}

type Engine struct {
	cfg        Config
	orders     ports.OrderRepository
	ledger     ports.LedgerRepository
	books      ports.BookCatalog
	users      ports.UserDirectory
	payments   ports.PaymentGateway
	events     ports.EventPublisher
	nowFn      func() time.Time
	trackingFn func(time.Time) string
	tracer     trace.Tracer
	locks      *keyedMutex
}

func NewEngine(deps Dependencies) *Engine {
	cfg := deps.Config
	if cfg.PaymentTimeout <= 0 {
		cfg.PaymentTimeout = 10 * time.Second
	}
	if cfg.PendingTTL <= 0 {
		cfg.PendingTTL = 30 * time.Minute
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = time.Minute
	}
	if cfg.SweepBatchSize <= 0 {
		cfg.SweepBatchSize = 100
	}
	e := &Engine{
		cfg:        cfg,
		orders:     deps.Orders,
		ledger:     deps.Ledger,
		books:      deps.Books,
		users:      deps.Users,
		payments:   deps.Payments,
		events:     deps.Events,
		nowFn:      deps.Clock,
		trackingFn: deps.Tracking,
		tracer:     otel.Tracer("github.com/jcmexdev/book-escrow/order-engine"),
		locks:      newKeyedMutex(),
	}
	if e.nowFn == nil {
		e.nowFn = func() time.Time { return time.Now().UTC() }
	}
	if e.trackingFn == nil {
		e.trackingFn = TrackingNumber
	}
	return e
}

// TrackingNumber builds a postal tracking number of the form PE<9 digits>RS.
func TrackingNumber(now time.Time) string {
	return fmt.Sprintf("PE%09dRS", now.UnixNano()%1_000_000_000)
}

// CreateOrder places a pending order for bookID on behalf of the buyer.
func (e *Engine) CreateOrder(ctx context.Context, actor Actor, bookID string) (*domain.Order, error) {
	ctx, span := e.tracer.Start(ctx, "order.create", trace.WithAttributes(attribute.String("book.id", bookID)))
	defer span.End()

	buyer, err := e.users.GetUser(ctx, actor.UserID)
	if err != nil {
		return nil, spanError(span, fmt.Errorf("buyer %q: %w", actor.UserID, err))
	}
	book, err := e.books.GetBook(ctx, bookID)
	if err != nil {
		return nil, spanError(span, fmt.Errorf("book %q: %w", bookID, err))
	}
	if book.SellerID == buyer.ID {
		return nil, spanError(span, fmt.Errorf("buyer owns book %q: %w", bookID, domain.ErrInvalidInput))
	}

	// Serialise a buyer's checkouts so the donation count cannot be raced.
	unlock := e.locks.lock("buyer:" + buyer.ID)
	defer unlock()

	now := e.nowFn()
	if book.IsDonation {
		claimed, err := e.donationClaims(ctx, buyer.ID, now)
		if err != nil {
			return nil, spanError(span, err)
		}
		if claimed >= domain.MonthlyDonationLimit {
			return nil, spanError(span, fmt.Errorf("buyer %q claimed %d donations: %w", buyer.ID, claimed, domain.ErrDonationLimitReached))
		}
	}

	fees := domain.QuoteFees(book)
	order := &domain.Order{
		ID:            uuid.NewString(),
		BookID:        book.ID,
		BuyerID:       buyer.ID,
		SellerID:      book.SellerID,
		PaymentMethod: book.PaymentMethod,
		Donation:      book.IsDonation,
		Price:         fees.Price,
		TotalAmount:   fees.Total,
		ShippingFee:   fees.ShippingFee,
		PlatformFee:   fees.PlatformFee,
		Status:        domain.StatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
		Version:       1,
	}
	if err := e.orders.Create(ctx, order); err != nil {
		return nil, spanError(span, fmt.Errorf("create order: %w", err))
	}
	span.SetAttributes(attribute.String("order.id", order.ID))
	slog.InfoContext(ctx, "order created",
		"order_id", order.ID, "book_id", book.ID, "buyer_id", buyer.ID,
		"total_amount", order.TotalAmount, "platform_fee", order.PlatformFee)
	e.publish(ctx, order, actor)
	return order.Clone(), nil
}

// MarkPaid captures payment for a pending order. A declined, failed or timed
// out card capture cancels the order and returns domain.ErrPaymentFailed.
// A capture whose paid state could not be stored is refunded.
func (e *Engine) MarkPaid(ctx context.Context, actor Actor, orderID string) (*domain.Order, error) {
	var captured ports.RefundRequest
	o, err := e.withOrder(ctx, "mark_paid", orderID, actor, func(ctx context.Context, o *domain.Order, now time.Time) error {
		if o.BuyerID != actor.UserID && !actor.privileged() {
			return domain.ErrUnauthorized
		}
		if o.Status != domain.StatusPending {
			return invalidTransition(o.Status, domain.StatusPaid)
		}
		if o.Escrowed() {
			ref, err := e.capture(ctx, o)
			if err != nil {
				o.Status = domain.StatusCancelled
				o.CancelReason = err.Error()
				return fmt.Errorf("order %s: %w", o.ID, err)
			}
			captured = ports.RefundRequest{OrderID: o.ID, Reference: ref, Amount: o.TotalAmount}
			o.PaymentReference = ref
			if err := e.appendEntry(ctx, o, domain.EntryHold, o.BuyerID, o.TotalAmount, now); err != nil {
				o.Status = domain.StatusCancelled
				o.CancelReason = "escrow hold failed"
				return fmt.Errorf("order %s: %w: %v", o.ID, domain.ErrPaymentFailed, err)
			}
		}
		o.Status = domain.StatusPaid
		o.PaidAt = &now
		return nil
	})
	if err != nil && captured.Reference != "" {
		e.voidCapture(ctx, captured)
	}
	return o, err
}

// voidCapture hands back a card capture for an order that never reached paid.
func (e *Engine) voidCapture(ctx context.Context, req ports.RefundRequest) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.cfg.PaymentTimeout)
	defer cancel()

	if err := e.payments.Refund(ctx, req); err != nil {
		slog.ErrorContext(ctx, "void capture failed, funds still captured",
			"order_id", req.OrderID, "reference", req.Reference, "amount", req.Amount, "error", err)
		return
	}
	slog.WarnContext(ctx, "capture voided", "order_id", req.OrderID, "reference", req.Reference, "amount", req.Amount)
}

func (e *Engine) capture(ctx context.Context, o *domain.Order) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, e.cfg.PaymentTimeout)
	defer cancel()

	res, err := e.payments.Capture(ctx, ports.CaptureRequest{
		OrderID: o.ID,
		BuyerID: o.BuyerID,
		Amount:  o.TotalAmount,
		Method:  o.PaymentMethod,
	})
	if err != nil {
		slog.WarnContext(ctx, "payment capture failed", "order_id", o.ID, "error", err)
		return "", fmt.Errorf("%w: %v", domain.ErrPaymentFailed, err)
	}
	if !res.Approved {
		slog.WarnContext(ctx, "payment declined", "order_id", o.ID, "reason", res.Reason)
		return "", fmt.Errorf("%w: declined: %s", domain.ErrPaymentFailed, res.Reason)
	}
	return res.Reference, nil
}

// MarkShipped moves a paid order to shipped. Only the seller may ship; a
// tracking number is generated when none is supplied.
func (e *Engine) MarkShipped(ctx context.Context, actor Actor, orderID, trackingNumber string) (*domain.Order, error) {
	return e.withOrder(ctx, "mark_shipped", orderID, actor, func(ctx context.Context, o *domain.Order, now time.Time) error {
		if o.SellerID != actor.UserID {
			return domain.ErrUnauthorized
		}
		if o.Status != domain.StatusPaid {
			return invalidTransition(o.Status, domain.StatusShipped)
		}
		if trackingNumber == "" {
			trackingNumber = e.trackingFn(now)
		}
		o.TrackingNumber = trackingNumber
		o.Status = domain.StatusShipped
		return nil
	})
}

// ConfirmDelivery is the buyer's receipt confirmation; it opens the dispute window.
func (e *Engine) ConfirmDelivery(ctx context.Context, actor Actor, orderID string) (*domain.Order, error) {
	return e.withOrder(ctx, "confirm_delivery", orderID, actor, func(ctx context.Context, o *domain.Order, now time.Time) error {
		if o.BuyerID != actor.UserID {
			return domain.ErrUnauthorized
		}
		return deliver(o, now)
	})
}

// ForceDelivered is the administrative override of ConfirmDelivery.
func (e *Engine) ForceDelivered(ctx context.Context, actor Actor, orderID string) (*domain.Order, error) {
	return e.withOrder(ctx, "force_delivered", orderID, actor, func(ctx context.Context, o *domain.Order, now time.Time) error {
		if actor.Role != RoleAdmin {
			return domain.ErrUnauthorized
		}
		return deliver(o, now)
	})
}

func deliver(o *domain.Order, now time.Time) error {
	if o.Status != domain.StatusShipped {
		return invalidTransition(o.Status, domain.StatusDelivered)
	}
	deadline := now.Add(domain.DisputeWindow)
	o.Status = domain.StatusDelivered
	o.DeliveredAt = &now
	o.DisputeDeadline = &deadline
	return nil
}

// RaiseDispute contests a delivered order while its dispute window is open.
func (e *Engine) RaiseDispute(ctx context.Context, actor Actor, orderID string) (*domain.Order, error) {
	return e.withOrder(ctx, "raise_dispute", orderID, actor, func(ctx context.Context, o *domain.Order, now time.Time) error {
		if o.BuyerID != actor.UserID {
			return domain.ErrUnauthorized
		}
		switch {
		case o.Status == domain.StatusDelivered && o.DisputeOpen(now):
			o.Status = domain.StatusDisputed
			return nil
		case o.DisputeDeadline != nil && !o.DisputeOpen(now) &&
			(o.Status == domain.StatusDelivered || (o.Status == domain.StatusCompleted && o.Resolution == "")):
			return fmt.Errorf("order %s deadline %s: %w", o.ID, o.DisputeDeadline.Format(time.RFC3339), domain.ErrWindowExpired)
		}
		return invalidTransition(o.Status, domain.StatusDisputed)
	})
}

// ResolveDispute closes a disputed order by refunding the buyer or releasing
// funds to the seller. Admin only.
func (e *Engine) ResolveDispute(ctx context.Context, actor Actor, orderID string, outcome domain.Resolution) (*domain.Order, error) {
	if !outcome.Valid() {
		return nil, fmt.Errorf("resolution %q: %w", outcome, domain.ErrInvalidInput)
	}
	return e.withOrder(ctx, "resolve_dispute", orderID, actor, func(ctx context.Context, o *domain.Order, now time.Time) error {
		if actor.Role != RoleAdmin {
			return domain.ErrUnauthorized
		}
		if o.Status != domain.StatusDisputed {
			return invalidTransition(o.Status, resolutionTarget(outcome))
		}
		if outcome == domain.ResolutionRefund {
			if err := e.refund(ctx, o, now); err != nil {
				return err
			}
		} else if err := e.release(ctx, o, now); err != nil {
			return err
		}
		o.Resolution = outcome
		return nil
	})
}

func resolutionTarget(r domain.Resolution) domain.OrderStatus {
	if r == domain.ResolutionRefund {
		return domain.StatusRefunded
	}
	return domain.StatusCompleted
}

// CancelOrder abandons a pending order.
func (e *Engine) CancelOrder(ctx context.Context, actor Actor, orderID, reason string) (*domain.Order, error) {
	return e.withOrder(ctx, "cancel", orderID, actor, func(ctx context.Context, o *domain.Order, now time.Time) error {
		if !o.Involves(actor.UserID) && !actor.privileged() {
			return domain.ErrUnauthorized
		}
		if o.Status != domain.StatusPending {
			return invalidTransition(o.Status, domain.StatusCancelled)
		}
		o.Status = domain.StatusCancelled
		o.CancelReason = reason
		return nil
	})
}

// GetOrder returns an order visible to its buyer, its seller or an operator.
func (e *Engine) GetOrder(ctx context.Context, actor Actor, orderID string) (*domain.Order, error) {
	return e.withOrder(ctx, "get", orderID, actor, func(ctx context.Context, o *domain.Order, now time.Time) error {
		if !o.Involves(actor.UserID) && !actor.privileged() {
			return domain.ErrUnauthorized
		}
		return nil
	})
}

func (e *Engine) ListOrdersForBuyer(ctx context.Context, actor Actor, userID string) ([]*domain.Order, error) {
	if actor.UserID != userID && !actor.privileged() {
		return nil, domain.ErrUnauthorized
	}
	orders, err := e.orders.ListByBuyer(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list buyer orders: %w", err)
	}
	return e.settleListed(ctx, orders)
}

func (e *Engine) ListOrdersForSeller(ctx context.Context, actor Actor, userID string) ([]*domain.Order, error) {
	if actor.UserID != userID && !actor.privileged() {
		return nil, domain.ErrUnauthorized
	}
	orders, err := e.orders.ListBySeller(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list seller orders: %w", err)
	}
	return e.settleListed(ctx, orders)
}

// settleListed lazily completes listed orders whose dispute window elapsed.
func (e *Engine) settleListed(ctx context.Context, orders []*domain.Order) ([]*domain.Order, error) {
	now := e.nowFn()
	for i, o := range orders {
		if !o.SettlementDue(now) {
			continue
		}
		settled, err := e.withOrder(ctx, "settle", o.ID, SystemActor, nil)
		if err != nil {
			return nil, err
		}
		orders[i] = settled
	}
	return orders, nil
}

// Account returns the user with the derived wallet balance and this month's
// donation claims. Sales past their dispute window are settled first.
func (e *Engine) Account(ctx context.Context, actor Actor, userID string) (*domain.User, error) {
	if actor.UserID != userID && !actor.privileged() {
		return nil, domain.ErrUnauthorized
	}
	user, err := e.users.GetUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("user %q: %w", userID, err)
	}
	sales, err := e.orders.ListBySeller(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list sales: %w", err)
	}
	if _, err := e.settleListed(ctx, sales); err != nil {
		return nil, err
	}
	balance, err := e.ledger.SumByUser(ctx, userID, domain.EntryRelease)
	if err != nil {
		return nil, fmt.Errorf("wallet balance: %w", err)
	}
	claimed, err := e.donationClaims(ctx, userID, e.nowFn())
	if err != nil {
		return nil, err
	}
	out := *user
	out.WalletBalance = balance
	out.FreeBooksThisMonth = claimed
	return &out, nil
}

func (e *Engine) donationClaims(ctx context.Context, buyerID string, now time.Time) (int, error) {
	orders, err := e.orders.ListByBuyer(ctx, buyerID)
	if err != nil {
		return 0, fmt.Errorf("count donation claims: %w", err)
	}
	y, m, _ := now.UTC().Date()
	n := 0
	for _, o := range orders {
		if !o.Donation || o.Status == domain.StatusCancelled {
			continue
		}
		if oy, om, _ := o.CreatedAt.UTC().Date(); oy == y && om == m {
			n++
		}
	}
	return n, nil
}

// release pays the seller out of escrow and completes the order.
func (e *Engine) release(ctx context.Context, o *domain.Order, now time.Time) error {
	if o.Escrowed() {
		if err := e.appendEntry(ctx, o, domain.EntryRelease, o.SellerID, o.SellerPayout(), now); err != nil {
			return err
		}
		if err := e.appendEntry(ctx, o, domain.EntryFee, "platform", o.PlatformFee, now); err != nil {
			return err
		}
	}
	o.Status = domain.StatusCompleted
	o.CompletedAt = &now
	return nil
}

// refund returns held funds to the buyer and closes the order.
func (e *Engine) refund(ctx context.Context, o *domain.Order, now time.Time) error {
	if o.Escrowed() {
		err := e.payments.Refund(ctx, ports.RefundRequest{
			OrderID:   o.ID,
			Reference: o.PaymentReference,
			Amount:    o.TotalAmount,
		})
		if err != nil {
			return fmt.Errorf("refund order %s: %w", o.ID, err)
		}
		if err := e.appendEntry(ctx, o, domain.EntryRefund, o.BuyerID, o.TotalAmount, now); err != nil {
			return err
		}
	}
	o.Status = domain.StatusRefunded
	o.CompletedAt = &now
	return nil
}

// appendEntry records a ledger movement; an entry that already exists counts
// as applied so retried transitions never double-pay.
func (e *Engine) appendEntry(ctx context.Context, o *domain.Order, typ domain.EntryType, userID string, amount int64, now time.Time) error {
	if amount <= 0 {
		return nil
	}
	err := e.ledger.Append(ctx, domain.LedgerEntry{
		EntryID:    uuid.NewString(),
		OrderID:    o.ID,
		UserID:     userID,
		Type:       typ,
		Amount:     amount,
		OccurredAt: now,
	})
	if err != nil && !errors.Is(err, ports.ErrDuplicateEntry) {
		return fmt.Errorf("ledger %s for order %s: %w", typ, o.ID, err)
	}
	return nil
}

// withOrder runs fn against the current state of an order while holding its
// lock. An elapsed dispute window is settled first. Whatever status change fn
// leaves behind is persisted, even when fn also returns an error.
func (e *Engine) withOrder(
	ctx context.Context,
	op, orderID string,
	actor Actor,
	fn func(ctx context.Context, o *domain.Order, now time.Time) error,
) (*domain.Order, error) {
	ctx, span := e.tracer.Start(ctx, "order."+op, trace.WithAttributes(
		attribute.String("order.id", orderID),
		attribute.String("actor.id", actor.UserID),
	))
	defer span.End()

	unlock := e.locks.lock(orderID)
	defer unlock()

	o, err := e.orders.Get(ctx, orderID)
	if err != nil {
		return nil, spanError(span, fmt.Errorf("order %q: %w", orderID, err))
	}
	now := e.nowFn()

	if o.SettlementDue(now) {
		if err := e.release(ctx, o, now); err != nil {
			return nil, spanError(span, err)
		}
		if err := e.commit(ctx, o, SystemActor, now); err != nil {
			return nil, spanError(span, err)
		}
		slog.InfoContext(ctx, "dispute window elapsed, order settled", "order_id", o.ID, "payout", o.SellerPayout())
	}
	if fn == nil {
		return o.Clone(), nil
	}

	before := o.Clone()
	fnErr := fn(ctx, o, now)
	if o.Status != before.Status {
		if err := e.commit(ctx, o, actor, now); err != nil {
			return nil, spanError(span, err)
		}
		slog.InfoContext(ctx, "order transitioned",
			"order_id", o.ID, "from", before.Status, "to", o.Status, "actor_id", actor.UserID)
	} else if fnErr != nil {
		o = before
	}
	if fnErr != nil {
		return nil, spanError(span, fnErr)
	}
	return o.Clone(), nil
}

func (e *Engine) commit(ctx context.Context, o *domain.Order, actor Actor, now time.Time) error {
	o.Version++
	o.UpdatedAt = now
	if err := e.orders.Update(ctx, o); err != nil {
		o.Version--
		return fmt.Errorf("update order %s: %w", o.ID, err)
	}
	e.publish(ctx, o, actor)
	return nil
}

func (e *Engine) publish(ctx context.Context, o *domain.Order, actor Actor) {
	if e.events == nil {
		return
	}
	evt := domain.OrderEvent{
		EventID:    uuid.NewString(),
		EventType:  domain.EventForStatus(o.Status),
		OrderID:    o.ID,
		BuyerID:    o.BuyerID,
		SellerID:   o.SellerID,
		Status:     o.Status,
		ActorID:    actor.UserID,
		OccurredAt: o.UpdatedAt,
	}
	payload, err := json.Marshal(evt)
	if err != nil {
		slog.ErrorContext(ctx, "marshal order event", "order_id", o.ID, "error", err)
		return
	}
	if err := e.events.Publish(ctx, evt.EventType, payload, o.ID); err != nil {
		slog.WarnContext(ctx, "publish order event failed", "order_id", o.ID, "event_type", evt.EventType, "error", err)
	}
}

func invalidTransition(from, to domain.OrderStatus) error {
	return fmt.Errorf("%s -> %s: %w", from, to, domain.ErrInvalidTransition)
}

func spanError(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

// keyedMutex hands out one mutex per key and forgets keys nobody holds.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*refMutex
}

type refMutex struct {
	mu   sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*refMutex)}
}

func (k *keyedMutex) lock(key string) (unlock func()) {
	k.mu.Lock()
	m, ok := k.locks[key]
	if !ok {
		m = &refMutex{}
		k.locks[key] = m
	}
	m.refs++
	k.mu.Unlock()

	m.mu.Lock()
	return func() {
		m.mu.Unlock()
		k.mu.Lock()
		m.refs--
		if m.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
