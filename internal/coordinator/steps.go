package coordinator

import (
	"context"
	"errors"
	"fmt"

	"github.com/jcmexdev/book-escrow/internal/order-service/app"
	"github.com/jcmexdev/book-escrow/internal/order-service/domain"
)

// BookReserver holds a listing for one checkout at a time.
type BookReserver interface {
	Reserve(ctx context.Context, bookID, holder string) error
	Release(ctx context.Context, bookID, holder string) error
}

// OrderEngine is the part of the order engine the checkout drives.
type OrderEngine interface {
	CreateOrder(ctx context.Context, actor app.Actor, bookID string) (*domain.Order, error)
	MarkPaid(ctx context.Context, actor app.Actor, orderID string) (*domain.Order, error)
	CancelOrder(ctx context.Context, actor app.Actor, orderID, reason string) (*domain.Order, error)
}

// --- ReserveBookStep ---

type ReserveBookStep struct {
	catalog BookReserver
	bookID  string
	holder  string
}

func NewReserveBookStep(catalog BookReserver, bookID, holder string) *ReserveBookStep {
	return &ReserveBookStep{catalog: catalog, bookID: bookID, holder: holder}
}

func (s *ReserveBookStep) Name() string { return "Reserve_Book_Step" }

func (s *ReserveBookStep) Execute(ctx context.Context) error {
	if err := s.catalog.Reserve(ctx, s.bookID, s.holder); err != nil {
		return fmt.Errorf("reserve book: %w", err)
	}
	return nil
}

func (s *ReserveBookStep) Compensate(ctx context.Context) error {
	return s.catalog.Release(ctx, s.bookID, s.holder)
}

// --- CreateOrderStep ---

type CreateOrderStep struct {
	engine OrderEngine
	buyer  app.Actor
	bookID string
	order  *domain.Order
}

func NewCreateOrderStep(engine OrderEngine, buyer app.Actor, bookID string) *CreateOrderStep {
	return &CreateOrderStep{engine: engine, buyer: buyer, bookID: bookID}
}

func (s *CreateOrderStep) Name() string { return "Create_Order_Step" }

func (s *CreateOrderStep) Execute(ctx context.Context) error {
	order, err := s.engine.CreateOrder(ctx, s.buyer, s.bookID)
	if err != nil {
		return fmt.Errorf("create order: %w", err)
	}
	s.order = order
	return nil
}

// Compensate cancels the order unless it already left pending, e.g. because
// a failed capture cancelled it.
func (s *CreateOrderStep) Compensate(ctx context.Context) error {
	if s.order == nil {
		return nil
	}
	_, err := s.engine.CancelOrder(ctx, app.SystemActor, s.order.ID, "checkout aborted")
	if errors.Is(err, domain.ErrInvalidTransition) {
		return nil
	}
	return err
}

// Order is the order created by Execute, nil before it ran.
func (s *CreateOrderStep) Order() *domain.Order { return s.order }

// --- PaymentStep ---

type PaymentStep struct {
	engine OrderEngine
	buyer  app.Actor
	placed *CreateOrderStep
	paid   *domain.Order
}

func NewPaymentStep(engine OrderEngine, buyer app.Actor, placed *CreateOrderStep) *PaymentStep {
	return &PaymentStep{engine: engine, buyer: buyer, placed: placed}
}

func (s *PaymentStep) Name() string { return "Payment_Capture_Step" }

func (s *PaymentStep) Execute(ctx context.Context) error {
	order := s.placed.Order()
	if order == nil {
		return errors.New("payment step ran before an order was created")
	}
	paid, err := s.engine.MarkPaid(ctx, s.buyer, order.ID)
	if err != nil {
		return fmt.Errorf("capture payment: %w", err)
	}
	s.paid = paid
	return nil
}

// Compensate is empty: this is the last step, and a failed capture already
// cancels the order inside the engine.
func (s *PaymentStep) Compensate(ctx context.Context) error {
	return nil
}

func (s *PaymentStep) Order() *domain.Order { return s.paid }
