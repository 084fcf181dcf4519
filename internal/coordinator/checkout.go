// Package coordinator runs the checkout saga: reserve the listing, create the
// order, capture payment, and undo the earlier steps when a later one fails.
package coordinator

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"

	"github.com/jcmexdev/book-escrow/internal/coordinator/sagalog"
	"github.com/jcmexdev/book-escrow/internal/order-service/app"
	"github.com/jcmexdev/book-escrow/internal/order-service/domain"
)

type Checkout struct {
	catalog BookReserver
	engine  OrderEngine
	log     sagalog.Repository
}

func NewCheckout(catalog BookReserver, engine OrderEngine, log sagalog.Repository) *Checkout {
	return &Checkout{catalog: catalog, engine: engine, log: log}
}

type checkoutPayload struct {
	BuyerID string `json:"buyer_id"`
	BookID  string `json:"book_id"`
}

// Run buys bookID for buyer and returns the saga id with the paid order. On
// failure the saga id is still returned so the log can be inspected.
func (c *Checkout) Run(ctx context.Context, buyer app.Actor, bookID string) (string, *domain.Order, error) {
	sagaID := uuid.NewString()
	payload, _ := json.Marshal(checkoutPayload{BuyerID: buyer.UserID, BookID: bookID})

	reserve := NewReserveBookStep(c.catalog, bookID, sagaID)
	create := NewCreateOrderStep(c.engine, buyer, bookID)
	pay := NewPaymentStep(c.engine, buyer, create)

	saga := NewOrchestrator(sagaID, string(payload), []Step{reserve, create, pay}, c.log)
	if err := saga.Start(ctx); err != nil {
		return sagaID, nil, err
	}
	return sagaID, pay.Order(), nil
}

// Status returns the latest saga log row for sagaID.
func (c *Checkout) Status(ctx context.Context, sagaID string) (*sagalog.SagaLog, error) {
	return c.log.GetLatest(ctx, sagaID)
}
