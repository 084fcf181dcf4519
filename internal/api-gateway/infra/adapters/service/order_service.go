package service

import (
	"context"

	"github.com/jcmexdev/book-escrow/internal/api-gateway/core/ports"
	catalogservice "github.com/jcmexdev/book-escrow/internal/catalog-service"
	"github.com/jcmexdev/book-escrow/internal/coordinator"
	"github.com/jcmexdev/book-escrow/internal/coordinator/sagalog"
	"github.com/jcmexdev/book-escrow/internal/order-service/app"
	"github.com/jcmexdev/book-escrow/internal/order-service/domain"
)

var _ ports.Marketplace = (*LocalMarketplace)(nil)

// LocalMarketplace serves the gateway from an in-process engine, used when no
// order-service address is configured.
type LocalMarketplace struct {
	*app.Engine
	checkout *coordinator.Checkout
	catalog  *catalogservice.Catalog
}

func NewLocalMarketplace(engine *app.Engine, checkout *coordinator.Checkout, catalog *catalogservice.Catalog) *LocalMarketplace {
	return &LocalMarketplace{Engine: engine, checkout: checkout, catalog: catalog}
}

func (m *LocalMarketplace) Checkout(ctx context.Context, actor app.Actor, bookID string) (string, *domain.Order, error) {
	return m.checkout.Run(ctx, actor, bookID)
}

func (m *LocalMarketplace) CheckoutStatus(ctx context.Context, _ app.Actor, sagaID string) (*sagalog.SagaLog, error) {
	return m.checkout.Status(ctx, sagaID)
}

func (m *LocalMarketplace) GetBook(ctx context.Context, bookID string) (*domain.Book, error) {
	return m.catalog.GetBook(ctx, bookID)
}

func (m *LocalMarketplace) AddBook(ctx context.Context, actor app.Actor, b domain.Book) (*domain.Book, error) {
	return m.catalog.AddBook(ctx, actor.UserID, b)
}
