package coordinator

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	catalogservice "github.com/jcmexdev/book-escrow/internal/catalog-service"
	"github.com/jcmexdev/book-escrow/internal/coordinator/sagalog"
	"github.com/jcmexdev/book-escrow/internal/order-service/adapters/memory"
	"github.com/jcmexdev/book-escrow/internal/order-service/app"
	"github.com/jcmexdev/book-escrow/internal/order-service/domain"
	paymentservice "github.com/jcmexdev/book-escrow/internal/payment-service/app"
	"github.com/jcmexdev/book-escrow/internal/pkg/cache"
)

type checkoutFixture struct {
	checkout *Checkout
	catalog  *catalogservice.Catalog
	orders   *memory.OrderRepository
	log      *sagalog.MemoryRepository
}

func newCheckoutFixture(t *testing.T, declineAbove int64) *checkoutFixture {
	t.Helper()
	catalog := catalogservice.NewCatalog(
		domain.Book{ID: "cheap", SellerID: "seller-1", Title: "Dervis i smrt", Author: "Meša Selimović",
			Price: 1000, DeliveryOption: domain.DeliveryPost, PaymentMethod: domain.PaymentCard},
		domain.Book{ID: "rare", SellerID: "seller-1", Title: "Hazarski rečnik", Author: "Milorad Pavić",
			Price: 90000, DeliveryOption: domain.DeliveryPost, PaymentMethod: domain.PaymentCard},
	)
	orders := memory.NewOrderRepository()
	engine := app.NewEngine(app.Dependencies{
		Config: app.Config{PaymentTimeout: time.Second},
		Orders: orders,
		Ledger: memory.NewLedgerRepository(),
		Books:  catalog,
		Users: memory.NewUserDirectory(
			domain.User{ID: "buyer-1"}, domain.User{ID: "buyer-2"}, domain.User{ID: "seller-1"},
		),
		Payments: paymentservice.NewGateway(paymentservice.Config{DeclineAbove: declineAbove}, cache.NewMemoryCache("payment")),
	})
	log := sagalog.NewMemoryRepository()
	return &checkoutFixture{
		checkout: NewCheckout(catalog, engine, log),
		catalog:  catalog,
		orders:   orders,
		log:      log,
	}
}

func TestCheckout_Succeeds(t *testing.T) {
	f := newCheckoutFixture(t, 50000)
	ctx := context.Background()

	sagaID, order, err := f.checkout.Run(ctx, app.Actor{UserID: "buyer-1", Role: app.RoleUser}, "cheap")
	require.NoError(t, err)
	require.NotNil(t, order)
	assert.Equal(t, domain.StatusPaid, order.Status)
	assert.Equal(t, int64(1350), order.TotalAmount)

	holder, held := f.catalog.Reserved("cheap")
	assert.True(t, held)
	assert.Equal(t, sagaID, holder)

	status, err := f.checkout.Status(ctx, sagaID)
	require.NoError(t, err)
	assert.Equal(t, sagalog.StatusCompleted, status.Status)

	_, _, err = f.checkout.Run(ctx, app.Actor{UserID: "buyer-2", Role: app.RoleUser}, "cheap")
	assert.ErrorIs(t, err, catalogservice.ErrReserved)
}

func TestCheckout_DeclinedPaymentRollsBack(t *testing.T) {
	f := newCheckoutFixture(t, 50000)
	ctx := context.Background()

	sagaID, order, err := f.checkout.Run(ctx, app.Actor{UserID: "buyer-1", Role: app.RoleUser}, "rare")
	require.ErrorIs(t, err, domain.ErrPaymentFailed)
	assert.Nil(t, order)

	_, held := f.catalog.Reserved("rare")
	assert.False(t, held, "reservation released")

	placed, err := f.orders.ListByBuyer(ctx, "buyer-1")
	require.NoError(t, err)
	require.Len(t, placed, 1)
	assert.Equal(t, domain.StatusCancelled, placed[0].Status)

	rows := f.log.History(sagaID)
	assert.Equal(t, []sagalog.Status{
		sagalog.StatusStarted, sagalog.StatusStepDone, sagalog.StatusStepDone,
		sagalog.StatusCompensating, sagalog.StatusFailed,
	}, statuses(rows))
	assert.Equal(t, "Payment_Capture_Step", rows[len(rows)-1].CurrentStep)
	assert.Contains(t, rows[len(rows)-1].ErrorMessages, "payment failed: declined: amount exceeds card limit")
}

func TestCheckout_UnknownBuyerReleasesBook(t *testing.T) {
	f := newCheckoutFixture(t, 0)

	_, _, err := f.checkout.Run(context.Background(), app.Actor{UserID: "ghost", Role: app.RoleUser}, "cheap")
	require.ErrorIs(t, err, domain.ErrNotFound)

	_, held := f.catalog.Reserved("cheap")
	assert.False(t, held)
}
