package server_test

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/jcmexdev/book-escrow/internal/api-gateway/infra/adapters/service"
	catalogservice "github.com/jcmexdev/book-escrow/internal/catalog-service"
	"github.com/jcmexdev/book-escrow/internal/coordinator"
	"github.com/jcmexdev/book-escrow/internal/coordinator/sagalog"
	"github.com/jcmexdev/book-escrow/internal/order-service/adapters/grpc/escrowv1"
	"github.com/jcmexdev/book-escrow/internal/order-service/adapters/grpc/server"
	"github.com/jcmexdev/book-escrow/internal/order-service/adapters/memory"
	"github.com/jcmexdev/book-escrow/internal/order-service/app"
	"github.com/jcmexdev/book-escrow/internal/order-service/domain"
	paymentservice "github.com/jcmexdev/book-escrow/internal/payment-service/app"
	"github.com/jcmexdev/book-escrow/internal/pkg/cache"
	"github.com/jcmexdev/book-escrow/internal/pkg/interceptors"
)

var (
	buyer  = app.Actor{UserID: "buyer-1", Role: app.RoleUser}
	seller = app.Actor{UserID: "seller-1", Role: app.RoleUser}
	admin  = app.Actor{UserID: "admin-1", Role: app.RoleAdmin}
)

func dial(t *testing.T) *grpc.ClientConn {
	t.Helper()
	catalog := catalogservice.NewCatalog(
		domain.Book{ID: "book-1", SellerID: "seller-1", Title: "Prokleta avlija", Author: "Ivo Andrić",
			Condition: domain.ConditionGood, Price: 2000, DeliveryOption: domain.DeliveryPost, PaymentMethod: domain.PaymentCard},
		domain.Book{ID: "rare", SellerID: "seller-1", Title: "Hazarski rečnik", Author: "Milorad Pavić",
			Condition: domain.ConditionNew, Price: 90000, DeliveryOption: domain.DeliveryPost, PaymentMethod: domain.PaymentCard},
	)
	engine := app.NewEngine(app.Dependencies{
		Orders: memory.NewOrderRepository(),
		Ledger: memory.NewLedgerRepository(),
		Books:  catalog,
		Users: memory.NewUserDirectory(
			domain.User{ID: "buyer-1"}, domain.User{ID: "seller-1"}, domain.User{ID: "admin-1"},
		),
		Payments: paymentservice.NewGateway(paymentservice.Config{DeclineAbove: 50000}, cache.NewMemoryCache("payment")),
	})
	checkout := coordinator.NewCheckout(catalog, engine, sagalog.NewMemoryRepository())

	gs, _ := server.NewGRPCServer(server.New(engine, checkout, catalog))
	lis := bufconn.Listen(1 << 20)
	go func() { _ = gs.Serve(lis) }()
	t.Cleanup(gs.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUnaryInterceptor(interceptors.PropagateClientInterceptor()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestOrderFlowOverGRPC(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	m := service.NewGRPCMarketplace(dial(t))

	o, err := m.CreateOrder(ctx, buyer, "book-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, o.Status)
	assert.Equal(t, int64(2350), o.TotalAmount)
	assert.Equal(t, int64(200), o.PlatformFee)

	o, err = m.MarkPaid(ctx, buyer, o.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, o.PaymentReference)

	_, err = m.MarkShipped(ctx, buyer, o.ID, "")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	o, err = m.MarkShipped(ctx, seller, o.ID, "")
	require.NoError(t, err)
	assert.Regexp(t, `^PE\d{9}RS$`, o.TrackingNumber)

	_, err = m.MarkShipped(ctx, seller, o.ID, "")
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	o, err = m.ForceDelivered(ctx, admin, o.ID)
	require.NoError(t, err)
	require.NotNil(t, o.DisputeDeadline)
	assert.Equal(t, o.DeliveredAt.Add(domain.DisputeWindow), *o.DisputeDeadline)

	o, err = m.RaiseDispute(ctx, buyer, o.ID)
	require.NoError(t, err)

	o, err = m.ResolveDispute(ctx, admin, o.ID, domain.ResolutionRefund)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusRefunded, o.Status)

	got, err := m.GetOrder(ctx, buyer, o.ID)
	require.NoError(t, err)
	assert.Equal(t, o.Version, got.Version)

	purchases, err := m.ListOrdersForBuyer(ctx, buyer, buyer.UserID)
	require.NoError(t, err)
	assert.Len(t, purchases, 1)

	sales, err := m.ListOrdersForSeller(ctx, seller, seller.UserID)
	require.NoError(t, err)
	assert.Len(t, sales, 1)

	acct, err := m.Account(ctx, seller, seller.UserID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), acct.WalletBalance)
}

func TestCancelAndNotFoundOverGRPC(t *testing.T) {
	ctx := context.Background()
	m := service.NewGRPCMarketplace(dial(t))

	o, err := m.CreateOrder(ctx, buyer, "book-1")
	require.NoError(t, err)
	o, err = m.CancelOrder(ctx, seller, o.ID, "sold elsewhere")
	require.NoError(t, err)
	assert.Equal(t, "sold elsewhere", o.CancelReason)

	_, err = m.ConfirmDelivery(ctx, buyer, o.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	_, err = m.GetOrder(ctx, buyer, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Equal(t, codes.NotFound, status.Code(err))

	_, err = m.CreateOrder(ctx, seller, "book-1")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestCheckoutAndCatalogOverGRPC(t *testing.T) {
	ctx := context.Background()
	m := service.NewGRPCMarketplace(dial(t))

	sagaID, order, err := m.Checkout(ctx, buyer, "book-1")
	require.NoError(t, err)
	require.NotEmpty(t, sagaID)
	assert.Equal(t, domain.StatusPaid, order.Status)

	_, _, err = m.Checkout(ctx, app.Actor{UserID: "admin-1", Role: app.RoleUser}, "book-1")
	assert.ErrorIs(t, err, catalogservice.ErrReserved)

	failedID, _, err := m.Checkout(ctx, buyer, "rare")
	require.ErrorIs(t, err, domain.ErrPaymentFailed)
	require.NotEmpty(t, failedID)

	l, err := m.CheckoutStatus(ctx, buyer, failedID)
	require.NoError(t, err)
	assert.Equal(t, sagalog.StatusFailed, l.Status)

	_, err = m.CheckoutStatus(ctx, buyer, "unknown")
	assert.ErrorIs(t, err, sagalog.ErrNotFound)

	b, err := m.AddBook(ctx, seller, domain.Book{
		Title: "Seobe", Author: "Miloš Crnjanski", Condition: "odlicno", Price: 700,
		DeliveryOption: domain.DeliveryBoth, PaymentMethod: domain.PaymentCash,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.ConditionExcellent, b.Condition)

	got, err := m.GetBook(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, "seller-1", got.SellerID)

	_, err = m.GetBook(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestMissingActorIsUnauthenticated(t *testing.T) {
	client := escrowv1.NewOrderEngineClient(dial(t))
	in, err := structpb.NewStruct(map[string]any{"book_id": "book-1"})
	require.NoError(t, err)

	_, err = client.Call(context.Background(), escrowv1.MethodCreateOrder, in)
	assert.Equal(t, codes.Unauthenticated, status.Code(err))
}

func TestHealthService(t *testing.T) {
	resp, err := healthpb.NewHealthClient(dial(t)).Check(context.Background(),
		&healthpb.HealthCheckRequest{Service: escrowv1.ServiceName})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.GetStatus())
}
