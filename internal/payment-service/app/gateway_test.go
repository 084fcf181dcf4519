package paymentservice

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jcmexdev/book-escrow/internal/order-service/domain"
	"github.com/jcmexdev/book-escrow/internal/order-service/ports"
	"github.com/jcmexdev/book-escrow/internal/pkg/cache"
)

func card(orderID string, amount int64) ports.CaptureRequest {
	return ports.CaptureRequest{OrderID: orderID, BuyerID: "buyer", Amount: amount, Method: domain.PaymentCard}
}

func TestGateway_CaptureIsIdempotent(t *testing.T) {
	g := NewGateway(Config{}, cache.NewMemoryCache("payment"))
	ctx := context.Background()

	first, err := g.Capture(ctx, card("o1", 1350))
	require.NoError(t, err)
	require.True(t, first.Approved)
	assert.NotEmpty(t, first.Reference)

	second, err := g.Capture(ctx, card("o1", 1350))
	require.NoError(t, err)
	assert.Equal(t, first.Reference, second.Reference)
}

func TestGateway_Declines(t *testing.T) {
	g := NewGateway(Config{DeclineAbove: 5000}, cache.NewMemoryCache("payment"))

	res, err := g.Capture(context.Background(), card("o1", 5001))
	require.NoError(t, err)
	assert.False(t, res.Approved)
	assert.NotEmpty(t, res.Reason)

	res, err = g.Capture(context.Background(), card("o2", 5000))
	require.NoError(t, err)
	assert.True(t, res.Approved)
}

func TestGateway_CaptureHonoursDeadline(t *testing.T) {
	g := NewGateway(Config{Delay: time.Second}, cache.NewMemoryCache("payment"))
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := g.Capture(ctx, card("o1", 100))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestGateway_CashSkipsCapture(t *testing.T) {
	g := NewGateway(Config{DeclineAbove: 1}, cache.NewMemoryCache("payment"))

	res, err := g.Capture(context.Background(), ports.CaptureRequest{OrderID: "o1", Amount: 900, Method: domain.PaymentCash})
	require.NoError(t, err)
	assert.True(t, res.Approved)
	assert.Equal(t, "cod_o1", res.Reference)

	err = g.Refund(context.Background(), ports.RefundRequest{OrderID: "o1", Reference: res.Reference, Amount: 900})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestGateway_Refund(t *testing.T) {
	g := NewGateway(Config{}, cache.NewMemoryCache("payment"))
	ctx := context.Background()

	res, err := g.Capture(ctx, card("o1", 1350))
	require.NoError(t, err)

	req := ports.RefundRequest{OrderID: "o1", Reference: res.Reference, Amount: 1350}
	require.NoError(t, g.Refund(ctx, req))
	require.NoError(t, g.Refund(ctx, req))

	err = g.Refund(ctx, ports.RefundRequest{OrderID: "o2", Reference: "pay_unknown", Amount: 10})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	res, _ = g.Capture(ctx, card("o3", 100))
	err = g.Refund(ctx, ports.RefundRequest{OrderID: "o3", Reference: res.Reference, Amount: 101})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestGateway_RefundAfterRestart(t *testing.T) {
	shared := cache.NewMemoryCache("payment")
	ctx := context.Background()

	before := NewGateway(Config{}, shared)
	res, err := before.Capture(ctx, card("o1", 1350))
	require.NoError(t, err)
	require.True(t, res.Approved)

	after := NewGateway(Config{}, shared)
	err = after.Refund(ctx, ports.RefundRequest{OrderID: "o1", Reference: res.Reference, Amount: 1400})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	req := ports.RefundRequest{OrderID: "o1", Reference: res.Reference, Amount: 1350}
	require.NoError(t, after.Refund(ctx, req))

	// A third instance sees the refund marker and does not refund again.
	again := NewGateway(Config{}, shared)
	require.NoError(t, again.Refund(ctx, req))
	marker, err := shared.Get(ctx, shared.GenerateKey("refund", res.Reference))
	require.NoError(t, err)
	assert.Equal(t, "o1", marker)
}

func TestGateway_CaptureAfterRefundChargesAgain(t *testing.T) {
	g := NewGateway(Config{}, cache.NewMemoryCache("payment"))
	ctx := context.Background()

	first, err := g.Capture(ctx, card("o1", 500))
	require.NoError(t, err)
	require.NoError(t, g.Refund(ctx, ports.RefundRequest{OrderID: "o1", Reference: first.Reference, Amount: 500}))

	second, err := g.Capture(ctx, card("o1", 500))
	require.NoError(t, err)
	require.True(t, second.Approved)
	assert.NotEqual(t, first.Reference, second.Reference)

	// The second charge is refundable even though the order was refunded before.
	require.NoError(t, g.Refund(ctx, ports.RefundRequest{OrderID: "o1", Reference: second.Reference, Amount: 500}))
	marker, err := g.cache.Get(ctx, g.cache.GenerateKey("refund", second.Reference))
	require.NoError(t, err)
	assert.Equal(t, "o1", marker)
}
