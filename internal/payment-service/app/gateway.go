// Package paymentservice simulates the card processor behind order escrow.
package paymentservice

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jcmexdev/book-escrow/internal/order-service/domain"
	"github.com/jcmexdev/book-escrow/internal/order-service/ports"
	"github.com/jcmexdev/book-escrow/internal/pkg/cache"
)

const (
	idempotencyTTL = 24 * time.Hour
	// Capture records must outlive the shipping and dispute windows so a
	// late refund still finds the original charge.
	captureRecordTTL = 90 * 24 * time.Hour
)

type Config struct {
	// Delay is added to every capture to mimic processor latency.
	Delay time.Duration
	// DeclineAbove rejects captures over this amount; 0 accepts everything.
	DeclineAbove int64
}

type Gateway struct {
	cfg   Config
	cache cache.Cache

	// mu serialises refunds issued by this process.
	mu sync.Mutex
}

// NewGateway keeps idempotency keys and capture records in c, so gateways
// sharing a Redis cache see each other's captures across restarts.
func NewGateway(cfg Config, c cache.Cache) *Gateway {
	return &Gateway{cfg: cfg, cache: c}
}

var _ ports.PaymentGateway = (*Gateway)(nil)

// Capture charges the buyer. A second capture for the same order returns the
// first approval's reference without charging again.
func (g *Gateway) Capture(ctx context.Context, req ports.CaptureRequest) (ports.CaptureResult, error) {
	if req.Method == domain.PaymentCash {
		return ports.CaptureResult{Approved: true, Reference: "cod_" + req.OrderID}, nil
	}

	key := g.cache.GenerateKey("capture", req.OrderID)
	if ref, err := g.cache.Get(ctx, key); err != nil {
		slog.WarnContext(ctx, "payment idempotency lookup failed", "order_id", req.OrderID, "error", err)
	} else if ref != "" {
		slog.InfoContext(ctx, "duplicate capture, returning stored reference", "order_id", req.OrderID, "reference", ref)
		return ports.CaptureResult{Approved: true, Reference: ref}, nil
	}

	if g.cfg.Delay > 0 {
		select {
		case <-time.After(g.cfg.Delay):
		case <-ctx.Done():
			return ports.CaptureResult{}, fmt.Errorf("capture order %s: %w", req.OrderID, ctx.Err())
		}
	}

	slog.InfoContext(ctx, "processing capture", "order_id", req.OrderID, "amount", req.Amount)
	if req.Amount <= 0 {
		return ports.CaptureResult{Approved: false, Reason: "invalid amount"}, nil
	}
	if g.cfg.DeclineAbove > 0 && req.Amount > g.cfg.DeclineAbove {
		slog.WarnContext(ctx, "capture declined", "order_id", req.OrderID, "amount", req.Amount, "limit", g.cfg.DeclineAbove)
		return ports.CaptureResult{Approved: false, Reason: "amount exceeds card limit"}, nil
	}

	ref := "pay_" + uuid.NewString()
	if err := g.cache.Set(ctx, g.cache.GenerateKey("captured", ref), req.Amount, captureRecordTTL); err != nil {
		return ports.CaptureResult{}, fmt.Errorf("record capture for order %s: %w", req.OrderID, err)
	}
	if err := g.cache.Set(ctx, key, ref, idempotencyTTL); err != nil {
		slog.WarnContext(ctx, "payment idempotency store failed", "order_id", req.OrderID, "error", err)
	}
	slog.InfoContext(ctx, "capture approved", "order_id", req.OrderID, "reference", ref)
	return ports.CaptureResult{Approved: true, Reference: ref}, nil
}

// Refund returns a captured amount to the buyer. Refunding the same capture
// twice is a no-op. Once refunded, a new capture for the order charges afresh.
func (g *Gateway) Refund(ctx context.Context, req ports.RefundRequest) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	refundKey := g.cache.GenerateKey("refund", req.Reference)
	done, err := g.cache.Get(ctx, refundKey)
	if err != nil {
		return fmt.Errorf("refund order %s: %w", req.OrderID, err)
	}
	if done != "" {
		return nil
	}

	amount, err := g.capturedAmount(ctx, req.Reference)
	if err != nil {
		return fmt.Errorf("refund order %s: %w", req.OrderID, err)
	}
	if req.Amount > amount {
		return fmt.Errorf("refund %d exceeds captured %d: %w", req.Amount, amount, domain.ErrInvalidInput)
	}
	if err := g.cache.Set(ctx, refundKey, req.OrderID, captureRecordTTL); err != nil {
		return fmt.Errorf("record refund for order %s: %w", req.OrderID, err)
	}
	if err := g.cache.Set(ctx, g.cache.GenerateKey("capture", req.OrderID), "", idempotencyTTL); err != nil {
		slog.WarnContext(ctx, "payment idempotency reset failed", "order_id", req.OrderID, "error", err)
	}
	slog.InfoContext(ctx, "refund issued", "order_id", req.OrderID, "reference", req.Reference, "amount", req.Amount)
	return nil
}

func (g *Gateway) capturedAmount(ctx context.Context, ref string) (int64, error) {
	raw, err := g.cache.Get(ctx, g.cache.GenerateKey("captured", ref))
	if err != nil {
		return 0, err
	}
	if raw == "" {
		return 0, fmt.Errorf("no capture %q: %w", ref, domain.ErrNotFound)
	}
	amount, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("capture %q has malformed amount %q: %w", ref, raw, err)
	}
	return amount, nil
}
