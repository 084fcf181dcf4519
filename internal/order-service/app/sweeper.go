package app

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jcmexdev/book-escrow/internal/order-service/domain"
)

const paymentTimeoutReason = "payment timeout"

// SweepResult counts what a single settlement pass changed.
type SweepResult struct {
	Completed int
	Cancelled int
}

// SettleExpired completes delivered orders whose dispute window elapsed at now
// and cancels pending orders older than the configured pending TTL.
func (e *Engine) SettleExpired(ctx context.Context, now time.Time) (SweepResult, error) {
	var res SweepResult

	due, err := e.orders.ListDueForSettlement(ctx, now, e.cfg.SweepBatchSize)
	if err != nil {
		return res, err
	}
	for _, o := range due {
		settled, err := e.withOrder(ctx, "settle", o.ID, SystemActor, nil)
		if err != nil {
			if errors.Is(err, domain.ErrConcurrentModification) {
				continue
			}
			return res, err
		}
		if settled.Status == domain.StatusCompleted {
			res.Completed++
		}
	}

	pending, err := e.orders.ListByStatus(ctx, domain.StatusPending, e.cfg.SweepBatchSize)
	if err != nil {
		return res, err
	}
	cutoff := now.Add(-e.cfg.PendingTTL)
	for _, o := range pending {
		if o.CreatedAt.After(cutoff) {
			continue
		}
		_, err := e.CancelOrder(ctx, SystemActor, o.ID, paymentTimeoutReason)
		switch {
		case err == nil:
			res.Cancelled++
		case errors.Is(err, domain.ErrInvalidTransition), errors.Is(err, domain.ErrConcurrentModification):
			// paid or cancelled by someone else meanwhile
		default:
			return res, err
		}
	}
	return res, nil
}

// RunSweeper calls SettleExpired every SweepInterval until ctx is done.
func (e *Engine) RunSweeper(ctx context.Context) {
	ticker := time.NewTicker(e.cfg.SweepInterval)
	defer ticker.Stop()

	slog.InfoContext(ctx, "settlement sweeper started", "interval", e.cfg.SweepInterval.String())
	for {
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "settlement sweeper stopped")
			return
		case <-ticker.C:
			res, err := e.SettleExpired(ctx, e.nowFn())
			if err != nil {
				slog.ErrorContext(ctx, "settlement sweep failed", "error", err)
				continue
			}
			if res.Completed > 0 || res.Cancelled > 0 {
				slog.InfoContext(ctx, "settlement sweep done", "completed", res.Completed, "cancelled", res.Cancelled)
			}
		}
	}
}
