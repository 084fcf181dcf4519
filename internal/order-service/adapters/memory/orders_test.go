package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jcmexdev/book-escrow/internal/order-service/domain"
)

func TestOrderRepository_ListDueForSettlement(t *testing.T) {
	repo := NewOrderRepository()
	ctx := context.Background()
	t0 := time.Date(2026, 5, 10, 9, 0, 0, 0, time.UTC)

	deliver := func(id string, createdAt, deliveredAt time.Time) {
		deadline := deliveredAt.Add(domain.DisputeWindow)
		require.NoError(t, repo.Create(ctx, &domain.Order{
			ID: id, Status: domain.StatusDelivered, CreatedAt: createdAt,
			DeliveredAt: &deliveredAt, DisputeDeadline: &deadline, Version: 1,
		}))
	}
	deliver("oldest-not-due", t0, t0.Add(47*time.Hour))
	deliver("due-late", t0.Add(time.Hour), t0.Add(time.Hour))
	deliver("due-early", t0.Add(2*time.Hour), t0.Add(30*time.Minute))
	require.NoError(t, repo.Create(ctx, &domain.Order{ID: "pending", Status: domain.StatusPending, CreatedAt: t0, Version: 1}))

	due, err := repo.ListDueForSettlement(ctx, t0.Add(49*time.Hour), 1)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, "due-early", due[0].ID)

	due, err = repo.ListDueForSettlement(ctx, t0.Add(49*time.Hour), 0)
	require.NoError(t, err)
	require.Len(t, due, 2)
	assert.Equal(t, "due-late", due[1].ID)
}
