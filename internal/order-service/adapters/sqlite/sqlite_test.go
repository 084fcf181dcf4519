package sqlite

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jcmexdev/book-escrow/internal/order-service/domain"
	"github.com/jcmexdev/book-escrow/internal/order-service/ports"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "escrow.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func newOrder(id, buyer string, createdAt time.Time) *domain.Order {
	return &domain.Order{
		ID: id, BookID: "book-" + id, BuyerID: buyer, SellerID: "seller-1",
		PaymentMethod: domain.PaymentCard, Price: 2000, TotalAmount: 2350,
		ShippingFee: 350, PlatformFee: 200, Status: domain.StatusPending,
		CreatedAt: createdAt, UpdatedAt: createdAt, Version: 1,
	}
}

func TestOrderRepository_RoundTrip(t *testing.T) {
	repo := NewOrderRepository(openTestDB(t))
	ctx := context.Background()
	t0 := time.Date(2026, 5, 10, 9, 0, 0, 0, time.UTC)

	o := newOrder("o1", "buyer-1", t0)
	o.Donation = true
	require.NoError(t, repo.Create(ctx, o))

	got, err := repo.Get(ctx, "o1")
	require.NoError(t, err)
	assert.Equal(t, o, got)

	_, err = repo.Get(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestOrderRepository_CompareAndSwap(t *testing.T) {
	repo := NewOrderRepository(openTestDB(t))
	ctx := context.Background()
	t0 := time.Date(2026, 5, 10, 9, 0, 0, 0, time.UTC)
	require.NoError(t, repo.Create(ctx, newOrder("o1", "buyer-1", t0)))

	o, err := repo.Get(ctx, "o1")
	require.NoError(t, err)
	deadline := t0.Add(48 * time.Hour)
	o.Status = domain.StatusDelivered
	o.TrackingNumber = "PE123456789RS"
	o.DeliveredAt = &t0
	o.DisputeDeadline = &deadline
	o.Version = 2
	require.NoError(t, repo.Update(ctx, o))

	stale := o.Clone()
	stale.Status = domain.StatusDisputed
	assert.ErrorIs(t, repo.Update(ctx, stale), domain.ErrConcurrentModification)

	got, err := repo.Get(ctx, "o1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDelivered, got.Status)
	assert.Equal(t, "PE123456789RS", got.TrackingNumber)
	require.NotNil(t, got.DisputeDeadline)
	assert.True(t, deadline.Equal(*got.DisputeDeadline))
	assert.Nil(t, got.PaidAt)

	ghost := newOrder("ghost", "buyer-1", t0)
	ghost.Version = 2
	assert.ErrorIs(t, repo.Update(ctx, ghost), domain.ErrNotFound)
}

func TestOrderRepository_Listing(t *testing.T) {
	repo := NewOrderRepository(openTestDB(t))
	ctx := context.Background()
	t0 := time.Date(2026, 5, 10, 9, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Create(ctx, newOrder("a", "buyer-1", t0)))
	require.NoError(t, repo.Create(ctx, newOrder("b", "buyer-1", t0.Add(time.Second))))
	require.NoError(t, repo.Create(ctx, newOrder("c", "buyer-2", t0.Add(500*time.Millisecond))))

	mine, err := repo.ListByBuyer(ctx, "buyer-1")
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, "b", mine[0].ID)
	assert.Equal(t, "a", mine[1].ID)

	sales, err := repo.ListBySeller(ctx, "seller-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "c", "a"}, ids(sales))

	pending, err := repo.ListByStatus(ctx, domain.StatusPending, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c"}, ids(pending))

	all, err := repo.ListByStatus(ctx, domain.StatusPending, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	none, err := repo.ListByBuyer(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestOrderRepository_ListDueForSettlement(t *testing.T) {
	repo := NewOrderRepository(openTestDB(t))
	ctx := context.Background()
	t0 := time.Date(2026, 5, 10, 9, 0, 0, 0, time.UTC)

	deliver := func(id string, createdAt, deliveredAt time.Time) {
		o := newOrder(id, "buyer-1", createdAt)
		o.Status = domain.StatusDelivered
		deadline := deliveredAt.Add(domain.DisputeWindow)
		o.DeliveredAt, o.DisputeDeadline = &deliveredAt, &deadline
		require.NoError(t, repo.Create(ctx, o))
	}
	deliver("oldest-not-due", t0, t0.Add(47*time.Hour))
	deliver("due-late", t0.Add(time.Hour), t0.Add(time.Hour))
	deliver("due-early", t0.Add(2*time.Hour), t0.Add(30*time.Minute))
	require.NoError(t, repo.Create(ctx, newOrder("pending", "buyer-1", t0)))

	now := t0.Add(49 * time.Hour)
	due, err := repo.ListDueForSettlement(ctx, now, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"due-early", "due-late"}, ids(due))

	first, err := repo.ListDueForSettlement(ctx, now, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"due-early"}, ids(first))

	atDeadline, err := repo.ListDueForSettlement(ctx, t0.Add(30*time.Minute+domain.DisputeWindow), 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"due-early"}, ids(atDeadline))
}

func ids(orders []*domain.Order) []string {
	out := make([]string, len(orders))
	for i, o := range orders {
		out[i] = o.ID
	}
	return out
}

func TestLedgerRepository(t *testing.T) {
	repo := NewLedgerRepository(openTestDB(t))
	ctx := context.Background()
	at := time.Date(2026, 5, 12, 9, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Append(ctx, domain.LedgerEntry{EntryID: "e1", OrderID: "o1", UserID: "buyer-1", Type: domain.EntryHold, Amount: 2350, OccurredAt: at}))
	require.NoError(t, repo.Append(ctx, domain.LedgerEntry{EntryID: "e2", OrderID: "o1", UserID: "seller-1", Type: domain.EntryRelease, Amount: 1800, OccurredAt: at.Add(time.Hour)}))
	require.NoError(t, repo.Append(ctx, domain.LedgerEntry{EntryID: "e3", OrderID: "o2", UserID: "seller-1", Type: domain.EntryRelease, Amount: 900, OccurredAt: at}))

	err := repo.Append(ctx, domain.LedgerEntry{EntryID: "e4", OrderID: "o1", UserID: "seller-1", Type: domain.EntryRelease, Amount: 1800, OccurredAt: at})
	assert.ErrorIs(t, err, ports.ErrDuplicateEntry)

	entries, err := repo.ListByOrder(ctx, "o1")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, domain.EntryHold, entries[0].Type)
	assert.True(t, at.Equal(entries[0].OccurredAt))

	sum, err := repo.SumByUser(ctx, "seller-1", domain.EntryRelease)
	require.NoError(t, err)
	assert.Equal(t, int64(2700), sum)

	sum, err = repo.SumByUser(ctx, "nobody", domain.EntryRelease)
	require.NoError(t, err)
	assert.Zero(t, sum)
}

func TestOpen_Reopens(t *testing.T) {
	path := filepath.Join(t.TempDir(), "escrow.db")
	db, err := Open(path)
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, NewOrderRepository(db).Create(ctx, newOrder("o1", "buyer-1", time.Now().UTC())))
	require.NoError(t, db.Close())

	db, err = Open(path)
	require.NoError(t, err)
	defer db.Close()
	_, err = NewOrderRepository(db).Get(ctx, "o1")
	assert.NoError(t, err)
}
