package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jcmexdev/book-escrow/internal/coordinator/sagalog"
)

func TestRepository_SaveAndGetLatest(t *testing.T) {
	repo, err := Open(filepath.Join(t.TempDir(), "saga.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	ctx := context.Background()

	t0 := time.Date(2026, 5, 10, 9, 0, 0, 0, time.UTC)
	started := sagalog.NewEntry(ctx, "saga-1", sagalog.StatusStarted, "", `{"book_id":"b1"}`, nil)
	started.UpdatedAt = t0
	require.NoError(t, repo.Save(ctx, started))

	failed := sagalog.NewEntry(ctx, "saga-1", sagalog.StatusFailed, "Payment_Capture_Step", "", []string{"declined"})
	failed.UpdatedAt = t0.Add(500 * time.Millisecond)
	require.NoError(t, repo.Save(ctx, failed))

	latest, err := repo.GetLatest(ctx, "saga-1")
	require.NoError(t, err)
	assert.Equal(t, sagalog.StatusFailed, latest.Status)
	assert.Equal(t, "Payment_Capture_Step", latest.CurrentStep)
	assert.Equal(t, `["declined"]`, latest.ErrorMessages)
	assert.Empty(t, latest.Payload)
	assert.True(t, failed.UpdatedAt.Equal(latest.UpdatedAt))

	_, err = repo.GetLatest(ctx, "saga-2")
	assert.ErrorIs(t, err, sagalog.ErrNotFound)
}
