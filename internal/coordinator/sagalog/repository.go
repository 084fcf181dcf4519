package sagalog

import (
	"context"
	"errors"
)

// ErrNotFound is returned by GetLatest for an unknown saga id.
var ErrNotFound = errors.New("saga not found")

// Repository persists saga log entries. Save appends; it never upserts.
type Repository interface {
	Save(ctx context.Context, entry *SagaLog) error
	GetLatest(ctx context.Context, sagaID string) (*SagaLog, error)
}
