package sagalog

import (
	"context"
	"sync"
)

// MemoryRepository keeps the log in process; used when no database path is
// configured and in tests.
type MemoryRepository struct {
	mu      sync.RWMutex
	entries map[string][]SagaLog
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{entries: make(map[string][]SagaLog)}
}

func (m *MemoryRepository) Save(_ context.Context, entry *SagaLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[entry.SagaID] = append(m.entries[entry.SagaID], *entry)
	return nil
}

func (m *MemoryRepository) GetLatest(_ context.Context, sagaID string) (*SagaLog, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rows := m.entries[sagaID]
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	last := rows[len(rows)-1]
	return &last, nil
}

// History returns every row written for sagaID, oldest first.
func (m *MemoryRepository) History(sagaID string) []SagaLog {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]SagaLog(nil), m.entries[sagaID]...)
}
