package cache

import (
	"context"
	"fmt"
	"sync"
	"time"
)

type memoryItem struct {
	value     string
	expiresAt time.Time
}

type memoryCache struct {
	mu        sync.Mutex
	items     map[string]memoryItem
	namespace string
	nowFn     func() time.Time
}

// NewMemoryCache is the in-process Cache used when no Redis address is configured.
func NewMemoryCache(namespace string) Cache {
	return &memoryCache{
		items:     make(map[string]memoryItem),
		namespace: namespace,
		nowFn:     time.Now,
	}
}

func (m *memoryCache) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	item := memoryItem{value: fmt.Sprint(value)}
	if ttl > 0 {
		item.expiresAt = m.nowFn().Add(ttl)
	}
	m.items[key] = item
	return nil
}

func (m *memoryCache) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	item, ok := m.items[key]
	if !ok {
		return "", nil
	}
	if !item.expiresAt.IsZero() && !m.nowFn().Before(item.expiresAt) {
		delete(m.items, key)
		return "", nil
	}
	return item.value, nil
}

func (m *memoryCache) GenerateKey(operation, key string) string {
	return generateKey(m.namespace, operation, key)
}
