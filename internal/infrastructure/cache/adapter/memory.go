package adapter

import (
	"context"
	"sync"
	"time"

	"marketchat/internal/infrastructure/cache/port"
)

// MemoryCache is an in-process port.Cache used when no redis URL is configured
// and in tests. Expiry is checked lazily on read.
type MemoryCache struct {
	mu    sync.RWMutex
	items map[string]memoryItem
}

type memoryItem struct {
	value     string
	expiresAt time.Time // zero means no expiration
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{items: make(map[string]memoryItem)}
}

var _ port.Cache = (*MemoryCache)(nil)

func (m *MemoryCache) Get(ctx context.Context, key string) (string, error) {
	m.mu.RLock()
	it, ok := m.items[key]
	m.mu.RUnlock()
	if !ok {
		return "", port.ErrMiss
	}
	if !it.expiresAt.IsZero() && time.Now().After(it.expiresAt) {
		m.mu.Lock()
		delete(m.items, key)
		m.mu.Unlock()
		return "", port.ErrMiss
	}
	return it.value, nil
}

func (m *MemoryCache) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	it := memoryItem{value: value}
	if ttl > 0 {
		it.expiresAt = time.Now().Add(ttl)
	}
	m.mu.Lock()
	m.items[key] = it
	m.mu.Unlock()
	return nil
}

func (m *MemoryCache) Del(ctx context.Context, keys ...string) (int64, error) {
	var removed int64
	m.mu.Lock()
	for _, key := range keys {
		if _, ok := m.items[key]; ok {
			delete(m.items, key)
			removed++
		}
	}
	m.mu.Unlock()
	return removed, nil
}

func (m *MemoryCache) Ping(ctx context.Context) error { return nil }

func (m *MemoryCache) Close() error { return nil }
