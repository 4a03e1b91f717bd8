package cache

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

// MemoryCache is the fallback used when no Redis address is configured.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	ttl     time.Duration
	now     func() time.Time
}

type memoryEntry struct {
	payload   []byte
	expiresAt time.Time
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		entries: make(map[string]memoryEntry),
		ttl:     15 * time.Minute,
		now:     time.Now,
	}
}

func (m *MemoryCache) Get(_ context.Context, key string, dest any) error {
	m.mu.RLock()
	entry, ok := m.entries[key]
	m.mu.RUnlock()
	if !ok || m.now().After(entry.expiresAt) {
		return ErrCacheMiss
	}
	return json.Unmarshal(entry.payload, dest)
}

func (m *MemoryCache) Set(_ context.Context, key string, value any) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.entries[key] = memoryEntry{payload: payload, expiresAt: m.now().Add(m.ttl)}
	m.mu.Unlock()
	return nil
}

func (m *MemoryCache) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.entries, key)
	m.mu.Unlock()
	return nil
}

// MemorySearchHistory mirrors the Redis list semantics for guest sessions and
// tests.
type MemorySearchHistory struct {
	mu    sync.Mutex
	terms map[string][]string
	limit int
}

func NewMemorySearchHistory(limit int) *MemorySearchHistory {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return &MemorySearchHistory{
		terms: make(map[string][]string),
		limit: limit,
	}
}

func (m *MemorySearchHistory) Record(_ context.Context, shopperID, term string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing := m.terms[shopperID]
	next := make([]string, 0, len(existing)+1)
	next = append(next, term)
	for _, t := range existing {
		if t == term {
			continue
		}
		next = append(next, t)
	}
	if len(next) > m.limit {
		next = next[:m.limit]
	}
	m.terms[shopperID] = next
	return nil
}

func (m *MemorySearchHistory) Recent(_ context.Context, shopperID string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing := m.terms[shopperID]
	out := make([]string, len(existing))
	copy(out, existing)
	return out, nil
}

func (m *MemorySearchHistory) Clear(_ context.Context, shopperID string) error {
	m.mu.Lock()
	delete(m.terms, shopperID)
	m.mu.Unlock()
	return nil
}

var (
	_ Cache         = (*MemoryCache)(nil)
	_ SearchHistory = (*MemorySearchHistory)(nil)
)
