package cache

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// Memory is an in-process TTL cache.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	ttl     time.Duration

	// now is injectable for expiry tests.
	now func() time.Time
}

func NewMemory(ttl time.Duration) *Memory {
	return &Memory{
		entries: map[string]memoryEntry{},
		ttl:     ttl,
		now:     time.Now,
	}
}

func (m *Memory) Get(_ context.Context, op, key string) ([]byte, bool, error) {
	m.mu.RLock()
	e, ok := m.entries[op+"\x00"+key]
	m.mu.RUnlock()
	if !ok || m.now().After(e.expiresAt) {
		return nil, false, nil
	}
	return e.value, true, nil
}

func (m *Memory) Set(_ context.Context, op, key string, value []byte) error {
	m.mu.Lock()
	m.entries[op+"\x00"+key] = memoryEntry{value: value, expiresAt: m.now().Add(m.ttl)}
	m.mu.Unlock()
	return nil
}
