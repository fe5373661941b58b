package storage

import (
	"context"
	"sync"

	"github.com/rl1809/gomarket-cart/internal/port"
)

// MemoryAdapter is a process-local repository for development and tests.
type MemoryAdapter struct {
	mu      sync.RWMutex
	entries map[string]port.Entry
}

var _ port.KeyValueRepository = (*MemoryAdapter)(nil)

func NewMemoryAdapter() *MemoryAdapter {
	return &MemoryAdapter{entries: make(map[string]port.Entry)}
}

func (m *MemoryAdapter) Get(ctx context.Context, key string) (port.Entry, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entry, ok := m.entries[key]
	return entry, ok, nil
}

func (m *MemoryAdapter) Set(ctx context.Context, key string, entry port.Entry) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if current, ok := m.entries[key]; ok && current.Version >= entry.Version {
		return false, nil
	}
	m.entries[key] = entry
	return true, nil
}

func (m *MemoryAdapter) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.entries, key)
	return nil
}
