package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"

	"github.com/rl1809/gomarket-cart/internal/port"
)

var errRepoUnavailable = errors.New("repository unavailable")

// Mock KeyValueRepository
type mockKVRepo struct {
	mu       sync.Mutex
	entries  map[string]port.Entry
	setCalls int
	failSets int // number of upcoming Set calls that fail
	getErr   error
}

func newMockKVRepo() *mockKVRepo {
	return &mockKVRepo{entries: make(map[string]port.Entry)}
}

func (m *mockKVRepo) Get(ctx context.Context, key string) (port.Entry, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.getErr != nil {
		return port.Entry{}, false, m.getErr
	}
	entry, ok := m.entries[key]
	return entry, ok, nil
}

func (m *mockKVRepo) Set(ctx context.Context, key string, entry port.Entry) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.setCalls++
	if m.failSets > 0 {
		m.failSets--
		return false, errRepoUnavailable
	}
	if current, ok := m.entries[key]; ok && current.Version >= entry.Version {
		return false, nil
	}
	m.entries[key] = entry
	return true, nil
}

func (m *mockKVRepo) entry(key string) (port.Entry, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[key]
	return e, ok
}

func (m *mockKVRepo) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.setCalls
}

// gatedKVRepo blocks every Set until release is closed.
type gatedKVRepo struct {
	*mockKVRepo
	entered chan struct{}
	release chan struct{}
}

func newGatedKVRepo() *gatedKVRepo {
	return &gatedKVRepo{
		mockKVRepo: newMockKVRepo(),
		entered:    make(chan struct{}, 100),
		release:    make(chan struct{}),
	}
}

func (g *gatedKVRepo) Set(ctx context.Context, key string, entry port.Entry) (bool, error) {
	g.entered <- struct{}{}
	<-g.release
	return g.mockKVRepo.Set(ctx, key, entry)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
