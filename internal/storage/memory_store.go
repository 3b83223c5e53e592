package storage

import (
	"context"
	"sync"

	"github.com/samvad-hq/samvad-notice-harvester/internal/domain"
)

// MemoryStore keeps notices in process memory. Useful for dry runs.
type MemoryStore struct {
	mu      sync.Mutex
	notices map[string]domain.Notice
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{notices: make(map[string]domain.Notice)}
}

func (m *MemoryStore) Persist(ctx context.Context, n domain.Notice) (Outcome, error) {
	if err := ctx.Err(); err != nil {
		return 0, &PersistError{Link: n.Link, Err: err}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.notices[n.Link]; ok {
		return Duplicate, nil
	}
	m.notices[n.Link] = n
	return Inserted, nil
}

func (m *MemoryStore) Close() error { return nil }

// Get returns the stored notice for link.
func (m *MemoryStore) Get(link string) (domain.Notice, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.notices[link]
	return n, ok
}

// Len reports how many notices are stored.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.notices)
}
