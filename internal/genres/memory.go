package genres

import (
	"context"
	"sync"
)

// MemoryStore keeps lookups in process memory.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[Key]Cached
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[Key]Cached)}
}

func (s *MemoryStore) Get(_ context.Context, key Key) (Cached, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.entries[key]
	if !ok {
		return Cached{}, false, nil
	}
	c.Genres = clone(c.Genres)
	return c, true, nil
}

func (s *MemoryStore) Put(_ context.Context, key Key, c Cached) error {
	c.Genres = clone(c.Genres)
	s.mu.Lock()
	s.entries[key] = c
	s.mu.Unlock()
	return nil
}

// Len returns the number of cached lookups.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// NopStore caches nothing.
type NopStore struct{}

func (NopStore) Get(context.Context, Key) (Cached, bool, error) { return Cached{}, false, nil }
func (NopStore) Put(context.Context, Key, Cached) error         { return nil }
