package history

import (
	"context"
	"sync"
)

// memoryStore is a bounded ring of recent entries, newest first on read.
type memoryStore struct {
	mu       sync.RWMutex
	entries  []Entry
	capacity int
}

// NewMemory builds an in-memory history store.
func NewMemory(cfg Config) Store {
	capacity := cfg.Capacity
	if capacity <= 0 {
		capacity = 100
	}
	return &memoryStore{
		entries:  make([]Entry, 0, capacity),
		capacity: capacity,
	}
}

func (s *memoryStore) Append(ctx context.Context, entry Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = append(s.entries, entry)
	if len(s.entries) > s.capacity {
		s.entries = s.entries[len(s.entries)-s.capacity:]
	}
	return nil
}

func (s *memoryStore) Recent(ctx context.Context, limit int) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 || limit > len(s.entries) {
		limit = len(s.entries)
	}

	out := make([]Entry, 0, limit)
	for i := len(s.entries) - 1; i >= len(s.entries)-limit; i-- {
		out = append(out, s.entries[i])
	}
	return out, nil
}

func (s *memoryStore) Close(ctx context.Context) error {
	return nil
}
