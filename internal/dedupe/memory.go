package dedupe

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is the process-local fallback used when no Redis address is
// configured. Marks are lost on restart.
type MemoryStore struct {
	mu   sync.Mutex
	seen map[string]time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{seen: make(map[string]time.Time)}
}

func (s *MemoryStore) MarkIfFirst(_ context.Context, id string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for k, deadline := range s.seen {
		if now.After(deadline) {
			delete(s.seen, k)
		}
	}

	if _, ok := s.seen[id]; ok {
		return false, nil
	}
	s.seen[id] = now.Add(ttl)
	return true, nil
}

func (s *MemoryStore) Release(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.seen, id)
	return nil
}
