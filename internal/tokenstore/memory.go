package tokenstore

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-process Store for tests and single-instance development.
type MemoryStore struct {
	mu      sync.Mutex
	ttl     time.Duration
	clock   func() time.Time
	entries map[string]memoryEntry
}

type memoryEntry struct {
	token     string
	expiresAt time.Time
}

// NewMemoryStore returns a store whose values expire after ttl (0 keeps them forever).
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{ttl: ttl, clock: time.Now, entries: map[string]memoryEntry{}}
}

func (s *MemoryStore) Put(ctx context.Context, principalID, token string) error {
	if principalID == "" || token == "" {
		return ErrInvalidArgument
	}
	e := memoryEntry{token: token}
	if s.ttl > 0 {
		e.expiresAt = s.clock().Add(s.ttl)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[principalID] = e
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, principalID string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[principalID]
	if !ok {
		return "", false, nil
	}
	if !e.expiresAt.IsZero() && !s.clock().Before(e.expiresAt) {
		delete(s.entries, principalID)
		return "", false, nil
	}
	return e.token, true, nil
}

func (s *MemoryStore) Clear(ctx context.Context, principalID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, principalID)
	return nil
}
