package revocation

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps revocation entries in process memory. It is suitable for
// tests and single-instance deployments; entries are lost on restart.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]time.Time
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]time.Time)}
}

// IsBlacklisted reports whether jti is recorded, expired or not; Prune drops old entries.
func (s *MemoryStore) IsBlacklisted(_ context.Context, jti string) (bool, error) {
	if jti == "" {
		return false, ErrEmptyID
	}
	s.mu.Lock()
	_, ok := s.entries[jti]
	s.mu.Unlock()
	return ok, nil
}

// Blacklist records jti until expiresAt.
func (s *MemoryStore) Blacklist(ctx context.Context, jti string, expiresAt time.Time) error {
	_, err := s.Claim(ctx, jti, expiresAt)
	return err
}

// Claim records jti and reports whether this call created the entry.
func (s *MemoryStore) Claim(_ context.Context, jti string, expiresAt time.Time) (bool, error) {
	if jti == "" {
		return false, ErrEmptyID
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[jti]; ok {
		return false, nil
	}
	s.entries[jti] = expiresAt
	return true, nil
}

// Prune drops entries whose expiry is at or before now.
func (s *MemoryStore) Prune(_ context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for jti, exp := range s.entries {
		if !exp.After(now) {
			delete(s.entries, jti)
			removed++
		}
	}
	return removed, nil
}

// Len reports the number of retained entries.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
