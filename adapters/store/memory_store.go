package store

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/midnight-labs/pincade/core"
	"github.com/midnight-labs/pincade/ports"
)

type entry struct {
	value     string
	expiresAt time.Time
}

// MemoryStore is an in-memory implementation of the Store interface,
// primarily for tests
type MemoryStore struct {
	data map[string]entry
	mu   sync.RWMutex
}

// NewMemoryStore creates a new in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data: make(map[string]entry),
	}
}

var _ ports.Store = (*MemoryStore)(nil)

// Put upserts a key with expiry
func (s *MemoryStore) Put(ctx context.Context, key, value string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data[key] = entry{value: value, expiresAt: time.Now().Add(ttl)}
	return nil
}

// Get retrieves a value by key. Expired entries read as absent.
func (s *MemoryStore) Get(ctx context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.data[key]
	if !ok || time.Now().After(e.expiresAt) {
		return "", core.ErrRecordNotFound
	}
	return e.value, nil
}

// Delete removes a key, reporting whether it existed
func (s *MemoryStore) Delete(ctx context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.data[key]
	delete(s.data, key)
	return ok && !time.Now().After(e.expiresAt), nil
}

// DeleteAllMatching removes every live key under the prefix
func (s *MemoryStore) DeleteAllMatching(ctx context.Context, prefix string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	removed := 0
	for key, e := range s.data {
		if strings.HasPrefix(key, prefix) {
			if !now.After(e.expiresAt) {
				removed++
			}
			delete(s.data, key)
		}
	}
	return removed, nil
}

// Ping always succeeds for the in-memory store
func (s *MemoryStore) Ping(ctx context.Context) error {
	return nil
}
