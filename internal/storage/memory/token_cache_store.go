package memory

import (
	"context"
	"sync"

	"solana-migration-sniper/internal/storage"
)

// TokenCacheStore is an in-memory implementation of storage.TokenCacheStore.
type TokenCacheStore struct {
	mu   sync.RWMutex
	data map[string]int64 // mint -> seen_at (ms)
}

// NewTokenCacheStore creates a new in-memory token cache store.
func NewTokenCacheStore() *TokenCacheStore {
	return &TokenCacheStore{
		data: make(map[string]int64),
	}
}

var _ storage.TokenCacheStore = (*TokenCacheStore)(nil)

// Add marks a mint as seen. Returns ErrDuplicateKey if already present.
func (s *TokenCacheStore) Add(_ context.Context, mint string, seenAt int64) error {
	if mint == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[mint]; exists {
		return storage.ErrDuplicateKey
	}
	s.data[mint] = seenAt
	return nil
}

// Contains reports whether the mint was seen before.
func (s *TokenCacheStore) Contains(_ context.Context, mint string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, exists := s.data[mint]
	return exists, nil
}
