package postgres

import (
	"context"
	"fmt"

	"solana-migration-sniper/internal/storage"
)

// TokenCacheStore implements storage.TokenCacheStore using PostgreSQL.
type TokenCacheStore struct {
	pool *Pool
}

// NewTokenCacheStore creates a new TokenCacheStore.
func NewTokenCacheStore(pool *Pool) *TokenCacheStore {
	return &TokenCacheStore{pool: pool}
}

// Compile-time interface check.
var _ storage.TokenCacheStore = (*TokenCacheStore)(nil)

// Add marks a mint as seen. Returns ErrDuplicateKey if already present.
func (s *TokenCacheStore) Add(ctx context.Context, mint string, seenAt int64) error {
	if mint == "" {
		return storage.ErrInvalidInput
	}

	query := `INSERT INTO token_cache (mint, seen_at) VALUES ($1, $2)`

	_, err := s.pool.Exec(ctx, query, mint, seenAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert token cache entry: %w", err)
	}
	return nil
}

// Contains reports whether the mint was seen before.
func (s *TokenCacheStore) Contains(ctx context.Context, mint string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM token_cache WHERE mint = $1)`

	var exists bool
	if err := s.pool.QueryRow(ctx, query, mint).Scan(&exists); err != nil {
		return false, fmt.Errorf("check token cache: %w", err)
	}
	return exists, nil
}
