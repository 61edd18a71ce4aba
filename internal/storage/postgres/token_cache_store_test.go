package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"solana-migration-sniper/internal/storage"
	"solana-migration-sniper/internal/storage/postgres"
)

func TestTokenCacheStore_AddAndContains(t *testing.T) {
	pool := setupTestDB(t)
	store := postgres.NewTokenCacheStore(pool)
	ctx := context.Background()

	seen, err := store.Contains(ctx, "MintA")
	require.NoError(t, err)
	require.False(t, seen)

	require.NoError(t, store.Add(ctx, "MintA", time.Now().Unix()))

	seen, err = store.Contains(ctx, "MintA")
	require.NoError(t, err)
	require.True(t, seen)
}

func TestTokenCacheStore_Duplicate(t *testing.T) {
	pool := setupTestDB(t)
	store := postgres.NewTokenCacheStore(pool)
	ctx := context.Background()

	require.NoError(t, store.Add(ctx, "MintA", 1))

	err := store.Add(ctx, "MintA", 2)
	require.ErrorIs(t, err, storage.ErrDuplicateKey)
}

func TestTokenCacheStore_EmptyMint(t *testing.T) {
	pool := setupTestDB(t)
	store := postgres.NewTokenCacheStore(pool)

	err := store.Add(context.Background(), "", 1)
	require.ErrorIs(t, err, storage.ErrInvalidInput)
}
