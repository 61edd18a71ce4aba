package clickhouse

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-migration-sniper/internal/domain"
	"solana-migration-sniper/internal/storage"
)

func tick(mint string, ts int64, price float64) *domain.PriceTick {
	return &domain.PriceTick{Mint: mint, TimestampMs: ts, Price: price}
}

func TestPriceTickStore_InsertBulk(t *testing.T) {
	conn := setupTestDB(t)
	store := NewPriceTickStore(conn)
	ctx := context.Background()

	// Empty insert is a no-op.
	require.NoError(t, store.InsertBulk(ctx, nil))

	err := store.InsertBulk(ctx, []*domain.PriceTick{
		tick("MintA", 1000, 0.0000412),
		tick("MintA", 2000, 0.0000425),
	})
	require.NoError(t, err)

	got, err := store.GetByMint(ctx, "MintA")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, int64(1000), got[0].TimestampMs)
	assert.Equal(t, 0.0000412, got[0].Price)
	assert.Equal(t, int64(2000), got[1].TimestampMs)
}

func TestPriceTickStore_InsertBulk_DuplicateKey(t *testing.T) {
	conn := setupTestDB(t)
	store := NewPriceTickStore(conn)
	ctx := context.Background()

	points := []*domain.PriceTick{tick("MintA", 1000, 1.5)}
	require.NoError(t, store.InsertBulk(ctx, points))

	err := store.InsertBulk(ctx, points)
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}

func TestPriceTickStore_InsertBulk_IntraBatchDuplicate(t *testing.T) {
	conn := setupTestDB(t)
	store := NewPriceTickStore(conn)
	ctx := context.Background()

	err := store.InsertBulk(ctx, []*domain.PriceTick{
		tick("MintA", 1000, 1.5),
		tick("MintA", 1000, 2.0),
	})
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}

func TestPriceTickStore_InsertBulk_InvalidInput(t *testing.T) {
	conn := setupTestDB(t)
	store := NewPriceTickStore(conn)

	err := store.InsertBulk(context.Background(), []*domain.PriceTick{tick("", 1000, 1.5)})
	assert.ErrorIs(t, err, storage.ErrInvalidInput)
}

func TestPriceTickStore_GetByMint(t *testing.T) {
	conn := setupTestDB(t)
	store := NewPriceTickStore(conn)
	ctx := context.Background()

	err := store.InsertBulk(ctx, []*domain.PriceTick{
		tick("MintA", 2000, 2.0),
		tick("MintA", 1000, 1.0),
		tick("MintB", 1500, 1.5),
	})
	require.NoError(t, err)

	got, err := store.GetByMint(ctx, "MintA")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, int64(1000), got[0].TimestampMs)
	assert.Equal(t, int64(2000), got[1].TimestampMs)

	got, err = store.GetByMint(ctx, "MintZ")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestPriceTickStore_GetByTimeRange(t *testing.T) {
	conn := setupTestDB(t)
	store := NewPriceTickStore(conn)
	ctx := context.Background()

	err := store.InsertBulk(ctx, []*domain.PriceTick{
		tick("MintA", 1000, 1.0),
		tick("MintA", 2000, 2.0),
		tick("MintA", 3000, 3.0),
		tick("MintA", 4000, 4.0),
	})
	require.NoError(t, err)

	got, err := store.GetByTimeRange(ctx, "MintA", 2000, 3000)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, int64(2000), got[0].TimestampMs)
	assert.Equal(t, int64(3000), got[1].TimestampMs)

	got, err = store.GetByTimeRange(ctx, "MintA", 5000, 6000)
	require.NoError(t, err)
	assert.Empty(t, got)
}
