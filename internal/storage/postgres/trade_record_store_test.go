package postgres_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"solana-migration-sniper/internal/domain"
	"solana-migration-sniper/internal/storage"
	"solana-migration-sniper/internal/storage/postgres"
)

func openTrade(id, mint string, entryTime int64) *domain.TradeRecord {
	return &domain.TradeRecord{
		TradeID:       id,
		Mint:          mint,
		PairAddress:   "pair-" + mint,
		EntryTime:     entryTime,
		EntryPrice:    0.0000412,
		EntrySOLSpent: 0.001,
		TokensBought:  24271844,
		EntryFeeTier:  domain.TierRecommended,
		EntrySlipBps:  500,
		EntryFee:      75_000,
	}
}

func TestTradeRecordStore_RoundTrip(t *testing.T) {
	pool := setupTestDB(t)
	store := postgres.NewTradeRecordStore(pool)
	ctx := context.Background()

	trade := openTrade("sig1", "MintA", 100)
	require.NoError(t, store.Insert(ctx, trade))

	got, err := store.GetByID(ctx, "sig1")
	require.NoError(t, err)
	require.Equal(t, "MintA", got.Mint)
	require.Equal(t, int64(100), got.EntryTime)
	require.Equal(t, uint64(75_000), got.EntryFee)
	require.False(t, got.Closed())
	require.Empty(t, got.OutcomeClass)

	// Record the exit leg.
	trade.ExitTime = 200
	trade.ExitPrice = 0.0000550
	trade.ExitSOLReceived = 0.00131
	trade.ExitReason = domain.CloseReasonTakeProfit
	trade.ExitFeeTier = domain.TierP75
	trade.ExitSlipBps = 1000
	trade.ExitFee = 112_000
	trade.ExitSignature = "sell-sig1"
	trade.GrossReturn = 0.335
	trade.PnLSOL = 0.00031
	trade.OutcomeClass = domain.OutcomeClassWin
	require.NoError(t, store.Close(ctx, trade))

	got, err = store.GetByID(ctx, "sig1")
	require.NoError(t, err)
	require.True(t, got.Closed())
	require.Equal(t, domain.CloseReasonTakeProfit, got.ExitReason)
	require.Equal(t, "sell-sig1", got.ExitSignature)
	require.Equal(t, uint64(112_000), got.ExitFee)
	require.Equal(t, domain.OutcomeClassWin, got.OutcomeClass)
	require.InDelta(t, 0.00031, got.PnLSOL, 1e-9)
}

func TestTradeRecordStore_Duplicate(t *testing.T) {
	pool := setupTestDB(t)
	store := postgres.NewTradeRecordStore(pool)
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, openTrade("sig1", "MintA", 100)))

	err := store.Insert(ctx, openTrade("sig1", "MintB", 200))
	require.ErrorIs(t, err, storage.ErrDuplicateKey)
}

func TestTradeRecordStore_NotFound(t *testing.T) {
	pool := setupTestDB(t)
	store := postgres.NewTradeRecordStore(pool)
	ctx := context.Background()

	_, err := store.GetByID(ctx, "missing")
	require.ErrorIs(t, err, storage.ErrNotFound)

	err = store.Close(ctx, openTrade("missing", "MintA", 100))
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestTradeRecordStore_GetByMintAndOpen(t *testing.T) {
	pool := setupTestDB(t)
	store := postgres.NewTradeRecordStore(pool)
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, openTrade("sig2", "MintA", 300)))
	require.NoError(t, store.Insert(ctx, openTrade("sig1", "MintA", 100)))
	require.NoError(t, store.Insert(ctx, openTrade("sig3", "MintB", 200)))

	trades, err := store.GetByMint(ctx, "MintA")
	require.NoError(t, err)
	require.Len(t, trades, 2)
	require.Equal(t, "sig1", trades[0].TradeID)
	require.Equal(t, "sig2", trades[1].TradeID)

	closed := openTrade("sig3", "MintB", 200)
	closed.ExitTime = 400
	closed.ExitReason = domain.CloseReasonTimeout
	closed.OutcomeClass = domain.OutcomeClassLoss
	require.NoError(t, store.Close(ctx, closed))

	open, err := store.GetOpen(ctx)
	require.NoError(t, err)
	require.Len(t, open, 2)
	for _, tr := range open {
		require.False(t, tr.Closed())
	}
}
