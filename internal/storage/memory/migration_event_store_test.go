package memory

import (
	"context"
	"errors"
	"testing"

	"solana-migration-sniper/internal/domain"
	"solana-migration-sniper/internal/storage"
)

func migrationEvent(initSig, mint string, detectedAt int64) *domain.MigrationEvent {
	return &domain.MigrationEvent{
		Mint:                mint,
		PairAddress:         "pair-" + mint,
		WithdrawSignature:   "w-" + initSig,
		InitializeSignature: initSig,
		VerdictPassed:       true,
		DetectedAt:          detectedAt,
	}
}

func TestMigrationEventStore_Insert(t *testing.T) {
	store := NewMigrationEventStore()
	ctx := context.Background()

	if err := store.Insert(ctx, migrationEvent("init1", "MintA", 100)); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	events, err := store.GetByMint(ctx, "MintA")
	if err != nil {
		t.Fatalf("GetByMint: %v", err)
	}
	if len(events) != 1 || events[0].InitializeSignature != "init1" {
		t.Errorf("unexpected events: %+v", events)
	}
}

func TestMigrationEventStore_InsertDuplicate(t *testing.T) {
	store := NewMigrationEventStore()
	ctx := context.Background()

	store.Insert(ctx, migrationEvent("init1", "MintA", 100))

	// Redelivered initialize2 logs produce the same event again.
	err := store.Insert(ctx, migrationEvent("init1", "MintA", 200))
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("expected ErrDuplicateKey, got %v", err)
	}
}

func TestMigrationEventStore_InvalidInput(t *testing.T) {
	store := NewMigrationEventStore()
	ctx := context.Background()

	if err := store.Insert(ctx, nil); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("nil event: expected ErrInvalidInput, got %v", err)
	}
	if err := store.Insert(ctx, &domain.MigrationEvent{Mint: "MintA"}); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("empty signature: expected ErrInvalidInput, got %v", err)
	}
}

func TestMigrationEventStore_GetByTimeRange(t *testing.T) {
	store := NewMigrationEventStore()
	ctx := context.Background()

	store.Insert(ctx, migrationEvent("init1", "MintA", 100))
	store.Insert(ctx, migrationEvent("init2", "MintB", 200))
	store.Insert(ctx, migrationEvent("init3", "MintC", 300))

	events, err := store.GetByTimeRange(ctx, 100, 200)
	if err != nil {
		t.Fatalf("GetByTimeRange: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0].DetectedAt != 100 || events[1].DetectedAt != 200 {
		t.Errorf("not ordered by detection time: %+v", events)
	}
}
