package storage

import (
	"context"

	"solana-migration-sniper/internal/domain"
)

// TradeRecordStore provides access to trade_records storage. The entry leg is
// inserted on buy success and the exit leg recorded on sell success.
type TradeRecordStore interface {
	// Insert adds the open half of a trade. Returns ErrDuplicateKey if
	// trade_id exists.
	Insert(ctx context.Context, t *domain.TradeRecord) error

	// Close records the exit leg and outcome of an existing trade.
	// Returns ErrNotFound if the trade does not exist.
	Close(ctx context.Context, t *domain.TradeRecord) error

	// GetByID retrieves a trade by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, tradeID string) (*domain.TradeRecord, error)

	// GetByMint retrieves all trades for a mint, ordered by entry_time ASC.
	GetByMint(ctx context.Context, mint string) ([]*domain.TradeRecord, error)

	// GetOpen retrieves all trades whose exit leg has not been recorded.
	GetOpen(ctx context.Context) ([]*domain.TradeRecord, error)
}

// TokenCacheStore remembers every mint the correlator has acted on, so a
// restart cannot buy the same migration twice.
type TokenCacheStore interface {
	// Add marks a mint as seen. Returns ErrDuplicateKey if already present.
	Add(ctx context.Context, mint string, seenAt int64) error

	// Contains reports whether the mint was seen before.
	Contains(ctx context.Context, mint string) (bool, error)
}

// MigrationEventStore persists the flat migration record produced when a
// candidate resolves.
type MigrationEventStore interface {
	// Insert adds a new event. Returns ErrDuplicateKey if the initialize
	// signature was recorded before.
	Insert(ctx context.Context, e *domain.MigrationEvent) error

	// GetByMint retrieves all events for a mint.
	GetByMint(ctx context.Context, mint string) ([]*domain.MigrationEvent, error)

	// GetByTimeRange retrieves events detected within [start, end] (inclusive).
	GetByTimeRange(ctx context.Context, start, end int64) ([]*domain.MigrationEvent, error)
}

// PriceTickStore persists the price points observed by the position monitor.
type PriceTickStore interface {
	// InsertBulk adds multiple ticks. Fails the entire batch on a duplicate
	// (mint, timestamp_ms).
	InsertBulk(ctx context.Context, ticks []*domain.PriceTick) error

	// GetByMint retrieves all ticks for a mint, ordered by timestamp ASC.
	GetByMint(ctx context.Context, mint string) ([]*domain.PriceTick, error)

	// GetByTimeRange retrieves ticks for a mint within [start, end] (inclusive).
	GetByTimeRange(ctx context.Context, mint string, start, end int64) ([]*domain.PriceTick, error)
}
