package clickhouse

import (
	"context"
	"fmt"

	"solana-migration-sniper/internal/domain"
	"solana-migration-sniper/internal/storage"
)

// PriceTickStore implements storage.PriceTickStore using ClickHouse.
type PriceTickStore struct {
	conn *Conn
}

// NewPriceTickStore creates a new PriceTickStore.
func NewPriceTickStore(conn *Conn) *PriceTickStore {
	return &PriceTickStore{conn: conn}
}

// Compile-time interface check.
var _ storage.PriceTickStore = (*PriceTickStore)(nil)

// InsertBulk adds multiple ticks. Fails entire batch on duplicate (mint, timestamp_ms).
func (s *PriceTickStore) InsertBulk(ctx context.Context, ticks []*domain.PriceTick) error {
	if len(ticks) == 0 {
		return nil
	}

	// Check for intra-batch duplicates
	type key struct {
		mint        string
		timestampMs int64
	}
	seen := make(map[key]struct{})
	for _, t := range ticks {
		if t == nil || t.Mint == "" {
			return storage.ErrInvalidInput
		}
		k := key{t.Mint, t.TimestampMs}
		if _, exists := seen[k]; exists {
			return storage.ErrDuplicateKey
		}
		seen[k] = struct{}{}
	}

	// Check for duplicates against existing DB rows.
	// MergeTree doesn't enforce uniqueness at insert time.
	for _, t := range ticks {
		exists, err := s.exists(ctx, t.Mint, t.TimestampMs)
		if err != nil {
			return fmt.Errorf("check exists: %w", err)
		}
		if exists {
			return storage.ErrDuplicateKey
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO price_ticks (
			mint, timestamp_ms, price
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, t := range ticks {
		err = batch.Append(t.Mint, uint64(t.TimestampMs), t.Price)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetByMint retrieves all ticks for a mint, ordered by timestamp ASC.
func (s *PriceTickStore) GetByMint(ctx context.Context, mint string) ([]*domain.PriceTick, error) {
	query := `
		SELECT mint, timestamp_ms, price
		FROM price_ticks
		WHERE mint = ?
		ORDER BY timestamp_ms ASC
	`

	rows, err := s.conn.Query(ctx, query, mint)
	if err != nil {
		return nil, fmt.Errorf("query by mint: %w", err)
	}
	defer rows.Close()

	return scanPriceTicks(rows)
}

// GetByTimeRange retrieves ticks for a mint within [start, end] (inclusive).
func (s *PriceTickStore) GetByTimeRange(ctx context.Context, mint string, start, end int64) ([]*domain.PriceTick, error) {
	query := `
		SELECT mint, timestamp_ms, price
		FROM price_ticks
		WHERE mint = ? AND timestamp_ms >= ? AND timestamp_ms <= ?
		ORDER BY timestamp_ms ASC
	`

	rows, err := s.conn.Query(ctx, query, mint, uint64(start), uint64(end))
	if err != nil {
		return nil, fmt.Errorf("query by time range: %w", err)
	}
	defer rows.Close()

	return scanPriceTicks(rows)
}

// exists checks if a tick with the given key exists.
func (s *PriceTickStore) exists(ctx context.Context, mint string, timestampMs int64) (bool, error) {
	query := `
		SELECT count(*) FROM price_ticks
		WHERE mint = ? AND timestamp_ms = ?
	`

	var count uint64
	err := s.conn.QueryRow(ctx, query, mint, uint64(timestampMs)).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// chRows abstracts driver.Rows for scan helpers.
type chRows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

// scanPriceTicks scans multiple rows.
func scanPriceTicks(rows chRows) ([]*domain.PriceTick, error) {
	var ticks []*domain.PriceTick

	for rows.Next() {
		var t domain.PriceTick
		var timestampMs uint64

		err := rows.Scan(&t.Mint, &timestampMs, &t.Price)
		if err != nil {
			return nil, fmt.Errorf("scan price tick row: %w", err)
		}

		t.TimestampMs = int64(timestampMs)
		ticks = append(ticks, &t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate price tick rows: %w", err)
	}

	return ticks, nil
}
