package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"solana-migration-sniper/internal/domain"
	"solana-migration-sniper/internal/storage"
)

// MigrationEventStore implements storage.MigrationEventStore using PostgreSQL.
type MigrationEventStore struct {
	pool *Pool
}

// NewMigrationEventStore creates a new MigrationEventStore.
func NewMigrationEventStore(pool *Pool) *MigrationEventStore {
	return &MigrationEventStore{pool: pool}
}

// Compile-time interface check.
var _ storage.MigrationEventStore = (*MigrationEventStore)(nil)

// Insert adds a new event. Returns ErrDuplicateKey if the initialize
// signature was recorded before.
func (s *MigrationEventStore) Insert(ctx context.Context, e *domain.MigrationEvent) error {
	query := `
		INSERT INTO migration_events (
			initialize_signature, withdraw_signature, mint, pair_address,
			verdict_passed, verdict_reasons, detected_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := s.pool.Exec(ctx, query,
		e.InitializeSignature, e.WithdrawSignature, e.Mint, e.PairAddress,
		e.VerdictPassed, e.VerdictReasons, e.DetectedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert migration event: %w", err)
	}
	return nil
}

// GetByMint retrieves all events for a mint, ordered by detected_at ASC.
func (s *MigrationEventStore) GetByMint(ctx context.Context, mint string) ([]*domain.MigrationEvent, error) {
	query := `
		SELECT initialize_signature, withdraw_signature, mint, pair_address,
			verdict_passed, verdict_reasons, detected_at
		FROM migration_events
		WHERE mint = $1
		ORDER BY detected_at ASC
	`

	rows, err := s.pool.Query(ctx, query, mint)
	if err != nil {
		return nil, fmt.Errorf("get migration events by mint: %w", err)
	}
	defer rows.Close()

	return scanMigrationEvents(rows)
}

// GetByTimeRange retrieves events detected within [start, end] (inclusive).
func (s *MigrationEventStore) GetByTimeRange(ctx context.Context, start, end int64) ([]*domain.MigrationEvent, error) {
	query := `
		SELECT initialize_signature, withdraw_signature, mint, pair_address,
			verdict_passed, verdict_reasons, detected_at
		FROM migration_events
		WHERE detected_at >= $1 AND detected_at <= $2
		ORDER BY detected_at ASC
	`

	rows, err := s.pool.Query(ctx, query, start, end)
	if err != nil {
		return nil, fmt.Errorf("get migration events by time range: %w", err)
	}
	defer rows.Close()

	return scanMigrationEvents(rows)
}

// scanMigrationEvents scans multiple rows.
func scanMigrationEvents(rows pgx.Rows) ([]*domain.MigrationEvent, error) {
	var events []*domain.MigrationEvent

	for rows.Next() {
		var e domain.MigrationEvent

		err := rows.Scan(
			&e.InitializeSignature, &e.WithdrawSignature, &e.Mint, &e.PairAddress,
			&e.VerdictPassed, &e.VerdictReasons, &e.DetectedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan migration event row: %w", err)
		}

		events = append(events, &e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate migration event rows: %w", err)
	}

	return events, nil
}
