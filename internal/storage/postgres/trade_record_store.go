package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"solana-migration-sniper/internal/domain"
	"solana-migration-sniper/internal/storage"
)

// TradeRecordStore implements storage.TradeRecordStore using PostgreSQL.
type TradeRecordStore struct {
	pool *Pool
}

// NewTradeRecordStore creates a new TradeRecordStore.
func NewTradeRecordStore(pool *Pool) *TradeRecordStore {
	return &TradeRecordStore{pool: pool}
}

// Compile-time interface check.
var _ storage.TradeRecordStore = (*TradeRecordStore)(nil)

const tradeColumns = `
	trade_id, mint, pair_address,
	entry_time, entry_price, entry_sol_spent, tokens_bought,
	entry_fee_tier, entry_slip_bps, entry_fee,
	exit_time, exit_price, exit_sol_received, exit_reason,
	exit_fee_tier, exit_slip_bps, exit_fee, exit_signature,
	gross_return, pnl_sol, outcome_class
`

// Insert adds the open half of a trade. Returns ErrDuplicateKey if trade_id exists.
func (s *TradeRecordStore) Insert(ctx context.Context, t *domain.TradeRecord) error {
	query := `
		INSERT INTO trade_records (
			trade_id, mint, pair_address,
			entry_time, entry_price, entry_sol_spent, tokens_bought,
			entry_fee_tier, entry_slip_bps, entry_fee
		) VALUES (
			$1, $2, $3,
			$4, $5, $6, $7,
			$8, $9, $10
		)
	`

	_, err := s.pool.Exec(ctx, query,
		t.TradeID, t.Mint, t.PairAddress,
		t.EntryTime, t.EntryPrice, t.EntrySOLSpent, t.TokensBought,
		t.EntryFeeTier, t.EntrySlipBps, int64(t.EntryFee),
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert trade record: %w", err)
	}
	return nil
}

// Close records the exit leg and outcome of an existing trade.
func (s *TradeRecordStore) Close(ctx context.Context, t *domain.TradeRecord) error {
	query := `
		UPDATE trade_records SET
			exit_time = $2, exit_price = $3, exit_sol_received = $4, exit_reason = $5,
			exit_fee_tier = $6, exit_slip_bps = $7, exit_fee = $8, exit_signature = $9,
			gross_return = $10, pnl_sol = $11, outcome_class = $12
		WHERE trade_id = $1
	`

	tag, err := s.pool.Exec(ctx, query,
		t.TradeID,
		t.ExitTime, t.ExitPrice, t.ExitSOLReceived, t.ExitReason,
		t.ExitFeeTier, t.ExitSlipBps, int64(t.ExitFee), t.ExitSignature,
		t.GrossReturn, t.PnLSOL, t.OutcomeClass,
	)
	if err != nil {
		return fmt.Errorf("close trade record: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// GetByID retrieves a trade by its ID. Returns ErrNotFound if not exists.
func (s *TradeRecordStore) GetByID(ctx context.Context, tradeID string) (*domain.TradeRecord, error) {
	query := `SELECT ` + tradeColumns + ` FROM trade_records WHERE trade_id = $1`

	row := s.pool.QueryRow(ctx, query, tradeID)
	t, err := scanTradeRecord(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get trade record by id: %w", err)
	}
	return t, nil
}

// GetByMint retrieves all trades for a mint, ordered by entry_time ASC.
func (s *TradeRecordStore) GetByMint(ctx context.Context, mint string) ([]*domain.TradeRecord, error) {
	query := `
		SELECT ` + tradeColumns + `
		FROM trade_records
		WHERE mint = $1
		ORDER BY entry_time ASC, trade_id ASC
	`

	rows, err := s.pool.Query(ctx, query, mint)
	if err != nil {
		return nil, fmt.Errorf("get trade records by mint: %w", err)
	}
	defer rows.Close()

	return scanTradeRecords(rows)
}

// GetOpen retrieves all trades whose exit leg has not been recorded.
func (s *TradeRecordStore) GetOpen(ctx context.Context) ([]*domain.TradeRecord, error) {
	query := `
		SELECT ` + tradeColumns + `
		FROM trade_records
		WHERE exit_time = 0
		ORDER BY entry_time ASC, trade_id ASC
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("get open trade records: %w", err)
	}
	defer rows.Close()

	return scanTradeRecords(rows)
}

// scanTradeRecord scans a single row into a TradeRecord.
func scanTradeRecord(row pgx.Row) (*domain.TradeRecord, error) {
	var t domain.TradeRecord
	var entryFee, exitFee int64

	err := row.Scan(
		&t.TradeID, &t.Mint, &t.PairAddress,
		&t.EntryTime, &t.EntryPrice, &t.EntrySOLSpent, &t.TokensBought,
		&t.EntryFeeTier, &t.EntrySlipBps, &entryFee,
		&t.ExitTime, &t.ExitPrice, &t.ExitSOLReceived, &t.ExitReason,
		&t.ExitFeeTier, &t.ExitSlipBps, &exitFee, &t.ExitSignature,
		&t.GrossReturn, &t.PnLSOL, &t.OutcomeClass,
	)
	if err != nil {
		return nil, err
	}

	t.EntryFee = uint64(entryFee)
	t.ExitFee = uint64(exitFee)
	return &t, nil
}

// scanTradeRecords scans multiple rows into a slice of TradeRecord.
func scanTradeRecords(rows pgx.Rows) ([]*domain.TradeRecord, error) {
	var trades []*domain.TradeRecord

	for rows.Next() {
		t, err := scanTradeRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan trade record row: %w", err)
		}
		trades = append(trades, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trade record rows: %w", err)
	}

	return trades, nil
}
