// Package migration correlates the two on-chain instructions of a token
// migration into a single buy trigger.
package migration

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"solana-migration-sniper/internal/config"
	"solana-migration-sniper/internal/domain"
	"solana-migration-sniper/internal/observability"
	"solana-migration-sniper/internal/riskgate"
	"solana-migration-sniper/internal/solana"
	"solana-migration-sniper/internal/storage"
)

// Instruction markers emitted by the migration program.
const (
	withdrawMarker   = "Program log: Instruction: Withdraw"
	initializeMarker = "Program log: initialize2: InitializeInstruction2"
)

// pairAccountIndex is the position of the pool address in the initialize2
// instruction's account list.
const pairAccountIndex = 2

// ResolvedFunc is invoked once per resolved, risk-passed migration. It runs
// on its own goroutine and owns the rest of that mint's pipeline.
type ResolvedFunc func(ctx context.Context, event *domain.MigrationEvent)

// Correlator matches withdraw and initialize2 instructions per mint. The
// correlation map survives stream reconnects; candidates are evicted only by
// resolution or TTL expiry.
type Correlator struct {
	rpc       solana.RPCClient
	gate      riskgate.Gate
	cache     storage.TokenCacheStore
	events    storage.MigrationEventStore
	authority string
	ttl       time.Duration
	onResolve ResolvedFunc
	log       zerolog.Logger

	mu         sync.Mutex
	candidates map[string]*domain.MigrationCandidate
}

// Options configures a Correlator.
type Options struct {
	RPC          solana.RPCClient
	Gate         riskgate.Gate
	TokenCache   storage.TokenCacheStore
	EventStore   storage.MigrationEventStore
	Authority    string // migration authority account, defaults to mainnet
	CandidateTTL time.Duration
	OnResolved   ResolvedFunc
	Logger       zerolog.Logger
}

// NewCorrelator creates a correlator.
func NewCorrelator(opts Options) *Correlator {
	authority := opts.Authority
	if authority == "" {
		authority = config.MigrationAuthority
	}
	ttl := opts.CandidateTTL
	if ttl == 0 {
		ttl = 30 * time.Minute
	}
	return &Correlator{
		rpc:        opts.RPC,
		gate:       opts.Gate,
		cache:      opts.TokenCache,
		events:     opts.EventStore,
		authority:  authority,
		ttl:        ttl,
		onResolve:  opts.OnResolved,
		log:        opts.Logger,
		candidates: make(map[string]*domain.MigrationCandidate),
	}
}

// HandleNotification inspects one log notification and dispatches the matching
// handler on its own goroutine, so the stream loop never blocks on RPC.
func (c *Correlator) HandleNotification(ctx context.Context, note solana.LogNotification) {
	if note.Err != nil {
		return // failed transactions never migrate anything
	}

	if hasMarker(note.Logs, withdrawMarker) {
		go c.handleWithdraw(ctx, note.Signature)
	}
	if hasMarker(note.Logs, initializeMarker) {
		go c.handleInitialize2(ctx, note.Signature)
	}
}

// handleWithdraw opens a candidate and kicks off the risk evaluation.
func (c *Correlator) handleWithdraw(ctx context.Context, signature string) {
	observability.RecordWithdrawSeen()
	log := c.log.With().Str("signature", signature).Logger()

	mint, _, err := c.resolveMigration(ctx, signature)
	if err != nil {
		log.Debug().Err(err).Msg("withdraw resolution failed, dropping log entry")
		return
	}
	log = log.With().Str("mint", mint).Logger()

	seen, err := c.cache.Contains(ctx, mint)
	if err != nil {
		log.Warn().Err(err).Msg("token cache lookup failed")
	} else if seen {
		log.Debug().Msg("mint already traded, ignoring withdraw")
		return
	}

	c.mu.Lock()
	if _, exists := c.candidates[mint]; exists {
		c.mu.Unlock()
		log.Debug().Msg("withdraw for known candidate, ignoring")
		return
	}
	c.candidates[mint] = &domain.MigrationCandidate{
		Mint:              mint,
		State:             domain.StateAwaitingInitialize2,
		WithdrawSignature: signature,
		CreatedAt:         time.Now().UnixMilli(),
	}
	size := len(c.candidates)
	c.mu.Unlock()
	observability.UpdateCorrelationMapSize(size)

	log.Info().Msg("withdraw detected, awaiting initialize2")

	// The gate may be slow; it runs on this goroutine, already off the
	// stream loop, and attaches its verdict whenever it finishes.
	verdict, err := c.gate.Evaluate(ctx, mint)
	if err != nil {
		observability.RecordRiskEvaluation("error")
		log.Warn().Err(err).Msg("risk evaluation failed")
		verdict = &domain.RiskVerdict{
			Passed:      false,
			Reasons:     []string{"risk evaluation error: " + err.Error()},
			EvaluatedAt: time.Now().UnixMilli(),
		}
	} else if verdict.Passed {
		observability.RecordRiskEvaluation("pass")
	} else {
		observability.RecordRiskEvaluation("fail")
	}

	c.mu.Lock()
	if cand, ok := c.candidates[mint]; ok {
		cand.Verdict = verdict
	}
	c.mu.Unlock()

	log.Info().Bool("passed", verdict.Passed).Strs("reasons", verdict.Reasons).
		Msg("risk verdict attached")
}

// handleInitialize2 consumes the matching candidate and, on a passed verdict,
// hands the migration off to the buy pipeline.
func (c *Correlator) handleInitialize2(ctx context.Context, signature string) {
	log := c.log.With().Str("signature", signature).Logger()

	mint, pair, err := c.resolveMigration(ctx, signature)
	if err != nil {
		log.Debug().Err(err).Msg("initialize2 resolution failed, dropping log entry")
		return
	}
	log = log.With().Str("mint", mint).Str("pair", pair).Logger()

	c.mu.Lock()
	cand, ok := c.candidates[mint]
	if !ok {
		c.mu.Unlock()
		// Either the withdraw was never observed (subscription gap) or the
		// candidate was already consumed; idempotent under redelivery.
		observability.RecordCandidateDropped("no_withdraw")
		log.Info().Msg("initialize2 without matching withdraw, no trade")
		return
	}
	if cand.Verdict == nil {
		delete(c.candidates, mint)
		size := len(c.candidates)
		c.mu.Unlock()
		observability.UpdateCorrelationMapSize(size)
		observability.RecordCandidateDropped("verdict_pending")
		log.Info().Msg("initialize2 arrived before risk verdict, no trade")
		return
	}
	delete(c.candidates, mint)
	cand.State = domain.StateResolved
	cand.PairAddress = pair
	size := len(c.candidates)
	c.mu.Unlock()
	observability.UpdateCorrelationMapSize(size)

	event := &domain.MigrationEvent{
		Mint:                mint,
		PairAddress:         pair,
		WithdrawSignature:   cand.WithdrawSignature,
		InitializeSignature: signature,
		VerdictPassed:       cand.Verdict.Passed,
		VerdictReasons:      cand.Verdict.Reasons,
		DetectedAt:          time.Now().UnixMilli(),
	}
	c.persistEvent(ctx, event, log)
	observability.RecordMigrationResolved(time.Now().Unix())

	if !cand.Verdict.Passed {
		observability.RecordCandidateDropped("verdict_fail")
		log.Info().Strs("reasons", cand.Verdict.Reasons).Msg("risk verdict failed, no trade")
		return
	}

	if err := c.cache.Add(ctx, mint, time.Now().Unix()); err != nil {
		if errors.Is(err, storage.ErrDuplicateKey) {
			log.Info().Msg("mint already claimed by another pipeline, no trade")
			return
		}
		log.Warn().Err(err).Msg("token cache insert failed")
	}

	log.Info().Msg("migration resolved, dispatching buy")
	if c.onResolve != nil {
		go c.onResolve(ctx, event)
	}
}

// resolveMigration fetches the transaction and extracts the migrating mint
// and the pool address.
func (c *Correlator) resolveMigration(ctx context.Context, signature string) (mint, pair string, err error) {
	tx, err := c.rpc.GetTransaction(ctx, signature)
	if err != nil {
		return "", "", err
	}
	if tx == nil {
		return "", "", errors.New("transaction not available")
	}

	mint, err = mintFromBalances(tx, c.authority)
	if err != nil {
		return "", "", err
	}
	if err := solana.ValidateAddress(mint); err != nil {
		return "", "", fmt.Errorf("extracted mint: %w", err)
	}

	if tx.Message != nil && len(tx.Message.AccountKeys) > pairAccountIndex {
		pair = tx.Message.AccountKeys[pairAccountIndex]
		if err := solana.ValidateAddress(pair); err != nil {
			return "", "", fmt.Errorf("extracted pair: %w", err)
		}
	}
	return mint, pair, nil
}

// mintFromBalances extracts the migrating token mint from the post-transaction
// token balances owned by the migration authority. The wrapped SOL side is
// skipped.
func mintFromBalances(tx *solana.Transaction, authority string) (string, error) {
	if tx.Meta == nil {
		return "", errors.New("transaction has no meta")
	}
	for _, b := range tx.Meta.PostTokenBalances {
		if b.Owner == authority && b.Mint != config.SOLMint && b.Mint != "" {
			return b.Mint, nil
		}
	}
	return "", errors.New("no authority-owned token balance in transaction")
}

// hasMarker reports whether any log line contains the marker.
func hasMarker(logs []string, marker string) bool {
	for _, line := range logs {
		if strings.Contains(line, marker) {
			return true
		}
	}
	return false
}

// persistEvent stores the flat migration record, tolerating redelivery.
func (c *Correlator) persistEvent(ctx context.Context, event *domain.MigrationEvent, log zerolog.Logger) {
	if c.events == nil {
		return
	}
	if err := c.events.Insert(ctx, event); err != nil && !errors.Is(err, storage.ErrDuplicateKey) {
		log.Warn().Err(err).Msg("migration event insert failed")
	}
}

// EvictExpired removes candidates older than the TTL and returns how many
// were evicted. Bounds the correlation map when initialize2 never arrives.
func (c *Correlator) EvictExpired(now time.Time) int {
	cutoff := now.Add(-c.ttl).UnixMilli()

	c.mu.Lock()
	var evicted []string
	for mint, cand := range c.candidates {
		if cand.CreatedAt < cutoff {
			evicted = append(evicted, mint)
			delete(c.candidates, mint)
		}
	}
	size := len(c.candidates)
	c.mu.Unlock()

	for _, mint := range evicted {
		observability.RecordCandidateDropped("expired")
		c.log.Info().Str("mint", mint).Msg("candidate expired without initialize2")
	}
	observability.UpdateCorrelationMapSize(size)
	return len(evicted)
}

// RunJanitor periodically evicts expired candidates until ctx is cancelled.
func (c *Correlator) RunJanitor(ctx context.Context) {
	interval := c.ttl / 10
	if interval < time.Minute {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			c.EvictExpired(now)
		}
	}
}

// CandidateCount returns the current correlation map size.
func (c *Correlator) CandidateCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.candidates)
}
