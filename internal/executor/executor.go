// Package executor lands swap transactions through a bounded two-dimensional
// escalation search over fee tiers and slippage tolerance.
package executor

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"solana-migration-sniper/internal/config"
	"solana-migration-sniper/internal/domain"
	"solana-migration-sniper/internal/fees"
	"solana-migration-sniper/internal/jupiter"
	"solana-migration-sniper/internal/observability"
	"solana-migration-sniper/internal/solana"
	"solana-migration-sniper/internal/wallet"
)

// ErrExhausted means every fee tier and slippage combination was tried
// without landing the transaction.
var ErrExhausted = errors.New("all fee tier and slippage combinations exhausted")

// FeeSource produces fee tier snapshots. Satisfied by *fees.Estimator.
type FeeSource interface {
	Snapshot(ctx context.Context) (domain.FeeTierSet, error)
}

// Signer signs serialized transactions. Satisfied by *wallet.Wallet.
type Signer interface {
	PublicKey() string
	SignTransaction(txBase64 string) (string, error)
}

// Request describes one trade to execute.
type Request struct {
	Mint        string
	PairAddress string
	Side        string // domain.SideBuy or domain.SideSell
	AmountRaw   uint64 // lamports on buy, raw token units on sell

	// Stoploss selects the tighter starting slippage and multiplies the
	// tier fee to prioritize rapid inclusion.
	Stoploss bool
}

// Result is the terminal outcome of a successful run.
type Result struct {
	Signature   string
	FeeTier     string
	FeeLamports uint64
	SlippageBps int
	Attempts    int
	InAmount    uint64 // input token raw units actually quoted
	OutAmount   uint64 // output token raw units actually quoted
}

// Executor runs the escalation search for buys and sells.
type Executor struct {
	rpc    solana.RPCClient
	jup    *jupiter.Client
	signer Signer
	fees   FeeSource

	buySlippage        config.SlippagePolicy
	sellSlippage       config.SlippagePolicy
	stoplossMinBps     int
	stoplossMultiplier float64
	confirmTimeout     time.Duration
	confirmCommitment  string

	log zerolog.Logger
}

// Options configures an Executor.
type Options struct {
	RPC     solana.RPCClient
	Jupiter *jupiter.Client
	Signer  Signer
	Fees    FeeSource

	BuySlippage        config.SlippagePolicy
	SellSlippage       config.SlippagePolicy
	StoplossMinBps     int
	StoplossMultiplier float64
	ConfirmTimeout     time.Duration
	ConfirmCommitment  string

	Logger zerolog.Logger
}

// New creates an Executor.
func New(opts Options) *Executor {
	confirmTimeout := opts.ConfirmTimeout
	if confirmTimeout == 0 {
		confirmTimeout = 30 * time.Second
	}
	commitment := opts.ConfirmCommitment
	if commitment == "" {
		commitment = "confirmed"
	}
	return &Executor{
		rpc:                opts.RPC,
		jup:                opts.Jupiter,
		signer:             opts.Signer,
		fees:               opts.Fees,
		buySlippage:        opts.BuySlippage,
		sellSlippage:       opts.SellSlippage,
		stoplossMinBps:     opts.StoplossMinBps,
		stoplossMultiplier: opts.StoplossMultiplier,
		confirmTimeout:     confirmTimeout,
		confirmCommitment:  commitment,
		log:                opts.Logger,
	}
}

var _ FeeSource = (*fees.Estimator)(nil)
var _ Signer = (*wallet.Wallet)(nil)

// Execute runs the two-dimensional escalation search and returns the landed
// transaction, or ErrExhausted when every combination failed. A fee snapshot
// failure is returned as-is: no snapshot means no trading right now.
func (e *Executor) Execute(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()
	res, err := e.run(ctx, req)
	status := "success"
	if err != nil {
		status = "failure"
	}
	observability.RecordTradeCompleted(req.Side, status, time.Since(start).Seconds())
	return res, err
}

func (e *Executor) run(ctx context.Context, req Request) (*Result, error) {
	inputMint, outputMint := config.SOLMint, req.Mint
	if req.Side == domain.SideSell {
		inputMint, outputMint = req.Mint, config.SOLMint
	}

	policy := e.policyFor(req)

	snapshot, err := e.fees.Snapshot(ctx)
	if err != nil {
		observability.RecordFeeSnapshotError()
		return nil, fmt.Errorf("fee snapshot: %w", err)
	}

	log := e.log.With().
		Str("mint", req.Mint).
		Str("pair", req.PairAddress).
		Str("side", req.Side).
		Bool("stoploss", req.Stoploss).
		Logger()

	attempts := 0
	maxFeeTried := uint64(0)
	tiers := snapshot.Tiers
	refreshed := false

	for i := 0; i < len(tiers); i++ {
		tier := tiers[i]
		feeLamports := e.tierFee(tier, req.Stoploss)
		maxFeeTried = max(maxFeeTried, feeLamports)

		slippage := policy.MinBps
		for slippage <= policy.MaxBps {
			if err := ctx.Err(); err != nil {
				return nil, err
			}

			attempts++
			outcome, res := e.attempt(ctx, req, inputMint, outputMint, tier, feeLamports, slippage)
			observability.RecordTradeAttempt(req.Side, outcome.Kind.String())

			switch outcome.Kind {
			case solana.OutcomeOk:
				res.Attempts = attempts
				log.Info().
					Str("signature", res.Signature).
					Str("tier", res.FeeTier).
					Uint64("fee_lamports", res.FeeLamports).
					Int("slippage_bps", res.SlippageBps).
					Int("attempts", attempts).
					Msg("trade landed")
				return res, nil

			case solana.OutcomeSlippageExceeded:
				log.Debug().
					Str("tier", tier.Label).
					Int("slippage_bps", slippage).
					Int64("code", outcome.Code).
					Msg("slippage exceeded, widening")
				slippage += policy.IncrementBps
				continue

			default:
				// NoRoute, Transport, dropped confirmation and other program
				// errors all mean the fee dimension is the one to escalate.
				log.Debug().
					Str("tier", tier.Label).
					Int("slippage_bps", slippage).
					Stringer("outcome", outcome).
					Msg("attempt failed, escalating fee tier")
			}
			break
		}

		// Past the last tier of the snapshot: re-fetch once and keep only
		// tiers more aggressive than anything already tried.
		if i == len(tiers)-1 && !refreshed {
			refreshed = true
			if extra := e.refreshTiers(ctx, req.Stoploss, maxFeeTried); len(extra) > 0 {
				tiers = append(tiers, extra...)
			}
		}
	}

	log.Warn().Int("attempts", attempts).Msg("trade failed, escalation exhausted")
	return nil, ErrExhausted
}

// policyFor selects the slippage escalation policy for the request.
func (e *Executor) policyFor(req Request) config.SlippagePolicy {
	if req.Side == domain.SideBuy {
		return e.buySlippage
	}
	policy := e.sellSlippage
	if req.Stoploss {
		policy.MinBps = e.stoplossMinBps
		if policy.MaxBps < policy.MinBps {
			policy.MaxBps = policy.MinBps
		}
	}
	return policy
}

// tierFee applies the stop-loss fee multiplier on top of the tier value.
func (e *Executor) tierFee(tier domain.FeeTier, stoploss bool) uint64 {
	if stoploss && e.stoplossMultiplier > 0 {
		return uint64(float64(tier.Lamports) * e.stoplossMultiplier)
	}
	return tier.Lamports
}

// refreshTiers re-fetches the fee snapshot and returns tiers whose effective
// fee exceeds everything tried so far. Snapshot errors end the escalation
// quietly; the run then terminates with ErrExhausted.
func (e *Executor) refreshTiers(ctx context.Context, stoploss bool, maxFeeTried uint64) []domain.FeeTier {
	snapshot, err := e.fees.Snapshot(ctx)
	if err != nil {
		observability.RecordFeeSnapshotError()
		e.log.Debug().Err(err).Msg("fee snapshot refresh failed")
		return nil
	}

	var extra []domain.FeeTier
	for _, tier := range snapshot.Tiers {
		if e.tierFee(tier, stoploss) > maxFeeTried {
			extra = append(extra, tier)
		}
	}
	return extra
}

// attempt performs one quote/build/sign/simulate/send/confirm round trip and
// classifies its result. The Result is only meaningful when the outcome is Ok.
func (e *Executor) attempt(ctx context.Context, req Request, inputMint, outputMint string, tier domain.FeeTier, feeLamports uint64, slippage int) (solana.TxOutcome, *Result) {
	quote, err := e.jup.GetQuote(ctx, inputMint, outputMint, req.AmountRaw, slippage)
	if err != nil {
		if errors.Is(err, jupiter.ErrNoRoute) {
			return solana.TxOutcome{Kind: solana.OutcomeNoRoute}, nil
		}
		return solana.TransportOutcome(err), nil
	}

	txBase64, err := e.jup.BuildSwapTransaction(ctx, quote, e.signer.PublicKey(), feeLamports)
	if err != nil {
		return solana.TransportOutcome(err), nil
	}

	signed, err := e.signer.SignTransaction(txBase64)
	if err != nil {
		return solana.TransportOutcome(err), nil
	}

	sim, err := e.rpc.SimulateTransaction(ctx, signed)
	if err != nil {
		return solana.TransportOutcome(err), nil
	}
	if outcome := solana.ClassifyTxError(sim.Err); outcome.Kind != solana.OutcomeOk {
		return outcome, nil
	}

	signature, err := e.rpc.SendTransaction(ctx, signed)
	if err != nil {
		return solana.TransportOutcome(err), nil
	}

	confirmCtx, cancel := context.WithTimeout(ctx, e.confirmTimeout)
	status, err := e.rpc.ConfirmTransaction(confirmCtx, signature, e.confirmCommitment)
	cancel()
	if err != nil {
		outcome := solana.TransportOutcome(err)
		outcome.Signature = signature
		return outcome, nil
	}
	if status == nil {
		// Never observed within the timeout: assume the fee was still too
		// low for inclusion.
		return solana.TxOutcome{Kind: solana.OutcomeTransport, Signature: signature,
			Err: fmt.Errorf("transaction %s dropped", signature)}, nil
	}
	if outcome := solana.ClassifyTxError(status.Err); outcome.Kind != solana.OutcomeOk {
		outcome.Signature = signature
		return outcome, nil
	}

	inAmount := parseAmount(quote.InAmount)
	outAmount := parseAmount(quote.OutAmount)

	return solana.TxOutcome{Kind: solana.OutcomeOk, Signature: signature}, &Result{
		Signature:   signature,
		FeeTier:     tier.Label,
		FeeLamports: feeLamports,
		SlippageBps: slippage,
		InAmount:    inAmount,
		OutAmount:   outAmount,
	}
}

// parseAmount parses a raw amount string from a quote; malformed amounts
// degrade to zero rather than failing a landed trade.
func parseAmount(s string) uint64 {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0
	}
	return v
}
