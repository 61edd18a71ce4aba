// Package fees derives prioritization fee tiers from recent network samples.
package fees

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"solana-migration-sniper/internal/domain"
	"solana-migration-sniper/internal/observability"
	"solana-migration-sniper/internal/solana"
)

// Estimator builds clamped fee tier snapshots from getRecentPrioritizationFees.
type Estimator struct {
	rpc           solana.RPCClient
	accounts      []string // reference accounts for the fee query
	minFee        uint64
	maxFee        uint64
	lookbackSlots int
	multiplier    float64 // applied to the median for the recommended tier
	log           zerolog.Logger
}

// Options configures an Estimator.
type Options struct {
	RPC           solana.RPCClient
	Accounts      []string
	MinFee        uint64
	MaxFee        uint64
	LookbackSlots int
	Multiplier    float64
	Logger        zerolog.Logger
}

// NewEstimator creates a fee tier estimator.
func NewEstimator(opts Options) *Estimator {
	return &Estimator{
		rpc:           opts.RPC,
		accounts:      opts.Accounts,
		minFee:        opts.MinFee,
		maxFee:        opts.MaxFee,
		lookbackSlots: opts.LookbackSlots,
		multiplier:    opts.Multiplier,
		log:           opts.Logger,
	}
}

// Snapshot fetches recent fee samples and returns the tier set, ordered
// ascending by aggressiveness: recommended (median x multiplier), p65, p75,
// p85, each clamped to [minFee, maxFee]. An error means "cannot trade now".
func (e *Estimator) Snapshot(ctx context.Context) (domain.FeeTierSet, error) {
	samples, err := e.rpc.GetRecentPrioritizationFees(ctx, e.accounts)
	if err != nil {
		return domain.FeeTierSet{}, fmt.Errorf("fetch prioritization fees: %w", err)
	}

	values := extractFees(samples, e.lookbackSlots)
	if len(values) == 0 {
		return domain.FeeTierSet{}, fmt.Errorf("no nonzero fee samples in window")
	}

	sort.Slice(values, func(i, j int) bool { return values[i] < values[j] })

	recommended := uint64(float64(median(values)) * e.multiplier)

	set := domain.FeeTierSet{
		Tiers: []domain.FeeTier{
			{Label: domain.TierRecommended, Lamports: e.clamp(recommended)},
			{Label: domain.TierP65, Lamports: e.clamp(percentile(values, 65))},
			{Label: domain.TierP75, Lamports: e.clamp(percentile(values, 75))},
			{Label: domain.TierP85, Lamports: e.clamp(percentile(values, 85))},
		},
		FetchedAt: time.Now().UnixMilli(),
	}

	for _, tier := range set.Tiers {
		observability.RecordFeeTier(tier.Label, tier.Lamports)
	}

	e.log.Debug().
		Uint64("recommended", set.Tiers[0].Lamports).
		Uint64("p65", set.Tiers[1].Lamports).
		Uint64("p75", set.Tiers[2].Lamports).
		Uint64("p85", set.Tiers[3].Lamports).
		Int("samples", len(values)).
		Msg("fee tier snapshot")

	return set, nil
}

// extractFees keeps the nonzero fees of the most recent lookback slots.
func extractFees(samples []solana.PrioritizationFee, lookback int) []uint64 {
	if lookback > 0 && len(samples) > lookback {
		// Samples arrive ordered by slot ascending; keep the tail.
		sort.Slice(samples, func(i, j int) bool { return samples[i].Slot < samples[j].Slot })
		samples = samples[len(samples)-lookback:]
	}

	values := make([]uint64, 0, len(samples))
	for _, s := range samples {
		if s.PrioritizationFee > 0 {
			values = append(values, s.PrioritizationFee)
		}
	}
	return values
}

func (e *Estimator) clamp(fee uint64) uint64 {
	if fee < e.minFee {
		return e.minFee
	}
	if fee > e.maxFee {
		return e.maxFee
	}
	return fee
}

// median of sorted values.
func median(sorted []uint64) uint64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// percentile computes the p-th percentile of sorted values.
func percentile(sorted []uint64, p int) uint64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := len(sorted) * p / 100
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}
