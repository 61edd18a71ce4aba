package fees

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"

	"solana-migration-sniper/internal/domain"
	"solana-migration-sniper/internal/observability"
	"solana-migration-sniper/internal/solana"
	"solana-migration-sniper/internal/solana/stub"
)

func newTestEstimator(rpc solana.RPCClient) *Estimator {
	return NewEstimator(Options{
		RPC:           rpc,
		Accounts:      []string{"ref-account"},
		MinFee:        50_000,
		MaxFee:        250_000,
		LookbackSlots: 100,
		Multiplier:    1.1,
		Logger:        zerolog.Nop(),
	})
}

func TestEstimator_Snapshot(t *testing.T) {
	rpc := stub.NewRPCClient()
	for i := 0; i < 100; i++ {
		rpc.Fees = append(rpc.Fees, solana.PrioritizationFee{
			Slot:              int64(i),
			PrioritizationFee: uint64(60_000 + i*1000),
		})
	}

	set, err := newTestEstimator(rpc).Snapshot(context.Background())
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}

	if set.Len() != 4 {
		t.Fatalf("expected 4 tiers, got %d", set.Len())
	}

	labels := []string{domain.TierRecommended, domain.TierP65, domain.TierP75, domain.TierP85}
	for i, want := range labels {
		if set.Tiers[i].Label != want {
			t.Errorf("tier %d: expected label %s, got %s", i, want, set.Tiers[i].Label)
		}
	}

	// Percentile tiers over ascending samples must be non-decreasing.
	for i := 2; i < 4; i++ {
		if set.Tiers[i].Lamports < set.Tiers[i-1].Lamports {
			t.Errorf("tier %s (%d) below tier %s (%d)",
				set.Tiers[i].Label, set.Tiers[i].Lamports,
				set.Tiers[i-1].Label, set.Tiers[i-1].Lamports)
		}
	}

	for _, tier := range set.Tiers {
		if tier.Lamports < 50_000 || tier.Lamports > 250_000 {
			t.Errorf("tier %s out of bounds: %d", tier.Label, tier.Lamports)
		}
	}
}

func TestEstimator_Snapshot_ClampsToBounds(t *testing.T) {
	rpc := stub.NewRPCClient()
	// All samples below the floor.
	for i := 0; i < 10; i++ {
		rpc.Fees = append(rpc.Fees, solana.PrioritizationFee{Slot: int64(i), PrioritizationFee: 100})
	}

	set, err := newTestEstimator(rpc).Snapshot(context.Background())
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	for _, tier := range set.Tiers {
		if tier.Lamports != 50_000 {
			t.Errorf("tier %s: expected floor 50000, got %d", tier.Label, tier.Lamports)
		}
	}

	// All samples above the ceiling.
	rpc.Fees = nil
	for i := 0; i < 10; i++ {
		rpc.Fees = append(rpc.Fees, solana.PrioritizationFee{Slot: int64(i), PrioritizationFee: 10_000_000})
	}

	set, err = newTestEstimator(rpc).Snapshot(context.Background())
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	for _, tier := range set.Tiers {
		if tier.Lamports != 250_000 {
			t.Errorf("tier %s: expected ceiling 250000, got %d", tier.Label, tier.Lamports)
		}
	}
}

func TestEstimator_Snapshot_ExportsTierGauges(t *testing.T) {
	rpc := stub.NewRPCClient()
	for i := 0; i < 10; i++ {
		rpc.Fees = append(rpc.Fees, solana.PrioritizationFee{Slot: int64(i), PrioritizationFee: 100})
	}

	set, err := newTestEstimator(rpc).Snapshot(context.Background())
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}

	for _, tier := range set.Tiers {
		gauge := observability.DefaultMetrics.FeeTierLamports.WithLabelValues(tier.Label)
		if got := testutil.ToFloat64(gauge); got != float64(tier.Lamports) {
			t.Errorf("tier %s gauge: expected %d, got %v", tier.Label, tier.Lamports, got)
		}
	}
}

func TestEstimator_Snapshot_NoSamples(t *testing.T) {
	rpc := stub.NewRPCClient()

	if _, err := newTestEstimator(rpc).Snapshot(context.Background()); err == nil {
		t.Fatal("expected error with no samples")
	}

	// Only zero-fee samples is the same as no samples.
	for i := 0; i < 20; i++ {
		rpc.Fees = append(rpc.Fees, solana.PrioritizationFee{Slot: int64(i)})
	}
	if _, err := newTestEstimator(rpc).Snapshot(context.Background()); err == nil {
		t.Fatal("expected error with only zero samples")
	}
}

func TestExtractFees_LookbackWindow(t *testing.T) {
	var samples []solana.PrioritizationFee
	for i := 0; i < 200; i++ {
		samples = append(samples, solana.PrioritizationFee{
			Slot:              int64(i),
			PrioritizationFee: uint64(i + 1),
		})
	}

	values := extractFees(samples, 100)
	if len(values) != 100 {
		t.Fatalf("expected 100 values, got %d", len(values))
	}
	// The window must be the most recent slots, i.e. fees 101..200.
	for _, v := range values {
		if v <= 100 {
			t.Errorf("value %d is outside the lookback tail", v)
		}
	}
}

func TestMedianAndPercentile(t *testing.T) {
	odd := []uint64{10, 20, 30}
	if got := median(odd); got != 20 {
		t.Errorf("odd median: expected 20, got %d", got)
	}

	even := []uint64{10, 20, 30, 40}
	if got := median(even); got != 25 {
		t.Errorf("even median: expected 25, got %d", got)
	}

	if got := median(nil); got != 0 {
		t.Errorf("empty median: expected 0, got %d", got)
	}

	sorted := []uint64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	if got := percentile(sorted, 85); got != 9 {
		t.Errorf("p85: expected 9, got %d", got)
	}
	if got := percentile(sorted, 100); got != 10 {
		t.Errorf("p100: expected last value 10, got %d", got)
	}
}
