package domain

// Fee tier labels in ascending aggressiveness.
const (
	TierRecommended = "recommended"
	TierP65         = "p65"
	TierP75         = "p75"
	TierP85         = "p85"
)

// FeeTier is one (label, lamports) pair from a fee snapshot.
type FeeTier struct {
	Label    string
	Lamports uint64
}

// FeeTierSet is an immutable snapshot of prioritization fee tiers, ordered
// ascending by aggressiveness. Every value is clamped to the configured
// [min, max] bounds at construction time.
type FeeTierSet struct {
	Tiers     []FeeTier
	FetchedAt int64 // unix ms
}

// Len returns the number of tiers in the snapshot.
func (s FeeTierSet) Len() int { return len(s.Tiers) }
