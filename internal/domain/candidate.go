package domain

// CorrelationState tracks a mint through the two-instruction migration handshake.
type CorrelationState int

const (
	// StateUnseen means no withdraw instruction has been observed for the mint.
	StateUnseen CorrelationState = iota

	// StateAwaitingInitialize2 means the withdraw was seen and the candidate
	// waits for the matching pool-initialize instruction.
	StateAwaitingInitialize2

	// StateResolved means the initialize2 arrived and the candidate was consumed.
	StateResolved
)

// String returns the state name for logging.
func (s CorrelationState) String() string {
	switch s {
	case StateUnseen:
		return "UNSEEN"
	case StateAwaitingInitialize2:
		return "AWAITING_INITIALIZE2"
	case StateResolved:
		return "RESOLVED"
	default:
		return "UNKNOWN"
	}
}

// RiskVerdict is the outcome of the asynchronous risk evaluation for a mint.
type RiskVerdict struct {
	Passed      bool
	Reasons     []string // populated on failure, one entry per failed check
	EvaluatedAt int64    // unix ms
}

// MigrationCandidate is one entry in the correlation map, keyed by mint.
// Created when a withdraw-instruction log arrives, consumed (removed) when the
// matching initialize2 log resolves it.
type MigrationCandidate struct {
	Mint              string
	PairAddress       string // empty until the initialize2 transaction resolves it
	State             CorrelationState
	Verdict           *RiskVerdict // nil while the risk evaluation is in flight
	WithdrawSignature string
	CreatedAt         int64 // unix ms
}

// MigrationEvent is the flat "migration + trade" record exposed for
// observability consumers after a candidate resolves.
type MigrationEvent struct {
	Mint                string
	PairAddress         string
	WithdrawSignature   string
	InitializeSignature string
	VerdictPassed       bool
	VerdictReasons      []string
	DetectedAt          int64 // unix ms
}
