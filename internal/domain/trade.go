package domain

// Trade sides.
const (
	SideBuy  = "BUY"
	SideSell = "SELL"
)

// Outcome class constants.
const (
	OutcomeClassWin  = "WIN"
	OutcomeClassLoss = "LOSS"
)

// TradeRecord represents one executed round trip (or its open half) in a
// migrated token. The entry leg is persisted on buy success, the exit fields
// are filled in on sell success.
type TradeRecord struct {
	TradeID     string // buy transaction signature
	Mint        string
	PairAddress string

	// Entry
	EntryTime     int64   // unix ms
	EntryPrice    float64 // realized fill price
	EntrySOLSpent float64 // SOL paid including fees
	TokensBought  float64 // raw token amount received
	EntryFeeTier  string
	EntrySlipBps  int
	EntryFee      uint64 // priority fee in lamports

	// Exit
	ExitTime        int64
	ExitPrice       float64
	ExitSOLReceived float64
	ExitReason      string // position close reason code
	ExitFeeTier     string
	ExitSlipBps     int
	ExitFee         uint64
	ExitSignature   string

	// Outcome
	GrossReturn  float64 // exit_price / entry_price - 1
	PnLSOL       float64 // exit_sol_received - entry_sol_spent
	OutcomeClass string  // "WIN" | "LOSS", empty while open
}

// Closed reports whether the exit leg has been recorded.
func (t *TradeRecord) Closed() bool { return t.ExitTime != 0 }
