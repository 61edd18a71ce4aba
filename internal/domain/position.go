package domain

// Position status values.
const (
	PositionOpen   = "OPEN"
	PositionClosed = "CLOSED"
)

// Position close reason codes.
const (
	CloseReasonTimeout    = "TIMEOUT"
	CloseReasonStopLoss   = "STOP_LOSS"
	CloseReasonTakeProfit = "TAKE_PROFIT"
)

// Position is an open holding in a migrated token. Created on buy success,
// mutated on every price poll, closed when the sell executor reports success.
type Position struct {
	Mint        string
	PairAddress string

	EntryPrice      float64
	HighWatermark   float64 // highest price observed since entry
	StoplossPrice   float64 // ratchets upward with the watermark (trailing stop)
	TakeProfitPrice float64

	OpenedAt    int64 // unix ms
	Status      string
	CloseReason string // set when Status == CLOSED
}

// NewPosition creates an open position with the trailing stop and take-profit
// thresholds derived from the entry price.
func NewPosition(mint, pair string, entryPrice, stoplossPct, takeProfitPct float64, openedAt int64) *Position {
	return &Position{
		Mint:            mint,
		PairAddress:     pair,
		EntryPrice:      entryPrice,
		HighWatermark:   entryPrice,
		StoplossPrice:   entryPrice * (1 - stoplossPct),
		TakeProfitPrice: entryPrice * (1 + takeProfitPct),
		OpenedAt:        openedAt,
		Status:          PositionOpen,
	}
}

// ObservePrice updates the high watermark and recomputes the trailing stop
// upward when a new high is seen. Must be called before breach checks on the
// same tick.
func (p *Position) ObservePrice(price, stoplossPct float64) {
	if price > p.HighWatermark {
		p.HighWatermark = price
		p.StoplossPrice = p.HighWatermark * (1 - stoplossPct)
	}
}

// Close marks the position closed with the given reason.
func (p *Position) Close(reason string) {
	p.Status = PositionClosed
	p.CloseReason = reason
}
