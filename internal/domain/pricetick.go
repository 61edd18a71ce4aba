package domain

// PriceTick is one observed price point for a held token, recorded by the
// position monitor on every poll.
type PriceTick struct {
	Mint        string
	TimestampMs int64
	Price       float64
}
