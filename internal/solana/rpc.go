package solana

import (
	"context"
	"strconv"
)

// RPCClient defines the Solana RPC HTTP surface used by the sniper.
type RPCClient interface {
	// GetTransaction retrieves a confirmed transaction by signature.
	// Returns nil (no error) if the transaction is not yet available.
	GetTransaction(ctx context.Context, signature string) (*Transaction, error)

	// GetLatestBlockhash retrieves a recent blockhash for transaction assembly.
	GetLatestBlockhash(ctx context.Context) (string, error)

	// SimulateTransaction simulates a signed, base64-encoded transaction.
	SimulateTransaction(ctx context.Context, txBase64 string) (*SimulationResult, error)

	// SendTransaction submits a signed, base64-encoded transaction and
	// returns its signature.
	SendTransaction(ctx context.Context, txBase64 string) (string, error)

	// ConfirmTransaction polls signature status until the transaction reaches
	// the given commitment or the context deadline expires. A nil status with
	// nil error means the transaction was never observed (dropped).
	ConfirmTransaction(ctx context.Context, signature, commitment string) (*SignatureStatus, error)

	// GetRecentPrioritizationFees retrieves per-slot prioritization fees for
	// transactions touching the given accounts.
	GetRecentPrioritizationFees(ctx context.Context, accounts []string) ([]PrioritizationFee, error)

	// GetBalance retrieves the lamport balance of an account.
	GetBalance(ctx context.Context, pubkey string) (uint64, error)

	// GetTokenAccountsByOwner retrieves all SPL token accounts held by owner.
	GetTokenAccountsByOwner(ctx context.Context, owner string) ([]TokenAccount, error)
}

// Transaction represents a resolved Solana transaction.
type Transaction struct {
	Slot      int64
	Signature string
	BlockTime int64 // Unix timestamp (seconds)
	Meta      *TransactionMeta
	Message   *TransactionMessage
}

// TransactionMeta contains transaction metadata.
type TransactionMeta struct {
	Err               interface{}
	LogMessages       []string
	PreBalances       []uint64 // lamports per account, indexed like AccountKeys
	PostBalances      []uint64
	PreTokenBalances  []TokenBalance
	PostTokenBalances []TokenBalance
}

// TokenBalanceDelta returns the change in owner's raw balance of mint across
// the transaction, summed over all of the owner's token accounts. Zero when
// the balances are missing from the meta.
func (t *Transaction) TokenBalanceDelta(owner, mint string) int64 {
	if t == nil || t.Meta == nil {
		return 0
	}
	var delta int64
	for _, b := range t.Meta.PostTokenBalances {
		if b.Owner == owner && b.Mint == mint {
			delta += parseRawAmount(b.Amount)
		}
	}
	for _, b := range t.Meta.PreTokenBalances {
		if b.Owner == owner && b.Mint == mint {
			delta -= parseRawAmount(b.Amount)
		}
	}
	return delta
}

// LamportBalanceDelta returns the change in pubkey's lamport balance across
// the transaction. Zero when the account is not in the message or the balance
// arrays do not cover it.
func (t *Transaction) LamportBalanceDelta(pubkey string) int64 {
	if t == nil || t.Meta == nil || t.Message == nil {
		return 0
	}
	for i, key := range t.Message.AccountKeys {
		if key != pubkey {
			continue
		}
		if i >= len(t.Meta.PreBalances) || i >= len(t.Meta.PostBalances) {
			return 0
		}
		return int64(t.Meta.PostBalances[i]) - int64(t.Meta.PreBalances[i])
	}
	return 0
}

func parseRawAmount(s string) int64 {
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return v
}

// TransactionMessage contains the parsed transaction message.
type TransactionMessage struct {
	AccountKeys []string
}

// TokenBalance is one pre/post token balance entry from transaction meta.
type TokenBalance struct {
	AccountIndex int
	Mint         string
	Owner        string
	Amount       string // raw amount as decimal string
	Decimals     int
	UIAmount     float64
}

// SimulationResult holds the outcome of simulateTransaction.
type SimulationResult struct {
	Err  interface{} // nil on success
	Logs []string
}

// SignatureStatus is one entry from getSignatureStatuses.
type SignatureStatus struct {
	Slot               int64
	Confirmations      *int64
	Err                interface{}
	ConfirmationStatus string // "processed" | "confirmed" | "finalized"
}

// PrioritizationFee is one slot's prioritization fee sample.
type PrioritizationFee struct {
	Slot              int64  `json:"slot"`
	PrioritizationFee uint64 `json:"prioritizationFee"`
}

// TokenAccount is a parsed SPL token account owned by a wallet.
type TokenAccount struct {
	Pubkey   string
	Mint     string
	Amount   string // raw amount as decimal string
	Decimals int
	UIAmount float64
}
