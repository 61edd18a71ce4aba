// Package stub provides in-memory fakes of the solana clients for testing.
package stub

import (
	"context"
	"errors"
	"sync"

	"solana-migration-sniper/internal/solana"
)

// ErrNotFound is returned when a transaction is not present in the stub store.
var ErrNotFound = errors.New("not found")

// RPCClient implements solana.RPCClient for testing.
type RPCClient struct {
	mu sync.Mutex

	Transactions map[string]*solana.Transaction
	Blockhash    string
	Balances     map[string]uint64
	TokenAccs    map[string][]solana.TokenAccount
	Fees         []solana.PrioritizationFee

	// SimulateFn and SendFn override the default behavior when set.
	SimulateFn func(txBase64 string) (*solana.SimulationResult, error)
	SendFn     func(txBase64 string) (string, error)
	ConfirmFn  func(signature string) (*solana.SignatureStatus, error)

	SimulateCalls int
	SendCalls     int
}

// NewRPCClient creates a new stub RPC client.
func NewRPCClient() *RPCClient {
	return &RPCClient{
		Transactions: make(map[string]*solana.Transaction),
		Blockhash:    "stub-blockhash",
		Balances:     make(map[string]uint64),
		TokenAccs:    make(map[string][]solana.TokenAccount),
	}
}

// Compile-time interface check.
var _ solana.RPCClient = (*RPCClient)(nil)

// GetTransaction retrieves a transaction by signature from the stub store.
func (c *RPCClient) GetTransaction(_ context.Context, signature string) (*solana.Transaction, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	tx, ok := c.Transactions[signature]
	if !ok {
		return nil, nil
	}
	return tx, nil
}

// GetLatestBlockhash returns the configured blockhash.
func (c *RPCClient) GetLatestBlockhash(_ context.Context) (string, error) {
	return c.Blockhash, nil
}

// SimulateTransaction delegates to SimulateFn or succeeds by default.
func (c *RPCClient) SimulateTransaction(_ context.Context, txBase64 string) (*solana.SimulationResult, error) {
	c.mu.Lock()
	c.SimulateCalls++
	fn := c.SimulateFn
	c.mu.Unlock()

	if fn != nil {
		return fn(txBase64)
	}
	return &solana.SimulationResult{}, nil
}

// SendTransaction delegates to SendFn or returns a fixed signature.
func (c *RPCClient) SendTransaction(_ context.Context, txBase64 string) (string, error) {
	c.mu.Lock()
	c.SendCalls++
	fn := c.SendFn
	c.mu.Unlock()

	if fn != nil {
		return fn(txBase64)
	}
	return "stub-signature", nil
}

// ConfirmTransaction delegates to ConfirmFn or confirms immediately.
func (c *RPCClient) ConfirmTransaction(_ context.Context, signature, commitment string) (*solana.SignatureStatus, error) {
	c.mu.Lock()
	fn := c.ConfirmFn
	c.mu.Unlock()

	if fn != nil {
		return fn(signature)
	}
	return &solana.SignatureStatus{ConfirmationStatus: commitment}, nil
}

// GetRecentPrioritizationFees returns the configured fee samples.
func (c *RPCClient) GetRecentPrioritizationFees(_ context.Context, _ []string) ([]solana.PrioritizationFee, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Fees, nil
}

// GetBalance returns the configured balance for pubkey.
func (c *RPCClient) GetBalance(_ context.Context, pubkey string) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Balances[pubkey], nil
}

// GetTokenAccountsByOwner returns the configured token accounts for owner.
func (c *RPCClient) GetTokenAccountsByOwner(_ context.Context, owner string) ([]solana.TokenAccount, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.TokenAccs[owner], nil
}
