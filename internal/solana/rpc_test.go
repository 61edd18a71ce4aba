package solana

import "testing"

func deltaTx() *Transaction {
	return &Transaction{
		Meta: &TransactionMeta{
			PreBalances:  []uint64{5_000_000, 2_000_000_000, 10},
			PostBalances: []uint64{3_900_000, 2_000_900_000, 10},
			PreTokenBalances: []TokenBalance{
				{Mint: "mint1", Owner: "wallet", Amount: "100"},
			},
			PostTokenBalances: []TokenBalance{
				{Mint: "mint1", Owner: "wallet", Amount: "5000"},
				{Mint: "mint1", Owner: "pool", Amount: "999"},
				{Mint: "mint2", Owner: "wallet", Amount: "7"},
			},
		},
		Message: &TransactionMessage{
			AccountKeys: []string{"wallet", "counterparty", "program"},
		},
	}
}

func TestTransaction_TokenBalanceDelta(t *testing.T) {
	tx := deltaTx()

	if got := tx.TokenBalanceDelta("wallet", "mint1"); got != 4900 {
		t.Errorf("expected delta 4900, got %d", got)
	}

	// No pre balance entry means the account was created by the transaction.
	if got := tx.TokenBalanceDelta("wallet", "mint2"); got != 7 {
		t.Errorf("expected delta 7, got %d", got)
	}

	if got := tx.TokenBalanceDelta("wallet", "unknown"); got != 0 {
		t.Errorf("expected delta 0 for unknown mint, got %d", got)
	}

	var nilTx *Transaction
	if got := nilTx.TokenBalanceDelta("wallet", "mint1"); got != 0 {
		t.Errorf("expected 0 on nil transaction, got %d", got)
	}
}

func TestTransaction_LamportBalanceDelta(t *testing.T) {
	tx := deltaTx()

	if got := tx.LamportBalanceDelta("wallet"); got != -1_100_000 {
		t.Errorf("expected delta -1100000, got %d", got)
	}
	if got := tx.LamportBalanceDelta("counterparty"); got != 900_000 {
		t.Errorf("expected delta 900000, got %d", got)
	}
	if got := tx.LamportBalanceDelta("stranger"); got != 0 {
		t.Errorf("expected 0 for unknown account, got %d", got)
	}

	// Balance arrays shorter than the key list never panic.
	tx.Meta.PostBalances = tx.Meta.PostBalances[:1]
	if got := tx.LamportBalanceDelta("counterparty"); got != 0 {
		t.Errorf("expected 0 on truncated balances, got %d", got)
	}
}
