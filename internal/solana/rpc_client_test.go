package solana

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestHTTPClient_GetTransaction(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}

		if req.Method != "getTransaction" {
			t.Errorf("expected method getTransaction, got %s", req.Method)
		}

		resp := map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"result": map[string]interface{}{
				"slot":      int64(123456),
				"blockTime": int64(1700000000),
				"meta": map[string]interface{}{
					"err":          nil,
					"logMessages":  []string{"Program log: Instruction: Withdraw"},
					"preBalances":  []uint64{5000000, 100, 200},
					"postBalances": []uint64{3000000, 100, 200},
					"postTokenBalances": []map[string]interface{}{
						{
							"accountIndex": 4,
							"mint":         "MintA",
							"owner":        "Authority1",
							"uiTokenAmount": map[string]interface{}{
								"amount":   "1000000",
								"decimals": 6,
								"uiAmount": 1.0,
							},
						},
					},
				},
				"transaction": map[string]interface{}{
					"message": map[string]interface{}{
						"accountKeys": []string{"addr1", "addr2", "pairAddr"},
					},
				},
			},
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL)
	ctx := context.Background()

	tx, err := client.GetTransaction(ctx, "testsig123")
	if err != nil {
		t.Fatalf("GetTransaction: %v", err)
	}

	if tx == nil {
		t.Fatal("expected transaction, got nil")
	}

	if tx.Slot != 123456 {
		t.Errorf("expected slot 123456, got %d", tx.Slot)
	}

	if tx.BlockTime != 1700000000 {
		t.Errorf("expected blockTime 1700000000, got %d", tx.BlockTime)
	}

	if tx.Meta == nil {
		t.Fatal("expected meta, got nil")
	}

	if len(tx.Meta.PreBalances) != 3 || len(tx.Meta.PostBalances) != 3 {
		t.Fatalf("expected 3 pre/post balances, got %d/%d",
			len(tx.Meta.PreBalances), len(tx.Meta.PostBalances))
	}
	if tx.Meta.PreBalances[0] != 5000000 || tx.Meta.PostBalances[0] != 3000000 {
		t.Errorf("unexpected lamport balances: %v %v", tx.Meta.PreBalances, tx.Meta.PostBalances)
	}

	if len(tx.Meta.PostTokenBalances) != 1 {
		t.Fatalf("expected 1 post token balance, got %d", len(tx.Meta.PostTokenBalances))
	}

	b := tx.Meta.PostTokenBalances[0]
	if b.Mint != "MintA" || b.Owner != "Authority1" || b.Amount != "1000000" {
		t.Errorf("unexpected token balance: %+v", b)
	}

	if tx.Message == nil || len(tx.Message.AccountKeys) != 3 {
		t.Fatalf("expected 3 account keys, got %+v", tx.Message)
	}
	if tx.Message.AccountKeys[2] != "pairAddr" {
		t.Errorf("unexpected account key: %s", tx.Message.AccountKeys[2])
	}
}

func TestHTTPClient_GetTransaction_NotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		json.NewDecoder(r.Body).Decode(&req)

		resp := map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"result":  nil,
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL)
	ctx := context.Background()

	tx, err := client.GetTransaction(ctx, "nonexistent")
	if err != nil {
		t.Fatalf("GetTransaction: %v", err)
	}

	if tx != nil {
		t.Errorf("expected nil for not found, got %+v", tx)
	}
}

func TestHTTPClient_Retry(t *testing.T) {
	var attempts atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		count := attempts.Add(1)
		if count < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}

		var req rpcRequest
		json.NewDecoder(r.Body).Decode(&req)

		resp := map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"result":  map[string]interface{}{"value": uint64(5000000)},
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL,
		WithMaxRetries(3),
		WithRetryDelay(10*time.Millisecond),
	)
	ctx := context.Background()

	balance, err := client.GetBalance(ctx, "testpubkey")
	if err != nil {
		t.Fatalf("GetBalance: %v", err)
	}

	if balance != 5000000 {
		t.Errorf("expected balance 5000000, got %d", balance)
	}

	if attempts.Load() != 3 {
		t.Errorf("expected 3 attempts, got %d", attempts.Load())
	}
}

func TestHTTPClient_RPCError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		json.NewDecoder(r.Body).Decode(&req)

		resp := map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"error": map[string]interface{}{
				"code":    -32600,
				"message": "Invalid Request",
			},
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL)
	ctx := context.Background()

	_, err := client.GetBalance(ctx, "testpubkey")
	if err == nil {
		t.Fatal("expected error, got nil")
	}

	rpcErr, ok := err.(*rpcError)
	if !ok {
		t.Fatalf("expected rpcError, got %T", err)
	}

	if rpcErr.Code != -32600 {
		t.Errorf("expected code -32600, got %d", rpcErr.Code)
	}
}

func TestHTTPClient_GetRecentPrioritizationFees(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		json.NewDecoder(r.Body).Decode(&req)

		if req.Method != "getRecentPrioritizationFees" {
			t.Errorf("expected method getRecentPrioritizationFees, got %s", req.Method)
		}

		resp := map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"result": []map[string]interface{}{
				{"slot": int64(100), "prioritizationFee": uint64(0)},
				{"slot": int64(101), "prioritizationFee": uint64(75000)},
				{"slot": int64(102), "prioritizationFee": uint64(120000)},
			},
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL)
	ctx := context.Background()

	fees, err := client.GetRecentPrioritizationFees(ctx, []string{"acct1"})
	if err != nil {
		t.Fatalf("GetRecentPrioritizationFees: %v", err)
	}

	if len(fees) != 3 {
		t.Fatalf("expected 3 samples, got %d", len(fees))
	}

	if fees[1].Slot != 101 || fees[1].PrioritizationFee != 75000 {
		t.Errorf("unexpected sample: %+v", fees[1])
	}
}

func TestHTTPClient_ConfirmTransaction(t *testing.T) {
	var polls atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		json.NewDecoder(r.Body).Decode(&req)

		count := polls.Add(1)
		var value []interface{}
		if count < 2 {
			// Not yet observed
			value = []interface{}{nil}
		} else {
			value = []interface{}{map[string]interface{}{
				"slot":               int64(200),
				"confirmations":      int64(5),
				"err":                nil,
				"confirmationStatus": "confirmed",
			}}
		}

		resp := map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"result":  map[string]interface{}{"value": value},
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	status, err := client.ConfirmTransaction(ctx, "sig1", "confirmed")
	if err != nil {
		t.Fatalf("ConfirmTransaction: %v", err)
	}

	if status == nil {
		t.Fatal("expected status, got nil")
	}

	if status.ConfirmationStatus != "confirmed" {
		t.Errorf("expected confirmed, got %s", status.ConfirmationStatus)
	}
}

func TestHTTPClient_ConfirmTransaction_Dropped(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		json.NewDecoder(r.Body).Decode(&req)

		// Signature never observed
		resp := map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"result":  map[string]interface{}{"value": []interface{}{nil}},
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL)
	ctx, cancel := context.WithTimeout(context.Background(), 700*time.Millisecond)
	defer cancel()

	status, err := client.ConfirmTransaction(ctx, "droppedsig", "confirmed")
	if err != nil {
		t.Fatalf("ConfirmTransaction: %v", err)
	}

	if status != nil {
		t.Errorf("expected nil status for dropped transaction, got %+v", status)
	}
}

func TestHTTPClient_GetTokenAccountsByOwner(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		json.NewDecoder(r.Body).Decode(&req)

		if req.Method != "getTokenAccountsByOwner" {
			t.Errorf("expected method getTokenAccountsByOwner, got %s", req.Method)
		}

		resp := map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"result": map[string]interface{}{
				"value": []map[string]interface{}{
					{
						"pubkey": "tokenAcc1",
						"account": map[string]interface{}{
							"data": map[string]interface{}{
								"parsed": map[string]interface{}{
									"info": map[string]interface{}{
										"mint": "MintA",
										"tokenAmount": map[string]interface{}{
											"amount":   "42000000",
											"decimals": 6,
											"uiAmount": 42.0,
										},
									},
								},
							},
						},
					},
				},
			},
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL)
	ctx := context.Background()

	accounts, err := client.GetTokenAccountsByOwner(ctx, "owner1")
	if err != nil {
		t.Fatalf("GetTokenAccountsByOwner: %v", err)
	}

	if len(accounts) != 1 {
		t.Fatalf("expected 1 account, got %d", len(accounts))
	}

	acc := accounts[0]
	if acc.Pubkey != "tokenAcc1" || acc.Mint != "MintA" || acc.Amount != "42000000" {
		t.Errorf("unexpected account: %+v", acc)
	}
	if acc.UIAmount != 42.0 {
		t.Errorf("expected uiAmount 42.0, got %f", acc.UIAmount)
	}
}

func TestHTTPClient_ContextCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(100 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL)
	ctx, cancel := context.WithCancel(context.Background())
	cancel() // Cancel immediately

	_, err := client.GetBalance(ctx, "testpubkey")
	if err == nil {
		t.Fatal("expected error from cancelled context")
	}
}
