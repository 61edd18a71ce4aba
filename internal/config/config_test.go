package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Fees.MinLamports != 50_000 || cfg.Fees.MaxLamports != 250_000 {
		t.Errorf("unexpected fee bounds: %d..%d", cfg.Fees.MinLamports, cfg.Fees.MaxLamports)
	}
	if cfg.Trade.BuySlippage.MinBps != 500 || cfg.Trade.BuySlippage.MaxBps != 2000 {
		t.Errorf("unexpected buy slippage: %+v", cfg.Trade.BuySlippage)
	}
	if cfg.Trade.SellSlippage.MinBps != 0 || cfg.Trade.SellSlippage.MaxBps != 3000 {
		t.Errorf("unexpected sell slippage: %+v", cfg.Trade.SellSlippage)
	}
	if cfg.Trade.StoplossMinBps != 2000 {
		t.Errorf("unexpected stoploss min bps: %d", cfg.Trade.StoplossMinBps)
	}
	if cfg.Exit.StoplossPct != 0.10 || cfg.Exit.TakeProfitPct != 0.25 {
		t.Errorf("unexpected exit thresholds: %+v", cfg.Exit)
	}
	if cfg.Exit.MaxHoldDuration != 5*time.Minute {
		t.Errorf("unexpected max hold: %s", cfg.Exit.MaxHoldDuration)
	}
	if cfg.Stream.ReconnectDelay != 15*time.Second {
		t.Errorf("unexpected reconnect delay: %s", cfg.Stream.ReconnectDelay)
	}
}

func TestLoad_FileOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
rpc_endpoint: "http://localhost:8899"
ws_endpoint: "ws://localhost:8900"
trade:
  amount_sol: 0.5
  buy_slippage:
    min_bps: 100
    max_bps: 400
    increment_bps: 100
exit:
  stoploss_pct: 0.2
  monitor_interval: 1s
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.RPCEndpoint != "http://localhost:8899" {
		t.Errorf("rpc_endpoint not overridden: %s", cfg.RPCEndpoint)
	}
	if cfg.Trade.AmountSOL != 0.5 {
		t.Errorf("amount_sol not overridden: %f", cfg.Trade.AmountSOL)
	}
	if cfg.Trade.BuySlippage.MaxBps != 400 {
		t.Errorf("buy slippage not overridden: %+v", cfg.Trade.BuySlippage)
	}
	if cfg.Exit.StoplossPct != 0.2 {
		t.Errorf("stoploss_pct not overridden: %f", cfg.Exit.StoplossPct)
	}

	// Untouched sections keep their defaults.
	if cfg.Fees.MaxLamports != 250_000 {
		t.Errorf("fees defaults lost: %d", cfg.Fees.MaxLamports)
	}
}

func TestLoad_WalletKeyFromEnv(t *testing.T) {
	t.Setenv(WalletKeyEnv, "env-secret")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.WalletKey != "env-secret" {
		t.Errorf("expected env wallet key, got %q", cfg.WalletKey)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/config.yaml"); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing rpc endpoint", func(c *Config) { c.RPCEndpoint = "" }},
		{"missing ws endpoint", func(c *Config) { c.WSEndpoint = "" }},
		{"inverted fee bounds", func(c *Config) { c.Fees.MinLamports = 300_000 }},
		{"zero slippage increment", func(c *Config) { c.Trade.BuySlippage.IncrementBps = 0 }},
		{"inverted slippage bounds", func(c *Config) { c.Trade.SellSlippage.MinBps = 5000 }},
		{"stoploss pct out of range", func(c *Config) { c.Exit.StoplossPct = 1.5 }},
		{"zero monitor interval", func(c *Config) { c.Exit.MonitorInterval = 0 }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}

	if err := Default().Validate(); err != nil {
		t.Errorf("defaults must validate: %v", err)
	}
}
