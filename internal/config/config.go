// Package config loads sniper configuration from a YAML file with
// environment overrides for secrets.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Well-known mainnet addresses.
const (
	// MigrationAuthority is the account that executes bonding-curve
	// withdrawals and AMM pool initialization for migrating tokens.
	MigrationAuthority = "39azUYFWPz3VHgKCf3VChUwbpURdCHRxjWVowf5jUJjg"

	// SOLMint is the wrapped SOL mint, the quote side of every trade.
	SOLMint = "So11111111111111111111111111111111111111112"
)

// WalletKeyEnv is the environment variable carrying the base58 wallet secret.
const WalletKeyEnv = "SNIPER_WALLET_KEY"

// Config is the root configuration.
type Config struct {
	RPCEndpoint string `yaml:"rpc_endpoint"`
	WSEndpoint  string `yaml:"ws_endpoint"`

	// WalletKey is normally left empty in the file and supplied via
	// SNIPER_WALLET_KEY.
	WalletKey string `yaml:"wallet_key"`

	PostgresDSN   string `yaml:"postgres_dsn"`   // empty selects in-memory stores
	ClickhouseDSN string `yaml:"clickhouse_dsn"` // empty disables tick persistence
	MetricsAddr   string `yaml:"metrics_addr"`

	Jupiter JupiterConfig `yaml:"jupiter"`
	Fees    FeesConfig    `yaml:"fees"`
	Trade   TradeConfig   `yaml:"trade"`
	Exit    ExitConfig    `yaml:"exit"`
	Stream  StreamConfig  `yaml:"stream"`
	Risk    RiskConfig    `yaml:"risk"`
}

// JupiterConfig points at the aggregator HTTP APIs.
type JupiterConfig struct {
	QuoteURL string `yaml:"quote_url"`
	SwapURL  string `yaml:"swap_url"`
	PriceURL string `yaml:"price_url"`
}

// FeesConfig bounds the prioritization fee estimator.
type FeesConfig struct {
	MinLamports        uint64  `yaml:"min_lamports"`
	MaxLamports        uint64  `yaml:"max_lamports"`
	LookbackSlots      int     `yaml:"lookback_slots"`
	Multiplier         float64 `yaml:"multiplier"`          // applied to the median for the recommended tier
	StoplossMultiplier float64 `yaml:"stoploss_multiplier"` // applied on top of the tier for stop-loss sells
}

// SlippagePolicy is one escalation dimension in basis points.
type SlippagePolicy struct {
	MinBps       int `yaml:"min_bps"`
	MaxBps       int `yaml:"max_bps"`
	IncrementBps int `yaml:"increment_bps"`
}

// TradeConfig controls trade sizing and executor behavior.
type TradeConfig struct {
	AmountSOL          float64        `yaml:"amount_sol"`
	MinSOLBalance      float64        `yaml:"min_sol_balance"`
	BuySlippage        SlippagePolicy `yaml:"buy_slippage"`
	SellSlippage       SlippagePolicy `yaml:"sell_slippage"`
	StoplossMinBps     int            `yaml:"stoploss_min_bps"` // sell starting slippage on the stop-loss path
	StartupDelay       time.Duration  `yaml:"startup_delay"`    // wait after migration before buying
	ConfirmTimeout     time.Duration  `yaml:"confirm_timeout"`
	ConfirmCommitment  string         `yaml:"confirm_commitment"`
	PriceLookupRetries int            `yaml:"price_lookup_retries"`
}

// ExitConfig controls the position monitor.
type ExitConfig struct {
	StoplossPct     float64       `yaml:"stoploss_pct"`
	TakeProfitPct   float64       `yaml:"take_profit_pct"`
	MaxHoldDuration time.Duration `yaml:"max_hold_duration"`
	MonitorInterval time.Duration `yaml:"monitor_interval"`
}

// StreamConfig controls the websocket supervisor and the correlation map.
type StreamConfig struct {
	ReconnectDelay time.Duration `yaml:"reconnect_delay"`
	CandidateTTL   time.Duration `yaml:"candidate_ttl"`
	Commitment     string        `yaml:"commitment"`
}

// RiskConfig controls the risk gate.
type RiskConfig struct {
	DexScreenerURL string        `yaml:"dexscreener_url"`
	RequirePaidDex bool          `yaml:"require_paid_dex"`
	Timeout        time.Duration `yaml:"timeout"`
}

// Default returns the configuration defaults.
func Default() Config {
	return Config{
		RPCEndpoint: "https://api.mainnet-beta.solana.com",
		WSEndpoint:  "wss://api.mainnet-beta.solana.com",
		MetricsAddr: ":9090",
		Jupiter: JupiterConfig{
			QuoteURL: "https://api.jup.ag/swap/v1/quote",
			SwapURL:  "https://api.jup.ag/swap/v1/swap",
			PriceURL: "https://api.jup.ag/price/v2",
		},
		Fees: FeesConfig{
			MinLamports:        50_000,
			MaxLamports:        250_000,
			LookbackSlots:      100,
			Multiplier:         1.1,
			StoplossMultiplier: 1.5,
		},
		Trade: TradeConfig{
			AmountSOL:     0.001,
			MinSOLBalance: 0.1,
			BuySlippage: SlippagePolicy{
				MinBps:       500,
				MaxBps:       2000,
				IncrementBps: 500,
			},
			SellSlippage: SlippagePolicy{
				MinBps:       0,
				MaxBps:       3000,
				IncrementBps: 500,
			},
			StoplossMinBps:     2000,
			StartupDelay:       5 * time.Second,
			ConfirmTimeout:     30 * time.Second,
			ConfirmCommitment:  "confirmed",
			PriceLookupRetries: 5,
		},
		Exit: ExitConfig{
			StoplossPct:     0.10,
			TakeProfitPct:   0.25,
			MaxHoldDuration: 5 * time.Minute,
			MonitorInterval: 3 * time.Second,
		},
		Stream: StreamConfig{
			ReconnectDelay: 15 * time.Second,
			CandidateTTL:   30 * time.Minute,
			Commitment:     "confirmed",
		},
		Risk: RiskConfig{
			DexScreenerURL: "https://api.dexscreener.com",
			RequirePaidDex: true,
			Timeout:        10 * time.Second,
		},
	}
}

// Load reads the YAML file at path over the defaults and applies environment
// overrides. An empty path returns defaults plus environment.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config file: %w", err)
		}
	}

	if key := os.Getenv(WalletKeyEnv); key != "" {
		cfg.WalletKey = key
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate rejects configurations the sniper cannot run with.
func (c Config) Validate() error {
	if c.RPCEndpoint == "" {
		return fmt.Errorf("rpc_endpoint is required")
	}
	if c.WSEndpoint == "" {
		return fmt.Errorf("ws_endpoint is required")
	}
	if c.Fees.MinLamports > c.Fees.MaxLamports {
		return fmt.Errorf("fees: min_lamports %d exceeds max_lamports %d", c.Fees.MinLamports, c.Fees.MaxLamports)
	}
	for _, p := range []struct {
		name   string
		policy SlippagePolicy
	}{
		{"buy_slippage", c.Trade.BuySlippage},
		{"sell_slippage", c.Trade.SellSlippage},
	} {
		if p.policy.IncrementBps <= 0 {
			return fmt.Errorf("%s: increment_bps must be positive", p.name)
		}
		if p.policy.MinBps > p.policy.MaxBps {
			return fmt.Errorf("%s: min_bps %d exceeds max_bps %d", p.name, p.policy.MinBps, p.policy.MaxBps)
		}
	}
	if c.Exit.StoplossPct <= 0 || c.Exit.StoplossPct >= 1 {
		return fmt.Errorf("exit: stoploss_pct must be in (0, 1)")
	}
	if c.Exit.MonitorInterval <= 0 {
		return fmt.Errorf("exit: monitor_interval must be positive")
	}
	return nil
}
