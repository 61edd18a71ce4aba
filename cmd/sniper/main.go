package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"solana-migration-sniper/internal/config"
	"solana-migration-sniper/internal/fees"
	"solana-migration-sniper/internal/jupiter"
	"solana-migration-sniper/internal/observability"
	"solana-migration-sniper/internal/riskgate"
	"solana-migration-sniper/internal/sniper"
	"solana-migration-sniper/internal/solana"
	"solana-migration-sniper/internal/storage"
	chstore "solana-migration-sniper/internal/storage/clickhouse"
	"solana-migration-sniper/internal/storage/memory"
	"solana-migration-sniper/internal/storage/migrations"
	pgstore "solana-migration-sniper/internal/storage/postgres"
	"solana-migration-sniper/internal/wallet"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML configuration file")
	logLevel := flag.String("log-level", "info", "Log level: trace, debug, info, warn, error")
	pretty := flag.Bool("pretty", false, "Human-readable console log output")
	flag.Parse()

	logger := newLogger(*logLevel, *pretty)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("configuration error")
	}
	if cfg.WalletKey == "" {
		logger.Fatal().Msgf("wallet key is required (set %s)", config.WalletKeyEnv)
	}

	w, err := wallet.NewFromBase58(cfg.WalletKey)
	if err != nil {
		logger.Fatal().Err(err).Msg("wallet key error")
	}
	logger.Info().Str("wallet", w.PublicKey()).Msg("wallet loaded")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals with graceful timeout
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	done := make(chan error, 1)

	go func() {
		sig := <-sigCh
		logger.Info().Str("signal", sig.String()).Msg("initiating graceful shutdown")
		cancel()

		select {
		case sig := <-sigCh:
			logger.Error().Str("signal", sig.String()).Msg("forcing immediate shutdown")
			os.Exit(1)
		case <-time.After(30 * time.Second):
			logger.Error().Msg("graceful shutdown timed out after 30s, forcing exit")
			os.Exit(1)
		case <-done:
		}
	}()

	if cfg.MetricsAddr != "" {
		go serveMetrics(cfg.MetricsAddr, logger)
	}

	err = run(ctx, cfg, w, logger)

	done <- err
	cancel()

	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal().Err(err).Msg("sniper stopped")
	}
	logger.Info().Msg("shutdown complete")
}

// run builds the stores and collaborators and starts the pipeline.
func run(ctx context.Context, cfg config.Config, w *wallet.Wallet, logger zerolog.Logger) error {
	rpc := solana.NewHTTPClient(cfg.RPCEndpoint)

	jup := jupiter.NewClient(jupiter.Options{
		QuoteURL: cfg.Jupiter.QuoteURL,
		SwapURL:  cfg.Jupiter.SwapURL,
		PriceURL: cfg.Jupiter.PriceURL,
		Logger:   logger.With().Str("component", "jupiter").Logger(),
	})

	estimator := fees.NewEstimator(fees.Options{
		RPC:           rpc,
		Accounts:      []string{config.MigrationAuthority},
		MinFee:        cfg.Fees.MinLamports,
		MaxFee:        cfg.Fees.MaxLamports,
		LookbackSlots: cfg.Fees.LookbackSlots,
		Multiplier:    cfg.Fees.Multiplier,
		Logger:        logger.With().Str("component", "fees").Logger(),
	})

	var gate riskgate.Gate = riskgate.PassAll{}
	if cfg.Risk.RequirePaidDex {
		gate = riskgate.NewDexScreenerGate(cfg.Risk.DexScreenerURL, cfg.Risk.Timeout,
			logger.With().Str("component", "riskgate").Logger())
	}

	// Stores: in-memory unless DSNs are configured.
	var (
		trades storage.TradeRecordStore    = memory.NewTradeRecordStore()
		cache  storage.TokenCacheStore     = memory.NewTokenCacheStore()
		events storage.MigrationEventStore = memory.NewMigrationEventStore()
		ticks  storage.PriceTickStore
	)

	if cfg.PostgresDSN != "" {
		pool, err := pgstore.NewPool(ctx, cfg.PostgresDSN)
		if err != nil {
			return fmt.Errorf("connect to postgres: %w", err)
		}
		defer pool.Close()

		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			return fmt.Errorf("postgres migrations: %w", err)
		}

		trades = pgstore.NewTradeRecordStore(pool)
		cache = pgstore.NewTokenCacheStore(pool)
		events = pgstore.NewMigrationEventStore(pool)
		logger.Info().Msg("postgres storage enabled")
	}

	if cfg.ClickhouseDSN != "" {
		conn, err := migrations.RunClickhouseMigrations(ctx, cfg.ClickhouseDSN)
		if err != nil {
			return fmt.Errorf("clickhouse migrations: %w", err)
		}
		defer conn.Close()

		ticks = chstore.NewPriceTickStore(conn)
		logger.Info().Msg("clickhouse tick persistence enabled")
	}

	dial := func(ctx context.Context) (solana.WSClient, error) {
		wsCfg := solana.DefaultWSConfig()
		wsCfg.Commitment = cfg.Stream.Commitment
		wsCfg.Logger = logger.With().Str("component", "ws").Logger()
		return solana.NewWSClient(ctx, cfg.WSEndpoint, &wsCfg)
	}

	s := sniper.New(sniper.Options{
		Config: cfg,
		RPC:    rpc,
		Dial:   dial,
		Jup:    jup,
		Wallet: w,
		Gate:   gate,
		Fees:   estimator,
		Trades: trades,
		Cache:  cache,
		Events: events,
		Ticks:  ticks,
		Logger: logger,
	})

	logger.Info().
		Str("rpc", cfg.RPCEndpoint).
		Str("ws", cfg.WSEndpoint).
		Float64("amount_sol", cfg.Trade.AmountSOL).
		Msg("starting migration sniper")
	return s.Run(ctx)
}

// newLogger builds the process logger.
func newLogger(level string, pretty bool) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}

	var out = os.Stdout
	logger := zerolog.New(out).Level(lvl).With().Timestamp().Logger()
	if pretty {
		logger = logger.Output(zerolog.ConsoleWriter{Out: out, TimeFormat: time.Kitchen})
	}
	return logger
}

// serveMetrics exposes /metrics and /health.
func serveMetrics(addr string, logger zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", observability.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	logger.Info().Str("addr", addr).Msg("metrics server listening")
	if err := http.ListenAndServe(addr, mux); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
