// Package sniper wires the correlator, executor and position monitor into
// the live trading pipeline.
package sniper

import (
	"context"
	"errors"
	"math"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"solana-migration-sniper/internal/config"
	"solana-migration-sniper/internal/domain"
	"solana-migration-sniper/internal/executor"
	"solana-migration-sniper/internal/jupiter"
	"solana-migration-sniper/internal/migration"
	"solana-migration-sniper/internal/observability"
	"solana-migration-sniper/internal/position"
	"solana-migration-sniper/internal/riskgate"
	"solana-migration-sniper/internal/solana"
	"solana-migration-sniper/internal/storage"
	"solana-migration-sniper/internal/wallet"
)

const lamportsPerSOL = 1_000_000_000

// Sniper is the live trading pipeline.
type Sniper struct {
	cfg    config.Config
	rpc    solana.RPCClient
	dial   migration.DialFunc
	jup    *jupiter.Client
	wallet *wallet.Wallet
	gate   riskgate.Gate

	trades storage.TradeRecordStore
	cache  storage.TokenCacheStore
	events storage.MigrationEventStore
	ticks  storage.PriceTickStore // nil disables tick persistence

	exec       *executor.Executor
	monitor    *position.Monitor
	correlator *migration.Correlator

	pipelines sync.WaitGroup
	log       zerolog.Logger
}

// Options carries the collaborators the sniper runs on.
type Options struct {
	Config config.Config
	RPC    solana.RPCClient
	Dial   migration.DialFunc
	Jup    *jupiter.Client
	Wallet *wallet.Wallet
	Gate   riskgate.Gate
	Fees   executor.FeeSource

	Trades storage.TradeRecordStore
	Cache  storage.TokenCacheStore
	Events storage.MigrationEventStore
	Ticks  storage.PriceTickStore

	Logger zerolog.Logger
}

// New assembles a sniper from its collaborators.
func New(opts Options) *Sniper {
	cfg := opts.Config

	s := &Sniper{
		cfg:    cfg,
		rpc:    opts.RPC,
		dial:   opts.Dial,
		jup:    opts.Jup,
		wallet: opts.Wallet,
		gate:   opts.Gate,
		trades: opts.Trades,
		cache:  opts.Cache,
		events: opts.Events,
		ticks:  opts.Ticks,
		log:    opts.Logger,
	}

	s.exec = executor.New(executor.Options{
		RPC:                opts.RPC,
		Jupiter:            opts.Jup,
		Signer:             opts.Wallet,
		Fees:               opts.Fees,
		BuySlippage:        cfg.Trade.BuySlippage,
		SellSlippage:       cfg.Trade.SellSlippage,
		StoplossMinBps:     cfg.Trade.StoplossMinBps,
		StoplossMultiplier: cfg.Fees.StoplossMultiplier,
		ConfirmTimeout:     cfg.Trade.ConfirmTimeout,
		ConfirmCommitment:  cfg.Trade.ConfirmCommitment,
		Logger:             opts.Logger.With().Str("component", "executor").Logger(),
	})

	s.monitor = position.NewMonitor(position.Options{
		Price:           opts.Jup,
		Executor:        s.exec,
		RPC:             opts.RPC,
		TickStore:       opts.Ticks,
		WalletPub:       opts.Wallet.PublicKey(),
		StoplossPct:     cfg.Exit.StoplossPct,
		TakeProfitPct:   cfg.Exit.TakeProfitPct,
		MaxHoldDuration: cfg.Exit.MaxHoldDuration,
		MonitorInterval: cfg.Exit.MonitorInterval,
		Logger:          opts.Logger.With().Str("component", "position").Logger(),
	})

	s.correlator = migration.NewCorrelator(migration.Options{
		RPC:          opts.RPC,
		Gate:         opts.Gate,
		TokenCache:   opts.Cache,
		EventStore:   opts.Events,
		CandidateTTL: cfg.Stream.CandidateTTL,
		OnResolved:   s.onMigration,
		Logger:       opts.Logger.With().Str("component", "correlator").Logger(),
	})

	return s
}

// Run sweeps leftover balances, then supervises the log stream until ctx is
// cancelled. In-flight trade pipelines are drained before returning.
func (s *Sniper) Run(ctx context.Context) error {
	s.sweepLeftovers(ctx)

	go s.correlator.RunJanitor(ctx)

	supervisor := migration.NewSupervisor(migration.SupervisorOptions{
		Dial:           s.dial,
		Correlator:     s.correlator,
		Mentions:       []string{config.MigrationAuthority},
		ReconnectDelay: s.cfg.Stream.ReconnectDelay,
		Logger:         s.log.With().Str("component", "stream").Logger(),
	})

	err := supervisor.Run(ctx)

	s.log.Info().Msg("stream stopped, draining trade pipelines")
	s.pipelines.Wait()
	return err
}

// onMigration is the correlator's resolved callback. It runs the whole buy,
// monitor and sell pipeline for one mint.
func (s *Sniper) onMigration(ctx context.Context, event *domain.MigrationEvent) {
	s.pipelines.Add(1)
	defer s.pipelines.Done()

	log := s.log.With().
		Str("mint", event.Mint).
		Str("pair", event.PairAddress).
		Logger()

	if !s.hasTradingBalance(ctx, log) {
		return
	}

	// Fresh pools need a moment before routes and prices exist.
	if s.cfg.Trade.StartupDelay > 0 {
		select {
		case <-ctx.Done():
			return
		case <-time.After(s.cfg.Trade.StartupDelay):
		}
	}

	amountLamports := uint64(math.Round(s.cfg.Trade.AmountSOL * lamportsPerSOL))
	buy, err := s.exec.Execute(ctx, executor.Request{
		Mint:        event.Mint,
		PairAddress: event.PairAddress,
		Side:        domain.SideBuy,
		AmountRaw:   amountLamports,
	})
	if err != nil {
		log.Warn().Err(err).Msg("buy failed, pipeline ends without a position")
		return
	}

	// The quote amounts are the plan, not the fill. The landed transaction's
	// balance deltas carry what actually happened.
	tokensBought := buy.OutAmount
	entrySpent := s.cfg.Trade.AmountSOL
	if tx := s.landedTx(ctx, buy.Signature, log); tx != nil {
		if delta := tx.TokenBalanceDelta(s.wallet.PublicKey(), event.Mint); delta > 0 {
			tokensBought = uint64(delta)
		}
		if delta := tx.LamportBalanceDelta(s.wallet.PublicKey()); delta < 0 {
			entrySpent = float64(-delta) / lamportsPerSOL
		}
	}

	entryPrice, err := s.jup.GetPriceWithRetry(ctx, event.Mint,
		s.cfg.Trade.PriceLookupRetries, s.cfg.Exit.MonitorInterval)
	if err != nil {
		// Monitoring is impossible without a price anchor.
		log.Error().Err(err).Msg("no entry price after retries, liquidating position immediately")
		s.liquidate(ctx, event, buy, log)
		return
	}

	now := time.Now()
	pos := domain.NewPosition(event.Mint, event.PairAddress,
		entryPrice, s.cfg.Exit.StoplossPct, s.cfg.Exit.TakeProfitPct, now.UnixMilli())

	trade := &domain.TradeRecord{
		TradeID:       buy.Signature,
		Mint:          event.Mint,
		PairAddress:   event.PairAddress,
		EntryTime:     now.UnixMilli(),
		EntryPrice:    entryPrice,
		EntrySOLSpent: entrySpent,
		TokensBought:  float64(tokensBought),
		EntryFeeTier:  buy.FeeTier,
		EntrySlipBps:  buy.SlippageBps,
		EntryFee:      buy.FeeLamports,
	}
	if err := s.trades.Insert(ctx, trade); err != nil {
		log.Warn().Err(err).Msg("trade open record failed")
	}
	observability.RecordPositionOpened()
	log.Info().
		Float64("entry_price", entryPrice).
		Float64("stoploss_price", pos.StoplossPrice).
		Float64("take_profit_price", pos.TakeProfitPrice).
		Msg("position opened")

	outcome, err := s.monitor.Run(ctx, pos, tokensBought)
	if err != nil {
		log.Warn().Err(err).Msg("monitor aborted, position may still be open")
		return
	}

	s.closeTrade(ctx, trade, outcome, log)
}

// landedTx fetches the confirmed transaction behind a landed signature so the
// trade record carries realized amounts. Nil when the node has not surfaced
// it yet; callers keep the quote values.
func (s *Sniper) landedTx(ctx context.Context, signature string, log zerolog.Logger) *solana.Transaction {
	tx, err := s.rpc.GetTransaction(ctx, signature)
	if err != nil {
		log.Debug().Err(err).Str("signature", signature).Msg("landed transaction lookup failed")
		return nil
	}
	return tx
}

// liquidate sells a position that cannot be monitored, using the timeout
// close reason.
func (s *Sniper) liquidate(ctx context.Context, event *domain.MigrationEvent, buy *executor.Result, log zerolog.Logger) {
	sell, err := s.exec.Execute(ctx, executor.Request{
		Mint:        event.Mint,
		PairAddress: event.PairAddress,
		Side:        domain.SideSell,
		AmountRaw:   buy.OutAmount,
	})
	if err != nil {
		log.Error().Err(err).Msg("immediate liquidation failed")
		return
	}
	log.Info().Str("signature", sell.Signature).Msg("position liquidated")
}

// closeTrade fills in the exit leg and persists the finished round trip.
func (s *Sniper) closeTrade(ctx context.Context, trade *domain.TradeRecord, outcome *position.Outcome, log zerolog.Logger) {
	trade.ExitTime = time.Now().UnixMilli()
	trade.ExitPrice = outcome.ExitPrice
	trade.ExitReason = outcome.Reason
	trade.ExitFeeTier = outcome.Sell.FeeTier
	trade.ExitSlipBps = outcome.Sell.SlippageBps
	trade.ExitFee = outcome.Sell.FeeLamports
	trade.ExitSignature = outcome.Sell.Signature

	trade.ExitSOLReceived = float64(outcome.Sell.OutAmount) / lamportsPerSOL
	if tx := s.landedTx(ctx, outcome.Sell.Signature, log); tx != nil {
		if delta := tx.LamportBalanceDelta(s.wallet.PublicKey()); delta > 0 {
			trade.ExitSOLReceived = float64(delta) / lamportsPerSOL
		}
	}

	if trade.EntryPrice > 0 {
		trade.GrossReturn = trade.ExitPrice/trade.EntryPrice - 1
	}
	trade.PnLSOL = trade.ExitSOLReceived - trade.EntrySOLSpent
	if trade.PnLSOL >= 0 {
		trade.OutcomeClass = domain.OutcomeClassWin
	} else {
		trade.OutcomeClass = domain.OutcomeClassLoss
	}

	if err := s.trades.Close(ctx, trade); err != nil {
		log.Warn().Err(err).Msg("trade close record failed")
	}

	holdSeconds := float64(trade.ExitTime-trade.EntryTime) / 1000
	observability.RecordPositionClosed(outcome.Reason, holdSeconds, trade.PnLSOL)

	log.Info().
		Str("reason", outcome.Reason).
		Str("outcome", trade.OutcomeClass).
		Float64("pnl_sol", trade.PnLSOL).
		Float64("gross_return", trade.GrossReturn).
		Msg("trade closed")
}

// hasTradingBalance enforces the minimum SOL reserve before a buy.
func (s *Sniper) hasTradingBalance(ctx context.Context, log zerolog.Logger) bool {
	balance, err := s.rpc.GetBalance(ctx, s.wallet.PublicKey())
	if err != nil {
		log.Warn().Err(err).Msg("balance check failed, skipping buy")
		return false
	}

	required := uint64(math.Round((s.cfg.Trade.MinSOLBalance + s.cfg.Trade.AmountSOL) * lamportsPerSOL))
	if balance < required {
		log.Warn().
			Uint64("balance_lamports", balance).
			Uint64("required_lamports", required).
			Msg("insufficient balance, skipping buy")
		return false
	}
	return true
}

// sweepLeftovers sells token balances left over from a previous run that was
// interrupted with positions open.
func (s *Sniper) sweepLeftovers(ctx context.Context) {
	accounts, err := s.rpc.GetTokenAccountsByOwner(ctx, s.wallet.PublicKey())
	if err != nil {
		s.log.Warn().Err(err).Msg("leftover sweep failed")
		return
	}

	for _, acc := range accounts {
		if acc.Mint == config.SOLMint {
			continue
		}
		amount, err := strconv.ParseUint(acc.Amount, 10, 64)
		if err != nil || amount == 0 {
			continue
		}

		log := s.log.With().Str("mint", acc.Mint).Uint64("amount", amount).Logger()
		log.Info().Msg("liquidating leftover balance from previous run")

		res, err := s.exec.Execute(ctx, executor.Request{
			Mint:      acc.Mint,
			Side:      domain.SideSell,
			AmountRaw: amount,
		})
		if err != nil {
			if errors.Is(err, executor.ErrExhausted) {
				log.Warn().Msg("leftover could not be sold")
				continue
			}
			log.Warn().Err(err).Msg("leftover sell failed")
			continue
		}
		log.Info().Str("signature", res.Signature).Msg("leftover sold")
	}
}
