// Package position races a trailing stop-loss, a take-profit target and a
// hard hold timeout over an open position, then closes it with a sell.
package position

import (
	"context"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"solana-migration-sniper/internal/domain"
	"solana-migration-sniper/internal/executor"
	"solana-migration-sniper/internal/solana"
	"solana-migration-sniper/internal/storage"
)

// tickFlushSize batches price ticks before persisting them.
const tickFlushSize = 10

// PriceSource fetches the current price of a mint. Satisfied by
// *jupiter.Client.
type PriceSource interface {
	GetPrice(ctx context.Context, mint string) (float64, error)
}

// TradeExecutor runs one escalation search. Satisfied by *executor.Executor.
type TradeExecutor interface {
	Execute(ctx context.Context, req executor.Request) (*executor.Result, error)
}

// Outcome is the result of a finished monitoring run.
type Outcome struct {
	Reason    string // position close reason code
	ExitPrice float64
	Sell      *executor.Result
}

// Monitor polls the price of an open position and triggers the exit sell.
type Monitor struct {
	price  PriceSource
	exec   TradeExecutor
	rpc    solana.RPCClient
	ticks  storage.PriceTickStore // nil disables tick persistence
	wallet string                 // wallet public key, for balance lookups

	stoplossPct   float64
	takeProfitPct float64
	maxHold       time.Duration
	interval      time.Duration

	log zerolog.Logger
}

// Options configures a Monitor.
type Options struct {
	Price     PriceSource
	Executor  TradeExecutor
	RPC       solana.RPCClient
	TickStore storage.PriceTickStore
	WalletPub string

	StoplossPct     float64
	TakeProfitPct   float64
	MaxHoldDuration time.Duration
	MonitorInterval time.Duration

	Logger zerolog.Logger
}

// NewMonitor creates a position monitor.
func NewMonitor(opts Options) *Monitor {
	interval := opts.MonitorInterval
	if interval == 0 {
		interval = 3 * time.Second
	}
	return &Monitor{
		price:         opts.Price,
		exec:          opts.Executor,
		rpc:           opts.RPC,
		ticks:         opts.TickStore,
		wallet:        opts.WalletPub,
		stoplossPct:   opts.StoplossPct,
		takeProfitPct: opts.TakeProfitPct,
		maxHold:       opts.MaxHoldDuration,
		interval:      interval,
		log:           opts.Logger,
	}
}

// Run monitors pos until an exit trigger fires, then sells the full balance.
// The sell is retried every poll interval until it lands; only context
// cancellation aborts the run with the position still open.
//
// fallbackAmount is the raw token amount from the buy, used when the live
// balance lookup fails.
func (m *Monitor) Run(ctx context.Context, pos *domain.Position, fallbackAmount uint64) (*Outcome, error) {
	log := m.log.With().
		Str("mint", pos.Mint).
		Str("pair", pos.PairAddress).
		Float64("entry_price", pos.EntryPrice).
		Logger()

	deadline := time.UnixMilli(pos.OpenedAt).Add(m.maxHold)
	lastPrice := pos.EntryPrice
	var pending []*domain.PriceTick

	defer func() { m.flushTicks(pending) }()

	var reason string
	for reason == "" {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if !time.Now().Before(deadline) {
			reason = domain.CloseReasonTimeout
			break
		}

		price, err := m.price.GetPrice(ctx, pos.Mint)
		if err != nil {
			log.Debug().Err(err).Msg("price poll failed")
			if err := m.sleep(ctx); err != nil {
				return nil, err
			}
			continue
		}
		lastPrice = price
		pending = m.recordTick(pending, pos.Mint, price)

		if price >= pos.TakeProfitPrice {
			reason = domain.CloseReasonTakeProfit
			break
		}

		// Ratchet the trailing stop on a new high before the breach check.
		pos.ObservePrice(price, m.stoplossPct)
		if price <= pos.StoplossPrice {
			reason = domain.CloseReasonStopLoss
			break
		}

		if err := m.sleep(ctx); err != nil {
			return nil, err
		}
	}

	log.Info().
		Str("reason", reason).
		Float64("price", lastPrice).
		Float64("stoploss_price", pos.StoplossPrice).
		Float64("high_watermark", pos.HighWatermark).
		Msg("exit triggered")

	sell, err := m.sellUntilDone(ctx, pos, reason, fallbackAmount, log)
	if err != nil {
		return nil, err
	}

	pos.Close(reason)
	return &Outcome{Reason: reason, ExitPrice: lastPrice, Sell: sell}, nil
}

// sellUntilDone runs the sell executor until it lands. An open position must
// eventually be closed, so exhaustion only delays the next try.
func (m *Monitor) sellUntilDone(ctx context.Context, pos *domain.Position, reason string, fallbackAmount uint64, log zerolog.Logger) (*executor.Result, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		amount := m.sellableAmount(ctx, pos.Mint, fallbackAmount)
		res, err := m.exec.Execute(ctx, executor.Request{
			Mint:        pos.Mint,
			PairAddress: pos.PairAddress,
			Side:        domain.SideSell,
			AmountRaw:   amount,
			Stoploss:    reason == domain.CloseReasonStopLoss,
		})
		if err == nil {
			return res, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		log.Warn().Err(err).Msg("sell attempt failed, retrying after poll interval")
		if err := m.sleep(ctx); err != nil {
			return nil, err
		}
	}
}

// sellableAmount looks up the live token balance to sell 100% of it.
func (m *Monitor) sellableAmount(ctx context.Context, mint string, fallback uint64) uint64 {
	accounts, err := m.rpc.GetTokenAccountsByOwner(ctx, m.wallet)
	if err != nil {
		m.log.Debug().Err(err).Str("mint", mint).Msg("token balance lookup failed")
		return fallback
	}
	for _, acc := range accounts {
		if acc.Mint != mint {
			continue
		}
		amount, err := strconv.ParseUint(acc.Amount, 10, 64)
		if err != nil || amount == 0 {
			break
		}
		return amount
	}
	return fallback
}

// recordTick buffers a tick and flushes the buffer when full.
func (m *Monitor) recordTick(pending []*domain.PriceTick, mint string, price float64) []*domain.PriceTick {
	if m.ticks == nil {
		return pending
	}
	pending = append(pending, &domain.PriceTick{
		Mint:        mint,
		TimestampMs: time.Now().UnixMilli(),
		Price:       price,
	})
	if len(pending) < tickFlushSize {
		return pending
	}
	m.flushTicks(pending)
	return pending[:0]
}

// flushTicks persists buffered ticks, best effort.
func (m *Monitor) flushTicks(pending []*domain.PriceTick) {
	if m.ticks == nil || len(pending) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := m.ticks.InsertBulk(ctx, pending); err != nil {
		m.log.Debug().Err(err).Int("ticks", len(pending)).Msg("tick flush failed")
	}
}

func (m *Monitor) sleep(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(m.interval):
		return nil
	}
}
