// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Correlator metrics
	WithdrawsSeen       prometheus.Counter
	MigrationsResolved  prometheus.Counter
	CandidatesDropped   *prometheus.CounterVec
	CorrelationMapSize  prometheus.Gauge
	RiskEvaluations     *prometheus.CounterVec
	StreamReconnects    prometheus.Counter

	// Executor metrics
	TradeAttempts        *prometheus.CounterVec
	TradesCompleted      *prometheus.CounterVec
	TradeAttemptDuration *prometheus.HistogramVec

	// Fee estimator metrics
	FeeTierLamports   *prometheus.GaugeVec
	FeeSnapshotErrors prometheus.Counter

	// Position metrics
	PositionsOpen       prometheus.Gauge
	PositionExits       *prometheus.CounterVec
	PositionHoldSeconds prometheus.Histogram
	TradePnLSOL         prometheus.Histogram

	// Health metrics
	LastMigrationSeen prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "migration_sniper"
	}

	return &Metrics{
		// Correlator metrics
		WithdrawsSeen: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "correlator",
			Name:      "withdraws_seen_total",
			Help:      "Total number of withdraw instructions observed",
		}),
		MigrationsResolved: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "correlator",
			Name:      "migrations_resolved_total",
			Help:      "Total number of withdraw+initialize2 pairs correlated",
		}),
		CandidatesDropped: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "correlator",
			Name:      "candidates_dropped_total",
			Help:      "Total number of candidates dropped by reason",
		}, []string{"reason"}),
		CorrelationMapSize: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "correlator",
			Name:      "correlation_map_size",
			Help:      "Current number of candidates awaiting initialize2",
		}),
		RiskEvaluations: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "correlator",
			Name:      "risk_evaluations_total",
			Help:      "Total number of risk gate evaluations by result",
		}, []string{"result"}),
		StreamReconnects: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "reconnects_total",
			Help:      "Total number of websocket stream reconnects",
		}),

		// Executor metrics
		TradeAttempts: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "executor",
			Name:      "attempts_total",
			Help:      "Total number of simulate/send attempts by side and outcome",
		}, []string{"side", "outcome"}),
		TradesCompleted: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "executor",
			Name:      "trades_total",
			Help:      "Total number of finished trade runs by side and status",
		}, []string{"side", "status"}),
		TradeAttemptDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "executor",
			Name:      "run_duration_seconds",
			Help:      "Duration of one full escalation run in seconds",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
		}, []string{"side"}),

		// Fee estimator metrics
		FeeTierLamports: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "fees",
			Name:      "tier_lamports",
			Help:      "Latest clamped fee tier values in lamports",
		}, []string{"tier"}),
		FeeSnapshotErrors: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "fees",
			Name:      "snapshot_errors_total",
			Help:      "Total number of failed fee snapshot fetches",
		}),

		// Position metrics
		PositionsOpen: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "position",
			Name:      "open",
			Help:      "Current number of open positions",
		}),
		PositionExits: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "position",
			Name:      "exits_total",
			Help:      "Total number of position exits by reason",
		}, []string{"reason"}),
		PositionHoldSeconds: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "position",
			Name:      "hold_seconds",
			Help:      "Position hold time in seconds",
			Buckets:   []float64{10, 30, 60, 120, 180, 300, 600},
		}),
		TradePnLSOL: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "position",
			Name:      "pnl_sol",
			Help:      "Realized per-trade profit and loss in SOL",
			Buckets:   []float64{-0.01, -0.005, -0.001, 0, 0.001, 0.005, 0.01, 0.05},
		}),

		// Health metrics
		LastMigrationSeen: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_migration_timestamp",
			Help:      "Unix timestamp of the last resolved migration",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordWithdrawSeen increments the withdraws seen counter.
func RecordWithdrawSeen() {
	DefaultMetrics.WithdrawsSeen.Inc()
}

// RecordMigrationResolved records a correlated migration.
func RecordMigrationResolved(unixSeconds int64) {
	DefaultMetrics.MigrationsResolved.Inc()
	DefaultMetrics.LastMigrationSeen.Set(float64(unixSeconds))
}

// RecordCandidateDropped records a dropped candidate by reason.
func RecordCandidateDropped(reason string) {
	DefaultMetrics.CandidatesDropped.WithLabelValues(reason).Inc()
}

// UpdateCorrelationMapSize updates the correlation map size gauge.
func UpdateCorrelationMapSize(size int) {
	DefaultMetrics.CorrelationMapSize.Set(float64(size))
}

// RecordRiskEvaluation records a risk gate result ("pass", "fail" or "error").
func RecordRiskEvaluation(result string) {
	DefaultMetrics.RiskEvaluations.WithLabelValues(result).Inc()
}

// RecordStreamReconnect increments the reconnect counter.
func RecordStreamReconnect() {
	DefaultMetrics.StreamReconnects.Inc()
}

// RecordTradeAttempt records one simulate/send attempt.
func RecordTradeAttempt(side, outcome string) {
	DefaultMetrics.TradeAttempts.WithLabelValues(side, outcome).Inc()
}

// RecordTradeCompleted records a finished escalation run.
func RecordTradeCompleted(side, status string, durationSeconds float64) {
	DefaultMetrics.TradesCompleted.WithLabelValues(side, status).Inc()
	DefaultMetrics.TradeAttemptDuration.WithLabelValues(side).Observe(durationSeconds)
}

// RecordFeeTier updates one fee tier gauge.
func RecordFeeTier(tier string, lamports uint64) {
	DefaultMetrics.FeeTierLamports.WithLabelValues(tier).Set(float64(lamports))
}

// RecordFeeSnapshotError increments the fee snapshot error counter.
func RecordFeeSnapshotError() {
	DefaultMetrics.FeeSnapshotErrors.Inc()
}

// RecordPositionOpened increments the open positions gauge.
func RecordPositionOpened() {
	DefaultMetrics.PositionsOpen.Inc()
}

// RecordPositionClosed records a closed position.
func RecordPositionClosed(reason string, holdSeconds, pnlSOL float64) {
	DefaultMetrics.PositionsOpen.Dec()
	DefaultMetrics.PositionExits.WithLabelValues(reason).Inc()
	DefaultMetrics.PositionHoldSeconds.Observe(holdSeconds)
	DefaultMetrics.TradePnLSOL.Observe(pnlSOL)
}
