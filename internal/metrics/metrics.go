// Package metrics exposes the session's Prometheus instrumentation. One
// Registry owns every collector; the HTTP server serves it at /metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Registry bundles all session collectors behind one Prometheus registry.
type Registry struct {
	registry *prometheus.Registry

	TickDuration prometheus.Histogram
	TicksTotal   prometheus.Counter
	Trades       *prometheus.CounterVec
	Rejections   *prometheus.CounterVec
	Equity       *prometheus.GaugeVec
	ReturnPct    *prometheus.GaugeVec
	DrawdownPct  *prometheus.GaugeVec
	StoreDrops   *prometheus.CounterVec
	Comparisons  prometheus.Counter
}

// NewRegistry builds and registers every collector.
func NewRegistry() *Registry {
	r := &Registry{registry: prometheus.NewRegistry()}

	r.TickDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "papertrade",
		Name:      "tick_duration_seconds",
		Help:      "Time to evaluate one snapshot set across all strategies",
		Buckets:   prometheus.DefBuckets,
	})
	r.TicksTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "papertrade",
		Name:      "ticks_total",
		Help:      "Completed evaluation ticks",
	})
	r.Trades = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "papertrade",
		Name:      "trades_total",
		Help:      "Committed trades by strategy, side and reason",
	}, []string{"strategy", "side", "reason"})
	r.Rejections = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "papertrade",
		Name:      "rejections_total",
		Help:      "Rejected actions by strategy, kind and reason",
	}, []string{"strategy", "kind", "reason"})
	r.Equity = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "papertrade",
		Name:      "total_equity",
		Help:      "Latest total equity per strategy, domestic currency",
	}, []string{"strategy"})
	r.ReturnPct = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "papertrade",
		Name:      "return_pct",
		Help:      "Latest cumulative return per strategy, percent",
	}, []string{"strategy"})
	r.DrawdownPct = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "papertrade",
		Name:      "drawdown_pct",
		Help:      "Latest drawdown from peak per strategy, percent",
	}, []string{"strategy"})
	r.StoreDrops = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "papertrade",
		Name:      "store_drops_total",
		Help:      "Persistence writes dropped by the circuit breaker",
	}, []string{"op"})
	r.Comparisons = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "papertrade",
		Name:      "comparisons_total",
		Help:      "Completed cross-strategy comparisons",
	})

	r.registry.MustRegister(
		r.TickDuration, r.TicksTotal, r.Trades, r.Rejections,
		r.Equity, r.ReturnPct, r.DrawdownPct, r.StoreDrops, r.Comparisons,
	)
	return r
}

// Prometheus exposes the underlying registry for the HTTP handler.
func (r *Registry) Prometheus() *prometheus.Registry {
	return r.registry
}

// ObserveTick records one completed tick.
func (r *Registry) ObserveTick(d time.Duration) {
	r.TickDuration.Observe(d.Seconds())
	r.TicksTotal.Inc()
}
