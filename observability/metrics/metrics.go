// Package metrics exports the qd engine's Prometheus gauges and
// counters, grounded on observability/metrics/potso.go's sync.Once
// package registry idiom.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// QDMetrics is the engine's Prometheus registry: per-pool balances, the
// liquidation counter, and the premium-rate histogram the update crank
// feeds.
type QDMetrics struct {
	poolCredit     *prometheus.GaugeVec
	poolDebit      *prometheus.GaugeVec
	liquidations   *prometheus.CounterVec
	premiumRate    *prometheus.HistogramVec
	updateRuns     prometheus.Counter
	updateTooEarly prometheus.Counter
}

var (
	once     sync.Once
	registry *QDMetrics
)

// Registry returns the package-wide metrics registry, constructing and
// registering it with the default Prometheus registerer on first call.
func Registry() *QDMetrics {
	once.Do(func() {
		registry = &QDMetrics{
			poolCredit: prometheus.NewGaugeVec(prometheus.GaugeOpts{
				Name: "qd_pool_credit",
				Help: "Current credit balance per pool and side.",
			}, []string{"pool", "side"}),
			poolDebit: prometheus.NewGaugeVec(prometheus.GaugeOpts{
				Name: "qd_pool_debit",
				Help: "Current debit balance per pool and side.",
			}, []string{"pool", "side"}),
			liquidations: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "qd_liquidations_total",
				Help: "Count of clip outcomes by side and kind (rescue/shrink/snatch).",
			}, []string{"side", "kind"}),
			premiumRate: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Name:    "qd_premium_rate",
				Help:    "Annualised insurance premium rate computed by stress_pledge.",
				Buckets: prometheus.LinearBuckets(0, 0.02, 21),
			}, []string{"side"}),
			updateRuns: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "qd_update_runs_total",
				Help: "Count of completed update crank cycles.",
			}),
			updateTooEarly: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "qd_update_too_early_total",
				Help: "Count of update calls rejected for running inside the cooldown window.",
			}),
		}
		prometheus.MustRegister(
			registry.poolCredit,
			registry.poolDebit,
			registry.liquidations,
			registry.premiumRate,
			registry.updateRuns,
			registry.updateTooEarly,
		)
	})
	return registry
}

func sideLabel(short bool) string {
	if short {
		return "short"
	}
	return "long"
}

// SetPoolBalances records one pool's current credit/debit for both sides.
func (m *QDMetrics) SetPoolBalances(pool string, longCredit, longDebit, shortCredit, shortDebit float64) {
	if m == nil {
		return
	}
	m.poolCredit.WithLabelValues(pool, "long").Set(longCredit)
	m.poolDebit.WithLabelValues(pool, "long").Set(longDebit)
	m.poolCredit.WithLabelValues(pool, "short").Set(shortCredit)
	m.poolDebit.WithLabelValues(pool, "short").Set(shortDebit)
}

// ObserveLiquidation records one clip outcome.
func (m *QDMetrics) ObserveLiquidation(short bool, kind string) {
	if m == nil {
		return
	}
	m.liquidations.WithLabelValues(sideLabel(short), kind).Inc()
}

// ObservePremiumRate records one pledge's freshly computed premium rate.
func (m *QDMetrics) ObservePremiumRate(short bool, rate float64) {
	if m == nil {
		return
	}
	m.premiumRate.WithLabelValues(sideLabel(short)).Observe(rate)
}

// ObserveUpdate records one update() call's outcome.
func (m *QDMetrics) ObserveUpdate(tooEarly bool) {
	if m == nil {
		return
	}
	if tooEarly {
		m.updateTooEarly.Inc()
		return
	}
	m.updateRuns.Inc()
}
