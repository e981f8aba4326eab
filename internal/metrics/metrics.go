// Package metrics exposes Prometheus collectors for verification runs.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "contractvc"

// Metrics groups the collectors updated by the engine. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	obligations *prometheus.CounterVec
	solveTime   *prometheus.HistogramVec
	cacheHits   prometheus.Counter
	functions   *prometheus.CounterVec
}

// New creates the collectors and registers them with reg. A nil reg
// leaves them unregistered.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		obligations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "obligations_total",
			Help:      "Obligations discharged, by kind and verdict.",
		}, []string{"kind", "status"}),
		solveTime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "solve_duration_seconds",
			Help:      "Time spent in the solver per obligation.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
		}, []string{"kind"}),
		cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_hits_total",
			Help:      "Verdicts served from the cache.",
		}),
		functions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "functions_total",
			Help:      "Functions verified, by outcome.",
		}, []string{"status"}),
	}
	if reg == nil {
		return m, nil
	}
	for _, c := range []prometheus.Collector{m.obligations, m.solveTime, m.cacheHits, m.functions} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// ObserveObligation records one discharged obligation.
func (m *Metrics) ObserveObligation(kind, status string, d time.Duration, cached bool) {
	if m == nil {
		return
	}
	m.obligations.WithLabelValues(kind, status).Inc()
	if cached {
		m.cacheHits.Inc()
		return
	}
	m.solveTime.WithLabelValues(kind).Observe(d.Seconds())
}

// ObserveFunction records the outcome of one function.
func (m *Metrics) ObserveFunction(status string) {
	if m == nil {
		return
	}
	m.functions.WithLabelValues(status).Inc()
}

// Obligations returns the obligation counter, for inspection in tests.
func (m *Metrics) Obligations() *prometheus.CounterVec { return m.obligations }

// CacheHits returns the cache hit counter.
func (m *Metrics) CacheHits() prometheus.Counter { return m.cacheHits }

// Functions returns the function outcome counter.
func (m *Metrics) Functions() *prometheus.CounterVec { return m.functions }
