package exchange

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors updated by an Orchestrator. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	exchanges          *prometheus.CounterVec
	resolutions        *prometheus.CounterVec
	capabilityFailures *prometheus.CounterVec
	duration           prometheus.Histogram
	settlements        prometheus.Counter
	finalized          prometheus.Counter
}

// NewMetrics creates the collectors and registers them with reg. A nil reg
// leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		exchanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "commonpool",
			Name:      "exchange_total",
			Help:      "Exchanges recorded, by initial outcome.",
		}, []string{"outcome"}),
		resolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "commonpool",
			Name:      "exchange_resolved_total",
			Help:      "Exchange outcome transitions out of pending.",
		}, []string{"outcome"}),
		capabilityFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "commonpool",
			Name:      "exchange_capability_failures_total",
			Help:      "Failed language-model calls, by role.",
		}, []string{"role"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "commonpool",
			Name:      "exchange_duration_seconds",
			Help:      "Wall time of InitiateExchange including model calls.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
		}),
		settlements: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "commonpool",
			Name:      "exchange_settlements_total",
			Help:      "Successful exchanges whose resources were transferred.",
		}),
		finalized: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "commonpool",
			Name:      "simulation_finalized_total",
			Help:      "Simulations finalized.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.exchanges, m.resolutions, m.capabilityFailures, m.duration, m.settlements, m.finalized)
	}
	return m
}

func (m *Metrics) observeExchange(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.exchanges.WithLabelValues(outcome).Inc()
	m.duration.Observe(d.Seconds())
}

func (m *Metrics) observeResolution(outcome string) {
	if m == nil {
		return
	}
	m.resolutions.WithLabelValues(outcome).Inc()
}

func (m *Metrics) observeCapabilityFailure(role string) {
	if m == nil {
		return
	}
	m.capabilityFailures.WithLabelValues(role).Inc()
}

func (m *Metrics) observeSettlement() {
	if m == nil {
		return
	}
	m.settlements.Inc()
}

func (m *Metrics) observeFinalized() {
	if m == nil {
		return
	}
	m.finalized.Inc()
}
