package metrics

import "github.com/prometheus/client_golang/prometheus"

// SettlementMetrics tracks coordinator outcomes.
type SettlementMetrics struct {
	outcomes   *prometheus.CounterVec
	quarantine prometheus.Counter
	refunds    prometheus.Counter
}

// NewSettlementMetrics registers the settlement counters on the provided registerer.
func NewSettlementMetrics(reg prometheus.Registerer) *SettlementMetrics {
	if reg == nil {
		return &SettlementMetrics{}
	}
	outcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "settlement_outcomes_total",
		Help: "Terminal settlement outcomes by kind.",
	}, []string{"outcome"})
	quarantine := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "settlement_quarantined_total",
		Help: "Campaigns left in settling after retry exhaustion.",
	})
	refunds := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "settlement_refunds_total",
		Help: "Refunds issued during settlement.",
	})
	reg.MustRegister(outcomes, quarantine, refunds)
	return &SettlementMetrics{
		outcomes:   outcomes,
		quarantine: quarantine,
		refunds:    refunds,
	}
}

// IncOutcome records a terminal settlement outcome.
func (m *SettlementMetrics) IncOutcome(outcome string) {
	if m == nil || m.outcomes == nil {
		return
	}
	m.outcomes.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// IncQuarantine records a quarantined settlement attempt.
func (m *SettlementMetrics) IncQuarantine() {
	if m == nil || m.quarantine == nil {
		return
	}
	m.quarantine.Inc()
}

// IncRefund records an issued refund.
func (m *SettlementMetrics) IncRefund() {
	if m == nil || m.refunds == nil {
		return
	}
	m.refunds.Inc()
}
