package metrics

import "github.com/prometheus/client_golang/prometheus"

// DialogMetrics exposes counters/histograms for the conversation pipeline.
type DialogMetrics struct {
	inboundTotal    *prometheus.CounterVec
	intentsTotal    *prometheus.CounterVec
	actionsTotal    *prometheus.CounterVec
	resolverLatency *prometheus.HistogramVec
}

func NewDialogMetrics(reg prometheus.Registerer) *DialogMetrics {
	m := &DialogMetrics{
		inboundTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "concierge",
			Subsystem: "dialog",
			Name:      "inbound_total",
			Help:      "Total inbound messages handled",
		}, []string{"status"}),
		intentsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "concierge",
			Subsystem: "dialog",
			Name:      "intents_total",
			Help:      "Total resolved intents by kind",
		}, []string{"kind"}),
		actionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "concierge",
			Subsystem: "dialog",
			Name:      "actions_total",
			Help:      "Total executed actions by kind and outcome",
		}, []string{"kind", "status"}),
		resolverLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "concierge",
			Subsystem: "dialog",
			Name:      "resolver_latency_seconds",
			Help:      "Latency of intent resolution",
			Buckets:   prometheus.DefBuckets,
		}, []string{"status"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.inboundTotal, m.intentsTotal, m.actionsTotal, m.resolverLatency)
	return m
}

func (m *DialogMetrics) ObserveInbound(status string) {
	if m == nil {
		return
	}
	m.inboundTotal.WithLabelValues(status).Inc()
}

func (m *DialogMetrics) ObserveIntent(kind string) {
	if m == nil {
		return
	}
	m.intentsTotal.WithLabelValues(kind).Inc()
}

func (m *DialogMetrics) ObserveAction(kind, status string) {
	if m == nil {
		return
	}
	m.actionsTotal.WithLabelValues(kind, status).Inc()
}

func (m *DialogMetrics) ObserveResolverLatency(status string, seconds float64) {
	if m == nil {
		return
	}
	m.resolverLatency.WithLabelValues(status).Observe(seconds)
}
