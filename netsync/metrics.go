package netsync

import "github.com/prometheus/client_golang/prometheus"

// Metrics counts envelopes through the dispatcher and the scheduler. A nil
// *Metrics records nothing.
type Metrics struct {
	Dispatched *prometheus.CounterVec
	Warnings   *prometheus.CounterVec
	Sent       *prometheus.CounterVec
	SendErrors prometheus.Counter
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Dispatched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "nafsync",
			Subsystem: "sync",
			Name:      "dispatched_total",
			Help:      "Inbound envelopes dispatched, by message kind.",
		}, []string{"kind"}),
		Warnings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "nafsync",
			Subsystem: "sync",
			Name:      "protocol_warnings_total",
			Help:      "Non-fatal protocol inconsistencies, by reason.",
		}, []string{"reason"}),
		Sent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "nafsync",
			Subsystem: "sync",
			Name:      "sent_total",
			Help:      "Outbound entity snapshots, by sync type.",
		}, []string{"type"}),
		SendErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "nafsync",
			Subsystem: "sync",
			Name:      "send_errors_total",
			Help:      "Outbound snapshots the transport refused.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.Dispatched, m.Warnings, m.Sent, m.SendErrors)
	}
	return m
}

func (m *Metrics) dispatched(kind string) {
	if m != nil {
		m.Dispatched.WithLabelValues(kind).Inc()
	}
}

func (m *Metrics) warn(reason string) {
	if m != nil {
		m.Warnings.WithLabelValues(reason).Inc()
	}
}

func (m *Metrics) sent(syncType string) {
	if m != nil {
		m.Sent.WithLabelValues(syncType).Inc()
	}
}

func (m *Metrics) sendFailed() {
	if m != nil {
		m.SendErrors.Inc()
	}
}
