package netentity

import "github.com/prometheus/client_golang/prometheus"

// Metrics counts registry lifecycle events. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	Entities prometheus.Gauge
	Created  prometheus.Counter
	Removed  prometheus.Counter
	Rejected *prometheus.CounterVec
}

// NewMetrics builds the registry metrics and registers them with reg when
// reg is non-nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Entities: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "nafsync",
			Subsystem: "registry",
			Name:      "entities",
			Help:      "Entity records currently held by the registry.",
		}),
		Created: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "nafsync",
			Subsystem: "registry",
			Name:      "created_total",
			Help:      "Entity records created, local and remote.",
		}),
		Removed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "nafsync",
			Subsystem: "registry",
			Name:      "removed_total",
			Help:      "Entity records removed.",
		}),
		Rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "nafsync",
			Subsystem: "registry",
			Name:      "rejected_updates_total",
			Help:      "Inbound snapshots dropped, by reason.",
		}, []string{"reason"}),
	}
	if reg != nil {
		reg.MustRegister(m.Entities, m.Created, m.Removed, m.Rejected)
	}
	return m
}

func (m *Metrics) created(total int) {
	if m == nil {
		return
	}
	m.Created.Inc()
	m.Entities.Set(float64(total))
}

func (m *Metrics) removed(n, total int) {
	if m == nil {
		return
	}
	m.Removed.Add(float64(n))
	m.Entities.Set(float64(total))
}

func (m *Metrics) rejected(reason string) {
	if m == nil {
		return
	}
	m.Rejected.WithLabelValues(reason).Inc()
}
