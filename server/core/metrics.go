package core

import "github.com/prometheus/client_golang/prometheus"

type Metrics struct {
	Peers     prometheus.Gauge
	Rooms     prometheus.Gauge
	Relayed   *prometheus.CounterVec
	Dropped   prometheus.Counter
	Handshake *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Peers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "nafsync",
			Subsystem: "relay",
			Name:      "peers",
			Help:      "Connected peers that completed the handshake.",
		}),
		Rooms: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "nafsync",
			Subsystem: "relay",
			Name:      "rooms",
			Help:      "Rooms with at least one peer.",
		}),
		Relayed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "nafsync",
			Subsystem: "relay",
			Name:      "relayed_total",
			Help:      "Messages fanned out to room peers, by message kind.",
		}, []string{"kind"}),
		Dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "nafsync",
			Subsystem: "relay",
			Name:      "slow_peers_dropped_total",
			Help:      "Peers disconnected because their send queue filled up.",
		}),
		Handshake: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "nafsync",
			Subsystem: "relay",
			Name:      "handshakes_total",
			Help:      "Handshakes, by result.",
		}, []string{"result"}),
	}
	if reg != nil {
		reg.MustRegister(m.Peers, m.Rooms, m.Relayed, m.Dropped, m.Handshake)
	}
	return m
}
