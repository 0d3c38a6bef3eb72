// Package metricsx exposes the node's Prometheus collectors: blocks
// processed by result code, active election count, confirmation lag,
// and the current online-weight sample (§2 Ambient Stack, Metrics).
package metricsx

import "github.com/prometheus/client_golang/prometheus"

// Metrics bundles every collector the node registers. Callers pull one
// instance together at startup and hand it to each subsystem that needs
// to report; nothing here is a package-level global.
type Metrics struct {
	BlocksProcessed  *prometheus.CounterVec
	ActiveElections  prometheus.Gauge
	ConfirmationLag  prometheus.Gauge
	OnlineWeight     prometheus.Gauge
	UncheckedBuffered prometheus.Gauge
}

// New builds a Metrics bundle and registers every collector against reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		BlocksProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "latticed",
			Subsystem: "ledger",
			Name:      "blocks_processed_total",
			Help:      "Blocks processed by result code.",
		}, []string{"result"}),
		ActiveElections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "latticed",
			Subsystem: "elections",
			Name:      "active",
			Help:      "Number of elections currently in progress.",
		}),
		ConfirmationLag: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "latticed",
			Subsystem: "confirmheight",
			Name:      "lag_blocks",
			Help:      "Difference between the ledger frontier height and the confirmed height, summed across accounts currently behind.",
		}),
		OnlineWeight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "latticed",
			Subsystem: "onlineweight",
			Name:      "current",
			Help:      "Most recent online-weight median sample, in raw units.",
		}),
		UncheckedBuffered: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "latticed",
			Subsystem: "unchecked",
			Name:      "buffered",
			Help:      "Blocks currently held in the unchecked buffer awaiting their dependency.",
		}),
	}

	reg.MustRegister(
		m.BlocksProcessed,
		m.ActiveElections,
		m.ConfirmationLag,
		m.OnlineWeight,
		m.UncheckedBuffered,
	)
	return m
}
