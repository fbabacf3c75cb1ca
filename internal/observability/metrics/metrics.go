// Package metrics holds the Prometheus collectors of the supervisor.
//
// All methods handle a nil receiver so callers need no guards when metrics
// are disabled.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"mycelium/internal/seeding"
)

// Update check results.
const (
	ResultNoUpdate = "no_update"
	ResultUpdate   = "update"
	ResultError    = "error"
)

type Metrics struct {
	reg *prometheus.Registry

	// UpdateChecks counts polls by result
	UpdateChecks *prometheus.CounterVec

	// Heartbeats counts emitted heartbeat records
	Heartbeats prometheus.Counter

	// SinkFailures counts failed heartbeat deliveries by sink
	SinkFailures *prometheus.CounterVec

	SeedingActive   prometheus.Gauge
	SeedingItems    prometheus.Gauge
	SeedingPeers    prometheus.Gauge
	SeedingUploaded prometheus.Gauge

	StartTime prometheus.Gauge
}

// New creates a registry with the process/Go collectors and the
// supervisor's own metrics.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := &Metrics{
		reg: reg,
		UpdateChecks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mycelium_update_checks_total",
				Help: "Upstream update polls by result (no_update, update, error)",
			},
			[]string{"result"},
		),
		Heartbeats: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "mycelium_heartbeats_total",
				Help: "Total heartbeat records emitted",
			},
		),
		SinkFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mycelium_heartbeat_sink_failures_total",
				Help: "Failed heartbeat deliveries by sink",
			},
			[]string{"sink"},
		),
		SeedingActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "mycelium_seeding_active",
			Help: "1 while the seeding session has registered items",
		}),
		SeedingItems: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "mycelium_seeding_items",
			Help: "Items registered in the seeding session",
		}),
		SeedingPeers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "mycelium_seeding_peers",
			Help: "Connected peers across all items",
		}),
		SeedingUploaded: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "mycelium_seeding_uploaded_bytes",
			Help: "Payload bytes uploaded during this session",
		}),
		StartTime: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "mycelium_start_time_seconds",
			Help: "Unix time the supervisor started",
		}),
	}
	reg.MustRegister(
		m.UpdateChecks,
		m.Heartbeats,
		m.SinkFailures,
		m.SeedingActive,
		m.SeedingItems,
		m.SeedingPeers,
		m.SeedingUploaded,
		m.StartTime,
	)
	m.StartTime.Set(float64(time.Now().Unix()))
	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.reg
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}

func (m *Metrics) ObserveUpdateCheck(result string) {
	if m == nil {
		return
	}
	m.UpdateChecks.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveHeartbeat() {
	if m == nil {
		return
	}
	m.Heartbeats.Inc()
}

func (m *Metrics) ObserveSinkFailure(sink string) {
	if m == nil {
		return
	}
	m.SinkFailures.WithLabelValues(sink).Inc()
}

func (m *Metrics) ObserveSeeding(st seeding.Status) {
	if m == nil {
		return
	}
	if st.Active {
		m.SeedingActive.Set(1)
	} else {
		m.SeedingActive.Set(0)
	}
	m.SeedingItems.Set(float64(st.Items))
	m.SeedingPeers.Set(float64(st.Peers))
	m.SeedingUploaded.Set(float64(st.BytesUploaded))
}
