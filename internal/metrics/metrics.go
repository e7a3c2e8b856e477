package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes the collectors reported by the gateway and the diagram
// exporter.
type Metrics struct {
	generateRequests *prometheus.CounterVec
	generateDuration *prometheus.HistogramVec
	diagramExports   *prometheus.CounterVec
	activeSessions   prometheus.Gauge
}

// MustNew registers the collectors on reg. Tests pass a fresh registry.
func MustNew(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		generateRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "ikigai",
				Subsystem: "gateway",
				Name:      "requests_total",
				Help:      "Text generation requests by output mode and outcome.",
			},
			[]string{"mode", "outcome"},
		),
		generateDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "ikigai",
				Subsystem: "gateway",
				Name:      "request_duration_seconds",
				Help:      "Latency of upstream generation calls.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"mode"},
		),
		diagramExports: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "ikigai",
				Subsystem: "diagram",
				Name:      "exports_total",
				Help:      "Diagram renders by format and action.",
			},
			[]string{"format", "action"},
		),
		activeSessions: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "ikigai",
				Subsystem: "session",
				Name:      "active",
				Help:      "Sessions currently held in memory.",
			},
		),
	}
	reg.MustRegister(m.generateRequests, m.generateDuration, m.diagramExports, m.activeSessions)
	return m
}

// ObserveGenerate records one gateway call. A nil receiver is a no-op.
func (m *Metrics) ObserveGenerate(structured bool, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	mode := "text"
	if structured {
		mode = "json"
	}
	m.generateRequests.WithLabelValues(mode, outcome).Inc()
	m.generateDuration.WithLabelValues(mode).Observe(elapsed.Seconds())
}

func (m *Metrics) ObserveExport(format, action string) {
	if m == nil {
		return
	}
	m.diagramExports.WithLabelValues(format, action).Inc()
}

func (m *Metrics) SetActiveSessions(n int) {
	if m == nil {
		return
	}
	m.activeSessions.Set(float64(n))
}
