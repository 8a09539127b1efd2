package metric

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics contains platform-level metrics shared by every engine instance
// (not subsystem-specific; the engine registers its executor and
// notification metrics separately)
type Metrics struct {
	// EngineStatus reports lifecycle per engine (0=stopped, 1=running)
	EngineStatus *prometheus.GaugeVec

	// ErrorsTotal counts errors by subsystem and class
	ErrorsTotal *prometheus.CounterVec

	// HealthStatus reports subsystem health (0=unhealthy, 1=degraded, 2=healthy)
	HealthStatus *prometheus.GaugeVec
}

// NewMetrics creates a new Metrics instance with all platform metrics
func NewMetrics() *Metrics {
	return &Metrics{
		EngineStatus: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "exengine",
				Subsystem: "engine",
				Name:      "status",
				Help:      "Engine status (0=stopped, 1=running)",
			},
			[]string{"engine"},
		),

		ErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "exengine",
				Subsystem: "engine",
				Name:      "errors_total",
				Help:      "Total number of errors by subsystem and class",
			},
			[]string{"subsystem", "class"},
		),

		HealthStatus: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "exengine",
				Subsystem: "engine",
				Name:      "health_status",
				Help:      "Subsystem health (0=unhealthy, 1=degraded, 2=healthy)",
			},
			[]string{"subsystem"},
		),
	}
}

// RecordError increments the error counter for a subsystem
func (m *Metrics) RecordError(subsystem, class string) {
	if m == nil {
		return
	}
	m.ErrorsTotal.WithLabelValues(subsystem, class).Inc()
}

// SetHealth records a subsystem's health level
func (m *Metrics) SetHealth(subsystem string, level float64) {
	if m == nil {
		return
	}
	m.HealthStatus.WithLabelValues(subsystem).Set(level)
}
