package engine

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/c360/exengine/metric"
)

// engineMetrics holds Prometheus metrics for engine operations.
type engineMetrics struct {
	// Submission and execution
	submitted       *prometheus.CounterVec   // By worker
	executed        *prometheus.CounterVec   // By worker and status (success/failure/stopped/aborted)
	executeDuration *prometheus.HistogramVec // By worker

	// Queue state
	queueDepth    *prometheus.GaugeVec // By worker
	activeWorkers prometheus.Gauge

	// Notification fan-out
	notificationsPublished *prometheus.CounterVec // By category
	notificationsDropped   prometheus.Gauge
}

// newEngineMetrics creates and registers engine metrics with the provided registry.
func newEngineMetrics(registry *metric.MetricsRegistry) (*engineMetrics, error) {
	if registry == nil {
		return nil, nil // Metrics disabled
	}

	m := &engineMetrics{
		submitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "exengine",
			Subsystem: "executor",
			Name:      "submitted_total",
			Help:      "Total number of work items submitted",
		}, []string{"worker"}),

		executed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "exengine",
			Subsystem: "executor",
			Name:      "executed_total",
			Help:      "Total number of work items executed",
		}, []string{"worker", "status"}), // status: success, failure, stopped, aborted

		executeDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "exengine",
			Subsystem: "executor",
			Name:      "execute_duration_seconds",
			Help:      "Work item execution duration in seconds",
			Buckets:   []float64{0.0001, 0.001, 0.01, 0.1, 0.5, 1.0, 5.0, 30.0},
		}, []string{"worker"}),

		queueDepth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "exengine",
			Subsystem: "executor",
			Name:      "queue_depth",
			Help:      "Current number of queued work items per worker",
		}, []string{"worker"}),

		activeWorkers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "exengine",
			Subsystem: "executor",
			Name:      "active_workers",
			Help:      "Current number of live worker goroutines",
		}),

		notificationsPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "exengine",
			Subsystem: "notifications",
			Name:      "published_total",
			Help:      "Total number of notifications published",
		}, []string{"category"}),

		notificationsDropped: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "exengine",
			Subsystem: "notifications",
			Name:      "dropped_total",
			Help:      "Notifications lost to dispatch queue overflow",
		}),
	}

	// Register all metrics
	if err := registry.RegisterCounterVec("executor", "submitted", m.submitted); err != nil {
		return nil, err
	}
	if err := registry.RegisterCounterVec("executor", "executed", m.executed); err != nil {
		return nil, err
	}
	if err := registry.RegisterHistogramVec("executor", "execute_duration", m.executeDuration); err != nil {
		return nil, err
	}
	if err := registry.RegisterGaugeVec("executor", "queue_depth", m.queueDepth); err != nil {
		return nil, err
	}
	if err := registry.RegisterGauge("executor", "active_workers", m.activeWorkers); err != nil {
		return nil, err
	}
	if err := registry.RegisterCounterVec("notifications", "published", m.notificationsPublished); err != nil {
		return nil, err
	}
	if err := registry.RegisterGauge("notifications", "dropped", m.notificationsDropped); err != nil {
		return nil, err
	}

	return m, nil
}

// recordSubmitted records a work item submission.
func (m *engineMetrics) recordSubmitted(worker string, queueDepth int) {
	if m == nil {
		return
	}
	m.submitted.WithLabelValues(worker).Inc()
	m.queueDepth.WithLabelValues(worker).Set(float64(queueDepth))
}

// recordExecuted records a completed execution.
func (m *engineMetrics) recordExecuted(worker, status string, seconds float64, queueDepth int) {
	if m == nil {
		return
	}
	m.executed.WithLabelValues(worker, status).Inc()
	m.executeDuration.WithLabelValues(worker).Observe(seconds)
	m.queueDepth.WithLabelValues(worker).Set(float64(queueDepth))
}

// recordWorkerStarted tracks worker goroutine creation.
func (m *engineMetrics) recordWorkerStarted() {
	if m == nil {
		return
	}
	m.activeWorkers.Inc()
}

// recordWorkerStopped tracks worker goroutine exit.
func (m *engineMetrics) recordWorkerStopped() {
	if m == nil {
		return
	}
	m.activeWorkers.Dec()
}

// recordNotification records a published notification.
func (m *engineMetrics) recordNotification(category string, dropped uint64) {
	if m == nil {
		return
	}
	m.notificationsPublished.WithLabelValues(category).Inc()
	m.notificationsDropped.Set(float64(dropped))
}
