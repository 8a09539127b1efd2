package metric

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryRegistersCoreMetrics(t *testing.T) {
	r := NewMetricsRegistry()
	require.NotNil(t, r.CoreMetrics())

	families, err := r.PrometheusRegistry().Gather()
	require.NoError(t, err)

	names := make(map[string]bool)
	for _, f := range families {
		names[f.GetName()] = true
	}
	// Go runtime collectors come along with the registry
	assert.True(t, names["go_goroutines"])
}

func TestRegisterAndDuplicate(t *testing.T) {
	r := NewMetricsRegistry()

	counter := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "exengine_test_items_total",
		Help: "test counter",
	})
	require.NoError(t, r.RegisterCounter("executor", "items", counter))

	other := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "exengine_test_other_total",
		Help: "other counter",
	})
	err := r.RegisterCounter("executor", "items", other)
	assert.Error(t, err, "the same subsystem.metric key cannot register twice")
}

func TestUnregister(t *testing.T) {
	r := NewMetricsRegistry()

	gauge := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "exengine_test_depth",
		Help: "test gauge",
	})
	require.NoError(t, r.RegisterGauge("executor", "depth", gauge))

	assert.True(t, r.Unregister("executor", "depth"))
	assert.False(t, r.Unregister("executor", "depth"), "second unregister is a no-op")

	// the name is free again
	require.NoError(t, r.RegisterGauge("executor", "depth", gauge))
}

func TestCoreMetricsNilSafe(t *testing.T) {
	var m *Metrics
	m.RecordError("executor", "transient")
	m.SetHealth("executor", 2)
}
