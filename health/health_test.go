package health

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusConstructors(t *testing.T) {
	h := NewHealthy("worker:main", "running")
	assert.True(t, h.IsHealthy())
	assert.True(t, h.Healthy)
	assert.False(t, h.Timestamp.IsZero())

	d := NewDegraded("worker:acq", "queue saturated")
	assert.True(t, d.IsDegraded())
	assert.False(t, d.Healthy)

	u := NewUnhealthy("handler", "storage writer failed")
	assert.True(t, u.IsUnhealthy())
}

func TestMonitorTracksComponents(t *testing.T) {
	m := NewMonitor()
	m.UpdateHealthy("worker:main", "running")
	m.UpdateDegraded("worker:acq", "queue saturated")

	s, ok := m.Get("worker:main")
	require.True(t, ok)
	assert.True(t, s.IsHealthy())
	assert.Equal(t, "worker:main", s.Component)

	_, ok = m.Get("worker:ghost")
	assert.False(t, ok)

	all := m.GetAll()
	assert.Len(t, all, 2)

	m.Remove("worker:acq")
	_, ok = m.Get("worker:acq")
	assert.False(t, ok)
}

func TestAggregatePrecedence(t *testing.T) {
	healthy := NewHealthy("a", "")
	degraded := NewDegraded("b", "slow")
	unhealthy := NewUnhealthy("c", "dead")

	agg := Aggregate("engine", []Status{healthy, healthy})
	assert.True(t, agg.IsHealthy())
	assert.Len(t, agg.SubStatuses, 2)

	agg = Aggregate("engine", []Status{healthy, degraded})
	assert.True(t, agg.IsDegraded())

	agg = Aggregate("engine", []Status{degraded, unhealthy})
	assert.True(t, agg.IsUnhealthy(), "unhealthy dominates degraded")
}

func TestMonitorAggregateHealth(t *testing.T) {
	m := NewMonitor()
	m.UpdateHealthy("worker:main", "running")
	assert.True(t, m.AggregateHealth("engine").IsHealthy())

	m.UpdateUnhealthy("handler", "storage writer failed")
	agg := m.AggregateHealth("engine")
	assert.True(t, agg.IsUnhealthy())
	assert.Contains(t, agg.Message, "handler")
}
