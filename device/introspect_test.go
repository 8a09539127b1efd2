package device

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/exengine/engine"
)

// filterWheel describes its own property constraints
type filterWheel struct {
	Slot int
}

func (f *filterWheel) AllowedValues(name string) []any {
	if name == "Slot" {
		return []any{0, 1, 2, 3, 4, 5}
	}
	return nil
}

func (f *filterWheel) IsReadOnly(name string) bool {
	return name == "Model"
}

func (f *filterWheel) Limits(name string) (float64, float64, bool) {
	if name == "Slot" {
		return 0, 5, true
	}
	return 0, 0, false
}

func (f *filterWheel) IsHardwareTriggerable(name string) bool {
	return name == "Slot"
}

func TestPropertyInfo(t *testing.T) {
	e := newTestEngine(t)
	require.NoError(t, e.RegisterDevice("wheel", &filterWheel{}, engine.DeviceOptions{Worker: "hw"}))
	proxy, err := NewProxy(e, "wheel")
	require.NoError(t, err)

	info, err := proxy.PropertyInfo(bg(), "Slot")
	require.NoError(t, err)
	assert.Equal(t, "Slot", info.Name)
	assert.Len(t, info.AllowedValues, 6)
	assert.False(t, info.ReadOnly)
	require.True(t, info.HasLimits)
	assert.Equal(t, float64(0), info.Low)
	assert.Equal(t, float64(5), info.High)
	assert.True(t, info.HardwareTriggerable)
}

func TestPropertyInfoWithoutHooks(t *testing.T) {
	e := newTestEngine(t)
	require.NoError(t, e.RegisterDevice("plain", &stageDevice{}, engine.DeviceOptions{}))
	proxy, err := NewProxy(e, "plain")
	require.NoError(t, err)

	info, err := proxy.PropertyInfo(bg(), "Position")
	require.NoError(t, err)
	assert.Nil(t, info.AllowedValues)
	assert.False(t, info.ReadOnly)
	assert.False(t, info.HasLimits)
	assert.False(t, info.HardwareTriggerable)
}

func TestPropertyInfoReadOnly(t *testing.T) {
	e := newTestEngine(t)
	require.NoError(t, e.RegisterDevice("wheel2", &filterWheel{}, engine.DeviceOptions{}))
	proxy, err := NewProxy(e, "wheel2")
	require.NoError(t, err)

	info, err := proxy.PropertyInfo(bg(), "Model")
	require.NoError(t, err)
	assert.True(t, info.ReadOnly)
	assert.Nil(t, info.AllowedValues)
}
