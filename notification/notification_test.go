package notification

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/exengine/coords"
)

func TestBuiltinKinds(t *testing.T) {
	ok := EventExecuted(nil)
	assert.Equal(t, CategoryEvent, ok.Category)
	assert.Equal(t, KindEventExecuted, ok.Kind)
	assert.Nil(t, ok.Payload)
	assert.False(t, ok.Timestamp.IsZero())

	failed := EventExecuted(errors.New("boom"))
	assert.Equal(t, "boom", failed.Payload.(error).Error())

	c := coords.New(coords.A("time", coords.Int(3)))
	stored := DataStored(c)
	assert.Equal(t, CategoryData, stored.Category)
	assert.Equal(t, KindDataStored, stored.Kind)
	assert.True(t, stored.Payload.(coords.Coordinates).Equal(c))

	sf := StorageFailed(errors.New("disk full"))
	assert.Equal(t, CategoryStorage, sf.Category)
}

func TestWireFormat(t *testing.T) {
	c := coords.New(coords.A("time", coords.Int(1)))
	n := DataStored(c)

	raw, err := json.Marshal(n)
	require.NoError(t, err)

	var wire map[string]any
	require.NoError(t, json.Unmarshal(raw, &wire))

	assert.Equal(t, "data", wire["category"])
	assert.Equal(t, "DataStored", wire["kind"])
	assert.NotEmpty(t, wire["description"])
	assert.Greater(t, wire["timestamp_ns"].(float64), float64(0))
	assert.Equal(t, map[string]any{"time": float64(1)}, wire["payload"])
}

func TestWireFormatErrorPayload(t *testing.T) {
	n := EventExecuted(errors.New("boom"))
	raw, err := json.Marshal(n)
	require.NoError(t, err)

	var wire map[string]any
	require.NoError(t, json.Unmarshal(raw, &wire))
	assert.Equal(t, "boom", wire["payload"], "errors export as their message")
}

func TestCategoryString(t *testing.T) {
	assert.Equal(t, "event", CategoryEvent.String())
	assert.Equal(t, "data", CategoryData.String())
	assert.Equal(t, "storage", CategoryStorage.String())
	assert.Equal(t, "device", CategoryDevice.String())
}
