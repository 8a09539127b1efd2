package coords

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCoordinatesIdentity(t *testing.T) {
	a := New(A("time", Int(3)), A("channel", Str("DAPI")))
	b := New(A("channel", Str("DAPI")), A("time", Int(3)))

	assert.True(t, a.Equal(b), "insertion order must not affect identity")
	assert.Equal(t, a.Key(), b.Key(), "equal coordinates must share a map key")

	c := New(A("time", Int(4)), A("channel", Str("DAPI")))
	assert.False(t, a.Equal(c))
	assert.NotEqual(t, a.Key(), c.Key())
}

func TestCoordinatesKeyDistinguishesTypes(t *testing.T) {
	// the string "3" and the integer 3 are different axis values
	a := New(A("time", Int(3)))
	b := New(A("time", Str("3")))
	assert.NotEqual(t, a.Key(), b.Key())
	assert.False(t, a.Equal(b))
}

func TestCoordinatesSetAddsAndReplaces(t *testing.T) {
	c := New(A("time", Int(0)))
	c.Set("z", Int(5))
	c.Set("time", Int(1))

	require.Equal(t, 2, c.Len())
	v, ok := c.Get("time")
	require.True(t, ok)
	assert.Equal(t, int64(1), v.Int())

	// insertion order preserved for display
	axes := c.Axes()
	assert.Equal(t, "time", axes[0].Name)
	assert.Equal(t, "z", axes[1].Name)
}

func TestCoordinatesJSONRoundTrip(t *testing.T) {
	orig := New(A("time", Int(7)), A("channel", Str("GFP")), A("z", Int(-2)))

	raw, err := json.Marshal(orig)
	require.NoError(t, err)
	assert.JSONEq(t, `{"time": 7, "channel": "GFP", "z": -2}`, string(raw))

	var decoded Coordinates
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.True(t, orig.Equal(decoded))

	// key order survives the round trip
	assert.Equal(t, orig.Axes(), decoded.Axes())
}

func TestCoordinatesFromMap(t *testing.T) {
	c, err := FromMap(map[string]any{"time": 2, "channel": "DAPI"})
	require.NoError(t, err)
	assert.True(t, c.Equal(New(A("channel", Str("DAPI")), A("time", Int(2)))))

	_, err = FromMap(map[string]any{"time": 1.5})
	assert.Error(t, err, "non-integral numbers are not axis values")

	_, err = FromMap(map[string]any{"time": []int{1}})
	assert.Error(t, err)
}

func TestCoordinatesClone(t *testing.T) {
	orig := New(A("time", Int(0)))
	clone := orig.Clone()
	clone.Set("time", Int(9))

	v, _ := orig.Get("time")
	assert.Equal(t, int64(0), v.Int(), "clones must be independent")
}

func TestTCZ(t *testing.T) {
	c := TCZ(1, "DAPI", 4)
	assert.Equal(t, 3, c.Len())

	noChannel := TCZ(1, "", 4)
	assert.Equal(t, 2, noChannel.Len())
	assert.False(t, noChannel.Contains("channel"))
}
