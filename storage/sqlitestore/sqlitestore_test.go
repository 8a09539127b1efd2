package sqlitestore

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/exengine/coords"
	"github.com/c360/exengine/storage"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "acq.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func tc(i int64) coords.Coordinates {
	return coords.New(coords.A("time", coords.Int(i)), coords.A("channel", coords.Str("DAPI")))
}

func TestSqliteRoundTrip(t *testing.T) {
	s := openTemp(t)

	md := map[string]any{"exposure_ms": float64(10), "stage": "xy1"}
	require.NoError(t, s.Put(tc(0), []byte{0, 1, 2}, md))

	ok, err := s.Contains(tc(0))
	require.NoError(t, err)
	assert.True(t, ok)

	data, err := s.GetData(tc(0))
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 1, 2}, data)

	got, err := s.GetMetadata(tc(0))
	require.NoError(t, err)
	assert.Equal(t, md, got)
}

func TestSqliteMissing(t *testing.T) {
	s := openTemp(t)

	_, err := s.GetData(tc(9))
	assert.ErrorIs(t, err, storage.ErrNotFound)

	ok, err := s.Contains(tc(9))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSqliteReplace(t *testing.T) {
	s := openTemp(t)
	require.NoError(t, s.Put(tc(0), []byte{1}, nil))
	require.NoError(t, s.Put(tc(0), []byte{2}, nil))

	data, err := s.GetData(tc(0))
	require.NoError(t, err)
	assert.Equal(t, []byte{2}, data)
}

func TestSqliteFinish(t *testing.T) {
	s := openTemp(t)
	require.NoError(t, s.Put(tc(0), []byte{1}, nil))
	require.NoError(t, s.Finish())

	assert.ErrorIs(t, s.Put(tc(1), []byte{2}, nil), storage.ErrFinished)

	data, err := s.GetData(tc(0))
	require.NoError(t, err)
	assert.Equal(t, []byte{1}, data)
}

func TestSqliteNilMetadata(t *testing.T) {
	s := openTemp(t)
	require.NoError(t, s.Put(tc(0), []byte{1}, nil))

	md, err := s.GetMetadata(tc(0))
	require.NoError(t, err)
	assert.NotNil(t, md)
	assert.Empty(t, md)
}
