package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "main", cfg.DefaultWorkerName)
	assert.Equal(t, 0, cfg.MaxQueueDepth, "queues are unbounded by default")
	assert.Equal(t, 1024, cfg.NotificationQueueDepth)
	assert.Equal(t, int64(0), cfg.HandlerMemoryBound)
	require.NoError(t, cfg.Validate())
}

func TestApplyDefaultsFillsZeroFields(t *testing.T) {
	cfg := Config{MaxQueueDepth: 50}.ApplyDefaults()
	assert.Equal(t, "main", cfg.DefaultWorkerName)
	assert.Equal(t, 50, cfg.MaxQueueDepth)
	assert.Equal(t, 1024, cfg.NotificationQueueDepth)
	assert.Equal(t, "/metrics", cfg.Metrics.Path)
	assert.Equal(t, "exengine.notifications", cfg.Export.SubjectPrefix)
}

func TestValidateRejectsBadValues(t *testing.T) {
	bad := []Config{
		{DefaultWorkerName: ""},
		{DefaultWorkerName: "main", MaxQueueDepth: -1},
		{DefaultWorkerName: "main", NotificationQueueDepth: -5},
		{DefaultWorkerName: "main", HandlerMemoryBound: -1},
		{DefaultWorkerName: "main", Metrics: MetricsConfig{Enabled: true, Port: 99999}},
		{DefaultWorkerName: "main", Gateway: GatewayConfig{Enabled: true}},
		{DefaultWorkerName: "main", Export: ExportConfig{Enabled: true}},
	}
	for i, cfg := range bad {
		assert.Error(t, cfg.Validate(), "case %d", i)
	}
}

func TestLoadJSONFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "engine.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"default_worker_name": "acquisition",
		"max_queue_depth": 128,
		"handler_memory_bound": 1073741824
	}`), 0o600))

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "acquisition", cfg.DefaultWorkerName)
	assert.Equal(t, 128, cfg.MaxQueueDepth)
	assert.Equal(t, int64(1<<30), cfg.HandlerMemoryBound)
	assert.Equal(t, 1024, cfg.NotificationQueueDepth, "defaults fill omitted fields")
}

func TestLoadYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "engine.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
default_worker_name: bench
metrics:
  enabled: true
  port: 9191
gateway:
  enabled: true
  addr: 127.0.0.1:8078
  rate_per_second: 100
`), 0o600))

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "bench", cfg.DefaultWorkerName)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, 9191, cfg.Metrics.Port)
	assert.Equal(t, float64(100), cfg.Gateway.RatePerSecond)
}

func TestLoadFileErrors(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "broken.json")
	require.NoError(t, os.WriteFile(path, []byte(`{not json`), 0o600))
	_, err = LoadFile(path)
	assert.Error(t, err)

	path = filepath.Join(t.TempDir(), "invalid.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"max_queue_depth": -2}`), 0o600))
	_, err = LoadFile(path)
	assert.Error(t, err)
}

func TestSafeConfig(t *testing.T) {
	sc := NewSafeConfig(Default())

	cfg := sc.Get()
	cfg.MaxQueueDepth = 10
	require.NoError(t, sc.Update(cfg))
	assert.Equal(t, 10, sc.Get().MaxQueueDepth)

	cfg.MaxQueueDepth = -1
	assert.Error(t, sc.Update(cfg), "invalid updates are rejected")
	assert.Equal(t, 10, sc.Get().MaxQueueDepth)
}
