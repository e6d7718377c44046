package xconf

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultAppConfig_Valid(t *testing.T) {
	app := DefaultAppConfig()
	require.NoError(t, app.Validate())
	assert.True(t, app.Instrumentation.Enabled)
}

func TestLoadApp_OverlaysDefaults(t *testing.T) {
	cfg, err := NewFromBytes([]byte(`
engine:
  workers: 2
  shutdown_timeout: 3s
log:
  level: warn
  format: json
  rotation:
    filename: /var/log/xasync.log
    max_size_mb: 50
instrumentation:
  enabled: false
  method_prefix: Delim
`), FormatYAML)
	require.NoError(t, err)

	app, err := LoadApp(cfg)
	require.NoError(t, err)
	assert.Equal(t, 2, app.Engine.Workers)
	assert.Equal(t, 1024, app.Engine.QueueSize, "absent keys keep defaults")
	assert.Equal(t, 3*time.Second, app.Engine.ShutdownTimeout)
	assert.Equal(t, "warn", app.Log.Level)
	assert.Equal(t, "json", app.Log.Format)
	assert.Equal(t, "/var/log/xasync.log", app.Log.Rotation.Filename)
	assert.Equal(t, 50, app.Log.Rotation.MaxSizeMB)
	assert.False(t, app.Instrumentation.Enabled)
	assert.Equal(t, "Delim", app.Instrumentation.MethodPrefix)
}

func TestLoadApp_NilConfig(t *testing.T) {
	app, err := LoadApp(nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultAppConfig(), app)
}

func TestLoadApp_Invalid(t *testing.T) {
	cfg, err := NewFromBytes([]byte(`{"engine": {"workers": 0, "queue_size": -1}, "log": {"level": "loud", "format": "xml"}}`), FormatJSON)
	require.NoError(t, err)

	_, err = LoadApp(cfg)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidConfig)
	for _, field := range []string{"engine.workers", "engine.queue_size", "log.level", "log.format"} {
		assert.Contains(t, err.Error(), field)
	}
}

func TestAppConfig_ValidateShutdownTimeout(t *testing.T) {
	app := DefaultAppConfig()
	app.Engine.ShutdownTimeout = 0
	assert.ErrorIs(t, app.Validate(), ErrInvalidConfig)
}
