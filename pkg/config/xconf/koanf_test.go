package xconf

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const sampleYAML = `
engine:
  workers: 8
  queue_size: 256
log:
  level: debug
`

const sampleJSON = `{"engine": {"workers": 8, "queue_size": 256}, "log": {"level": "debug"}}`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestNew_Formats(t *testing.T) {
	tests := []struct {
		name   string
		file   string
		body   string
		format Format
	}{
		{name: "yaml", file: "app.yaml", body: sampleYAML, format: FormatYAML},
		{name: "yml", file: "app.yml", body: sampleYAML, format: FormatYAML},
		{name: "json", file: "app.json", body: sampleJSON, format: FormatJSON},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, tt.file, tt.body)
			cfg, err := New(path)
			require.NoError(t, err)
			assert.Equal(t, path, cfg.Path())
			assert.Equal(t, tt.format, cfg.Format())
			assert.Equal(t, 8, cfg.Client().Int("engine.workers"))
			assert.Equal(t, "debug", cfg.Client().String("log.level"))
		})
	}
}

func TestNew_Errors(t *testing.T) {
	_, err := New("")
	assert.ErrorIs(t, err, ErrEmptyPath)

	_, err = New(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, ErrLoadFailed)

	_, err = New(writeFile(t, "app.toml", "a = 1"))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	_, err = New(writeFile(t, "bad.yaml", "engine: [unclosed"))
	assert.ErrorIs(t, err, ErrParseFailed)

	_, err = New(writeFile(t, "bad.json", "{"))
	assert.ErrorIs(t, err, ErrParseFailed)
}

func TestNewFromBytes(t *testing.T) {
	cfg, err := NewFromBytes([]byte(sampleJSON), FormatJSON)
	require.NoError(t, err)
	assert.Empty(t, cfg.Path())
	assert.Equal(t, 256, cfg.Client().Int("engine.queue_size"))
	assert.ErrorIs(t, cfg.Reload(), ErrNotReloadable)

	empty, err := NewFromBytes(nil, FormatYAML)
	require.NoError(t, err)
	assert.Empty(t, empty.Client().Keys())

	_, err = NewFromBytes([]byte("x"), Format("toml"))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestOptions(t *testing.T) {
	type engine struct {
		Workers int `yaml:"workers"`
	}
	cfg, err := NewFromBytes([]byte(sampleYAML), FormatYAML, WithDelim("/"), WithTag("yaml"), WithDelim(""), nil)
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.Client().Int("engine/workers"))

	var e engine
	require.NoError(t, cfg.Unmarshal("engine", &e))
	assert.Equal(t, 8, e.Workers)
}

func TestUnmarshal(t *testing.T) {
	cfg, err := NewFromBytes([]byte(sampleYAML), FormatYAML)
	require.NoError(t, err)

	var engine EngineConfig
	require.NoError(t, cfg.Unmarshal("engine", &engine))
	assert.Equal(t, 8, engine.Workers)
	assert.Equal(t, 256, engine.QueueSize)

	var missing EngineConfig
	require.NoError(t, cfg.Unmarshal("nope", &missing))
	assert.Zero(t, missing)

	err = cfg.Unmarshal("engine", EngineConfig{})
	assert.ErrorIs(t, err, ErrUnmarshalFailed)

	assert.Panics(t, func() { MustUnmarshal(cfg, "engine", EngineConfig{}) })
	assert.NotPanics(t, func() { MustUnmarshal(cfg, "engine", &engine) })
}

func TestReload(t *testing.T) {
	path := writeFile(t, "app.yaml", sampleYAML)
	cfg, err := New(path)
	require.NoError(t, err)
	old := cfg.Client()

	require.NoError(t, os.WriteFile(path, []byte("engine:\n  workers: 2\n"), 0o600))
	require.NoError(t, cfg.Reload())
	assert.Equal(t, 2, cfg.Client().Int("engine.workers"))
	assert.Equal(t, 8, old.Int("engine.workers"), "previous instance keeps its snapshot")

	require.NoError(t, os.WriteFile(path, []byte("engine: [broken"), 0o600))
	assert.ErrorIs(t, cfg.Reload(), ErrParseFailed)
	assert.Equal(t, 2, cfg.Client().Int("engine.workers"), "failed reload keeps the last good config")

	require.NoError(t, os.Remove(path))
	assert.ErrorIs(t, cfg.Reload(), ErrLoadFailed)
}

func TestReload_Concurrent(t *testing.T) {
	path := writeFile(t, "app.yaml", sampleYAML)
	cfg, err := New(path)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			assert.NoError(t, cfg.Reload())
		}()
		go func() {
			defer wg.Done()
			var e EngineConfig
			assert.NoError(t, cfg.Unmarshal("engine", &e))
			assert.Equal(t, 8, e.Workers)
		}()
	}
	wg.Wait()
}

func TestDetectFormat(t *testing.T) {
	for path, want := range map[string]Format{
		"a.yaml": FormatYAML,
		"a.YML":  FormatYAML,
		"a.json": FormatJSON,
	} {
		got, err := detectFormat(path)
		require.NoError(t, err, path)
		assert.Equal(t, want, got, path)
	}
	_, err := detectFormat("a.ini")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}
