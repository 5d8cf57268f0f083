package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/meikuraledutech/workflow/repository"
	"github.com/meikuraledutech/workflow/simulator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "workflowd.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":3000", cfg.Server.Listen)
	assert.Equal(t, StoreMemory, cfg.Store.Driver)
	assert.Equal(t, repository.DefaultKey, cfg.Store.Key)
	assert.Equal(t, simulator.DefaultConfig(), cfg.Simulator)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoad_File(t *testing.T) {
	path := writeFile(t, `
server:
  listen: ":8080"
store:
  driver: Badger
  badger_dir: /tmp/wf
simulator:
  layer_interval: 2s
  success_rate: 0.5
logging:
  level: DEBUG
  format: json
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Listen)
	assert.Equal(t, StoreBadger, cfg.Store.Driver)
	assert.Equal(t, "/tmp/wf", cfg.Store.BadgerDir)
	assert.Equal(t, 2*time.Second, cfg.Simulator.LayerInterval)
	assert.Equal(t, simulator.DefaultResolveDelay, cfg.Simulator.ResolveDelay)
	require.NotNil(t, cfg.Simulator.SuccessRate)
	assert.Equal(t, 0.5, *cfg.Simulator.SuccessRate)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("WORKFLOW_LISTEN", ":9999")
	t.Setenv("WORKFLOW_STORE", "postgres")
	t.Setenv("DATABASE_URL", "postgres://localhost/wf")
	t.Setenv("WORKFLOW_LOG_LEVEL", "warn")

	cfg, err := Load(writeFile(t, "server:\n  listen: \":8080\"\n"))
	require.NoError(t, err)

	assert.Equal(t, ":9999", cfg.Server.Listen)
	assert.Equal(t, StorePostgres, cfg.Store.Driver)
	assert.Equal(t, "postgres://localhost/wf", cfg.Store.DatabaseURL)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "bad yaml", body: "server: [\n"},
		{name: "unknown driver", body: "store:\n  driver: redis\n"},
		{name: "postgres without url", body: "store:\n  driver: postgres\n"},
		{name: "rate above one", body: "simulator:\n  success_rate: 1.5\n"},
		{name: "negative interval", body: "simulator:\n  layer_interval: -1s\n"},
		{name: "bad level", body: "logging:\n  level: loud\n"},
		{name: "bad format", body: "logging:\n  format: xml\n"},
		{name: "empty listen", body: "server:\n  listen: \"\"\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeFile(t, tt.body))
			assert.Error(t, err)
		})
	}

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := LoggingConfig{Level: "warn", Format: "json"}.NewLogger(&buf)

	logger.Info("hidden")
	logger.Warn("shown", "k", "v")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `"msg":"shown"`)
	assert.Contains(t, out, `"k":"v"`)
}
