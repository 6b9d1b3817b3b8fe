package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
listen_addr: ":9000"
metrics_addr: ":9090"
store:
  driver: sqlite
  path: /tmp/auctions.db
webhook_url: http://gateway:8081/events
catalog_path: catalog.yaml
sweep_interval: 15s
speed_channels: [1, 2, 3]
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.ListenAddr)
	assert.Equal(t, ":9090", cfg.MetricsAddr)
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "/tmp/auctions.db", cfg.Store.Path)
	assert.Equal(t, 15*time.Second, cfg.SweepInterval)
	assert.Equal(t, map[int64]bool{1: true, 2: true, 3: true}, cfg.SpeedChannelSet())

	// Unset fields keep their defaults.
	assert.Equal(t, 10*time.Second, cfg.GracefulShutdownDuration)
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"unknown driver", "store:\n  driver: oracle\n"},
		{"sqlite without path", "store:\n  driver: sqlite\n"},
		{"postgres without target", "store:\n  driver: postgres\n"},
		{"bad sweep interval", "sweep_interval: -1s\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tt.content))
			require.Error(t, err)
		})
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "memory", cfg.Store.Driver)
	assert.Equal(t, 30*time.Second, cfg.SweepInterval)
}
