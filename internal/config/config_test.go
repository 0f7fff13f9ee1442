package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileGivesDefaults(t *testing.T) {
	t.Setenv(DatabaseURLEnv, "")
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, 10*time.Second, cfg.FetchTimeout())
}

func TestLoadOverridesAndFillsZeroes(t *testing.T) {
	t.Setenv(DatabaseURLEnv, "")
	t.Setenv("HOME", "/home/reader")
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
listen_addr: "127.0.0.1:9000"
database:
  path: ~/news.db
fetch:
  timeout_seconds: 3
  per_host_interval_ms: 0
script_catalog:
  base_url: https://scripts.example/
log:
  level: debug
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9000", cfg.ListenAddr)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "/home/reader/news.db", cfg.Database.Path)
	assert.Equal(t, 3*time.Second, cfg.FetchTimeout())
	assert.Zero(t, cfg.PerHostInterval())
	assert.Equal(t, Default().Fetch.UserAgent, cfg.Fetch.UserAgent)
	assert.Equal(t, 8, cfg.Sync.Concurrency)
	assert.Equal(t, "https://scripts.example", cfg.ScriptCatalog.BaseURL)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadEnvSelectsPostgres(t *testing.T) {
	t.Setenv(DatabaseURLEnv, "postgres://u:p@db/news?sslmode=disable")
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "postgres://u:p@db/news?sslmode=disable", cfg.Database.DSN)
}

func TestLoadBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("listen_addr: [unclosed"), 0o644))
	_, err := Load(path)
	assert.Error(t, err)
}
