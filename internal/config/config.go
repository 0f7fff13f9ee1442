// Package config loads the news reader's YAML configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DatabaseURLEnv overrides database.dsn (and selects postgres) when set.
const DatabaseURLEnv = "NEWSREADER_DATABASE_URL"

// Config is the on-disk configuration.
type Config struct {
	ListenAddr    string         `yaml:"listen_addr"`
	Database      DatabaseConfig `yaml:"database"`
	Fetch         FetchConfig    `yaml:"fetch"`
	Sync          SyncConfig     `yaml:"sync"`
	ScriptCatalog CatalogConfig  `yaml:"script_catalog"`
	Log           LogConfig      `yaml:"log"`
}

// DatabaseConfig selects and locates the article store.
type DatabaseConfig struct {
	Driver string `yaml:"driver"` // "sqlite" or "postgres"
	Path   string `yaml:"path"`
	DSN    string `yaml:"dsn"`
}

// FetchConfig tunes outbound HTTP for feeds, block lists and scripts.
type FetchConfig struct {
	TimeoutSeconds    int    `yaml:"timeout_seconds"`
	MaxBodyBytes      int64  `yaml:"max_body_bytes"`
	UserAgent         string `yaml:"user_agent"`
	PerHostIntervalMS int    `yaml:"per_host_interval_ms"`
}

// SyncConfig controls sync passes.
type SyncConfig struct {
	// Concurrency bounds parallel feed syncs on stores that support it.
	Concurrency int `yaml:"concurrency"`
}

// CatalogConfig points at the userscript catalog.
type CatalogConfig struct {
	BaseURL string `yaml:"base_url"`
}

// LogConfig sets the log level.
type LogConfig struct {
	Level string `yaml:"level"`
}

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		ListenAddr: ":8080",
		Database: DatabaseConfig{
			Driver: "sqlite",
			Path:   "newsreader.db",
		},
		Fetch: FetchConfig{
			TimeoutSeconds:    10,
			MaxBodyBytes:      10 << 20,
			UserAgent:         "newsreader/1.0 (+https://github.com/bryan-buckman/newsreader)",
			PerHostIntervalMS: 500,
		},
		Sync:          SyncConfig{Concurrency: 8},
		ScriptCatalog: CatalogConfig{BaseURL: "https://greasyfork.org/en"},
		Log:           LogConfig{Level: "info"},
	}
}

// DefaultPath returns ~/.config/newsreader/config.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "newsreader", "config.yaml"), nil
}

// Load reads path over the defaults. An empty path means DefaultPath; a
// missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return cfg.withEnv(), nil
		}
		path = p
	}
	b, err := os.ReadFile(expandPath(path))
	if errors.Is(err, os.ErrNotExist) {
		return cfg.withEnv(), nil
	}
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.fillZeroes()
	return cfg.withEnv(), nil
}

// fillZeroes restores defaults for keys present but left empty.
func (c *Config) fillZeroes() {
	def := Default()
	if c.ListenAddr == "" {
		c.ListenAddr = def.ListenAddr
	}
	if c.Database.Driver == "" {
		c.Database.Driver = def.Database.Driver
	}
	if c.Database.Path == "" {
		c.Database.Path = def.Database.Path
	}
	c.Database.Path = expandPath(c.Database.Path)
	if c.Fetch.TimeoutSeconds <= 0 {
		c.Fetch.TimeoutSeconds = def.Fetch.TimeoutSeconds
	}
	if c.Fetch.MaxBodyBytes <= 0 {
		c.Fetch.MaxBodyBytes = def.Fetch.MaxBodyBytes
	}
	if c.Fetch.UserAgent == "" {
		c.Fetch.UserAgent = def.Fetch.UserAgent
	}
	if c.Fetch.PerHostIntervalMS < 0 {
		c.Fetch.PerHostIntervalMS = 0
	}
	if c.Sync.Concurrency <= 0 {
		c.Sync.Concurrency = def.Sync.Concurrency
	}
	if c.ScriptCatalog.BaseURL == "" {
		c.ScriptCatalog.BaseURL = def.ScriptCatalog.BaseURL
	}
	c.ScriptCatalog.BaseURL = strings.TrimRight(c.ScriptCatalog.BaseURL, "/")
	if c.Log.Level == "" {
		c.Log.Level = def.Log.Level
	}
}

func (c Config) withEnv() Config {
	if dsn := os.Getenv(DatabaseURLEnv); dsn != "" {
		c.Database.Driver = "postgres"
		c.Database.DSN = dsn
	}
	return c
}

// FetchTimeout is the per-request timeout.
func (c Config) FetchTimeout() time.Duration {
	return time.Duration(c.Fetch.TimeoutSeconds) * time.Second
}

// PerHostInterval is the minimum spacing between requests to one host.
func (c Config) PerHostInterval() time.Duration {
	return time.Duration(c.Fetch.PerHostIntervalMS) * time.Millisecond
}

// expandPath expands leading ~ and environment variables in a filesystem path.
func expandPath(p string) string {
	if p == "" {
		return p
	}
	p = os.ExpandEnv(p)
	if strings.HasPrefix(p, "~") {
		if home, err := os.UserHomeDir(); err == nil {
			if p == "~" {
				p = home
			} else if strings.HasPrefix(p, "~/") {
				p = filepath.Join(home, p[2:])
			}
		}
	}
	return p
}
