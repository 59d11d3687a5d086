// Package config loads the replica's YAML configuration file.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Store backends.
const (
	StoreFile   = "file"
	StoreSQLite = "sqlite"
	StoreMemory = "memory"
)

// Config is the replica's on-disk configuration.
type Config struct {
	// DataDir holds the local store and any derived files.
	DataDir string `yaml:"data_dir"`

	// Store selects the KV backend: file, sqlite or memory.
	Store string `yaml:"store"`

	// TenantSlug is an optional hint for resolving the active tenant.
	TenantSlug string `yaml:"tenant_slug,omitempty"`

	Remote RemoteConfig `yaml:"remote"`
	Sync   SyncConfig   `yaml:"sync"`
	Cache  CacheConfig  `yaml:"cache"`
}

// RemoteConfig describes the remote store endpoint.
type RemoteConfig struct {
	URL            string `yaml:"url"`
	Token          string `yaml:"token,omitempty"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// SyncConfig tunes the background reconciliation loop.
type SyncConfig struct {
	PollIntervalSeconds  int `yaml:"poll_interval_seconds"`
	ProbeIntervalSeconds int `yaml:"probe_interval_seconds"`
}

// CacheConfig tunes the read cache.
type CacheConfig struct {
	TTLSeconds int `yaml:"ttl_seconds"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		DataDir: ".replica",
		Store:   StoreFile,
		Remote: RemoteConfig{
			TimeoutSeconds: 10,
		},
		Sync: SyncConfig{
			PollIntervalSeconds:  30,
			ProbeIntervalSeconds: 15,
		},
		Cache: CacheConfig{
			TTLSeconds: 5,
		},
	}
}

// Load reads path and overlays it onto the defaults. A missing file yields
// the defaults; a malformed file is an error.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return cfg, err
	}

	return cfg, nil
}

func (c Config) validate() error {
	switch c.Store {
	case StoreFile, StoreSQLite, StoreMemory:
	default:
		return fmt.Errorf("unknown store backend %q", c.Store)
	}

	if c.Sync.PollIntervalSeconds <= 0 {
		return fmt.Errorf("poll_interval_seconds must be positive, got %d", c.Sync.PollIntervalSeconds)
	}

	return nil
}

// RemoteTimeout returns the remote call timeout as a duration.
func (c Config) RemoteTimeout() time.Duration {
	return time.Duration(c.Remote.TimeoutSeconds) * time.Second
}

// PollInterval returns the reconciliation interval as a duration.
func (c Config) PollInterval() time.Duration {
	return time.Duration(c.Sync.PollIntervalSeconds) * time.Second
}

// ProbeInterval returns the connectivity probe interval as a duration.
func (c Config) ProbeInterval() time.Duration {
	return time.Duration(c.Sync.ProbeIntervalSeconds) * time.Second
}

// CacheTTL returns the read cache TTL as a duration.
func (c Config) CacheTTL() time.Duration {
	return time.Duration(c.Cache.TTLSeconds) * time.Second
}
