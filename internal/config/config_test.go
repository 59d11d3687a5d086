package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)
	require.Equal(t, 30*time.Second, cfg.PollInterval())
	require.Equal(t, 5*time.Second, cfg.CacheTTL())
}

func TestLoadOverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
data_dir: /var/lib/replica
store: sqlite
tenant_slug: acme-salon
remote:
  url: https://sync.example.com
  token: secret
  timeout_seconds: 20
sync:
  poll_interval_seconds: 60
  probe_interval_seconds: 10
`), 0600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "/var/lib/replica", cfg.DataDir)
	require.Equal(t, StoreSQLite, cfg.Store)
	require.Equal(t, "acme-salon", cfg.TenantSlug)
	require.Equal(t, "https://sync.example.com", cfg.Remote.URL)
	require.Equal(t, 20*time.Second, cfg.RemoteTimeout())
	require.Equal(t, time.Minute, cfg.PollInterval())
	require.Equal(t, 10*time.Second, cfg.ProbeInterval())

	// Sections the file omits keep their defaults
	require.Equal(t, 5*time.Second, cfg.CacheTTL())
}

func TestLoadRejectsBadInput(t *testing.T) {
	dir := t.TempDir()

	malformed := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(malformed, []byte("store: [unclosed"), 0600))
	_, err := Load(malformed)
	require.Error(t, err)

	badStore := filepath.Join(dir, "store.yaml")
	require.NoError(t, os.WriteFile(badStore, []byte("store: redis"), 0600))
	_, err = Load(badStore)
	require.ErrorContains(t, err, "unknown store backend")

	badPoll := filepath.Join(dir, "poll.yaml")
	require.NoError(t, os.WriteFile(badPoll, []byte("sync:\n  poll_interval_seconds: 0"), 0600))
	_, err = Load(badPoll)
	require.ErrorContains(t, err, "poll_interval_seconds")
}
