package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/bookedly/replica/internal/config"
	"github.com/bookedly/replica/internal/engine"
	"github.com/bookedly/replica/internal/store"
)

type Globals struct {
	Config  string
	Debug   bool
	Version string
}

func loadConfig(globals *Globals) (config.Config, error) {
	return config.Load(globals.Config)
}

// openKV opens the configured store directly, for commands that manage
// tenants without resolving one.
func openKV(cfg config.Config) (store.KV, error) {
	if cfg.Store == config.StoreMemory {
		return store.NewMemoryKV(), nil
	}

	if err := os.MkdirAll(cfg.DataDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create data dir: %w", err)
	}

	switch cfg.Store {
	case config.StoreFile:
		return store.NewFileKV(filepath.Join(cfg.DataDir, "replica.json"))
	case config.StoreSQLite:
		return store.OpenSQLiteKV(filepath.Join(cfg.DataDir, "replica.db"))
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store)
	}
}

func stateToString(s engine.State) string {
	switch s {
	case engine.StateIdle:
		return "IDLE"
	case engine.StatePushing:
		return "PUSHING"
	case engine.StatePulling:
		return "PULLING"
	case engine.StateSynced:
		return "SYNCED"
	case engine.StateError:
		return "ERROR"
	case engine.StateOffline:
		return "OFFLINE"
	default:
		return "UNKNOWN"
	}
}
