// Package session wires the replica's collaborators together for one
// running installation: store, device identity, tenant resolution, entity
// managers, remote client and the background sync loop.
package session

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"

	"github.com/bookedly/replica/internal/config"
	"github.com/bookedly/replica/internal/device"
	"github.com/bookedly/replica/internal/engine"
	"github.com/bookedly/replica/internal/entity"
	"github.com/bookedly/replica/internal/events"
	"github.com/bookedly/replica/internal/models"
	"github.com/bookedly/replica/internal/remote"
	"github.com/bookedly/replica/internal/store"
	"github.com/bookedly/replica/internal/tenant"
)

// Session is one installation's fully wired replica. Construct with Open,
// start the background loop with Start, and always Close.
type Session struct {
	Config   config.Config
	DeviceID string
	Tenant   models.Tenant

	Bus      *events.Bus
	Tenants  *tenant.Manager
	Resolver *tenant.Resolver
	Engine   *engine.Engine

	Bookings *entity.Manager[models.Booking]
	Clients  *entity.Manager[models.Client]
	Staff    *entity.Manager[models.Staff]
	Services *entity.Manager[models.Service]

	kv        store.KV
	remote    remote.Store
	conn      remote.Connectivity
	prober    *remote.Prober
	scheduler *engine.Scheduler
	started   bool
}

// Open builds a session from configuration. The active tenant is resolved
// during Open; ErrTenantNotFound means the installation has no tenant yet
// and one must be created first.
func Open(ctx context.Context, cfg config.Config) (*Session, error) {
	kv, err := openStore(cfg)
	if err != nil {
		return nil, err
	}

	deviceID, err := device.Ensure(ctx, kv)
	if err != nil {
		kv.Close()
		return nil, err
	}

	remoteStore, conn, prober, err := openRemote(cfg)
	if err != nil {
		kv.Close()
		return nil, err
	}

	ns := store.NewNamespace(kv)
	bus := events.NewBus()
	mgr := tenant.NewManager(kv)

	// The marker store is session scoped, it never outlives the process
	resolver := tenant.NewResolver(mgr, kv, store.NewMemoryKV(), cfg.TenantSlug)

	e := engine.New(remoteStore, ns, bus, deviceID, engine.WithTimeout(cfg.RemoteTimeout()))

	s := &Session{
		Config:   cfg,
		DeviceID: deviceID,
		Bus:      bus,
		Tenants:  mgr,
		Resolver: resolver,
		Engine:   e,
		kv:       kv,
		remote:   remoteStore,
		conn:     conn,
		prober:   prober,
	}

	if err := s.buildManagers(ns); err != nil {
		kv.Close()
		return nil, err
	}

	t, err := resolver.Resolve(ctx)
	if err != nil {
		kv.Close()
		return nil, err
	}
	s.Tenant = t

	log.Info().
		Str("tenant_id", t.ID).
		Str("slug", t.Slug).
		Str("device_id", deviceID).
		Msg("session opened")

	return s, nil
}

func (s *Session) buildManagers(ns *store.Namespace) error {
	ttl := s.Config.CacheTTL()

	var err error
	if s.Bookings, err = entity.NewManager[models.Booking](models.DataTypeBookings, ns, s.Bus, s.Engine, entity.WithCacheTTL[models.Booking](ttl)); err != nil {
		return err
	}
	if s.Clients, err = entity.NewManager[models.Client](models.DataTypeClients, ns, s.Bus, s.Engine, entity.WithCacheTTL[models.Client](ttl)); err != nil {
		return err
	}
	if s.Staff, err = entity.NewManager[models.Staff](models.DataTypeStaff, ns, s.Bus, s.Engine, entity.WithCacheTTL[models.Staff](ttl)); err != nil {
		return err
	}
	if s.Services, err = entity.NewManager[models.Service](models.DataTypeServices, ns, s.Bus, s.Engine, entity.WithCacheTTL[models.Service](ttl)); err != nil {
		return err
	}

	return nil
}

// Start launches connectivity probing and the background sync loop for the
// resolved tenant.
func (s *Session) Start(ctx context.Context) {
	if s.started {
		return
	}
	s.started = true

	if s.prober != nil {
		s.prober.Start(ctx)
	}

	s.scheduler = engine.NewScheduler(s.Engine, s.conn, s.Tenant.ID,
		engine.WithPollInterval(s.Config.PollInterval()))
	s.scheduler.Start(ctx)
}

// SyncNow runs one manual push+pull pass for the active tenant.
func (s *Session) SyncNow(ctx context.Context) error {
	return s.Engine.SyncNow(ctx, s.Tenant.ID)
}

// Close stops the background loops and releases the store.
func (s *Session) Close() error {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
	if s.prober != nil {
		s.prober.Stop()
	}

	return s.kv.Close()
}

func openStore(cfg config.Config) (store.KV, error) {
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

// openRemote builds the remote store and its connectivity source. Without
// a remote URL the session runs against an in-memory remote and is always
// considered online, which suits tests and single-device setups.
func openRemote(cfg config.Config) (remote.Store, remote.Connectivity, *remote.Prober, error) {
	if cfg.Remote.URL == "" {
		return remote.NewMemory(), remote.NewManualConnectivity(true), nil, nil
	}

	client, err := remote.NewHTTPClient(cfg.Remote.URL, cfg.Remote.Token,
		remote.WithTimeout(cfg.RemoteTimeout()))
	if err != nil {
		return nil, nil, nil, err
	}

	prober := remote.NewProber(client, cfg.ProbeInterval())
	return client, prober, prober, nil
}
