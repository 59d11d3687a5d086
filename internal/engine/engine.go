// Package engine implements the push/pull reconciliation loop that keeps
// the local replica eventually consistent with the remote store.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/bookedly/replica/internal/events"
	"github.com/bookedly/replica/internal/models"
	"github.com/bookedly/replica/internal/remote"
	"github.com/bookedly/replica/internal/store"
)

var (
	// ErrSyncInProgress is returned when a push or pull for the same
	// (tenant, data type) pair is already in flight.
	ErrSyncInProgress = errors.New("sync already in progress")

	// ErrOffline is returned when a sync is requested while offline.
	ErrOffline = errors.New("offline")

	// ErrChecksumMismatch marks a remote record whose payload does not
	// match its checksum.
	ErrChecksumMismatch = errors.New("record checksum mismatch")
)

const (
	lastSyncBase   = "lastsync"
	defaultTimeout = 10 * time.Second
)

type pairKey struct {
	tenantID string
	dataType models.DataType
}

// Engine reconciles local collections against the remote store, one
// whole-document record per (tenant, data type) pair.
type Engine struct {
	registry *Registry
	remote   remote.Store
	ns       *store.Namespace
	bus      *events.Bus
	deviceID string
	timeout  time.Duration
	now      func() time.Time

	mu       sync.Mutex
	statuses map[pairKey]Status
	inflight map[pairKey]bool
	offline  bool
}

// Option customizes the engine.
type Option func(*Engine)

// WithTimeout bounds each remote call.
func WithTimeout(d time.Duration) Option {
	return func(e *Engine) { e.timeout = d }
}

// WithClock injects the time source, for deterministic tests.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// New creates an engine. Entity managers register their strategies through
// Register before the first sync.
func New(remoteStore remote.Store, ns *store.Namespace, bus *events.Bus, deviceID string, opts ...Option) *Engine {
	e := &Engine{
		registry: NewRegistry(),
		remote:   remoteStore,
		ns:       ns,
		bus:      bus,
		deviceID: deviceID,
		timeout:  defaultTimeout,
		now:      time.Now,
		statuses: make(map[pairKey]Status),
		inflight: make(map[pairKey]bool),
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Register binds an entity manager's strategy to its data type.
func (e *Engine) Register(dt models.DataType, s Strategy) error {
	return e.registry.Register(dt, s)
}

// DeviceID returns the installation identifier stamped on pushes.
func (e *Engine) DeviceID() string {
	return e.deviceID
}

// Status returns the sync status for one (tenant, data type) pair.
func (e *Engine) Status(tenantID string, dt models.DataType) Status {
	e.mu.Lock()
	defer e.mu.Unlock()

	s, ok := e.statuses[pairKey{tenantID, dt}]
	if !ok {
		return Status{State: StateIdle}
	}

	return s
}

// Statuses returns the status of every registered type for a tenant.
func (e *Engine) Statuses(tenantID string) map[models.DataType]Status {
	statuses := make(map[models.DataType]Status)
	for _, dt := range e.registry.Types() {
		statuses[dt] = e.Status(tenantID, dt)
	}

	return statuses
}

// SetOffline transitions every registered type for the tenant to Offline.
// Local data is untouched; reads keep serving the last good copy.
func (e *Engine) SetOffline(tenantID string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.offline = true
	for _, dt := range e.registry.Types() {
		key := pairKey{tenantID, dt}
		s := e.statuses[key]
		s.State = StateOffline
		e.statuses[key] = s
	}

	log.Info().Str("tenant_id", tenantID).Msg("sync offline")
}

// SetOnline transitions Offline types back to Idle. The caller is expected
// to follow up with one full reconciliation pass.
func (e *Engine) SetOnline(tenantID string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.offline = false
	for _, dt := range e.registry.Types() {
		key := pairKey{tenantID, dt}
		s := e.statuses[key]
		if s.State == StateOffline {
			s.State = StateIdle
			e.statuses[key] = s
		}
	}

	log.Info().Str("tenant_id", tenantID).Msg("sync online")
}

// Push serializes the local collection for (tenant, dt) and uploads it as
// a new record. A push already in flight for the same pair is not queued;
// ErrSyncInProgress tells the caller to rely on the next tick.
func (e *Engine) Push(ctx context.Context, tenantID string, dt models.DataType) error {
	strategy, ok := e.registry.Strategy(dt)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotRegistered, dt)
	}

	key := pairKey{tenantID, dt}
	if err := e.begin(key, StatePushing); err != nil {
		return err
	}

	err := e.push(ctx, tenantID, dt, strategy)
	if err != nil {
		e.finish(key, StateError, time.Time{})
		e.bus.Emit(events.SyncFailed, events.EntityEvent{
			EntityType: dt,
			TenantID:   tenantID,
			Timestamp:  e.now(),
		})
		return err
	}

	return nil
}

func (e *Engine) push(ctx context.Context, tenantID string, dt models.DataType, strategy Strategy) error {
	payload, err := strategy.Load(ctx, tenantID)
	if err != nil {
		return fmt.Errorf("failed to load local %s: %w", dt, err)
	}

	rec := models.NewSyncRecord(tenantID, dt, payload, e.deviceID, e.now().UTC())

	pushCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	if err := e.remote.Push(pushCtx, rec); err != nil {
		return fmt.Errorf("failed to push %s: %w", dt, err)
	}

	if err := e.saveLastSync(ctx, tenantID, dt, rec.Timestamp); err != nil {
		return err
	}

	e.finish(pairKey{tenantID, dt}, StateSynced, rec.Timestamp)
	e.bus.Emit(events.SyncSucceeded, events.EntityEvent{
		EntityType: dt,
		TenantID:   tenantID,
		Timestamp:  rec.Timestamp,
	})

	log.Debug().
		Str("tenant_id", tenantID).
		Str("data_type", dt.String()).
		Int64("version", rec.Version).
		Msg("pushed collection")

	return nil
}

// PushAsync runs Push on its own goroutine, logging rather than returning
// failures. Background push errors surface as Error status and are retried
// by the scheduler, never thrown at the caller.
func (e *Engine) PushAsync(tenantID string, dt models.DataType) {
	go func() {
		err := e.Push(context.Background(), tenantID, dt)
		switch {
		case err == nil:
		case errors.Is(err, ErrSyncInProgress), errors.Is(err, ErrOffline):
			log.Debug().Err(err).Str("data_type", dt.String()).Msg("push skipped")
		default:
			log.Warn().Err(err).Str("data_type", dt.String()).Msg("background push failed")
		}
	}()
}

// Pull lists the tenant's remote records and applies every one that wins
// conflict resolution. Data types are pulled concurrently; the first error
// is returned after all of them finish.
func (e *Engine) Pull(ctx context.Context, tenantID string) error {
	pullCtx, cancel := context.WithTimeout(ctx, e.timeout)
	records, err := e.remote.Pull(pullCtx, tenantID)
	cancel()
	if err != nil {
		e.markAllError(tenantID)
		e.bus.Emit(events.SyncFailed, events.EntityEvent{
			TenantID:  tenantID,
			Timestamp: e.now(),
		})
		return fmt.Errorf("failed to pull records: %w", err)
	}

	// Newest remote record per type; the list arrives newest-first
	newest := make(map[models.DataType]models.SyncRecord)
	for _, rec := range records {
		if _, ok := newest[rec.DataType]; !ok {
			newest[rec.DataType] = rec
		}
	}

	var (
		wg       sync.WaitGroup
		errMu    sync.Mutex
		firstErr error
	)

	for _, dt := range e.registry.Types() {
		rec, ok := newest[dt]
		if !ok {
			continue
		}

		wg.Add(1)
		go func(dt models.DataType, rec models.SyncRecord) {
			defer wg.Done()

			if err := e.applyRecord(ctx, tenantID, dt, rec); err != nil {
				errMu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				errMu.Unlock()
			}
		}(dt, rec)
	}

	wg.Wait()
	return firstErr
}

// applyRecord applies one remote record when it wins conflict resolution.
// Stale and own-device records finish as Synced without touching local
// state.
func (e *Engine) applyRecord(ctx context.Context, tenantID string, dt models.DataType, rec models.SyncRecord) error {
	strategy, ok := e.registry.Strategy(dt)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotRegistered, dt)
	}

	key := pairKey{tenantID, dt}
	if err := e.begin(key, StatePulling); err != nil {
		return err
	}

	lastSync, err := e.loadLastSync(ctx, tenantID, dt)
	if err != nil {
		e.finish(key, StateError, time.Time{})
		return err
	}

	// Records from this device echo our own pushes
	if rec.DeviceID == e.deviceID {
		e.finish(key, StateSynced, lastSync)
		return nil
	}

	ours := models.SyncRecord{DeviceID: e.deviceID, Timestamp: lastSync}
	if Compare(rec, ours) == LocalWins {
		log.Debug().
			Str("tenant_id", tenantID).
			Str("data_type", dt.String()).
			Time("remote_ts", rec.Timestamp).
			Time("last_sync", lastSync).
			Msg("skipping stale remote record")
		e.finish(key, StateSynced, lastSync)
		return nil
	}

	if !rec.VerifyChecksum() {
		e.finish(key, StateError, lastSync)
		log.Warn().
			Str("tenant_id", tenantID).
			Str("data_type", dt.String()).
			Msg("remote record failed checksum, skipping apply")
		return fmt.Errorf("%w: %s", ErrChecksumMismatch, dt)
	}

	// Whole-document replace, never a partial merge
	if err := strategy.Apply(ctx, tenantID, rec.Payload); err != nil {
		e.finish(key, StateError, lastSync)
		return fmt.Errorf("failed to apply %s: %w", dt, err)
	}

	if err := e.saveLastSync(ctx, tenantID, dt, rec.Timestamp); err != nil {
		e.finish(key, StateError, lastSync)
		return err
	}

	e.finish(key, StateSynced, rec.Timestamp)
	e.bus.Emit(events.SyncSucceeded, events.EntityEvent{
		EntityType: dt,
		TenantID:   tenantID,
		Timestamp:  rec.Timestamp,
	})

	log.Info().
		Str("tenant_id", tenantID).
		Str("data_type", dt.String()).
		Str("device_id", rec.DeviceID).
		Int64("version", rec.Version).
		Msg("applied remote collection")

	return nil
}

// SyncNow performs one full push+pull pass and surfaces the first failure
// to the caller. This is the manual path; the scheduler's background
// cycles only log.
func (e *Engine) SyncNow(ctx context.Context, tenantID string) error {
	e.mu.Lock()
	offline := e.offline
	e.mu.Unlock()
	if offline {
		return ErrOffline
	}

	var firstErr error

	for _, dt := range e.registry.Types() {
		if err := e.Push(ctx, tenantID, dt); err != nil && !errors.Is(err, ErrSyncInProgress) {
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	if err := e.Pull(ctx, tenantID); err != nil && !errors.Is(err, ErrSyncInProgress) {
		if firstErr == nil {
			firstErr = err
		}
	}

	return firstErr
}

// begin acquires the in-flight flag for key and records the transient
// state.
func (e *Engine) begin(key pairKey, state State) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.offline {
		return ErrOffline
	}

	if e.inflight[key] {
		return ErrSyncInProgress
	}

	e.inflight[key] = true
	s := e.statuses[key]
	s.State = state
	e.statuses[key] = s

	return nil
}

// finish releases the in-flight flag and records the terminal state.
func (e *Engine) finish(key pairKey, state State, lastSync time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()

	delete(e.inflight, key)
	s := e.statuses[key]
	s.State = state
	if !lastSync.IsZero() {
		s.LastSync = lastSync
	}
	e.statuses[key] = s
}

func (e *Engine) markAllError(tenantID string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, dt := range e.registry.Types() {
		key := pairKey{tenantID, dt}
		if e.inflight[key] {
			continue
		}
		s := e.statuses[key]
		s.State = StateError
		e.statuses[key] = s
	}
}

func (e *Engine) loadLastSync(ctx context.Context, tenantID string, dt models.DataType) (time.Time, error) {
	data, err := e.ns.Get(ctx, lastSyncBase+":"+dt.String(), tenantID)
	if errors.Is(err, store.ErrKeyNotFound) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to load last sync: %w", err)
	}

	ts, err := time.Parse(time.RFC3339Nano, string(data))
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse last sync: %w", err)
	}

	return ts, nil
}

func (e *Engine) saveLastSync(ctx context.Context, tenantID string, dt models.DataType, ts time.Time) error {
	value := []byte(ts.UTC().Format(time.RFC3339Nano))
	if err := e.ns.Set(ctx, lastSyncBase+":"+dt.String(), tenantID, value); err != nil {
		return fmt.Errorf("failed to persist last sync: %w", err)
	}

	return nil
}
