// Package entity provides the typed collection managers that sit between
// callers and the replication machinery. Each manager owns one data type:
// reads go through the TTL cache, writes go to the namespaced store, emit
// change events, and schedule a background push.
package entity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/bookedly/replica/internal/cache"
	"github.com/bookedly/replica/internal/engine"
	"github.com/bookedly/replica/internal/events"
	"github.com/bookedly/replica/internal/models"
	"github.com/bookedly/replica/internal/store"
)

// ErrEntityNotFound is returned when an id is absent from the collection.
var ErrEntityNotFound = errors.New("entity not found")

// Manager manages one replicated collection of T for any number of
// tenants. The collection is stored as a single JSON document per tenant.
type Manager[T models.Entity] struct {
	dataType models.DataType
	ns       *store.Namespace
	bus      *events.Bus
	engine   *engine.Engine
	cache    *cache.Cache
	now      func() time.Time
}

// Option customizes a manager.
type Option[T models.Entity] func(*Manager[T])

// WithCacheTTL overrides the read cache TTL.
func WithCacheTTL[T models.Entity](ttl time.Duration) Option[T] {
	return func(m *Manager[T]) {
		m.cache = cache.New(m.dataType, ttl, m.load)
	}
}

// WithClock injects the time source, for deterministic tests.
func WithClock[T models.Entity](now func() time.Time) Option[T] {
	return func(m *Manager[T]) { m.now = now }
}

// NewManager creates a manager for dataType and registers its sync
// strategy with the engine.
func NewManager[T models.Entity](dataType models.DataType, ns *store.Namespace, bus *events.Bus, e *engine.Engine, opts ...Option[T]) (*Manager[T], error) {
	m := &Manager[T]{
		dataType: dataType,
		ns:       ns,
		bus:      bus,
		engine:   e,
		now:      time.Now,
	}
	m.cache = cache.New(dataType, cache.DefaultTTL, m.load)

	for _, opt := range opts {
		opt(m)
	}

	err := e.Register(dataType, engine.Strategy{
		Load:  m.load,
		Apply: m.apply,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to register %s strategy: %w", dataType, err)
	}

	return m, nil
}

// DataType returns the data type this manager replicates.
func (m *Manager[T]) DataType() models.DataType {
	return m.dataType
}

// List returns the tenant's collection, served from the cache while fresh.
func (m *Manager[T]) List(ctx context.Context, tenantID string) ([]T, error) {
	return m.list(ctx, tenantID, false)
}

// Refresh returns the tenant's collection, bypassing the cache.
func (m *Manager[T]) Refresh(ctx context.Context, tenantID string) ([]T, error) {
	return m.list(ctx, tenantID, true)
}

func (m *Manager[T]) list(ctx context.Context, tenantID string, force bool) ([]T, error) {
	data, err := m.cache.Get(ctx, tenantID, force)
	if err != nil {
		return nil, err
	}

	return decode[T](data)
}

// Get returns one entity by id.
func (m *Manager[T]) Get(ctx context.Context, tenantID, id string) (T, error) {
	var zero T

	items, err := m.List(ctx, tenantID)
	if err != nil {
		return zero, err
	}

	for _, item := range items {
		if item.EntityID() == id {
			return item, nil
		}
	}

	return zero, fmt.Errorf("%w: %s", ErrEntityNotFound, id)
}

// Upsert inserts or replaces one entity, persists the collection, emits a
// change event and schedules a background push. An entity without an id is
// assigned one.
func (m *Manager[T]) Upsert(ctx context.Context, tenantID string, item T) (T, error) {
	var zero T

	items, err := m.current(ctx, tenantID)
	if err != nil {
		return zero, err
	}

	item, created := ensureID(item)
	name := events.EntityUpdated

	replaced := false
	for i, existing := range items {
		if existing.EntityID() == item.EntityID() {
			items[i] = item
			replaced = true
			break
		}
	}
	if !replaced {
		items = append(items, item)
		if created {
			name = events.EntityCreated
		}
	}

	if err := m.persist(ctx, tenantID, items); err != nil {
		return zero, err
	}

	m.afterWrite(tenantID, name, item.EntityID())
	return item, nil
}

// Delete removes one entity by id, persists the collection, emits a change
// event and schedules a background push.
func (m *Manager[T]) Delete(ctx context.Context, tenantID, id string) error {
	items, err := m.current(ctx, tenantID)
	if err != nil {
		return err
	}

	idx := -1
	for i, existing := range items {
		if existing.EntityID() == id {
			idx = i
			break
		}
	}
	if idx == -1 {
		return fmt.Errorf("%w: %s", ErrEntityNotFound, id)
	}

	items = append(items[:idx], items[idx+1:]...)
	if err := m.persist(ctx, tenantID, items); err != nil {
		return err
	}

	m.afterWrite(tenantID, events.EntityDeleted, id)
	return nil
}

// Invalidate drops the tenant's cached collection.
func (m *Manager[T]) Invalidate(tenantID string) {
	m.cache.Invalidate(tenantID)
}

// current reads the collection directly from the store, never the cache.
// Writes must not base themselves on a possibly stale cached copy.
func (m *Manager[T]) current(ctx context.Context, tenantID string) ([]T, error) {
	data, err := m.load(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	return decode[T](data)
}

func (m *Manager[T]) persist(ctx context.Context, tenantID string, items []T) error {
	data, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", m.dataType, err)
	}

	if err := m.ns.Set(ctx, m.dataType.String(), tenantID, data); err != nil {
		return fmt.Errorf("failed to persist %s: %w", m.dataType, err)
	}

	return nil
}

func (m *Manager[T]) afterWrite(tenantID, eventName, entityID string) {
	m.cache.Invalidate(tenantID)
	m.bus.Emit(eventName, events.EntityEvent{
		EntityType: m.dataType,
		EntityID:   entityID,
		TenantID:   tenantID,
		Timestamp:  m.now(),
	})
	m.engine.PushAsync(tenantID, m.dataType)
}

// load is the engine's and the cache's read path: the raw collection
// document from the namespaced store. A missing document is an empty
// collection.
func (m *Manager[T]) load(ctx context.Context, tenantID string) ([]byte, error) {
	data, err := m.ns.Get(ctx, m.dataType.String(), tenantID)
	if errors.Is(err, store.ErrKeyNotFound) {
		return []byte("[]"), nil
	}
	if err != nil {
		return nil, err
	}

	return data, nil
}

// apply is the engine's write path: a remote payload replaces the whole
// local collection.
func (m *Manager[T]) apply(ctx context.Context, tenantID string, payload []byte) error {
	// Reject undecodable payloads before they clobber the local document
	if _, err := decode[T](payload); err != nil {
		return err
	}

	if err := m.ns.Set(ctx, m.dataType.String(), tenantID, payload); err != nil {
		return fmt.Errorf("failed to apply %s: %w", m.dataType, err)
	}

	m.cache.Invalidate(tenantID)
	m.bus.Emit(events.EntityUpdated, events.EntityEvent{
		EntityType: m.dataType,
		TenantID:   tenantID,
		Timestamp:  m.now(),
	})

	log.Debug().
		Str("data_type", m.dataType.String()).
		Str("tenant_id", tenantID).
		Msg("collection replaced from remote")

	return nil
}

func decode[T models.Entity](data []byte) ([]T, error) {
	if len(data) == 0 {
		return []T{}, nil
	}

	var items []T
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("failed to decode collection: %w", err)
	}

	if items == nil {
		items = []T{}
	}

	return items, nil
}

// ensureID assigns a fresh id when the entity was created without one.
// The id field is written through a JSON round-trip since T is opaque to
// the manager.
func ensureID[T models.Entity](item T) (T, bool) {
	if item.EntityID() != "" {
		return item, false
	}

	data, err := json.Marshal(item)
	if err != nil {
		return item, false
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return item, false
	}

	id, _ := json.Marshal(uuid.NewString())
	raw["id"] = id

	merged, err := json.Marshal(raw)
	if err != nil {
		return item, false
	}

	var out T
	if err := json.Unmarshal(merged, &out); err != nil {
		return item, false
	}

	return out, true
}
