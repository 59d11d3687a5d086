// Package cache provides the TTL'd in-memory read-through cache that sits
// in front of the namespaced store for hot entity collections.
package cache

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"github.com/bookedly/replica/internal/models"
)

// DefaultTTL is how long a cached collection stays fresh.
const DefaultTTL = 5 * time.Second

// Loader fetches the current collection for a tenant, typically from the
// namespaced store or, transitively, the remote store.
type Loader func(ctx context.Context, tenantID string) ([]byte, error)

type entry struct {
	value     []byte
	fetchedAt time.Time
}

// Cache caches one data type's collections, keyed by tenant. Concurrent
// gets for the same tenant collapse into a single in-flight load.
type Cache struct {
	mu       sync.RWMutex
	dataType models.DataType
	ttl      time.Duration
	loader   Loader
	entries  map[string]entry
	group    singleflight.Group

	now func() time.Time
}

// New creates a cache for one data type. A ttl of zero uses DefaultTTL.
func New(dataType models.DataType, ttl time.Duration, loader Loader) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	return &Cache{
		dataType: dataType,
		ttl:      ttl,
		loader:   loader,
		entries:  make(map[string]entry),
		now:      time.Now,
	}
}

// Get returns the tenant's collection, serving the cached copy while it is
// fresh and reloading through the loader otherwise. force bypasses the
// freshness check.
func (c *Cache) Get(ctx context.Context, tenantID string, force bool) ([]byte, error) {
	if !force {
		c.mu.RLock()
		e, ok := c.entries[tenantID]
		fresh := ok && c.now().Sub(e.fetchedAt) < c.ttl
		c.mu.RUnlock()

		if fresh {
			return e.value, nil
		}
	}

	value, err, shared := c.group.Do(tenantID, func() (any, error) {
		loaded, err := c.loader(ctx, tenantID)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		c.entries[tenantID] = entry{value: loaded, fetchedAt: c.now()}
		c.mu.Unlock()

		return loaded, nil
	})
	if err != nil {
		return nil, err
	}

	if shared {
		log.Debug().
			Str("data_type", c.dataType.String()).
			Str("tenant_id", tenantID).
			Msg("collapsed concurrent cache loads")
	}

	return value.([]byte), nil
}

// Invalidate drops the cached entry for one tenant. Entries belonging to
// other tenants are untouched. A load already in flight is forgotten so
// gets issued after the invalidation never adopt its pre-invalidate
// result.
func (c *Cache) Invalidate(tenantID string) {
	c.group.Forget(tenantID)

	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, tenantID)
}

// InvalidateAll drops every cached entry.
func (c *Cache) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for tenantID := range c.entries {
		c.group.Forget(tenantID)
	}

	c.entries = make(map[string]entry)
}

// Len returns the number of cached tenants, for introspection.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.entries)
}
