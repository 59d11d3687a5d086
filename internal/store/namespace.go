package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog/log"
)

const keyPrefix = "replica"

// Key maps a base key into a tenant's namespace. Distinct tenants always
// map to distinct addresses; an empty tenantID yields the legacy unscoped
// form used for installation-wide values such as the device identifier.
func Key(base, tenantID string) string {
	if tenantID == "" {
		return fmt.Sprintf("%s:%s", keyPrefix, base)
	}
	return fmt.Sprintf("%s:%s:%s", keyPrefix, tenantID, base)
}

// tenantPrefix is the prefix covering every key in a tenant's namespace.
func tenantPrefix(tenantID string) string {
	return fmt.Sprintf("%s:%s:", keyPrefix, tenantID)
}

// Namespace provides tenant-scoped reads and writes over a KV collaborator.
// No read under tenant A can observe a write under tenant B.
type Namespace struct {
	kv KV
}

// NewNamespace wraps a KV store with tenant namespacing.
func NewNamespace(kv KV) *Namespace {
	return &Namespace{kv: kv}
}

// Get returns the raw value stored under (base, tenant), or ErrKeyNotFound.
func (n *Namespace) Get(ctx context.Context, base, tenantID string) ([]byte, error) {
	value, err := n.kv.Get(ctx, Key(base, tenantID))
	if err != nil {
		return nil, err
	}
	return []byte(value), nil
}

// Set stores a raw value under (base, tenant).
func (n *Namespace) Set(ctx context.Context, base, tenantID string, value []byte) error {
	return n.kv.Set(ctx, Key(base, tenantID), string(value))
}

// Remove deletes the value stored under (base, tenant).
func (n *Namespace) Remove(ctx context.Context, base, tenantID string) error {
	return n.kv.Remove(ctx, Key(base, tenantID))
}

// DeleteAll enumerates and removes every key in the tenant's namespace.
// Used when a tenant is purged so no orphaned replica data survives.
func (n *Namespace) DeleteAll(ctx context.Context, tenantID string) error {
	keys, err := n.kv.Enumerate(ctx, tenantPrefix(tenantID))
	if err != nil {
		return fmt.Errorf("failed to enumerate tenant keys: %w", err)
	}

	for _, key := range keys {
		if err := n.kv.Remove(ctx, key); err != nil {
			return fmt.Errorf("failed to remove %s: %w", key, err)
		}
	}

	if len(keys) > 0 {
		log.Debug().Str("tenant_id", tenantID).Int("keys", len(keys)).Msg("tenant namespace cleared")
	}

	return nil
}

// GetJSON reads and decodes a JSON value stored under (base, tenant).
func GetJSON[T any](ctx context.Context, n *Namespace, base, tenantID string) (T, error) {
	var value T

	data, err := n.Get(ctx, base, tenantID)
	if err != nil {
		return value, err
	}

	if err := json.Unmarshal(data, &value); err != nil {
		return value, fmt.Errorf("failed to decode %s: %w", base, err)
	}

	return value, nil
}

// SetJSON encodes and stores a JSON value under (base, tenant).
func SetJSON[T any](ctx context.Context, n *Namespace, base, tenantID string, value T) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", base, err)
	}

	return n.Set(ctx, base, tenantID, data)
}
