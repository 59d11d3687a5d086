package tenant

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/bookedly/replica/internal/models"
	"github.com/bookedly/replica/internal/store"
)

const (
	pointerKey = "active_tenant"
	markerKey  = "tenant_marker"
)

// Resolver determines the active tenant from multiple coexisting hints.
//
// Probes run in strict order until one yields a structurally valid tenant:
//
//  1. a path-derived slug hint
//  2. the durable cross-session marker
//  3. the locally persisted pointer
//
// The first hit is written back to both the pointer and the marker so
// later resolutions short-circuit. A probe that yields a corrupt record
// triggers a purge of that record rather than silently skipping it.
type Resolver struct {
	mgr      *Manager
	kv       store.KV // local pointer
	marker   store.KV // durable cross-session marker
	slugHint string
}

// NewResolver creates a resolver. marker may be the same store as kv when
// the host environment offers no separate durable marker.
func NewResolver(mgr *Manager, kv, marker store.KV, slugHint string) *Resolver {
	return &Resolver{
		mgr:      mgr,
		kv:       kv,
		marker:   marker,
		slugHint: slugHint,
	}
}

// Resolve probes the hints in order and returns the active tenant, or
// ErrTenantNotFound when no hint yields a valid one. Callers handle
// not-found by prompting for tenant selection.
func (r *Resolver) Resolve(ctx context.Context) (models.Tenant, error) {
	if r.slugHint != "" {
		t, err := r.mgr.GetBySlug(ctx, r.slugHint)
		if err == nil {
			return r.adopt(ctx, t, "slug")
		}
		if !errors.Is(err, ErrTenantNotFound) {
			return models.Tenant{}, err
		}
	}

	if t, ok, err := r.probeStore(ctx, r.marker, markerKey); err != nil {
		return models.Tenant{}, err
	} else if ok {
		return r.adopt(ctx, t, "marker")
	}

	if t, ok, err := r.probeStore(ctx, r.kv, pointerKey); err != nil {
		return models.Tenant{}, err
	} else if ok {
		return r.adopt(ctx, t, "pointer")
	}

	return models.Tenant{}, ErrTenantNotFound
}

// SetActive makes id the active tenant explicitly, bypassing the probe
// order. The id must belong to a known tenant.
func (r *Resolver) SetActive(ctx context.Context, id string) (models.Tenant, error) {
	t, err := r.mgr.Get(ctx, id)
	if err != nil {
		return models.Tenant{}, err
	}

	return r.adopt(ctx, t, "explicit")
}

// probeStore follows a stored tenant id hint. Hints that point at missing
// or corrupt tenants are cleared.
func (r *Resolver) probeStore(ctx context.Context, kv store.KV, base string) (models.Tenant, bool, error) {
	id, err := kv.Get(ctx, store.Key(base, ""))
	if errors.Is(err, store.ErrKeyNotFound) {
		return models.Tenant{}, false, nil
	}
	if err != nil {
		return models.Tenant{}, false, fmt.Errorf("failed to read %s: %w", base, err)
	}

	// Manager.Get purges corrupt list entries as a side effect; a stale
	// hint is removed so the next resolution skips it.
	t, err := r.mgr.Get(ctx, id)
	if err == nil {
		return t, true, nil
	}
	if errors.Is(err, ErrTenantNotFound) || errors.Is(err, ErrInvalidTenantID) {
		log.Warn().Str("hint", base).Str("tenant_id", id).Msg("clearing stale tenant hint")
		if removeErr := kv.Remove(ctx, store.Key(base, "")); removeErr != nil {
			return models.Tenant{}, false, removeErr
		}
		return models.Tenant{}, false, nil
	}

	return models.Tenant{}, false, err
}

// adopt writes the resolved tenant through to the pointer and the durable
// marker so subsequent resolutions are O(1).
func (r *Resolver) adopt(ctx context.Context, t models.Tenant, source string) (models.Tenant, error) {
	if err := r.kv.Set(ctx, store.Key(pointerKey, ""), t.ID); err != nil {
		return models.Tenant{}, fmt.Errorf("failed to persist tenant pointer: %w", err)
	}

	if err := r.marker.Set(ctx, store.Key(markerKey, ""), t.ID); err != nil {
		return models.Tenant{}, fmt.Errorf("failed to persist tenant marker: %w", err)
	}

	log.Debug().Str("tenant_id", t.ID).Str("source", source).Msg("tenant resolved")

	return t, nil
}
