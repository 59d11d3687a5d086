// Package tenant resolves and manages the tenant accounts whose data this
// installation replicates.
package tenant

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/bookedly/replica/internal/models"
	"github.com/bookedly/replica/internal/store"
)

// Sentinel errors
var (
	// ErrTenantNotFound is returned when no tenant can be resolved or found.
	ErrTenantNotFound = errors.New("tenant not found")

	// ErrInvalidTenantID is returned for identifiers that are not UUID v4.
	ErrInvalidTenantID = errors.New("invalid tenant identifier")

	// ErrInvalidSlug is returned for malformed tenant slugs.
	ErrInvalidSlug = errors.New("invalid tenant slug")

	// ErrSlugTaken is returned when registering a duplicate slug.
	ErrSlugTaken = errors.New("tenant slug already taken")
)

const listKey = "tenants"

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

// ValidateID reports whether s is exactly a canonical UUID v4. Identifiers
// are never coerced; anything else is treated as corrupt.
func ValidateID(s string) bool {
	if len(s) != 36 {
		return false
	}

	u, err := uuid.Parse(s)
	if err != nil {
		return false
	}

	// uuid.Parse accepts urn:, braced and uppercase forms; require the
	// canonical rendering exactly.
	if u.String() != s {
		return false
	}

	return u.Version() == 4 && u.Variant() == uuid.RFC4122
}

// valid reports whether a tenant record is structurally sound.
func valid(t models.Tenant) bool {
	return ValidateID(t.ID) && ValidateID(t.OwnerID)
}

// Manager owns the persisted tenant list. The list lives under an unscoped
// key because it spans tenants by definition.
type Manager struct {
	kv  store.KV
	ns  *store.Namespace
	now func() time.Time
}

// NewManager creates a tenant manager over the shared local store.
func NewManager(kv store.KV) *Manager {
	return &Manager{
		kv:  kv,
		ns:  store.NewNamespace(kv),
		now: time.Now,
	}
}

// Create registers a new tenant. The slug must be unique and well formed;
// the owner id must be a valid UUID v4.
func (m *Manager) Create(ctx context.Context, slug, name, ownerID string) (models.Tenant, error) {
	if !slugPattern.MatchString(slug) {
		return models.Tenant{}, fmt.Errorf("%w: %q", ErrInvalidSlug, slug)
	}

	if !ValidateID(ownerID) {
		return models.Tenant{}, fmt.Errorf("%w: owner %q", ErrInvalidTenantID, ownerID)
	}

	tenants, err := m.List(ctx)
	if err != nil {
		return models.Tenant{}, err
	}

	for _, t := range tenants {
		if t.Slug == slug {
			return models.Tenant{}, fmt.Errorf("%w: %q", ErrSlugTaken, slug)
		}
	}

	now := m.now().UTC()
	created := models.Tenant{
		ID:        uuid.NewString(), // v4
		Slug:      slug,
		Name:      name,
		Active:    true,
		OwnerID:   ownerID,
		CreatedAt: now,
		UpdatedAt: now,
	}

	tenants = append(tenants, created)
	if err := m.saveList(ctx, tenants); err != nil {
		return models.Tenant{}, err
	}

	log.Info().Str("tenant_id", created.ID).Str("slug", slug).Msg("tenant created")

	return created, nil
}

// Get returns the tenant with the given id, or ErrTenantNotFound.
func (m *Manager) Get(ctx context.Context, id string) (models.Tenant, error) {
	if !ValidateID(id) {
		return models.Tenant{}, fmt.Errorf("%w: %q", ErrInvalidTenantID, id)
	}

	tenants, err := m.List(ctx)
	if err != nil {
		return models.Tenant{}, err
	}

	for _, t := range tenants {
		if t.ID == id {
			return t, nil
		}
	}

	return models.Tenant{}, ErrTenantNotFound
}

// GetBySlug returns the tenant with the given slug, or ErrTenantNotFound.
func (m *Manager) GetBySlug(ctx context.Context, slug string) (models.Tenant, error) {
	tenants, err := m.List(ctx)
	if err != nil {
		return models.Tenant{}, err
	}

	for _, t := range tenants {
		if t.Slug == slug {
			return t, nil
		}
	}

	return models.Tenant{}, ErrTenantNotFound
}

// List returns every structurally valid tenant. Corrupt records found in
// the persisted list are purged as a side effect, along with any replica
// data stored under their namespace.
func (m *Manager) List(ctx context.Context) ([]models.Tenant, error) {
	raw, err := m.kv.Get(ctx, store.Key(listKey, ""))
	if errors.Is(err, store.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read tenant list: %w", err)
	}

	var tenants []models.Tenant
	if err := json.Unmarshal([]byte(raw), &tenants); err != nil {
		return nil, fmt.Errorf("failed to parse tenant list: %w", err)
	}

	kept := tenants[:0]
	var purged []models.Tenant
	for _, t := range tenants {
		if valid(t) {
			kept = append(kept, t)
		} else {
			purged = append(purged, t)
		}
	}

	if len(purged) > 0 {
		if err := m.saveList(ctx, kept); err != nil {
			return nil, err
		}

		for _, t := range purged {
			log.Warn().Str("tenant_id", t.ID).Str("owner_id", t.OwnerID).Msg("purged corrupt tenant record")

			// Only a valid-looking id can own namespaced keys
			if t.ID != "" {
				if err := m.ns.DeleteAll(ctx, t.ID); err != nil {
					log.Warn().Err(err).Str("tenant_id", t.ID).Msg("failed to clear purged tenant data")
				}
			}
		}
	}

	return kept, nil
}

// Deactivate soft-deletes a tenant. The record stays in the list so
// history keeps a valid reference.
func (m *Manager) Deactivate(ctx context.Context, id string) error {
	tenants, err := m.List(ctx)
	if err != nil {
		return err
	}

	for i, t := range tenants {
		if t.ID == id {
			tenants[i].Active = false
			tenants[i].UpdatedAt = m.now().UTC()

			if err := m.saveList(ctx, tenants); err != nil {
				return err
			}

			log.Info().Str("tenant_id", id).Msg("tenant deactivated")
			return nil
		}
	}

	return ErrTenantNotFound
}

func (m *Manager) saveList(ctx context.Context, tenants []models.Tenant) error {
	data, err := json.Marshal(tenants)
	if err != nil {
		return fmt.Errorf("failed to marshal tenant list: %w", err)
	}

	if err := m.kv.Set(ctx, store.Key(listKey, ""), string(data)); err != nil {
		return fmt.Errorf("failed to save tenant list: %w", err)
	}

	return nil
}
