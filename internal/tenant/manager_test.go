package tenant

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/bookedly/replica/internal/models"
	"github.com/bookedly/replica/internal/store"
)

func TestValidateID(t *testing.T) {
	tests := []struct {
		name string
		id   string
		want bool
	}{
		{"canonical v4", uuid.NewString(), true},
		{"empty", "", false},
		{"garbage", "not-a-uuid", false},
		{"uppercase rejected", "7B6D5C4E-1F2A-4B3C-8D9E-0A1B2C3D4E5F", false},
		{"braced rejected", "{7b6d5c4e-1f2a-4b3c-8d9e-0a1b2c3d4e5f}", false},
		{"v7 rejected", uuid.Must(uuid.NewV7()).String(), false},
		{"too short", "7b6d5c4e", false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, ValidateID(tc.id))
		})
	}
}

func TestCreateAndGet(t *testing.T) {
	ctx := context.Background()
	mgr := NewManager(store.NewMemoryKV())

	owner := uuid.NewString()
	created, err := mgr.Create(ctx, "corner-salon", "Corner Salon", owner)
	require.NoError(t, err)
	require.True(t, created.Active)
	require.True(t, ValidateID(created.ID))

	got, err := mgr.Get(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, created, got)

	bySlug, err := mgr.GetBySlug(ctx, "corner-salon")
	require.NoError(t, err)
	require.Equal(t, created, bySlug)
}

func TestCreateRejectsBadInput(t *testing.T) {
	ctx := context.Background()
	mgr := NewManager(store.NewMemoryKV())
	owner := uuid.NewString()

	_, err := mgr.Create(ctx, "Bad Slug!", "x", owner)
	require.ErrorIs(t, err, ErrInvalidSlug)

	_, err = mgr.Create(ctx, "ok-slug", "x", "not-a-uuid")
	require.ErrorIs(t, err, ErrInvalidTenantID)

	_, err = mgr.Create(ctx, "dup", "x", owner)
	require.NoError(t, err)
	_, err = mgr.Create(ctx, "dup", "y", owner)
	require.ErrorIs(t, err, ErrSlugTaken)
}

func TestDeactivateSoftDeletes(t *testing.T) {
	ctx := context.Background()
	mgr := NewManager(store.NewMemoryKV())

	created, err := mgr.Create(ctx, "shop", "Shop", uuid.NewString())
	require.NoError(t, err)

	require.NoError(t, mgr.Deactivate(ctx, created.ID))

	got, err := mgr.Get(ctx, created.ID)
	require.NoError(t, err, "deactivated tenant must stay in the list")
	require.False(t, got.Active)

	require.ErrorIs(t, mgr.Deactivate(ctx, uuid.NewString()), ErrTenantNotFound)
}

func TestListPurgesCorruptRecords(t *testing.T) {
	ctx := context.Background()
	kv := store.NewMemoryKV()
	mgr := NewManager(kv)

	good := models.Tenant{
		ID:      uuid.NewString(),
		Slug:    "good",
		Active:  true,
		OwnerID: uuid.NewString(),
	}
	corrupt := models.Tenant{
		ID:      uuid.NewString(),
		Slug:    "corrupt",
		Active:  true,
		OwnerID: "not-a-uuid",
	}

	seedTenantList(t, kv, []models.Tenant{good, corrupt})

	// Corrupt tenant has replica data that must be cleared along with it
	ns := store.NewNamespace(kv)
	require.NoError(t, ns.Set(ctx, "bookings", corrupt.ID, []byte(`[]`)))

	tenants, err := mgr.List(ctx)
	require.NoError(t, err)
	require.Len(t, tenants, 1)
	require.Equal(t, good.ID, tenants[0].ID)

	// Purge is persisted, not just filtered from the return value
	raw, err := kv.Get(ctx, store.Key("tenants", ""))
	require.NoError(t, err)
	require.NotContains(t, raw, corrupt.ID)

	_, err = ns.Get(ctx, "bookings", corrupt.ID)
	require.ErrorIs(t, err, store.ErrKeyNotFound)
}

func seedTenantList(t *testing.T, kv store.KV, tenants []models.Tenant) {
	t.Helper()

	data, err := json.Marshal(tenants)
	require.NoError(t, err)
	require.NoError(t, kv.Set(context.Background(), store.Key("tenants", ""), string(data)))
}
