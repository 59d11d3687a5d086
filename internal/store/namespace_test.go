package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

const (
	tenantA = "7b6d5c4e-1f2a-4b3c-8d9e-0a1b2c3d4e5f"
	tenantB = "2a3b4c5d-6e7f-4a8b-9c0d-1e2f3a4b5c6d"
)

func TestKeyIsolation(t *testing.T) {
	bases := []string{"bookings", "clients", "staff", "services", "lastsync:bookings"}

	for _, base := range bases {
		require.NotEqual(t, Key(base, tenantA), Key(base, tenantB))
	}
}

func TestKeyLegacyUnscoped(t *testing.T) {
	require.Equal(t, "replica:device_id", Key("device_id", ""))
	require.Equal(t, "replica:"+tenantA+":bookings", Key("bookings", tenantA))
}

func TestNamespaceIsolation(t *testing.T) {
	ctx := context.Background()
	ns := NewNamespace(NewMemoryKV())

	require.NoError(t, ns.Set(ctx, "bookings", tenantA, []byte(`["a"]`)))

	_, err := ns.Get(ctx, "bookings", tenantB)
	require.ErrorIs(t, err, ErrKeyNotFound, "write under tenant A must not be observable under tenant B")

	got, err := ns.Get(ctx, "bookings", tenantA)
	require.NoError(t, err)
	require.Equal(t, []byte(`["a"]`), got)
}

func TestNamespaceDeleteAll(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV()
	ns := NewNamespace(kv)

	require.NoError(t, ns.Set(ctx, "bookings", tenantA, []byte(`[]`)))
	require.NoError(t, ns.Set(ctx, "clients", tenantA, []byte(`[]`)))
	require.NoError(t, ns.Set(ctx, "bookings", tenantB, []byte(`["keep"]`)))
	require.NoError(t, kv.Set(ctx, Key("device_id", ""), "dev-1"))

	require.NoError(t, ns.DeleteAll(ctx, tenantA))

	_, err := ns.Get(ctx, "bookings", tenantA)
	require.ErrorIs(t, err, ErrKeyNotFound)
	_, err = ns.Get(ctx, "clients", tenantA)
	require.ErrorIs(t, err, ErrKeyNotFound)

	// Other tenants and unscoped keys survive
	got, err := ns.Get(ctx, "bookings", tenantB)
	require.NoError(t, err)
	require.Equal(t, []byte(`["keep"]`), got)

	device, err := kv.Get(ctx, Key("device_id", ""))
	require.NoError(t, err)
	require.Equal(t, "dev-1", device)
}

func TestNamespaceJSONRoundTrip(t *testing.T) {
	ctx := context.Background()
	ns := NewNamespace(NewMemoryKV())

	type item struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}

	want := []item{{ID: "1", Name: "cut"}, {ID: "2", Name: "colour"}}
	require.NoError(t, SetJSON(ctx, ns, "services", tenantA, want))

	got, err := GetJSON[[]item](ctx, ns, "services", tenantA)
	require.NoError(t, err)
	require.Equal(t, want, got)
}
