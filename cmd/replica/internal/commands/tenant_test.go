package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bookedly/replica/internal/tenant"
)

func testGlobals(t *testing.T) *Globals {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "replica.yaml")
	cfg := fmt.Sprintf("data_dir: %s\nstore: file\n", dir)
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0600))

	return &Globals{Config: path, Version: "test"}
}

func TestTenantCreateWithoutOwner(t *testing.T) {
	ctx := context.Background()
	globals := testGlobals(t)

	cmd := &TenantCreateCmd{Slug: "corner-salon", Name: "Corner Salon"}
	require.NoError(t, cmd.Run(ctx, globals))

	cfg, err := loadConfig(globals)
	require.NoError(t, err)
	kv, err := openKV(cfg)
	require.NoError(t, err)
	defer kv.Close()

	tenants, err := tenant.NewManager(kv).List(ctx)
	require.NoError(t, err)
	require.Len(t, tenants, 1)
	require.Equal(t, "corner-salon", tenants[0].Slug)
	require.True(t, tenant.ValidateID(tenants[0].OwnerID), "generated owner id must be a canonical v4 uuid")
}

func TestTenantCreateWithOwner(t *testing.T) {
	ctx := context.Background()
	globals := testGlobals(t)

	owner := "b2c5f7a4-9d38-4b6e-8a21-0c3e5d7f9b14"
	cmd := &TenantCreateCmd{Slug: "corner-salon", Name: "Corner Salon", Owner: owner}
	require.NoError(t, cmd.Run(ctx, globals))

	cfg, err := loadConfig(globals)
	require.NoError(t, err)
	kv, err := openKV(cfg)
	require.NoError(t, err)
	defer kv.Close()

	tenants, err := tenant.NewManager(kv).List(ctx)
	require.NoError(t, err)
	require.Len(t, tenants, 1)
	require.Equal(t, owner, tenants[0].OwnerID)
}
