package device

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bookedly/replica/internal/store"
)

func TestEnsureCreatesOnce(t *testing.T) {
	ctx := context.Background()
	kv := store.NewMemoryKV()

	first, err := Ensure(ctx, kv)
	require.NoError(t, err)
	require.NotEmpty(t, first)

	second, err := Ensure(ctx, kv)
	require.NoError(t, err)
	require.Equal(t, first, second, "device id must be stable for the installation")
}

func TestEnsureDistinctPerInstallation(t *testing.T) {
	ctx := context.Background()

	a, err := Ensure(ctx, store.NewMemoryKV())
	require.NoError(t, err)

	b, err := Ensure(ctx, store.NewMemoryKV())
	require.NoError(t, err)

	require.NotEqual(t, a, b)
}
