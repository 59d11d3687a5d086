package engine

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/bookedly/replica/internal/events"
	"github.com/bookedly/replica/internal/models"
	"github.com/bookedly/replica/internal/remote"
	"github.com/bookedly/replica/internal/store"
)

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}

	t.Fatal("condition not met in time")
}

func TestSchedulerPollsOnInterval(t *testing.T) {
	mem := remote.NewMemory()
	e := New(mem, store.NewNamespace(store.NewMemoryKV()), events.NewBus(), "device-a")

	var loads atomic.Int64
	require.NoError(t, e.Register(models.DataTypeBookings, Strategy{
		Load: func(ctx context.Context, tenantID string) ([]byte, error) {
			loads.Add(1)
			return []byte(`[]`), nil
		},
		Apply: func(ctx context.Context, tenantID string, payload []byte) error { return nil },
	}))

	conn := remote.NewManualConnectivity(true)
	s := NewScheduler(e, conn, testTenant, WithPollInterval(20*time.Millisecond))
	s.Start(context.Background())
	defer s.Stop()

	waitFor(t, time.Second, func() bool { return loads.Load() >= 3 })
	require.Equal(t, StateSynced, e.Status(testTenant, models.DataTypeBookings).State)
}

func TestSchedulerReconnectRunsOneCycle(t *testing.T) {
	mem := remote.NewMemory()
	e := New(mem, store.NewNamespace(store.NewMemoryKV()), events.NewBus(), "device-a")

	var loads atomic.Int64
	require.NoError(t, e.Register(models.DataTypeBookings, Strategy{
		Load: func(ctx context.Context, tenantID string) ([]byte, error) {
			loads.Add(1)
			return []byte(`[]`), nil
		},
		Apply: func(ctx context.Context, tenantID string, payload []byte) error { return nil },
	}))

	conn := remote.NewManualConnectivity(false)
	s := NewScheduler(e, conn, testTenant, WithPollInterval(time.Hour))
	s.Start(context.Background())
	defer s.Stop()

	waitFor(t, time.Second, func() bool {
		return e.Status(testTenant, models.DataTypeBookings).State == StateOffline
	})
	require.Zero(t, loads.Load(), "no cycle while offline")

	conn.SetOnline(true)

	// Reconnection triggers exactly one cycle ending in a terminal state
	waitFor(t, time.Second, func() bool { return loads.Load() == 1 })
	waitFor(t, time.Second, func() bool {
		st := e.Status(testTenant, models.DataTypeBookings).State
		return st == StateSynced || st == StateError
	})
	require.Equal(t, StateSynced, e.Status(testTenant, models.DataTypeBookings).State)

	time.Sleep(50 * time.Millisecond)
	require.Equal(t, int64(1), loads.Load(), "reconnect runs a single cycle")
}

func TestSchedulerGoesOfflineOnDisconnect(t *testing.T) {
	mem := remote.NewMemory()
	e := New(mem, store.NewNamespace(store.NewMemoryKV()), events.NewBus(), "device-a")

	require.NoError(t, e.Register(models.DataTypeClients, Strategy{
		Load:  func(ctx context.Context, tenantID string) ([]byte, error) { return []byte(`[]`), nil },
		Apply: func(ctx context.Context, tenantID string, payload []byte) error { return nil },
	}))

	conn := remote.NewManualConnectivity(true)
	s := NewScheduler(e, conn, testTenant, WithPollInterval(time.Hour))
	s.Start(context.Background())
	defer s.Stop()

	waitFor(t, time.Second, func() bool {
		return e.Status(testTenant, models.DataTypeClients).State == StateSynced
	})
	lastSync := e.Status(testTenant, models.DataTypeClients).LastSync

	conn.SetOnline(false)

	waitFor(t, time.Second, func() bool {
		return e.Status(testTenant, models.DataTypeClients).State == StateOffline
	})
	require.True(t, e.Status(testTenant, models.DataTypeClients).LastSync.Equal(lastSync))
}

func TestSchedulerStop(t *testing.T) {
	mem := remote.NewMemory()
	e := New(mem, store.NewNamespace(store.NewMemoryKV()), events.NewBus(), "device-a")

	conn := remote.NewManualConnectivity(true)
	s := NewScheduler(e, conn, testTenant, WithPollInterval(10*time.Millisecond))
	s.Start(context.Background())

	time.Sleep(30 * time.Millisecond)

	done := make(chan struct{})
	go func() {
		s.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop did not return")
	}
}
