package remote

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakePinger struct {
	mu  sync.Mutex
	err error
}

func (f *fakePinger) Ping(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.err
}

func (f *fakePinger) setErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.err = err
}

func TestManualConnectivity(t *testing.T) {
	conn := NewManualConnectivity(true)
	require.True(t, conn.Online())

	conn.SetOnline(true) // no-op
	select {
	case <-conn.Changes():
		t.Fatal("no transition expected")
	default:
	}

	conn.SetOnline(false)
	require.False(t, conn.Online())
	require.False(t, <-conn.Changes())
}

func TestProberTransitions(t *testing.T) {
	pinger := &fakePinger{}
	prober := NewProber(pinger, 20*time.Millisecond)

	prober.Start(context.Background())
	defer prober.Stop()

	// First probe succeeds: offline -> online
	select {
	case online := <-prober.Changes():
		require.True(t, online)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for online transition")
	}

	pinger.setErr(errors.New("down"))

	select {
	case online := <-prober.Changes():
		require.False(t, online)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for offline transition")
	}

	require.False(t, prober.Online())
}

func TestProberStopWithoutStart(t *testing.T) {
	prober := NewProber(&fakePinger{}, 20*time.Millisecond)

	done := make(chan struct{})
	go func() {
		prober.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop blocked for a prober that was never started")
	}
}

func TestProberStopTwice(t *testing.T) {
	prober := NewProber(&fakePinger{}, 20*time.Millisecond)
	prober.Start(context.Background())

	prober.Stop()
	prober.Stop() // no-op
}
