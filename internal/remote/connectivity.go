package remote

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// ManualConnectivity is a connectivity signal driven by explicit calls.
// Tests and embedded hosts use it to inject online/offline transitions.
type ManualConnectivity struct {
	mu      sync.Mutex
	online  bool
	changes chan bool
}

// NewManualConnectivity creates a signal in the given initial state.
func NewManualConnectivity(online bool) *ManualConnectivity {
	return &ManualConnectivity{
		online:  online,
		changes: make(chan bool, 8),
	}
}

func (m *ManualConnectivity) Online() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.online
}

func (m *ManualConnectivity) Changes() <-chan bool {
	return m.changes
}

// SetOnline records a state change and notifies the listener. Setting the
// same state twice is a no-op.
func (m *ManualConnectivity) SetOnline(online bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.online == online {
		return
	}

	m.online = online
	m.changes <- online
}

// Prober derives connectivity by pinging the remote store on an interval.
// It is the stand-in for a host environment's online/offline events.
type Prober struct {
	pinger   Pinger
	interval time.Duration

	mu      sync.Mutex
	online  bool
	started bool
	stopped bool
	changes chan bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewProber creates a prober. The state starts offline until the first
// successful ping.
func NewProber(pinger Pinger, interval time.Duration) *Prober {
	return &Prober{
		pinger:   pinger,
		interval: interval,
		changes:  make(chan bool, 8),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

func (p *Prober) Online() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.online
}

func (p *Prober) Changes() <-chan bool {
	return p.changes
}

// Start launches the probe loop. An immediate probe runs before the first
// tick so startup does not wait a full interval.
func (p *Prober) Start(ctx context.Context) {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return
	}
	p.started = true
	p.mu.Unlock()

	go p.run(ctx)
}

func (p *Prober) run(ctx context.Context) {
	defer close(p.doneCh)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.probe(ctx)

	for {
		select {
		case <-ticker.C:
			p.probe(ctx)
		case <-p.stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (p *Prober) probe(ctx context.Context) {
	err := p.pinger.Ping(ctx)
	online := err == nil

	p.mu.Lock()
	changed := online != p.online
	p.online = online
	p.mu.Unlock()

	if !changed {
		return
	}

	log.Info().Bool("online", online).Msg("connectivity changed")

	select {
	case p.changes <- online:
	default:
		// Listener is behind; it will observe the state on its next read
	}
}

// Stop terminates the probe loop and waits for it to exit. Stopping a
// prober that was never started, or stopping twice, is a no-op.
func (p *Prober) Stop() {
	p.mu.Lock()
	if !p.started || p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	p.mu.Unlock()

	close(p.stopCh)
	<-p.doneCh
}
