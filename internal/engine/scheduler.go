package engine

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/bookedly/replica/internal/remote"
)

const defaultPollInterval = 30 * time.Second

// Scheduler drives the engine in the background: a poll ticker triggers
// full reconciliation cycles, and connectivity transitions flip the engine
// between offline and online, with one immediate cycle on reconnect.
type Scheduler struct {
	engine   *Engine
	conn     remote.Connectivity
	tenantID string
	interval time.Duration

	inProgress atomic.Bool
	stopCh     chan struct{}
	doneCh     chan struct{}
}

// SchedulerOption customizes the scheduler.
type SchedulerOption func(*Scheduler)

// WithPollInterval overrides the reconciliation interval.
func WithPollInterval(d time.Duration) SchedulerOption {
	return func(s *Scheduler) { s.interval = d }
}

// NewScheduler creates a scheduler for one tenant's replica.
func NewScheduler(e *Engine, conn remote.Connectivity, tenantID string, opts ...SchedulerOption) *Scheduler {
	s := &Scheduler{
		engine:   e,
		conn:     conn,
		tenantID: tenantID,
		interval: defaultPollInterval,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start launches the background loop. The loop owns the offline flag: it
// flips the engine offline on lost connectivity and runs one immediate
// cycle on reconnect.
func (s *Scheduler) Start(ctx context.Context) {
	if !s.conn.Online() {
		s.engine.SetOffline(s.tenantID)
	}

	go s.run(ctx)
}

// Stop shuts the loop down and waits for it to exit.
func (s *Scheduler) Stop() {
	close(s.stopCh)
	<-s.doneCh
}

func (s *Scheduler) run(ctx context.Context) {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	if s.conn.Online() {
		s.cycle(ctx)
	}

	for {
		select {
		case <-s.stopCh:
			return
		case <-ctx.Done():
			return
		case online := <-s.conn.Changes():
			if online {
				s.engine.SetOnline(s.tenantID)
				s.cycle(ctx)
			} else {
				s.engine.SetOffline(s.tenantID)
			}
		case <-ticker.C:
			if !s.conn.Online() {
				continue
			}
			s.cycle(ctx)
		}
	}
}

// cycle runs one full push+pull pass. A tick arriving while the previous
// cycle is still running is skipped rather than queued.
func (s *Scheduler) cycle(ctx context.Context) {
	if !s.inProgress.CompareAndSwap(false, true) {
		log.Debug().Str("tenant_id", s.tenantID).Msg("cycle still running, skipping tick")
		return
	}
	defer s.inProgress.Store(false)

	if err := s.engine.SyncNow(ctx, s.tenantID); err != nil {
		log.Warn().Err(err).Str("tenant_id", s.tenantID).Msg("background sync cycle failed")
	}
}
