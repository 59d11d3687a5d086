package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/bookedly/replica/internal/events"
	"github.com/bookedly/replica/internal/session"
)

type RunCmd struct{}

func (r *RunCmd) Run(ctx context.Context, globals *Globals) error {
	cfg, err := loadConfig(globals)
	if err != nil {
		return err
	}

	s, err := session.Open(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to open session: %w", err)
	}
	defer s.Close()

	sub := s.Bus.Subscribe(events.SyncSucceeded, func(env events.Envelope) {
		if e, ok := env.Payload.(events.EntityEvent); ok {
			log.Info().Str("data_type", e.EntityType.String()).Msg("synced")
		}
	})
	defer sub.Unsubscribe()

	s.Start(ctx)
	log.Info().Str("tenant", s.Tenant.Slug).Str("version", globals.Version).Msg("replica running")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info().Str("signal", sig.String()).Msg("shutting down")
	case <-ctx.Done():
	}

	return nil
}
