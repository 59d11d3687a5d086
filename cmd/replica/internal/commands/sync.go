package commands

import (
	"context"
	"fmt"

	"github.com/bookedly/replica/internal/session"
)

type SyncCmd struct{}

func (s *SyncCmd) Run(ctx context.Context, globals *Globals) error {
	cfg, err := loadConfig(globals)
	if err != nil {
		return err
	}

	sess, err := session.Open(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to open session: %w", err)
	}
	defer sess.Close()

	if err := sess.SyncNow(ctx); err != nil {
		return fmt.Errorf("sync failed: %w", err)
	}

	fmt.Printf("Synced tenant %s\n", sess.Tenant.Slug)
	printStatuses(sess)
	return nil
}
