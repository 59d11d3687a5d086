package commands

import (
	"context"
	"fmt"

	"github.com/bookedly/replica/internal/models"
	"github.com/bookedly/replica/internal/session"
)

type StatusCmd struct{}

func (s *StatusCmd) Run(ctx context.Context, globals *Globals) error {
	cfg, err := loadConfig(globals)
	if err != nil {
		return err
	}

	sess, err := session.Open(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to open session: %w", err)
	}
	defer sess.Close()

	fmt.Printf("Tenant: %s (%s)\n", sess.Tenant.Slug, sess.Tenant.ID)
	fmt.Printf("Device: %s\n\n", sess.DeviceID)
	printStatuses(sess)
	return nil
}

func printStatuses(sess *session.Session) {
	fmt.Printf("%-12s %-10s %-25s\n", "Type", "State", "Last Sync")

	statuses := sess.Engine.Statuses(sess.Tenant.ID)
	for _, dt := range models.AllDataTypes() {
		st, ok := statuses[dt]
		if !ok {
			continue
		}

		lastSync := "never"
		if !st.LastSync.IsZero() {
			lastSync = st.LastSync.Format("2006-01-02 15:04:05")
		}

		fmt.Printf("%-12s %-10s %-25s\n", dt.String(), stateToString(st.State), lastSync)
	}
}
