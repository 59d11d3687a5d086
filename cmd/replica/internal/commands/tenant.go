package commands

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/bookedly/replica/internal/tenant"
)

type TenantCmd struct {
	List       TenantListCmd       `cmd:"" help:"List tenants"`
	Create     TenantCreateCmd     `cmd:"" help:"Create a tenant"`
	Deactivate TenantDeactivateCmd `cmd:"" help:"Deactivate a tenant"`
}

type TenantListCmd struct{}

func (t *TenantListCmd) Run(ctx context.Context, globals *Globals) error {
	cfg, err := loadConfig(globals)
	if err != nil {
		return err
	}

	kv, err := openKV(cfg)
	if err != nil {
		return err
	}
	defer kv.Close()

	tenants, err := tenant.NewManager(kv).List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list tenants: %w", err)
	}

	if len(tenants) == 0 {
		fmt.Println("No tenants found.")
		return nil
	}

	fmt.Printf("%-36s %-20s %-25s %-8s\n", "ID", "Slug", "Name", "Active")
	for _, t := range tenants {
		fmt.Printf("%-36s %-20s %-25s %-8t\n", t.ID, t.Slug, t.Name, t.Active)
	}

	return nil
}

type TenantCreateCmd struct {
	Slug  string `arg:"" help:"URL-safe tenant slug"`
	Name  string `arg:"" help:"Display name"`
	Owner string `help:"Owner id, generated when omitted" default:""`
}

func (t *TenantCreateCmd) Run(ctx context.Context, globals *Globals) error {
	cfg, err := loadConfig(globals)
	if err != nil {
		return err
	}

	kv, err := openKV(cfg)
	if err != nil {
		return err
	}
	defer kv.Close()

	owner := t.Owner
	if owner == "" {
		owner = uuid.NewString()
	}

	created, err := tenant.NewManager(kv).Create(ctx, t.Slug, t.Name, owner)
	if err != nil {
		return fmt.Errorf("failed to create tenant: %w", err)
	}

	fmt.Printf("Created tenant %s (%s)\n", created.Slug, created.ID)
	return nil
}

type TenantDeactivateCmd struct {
	ID string `arg:"" help:"Tenant id"`
}

func (t *TenantDeactivateCmd) Run(ctx context.Context, globals *Globals) error {
	cfg, err := loadConfig(globals)
	if err != nil {
		return err
	}

	kv, err := openKV(cfg)
	if err != nil {
		return err
	}
	defer kv.Close()

	if err := tenant.NewManager(kv).Deactivate(ctx, t.ID); err != nil {
		return fmt.Errorf("failed to deactivate tenant: %w", err)
	}

	fmt.Printf("Deactivated tenant %s\n", t.ID)
	return nil
}
