package main

import (
	"context"

	"github.com/alecthomas/kong"
	"github.com/rs/zerolog/log"

	"github.com/bookedly/replica/cmd/replica/internal/commands"
	"github.com/bookedly/replica/internal/logger"
)

var (
	version = "dev"
	cli     struct {
		Run     commands.RunCmd    `cmd:"" help:"Run the replica with background sync"`
		Sync    commands.SyncCmd   `cmd:"" help:"Run one manual sync pass"`
		Status  commands.StatusCmd `cmd:"" help:"Show sync status per data type"`
		Tenant  commands.TenantCmd `cmd:"" help:"Manage tenants"`
		Config  string             `help:"Path to config file." default:"replica.yaml"`
		Debug   bool               `help:"Enable debug mode."`
		Version kong.VersionFlag
	}
)

func main() {
	ctx := context.Background()
	cmd := kong.Parse(&cli,
		kong.Vars{
			"version": version,
		},
		kong.BindTo(ctx, (*context.Context)(nil)))

	log.Logger = logger.Setup(cli.Debug)

	err := cmd.Run(&commands.Globals{Config: cli.Config, Debug: cli.Debug, Version: version})
	cmd.FatalIfErrorf(err)
}
