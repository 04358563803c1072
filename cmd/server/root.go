package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/iliyamo/task-manager/internal/app"
	"github.com/iliyamo/task-manager/internal/config"
	"github.com/iliyamo/task-manager/internal/logging"
)

// NewRootCmd creates the root command. Without a subcommand it serves.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "taskmanager",
		Short: "Task manager API",
		Long: `Task manager REST API: users sign up and log in, receive an access
token and a refresh token, and manage their lists and tasks.`,
		SilenceUsage: true,
		RunE:         runServe,
	}

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewPruneCmd())
	cmd.AddCommand(NewMigrateCmd())

	return cmd
}

// bootstrap loads configuration and builds the application.
func bootstrap(ctx context.Context) (*app.App, error) {
	cfg := config.Load()
	log := logging.New(cfg.LogLevel, cfg.LogFormat, os.Stderr)
	return app.New(ctx, cfg, log)
}
