package main

import (
	"github.com/spf13/cobra"

	"github.com/iliyamo/task-manager/internal/config"
	"github.com/iliyamo/task-manager/internal/database"
)

// NewMigrateCmd creates the migrate subcommand.
func NewMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the MySQL schema migrations",
		Long: `Apply the embedded goose migrations to the MySQL database named by
DB_USER, DB_PASS, DB_HOST, DB_PORT and DB_NAME. The mongo and memory stores
need no migrations.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.Load()
			db, err := database.OpenMySQL(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := database.MigrateMySQL(cmd.Context(), db); err != nil {
				return err
			}
			cmd.Println("migrations applied")
			return nil
		},
	}
}
