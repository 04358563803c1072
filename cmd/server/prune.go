package main

import (
	"github.com/spf13/cobra"
)

// NewPruneCmd creates the prune-sessions subcommand.
func NewPruneCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "prune-sessions",
		Short: "Delete expired sessions once and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := bootstrap(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = a.Close(cmd.Context()) }()

			n, err := a.Pruner.PruneOnce(cmd.Context())
			if err != nil {
				return err
			}
			cmd.Printf("removed %d expired sessions\n", n)
			return nil
		},
	}
}
