package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/justestif/go-music-muse/internal/logging"
)

func newMigrateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the listening history and event tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			database, err := a.openDB(cmd.Context())
			if err != nil {
				return err
			}
			defer database.Close()

			if err := database.Migrate(cmd.Context()); err != nil {
				return fmt.Errorf("migrating: %w", err)
			}
			log := logging.Component("migrate")
			log.Info().Msg("schema applied")
			return nil
		},
	}
}
