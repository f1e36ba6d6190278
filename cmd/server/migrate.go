package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mmynk/splitactivity/internal/config"
	"github.com/mmynk/splitactivity/internal/storage/sqlite"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or upgrade the database schema",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load(configDir)
		if err != nil {
			return err
		}
		// Opening the store applies every pending migration.
		store, err := sqlite.New(cfg.Database.Path)
		if err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
		defer store.Close()
		fmt.Fprintf(cmd.OutOrStdout(), "Database ready at %s\n", cfg.Database.Path)
		return nil
	},
}
