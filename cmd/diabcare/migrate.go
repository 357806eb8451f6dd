package main

import (
	"fmt"

	"diabcare/internal/database"
	"diabcare/internal/logging"

	"github.com/spf13/cobra"
)

func (a *app) migrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			log := logging.ForService("database")
			db, err := database.InitDB(a.cfg, log)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			defer closeDB(db)
			log.Info("schema migrated", "driver", a.cfg.DatabaseDriver)
			return nil
		},
	}
}
