package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/iliyamo/library-catalog/internal/database"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create any missing tables and indexes",
	Long: `Apply the schema for the configured DB_DRIVER. Every statement is
idempotent, so running it against an up to date database is a no-op.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log := setup()

		db, err := database.Open(cfg)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer db.Close()

		ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
		defer cancel()
		if err := database.Migrate(ctx, db, cfg.DBDriver); err != nil {
			return err
		}
		log.Info("schema up to date", "driver", cfg.DBDriver)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
