package app

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/lobkit/identity/internal/db"
)

func init() { //nolint: gochecknoinits
	rootCmd.AddCommand(migrateCmd)
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the security schema",
	PreRunE: func(_ *cobra.Command, _ []string) error {
		return loadConfig()
	},
	RunE: func(_ *cobra.Command, _ []string) error {
		gdb, err := db.Open(&cfg)
		if err != nil {
			return err
		}

		if sqlDB, dbErr := gdb.DB(); dbErr == nil {
			defer sqlDB.Close()
		}

		if err = db.Migrate(gdb); err != nil {
			return err
		}

		log.Info().Str("engine", cfg.DB.GormEngine).Msg("security schema migrated")

		return nil
	},
}
