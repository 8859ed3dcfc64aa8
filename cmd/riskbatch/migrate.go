package main

import (
	"github.com/spf13/cobra"

	"github.com/twg-quant/riskbatch/internal/config"
	"github.com/twg-quant/riskbatch/internal/logging"
	"github.com/twg-quant/riskbatch/internal/store"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Connect to the configured database and auto-migrate every table",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		log := logging.New("migrate", cfg.LogLevel)

		s, err := store.Open(cfg.DatabaseURL) // Open auto-migrates on connect
		if err != nil {
			return err
		}
		defer s.Close()

		log.Info().Msg("migration complete")
		return nil
	},
}
