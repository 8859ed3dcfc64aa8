package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/twg-quant/riskbatch/internal/config"
	"github.com/twg-quant/riskbatch/internal/logging"
	"github.com/twg-quant/riskbatch/internal/pricer"
	"github.com/twg-quant/riskbatch/internal/store"
	"github.com/twg-quant/riskbatch/internal/worker"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Run a worker: claim, price and commit tasks until stopped",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		log := logging.New("worker", cfg.LogLevel)

		s, err := store.Open(cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer s.Close()

		registry := pricer.Bootstrap()
		w := worker.New(s, registry, log, worker.Config{
			WorkerID:     cfg.WorkerID,
			LeaseSeconds: cfg.WorkerLeaseSeconds,
			PollInterval: cfg.PollInterval(),
			ClaimBatch:   1,
		})

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		log.Info().Str("worker_id", cfg.WorkerID).Msg("worker starting")
		return w.Run(ctx)
	},
}
