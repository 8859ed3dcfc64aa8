package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/twg-quant/riskbatch/internal/config"
	"github.com/twg-quant/riskbatch/internal/httpapi"
	"github.com/twg-quant/riskbatch/internal/logging"
	"github.com/twg-quant/riskbatch/internal/orchestrator"
	"github.com/twg-quant/riskbatch/internal/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API (market data, orchestrator, results)",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		log := logging.New("httpapi", cfg.LogLevel)

		s, err := store.Open(cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer s.Close()

		o := orchestrator.New(s, log, cfg.PositionsSnapshotPath)
		handler := httpapi.New(s, o, log)

		srv := &http.Server{Addr: cfg.HTTPAddr, Handler: handler}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		errCh := make(chan error, 1)
		go func() {
			log.Info().Str("addr", cfg.HTTPAddr).Msg("http api listening")
			errCh <- srv.ListenAndServe()
		}()

		select {
		case <-ctx.Done():
			log.Info().Msg("shutting down http api")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.LeaseDuration())
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		case err := <-errCh:
			if err != nil && err != http.ErrServerClosed {
				return err
			}
			return nil
		}
	},
}
