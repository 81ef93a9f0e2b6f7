package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/liquidwatch/engine/internal/config"
	"github.com/liquidwatch/engine/internal/engine"
)

// newServeCmd is the long-lived daemon: it starts ingest, the scheduler,
// and the /healthz+/metrics endpoint, and runs until SIGINT/SIGTERM.
func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the ingest, cascade-detection, and alerting pipeline",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			log.Info().Str("mongoUri", config.Redact(cfg.MongoURI)).Int("symbols", len(cfg.SymbolsToTrack)).Msg("starting liquidwatch")

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			e, err := engine.New(ctx, cfg)
			if err != nil {
				return err
			}

			e.Start(ctx)
			<-ctx.Done()

			log.Info().Msg("shutdown signal received, draining")
			e.Stop()
			return nil
		},
	}
}
