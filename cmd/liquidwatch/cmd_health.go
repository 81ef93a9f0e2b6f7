package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/liquidwatch/engine/internal/config"
	"github.com/liquidwatch/engine/internal/messaging"
	"github.com/liquidwatch/engine/internal/storage"
)

// newHealthCmd runs a one-shot check of every external dependency and
// exits non-zero if any of them fail, for use in deploy scripts and
// container health probes that don't want to scrape /healthz.
func newHealthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check connectivity to Mongo and Telegram and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()

			failed := false

			store, err := storage.Connect(ctx, cfg.MongoURI, cfg.MongoDBName)
			if err != nil {
				fmt.Println("mongo: FAIL", err)
				failed = true
			} else {
				defer store.Close(ctx)
				fmt.Println("mongo: ok")
			}

			sender := messaging.NewTelegramSender(cfg.TelegramToken)
			if err := sender.Ping(ctx); err != nil {
				fmt.Println("telegram: FAIL", err)
				failed = true
			} else {
				fmt.Println("telegram: ok")
			}

			if failed {
				os.Exit(1)
			}
			return nil
		},
	}
}
