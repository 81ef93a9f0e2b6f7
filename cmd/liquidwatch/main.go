// Command liquidwatch runs the liquidation-watch service: streaming
// forced-liquidation ingest, cross-venue open-interest aggregation,
// cascade detection, and Telegram alerting/reporting.
package main

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

const appName = "liquidwatch"

func main() {
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})

	rootCmd := &cobra.Command{
		Use:   appName,
		Short: "Cross-venue forced-liquidation watcher and Telegram alerter",
		Long: `liquidwatch streams forced-liquidation events from perpetual futures
venues, detects liquidation cascades, tracks cross-venue open interest, and
fans alerts and periodic digests out to Telegram subscribers.`,
	}

	rootCmd.AddCommand(newServeCmd(), newReportCmd(), newHealthCmd())

	if err := rootCmd.Execute(); err != nil {
		log.Fatal().Err(err).Msg("liquidwatch exited with error")
	}
}
