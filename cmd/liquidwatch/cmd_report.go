package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/liquidwatch/engine/internal/cache/memcache"
	"github.com/liquidwatch/engine/internal/config"
	"github.com/liquidwatch/engine/internal/marketdata"
	"github.com/liquidwatch/engine/internal/reporting"
	"github.com/liquidwatch/engine/internal/storage"
)

// newReportCmd renders one subscriber's digest on demand, using the C7
// unscheduled window (partial current hour scaled against the full prior
// window), for operators debugging a subscriber's report without waiting
// for the scheduler's next tick.
func newReportCmd() *cobra.Command {
	var chatID int64

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Render one subscriber's liquidation digest on demand",
		RunE: func(cmd *cobra.Command, args []string) error {
			if chatID == 0 {
				return fmt.Errorf("--chat-id is required")
			}
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			store, err := storage.Connect(ctx, cfg.MongoURI, cfg.MongoDBName)
			if err != nil {
				return err
			}
			defer store.Close(ctx)

			sub, err := store.FindOrCreateSubscriber(ctx, chatID, "", "")
			if err != nil {
				return err
			}

			agg := marketdata.New(memcache.New(time.Minute), cfg.OISurgeThreshold)
			fundingLookup := func(ctx context.Context, symbol string) (float64, bool) {
				stats, ok, err := agg.Aggregate(ctx, symbol)
				if err != nil || !ok || len(stats.Exchanges) == 0 {
					return 0, false
				}
				var sum float64
				for _, ex := range stats.Exchanges {
					sum += ex.FundingRate
				}
				return sum / float64(len(stats.Exchanges)), true
			}

			message, ok, err := reporting.Generate(ctx, store, fundingLookup, sub, sub.ReportIntervalHours, false, time.Now().UTC())
			if err != nil {
				return err
			}
			if !ok {
				message = reporting.NoLiquidationsMessage
			}
			fmt.Println(message)
			return nil
		},
	}

	cmd.Flags().Int64Var(&chatID, "chat-id", 0, "Subscriber chat ID to render a digest for")
	return cmd
}
