// Package engine wires every long-lived component into one runnable
// process: it owns the concrete storage/cache backends, builds the
// scheduler's four job bodies as closures over those components, and drives
// the graceful-shutdown sequence.
package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/liquidwatch/engine/internal/alerts"
	"github.com/liquidwatch/engine/internal/cache"
	"github.com/liquidwatch/engine/internal/cache/memcache"
	"github.com/liquidwatch/engine/internal/cache/rediscache"
	"github.com/liquidwatch/engine/internal/cascade"
	"github.com/liquidwatch/engine/internal/config"
	"github.com/liquidwatch/engine/internal/domain"
	"github.com/liquidwatch/engine/internal/ingest"
	"github.com/liquidwatch/engine/internal/marketdata"
	"github.com/liquidwatch/engine/internal/messaging"
	"github.com/liquidwatch/engine/internal/observability"
	"github.com/liquidwatch/engine/internal/reporting"
	"github.com/liquidwatch/engine/internal/scheduler"
	"github.com/liquidwatch/engine/internal/storage"
)

// gracePeriod bounds how long Stop waits for every component to unwind.
const gracePeriod = 5 * time.Second

// Engine owns every long-lived component for one process and coordinates
// their startup and shutdown.
type Engine struct {
	cfg *config.Config

	store   *storage.MongoStore
	cache   cache.Store
	agg     *marketdata.Aggregator
	metrics *observability.Metrics
	sender  *messaging.TelegramSender
	router  *alerts.Router
	casc    *cascade.Detector
	ingestM *ingest.Manager
	sched   *scheduler.Scheduler
	obs     *observability.Server
}

// New connects every external dependency and wires the components together.
// It does not start any background loop; call Start for that.
func New(ctx context.Context, cfg *config.Config) (*Engine, error) {
	store, err := storage.Connect(ctx, cfg.MongoURI, cfg.MongoDBName)
	if err != nil {
		return nil, err
	}

	var cacheStore cache.Store
	var cachePing observability.Checker
	if cfg.RedisHost != "" {
		redisStore := rediscache.New(cfg.RedisHost+":"+cfg.RedisPort, "", 0)
		cacheStore = redisStore
		cachePing = redisStore.Ping
		log.Info().Str("host", cfg.RedisHost).Msg("using redis cache backend")
	} else {
		cacheStore = memcache.New(time.Minute)
		log.Info().Msg("REDIS_HOST unset, using in-process cache backend")
	}

	agg := marketdata.New(cacheStore, cfg.OISurgeThreshold)
	metrics := observability.NewMetrics()
	sender := messaging.NewTelegramSender(cfg.TelegramToken)

	lookup := alerts.OILookup(func(ctx context.Context, symbol string) (float64, bool) {
		stats, ok, err := agg.Aggregate(ctx, symbol)
		if err != nil || !ok {
			return 0, false
		}
		return stats.TotalOpenInterest, true
	})
	router := alerts.NewRouter(store, sender, metrics, lookup, cfg.TelegramChannelID, cfg.ChannelMinLiquidation)

	e := &Engine{cfg: cfg, store: store, cache: cacheStore, agg: agg, metrics: metrics, sender: sender, router: router}

	e.casc = cascade.New(cfg.CascadeWindow, cfg.CascadeMinCount, cfg.CascadeMinVolume, func(alert domain.CascadeAlert) {
		metrics.CascadeEmitted()
		router.RouteCascade(context.Background(), alert)
	})

	e.ingestM = ingest.NewManager(cfg.FuturesWSURL, cfg.WSShardSize, cfg.WSPing, cfg.WSReconnectBackoff, ingest.Handlers{
		Persist: e.persist,
		Cascade: e.casc.Ingest,
		FanOut:  router.RouteLiquidation,
	}, metrics)

	e.sched = scheduler.New(scheduler.Hooks{
		SendHourlyReports:     e.sendHourlyReports,
		DeleteOldLiquidations: e.deleteOldLiquidations,
		ScanOISurges:          e.scanOISurges,
		RefreshConnections:    e.refreshConnections,
	}, cfg.RetentionTick, cfg.OIScanInterval, cfg.WSRefresh)

	checks := map[string]observability.Checker{
		"mongo":    store.Ping,
		"telegram": sender.Ping,
	}
	if cachePing != nil {
		checks["redis"] = cachePing
	}
	e.obs = observability.NewServer(cfg.HTTPAddr, checks)

	return e, nil
}

// persist saves an event, recording a persistence-failure metric on error.
// A storage failure never halts the ingest path.
func (e *Engine) persist(ctx context.Context, l domain.Liquidation) {
	if err := e.store.SaveLiquidation(ctx, l); err != nil {
		e.metrics.PersistenceFailure()
		log.Warn().Err(err).Str("symbol", l.Symbol).Msg("failed to persist liquidation")
	}
}

// fundingLookup adapts the aggregator's cross-venue view into the
// reporting package's single-rate FundingLookup, averaging across venues
// that reported a rate.
func (e *Engine) fundingLookup(ctx context.Context, symbol string) (float64, bool) {
	stats, ok, err := e.agg.Aggregate(ctx, symbol)
	if err != nil || !ok || len(stats.Exchanges) == 0 {
		return 0, false
	}
	var sum float64
	for _, ex := range stats.Exchanges {
		sum += ex.FundingRate
	}
	return sum / float64(len(stats.Exchanges)), true
}

// sendHourlyReports implements the scheduler's hourly_reports job: every
// active subscriber whose cadence divides the current UTC hour gets a
// rendered digest.
func (e *Engine) sendHourlyReports(ctx context.Context, utcHour int) error {
	subs, err := e.store.ActiveSubscribers(ctx)
	if err != nil {
		return fmt.Errorf("load active subscribers: %w", err)
	}

	now := time.Now().UTC()
	for _, sub := range subs {
		if sub.ReportIntervalHours <= 0 || utcHour%sub.ReportIntervalHours != 0 {
			continue
		}
		message, ok, err := reporting.Generate(ctx, e.store, e.fundingLookup, sub, sub.ReportIntervalHours, true, now)
		if err != nil {
			log.Warn().Err(err).Int64("chatId", sub.ChatID).Msg("failed to generate report")
			continue
		}
		if !ok {
			continue
		}
		if err := e.sender.Send(ctx, messaging.ChatIDString(sub.ChatID), message); err != nil {
			log.Warn().Err(err).Int64("chatId", sub.ChatID).Msg("failed to send scheduled report")
			continue
		}
		e.metrics.ReportGenerated()
	}
	return nil
}

// deleteOldLiquidations implements the retention job.
func (e *Engine) deleteOldLiquidations(ctx context.Context) error {
	cutoff := time.Now().Add(-e.cfg.Retention)
	deleted, err := e.store.DeleteLiquidationsOlderThan(ctx, cutoff)
	if err != nil {
		return err
	}
	log.Info().Int64("deleted", deleted).Time("cutoff", cutoff).Msg("retention sweep complete")
	return nil
}

// scanOISurges implements the 15-minute OI scan job, routing every surge
// found across the tracked universe.
func (e *Engine) scanOISurges(ctx context.Context) error {
	surges := e.agg.ScanOISurge(ctx, e.cfg.SymbolsToTrack)
	for _, surge := range surges {
		e.metrics.OISurgeEmitted()
		e.router.RouteOISurge(ctx, surge)
	}
	return nil
}

// refreshConnections implements the 24h connection-refresh job. The
// scheduler is the sole owner of this cadence; ingest.Manager only knows
// how to force one refresh when asked.
func (e *Engine) refreshConnections(ctx context.Context) error {
	e.ingestM.Refresh()
	return nil
}

// Start launches ingest, the scheduler, and the observability server. It
// returns once every component has been asked to start; it does not block.
func (e *Engine) Start(ctx context.Context) {
	e.casc.Start()
	e.ingestM.Start(ctx, e.cfg.SymbolsToTrack)
	e.sched.Start(ctx)
	e.obs.Start()

	go func() {
		for result := range e.sched.Results() {
			if !result.Success {
				log.Error().Str("job", result.JobName).Str("runId", result.RunID).Str("error", result.Error).Msg("scheduled job failed")
			}
		}
	}()

	log.Info().Int("symbols", len(e.cfg.SymbolsToTrack)).Msg("engine started")
}

// Stop stops every component in turn and closes the storage connection
// last. gracePeriod bounds the observability server's shutdown and the Mongo
// disconnect; the scheduler's Stop does not wait for a job already in flight.
func (e *Engine) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), gracePeriod)
	defer cancel()

	e.ingestM.Stop()
	e.sched.Stop()
	e.casc.Stop()
	if err := e.obs.Stop(ctx); err != nil {
		log.Warn().Err(err).Msg("observability server did not shut down cleanly")
	}
	e.closeCache()
	if err := e.store.Close(ctx); err != nil {
		log.Warn().Err(err).Msg("mongo connection did not close cleanly")
	}
	log.Info().Msg("engine stopped")
}

// closer is satisfied by both cache backends; cache.Store itself carries no
// Close method since GetOrFetch's producer-based contract never needs one
// at the interface level.
type closer interface {
	Close() error
}

func (e *Engine) closeCache() {
	if c, ok := e.cache.(closer); ok {
		if err := c.Close(); err != nil {
			log.Warn().Err(err).Msg("cache backend did not close cleanly")
		}
		return
	}
	if c, ok := e.cache.(interface{ Close() }); ok {
		c.Close()
	}
}
