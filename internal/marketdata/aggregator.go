package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"

	"github.com/liquidwatch/engine/internal/cache"
	"github.com/liquidwatch/engine/internal/domain"
	"github.com/liquidwatch/engine/internal/infrastructure/httpclient"
)

const (
	aggregatedTTL = 60 * time.Second
	fundingTTL    = 300 * time.Second
	oiSnapshotTTL = 24 * time.Hour
)

type venueFetch func(ctx context.Context, pool *httpclient.ClientPool, store cache.Store, symbol string) (domain.ExchangeStat, error)

// Aggregator is the C3 cross-venue market-data component. It owns one
// circuit breaker per venue so a venue failing repeatedly stops paying the
// full timeout on every call, and shares a cache.Store with the rest of the
// system for the 60s/300s/24h TTL tiers.
type Aggregator struct {
	pool             *httpclient.ClientPool
	store            cache.Store
	breakers         map[string]*gobreaker.CircuitBreaker
	oiSurgeThreshold float64 // percent
}

func New(store cache.Store, oiSurgeThreshold float64) *Aggregator {
	a := &Aggregator{
		pool:             newHTTPPool(),
		store:            store,
		breakers:         make(map[string]*gobreaker.CircuitBreaker),
		oiSurgeThreshold: oiSurgeThreshold,
	}
	for _, name := range []string{"binance", "bybit", "mexc"} {
		a.breakers[name] = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        name,
			MaxRequests: 1,
			Interval:    60 * time.Second,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 3
			},
		})
	}
	return a
}

func (a *Aggregator) fetchVenue(ctx context.Context, venue string, fetch venueFetch, symbol string) (domain.ExchangeStat, error) {
	breaker := a.breakers[venue]
	result, err := breaker.Execute(func() (interface{}, error) {
		return fetch(ctx, a.pool, a.store, symbol)
	})
	if err != nil {
		return domain.ExchangeStat{}, err
	}
	return result.(domain.ExchangeStat), nil
}

// Aggregate computes (or returns the cached) cross-venue view for symbol.
// The bool return is false when zero venues succeeded.
func (a *Aggregator) Aggregate(ctx context.Context, symbol string) (domain.AggregatedStats, bool, error) {
	key := "agg:" + symbol
	raw, err := a.store.GetOrFetch(ctx, key, aggregatedTTL, func(ctx context.Context) ([]byte, error) {
		stats, ok := a.fetchAll(ctx, symbol)
		if !ok {
			// signal "no venues succeeded" without caching a false absence:
			// an empty producer result is never cached, per cache.GetOrFetch.
			return nil, nil
		}
		return json.Marshal(stats)
	})
	if err != nil {
		return domain.AggregatedStats{}, false, err
	}
	if len(raw) == 0 {
		return domain.AggregatedStats{}, false, nil
	}

	var stats domain.AggregatedStats
	if err := json.Unmarshal(raw, &stats); err != nil {
		return domain.AggregatedStats{}, false, fmt.Errorf("%w: decode cached aggregate: %v", domain.ErrMalformedUpstream, err)
	}
	return stats, true, nil
}

// fetchAll runs the three venue calls concurrently and waits for all of them
// to settle (success or failure) before aggregating — a settled-all
// primitive so one failing venue never aborts the others.
func (a *Aggregator) fetchAll(ctx context.Context, symbol string) (domain.AggregatedStats, bool) {
	type namedFetch struct {
		venue string
		fetch venueFetch
	}
	fetches := []namedFetch{
		{"binance", func(ctx context.Context, pool *httpclient.ClientPool, _ cache.Store, symbol string) (domain.ExchangeStat, error) {
			return fetchBinance(ctx, pool, symbol)
		}},
		{"bybit", func(ctx context.Context, pool *httpclient.ClientPool, _ cache.Store, symbol string) (domain.ExchangeStat, error) {
			return fetchBybit(ctx, pool, symbol)
		}},
		{"mexc", fetchMEXC},
	}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		results []domain.ExchangeStat
	)
	for _, nf := range fetches {
		wg.Add(1)
		go func(nf namedFetch) {
			defer wg.Done()
			stat, err := a.fetchVenue(ctx, nf.venue, nf.fetch, symbol)
			if err != nil {
				log.Debug().Err(err).Str("venue", nf.venue).Str("symbol", symbol).Msg("venue fetch failed, omitting")
				return
			}
			mu.Lock()
			results = append(results, stat)
			mu.Unlock()
		}(nf)
	}
	wg.Wait()

	if len(results) == 0 {
		return domain.AggregatedStats{}, false
	}

	var totalOI, totalPrice float64
	for _, r := range results {
		totalOI += r.OpenInterest
		totalPrice += r.Price
	}
	sort.Slice(results, func(i, j int) bool { return results[i].OpenInterest > results[j].OpenInterest })

	return domain.AggregatedStats{
		Symbol:            symbol,
		TotalOpenInterest: totalOI,
		AvgPrice:          totalPrice / float64(len(results)),
		Exchanges:         results,
	}, true
}

// ScanOISurge compares each symbol's current aggregate OI to its last
// snapshot and emits a surge when the move is at least a.oiSurgeThreshold
// percent. The snapshot is refreshed unconditionally.
func (a *Aggregator) ScanOISurge(ctx context.Context, symbols []string) []domain.OISurge {
	var surges []domain.OISurge

	for _, symbol := range symbols {
		stats, ok, err := a.Aggregate(ctx, symbol)
		if err != nil || !ok {
			continue
		}

		snapKey := "oi_last:" + symbol
		prevRaw, found, err := a.store.Get(ctx, snapKey)
		hadPrior := err == nil && found

		var previous float64
		if hadPrior {
			_ = json.Unmarshal(prevRaw, &previous)
		}

		if err := a.store.Set(ctx, snapKey, mustMarshal(stats.TotalOpenInterest), oiSnapshotTTL); err != nil {
			log.Warn().Err(err).Str("symbol", symbol).Msg("failed to write OI snapshot")
		}

		if !hadPrior || previous == 0 {
			continue
		}

		pctChange := (stats.TotalOpenInterest - previous) / previous * 100
		if math.Abs(pctChange) < a.oiSurgeThreshold {
			continue
		}

		surges = append(surges, domain.OISurge{
			Symbol:        symbol,
			PreviousOI:    previous,
			CurrentOI:     stats.TotalOpenInterest,
			PercentChange: pctChange,
			Price:         stats.AvgPrice,
		})
	}
	return surges
}

func mustMarshal(v interface{}) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return b
}

// LongShortRatio proxies Binance's topLongShortAccountRatio through the
// same breaker used for OI fetches.
func (a *Aggregator) LongShortRatio(ctx context.Context, symbol string) (domain.LongShortRatio, error) {
	result, err := a.breakers["binance"].Execute(func() (interface{}, error) {
		return fetchBinanceLongShortRatio(ctx, a.pool, symbol)
	})
	if err != nil {
		return domain.LongShortRatio{}, err
	}
	return result.(domain.LongShortRatio), nil
}

// TopFunding ranks the funding rate across every venue for every tracked
// symbol, cached globally for fundingTTL.
func (a *Aggregator) TopFunding(ctx context.Context, symbols []string) ([]domain.FundingRanking, error) {
	raw, err := a.store.GetOrFetch(ctx, "top_funding", fundingTTL, func(ctx context.Context) ([]byte, error) {
		var rankings []domain.FundingRanking
		for _, symbol := range symbols {
			stats, ok := a.fetchAll(ctx, symbol)
			if !ok {
				continue
			}
			for _, ex := range stats.Exchanges {
				rankings = append(rankings, domain.FundingRanking{
					Symbol:      symbol,
					Venue:       ex.Name,
					FundingRate: ex.FundingRate,
				})
			}
		}
		sort.Slice(rankings, func(i, j int) bool {
			return math.Abs(rankings[i].FundingRate) > math.Abs(rankings[j].FundingRate)
		})
		return json.Marshal(rankings)
	})
	if err != nil {
		return nil, err
	}

	var rankings []domain.FundingRanking
	if err := json.Unmarshal(raw, &rankings); err != nil {
		return nil, fmt.Errorf("%w: decode cached funding ranking: %v", domain.ErrMalformedUpstream, err)
	}
	return rankings, nil
}
