// Package marketdata is the C3 cross-venue aggregator: it queries Binance,
// Bybit, and MEXC perpetual-futures REST endpoints in parallel, normalises
// open interest to USD notional, and layers a TTL cache and an open-interest
// surge scan on top.
package marketdata

import (
	"time"

	"github.com/liquidwatch/engine/internal/infrastructure/httpclient"
)

const userAgent = "Mozilla/5.0 (compatible; liquidwatch/1.0; +https://github.com/liquidwatch)"

// newHTTPPool builds the shared client pool used by every venue fetcher.
func newHTTPPool() *httpclient.ClientPool {
	return httpclient.NewClientPool(httpclient.ClientConfig{
		MaxConcurrency: 16,
		RequestTimeout: 10 * time.Second,
		JitterRange:    [2]int{0, 0},
		MaxRetries:     0,
		BackoffBase:    200 * time.Millisecond,
		BackoffMax:     time.Second,
		UserAgent:      userAgent,
	})
}
