package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/liquidwatch/engine/internal/domain"
	"github.com/liquidwatch/engine/internal/infrastructure/httpclient"
	"github.com/liquidwatch/engine/internal/net/ratelimit"
)

const binanceBaseURL = "https://fapi.binance.com"

// venueLimiter caps outbound REST calls per venue host with a token
// bucket. Every venue's free-tier REST API enforces its own per-IP rate
// limit; a shared, keyed-by-host limiter keeps one venue's throttling from
// ever touching another's budget.
var venueLimiter = ratelimit.NewLimiter(8, 4)

func parseFloat(s string) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}

func getJSON(ctx context.Context, pool *httpclient.ClientPool, rawURL string, out interface{}) error {
	host := rawURL
	if parsed, err := url.Parse(rawURL); err == nil {
		host = parsed.Host
	}
	if err := venueLimiter.Wait(ctx, host); err != nil {
		return fmt.Errorf("%w: rate limit wait: %v", domain.ErrTransientUpstream, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := pool.Do(ctx, req)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrTransientUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: HTTP %d from %s", domain.ErrTransientUpstream, resp.StatusCode, rawURL)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode %s: %v", domain.ErrMalformedUpstream, rawURL, err)
	}
	return nil
}

// fetchBinance queries the USDT-margined-perp OI, mark price, and funding
// endpoints and returns the USD-normalised open interest.
func fetchBinance(ctx context.Context, pool *httpclient.ClientPool, symbol string) (domain.ExchangeStat, error) {
	pair := symbol + "USDT"

	var oiResp struct {
		OpenInterest string `json:"openInterest"`
	}
	if err := getJSON(ctx, pool, binanceBaseURL+"/fapi/v1/openInterest?symbol="+pair, &oiResp); err != nil {
		return domain.ExchangeStat{}, err
	}

	var premium struct {
		MarkPrice       string `json:"markPrice"`
		LastFundingRate string `json:"lastFundingRate"`
		NextFundingTime int64  `json:"nextFundingTime"`
	}
	if err := getJSON(ctx, pool, binanceBaseURL+"/fapi/v1/premiumIndex?symbol="+pair, &premium); err != nil {
		return domain.ExchangeStat{}, err
	}

	price := parseFloat(premium.MarkPrice)
	coinOI := parseFloat(oiResp.OpenInterest)

	return domain.ExchangeStat{
		Name:            "Binance",
		Price:           price,
		FundingRate:     parseFloat(premium.LastFundingRate),
		NextFundingTime: time.UnixMilli(premium.NextFundingTime),
		OpenInterest:    binanceOpenInterestUSD(coinOI, price),
		URL:             "https://www.binance.com/en/futures/" + pair,
	}, nil
}

// binanceOpenInterestUSD converts Binance's coin-denominated open interest
// into USD notional: Binance reports OI in units of the base coin.
func binanceOpenInterestUSD(coinOI, price float64) float64 {
	return coinOI * price
}

// fetchBinanceLongShortRatio queries topLongShortAccountRatio for the most
// recent 5-minute bucket.
func fetchBinanceLongShortRatio(ctx context.Context, pool *httpclient.ClientPool, symbol string) (domain.LongShortRatio, error) {
	pair := symbol + "USDT"

	var rows []struct {
		LongAccount  string `json:"longAccount"`
		ShortAccount string `json:"shortAccount"`
		Timestamp    int64  `json:"timestamp"`
	}
	endpoint := binanceBaseURL + "/fapi/v1/topLongShortAccountRatio?symbol=" + pair + "&period=5m&limit=1"
	if err := getJSON(ctx, pool, endpoint, &rows); err != nil {
		return domain.LongShortRatio{}, err
	}
	if len(rows) == 0 {
		return domain.LongShortRatio{}, fmt.Errorf("%w: empty long/short ratio response for %s", domain.ErrMalformedUpstream, symbol)
	}

	latest := rows[0]
	return domain.LongShortRatio{
		Symbol:     symbol,
		LongRatio:  parseFloat(latest.LongAccount),
		ShortRatio: parseFloat(latest.ShortAccount),
		Timestamp:  time.UnixMilli(latest.Timestamp),
	}, nil
}
