package marketdata

import (
	"context"
	"fmt"
	"time"

	"github.com/liquidwatch/engine/internal/domain"
	"github.com/liquidwatch/engine/internal/infrastructure/httpclient"
)

const bybitBaseURL = "https://api.bybit.com"

func fetchBybit(ctx context.Context, pool *httpclient.ClientPool, symbol string) (domain.ExchangeStat, error) {
	pair := symbol + "USDT"

	var resp struct {
		Result struct {
			List []struct {
				Symbol          string `json:"symbol"`
				LastPrice       string `json:"lastPrice"`
				OpenInterest    string `json:"openInterest"`
				FundingRate     string `json:"fundingRate"`
				NextFundingTime string `json:"nextFundingTime"`
			} `json:"list"`
		} `json:"result"`
	}

	url := bybitBaseURL + "/v5/market/tickers?category=linear&symbol=" + pair
	if err := getJSON(ctx, pool, url, &resp); err != nil {
		return domain.ExchangeStat{}, err
	}
	if len(resp.Result.List) == 0 {
		return domain.ExchangeStat{}, fmt.Errorf("%w: empty ticker list for %s", domain.ErrMalformedUpstream, pair)
	}

	row := resp.Result.List[0]
	price := parseFloat(row.LastPrice)
	coinOI := parseFloat(row.OpenInterest)

	var nextFunding time.Time
	if ms := int64(parseFloat(row.NextFundingTime)); ms > 0 {
		nextFunding = time.UnixMilli(ms)
	}

	return domain.ExchangeStat{
		Name:            "Bybit",
		Price:           price,
		FundingRate:     parseFloat(row.FundingRate),
		NextFundingTime: nextFunding,
		OpenInterest:    bybitOpenInterestUSD(coinOI, price),
		URL:             "https://www.bybit.com/trade/usdt/" + pair,
	}, nil
}

// bybitOpenInterestUSD converts Bybit's coin-denominated open interest into
// USD notional: linear perps report OI in units of the base coin.
func bybitOpenInterestUSD(coinOI, price float64) float64 {
	return coinOI * price
}
