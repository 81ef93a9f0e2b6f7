package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/liquidwatch/engine/internal/cache"
	"github.com/liquidwatch/engine/internal/domain"
	"github.com/liquidwatch/engine/internal/infrastructure/httpclient"
)

const (
	mexcBaseURL           = "https://contract.mexc.com"
	mexcContractSizeTTL   = 24 * time.Hour
	defaultMexcContractSz = 1.0
)

// mexcContractSize resolves and caches a contract's coin-per-contract size.
// A failed lookup falls back to 1 rather than propagating, per spec.
func mexcContractSize(ctx context.Context, pool *httpclient.ClientPool, store cache.Store, pair string) float64 {
	key := "mexc_contract_size:" + pair

	raw, err := store.GetOrFetch(ctx, key, mexcContractSizeTTL, func(ctx context.Context) ([]byte, error) {
		var detail struct {
			Data struct {
				ContractSize float64 `json:"contractSize"`
			} `json:"data"`
		}
		url := mexcBaseURL + "/api/v1/contract/detail?symbol=" + pair
		if err := getJSON(ctx, pool, url, &detail); err != nil {
			return nil, err
		}
		if detail.Data.ContractSize <= 0 {
			return nil, fmt.Errorf("%w: non-positive contract size for %s", domain.ErrMalformedUpstream, pair)
		}
		return json.Marshal(detail.Data.ContractSize)
	})
	if err != nil {
		return defaultMexcContractSz
	}

	var size float64
	if err := json.Unmarshal(raw, &size); err != nil || size <= 0 {
		return defaultMexcContractSz
	}
	return size
}

func fetchMEXC(ctx context.Context, pool *httpclient.ClientPool, store cache.Store, symbol string) (domain.ExchangeStat, error) {
	pair := symbol + "_USDT"

	var ticker struct {
		Data struct {
			LastPrice   float64 `json:"lastPrice"`
			HoldVol     float64 `json:"holdVol"`
			FundingRate float64 `json:"fundingRate"`
		} `json:"data"`
	}
	if err := getJSON(ctx, pool, mexcBaseURL+"/api/v1/contract/ticker?symbol="+pair, &ticker); err != nil {
		return domain.ExchangeStat{}, err
	}

	var funding struct {
		Data struct {
			FundingRate    float64 `json:"fundingRate"`
			NextSettleTime int64   `json:"nextSettleTime"`
		} `json:"data"`
	}
	var nextFunding time.Time
	if err := getJSON(ctx, pool, mexcBaseURL+"/api/v1/contract/funding_rate/"+pair, &funding); err == nil {
		nextFunding = time.UnixMilli(funding.Data.NextSettleTime)
	}

	contractSize := mexcContractSize(ctx, pool, store, pair)
	price := ticker.Data.LastPrice

	return domain.ExchangeStat{
		Name:            "MEXC",
		Price:           price,
		FundingRate:     ticker.Data.FundingRate,
		NextFundingTime: nextFunding,
		OpenInterest:    mexcOpenInterestUSD(ticker.Data.HoldVol, contractSize, price),
		URL:             "https://futures.mexc.com/exchange/" + pair,
	}, nil
}

// mexcOpenInterestUSD converts MEXC's contract-denominated open interest
// into USD notional: holdVol is a contract count, not a coin amount, so it
// needs the coin-per-contract size folded in before multiplying by price.
func mexcOpenInterestUSD(holdVol, contractSize, price float64) float64 {
	return holdVol * contractSize * price
}
