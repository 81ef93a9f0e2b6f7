package marketdata

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/liquidwatch/engine/internal/cache/memcache"
)

func TestParseFloatFallsBackToZeroOnGarbage(t *testing.T) {
	if v := parseFloat("not-a-number"); v != 0 {
		t.Fatalf("expected 0 for unparseable input, got %v", v)
	}
	if v := parseFloat("12.5"); v != 12.5 {
		t.Fatalf("expected 12.5, got %v", v)
	}
}

func TestMexcContractSizeUsesCachedValueWithoutFetching(t *testing.T) {
	store := memcache.New(time.Minute)
	raw, _ := json.Marshal(2.5)
	if err := store.Set(context.Background(), "mexc_contract_size:BTC_USDT", raw, time.Minute); err != nil {
		t.Fatalf("seed cache: %v", err)
	}

	size := mexcContractSize(context.Background(), nil, store, "BTC_USDT")
	if size != 2.5 {
		t.Fatalf("expected cached contract size 2.5, got %v", size)
	}
}

func TestMexcContractSizeFallsBackOnNonPositiveCachedValue(t *testing.T) {
	store := memcache.New(time.Minute)
	raw, _ := json.Marshal(0.0)
	store.Set(context.Background(), "mexc_contract_size:ETH_USDT", raw, time.Minute)

	size := mexcContractSize(context.Background(), nil, store, "ETH_USDT")
	if size != defaultMexcContractSz {
		t.Fatalf("expected fallback to default contract size %v, got %v", defaultMexcContractSz, size)
	}
}

func TestVenueOpenInterestUSDNormalisation(t *testing.T) {
	cases := []struct {
		name string
		got  float64
		want float64
	}{
		{
			name: "binance coin-denominated OI times mark price",
			got:  binanceOpenInterestUSD(1500, 65000),
			want: 97500000,
		},
		{
			name: "bybit coin-denominated OI times last price",
			got:  bybitOpenInterestUSD(2200, 3200),
			want: 7040000,
		},
		{
			name: "mexc contract count times contract size times price",
			got:  mexcOpenInterestUSD(50000, 0.01, 65000),
			want: 32500000,
		},
		{
			name: "mexc with default contract size fallback of 1",
			got:  mexcOpenInterestUSD(500, defaultMexcContractSz, 3200),
			want: 1600000,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if tc.got != tc.want {
				t.Fatalf("expected %v, got %v", tc.want, tc.got)
			}
		})
	}
}
