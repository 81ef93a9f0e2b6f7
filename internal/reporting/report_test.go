package reporting

import (
	"context"
	"testing"
	"time"

	"github.com/liquidwatch/engine/internal/domain"
)

type fakeStore struct {
	storeStub
	byWindow map[string][]domain.Liquidation
	calls    int
}

func (f *fakeStore) GetOverallLiquidationsBetween(ctx context.Context, start, end time.Time) ([]domain.Liquidation, error) {
	f.calls++
	if f.calls == 1 {
		return f.byWindow["current"], nil
	}
	return f.byWindow["prior"], nil
}

func TestGenerateReturnsSentinelWhenNoLiquidationsAtAll(t *testing.T) {
	store := &fakeStore{byWindow: map[string][]domain.Liquidation{}}
	sub := domain.Subscriber{ChatID: 1, TrackedSymbols: []string{"BTC"}}

	msg, ok, err := Generate(context.Background(), store, nil, sub, 4, true, time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Fatal("expected ok=false when no liquidations at all")
	}
	if msg != NoLiquidationsMessage {
		t.Fatalf("expected sentinel message, got %q", msg)
	}
}

func TestGenerateFiltersToTrackedSymbols(t *testing.T) {
	now := time.Now()
	store := &fakeStore{byWindow: map[string][]domain.Liquidation{
		"current": {
			{Symbol: "BTC", Side: domain.LongLiquidated, Price: 100, Quantity: 10, Time: now},
			{Symbol: "ETH", Side: domain.ShortLiquidated, Price: 100, Quantity: 500, Time: now},
		},
		"prior": {},
	}}
	sub := domain.Subscriber{ChatID: 1, TrackedSymbols: []string{"BTC"}}

	msg, ok, err := Generate(context.Background(), store, nil, sub, 4, true, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Fatal("expected ok=true, BTC is tracked and has volume")
	}
	if !contains(msg, "BTC") {
		t.Fatalf("expected BTC in report, got %q", msg)
	}
	if contains(msg, "ETH") {
		t.Fatalf("did not expect untracked ETH in report, got %q", msg)
	}
	if contains(msg, "SHORTS LIQUIDATED") {
		t.Fatalf("expected shorts section omitted when the tracked side has no volume, got %q", msg)
	}
	if contains(msg, "Shorts subtotal") {
		t.Fatalf("expected shorts subtotal line omitted when the tracked side has no volume, got %q", msg)
	}
}

func contains(haystack, needle string) bool {
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if haystack[i:i+len(needle)] == needle {
			return true
		}
	}
	return false
}
