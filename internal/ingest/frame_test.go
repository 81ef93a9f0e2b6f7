package ingest

import (
	"encoding/json"
	"testing"

	"github.com/liquidwatch/engine/internal/domain"
)

func TestToLiquidationBuySideMapsToShort(t *testing.T) {
	raw := `{"stream":"btcusdt@forceOrder","data":{"e":"forceOrder","o":{"s":"BTCUSDT","S":"BUY","p":"50000.10","q":"0.5","T":1700000000000}}}`
	var frame forceOrderFrame
	if err := json.Unmarshal([]byte(raw), &frame); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	l, ok := frame.toLiquidation()
	if !ok {
		t.Fatal("expected forceOrder frame to decode")
	}
	if l.Side != domain.ShortLiquidated {
		t.Fatalf("expected BUY -> ShortLiquidated, got %v", l.Side)
	}
	if l.Price != 50000.10 || l.Quantity != 0.5 {
		t.Fatalf("unexpected price/quantity: %+v", l)
	}
	if l.Symbol != "BTC" {
		t.Fatalf("expected wire symbol BTCUSDT to strip to BTC, got %q", l.Symbol)
	}
}

func TestToLiquidationSellSideMapsToLong(t *testing.T) {
	raw := `{"stream":"ethusdt@forceOrder","data":{"e":"forceOrder","o":{"s":"ETHUSDT","S":"SELL","p":"2000","q":"1","T":1700000000000}}}`
	var frame forceOrderFrame
	json.Unmarshal([]byte(raw), &frame)

	l, ok := frame.toLiquidation()
	if !ok {
		t.Fatal("expected forceOrder frame to decode")
	}
	if l.Side != domain.LongLiquidated {
		t.Fatalf("expected non-BUY -> LongLiquidated, got %v", l.Side)
	}
}

func TestToLiquidationIgnoresNonForceOrder(t *testing.T) {
	raw := `{"stream":"btcusdt@markPrice","data":{"e":"markPriceUpdate"}}`
	var frame forceOrderFrame
	json.Unmarshal([]byte(raw), &frame)

	if _, ok := frame.toLiquidation(); ok {
		t.Fatal("expected non-forceOrder event to be rejected")
	}
}

func TestChunkPartitionsAtShardSize(t *testing.T) {
	symbols := make([]string, 130)
	for i := range symbols {
		symbols[i] = "SYM"
	}
	chunks := chunk(symbols, 50)
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks for 130 symbols at size 50, got %d", len(chunks))
	}
	if len(chunks[0]) != 50 || len(chunks[1]) != 50 || len(chunks[2]) != 30 {
		t.Fatalf("unexpected chunk sizes: %v", []int{len(chunks[0]), len(chunks[1]), len(chunks[2])})
	}
}
