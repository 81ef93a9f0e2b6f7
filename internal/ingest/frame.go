package ingest

import (
	"strconv"
	"strings"
	"time"

	"github.com/liquidwatch/engine/internal/domain"
)

// forceOrderFrame mirrors the combined-stream envelope:
// {stream, data:{e:"forceOrder", o:{s, S, p, q, T}}}.
type forceOrderFrame struct {
	Stream string `json:"stream"`
	Data   struct {
		Event string `json:"e"`
		Order struct {
			Symbol   string `json:"s"`
			Side     string `json:"S"`
			Price    string `json:"p"`
			Quantity string `json:"q"`
			TradeMs  int64  `json:"T"`
		} `json:"o"`
	} `json:"data"`
}

func parseFloat(s string) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}

// toLiquidation converts a decoded frame into a domain event. ok is false
// for anything that isn't a forceOrder payload.
func (f forceOrderFrame) toLiquidation() (domain.Liquidation, bool) {
	if f.Data.Event != "forceOrder" {
		return domain.Liquidation{}, false
	}
	o := f.Data.Order
	return domain.Liquidation{
		Symbol:   baseSymbol(o.Symbol),
		Side:     domain.SideFromUpstream(o.Side),
		Price:    parseFloat(o.Price),
		Quantity: parseFloat(o.Quantity),
		Time:     time.UnixMilli(o.TradeMs),
	}, true
}

// baseSymbol strips the USDT quote suffix upstream uses on wire symbols
// ("BTCUSDT") so events key on the same base symbol
// (config.DefaultSymbolUniverse, Subscriber.TrackedSymbols) as every other
// component in the system.
func baseSymbol(wireSymbol string) string {
	return strings.TrimSuffix(strings.ToUpper(wireSymbol), "USDT")
}
