package domain

import "time"

// Side identifies which position a forced liquidation closed out.
type Side string

const (
	LongLiquidated  Side = "LongLiquidated"
	ShortLiquidated Side = "ShortLiquidated"
)

// SideFromUpstream maps the upstream forceOrder "S" field to a Side.
// A BUY forced order closes a short; any other value closes a long.
func SideFromUpstream(upstreamSide string) Side {
	if upstreamSide == "BUY" {
		return ShortLiquidated
	}
	return LongLiquidated
}

// Liquidation is an immutable forced-liquidation event. Once persisted it is
// never updated; there is no update path in the storage layer.
type Liquidation struct {
	Symbol   string    `bson:"symbol" json:"symbol"`
	Side     Side      `bson:"side" json:"side"`
	Price    float64   `bson:"price" json:"price"`
	Quantity float64   `bson:"quantity" json:"quantity"`
	Time     time.Time `bson:"time" json:"time"`
}

// Notional is price × quantity. It is derived on read, never stored.
func (l Liquidation) Notional() float64 {
	return l.Price * l.Quantity
}

// Valid reports whether the event satisfies price > 0 and quantity > 0.
func (l Liquidation) Valid() bool {
	return l.Price > 0 && l.Quantity > 0
}
