package domain

import "time"

// CascadeKey identifies one accumulator: a symbol/side pair.
type CascadeKey struct {
	Symbol string
	Side   Side
}

// CascadeBucket accumulates same-symbol, same-side liquidations within a
// short window. It exists only in memory, owned exclusively by the cascade
// detector.
type CascadeBucket struct {
	Symbol      string
	Side        Side
	Count       int
	TotalVolume float64
	MinPrice    float64
	MaxPrice    float64
	StartTime   time.Time
}

// Seed initializes a bucket from its first contributing event.
func Seed(l Liquidation) *CascadeBucket {
	return &CascadeBucket{
		Symbol:      l.Symbol,
		Side:        l.Side,
		Count:       1,
		TotalVolume: l.Notional(),
		MinPrice:    l.Price,
		MaxPrice:    l.Price,
		StartTime:   l.Time,
	}
}

// Absorb folds an additional event into the bucket. StartTime is unchanged.
func (b *CascadeBucket) Absorb(l Liquidation) {
	b.Count++
	b.TotalVolume += l.Notional()
	if l.Price < b.MinPrice {
		b.MinPrice = l.Price
	}
	if l.Price > b.MaxPrice {
		b.MaxPrice = l.Price
	}
}

// Eligible reports whether the bucket has aged past the flush window.
func (b *CascadeBucket) Eligible(now time.Time, window time.Duration) bool {
	return now.Sub(b.StartTime) >= window
}

// Alert reports whether the bucket, at flush time, crosses the cascade
// thresholds and should be emitted.
func (b *CascadeBucket) Alert(minCount int, minVolume float64) bool {
	return b.Count >= minCount && b.TotalVolume >= minVolume
}

// CascadeAlert is the record handed to the alert fan-out when a bucket
// flushes past threshold.
type CascadeAlert struct {
	Symbol      string
	Side        Side
	Count       int
	TotalVolume float64
	MinPrice    float64
	MaxPrice    float64
}

// ToAlert snapshots the bucket into an immutable CascadeAlert.
func (b *CascadeBucket) ToAlert() CascadeAlert {
	return CascadeAlert{
		Symbol:      b.Symbol,
		Side:        b.Side,
		Count:       b.Count,
		TotalVolume: b.TotalVolume,
		MinPrice:    b.MinPrice,
		MaxPrice:    b.MaxPrice,
	}
}
