// Package cascade is the C5 burst detector: a single-writer-per-key bucket
// map plus a background flush ticker.
package cascade

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/liquidwatch/engine/internal/domain"
)

// tickResolution bounds how stale an eligible bucket can get before a sweep
// notices it. It is fixed rather than configurable: it is an internal
// polling detail, not a tuning knob callers reason about.
const tickResolution = time.Second

// Handler receives a cascade alert once a bucket flushes past threshold.
type Handler func(domain.CascadeAlert)

// Detector owns the (symbol, side) bucket map. All access is guarded by a
// single mutex: contention is bounded by the tracked-symbol universe, not
// event volume, so a coarse lock is sufficient.
type Detector struct {
	mu      sync.Mutex
	buckets map[domain.CascadeKey]*domain.CascadeBucket

	window    time.Duration
	minCount  int
	minVolume float64

	onAlert Handler

	stop chan struct{}
	done chan struct{}
}

// New builds a Detector. window is the bucket age at which it becomes
// eligible for flush; minCount and minVolume are the alert thresholds a
// flushed bucket must clear.
func New(window time.Duration, minCount int, minVolume float64, onAlert Handler) *Detector {
	return &Detector{
		buckets:   make(map[domain.CascadeKey]*domain.CascadeBucket),
		window:    window,
		minCount:  minCount,
		minVolume: minVolume,
		onAlert:   onAlert,
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// Start launches the flush ticker. Call Stop to drain and terminate it.
func (d *Detector) Start() {
	go d.run()
}

func (d *Detector) run() {
	defer close(d.done)
	ticker := time.NewTicker(tickResolution)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			d.flushEligible(time.Now())
		case <-d.stop:
			d.flushEligible(time.Now().Add(d.window)) // force-flush everything remaining
			return
		}
	}
}

// Stop halts the ticker and flushes every remaining bucket unconditionally,
// draining state within the shutdown grace window.
func (d *Detector) Stop() {
	close(d.stop)
	<-d.done
}

// Ingest folds one liquidation event into its bucket. Called synchronously
// from the ingest path, in the persist->cascade->fan-out order C4 requires.
func (d *Detector) Ingest(l domain.Liquidation) {
	key := domain.CascadeKey{Symbol: l.Symbol, Side: l.Side}

	d.mu.Lock()
	bucket, exists := d.buckets[key]
	if !exists {
		d.buckets[key] = domain.Seed(l)
	} else {
		bucket.Absorb(l)
	}
	d.mu.Unlock()
}

func (d *Detector) flushEligible(now time.Time) {
	var ready []domain.CascadeAlert

	d.mu.Lock()
	for key, bucket := range d.buckets {
		if !bucket.Eligible(now, d.window) {
			continue
		}
		if bucket.Alert(d.minCount, d.minVolume) {
			ready = append(ready, bucket.ToAlert())
		}
		delete(d.buckets, key)
	}
	d.mu.Unlock()

	for _, alert := range ready {
		log.Info().
			Str("symbol", alert.Symbol).
			Str("side", string(alert.Side)).
			Int("count", alert.Count).
			Float64("totalVolume", alert.TotalVolume).
			Msg("cascade detected")
		d.onAlert(alert)
	}
}
