// Package scheduler is the C8 component: four periodic triggers (hourly
// reports, retention, OI scans, connection refresh), each with its own
// interval and a per-job re-entrancy guard so a slow run never queues up
// behind itself.
package scheduler

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// JobResult records one run for operator visibility, published on Results.
// Ephemeral: never persisted.
type JobResult struct {
	JobName   string
	RunID     string
	StartTime time.Time
	EndTime   time.Time
	Success   bool
	Error     string
}

// job pairs a named unit of work with an atomic re-entrancy guard: a tick
// that arrives while the previous run is still in flight is skipped and
// logged once, never queued.
type job struct {
	name    string
	running atomic.Bool
	fn      func(ctx context.Context) error
}

func (j *job) runIfIdle(ctx context.Context) *JobResult {
	if !j.running.CompareAndSwap(false, true) {
		log.Warn().Str("job", j.name).Msg("skipping tick, previous run still in flight")
		return nil
	}
	defer j.running.Store(false)

	runID := uuid.NewString()
	start := time.Now()
	log.Info().Str("job", j.name).Str("runId", runID).Msg("job starting")

	err := j.fn(ctx)

	result := &JobResult{JobName: j.name, RunID: runID, StartTime: start, EndTime: time.Now(), Success: err == nil}
	if err != nil {
		result.Error = err.Error()
		log.Error().Err(err).Str("job", j.name).Str("runId", runID).Msg("job failed")
	} else {
		log.Info().Str("job", j.name).Str("runId", runID).Dur("elapsed", result.EndTime.Sub(start)).Msg("job completed")
	}
	return result
}

// Hooks are the four C8 triggers' bodies, supplied by the wiring layer
// (Engine) so this package stays independent of storage/marketdata/alerts.
type Hooks struct {
	// SendHourlyReports runs for every active subscriber whose
	// currentUTChour mod reportIntervalHours == 0.
	SendHourlyReports func(ctx context.Context, utcHour int) error
	// DeleteOldLiquidations enforces the 48h retention window.
	DeleteOldLiquidations func(ctx context.Context) error
	// ScanOISurges runs the C3 OI scan and routes surges via C6.
	ScanOISurges func(ctx context.Context) error
	// RefreshConnections triggers the C4 planned refresh.
	RefreshConnections func(ctx context.Context) error
}

// Scheduler owns the minute-resolution wall-clock loops for hourly reports
// and retention, plus one interval ticker each for OI scanning and
// connection refresh, and the four jobs' re-entrancy guards.
type Scheduler struct {
	hooks Hooks

	retentionInterval time.Duration
	oiScanInterval    time.Duration
	refreshInterval   time.Duration

	reportJob    *job
	retentionJob *job
	oiScanJob    *job
	refreshJob   *job

	results chan *JobResult

	stop chan struct{}
	done chan struct{}
}

// New builds a Scheduler. oiScanInterval and refreshInterval are the
// OI_SCAN_INTERVAL and WS_REFRESH tuning knobs, each driving a plain
// interval ticker. retentionInterval is the RETENTION_TICK knob, kept for
// configuration parity, but retention itself runs on the same
// minute-resolution wall-clock loop as hourly reports, gated on 00:00 UTC
// per §4.8 rather than on a raw interval — an interval ticker started at
// process launch would fire at an arbitrary offset from midnight, not at
// midnight itself. Hourly reports stay on the fixed minute-resolution,
// top-of-hour loop since their cadence is per-subscriber, not a single
// duration.
func New(hooks Hooks, retentionInterval, oiScanInterval, refreshInterval time.Duration) *Scheduler {
	s := &Scheduler{
		hooks:             hooks,
		retentionInterval: retentionInterval,
		oiScanInterval:    oiScanInterval,
		refreshInterval:   refreshInterval,
		results:           make(chan *JobResult, 16),
		stop:              make(chan struct{}),
		done:              make(chan struct{}),
	}
	s.reportJob = &job{name: "hourly_reports", fn: func(ctx context.Context) error {
		return s.hooks.SendHourlyReports(ctx, time.Now().UTC().Hour())
	}}
	s.retentionJob = &job{name: "retention", fn: s.hooks.DeleteOldLiquidations}
	s.oiScanJob = &job{name: "oi_scan", fn: s.hooks.ScanOISurges}
	s.refreshJob = &job{name: "connection_refresh", fn: s.hooks.RefreshConnections}
	return s
}

// Results streams JobResults for operator logs to consume. It is never
// mandatory to read from: publish never blocks a job, and a result is
// dropped when the buffered channel is already full.
func (s *Scheduler) Results() <-chan *JobResult {
	return s.results
}

func (s *Scheduler) publish(result *JobResult) {
	if result == nil {
		return
	}
	select {
	case s.results <- result:
	default:
	}
}

// Start launches the hourly-report and retention minute loops and one
// interval ticker each for OI scanning and connection refresh. Call Stop to
// terminate all four.
func (s *Scheduler) Start(ctx context.Context) {
	go s.minuteLoop(ctx)
	go s.dayLoop(ctx)
	go s.intervalLoop(ctx, s.oiScanInterval, s.oiScanJob)
	go s.intervalLoop(ctx, s.refreshInterval, s.refreshJob)
}

// minuteLoop fires the hourly-report job at the top of every UTC hour; the
// job itself filters subscribers by their own report interval.
func (s *Scheduler) minuteLoop(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case now := <-ticker.C:
			if isTopOfHour(now) {
				go s.publish(s.reportJob.runIfIdle(ctx))
			}
		case <-s.stop:
			return
		case <-ctx.Done():
			return
		}
	}
}

// dayLoop fires the retention job once, at 00:00 UTC, per §4.8 rather than
// on an interval ticker started at an arbitrary process-launch offset.
func (s *Scheduler) dayLoop(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case now := <-ticker.C:
			if isTopOfDay(now) {
				go s.publish(s.retentionJob.runIfIdle(ctx))
			}
		case <-s.stop:
			return
		case <-ctx.Done():
			return
		}
	}
}

func isTopOfHour(now time.Time) bool {
	return now.UTC().Minute() == 0
}

func isTopOfDay(now time.Time) bool {
	t := now.UTC()
	return t.Hour() == 0 && t.Minute() == 0
}

func (s *Scheduler) intervalLoop(ctx context.Context, interval time.Duration, j *job) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			go s.publish(j.runIfIdle(ctx))
		case <-s.stop:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (s *Scheduler) Stop() {
	close(s.stop)
}
