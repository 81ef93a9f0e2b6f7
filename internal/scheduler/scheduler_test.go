package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestRunIfIdleSkipsWhenAlreadyRunning(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{}, 2)

	j := &job{name: "test", fn: func(ctx context.Context) error {
		started <- struct{}{}
		<-release
		return nil
	}}

	var wg sync.WaitGroup
	var second *JobResult
	wg.Add(1)
	go func() {
		defer wg.Done()
		j.runIfIdle(context.Background())
	}()

	<-started // first run is in flight

	second = j.runIfIdle(context.Background())
	if second != nil {
		t.Fatal("expected second concurrent run to be skipped")
	}

	close(release)
	wg.Wait()
}

func TestRunIfIdleRecordsSuccessAndFailure(t *testing.T) {
	ok := &job{name: "ok", fn: func(ctx context.Context) error { return nil }}
	result := ok.runIfIdle(context.Background())
	if result == nil || !result.Success {
		t.Fatalf("expected successful result, got %+v", result)
	}
	if result.RunID == "" {
		t.Fatal("expected a run id to be assigned")
	}

	failing := &job{name: "bad", fn: func(ctx context.Context) error { return context.DeadlineExceeded }}
	result = failing.runIfIdle(context.Background())
	if result == nil || result.Success {
		t.Fatalf("expected failed result, got %+v", result)
	}
	if result.Error == "" {
		t.Fatal("expected error string to be recorded")
	}
}

func newRecordingScheduler(fired map[string]int, mu *sync.Mutex, retention, oiScan, refresh time.Duration) *Scheduler {
	record := func(name string) func(context.Context) error {
		return func(context.Context) error {
			mu.Lock()
			fired[name]++
			mu.Unlock()
			return nil
		}
	}
	return New(Hooks{
		SendHourlyReports:     func(ctx context.Context, hour int) error { return record("report")(ctx) },
		DeleteOldLiquidations: record("retention"),
		ScanOISurges:          record("oiscan"),
		RefreshConnections:    record("refresh"),
	}, retention, oiScan, refresh)
}

func TestIsTopOfHour(t *testing.T) {
	if !isTopOfHour(time.Date(2026, 1, 1, 13, 0, 0, 0, time.UTC)) {
		t.Fatal("expected minute 0 to be top of hour")
	}
	if isTopOfHour(time.Date(2026, 1, 1, 13, 15, 0, 0, time.UTC)) {
		t.Fatal("expected minute 15 not to be top of hour")
	}
}

func TestReportJobFiresAtTopOfHour(t *testing.T) {
	var mu sync.Mutex
	fired := map[string]int{}
	s := newRecordingScheduler(fired, &mu, time.Hour, time.Hour, time.Hour)

	if isTopOfHour(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)) {
		s.reportJob.runIfIdle(context.Background())
	}

	mu.Lock()
	defer mu.Unlock()
	if fired["report"] != 1 {
		t.Fatalf("expected report job to fire at minute 0, got %d", fired["report"])
	}
}

func TestIsTopOfDay(t *testing.T) {
	if !isTopOfDay(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatal("expected midnight UTC to be top of day")
	}
	if isTopOfDay(time.Date(2026, 1, 1, 0, 15, 0, 0, time.UTC)) {
		t.Fatal("expected minute 15 past midnight not to be top of day")
	}
	if isTopOfDay(time.Date(2026, 1, 1, 13, 0, 0, 0, time.UTC)) {
		t.Fatal("expected top of a non-midnight hour not to be top of day")
	}
}

func TestRetentionJobFiresAtTopOfDay(t *testing.T) {
	var mu sync.Mutex
	fired := map[string]int{}
	s := newRecordingScheduler(fired, &mu, time.Hour, time.Hour, time.Hour)

	if isTopOfDay(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)) {
		s.retentionJob.runIfIdle(context.Background())
	}

	mu.Lock()
	defer mu.Unlock()
	if fired["retention"] != 1 {
		t.Fatalf("expected retention job to fire at midnight UTC, got %d", fired["retention"])
	}
}

// TestIntervalJobsRunOnTheirConfiguredCadence covers the two jobs Start
// actually drives with the generic interval ticker: OI scanning and
// connection refresh. Retention instead runs on dayLoop's top-of-day gate
// (see TestRetentionJobFiresAtTopOfDay), not a raw interval.
func TestIntervalJobsRunOnTheirConfiguredCadence(t *testing.T) {
	var mu sync.Mutex
	fired := map[string]int{}
	s := newRecordingScheduler(fired, &mu, time.Hour, 30*time.Millisecond, 40*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go s.intervalLoop(ctx, s.oiScanInterval, s.oiScanJob)
	go s.intervalLoop(ctx, s.refreshInterval, s.refreshJob)

	time.Sleep(150 * time.Millisecond)
	cancel()
	time.Sleep(10 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if fired["oiscan"] < 2 {
		t.Errorf("expected oi scan job to fire multiple times at its configured interval, got %d", fired["oiscan"])
	}
	if fired["refresh"] < 1 {
		t.Errorf("expected refresh job to fire at its configured interval, got %d", fired["refresh"])
	}
}
