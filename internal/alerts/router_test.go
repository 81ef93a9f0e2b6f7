package alerts

import (
	"context"
	"testing"
	"time"

	"github.com/liquidwatch/engine/internal/domain"
	"github.com/liquidwatch/engine/internal/storage"
)

// storeStub panics on every method a test doesn't override, mirroring
// internal/reporting's stub so router tests only define what they need.
type storeStub struct{}

func (storeStub) SaveLiquidation(ctx context.Context, event domain.Liquidation) error {
	panic("not implemented")
}
func (storeStub) GetLiquidationsBetween(ctx context.Context, symbol string, start, end time.Time) ([]domain.Liquidation, error) {
	panic("not implemented")
}
func (storeStub) GetOverallLiquidationsBetween(ctx context.Context, start, end time.Time) ([]domain.Liquidation, error) {
	panic("not implemented")
}
func (storeStub) FindOrCreateSubscriber(ctx context.Context, chatID int64, firstName, username string) (domain.Subscriber, error) {
	panic("not implemented")
}
func (storeStub) ToggleTrackedSymbol(ctx context.Context, chatID int64, symbol string) (domain.Subscriber, error) {
	panic("not implemented")
}
func (storeStub) SetTrackedSymbols(ctx context.Context, chatID int64, symbols []string) (domain.Subscriber, error) {
	panic("not implemented")
}
func (storeStub) SetNotifications(ctx context.Context, chatID int64, enabled *bool) (domain.Subscriber, error) {
	panic("not implemented")
}
func (storeStub) SetReportInterval(ctx context.Context, chatID int64, hours int) (domain.Subscriber, error) {
	panic("not implemented")
}
func (storeStub) SetAlertThreshold(ctx context.Context, chatID int64, amount float64) (domain.Subscriber, error) {
	panic("not implemented")
}
func (storeStub) FindSubscribersTrackingSymbol(ctx context.Context, symbol string) ([]domain.Subscriber, error) {
	panic("not implemented")
}
func (storeStub) ActiveSubscribers(ctx context.Context) ([]domain.Subscriber, error) {
	panic("not implemented")
}
func (storeStub) DisableNotifications(ctx context.Context, chatID int64) error {
	panic("not implemented")
}
func (storeStub) DeleteLiquidationsOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	panic("not implemented")
}
func (storeStub) Close(ctx context.Context) error { panic("not implemented") }
func (storeStub) Ping(ctx context.Context) error  { panic("not implemented") }

var _ storage.Store = storeStub{}

// fakeSubStore serves a fixed subscriber list for FindSubscribersTrackingSymbol
// and records which chatIDs got DisableNotifications called on them.
type fakeSubStore struct {
	storeStub
	subs     []domain.Subscriber
	disabled []int64
}

func (f *fakeSubStore) FindSubscribersTrackingSymbol(ctx context.Context, symbol string) ([]domain.Subscriber, error) {
	var out []domain.Subscriber
	for _, s := range f.subs {
		if s.TracksSymbol(symbol) {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeSubStore) DisableNotifications(ctx context.Context, chatID int64) error {
	f.disabled = append(f.disabled, chatID)
	return nil
}

// fakeSender records every (chatID, message) send and can be told to fail
// a specific chatID with a given error.
type fakeSender struct {
	sent    []string
	failFor map[string]error
}

func (f *fakeSender) Send(ctx context.Context, chatID string, message string) error {
	if f.failFor != nil {
		if err, ok := f.failFor[chatID]; ok {
			return err
		}
	}
	f.sent = append(f.sent, chatID)
	return nil
}

func TestRouteLiquidationFiltersBySubscriberThreshold(t *testing.T) {
	// S5: three subscribers track the same symbol with different
	// min-alert floors and mute state; a 100k liquidation should reach
	// only the subscriber whose floor it clears and who isn't muted.
	store := &fakeSubStore{subs: []domain.Subscriber{
		{ChatID: 1, TrackedSymbols: []string{"BTC"}, NotificationsEnabled: true, MinLiquidationAlert: 50000},
		{ChatID: 2, TrackedSymbols: []string{"BTC"}, NotificationsEnabled: true, MinLiquidationAlert: 200000},
		{ChatID: 3, TrackedSymbols: []string{"BTC"}, NotificationsEnabled: false, MinLiquidationAlert: 0},
	}}
	sender := &fakeSender{}
	router := NewRouter(store, sender, nil, nil, "", 0)

	router.RouteLiquidation(context.Background(), domain.Liquidation{
		Symbol: "BTC", Side: domain.ShortLiquidated, Price: 10000, Quantity: 10, Time: time.Now(),
	})

	if len(sender.sent) != 1 || sender.sent[0] != "1" {
		t.Fatalf("expected only chatID 1 to receive the alert, got %v", sender.sent)
	}
}

func TestRouteLiquidationBroadcastsOnlyAboveChannelFloor(t *testing.T) {
	store := &fakeSubStore{}
	sender := &fakeSender{}
	router := NewRouter(store, sender, nil, nil, "channel", 250000)

	router.RouteLiquidation(context.Background(), domain.Liquidation{
		Symbol: "BTC", Side: domain.ShortLiquidated, Price: 10000, Quantity: 10, Time: time.Now(),
	})
	if len(sender.sent) != 0 {
		t.Fatalf("expected no broadcast below channel floor, got %v", sender.sent)
	}

	router.RouteLiquidation(context.Background(), domain.Liquidation{
		Symbol: "BTC", Side: domain.ShortLiquidated, Price: 10000, Quantity: 30, Time: time.Now(),
	})
	if len(sender.sent) != 1 || sender.sent[0] != "channel" {
		t.Fatalf("expected one channel broadcast above the floor, got %v", sender.sent)
	}
}

func TestRouteOISurgeAlwaysBroadcastsAndFansOutRegardlessOfMagnitude(t *testing.T) {
	store := &fakeSubStore{subs: []domain.Subscriber{
		{ChatID: 9, TrackedSymbols: []string{"SOL"}, NotificationsEnabled: true, MinLiquidationAlert: 1_000_000},
	}}
	sender := &fakeSender{}
	router := NewRouter(store, sender, nil, nil, "channel", 250000)

	router.RouteOISurge(context.Background(), domain.OISurge{
		Symbol: "SOL", PreviousOI: 100_000_000, CurrentOI: 103_000_000, PercentChange: 3.0, Price: 150,
	})

	if len(sender.sent) != 2 {
		t.Fatalf("expected a channel send and a subscriber send regardless of the subscriber's alert floor, got %v", sender.sent)
	}
}

func TestRouteLiquidationDisablesRecipientOnBlocked(t *testing.T) {
	store := &fakeSubStore{subs: []domain.Subscriber{
		{ChatID: 42, TrackedSymbols: []string{"ETH"}, NotificationsEnabled: true, MinLiquidationAlert: 0},
	}}
	sender := &fakeSender{failFor: map[string]error{"42": domain.ErrRecipientBlocked}}
	router := NewRouter(store, sender, nil, nil, "", 0)

	router.RouteLiquidation(context.Background(), domain.Liquidation{
		Symbol: "ETH", Side: domain.LongLiquidated, Price: 100, Quantity: 1, Time: time.Now(),
	})

	if len(store.disabled) != 1 || store.disabled[0] != 42 {
		t.Fatalf("expected chatID 42 to be disabled after RecipientBlocked, got %v", store.disabled)
	}
}
