package reporting

import (
	"context"
	"time"

	"github.com/liquidwatch/engine/internal/domain"
	"github.com/liquidwatch/engine/internal/storage"
)

// storeStub implements storage.Store with panics on every method a test
// doesn't override, so fakeStore only has to define the one method it needs.
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
