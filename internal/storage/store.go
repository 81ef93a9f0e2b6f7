// Package storage is the C2 persistence layer: liquidation events and
// subscriber documents, behind one Store interface so the ingest and
// alerting paths never touch the Mongo driver directly.
package storage

import (
	"context"
	"time"

	"github.com/liquidwatch/engine/internal/domain"
)

// Store is the C2 contract. Every method may fail with a wrapped
// domain.ErrStorageUnavailable; callers decide whether that's fatal (it
// never is, for the ingest path).
type Store interface {
	SaveLiquidation(ctx context.Context, event domain.Liquidation) error
	GetLiquidationsBetween(ctx context.Context, symbol string, start, end time.Time) ([]domain.Liquidation, error)
	GetOverallLiquidationsBetween(ctx context.Context, start, end time.Time) ([]domain.Liquidation, error)

	FindOrCreateSubscriber(ctx context.Context, chatID int64, firstName, username string) (domain.Subscriber, error)
	ToggleTrackedSymbol(ctx context.Context, chatID int64, symbol string) (domain.Subscriber, error)
	SetTrackedSymbols(ctx context.Context, chatID int64, symbols []string) (domain.Subscriber, error)
	SetNotifications(ctx context.Context, chatID int64, enabled *bool) (domain.Subscriber, error)
	SetReportInterval(ctx context.Context, chatID int64, hours int) (domain.Subscriber, error)
	SetAlertThreshold(ctx context.Context, chatID int64, amount float64) (domain.Subscriber, error)
	FindSubscribersTrackingSymbol(ctx context.Context, symbol string) ([]domain.Subscriber, error)
	ActiveSubscribers(ctx context.Context) ([]domain.Subscriber, error)
	DisableNotifications(ctx context.Context, chatID int64) error

	DeleteLiquidationsOlderThan(ctx context.Context, cutoff time.Time) (int64, error)

	Close(ctx context.Context) error
	Ping(ctx context.Context) error
}
