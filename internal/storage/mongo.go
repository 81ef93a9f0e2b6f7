package storage

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/liquidwatch/engine/internal/domain"
)

const (
	liquidationsCollection = "liquidations"
	subscribersCollection  = "subscribers"

	// queryTimeout bounds every single-document operation, mirroring the
	// teacher's per-call context.WithTimeout discipline in
	// internal/persistence/postgres.
	queryTimeout = 10 * time.Second
)

// MongoStore is the production Store, backed by go.mongodb.org/mongo-driver.
type MongoStore struct {
	client        *mongo.Client
	liquidations  *mongo.Collection
	subscribers   *mongo.Collection
}

// Connect dials Mongo, verifies the connection, and creates its indexes
// idempotently.
func Connect(ctx context.Context, uri, dbName string) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("%w: mongo connect: %v", domain.ErrStorageUnavailable, err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		return nil, fmt.Errorf("%w: mongo ping: %v", domain.ErrStorageUnavailable, err)
	}

	db := client.Database(dbName)
	s := &MongoStore{
		client:       client,
		liquidations: db.Collection(liquidationsCollection),
		subscribers:  db.Collection(subscribersCollection),
	}

	if err := s.ensureIndexes(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *MongoStore) ensureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	_, err := s.liquidations.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "symbol", Value: 1}, {Key: "time", Value: -1}},
	})
	if err != nil {
		return fmt.Errorf("%w: create liquidations index: %v", domain.ErrStorageUnavailable, err)
	}

	_, err = s.subscribers.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "chatId", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("%w: create subscribers index: %v", domain.ErrStorageUnavailable, err)
	}
	return nil
}

func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *MongoStore) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	return s.client.Ping(ctx, nil)
}

// SaveLiquidation is a best-effort insert: failures are the caller's to log
// and drop, never to propagate into the ingest path.
func (s *MongoStore) SaveLiquidation(ctx context.Context, event domain.Liquidation) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	if _, err := s.liquidations.InsertOne(ctx, event); err != nil {
		return fmt.Errorf("%w: insert liquidation: %v", domain.ErrStorageUnavailable, err)
	}
	return nil
}

func (s *MongoStore) GetLiquidationsBetween(ctx context.Context, symbol string, start, end time.Time) ([]domain.Liquidation, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	filter := bson.M{
		"symbol": symbol,
		"time":   bson.M{"$gte": start, "$lt": end},
	}
	return s.findLiquidations(ctx, filter)
}

func (s *MongoStore) GetOverallLiquidationsBetween(ctx context.Context, start, end time.Time) ([]domain.Liquidation, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	filter := bson.M{"time": bson.M{"$gte": start, "$lt": end}}
	return s.findLiquidations(ctx, filter)
}

func (s *MongoStore) findLiquidations(ctx context.Context, filter bson.M) ([]domain.Liquidation, error) {
	opts := options.Find().SetSort(bson.D{{Key: "time", Value: 1}})
	cur, err := s.liquidations.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("%w: find liquidations: %v", domain.ErrStorageUnavailable, err)
	}
	defer cur.Close(ctx)

	var events []domain.Liquidation
	if err := cur.All(ctx, &events); err != nil {
		return nil, fmt.Errorf("%w: decode liquidations: %v", domain.ErrStorageUnavailable, err)
	}
	return events, nil
}

// FindOrCreateSubscriber uses an upsert-with-$setOnInsert so creation is
// atomic: two concurrent callers racing on the same chatId both land on the
// same document, and the loser's writes are simply no-ops. ReturnDocument
// After hands back the winning row either way, with no separate re-read.
func (s *MongoStore) FindOrCreateSubscriber(ctx context.Context, chatID int64, firstName, username string) (domain.Subscriber, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	filter := bson.M{"chatId": chatID}
	update := bson.M{
		"$setOnInsert": bson.M{
			"chatId":                chatID,
			"firstName":             firstName,
			"username":              username,
			"trackedSymbols":        bson.A{},
			"notificationsEnabled":  true,
			"reportIntervalHours":   domain.DefaultReportIntervalHours,
			"minLiquidationAlert":   domain.DefaultMinLiquidationAlert,
			"createdAt":             time.Now().UTC(),
		},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var sub domain.Subscriber
	err := s.subscribers.FindOneAndUpdate(ctx, filter, update, opts).Decode(&sub)
	if err != nil {
		return domain.Subscriber{}, fmt.Errorf("%w: find or create subscriber: %v", domain.ErrStorageUnavailable, err)
	}
	return sub, nil
}

func (s *MongoStore) ToggleTrackedSymbol(ctx context.Context, chatID int64, symbol string) (domain.Subscriber, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	current, err := s.getSubscriber(ctx, chatID)
	if err != nil {
		return domain.Subscriber{}, err
	}

	symbols := make([]string, 0, len(current.TrackedSymbols)+1)
	found := false
	for _, sym := range current.TrackedSymbols {
		if sym == symbol {
			found = true
			continue
		}
		symbols = append(symbols, sym)
	}
	if !found {
		symbols = append(symbols, symbol)
	}

	return s.updateSubscriber(ctx, chatID, bson.M{"trackedSymbols": symbols})
}

func (s *MongoStore) SetTrackedSymbols(ctx context.Context, chatID int64, symbols []string) (domain.Subscriber, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	return s.updateSubscriber(ctx, chatID, bson.M{"trackedSymbols": symbols})
}

func (s *MongoStore) SetNotifications(ctx context.Context, chatID int64, enabled *bool) (domain.Subscriber, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	value := enabled
	if value == nil {
		current, err := s.getSubscriber(ctx, chatID)
		if err != nil {
			return domain.Subscriber{}, err
		}
		flipped := !current.NotificationsEnabled
		value = &flipped
	}
	return s.updateSubscriber(ctx, chatID, bson.M{"notificationsEnabled": *value})
}

func (s *MongoStore) SetReportInterval(ctx context.Context, chatID int64, hours int) (domain.Subscriber, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	return s.updateSubscriber(ctx, chatID, bson.M{"reportIntervalHours": hours})
}

func (s *MongoStore) SetAlertThreshold(ctx context.Context, chatID int64, amount float64) (domain.Subscriber, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	return s.updateSubscriber(ctx, chatID, bson.M{"minLiquidationAlert": amount})
}

// DisableNotifications is the C4.9/C6 path: a RecipientBlocked send failure
// disables push for that subscriber without touching any other field.
func (s *MongoStore) DisableNotifications(ctx context.Context, chatID int64) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	now := time.Now().UTC()
	_, err := s.updateSubscriberRaw(ctx, chatID, bson.M{
		"$set": bson.M{"notificationsEnabled": false, "blockedAt": now},
	})
	if err != nil {
		return fmt.Errorf("%w: disable notifications: %v", domain.ErrStorageUnavailable, err)
	}
	return nil
}

func (s *MongoStore) FindSubscribersTrackingSymbol(ctx context.Context, symbol string) ([]domain.Subscriber, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	filter := bson.M{
		"notificationsEnabled": true,
		"trackedSymbols":       symbol,
	}
	return s.findSubscribers(ctx, filter)
}

func (s *MongoStore) ActiveSubscribers(ctx context.Context) ([]domain.Subscriber, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	filter := bson.M{
		"notificationsEnabled": true,
		"trackedSymbols":       bson.M{"$ne": bson.A{}},
	}
	return s.findSubscribers(ctx, filter)
}

func (s *MongoStore) findSubscribers(ctx context.Context, filter bson.M) ([]domain.Subscriber, error) {
	cur, err := s.subscribers.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("%w: find subscribers: %v", domain.ErrStorageUnavailable, err)
	}
	defer cur.Close(ctx)

	var subs []domain.Subscriber
	if err := cur.All(ctx, &subs); err != nil {
		return nil, fmt.Errorf("%w: decode subscribers: %v", domain.ErrStorageUnavailable, err)
	}
	return subs, nil
}

func (s *MongoStore) DeleteLiquidationsOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	res, err := s.liquidations.DeleteMany(ctx, bson.M{"time": bson.M{"$lt": cutoff}})
	if err != nil {
		return 0, fmt.Errorf("%w: delete old liquidations: %v", domain.ErrStorageUnavailable, err)
	}
	return res.DeletedCount, nil
}

func (s *MongoStore) getSubscriber(ctx context.Context, chatID int64) (domain.Subscriber, error) {
	var sub domain.Subscriber
	err := s.subscribers.FindOne(ctx, bson.M{"chatId": chatID}).Decode(&sub)
	if err != nil {
		return domain.Subscriber{}, fmt.Errorf("%w: find subscriber: %v", domain.ErrStorageUnavailable, err)
	}
	return sub, nil
}

func (s *MongoStore) updateSubscriber(ctx context.Context, chatID int64, fields bson.M) (domain.Subscriber, error) {
	return s.updateSubscriberRaw(ctx, chatID, bson.M{"$set": fields})
}

func (s *MongoStore) updateSubscriberRaw(ctx context.Context, chatID int64, update bson.M) (domain.Subscriber, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var sub domain.Subscriber
	err := s.subscribers.FindOneAndUpdate(ctx, bson.M{"chatId": chatID}, update, opts).Decode(&sub)
	if err != nil {
		return domain.Subscriber{}, fmt.Errorf("%w: update subscriber: %v", domain.ErrStorageUnavailable, err)
	}
	return sub, nil
}

var _ Store = (*MongoStore)(nil)
