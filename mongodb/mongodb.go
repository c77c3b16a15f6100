// Package mongodb is the MongoDB store. The counter, url records and
// analytics events live in their own collections of one database.
package mongodb

import (
	"context"

	"github.com/pkg/errors"
	"github.com/zirius/shors/models"
	"github.com/zirius/shors/store"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

type Store struct {
	client    *mongo.Client
	counter   *mongo.Collection
	urls      *mongo.Collection
	analytics *mongo.Collection
}

type counterDoc struct {
	Name  string `bson:"name"`
	Count int64  `bson:"count"`
}

// Open connects and makes sure the unique indexes exist.
func Open(ctx context.Context, uri, dbName string) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, errors.Wrap(err, "connecting to mongo")
	}

	db := client.Database(dbName)
	s := &Store{
		client:    client,
		counter:   db.Collection(store.CounterCollection),
		urls:      db.Collection(store.URLCollection),
		analytics: db.Collection(store.AnalyticsCollection),
	}

	if err := s.ensureIndexes(ctx); err != nil {
		client.Disconnect(ctx)
		return nil, err
	}
	return s, nil
}

func (s *Store) ensureIndexes(ctx context.Context) error {
	unique := options.Index().SetUnique(true)

	if _, err := s.counter.Indexes().CreateOne(ctx, mongo.IndexModel{Keys: bson.D{{Key: "name", Value: 1}}, Options: unique}); err != nil {
		return errors.Wrap(err, "indexing counter")
	}
	if _, err := s.urls.Indexes().CreateOne(ctx, mongo.IndexModel{Keys: bson.D{{Key: "id", Value: 1}}, Options: unique}); err != nil {
		return errors.Wrap(err, "indexing urls")
	}
	_, err := s.analytics.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "event_id", Value: 1}}, Options: unique},
		{Keys: bson.D{{Key: "id", Value: 1}}},
	})
	return errors.Wrap(err, "indexing analytics")
}

func counterFilter() bson.M {
	return bson.M{"name": store.CounterName}
}

func (s *Store) ReadOrInit(ctx context.Context) (uint64, error) {
	_, err := s.counter.UpdateOne(ctx, counterFilter(),
		bson.M{"$setOnInsert": bson.M{"count": int64(0)}},
		options.Update().SetUpsert(true))
	// a concurrent upsert may lose the race on the unique index
	if err != nil && !mongo.IsDuplicateKeyError(err) {
		return 0, errors.Wrap(err, "initializing counter")
	}

	var doc counterDoc
	if err := s.counter.FindOne(ctx, counterFilter()).Decode(&doc); err != nil {
		return 0, errors.Wrap(err, "reading counter")
	}
	return uint64(doc.Count), nil
}

func (s *Store) Increment(ctx context.Context) error {
	res, err := s.counter.UpdateOne(ctx, counterFilter(), bson.M{"$inc": bson.M{"count": int64(1)}})
	if err != nil {
		return errors.Wrap(err, "incrementing counter")
	}
	if res.MatchedCount == 0 {
		return errors.Wrap(store.ErrNotFound, "incrementing counter")
	}
	return nil
}

func (s *Store) Next(ctx context.Context) (uint64, error) {
	var doc counterDoc
	err := s.counter.FindOneAndUpdate(ctx, counterFilter(),
		bson.M{"$inc": bson.M{"count": int64(1)}},
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return 0, errors.Wrap(store.ErrNotFound, "advancing counter")
	}
	if err != nil {
		return 0, errors.Wrap(err, "advancing counter")
	}
	return uint64(doc.Count - 1), nil
}

func (s *Store) InsertURL(ctx context.Context, u *models.URL) error {
	_, err := s.urls.InsertOne(ctx, u)
	if mongo.IsDuplicateKeyError(err) {
		return errors.Wrapf(store.ErrDuplicate, "inserting url %s", u.ID)
	}
	return errors.Wrapf(err, "inserting url %s", u.ID)
}

func (s *Store) FindURL(ctx context.Context, id string) (*models.URL, error) {
	var u models.URL
	err := s.urls.FindOne(ctx, bson.M{"id": id}).Decode(&u)
	if err == mongo.ErrNoDocuments {
		return nil, errors.Wrapf(store.ErrNotFound, "url %s", id)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "finding url %s", id)
	}
	u.CreatedAt = u.CreatedAt.UTC()
	return &u, nil
}

func (s *Store) CountURLs(ctx context.Context) (uint64, error) {
	n, err := s.urls.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, errors.Wrap(err, "counting urls")
	}
	return uint64(n), nil
}

func (s *Store) InsertEvent(ctx context.Context, event *models.AnalyticsEvent) error {
	_, err := s.analytics.InsertOne(ctx, event)
	if mongo.IsDuplicateKeyError(err) {
		return errors.Wrapf(store.ErrDuplicate, "inserting event %s", event.EventID)
	}
	return errors.Wrapf(err, "inserting event %s", event.EventID)
}

func (s *Store) ForEachEvent(ctx context.Context, id string, fn func(*models.AnalyticsEvent) error) error {
	cur, err := s.analytics.Find(ctx, bson.M{"id": id})
	if err != nil {
		return errors.Wrapf(err, "querying events for %s", id)
	}
	defer cur.Close(ctx)

	for cur.Next(ctx) {
		var event models.AnalyticsEvent
		if err := cur.Decode(&event); err != nil {
			return errors.Wrap(err, "decoding event")
		}
		event.Time = event.Time.UTC()
		if err := fn(&event); err != nil {
			return err
		}
	}
	return cur.Err()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

func (s *Store) Close() error {
	return s.client.Disconnect(context.Background())
}
