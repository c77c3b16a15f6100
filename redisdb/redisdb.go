// Package redisdb is the Redis store. Records are kept as JSON strings, the
// counter as a plain integer key.
package redisdb

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/zirius/shors/models"
	"github.com/zirius/shors/store"
)


// incrExisting increments KEYS[1] only when it exists and returns the new
// value, or -1 when the counter was never initialized.
var incrExisting = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 0 then
	return -1
end
return redis.call("INCR", KEYS[1])
`)

// insertURL stores the record at KEYS[1] and indexes ARGV[2] in KEYS[2] in
// one step. It returns 0 when the id is taken.
var insertURL = redis.NewScript(`
if redis.call("SETNX", KEYS[1], ARGV[1]) == 0 then
	return 0
end
redis.call("SADD", KEYS[2], ARGV[2])
return 1
`)

// insertEvent appends ARGV[2] to KEYS[2] unless the event id ARGV[1] is
// already in KEYS[1]. It returns 0 for a duplicate.
var insertEvent = redis.NewScript(`
if redis.call("SISMEMBER", KEYS[1], ARGV[1]) == 1 then
	return 0
end
redis.call("RPUSH", KEYS[2], ARGV[2])
redis.call("SADD", KEYS[1], ARGV[1])
return 1
`)

type Store struct {
	client *redis.Client
	// prefix namespaces every key, empty in production.
	prefix string
}

type urlRecord struct {
	models.URL
	SchemaVersion int `json:"schema_version"`
}

func Open(redisURL string) (*Store, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, errors.Wrap(err, "parsing redis url")
	}
	return &Store{client: redis.NewClient(opts)}, nil
}

func (s *Store) counterKey() string {
	return s.prefix + store.CounterCollection + ":" + store.CounterName
}

func (s *Store) urlKey(id string) string {
	return s.prefix + store.URLCollection + ":" + id
}

func (s *Store) urlIDsKey() string {
	return s.prefix + store.URLCollection + ":ids"
}

func (s *Store) eventsKey(id string) string {
	return s.prefix + store.AnalyticsCollection + ":" + id
}

func (s *Store) eventIDsKey(id string) string {
	return s.prefix + store.AnalyticsCollection + ":" + id + ":ids"
}

func (s *Store) ReadOrInit(ctx context.Context) (uint64, error) {
	if err := s.client.SetNX(ctx, s.counterKey(), 0, 0).Err(); err != nil {
		return 0, errors.Wrap(err, "initializing counter")
	}
	n, err := s.client.Get(ctx, s.counterKey()).Uint64()
	if err != nil {
		return 0, errors.Wrap(err, "reading counter")
	}
	return n, nil
}

func (s *Store) incr(ctx context.Context) (uint64, error) {
	n, err := incrExisting.Run(ctx, s.client, []string{s.counterKey()}).Int64()
	if err != nil {
		return 0, errors.Wrap(err, "incrementing counter")
	}
	if n < 0 {
		return 0, errors.Wrap(store.ErrNotFound, "incrementing counter")
	}
	return uint64(n), nil
}

func (s *Store) Increment(ctx context.Context) error {
	_, err := s.incr(ctx)
	return err
}

func (s *Store) Next(ctx context.Context) (uint64, error) {
	n, err := s.incr(ctx)
	if err != nil {
		return 0, err
	}
	return n - 1, nil
}

func (s *Store) InsertURL(ctx context.Context, url *models.URL) error {
	enc, err := json.Marshal(urlRecord{URL: *url, SchemaVersion: url.SchemaVersion})
	if err != nil {
		return errors.Wrap(err, "marshalling url")
	}

	added, err := insertURL.Run(ctx, s.client, []string{s.urlKey(url.ID), s.urlIDsKey()}, enc, url.ID).Int64()
	if err != nil {
		return errors.Wrapf(err, "inserting url %s", url.ID)
	}
	if added == 0 {
		return errors.Wrapf(store.ErrDuplicate, "inserting url %s", url.ID)
	}
	return nil
}

func (s *Store) FindURL(ctx context.Context, id string) (*models.URL, error) {
	raw, err := s.client.Get(ctx, s.urlKey(id)).Bytes()
	if err == redis.Nil {
		return nil, errors.Wrapf(store.ErrNotFound, "url %s", id)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "finding url %s", id)
	}

	var rec urlRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, errors.Wrap(err, "unmarshalling url")
	}
	url := rec.URL
	url.SchemaVersion = rec.SchemaVersion
	return &url, nil
}

func (s *Store) CountURLs(ctx context.Context) (uint64, error) {
	n, err := s.client.SCard(ctx, s.urlIDsKey()).Uint64()
	return n, errors.Wrap(err, "counting urls")
}

func (s *Store) InsertEvent(ctx context.Context, event *models.AnalyticsEvent) error {
	enc, err := json.Marshal(event)
	if err != nil {
		return errors.Wrap(err, "marshalling event")
	}

	keys := []string{s.eventIDsKey(event.ID), s.eventsKey(event.ID)}
	added, err := insertEvent.Run(ctx, s.client, keys, event.EventID, enc).Int64()
	if err != nil {
		return errors.Wrapf(err, "inserting event %s", event.EventID)
	}
	if added == 0 {
		return errors.Wrapf(store.ErrDuplicate, "inserting event %s", event.EventID)
	}
	return nil
}

func (s *Store) ForEachEvent(ctx context.Context, id string, fn func(*models.AnalyticsEvent) error) error {
	raws, err := s.client.LRange(ctx, s.eventsKey(id), 0, -1).Result()
	if err != nil {
		return errors.Wrapf(err, "querying events for %s", id)
	}

	for _, raw := range raws {
		var event models.AnalyticsEvent
		if err := json.Unmarshal([]byte(raw), &event); err != nil {
			return errors.Wrap(err, "unmarshalling event")
		}
		if err := fn(&event); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *Store) Close() error {
	return s.client.Close()
}
