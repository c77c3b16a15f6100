// Package memdb is an in-process store backed by go-cache. It is used for
// local development and by the tests of the packages above the store.
package memdb

import (
	"context"
	"strings"
	"sync"

	"github.com/patrickmn/go-cache"
	"github.com/pkg/errors"
	"github.com/zirius/shors/models"
	"github.com/zirius/shors/store"
)

const (
	counterKey   = store.CounterCollection + ":" + store.CounterName
	urlPrefix    = store.URLCollection + ":"
	eventsPrefix = store.AnalyticsCollection + ":"
)

type Store struct {
	cache *cache.Cache

	// guards the read-append-write of event lists
	mu sync.Mutex
}

func New() *Store {
	return &Store{
		cache: cache.New(cache.NoExpiration, 0),
	}
}

func (s *Store) ReadOrInit(_ context.Context) (uint64, error) {
	// Add fails when the key exists, so only the first caller initializes.
	_ = s.cache.Add(counterKey, uint64(0), cache.NoExpiration)

	v, ok := s.cache.Get(counterKey)
	if !ok {
		return 0, errors.Wrap(store.ErrNotFound, "reading counter")
	}
	return v.(uint64), nil
}

func (s *Store) Increment(_ context.Context) error {
	if _, err := s.cache.IncrementUint64(counterKey, 1); err != nil {
		return errors.Wrap(store.ErrNotFound, err.Error())
	}
	return nil
}

func (s *Store) Next(_ context.Context) (uint64, error) {
	n, err := s.cache.IncrementUint64(counterKey, 1)
	if err != nil {
		return 0, errors.Wrap(store.ErrNotFound, err.Error())
	}
	return n - 1, nil
}

func (s *Store) InsertURL(_ context.Context, url *models.URL) error {
	if err := s.cache.Add(urlPrefix+url.ID, *url, cache.NoExpiration); err != nil {
		return errors.Wrapf(store.ErrDuplicate, "inserting url %s", url.ID)
	}
	return nil
}

func (s *Store) FindURL(_ context.Context, id string) (*models.URL, error) {
	v, ok := s.cache.Get(urlPrefix + id)
	if !ok {
		return nil, errors.Wrapf(store.ErrNotFound, "url %s", id)
	}
	url := v.(models.URL)
	return &url, nil
}

func (s *Store) CountURLs(_ context.Context) (uint64, error) {
	var n uint64
	for k := range s.cache.Items() {
		if strings.HasPrefix(k, urlPrefix) {
			n++
		}
	}
	return n, nil
}

func (s *Store) InsertEvent(_ context.Context, event *models.AnalyticsEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var events []models.AnalyticsEvent
	if v, ok := s.cache.Get(eventsPrefix + event.ID); ok {
		events = v.([]models.AnalyticsEvent)
	}
	for _, e := range events {
		if e.EventID == event.EventID {
			return errors.Wrapf(store.ErrDuplicate, "inserting event %s", event.EventID)
		}
	}
	events = append(events, *event)
	s.cache.Set(eventsPrefix+event.ID, events, cache.NoExpiration)
	return nil
}

func (s *Store) ForEachEvent(ctx context.Context, id string, fn func(*models.AnalyticsEvent) error) error {
	s.mu.Lock()
	var events []models.AnalyticsEvent
	if v, ok := s.cache.Get(eventsPrefix + id); ok {
		events = append(events, v.([]models.AnalyticsEvent)...)
	}
	s.mu.Unlock()

	for i := range events {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(&events[i]); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) Ping(_ context.Context) error {
	return nil
}

func (s *Store) Close() error {
	s.cache.Flush()
	return nil
}
