// Package storetest runs the behaviour every store.Store must share. The
// checks only look at deltas so they can run against a live shared database.
package storetest

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/zirius/shors/models"
	"github.com/zirius/shors/store"
)

func Run(t *testing.T, s store.Store) {
	t.Run("Counter", func(t *testing.T) { testCounter(t, s) })
	t.Run("URL", func(t *testing.T) { testURL(t, s) })
	t.Run("Events", func(t *testing.T) { testEvents(t, s) })
}

// RunInit races first-time ReadOrInit calls against a counter that was never
// initialized. s must not share its counter with anything else.
func RunInit(t *testing.T, s store.Counter) {
	ctx := context.Background()

	var wg sync.WaitGroup
	values := make([]uint64, 20)
	for i := range values {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			n, err := s.ReadOrInit(ctx)
			assert.Nil(t, err)
			values[i] = n
		}(i)
	}
	wg.Wait()
	for _, n := range values {
		assert.Equal(t, uint64(0), n)
	}

	// a second initialization would have reset the increment
	assert.Nil(t, s.Increment(ctx))
	n, err := s.ReadOrInit(ctx)
	assert.Nil(t, err)
	assert.Equal(t, uint64(1), n)

	next, err := s.Next(ctx)
	assert.Nil(t, err)
	assert.Equal(t, uint64(1), next)
}

func testCounter(t *testing.T, s store.Store) {
	ctx := context.Background()

	start, err := s.ReadOrInit(ctx)
	assert.Nil(t, err)

	var wg sync.WaitGroup
	var mu sync.Mutex
	seen := make(map[uint64]bool)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			n, err := s.Next(ctx)
			assert.Nil(t, err)
			mu.Lock()
			seen[n] = true
			mu.Unlock()
		}()
	}
	wg.Wait()
	assert.Len(t, seen, 20)

	n, err := s.ReadOrInit(ctx)
	assert.Nil(t, err)
	assert.True(t, n >= start+20)
}

func testURL(t *testing.T, s store.Store) {
	ctx := context.Background()

	id := uuid.NewString()
	url := models.NewURL(id, "https://example.com/a?b=c", "https://sho.rs/", time.Now())

	before, err := s.CountURLs(ctx)
	assert.Nil(t, err)

	assert.Nil(t, s.InsertURL(ctx, url))
	assert.True(t, store.IsDuplicate(s.InsertURL(ctx, url)))

	found, err := s.FindURL(ctx, id)
	assert.Nil(t, err)
	assert.Equal(t, url.LongURL, found.LongURL)
	assert.Equal(t, url.Link, found.Link)
	assert.Equal(t, models.SchemaVersion, found.SchemaVersion)

	_, err = s.FindURL(ctx, uuid.NewString())
	assert.True(t, store.IsNotFound(err))

	after, err := s.CountURLs(ctx)
	assert.Nil(t, err)
	assert.True(t, after >= before+1)
}

func testEvents(t *testing.T, s store.Store) {
	ctx := context.Background()

	id := uuid.NewString()
	headers := models.Headers{"User-Agent": "curl/8.0"}
	event := models.NewAnalyticsEvent(id, headers, "10.0.0.1", time.Now())
	assert.Nil(t, s.InsertEvent(ctx, event))
	assert.True(t, store.IsDuplicate(s.InsertEvent(ctx, event)))
	assert.Nil(t, s.InsertEvent(ctx, models.NewAnalyticsEvent(id, nil, "10.0.0.2", time.Now())))

	var got []*models.AnalyticsEvent
	err := s.ForEachEvent(ctx, id, func(e *models.AnalyticsEvent) error {
		got = append(got, e)
		return nil
	})
	assert.Nil(t, err)
	assert.Len(t, got, 2)
	assert.Equal(t, id, got[0].ID)

	// errors from the callback stop the scan
	calls := 0
	stop := assert.AnError
	err = s.ForEachEvent(ctx, id, func(e *models.AnalyticsEvent) error {
		calls++
		return stop
	})
	assert.Equal(t, stop, err)
	assert.Equal(t, 1, calls)
}
