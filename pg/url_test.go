package pg

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zirius/shors/models"
	"github.com/zirius/shors/store"
	"github.com/zirius/shors/store/storetest"
	"github.com/zirius/shors/test"
)

func setup(t *testing.T) *Store {
	dbURL := test.GetTestPgURL(t)
	assert.Nil(t, Migrate(dbURL))

	s, err := Open(dbURL)
	assert.Nil(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// setupSchema migrates and opens a throwaway schema, so the counter row does
// not exist yet.
func setupSchema(t *testing.T) *Store {
	dbURL := test.GetTestPgSchemaURL(t)
	require.Nil(t, Migrate(dbURL))

	s, err := Open(dbURL)
	require.Nil(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestCounter(t *testing.T) {
	ctx := context.Background()
	s := setup(t)

	start, err := s.ReadOrInit(ctx)
	assert.Nil(t, err)

	// Test Increment
	assert.Nil(t, s.Increment(ctx))
	n, err := s.ReadOrInit(ctx)
	assert.Nil(t, err)
	assert.Equal(t, start+1, n)

	// Test Next
	next, err := s.Next(ctx)
	assert.Nil(t, err)
	assert.Equal(t, start+1, next)

	n, err = s.ReadOrInit(ctx)
	assert.Nil(t, err)
	assert.Equal(t, start+2, n)
}

func TestURL(t *testing.T) {
	ctx := context.Background()
	s := setup(t)

	id := uuid.NewString()
	url := models.NewURL(id, "https://example.com", "https://sho.rs/", time.Now())

	// Test InsertURL
	err := s.InsertURL(ctx, url)
	assert.Nil(t, err)

	err = s.InsertURL(ctx, url)
	assert.True(t, store.IsDuplicate(err))

	// Test FindURL
	returned, err := s.FindURL(ctx, id)
	assert.Nil(t, err)
	assert.Equal(t, url.LongURL, returned.LongURL)
	assert.Equal(t, url.Link, returned.Link)

	_, err = s.FindURL(ctx, uuid.NewString())
	assert.True(t, store.IsNotFound(err))

	// Test CountURLs
	n, err := s.CountURLs(ctx)
	assert.Nil(t, err)
	assert.True(t, n >= 1)
}

func TestAnalytics(t *testing.T) {
	ctx := context.Background()
	s := setup(t)

	id := uuid.NewString()
	headers := models.Headers{"User-Agent": "Mozilla/5.0 (Windows NT 10.0; Win64; x64)"}
	for i := 0; i < 2; i++ {
		err := s.InsertEvent(ctx, models.NewAnalyticsEvent(id, headers, "10.0.0.1", time.Now()))
		assert.Nil(t, err)
	}

	var events []*models.AnalyticsEvent
	err := s.ForEachEvent(ctx, id, func(e *models.AnalyticsEvent) error {
		events = append(events, e)
		return nil
	})
	assert.Nil(t, err)
	assert.Len(t, events, 2)
	assert.Equal(t, headers, events[0].Headers)
	assert.Equal(t, "10.0.0.1", events[0].ClientAddress)
}

func TestStoreContract(t *testing.T) {
	storetest.Run(t, setup(t))
}

func TestCounterInitRace(t *testing.T) {
	storetest.RunInit(t, setupSchema(t))
}

func TestDomain(t *testing.T) {
	ctx := context.Background()
	s := setup(t)

	host := uuid.NewString() + ".example.com"
	link := "https://" + host + "/path"

	threat, err := s.Screen(ctx, link)
	assert.Nil(t, err)
	assert.Empty(t, threat)

	err = s.UpsertDomain(ctx, &models.Domain{Host: host, Blocked: true, Reason: "phishing"})
	assert.Nil(t, err)

	threat, err = s.Screen(ctx, link)
	assert.Nil(t, err)
	assert.Equal(t, "phishing", threat)

	err = s.UpsertDomain(ctx, &models.Domain{Host: host, Blocked: false})
	assert.Nil(t, err)

	threat, err = s.Screen(ctx, link)
	assert.Nil(t, err)
	assert.Empty(t, threat)
}
