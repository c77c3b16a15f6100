// Package store defines the contract every backing store implements: the
// durable counter, url records and analytics events.
package store

import (
	"context"

	"github.com/pkg/errors"
	"github.com/zirius/shors/models"
)

// Collection (table, key prefix) names shared by all backends.
const (
	CounterCollection   = "counter"
	URLCollection       = "shortener"
	AnalyticsCollection = "analytics"

	// CounterName identifies the singleton counter document.
	CounterName = "counter"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("duplicate key")
)

// Counter is the single monotonically increasing sequence used to allocate
// ids. Every mutation happens as one atomic operation inside the store.
type Counter interface {
	// ReadOrInit creates the counter with count 0 when it does not exist yet
	// and returns the current count. Concurrent first callers all observe the
	// value written by the one initialization that won.
	ReadOrInit(ctx context.Context) (uint64, error)
	// Increment adds one to the count.
	Increment(ctx context.Context) error
	// Next adds one to the count and returns the value it had before.
	Next(ctx context.Context) (uint64, error)
}

// Records persists url records and analytics events.
type Records interface {
	InsertURL(ctx context.Context, url *models.URL) error
	FindURL(ctx context.Context, id string) (*models.URL, error)
	CountURLs(ctx context.Context) (uint64, error)

	InsertEvent(ctx context.Context, event *models.AnalyticsEvent) error
	// ForEachEvent calls fn for every event recorded for id. A non-nil error
	// from fn stops the scan and is returned.
	ForEachEvent(ctx context.Context, id string, fn func(*models.AnalyticsEvent) error) error
}

type Store interface {
	Counter
	Records
	Ping(ctx context.Context) error
	Close() error
}

// IsNotFound reports whether err was caused by a missing record.
func IsNotFound(err error) bool {
	return errors.Cause(err) == ErrNotFound
}

// IsDuplicate reports whether err was caused by a unique key collision.
func IsDuplicate(err error) bool {
	return errors.Cause(err) == ErrDuplicate
}
