// Package pg is the Postgres store, built on sqlx and squirrel.
package pg

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/zirius/shors/store"
)

const uniqueViolation = "23505"

type Store struct {
	db *sqlx.DB
}

func Open(databaseURL string) (*Store, error) {
	db, err := sqlx.Open("postgres", databaseURL)
	if err != nil {
		return nil, errors.Wrap(err, "opening postgres")
	}
	return &Store{db: db}, nil
}

// DB exposes the underlying handle for callers that share the connection.
func (s *Store) DB() *sqlx.DB {
	return s.db
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Close() error {
	return s.db.Close()
}

// translate maps driver errors onto the store sentinels.
func translate(err error, msg string) error {
	if err == nil {
		return nil
	}
	if err == sql.ErrNoRows {
		return errors.Wrap(store.ErrNotFound, msg)
	}
	if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == uniqueViolation {
		return errors.Wrap(store.ErrDuplicate, msg)
	}
	return errors.Wrap(err, msg)
}
