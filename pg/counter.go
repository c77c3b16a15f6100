package pg

import (
	"context"

	"github.com/Masterminds/squirrel"
	"github.com/zirius/shors/store"
)

func (s *Store) ReadOrInit(ctx context.Context) (uint64, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	sb := psql.Insert(store.CounterCollection).Columns("name, count").Values(store.CounterName, 0).
		Suffix("ON CONFLICT (name) DO NOTHING")

	sqlStr, args, err := sb.ToSql()
	if err != nil {
		return 0, err
	}
	if _, err = s.db.ExecContext(ctx, sqlStr, args...); err != nil {
		return 0, translate(err, "initializing counter")
	}

	sqlStr, args, err = psql.Select("count").From(store.CounterCollection).
		Where(squirrel.Eq{"name": store.CounterName}).ToSql()
	if err != nil {
		return 0, err
	}

	var count int64
	if err := s.db.QueryRowxContext(ctx, sqlStr, args...).Scan(&count); err != nil {
		return 0, translate(err, "reading counter")
	}
	return uint64(count), nil
}

func (s *Store) Increment(ctx context.Context) error {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	sb := psql.Update(store.CounterCollection).Set("count", squirrel.Expr("count + 1")).
		Where(squirrel.Eq{"name": store.CounterName})

	sqlStr, args, err := sb.ToSql()
	if err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return translate(err, "incrementing counter")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return translate(store.ErrNotFound, "incrementing counter")
	}
	return nil
}

func (s *Store) Next(ctx context.Context) (uint64, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	sb := psql.Update(store.CounterCollection).Set("count", squirrel.Expr("count + 1")).
		Where(squirrel.Eq{"name": store.CounterName}).
		Suffix("RETURNING count")

	sqlStr, args, err := sb.ToSql()
	if err != nil {
		return 0, err
	}

	var count int64
	if err := s.db.QueryRowxContext(ctx, sqlStr, args...).Scan(&count); err != nil {
		return 0, translate(err, "advancing counter")
	}
	return uint64(count - 1), nil
}
