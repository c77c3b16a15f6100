package pg

import (
	"context"

	"github.com/Masterminds/squirrel"
	"github.com/zirius/shors/models"
	"github.com/zirius/shors/store"
)

func (s *Store) InsertURL(ctx context.Context, url *models.URL) error {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	sb := psql.Insert(store.URLCollection).Columns("id, long_url, link, created_at, archived, schema_version").
		Values(url.ID, url.LongURL, url.Link, url.CreatedAt, url.Archived, url.SchemaVersion)

	sqlStr, args, err := sb.ToSql()
	if err != nil {
		return err
	}

	if _, err = s.db.ExecContext(ctx, sqlStr, args...); err != nil {
		return translate(err, "inserting url "+url.ID)
	}
	return nil
}

func (s *Store) FindURL(ctx context.Context, id string) (*models.URL, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	sb := psql.Select("id, long_url, link, created_at, archived, schema_version").
		From(store.URLCollection).Where(squirrel.Eq{"id": id})

	sqlStr, args, err := sb.ToSql()
	if err != nil {
		return nil, err
	}

	var url models.URL
	if err := s.db.GetContext(ctx, &url, sqlStr, args...); err != nil {
		return nil, translate(err, "finding url "+id)
	}
	url.CreatedAt = url.CreatedAt.UTC()
	return &url, nil
}

func (s *Store) CountURLs(ctx context.Context) (uint64, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	sqlStr, args, err := psql.Select("COUNT(*)").From(store.URLCollection).ToSql()
	if err != nil {
		return 0, err
	}

	var n int64
	if err := s.db.GetContext(ctx, &n, sqlStr, args...); err != nil {
		return 0, translate(err, "counting urls")
	}
	return uint64(n), nil
}
