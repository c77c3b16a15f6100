package pg

import (
	"context"

	"github.com/Masterminds/squirrel"
	"github.com/zirius/shors/models"
	"github.com/zirius/shors/store"
)

func (s *Store) InsertEvent(ctx context.Context, event *models.AnalyticsEvent) error {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	sb := psql.Insert(store.AnalyticsCollection).Columns("event_id, id, headers, client_address, time, schema_version").
		Values(event.EventID, event.ID, event.Headers, event.ClientAddress, event.Time, event.SchemaVersion)

	sqlStr, args, err := sb.ToSql()
	if err != nil {
		return err
	}

	if _, err = s.db.ExecContext(ctx, sqlStr, args...); err != nil {
		return translate(err, "inserting event "+event.EventID)
	}
	return nil
}

func (s *Store) ForEachEvent(ctx context.Context, id string, fn func(*models.AnalyticsEvent) error) error {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	sb := psql.Select("event_id, id, headers, client_address, time, schema_version").
		From(store.AnalyticsCollection).Where(squirrel.Eq{"id": id}).OrderBy("time")

	sqlStr, args, err := sb.ToSql()
	if err != nil {
		return err
	}

	rows, err := s.db.QueryxContext(ctx, sqlStr, args...)
	if err != nil {
		return translate(err, "querying events for "+id)
	}
	defer rows.Close()

	for rows.Next() {
		var event models.AnalyticsEvent
		if err := rows.StructScan(&event); err != nil {
			return translate(err, "scanning event")
		}
		event.Time = event.Time.UTC()
		if err := fn(&event); err != nil {
			return err
		}
	}
	return rows.Err()
}
