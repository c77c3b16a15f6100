package pg

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/zirius/shors/models"
	"github.com/zirius/shors/store"
)

func (s *Store) GetDomain(ctx context.Context, host string) (*models.Domain, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	sb := psql.Select("host, blocked, reason, created_at").
		From("domains").Where(squirrel.Eq{"host": strings.ToLower(host)})

	sqlStr, args, err := sb.ToSql()
	if err != nil {
		return nil, err
	}

	var domain models.Domain
	if err := s.db.GetContext(ctx, &domain, sqlStr, args...); err != nil {
		return nil, translate(err, "finding domain "+host)
	}
	return &domain, nil
}

// UpsertDomain blocks or unblocks a host.
func (s *Store) UpsertDomain(ctx context.Context, domain *models.Domain) error {
	if domain.CreatedAt.IsZero() {
		domain.CreatedAt = time.Now().UTC()
	}

	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	sb := psql.Insert("domains").Columns("host, blocked, reason, created_at").
		Values(strings.ToLower(domain.Host), domain.Blocked, domain.Reason, domain.CreatedAt).
		Suffix("ON CONFLICT (host) DO UPDATE SET blocked = EXCLUDED.blocked, reason = EXCLUDED.reason")

	sqlStr, args, err := sb.ToSql()
	if err != nil {
		return err
	}

	if _, err = s.db.ExecContext(ctx, sqlStr, args...); err != nil {
		return translate(err, "upserting domain "+domain.Host)
	}
	return nil
}

// Screen rejects links whose host is blocked. It lets the shortener use the
// domains table as a Screener.
func (s *Store) Screen(ctx context.Context, longURL string) (string, error) {
	u, err := url.Parse(longURL)
	if err != nil {
		return "", err
	}

	domain, err := s.GetDomain(ctx, u.Hostname())
	if store.IsNotFound(err) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	if !domain.Blocked {
		return "", nil
	}

	reason := domain.Reason
	if reason == "" {
		reason = "blocked domain"
	}
	return reason, nil
}
