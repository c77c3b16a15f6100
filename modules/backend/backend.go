// Package backend opens the configured store.
package backend

import (
	"context"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/zirius/shors/config"
	"github.com/zirius/shors/memdb"
	"github.com/zirius/shors/mongodb"
	"github.com/zirius/shors/pg"
	"github.com/zirius/shors/redisdb"
	"github.com/zirius/shors/store"
)

// Open connects to the backend named in cfg, running schema migrations
// first for postgres, and checks that it answers.
func Open(ctx context.Context, cfg *config.Config) (store.Store, error) {
	var (
		st  store.Store
		err error
	)

	switch cfg.Backend {
	case config.BackendPostgres:
		if err = pg.Migrate(cfg.DatabaseURL); err != nil {
			return nil, err
		}
		st, err = pg.Open(cfg.DatabaseURL)
	case config.BackendMongo:
		st, err = mongodb.Open(ctx, cfg.MongoURI, cfg.MongoDBName)
	case config.BackendRedis:
		st, err = redisdb.Open(cfg.RedisURL)
	case config.BackendMemory:
		st = memdb.New()
	default:
		return nil, errors.Errorf("unknown backend %q", cfg.Backend)
	}
	if err != nil {
		return nil, err
	}

	if err := st.Ping(ctx); err != nil {
		st.Close()
		return nil, errors.Wrapf(err, "pinging %s", cfg.Backend)
	}

	log.WithField("backend", cfg.Backend).Info("Connected to store")
	return st, nil
}
