// Package config reads process settings from the environment, optionally
// seeded from a .env file.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

const (
	BackendPostgres = "postgres"
	BackendMongo    = "mongo"
	BackendRedis    = "redis"
	BackendMemory   = "memory"

	AnalyticsInline = "inline"
	AnalyticsQue    = "que"
)

type Config struct {
	Port string

	Backend     string
	DatabaseURL string
	MongoURI    string
	MongoDBName string
	RedisURL    string

	LinkPrefix string
	CodecSalt  string
	Allocator  string

	AnalyticsWorkers   int
	AnalyticsQueueSize int
	AnalyticsMode      string

	RateLimit          int64
	GeoIPDB            string
	SafeBrowsingAPIKey string

	AppName            string
	NewRelicLicenseKey string
}

// Load reads the configuration. A missing .env file is not an error.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:               os.Getenv("PORT"),
		Backend:            getenv("SHORS_BACKEND", BackendPostgres),
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		MongoURI:           os.Getenv("MONGO_URI"),
		MongoDBName:        getenv("MONGO_DBNAME", "shortener"),
		RedisURL:           os.Getenv("REDIS_URL"),
		LinkPrefix:         getenv("SHORS_LINK_PREFIX", "https://sho.rs/"),
		CodecSalt:          os.Getenv("SHORS_CODEC_SALT"),
		Allocator:          getenv("SHORS_ALLOCATOR", "atomic"),
		AnalyticsMode:      getenv("ANALYTICS_MODE", AnalyticsInline),
		GeoIPDB:            os.Getenv("GEOIP_DB"),
		SafeBrowsingAPIKey: os.Getenv("SAFEBROWSING_API_KEY"),
		AppName:            getenv("APP_NAME", "shors"),
		NewRelicLicenseKey: os.Getenv("NEW_RELIC_LICENSE_KEY"),
	}

	var err error
	if cfg.AnalyticsWorkers, err = getint("ANALYTICS_WORKERS", 2); err != nil {
		return nil, err
	}
	if cfg.AnalyticsQueueSize, err = getint("ANALYTICS_QUEUE_SIZE", 1024); err != nil {
		return nil, err
	}
	rate, err := getint("RATE_LIMIT", 100)
	if err != nil {
		return nil, err
	}
	cfg.RateLimit = int64(rate)

	if cfg.MongoURI == "" && os.Getenv("MONGO_SERVER_IP") != "" {
		cfg.MongoURI = MongoURI(os.Getenv("MONGO_USERNAME"), os.Getenv("MONGO_PASSWORD"),
			os.Getenv("MONGO_SERVER_IP"), cfg.MongoDBName)
	}

	return cfg, cfg.validate()
}

// MongoURI builds an Atlas style connection string from its parts.
func MongoURI(user, password, host, dbName string) string {
	return fmt.Sprintf("mongodb+srv://%s:%s@%s/%s?retryWrites=true&w=majority",
		url.QueryEscape(user), url.QueryEscape(password), host, dbName)
}

func (c *Config) validate() error {
	switch c.Backend {
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return errors.New("$DATABASE_URL must be set")
		}
	case BackendMongo:
		if c.MongoURI == "" {
			return errors.New("$MONGO_URI or $MONGO_SERVER_IP must be set")
		}
	case BackendRedis:
		if c.RedisURL == "" {
			return errors.New("$REDIS_URL must be set")
		}
	case BackendMemory:
	default:
		return errors.Errorf("unknown backend %q", c.Backend)
	}

	switch c.AnalyticsMode {
	case AnalyticsInline:
	case AnalyticsQue:
		if c.DatabaseURL == "" {
			return errors.New("$DATABASE_URL must be set for que analytics")
		}
	default:
		return errors.Errorf("unknown analytics mode %q", c.AnalyticsMode)
	}

	switch c.Allocator {
	case "atomic", "mirror":
	default:
		return errors.Errorf("unknown allocator %q", c.Allocator)
	}
	return nil
}

// SetupLogging applies LOG_LEVEL and LOG_FORMAT to the standard logger.
func SetupLogging() {
	log.SetOutput(os.Stdout)

	if lvl, err := log.ParseLevel(os.Getenv("LOG_LEVEL")); err == nil {
		log.SetLevel(lvl)
	}
	if strings.EqualFold(os.Getenv("LOG_FORMAT"), "json") {
		log.SetFormatter(&log.JSONFormatter{})
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getint(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, errors.Wrapf(err, "$%s must be a number", key)
	}
	return n, nil
}
