// Package shortener issues short ids for long urls and resolves them back.
package shortener

import (
	"context"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/asaskevich/govalidator"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/zirius/shors/models"
	"github.com/zirius/shors/modules/codec"
	"github.com/zirius/shors/modules/metrics"
	"github.com/zirius/shors/store"
)

const DefaultLinkPrefix = "https://sho.rs/"

// Allocator selects how counter values are handed out.
type Allocator string

const (
	// AllocatorAtomic takes each id from a single store-side increment. A
	// failed insert burns the id.
	AllocatorAtomic Allocator = "atomic"
	// AllocatorMirror keeps an in-process copy of the counter guarded by a
	// mutex and bumps the durable counter after every insert. Only one
	// process may run in this mode against a store.
	AllocatorMirror Allocator = "mirror"
)

var (
	ErrInvalidURL = errors.New("invalid url")
	ErrUnsafeURL  = errors.New("url flagged as unsafe")
)

// Store is the part of store.Store the shortener needs.
type Store interface {
	store.Counter
	InsertURL(ctx context.Context, url *models.URL) error
	FindURL(ctx context.Context, id string) (*models.URL, error)
	CountURLs(ctx context.Context) (uint64, error)
}

// Screener rejects urls known to be harmful. Screen returns a non-empty
// threat description for unsafe urls.
type Screener interface {
	Screen(ctx context.Context, longURL string) (string, error)
}

type Options struct {
	LinkPrefix string
	Allocator  Allocator
	Screener   Screener
}

type Service struct {
	store Store
	codec *codec.Codec
	opts  Options

	// mirror mode only
	mu     sync.Mutex
	nextID uint64
}

// New bootstraps the durable counter. Callers should treat an error as fatal.
func New(ctx context.Context, st Store, c *codec.Codec, opts Options) (*Service, error) {
	if opts.LinkPrefix == "" {
		opts.LinkPrefix = DefaultLinkPrefix
	}
	switch opts.Allocator {
	case "":
		opts.Allocator = AllocatorAtomic
	case AllocatorAtomic, AllocatorMirror:
	default:
		return nil, errors.Errorf("unknown allocator %q", opts.Allocator)
	}

	n, err := st.ReadOrInit(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "bootstrapping counter")
	}

	log.WithFields(log.Fields{
		"counter":   n,
		"allocator": opts.Allocator,
	}).Info("Counter ready")

	return &Service{
		store:  st,
		codec:  c,
		opts:   opts,
		nextID: n,
	}, nil
}

func (s *Service) Shorten(ctx context.Context, longURL string) (*models.URL, error) {
	longURL, err := validateURL(longURL)
	if err != nil {
		metrics.ShortenErrorsTotal.WithLabelValues("invalid").Inc()
		return nil, err
	}

	if s.opts.Screener != nil {
		threat, err := s.opts.Screener.Screen(ctx, longURL)
		if err != nil {
			// screening is best effort
			log.WithField("url", longURL).WithError(err).Warn("Unable to screen url")
		} else if threat != "" {
			metrics.ShortenErrorsTotal.WithLabelValues("unsafe").Inc()
			return nil, errors.Wrap(ErrUnsafeURL, threat)
		}
	}

	var rec *models.URL
	if s.opts.Allocator == AllocatorMirror {
		rec, err = s.shortenMirror(ctx, longURL)
	} else {
		rec, err = s.shortenAtomic(ctx, longURL)
	}
	if err != nil {
		metrics.ShortenErrorsTotal.WithLabelValues("store").Inc()
		return nil, err
	}

	metrics.URLsShortenedTotal.Inc()
	log.WithFields(log.Fields{
		"id":  rec.ID,
		"url": rec.LongURL,
	}).Info("Short URL generated")
	return rec, nil
}

func (s *Service) shortenAtomic(ctx context.Context, longURL string) (*models.URL, error) {
	n, err := s.store.Next(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "allocating id")
	}

	rec := models.NewURL(s.codec.Encode(n), longURL, s.opts.LinkPrefix, time.Now())
	if err := s.store.InsertURL(ctx, rec); err != nil {
		return nil, errors.Wrap(err, "storing url")
	}
	return rec, nil
}

func (s *Service) shortenMirror(ctx context.Context, longURL string) (*models.URL, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := models.NewURL(s.codec.Encode(s.nextID), longURL, s.opts.LinkPrefix, time.Now())
	if err := s.store.InsertURL(ctx, rec); err != nil {
		return nil, errors.Wrap(err, "storing url")
	}

	if err := s.store.Increment(ctx); err != nil {
		// the record is stored but the durable counter did not move
		metrics.CounterDivergenceTotal.Inc()
		log.WithFields(log.Fields{
			"id":      rec.ID,
			"counter": s.nextID,
		}).WithError(err).Error("Counter increment failed, counter diverged")
		return rec, nil
	}
	s.nextID++
	return rec, nil
}

// Resolve looks up the long url for id. Store failures are logged and
// reported as absent.
func (s *Service) Resolve(ctx context.Context, id string) (string, bool) {
	rec, err := s.store.FindURL(ctx, id)
	if err != nil {
		if !store.IsNotFound(err) {
			log.WithField("id", id).WithError(err).Error("Error resolving id")
		}
		return "", false
	}
	return rec.LongURL, true
}

func validateURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", errors.Wrap(ErrInvalidURL, "empty url")
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", errors.Wrap(ErrInvalidURL, err.Error())
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", errors.Wrap(ErrInvalidURL, "scheme must be http or https")
	}
	if u.Host == "" || !govalidator.IsURL(raw) {
		return "", errors.Wrap(ErrInvalidURL, "malformed url")
	}
	return raw, nil
}
