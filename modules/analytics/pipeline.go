// Package analytics captures one event per redirect off the request path and
// rolls stored events up into summaries.
package analytics

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/zirius/shors/models"
	"github.com/zirius/shors/modules/metrics"
)

const (
	DefaultWorkers      = 2
	DefaultQueueSize    = 1024
	DefaultWriteTimeout = 5 * time.Second
)

// EventWriter persists a captured event. Both the store and the que job
// writer satisfy it.
type EventWriter interface {
	InsertEvent(ctx context.Context, event *models.AnalyticsEvent) error
}

type EventScanner interface {
	ForEachEvent(ctx context.Context, id string, fn func(*models.AnalyticsEvent) error) error
}

type Options struct {
	Workers      int
	QueueSize    int
	WriteTimeout time.Duration
	Classifier   Classifier
	// Geo is optional; without it summaries carry no countries.
	Geo GeoLocator
}

// Pipeline buffers captured events in a bounded channel drained by a fixed
// set of workers. Capture never blocks: events are dropped when the buffer
// is full.
type Pipeline struct {
	writer  EventWriter
	scanner EventScanner
	opts    Options
	events  chan *models.AnalyticsEvent

	mu      sync.RWMutex
	started bool
	closed  bool
	wg      sync.WaitGroup
}

func New(writer EventWriter, scanner EventScanner, opts Options) *Pipeline {
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = DefaultQueueSize
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = DefaultWriteTimeout
	}
	if opts.Classifier == nil {
		opts.Classifier = UAClassifier{}
	}

	return &Pipeline{
		writer:  writer,
		scanner: scanner,
		opts:    opts,
		events:  make(chan *models.AnalyticsEvent, opts.QueueSize),
	}
}

func (p *Pipeline) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.startLocked()
}

func (p *Pipeline) startLocked() {
	if p.started {
		return
	}
	p.started = true
	for i := 0; i < p.opts.Workers; i++ {
		p.wg.Add(1)
		go p.work()
	}
}

// Capture records a redirect of id. It reports whether the event was
// accepted into the buffer.
func (p *Pipeline) Capture(id string, headers models.Headers, clientAddress string) bool {
	event := models.NewAnalyticsEvent(id, headers, clientAddress, time.Now())

	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		metrics.AnalyticsEventsTotal.WithLabelValues(metrics.ResultDropped).Inc()
		log.WithField("id", id).Warn("Analytics pipeline closed, dropping event")
		return false
	}

	select {
	case p.events <- event:
		metrics.AnalyticsQueueDepth.Set(float64(len(p.events)))
		return true
	default:
		metrics.AnalyticsEventsTotal.WithLabelValues(metrics.ResultDropped).Inc()
		log.WithFields(log.Fields{
			"id":         id,
			"queue_size": p.opts.QueueSize,
		}).Warn("Analytics queue full, dropping event")
		return false
	}
}

// Shutdown stops accepting events and waits until the buffered ones are
// written or ctx is done.
func (p *Pipeline) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.events)
		// buffered events still need a worker to drain them
		p.startLocked()
	}
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		log.WithField("pending", len(p.events)).Warn("Analytics drain interrupted")
		return ctx.Err()
	}
}

func (p *Pipeline) work() {
	defer p.wg.Done()

	for event := range p.events {
		metrics.AnalyticsQueueDepth.Set(float64(len(p.events)))

		ctx, cancel := context.WithTimeout(context.Background(), p.opts.WriteTimeout)
		err := p.writer.InsertEvent(ctx, event)
		cancel()

		if err != nil {
			metrics.AnalyticsEventsTotal.WithLabelValues(metrics.ResultFailed).Inc()
			log.WithFields(log.Fields{
				"id":       event.ID,
				"event_id": event.EventID,
			}).WithError(err).Error("Error storing analytics event")
			continue
		}
		metrics.AnalyticsEventsTotal.WithLabelValues(metrics.ResultStored).Inc()
	}
}

// Aggregate rebuilds the summary for id from its stored events. Store
// failures are logged and yield an empty summary.
func (p *Pipeline) Aggregate(ctx context.Context, id string) *models.AnalyticsSummary {
	summary := models.NewAnalyticsSummary()
	if p.opts.Geo != nil {
		summary.Countries = make(map[string]uint64)
	}

	err := p.scanner.ForEachEvent(ctx, id, func(event *models.AnalyticsEvent) error {
		summary.Count++

		if ua, ok := event.Headers.Get("User-Agent"); ok {
			if c, ok := p.opts.Classifier.Classify(ua); ok {
				summary.Devices[c.Category]++
				if c.OS != "" {
					summary.ClientOS[c.OS]++
				}
			}
		}

		if p.opts.Geo != nil {
			if country, ok := p.opts.Geo.Country(event.ClientAddress); ok {
				summary.Countries[country]++
			}
		}
		return nil
	})
	if err != nil {
		log.WithField("id", id).WithError(err).Error("Error aggregating analytics")
		empty := models.NewAnalyticsSummary()
		if p.opts.Geo != nil {
			empty.Countries = make(map[string]uint64)
		}
		return empty
	}
	return summary
}
