package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	URLsShortenedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "shors_urls_shortened_total",
		Help: "Short urls issued.",
	})

	ShortenErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "shors_shorten_errors_total",
		Help: "Shorten requests that failed, by reason.",
	}, []string{"reason"})

	RedirectsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "shors_redirects_total",
		Help: "Id resolution attempts.",
	}, []string{"status"})

	RedirectDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "shors_redirect_duration_seconds",
		Help:    "Time from request receipt to redirect response.",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5},
	})

	AnalyticsEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "shors_analytics_events_total",
		Help: "Analytics events by outcome (stored, dropped, failed).",
	}, []string{"result"})

	AnalyticsQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "shors_analytics_queue_depth",
		Help: "Events waiting in the capture buffer.",
	})

	CounterDivergenceTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "shors_counter_divergence_total",
		Help: "Records persisted whose durable counter increment failed.",
	})

	CounterValue = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "shors_counter_value",
		Help: "Durable counter value seen by the last audit.",
	})

	URLRecordsTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "shors_url_records",
		Help: "Url records counted by the last audit.",
	})
)

const (
	ResultStored  = "stored"
	ResultDropped = "dropped"
	ResultFailed  = "failed"
)
