// Package metrics exports the pipeline's Prometheus metrics.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "recipe_comb"

var (
	scrapesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "scrapes_total",
		Help:      "Scrape requests by platform and outcome (scraped, cached, failed)",
	}, []string{"platform", "outcome"})

	scrapeDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "scrape_duration_seconds",
		Help:      "Time to fetch and parse one post page",
		Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	}, []string{"platform"})

	rateLimitedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "rate_limited_total",
		Help:      "Requests rejected by the rate limiter",
	})

	extractionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "extractions_total",
		Help:      "Extraction workflow runs by outcome (created, existing, failed)",
	}, []string{"outcome"})

	transcriptionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "transcriptions_total",
		Help:      "Video enrichment results by transcription status",
	}, []string{"status"})

	workflowDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "workflow_duration_seconds",
		Help:      "End-to-end extraction workflow time",
		Buckets:   []float64{0.01, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
	})

	mediaFilesRemoved = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "media_files_removed_total",
		Help:      "Temporary media files deleted by cleanup",
	})
)

// Scrape outcomes.
const (
	OutcomeScraped = "scraped"
	OutcomeCached  = "cached"
	OutcomeFailed  = "failed"
)

// Extraction outcomes.
const (
	OutcomeCreated  = "created"
	OutcomeExisting = "existing"
)

func RecordScrape(platform, outcome string, duration time.Duration) {
	scrapesTotal.WithLabelValues(platform, outcome).Inc()
	if outcome != OutcomeCached {
		scrapeDuration.WithLabelValues(platform).Observe(duration.Seconds())
	}
}

func RecordRateLimited() {
	rateLimitedTotal.Inc()
}

func RecordExtraction(outcome string, duration time.Duration) {
	extractionsTotal.WithLabelValues(outcome).Inc()
	workflowDuration.Observe(duration.Seconds())
}

func RecordTranscription(status string) {
	transcriptionsTotal.WithLabelValues(status).Inc()
}

func RecordMediaRemoved(n int) {
	mediaFilesRemoved.Add(float64(n))
}

// Handler serves the default registry for /metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}
