package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CatalogRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gamelogger_catalog_requests_total",
		Help: "Catalog round-trips by query kind and outcome.",
	}, []string{"kind", "outcome"}) // outcome: ok, transport_error, malformed, cancelled

	CatalogDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "gamelogger_catalog_request_duration_seconds",
		Help:    "Duration of catalog requests in seconds, including retries.",
		Buckets: prometheus.DefBuckets,
	}, []string{"kind"})

	ImageFetches = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gamelogger_image_fetches_total",
		Help: "Image retrievals by artwork kind and outcome.",
	}, []string{"kind", "outcome"}) // kind: covers, screenshots; outcome: ok, error

	CacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gamelogger_response_cache_hits_total",
		Help: "Catalog responses served from the in-memory cache.",
	})
)

// RecordCatalog counts one catalog request and observes its duration.
func RecordCatalog(kind, outcome string, start time.Time) {
	CatalogRequests.WithLabelValues(kind, outcome).Inc()
	CatalogDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
}

// RecordImage counts one image retrieval of the given artwork kind.
func RecordImage(kind string, err error) {
	if err != nil {
		ImageFetches.WithLabelValues(kind, "error").Inc()
		return
	}
	ImageFetches.WithLabelValues(kind, "ok").Inc()
}
