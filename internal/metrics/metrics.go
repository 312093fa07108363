package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Ingestion metrics
	EventsIngested = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "secret_events_ingested_total",
			Help: "Total number of pushed events by type and outcome",
		},
		[]string{"event_type", "status"},
	)

	IngestDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "secret_ingest_duration_seconds",
			Help:    "Duration of push operations in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Read path metrics
	EventRowsDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "secret_event_rows_dropped_total",
			Help: "Total number of log rows skipped because their event type could not be parsed",
		},
	)

	LookupFallbackDepth = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "secret_lookup_fallback_depth",
			Help:    "Number of parent domains tried before a host lookup finished",
			Buckets: []float64{0, 1, 2, 3, 4, 6, 8},
		},
	)

	LookupCache = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "secret_lookup_cache_total",
			Help: "Host lookup cache outcomes",
		},
		[]string{"result"},
	)
)
