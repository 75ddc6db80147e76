package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Sync pipeline metrics
var (
	SyncsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "place_syncs_total",
			Help: "Sync attempts per source and outcome",
		},
		[]string{"source", "outcome"},
	)

	PlacesAdded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "place_sync_places_added_total",
			Help: "Base records appended by reconcile, per source",
		},
		[]string{"source"},
	)

	DuplicatesSkipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "place_sync_duplicates_skipped_total",
			Help: "Incoming records skipped as duplicates, per source",
		},
		[]string{"source"},
	)

	VerificationMismatches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "place_sync_verification_mismatches_total",
			Help: "Syncs whose reconcile count disagreed with observed store growth",
		},
		[]string{"source"},
	)

	FetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "place_sync_fetch_duration_seconds",
			Help:    "Feed fetch latency per source",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"source"},
	)
)

// Store metrics
var (
	// StoreFlushFailures makes fire-and-forget persistence failures
	// observable. Flush errors are swallowed at the store boundary, so this
	// counter plus the log line is the only trace they leave.
	StoreFlushFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "place_store_flush_failures_total",
			Help: "Asynchronous store flushes that failed",
		},
	)

	StorePlaces = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "place_store_places",
			Help: "Base records currently held by the store",
		},
	)

	StoreEdits = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "place_store_edits",
			Help: "Overlay edit entries currently held by the store",
		},
	)
)
