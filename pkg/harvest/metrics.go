package harvest

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	pagesFetchedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "harvest_pages_fetched_total",
		Help: "Total number of review pages received",
	})

	recordsWrittenTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "harvest_records_written_total",
		Help: "Total number of review records appended to stores",
	})

	duplicatesFilteredTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "harvest_duplicates_filtered_total",
		Help: "Total number of review records dropped as already stored",
	})

	runsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "harvest_runs_total",
		Help: "Total number of finished app harvests by outcome",
	}, []string{"outcome"}) // "done", "failed"

	retriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "harvest_retries_total",
		Help: "Total number of fetch retries by error class",
	}, []string{"error_class"})

	retryBackoffSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "harvest_retry_backoff_seconds",
		Help:    "Backoff duration before fetch retries by error class",
		Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60},
	}, []string{"error_class"})

	retryExhaustedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "harvest_retry_exhausted_total",
		Help: "Total number of fetches that exhausted their retry attempts by error class",
	}, []string{"error_class"})
)
