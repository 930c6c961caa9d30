// Package metrics exposes the harvester's Prometheus metrics over HTTP.
// All metrics are defined in their respective packages (steam, harvest,
// ratelimit, progress) and registered with the default registry via promauto.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler returns a mux serving /metrics and /health.
func Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", healthHandler)
	return mux
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}

// Metrics Documentation
//
// Request Metrics (pkg/steam):
//   - steam_requests_total{status} (Counter): Review page requests by HTTP status
//   - steam_request_duration_seconds (Histogram): Review page request duration
//   - steam_errors_total{class} (Counter): Errors by class (client, server, rate_limit, network)
//
// Harvest Metrics (pkg/harvest):
//   - harvest_pages_fetched_total (Counter): Pages received
//   - harvest_records_written_total (Counter): Records appended to stores
//   - harvest_duplicates_filtered_total (Counter): Records dropped as already stored
//   - harvest_runs_total{outcome} (Counter): Finished app harvests (done, failed)
//
// Retry Metrics (pkg/harvest):
//   - harvest_retries_total{error_class} (Counter): Fetch retries by error class
//   - harvest_retry_backoff_seconds{error_class} (Histogram): Backoff before retries
//   - harvest_retry_exhausted_total{error_class} (Counter): Fetches that ran out of attempts
//
// Cooldown Metrics (pkg/ratelimit):
//   - steam_rate_limit_cooldowns_total (Counter): Cooldowns started after 429 responses
//   - steam_rate_limit_waits_total (Counter): Requests delayed by an active cooldown
//
// Progress Metrics (pkg/progress):
//   - harvest_progress_reports_total (Counter): Status reports written
//   - harvest_progress_errors_total{operation} (Counter): Ledger errors
//
// Example Prometheus Queries:
//
//   # Harvest failure ratio
//   sum(rate(harvest_runs_total{outcome="failed"}[1h])) / sum(rate(harvest_runs_total[1h]))
//
//   # Duplicate share of fetched records
//   rate(harvest_duplicates_filtered_total[5m]) /
//   (rate(harvest_records_written_total[5m]) + rate(harvest_duplicates_filtered_total[5m]))
//
//   # P95 Request Latency
//   histogram_quantile(0.95, rate(steam_request_duration_seconds_bucket[5m]))
