// Package harvest drives resumable review harvests.
//
// A Controller harvests one app: it reconstructs the position from the
// app's stored output, then loops fetch, filter and append until the
// running total is reached or the server runs out of reviews. A Driver runs
// controllers for many apps on a fixed pool of workers.
//
// # Basic Usage
//
//	client, _ := steam.New(steam.DefaultConfig(), nil)
//	st := store.New("data")
//
//	ctrl := harvest.NewController(client, st, harvest.DefaultConfig())
//	driver := harvest.NewDriver(ctrl, 4)
//
//	summary := driver.Run(ctx, []string{"570", "730"})
//	fmt.Printf("%d done, %d failed\n", summary.Succeeded, summary.Failed)
//
// # Completion
//
// The harvest of an app ends as DONE when the offset reaches the running
// total, or as soon as a page comes back without reviews. The offset counts
// the reviews the server reported, not the ones that survived duplicate
// filtering, so it stays aligned with the server's own pagination.
//
// # Failures
//
// Transport errors of retryable classes are retried with jittered
// exponential backoff. Client errors, malformed pages and API-level failures
// end the app's harvest as FAILED. Pages are appended whole, so a failed or
// interrupted harvest leaves a store that the next run resumes from.
//
// # Metrics
//
//   - harvest_pages_fetched_total - Pages received from the fetcher
//   - harvest_records_written_total - Records appended to stores
//   - harvest_duplicates_filtered_total - Records dropped as duplicates
//   - harvest_runs_total{outcome} - Finished harvests by outcome
//   - harvest_retries_total{error_class} - Fetch retries
//   - harvest_retry_backoff_seconds{error_class} - Backoff before retries
//   - harvest_retry_exhausted_total{error_class} - Fetches that ran out of attempts
package harvest
