// Package progress records per-app harvest status in Redis.
//
// The ledger is an observation channel, not a source of truth: the resume
// position always comes from the stored CSV output. It lets operators and
// other processes see which apps are running, done or failed and how far a
// harvest got without reading the output files.
//
// # Basic Usage
//
//	redisClient := redis.NewClient(&redis.Options{
//		Addr: "localhost:6379",
//	})
//
//	ledger := progress.NewLedger(redisClient, progress.DefaultTTL)
//
//	// Written by the harvest controller after every page and at the end.
//	err := ledger.Report(ctx, progress.Status{
//		AppID:  "570",
//		State:  "FETCHING",
//		Offset: 200,
//		Total:  250,
//	})
//
//	status, err := ledger.Get(ctx, "570")
//	if err == progress.ErrNotFound {
//		// never harvested, or the entry expired
//	}
//
// # Metrics
//
//   - harvest_progress_reports_total - Status writes
//   - harvest_progress_errors_total{operation} - Ledger operation errors
package progress
