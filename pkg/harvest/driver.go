package harvest

import (
	"context"
	"sync"
	"time"

	"github.com/Sternrassler/steam-review-harvester/pkg/logging"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Harvester harvests a single app.
type Harvester interface {
	Harvest(ctx context.Context, appID string) (Result, error)
}

// Summary aggregates the results of a driver run.
type Summary struct {
	// Results holds one entry per harvested app, in completion order.
	Results []Result

	Succeeded int
	Failed    int

	// Skipped counts duplicate app IDs in the input plus apps that were
	// never started because ctx was cancelled.
	Skipped int
}

// Driver runs harvests for many apps on a fixed number of workers.
type Driver struct {
	harvester Harvester
	workers   int
	logger    zerolog.Logger
}

// NewDriver creates a driver with the given number of workers (minimum 1).
func NewDriver(h Harvester, workers int) *Driver {
	if workers <= 0 {
		workers = 1
	}
	return &Driver{
		harvester: h,
		workers:   workers,
		logger:    logging.NewLogger("driver"),
	}
}

// Run harvests every app in appIDs. Each distinct ID is harvested at most
// once. A failed harvest is recorded in the summary and does not stop the
// others. Cancelling ctx stops dispatching new apps.
func (d *Driver) Run(ctx context.Context, appIDs []string) Summary {
	start := time.Now()

	ids := unique(appIDs)
	summary := Summary{Skipped: len(appIDs) - len(ids)}
	var mu sync.Mutex

	workers := d.workers
	if workers > len(ids) {
		workers = len(ids)
	}

	d.logger.Info().
		Int("apps", len(ids)).
		Int("duplicates", summary.Skipped).
		Int("workers", workers).
		Msg("Starting harvest run")

	queue := make(chan string, len(ids))
	for _, id := range ids {
		queue <- id
	}
	close(queue)

	var g errgroup.Group
	for i := 0; i < workers; i++ {
		workerID := i
		g.Go(func() error {
			processed := 0
			for appID := range queue {
				if ctx.Err() != nil {
					mu.Lock()
					summary.Skipped++
					mu.Unlock()
					continue
				}

				res, err := d.harvester.Harvest(ctx, appID)
				processed++

				mu.Lock()
				summary.Results = append(summary.Results, res)
				if err != nil {
					summary.Failed++
				} else {
					summary.Succeeded++
				}
				mu.Unlock()
			}

			d.logger.Debug().
				Int("worker_id", workerID).
				Int("apps_processed", processed).
				Msg("Worker finished")
			return nil
		})
	}
	// Workers never return errors; failures are carried in the summary.
	_ = g.Wait()

	d.logger.Info().
		Int("succeeded", summary.Succeeded).
		Int("failed", summary.Failed).
		Int("skipped", summary.Skipped).
		Dur("duration", time.Since(start)).
		Msg("Harvest run complete")

	return summary
}

// unique returns ids without repeats, keeping first occurrences in order.
func unique(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
