package harvest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Sternrassler/steam-review-harvester/pkg/logging"
	"github.com/Sternrassler/steam-review-harvester/pkg/progress"
	"github.com/Sternrassler/steam-review-harvester/pkg/review"
	"github.com/Sternrassler/steam-review-harvester/pkg/store"
	"github.com/rs/zerolog"
)

// ErrAPILogical is returned when the API answers a request with a failure
// indicator instead of a page.
var ErrAPILogical = errors.New("api reported failure")

// Fetcher retrieves one page of reviews.
type Fetcher interface {
	Fetch(ctx context.Context, appID, cursor string) (*review.Page, error)
}

// Store persists harvested reviews per app.
type Store interface {
	Path(appID string) string
	Load(appID string) (store.State, error)
	Append(appID string, page *review.Page, total int, fresh bool) error
}

// Reporter receives harvest status updates.
type Reporter interface {
	Report(ctx context.Context, status progress.Status) error
}

// NopReporter discards status updates.
type NopReporter struct{}

// Report implements Reporter.
func (NopReporter) Report(context.Context, progress.Status) error { return nil }

// State is the phase of a single app's harvest.
type State int

const (
	StateInit State = iota
	StateResuming
	StateFetching
	StateWriting
	StateDone
	StateFailed
)

// String returns the upper-case state name.
func (s State) String() string {
	switch s {
	case StateInit:
		return "INIT"
	case StateResuming:
		return "RESUMING"
	case StateFetching:
		return "FETCHING"
	case StateWriting:
		return "WRITING"
	case StateDone:
		return "DONE"
	case StateFailed:
		return "FAILED"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Result describes a finished harvest.
type Result struct {
	AppID string
	Path  string

	// State is StateDone or StateFailed.
	State State

	// Resumed is true when the run started from existing output.
	Resumed bool

	// Fetches counts pages received, retries excluded.
	Fetches int

	// Written counts records appended in this run.
	Written int

	// Duplicates counts records dropped because their key was already stored.
	Duplicates int

	// Offset is the server-side position reached.
	Offset int

	Total  int
	Cursor string

	// Err is the failure cause for StateFailed.
	Err error
}

// Config holds controller configuration.
type Config struct {
	Retry    RetryConfig
	Reporter Reporter
}

// DefaultConfig returns a configuration with default retries and no reporter.
func DefaultConfig() Config {
	return Config{
		Retry:    DefaultRetryConfig(),
		Reporter: NopReporter{},
	}
}

// Controller runs the harvest loop for one app at a time. It holds no per-app
// state, so one Controller may serve many concurrent harvests of different
// apps.
type Controller struct {
	fetcher  Fetcher
	store    Store
	retry    RetryConfig
	reporter Reporter
	logger   zerolog.Logger
}

// NewController creates a controller.
func NewController(fetcher Fetcher, st Store, config Config) *Controller {
	if config.Reporter == nil {
		config.Reporter = NopReporter{}
	}
	return &Controller{
		fetcher:  fetcher,
		store:    st,
		retry:    config.Retry,
		reporter: config.Reporter,
		logger:   logging.NewLogger("harvest"),
	}
}

// Harvest fetches all outstanding reviews of appID and appends them to its
// store. The returned error equals Result.Err.
func (c *Controller) Harvest(ctx context.Context, appID string) (Result, error) {
	logger := logging.ForApp(c.logger, appID)
	start := time.Now()

	res := Result{
		AppID: appID,
		State: StateInit,
		Path:  c.store.Path(appID),
	}

	res.State = StateResuming
	state, err := c.store.Load(appID)
	if err != nil {
		return c.fail(ctx, logger, res, fmt.Errorf("load state: %w", err))
	}

	seen := state.Seen
	if seen == nil {
		seen = review.KeySet{}
	}
	cursor := state.Cursor
	if cursor == "" {
		cursor = review.StartCursor
	}
	total := state.Total
	offset := len(seen)
	written := false

	res.Resumed = offset > 0
	res.Offset, res.Total, res.Cursor = offset, total, cursor

	logger.Info().
		Str("path", res.Path).
		Bool("resumed", res.Resumed).
		Int("offset", offset).
		Int("total", total).
		Msg("Starting harvest")

	for total == 0 || offset < total {
		res.State = StateFetching

		page, err := c.fetch(ctx, logger, appID, cursor)
		if err != nil {
			return c.fail(ctx, logger, res, err)
		}
		if !page.Success {
			return c.fail(ctx, logger, res, fmt.Errorf("app %s cursor %s: %w", appID, cursor, ErrAPILogical))
		}
		res.Fetches++
		pagesFetchedTotal.Inc()

		if len(page.Reviews) == 0 {
			logger.Debug().Int("offset", offset).Msg("Empty page, sequence exhausted")
			break
		}

		cursor = page.Cursor
		if total == 0 {
			total = page.TotalReviews
		}

		filtered := Filter(page, seen)
		dups := len(page.Reviews) - len(filtered.Reviews)
		res.Duplicates += dups
		duplicatesFilteredTotal.Add(float64(dups))

		if len(filtered.Reviews) > 0 {
			res.State = StateWriting
			fresh := offset == 0 && !written
			if err := c.store.Append(appID, filtered, total, fresh); err != nil {
				return c.fail(ctx, logger, res, err)
			}
			written = true
			seen.Add(filtered.Keys()...)
			res.Written += len(filtered.Reviews)
			recordsWrittenTotal.Add(float64(len(filtered.Reviews)))
		}

		n := page.NumReviews
		if n <= 0 {
			n = len(page.Reviews)
		}
		offset += n
		res.Offset, res.Total, res.Cursor = offset, total, cursor

		logger.Debug().
			Int("reviews", len(page.Reviews)).
			Int("written", len(filtered.Reviews)).
			Int("duplicates", dups).
			Int("offset", offset).
			Int("total", total).
			Msg("Processed page")

		c.report(ctx, logger, res)
	}

	res.State = StateDone
	runsTotal.WithLabelValues("done").Inc()
	c.report(ctx, logger, res)

	logger.Info().
		Int("fetches", res.Fetches).
		Int("written", res.Written).
		Int("duplicates", res.Duplicates).
		Int("offset", res.Offset).
		Int("total", res.Total).
		Dur("duration", time.Since(start)).
		Msg("Harvest complete")

	return res, nil
}

func (c *Controller) fetch(ctx context.Context, logger zerolog.Logger, appID, cursor string) (*review.Page, error) {
	var page *review.Page
	err := retryWithBackoff(ctx, c.retry, logger, func() error {
		p, err := c.fetcher.Fetch(ctx, appID, cursor)
		if err != nil {
			return err
		}
		page = p
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("fetch app %s cursor %s: %w", appID, cursor, err)
	}
	return page, nil
}

func (c *Controller) fail(ctx context.Context, logger zerolog.Logger, res Result, err error) (Result, error) {
	res.State = StateFailed
	res.Err = err
	runsTotal.WithLabelValues("failed").Inc()

	logger.Error().
		Err(err).
		Int("offset", res.Offset).
		Int("written", res.Written).
		Msg("Harvest failed")

	c.report(ctx, logger, res)
	return res, err
}

func (c *Controller) report(ctx context.Context, logger zerolog.Logger, res Result) {
	status := progress.Status{
		AppID:   res.AppID,
		State:   res.State.String(),
		Offset:  res.Offset,
		Total:   res.Total,
		Written: res.Written,
		Cursor:  res.Cursor,
	}
	if res.Err != nil {
		status.Error = res.Err.Error()
	}

	// Final states are reported even after ctx is cancelled.
	if err := c.reporter.Report(context.WithoutCancel(ctx), status); err != nil {
		logger.Warn().Err(err).Msg("Failed to report progress")
	}
}
