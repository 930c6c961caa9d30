package harvest

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Sternrassler/steam-review-harvester/internal/testutil"
	"github.com/Sternrassler/steam-review-harvester/pkg/progress"
	"github.com/Sternrassler/steam-review-harvester/pkg/review"
	"github.com/Sternrassler/steam-review-harvester/pkg/steam"
	"github.com/Sternrassler/steam-review-harvester/pkg/store"
)

// fastRetry keeps retry tests quick.
func fastRetry(attempts int) RetryConfig {
	return RetryConfig{
		MaxAttempts:       attempts,
		InitialBackoff:    time.Millisecond,
		MaxBackoff:        5 * time.Millisecond,
		BackoffMultiplier: 2.0,
	}
}

// pageOf builds a successful page holding reviews with the given keys.
func pageOf(cursor string, total int, keys ...string) *review.Page {
	p := &review.Page{
		Success:      true,
		Cursor:       cursor,
		TotalReviews: total,
		NumReviews:   len(keys),
		Reviews:      make([]review.Review, 0, len(keys)),
	}
	for _, k := range keys {
		p.Reviews = append(p.Reviews, review.Review{RecommendationID: k, Language: "english"})
	}
	return p
}

type fetchResponse struct {
	page *review.Page
	err  error
}

// scriptedFetcher replays responses in order, then serves empty pages.
type scriptedFetcher struct {
	mu        sync.Mutex
	responses []fetchResponse
	cursors   []string
}

func (f *scriptedFetcher) Fetch(ctx context.Context, appID, cursor string) (*review.Page, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cursors = append(f.cursors, cursor)
	if len(f.responses) == 0 {
		return pageOf(cursor, 0), nil
	}
	r := f.responses[0]
	f.responses = f.responses[1:]
	return r.page, r.err
}

func (f *scriptedFetcher) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.cursors)
}

type appendCall struct {
	keys  []string
	total int
	fresh bool
}

// recordingStore wraps a real store and records Append calls.
type recordingStore struct {
	*store.Store
	mu        sync.Mutex
	appends   []appendCall
	appendErr error
}

func (s *recordingStore) Append(appID string, page *review.Page, total int, fresh bool) error {
	s.mu.Lock()
	s.appends = append(s.appends, appendCall{keys: page.Keys(), total: total, fresh: fresh})
	s.mu.Unlock()
	if s.appendErr != nil {
		return s.appendErr
	}
	return s.Store.Append(appID, page, total, fresh)
}

// recordingReporter keeps every reported status.
type recordingReporter struct {
	mu       sync.Mutex
	statuses []progress.Status
}

func (r *recordingReporter) Report(ctx context.Context, status progress.Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statuses = append(r.statuses, status)
	return nil
}

func (r *recordingReporter) last() progress.Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.statuses) == 0 {
		return progress.Status{}
	}
	return r.statuses[len(r.statuses)-1]
}

// newSteamClient returns a client for mock with the given page size.
func newSteamClient(t *testing.T, mock *testutil.MockSteam, pageSize int) *steam.Client {
	t.Helper()

	cfg := steam.DefaultConfig()
	cfg.BaseURL = mock.URL()
	cfg.RequestsPerSecond = 0
	cfg.Timeout = 2 * time.Second
	cfg.Params.NumPerPage = pageSize

	c, err := steam.New(cfg, nil)
	if err != nil {
		t.Fatalf("steam.New() error = %v", err)
	}
	return c
}

// seed stores keys for appID as if a previous run had written them.
func seed(t *testing.T, st *store.Store, appID, cursor string, total int, keys ...string) {
	t.Helper()
	if err := st.Append(appID, pageOf(cursor, total, keys...), total, true); err != nil {
		t.Fatalf("seed Append() error = %v", err)
	}
}

// storedKeys returns the keys in appID's stored output.
func storedKeys(t *testing.T, st *store.Store, appID string) review.KeySet {
	t.Helper()
	state, err := st.Load(appID)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	return state.Seen
}
