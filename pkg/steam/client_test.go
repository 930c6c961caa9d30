package steam

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/Sternrassler/steam-review-harvester/internal/testutil"
	"github.com/Sternrassler/steam-review-harvester/pkg/review"
)

func newTestClient(t *testing.T, baseURL string, gate Gate) *Client {
	t.Helper()

	cfg := DefaultConfig()
	cfg.BaseURL = baseURL
	cfg.UserAgent = "TestHarvester/1.0"
	cfg.RequestsPerSecond = 0
	cfg.Params.NumPerPage = 2

	c, err := New(cfg, gate)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return c
}

// fakeGate records gate interactions.
type fakeGate struct {
	mu        sync.Mutex
	waits     int
	throttles int
	waitErr   error
}

func (g *fakeGate) Wait(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.waits++
	return g.waitErr
}

func (g *fakeGate) Throttled(ctx context.Context, headers http.Header) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.throttles++
	return nil
}

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name        string
		modify      func(*Config)
		expectError bool
	}{
		{
			name:        "valid config",
			modify:      func(c *Config) {},
			expectError: false,
		},
		{
			name:        "empty base url",
			modify:      func(c *Config) { c.BaseURL = "" },
			expectError: true,
		},
		{
			name:        "zero timeout",
			modify:      func(c *Config) { c.Timeout = 0 },
			expectError: true,
		},
		{
			name:        "page size too large",
			modify:      func(c *Config) { c.Params.NumPerPage = 101 },
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(&cfg)

			_, err := New(cfg, nil)
			if (err != nil) != tt.expectError {
				t.Errorf("New() error = %v, expectError %v", err, tt.expectError)
			}
		})
	}
}

func TestFetch_Success(t *testing.T) {
	mock := testutil.NewMockSteam()
	defer mock.Close()
	mock.SetReviews("570", 3, "1", "2", "3")

	c := newTestClient(t, mock.URL(), nil)

	page, err := c.Fetch(context.Background(), "570", review.StartCursor)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if !page.Success {
		t.Fatal("Success = false, want true")
	}
	if len(page.Reviews) != 2 {
		t.Errorf("len(Reviews) = %d, want 2", len(page.Reviews))
	}
	if page.TotalReviews != 3 {
		t.Errorf("TotalReviews = %d, want 3", page.TotalReviews)
	}
	if page.Cursor != "c2" {
		t.Errorf("Cursor = %q, want c2", page.Cursor)
	}
	if mock.LastUserAgent != "TestHarvester/1.0" {
		t.Errorf("User-Agent = %q, want TestHarvester/1.0", mock.LastUserAgent)
	}

	page, err = c.Fetch(context.Background(), "570", page.Cursor)
	if err != nil {
		t.Fatalf("Fetch() second page error = %v", err)
	}
	if len(page.Reviews) != 1 || page.TotalReviews != 0 {
		t.Errorf("second page: len(Reviews) = %d, TotalReviews = %d, want 1, 0", len(page.Reviews), page.TotalReviews)
	}
}

func TestFetch_SendsQueryParams(t *testing.T) {
	var got map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		got = map[string]string{
			"path":          r.URL.Path,
			"json":          q.Get("json"),
			"language":      q.Get("language"),
			"filter":        q.Get("filter"),
			"review_type":   q.Get("review_type"),
			"purchase_type": q.Get("purchase_type"),
			"num_per_page":  q.Get("num_per_page"),
			"cursor":        q.Get("cursor"),
		}
		w.Write([]byte(`{"success": 1, "query_summary": {"num_reviews": 0}, "reviews": [], "cursor": "x"}`))
	}))
	defer server.Close()

	c := newTestClient(t, server.URL, nil)

	if _, err := c.Fetch(context.Background(), "730", "AoJ4/+Sn0Ys="); err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}

	want := map[string]string{
		"path":          "/appreviews/730",
		"json":          "1",
		"language":      "english",
		"filter":        "recent",
		"review_type":   "all",
		"purchase_type": "all",
		"num_per_page":  "2",
		"cursor":        "AoJ4/+Sn0Ys=",
	}
	for key, value := range want {
		if got[key] != value {
			t.Errorf("%s = %q, want %q", key, got[key], value)
		}
	}
}

func TestFetch_APIFailure(t *testing.T) {
	mock := testutil.NewMockSteam()
	defer mock.Close()
	mock.SetReviews("570", 3, "1")
	mock.FailNext("570", testutil.StatusAPIFailure)

	c := newTestClient(t, mock.URL(), nil)

	page, err := c.Fetch(context.Background(), "570", review.StartCursor)
	if err != nil {
		t.Fatalf("Fetch() error = %v, want nil", err)
	}
	if page.Success {
		t.Error("Success = true, want false")
	}
}

func TestFetch_StatusErrors(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		wantClass ErrorClass
		retryable bool
	}{
		{name: "not found", status: http.StatusNotFound, wantClass: ErrorClassClient, retryable: false},
		{name: "server error", status: http.StatusBadGateway, wantClass: ErrorClassServer, retryable: true},
		{name: "too many requests", status: http.StatusTooManyRequests, wantClass: ErrorClassRateLimit, retryable: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := testutil.NewMockSteam()
			defer mock.Close()
			mock.SetReviews("570", 1, "1")
			mock.FailNext("570", tt.status)

			gate := &fakeGate{}
			c := newTestClient(t, mock.URL(), gate)

			page, err := c.Fetch(context.Background(), "570", review.StartCursor)
			if page == nil || page.Success {
				t.Fatalf("page = %+v, want failed page", page)
			}

			var terr *TransportError
			if !errors.As(err, &terr) {
				t.Fatalf("error type = %T, want *TransportError", err)
			}
			if terr.StatusCode != tt.status {
				t.Errorf("StatusCode = %d, want %d", terr.StatusCode, tt.status)
			}
			if terr.ErrorClass != tt.wantClass {
				t.Errorf("ErrorClass = %s, want %s", terr.ErrorClass, tt.wantClass)
			}
			if terr.ErrorClass.Retryable() != tt.retryable {
				t.Errorf("Retryable() = %v, want %v", terr.ErrorClass.Retryable(), tt.retryable)
			}

			wantThrottles := 0
			if tt.status == http.StatusTooManyRequests {
				wantThrottles = 1
			}
			if gate.throttles != wantThrottles {
				t.Errorf("gate throttles = %d, want %d", gate.throttles, wantThrottles)
			}
			if gate.waits != 1 {
				t.Errorf("gate waits = %d, want 1", gate.waits)
			}
		})
	}
}

func TestFetch_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.Write([]byte(`{"success": 1}`))
	}))
	defer server.Close()

	cfg := DefaultConfig()
	cfg.BaseURL = server.URL
	cfg.Timeout = 20 * time.Millisecond
	cfg.RequestsPerSecond = 0

	c, err := New(cfg, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	page, err := c.Fetch(context.Background(), "570", review.StartCursor)
	if page == nil || page.Success {
		t.Errorf("page = %+v, want failed page", page)
	}

	var terr *TransportError
	if !errors.As(err, &terr) {
		t.Fatalf("error type = %T, want *TransportError", err)
	}
	if terr.ErrorClass != ErrorClassNetwork {
		t.Errorf("ErrorClass = %s, want network", terr.ErrorClass)
	}
}

func TestFetch_MalformedBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success": 1, "reviews": []}`))
	}))
	defer server.Close()

	c := newTestClient(t, server.URL, nil)

	_, err := c.Fetch(context.Background(), "570", review.StartCursor)

	var perr *review.ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("error type = %T, want *review.ParseError", err)
	}
	if perr.Field != "cursor" {
		t.Errorf("Field = %q, want cursor", perr.Field)
	}
}

func TestFetch_GateError(t *testing.T) {
	mock := testutil.NewMockSteam()
	defer mock.Close()

	gate := &fakeGate{waitErr: context.Canceled}
	c := newTestClient(t, mock.URL(), gate)

	page, err := c.Fetch(context.Background(), "570", review.StartCursor)
	if page == nil || page.Success {
		t.Errorf("page = %+v, want failed page", page)
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
	if mock.GetRequestCount() != 0 {
		t.Errorf("requests = %d, want 0", mock.GetRequestCount())
	}
}

func TestClassifyStatus(t *testing.T) {
	tests := []struct {
		status int
		want   ErrorClass
	}{
		{400, ErrorClassClient},
		{403, ErrorClassClient},
		{429, ErrorClassRateLimit},
		{500, ErrorClassServer},
		{503, ErrorClassServer},
	}

	for _, tt := range tests {
		if got := ClassifyStatus(tt.status); got != tt.want {
			t.Errorf("ClassifyStatus(%d) = %s, want %s", tt.status, got, tt.want)
		}
	}
}
