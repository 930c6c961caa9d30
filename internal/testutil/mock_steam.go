// Package testutil provides testing utilities for the review harvester.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
)

// StatusAPIFailure queued with FailNext answers 200 with success=2.
const StatusAPIFailure = -1

type mockApp struct {
	ids      []string
	total    int
	failures []int
}

// MockSteam is a configurable mock of the appreviews endpoint.
// Cursors are "*" for the start and "c<offset>" afterwards.
type MockSteam struct {
	server   *httptest.Server
	mu       sync.RWMutex
	apps     map[string]*mockApp
	handlers map[string]func(w http.ResponseWriter, r *http.Request)

	// Tracking
	RequestCount  int
	Cursors       map[string][]string
	LastUserAgent string
}

// NewMockSteam creates a new mock server.
func NewMockSteam() *MockSteam {
	mock := &MockSteam{
		apps:     make(map[string]*mockApp),
		handlers: make(map[string]func(w http.ResponseWriter, r *http.Request)),
		Cursors:  make(map[string][]string),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		appID := strings.TrimPrefix(r.URL.Path, "/appreviews/")

		mock.mu.Lock()
		mock.RequestCount++
		mock.LastUserAgent = r.Header.Get("User-Agent")
		mock.Cursors[appID] = append(mock.Cursors[appID], r.URL.Query().Get("cursor"))
		handler, exists := mock.handlers[appID]
		mock.mu.Unlock()

		if exists {
			handler(w, r)
			return
		}

		mock.serveReviews(w, r, appID)
	}))

	return mock
}

// URL returns the mock server URL.
func (m *MockSteam) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockSteam) Close() {
	m.server.Close()
}

// SetReviews configures the review keys served for appID and the
// total_reviews value reported with the first page.
func (m *MockSteam) SetReviews(appID string, total int, ids ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.apps[appID] = &mockApp{ids: ids, total: total}
}

// FailNext makes the next requests for appID answer with the given HTTP
// statuses, in order. StatusAPIFailure yields a 200 with success=2 and 0
// serves the page normally.
func (m *MockSteam) FailNext(appID string, statuses ...int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	app, ok := m.apps[appID]
	if !ok {
		app = &mockApp{}
		m.apps[appID] = app
	}
	app.failures = append(app.failures, statuses...)
}

// SetHandler sets a custom handler for appID.
func (m *MockSteam) SetHandler(appID string, handler func(w http.ResponseWriter, r *http.Request)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[appID] = handler
}

// GetRequestCount returns the number of requests made to the server.
func (m *MockSteam) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.RequestCount
}

// GetCursors returns the cursors requested for appID, in order.
func (m *MockSteam) GetCursors(appID string) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.Cursors[appID]...)
}

func (m *MockSteam) serveReviews(w http.ResponseWriter, r *http.Request, appID string) {
	m.mu.Lock()
	app, ok := m.apps[appID]
	var failure int
	if ok && len(app.failures) > 0 {
		failure = app.failures[0]
		app.failures = app.failures[1:]
	}
	m.mu.Unlock()

	w.Header().Set("Content-Type", "application/json; charset=utf-8")

	switch {
	case failure == StatusAPIFailure:
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"success": 2}`))
		return
	case failure != 0:
		if failure == http.StatusTooManyRequests {
			w.Header().Set("Retry-After", "1")
		}
		w.WriteHeader(failure)
		w.Write([]byte(`{"error": "mock failure"}`))
		return
	case !ok:
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"success": 2}`))
		return
	}

	query := r.URL.Query()
	cursor := query.Get("cursor")
	pageSize, err := strconv.Atoi(query.Get("num_per_page"))
	if err != nil || pageSize <= 0 {
		pageSize = 20
	}

	start := 0
	if cursor != "*" {
		start, err = strconv.Atoi(strings.TrimPrefix(cursor, "c"))
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
	}
	if start > len(app.ids) {
		start = len(app.ids)
	}
	end := start + pageSize
	if end > len(app.ids) {
		end = len(app.ids)
	}

	summary := map[string]any{"num_reviews": end - start}
	if cursor == "*" {
		summary["total_reviews"] = app.total
	}

	reviews := make([]map[string]any, 0, end-start)
	for _, id := range app.ids[start:end] {
		reviews = append(reviews, NewReview(id))
	}

	next := fmt.Sprintf("c%d", end)
	if end == start {
		next = cursor
	}

	json.NewEncoder(w).Encode(map[string]any{
		"success":       1,
		"query_summary": summary,
		"reviews":       reviews,
		"cursor":        next,
	})
}

// NewReview returns a review payload with the given key.
func NewReview(id string) map[string]any {
	return map[string]any{
		"recommendationid": id,
		"author": map[string]any{
			"steamid":                 "7656119" + id,
			"num_games_owned":         10,
			"num_reviews":             2,
			"playtime_forever":        1200,
			"playtime_last_two_weeks": 30,
			"playtime_at_review":      600,
			"last_played":             1700000000,
		},
		"language":                    "english",
		"review":                      "review " + id + ", with comma",
		"timestamp_created":           1690000000,
		"timestamp_updated":           1690000100,
		"voted_up":                    true,
		"votes_up":                    3,
		"votes_funny":                 0,
		"weighted_vote_score":         "0.5",
		"comment_count":               1,
		"steam_purchase":              true,
		"received_for_free":           false,
		"written_during_early_access": false,
		"hidden_in_steam_china":       true,
		"steam_china_location":        "",
	}
}

// Keys returns n sequential review keys starting at from.
func Keys(from, n int) []string {
	keys := make([]string, 0, n)
	for i := from; i < from+n; i++ {
		keys = append(keys, strconv.Itoa(i))
	}
	return keys
}
