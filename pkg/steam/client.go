// Package steam fetches single pages of reviews from the Steam appreviews API.
// It never retries; retry policy belongs to the caller.
package steam

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Sternrassler/steam-review-harvester/pkg/review"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// Prometheus metrics for page requests.
var (
	steamRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "steam_requests_total",
		Help: "Total appreviews requests by HTTP status",
	}, []string{"status"})

	steamRequestDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "steam_request_duration_seconds",
		Help:    "appreviews request duration in seconds",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10},
	})

	steamErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "steam_errors_total",
		Help: "Total appreviews transport errors by class",
	}, []string{"class"})
)

// maxBodySize bounds a single page response.
const maxBodySize = 16 << 20

// Gate is a shared request gate consulted before every request and informed
// about throttling responses.
type Gate interface {
	Wait(ctx context.Context) error
	Throttled(ctx context.Context, headers http.Header) error
}

// Config holds the fetcher configuration.
type Config struct {
	// BaseURL of the store API, without trailing slash.
	BaseURL string

	// UserAgent header sent with every request.
	UserAgent string

	// Timeout bounds each request.
	Timeout time.Duration

	// RequestsPerSecond paces requests across all workers (0 disables pacing).
	RequestsPerSecond float64
	Burst             int

	// Params are sent with every request.
	Params review.QueryParams
}

// DefaultConfig returns the configuration used against the public store API.
func DefaultConfig() Config {
	return Config{
		BaseURL:           "https://store.steampowered.com",
		UserAgent:         "steam-review-harvester/0.1.0",
		Timeout:           10 * time.Second,
		RequestsPerSecond: 5,
		Burst:             5,
		Params:            review.DefaultQueryParams(),
	}
}

// Client fetches review pages. It is safe for concurrent use.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	gate       Gate
	config     Config
	logger     zerolog.Logger
}

// New creates a page fetcher. gate may be nil.
func New(cfg Config, gate Gate) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base url is required")
	}
	if cfg.Timeout <= 0 {
		return nil, fmt.Errorf("timeout must be positive (got %s)", cfg.Timeout)
	}
	if cfg.Params.NumPerPage < 1 || cfg.Params.NumPerPage > review.MaxPageSize {
		return nil, fmt.Errorf("num_per_page must be between 1 and %d (got %d)", review.MaxPageSize, cfg.Params.NumPerPage)
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RequestsPerSecond > 0 {
		burst := cfg.Burst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		limiter: limiter,
		gate:    gate,
		config:  cfg,
		logger:  log.With().Str("component", "steam-client").Logger(),
	}, nil
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}

// Fetch requests one page of reviews for appID starting at cursor.
//
// On a 200 response with success=1 the parsed page is returned. On a 200
// response with any other success value a failed page and a nil error are
// returned. Transport failures return a failed page together with a
// *TransportError. Malformed bodies return a *review.ParseError.
func (c *Client) Fetch(ctx context.Context, appID, cursor string) (*review.Page, error) {
	logger := c.logger.With().Str("app_id", appID).Str("cursor", cursor).Logger()

	if err := c.limiter.Wait(ctx); err != nil {
		return review.Failed(), c.networkError(appID, "rate limiter wait", err)
	}
	if c.gate != nil {
		if err := c.gate.Wait(ctx); err != nil {
			return review.Failed(), c.networkError(appID, "cooldown wait", err)
		}
	}

	endpoint := c.config.BaseURL + "/appreviews/" + appID
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+c.config.Params.Values(cursor).Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.config.UserAgent)
	req.Header.Set("Accept", "application/json")

	logger.Debug().Msg("Fetching review page")

	startTime := time.Now()
	resp, err := c.httpClient.Do(req)
	steamRequestDuration.Observe(time.Since(startTime).Seconds())
	if err != nil {
		logger.Warn().Err(err).Msg("Review request failed")
		steamRequestsTotal.WithLabelValues("network_error").Inc()
		return review.Failed(), c.networkError(appID, "request failed", err)
	}
	defer resp.Body.Close()

	steamRequestsTotal.WithLabelValues(strconv.Itoa(resp.StatusCode)).Inc()

	if resp.StatusCode != http.StatusOK {
		class := ClassifyStatus(resp.StatusCode)
		steamErrorsTotal.WithLabelValues(string(class)).Inc()

		logger.Warn().
			Int("status", resp.StatusCode).
			Str("error_class", string(class)).
			Msg("Faulty response status")

		if class == ErrorClassRateLimit && c.gate != nil {
			if err := c.gate.Throttled(ctx, resp.Header); err != nil {
				logger.Warn().Err(err).Msg("Failed to record cooldown")
			}
		}

		io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodySize))
		return review.Failed(), &TransportError{
			AppID:      appID,
			StatusCode: resp.StatusCode,
			ErrorClass: class,
			Message:    strings.TrimSpace(resp.Status),
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		logger.Warn().Err(err).Msg("Reading review response failed")
		return review.Failed(), c.networkError(appID, "read body", err)
	}

	page, err := review.ParsePage(body)
	if err != nil {
		return nil, fmt.Errorf("app %s cursor %s: %w", appID, cursor, err)
	}

	if !page.Success {
		logger.Warn().Msg("API reported failure")
		return page, nil
	}

	logger.Debug().
		Int("reviews", len(page.Reviews)).
		Int("num_reviews", page.NumReviews).
		Int("total_reviews", page.TotalReviews).
		Msg("Fetched review page")

	return page, nil
}

func (c *Client) networkError(appID, msg string, err error) *TransportError {
	steamErrorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
	return &TransportError{
		AppID:      appID,
		ErrorClass: ErrorClassNetwork,
		Message:    msg,
		Err:        err,
	}
}
