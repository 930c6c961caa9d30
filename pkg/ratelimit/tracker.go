package ratelimit

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Prometheus metrics for cooldown tracking.
var (
	steamRateLimitCooldownsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "steam_rate_limit_cooldowns_total",
		Help: "Total number of cooldowns started after 429 responses",
	})

	steamRateLimitWaitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "steam_rate_limit_waits_total",
		Help: "Total number of requests delayed by an active cooldown",
	})
)

// Tracker stores the shared cooldown in Redis and gates requests on it.
type Tracker struct {
	redis  *redis.Client
	logger zerolog.Logger
}

// NewTracker creates a new cooldown tracker.
func NewTracker(redisClient *redis.Client, logger zerolog.Logger) *Tracker {
	return &Tracker{
		redis:  redisClient,
		logger: logger,
	}
}

// GetState retrieves the current cooldown from Redis.
// Returns a clear state if no cooldown is stored.
func (t *Tracker) GetState(ctx context.Context) (*CooldownState, error) {
	blockedUntil, err := t.redis.Get(ctx, RedisKeyBlockedUntil).Int64()
	if err == redis.Nil {
		return &CooldownState{LastUpdate: time.Now()}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get blocked until: %w", err)
	}

	lastUpdate, err := t.redis.Get(ctx, RedisKeyLastUpdate).Int64()
	if err != nil && err != redis.Nil {
		return nil, fmt.Errorf("get last update: %w", err)
	}

	return &CooldownState{
		BlockedUntil: time.UnixMilli(blockedUntil),
		LastUpdate:   time.UnixMilli(lastUpdate),
	}, nil
}

// Throttled records a cooldown from a 429 response. The cooldown length comes
// from the Retry-After header (seconds or HTTP date), defaulting to
// DefaultCooldown and capped at MaxCooldown. An existing longer cooldown is
// kept.
func (t *Tracker) Throttled(ctx context.Context, headers http.Header) error {
	now := time.Now()
	cooldown := parseRetryAfter(headers.Get("Retry-After"), now)
	until := now.Add(cooldown)

	current, err := t.GetState(ctx)
	if err != nil {
		return err
	}
	if current.BlockedUntil.After(until) {
		return nil
	}

	pipe := t.redis.Pipeline()
	pipe.Set(ctx, RedisKeyBlockedUntil, until.UnixMilli(), cooldown)
	pipe.Set(ctx, RedisKeyLastUpdate, now.UnixMilli(), cooldown)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("store cooldown in redis: %w", err)
	}

	steamRateLimitCooldownsTotal.Inc()
	t.logger.Warn().
		Dur("cooldown", cooldown).
		Time("blocked_until", until).
		Msg("Store API throttling - pausing requests")

	return nil
}

// Wait blocks until no cooldown is active or ctx is done.
func (t *Tracker) Wait(ctx context.Context) error {
	state, err := t.GetState(ctx)
	if err != nil {
		return fmt.Errorf("get cooldown state: %w", err)
	}
	if !state.IsBlocked() {
		return nil
	}

	wait := state.Remaining()
	steamRateLimitWaitsTotal.Inc()
	t.logger.Debug().Dur("wait", wait).Msg("Waiting for cooldown")

	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Clear removes any stored cooldown.
func (t *Tracker) Clear(ctx context.Context) error {
	if err := t.redis.Del(ctx, RedisKeyBlockedUntil, RedisKeyLastUpdate).Err(); err != nil {
		return fmt.Errorf("clear cooldown: %w", err)
	}
	return nil
}

func parseRetryAfter(value string, now time.Time) time.Duration {
	if value == "" {
		return DefaultCooldown
	}

	var d time.Duration
	if secs, err := strconv.Atoi(value); err == nil {
		d = time.Duration(secs) * time.Second
	} else if at, err := http.ParseTime(value); err == nil {
		d = at.Sub(now)
	} else {
		return DefaultCooldown
	}

	if d <= 0 {
		return DefaultCooldown
	}
	if d > MaxCooldown {
		return MaxCooldown
	}
	return d
}
