// Package ratelimit shares a request cooldown between workers and processes.
// When the store API answers 429 the cooldown end is written to Redis and
// every fetcher waits for it before its next request.
package ratelimit

import (
	"time"
)

// Redis keys for cooldown state storage.
const (
	RedisKeyBlockedUntil = "steamreviews:rate_limit:blocked_until"
	RedisKeyLastUpdate   = "steamreviews:rate_limit:last_update"
)

// Cooldown bounds.
const (
	// DefaultCooldown applies when a 429 carries no usable Retry-After header.
	DefaultCooldown = 60 * time.Second

	// MaxCooldown caps the cooldown taken from Retry-After.
	MaxCooldown = 10 * time.Minute
)

// CooldownState represents the shared cooldown.
type CooldownState struct {
	// BlockedUntil is when requests may resume. Zero when no cooldown is set.
	BlockedUntil time.Time `json:"blocked_until"`

	// LastUpdate is when the state was last written.
	LastUpdate time.Time `json:"last_update"`
}

// IsBlocked returns true while the cooldown is in effect.
func (s *CooldownState) IsBlocked() bool {
	return time.Now().Before(s.BlockedUntil)
}

// Remaining returns the duration until requests may resume.
// Returns 0 if the cooldown has already passed.
func (s *CooldownState) Remaining() time.Duration {
	d := time.Until(s.BlockedUntil)
	if d < 0 {
		return 0
	}
	return d
}
