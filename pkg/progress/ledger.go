package progress

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultTTL keeps a status around for a week after its last update.
const DefaultTTL = 7 * 24 * time.Hour

var (
	// ErrNotFound indicates no status is stored for the app
	ErrNotFound = errors.New("progress not found")

	// ErrInvalidStatus indicates the stored status is corrupted
	ErrInvalidStatus = errors.New("invalid progress status")
)

// Ledger stores harvest status in Redis.
type Ledger struct {
	redis *redis.Client
	ttl   time.Duration
}

// NewLedger creates a ledger. A ttl <= 0 uses DefaultTTL.
func NewLedger(redisClient *redis.Client, ttl time.Duration) *Ledger {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Ledger{
		redis: redisClient,
		ttl:   ttl,
	}
}

// Report stores status, stamping UpdatedAt if unset.
func (l *Ledger) Report(ctx context.Context, status Status) error {
	if status.AppID == "" {
		return fmt.Errorf("status app id cannot be empty")
	}
	if status.UpdatedAt.IsZero() {
		status.UpdatedAt = time.Now()
	}

	data, err := json.Marshal(status)
	if err != nil {
		LedgerErrors.WithLabelValues("report").Inc()
		return fmt.Errorf("marshal status: %w", err)
	}

	if err := l.redis.Set(ctx, Key{AppID: status.AppID}.String(), data, l.ttl).Err(); err != nil {
		LedgerErrors.WithLabelValues("report").Inc()
		return fmt.Errorf("redis set: %w", err)
	}

	ReportsTotal.Inc()
	return nil
}

// Get retrieves the status of appID.
// Returns ErrNotFound if nothing is stored.
func (l *Ledger) Get(ctx context.Context, appID string) (*Status, error) {
	data, err := l.redis.Get(ctx, Key{AppID: appID}.String()).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, ErrNotFound
		}
		LedgerErrors.WithLabelValues("get").Inc()
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var status Status
	if err := json.Unmarshal(data, &status); err != nil {
		LedgerErrors.WithLabelValues("get").Inc()
		return nil, fmt.Errorf("%w: %v", ErrInvalidStatus, err)
	}

	return &status, nil
}

// Delete removes the status of appID.
func (l *Ledger) Delete(ctx context.Context, appID string) error {
	if err := l.redis.Del(ctx, Key{AppID: appID}.String()).Err(); err != nil {
		LedgerErrors.WithLabelValues("delete").Inc()
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}
