// Package cache provides a Redis-backed snapshot cache for the dashboard read
// path. Cross-workflow aggregation is a read-only snapshot and may be served
// eventually consistent; the TTL bounds staleness. Mutating operations never
// touch the cache.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "procflow:dashboard:"

// Dashboard caches serialized dashboard snapshots per evaluation project.
type Dashboard struct {
	client *redis.Client
	ttl    time.Duration
}

// NewDashboard connects to Redis at the given URL. A nil *Dashboard is a
// valid no-op cache, so callers can wire it only when Redis is configured.
func NewDashboard(ctx context.Context, redisURL string, ttl time.Duration) (*Dashboard, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return &Dashboard{client: client, ttl: ttl}, nil
}

// Get loads a cached snapshot into v. The second return is false on a miss.
func (c *Dashboard) Get(ctx context.Context, evaluationProjectID string, v any) (bool, error) {
	if c == nil {
		return false, nil
	}

	data, err := c.client.Get(ctx, keyPrefix+evaluationProjectID).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}

		return false, fmt.Errorf("failed to read dashboard cache: %w", err)
	}

	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("failed to decode dashboard cache: %w", err)
	}

	return true, nil
}

// Set stores a snapshot with the configured TTL.
func (c *Dashboard) Set(ctx context.Context, evaluationProjectID string, v any) error {
	if c == nil {
		return nil
	}

	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode dashboard cache: %w", err)
	}

	if err := c.client.Set(ctx, keyPrefix+evaluationProjectID, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write dashboard cache: %w", err)
	}

	return nil
}

// Close releases the underlying client.
func (c *Dashboard) Close() error {
	if c == nil {
		return nil
	}

	return c.client.Close()
}
