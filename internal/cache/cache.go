// Package cache provides a Redis-backed cache for raw adapter results, so
// re-runs within the TTL do not hammer the upstream boards.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jobsift/jobsift/internal/source"
)

// Cache stores raw postings per source name. A nil *Cache is a valid no-op.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// New connects to Redis at the given URL (redis://host:port) and pings it.
func New(redisURL string, ttl time.Duration) (*Cache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("cache: invalid redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("cache: redis ping failed: %w", err)
	}

	return &Cache{client: client, ttl: ttl}, nil
}

// Get returns the cached raw postings for the source, and whether a valid
// entry existed.
func (c *Cache) Get(ctx context.Context, sourceName string) ([]source.RawPosting, bool) {
	if c == nil {
		return nil, false
	}

	data, err := c.client.Get(ctx, buildKey(sourceName)).Bytes()
	if err != nil {
		return nil, false
	}

	var raw []source.RawPosting
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, false
	}

	return raw, true
}

// Set stores raw postings with the configured TTL. Failures are returned but
// callers treat them as advisory.
func (c *Cache) Set(ctx context.Context, sourceName string, raw []source.RawPosting) error {
	if c == nil {
		return nil
	}

	data, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("cache: marshal: %w", err)
	}

	return c.client.Set(ctx, buildKey(sourceName), data, c.ttl).Err()
}

func (c *Cache) Close() error {
	if c == nil {
		return nil
	}
	return c.client.Close()
}

func buildKey(sourceName string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(sourceName)))
	return fmt.Sprintf("jobsift:raw:%x", sum[:8])
}
