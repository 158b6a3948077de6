package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ecosdelcampo/fieldsync/internal/core/ports"
)

const keyPrefix = "edge"

// ResponseCache stores upstream responses for the edge layer in Redis.
// Key format: edge:<generation>:<method>:<url>
type ResponseCache struct {
	client     *redis.Client
	generation string
	ttl        time.Duration
}

// NewResponseCache creates a ResponseCache tagging every key with generation.
func NewResponseCache(client *redis.Client, generation string, ttl time.Duration) *ResponseCache {
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &ResponseCache{client: client, generation: generation, ttl: ttl}
}

// Get returns the cached copy for the exact request, or (nil, nil) on miss.
func (c *ResponseCache) Get(ctx context.Context, method, url string) (*ports.CachedResponse, error) {
	raw, err := c.client.Get(ctx, c.key(method, url)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("edge cache get: %w", err)
	}

	var res ports.CachedResponse
	if err := json.Unmarshal(raw, &res); err != nil {
		return nil, fmt.Errorf("edge cache decode: %w", err)
	}
	return &res, nil
}

// Put overwrites the cache entry for the request (expires after the TTL).
func (c *ResponseCache) Put(ctx context.Context, method, url string, res *ports.CachedResponse) error {
	raw, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("edge cache encode: %w", err)
	}
	if err := c.client.Set(ctx, c.key(method, url), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("edge cache put: %w", err)
	}
	return nil
}

// PurgeStale deletes every edge key from a generation other than the current
// one and returns how many were removed.
func (c *ResponseCache) PurgeStale(ctx context.Context) (int64, error) {
	keep := fmt.Sprintf("%s:%s:", keyPrefix, c.generation)

	var removed int64
	iter := c.client.Scan(ctx, 0, keyPrefix+":*", 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		if strings.HasPrefix(key, keep) {
			continue
		}
		if err := c.client.Del(ctx, key).Err(); err != nil {
			return removed, fmt.Errorf("edge cache purge: %w", err)
		}
		removed++
	}
	if err := iter.Err(); err != nil {
		return removed, fmt.Errorf("edge cache purge scan: %w", err)
	}
	return removed, nil
}

func (c *ResponseCache) key(method, url string) string {
	return fmt.Sprintf("%s:%s:%s:%s", keyPrefix, c.generation, method, url)
}
