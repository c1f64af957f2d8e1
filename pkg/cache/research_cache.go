package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultResearchTTL = 15 * time.Minute

// ResearchCache keeps recent research-webhook responses in Redis so repeated
// identical queries skip the upstream call. Keys hash the normalized query
// plus the response format.
type ResearchCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewResearchCache(client *redis.Client, ttl time.Duration) *ResearchCache {
	if ttl <= 0 {
		ttl = defaultResearchTTL
	}
	return &ResearchCache{client: client, ttl: ttl}
}

// Get returns the cached response body for (query, format), if present.
func (c *ResearchCache) Get(ctx context.Context, query, format string) ([]byte, bool, error) {
	val, err := c.client.Get(ctx, cacheKey(query, format)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return val, true, nil
}

// Set stores a response body for (query, format) under the cache TTL.
func (c *ResearchCache) Set(ctx context.Context, query, format string, body []byte) error {
	return c.client.Set(ctx, cacheKey(query, format), body, c.ttl).Err()
}

func cacheKey(query, format string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(query)) + "\x00" + format))
	return "research:" + hex.EncodeToString(sum[:])
}
