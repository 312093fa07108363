package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stong1994/secret-book-server/internal/models"
)

const (
	lookupGenerationKey = "lookup:gen"
	lookupKeyFormat     = "lookup:%d:%s"
)

// RedisLookupCache caches host lookups. Entries are namespaced by a generation
// counter; bumping the counter orphans every cached entry at once, and the
// orphans expire through their TTL.
type RedisLookupCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisLookupCache(client *redis.Client, ttl time.Duration) *RedisLookupCache {
	return &RedisLookupCache{client: client, ttl: ttl}
}

// Generation returns the current generation, 0 before the first Invalidate.
func (c *RedisLookupCache) Generation(ctx context.Context) (int64, error) {
	gen, err := c.client.Get(ctx, lookupGenerationKey).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get lookup generation: %w", err)
	}
	return gen, nil
}

func (c *RedisLookupCache) Get(ctx context.Context, gen int64, host string) ([]*models.FinalState, bool, error) {
	jsonData, err := c.client.Get(ctx, lookupKey(gen, host)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get cached lookup: %w", err)
	}

	var states []*models.FinalState
	if err := json.Unmarshal([]byte(jsonData), &states); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal cached lookup: %w", err)
	}
	if states == nil {
		states = []*models.FinalState{}
	}
	return states, true, nil
}

func (c *RedisLookupCache) Set(ctx context.Context, gen int64, host string, states []*models.FinalState) error {
	jsonData, err := json.Marshal(states)
	if err != nil {
		return fmt.Errorf("failed to marshal lookup: %w", err)
	}

	if err := c.client.Set(ctx, lookupKey(gen, host), jsonData, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache lookup: %w", err)
	}
	return nil
}

func (c *RedisLookupCache) Invalidate(ctx context.Context) error {
	if err := c.client.Incr(ctx, lookupGenerationKey).Err(); err != nil {
		return fmt.Errorf("failed to bump lookup generation: %w", err)
	}
	return nil
}

func lookupKey(gen int64, host string) string {
	return fmt.Sprintf(lookupKeyFormat, gen, host)
}
