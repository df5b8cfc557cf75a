package repo

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"studio/internal/domain"
)

const resultKeyPrefix = "studio:result:"

// resultCacheKey hashes the operation signature so free-text prompts never
// leak into key material while distinct prompts still map to distinct keys.
func resultCacheKey(sourceIdentity, signature string) string {
	sum := sha256.Sum256([]byte(signature))
	return sourceIdentity + ":" + hex.EncodeToString(sum[:])
}

// RedisResultCache is the durable result cache backend. Entries have no TTL;
// only manual clears remove them.
type RedisResultCache struct {
	client *goredis.Client
}

// NewRedisResultCache wraps an existing Redis client.
func NewRedisResultCache(client *goredis.Client) *RedisResultCache {
	return &RedisResultCache{client: client}
}

func (c *RedisResultCache) Lookup(ctx context.Context, sourceIdentity, signature string) (string, bool, error) {
	url, err := c.client.Get(ctx, resultKeyPrefix+resultCacheKey(sourceIdentity, signature)).Result()
	if errors.Is(err, goredis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis: lookup result: %w", err)
	}
	return url, true, nil
}

func (c *RedisResultCache) Store(ctx context.Context, sourceIdentity, signature, url string) error {
	if err := c.client.Set(ctx, resultKeyPrefix+resultCacheKey(sourceIdentity, signature), url, 0).Err(); err != nil {
		return fmt.Errorf("redis: store result: %w", err)
	}
	return nil
}

func (c *RedisResultCache) Clear(ctx context.Context) error {
	iter := c.client.Scan(ctx, 0, resultKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			return fmt.Errorf("redis: clear result cache: %w", err)
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("redis: scan result cache: %w", err)
	}
	return nil
}

var _ domain.ResultCache = (*RedisResultCache)(nil)
