package repo

import (
	"context"
	"sync"

	"studio/internal/domain"
)

// MemoryResultCache is the in-process result cache used in development and
// tests. Reads are concurrent; writes to the same key are last-writer-wins.
type MemoryResultCache struct {
	mu      sync.RWMutex
	entries map[string]string
}

// NewMemoryResultCache builds an empty cache.
func NewMemoryResultCache() *MemoryResultCache {
	return &MemoryResultCache{entries: make(map[string]string)}
}

func (c *MemoryResultCache) Lookup(ctx context.Context, sourceIdentity, signature string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	url, ok := c.entries[resultCacheKey(sourceIdentity, signature)]
	return url, ok, nil
}

func (c *MemoryResultCache) Store(ctx context.Context, sourceIdentity, signature, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[resultCacheKey(sourceIdentity, signature)] = url
	return nil
}

func (c *MemoryResultCache) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]string)
	return nil
}

var _ domain.ResultCache = (*MemoryResultCache)(nil)
