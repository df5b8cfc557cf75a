package rendercache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"

	"studio/internal/domain"
	"studio/internal/infra"
	"studio/internal/metrics"
	"studio/internal/storage"
)

// keySep separates serialized fields; it cannot occur in ids.
const keySep = "\x1e"

// CanonicalKey hashes (templateID, slot set, themeID) into a deterministic,
// order-invariant cache key. Slot entries are sorted by slot id before
// serialization, so insertion order never changes the key.
func CanonicalKey(templateID string, slots map[string]string, themeID string) string {
	slotIDs := make([]string, 0, len(slots))
	for id := range slots {
		slotIDs = append(slotIDs, id)
	}
	sort.Strings(slotIDs)

	parts := make([]string, 0, len(slotIDs))
	for _, id := range slotIDs {
		parts = append(parts, id+":"+slots[id])
	}

	h := sha256.New()
	h.Write([]byte(templateID))
	h.Write([]byte(keySep))
	h.Write([]byte(strings.Join(parts, keySep)))
	h.Write([]byte(keySep))
	h.Write([]byte(themeID))
	return hex.EncodeToString(h.Sum(nil))
}

// Options configures a Cache.
type Options struct {
	Index   domain.RenderIndex
	Store   *storage.FileStore
	Logger  infra.Logger
	Metrics *metrics.Metrics
}

// Cache stores fully composited template renders keyed by the exact set of
// contributing inputs, so an unchanged draft never re-renders. It is
// constructed once and passed by reference; it owns no ambient state.
type Cache struct {
	index   domain.RenderIndex
	store   *storage.FileStore
	logger  infra.Logger
	metrics *metrics.Metrics
}

// New builds a Cache.
func New(opts Options) *Cache {
	return &Cache{
		index:   opts.Index,
		store:   opts.Store,
		logger:  opts.Logger,
		metrics: opts.Metrics,
	}
}

// Lookup returns the local composite path for (draftID, themeID) on a hit.
func (c *Cache) Lookup(ctx context.Context, draftID, themeID string) (string, bool) {
	entry, err := c.index.Get(ctx, draftID, themeID)
	if err != nil {
		c.logger.Warn().Err(err).Str("draft_id", draftID).Msg("render cache: lookup failed")
		return "", false
	}
	return c.hitOrMiss(entry)
}

// LookupKey returns the composite path for a canonical key on a hit.
func (c *Cache) LookupKey(ctx context.Context, key string) (string, bool) {
	entry, err := c.index.GetByKey(ctx, key)
	if err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("render cache: lookup failed")
		return "", false
	}
	return c.hitOrMiss(entry)
}

func (c *Cache) hitOrMiss(entry *domain.RenderEntry) (string, bool) {
	if entry == nil {
		if c.metrics != nil {
			c.metrics.RenderCacheMisses.Inc()
		}
		return "", false
	}
	if c.metrics != nil {
		c.metrics.RenderCacheHits.Inc()
	}
	return c.store.Path(entry.Path), true
}

// Save persists a composite under its canonical key and records the index
// entry. A storage write failure is non-fatal: the composite remains usable
// by the caller transiently, so the failure is only reported.
func (c *Cache) Save(ctx context.Context, draftID, templateID, themeID string, slots map[string]string, data []byte) (domain.RenderEntry, error) {
	key := CanonicalKey(templateID, slots, themeID)
	entry := domain.RenderEntry{
		Key:        key,
		DraftID:    draftID,
		TemplateID: templateID,
		ThemeID:    themeID,
		Path:       "renders/" + key + ".png",
		SizeBytes:  int64(len(data)),
		CreatedAt:  time.Now(),
	}

	savedPath, err := c.store.Write(ctx, entry.Path, data)
	if err != nil {
		c.reportWriteFailure(err, draftID, key)
		return entry, fmt.Errorf("render cache: persist composite: %w", err)
	}
	entry.Path = savedPath

	if err := c.index.Put(ctx, entry); err != nil {
		c.reportWriteFailure(err, draftID, key)
		return entry, fmt.Errorf("render cache: index composite: %w", err)
	}
	return entry, nil
}

func (c *Cache) reportWriteFailure(err error, draftID, key string) {
	if c.metrics != nil {
		c.metrics.CacheWriteErrors.Inc()
	}
	c.logger.Warn().Err(err).Str("draft_id", draftID).Str("key", key).Msg("render cache: write failed")
}

// Invalidate removes every cached composite for the draft. It runs whenever
// any contributing slot image changes; invalidation is whole-draft by design.
func (c *Cache) Invalidate(ctx context.Context, draftID string) error {
	removed, err := c.index.DeleteByDraft(ctx, draftID)
	if err != nil {
		return fmt.Errorf("render cache: invalidate %s: %w", draftID, err)
	}
	for _, entry := range removed {
		if err := c.store.Remove(ctx, entry.Path); err != nil {
			c.logger.Warn().Err(err).Str("path", entry.Path).Msg("render cache: remove composite failed")
		}
	}
	c.logger.Info().Str("draft_id", draftID).Int("removed", len(removed)).Msg("render cache: invalidated draft")
	return nil
}

// List returns the cached entries for a draft.
func (c *Cache) List(ctx context.Context, draftID string) ([]domain.RenderEntry, error) {
	return c.index.ListByDraft(ctx, draftID)
}

// ReadComposite loads the composite bytes for an entry.
func (c *Cache) ReadComposite(ctx context.Context, entry domain.RenderEntry) ([]byte, error) {
	return c.store.Read(ctx, entry.Path)
}

// Clear drops the whole cache. Only manual maintenance uses it.
func (c *Cache) Clear(ctx context.Context) error {
	return c.index.Clear(ctx)
}
