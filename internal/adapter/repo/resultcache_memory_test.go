package repo

import (
	"context"
	"testing"
)

func TestMemoryResultCacheRoundTrip(t *testing.T) {
	ctx := context.Background()
	cache := NewMemoryResultCache()

	if _, ok, err := cache.Lookup(ctx, "img-1", "remove_background"); err != nil || ok {
		t.Fatalf("expected clean miss, got ok=%v err=%v", ok, err)
	}

	if err := cache.Store(ctx, "img-1", "remove_background", "mask-url-1"); err != nil {
		t.Fatalf("Store: %v", err)
	}
	url, ok, err := cache.Lookup(ctx, "img-1", "remove_background")
	if err != nil || !ok || url != "mask-url-1" {
		t.Fatalf("unexpected lookup: url=%q ok=%v err=%v", url, ok, err)
	}

	// Same source, different signature stays independent.
	if _, ok, _ := cache.Lookup(ctx, "img-1", "enhance"); ok {
		t.Fatal("signatures must not collide")
	}

	// Overwrite on conflict is last-writer-wins.
	if err := cache.Store(ctx, "img-1", "remove_background", "mask-url-2"); err != nil {
		t.Fatalf("Store: %v", err)
	}
	url, _, _ = cache.Lookup(ctx, "img-1", "remove_background")
	if url != "mask-url-2" {
		t.Fatalf("expected overwrite, got %q", url)
	}

	if err := cache.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if _, ok, _ := cache.Lookup(ctx, "img-1", "remove_background"); ok {
		t.Fatal("expected miss after clear")
	}
}

func TestMemoryRenderIndexDraftLifecycle(t *testing.T) {
	ctx := context.Background()
	index := NewMemoryRenderIndex()

	entries := []struct {
		key, theme string
	}{
		{"key-default", "default"},
		{"key-dark", "dark"},
	}
	for _, e := range entries {
		if err := index.Put(ctx, renderEntry(e.key, "d1", "tpl-1", e.theme)); err != nil {
			t.Fatalf("Put: %v", err)
		}
	}

	got, err := index.Get(ctx, "d1", "default")
	if err != nil || got == nil || got.Key != "key-default" {
		t.Fatalf("unexpected get: %+v err=%v", got, err)
	}

	listed, err := index.ListByDraft(ctx, "d1")
	if err != nil || len(listed) != 2 {
		t.Fatalf("unexpected list: %v err=%v", listed, err)
	}

	removed, err := index.DeleteByDraft(ctx, "d1")
	if err != nil || len(removed) != 2 {
		t.Fatalf("unexpected delete: %v err=%v", removed, err)
	}
	for _, e := range entries {
		if got, _ := index.Get(ctx, "d1", e.theme); got != nil {
			t.Fatalf("theme %s still cached after invalidation", e.theme)
		}
		if got, _ := index.GetByKey(ctx, e.key); got != nil {
			t.Fatalf("key %s still cached after invalidation", e.key)
		}
	}
}
