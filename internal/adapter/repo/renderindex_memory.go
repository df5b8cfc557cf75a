package repo

import (
	"context"
	"sync"

	"studio/internal/domain"
)

// MemoryRenderIndex keeps render cache entries in process memory. It is the
// backend used when no database is configured.
type MemoryRenderIndex struct {
	mu      sync.RWMutex
	byKey   map[string]domain.RenderEntry
	byDraft map[string]map[string]string // draftID -> themeID -> key
}

// NewMemoryRenderIndex builds an empty index.
func NewMemoryRenderIndex() *MemoryRenderIndex {
	return &MemoryRenderIndex{
		byKey:   make(map[string]domain.RenderEntry),
		byDraft: make(map[string]map[string]string),
	}
}

func (m *MemoryRenderIndex) Get(ctx context.Context, draftID, themeID string) (*domain.RenderEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	themes, ok := m.byDraft[draftID]
	if !ok {
		return nil, nil
	}
	key, ok := themes[themeID]
	if !ok {
		return nil, nil
	}
	entry, ok := m.byKey[key]
	if !ok {
		return nil, nil
	}
	return &entry, nil
}

func (m *MemoryRenderIndex) GetByKey(ctx context.Context, key string) (*domain.RenderEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	entry, ok := m.byKey[key]
	if !ok {
		return nil, nil
	}
	return &entry, nil
}

func (m *MemoryRenderIndex) Put(ctx context.Context, entry domain.RenderEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byKey[entry.Key] = entry
	themes, ok := m.byDraft[entry.DraftID]
	if !ok {
		themes = make(map[string]string)
		m.byDraft[entry.DraftID] = themes
	}
	// One entry per theme: replacing a theme's entry drops the old key.
	if old, ok := themes[entry.ThemeID]; ok && old != entry.Key {
		delete(m.byKey, old)
	}
	themes[entry.ThemeID] = entry.Key
	return nil
}

func (m *MemoryRenderIndex) ListByDraft(ctx context.Context, draftID string) ([]domain.RenderEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []domain.RenderEntry
	for _, key := range m.byDraft[draftID] {
		if entry, ok := m.byKey[key]; ok {
			out = append(out, entry)
		}
	}
	return out, nil
}

func (m *MemoryRenderIndex) DeleteByDraft(ctx context.Context, draftID string) ([]domain.RenderEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var removed []domain.RenderEntry
	for _, key := range m.byDraft[draftID] {
		if entry, ok := m.byKey[key]; ok {
			removed = append(removed, entry)
			delete(m.byKey, key)
		}
	}
	delete(m.byDraft, draftID)
	return removed, nil
}

func (m *MemoryRenderIndex) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byKey = make(map[string]domain.RenderEntry)
	m.byDraft = make(map[string]map[string]string)
	return nil
}

var _ domain.RenderIndex = (*MemoryRenderIndex)(nil)
