package domain

import "context"

// ResultCache maps (source identity, operation signature) onto a previously
// computed derived asset URL. Concurrent reads are safe; concurrent writes to
// the same key are last-writer-wins, values for a key being equivalent.
type ResultCache interface {
	Lookup(ctx context.Context, sourceIdentity, signature string) (string, bool, error)
	Store(ctx context.Context, sourceIdentity, signature, url string) error
	// Clear drops every entry. Only manual maintenance uses it.
	Clear(ctx context.Context) error
}

// RenderIndex persists render cache entries. Composite bytes live in the
// file store; the index only records where they are.
type RenderIndex interface {
	Get(ctx context.Context, draftID, themeID string) (*RenderEntry, error)
	GetByKey(ctx context.Context, key string) (*RenderEntry, error)
	Put(ctx context.Context, entry RenderEntry) error
	ListByDraft(ctx context.Context, draftID string) ([]RenderEntry, error)
	// DeleteByDraft removes every entry for the draft and returns what was
	// removed so callers can clean up the persisted composites.
	DeleteByDraft(ctx context.Context, draftID string) ([]RenderEntry, error)
	Clear(ctx context.Context) error
}

// Uploader turns bytes into a durable, fetchable URL.
type Uploader interface {
	Upload(ctx context.Context, key string, data []byte) (string, error)
}
