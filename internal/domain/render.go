package domain

import "time"

// RenderEntry records one cached template composite. Key is the canonical
// hash over (templateID, slot set, themeID); Path points at the persisted
// composite inside the file store.
type RenderEntry struct {
	Key        string
	DraftID    string
	TemplateID string
	ThemeID    string
	Path       string
	SizeBytes  int64
	CreatedAt  time.Time
}
