package repo

import (
	"time"

	"studio/internal/domain"
)

func renderEntry(key, draftID, templateID, themeID string) domain.RenderEntry {
	return domain.RenderEntry{
		Key:        key,
		DraftID:    draftID,
		TemplateID: templateID,
		ThemeID:    themeID,
		Path:       "renders/" + key + ".png",
		SizeBytes:  1024,
		CreatedAt:  time.Now(),
	}
}
