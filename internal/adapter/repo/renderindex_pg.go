package repo

import (
	"context"
	"fmt"

	"studio/internal/domain"
	"studio/internal/infra"
	"studio/internal/sqlinline"
)

// PGRenderIndex persists render cache entries in Postgres so invalidation
// survives restarts. Composite bytes stay in the file store.
type PGRenderIndex struct {
	sql infra.SQLExecutor
}

// NewPGRenderIndex wraps a SQL runner.
func NewPGRenderIndex(sql infra.SQLExecutor) *PGRenderIndex {
	return &PGRenderIndex{sql: sql}
}

func (p *PGRenderIndex) Get(ctx context.Context, draftID, themeID string) (*domain.RenderEntry, error) {
	row := p.sql.QueryRow(ctx, sqlinline.QGetRenderEntry, draftID, themeID)
	entry, err := scanRenderEntry(row)
	if err != nil {
		if infra.IsNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("render index: get: %w", err)
	}
	return entry, nil
}

func (p *PGRenderIndex) GetByKey(ctx context.Context, key string) (*domain.RenderEntry, error) {
	row := p.sql.QueryRow(ctx, sqlinline.QGetRenderEntryByKey, key)
	entry, err := scanRenderEntry(row)
	if err != nil {
		if infra.IsNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("render index: get by key: %w", err)
	}
	return entry, nil
}

func (p *PGRenderIndex) Put(ctx context.Context, entry domain.RenderEntry) error {
	_, err := p.sql.Exec(ctx, sqlinline.QUpsertRenderEntry,
		entry.Key, entry.DraftID, entry.TemplateID, entry.ThemeID, entry.Path, entry.SizeBytes)
	if err != nil {
		return fmt.Errorf("render index: put: %w", err)
	}
	return nil
}

func (p *PGRenderIndex) ListByDraft(ctx context.Context, draftID string) ([]domain.RenderEntry, error) {
	rows, err := p.sql.Query(ctx, sqlinline.QListRenderEntriesByDraft, draftID)
	if err != nil {
		return nil, fmt.Errorf("render index: list: %w", err)
	}
	defer rows.Close()
	var out []domain.RenderEntry
	for rows.Next() {
		var entry domain.RenderEntry
		if err := rows.Scan(&entry.Key, &entry.DraftID, &entry.TemplateID, &entry.ThemeID,
			&entry.Path, &entry.SizeBytes, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("render index: scan: %w", err)
		}
		out = append(out, entry)
	}
	return out, rows.Err()
}

func (p *PGRenderIndex) DeleteByDraft(ctx context.Context, draftID string) ([]domain.RenderEntry, error) {
	rows, err := p.sql.Query(ctx, sqlinline.QDeleteRenderEntriesByDraft, draftID)
	if err != nil {
		return nil, fmt.Errorf("render index: delete by draft: %w", err)
	}
	defer rows.Close()
	var removed []domain.RenderEntry
	for rows.Next() {
		var entry domain.RenderEntry
		if err := rows.Scan(&entry.Key, &entry.DraftID, &entry.TemplateID, &entry.ThemeID,
			&entry.Path, &entry.SizeBytes, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("render index: scan removed: %w", err)
		}
		removed = append(removed, entry)
	}
	return removed, rows.Err()
}

func (p *PGRenderIndex) Clear(ctx context.Context) error {
	if _, err := p.sql.Exec(ctx, sqlinline.QClearRenderEntries); err != nil {
		return fmt.Errorf("render index: clear: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRenderEntry(row rowScanner) (*domain.RenderEntry, error) {
	var entry domain.RenderEntry
	if err := row.Scan(&entry.Key, &entry.DraftID, &entry.TemplateID, &entry.ThemeID,
		&entry.Path, &entry.SizeBytes, &entry.CreatedAt); err != nil {
		return nil, err
	}
	return &entry, nil
}

var _ domain.RenderIndex = (*PGRenderIndex)(nil)
