package storage

import (
	"context"
	"errors"
	"strings"
)

// PublicStore wraps a FileStore and exposes written files under a public base
// URL, satisfying the uploader contract used by the normalizer.
type PublicStore struct {
	store   *FileStore
	baseURL string
}

// NewPublicStore builds a PublicStore serving files from store at baseURL.
func NewPublicStore(store *FileStore, baseURL string) (*PublicStore, error) {
	if store == nil {
		return nil, errors.New("storage: file store is required")
	}
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.New("storage: base url is required")
	}
	return &PublicStore{store: store, baseURL: baseURL}, nil
}

// Upload persists data under key and returns its public URL.
func (p *PublicStore) Upload(ctx context.Context, key string, data []byte) (string, error) {
	savedKey, err := p.store.Write(ctx, key, data)
	if err != nil {
		return "", err
	}
	return p.baseURL + "/" + savedKey, nil
}

// URL resolves an already-stored key to its public URL.
func (p *PublicStore) URL(key string) string {
	cleanKey, err := sanitizeKey(key)
	if err != nil {
		return ""
	}
	return p.baseURL + "/" + cleanKey
}
