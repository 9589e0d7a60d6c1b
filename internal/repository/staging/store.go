// Package staging is the object store the sync pipeline writes into:
// composed text documents, canonical metadata hashes, and chunked page
// windows, all awaiting primary-index ingestion.
package staging

import (
	"context"
	"fmt"
	"strings"

	"github.com/kailas-cloud/kbgate/internal/domain"
)

// store is the consumer interface for staging operations (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Del(ctx context.Context, key string) error
	Scan(ctx context.Context, pattern string) ([]string, error)
	HSet(ctx context.Context, key string, fields map[string]string) error
}

// Repo implements the object store contract of the sync and chunking
// use cases over the key-value store.
type Repo struct {
	store store
}

// New creates a staging repository.
func New(s store) *Repo {
	return &Repo{store: s}
}

// PutObject stages a file object under the given name.
func (r *Repo) PutObject(ctx context.Context, name string, data []byte) error {
	if err := r.store.Set(ctx, domain.StagingObjPrefix+name, data); err != nil {
		return fmt.Errorf("stage object %s: %w", name, err)
	}
	return nil
}

// GetObject reads a staged file object.
func (r *Repo) GetObject(ctx context.Context, name string) ([]byte, error) {
	data, err := r.store.Get(ctx, domain.StagingObjPrefix+name)
	if err != nil {
		return nil, fmt.Errorf("read staged object %s: %w", name, err)
	}
	return data, nil
}

// DeleteObject removes a staged file object.
func (r *Repo) DeleteObject(ctx context.Context, name string) error {
	if err := r.store.Del(ctx, domain.StagingObjPrefix+name); err != nil {
		return fmt.Errorf("delete staged object %s: %w", name, err)
	}
	return nil
}

// ListObjects returns the names of staged objects under the given name
// prefix ("" lists everything).
func (r *Repo) ListObjects(ctx context.Context, prefix string) ([]string, error) {
	keys, err := r.store.Scan(ctx, domain.StagingObjPrefix+prefix+"*")
	if err != nil {
		return nil, fmt.Errorf("list staged objects: %w", err)
	}
	names := make([]string, 0, len(keys))
	for _, k := range keys {
		names = append(names, strings.TrimPrefix(k, domain.StagingObjPrefix))
	}
	return names, nil
}

// PutDocument stages a canonical document hash for the next ingestion run.
func (r *Repo) PutDocument(ctx context.Context, id string, fields map[string]string) error {
	if err := r.store.HSet(ctx, domain.StagingDocPrefix+id, fields); err != nil {
		return fmt.Errorf("stage document %s: %w", id, err)
	}
	return nil
}
