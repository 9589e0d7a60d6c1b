package ingest

import (
	"context"

	"github.com/kailas-cloud/kbgate/internal/domain/document"
)

// SourceIndex is the external source the sync pipeline pulls from.
type SourceIndex interface {
	ListDocuments(ctx context.Context, pageToken string) (document.SourcePage, error)
	GetDocumentACL(ctx context.Context, docID string) (map[string]any, error)
}

// ObjectStore is the staging area canonical documents are written into.
type ObjectStore interface {
	PutObject(ctx context.Context, name string, data []byte) error
	PutDocument(ctx context.Context, id string, fields map[string]string) error
}

// PrimaryIndexer ingests staged documents into the primary store.
type PrimaryIndexer interface {
	StartIngestion(ctx context.Context) (string, error)
}
