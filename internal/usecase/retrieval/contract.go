package retrieval

import (
	"context"

	"github.com/kailas-cloud/kbgate/internal/domain/caller"
	"github.com/kailas-cloud/kbgate/internal/domain/document"
	"github.com/kailas-cloud/kbgate/internal/domain/predicate"
)

// VectorRetriever queries the primary knowledge store with the access
// predicate pushed down.
type VectorRetriever interface {
	Retrieve(
		ctx context.Context, query string, pred predicate.Predicate, topK int,
	) ([]document.Document, error)
}

// KeywordIndex queries the secondary index as the caller; the index
// enforces its own document authorization from the caller token.
type KeywordIndex interface {
	Query(
		ctx context.Context, query string, cl caller.Context, topK int,
	) ([]document.Document, error)
}
