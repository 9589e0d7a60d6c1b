// Package vectorindex adapts the primary knowledge store (RediSearch
// vector index) to the retrieval and ingestion use cases.
package vectorindex

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/kbgate/internal/db"
	"github.com/kailas-cloud/kbgate/internal/domain"
	"github.com/kailas-cloud/kbgate/internal/domain/document"
	"github.com/kailas-cloud/kbgate/internal/domain/policy"
	"github.com/kailas-cloud/kbgate/internal/domain/predicate"
)

// store is the consumer interface for primary-store operations (ISP).
type store interface {
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	Scan(ctx context.Context, pattern string) ([]string, error)
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	HSet(ctx context.Context, key string, fields map[string]string) error
	Del(ctx context.Context, key string) error
}

// embedder vectorizes query and document text.
type embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Repo implements usecase/retrieval.VectorRetriever and
// usecase/ingest.PrimaryIndexer over a vector index.
type Repo struct {
	store      store
	embedder   embedder
	normalizer *policy.Normalizer
	indexName  string
	logger     *zap.Logger
}

// New creates a vector index adapter for the named index.
func New(s store, e embedder, indexName string, logger *zap.Logger) *Repo {
	return &Repo{
		store:      s,
		embedder:   e,
		normalizer: policy.NewNormalizer(logger),
		indexName:  indexName,
		logger:     logger,
	}
}

// Retrieve embeds the query and runs a pre-filtered KNN search. The
// access predicate is pushed down as a tag OR filter so unauthorized
// documents never leave the store.
func (r *Repo) Retrieve(
	ctx context.Context, query string, pred predicate.Predicate, topK int,
) ([]document.Document, error) {
	vector, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	q := &db.KNNQuery{
		IndexName: fmt.Sprintf("%s%s:idx", domain.KeyPrefix, r.indexName),
		Filter:    BuildFilter(pred),
		Vector:    vector,
		K:         topK,
	}

	sr, err := r.store.SearchKNN(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("search knn %s: %w", r.indexName, err)
	}

	return r.parseResults(sr), nil
}

// BuildFilter translates an access predicate into a RediSearch tag OR
// filter fragment. An empty predicate yields "" (match-all), which the
// compiler never produces on the query path.
func BuildFilter(pred predicate.Predicate) string {
	conds := pred.Conditions()
	if len(conds) == 0 {
		return ""
	}
	clauses := make([]string, 0, len(conds))
	for _, c := range conds {
		clauses = append(clauses, fmt.Sprintf("@%s:{%s}", c.Field(), escapeTag(c.Value())))
	}
	return strings.Join(clauses, " | ")
}

// tagSpecials are the characters RediSearch treats as syntax inside a
// tag value; each must be backslash-escaped.
const tagSpecials = ",.<>{}[]\"':;!@#$%^&*()-+=~ |/\\"

func escapeTag(v string) string {
	var b strings.Builder
	b.Grow(len(v))
	for _, ch := range v {
		if strings.ContainsRune(tagSpecials, ch) {
			b.WriteByte('\\')
		}
		b.WriteRune(ch)
	}
	return b.String()
}

func (r *Repo) parseResults(sr *db.SearchResult) []document.Document {
	if sr == nil || sr.Total == 0 {
		return nil
	}

	prefix := fmt.Sprintf("%s%s:", domain.KeyPrefix, r.indexName)
	docs := make([]document.Document, 0, len(sr.Entries))

	for _, entry := range sr.Entries {
		docID := strings.TrimPrefix(entry.Key, prefix)
		docs = append(docs, r.parseEntry(docID, entry))
	}

	return docs
}

// pipeFields hold pipe-joined string lists in the canonical hash layout.
var pipeFields = map[string]bool{
	"access_users":  true,
	"access_groups": true,
	"denied_users":  true,
	"denied_groups": true,
}

func (r *Repo) parseEntry(docID string, entry db.SearchEntry) document.Document {
	var content, title, sourceURI string
	metadata := make(document.Metadata, len(entry.Fields))

	for k, v := range entry.Fields {
		switch k {
		case "__content":
			content = v
		case "__vector":
			// vectors never leave the adapter
		case "title":
			title = v
			metadata[k] = v
		case "source_uri":
			sourceURI = v
			metadata[k] = v
		default:
			if pipeFields[k] {
				metadata[k] = splitPipe(v)
			} else {
				metadata[k] = v
			}
		}
	}

	pol := r.normalizer.Normalize(metadata)

	return document.New(
		docID, content, title, sourceURI,
		entry.Score, metadata, pol, document.PrimaryStore,
	)
}

func splitPipe(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, "|")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
