// Package retrieval orchestrates access-controlled retrieval across the
// primary knowledge store and the secondary keyword index.
package retrieval

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/kbgate/internal/domain/caller"
	"github.com/kailas-cloud/kbgate/internal/domain/document"
	"github.com/kailas-cloud/kbgate/internal/domain/predicate"
	"github.com/kailas-cloud/kbgate/internal/metrics"
)

// DefaultLimit caps the merged result list when the caller does not ask
// for a specific size.
const DefaultLimit = 10

// DefaultTimeout bounds each backend call.
const DefaultTimeout = 10 * time.Second

// Provenance records what one backend contributed to a response.
type Provenance struct {
	Count int
	Err   error
}

// ResultSet is the merged, ranked, caller-visible result list plus
// per-backend provenance.
type ResultSet struct {
	Documents  []document.Document
	Provenance map[document.SourceKind]Provenance
}

// Degraded reports whether any queried backend failed.
func (rs ResultSet) Degraded() bool {
	for _, p := range rs.Provenance {
		if p.Err != nil {
			return true
		}
	}
	return false
}

// Service fans a query out to the retrieval backends and merges the
// results under the caller's access policy.
type Service struct {
	vector  VectorRetriever
	keyword KeywordIndex
	timeout time.Duration
	logger  *zap.Logger
}

// New creates a retrieval service. timeout <= 0 falls back to
// DefaultTimeout.
func New(vector VectorRetriever, keyword KeywordIndex, timeout time.Duration, logger *zap.Logger) *Service {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Service{vector: vector, keyword: keyword, timeout: timeout, logger: logger}
}

// Retrieve compiles the caller's access predicate, queries the selected
// backends in parallel, and merges the results. An identity-less caller
// fails here, before any backend is contacted. A failing or timed-out
// backend contributes nothing and is recorded in the provenance; the
// request still succeeds with the other backend's results.
func (s *Service) Retrieve(
	ctx context.Context, query string, cl caller.Context,
	limit int, sources []document.SourceKind,
) (ResultSet, error) {
	pred, err := predicate.Compile(cl)
	if err != nil {
		return ResultSet{}, err
	}

	if limit <= 0 {
		limit = DefaultLimit
	}

	wantPrimary, wantSecondary := selectSources(sources)
	if s.keyword == nil {
		// Secondary index not configured for this deployment.
		wantSecondary = false
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		byBackend = make(map[document.SourceKind][]document.Document, 2)
		prov      = make(map[document.SourceKind]Provenance, 2)
	)

	fetch := func(kind document.SourceKind, fn func(ctx context.Context) ([]document.Document, error)) {
		defer wg.Done()

		callCtx, cancel := context.WithTimeout(ctx, s.timeout)
		defer cancel()

		start := time.Now()
		docs, err := fn(callCtx)
		metrics.RetrievalRequestDuration.WithLabelValues(string(kind)).
			Observe(time.Since(start).Seconds())

		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			metrics.RetrievalRequestsTotal.WithLabelValues(string(kind), "error").Inc()
			s.logger.Warn("retrieval backend failed",
				zap.String("backend", string(kind)), zap.Error(err))
			prov[kind] = Provenance{Err: err}
			return
		}
		metrics.RetrievalRequestsTotal.WithLabelValues(string(kind), "success").Inc()
		byBackend[kind] = docs
		prov[kind] = Provenance{Count: len(docs)}
	}

	if wantPrimary {
		wg.Add(1)
		go fetch(document.PrimaryStore, func(ctx context.Context) ([]document.Document, error) {
			return s.vector.Retrieve(ctx, query, pred, limit)
		})
	}
	if wantSecondary {
		wg.Add(1)
		go fetch(document.SecondaryIndex, func(ctx context.Context) ([]document.Document, error) {
			return s.keyword.Query(ctx, query, cl, limit)
		})
	}
	wg.Wait()

	// Fixed backend order keeps deduplication deterministic.
	merged := merge(
		[][]document.Document{
			byBackend[document.PrimaryStore],
			byBackend[document.SecondaryIndex],
		},
		cl, limit,
	)

	metrics.RetrievalResultsMerged.WithLabelValues("retrieve").Observe(float64(len(merged)))

	return ResultSet{Documents: merged, Provenance: prov}, nil
}

// selectSources interprets the caller's source selection; empty means
// every backend.
func selectSources(sources []document.SourceKind) (primary, secondary bool) {
	if len(sources) == 0 {
		return true, true
	}
	for _, src := range sources {
		switch src {
		case document.PrimaryStore:
			primary = true
		case document.SecondaryIndex:
			secondary = true
		}
	}
	return primary, secondary
}
