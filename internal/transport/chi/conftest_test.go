package chi

import (
	"context"
	"net/http/httptest"
	"time"

	chirouter "github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/kailas-cloud/kbgate/internal/domain/caller"
	"github.com/kailas-cloud/kbgate/internal/domain/document"
	"github.com/kailas-cloud/kbgate/internal/domain/policy"
	"github.com/kailas-cloud/kbgate/internal/domain/predicate"
	answeruc "github.com/kailas-cloud/kbgate/internal/usecase/answer"
	healthuc "github.com/kailas-cloud/kbgate/internal/usecase/health"
	ingestuc "github.com/kailas-cloud/kbgate/internal/usecase/ingest"
	retrievaluc "github.com/kailas-cloud/kbgate/internal/usecase/retrieval"
)

// Shared stubs and server harness for the transport tests.

type stubVector struct {
	retrieveFn func(ctx context.Context, query string, pred predicate.Predicate, topK int) ([]document.Document, error)
}

func (s *stubVector) Retrieve(
	ctx context.Context, query string, pred predicate.Predicate, topK int,
) ([]document.Document, error) {
	if s.retrieveFn == nil {
		return nil, nil
	}
	return s.retrieveFn(ctx, query, pred, topK)
}

type stubKeyword struct {
	queryFn func(ctx context.Context, query string, cl caller.Context, topK int) ([]document.Document, error)
}

func (s *stubKeyword) Query(
	ctx context.Context, query string, cl caller.Context, topK int,
) ([]document.Document, error) {
	if s.queryFn == nil {
		return nil, nil
	}
	return s.queryFn(ctx, query, cl, topK)
}

type stubCompleter struct {
	calls      int
	completeFn func(ctx context.Context, systemPrompt, userMessage, cacheHint string) (string, error)
}

func (s *stubCompleter) Complete(
	ctx context.Context, systemPrompt, userMessage, cacheHint string,
) (string, error) {
	s.calls++
	if s.completeFn == nil {
		return "stub answer", nil
	}
	return s.completeFn(ctx, systemPrompt, userMessage, cacheHint)
}

type noopCache struct{}

func (noopCache) Get(string, []string) (string, bool) { return "", false }
func (noopCache) Put(string, []string, string)        {}

type stubSource struct {
	listFn func(ctx context.Context, pageToken string) (document.SourcePage, error)
	aclFn  func(ctx context.Context, docID string) (map[string]any, error)
}

func (s *stubSource) ListDocuments(ctx context.Context, pageToken string) (document.SourcePage, error) {
	if s.listFn == nil {
		return document.SourcePage{}, nil
	}
	return s.listFn(ctx, pageToken)
}

func (s *stubSource) GetDocumentACL(ctx context.Context, docID string) (map[string]any, error) {
	if s.aclFn == nil {
		return nil, nil
	}
	return s.aclFn(ctx, docID)
}

type stubStaging struct{}

func (stubStaging) PutObject(context.Context, string, []byte) error          { return nil }
func (stubStaging) PutDocument(context.Context, string, map[string]string) error { return nil }

type stubIndexer struct {
	jobID string
}

func (s *stubIndexer) StartIngestion(context.Context) (string, error) {
	return s.jobID, nil
}

type stubPinger struct {
	err error
}

func (s *stubPinger) Ping(context.Context) error { return s.err }

type stubProvider struct {
	err error
}

func (s *stubProvider) HealthCheck(context.Context) error { return s.err }

// testDeps bundles the stubs a test may want to inspect or override.
type testDeps struct {
	vector    *stubVector
	keyword   *stubKeyword
	completer *stubCompleter
	source    *stubSource
	indexer   *stubIndexer
	pinger    *stubPinger
	provider  *stubProvider
}

func newTestServer() (*httptest.Server, *testDeps) {
	deps := &testDeps{
		vector:    &stubVector{},
		keyword:   &stubKeyword{},
		completer: &stubCompleter{},
		source:    &stubSource{},
		indexer:   &stubIndexer{jobID: "job-1"},
		pinger:    &stubPinger{},
		provider:  &stubProvider{},
	}

	logger := zap.NewNop()
	retrieval := retrievaluc.New(deps.vector, deps.keyword, time.Second, logger)
	answer := answeruc.New(deps.completer, noopCache{}, logger)
	ingest := ingestuc.New(deps.source, stubStaging{}, deps.indexer, logger)
	health := healthuc.New(deps.pinger, deps.provider)

	srv := NewServer(retrieval, answer, ingest, health)
	r := chirouter.NewRouter()
	srv.RegisterRoutes(r)

	return httptest.NewServer(r), deps
}

func allowedDoc(id string, score float64, kind document.SourceKind) document.Document {
	pol := policy.New([]string{"alice"}, nil, nil, nil)
	meta := document.Metadata{
		"classification": "internal",
		"access_users":   "alice",
	}
	return document.New(id, "content of "+id, "Title "+id, "https://docs/"+id, score, meta, pol, kind)
}
