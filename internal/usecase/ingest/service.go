// Package ingest is the sync pipeline: it pulls documents from the
// external source index, normalizes their access control, classifies
// them, and stages canonical documents for primary-index ingestion.
package ingest

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"unicode"

	"go.uber.org/zap"

	"github.com/kailas-cloud/kbgate/internal/domain/classify"
	"github.com/kailas-cloud/kbgate/internal/domain/document"
	"github.com/kailas-cloud/kbgate/internal/domain/policy"
	"github.com/kailas-cloud/kbgate/internal/metrics"
)

// SyncPrefix is the staging path canonical text documents land under.
const SyncPrefix = "sync/"

// Report summarizes one sync run.
type Report struct {
	JobID     string
	Processed int
	Failed    int
}

// Service runs the sync pipeline.
type Service struct {
	source     SourceIndex
	staging    ObjectStore
	indexer    PrimaryIndexer
	normalizer *policy.Normalizer
	logger     *zap.Logger
}

// New creates a sync service.
func New(source SourceIndex, staging ObjectStore, indexer PrimaryIndexer, logger *zap.Logger) *Service {
	return &Service{
		source:     source,
		staging:    staging,
		indexer:    indexer,
		normalizer: policy.NewNormalizer(logger),
		logger:     logger,
	}
}

// Sync pulls the full document inventory, stages every convertible
// document, then triggers primary-index ingestion. Per-document failures
// are counted and logged; the run continues. Sync never touches
// query-path state.
func (s *Service) Sync(ctx context.Context) (Report, error) {
	var report Report

	pageToken := ""
	for {
		page, err := s.source.ListDocuments(ctx, pageToken)
		if err != nil {
			return report, fmt.Errorf("list source documents: %w", err)
		}

		for _, src := range page.Items {
			if err := s.stageDocument(ctx, src); err != nil {
				metrics.IngestionDocumentsTotal.WithLabelValues("failed").Inc()
				s.logger.Warn("skipping source document",
					zap.String("doc_id", src.ID), zap.Error(err))
				report.Failed++
				continue
			}
			metrics.IngestionDocumentsTotal.WithLabelValues("staged").Inc()
			report.Processed++
		}

		if page.NextPageToken == "" {
			break
		}
		pageToken = page.NextPageToken
	}

	jobID, err := s.indexer.StartIngestion(ctx)
	if err != nil {
		return report, fmt.Errorf("start ingestion: %w", err)
	}
	report.JobID = jobID

	s.logger.Info("sync complete",
		zap.String("job_id", jobID),
		zap.Int("processed", report.Processed),
		zap.Int("failed", report.Failed))
	return report, nil
}

func (s *Service) stageDocument(ctx context.Context, src document.SourceDocument) error {
	attrs := make(map[string]any, len(src.Attributes))
	for k, v := range src.Attributes {
		attrs[k] = v
	}

	// The inventory listing may omit ACL detail; the per-document ACL
	// endpoint is authoritative when it answers.
	if acl, err := s.source.GetDocumentACL(ctx, src.ID); err != nil {
		s.logger.Warn("acl fetch failed, using listing attributes",
			zap.String("doc_id", src.ID), zap.Error(err))
	} else {
		for k, v := range acl {
			attrs[k] = v
		}
	}

	pol := s.normalizer.Normalize(attrs)
	filename := generateFilename(src.Title, src.ID)
	cls := classify.Classify(pol, uriPath(src.SourceURI), filename)

	fields := canonicalFields(src, pol, cls)
	content := composeDocument(fields, src.Content)
	fields["__content"] = content

	if err := s.staging.PutObject(ctx, SyncPrefix+filename, []byte(content)); err != nil {
		return err
	}
	if err := s.staging.PutDocument(ctx, src.ID, fields); err != nil {
		return err
	}
	return nil
}

// canonicalFields builds the flat metadata hash every staged document
// carries. Access fields are pipe-joined string lists.
func canonicalFields(
	src document.SourceDocument, pol policy.AccessPolicy, cls classify.Result,
) map[string]string {
	return map[string]string{
		"source":      "keyword_index",
		"internal_id": src.ID,
		"title":       src.Title,
		"source_uri":  src.SourceURI,
		"author":      src.Author,
		"created":     src.Created,
		"modified":    src.Modified,

		"access_users":  strings.Join(pol.AllowedUsers(), "|"),
		"access_groups": strings.Join(pol.AllowedGroups(), "|"),
		"denied_users":  strings.Join(pol.DeniedUsers(), "|"),
		"denied_groups": strings.Join(pol.DeniedGroups(), "|"),

		"classification": string(cls.Classification),
		"department":     cls.Department,
		"site":           siteFromURI(src.SourceURI),
	}
}

// composeDocument prepends the metadata header the indexer keys on.
func composeDocument(fields map[string]string, content string) string {
	header := strings.Join([]string{
		"Title: " + fields["title"],
		fmt.Sprintf("Source: %s (%s)", fields["source"], fields["site"]),
		"Author: " + fields["author"],
		"Created: " + fields["created"],
		"Modified: " + fields["modified"],
		"Department: " + fields["department"],
		"Classification: " + fields["classification"],
		"---",
	}, "\n")

	return header + "\n\n" + content
}

// generateFilename derives a clean, unique staging filename from the
// title and the first 8 characters of the document id.
func generateFilename(title, docID string) string {
	if title == "" {
		title = "document"
	}

	var b strings.Builder
	for _, r := range title {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '_':
			b.WriteRune(r)
		case r == ' ':
			b.WriteRune(' ')
		}
	}
	clean := strings.ReplaceAll(strings.TrimSpace(b.String()), " ", "_")
	if clean == "" {
		clean = "document"
	}

	id8 := docID
	if len(id8) > 8 {
		id8 = id8[:8]
	}
	return fmt.Sprintf("%s_%s.txt", clean, id8)
}

// siteFromURI extracts the site segment from a /sites/<name>/ URI.
func siteFromURI(uri string) string {
	if _, after, ok := strings.Cut(uri, "/sites/"); ok {
		if name, _, _ := strings.Cut(after, "/"); name != "" {
			return name
		}
	}
	return "unknown"
}

// uriPath returns the path used as a classification hint: the portion
// after /sites/, where structured sources lay documents out as
// <department>/<classification>/... .
func uriPath(uri string) string {
	u, err := url.Parse(uri)
	if err != nil {
		return ""
	}
	if _, after, ok := strings.Cut(u.Path, "/sites/"); ok {
		return after
	}
	return u.Path
}
