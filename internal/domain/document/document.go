// Package document models a retrieved document snippet and its
// response-boundary sanitization.
package document

import (
	"github.com/kailas-cloud/kbgate/internal/domain/policy"
)

// SourceKind identifies which backend produced a document.
type SourceKind string

const (
	// PrimaryStore is the vector knowledge store.
	PrimaryStore SourceKind = "primary_store"
	// SecondaryIndex is the keyword, ACL-aware search index.
	SecondaryIndex SourceKind = "secondary_index"
)

// Metadata is the document attribute mapping. Values are strings, numbers,
// or string lists depending on the producing backend.
type Metadata map[string]any

// sensitiveFields never leave the system boundary. The list is declarative
// so sanitization is testable and holds on degraded responses too.
var sensitiveFields = []string{
	"access_users",
	"access_groups",
	"denied_users",
	"denied_groups",
	"internal_id",
	"processing_metadata",
	"acl_v2",
	"sharepoint_acl_v2",
	"sharepoint_allowed_users",
	"sharepoint_allowed_groups",
	"sharepoint_denied_users",
	"sharepoint_denied_groups",
}

// Sanitized returns a copy with every ACL-bearing and internal-only field
// stripped. The receiver is not modified.
func (m Metadata) Sanitized() Metadata {
	out := make(Metadata, len(m))
	for k, v := range m {
		out[k] = v
	}
	for _, f := range sensitiveFields {
		delete(out, f)
	}
	return out
}

// Document is a scored snippet returned by a retrieval backend.
// Immutable once built; its lifetime is the request.
type Document struct {
	id         string
	content    string
	title      string
	sourceURI  string
	score      float64
	metadata   Metadata
	accessPol  policy.AccessPolicy
	sourceKind SourceKind
}

// New creates a document.
func New(
	id, content, title, sourceURI string,
	score float64,
	metadata Metadata,
	accessPol policy.AccessPolicy,
	kind SourceKind,
) Document {
	if metadata == nil {
		metadata = Metadata{}
	}
	return Document{
		id:         id,
		content:    content,
		title:      title,
		sourceURI:  sourceURI,
		score:      score,
		metadata:   metadata,
		accessPol:  accessPol,
		sourceKind: kind,
	}
}

// ID returns the backend-assigned document identifier.
func (d *Document) ID() string { return d.id }

// Content returns the snippet text.
func (d *Document) Content() string { return d.content }

// Title returns the document title ("" if the backend supplied none).
func (d *Document) Title() string { return d.title }

// SourceURI returns the document's origin location.
func (d *Document) SourceURI() string { return d.sourceURI }

// Score returns the backend-assigned relevance. Scores are not comparable
// across backends; the merger deliberately does not renormalize them.
func (d *Document) Score() float64 { return d.score }

// Metadata returns the raw (unsanitized) attribute mapping.
func (d *Document) Metadata() Metadata { return d.metadata }

// Policy returns the normalized access policy.
func (d *Document) Policy() policy.AccessPolicy { return d.accessPol }

// SourceKind returns which backend produced the document.
func (d *Document) SourceKind() SourceKind { return d.sourceKind }
