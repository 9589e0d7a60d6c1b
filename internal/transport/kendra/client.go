// Package kendra is the HTTP client for the secondary keyword index, an
// external enterprise search service that enforces its own document
// authorization from the caller token it is handed.
package kendra

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/kbgate/internal/domain/caller"
	"github.com/kailas-cloud/kbgate/internal/domain/document"
	"github.com/kailas-cloud/kbgate/internal/domain/policy"
)

// Config holds client settings.
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// Client talks to the keyword index over HTTP.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	normalizer *policy.Normalizer
	logger     *zap.Logger
}

// New creates a keyword index client.
func New(cfg Config, logger *zap.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: timeout},
		normalizer: policy.NewNormalizer(logger),
		logger:     logger,
	}
}

// Query runs a keyword search as the caller. The caller token travels
// with the request so the index applies its own document authorization;
// results still carry their ACL attributes for downstream defense.
func (c *Client) Query(
	ctx context.Context, query string, cl caller.Context, topK int,
) ([]document.Document, error) {
	reqBody := queryRequest{
		QueryText: query,
		PageSize:  topK,
		UserToken: cl.Token(),
		UserID:    cl.UserID(),
		Groups:    cl.Groups(),
	}

	var resp queryResponse
	if err := c.post(ctx, "/query", reqBody, &resp); err != nil {
		return nil, fmt.Errorf("keyword index query: %w", err)
	}

	docs := make([]document.Document, 0, len(resp.ResultItems))
	for _, item := range resp.ResultItems {
		docs = append(docs, c.toDocument(item))
	}
	return docs, nil
}

// ListDocuments pages through the index's document inventory for the
// sync pipeline. An empty pageToken starts from the beginning.
func (c *Client) ListDocuments(ctx context.Context, pageToken string) (document.SourcePage, error) {
	reqBody := listRequest{PageToken: pageToken}

	var resp listResponse
	if err := c.post(ctx, "/documents/list", reqBody, &resp); err != nil {
		return document.SourcePage{}, fmt.Errorf("keyword index list: %w", err)
	}

	items := make([]document.SourceDocument, 0, len(resp.Items))
	for _, it := range resp.Items {
		items = append(items, document.SourceDocument{
			ID:         it.ID,
			Title:      it.Title,
			SourceURI:  it.URI,
			Content:    it.Content,
			Author:     it.Author,
			Created:    it.Created,
			Modified:   it.Modified,
			Attributes: attributesToMap(it.Attributes),
		})
	}
	return document.SourcePage{Items: items, NextPageToken: resp.NextPageToken}, nil
}

// GetDocumentACL fetches the raw access-control attributes of one
// document, in whatever encoding the connector produced.
func (c *Client) GetDocumentACL(ctx context.Context, docID string) (map[string]any, error) {
	reqBody := aclRequest{DocumentID: docID}

	var resp aclResponse
	if err := c.post(ctx, "/documents/acl", reqBody, &resp); err != nil {
		return nil, fmt.Errorf("keyword index acl %s: %w", docID, err)
	}
	return attributesToMap(resp.Attributes), nil
}

func (c *Client) post(ctx context.Context, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(
		ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) toDocument(item resultItem) document.Document {
	metadata := attributesToMap(item.DocumentAttributes)
	metadata["title"] = item.DocumentTitle.Text
	metadata["source_uri"] = item.DocumentURI

	pol := c.normalizer.Normalize(metadata)

	return document.New(
		item.DocumentID,
		item.DocumentExcerpt.Text,
		item.DocumentTitle.Text,
		item.DocumentURI,
		confidenceScore(item.ScoreAttributes.ScoreConfidence),
		document.Metadata(metadata),
		pol,
		document.SecondaryIndex,
	)
}

// confidenceScore maps the index's coarse confidence buckets onto the
// unit interval. The buckets are ordinal, not calibrated probabilities.
func confidenceScore(confidence string) float64 {
	switch confidence {
	case "VERY_HIGH":
		return 1.0
	case "HIGH":
		return 0.75
	case "MEDIUM":
		return 0.5
	case "LOW":
		return 0.25
	default:
		return 0.1
	}
}

// attributesToMap flattens typed attribute values into plain Go values.
func attributesToMap(attrs []attribute) map[string]any {
	out := make(map[string]any, len(attrs))
	for _, a := range attrs {
		switch {
		case a.Value.StringListValue != nil:
			out[a.Key] = a.Value.StringListValue
		case a.Value.StringValue != "":
			out[a.Key] = a.Value.StringValue
		case a.Value.LongValue != nil:
			out[a.Key] = *a.Value.LongValue
		case a.Value.DateValue != "":
			out[a.Key] = a.Value.DateValue
		}
	}
	return out
}
