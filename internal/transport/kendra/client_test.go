package kendra

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/kbgate/internal/domain/caller"
	"github.com/kailas-cloud/kbgate/internal/domain/document"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(Config{BaseURL: srv.URL, APIKey: "secret", Timeout: time.Second}, zap.NewNop())
}

func TestQuery_PassesCallerToken(t *testing.T) {
	var gotBody queryRequest
	var gotAuth string

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(queryResponse{})
	})

	cl := caller.New("alice", []string{"finance-team"}, "tok-123")
	if _, err := c.Query(context.Background(), "revenue", cl, 5); err != nil {
		t.Fatalf("Query: %v", err)
	}

	if gotAuth != "Bearer secret" {
		t.Errorf("auth header = %q", gotAuth)
	}
	if gotBody.UserToken != "tok-123" {
		t.Errorf("user token = %q, want caller token forwarded", gotBody.UserToken)
	}
	if gotBody.PageSize != 5 || gotBody.QueryText != "revenue" {
		t.Errorf("request = %+v", gotBody)
	}
}

func TestQuery_MapsResults(t *testing.T) {
	long := int64(42)
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(queryResponse{
			ResultItems: []resultItem{{
				DocumentID:      "doc-7",
				DocumentTitle:   textWithMarks{Text: "Q1 Report"},
				DocumentExcerpt: textWithMarks{Text: "Revenue grew"},
				DocumentURI:     "https://sites.example/finance/q1.pdf",
				ScoreAttributes: scoreAttributes{ScoreConfidence: "HIGH"},
				DocumentAttributes: []attribute{
					{Key: "allowed_users", Value: attributeValue{StringListValue: []string{"alice"}}},
					{Key: "denied_users", Value: attributeValue{StringListValue: []string{"mallory"}}},
					{Key: "department", Value: attributeValue{StringValue: "finance"}},
					{Key: "page_count", Value: attributeValue{LongValue: &long}},
				},
			}},
		})
	})

	docs, err := c.Query(context.Background(), "revenue", caller.New("alice", nil, ""), 10)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(docs) != 1 {
		t.Fatalf("got %d docs, want 1", len(docs))
	}

	d := docs[0]
	if d.ID() != "doc-7" || d.Title() != "Q1 Report" {
		t.Errorf("doc = %q/%q", d.ID(), d.Title())
	}
	if d.Score() != 0.75 {
		t.Errorf("score = %v, want 0.75 for HIGH", d.Score())
	}
	if d.SourceKind() != document.SecondaryIndex {
		t.Errorf("source kind = %q", d.SourceKind())
	}
	if !d.Policy().Denies("mallory", nil) {
		t.Error("ACL attributes were not normalized")
	}
	if d.Metadata()["page_count"] != int64(42) {
		t.Errorf("long attribute = %v", d.Metadata()["page_count"])
	}
}

func TestQuery_ConfidenceBuckets(t *testing.T) {
	tests := []struct {
		confidence string
		want       float64
	}{
		{"VERY_HIGH", 1.0},
		{"HIGH", 0.75},
		{"MEDIUM", 0.5},
		{"LOW", 0.25},
		{"NOT_AVAILABLE", 0.1},
	}
	for _, tt := range tests {
		if got := confidenceScore(tt.confidence); got != tt.want {
			t.Errorf("confidenceScore(%q) = %v, want %v", tt.confidence, got, tt.want)
		}
	}
}

func TestQuery_ServerError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	if _, err := c.Query(context.Background(), "q", caller.New("alice", nil, ""), 5); err == nil {
		t.Fatal("expected error on 500")
	}
}

func TestListDocuments_Pagination(t *testing.T) {
	var gotToken string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req listRequest
		json.NewDecoder(r.Body).Decode(&req)
		gotToken = req.PageToken
		json.NewEncoder(w).Encode(listResponse{
			Items: []listItem{{
				ID: "doc-1", Title: "T", URI: "https://x/doc", Content: "body",
				Attributes: []attribute{
					{Key: "allowed_groups", Value: attributeValue{StringListValue: []string{"finance-team"}}},
				},
			}},
			NextPageToken: "page-2",
		})
	})

	page, err := c.ListDocuments(context.Background(), "page-1")
	if err != nil {
		t.Fatalf("ListDocuments: %v", err)
	}
	if gotToken != "page-1" {
		t.Errorf("sent token = %q", gotToken)
	}
	if page.NextPageToken != "page-2" {
		t.Errorf("next token = %q", page.NextPageToken)
	}
	if len(page.Items) != 1 || page.Items[0].ID != "doc-1" {
		t.Fatalf("items = %+v", page.Items)
	}
	if _, ok := page.Items[0].Attributes["allowed_groups"]; !ok {
		t.Error("attributes were not flattened")
	}
}

func TestGetDocumentACL(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req aclRequest
		json.NewDecoder(r.Body).Decode(&req)
		if req.DocumentID != "doc-9" {
			t.Errorf("document id = %q", req.DocumentID)
		}
		json.NewEncoder(w).Encode(aclResponse{
			Attributes: []attribute{
				{Key: "acl_v2", Value: attributeValue{StringListValue: []string{`{"principal":"alice"}`}}},
			},
		})
	})

	attrs, err := c.GetDocumentACL(context.Background(), "doc-9")
	if err != nil {
		t.Fatalf("GetDocumentACL: %v", err)
	}
	if _, ok := attrs["acl_v2"]; !ok {
		t.Errorf("attrs = %v", attrs)
	}
}
