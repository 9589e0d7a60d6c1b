package staging

import (
	"context"
	"testing"

	"github.com/kailas-cloud/kbgate/internal/db"
	"github.com/kailas-cloud/kbgate/internal/domain"
)

// mockStore implements the consumer interface for tests.
type mockStore struct {
	kv     map[string][]byte
	hashes map[string]map[string]string
}

func newMockStore() *mockStore {
	return &mockStore{
		kv:     make(map[string][]byte),
		hashes: make(map[string]map[string]string),
	}
}

func (m *mockStore) Get(_ context.Context, key string) ([]byte, error) {
	v, ok := m.kv[key]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return v, nil
}

func (m *mockStore) Set(_ context.Context, key string, value []byte) error {
	m.kv[key] = value
	return nil
}

func (m *mockStore) Del(_ context.Context, key string) error {
	delete(m.kv, key)
	return nil
}

func (m *mockStore) Scan(_ context.Context, pattern string) ([]string, error) {
	prefix := pattern[:len(pattern)-1] // trailing *
	var keys []string
	for k := range m.kv {
		if len(k) >= len(prefix) && k[:len(prefix)] == prefix {
			keys = append(keys, k)
		}
	}
	return keys, nil
}

func (m *mockStore) HSet(_ context.Context, key string, fields map[string]string) error {
	m.hashes[key] = fields
	return nil
}

func TestObjectRoundTrip(t *testing.T) {
	ms := newMockStore()
	repo := New(ms)
	ctx := context.Background()

	if err := repo.PutObject(ctx, "output/report_part1.pdf", []byte("pages")); err != nil {
		t.Fatalf("PutObject: %v", err)
	}

	data, err := repo.GetObject(ctx, "output/report_part1.pdf")
	if err != nil {
		t.Fatalf("GetObject: %v", err)
	}
	if string(data) != "pages" {
		t.Errorf("data = %q", data)
	}

	if err := repo.DeleteObject(ctx, "output/report_part1.pdf"); err != nil {
		t.Fatalf("DeleteObject: %v", err)
	}
	if _, err := repo.GetObject(ctx, "output/report_part1.pdf"); err == nil {
		t.Error("expected error after delete")
	}
}

func TestListObjects_PrefixScoped(t *testing.T) {
	ms := newMockStore()
	repo := New(ms)
	ctx := context.Background()

	for _, name := range []string{"output/a.pdf", "output/b.pdf", "processed/c.pdf"} {
		if err := repo.PutObject(ctx, name, []byte("x")); err != nil {
			t.Fatalf("PutObject: %v", err)
		}
	}

	names, err := repo.ListObjects(ctx, "output/")
	if err != nil {
		t.Fatalf("ListObjects: %v", err)
	}
	if len(names) != 2 {
		t.Errorf("got %d names, want 2: %v", len(names), names)
	}
	for _, n := range names {
		if n != "output/a.pdf" && n != "output/b.pdf" {
			t.Errorf("unexpected name %q", n)
		}
	}
}

func TestPutDocument_StagesUnderDocPrefix(t *testing.T) {
	ms := newMockStore()
	repo := New(ms)

	fields := map[string]string{"__content": "text", "title": "T"}
	if err := repo.PutDocument(context.Background(), "doc-1", fields); err != nil {
		t.Fatalf("PutDocument: %v", err)
	}

	got, ok := ms.hashes[domain.StagingDocPrefix+"doc-1"]
	if !ok {
		t.Fatal("document was not staged under the doc prefix")
	}
	if got["title"] != "T" {
		t.Errorf("fields = %v", got)
	}
}
