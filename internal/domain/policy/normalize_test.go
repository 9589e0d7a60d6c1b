package policy

import (
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/kbgate/internal/domain"
)

func newTestNormalizer() *Normalizer {
	return NewNormalizer(zap.NewNop())
}

func TestNormalize_Legacy(t *testing.T) {
	n := newTestNormalizer()

	p := n.Normalize(map[string]any{
		"allowed_users":  []any{"a@x.com", "b@x.com"},
		"allowed_groups": []string{"finance"},
		"denied_users":   []any{"c@x.com"},
	})

	if got := p.AllowedUsers(); len(got) != 2 {
		t.Fatalf("AllowedUsers() = %v", got)
	}
	if got := p.DeniedUsers(); len(got) != 1 || got[0] != "c@x.com" {
		t.Fatalf("DeniedUsers() = %v", got)
	}
}

func TestNormalize_LegacyConnectorPrefixed(t *testing.T) {
	n := newTestNormalizer()

	p := n.Normalize(map[string]any{
		"sharepoint_allowed_groups": []string{"legal", "hr"},
		"sharepoint_denied_groups":  []string{"contractors"},
	})

	if got := p.AllowedGroups(); len(got) != 2 {
		t.Fatalf("AllowedGroups() = %v", got)
	}
	if got := p.DeniedGroups(); len(got) != 1 || got[0] != "contractors" {
		t.Fatalf("DeniedGroups() = %v", got)
	}
}

func TestNormalize_StructuredV2(t *testing.T) {
	n := newTestNormalizer()

	p := n.Normalize(map[string]any{
		"acl_v2": []string{
			`{"principal":"a@x.com","principal_type":"user","permissions":["Full Control"],"access":"allow","inheritance":"direct"}`,
			`{"principal":"finance","principal_type":"group","permissions":["Read"],"access":"allow","inheritance":"inherited"}`,
			`{"principal":"c@x.com","principal_type":"user","access":"deny"}`,
		},
	})

	if got := p.AllowedUsers(); len(got) != 1 || got[0] != "a@x.com" {
		t.Fatalf("AllowedUsers() = %v", got)
	}
	if got := p.AllowedGroups(); len(got) != 1 || got[0] != "finance" {
		t.Fatalf("AllowedGroups() = %v", got)
	}
	if got := p.DeniedUsers(); len(got) != 1 || got[0] != "c@x.com" {
		t.Fatalf("DeniedUsers() = %v", got)
	}

	lvl, ok := p.Permission("a@x.com")
	if !ok {
		t.Fatal("expected permission detail for a@x.com")
	}
	if lvl.Inheritance != Direct {
		t.Errorf("Inheritance = %q, want direct", lvl.Inheritance)
	}
	if lvl, _ := p.Permission("finance"); lvl.Inheritance != Inherited {
		t.Errorf("finance inheritance = %q, want inherited", lvl.Inheritance)
	}
}

func TestNormalize_StructuredSkipsMalformedEntries(t *testing.T) {
	n := newTestNormalizer()

	p := n.Normalize(map[string]any{
		"acl_v2": []string{
			`not json at all`,
			`{"principal_type":"user","access":"allow"}`, // no principal
			`{"principal":"ok@x.com","type":"user","access":"allow"}`,
		},
	})

	if got := p.AllowedUsers(); len(got) != 1 || got[0] != "ok@x.com" {
		t.Fatalf("AllowedUsers() = %v, want only the valid entry", got)
	}
}

func TestNormalize_StructuredRoleTreatedAsUser(t *testing.T) {
	n := newTestNormalizer()

	p := n.Normalize(map[string]any{
		"acl_v2": []string{
			`{"principal":"site-owner","principal_type":"role","access":"allow"}`,
		},
	})

	if got := p.AllowedUsers(); len(got) != 1 || got[0] != "site-owner" {
		t.Fatalf("AllowedUsers() = %v, want role principal in user set", got)
	}
}

func TestNormalize_AlternateFallback(t *testing.T) {
	n := newTestNormalizer()

	p := n.Normalize(map[string]any{
		"allowed_principals": "solo@x.com",
		"unrelated":          42,
	})

	if got := p.AllowedUsers(); len(got) != 1 || got[0] != "solo@x.com" {
		t.Fatalf("AllowedUsers() = %v", got)
	}
}

func TestNormalize_PriorityStructuredWins(t *testing.T) {
	n := newTestNormalizer()

	// Connectors that emit v2 keep writing the flat fields too; the
	// structured entries carry the permission detail and must win.
	p := n.Normalize(map[string]any{
		"sharepoint_allowed_users": []string{"stale@x.com"},
		"sharepoint_acl_v2": []string{
			`{"principal":"owner@x.com","principal_type":"user","permissions":["Full Control"],"access":"allow","inheritance":"direct"}`,
		},
	})

	if got := p.AllowedUsers(); len(got) != 1 || got[0] != "owner@x.com" {
		t.Fatalf("AllowedUsers() = %v, want structured encoding to win", got)
	}
	lvl, ok := p.Permission("owner@x.com")
	if !ok {
		t.Fatal("permission detail lost for owner@x.com")
	}
	if len(lvl.Permissions) != 1 || lvl.Permissions[0] != "Full Control" {
		t.Fatalf("Permissions = %v", lvl.Permissions)
	}
}

func TestNormalize_PriorityLegacyBeatsAlternate(t *testing.T) {
	n := newTestNormalizer()

	p := n.Normalize(map[string]any{
		"allowed_users":      []string{"legacy@x.com"},
		"allowed_principals": []string{"alternate@x.com"},
	})

	if got := p.AllowedUsers(); len(got) != 1 || got[0] != "legacy@x.com" {
		t.Fatalf("AllowedUsers() = %v, want legacy encoding to win", got)
	}
}

func TestDecodeEntry_MalformedSentinel(t *testing.T) {
	_, err := decodeEntry("{not json")
	if !errors.Is(err, domain.ErrMalformedACL) {
		t.Fatalf("decodeEntry error = %v, want ErrMalformedACL", err)
	}
}

func TestNormalize_MalformedNeverFails(t *testing.T) {
	n := newTestNormalizer()

	tests := []struct {
		name  string
		attrs map[string]any
	}{
		{"nil attrs", nil},
		{"empty attrs", map[string]any{}},
		{"wrong types", map[string]any{"allowed_users": 12.5, "acl_v2": "not a list"}},
		{"all entries malformed", map[string]any{"acl_v2": []string{"{", "]"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := n.Normalize(tt.attrs)
			if !p.IsEmpty() {
				t.Errorf("expected empty fallback policy, got %v", p.AllowedUsers())
			}
		})
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	n := newTestNormalizer()
	attrs := map[string]any{
		"acl_v2": []string{
			`{"principal":"a@x.com","principal_type":"user","access":"allow"}`,
			`{"principal":"finance","principal_type":"group","access":"allow"}`,
			`{"principal":"blocked","principal_type":"group","access":"deny"}`,
		},
	}

	first := n.Normalize(attrs)
	second := n.Normalize(attrs)

	if !first.Equal(second) {
		t.Error("normalizing identical attributes twice must yield equal policies")
	}
}
