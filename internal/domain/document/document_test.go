package document

import (
	"testing"

	"github.com/kailas-cloud/kbgate/internal/domain/policy"
)

func TestSanitized_StripsACLFields(t *testing.T) {
	m := Metadata{
		"title":            "Q1 Report",
		"department":       "finance",
		"classification":   "confidential",
		"access_users":     "a@x.com|b@x.com",
		"access_groups":    "finance",
		"denied_users":     "c@x.com",
		"denied_groups":    "contractors",
		"internal_id":      "doc-42",
		"acl_v2":           []string{`{"principal":"a@x.com"}`},
		"sharepoint_acl_v2": []string{},
	}

	got := m.Sanitized()

	for _, f := range []string{
		"access_users", "access_groups", "denied_users", "denied_groups",
		"internal_id", "acl_v2", "sharepoint_acl_v2",
	} {
		if _, ok := got[f]; ok {
			t.Errorf("sanitized metadata still contains %q", f)
		}
	}
	if got["title"] != "Q1 Report" || got["department"] != "finance" {
		t.Error("sanitization dropped non-sensitive fields")
	}
	// classification is a visible routing hint, not an ACL field
	if got["classification"] != "confidential" {
		t.Error("classification should survive sanitization")
	}
}

func TestSanitized_DoesNotMutateReceiver(t *testing.T) {
	m := Metadata{"access_users": "a@x.com", "title": "t"}
	_ = m.Sanitized()
	if _, ok := m["access_users"]; !ok {
		t.Error("Sanitized() must copy, not mutate")
	}
}

func TestNew_NilMetadata(t *testing.T) {
	d := New("id-1", "body", "", "", 0.5, nil, policy.Empty(), PrimaryStore)
	if d.Metadata() == nil {
		t.Error("nil metadata should be replaced with an empty map")
	}
}
