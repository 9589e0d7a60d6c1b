package classify

import (
	"testing"

	"github.com/kailas-cloud/kbgate/internal/domain/policy"
)

func fullControl() policy.PermissionLevel {
	return policy.PermissionLevel{
		Permissions: []string{"Full Control"},
		Inheritance: policy.Direct,
	}
}

func TestClassify_PathWinsOutright(t *testing.T) {
	// ACL shape would say restricted, but the structured path wins.
	p := policy.New([]string{"a@x.com"}, nil, nil, nil).
		WithPermission("a@x.com", fullControl())

	res := Classify(p, "Finance/confidential/a@x.com/report.pdf", "")

	if res.Classification != Confidential {
		t.Errorf("Classification = %q, want confidential", res.Classification)
	}
	if res.Department != "finance" {
		t.Errorf("Department = %q, want finance", res.Department)
	}
}

func TestClassify_PathTooShortIgnored(t *testing.T) {
	res := Classify(policy.Empty(), "finance/report.pdf", "")
	if res.Classification != Internal {
		t.Errorf("Classification = %q, want internal default", res.Classification)
	}
}

func TestClassify_PathInvalidLevelIgnored(t *testing.T) {
	res := Classify(policy.Empty(), "finance/whatever/a@x.com/doc.txt", "")
	if res.Classification != Internal {
		t.Errorf("Classification = %q, want internal", res.Classification)
	}
}

func TestClassify_ACLShape(t *testing.T) {
	tests := []struct {
		name string
		p    func() policy.AccessPolicy
		want Level
	}{
		{
			"few full-control owners and few users is restricted",
			func() policy.AccessPolicy {
				return policy.New([]string{"a@x.com", "b@x.com"}, nil, nil, nil).
					WithPermission("a@x.com", fullControl())
			},
			Restricted,
		},
		{
			"no public group and moderate owners is confidential",
			func() policy.AccessPolicy {
				return policy.New(
					[]string{"a@x", "b@x", "c@x", "d@x"},
					[]string{"finance"}, nil, nil,
				)
			},
			Confidential,
		},
		{
			"company-wide group is internal",
			func() policy.AccessPolicy {
				p := policy.New(
					[]string{"a@x", "b@x", "c@x", "d@x"},
					[]string{"Everyone", "finance"}, nil, nil,
				)
				for _, u := range []string{"a@x", "b@x", "c@x", "d@x"} {
					p = p.WithPermission(u, fullControl())
				}
				// fullControlCount > 2 so the restricted rule does not fire;
				// public group short-circuits confidential.
				return p
			},
			Internal,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Classify(tt.p(), "", "")
			if res.Classification != tt.want {
				t.Errorf("Classification = %q, want %q", res.Classification, tt.want)
			}
		})
	}
}

func TestClassify_DepartmentFromGroups(t *testing.T) {
	tests := []struct {
		group string
		want  string
	}{
		{"Corporate Finance Team", "finance"},
		{"Human Resources", "hr"},
		{"Legal-Compliance", "legal"},
		{"Platform Engineering", "engineering"},
		{"Field Sales EMEA", "sales"},
		{"Brand Studio", "marketing"},
		{"Workplace Ops", "operations"},
		{"Chess Club", DefaultDepartment},
	}
	for _, tt := range tests {
		t.Run(tt.group, func(t *testing.T) {
			p := policy.New(nil, []string{tt.group}, nil, nil)
			res := Classify(p, "", "")
			if res.Department != tt.want {
				t.Errorf("Department = %q, want %q", res.Department, tt.want)
			}
		})
	}
}

func TestClassify_DepartmentFromFilenameWhenNoOtherSignal(t *testing.T) {
	res := Classify(policy.Empty(), "", "quarterly_budget_review.xlsx")
	if res.Department != "finance" {
		t.Errorf("Department = %q, want finance", res.Department)
	}
	if res.Classification != Internal {
		t.Errorf("Classification = %q, want internal", res.Classification)
	}
}
